/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	shell "github.com/brianstrauch/cobra-shell"

	"roomline/cmd/rooms"
	"roomline/cmd/timeline"
	"roomline/cmd/user"
	ifc "roomline/interfaces"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "roomline",
	Short: "A Matrix client that reconciles room timelines",
	Long: `A Matrix client that keeps a local, ordered timeline per room. Edits, reactions,
replies and references are folded into the messages they relate to, whatever order
the homeserver delivers them in.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// It returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func addSubcommandGroups() {
	rootCmd.AddCommand(shell.New(rootCmd, nil)) //adds an interactive shell
	rootCmd.AddCommand(user.UserCmd)            //adds the user commands as a whole subgroup
	rootCmd.AddCommand(rooms.RoomCmd)
	rootCmd.AddCommand(timeline.TimelineCmd)
}

// Set a variable in each command package pointing to the main client object (ifc.Roomline)
func SetLinkToBackend(roomline ifc.Roomline) {
	user.SetLinkToBackend(roomline)
	rooms.SetLinkToBackend(roomline)
	timeline.SetLinkToBackend(roomline)
}

func init() {
	addSubcommandGroups()
}
