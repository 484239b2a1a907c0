/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package rooms

import (
	ifc "roomline/interfaces"

	"github.com/spf13/cobra"
)

var Backend ifc.Roomline //variable to handle client operations
var RoomID string        //variable to hold roomID in all commands pertaining to a single room

// roomCmd represents the room command
var RoomCmd = &cobra.Command{
	Use:   "room",
	Short: "Commands that fetch room events from the homeserver.",
	Long: `Commands for a logged in user to keep room timelines up to date, either by following
the live sync stream or by paginating backwards into older history.`,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// Set a variable pointing to the main client object (ifc.Roomline)
func SetLinkToBackend(roomline ifc.Roomline) {
	Backend = roomline
}
