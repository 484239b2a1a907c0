/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package user

import (
	ifc "roomline/interfaces"

	"github.com/spf13/cobra"
)

var Backend ifc.Roomline //variable to handle client operations

// userCmd represents the user command
var UserCmd = &cobra.Command{
	Use:   "user",
	Short: "User is a command group for user-related commands",
	Long:  `Command group for user-related commands, such as login or logout`,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// Set a variable pointing to the main client object (ifc.Roomline)
func SetLinkToBackend(roomline ifc.Roomline) {
	Backend = roomline
}
