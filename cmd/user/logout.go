/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package user

import (
	"github.com/spf13/cobra"
)

// logoutCmd represents the logout command
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Logs the user account out of the client.",
	Long:  `Logs the user account out of the client, deleting their session by revoking the access token.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := Backend.Start(); err != nil {
			return err
		}
		return Backend.Matrix().Logout()
	},
}

func init() {
	UserCmd.AddCommand(logoutCmd)
}
