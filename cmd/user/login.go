/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package user

import (
	"fmt"

	"github.com/spf13/cobra"
)

var userID, password, homeserver string //variables to hold flag values

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:     "login",
	Short:   "Logs a user into their Matrix account",
	Long:    `Logs a user into their Matrix account, persisting the session to the config file`,
	Example: "roomline user login -s https://matrix.example.org -u 'id' -p 'password'",
	RunE: func(cmd *cobra.Command, args []string) error {
		if homeserver != "" {
			Backend.Config().Homeserver = homeserver
		}
		if err := Backend.Start(); err != nil {
			return err
		}
		if err := Backend.Matrix().Login(userID, password); err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		cmd.Printf("Logged in as %s\n", Backend.Config().UserID)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVarP(&userID, "username", "u", "", "Account username to login")
	loginCmd.Flags().StringVarP(&password, "password", "p", "", "Account password to login")
	loginCmd.Flags().StringVarP(&homeserver, "homeserver", "s", "", "Homeserver URL, saved for later runs")

	if err := loginCmd.MarkFlagRequired("username"); err != nil {
		fmt.Println(err)
	}

	if err := loginCmd.MarkFlagRequired("password"); err != nil {
		fmt.Println(err)
	}

	UserCmd.AddCommand(loginCmd)
}
