/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package timeline

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"maunium.net/go/mautrix/id"
)

var roomID string
var showStash bool

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:     "show",
	Short:   "Prints the timeline of a room from the local history.",
	Long:    `Rebuilds the timeline of a room from the events stored in the local history and prints it.`,
	Example: "roomline timeline show -r '!room:example.org'",
	RunE: func(cmd *cobra.Command, args []string) error {
		mx := Backend.Matrix()
		if err := mx.OpenStore(); err != nil {
			return err
		}
		room := mx.GetOrCreateRoom(id.RoomID(roomID))
		reconciler := room.Timeline()
		if reconciler.View().Len() == 0 {
			cmd.Printf("No stored messages for %s\n", roomID)
			return nil
		}
		render(cmd.OutOrStdout(), reconciler.View(), time.Now())
		if showStash {
			renderStash(cmd.OutOrStdout(), reconciler.Stashed())
		}
		return nil
	},
}

func init() {
	showCmd.Flags().StringVarP(&roomID, "room-id", "r", "", "ID of the room")
	showCmd.Flags().BoolVar(&showStash, "stash", false, "Also list events waiting for a missing target")
	if err := showCmd.MarkFlagRequired("room-id"); err != nil {
		fmt.Println(err)
	}
	TimelineCmd.AddCommand(showCmd)
}
