/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package rooms

import (
	"fmt"

	"github.com/spf13/cobra"
	"maunium.net/go/mautrix/id"
)

var limit, pages int

// paginateCmd represents the paginate command
var paginateCmd = &cobra.Command{
	Use:     "paginate",
	Short:   "Fetches older events of a room.",
	Long:    `Fetches older events of a room from the homeserver, continuing from where the last pagination stopped.`,
	Example: "roomline room paginate -r '!room:example.org' -l 100",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := Backend.Start(); err != nil {
			return err
		}
		roomID := id.RoomID(RoomID)
		total := 0
		for i := 0; i < pages; i++ {
			n, err := Backend.Matrix().Paginate(roomID, limit)
			if err != nil {
				return fmt.Errorf("paginate %s: %w", roomID, err)
			}
			total += n
			if n == 0 {
				cmd.Println("Reached the start of the room")
				break
			}
		}
		items := Backend.Matrix().GetOrCreateRoom(roomID).Timeline().View().Len()
		cmd.Printf("Fetched %d events, %d messages in the timeline\n", total, items)
		return nil
	},
}

func init() {
	paginateCmd.Flags().StringVarP(&RoomID, "room-id", "r", "", "ID of the room")
	paginateCmd.Flags().IntVarP(&limit, "limit", "l", 0, "Events per request (defaults to timeline_limit)")
	paginateCmd.Flags().IntVar(&pages, "pages", 1, "Number of requests to make")
	if err := paginateCmd.MarkFlagRequired("room-id"); err != nil {
		fmt.Println(err)
	}
	RoomCmd.AddCommand(paginateCmd)
}
