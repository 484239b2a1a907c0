/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package timeline

import (
	ifc "roomline/interfaces"

	"github.com/spf13/cobra"
)

var Backend ifc.Roomline //variable to handle client operations

// TimelineCmd represents the timeline command
var TimelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Commands that print reconciled timelines.",
	Long: `Commands that print reconciled timelines, either of a room stored in the local history or
of a file of raw events. Neither needs a connection to the homeserver.`,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// Set a variable pointing to the main client object (ifc.Roomline)
func SetLinkToBackend(roomline ifc.Roomline) {
	Backend = roomline
}
