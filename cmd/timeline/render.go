/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package timeline

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	mxtimeline "roomline/matrix/timeline"

	"maunium.net/go/mautrix/id"
)

// render prints a view the way a chat client would stack it: a header
// with sender and time opens every group, grouped messages only show
// their body.
func render(w io.Writer, view *mxtimeline.View, now time.Time) {
	items := view.Items()
	flags := view.Groupings()
	for i, item := range items {
		if !flags[i].Has(mxtimeline.TopEdge) {
			if i > 0 {
				fmt.Fprintln(w)
			}
			sent := time.UnixMilli(item.Timestamp)
			fmt.Fprintf(w, "%s  %s\n", item.Content.Sender, humanize.RelTime(sent, now, "ago", "from now"))
		}
		if item.RepliedTo != nil {
			fmt.Fprintf(w, "  > %s: %s\n", item.RepliedTo.Content.Sender, item.RepliedTo.Content.Body)
		}
		if item.Referenced != nil {
			fmt.Fprintf(w, "  ~ see %s\n", item.Referenced.EventID)
		}
		body := item.Content.Body
		if item.Edited() {
			body += " (edited)"
		}
		fmt.Fprintf(w, "  %s\n", body)
		if reactions := renderReactions(item); reactions != "" {
			fmt.Fprintf(w, "  %s\n", reactions)
		}
	}
}

func renderReactions(item mxtimeline.Item) string {
	keys := item.ReactionKeys()
	if len(keys) == 0 {
		return ""
	}
	parts := make([]string, len(keys))
	for i, key := range keys {
		parts[i] = fmt.Sprintf("[%s %s]", key, humanize.Comma(int64(len(item.ReactionSenders(key)))))
	}
	return strings.Join(parts, " ")
}

// renderStash lists events still waiting for a target.
func renderStash(w io.Writer, stashed map[id.EventID][]id.EventID) {
	if len(stashed) == 0 {
		return
	}
	targets := make([]id.EventID, 0, len(stashed))
	waiting := 0
	for target, events := range stashed {
		targets = append(targets, target)
		waiting += len(events)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })

	fmt.Fprintf(w, "\n%s waiting for %s missing:\n",
		humanize.Comma(int64(waiting)), humanize.Comma(int64(len(targets))))
	for _, target := range targets {
		fmt.Fprintf(w, "  %s <- %s\n", target, joinIDs(stashed[target]))
	}
}

func joinIDs(ids []id.EventID) string {
	parts := make([]string, len(ids))
	for i, eventID := range ids {
		parts[i] = eventID.String()
	}
	return strings.Join(parts, ", ")
}
