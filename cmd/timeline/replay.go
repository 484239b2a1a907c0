/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package timeline

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"roomline/matrix/mxevents"
	mxtimeline "roomline/matrix/timeline"

	"maunium.net/go/mautrix/event"
)

var strict bool

// replayCmd represents the replay command
var replayCmd = &cobra.Command{
	Use:   "replay [file]",
	Short: "Reconciles a file of raw events and prints the result.",
	Long: `Reads raw Matrix events, as a JSON array or one JSON object per line, feeds them to a fresh
timeline in file order and prints the reconciled timeline together with the events that are
still waiting for a missing target. Reads stdin when no file or "-" is given.`,
	Example: "roomline timeline replay events.json",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := io.Reader(os.Stdin)
		if len(args) == 1 && args[0] != "-" {
			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()
			in = file
		}

		cfg := Backend.Config()
		err := replay(in, cmd.OutOrStdout(), time.Now(),
			mxtimeline.WithLogger(Backend.Log()),
			mxtimeline.WithMetrics(Backend.Metrics()),
			mxtimeline.WithGroupWindow(cfg.GroupWindow),
		)
		if err != nil && (strict || cfg.StrictInvariants || !errors.Is(err, mxtimeline.ErrInvariant)) {
			return err
		} else if err != nil {
			cmd.PrintErrln("warning:", err)
		}
		return nil
	},
}

func replay(in io.Reader, out io.Writer, now time.Time, opts ...mxtimeline.Option) error {
	events, err := decodeEvents(in)
	if err != nil {
		return err
	}
	reconciler, err := mxtimeline.New(mxevents.ClassifyAll(events), opts...)
	render(out, reconciler.View(), now)
	renderStash(out, reconciler.Stashed())
	return err
}

// decodeEvents accepts a JSON array of events or a stream of JSON objects.
func decodeEvents(in io.Reader) ([]*event.Event, error) {
	reader := bufio.NewReader(in)
	first, err := peekNonSpace(reader)
	if err == io.EOF {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var events []*event.Event
	dec := json.NewDecoder(reader)
	if first == '[' {
		if err = dec.Decode(&events); err != nil {
			return nil, fmt.Errorf("decode event array: %w", err)
		}
		return events, nil
	}
	for {
		var evt event.Event
		if err = dec.Decode(&evt); err == io.EOF {
			return events, nil
		} else if err != nil {
			return nil, fmt.Errorf("decode event %d: %w", len(events)+1, err)
		}
		events = append(events, &evt)
	}
}

func peekNonSpace(reader *bufio.Reader) (byte, error) {
	for {
		b, err := reader.Peek(1)
		if err != nil {
			return 0, err
		}
		if !bytes.ContainsAny(b, " \t\r\n") {
			return b[0], nil
		}
		if _, err = reader.Discard(1); err != nil {
			return 0, err
		}
	}
}

func init() {
	replayCmd.Flags().BoolVar(&strict, "strict", false, "Fail on timeline invariant violations")
	TimelineCmd.AddCommand(replayCmd)
}
