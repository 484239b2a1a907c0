/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package rooms

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	mxrooms "roomline/matrix/rooms"
)

var metricsAddr string
var once bool

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Follows the sync stream and prints timeline changes.",
	Long: `Follows the sync stream of the logged in account. Every timeline event is stored in
the local history and reconciled into its room's timeline. Changes are printed as they happen.`,
	Example: "roomline room sync --metrics-addr :9090",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := Backend.Start(); err != nil {
			return err
		}
		mx := Backend.Matrix()

		if metricsAddr != "" {
			go serveMetrics(metricsAddr)
		}

		mx.Rooms().OnCreate(func(room *mxrooms.Room) {
			room.OnUpdate(func(update mxrooms.Update) {
				cmd.Printf("%s %s: +%d created, %d edited, %d reacted, %d linked\n",
					update.RoomID, update.Direction,
					len(update.Change.Created), len(update.Change.Edited),
					len(update.Change.Reacted), len(update.Change.Linked))
			})
		})
		if once {
			mx.OnFirstSync(mx.Stop)
		}
		return mx.Start()
	},
}

func serveMetrics(addr string) {
	log := Backend.Log()
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(Backend.Gatherer(), promhttp.HandlerOpts{}))
	log.Info().Str("addr", addr).Msg("Serving metrics")
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("Metrics server stopped")
	}
}

func init() {
	syncCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	syncCmd.Flags().BoolVar(&once, "once", false, "Stop after the first sync response")
	RoomCmd.AddCommand(syncCmd)
}
