package ifc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"roomline/config"
	"roomline/matrix/timeline"
)

type Roomline interface {
	Matrix() MatrixContainer
	Config() *config.Config
	Log() zerolog.Logger

	// Metrics is shared by every timeline of the process, Gatherer exposes it.
	Metrics() *timeline.Metrics
	Gatherer() prometheus.Gatherer

	Start() error
	Stop(save bool)
}
