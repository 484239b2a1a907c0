// Based on https://github.com/tulir/gomuks/blob/master/gomuks.go
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	sync "github.com/sasha-s/go-deadlock"

	"roomline/config"
	"roomline/debug"
	ifc "roomline/interfaces"
	"roomline/matrix"
	"roomline/matrix/timeline"
)

type Roomline struct {
	matrix *matrix.ClientWrapper
	config *config.Config

	log     zerolog.Logger
	logFile io.Closer

	registry *prometheus.Registry
	metrics  *timeline.Metrics

	startLock sync.Mutex
	started   bool
	stop      chan bool
}

func NewRoomline(configDir, dataDir, cacheDir string) (*Roomline, error) {
	rl := &Roomline{
		stop:     make(chan bool, 1),
		registry: prometheus.NewRegistry(),
	}

	rl.config = config.NewConfig(configDir, dataDir, cacheDir)
	if err := rl.config.Load(); err != nil {
		return nil, err
	}

	log, file, err := debug.Initialize(rl.config.LogLevel)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Logging to stderr:", err)
		log = debug.New(os.Stderr).Level(zerolog.WarnLevel)
	}
	rl.log = log
	rl.logFile = file

	rl.metrics = timeline.NewMetrics(rl.registry)
	rl.matrix = matrix.NewWrapper(rl.config, rl.log, rl.metrics)
	return rl, nil
}

// Save saves the active session.
func (rl *Roomline) Save() {
	if err := rl.config.Save(); err != nil {
		rl.log.Error().Err(err).Msg("Failed to save config")
	}
}

// StartAutosave calls Save() every minute until it receives a stop signal
// on the Roomline.stop channel.
func (rl *Roomline) StartAutosave() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if rl.config.LoggedIn() {
				rl.Save()
			}
		case val := <-rl.stop:
			if val {
				return
			}
		}
	}
}

// Stop stops the Matrix syncer and the autosave goroutine,
// then saves everything and calls os.Exit(0).
func (rl *Roomline) Stop(save bool) {
	go rl.internalStop(save)
}

func (rl *Roomline) internalStop(save bool) {
	rl.log.Info().Msg("Disconnecting from Matrix...")
	rl.stop <- true
	if save {
		rl.Save()
	}
	rl.Close()
	os.Exit(0)
}

// Close releases the history store and the log file.
func (rl *Roomline) Close() {
	if err := rl.matrix.Close(); err != nil {
		rl.log.Error().Err(err).Msg("Error closing history store")
	}
	if rl.logFile != nil {
		_ = rl.logFile.Close()
	}
}

// Start initializes the Matrix client, once, and starts the autosave loop
// and the signal handler.
func (rl *Roomline) Start() error {
	rl.startLock.Lock()
	defer rl.startLock.Unlock()
	if rl.started {
		return nil
	}

	if err := rl.matrix.InitClient(); err != nil {
		if errors.Is(err, matrix.ErrNoHomeserver) {
			return fmt.Errorf("%w: set homeserver in %s or pass --homeserver to login", err, rl.config.Dir)
		}
		return err
	}
	rl.started = true

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		rl.Stop(true)
	}()

	go rl.StartAutosave()
	return nil
}

// Matrix returns the MatrixContainer instance.
func (rl *Roomline) Matrix() ifc.MatrixContainer {
	return rl.matrix
}

// Config returns the Roomline config instance.
func (rl *Roomline) Config() *config.Config {
	return rl.config
}

func (rl *Roomline) Log() zerolog.Logger {
	return rl.log
}

func (rl *Roomline) Metrics() *timeline.Metrics {
	return rl.metrics
}

func (rl *Roomline) Gatherer() prometheus.Gatherer {
	return rl.registry
}
