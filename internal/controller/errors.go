package controller

import (
	"errors"

	"github.com/san-kum/natsel/internal/engine"
)

var (
	// ErrBusy is returned when a command needs the engine while a request is in flight.
	ErrBusy = errors.New("controller: request in flight")

	// ErrRunning is returned for a manual step while the polling loop is active.
	ErrRunning = errors.New("controller: simulation is running")

	// ErrTerminated is returned when run is requested for a population that has ended.
	ErrTerminated = errors.New("controller: simulation has ended")

	ErrNotLoaded = errors.New("controller: no snapshot loaded")

	ErrClosed = errors.New("controller: closed")

	// ErrConfigRejected is the engine refusing a configuration update.
	ErrConfigRejected = engine.ErrRejected
)
