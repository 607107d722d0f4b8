package router

import (
	"github.com/sterwen-tech/shipdataserver/internal/message"
)

// Publisher is the fan-out sink contract (spec §4.10): it consumes
// envelopes from its bounded queue and serializes/forwards them however
// its driver sees fit.
type Publisher interface {
	// Name identifies this publisher for configuration and logging.
	Name() string

	// Publish hands one envelope to the publisher. It is called from the
	// publisher's own worker goroutine, never from the producing
	// coupler, so it may block or be slow without affecting other
	// publishers or couplers.
	Publish(msg message.Message) error

	// Sources lists the coupler names this publisher subscribes to,
	// used by the router to build the inverted coupler→publisher map
	// (spec §4.8).
	Sources() []string

	// Close releases the publisher's resources.
	Close() error
}

// QueueDefaults are the default per-publisher bounded-queue parameters
// (spec §4.8).
const (
	DefaultQueueCapacity = 20
	DefaultMaxLost        = 5
)
