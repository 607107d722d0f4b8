package router

import (
	"context"
	"time"

	"github.com/sterwen-tech/shipdataserver/internal/message"
)

// Coupler is the input/output contract every device adapter implements
// (spec §4.9): start, stop, suspend, resume, send, and a producer stream
// of envelopes.
type Coupler interface {
	// Name identifies this coupler for configuration and logging.
	Name() string

	// Open performs the coupler's connect/reconnect step. It is called
	// by the router's supervisor and may be retried per MaxAttempt.
	Open(ctx context.Context) error

	// Run starts producing envelopes onto the channel returned by
	// Messages, blocking until ctx is done or the coupler fails. Run is
	// called once Open has succeeded.
	Run(ctx context.Context) error

	// Messages returns the channel the coupler publishes envelopes on.
	Messages() <-chan message.Message

	// Send writes an envelope out through this coupler (used by the
	// injector publisher and bidirectional couplers).
	Send(ctx context.Context, msg message.Message) error

	// Suspend pauses production without closing the underlying
	// connection.
	Suspend()

	// Resume resumes production after Suspend.
	Resume()

	// Close releases the coupler's resources.
	Close() error

	// Direction reports whether this coupler accepts Send calls.
	Direction() Direction
}

// Direction constrains which of a coupler's read/write paths are active.
type Direction int

const (
	DirectionReadOnly Direction = iota
	DirectionWriteOnly
	DirectionBidirectional
)

// SupervisorConfig tunes the router's coupler-open retry behavior
// (spec §4.8).
type SupervisorConfig struct {
	MaxAttempt int
	OpenDelay  time.Duration
	StopSystem bool
}
