// Package coupler implements the device-adapter drivers of spec §4.9:
// serial line, TCP client, UDP receiver, SocketCAN raw socket,
// adapter-specific pseudo-0183 byte protocols, and log replay. All
// drivers share the suspend/resume/channel plumbing of Base. Grounded
// on aldas-go-nmea-client/socketcan's Connection (SocketCAN) and the
// teacher's ingress-stage channel-producer shape, generalized from a
// single fixed UDP ingress to many coupler kinds behind one interface.
package coupler

import (
	"sync/atomic"
	"time"

	"github.com/sterwen-tech/shipdataserver/internal"
	"github.com/sterwen-tech/shipdataserver/internal/message"
	"github.com/sterwen-tech/shipdataserver/router"
)

// Base provides the channel, suspend flag, and telemetry every coupler
// driver needs, leaving Open/Run/Send to the concrete driver.
type Base struct {
	name      string
	direction router.Direction
	ch        chan message.Message
	suspended atomic.Bool
	telemetry *internal.Telemetry

	timeout time.Duration
}

// NewBase creates a Base with the given name, direction, and producer
// channel capacity.
func NewBase(name string, direction router.Direction, chanCapacity int, timeout time.Duration) Base {
	return Base{
		name:      name,
		direction: direction,
		ch:        make(chan message.Message, chanCapacity),
		telemetry: internal.NewTelemetry("coupler", name),
		timeout:   timeout,
	}
}

// Name implements router.Coupler.
func (b *Base) Name() string { return b.name }

// Direction implements router.Coupler.
func (b *Base) Direction() router.Direction { return b.direction }

// Messages implements router.Coupler.
func (b *Base) Messages() <-chan message.Message { return b.ch }

// Suspend implements router.Coupler.
func (b *Base) Suspend() { b.suspended.Store(true) }

// Resume implements router.Coupler.
func (b *Base) Resume() { b.suspended.Store(false) }

// Suspended reports whether production is currently paused.
func (b *Base) Suspended() bool { return b.suspended.Load() }

// emit stamps msg's receive time and delivers it to the coupler's
// channel, dropping it if the driver is suspended.
func (b *Base) emit(msg message.Message, at time.Time) {
	if b.Suspended() {
		return
	}
	msg.SetReceiveTime(at)
	b.ch <- msg
}

// Timeout returns the configured read timeout.
func (b *Base) Timeout() time.Duration { return b.timeout }

// Telemetry exposes the coupler's logger/tracer for concrete drivers.
func (b *Base) Telemetry() *internal.Telemetry { return b.telemetry }
