// Package publisher implements the fan-out sink drivers of spec §4.10:
// TCP-stream, RPC push, trace, injector, and Kafka. Every driver
// satisfies router.Publisher and is driven entirely from its own
// worker goroutine (spec §4.8), so none of them needs to be
// non-blocking. Grounded on
// original_source/src/router_core/client_publisher.py's
// NMEAPublisher/NMEA2000DYPublisher/NMEA2000STPublisher format
// dispatch and squadracorsepolito-acmetel's egress/kafka.go writer
// wiring.
package publisher

import (
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/sterwen-tech/shipdataserver/envelope"
	"github.com/sterwen-tech/shipdataserver/internal"
	"github.com/sterwen-tech/shipdataserver/internal/message"
	"github.com/sterwen-tech/shipdataserver/pseudo0183"
)

// Format selects how a TCP publisher renders an envelope onto the wire,
// matching original_source's transparent/dyfmt/stfmt modes.
type Format int

const (
	// FormatTransparent forwards Sentence0183 text terminated by CR LF,
	// and Passthrough payloads verbatim.
	FormatTransparent Format = iota
	// FormatDYFMT renders Raw2000 envelopes as `!PDGY` sentences.
	FormatDYFMT
	// FormatSTFMT renders Raw2000 envelopes as `!PGNST` sentences.
	FormatSTFMT
)

// DefaultMaxSilent is the silence timeout after which a TCP publisher
// closes its connection (spec §4.10's `max_silent`).
const DefaultMaxSilent = 60 * time.Second

// TCP streams envelopes to a single connected client over a TCP
// connection it owns, reformatting per Format and disconnecting after
// MaxSilent of inactivity.
type TCP struct {
	name    string
	sources []string
	format  Format

	conn      net.Conn
	maxSilent time.Duration

	mu       sync.Mutex
	lastSent time.Time

	telemetry *internal.Telemetry
}

// NewTCP wraps an already-accepted or already-dialed connection as a
// publisher. sources names the couplers this publisher subscribes to.
func NewTCP(name string, conn net.Conn, format Format, sources []string, maxSilent time.Duration) *TCP {
	if maxSilent <= 0 {
		maxSilent = DefaultMaxSilent
	}
	return &TCP{
		name:      name,
		sources:   sources,
		format:    format,
		conn:      conn,
		maxSilent: maxSilent,
		lastSent:  time.Now(),
		telemetry: internal.NewTelemetry("publisher", name),
	}
}

// Name implements router.Publisher.
func (t *TCP) Name() string { return t.name }

// Sources implements router.Publisher.
func (t *TCP) Sources() []string { return t.sources }

// Close implements router.Publisher.
func (t *TCP) Close() error { return t.conn.Close() }

// Publish renders msg per Format and writes it to the connection,
// closing it if the silence timeout has elapsed or the write fails.
func (t *TCP) Publish(msg message.Message) error {
	t.mu.Lock()
	silentFor := time.Since(t.lastSent)
	t.mu.Unlock()
	if silentFor > t.maxSilent {
		t.telemetry.LogWarn("connection silent past max_silent, closing", "silent_for", silentFor)
		return t.Close()
	}

	payload, ok := t.render(msg)
	if !ok {
		return nil
	}

	if _, err := t.conn.Write(payload); err != nil {
		return fmt.Errorf("tcp publisher: write: %w", err)
	}

	t.mu.Lock()
	t.lastSent = time.Now()
	t.mu.Unlock()
	return nil
}

func (t *TCP) render(msg message.Message) ([]byte, bool) {
	switch t.format {
	case FormatDYFMT, FormatSTFMT:
		raw, ok := msg.(*envelope.Raw2000)
		if !ok {
			return t.renderTransparent(msg)
		}
		out := pseudo0183.Raw2000{PGN: raw.PGN, Priority: raw.Priority, Source: raw.Source,
			Destination: raw.Destination, Data: raw.Data}
		if t.format == FormatDYFMT {
			return []byte(pseudo0183.EncodePDGY(out)), true
		}
		return []byte(pseudo0183.EncodePGNST(out)), true
	default:
		return t.renderTransparent(msg)
	}
}

func (t *TCP) renderTransparent(msg message.Message) ([]byte, bool) {
	if s, ok := msg.(*envelope.Sentence0183); ok {
		line := strings.TrimRight(s.Raw, "\r\n")
		if line == "" {
			return nil, false
		}
		return []byte(line + "\r\n"), true
	}
	ser, ok := msg.(message.Serializable)
	if !ok {
		return nil, false
	}
	data := ser.GetBytes()
	if len(data) == 0 {
		return nil, false
	}
	return data, true
}

// DefaultListenerAccept accepts a single connection on ln, the shape
// used to bootstrap server-side TCP publishers (spec §4.10's server
// mode, one publisher per accepted client).
func DefaultListenerAccept(ln net.Listener) (net.Conn, error) {
	conn, err := ln.Accept()
	if err != nil {
		return nil, fmt.Errorf("publisher: accept: %w", err)
	}
	return conn, nil
}
