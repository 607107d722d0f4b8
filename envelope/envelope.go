// Package envelope defines the canonical message variants that move
// through the router (spec §4.8): raw and decoded NMEA2000, NMEA0183
// sentences, and opaque passthrough bytes. All variants embed
// internal/message.Base, the common receive-time/timestamp/
// span-context tracking every message type shares, generalized from
// single-purpose payload types to this module's envelope contract.
package envelope

import (
	"github.com/sterwen-tech/shipdataserver/internal/message"
)

// Raw2000 is an undecoded NMEA2000 PGN payload, the product of frame
// parsing, fast-packet reassembly, or ISO transport reassembly (spec
// §3's Raw2000 type).
type Raw2000 struct {
	message.Base

	PGN         uint32
	Priority    uint8
	Source      uint8
	Destination uint8
	Data        []byte

	CouplerName string
}

// GetBytes returns the raw PGN payload bytes.
func (m *Raw2000) GetBytes() []byte { return m.Data }

// Decoded2000 is a Raw2000 message after dictionary-driven field
// decoding, carrying normalized field values keyed by field ID.
// Repeats holds one map per repetition of the PGN's repeating field
// group, if it has one (spec §3, e.g. GNSS satellites-in-view).
type Decoded2000 struct {
	message.Base

	PGN         uint32
	Priority    uint8
	Source      uint8
	Destination uint8
	Fields      map[string]any
	Repeats     []map[string]any

	CouplerName string
}

// Sentence0183 is a textual NMEA0183 sentence (talker or proprietary
// pseudo-0183), carried verbatim alongside its parsed address/fields.
type Sentence0183 struct {
	message.Base

	Address string
	Fields  []string
	Raw     string

	CouplerName string
}

// GetBytes returns the sentence's raw text as bytes.
func (m *Sentence0183) GetBytes() []byte { return []byte(m.Raw) }

// Passthrough is an opaque byte payload forwarded without
// interpretation (the UDP coupler emits its datagrams as Passthrough;
// the injector publisher forwards them like any other envelope).
type Passthrough struct {
	message.Base

	Data        []byte
	CouplerName string
}

// GetBytes returns the passthrough payload.
func (m *Passthrough) GetBytes() []byte { return m.Data }

var (
	_ message.Serializable = (*Raw2000)(nil)
	_ message.Message      = (*Decoded2000)(nil)
	_ message.Serializable = (*Sentence0183)(nil)
	_ message.Serializable = (*Passthrough)(nil)
)
