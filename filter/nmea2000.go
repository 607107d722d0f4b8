package filter

import (
	"strings"
	"sync"
	"time"

	"github.com/sterwen-tech/shipdataserver/device"
	"github.com/sterwen-tech/shipdataserver/envelope"
	"github.com/sterwen-tech/shipdataserver/internal/message"
)

// NMEA2000Rule matches on any combination of source address, PGN list,
// and manufacturer/product identity, grounded on
// original_source/src/nmea2000/nmea2k_filters.py's NMEA2000Filter.
// Manufacturer and product identity are resolved against an optional
// device.Table rather than carried on the message itself, since a raw
// or decoded PGN envelope has no manufacturer field of its own.
type NMEA2000Rule struct {
	name   string
	action Action

	pgns   map[uint32]struct{}
	source *uint8

	devices        *device.Table
	manufacturerID *uint16
	productName    string

	period time.Duration

	mu      sync.Mutex
	windows map[windowKey]time.Time
}

// windowKey is the throttle cadence's dedup key: spec §4.11 and the
// testable property in spec §8 both pass at most one message per
// Period per (pgn, source) pair, not per pgn alone, so two different
// sources emitting the same PGN are throttled independently.
type windowKey struct {
	pgn    uint32
	source uint8
}

// NMEA2000RuleOpts configures an NMEA2000Rule's optional match fields
// and time-window throttle.
type NMEA2000RuleOpts struct {
	PGNs           []uint32
	Source         *uint8
	Devices        *device.Table
	ManufacturerID *uint16
	ProductName    string
	// Period, when non-zero, turns this rule into the time-filter
	// sub-kind of spec §4.11: once matched, it passes at most one
	// message per Period for each distinct (PGN, source) pair.
	Period time.Duration
}

// NewNMEA2000Rule creates a rule from opts. A rule with neither PGNs
// nor Source set is permanently disabled, mirroring NMEA2000Filter.valid().
func NewNMEA2000Rule(name string, action Action, opts NMEA2000RuleOpts) *NMEA2000Rule {
	r := &NMEA2000Rule{
		name:           name,
		action:         action,
		source:         opts.Source,
		devices:        opts.Devices,
		manufacturerID: opts.ManufacturerID,
		productName:    opts.ProductName,
		period:         opts.Period,
		windows:        make(map[windowKey]time.Time),
	}
	if len(opts.PGNs) > 0 {
		r.pgns = make(map[uint32]struct{}, len(opts.PGNs))
		for _, pgn := range opts.PGNs {
			r.pgns[pgn] = struct{}{}
		}
	}
	return r
}

// Name implements Rule.
func (r *NMEA2000Rule) Name() string { return r.name }

// RuleAction implements Rule.
func (r *NMEA2000Rule) RuleAction() Action { return r.action }

// Match implements Rule.
func (r *NMEA2000Rule) Match(msg message.Message) bool {
	if r.pgns == nil && r.source == nil {
		return false
	}

	pgn, source, ok := pgnSourceOf(msg)
	if !ok {
		return false
	}

	if r.source != nil && *r.source != source {
		return false
	}
	if r.pgns != nil {
		if _, present := r.pgns[pgn]; !present {
			return false
		}
	}
	if !r.matchDevice(source) {
		return false
	}
	if r.period > 0 && !r.allow(pgn, source) {
		return false
	}
	return true
}

func (r *NMEA2000Rule) matchDevice(source uint8) bool {
	if r.manufacturerID == nil && r.productName == "" {
		return true
	}
	if r.devices == nil {
		return false
	}
	entry, ok := r.devices.Get(source)
	if !ok {
		return false
	}
	if r.manufacturerID != nil && (!entry.ValidName || entry.Name.ManufacturerCode != *r.manufacturerID) {
		return false
	}
	if r.productName != "" {
		if !entry.ValidProductInfo || !strings.Contains(strings.ToLower(entry.ProductInfo.ModelID), strings.ToLower(r.productName)) {
			return false
		}
	}
	return true
}

// allow applies the per-(pgn, source) time window, passing at most once
// every r.period for each distinct pair.
func (r *NMEA2000Rule) allow(pgn uint32, source uint8) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	key := windowKey{pgn: pgn, source: source}
	last, seen := r.windows[key]
	if seen && now.Sub(last) < r.period {
		return false
	}
	r.windows[key] = now
	return true
}

func pgnSourceOf(msg message.Message) (pgn uint32, source uint8, ok bool) {
	switch m := msg.(type) {
	case *envelope.Raw2000:
		return m.PGN, m.Source, true
	case *envelope.Decoded2000:
		return m.PGN, m.Source, true
	default:
		return 0, 0, false
	}
}
