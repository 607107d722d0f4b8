// Package device implements the NMEA2000 device table and local CA
// address-claim state machine of spec §4.6. The table is grounded on
// original_source/src/nmea2000/nmea2k_controller.py's device_gc/
// check_device/subscriber pattern; entry identity is grounded on
// aldas-go-nmea-client/addressmapper's NodeName/ProductInfo.
package device

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/sterwen-tech/shipdataserver/name"
)

// DefaultMaxSilent is the default entry expiry window (spec §4.6).
const DefaultMaxSilent = 60 * time.Second

// ProductInfo mirrors PGN 126996's fields, requested from a newly seen
// device (spec §4.6).
type ProductInfo struct {
	NMEA2000Version     uint16
	ProductCode         uint16
	ModelID             string
	SoftwareVersionCode string
	ModelVersion        string
	ModelSerialCode     string
	CertificationLevel  uint8
	LoadEquivalency     uint8
}

// Bytes packs ProductInfo into its PGN 126996 wire layout: two uint16
// fields followed by four 32-byte space-padded ASCII fields and two
// trailing bytes.
func (p ProductInfo) Bytes() []byte {
	b := make([]byte, 134)
	binary.LittleEndian.PutUint16(b[0:2], p.NMEA2000Version)
	binary.LittleEndian.PutUint16(b[2:4], p.ProductCode)
	copy(b[4:36], padField(p.ModelID))
	copy(b[36:68], padField(p.SoftwareVersionCode))
	copy(b[68:100], padField(p.ModelVersion))
	copy(b[100:132], padField(p.ModelSerialCode))
	b[132] = p.CertificationLevel
	b[133] = p.LoadEquivalency
	return b
}

func padField(s string) []byte {
	b := make([]byte, 32)
	for i := range b {
		b[i] = ' '
	}
	copy(b, s)
	return b
}

// Entry is one device table row, keyed by source address.
type Entry struct {
	Source uint8

	Name      name.Name
	ValidName bool

	ProductInfo      ProductInfo
	ValidProductInfo bool

	PGNList []uint32

	FirstSeen time.Time
	LastSeen  time.Time
}

// EventKind distinguishes device-table subscriber notifications
// (spec §4.6: "Clients subscribe to device-table events (added, changed,
// expired)").
type EventKind int

const (
	EventAdded EventKind = iota
	EventChanged
	EventExpired
)

// Event is delivered to subscribers on table mutation.
type Event struct {
	Kind   EventKind
	Entry  Entry
}

// Table tracks every device observed on the bus, keyed by source
// address, with silence-based expiry.
type Table struct {
	mu        sync.Mutex
	entries   map[uint8]*Entry
	maxSilent time.Duration

	subscribers []func(Event)
}

// NewTable creates an empty Table. maxSilent of 0 uses DefaultMaxSilent.
func NewTable(maxSilent time.Duration) *Table {
	if maxSilent <= 0 {
		maxSilent = DefaultMaxSilent
	}
	return &Table{
		entries:   make(map[uint8]*Entry),
		maxSilent: maxSilent,
	}
}

// Subscribe registers fn to be called on every table event.
func (t *Table) Subscribe(fn func(Event)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subscribers = append(t.subscribers, fn)
}

func (t *Table) notify(ev Event) {
	for _, fn := range t.subscribers {
		fn(ev)
	}
}

// Observe records activity from source at time at. If source already
// has an entry and newName differs, the old entry is invalidated (it
// represents a device that left the bus and a new one taking its
// address) and replaced (spec §4.6).
func (t *Table) Observe(source uint8, newName name.Name, hasName bool, at time.Time) *Entry {
	if source >= 254 {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	e, exists := t.entries[source]
	if !exists {
		e = &Entry{Source: source, FirstSeen: at}
		t.entries[source] = e
		if hasName {
			e.Name = newName
			e.ValidName = true
		}
		e.LastSeen = at
		t.notify(Event{Kind: EventAdded, Entry: *e})
		return e
	}

	if hasName && e.ValidName && e.Name.Uint64() != newName.Uint64() {
		old := *e
		*e = Entry{Source: source, Name: newName, ValidName: true, FirstSeen: at, LastSeen: at}
		t.notify(Event{Kind: EventExpired, Entry: old})
		t.notify(Event{Kind: EventAdded, Entry: *e})
		return e
	}

	if hasName && !e.ValidName {
		e.Name = newName
		e.ValidName = true
	}
	e.LastSeen = at
	t.notify(Event{Kind: EventChanged, Entry: *e})
	return e
}

// SetProductInfo records PGN 126996 product info for source.
func (t *Table) SetProductInfo(source uint8, info ProductInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[source]
	if !ok {
		return
	}
	e.ProductInfo = info
	e.ValidProductInfo = true
	t.notify(Event{Kind: EventChanged, Entry: *e})
}

// Get returns the entry for source, if any.
func (t *Table) Get(source uint8) (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[source]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Entries returns a snapshot of every tracked entry, sorted by source
// address.
func (t *Table) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, 0, len(t.entries))
	for addr := uint8(0); addr < 254; addr++ {
		if e, ok := t.entries[addr]; ok {
			out = append(out, *e)
		}
	}
	return out
}

// GC expires entries whose LastSeen is older than maxSilent relative to
// now, notifying subscribers for each expiry and returning the count
// expired.
func (t *Table) GC(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	expired := 0
	for addr, e := range t.entries {
		if now.Sub(e.LastSeen) > t.maxSilent {
			delete(t.entries, addr)
			t.notify(Event{Kind: EventExpired, Entry: *e})
			expired++
		}
	}
	return expired
}
