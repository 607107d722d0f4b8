package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sterwen-tech/shipdataserver/envelope"
)

func TestNMEA0183RuleDisabledWhenEmpty(t *testing.T) {
	r := NewNMEA0183Rule("f0", ActionDiscard, "", "")
	require.False(t, r.Match(&envelope.Sentence0183{Address: "GPGGA"}))
}

func TestNMEA0183RuleMatchesTalkerAndFormatter(t *testing.T) {
	r := NewNMEA0183Rule("f0", ActionDiscard, "GP", "GGA")
	require.True(t, r.Match(&envelope.Sentence0183{Address: "GPGGA"}))
	require.False(t, r.Match(&envelope.Sentence0183{Address: "GPRMC"}))
	require.False(t, r.Match(&envelope.Sentence0183{Address: "IIGGA"}))
}

func TestNMEA2000RuleMatchesPGNAndSource(t *testing.T) {
	r := NewNMEA2000Rule("f1", ActionSelect, NMEA2000RuleOpts{PGNs: []uint32{127250}})
	require.True(t, r.Match(&envelope.Raw2000{PGN: 127250, Source: 3}))
	require.False(t, r.Match(&envelope.Raw2000{PGN: 130306, Source: 3}))
}

func TestNMEA2000RuleDisabledWithoutPGNsOrSource(t *testing.T) {
	r := NewNMEA2000Rule("f1", ActionSelect, NMEA2000RuleOpts{})
	require.False(t, r.Match(&envelope.Raw2000{PGN: 127250}))
}

func TestNMEA2000RuleTimeWindowThrottles(t *testing.T) {
	r := NewNMEA2000Rule("f1", ActionSelect, NMEA2000RuleOpts{PGNs: []uint32{127250}, Period: time.Hour})
	msg := &envelope.Raw2000{PGN: 127250, Source: 1}
	require.True(t, r.Match(msg))
	require.False(t, r.Match(msg))
}

func TestNMEA2000RuleTimeWindowThrottlesPerSource(t *testing.T) {
	r := NewNMEA2000Rule("f1", ActionSelect, NMEA2000RuleOpts{PGNs: []uint32{127250}, Period: time.Hour})
	first := &envelope.Raw2000{PGN: 127250, Source: 1}
	second := &envelope.Raw2000{PGN: 127250, Source: 2}

	require.True(t, r.Match(first))
	require.True(t, r.Match(second))
	require.False(t, r.Match(first))
	require.False(t, r.Match(second))
}

func TestNMEA2000RuleManufacturerRequiresDeviceTable(t *testing.T) {
	id := uint16(135)
	r := NewNMEA2000Rule("f1", ActionSelect, NMEA2000RuleOpts{PGNs: []uint32{127250}, ManufacturerID: &id})
	require.False(t, r.Match(&envelope.Raw2000{PGN: 127250, Source: 1}))
}

func TestSetApplyUnmatchedRespectsFilterSelect(t *testing.T) {
	setDiscard := NewSet(false)
	keep, err := setDiscard.Apply(&envelope.Sentence0183{Address: "GPGGA"})
	require.NoError(t, err)
	require.True(t, keep)

	setSelect := NewSet(true)
	keep, err = setSelect.Apply(&envelope.Sentence0183{Address: "GPGGA"})
	require.NoError(t, err)
	require.False(t, keep)
}

func TestSetApplyDiscardMatchBlocks(t *testing.T) {
	rule := NewNMEA0183Rule("f0", ActionDiscard, "GP", "")
	s := NewSet(false, rule)
	keep, err := s.Apply(&envelope.Sentence0183{Address: "GPGGA"})
	require.NoError(t, err)
	require.False(t, keep)
}

func TestSetApplySelectMatchPasses(t *testing.T) {
	rule := NewNMEA0183Rule("f0", ActionSelect, "GP", "")
	s := NewSet(true, rule)
	keep, err := s.Apply(&envelope.Sentence0183{Address: "GPGGA"})
	require.NoError(t, err)
	require.True(t, keep)
}

func TestSetApplyPassthroughMessageBypassesFilters(t *testing.T) {
	rule := NewNMEA0183Rule("f0", ActionDiscard, "GP", "")
	s := NewSet(false, rule)
	keep, err := s.Apply(&envelope.Passthrough{Data: []byte{1}})
	require.NoError(t, err)
	require.True(t, keep)
}
