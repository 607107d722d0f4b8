package filter

import (
	"github.com/sterwen-tech/shipdataserver/envelope"
	"github.com/sterwen-tech/shipdataserver/internal/message"
)

// NMEA0183Rule matches a talker sentence's address and/or formatter
// code, grounded on
// original_source/src/nmea0183/nmea0183_filters.py's NMEA0183Filter.
type NMEA0183Rule struct {
	name      string
	action    Action
	talker    string
	formatter string
}

// NewNMEA0183Rule creates a rule matching on talker and/or formatter.
// Per spec §4.11, a rule with both empty is permanently disabled.
func NewNMEA0183Rule(name string, action Action, talker, formatter string) *NMEA0183Rule {
	return &NMEA0183Rule{name: name, action: action, talker: talker, formatter: formatter}
}

// Name implements Rule.
func (r *NMEA0183Rule) Name() string { return r.name }

// RuleAction implements Rule.
func (r *NMEA0183Rule) RuleAction() Action { return r.action }

// Match implements Rule.
func (r *NMEA0183Rule) Match(msg message.Message) bool {
	if r.talker == "" && r.formatter == "" {
		return false
	}
	s, ok := msg.(*envelope.Sentence0183)
	if !ok {
		return false
	}
	if r.talker != "" && r.talker != talkerOf(s) {
		return false
	}
	if r.formatter != "" && r.formatter != formatterOf(s) {
		return false
	}
	return true
}

// talkerOf and formatterOf split the sentence's Address field (e.g.
// "GPGGA") into its talker ("GP") and formatter ("GGA") parts.
func talkerOf(s *envelope.Sentence0183) string {
	if len(s.Address) <= 2 {
		return s.Address
	}
	return s.Address[:2]
}

func formatterOf(s *envelope.Sentence0183) string {
	if len(s.Address) <= 2 {
		return ""
	}
	return s.Address[2:]
}
