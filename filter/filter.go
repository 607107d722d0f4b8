// Package filter implements spec §4.11's match-and-action rules on
// NMEA0183 and NMEA2000 messages, plus per-(PGN, source) time-window
// throttling, grounded on
// original_source/src/router_core/filters.py's NMEAFilter/TimeFilter/
// FilterSet and the per-protocol matchers in
// original_source/src/nmea0183/nmea0183_filters.go and
// nmea2000/nmea2k_filters.py.
package filter

import (
	"github.com/sterwen-tech/shipdataserver/envelope"
	"github.com/sterwen-tech/shipdataserver/internal/message"
)

// Action is a filter's disposition when it matches a message
// (spec §4.11: "Action is select or discard").
type Action int

const (
	ActionDiscard Action = iota
	ActionSelect
)

// Rule is one configured match rule, implemented by NMEA0183Rule and
// NMEA2000Rule.
type Rule interface {
	// Name identifies the rule for logging and configuration.
	Name() string
	// RuleAction is the rule's select/discard disposition.
	RuleAction() Action
	// Match reports whether msg matches this rule's pattern and, for a
	// time-gated rule, whether the throttling window currently allows
	// it through. A rule that is disabled (spec §4.11: "If neither
	// talker nor formatter is set on a 0183 filter, the filter is
	// disabled") never matches.
	Match(msg message.Message) bool
}

// Set is a publisher's or connection's ordered list of rules plus the
// filter_select flag that decides how an unmatched message is treated
// (spec §4.11). It implements router.Filter.
type Set struct {
	filterSelect bool
	rules0183    []Rule
	rules2000    []Rule
}

// NewSet builds a Set from an unordered rule list, splitting by message
// kind and preserving the caller's ordering within each kind (first
// match wins, mirroring FilterSet.process_filter's break-on-first-hit).
func NewSet(filterSelect bool, rules ...Rule) *Set {
	s := &Set{filterSelect: filterSelect}
	for _, r := range rules {
		switch r.(type) {
		case *NMEA0183Rule:
			s.rules0183 = append(s.rules0183, r)
		case *NMEA2000Rule:
			s.rules2000 = append(s.rules2000, r)
		}
	}
	return s
}

// Apply implements router.Filter. keep follows spec §4.11 exactly:
// a select match always passes, a discard match always blocks, and an
// unmatched message passes only when filterSelect is false.
func (s *Set) Apply(msg message.Message) (bool, error) {
	var rules []Rule
	switch msg.(type) {
	case *envelope.Sentence0183:
		rules = s.rules0183
	case *envelope.Raw2000, *envelope.Decoded2000:
		rules = s.rules2000
	default:
		return true, nil
	}

	for _, r := range rules {
		if r.Match(msg) {
			return r.RuleAction() == ActionSelect, nil
		}
	}
	return !s.filterSelect, nil
}
