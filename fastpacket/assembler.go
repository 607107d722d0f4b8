// Package fastpacket reassembles NMEA2000 fast-packet PGNs (spec §4.4):
// frames that share a 3-bit sequence counter in the high nibble of
// payload byte 0 and a 5-bit frame index in the low bits. Grounded on
// aldas-go-nmea-client's FastPacketAssembler, adapted to a stricter
// in-order/single-session-per-key contract.
package fastpacket

import (
	"time"

	"github.com/sterwen-tech/shipdataserver/frame"
)

// SessionDeadline is the inactivity timeout after which an in-progress
// session is discarded (spec §4.4: "250 ms after last received frame").
const SessionDeadline = 250 * time.Millisecond

// MaxPayload is the largest payload a fast-packet sequence can carry:
// frame 0 has 6 data bytes, frames 1..31 have 7 each.
const MaxPayload = 6 + 31*7

type sessionKey struct {
	source uint8
	pgn    uint32
}

type session struct {
	sequence    uint8
	length      uint8
	nextFrame   uint8
	data        [MaxPayload]byte
	lastFrameAt time.Time
	header      frame.Header
}

// Outcome reports what an Assembler.Feed call resulted in.
type Outcome int

const (
	// OutcomeIncomplete means the session is still accumulating frames.
	OutcomeIncomplete Outcome = iota
	// OutcomeComplete means the session finished and Message was filled.
	OutcomeComplete
	// OutcomeDropped means the frame was rejected (out of order, or a
	// new sequence preempted an in-progress one) and should be counted
	// as a drop.
	OutcomeDropped
)

// Message is a fully reassembled fast-packet payload.
type Message struct {
	Header frame.Header
	Data   []byte
	Time   time.Time
}

// Assembler reassembles fast-packet frames for a set of PGNs, keyed by
// (source address, PGN). Only one in-progress sequence per key is
// tracked, matching spec §4.4's "frames of another sequence for the same
// (SA, PGN) discard the in-progress session".
type Assembler struct {
	pgns       map[uint32]bool
	sessions   map[sessionKey]*session
	txSequence map[sessionKey]uint8
	now        func() time.Time
}

// NewAssembler creates an Assembler for the given fast-packet PGNs.
func NewAssembler(fastPacketPGNs []uint32) *Assembler {
	pgns := make(map[uint32]bool, len(fastPacketPGNs))
	for _, p := range fastPacketPGNs {
		pgns[p] = true
	}
	return &Assembler{
		pgns:       pgns,
		sessions:   make(map[sessionKey]*session),
		txSequence: make(map[sessionKey]uint8),
		now:        time.Now,
	}
}

// IsFastPacket reports whether pgn requires reassembly via this Assembler.
func (a *Assembler) IsFastPacket(pgn uint32) bool {
	return a.pgns[pgn]
}

// Feed processes one CAN frame belonging to a fast-packet PGN. It returns
// the assembled Message only when Outcome is OutcomeComplete.
func (a *Assembler) Feed(h frame.Header, data []byte, at time.Time) (Message, Outcome) {
	if len(data) < 2 {
		return Message{}, OutcomeDropped
	}
	sequence := data[0] >> 5
	frameNr := data[0] & 0x1F

	key := sessionKey{source: h.Source, pgn: h.PGN}
	s, ok := a.sessions[key]

	if ok && at.Sub(s.lastFrameAt) > SessionDeadline {
		delete(a.sessions, key)
		ok = false
	}

	if frameNr == 0 {
		if ok {
			// A new sequence announcing frame 0 preempts any prior
			// in-progress session for this key (spec §4.4).
			delete(a.sessions, key)
		}
		s = &session{
			sequence:    sequence,
			length:      data[1],
			nextFrame:   1,
			lastFrameAt: at,
			header:      h,
		}
		copy(s.data[:6], data[2:])
		a.sessions[key] = s

		if s.length <= 6 {
			return a.complete(key, s)
		}
		return Message{}, OutcomeIncomplete
	}

	if !ok || sequence != s.sequence || frameNr != s.nextFrame {
		delete(a.sessions, key)
		return Message{}, OutcomeDropped
	}

	start := 6 + int(frameNr-1)*7
	end := start + len(data) - 1
	if end > len(s.data) {
		end = len(s.data)
	}
	copy(s.data[start:end], data[1:])
	s.nextFrame++
	s.lastFrameAt = at

	received := 6 + int(frameNr)*7
	if received >= int(s.length) {
		return a.complete(key, s)
	}
	return Message{}, OutcomeIncomplete
}

func (a *Assembler) complete(key sessionKey, s *session) (Message, Outcome) {
	out := Message{
		Header: s.header,
		Data:   append([]byte(nil), s.data[:s.length]...),
		Time:   s.lastFrameAt,
	}
	delete(a.sessions, key)
	return out, OutcomeComplete
}

// Split breaks data into the sequence of fast-packet frame payloads
// needed to transmit it for (pgn, source), rolling the 3-bit sequence
// counter 0..7 per key on every call (spec §4.4: "the sequence counter
// rolls 0..7 per (PGN, SA)"). Frame 0 carries a length byte plus the
// first 6 data bytes; frames 1..31 carry 7 bytes each, trailing bytes
// padded with 0xFF.
func (a *Assembler) Split(pgn uint32, source uint8, data []byte) [][]byte {
	key := sessionKey{source: source, pgn: pgn}
	sequence := a.txSequence[key]
	a.txSequence[key] = (sequence + 1) % 8

	frame0 := make([]byte, 8)
	frame0[0] = sequence << 5
	frame0[1] = byte(len(data))
	n := copy(frame0[2:], data)
	for i := 2 + n; i < 8; i++ {
		frame0[i] = 0xFF
	}
	frames := [][]byte{frame0}

	for frameNr, off := uint8(1), n; off < len(data); frameNr, off = frameNr+1, off+7 {
		f := make([]byte, 8)
		f[0] = sequence<<5 | frameNr&0x1F
		end := off + 7
		if end > len(data) {
			end = len(data)
		}
		m := copy(f[1:], data[off:end])
		for i := 1 + m; i < 8; i++ {
			f[i] = 0xFF
		}
		frames = append(frames, f)
	}
	return frames
}

// Expire discards sessions whose last frame is older than SessionDeadline
// relative to now, returning the count of sessions dropped. Intended to
// be called periodically by the coupler driving this Assembler so that a
// session missing its final frame is eventually counted as a drop even
// without new traffic for that key.
func (a *Assembler) Expire(now time.Time) int {
	dropped := 0
	for key, s := range a.sessions {
		if now.Sub(s.lastFrameAt) > SessionDeadline {
			delete(a.sessions, key)
			dropped++
		}
	}
	return dropped
}
