// Package isotransport implements J1939/21 ISO Transport Protocol PGN
// 60416 (TP.CM) / PGN 60160 (TP.DT): BAM broadcast and RTS/CTS
// peer-to-peer multi-frame transport (spec §4.5). BAM reassembly is
// grounded on original_source/src/nmea2000/nmea2k_iso_transport.py's
// IsoTransportTransaction; RTS/CTS has no reference implementation in
// the pack and is written fresh from the timer/state rules of spec §4.5.
package isotransport

import "time"

// BAMDeadline is the inactivity timeout after which an in-progress BAM
// session is abandoned (spec §4.5's T1, "receiver 750 ms between
// packets"), reset on every TP.DT frame received rather than armed once
// from session start.
const BAMDeadline = 750 * time.Millisecond

// PGNTPCM and PGNTPDT are the two PGNs the ISO Transport Protocol uses
// on the wire: TP.CM carries control frames (BAM, RTS, CTS,
// EndOfMsgACK, Abort), TP.DT carries the 7-byte data segments for
// either mode (spec §4.5, J1939-21).
const (
	PGNTPCM = 60416
	PGNTPDT = 60160
)

// bamKey identifies a broadcast transaction by its source address; J1939
// allows only one outstanding BAM per sender.
type bamKey struct {
	source uint8
}

type bamSession struct {
	pgn         uint32
	priority    uint8
	source      uint8
	totalSize   uint16
	packetCount uint8
	received    uint8
	buffer      []byte
	lastFrameAt time.Time
}

// BAMMessage is a fully reassembled broadcast transport message.
type BAMMessage struct {
	PGN      uint32
	Priority uint8
	Source   uint8
	Data     []byte
}

// BAMHandler reassembles incoming TP.CM BAM + TP.DT sequences.
type BAMHandler struct {
	sessions map[bamKey]*bamSession
}

// NewBAMHandler creates an empty BAMHandler.
func NewBAMHandler() *BAMHandler {
	return &BAMHandler{sessions: make(map[bamKey]*bamSession)}
}

// ControlByteBAM is the TP.CM control byte value identifying a BAM
// announcement (spec §4.5, J1939/21).
const ControlByteBAM = 32

// OpenBAM starts a new broadcast transaction from a TP.CM BAM frame.
// cm is the 8-byte TP.CM payload: [control, totalSizeLo, totalSizeHi,
// packetCount, reserved, pgnLo, pgnMid, pgnHi].
func (h *BAMHandler) OpenBAM(source, priority uint8, cm []byte, at time.Time) error {
	if len(cm) < 8 || cm[0] != ControlByteBAM {
		return ErrNotBAM
	}
	totalSize := uint16(cm[1]) | uint16(cm[2])<<8
	packetCount := cm[3]
	pgn := uint32(cm[5]) | uint32(cm[6])<<8 | uint32(cm[7])<<16

	h.sessions[bamKey{source: source}] = &bamSession{
		pgn:         pgn,
		priority:    priority,
		source:      source,
		totalSize:   totalSize,
		packetCount: packetCount,
		buffer:      make([]byte, totalSize),
		lastFrameAt: at,
	}
	return nil
}

// Packet feeds one TP.DT data frame into the matching session. dt is the
// 8-byte TP.DT payload: [sequenceNumber, data0..6].
func (h *BAMHandler) Packet(source uint8, dt []byte, at time.Time) (BAMMessage, bool, error) {
	s, ok := h.sessions[bamKey{source: source}]
	if !ok {
		return BAMMessage{}, false, ErrUnknownSession
	}
	if at.Sub(s.lastFrameAt) > BAMDeadline {
		delete(h.sessions, bamKey{source: source})
		return BAMMessage{}, false, ErrTimedOut
	}
	if len(dt) < 1 {
		return BAMMessage{}, false, ErrShortFrame
	}
	seq := dt[0]
	ptr := int(seq-1) * 7
	if ptr < 0 || ptr >= len(s.buffer) {
		delete(h.sessions, bamKey{source: source})
		return BAMMessage{}, false, ErrOutOfOrder
	}
	length := 7
	if ptr+length > len(s.buffer) {
		length = len(s.buffer) - ptr
	}
	copy(s.buffer[ptr:ptr+length], dt[1:1+length])
	s.received++
	s.lastFrameAt = at

	if s.received >= s.packetCount {
		delete(h.sessions, bamKey{source: source})
		return BAMMessage{PGN: s.pgn, Priority: s.priority, Source: s.source, Data: s.buffer}, true, nil
	}
	return BAMMessage{}, false, nil
}

// Expire drops any BAM sessions that have exceeded their deadline,
// returning the count of sessions dropped.
func (h *BAMHandler) Expire(now time.Time) int {
	dropped := 0
	for key, s := range h.sessions {
		if now.Sub(s.lastFrameAt) > BAMDeadline {
			delete(h.sessions, key)
			dropped++
		}
	}
	return dropped
}

// SplitBAM builds the TP.CM BAM announcement frame and the sequence of
// TP.DT data frames needed to transmit data as a broadcast transaction,
// pacing the caller is expected to honor at >= 50ms between frames
// (spec §4.5).
func SplitBAM(pgn uint32, priority, source uint8, data []byte) (cm []byte, packets [][]byte) {
	packetCount := len(data) / 7
	if len(data)%7 != 0 {
		packetCount++
	}

	cm = make([]byte, 8)
	cm[0] = ControlByteBAM
	cm[1] = byte(len(data))
	cm[2] = byte(len(data) >> 8)
	cm[3] = byte(packetCount)
	cm[4] = 0xFF
	cm[5] = byte(pgn)
	cm[6] = byte(pgn >> 8)
	cm[7] = byte(pgn >> 16)

	packets = make([][]byte, packetCount)
	for seq := 1; seq <= packetCount; seq++ {
		frame := make([]byte, 8)
		frame[0] = byte(seq)
		for i := 1; i < 8; i++ {
			frame[i] = 0xFF
		}
		start := (seq - 1) * 7
		end := start + 7
		if end > len(data) {
			end = len(data)
		}
		copy(frame[1:], data[start:end])
		packets[seq-1] = frame
	}
	return cm, packets
}
