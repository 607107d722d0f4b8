package isotransport

import "time"

// Control byte values for TP.CM (PGN 60416), spec §4.5 / J1939-21.
const (
	ControlByteRTS         = 16
	ControlByteCTS         = 17
	ControlByteEndOfMsgACK = 19
	ControlByteAbort       = 255
)

// Timers an implementer must honor (spec §4.5).
const (
	T1ReceiverBetweenPackets = 750 * time.Millisecond
	T2SenderAwaitingCTS      = 1250 * time.Millisecond
	T3SenderAwaitingEoMACK   = 1250 * time.Millisecond
	T4ReceiverHoldTime       = 1050 * time.Millisecond
	MaxPacingBetweenPackets  = 200 * time.Millisecond
)

// State is the RTS/CTS session lifecycle on either side of the
// connection.
type State int

const (
	StateIdle State = iota
	StateAwaitingCTS
	StateSending
	StateAwaitingEoMACK
	StateReceiving
	StateDone
	StateAborted
)

type sessionID struct {
	source      uint8
	destination uint8
	pgn         uint32
}

// SenderSession drives the sending side of an RTS/CTS peer-to-peer
// transaction.
type SenderSession struct {
	ID          sessionID
	priority    uint8
	data        []byte
	packetCount uint8
	nextPacket  uint8
	state       State
	lastActivity time.Time
}

// ReceiverSession drives the receiving side of an RTS/CTS peer-to-peer
// transaction.
type ReceiverSession struct {
	ID           sessionID
	priority     uint8
	totalSize    uint16
	packetCount  uint8
	buffer       []byte
	nextExpected uint8
	windowSize   uint8
	state        State
	lastActivity time.Time
}

// Handler tracks at most one RTS/CTS session per (source, destination,
// PGN), per spec §4.5: "a new RTS while active aborts the prior one".
type Handler struct {
	senders   map[sessionID]*SenderSession
	receivers map[sessionID]*ReceiverSession
}

// NewHandler creates an empty RTS/CTS Handler.
func NewHandler() *Handler {
	return &Handler{
		senders:   make(map[sessionID]*SenderSession),
		receivers: make(map[sessionID]*ReceiverSession),
	}
}

// StartSend begins a new outgoing RTS/CTS transaction, returning the TP.CM
// RTS frame to transmit. Any prior session for this (source, destination,
// pgn) is aborted first.
func (h *Handler) StartSend(source, destination, priority uint8, pgn uint32, data []byte, at time.Time) (rts []byte, sess *SenderSession) {
	id := sessionID{source: source, destination: destination, pgn: pgn}
	delete(h.senders, id)

	packetCount := len(data) / 7
	if len(data)%7 != 0 {
		packetCount++
	}

	sess = &SenderSession{
		ID:           id,
		priority:     priority,
		data:         data,
		packetCount:  uint8(packetCount),
		state:        StateAwaitingCTS,
		lastActivity: at,
	}
	h.senders[id] = sess

	rts = make([]byte, 8)
	rts[0] = ControlByteRTS
	rts[1] = byte(len(data))
	rts[2] = byte(len(data) >> 8)
	rts[3] = byte(packetCount)
	rts[4] = 0xFF
	rts[5] = byte(pgn)
	rts[6] = byte(pgn >> 8)
	rts[7] = byte(pgn >> 16)
	return rts, sess
}

// HandleRTS processes an incoming TP.CM RTS frame on the receiving side,
// returning the TP.CM CTS frame to reply with. windowSize bounds how many
// packets the receiver grants per burst.
func (h *Handler) HandleRTS(source, destination uint8, rts []byte, windowSize uint8, at time.Time) []byte {
	pgn := uint32(rts[5]) | uint32(rts[6])<<8 | uint32(rts[7])<<16
	id := sessionID{source: source, destination: destination, pgn: pgn}
	delete(h.receivers, id)

	totalSize := uint16(rts[1]) | uint16(rts[2])<<8
	packetCount := rts[3]

	h.receivers[id] = &ReceiverSession{
		ID:           id,
		totalSize:    totalSize,
		packetCount:  packetCount,
		buffer:       make([]byte, totalSize),
		nextExpected: 1,
		windowSize:   windowSize,
		state:        StateReceiving,
		lastActivity: at,
	}

	return ctsFrame(windowSize, 1)
}

func ctsFrame(windowSize, nextPacket uint8) []byte {
	cts := make([]byte, 8)
	cts[0] = ControlByteCTS
	cts[1] = windowSize
	cts[2] = nextPacket
	for i := 3; i < 8; i++ {
		cts[i] = 0xFF
	}
	return cts
}

// HandleCTS processes an incoming CTS reply on the sending side,
// returning the next batch of TP.DT frames to send (up to the granted
// window), or nil with ok=false if the window size is zero (hold).
func (h *Handler) HandleCTS(source, destination uint8, pgn uint32, cts []byte, at time.Time) (packets [][]byte, ok bool) {
	id := sessionID{source: source, destination: destination, pgn: pgn}
	sess, exists := h.senders[id]
	if !exists {
		return nil, false
	}
	windowSize := cts[1]
	nextPacket := cts[2]
	if windowSize == 0 {
		return nil, false
	}

	sess.nextPacket = nextPacket
	sess.lastActivity = at
	sess.state = StateSending

	end := nextPacket + windowSize - 1
	if end > sess.packetCount {
		end = sess.packetCount
	}
	for seq := nextPacket; seq <= end; seq++ {
		packets = append(packets, dtFrame(sess.data, seq))
	}
	sess.nextPacket = end + 1
	if sess.nextPacket > sess.packetCount {
		sess.state = StateAwaitingEoMACK
	} else {
		sess.state = StateAwaitingCTS
	}
	return packets, true
}

func dtFrame(data []byte, seq uint8) []byte {
	frame := make([]byte, 8)
	frame[0] = seq
	for i := 1; i < 8; i++ {
		frame[i] = 0xFF
	}
	start := int(seq-1) * 7
	end := start + 7
	if end > len(data) {
		end = len(data)
	}
	if start < len(data) {
		copy(frame[1:], data[start:end])
	}
	return frame
}

// HandleDT processes an incoming TP.DT data frame on the receiving side.
// When the session completes it returns the reassembled payload, the
// TP.CM EndOfMsgACK frame to send, and done=true; otherwise it may return
// a fresh CTS frame requesting the next window.
func (h *Handler) HandleDT(source, destination uint8, pgn uint32, dt []byte, at time.Time) (data []byte, reply []byte, done bool) {
	id := sessionID{source: source, destination: destination, pgn: pgn}
	sess, exists := h.receivers[id]
	if !exists {
		return nil, nil, false
	}
	seq := dt[0]
	if seq != sess.nextExpected {
		delete(h.receivers, id)
		return nil, abortFrame(pgn, AbortTimeout), false
	}

	ptr := int(seq-1) * 7
	length := 7
	if ptr+length > len(sess.buffer) {
		length = len(sess.buffer) - ptr
	}
	copy(sess.buffer[ptr:ptr+length], dt[1:1+length])
	sess.nextExpected++
	sess.lastActivity = at

	if sess.nextExpected-1 >= sess.packetCount {
		delete(h.receivers, id)
		return sess.buffer, endOfMsgACKFrame(sess.totalSize, sess.packetCount, pgn), true
	}

	if (sess.nextExpected-1)%sess.windowSize == 0 {
		return nil, ctsFrame(sess.windowSize, sess.nextExpected), false
	}
	return nil, nil, false
}

func endOfMsgACKFrame(totalSize uint16, packetCount uint8, pgn uint32) []byte {
	f := make([]byte, 8)
	f[0] = ControlByteEndOfMsgACK
	f[1] = byte(totalSize)
	f[2] = byte(totalSize >> 8)
	f[3] = packetCount
	f[4] = 0xFF
	f[5] = byte(pgn)
	f[6] = byte(pgn >> 8)
	f[7] = byte(pgn >> 16)
	return f
}

func abortFrame(pgn uint32, reason AbortReason) []byte {
	f := make([]byte, 8)
	f[0] = ControlByteAbort
	f[1] = byte(reason)
	for i := 2; i < 5; i++ {
		f[i] = 0xFF
	}
	f[5] = byte(pgn)
	f[6] = byte(pgn >> 8)
	f[7] = byte(pgn >> 16)
	return f
}

// AbortSend aborts an in-progress outgoing session and returns the TP.CM
// Abort frame to transmit.
func (h *Handler) AbortSend(source, destination uint8, pgn uint32, reason AbortReason) []byte {
	delete(h.senders, sessionID{source: source, destination: destination, pgn: pgn})
	return abortFrame(pgn, reason)
}

// ExpireSenders drops sender sessions that have exceeded T2/T3, returning
// the count dropped.
func (h *Handler) ExpireSenders(now time.Time) int {
	dropped := 0
	for id, s := range h.senders {
		var limit time.Duration
		switch s.state {
		case StateAwaitingCTS:
			limit = T2SenderAwaitingCTS
		case StateAwaitingEoMACK:
			limit = T3SenderAwaitingEoMACK
		default:
			continue
		}
		if now.Sub(s.lastActivity) > limit {
			delete(h.senders, id)
			dropped++
		}
	}
	return dropped
}

// ExpireReceivers drops receiver sessions that have exceeded T1, returning
// the count dropped.
func (h *Handler) ExpireReceivers(now time.Time) int {
	dropped := 0
	for id, s := range h.receivers {
		if now.Sub(s.lastActivity) > T1ReceiverBetweenPackets {
			delete(h.receivers, id)
			dropped++
		}
	}
	return dropped
}
