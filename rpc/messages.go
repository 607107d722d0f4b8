// Package rpc implements spec §6's RPC surface: push (NMEAInputServer),
// pull (NMEAServer), CAN-controller, and Console services. protoc is
// unavailable in this environment, so the wire messages are plain Go
// structs encoded with a gob-based grpc.Codec (codec.go) rather than
// generated protobuf types; the service methods, names, and semantics
// match the RPC surface exactly so a protobuf peer built against the
// same surface would interoperate once re-pointed at a generated codec.
// Grounded on `google.golang.org/grpc`/`google.golang.org/protobuf` and
// original_source/src/nmea2000/nmea2k_grpc_publisher.py's client shape.
package rpc

import "time"

// Nmea2000 is the wire envelope for a raw NMEA2000 PGN payload.
type Nmea2000 struct {
	PGN       uint32
	Priority  uint8
	SA        uint8
	DA        uint8
	Timestamp time.Time
	Payload   []byte
}

// Nmea0183 is the wire envelope for a talker sentence.
type Nmea0183 struct {
	Talker    string
	Formatter string
	Timestamp time.Time
	Values    []string
	Raw       []byte
}

// Nmea2000Decoded is the wire envelope for a field-decoded PGN.
type Nmea2000Decoded struct {
	PGN            uint32
	Priority       uint8
	SA             uint8
	DA             uint8
	Timestamp      time.Time
	ManufacturerID *uint32
	Fields         map[string]any
}

// NmeaMsg is the `oneof N2K | N0183` envelope plus a monotonic id.
type NmeaMsg struct {
	MsgID uint64
	N2K   *Nmea2000
	N0183 *Nmea0183
}

// Ack acknowledges a push.
type Ack struct {
	Accepted bool
	Reason   string
}

// Cmd carries a named command with optional arguments, used by
// `status`, `ServerCmd`, and similar single-shot RPCs.
type Cmd struct {
	Name string
	Args map[string]string
}

// Resp is a generic command response.
type Resp struct {
	OK      bool
	Message string
}

// ReadReq selects which PGNs/sources a CAN-controller stream should
// include or exclude.
type ReadReq struct {
	SelectSources []uint8
	RejectSources []uint8
	SelectPGN     []uint32
	RejectPGN     []uint32
}

// DevState enumerates a coupler's lifecycle state as reported to the
// Console service (a subset of router.LifecycleState's names, per
// spec §6's {NOT_READY, OPEN, CONNECTED, ACTIVE}).
type DevState int

const (
	DevStateNotReady DevState = iota
	DevStateOpen
	DevStateConnected
	DevStateActive
)

func (s DevState) String() string {
	switch s {
	case DevStateOpen:
		return "OPEN"
	case DevStateConnected:
		return "CONNECTED"
	case DevStateActive:
		return "ACTIVE"
	default:
		return "NOT_READY"
	}
}

// CouplerStatus is one row of the Console service's coupler
// enumeration.
type CouplerStatus struct {
	Name       string
	Class      string
	State      string
	DevState   DevState
	Protocol   string
	MsgIn      uint64
	MsgOut     uint64
	InputRate  float64
	OutputRate float64
	Error      string
}

// ServerStatusResp is the Console service's overall status response.
type ServerStatusResp struct {
	Couplers []CouplerStatus
}
