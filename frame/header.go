// Package frame classifies J1939 29-bit CAN identifiers into priority,
// PGN, source and destination, and reconstructs the identifier for
// transmission, per spec §4.3.
package frame

// AddressNull is the J1939 "no address" source (used before an address is
// claimed). AddressGlobal is the broadcast destination.
const (
	AddressNull   uint8 = 254
	AddressGlobal uint8 = 255
)

// Header is the decoded form of a 29-bit J1939 CAN identifier.
type Header struct {
	PGN         uint32
	Priority    uint8
	Source      uint8
	Destination uint8
}

// Frame is a single CAN frame: a decoded Header plus up to 8 payload bytes.
type Frame struct {
	Header Header
	Length uint8
	Data   [8]byte
}

// Parse decodes the J1939 fields out of a raw 29-bit CAN identifier
// (bits 29-31 are assumed already stripped of the EFF/RTR/ERR flags).
//
//	priority = bits 26-28; PF = bits 16-23; PS = bits 8-15; SA = bits 0-7.
//	PF < 240 (PDU1): destination = PS, PGN = (DP<<16)|(PF<<8)
//	PF >= 240 (PDU2): destination = 255 (broadcast), PGN = (DP<<16)|(PF<<8)|PS
func Parse(canID uint32) Header {
	h := Header{
		Priority: uint8((canID >> 26) & 0x7),
		Source:   uint8(canID),
	}

	ps := uint8(canID >> 8)
	pf := uint8(canID >> 16)
	dp := uint8(canID>>24) & 0x3

	pgn := uint32(dp)<<16 | uint32(pf)<<8
	if pf < 240 {
		h.Destination = ps
		h.PGN = pgn
	} else {
		h.Destination = AddressGlobal
		h.PGN = pgn | uint32(ps)
	}
	return h
}

// Uint32 reconstructs the 29-bit CAN identifier (without EFF/RTR/ERR flags)
// for transmission. It is the inverse of Parse.
func (h Header) Uint32() uint32 {
	canID := uint32(h.Source)

	pf := uint8(h.PGN >> 8)
	if pf < 240 {
		canID |= uint32(h.Destination) << 8
	}
	canID |= h.PGN << 8
	canID |= uint32(h.Priority&0x7) << 26
	return canID
}

// IsPDU2 reports whether the PGN uses the broadcast PDU2 format
// (its PF byte, bits 8-15 of the PGN, is >= 240; spec §3 "broadcast destination appears only for
// PDU2-format PGNs (PGN >= 240)").
func IsPDU2(pgn uint32) bool {
	return uint8(pgn>>8) >= 240
}
