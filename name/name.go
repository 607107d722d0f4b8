// Package name implements the 64-bit J1939 NAME used for address
// arbitration and device identity, grounded on the bit layout in
// SAE J1939/81 (Network Management).
package name

import "encoding/binary"

// Name holds the 9 sub-fields packed into the 64-bit J1939 NAME.
type Name struct {
	IdentityNumber          uint32 // 21 bits
	ManufacturerCode        uint16 // 11 bits
	ECUInstance             uint8  // 3 bits
	FunctionInstance        uint8  // 5 bits
	Function                uint8  // 8 bits
	VehicleSystem           uint8  // 7 bits (+1 reserved bit)
	VehicleSystemInstance   uint8  // 4 bits
	IndustryGroup           uint8  // 3 bits
	ArbitraryAddressCapable bool   // 1 bit
}

// Bytes packs the NAME into its 8-byte little-endian wire representation.
func (n Name) Bytes() []byte {
	b := make([]byte, 8)
	b[0] = byte(n.IdentityNumber)
	b[1] = byte(n.IdentityNumber >> 8)
	b[2] = byte(n.IdentityNumber>>16&0b1_1111) | byte(n.ManufacturerCode&0b111)<<5
	b[3] = byte(n.ManufacturerCode >> 3)
	b[4] = n.ECUInstance&0b111 | n.FunctionInstance&0b1_1111<<3
	b[5] = n.Function
	b[6] = n.VehicleSystem << 1
	b[7] = n.VehicleSystemInstance&0b1111 | (n.IndustryGroup&0b111)<<4
	if n.ArbitraryAddressCapable {
		b[7] |= 1 << 7
	}
	return b
}

// Uint64 returns the NAME as the 64-bit integer used for numeric NAME
// arbitration (spec §4.6: "lowest NAME wins").
func (n Name) Uint64() uint64 {
	return binary.LittleEndian.Uint64(n.Bytes())
}

// Parse decodes a NAME from its 8-byte wire representation.
func Parse(b []byte) Name {
	identity := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2]&0b1_1111)<<16
	manufacturer := uint16(b[2]>>5) | uint16(b[3])<<3
	return Name{
		IdentityNumber:          identity,
		ManufacturerCode:        manufacturer,
		ECUInstance:             b[4] & 0b111,
		FunctionInstance:        b[4] >> 3,
		Function:                b[5],
		VehicleSystem:           b[6] >> 1,
		VehicleSystemInstance:   b[7] & 0b1111,
		IndustryGroup:           (b[7] >> 4) & 0b111,
		ArbitraryAddressCapable: b[7]&0x80 != 0,
	}
}

// ParseUint64 decodes a NAME from its little-endian uint64 form.
func ParseUint64(v uint64) Name {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return Parse(b)
}

// Less implements the numeric NAME comparison used during address-claim
// contention: the numerically smaller NAME wins (spec §4.6 step 3).
func Less(a, b Name) bool {
	return a.Uint64() < b.Uint64()
}
