// Package field implements the NMEA2000 field codec (spec §4.2): bit-level
// extraction from a PDU byte buffer, scale/offset application, sentinel
// "no data"/"out of range"/"reserved" detection, and the inverse encode
// path. Grounded on aldas-go-nmea-client's RawData decode helpers.
package field

import (
	"encoding/binary"
	"errors"
)

// ErrNoData indicates the raw bit pattern is the "data not available" sentinel.
var ErrNoData = errors.New("field: no data")

// ErrOutOfRange indicates the raw bit pattern is the "out of range" sentinel.
var ErrOutOfRange = errors.New("field: out of range")

// ErrReserved indicates the raw bit pattern is the "reserved" sentinel.
var ErrReserved = errors.New("field: reserved")

// ErrOutOfBounds indicates bitOffset/bitLength run past the end of the data.
var ErrOutOfBounds = errors.New("field: bit range out of bounds")

// ErrEncode indicates a value does not fit the target bit width on encode.
var ErrEncode = errors.New("field: value does not fit bit width")

// Data is a PDU byte buffer addressed by bit offset, little-endian,
// least-significant bit first within each byte.
type Data []byte

// DecodeBytes extracts bitLength bits starting at bitOffset as a byte
// slice, least-significant bit first. If isVariableSize and the requested
// range runs past the end of data, the range is truncated to what is
// available instead of failing.
func (d Data) DecodeBytes(bitOffset, bitLength uint16, isVariableSize bool) ([]byte, uint16, error) {
	raw := []byte(d)

	endByteIndex := (bitOffset + bitLength - 1) / 8
	if int(endByteIndex) > len(raw)-1 {
		if !isVariableSize {
			return nil, 0, ErrOutOfBounds
		}
		endByteIndex = uint16(len(raw) - 1)
		bitLength -= (bitOffset + bitLength) - uint16(len(raw)*8)
	}

	length := (bitLength + 7) / 8
	result := make([]byte, length)

	startByteIndex := bitOffset / 8
	startBitIndex := bitOffset % 8

	switch {
	case startByteIndex == endByteIndex:
		result[0] = raw[startByteIndex] >> startBitIndex
		if unnecessary := bitLength % 8; unnecessary != 0 {
			result[0] &= 0xFF >> (8 - unnecessary)
		}
	case startBitIndex != 0:
		maskLeading := uint8(0xFF >> startBitIndex)
		result[0] = raw[startByteIndex] >> startBitIndex
		remaining := int(bitLength) - int(startBitIndex)
		for i := uint16(1); i <= length; i++ {
			current := raw[startByteIndex+i]
			result[i-1] |= (current & maskLeading) << startBitIndex
			remaining -= 8
			if remaining > 0 {
				result[i] = current >> startBitIndex
			}
		}
	default:
		copy(result, raw[startByteIndex:endByteIndex+1])
		if unnecessary := bitLength % 8; unnecessary != 0 {
			result[len(result)-1] &= 0xFF >> (8 - unnecessary)
		}
	}

	return result, bitLength, nil
}

// DecodeUint decodes bitLength (<=64) bits at bitOffset as an unsigned
// integer and applies sentinel detection: all-ones is ErrNoData, all-ones
// minus one is ErrOutOfRange, minus two is ErrReserved.
func (d Data) DecodeUint(bitOffset, bitLength uint16) (uint64, error) {
	v, err := d.decodeRaw(bitOffset, bitLength, false)
	return v, err
}

// DecodeInt decodes bitLength (<=64) bits at bitOffset as a signed,
// two's-complement integer with the same sentinel rules applied before
// sign extension.
func (d Data) DecodeInt(bitOffset, bitLength uint16) (int64, error) {
	v, err := d.decodeRaw(bitOffset, bitLength, true)
	return int64(v), err
}

func (d Data) decodeRaw(bitOffset, bitLength uint16, signed bool) (uint64, error) {
	if bitLength == 0 || bitLength > 64 {
		return 0, ErrOutOfBounds
	}
	startByteIndex := bitOffset / 8
	endByteIndex := ((bitOffset + bitLength + 7) / 8) - 1
	raw := []byte(d)
	if int(endByteIndex) >= len(raw) {
		return 0, ErrOutOfBounds
	}

	buf := make([]byte, 8)
	copy(buf, raw[startByteIndex:endByteIndex+1])
	result := binary.LittleEndian.Uint64(buf)

	result >>= bitOffset % 8
	mask := (^uint64(0)) >> (64 - bitLength)
	result &= mask

	isNegative := false
	sentinelMask := mask
	if signed {
		isNegative = result&(1<<(bitLength-1)) != 0
		sentinelMask = mask >> 1
	}

	if bitLength >= 8 {
		switch result {
		case sentinelMask:
			return 0, ErrNoData
		case sentinelMask - 1:
			return 0, ErrOutOfRange
		case sentinelMask - 2:
			return 0, ErrReserved
		}
	}

	if isNegative {
		negativeMask := ^((^uint64(0)) >> (64 - bitLength))
		result |= negativeMask
	}
	return result, nil
}

// EncodeUint writes v into bitLength bits of dst starting at bitOffset,
// little-endian, least-significant bit first. It returns ErrEncode if v
// does not fit in bitLength bits.
func EncodeUint(dst []byte, bitOffset, bitLength uint16, v uint64) error {
	if bitLength == 0 || bitLength > 64 {
		return ErrOutOfBounds
	}
	mask := (^uint64(0)) >> (64 - bitLength)
	if v&^mask != 0 {
		return ErrEncode
	}

	startByteIndex := bitOffset / 8
	endByteIndex := ((bitOffset + bitLength + 7) / 8) - 1
	if int(endByteIndex) >= len(dst) {
		return ErrOutOfBounds
	}

	var existingBuf, buf [8]byte
	copy(existingBuf[:], dst[startByteIndex:endByteIndex+1])
	existing := binary.LittleEndian.Uint64(existingBuf[:])

	shift := bitOffset % 8
	clearMask := mask << shift
	merged := (existing &^ clearMask) | ((v & mask) << shift)

	binary.LittleEndian.PutUint64(buf[:], merged)
	copy(dst[startByteIndex:endByteIndex+1], buf[:endByteIndex-startByteIndex+1])
	return nil
}

// EncodeInt writes the two's-complement representation of v into
// bitLength bits of dst starting at bitOffset.
func EncodeInt(dst []byte, bitOffset, bitLength uint16, v int64) error {
	mask := (^uint64(0)) >> (64 - bitLength)
	return EncodeUint(dst, bitOffset, bitLength, uint64(v)&mask)
}
