package field

import (
	"time"
	"unicode/utf16"
)

func decodeUTF16(units []uint16) string {
	if len(units) > 0 && units[0] == 0xFEFF {
		units = units[1:]
	}
	return string(utf16.Decode(units))
}

// Kind enumerates the field kinds the codec dispatches on, mirroring the
// canboat-style schema's FieldType enum (spec §4.2, §3).
type Kind int

const (
	KindNumber Kind = iota
	KindFloat
	KindDecimal
	KindLookup
	KindIndirectLookup
	KindBitLookup
	KindTime
	KindDate
	KindStringFix
	KindStringVar
	KindStringLZ
	KindStringLAU
	KindBinary
	KindReserved
	KindSpare
	KindMMSI
	KindVariable
)

// Descriptor carries the per-field layout and scaling rules needed to
// decode or encode one field of a PGN (spec §3, §4.2).
type Descriptor struct {
	ID        string
	Kind      Kind
	BitOffset uint16
	BitLength uint16
	Signed    bool
	Resolution float64 // scale applied to the raw integer
	Offset     float64 // added after scaling
}

// Decode reads one field out of data according to desc, returning a value
// normalized to int64, uint64, float64, string, []byte, time.Duration,
// or time.Time (for KindDate).
func Decode(data Data, desc Descriptor) (any, error) {
	switch desc.Kind {
	case KindStringFix:
		return decodeStringFix(data, desc)
	case KindStringLZ:
		return decodeStringLZ(data, desc)
	case KindStringLAU:
		s, _, err := decodeStringLAU(data, desc.BitOffset)
		return s, err
	case KindStringVar:
		return decodeStringLZ(data, desc)
	case KindBinary, KindSpare, KindReserved:
		b, _, err := data.DecodeBytes(desc.BitOffset, desc.BitLength, false)
		return b, err
	case KindTime:
		return decodeTime(data, desc)
	case KindDate:
		days, err := data.DecodeUint(desc.BitOffset, desc.BitLength)
		if err != nil {
			return nil, err
		}
		return time.Unix(0, 0).UTC().AddDate(0, 0, int(days)), nil
	default:
		return decodeNumeric(data, desc)
	}
}

func decodeNumeric(data Data, desc Descriptor) (any, error) {
	if desc.Signed {
		raw, err := data.DecodeInt(desc.BitOffset, desc.BitLength)
		if err != nil {
			return nil, err
		}
		if desc.Resolution != 0 && desc.Resolution != 1 {
			return float64(raw)*desc.Resolution + desc.Offset, nil
		}
		if desc.Offset != 0 {
			return float64(raw) + desc.Offset, nil
		}
		return raw, nil
	}

	raw, err := data.DecodeUint(desc.BitOffset, desc.BitLength)
	if err != nil {
		return nil, err
	}
	if desc.Resolution != 0 && desc.Resolution != 1 {
		return float64(raw)*desc.Resolution + desc.Offset, nil
	}
	if desc.Offset != 0 {
		return float64(raw) + desc.Offset, nil
	}
	return raw, nil
}

func decodeTime(data Data, desc Descriptor) (time.Duration, error) {
	rawSeconds, err := data.DecodeUint(desc.BitOffset, desc.BitLength)
	if err != nil {
		return 0, err
	}
	resolution := desc.Resolution
	if resolution == 0 {
		resolution = 1
	}
	result := time.Duration(uint64(float64(rawSeconds)*resolution)) * time.Second
	if resolution < 1 {
		unitsInSecond := uint64(1 / resolution)
		fraction := rawSeconds % unitsInSecond
		result += time.Duration((uint64(time.Second) / unitsInSecond) * fraction)
	}
	return result, nil
}

// decodeStringFix decodes a fixed-length string right-padded with 0xFF
// (spec §4.2).
func decodeStringFix(data Data, desc Descriptor) (string, error) {
	raw, _, err := data.DecodeBytes(desc.BitOffset, desc.BitLength, false)
	if err != nil {
		return "", err
	}
	n := 0
	for n < len(raw) {
		b := raw[n]
		if b == 0xFF || b == 0x00 || b == '@' {
			break
		}
		n++
	}
	return string(raw[:n]), nil
}

// decodeStringLZ decodes a variable-length string prefixed by a single
// length byte (including itself); no encoding byte follows it, and the
// remaining bytes are returned as-is. Strings with a length+encoding
// header are handled by decodeStringLAU.
func decodeStringLZ(data Data, desc Descriptor) (string, error) {
	header, _, err := data.DecodeBytes(desc.BitOffset, 8, false)
	if err != nil {
		return "", err
	}
	length := int(header[0])
	if length <= 1 {
		return "", nil
	}
	raw, _, err := data.DecodeBytes(desc.BitOffset+8, uint16(length-1)*8, true)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// decodeStringLAU decodes a variable-length string with an explicit
// length+encoding header (NMEA2000 LAU string: length byte includes
// itself and the encoding byte; encoding 0 = UTF-16LE, 1 = ASCII).
func decodeStringLAU(data Data, bitOffset uint16) (string, uint16, error) {
	header, _, err := data.DecodeBytes(bitOffset, 16, false)
	if err != nil {
		return "", 0, err
	}
	length := uint16(header[0])
	if length == 2 {
		return "", 16, nil
	}
	if length < 2 {
		return "", 0, ErrOutOfBounds
	}
	length -= 2
	encoding := header[1]
	raw, readBits, err := data.DecodeBytes(bitOffset+16, length*8, true)
	if err != nil {
		return "", 0, err
	}
	readBits += 16

	if encoding == 0 {
		if len(raw) < 2 || len(raw)%2 != 0 {
			return "", readBits, ErrOutOfBounds
		}
		runes := make([]uint16, len(raw)/2)
		for i := range runes {
			runes[i] = uint16(raw[2*i]) | uint16(raw[2*i+1])<<8
		}
		return decodeUTF16(runes), readBits, nil
	}
	return string(raw), readBits, nil
}
