// Package pseudo0183 implements the pseudo-0183 codec of spec §4.7:
// NMEA0183-shaped sentences carrying NMEA2000 payloads (`!PDGY`,
// `!PGNST`, Shipmodul `$MXPGN`), and their common checksum/framing
// rules. Grounded on original_source/src/router_core/nmea2000_msg.py's
// asPDGY/asPGNST/decodePGDY.
package pseudo0183

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrChecksum indicates the sentence's *HH checksum did not match.
var ErrChecksum = errors.New("pseudo0183: checksum mismatch")

// ErrMalformed indicates the sentence could not be parsed.
var ErrMalformed = errors.New("pseudo0183: malformed sentence")

// Raw2000 is the PGN payload a pseudo-0183 sentence decodes to, before
// field-level decoding.
type Raw2000 struct {
	PGN         uint32
	Priority    uint8
	Source      uint8
	Destination uint8
	TimestampMs int64
	Data        []byte
}

// Checksum computes the XOR of every byte between the leading delimiter
// and the trailing '*', formatted as two uppercase hex digits
// (spec §4.7).
func Checksum(body string) string {
	var sum byte
	for i := 0; i < len(body); i++ {
		sum ^= body[i]
	}
	return fmt.Sprintf("%02X", sum)
}

// splitSentence strips the leading '$'/'!' and trailing CRLF, validates
// the *HH checksum if present, and returns the comma-delimited body.
func splitSentence(raw string) (string, error) {
	s := strings.TrimRight(raw, "\r\n")
	if len(s) < 2 || (s[0] != '$' && s[0] != '!') {
		return "", ErrMalformed
	}
	s = s[1:]

	if star := strings.LastIndexByte(s, '*'); star >= 0 {
		body := s[:star]
		want := s[star+1:]
		if len(want) != 2 {
			return "", ErrMalformed
		}
		if !strings.EqualFold(Checksum(body), want) {
			return "", ErrChecksum
		}
		return body, nil
	}
	return s, nil
}

// DecodePDGY parses a `!PDGY,<pgn>,<priority>,<sa>,<da>,<timestamp_ms>,
// <base64-payload>*HH` sentence.
func DecodePDGY(raw string) (Raw2000, error) {
	body, err := splitSentence(raw)
	if err != nil {
		return Raw2000{}, err
	}
	fields := strings.Split(body, ",")
	if len(fields) != 7 || fields[0] != "PDGY" {
		return Raw2000{}, ErrMalformed
	}

	pgn, err1 := strconv.ParseUint(fields[1], 10, 32)
	prio, err2 := strconv.ParseUint(fields[2], 10, 8)
	sa, err3 := strconv.ParseUint(fields[3], 10, 8)
	da, err4 := strconv.ParseUint(fields[4], 10, 8)
	ts, err5 := strconv.ParseInt(fields[5], 10, 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
		return Raw2000{}, ErrMalformed
	}
	payload, err := base64.StdEncoding.DecodeString(fields[6])
	if err != nil {
		return Raw2000{}, ErrMalformed
	}

	destination := uint8(da)
	if destination == 0 {
		destination = 255
	}

	return Raw2000{
		PGN:         uint32(pgn),
		Priority:    uint8(prio),
		Source:      uint8(sa),
		Destination: destination,
		TimestampMs: ts,
		Data:        payload,
	}, nil
}

// EncodePDGY formats msg as a `!PDGY` sentence.
func EncodePDGY(msg Raw2000) string {
	body := fmt.Sprintf("PDGY,%d,%d,%d,%d,%d,%s", msg.PGN, msg.Priority, msg.Source, msg.Destination,
		msg.TimestampMs, base64.StdEncoding.EncodeToString(msg.Data))
	return "!" + body + "*" + Checksum(body) + "\r\n"
}

// DecodePGNST parses a `!PGNST,<pgn>,<priority>,<sa>,<da>,<timestamp_ms>,
// <hex-payload>*HH` sentence.
func DecodePGNST(raw string) (Raw2000, error) {
	body, err := splitSentence(raw)
	if err != nil {
		return Raw2000{}, err
	}
	fields := strings.Split(body, ",")
	if len(fields) != 7 || fields[0] != "PGNST" {
		return Raw2000{}, ErrMalformed
	}

	pgn, err1 := strconv.ParseUint(fields[1], 10, 32)
	prio, err2 := strconv.ParseUint(fields[2], 10, 8)
	sa, err3 := strconv.ParseUint(fields[3], 10, 8)
	da, err4 := strconv.ParseUint(fields[4], 10, 8)
	ts, err5 := strconv.ParseInt(fields[5], 10, 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
		return Raw2000{}, ErrMalformed
	}
	payload, err := hex.DecodeString(fields[6])
	if err != nil {
		return Raw2000{}, ErrMalformed
	}

	return Raw2000{
		PGN:         uint32(pgn),
		Priority:    uint8(prio),
		Source:      uint8(sa),
		Destination: uint8(da),
		TimestampMs: ts,
		Data:        payload,
	}, nil
}

// EncodePGNST formats msg as a `!PGNST` sentence.
func EncodePGNST(msg Raw2000) string {
	body := fmt.Sprintf("PGNST,%d,%d,%d,%d,%d,%s", msg.PGN, msg.Priority, msg.Source, msg.Destination,
		msg.TimestampMs, hex.EncodeToString(msg.Data))
	return "!" + body + "*" + Checksum(body) + "\r\n"
}

// DecodeMXPGN parses a Shipmodul Miniplex3 `$MXPGN,<pgn-hex>,<attr-hex>,
// <hex-payload>*HH` sentence. The attribute word encodes DLC in bits
// 0-3, source in bits 4-11, priority in bits 12-14, and an "is-send" bit
// (bit 15) (spec §4.7).
func DecodeMXPGN(raw string) (Raw2000, error) {
	body, err := splitSentence(raw)
	if err != nil {
		return Raw2000{}, err
	}
	fields := strings.Split(body, ",")
	if len(fields) != 4 || fields[0] != "MXPGN" {
		return Raw2000{}, ErrMalformed
	}

	pgn, err1 := strconv.ParseUint(fields[1], 16, 32)
	attr, err2 := strconv.ParseUint(fields[2], 16, 16)
	if err1 != nil || err2 != nil {
		return Raw2000{}, ErrMalformed
	}
	payload, err := hex.DecodeString(fields[3])
	if err != nil {
		return Raw2000{}, ErrMalformed
	}

	source := uint8((attr >> 4) & 0xFF)
	priority := uint8((attr >> 12) & 0x7)

	return Raw2000{
		PGN:         uint32(pgn),
		Priority:    priority,
		Source:      source,
		Destination: 255,
		Data:        payload,
	}, nil
}

// MXPGNAttribute packs DLC/source/priority/isSend into the attribute
// word used by EncodeMXPGN.
func MXPGNAttribute(dlc uint8, source uint8, priority uint8, isSend bool) uint16 {
	attr := uint16(dlc&0xF) | uint16(source)<<4 | uint16(priority&0x7)<<12
	if isSend {
		attr |= 1 << 15
	}
	return attr
}

// EncodeMXPGN formats msg as a `$MXPGN` sentence.
func EncodeMXPGN(msg Raw2000, isSend bool) string {
	attr := MXPGNAttribute(uint8(len(msg.Data)), msg.Source, msg.Priority, isSend)
	body := fmt.Sprintf("MXPGN,%04X,%04X,%s", msg.PGN, attr, strings.ToUpper(hex.EncodeToString(msg.Data)))
	return "$" + body + "*" + Checksum(body) + "\r\n"
}
