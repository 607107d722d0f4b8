package coupler

import (
	"strings"

	"github.com/sterwen-tech/shipdataserver/pseudo0183"
)

// decodePseudo0183 decodes line per framing into a pseudo0183.Raw2000.
// ok is false for FramingNMEA0183, whose plain talker sentences have no
// pseudo-0183 decoding. Shared by SerialLine and TCP, whose only
// difference is the transport underneath.
func decodePseudo0183(framing Framing, line string) (msg pseudo0183.Raw2000, ok bool, err error) {
	switch framing {
	case FramingPDGY:
		msg, err = pseudo0183.DecodePDGY(line)
		return msg, true, err
	case FramingPGNST:
		msg, err = pseudo0183.DecodePGNST(line)
		return msg, true, err
	case FramingMXPGN:
		msg, err = pseudo0183.DecodeMXPGN(line)
		return msg, true, err
	default:
		return pseudo0183.Raw2000{}, false, nil
	}
}

// talkerAddress extracts the sentence identifier (e.g. "GPGGA", "PDGY")
// from a leading-delimiter sentence.
func talkerAddress(sentence string) string {
	body := strings.TrimPrefix(strings.TrimPrefix(sentence, "$"), "!")
	if comma := strings.IndexByte(body, ','); comma >= 0 {
		return body[:comma]
	}
	return body
}
