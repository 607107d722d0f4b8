package coupler

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tarm/serial"

	"github.com/sterwen-tech/shipdataserver/envelope"
	"github.com/sterwen-tech/shipdataserver/internal/message"
	"github.com/sterwen-tech/shipdataserver/router"
)

// Framing identifies the byte protocol a SerialLine coupler's adapter
// speaks over the wire (spec §4.9, §4.7).
type Framing int

const (
	// FramingNMEA0183 carries plain talker sentences, passed through
	// unparsed as envelope.Sentence0183.
	FramingNMEA0183 Framing = iota
	// FramingPDGY carries Digital Yacht `!PDGY` pseudo-0183 sentences.
	FramingPDGY
	// FramingPGNST carries `!PGNST` pseudo-0183 sentences.
	FramingPGNST
	// FramingMXPGN carries Shipmodul Miniplex3 `$MXPGN` sentences.
	FramingMXPGN
)

// DefaultBaudNMEA0183 and DefaultBaudGNSS are the adapter baud rates
// spec §4.9 names for its two common serial profiles.
const (
	DefaultBaudNMEA0183 = 4800
	DefaultBaudGNSS     = 38400
)

// SerialLine couples to a serial/USB device speaking plain NMEA0183 or
// one of the pseudo-0183 PGN-carrying dialects. Grounded on
// aldas-go-nmea-client/cmd/n2kreader's serial.OpenPort usage, generalized
// from a single CLI reader to a supervised coupler.
type SerialLine struct {
	Base

	device  string
	baud    int
	framing Framing

	port   io.ReadWriteCloser
	opener func(name string, baud int, timeout time.Duration) (io.ReadWriteCloser, error)
}

// NewSerialLine creates a SerialLine coupler for device at baud, decoding
// sentences according to framing.
func NewSerialLine(name, device string, baud int, framing Framing, timeout time.Duration) *SerialLine {
	return &SerialLine{
		Base:    NewBase(name, router.DirectionBidirectional, 64, timeout),
		device:  device,
		baud:    baud,
		framing: framing,
		opener:  openSerialPort,
	}
}

func openSerialPort(name string, baud int, timeout time.Duration) (io.ReadWriteCloser, error) {
	return serial.OpenPort(&serial.Config{
		Name:        name,
		Baud:        baud,
		ReadTimeout: timeout,
		Size:        8,
	})
}

// Open opens the serial port.
func (s *SerialLine) Open(ctx context.Context) error {
	port, err := s.opener(s.device, s.baud, s.Timeout())
	if err != nil {
		return fmt.Errorf("serial: open %q: %w", s.device, err)
	}
	s.port = port
	return nil
}

// Run reads CRLF-delimited sentences until ctx is done.
func (s *SerialLine) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(s.port)
	scanner.Split(scanLines)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line := scanner.Text()
		if line == "" {
			continue
		}
		s.decodeLine(line)
	}
	return scanner.Err()
}

func (s *SerialLine) decodeLine(line string) {
	at := time.Now()

	if s.framing == FramingNMEA0183 {
		s.emit(&envelope.Sentence0183{Address: talkerAddress(line), Fields: strings.Split(line, ","),
			Raw: line, CouplerName: s.Name()}, at)
		return
	}

	msg, _, err := decodePseudo0183(s.framing, line)
	if err != nil {
		s.Telemetry().LogWarn("dropped malformed pseudo-0183 sentence", "err", err)
		return
	}
	s.emit(&envelope.Raw2000{PGN: msg.PGN, Priority: msg.Priority, Source: msg.Source,
		Destination: msg.Destination, Data: msg.Data, CouplerName: s.Name()}, at)
}

// Send writes a raw NMEA0183 sentence out through the port.
func (s *SerialLine) Send(ctx context.Context, msg message.Message) error {
	sent, ok := msg.(*envelope.Sentence0183)
	if !ok {
		return fmt.Errorf("serial: send requires Sentence0183")
	}
	_, err := s.port.Write([]byte(sent.Raw + "\r\n"))
	return err
}

// Close releases the serial port.
func (s *SerialLine) Close() error {
	if s.port == nil {
		return nil
	}
	return s.port.Close()
}

// scanLines is a bufio.SplitFunc that splits on LF, dropping a CR
// immediately before it, so both CRLF and bare LF line endings work. A
// bare CR is not a line separator.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	for i, b := range data {
		if b == '\n' {
			end := i
			if end > 0 && data[end-1] == '\r' {
				end--
			}
			return i + 1, data[:end], nil
		}
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
