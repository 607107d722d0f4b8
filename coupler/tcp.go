package coupler

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/sterwen-tech/shipdataserver/envelope"
	"github.com/sterwen-tech/shipdataserver/internal/message"
	"github.com/sterwen-tech/shipdataserver/router"
)

// TCP is a client coupler to a network NMEA server (e.g. a Shipmodul
// gateway's TCP stream), decoding sentences by framing the same way
// SerialLine does. The router's open-retry supervisor (spec §4.8)
// provides reconnect on failure; TCP itself performs a single dial per
// Open call.
type TCP struct {
	Base

	addr    string
	framing Framing

	conn net.Conn
	dial func(network, addr string, timeout time.Duration) (net.Conn, error)
}

// NewTCP creates a TCP client coupler to addr ("host:port").
func NewTCP(name, addr string, framing Framing, timeout time.Duration) *TCP {
	return &TCP{
		Base:    NewBase(name, router.DirectionBidirectional, 64, timeout),
		addr:    addr,
		framing: framing,
		dial:    net.DialTimeout,
	}
}

// Open dials the remote server.
func (t *TCP) Open(ctx context.Context) error {
	conn, err := t.dial("tcp", t.addr, t.Timeout())
	if err != nil {
		return fmt.Errorf("tcp: dial %s: %w", t.addr, err)
	}
	t.conn = conn
	return nil
}

// Run reads CRLF-delimited sentences until ctx is done or the
// connection drops.
func (t *TCP) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = t.conn.Close()
	}()

	scanner := bufio.NewScanner(t.conn)
	scanner.Split(scanLines)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		t.decodeLine(line)
	}
	return scanner.Err()
}

func (t *TCP) decodeLine(line string) {
	at := time.Now()

	if t.framing == FramingNMEA0183 {
		t.emit(&envelope.Sentence0183{Address: talkerAddress(line), Fields: strings.Split(line, ","),
			Raw: line, CouplerName: t.Name()}, at)
		return
	}

	msg, _, err := decodePseudo0183(t.framing, line)
	if err != nil {
		t.Telemetry().LogWarn("dropped malformed pseudo-0183 sentence", "err", err)
		return
	}
	t.emit(&envelope.Raw2000{PGN: msg.PGN, Priority: msg.Priority, Source: msg.Source,
		Destination: msg.Destination, Data: msg.Data, CouplerName: t.Name()}, at)
}

// Send writes a sentence out over the connection.
func (t *TCP) Send(ctx context.Context, msg message.Message) error {
	sent, ok := msg.(*envelope.Sentence0183)
	if !ok {
		return fmt.Errorf("tcp: send requires Sentence0183")
	}
	_, err := t.conn.Write([]byte(sent.Raw + "\r\n"))
	return err
}

// Close releases the connection.
func (t *TCP) Close() error {
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}
