package coupler

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/sterwen-tech/shipdataserver/envelope"
	"github.com/sterwen-tech/shipdataserver/internal/message"
	"github.com/sterwen-tech/shipdataserver/router"
)

// DefaultUDPBufferSize is the per-datagram read buffer, sized for the
// largest pseudo-0183 sentence plus framing (spec §4.9).
const DefaultUDPBufferSize = 2048

// UDP receives datagrams on a local port and forwards each as an opaque
// Passthrough envelope for upstream pseudo-0183/NMEA0183 decoding.
// Grounded on squadracorsepolito-acmetel's UDPIngress.
type UDP struct {
	Base

	addr *net.UDPAddr
	conn *net.UDPConn
	buf  []byte
}

// NewUDP creates a UDP coupler listening on ip:port.
func NewUDP(name, ip string, port uint16, timeout time.Duration) *UDP {
	return &UDP{
		Base: NewBase(name, router.DirectionReadOnly, 64, timeout),
		addr: net.UDPAddrFromAddrPort(netip.AddrPortFrom(netip.MustParseAddr(ip), port)),
		buf:  make([]byte, DefaultUDPBufferSize),
	}
}

// Open binds the UDP socket.
func (u *UDP) Open(ctx context.Context) error {
	conn, err := net.ListenUDP("udp", u.addr)
	if err != nil {
		return fmt.Errorf("udp: listen %s: %w", u.addr, err)
	}
	u.conn = conn
	return nil
}

// Run reads datagrams until ctx is done or the socket is closed.
func (u *UDP) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = u.conn.Close()
	}()

	for {
		n, err := u.conn.Read(u.buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("udp: read: %w", err)
		}
		if n == 0 {
			continue
		}

		payload := make([]byte, n)
		copy(payload, u.buf[:n])
		u.emit(&envelope.Passthrough{Data: payload, CouplerName: u.Name()}, time.Now())
	}
}

// Send is unsupported: UDP is read-only in spec §4.9.
func (u *UDP) Send(ctx context.Context, msg message.Message) error {
	return errors.New("udp: coupler is read-only")
}

// Close releases the UDP socket.
func (u *UDP) Close() error {
	if u.conn == nil {
		return nil
	}
	return u.conn.Close()
}
