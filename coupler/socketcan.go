package coupler

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/sterwen-tech/shipdataserver/device"
	"github.com/sterwen-tech/shipdataserver/envelope"
	"github.com/sterwen-tech/shipdataserver/fastpacket"
	"github.com/sterwen-tech/shipdataserver/frame"
	"github.com/sterwen-tech/shipdataserver/internal/message"
	"github.com/sterwen-tech/shipdataserver/isotransport"
	"github.com/sterwen-tech/shipdataserver/name"
	"github.com/sterwen-tech/shipdataserver/router"
)

// SupervisionTick is the expiry-callback cadence spec §5 requires for
// in-progress reassembly sessions and device-table silence, in place of
// scanning on every received frame.
const SupervisionTick = 50 * time.Millisecond

const (
	canRaw        = 1
	canIDMask     = uint32(0b111) << 29
	canIDERRFlag  = uint32(1 << 29)
	canIDRTRFlag  = uint32(1 << 30)
	canIDEFFFlag  = uint32(1 << 31)
)

// DefaultMinSpacing is the minimum inter-message spacing the direct-CAN
// coupler enforces on the bus (spec §4.9).
const DefaultMinSpacing = 5 * time.Millisecond

// SocketCAN couples directly to a Linux SocketCAN interface, reading
// raw 29-bit J1939 frames, reassembling fast-packet PGNs, and enforcing
// a minimum inter-message transmit spacing. Grounded on
// aldas-go-nmea-client/socketcan.Connection, reimplemented against
// golang.org/x/sys/unix directly instead of depending on the aldas
// package itself.
type SocketCAN struct {
	Base

	ifName     string
	fd         int
	minSpacing time.Duration
	lastSend   time.Time

	assembler  *fastpacket.Assembler
	bam        *isotransport.BAMHandler
	devices    *device.Table
	controller *device.Controller
}

// NewSocketCAN creates a SocketCAN coupler bound to ifName (e.g. "can0").
func NewSocketCAN(name, ifName string, fastPacketPGNs []uint32, devices *device.Table, timeout time.Duration) *SocketCAN {
	return &SocketCAN{
		Base:       NewBase(name, router.DirectionBidirectional, 64, timeout),
		ifName:     ifName,
		minSpacing: DefaultMinSpacing,
		assembler:  fastpacket.NewAssembler(fastPacketPGNs),
		bam:        isotransport.NewBAMHandler(),
		devices:    devices,
	}
}

// EnableController wires a local CA into this coupler, so it claims a
// bus address on Run and answers ISO Requests and Commanded Address
// frames directed at it (spec §4.6 steps 1-4).
func (c *SocketCAN) EnableController(ca *device.CA, productInfo device.ProductInfo, configInfo []byte) {
	c.controller = device.NewController(ca, c.devices, productInfo, configInfo)
}

// Open binds the raw CAN socket.
func (c *SocketCAN) Open(ctx context.Context) error {
	ifi, err := net.InterfaceByName(c.ifName)
	if err != nil {
		return fmt.Errorf("socketcan: bad interface %q: %w", c.ifName, err)
	}

	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, canRaw)
	if err != nil {
		return fmt.Errorf("socketcan: create socket: %w", err)
	}

	if err := unix.Bind(fd, &unix.SockaddrCAN{Ifindex: ifi.Index}); err != nil {
		_ = unix.Close(fd)
		return fmt.Errorf("socketcan: bind: %w", err)
	}

	if c.Timeout() > 0 {
		tv := unix.NsecToTimeval(c.Timeout().Nanoseconds())
		_ = unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv)
	}

	c.fd = fd
	return nil
}

// Run reads frames until ctx is done, observing device-table activity,
// answering any wired controller traffic, reassembling fast-packet PGNs
// and BAM broadcast transport sessions, and emitting Raw2000 envelopes.
func (c *SocketCAN) Run(ctx context.Context) error {
	if c.controller != nil {
		if err := c.sendControllerFrame(c.controller.Start(time.Now())); err != nil {
			c.Telemetry().LogWarn("failed to broadcast address claim", "err", err)
		}
	}

	go c.superviseSessions(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		h, data, err := c.readFrame()
		if err != nil {
			if isContinuable(err) {
				continue
			}
			return err
		}

		at := time.Now()
		c.observe(h, data, at)

		if c.controller != nil {
			for _, out := range c.controller.HandleFrame(h.PGN, h.Source, h.Destination, data, at) {
				if err := c.sendControllerFrame(out); err != nil {
					c.Telemetry().LogWarn("controller reply failed", "err", err, "pgn", out.PGN)
				}
			}
		}

		if h.PGN == isotransport.PGNTPCM || h.PGN == isotransport.PGNTPDT {
			c.feedBAM(h, data, at)
			continue
		}

		if c.assembler.IsFastPacket(h.PGN) {
			msg, outcome := c.assembler.Feed(h, data, at)
			if outcome != fastpacket.OutcomeComplete {
				continue
			}
			c.emit(&envelope.Raw2000{PGN: msg.Header.PGN, Priority: msg.Header.Priority, Source: msg.Header.Source,
				Destination: msg.Header.Destination, Data: msg.Data, CouplerName: c.Name()}, at)
			continue
		}

		c.emit(&envelope.Raw2000{PGN: h.PGN, Priority: h.Priority, Source: h.Source, Destination: h.Destination,
			Data: data, CouplerName: c.Name()}, at)
	}
}

// observe records every received frame's source in the device table:
// Address Claim frames record the claimed NAME, every other frame just
// records activity, per spec §4.6 ("the device table observes all
// Address Claims and data-message sources").
func (c *SocketCAN) observe(h frame.Header, data []byte, at time.Time) {
	if c.devices == nil {
		return
	}
	if h.PGN == device.PGNAddressClaim && len(data) >= 8 {
		c.devices.Observe(h.Source, name.Parse(data[:8]), true, at)
		return
	}
	c.devices.Observe(h.Source, name.Name{}, false, at)
}

// feedBAM routes a TP.CM or TP.DT frame into the broadcast transport
// reassembler: TP.CM opens a new session on a BAM announcement (any
// other control byte, e.g. RTS/CTS, is not a broadcast and is ignored
// here), TP.DT feeds the matching session's next data segment (spec
// §4.5's BAM mode).
func (c *SocketCAN) feedBAM(h frame.Header, data []byte, at time.Time) {
	switch h.PGN {
	case isotransport.PGNTPCM:
		if len(data) >= 1 && data[0] == isotransport.ControlByteBAM {
			if err := c.bam.OpenBAM(h.Source, h.Priority, data, at); err != nil {
				c.Telemetry().LogWarn("bam announce rejected", "err", err, "source", h.Source)
			}
		}
	case isotransport.PGNTPDT:
		msg, complete, err := c.bam.Packet(h.Source, data, at)
		if err != nil || !complete {
			return
		}
		c.emit(&envelope.Raw2000{PGN: msg.PGN, Priority: msg.Priority, Source: msg.Source,
			Destination: frame.AddressGlobal, Data: msg.Data, CouplerName: c.Name()}, at)
	}
}

// superviseSessions fires the expiry callbacks for in-progress
// reassembly sessions and device-table silence on SupervisionTick,
// rather than relying on per-frame scanning (spec §5).
func (c *SocketCAN) superviseSessions(ctx context.Context) {
	ticker := time.NewTicker(SupervisionTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.assembler.Expire(now)
			c.bam.Expire(now)
			if c.devices != nil {
				c.devices.GC(now)
			}
			if c.controller != nil {
				for _, out := range c.controller.Tick(now) {
					if err := c.sendControllerFrame(out); err != nil {
						c.Telemetry().LogWarn("controller heartbeat failed", "err", err, "pgn", out.PGN)
					}
				}
			}
		}
	}
}

// sendControllerFrame transmits a controller reply, splitting it into
// fast-packet frames the same way Send does when the payload (e.g. a
// 126996 product info or 126464 PGN list reply) doesn't fit an 8-byte
// frame.
func (c *SocketCAN) sendControllerFrame(out device.OutFrame) error {
	h := frame.Header{PGN: out.PGN, Priority: out.Priority, Source: out.Source, Destination: out.Destination}
	if len(out.Data) <= 8 {
		return c.sendFrame(h, out.Data)
	}
	for _, payload := range c.assembler.Split(out.PGN, out.Source, out.Data) {
		if err := c.sendFrame(h, payload); err != nil {
			return err
		}
	}
	return nil
}

func (c *SocketCAN) readFrame() (frame.Header, []byte, error) {
	buf := make([]byte, 16)
	_, err := unix.Read(c.fd, buf)
	if err != nil {
		return frame.Header{}, nil, err
	}
	return decodeCANFrame(buf)
}

// decodeCANFrame parses a 16-byte Linux struct can_frame into a J1939
// header and payload, rejecting RTR and error frames.
func decodeCANFrame(buf []byte) (frame.Header, []byte, error) {
	canID := binary.LittleEndian.Uint32(buf[0:4])
	if canID&canIDRTRFlag != 0 {
		return frame.Header{}, nil, errors.New("socketcan: remote transmission request frame")
	}
	if canID&canIDERRFlag != 0 {
		return frame.Header{}, nil, errors.New("socketcan: error message frame")
	}

	length := buf[4]
	h := frame.Parse(canID &^ canIDMask)
	return h, buf[8 : 8+length], nil
}

// encodeCANFrame builds a 16-byte Linux struct can_frame carrying the
// given header and payload, with the EFF bit set for 29-bit addressing.
func encodeCANFrame(h frame.Header, data []byte) []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], h.Uint32()|canIDEFFFlag)
	buf[4] = byte(len(data))
	copy(buf[8:], data)
	return buf
}

func isContinuable(err error) bool {
	return errors.Is(err, syscall.EWOULDBLOCK) || errors.Is(err, syscall.EINTR)
}

// Send transmits msg, honoring the configured minimum inter-message
// spacing (spec §4.9). Payloads over 8 bytes are split into fast-packet
// frames with a rolling sequence counter (spec §4.4); the reassembler on
// the receiving end is the exact inverse, making segment-then-reassemble
// the identity (spec §8).
func (c *SocketCAN) Send(ctx context.Context, msg message.Message) error {
	raw, ok := msg.(*envelope.Raw2000)
	if !ok {
		return errors.New("socketcan: send requires Raw2000")
	}

	h := frame.Header{PGN: raw.PGN, Priority: raw.Priority, Source: raw.Source, Destination: raw.Destination}

	if len(raw.Data) <= 8 {
		return c.sendFrame(h, raw.Data)
	}

	for _, payload := range c.assembler.Split(raw.PGN, raw.Source, raw.Data) {
		if err := c.sendFrame(h, payload); err != nil {
			return err
		}
	}
	return nil
}

// sendFrame writes a single 8-byte-payload CAN frame, honoring the
// configured minimum inter-message spacing (spec §4.9).
func (c *SocketCAN) sendFrame(h frame.Header, data []byte) error {
	if elapsed := time.Since(c.lastSend); elapsed < c.minSpacing {
		time.Sleep(c.minSpacing - elapsed)
	}
	_, err := unix.Write(c.fd, encodeCANFrame(h, data))
	c.lastSend = time.Now()
	return err
}

// Close releases the raw socket.
func (c *SocketCAN) Close() error {
	if c.fd == 0 {
		return nil
	}
	return unix.Close(c.fd)
}
