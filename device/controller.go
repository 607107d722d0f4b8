package device

import (
	"sync"
	"time"

	"github.com/sterwen-tech/shipdataserver/name"
)

// PGNs the active controller claims an address on and answers requests
// for, per spec §4.6 ("Implements PGN 60928..., 59904..., 65240...,
// 126996/126998/126993, and the limited set of 126208 group
// functions").
const (
	PGNISORequest           = 59904
	PGNAddressClaim         = 60928
	PGNCommandedAddress     = 65240
	PGNProductInfo          = 126996
	PGNPGNList              = 126464
	PGNConfigurationInfo    = 126998
	PGNHeartbeat            = 126993
	PGNGroupFunction        = 126208
)

// Group function codes for PGN 126208, the limited subset spec §4.6
// names (request/command/acknowledge).
const (
	GroupFunctionRequest     uint8 = 0
	GroupFunctionCommand     uint8 = 1
	GroupFunctionAcknowledge uint8 = 2
)

// PGN error codes reported in a 126208 Acknowledge's low nibble.
const (
	PGNErrorAcknowledge  uint8 = 0
	PGNErrorNotSupported uint8 = 1
)

// DefaultHeartbeatRate is how often a claimed CA broadcasts PGN 126993
// (spec §3's device record "heartbeat rate" field, NMEA2000's 1 s
// default transmit interval).
const DefaultHeartbeatRate = time.Second

// OutFrame is one PGN payload the controller needs transmitted on the
// bus in reply to observed traffic. Data may be longer than 8 bytes
// (e.g. the 126996 product info reply); the transmitting coupler splits
// such payloads into fast-packet frames.
type OutFrame struct {
	PGN         uint32
	Priority    uint8
	Source      uint8
	Destination uint8
	Data        []byte
}

// Controller drives a local CA's address-claim lifecycle and answers
// ISO Requests and Commanded Address frames directed at it, so the CA
// built in claim.go actually participates in bus arbitration instead of
// sitting unreferenced (spec §4.6 steps 1-4, §4.9's active controller).
type Controller struct {
	ca          *CA
	devices     *Table
	productInfo ProductInfo
	configInfo  []byte

	heartbeatRate time.Duration
	heartbeatSeq  uint8
	lastHeartbeat time.Time

	pendingMu sync.Mutex
	pending   []OutFrame
}

// NewController creates a Controller driving ca. configInfo, if
// non-nil, is returned verbatim in reply to an ISO Request for PGN
// 126998; productInfo is packed into a reply for PGN 126996. The PGN
// list returned for 126464 comes from ca.ProducedPGNs.
//
// If devices is non-nil, the Controller subscribes to its events and,
// on every newly discovered device, queues follow-up ISO Requests for
// 126996 then 126998 (spec §3's ISO Request auto-reply chain), drained
// on the next Tick.
func NewController(ca *CA, devices *Table, productInfo ProductInfo, configInfo []byte) *Controller {
	c := &Controller{ca: ca, devices: devices, productInfo: productInfo, configInfo: configInfo, heartbeatRate: DefaultHeartbeatRate}
	if devices != nil {
		devices.Subscribe(c.onDeviceEvent)
	}
	return c
}

// onDeviceEvent queues follow-up ISO Requests for a newly discovered
// device, asking it for the product info and configuration info it
// doesn't volunteer unprompted (spec §3).
func (c *Controller) onDeviceEvent(ev Event) {
	if ev.Kind != EventAdded || ev.Entry.Source == c.ca.Address {
		return
	}
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	c.pending = append(c.pending,
		c.isoRequestFrame(ev.Entry.Source, PGNProductInfo),
		c.isoRequestFrame(ev.Entry.Source, PGNConfigurationInfo),
	)
}

func (c *Controller) isoRequestFrame(destination uint8, requested uint32) OutFrame {
	return OutFrame{PGN: PGNISORequest, Priority: 6, Source: c.ca.Address, Destination: destination, Data: []byte{
		byte(requested), byte(requested >> 8), byte(requested >> 16),
	}}
}

func (c *Controller) drainPending() []OutFrame {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	if len(c.pending) == 0 {
		return nil
	}
	out := c.pending
	c.pending = nil
	return out
}

// SetHeartbeatRate overrides the PGN 126993 broadcast interval
// (default DefaultHeartbeatRate).
func (c *Controller) SetHeartbeatRate(d time.Duration) { c.heartbeatRate = d }

// Address reports the CA's current bus address.
func (c *Controller) Address() uint8 { return c.ca.Address }

// Start begins claiming ca's preferred address, returning the Address
// Claim frame to broadcast (spec §4.6 step 1).
func (c *Controller) Start(at time.Time) OutFrame {
	return c.claimFrame(c.ca.BeginClaim(at))
}

func (c *Controller) claimFrame(payload []byte) OutFrame {
	return OutFrame{PGN: PGNAddressClaim, Priority: 6, Source: c.ca.Address, Destination: 255, Data: payload}
}

// Tick drives time-based transitions: confirming an uncontested claim
// once ClaimWindow has elapsed without a competing claim (spec §4.6
// step 4), and broadcasting a PGN 126993 heartbeat at heartbeatRate
// once claimed, the first one heartbeatRate after the claim is
// confirmed.
func (c *Controller) Tick(now time.Time) []OutFrame {
	if c.ca.ClaimWindowElapsed(now) {
		c.ca.Confirm()
	}

	out := c.drainPending()

	if c.ca.State != ClaimClaimed {
		return out
	}
	if c.lastHeartbeat.IsZero() {
		c.lastHeartbeat = now
		return out
	}
	if now.Sub(c.lastHeartbeat) < c.heartbeatRate {
		return out
	}
	c.lastHeartbeat = now
	return append(out, c.heartbeatFrame())
}

func (c *Controller) heartbeatFrame() OutFrame {
	interval := uint16(c.heartbeatRate.Milliseconds() / 10)
	payload := make([]byte, 8)
	payload[0] = byte(interval)
	payload[1] = byte(interval >> 8)
	payload[2] = c.heartbeatSeq
	for i := 3; i < 8; i++ {
		payload[i] = 0xFF
	}
	c.heartbeatSeq++
	if c.heartbeatSeq > 252 {
		c.heartbeatSeq = 0
	}
	return OutFrame{PGN: PGNHeartbeat, Priority: 7, Source: c.ca.Address, Destination: 255, Data: payload}
}

// HandleFrame inspects one incoming PGN payload and returns zero or
// more frames the controller needs transmitted in reply.
func (c *Controller) HandleFrame(pgn uint32, source, destination uint8, data []byte, at time.Time) []OutFrame {
	switch pgn {
	case PGNAddressClaim:
		return c.handleAddressClaim(source, data, at)
	case PGNISORequest:
		return c.handleISORequest(source, destination, data)
	case PGNCommandedAddress:
		return c.handleCommandedAddress(data, at)
	case PGNGroupFunction:
		return c.handleGroupFunction(source, destination, data)
	default:
		return nil
	}
}

func (c *Controller) handleAddressClaim(source uint8, data []byte, at time.Time) []OutFrame {
	if source != c.ca.Address || len(data) < 8 {
		return nil
	}
	other := name.Parse(data[:8])
	payload, won := c.ca.Contend(other, c.nextFree, at)
	if won || payload == nil {
		return nil
	}
	return []OutFrame{c.claimFrame(payload)}
}

func (c *Controller) handleISORequest(source, destination uint8, data []byte) []OutFrame {
	if destination != c.ca.Address && destination != 255 {
		return nil
	}
	if len(data) < 3 {
		return nil
	}
	return c.replyTo(source, pgnFromBytes(data))
}

func pgnFromBytes(data []byte) uint32 {
	return uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16
}

// replyTo builds the canned reply for one of the PGNs spec §4.6 names
// an incoming ISO Request or Group Function Request can ask for, or
// nil if requested isn't one of them.
func (c *Controller) replyTo(destination uint8, requested uint32) []OutFrame {
	switch requested {
	case PGNAddressClaim:
		return []OutFrame{{PGN: PGNAddressClaim, Priority: 6, Source: c.ca.Address, Destination: destination, Data: c.ca.Name.Bytes()}}
	case PGNProductInfo:
		return []OutFrame{{PGN: PGNProductInfo, Priority: 6, Source: c.ca.Address, Destination: destination, Data: c.productInfo.Bytes()}}
	case PGNPGNList:
		return []OutFrame{{PGN: PGNPGNList, Priority: 6, Source: c.ca.Address, Destination: destination, Data: c.pgnListBytes()}}
	case PGNConfigurationInfo:
		if c.configInfo == nil {
			return nil
		}
		return []OutFrame{{PGN: PGNConfigurationInfo, Priority: 6, Source: c.ca.Address, Destination: destination, Data: c.configInfo}}
	default:
		return nil
	}
}

// pgnListBytes packs ca.ProducedPGNs into PGN 126464's wire layout: a
// leading function-code byte (0 = "Transmit PGN list", this CA never
// answers a Receive-PGN-list request since it doesn't consume PGNs on
// anyone's behalf) followed by one 3-byte little-endian PGN per entry.
func (c *Controller) pgnListBytes() []byte {
	b := make([]byte, 1+3*len(c.ca.ProducedPGNs))
	for i, pgn := range c.ca.ProducedPGNs {
		off := 1 + i*3
		b[off] = byte(pgn)
		b[off+1] = byte(pgn >> 8)
		b[off+2] = byte(pgn >> 16)
	}
	return b
}

// handleGroupFunction answers the request/command subset of PGN 126208
// spec §4.6 names: a Request is answered the same way an ISO Request
// would be; a Command is acknowledged as unsupported since this
// controller exposes no commandable fields.
func (c *Controller) handleGroupFunction(source, destination uint8, data []byte) []OutFrame {
	if (destination != c.ca.Address && destination != 255) || len(data) < 4 {
		return nil
	}
	code := data[0]
	pgn := pgnFromBytes(data[1:4])

	switch code {
	case GroupFunctionRequest:
		if frames := c.replyTo(source, pgn); frames != nil {
			return frames
		}
		return []OutFrame{c.acknowledge(source, pgn, PGNErrorNotSupported)}
	case GroupFunctionCommand:
		return []OutFrame{c.acknowledge(source, pgn, PGNErrorNotSupported)}
	default:
		return nil
	}
}

func (c *Controller) acknowledge(destination uint8, pgn uint32, errorCode uint8) OutFrame {
	payload := make([]byte, 8)
	payload[0] = GroupFunctionAcknowledge
	payload[1] = byte(pgn)
	payload[2] = byte(pgn >> 8)
	payload[3] = byte(pgn >> 16)
	payload[4] = errorCode & 0x0F
	for i := 5; i < 8; i++ {
		payload[i] = 0xFF
	}
	return OutFrame{PGN: PGNGroupFunction, Priority: 6, Source: c.ca.Address, Destination: destination, Data: payload}
}

func (c *Controller) handleCommandedAddress(data []byte, at time.Time) []OutFrame {
	if len(data) < 9 {
		return nil
	}
	target := name.Parse(data[:8])
	if !c.ca.CommandAddress(target, data[8], at) {
		return nil
	}
	return []OutFrame{c.claimFrame(c.ca.Name.Bytes())}
}

func (c *Controller) nextFree(start, end uint8) (uint8, bool) {
	if c.devices == nil {
		return start, start < end
	}
	for addr := start; addr < end; addr++ {
		if _, ok := c.devices.Get(addr); !ok {
			return addr, true
		}
	}
	return 0, false
}
