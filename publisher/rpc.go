package publisher

import (
	"context"
	"sync"
	"time"

	"google.golang.org/grpc"

	"github.com/sterwen-tech/shipdataserver/envelope"
	"github.com/sterwen-tech/shipdataserver/internal"
	"github.com/sterwen-tech/shipdataserver/internal/message"
	"github.com/sterwen-tech/shipdataserver/rpc"
)

// ConversionMode selects how RPC handles NMEA0183 input, matching
// original_source's `pass_thru`/`convert_strict`/`convert_pass` modes
// (spec §4.10). This publisher has no NMEA0183-to-NMEA2000 converter,
// so no mode converts a sentence: the modes differ only in whether a
// sentence is forwarded. NMEA2000 messages are pushed in every mode.
type ConversionMode int

const (
	// ConvertPassThru forwards NMEA0183 sentences as-is.
	ConvertPassThru ConversionMode = iota
	// ConvertStrict drops every NMEA0183 sentence, since none can be
	// converted.
	ConvertStrict
	// ConvertPass forwards every NMEA0183 sentence unconverted.
	ConvertPass
)

// DefaultRetryInterval is the reconnect backoff spec §4.10 names for
// the RPC push publisher.
const DefaultRetryInterval = 10 * time.Second

// RPC maintains a persistent gRPC connection to a peer's
// NMEAInputServer, pushing each message as a unary call and
// reconnecting every RetryInterval on failure. Grounded on
// original_source/src/nmea2000/nmea2k_grpc_publisher.py's
// N2KGrpcPublisher (persistent channel, `_retry_interval`, `_ready`
// flag gating sends while reconnecting).
type RPC struct {
	name          string
	sources       []string
	addr          string
	mode          ConversionMode
	retryInterval time.Duration

	mu     sync.Mutex
	conn   *grpc.ClientConn
	client *rpc.InputClient
	ready  bool
	msgID  uint64

	telemetry *internal.Telemetry
}

// NewRPC creates an RPC publisher pushing to addr.
func NewRPC(name string, sources []string, addr string, mode ConversionMode, retryInterval time.Duration) *RPC {
	if retryInterval <= 0 {
		retryInterval = DefaultRetryInterval
	}
	p := &RPC{
		name:          name,
		sources:       sources,
		addr:          addr,
		mode:          mode,
		retryInterval: retryInterval,
		telemetry:     internal.NewTelemetry("publisher", name),
	}
	p.connect()
	return p
}

func (p *RPC) connect() {
	conn, err := rpc.Dial(p.addr)
	if err != nil {
		p.telemetry.LogWarn("rpc publisher dial failed, will retry", "addr", p.addr, "err", err)
		go p.retryConnect()
		return
	}
	p.mu.Lock()
	p.conn = conn
	p.client = rpc.NewInputClient(conn)
	p.ready = true
	p.mu.Unlock()
}

func (p *RPC) retryConnect() {
	time.Sleep(p.retryInterval)
	p.connect()
}

// Name implements router.Publisher.
func (p *RPC) Name() string { return p.name }

// Sources implements router.Publisher.
func (p *RPC) Sources() []string { return p.sources }

// Close implements router.Publisher.
func (p *RPC) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	return p.conn.Close()
}

// Publish pushes msg over the active connection. While the connection
// is not ready it drops msg and returns nil; a failed push marks the
// connection not ready and schedules a reconnect.
func (p *RPC) Publish(msg message.Message) error {
	p.mu.Lock()
	ready := p.ready
	client := p.client
	p.msgID++
	id := p.msgID
	p.mu.Unlock()

	if !ready {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch m := msg.(type) {
	case *envelope.Raw2000:
		_, err := client.PushNMEA2K(ctx, &rpc.Nmea2000{PGN: m.PGN, Priority: m.Priority, SA: m.Source,
			DA: m.Destination, Timestamp: m.GetTimestamp(), Payload: m.Data})
		return p.handleErr(err)

	case *envelope.Decoded2000:
		_, err := client.PushDecodedNMEA2K(ctx, &rpc.Nmea2000Decoded{PGN: m.PGN, Priority: m.Priority, SA: m.Source,
			DA: m.Destination, Timestamp: m.GetTimestamp(), Fields: m.Fields})
		return p.handleErr(err)

	case *envelope.Sentence0183:
		if p.mode == ConvertStrict {
			return nil
		}
		_, err := client.PushNMEA(ctx, &rpc.NmeaMsg{MsgID: id, N0183: &rpc.Nmea0183{Talker: m.Address,
			Values: m.Fields, Timestamp: m.GetTimestamp(), Raw: []byte(m.Raw)}})
		return p.handleErr(err)

	default:
		return nil
	}
}

func (p *RPC) handleErr(err error) error {
	if err == nil {
		return nil
	}
	p.mu.Lock()
	p.ready = false
	p.mu.Unlock()
	p.telemetry.LogWarn("rpc publisher push failed, reconnecting", "err", err)
	go p.retryConnect()
	return err
}
