package coupler

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sterwen-tech/shipdataserver/envelope"
	"github.com/sterwen-tech/shipdataserver/internal/message"
	"github.com/sterwen-tech/shipdataserver/router"
)

// replayRecord is one parsed line of a trace file:
// `{R|M}#<seq>#<timestamp>{>|<}<content>` (spec §6). kind is 'R' for
// raw on-wire bytes or 'M' for a canonical-envelope summary; only 'R'
// records carry bytes this coupler can re-decode and re-emit.
// Grounded on original_source/src/log_replay/raw_log_reader.py's
// RawLogFile.read_decode.
type replayRecord struct {
	kind byte
	at   time.Time
	raw  string
}

const replayTimeLayout = "2006-01-02 15:04:05.000000"

func parseReplayLine(line string) (replayRecord, error) {
	if len(line) == 0 || (line[0] != 'R' && line[0] != 'M') {
		return replayRecord{}, fmt.Errorf("replay: missing R/M prefix: %q", line)
	}
	parts := strings.SplitN(line, "#", 3)
	if len(parts) != 3 {
		return replayRecord{}, fmt.Errorf("replay: malformed record: %q", line)
	}
	rest := parts[2]
	gt := strings.IndexByte(rest, '>')
	lt := strings.IndexByte(rest, '<')
	sep := gt
	if sep < 0 || (lt >= 0 && lt < sep) {
		sep = lt
	}
	if sep < 0 {
		return replayRecord{}, fmt.Errorf("replay: malformed record: %q", line)
	}
	ts, err := time.Parse(replayTimeLayout, rest[:sep])
	if err != nil {
		return replayRecord{}, fmt.Errorf("replay: bad timestamp: %w", err)
	}
	return replayRecord{kind: line[0], at: ts, raw: rest[sep+1:]}, nil
}

// Replay re-emits frames captured in a raw log file, reproducing the
// original inter-arrival spacing (or running flat-out when Speed is 0).
// Grounded on original_source's RawLogCoupler/AsynchLogReader.
type Replay struct {
	Base

	path    string
	framing Framing
	speed   float64

	file io.ReadCloser
}

// NewReplay creates a Replay coupler reading path. speed scales the
// original inter-arrival delay (1.0 = real time, 0 = as fast as
// possible).
func NewReplay(name, path string, framing Framing, speed float64) *Replay {
	return &Replay{
		Base:    NewBase(name, router.DirectionReadOnly, 64, 0),
		path:    path,
		framing: framing,
		speed:   speed,
	}
}

// Open opens the log file.
func (r *Replay) Open(ctx context.Context) error {
	f, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("replay: open %q: %w", r.path, err)
	}
	r.file = f
	return nil
}

// Run reads and replays every record in the file until EOF or ctx is
// done.
func (r *Replay) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(r.file)

	var previous *replayRecord
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
		if line[0] == 'H' {
			continue // header line naming the source coupler type
		}

		rec, err := parseReplayLine(line)
		if err != nil {
			r.Telemetry().LogWarn("dropped malformed replay record", "err", err)
			continue
		}
		if rec.kind != 'R' {
			continue // M records are a canonical-envelope summary, not re-decodable wire bytes
		}

		if previous != nil && r.speed > 0 {
			delta := rec.at.Sub(previous.at)
			wait := time.Duration(float64(delta) / r.speed)
			if wait > 0 {
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(wait):
				}
			}
		}
		previous = &rec

		r.emitRecord(rec)
	}
	return scanner.Err()
}

func (r *Replay) emitRecord(rec replayRecord) {
	line := strings.TrimRight(rec.raw, "\r\n")
	if line == "" {
		return
	}

	if r.framing == FramingNMEA0183 {
		r.emit(&envelope.Sentence0183{Address: talkerAddress(line), Fields: strings.Split(line, ","),
			Raw: line, CouplerName: r.Name()}, rec.at)
		return
	}

	msg, _, err := decodePseudo0183(r.framing, line)
	if err != nil {
		r.Telemetry().LogWarn("dropped malformed pseudo-0183 record", "err", err)
		return
	}
	r.emit(&envelope.Raw2000{PGN: msg.PGN, Priority: msg.Priority, Source: msg.Source,
		Destination: msg.Destination, Data: msg.Data, CouplerName: r.Name()}, rec.at)
}

// Send is unsupported: replay is read-only.
func (r *Replay) Send(ctx context.Context, msg message.Message) error {
	return fmt.Errorf("replay: coupler is read-only")
}

// Close releases the log file.
func (r *Replay) Close() error {
	if r.file == nil {
		return nil
	}
	return r.file.Close()
}
