package publisher

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/sterwen-tech/shipdataserver/envelope"
	"github.com/sterwen-tech/shipdataserver/internal/message"
)

const traceTimeLayout = "2006-01-02 15:04:05.000000"

// Trace writes every envelope it sees to a file or stdout: one M line
// per message, preceded by an R line when the message carries raw
// bytes. NewTraceFile auto-names the file
// `TRACE-<name>-<ISO-timestamp>.log`. Grounded on
// original_source/src/log_replay/message_trace.py's NMEAMsgTrace.
type Trace struct {
	name    string
	sources []string

	mu      sync.Mutex
	w       io.Writer
	closer  io.Closer
	msgNum  uint64
}

// NewTraceFile opens (or creates) dir/TRACE-<name>-<timestamp>.log, the
// timestamp in ISO 8601 basic format (e.g. 20240102T150405), and
// returns a Trace writing to it.
func NewTraceFile(name string, sources []string, dir string, at time.Time) (*Trace, error) {
	filename := fmt.Sprintf("TRACE-%s-%s.log", name, at.Format("20060102T150405"))
	path := filename
	if dir != "" {
		path = dir + "/" + filename
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("trace publisher: create %q: %w", path, err)
	}
	if _, err := fmt.Fprintf(f, "H0|Trace|V1.4\n"); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Trace{name: name, sources: sources, w: f, closer: f}, nil
}

// NewTraceWriter wraps an already-open writer (e.g. os.Stdout) as a
// Trace publisher; Close is a no-op since the caller owns the writer.
func NewTraceWriter(name string, sources []string, w io.Writer) *Trace {
	return &Trace{name: name, sources: sources, w: w}
}

// Name implements router.Publisher.
func (tr *Trace) Name() string { return tr.name }

// Sources implements router.Publisher.
func (tr *Trace) Sources() []string { return tr.sources }

// Close implements router.Publisher.
func (tr *Trace) Close() error {
	if tr.closer == nil {
		return nil
	}
	return tr.closer.Close()
}

// Publish appends an `M#<seq>#<timestamp>><content>` line carrying
// msg's canonical envelope, preceded by an `R#<seq>#<timestamp>><raw>`
// line when msg carries its original on-wire bytes, per spec §6's
// trace format `{R|M}#<seq>#<ISO-timestamp>{>|<}<content>` (`R` raw
// on-wire bytes, `M` canonical envelope, `>` ingress).
func (tr *Trace) Publish(msg message.Message) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	ts := time.Now().Format(traceTimeLayout)

	if raw, ok := rawContent(msg); ok {
		if err := tr.writeRecord('R', ts, raw); err != nil {
			return err
		}
	}
	return tr.writeRecord('M', ts, printable(msg))
}

func (tr *Trace) writeRecord(kind byte, ts, content string) error {
	n := tr.msgNum
	tr.msgNum++
	_, err := fmt.Fprintf(tr.w, "%c#%d#%s>%s\n", kind, n, ts, content)
	return err
}

// rawContent returns the on-wire bytes behind msg: verbatim for a
// Sentence0183 (already textual) or hex-encoded for any other
// Serializable (binary payload), per spec §6's "hex for binary".
// Decoded2000 carries no raw bytes of its own, so it gets no R line.
func rawContent(msg message.Message) (string, bool) {
	switch m := msg.(type) {
	case *envelope.Sentence0183:
		return m.Raw, true
	case message.Serializable:
		return fmt.Sprintf("%x", m.GetBytes()), true
	default:
		return "", false
	}
}

func printable(msg message.Message) string {
	switch m := msg.(type) {
	case *envelope.Raw2000:
		return fmt.Sprintf("N2K pgn=%d sa=%d da=%d prio=%d data=%x", m.PGN, m.Source, m.Destination, m.Priority, m.Data)
	case *envelope.Decoded2000:
		return fmt.Sprintf("N2K pgn=%d sa=%d fields=%v", m.PGN, m.Source, m.Fields)
	case *envelope.Sentence0183:
		return m.Raw
	case *envelope.Passthrough:
		return fmt.Sprintf("%x", m.Data)
	default:
		return fmt.Sprintf("%v", msg)
	}
}
