package fastpacket

import (
	"testing"
	"time"

	"github.com/sterwen-tech/shipdataserver/frame"
	"github.com/stretchr/testify/require"
)

func header() frame.Header {
	return frame.Header{PGN: 129029, Priority: 3, Source: 5, Destination: frame.AddressGlobal}
}

func TestAssembleSingleFrameWhenShort(t *testing.T) {
	a := NewAssembler([]uint32{129029})
	h := header()

	data := []byte{0x00, 4, 1, 2, 3, 4}
	msg, outcome := a.Feed(h, data, time.Now())
	require.Equal(t, OutcomeComplete, outcome)
	require.Equal(t, []byte{1, 2, 3, 4}, msg.Data)
}

func TestAssembleMultiFrame(t *testing.T) {
	a := NewAssembler([]uint32{129029})
	h := header()
	now := time.Now()

	frame0 := []byte{0x00, 13, 1, 2, 3, 4, 5, 6}
	_, outcome := a.Feed(h, frame0, now)
	require.Equal(t, OutcomeIncomplete, outcome)

	frame1 := []byte{0x01, 7, 8, 9, 10, 11, 12, 13}
	msg, outcome := a.Feed(h, frame1, now.Add(10*time.Millisecond))
	require.Equal(t, OutcomeComplete, outcome)
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13}, msg.Data)
}

func TestOutOfOrderFrameDropsSession(t *testing.T) {
	a := NewAssembler([]uint32{129029})
	h := header()
	now := time.Now()

	frame0 := []byte{0x00, 20, 1, 2, 3, 4, 5, 6}
	_, _ = a.Feed(h, frame0, now)

	// skip frame 1, send frame 2 directly.
	frame2 := []byte{0x02, 0, 0, 0, 0, 0, 0, 0}
	_, outcome := a.Feed(h, frame2, now.Add(5*time.Millisecond))
	require.Equal(t, OutcomeDropped, outcome)
}

func TestNewSequencePreemptsInProgress(t *testing.T) {
	a := NewAssembler([]uint32{129029})
	h := header()
	now := time.Now()

	frame0Seq0 := []byte{0x00, 20, 1, 2, 3, 4, 5, 6}
	_, _ = a.Feed(h, frame0Seq0, now)

	// a new sequence (sequence counter 1 in high nibble) starts over.
	frame0Seq1 := []byte{0x20, 4, 9, 9, 9, 9}
	msg, outcome := a.Feed(h, frame0Seq1, now.Add(5*time.Millisecond))
	require.Equal(t, OutcomeComplete, outcome)
	require.Equal(t, []byte{9, 9, 9, 9}, msg.Data)
}

func TestSplitThenFeedRoundTrips(t *testing.T) {
	a := NewAssembler([]uint32{129029})
	h := header()
	now := time.Now()

	data := make([]byte, 20)
	for i := range data {
		data[i] = byte(i + 1)
	}

	frames := a.Split(h.PGN, h.Source, data)
	require.Len(t, frames, 3)

	var msg Message
	var outcome Outcome
	for i, f := range frames {
		msg, outcome = a.Feed(h, f, now.Add(time.Duration(i)*time.Millisecond))
	}
	require.Equal(t, OutcomeComplete, outcome)
	require.Equal(t, data, msg.Data)
}

func TestSplitRollsSequenceCounter(t *testing.T) {
	a := NewAssembler([]uint32{129029})

	first := a.Split(129029, 5, []byte{1, 2, 3})
	second := a.Split(129029, 5, []byte{1, 2, 3})
	require.NotEqual(t, first[0][0]>>5, second[0][0]>>5)
}

func TestSessionExpiresAfterDeadline(t *testing.T) {
	a := NewAssembler([]uint32{129029})
	h := header()
	now := time.Now()

	frame0 := []byte{0x00, 20, 1, 2, 3, 4, 5, 6}
	_, _ = a.Feed(h, frame0, now)

	dropped := a.Expire(now.Add(300 * time.Millisecond))
	require.Equal(t, 1, dropped)
	require.Len(t, a.sessions, 0)
}
