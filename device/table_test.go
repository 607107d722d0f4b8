package device

import (
	"testing"
	"time"

	"github.com/sterwen-tech/shipdataserver/name"
	"github.com/stretchr/testify/require"
)

func TestObserveAddsEntry(t *testing.T) {
	tab := NewTable(0)
	var events []Event
	tab.Subscribe(func(e Event) { events = append(events, e) })

	now := time.Now()
	n := name.Name{IdentityNumber: 1}
	tab.Observe(5, n, true, now)

	e, ok := tab.Get(5)
	require.True(t, ok)
	require.True(t, e.ValidName)
	require.Len(t, events, 1)
	require.Equal(t, EventAdded, events[0].Kind)
}

func TestObserveInvalidatesOnNewName(t *testing.T) {
	tab := NewTable(0)
	now := time.Now()
	n1 := name.Name{IdentityNumber: 1}
	n2 := name.Name{IdentityNumber: 2}

	tab.Observe(5, n1, true, now)
	tab.Observe(5, n2, true, now.Add(time.Second))

	e, ok := tab.Get(5)
	require.True(t, ok)
	require.Equal(t, n2, e.Name)
}

func TestGCExpiresSilentEntries(t *testing.T) {
	tab := NewTable(time.Minute)
	now := time.Now()
	tab.Observe(5, name.Name{}, true, now)

	expired := tab.GC(now.Add(2 * time.Minute))
	require.Equal(t, 1, expired)

	_, ok := tab.Get(5)
	require.False(t, ok)
}

func TestObserveIgnoresNullAndGlobalAddresses(t *testing.T) {
	tab := NewTable(0)
	tab.Observe(254, name.Name{}, true, time.Now())
	tab.Observe(255, name.Name{}, true, time.Now())
	require.Len(t, tab.Entries(), 0)
}
