package device

import (
	"testing"
	"time"

	"github.com/sterwen-tech/shipdataserver/name"
	"github.com/stretchr/testify/require"
)

func TestClaimUncontested(t *testing.T) {
	ca := NewCA(name.Name{IdentityNumber: 5}, 30, 128, 10)
	now := time.Now()
	ca.BeginClaim(now)
	require.Equal(t, ClaimClaiming, ca.State)

	require.True(t, ca.ClaimWindowElapsed(now.Add(300*time.Millisecond)))
	ca.Confirm()
	require.Equal(t, ClaimClaimed, ca.State)
}

func TestContendWeWin(t *testing.T) {
	ca := NewCA(name.Name{IdentityNumber: 1}, 30, 128, 10)
	ca.BeginClaim(time.Now())

	other := name.Name{IdentityNumber: 99}
	payload, won := ca.Contend(other, nil, time.Now())
	require.True(t, won)
	require.Nil(t, payload)
	require.Equal(t, ClaimClaimed, ca.State)
}

func TestContendWeLoseAndPickNextFree(t *testing.T) {
	ca := NewCA(name.Name{IdentityNumber: 99, ArbitraryAddressCapable: true}, 30, 128, 10)
	start := time.Now()
	ca.BeginClaim(start)

	other := name.Name{IdentityNumber: 1}
	reclaimAt := start.Add(200 * time.Millisecond)
	payload, won := ca.Contend(other, func(start, end uint8) (uint8, bool) {
		return start, true
	}, reclaimAt)
	require.False(t, won)
	require.NotNil(t, payload)
	require.Equal(t, uint8(128), ca.Address)
	require.Equal(t, ClaimClaiming, ca.State)

	// The ClaimWindow restarts from the re-claim, not the original
	// BeginClaim, so it has not elapsed 100ms after reclaimAt even though
	// it has elapsed 300ms after the original start.
	require.False(t, ca.ClaimWindowElapsed(reclaimAt.Add(100*time.Millisecond)))
	require.True(t, ca.ClaimWindowElapsed(reclaimAt.Add(ClaimWindow)))
}

func TestContendWeLoseNotArbitraryCapable(t *testing.T) {
	ca := NewCA(name.Name{IdentityNumber: 99}, 30, 128, 10)
	ca.BeginClaim(time.Now())

	other := name.Name{IdentityNumber: 1}
	_, won := ca.Contend(other, nil, time.Now())
	require.False(t, won)
	require.Equal(t, ClaimUnusable, ca.State)
	require.Equal(t, AddressUnavailable, ca.Address)
}

func TestCommandAddress(t *testing.T) {
	n := name.Name{IdentityNumber: 7}
	ca := NewCA(n, 30, 128, 10)
	ok := ca.CommandAddress(n, 40, time.Now())
	require.True(t, ok)
	require.Equal(t, uint8(40), ca.Address)
	require.Equal(t, ClaimClaiming, ca.State)
}
