package device

import (
	"time"

	"github.com/sterwen-tech/shipdataserver/name"
)

// ClaimState is the local CA lifecycle of spec §4.6:
// Inactive → Claiming → Claimed → Contesting → {Claimed, Unusable}.
type ClaimState int

const (
	ClaimInactive ClaimState = iota
	ClaimClaiming
	ClaimClaimed
	ClaimContesting
	ClaimUnusable
)

// ClaimWindow is how long a CA waits for a contending claim before
// considering its address uncontested (spec §4.6 step 2).
const ClaimWindow = 250 * time.Millisecond

// AddressUnavailable is the "Cannot Claim Source Address" sentinel sent
// when a CA without the arbitrary-address-capable bit loses contention.
const AddressUnavailable uint8 = 254

// CA is a local Controller Application attempting to claim and hold a
// bus address.
type CA struct {
	Name    name.Name
	Address uint8

	StartAddress    uint8
	MaxApplications  int

	// ProducedPGNs lists the PGNs this CA transmits, reported verbatim
	// in reply to an ISO Request for PGN 126464 (spec §3 device record,
	// §4.6: "on request for 126464 with its PGN list").
	ProducedPGNs []uint32

	State       ClaimState
	claimedAt   time.Time
}

// NewCA creates a CA with the given NAME and preferred address.
func NewCA(n name.Name, preferredAddress, startAddress uint8, maxApplications int) *CA {
	return &CA{
		Name:            n,
		Address:         preferredAddress,
		StartAddress:    startAddress,
		MaxApplications: maxApplications,
		State:           ClaimInactive,
	}
}

// BeginClaim moves the CA to Claiming and returns the 8-byte Address
// Claim payload to broadcast for the current Address (spec §4.6 step 1).
func (c *CA) BeginClaim(at time.Time) []byte {
	c.State = ClaimClaiming
	c.claimedAt = at
	return c.Name.Bytes()
}

// ClaimWindowElapsed reports whether ClaimWindow has passed since
// BeginClaim without contention, at which point the caller should call
// Confirm.
func (c *CA) ClaimWindowElapsed(now time.Time) bool {
	return c.State == ClaimClaiming && now.Sub(c.claimedAt) >= ClaimWindow
}

// Confirm transitions an uncontested Claiming CA to Claimed (spec §4.6
// step 4).
func (c *CA) Confirm() {
	if c.State == ClaimClaiming || c.State == ClaimContesting {
		c.State = ClaimClaimed
	}
}

// ReservedPoolEnd returns the exclusive end of the arbitrary-address
// pool, StartAddress + 2*MaxApplications (spec §4.6 step 3).
func (c *CA) ReservedPoolEnd() int {
	return int(c.StartAddress) + 2*c.MaxApplications
}

// Contend resolves an incoming Address Claim from another NAME at our
// current address (spec §4.6 step 3): the numerically lower NAME wins.
// nextFree is consulted only when we lose and are arbitrary-address
// capable; it should return the next unused address in
// [StartAddress, ReservedPoolEnd()), or false if none remain. at
// restarts the ClaimWindow for the address we re-claim at.
func (c *CA) Contend(other name.Name, nextFree func(start, end uint8) (uint8, bool), at time.Time) (claimPayload []byte, won bool) {
	c.State = ClaimContesting
	if name.Less(c.Name, other) {
		// We win; our NAME stands, nothing to resend.
		c.State = ClaimClaimed
		return nil, true
	}

	if !c.Name.ArbitraryAddressCapable {
		c.Address = AddressUnavailable
		c.State = ClaimUnusable
		return nil, false
	}

	addr, ok := nextFree(c.StartAddress, uint8(c.ReservedPoolEnd()))
	if !ok {
		c.Address = AddressUnavailable
		c.State = ClaimUnusable
		return nil, false
	}

	c.Address = addr
	c.State = ClaimClaiming
	c.claimedAt = at
	return c.Name.Bytes(), false
}

// CommandAddress handles an incoming Commanded Address (PGN 65240)
// directed at our NAME, moving us back to Claiming at the new address.
func (c *CA) CommandAddress(target name.Name, newAddress uint8, at time.Time) bool {
	if target.Uint64() != c.Name.Uint64() {
		return false
	}
	c.Address = newAddress
	c.State = ClaimClaiming
	c.claimedAt = at
	return true
}
