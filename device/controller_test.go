package device

import (
	"testing"
	"time"

	"github.com/sterwen-tech/shipdataserver/name"
	"github.com/stretchr/testify/require"
)

func TestControllerStartBroadcastsClaim(t *testing.T) {
	ca := NewCA(name.Name{IdentityNumber: 5}, 30, 128, 10)
	ctl := NewController(ca, NewTable(0), ProductInfo{}, nil)

	out := ctl.Start(time.Now())
	require.Equal(t, uint32(PGNAddressClaim), out.PGN)
	require.Equal(t, uint8(30), out.Source)
	require.Equal(t, uint8(255), out.Destination)
	require.Equal(t, ca.Name.Bytes(), out.Data)
}

func TestControllerHandleAddressClaimContention(t *testing.T) {
	ca := NewCA(name.Name{IdentityNumber: 99, ArbitraryAddressCapable: true}, 30, 128, 10)
	ctl := NewController(ca, NewTable(0), ProductInfo{}, nil)
	now := time.Now()
	ctl.Start(now)

	other := name.Name{IdentityNumber: 1}
	frames := ctl.HandleFrame(PGNAddressClaim, 30, 255, other.Bytes(), now)
	require.Len(t, frames, 1)
	require.Equal(t, uint32(PGNAddressClaim), frames[0].PGN)
	require.Equal(t, uint8(128), frames[0].Source)
	require.Equal(t, ClaimClaiming, ca.State)
}

func TestControllerHandleISORequestProductInfo(t *testing.T) {
	ca := NewCA(name.Name{IdentityNumber: 5}, 30, 128, 10)
	info := ProductInfo{ModelID: "shipdataserver"}
	ctl := NewController(ca, NewTable(0), info, nil)
	ctl.Start(time.Now())

	pgn := uint32(PGNProductInfo)
	req := []byte{byte(pgn), byte(pgn >> 8), byte(pgn >> 16)}
	frames := ctl.HandleFrame(PGNISORequest, 10, 30, req, time.Now())
	require.Len(t, frames, 1)
	require.Equal(t, uint32(PGNProductInfo), frames[0].PGN)
	require.Equal(t, info.Bytes(), frames[0].Data)
	require.Equal(t, uint8(10), frames[0].Destination)
}

func TestControllerHandleCommandedAddress(t *testing.T) {
	n := name.Name{IdentityNumber: 7}
	ca := NewCA(n, 30, 128, 10)
	ctl := NewController(ca, NewTable(0), ProductInfo{}, nil)
	ctl.Start(time.Now())

	cmd := append(append([]byte{}, n.Bytes()...), 40)
	frames := ctl.HandleFrame(PGNCommandedAddress, 2, 30, cmd, time.Now())
	require.Len(t, frames, 1)
	require.Equal(t, uint8(40), ca.Address)
	require.Equal(t, ClaimClaiming, ca.State)
}

func TestControllerTickConfirmsUncontestedClaim(t *testing.T) {
	ca := NewCA(name.Name{IdentityNumber: 5}, 30, 128, 10)
	ctl := NewController(ca, NewTable(0), ProductInfo{}, nil)
	start := time.Now()
	ctl.Start(start)

	ctl.Tick(start.Add(ClaimWindow))
	require.Equal(t, ClaimClaimed, ca.State)
}

func TestControllerTickBroadcastsHeartbeatOnceClaimed(t *testing.T) {
	ca := NewCA(name.Name{IdentityNumber: 5}, 30, 128, 10)
	ctl := NewController(ca, NewTable(0), ProductInfo{}, nil)
	ctl.SetHeartbeatRate(10 * time.Millisecond)
	start := time.Now()
	ctl.Start(start)

	claimedAt := start.Add(ClaimWindow)
	require.Empty(t, ctl.Tick(claimedAt))
	require.Equal(t, ClaimClaimed, ca.State)

	frames := ctl.Tick(claimedAt.Add(20 * time.Millisecond))
	require.Len(t, frames, 1)
	require.Equal(t, uint32(PGNHeartbeat), frames[0].PGN)
	require.Equal(t, uint8(30), frames[0].Source)

	require.Empty(t, ctl.Tick(claimedAt.Add(21*time.Millisecond)))
}

func TestControllerHandleISORequestPGNList(t *testing.T) {
	ca := NewCA(name.Name{IdentityNumber: 5}, 30, 128, 10)
	ca.ProducedPGNs = []uint32{129025, 129029}
	ctl := NewController(ca, NewTable(0), ProductInfo{}, nil)
	ctl.Start(time.Now())

	pgnListID := uint32(PGNPGNList)
	req := []byte{byte(pgnListID), byte(pgnListID >> 8), byte(pgnListID >> 16)}
	frames := ctl.HandleFrame(PGNISORequest, 10, 30, req, time.Now())
	require.Len(t, frames, 1)
	require.Equal(t, uint32(PGNPGNList), frames[0].PGN)
	require.Equal(t, []byte{
		0,
		1, 248, 1,
		5, 248, 1,
	}, frames[0].Data)
}

func TestControllerHandleISORequestConfigurationInfo(t *testing.T) {
	ca := NewCA(name.Name{IdentityNumber: 5}, 30, 128, 10)
	configInfo := []byte("installation description")
	ctl := NewController(ca, NewTable(0), ProductInfo{}, configInfo)
	ctl.Start(time.Now())

	configInfoPGN := uint32(PGNConfigurationInfo)
	req := []byte{byte(configInfoPGN), byte(configInfoPGN >> 8), byte(configInfoPGN >> 16)}
	frames := ctl.HandleFrame(PGNISORequest, 10, 30, req, time.Now())
	require.Len(t, frames, 1)
	require.Equal(t, uint32(PGNConfigurationInfo), frames[0].PGN)
	require.Equal(t, configInfo, frames[0].Data)
}

func TestControllerHandleGroupFunctionRequestAnswersKnownPGN(t *testing.T) {
	ca := NewCA(name.Name{IdentityNumber: 5}, 30, 128, 10)
	info := ProductInfo{ModelID: "shipdataserver"}
	ctl := NewController(ca, NewTable(0), info, nil)
	ctl.Start(time.Now())

	productInfoPGN := uint32(PGNProductInfo)
	req := append([]byte{GroupFunctionRequest, byte(productInfoPGN), byte(productInfoPGN >> 8), byte(productInfoPGN >> 16)}, 0xFF, 0xFF, 0xFF, 0xFF)
	frames := ctl.HandleFrame(PGNGroupFunction, 10, 30, req, time.Now())
	require.Len(t, frames, 1)
	require.Equal(t, uint32(PGNProductInfo), frames[0].PGN)
	require.Equal(t, info.Bytes(), frames[0].Data)
}

func TestControllerHandleGroupFunctionRequestUnsupportedPGNAcknowledges(t *testing.T) {
	ca := NewCA(name.Name{IdentityNumber: 5}, 30, 128, 10)
	ctl := NewController(ca, NewTable(0), ProductInfo{}, nil)
	ctl.Start(time.Now())

	req := append([]byte{GroupFunctionRequest, 0x11, 0x22, 0x33}, 0xFF, 0xFF, 0xFF, 0xFF)
	frames := ctl.HandleFrame(PGNGroupFunction, 10, 30, req, time.Now())
	require.Len(t, frames, 1)
	require.Equal(t, uint32(PGNGroupFunction), frames[0].PGN)
	require.Equal(t, byte(GroupFunctionAcknowledge), frames[0].Data[0])
	require.Equal(t, byte(PGNErrorNotSupported), frames[0].Data[4]&0x0F)
}

func TestControllerHandleGroupFunctionCommandAcknowledgesUnsupported(t *testing.T) {
	ca := NewCA(name.Name{IdentityNumber: 5}, 30, 128, 10)
	ctl := NewController(ca, NewTable(0), ProductInfo{}, nil)
	ctl.Start(time.Now())

	req := append([]byte{GroupFunctionCommand, 0x11, 0x22, 0x33}, 0xFF, 0xFF, 0xFF, 0xFF)
	frames := ctl.HandleFrame(PGNGroupFunction, 10, 30, req, time.Now())
	require.Len(t, frames, 1)
	require.Equal(t, byte(GroupFunctionAcknowledge), frames[0].Data[0])
}

func TestControllerQueuesFollowUpISORequestsOnNewDevice(t *testing.T) {
	ca := NewCA(name.Name{IdentityNumber: 5}, 30, 128, 10)
	table := NewTable(0)
	ctl := NewController(ca, table, ProductInfo{}, nil)
	ctl.Start(time.Now())

	now := time.Now()
	table.Observe(10, name.Name{IdentityNumber: 1}, true, now)

	frames := ctl.Tick(now)
	require.Len(t, frames, 2)
	require.Equal(t, uint32(PGNISORequest), frames[0].PGN)
	require.Equal(t, uint8(10), frames[0].Destination)
	productInfoPGN := uint32(PGNProductInfo)
	configInfoPGN := uint32(PGNConfigurationInfo)
	require.Equal(t, []byte{byte(productInfoPGN), byte(productInfoPGN >> 8), byte(productInfoPGN >> 16)}, frames[0].Data)
	require.Equal(t, []byte{byte(configInfoPGN), byte(configInfoPGN >> 8), byte(configInfoPGN >> 16)}, frames[1].Data)

	require.Empty(t, ctl.Tick(now))
}

func TestControllerIgnoresItsOwnAddressOnDeviceEvent(t *testing.T) {
	ca := NewCA(name.Name{IdentityNumber: 5}, 30, 128, 10)
	table := NewTable(0)
	ctl := NewController(ca, table, ProductInfo{}, nil)
	ctl.Start(time.Now())

	now := time.Now()
	table.Observe(30, ca.Name, true, now)

	require.Empty(t, ctl.Tick(now))
}
