package name

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	n := Name{
		IdentityNumber:          0x1A2B3,
		ManufacturerCode:        0x3FE,
		ECUInstance:             5,
		FunctionInstance:        17,
		Function:                132,
		VehicleSystem:           0x5A,
		VehicleSystemInstance:   9,
		IndustryGroup:           4,
		ArbitraryAddressCapable: true,
	}

	got := Parse(n.Bytes())
	require.Equal(t, n, got)

	got2 := ParseUint64(n.Uint64())
	require.Equal(t, n, got2)
}

func TestLess(t *testing.T) {
	a := Name{IdentityNumber: 1}
	b := Name{IdentityNumber: 2}
	require.True(t, Less(a, b))
	require.False(t, Less(b, a))
}
