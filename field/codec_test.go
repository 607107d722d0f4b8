package field

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeNumericScaled(t *testing.T) {
	data := Data{0xD0, 0x07} // 2000
	v, err := Decode(data, Descriptor{Kind: KindNumber, BitOffset: 0, BitLength: 16, Resolution: 0.01})
	require.NoError(t, err)
	require.InDelta(t, 20.0, v.(float64), 1e-9)
}

func TestDecodeStringFixStripsPadding(t *testing.T) {
	data := Data{'A', 'B', 'C', 0xFF, 0xFF}
	v, err := Decode(data, Descriptor{Kind: KindStringFix, BitOffset: 0, BitLength: 40})
	require.NoError(t, err)
	require.Equal(t, "ABC", v)
}

func TestDecodeStringLZ(t *testing.T) {
	// length byte (includes itself) = 4, then 3 ASCII bytes.
	data := Data{4, 'H', 'I', '!'}
	v, err := Decode(data, Descriptor{Kind: KindStringLZ, BitOffset: 0})
	require.NoError(t, err)
	require.Equal(t, "HI!", v)
}

func TestDecodeStringLAUAscii(t *testing.T) {
	// length=5 (includes len+enc bytes), encoding=1 (ASCII), 3 data bytes.
	data := Data{5, 1, 'A', 'B', 'C'}
	s, _, err := decodeStringLAU(data, 0)
	require.NoError(t, err)
	require.Equal(t, "ABC", s)
}

func TestDecodeTemperatureConversion(t *testing.T) {
	// 29315 raw * 0.01 = 293.15 K = 20.00 C
	require.InDelta(t, 20.0, KelvinFixedPointToCelsius(29315), 1e-9)
}

func TestDecodeLatLon(t *testing.T) {
	require.InDelta(t, 45.1234567, DegreesFromRaw(451234567), 1e-7)
}
