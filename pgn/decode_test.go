package pgn

import (
	"testing"

	"github.com/sterwen-tech/shipdataserver/envelope"
	"github.com/sterwen-tech/shipdataserver/field"
	"github.com/stretchr/testify/require"
)

// gnssSatellitesSchema mirrors PGN 129540's shape: a leading count
// field followed by one repetition per satellite in view.
func gnssSatellitesSchema() Schema {
	return Schema{PGNs: []PGN{{
		PGN:  129540,
		ID:   "gnssSatsInView",
		Type: PacketTypeFast,
		Fields: []Field{
			{ID: "satsInView", RawType: "NUMBER", FieldType: field.KindNumber, BitOffset: 0, BitLength: 8},
		},
		Repeating: &RepeatingGroup{
			CountField: "satsInView",
			StartBit:   8,
			Fields: []Field{
				{ID: "svid", RawType: "NUMBER", FieldType: field.KindNumber, BitOffset: 0, BitLength: 8},
				{ID: "snr", RawType: "NUMBER", FieldType: field.KindNumber, BitOffset: 8, BitLength: 8, Resolution: 0.01},
			},
		},
	}}}
}

func TestDecodeRaw2000DecodesRepeatingGroup(t *testing.T) {
	d, err := Build(gnssSatellitesSchema())
	require.NoError(t, err)

	raw := &envelope.Raw2000{PGN: 129540, Data: []byte{2, 5, 200, 9, 100}}
	msg := d.DecodeRaw2000(raw)

	decoded, ok := msg.(*envelope.Decoded2000)
	require.True(t, ok)
	require.Equal(t, uint64(2), decoded.Fields["satsInView"])
	require.Len(t, decoded.Repeats, 2)
	require.Equal(t, uint64(5), decoded.Repeats[0]["svid"])
	require.Equal(t, 2.0, decoded.Repeats[0]["snr"])
	require.Equal(t, uint64(9), decoded.Repeats[1]["svid"])
	require.Equal(t, 1.0, decoded.Repeats[1]["snr"])
}

func TestDecodeRaw2000NoRepeatingGroupLeavesRepeatsNil(t *testing.T) {
	d, err := Build(testSchema())
	require.NoError(t, err)

	raw := &envelope.Raw2000{PGN: 127488, Data: []byte{1, 0, 0}}
	msg := d.DecodeRaw2000(raw)

	decoded, ok := msg.(*envelope.Decoded2000)
	require.True(t, ok)
	require.Nil(t, decoded.Repeats)
}

func TestPGNDecodeRepeatsMissingCountFieldErrors(t *testing.T) {
	p := PGN{
		PGN: 129540,
		Repeating: &RepeatingGroup{
			CountField: "satsInView",
			Fields:     []Field{{ID: "svid", FieldType: field.KindNumber, BitOffset: 0, BitLength: 8}},
		},
	}

	_, err := p.DecodeRepeats(field.Data{0}, map[string]any{})
	require.Error(t, err)
}

func TestBuildRejectsRepeatingGroupWithoutCountField(t *testing.T) {
	schema := Schema{PGNs: []PGN{{
		PGN:       129540,
		Repeating: &RepeatingGroup{Fields: []Field{{ID: "svid", RawType: "NUMBER", BitOffset: 0, BitLength: 8}}},
	}}}

	_, err := Build(schema)
	require.Error(t, err)
}
