package pgn

import (
	"github.com/sterwen-tech/shipdataserver/envelope"
	"github.com/sterwen-tech/shipdataserver/field"
	"github.com/sterwen-tech/shipdataserver/internal/message"
)

// DecodeRaw2000 resolves raw.PGN against the dictionary and decodes
// every field into a Decoded2000. When the PGN is not generated (not in
// the dictionary) it returns raw unchanged, letting the router forward
// it as-is (spec §4.1, §4.8).
func (d *Dictionary) DecodeRaw2000(raw *envelope.Raw2000) message.Message {
	desc, err := d.Resolve(raw.PGN, field.Data(raw.Data))
	if err != nil {
		return raw
	}

	fields := make(map[string]any, len(desc.Fields))
	for _, f := range desc.Fields {
		v, err := field.Decode(field.Data(raw.Data), f.Descriptor())
		if err != nil {
			continue
		}
		fields[f.ID] = v
	}

	repeats, _ := desc.DecodeRepeats(field.Data(raw.Data), fields)

	out := &envelope.Decoded2000{
		PGN:         raw.PGN,
		Priority:    raw.Priority,
		Source:      raw.Source,
		Destination: raw.Destination,
		Fields:      fields,
		Repeats:     repeats,
		CouplerName: raw.CouplerName,
	}
	out.SetReceiveTime(raw.GetReceiveTime())
	out.SetTimestamp(raw.GetTimestamp())
	return out
}
