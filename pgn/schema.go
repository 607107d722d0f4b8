// Package pgn implements the PGN dictionary (spec §4.1): a canboat-style
// JSON description of every PGN's field layout, loaded once at startup
// and exposed for lookup by decoders and encoders. Grounded on
// aldas-go-nmea-client/canboat's CanboatSchema.
package pgn

import (
	"encoding/json"
	"fmt"
	"io/fs"

	"github.com/sterwen-tech/shipdataserver/field"
)

// PacketType classifies how a PGN's payload is carried on the bus.
type PacketType string

const (
	PacketTypeISO    PacketType = "ISO"
	PacketTypeFast   PacketType = "Fast"
	PacketTypeSingle PacketType = "Single"
)

// Schema is the root of a loaded PGN description file.
type Schema struct {
	Comment string `json:"Comment"`
	Version string `json:"Version"`
	PGNs    []PGN  `json:"PGNs"`
	Enums   []Enum `json:"LookupEnumerations"`
}

// Enum is a named set of value→label mappings referenced by LOOKUP fields.
type Enum struct {
	Name        string `json:"Name"`
	EnumValues  []EnumValue `json:"EnumValues"`
}

// EnumValue is a single value/label pair within an Enum.
type EnumValue struct {
	Value int64  `json:"Value"`
	Name  string `json:"Name"`
}

// Field is one field-level description within a PGN (spec §3, §4.2).
type Field struct {
	ID         string     `json:"Id"`
	Name       string     `json:"Name"`
	Unit       string     `json:"Unit"`
	BitOffset  uint16     `json:"BitOffset"`
	BitLength  uint16     `json:"BitLength"`
	Variable   bool       `json:"BitLengthVariable"`
	Signed     bool       `json:"Signed"`
	Offset     float64    `json:"Offset"`
	Resolution float64    `json:"Resolution"`
	Match      int32      `json:"Match"`
	FieldType  field.Kind `json:"-"`
	RawType    string     `json:"FieldType"`
	LookupEnum string     `json:"LookupEnumeration"`
}

// UnmarshalJSON maps the canboat FieldType string onto field.Kind.
func (f *Field) UnmarshalJSON(b []byte) error {
	type shadow Field
	if err := json.Unmarshal(b, (*shadow)(f)); err != nil {
		return err
	}
	kind, err := kindFromRaw(f.RawType)
	if err != nil {
		return fmt.Errorf("pgn field %q: %w", f.ID, err)
	}
	f.FieldType = kind
	return nil
}

func kindFromRaw(raw string) (field.Kind, error) {
	switch raw {
	case "NUMBER":
		return field.KindNumber, nil
	case "FLOAT":
		return field.KindFloat, nil
	case "DECIMAL":
		return field.KindDecimal, nil
	case "LOOKUP":
		return field.KindLookup, nil
	case "INDIRECT_LOOKUP":
		return field.KindIndirectLookup, nil
	case "BITLOOKUP":
		return field.KindBitLookup, nil
	case "TIME":
		return field.KindTime, nil
	case "DATE":
		return field.KindDate, nil
	case "STRING_FIX":
		return field.KindStringFix, nil
	case "STRING_VAR":
		return field.KindStringVar, nil
	case "STRING_LZ":
		return field.KindStringLZ, nil
	case "STRING_LAU":
		return field.KindStringLAU, nil
	case "BINARY":
		return field.KindBinary, nil
	case "RESERVED":
		return field.KindReserved, nil
	case "SPARE":
		return field.KindSpare, nil
	case "MMSI":
		return field.KindMMSI, nil
	case "VARIABLE":
		return field.KindVariable, nil
	default:
		return 0, fmt.Errorf("unknown FieldType %q", raw)
	}
}

// Descriptor converts a Field into the field package's decode parameters.
func (f Field) Descriptor() field.Descriptor {
	return field.Descriptor{
		ID:         f.ID,
		Kind:       f.FieldType,
		BitOffset:  f.BitOffset,
		BitLength:  f.BitLength,
		Signed:     f.Signed,
		Resolution: f.Resolution,
		Offset:     f.Offset,
	}
}

// RepeatingGroup describes a variable-count set of fields a PGN
// appends after its fixed fields, looped once per unit of CountField's
// already-decoded value (spec §3's "optional repeated-field group
// keyed by a count field", e.g. PGN 129540's satellites-in-view or PGN
// 127489's engine dynamic parameters). StartBit is where the first
// repetition begins; each Field's BitOffset is relative to the start
// of its own repetition, not to StartBit.
type RepeatingGroup struct {
	CountField string  `json:"CountField"`
	StartBit   uint16  `json:"StartBit"`
	Fields     []Field `json:"Fields"`
}

// groupSize returns the bit length of one repetition, the highest
// field end-bit among g.Fields.
func (g RepeatingGroup) groupSize() uint16 {
	var size uint16
	for _, f := range g.Fields {
		if end := f.BitOffset + f.BitLength; end > size {
			size = end
		}
	}
	return size
}

// PGN is one Parameter Group Number's description: identity, wire framing
// hints, and its ordered list of fields.
type PGN struct {
	PGN         uint32          `json:"PGN"`
	ID          string          `json:"Id"`
	Description string          `json:"Description"`
	Type        PacketType      `json:"Type"`
	Length      int16           `json:"Length"`
	Fields      []Field         `json:"Fields"`
	Repeating   *RepeatingGroup `json:"RepeatingGroup,omitempty"`

	isMatchable bool
}

// UnmarshalJSON records whether any field carries a Match discriminator,
// used by IsMatch (and so Dictionary.Resolve) to disambiguate PGNs
// sharing one number.
func (p *PGN) UnmarshalJSON(b []byte) error {
	type shadow PGN
	if err := json.Unmarshal(b, (*shadow)(p)); err != nil {
		return err
	}
	for _, f := range p.Fields {
		if f.Match != 0 {
			p.isMatchable = true
			break
		}
	}
	return nil
}

// IsFastPacket reports whether this PGN's payload must be reassembled by
// the fast-packet engine (spec §4.4: "dictionary byte-length > 8 or its
// descriptor flags it").
func (p PGN) IsFastPacket() bool {
	return p.Type == PacketTypeFast || p.Length > 8
}

// IsMatch reports whether rawData's discriminator field(s) match this
// PGN's Match constants, used to disambiguate multiple PGN descriptions
// sharing the same PGN number (spec §4.1).
func (p PGN) IsMatch(rawData field.Data) bool {
	if !p.isMatchable {
		return true
	}
	for _, f := range p.Fields {
		if f.Match == 0 {
			continue
		}
		v, err := rawData.DecodeUint(f.BitOffset, f.BitLength)
		if err != nil || int64(v) != int64(f.Match) {
			return false
		}
	}
	return true
}

// DecodeRepeats decodes p's repeating field group, if it has one,
// against raw's bytes and the already-decoded fixed fields (for
// CountField's value), returning one map[string]any per repetition in
// wire order. Returns nil, nil when p has no RepeatingGroup.
func (p PGN) DecodeRepeats(raw field.Data, fixed map[string]any) ([]map[string]any, error) {
	if p.Repeating == nil {
		return nil, nil
	}
	g := *p.Repeating

	count, ok := fixed[g.CountField]
	if !ok {
		return nil, fmt.Errorf("pgn %d: repeating group count field %q not decoded", p.PGN, g.CountField)
	}
	n, err := toCount(count)
	if err != nil {
		return nil, fmt.Errorf("pgn %d: repeating group count field %q: %w", p.PGN, g.CountField, err)
	}

	size := g.groupSize()
	out := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		base := g.StartBit + uint16(i)*size
		item := make(map[string]any, len(g.Fields))
		for _, f := range g.Fields {
			desc := f.Descriptor()
			desc.BitOffset = base + f.BitOffset
			v, err := field.Decode(raw, desc)
			if err != nil {
				continue
			}
			item[f.ID] = v
		}
		out = append(out, item)
	}
	return out, nil
}

// toCount normalizes a decoded count-field value (int64, uint64, or
// float64, per field.Decode's numeric return types) into an int.
func toCount(v any) (int, error) {
	switch n := v.(type) {
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("not numeric: %T", v)
	}
}

// loadSchema parses a canboat-style JSON PGN description file from filesystem.
func loadSchema(filesystem fs.FS, path string) (Schema, error) {
	f, err := filesystem.Open(path)
	if err != nil {
		return Schema{}, err
	}
	defer f.Close()

	var schema Schema
	if err := json.NewDecoder(f).Decode(&schema); err != nil {
		return Schema{}, err
	}
	return schema, nil
}
