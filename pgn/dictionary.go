package pgn

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/sterwen-tech/shipdataserver/field"
)

// DictionaryLoadError wraps a failure encountered while validating a
// loaded schema at startup (spec §4.1: "bad element, unknown field kind,
// overlap").
type DictionaryLoadError struct {
	Reason string
}

func (e *DictionaryLoadError) Error() string {
	return fmt.Sprintf("pgn: dictionary load error: %s", e.Reason)
}

// ErrNotGenerated is returned by lookups once the dictionary is loaded
// when no descriptor or enum value exists for the request (spec §4.1:
// "lookups either succeed or return a 'not generated' marker").
var ErrNotGenerated = errors.New("pgn: not generated")

// Dictionary is the loaded, indexed PGN description, safe for concurrent
// read-only lookup after Load returns.
type Dictionary struct {
	byPGN map[uint32][]PGN
	enums map[string]map[int64]string
}

// Load reads and validates a PGN schema file, returning a ready-to-use
// Dictionary. It fails only at startup (spec §4.1).
func Load(filesystem fs.FS, path string) (*Dictionary, error) {
	schema, err := loadSchema(filesystem, path)
	if err != nil {
		return nil, &DictionaryLoadError{Reason: err.Error()}
	}
	return Build(schema)
}

// Build validates and indexes an already-parsed Schema.
func Build(schema Schema) (*Dictionary, error) {
	d := &Dictionary{
		byPGN: make(map[uint32][]PGN),
		enums: make(map[string]map[int64]string),
	}

	for _, e := range schema.Enums {
		values := make(map[int64]string, len(e.EnumValues))
		for _, v := range e.EnumValues {
			values[v.Value] = v.Name
		}
		d.enums[e.Name] = values
	}

	for _, p := range schema.PGNs {
		if err := validatePGN(p); err != nil {
			return nil, &DictionaryLoadError{Reason: err.Error()}
		}
		d.byPGN[p.PGN] = append(d.byPGN[p.PGN], p)
	}

	return d, nil
}

func validatePGN(p PGN) error {
	seenBits := make(map[uint16]bool)
	for _, f := range p.Fields {
		if _, err := kindFromRaw(f.RawType); err != nil {
			return fmt.Errorf("pgn %d field %q: %w", p.PGN, f.ID, err)
		}
		if f.Variable {
			continue
		}
		for bit := f.BitOffset; bit < f.BitOffset+f.BitLength; bit++ {
			if seenBits[bit] {
				return fmt.Errorf("pgn %d: field %q overlaps bit %d", p.PGN, f.ID, bit)
			}
			seenBits[bit] = true
		}
	}
	if p.Repeating != nil {
		if p.Repeating.CountField == "" {
			return fmt.Errorf("pgn %d: repeating group has no CountField", p.PGN)
		}
		for _, f := range p.Repeating.Fields {
			if _, err := kindFromRaw(f.RawType); err != nil {
				return fmt.Errorf("pgn %d repeating field %q: %w", p.PGN, f.ID, err)
			}
		}
	}
	return nil
}

// LookupPGN returns every PGN description registered under number,
// letting callers disambiguate via PGN.IsMatch when more than one
// description shares a PGN number (spec §4.1 note: "PGN is not unique").
func (d *Dictionary) LookupPGN(number uint32) ([]PGN, bool) {
	p, ok := d.byPGN[number]
	return p, ok
}

// Resolve picks the PGN description under number whose discriminator
// fields match rawData, falling back to the first registered description
// if none is matchable.
func (d *Dictionary) Resolve(number uint32, rawData field.Data) (PGN, error) {
	candidates, ok := d.byPGN[number]
	if !ok || len(candidates) == 0 {
		return PGN{}, ErrNotGenerated
	}
	for _, c := range candidates {
		if c.IsMatch(rawData) {
			return c, nil
		}
	}
	return candidates[0], nil
}

// LookupEnum returns the label for value within the named enumeration.
func (d *Dictionary) LookupEnum(name string, value int64) (string, error) {
	values, ok := d.enums[name]
	if !ok {
		return "", ErrNotGenerated
	}
	label, ok := values[value]
	if !ok {
		return "", ErrNotGenerated
	}
	return label, nil
}

// FormatHint reports the unit and scale a caller should use when
// presenting a decoded field value (spec §4.1: "FormatHint(field) →
// unit/scale").
type FormatHint struct {
	Unit       string
	Resolution float64
}

// FormatHintFor returns the display hint for field f.
func FormatHintFor(f Field) FormatHint {
	return FormatHint{Unit: f.Unit, Resolution: f.Resolution}
}
