package attendance

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// BulkKind tags the variant carried by a BulkValue.
type BulkKind uint8

const (
	// BulkUnset clears the guest's answer. It is the zero value.
	BulkUnset BulkKind = iota
	// BulkChoice carries a legacy exclusive choice.
	BulkChoice
	// BulkLegacy carries a legacy single boolean.
	BulkLegacy
)

// ErrInvalidBulkValue indicates a family bulk entry that is neither null, a boolean nor a known choice.
var ErrInvalidBulkValue = errors.New("attendance: invalid bulk value")

// BulkValue is one per-guest entry of a family bulk update. The variant is
// decided once when the request is decoded.
type BulkValue struct {
	kind     BulkKind
	choice   Choice
	attended bool
}

// UnsetValue returns the variant that clears a guest's answer.
func UnsetValue() BulkValue {
	return BulkValue{kind: BulkUnset}
}

// ChoiceValue returns the legacy choice variant.
func ChoiceValue(choice Choice) BulkValue {
	return BulkValue{kind: BulkChoice, choice: choice}
}

// LegacyValue returns the legacy boolean variant.
func LegacyValue(attending bool) BulkValue {
	return BulkValue{kind: BulkLegacy, attended: attending}
}

// Kind returns the variant tag.
func (v BulkValue) Kind() BulkKind {
	return v.kind
}

// State maps the value through the same tables used for single-guest updates.
func (v BulkValue) State() State {
	switch v.kind {
	case BulkChoice:
		return FromChoice(v.choice)
	case BulkLegacy:
		return FromLegacy(v.attended)
	default:
		return State{}
	}
}

// Vocabulary reports the legacy vocabulary the value belongs to.
func (v BulkValue) Vocabulary() Vocabulary {
	if v.kind == BulkChoice {
		return VocabularyChoice
	}
	return VocabularyLegacy
}

func (v BulkValue) String() string {
	switch v.kind {
	case BulkChoice:
		return string(v.choice)
	case BulkLegacy:
		return fmt.Sprintf("%t", v.attended)
	default:
		return "null"
	}
}

// ApplyBulk resolves a bulk entry against the current state. Bulk entries
// always overwrite both events.
func ApplyBulk(current State, value BulkValue) Outcome {
	return Outcome{
		Previous:   current,
		Current:    value.State(),
		Vocabulary: value.Vocabulary(),
	}
}

// UnmarshalJSON decodes null, a boolean or a choice string.
func (v *BulkValue) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0:
		return fmt.Errorf("%w: empty", ErrInvalidBulkValue)
	case bytes.Equal(trimmed, []byte("null")):
		*v = UnsetValue()
		return nil
	case bytes.Equal(trimmed, []byte("true")):
		*v = LegacyValue(true)
		return nil
	case bytes.Equal(trimmed, []byte("false")):
		*v = LegacyValue(false)
		return nil
	case trimmed[0] == '"':
		var raw string
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidBulkValue, err)
		}
		choice, err := ParseChoice(raw)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidBulkValue, err)
		}
		*v = ChoiceValue(choice)
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrInvalidBulkValue, string(trimmed))
	}
}

// MarshalJSON encodes the value back into its wire form.
func (v BulkValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case BulkChoice:
		return json.Marshal(string(v.choice))
	case BulkLegacy:
		return json.Marshal(v.attended)
	default:
		return []byte("null"), nil
	}
}
