package attendance

import (
	"errors"
	"fmt"
	"strings"
)

// Flag is a tri-state attendance answer for a single event.
type Flag int8

const (
	// Unknown means the guest has not answered for the event.
	Unknown Flag = iota
	// Yes means the guest attends the event.
	Yes
	// No means the guest does not attend the event.
	No
)

// FlagFromBool converts a nullable storage boolean into a Flag.
func FlagFromBool(value *bool) Flag {
	if value == nil {
		return Unknown
	}
	if *value {
		return Yes
	}
	return No
}

// Bool converts the flag back into a nullable storage boolean.
func (f Flag) Bool() *bool {
	switch f {
	case Yes:
		v := true
		return &v
	case No:
		v := false
		return &v
	default:
		return nil
	}
}

func (f Flag) String() string {
	switch f {
	case Yes:
		return "yes"
	case No:
		return "no"
	default:
		return "unknown"
	}
}

// Choice is the legacy exclusive attendance vocabulary.
type Choice string

const (
	// ChoiceUnknown is the empty choice; it is never persisted as a value.
	ChoiceUnknown  Choice = ""
	ChoiceCeremony Choice = "ceremony"
	ChoiceLunch    Choice = "lunch"
	ChoiceDecline  Choice = "decline"
)

// ErrInvalidChoice indicates a value outside the closed attendance choice set.
var ErrInvalidChoice = errors.New("attendance: invalid choice")

// ParseChoice validates raw input against the closed choice set.
func ParseChoice(raw string) (Choice, error) {
	choice := Choice(strings.TrimSpace(raw))
	if !choice.Valid() {
		return ChoiceUnknown, fmt.Errorf("%w: %q", ErrInvalidChoice, raw)
	}
	return choice, nil
}

// Valid reports whether the choice is one of ceremony, lunch or decline.
func (c Choice) Valid() bool {
	switch c {
	case ChoiceCeremony, ChoiceLunch, ChoiceDecline:
		return true
	default:
		return false
	}
}

// ChoiceFromString converts a nullable stored choice. Unrecognised values read as unknown.
func ChoiceFromString(value *string) Choice {
	if value == nil {
		return ChoiceUnknown
	}
	choice := Choice(*value)
	if !choice.Valid() {
		return ChoiceUnknown
	}
	return choice
}

// Pointer returns a nullable storage value; unknown maps to nil.
func (c Choice) Pointer() *string {
	if !c.Valid() {
		return nil
	}
	v := string(c)
	return &v
}

// State is the canonical per-event attendance of one guest. The legacy
// fields are projections of it and are never stored independently.
type State struct {
	Ceremony Flag
	Lunch    Flag
}

// Attending projects the state onto the legacy single boolean.
func (s State) Attending() Flag {
	if s.Ceremony == Yes || s.Lunch == Yes {
		return Yes
	}
	if s.Ceremony == No && s.Lunch == No {
		return No
	}
	return Unknown
}

// Choice projects the state onto the legacy exclusive choice. Attending both
// events has no legacy representation and yields ChoiceUnknown.
func (s State) Choice() Choice {
	switch {
	case s.Ceremony == No && s.Lunch == No:
		return ChoiceDecline
	case s.Ceremony == Yes && s.Lunch != Yes:
		return ChoiceCeremony
	case s.Lunch == Yes && s.Ceremony != Yes:
		return ChoiceLunch
	default:
		return ChoiceUnknown
	}
}

// Declined reports whether the guest answered no to every event.
func (s State) Declined() bool {
	return s.Ceremony == No && s.Lunch == No
}

func (s State) String() string {
	return fmt.Sprintf("(ceremony=%s, lunch=%s)", s.Ceremony, s.Lunch)
}
