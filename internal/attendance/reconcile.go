package attendance

// Vocabulary identifies which representation drove a reconciliation.
type Vocabulary string

const (
	VocabularyNone     Vocabulary = "none"
	VocabularyPerEvent Vocabulary = "per_event"
	VocabularyChoice   Vocabulary = "choice"
	VocabularyLegacy   Vocabulary = "legacy"
)

// choiceStates expands the legacy exclusive choice onto both events.
var choiceStates = map[Choice]State{
	ChoiceCeremony: {Ceremony: Yes, Lunch: No},
	ChoiceLunch:    {Ceremony: No, Lunch: Yes},
	ChoiceDecline:  {Ceremony: No, Lunch: No},
}

// FromChoice maps a legacy choice onto the per-event pair. Unknown choices
// map to the fully unknown state.
func FromChoice(choice Choice) State {
	return choiceStates[choice]
}

// FromLegacy maps the legacy single boolean onto the per-event pair. A
// positive answer only resolves the ceremony; lunch stays unknown.
func FromLegacy(attending bool) State {
	if attending {
		return State{Ceremony: Yes, Lunch: Unknown}
	}
	return State{Ceremony: No, Lunch: No}
}

// Update is a sparse attendance change. Nil fields were not supplied.
type Update struct {
	AttendCeremony   *bool
	AttendLunch      *bool
	AttendanceChoice *Choice
	Attending        *bool
}

// Vocabulary reports which representation wins for this update.
func (u Update) Vocabulary() Vocabulary {
	switch {
	case u.AttendCeremony != nil || u.AttendLunch != nil:
		return VocabularyPerEvent
	case u.AttendanceChoice != nil:
		return VocabularyChoice
	case u.Attending != nil:
		return VocabularyLegacy
	default:
		return VocabularyNone
	}
}

// Touched reports whether any attendance vocabulary is present.
func (u Update) Touched() bool {
	return u.Vocabulary() != VocabularyNone
}

// Outcome is the result of reconciling one guest.
type Outcome struct {
	Previous   State
	Current    State
	Vocabulary Vocabulary
}

// Touched reports whether the update carried attendance data.
func (o Outcome) Touched() bool {
	return o.Vocabulary != VocabularyNone
}

// Changed reports whether the per-event state differs from before.
func (o Outcome) Changed() bool {
	return o.Previous != o.Current
}

// Attending is the derived legacy boolean for the resulting state.
func (o Outcome) Attending() Flag {
	return o.Current.Attending()
}

// Choice is the derived legacy choice for the resulting state.
func (o Outcome) Choice() Choice {
	return o.Current.Choice()
}

// Apply resolves an update against the current state. Per-event fields win
// over the legacy choice, which wins over the legacy boolean; lower ranked
// vocabularies in the same update are ignored.
func Apply(current State, update Update) Outcome {
	outcome := Outcome{Previous: current, Current: current, Vocabulary: update.Vocabulary()}

	switch outcome.Vocabulary {
	case VocabularyPerEvent:
		if update.AttendCeremony != nil {
			outcome.Current.Ceremony = FlagFromBool(update.AttendCeremony)
		}
		if update.AttendLunch != nil {
			outcome.Current.Lunch = FlagFromBool(update.AttendLunch)
		}
	case VocabularyChoice:
		outcome.Current = FromChoice(*update.AttendanceChoice)
	case VocabularyLegacy:
		outcome.Current = FromLegacy(*update.Attending)
	}

	return outcome
}
