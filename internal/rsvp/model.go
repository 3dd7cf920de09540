package rsvp

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/wedding-rsvp/backend/internal/attendance"
	"github.com/wedding-rsvp/backend/internal/votes"
)

// Family groups guests that answer together.
type Family struct {
	ID         uint      `gorm:"column:id;primaryKey;autoIncrement"`
	FamilyName string    `gorm:"column:family_name;size:190;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime:false"`
	Guests     []Guest   `gorm:"foreignKey:FamilyID"`
}

// TableName provides the explicit table binding for GORM.
func (Family) TableName() string {
	return "families"
}

// Guest is one invited person. AttendCeremony and AttendLunch are canonical;
// Attending and AttendanceChoice are written only through applyState.
type Guest struct {
	ID               uint         `gorm:"column:id;primaryKey;autoIncrement"`
	Name             string       `gorm:"column:name;size:190;not null"`
	FamilyID         *uint        `gorm:"column:family_id;index"`
	Attending        *bool        `gorm:"column:attending"`
	AttendanceChoice *string      `gorm:"column:attendance_choice;size:16"`
	AttendCeremony   *bool        `gorm:"column:attend_ceremony"`
	AttendLunch      *bool        `gorm:"column:attend_lunch"`
	DietaryNotes     *string      `gorm:"column:dietary_notes;type:text"`
	Allergens        AllergenList `gorm:"column:allergens;type:text"`
	AdminNotes       *string      `gorm:"column:admin_notes;type:text"`
	UpdatedAt        time.Time    `gorm:"column:updated_at;autoUpdateTime:false"`
}

// TableName provides the explicit table binding for GORM.
func (Guest) TableName() string {
	return "guests"
}

// State returns the canonical per-event attendance.
func (g Guest) State() attendance.State {
	return attendance.State{
		Ceremony: attendance.FlagFromBool(g.AttendCeremony),
		Lunch:    attendance.FlagFromBool(g.AttendLunch),
	}
}

// VoteScope returns the scope the guest votes under.
func (g Guest) VoteScope() votes.Scope {
	return votes.ScopeFor(g.FamilyID, g.ID)
}

// applyState writes the per-event pair and both legacy projections.
func (g *Guest) applyState(state attendance.State) {
	g.AttendCeremony = state.Ceremony.Bool()
	g.AttendLunch = state.Lunch.Bool()
	g.Attending = state.Attending().Bool()
	g.AttendanceChoice = state.Choice().Pointer()
}

// AllergenList is stored as a JSON array column.
type AllergenList []string

// Value implements driver.Valuer.
func (l AllergenList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	encoded, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(encoded), nil
}

// Scan implements sql.Scanner.
func (l *AllergenList) Scan(src any) error {
	var raw []byte
	switch value := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		raw = value
	case string:
		raw = []byte(value)
	default:
		return fmt.Errorf("rsvp: unsupported allergen column type %T", src)
	}
	if len(raw) == 0 {
		*l = nil
		return nil
	}
	var decoded []string
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("rsvp: decode allergens: %w", err)
	}
	*l = decoded
	return nil
}

// GuestUpdate is a sparse guest-facing update. Nil fields were not supplied.
type GuestUpdate struct {
	Attendance   attendance.Update
	DietaryNotes *string
	Allergens    *[]string
}

// ApplyUpdate reconciles the update onto the guest in place. Dietary notes
// and allergens bypass reconciliation; the four attendance fields are always
// rewritten from the resulting per-event state.
func ApplyUpdate(guest *Guest, update GuestUpdate) attendance.Outcome {
	outcome := attendance.Apply(guest.State(), update.Attendance)
	guest.applyState(outcome.Current)

	if update.DietaryNotes != nil {
		notes := *update.DietaryNotes
		guest.DietaryNotes = &notes
	}
	if update.Allergens != nil {
		guest.Allergens = AllergenList(append([]string{}, (*update.Allergens)...))
	}
	return outcome
}

// applyBulk reconciles one family bulk entry onto the guest in place.
func applyBulk(guest *Guest, value attendance.BulkValue) attendance.Outcome {
	outcome := attendance.ApplyBulk(guest.State(), value)
	guest.applyState(outcome.Current)
	return outcome
}

// Stats aggregates answers from the legacy attending field only.
type Stats struct {
	TotalGuests int64
	Confirmed   int64
	Declined    int64
	Pending     int64
}
