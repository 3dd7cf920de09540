package database

import (
	"errors"
	"time"

	"github.com/wedding-rsvp/backend/internal/attendance"
	"github.com/wedding-rsvp/backend/internal/rsvp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationBackfillEventAttendance = "2026-02-26_backfill_event_attendance"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationBackfillEventAttendance, apply: backfillEventAttendance},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := db.Transaction(migration.apply); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// backfillEventAttendance gives rows written before the per-event columns
// existed a per-event state derived from the legacy choice, or failing that
// the legacy boolean, then rewrites both legacy columns from it.
func backfillEventAttendance(db *gorm.DB) error {
	var guests []rsvp.Guest
	return db.Model(&rsvp.Guest{}).FindInBatches(&guests, 200, func(tx *gorm.DB, _ int) error {
		for _, guest := range guests {
			state := legacyState(guest)
			err := tx.Model(&rsvp.Guest{}).Where("id = ?", guest.ID).Updates(map[string]any{
				"attend_ceremony":   state.Ceremony.Bool(),
				"attend_lunch":      state.Lunch.Bool(),
				"attending":         state.Attending().Bool(),
				"attendance_choice": state.Choice().Pointer(),
			}).Error
			if err != nil {
				return err
			}
		}
		return nil
	}).Error
}

func legacyState(guest rsvp.Guest) attendance.State {
	if guest.AttendCeremony != nil || guest.AttendLunch != nil {
		return guest.State()
	}
	if choice := attendance.ChoiceFromString(guest.AttendanceChoice); choice.Valid() {
		return attendance.FromChoice(choice)
	}
	if guest.Attending != nil {
		return attendance.FromLegacy(*guest.Attending)
	}
	return attendance.State{}
}
