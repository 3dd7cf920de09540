package database

import (
	"path/filepath"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/wedding-rsvp/backend/internal/rsvp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func boolPointer(value bool) *bool {
	return &value
}

func stringPointer(value string) *string {
	return &value
}

func TestApplyMigrationsBackfillsEventAttendance(testContext *testing.T) {
	tempDir := testContext.TempDir()
	databasePath := filepath.Join(tempDir, "migration.db")

	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}

	if err := database.AutoMigrate(&rsvp.Family{}, &rsvp.Guest{}, &migrationRecord{}); err != nil {
		testContext.Fatalf("failed to migrate schema: %v", err)
	}

	legacy := []rsvp.Guest{
		{Name: "choice lunch", AttendanceChoice: stringPointer("lunch"), Attending: boolPointer(true)},
		{Name: "attending yes", Attending: boolPointer(true)},
		{Name: "attending no", Attending: boolPointer(false)},
		{Name: "per event kept", AttendCeremony: boolPointer(true), AttendLunch: boolPointer(true), AttendanceChoice: stringPointer("ceremony")},
		{Name: "never answered"},
	}
	if err := database.Create(&legacy).Error; err != nil {
		testContext.Fatalf("failed to insert guests: %v", err)
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}

	testCases := []struct {
		name          string
		wantCeremony  *bool
		wantLunch     *bool
		wantAttending *bool
		wantChoice    *string
	}{
		{name: "choice lunch", wantCeremony: boolPointer(false), wantLunch: boolPointer(true), wantAttending: boolPointer(true), wantChoice: stringPointer("lunch")},
		{name: "attending yes", wantCeremony: boolPointer(true), wantAttending: boolPointer(true), wantChoice: stringPointer("ceremony")},
		{name: "attending no", wantCeremony: boolPointer(false), wantLunch: boolPointer(false), wantAttending: boolPointer(false), wantChoice: stringPointer("decline")},
		{name: "per event kept", wantCeremony: boolPointer(true), wantLunch: boolPointer(true), wantAttending: boolPointer(true)},
		{name: "never answered"},
	}

	for _, testCase := range testCases {
		testContext.Run(testCase.name, func(t *testing.T) {
			var stored rsvp.Guest
			if err := database.Where("name = ?", testCase.name).Take(&stored).Error; err != nil {
				t.Fatalf("failed to reload guest: %v", err)
			}
			assertBool(t, "attend_ceremony", testCase.wantCeremony, stored.AttendCeremony)
			assertBool(t, "attend_lunch", testCase.wantLunch, stored.AttendLunch)
			assertBool(t, "attending", testCase.wantAttending, stored.Attending)
			assertString(t, "attendance_choice", testCase.wantChoice, stored.AttendanceChoice)
		})
	}

	var record migrationRecord
	if err := database.Where("name = ?", migrationBackfillEventAttendance).Take(&record).Error; err != nil {
		testContext.Fatalf("expected migration record to be created: %v", err)
	}
	if record.AppliedAtSeconds == 0 {
		testContext.Fatalf("expected migration timestamp to be set")
	}
}

func TestApplyMigrationsRunsOnce(testContext *testing.T) {
	database, err := OpenSQLite(filepath.Join(testContext.TempDir(), "once.db"), zap.NewNop())
	if err != nil {
		testContext.Fatalf("failed to open database: %v", err)
	}

	guest := rsvp.Guest{Name: "late legacy row", Attending: boolPointer(false)}
	if err := database.Create(&guest).Error; err != nil {
		testContext.Fatalf("failed to insert guest: %v", err)
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to reapply migrations: %v", err)
	}

	var stored rsvp.Guest
	if err := database.First(&stored, guest.ID).Error; err != nil {
		testContext.Fatalf("failed to reload guest: %v", err)
	}
	if stored.AttendCeremony != nil {
		testContext.Fatalf("expected applied migration to be skipped, got attend_ceremony=%v", *stored.AttendCeremony)
	}

	var count int64
	if err := database.Model(&migrationRecord{}).Count(&count).Error; err != nil {
		testContext.Fatalf("failed to count migrations: %v", err)
	}
	if count != 1 {
		testContext.Fatalf("expected one migration record, got %d", count)
	}
}

func assertBool(t *testing.T, field string, want, got *bool) {
	t.Helper()
	switch {
	case want == nil && got == nil:
	case want == nil || got == nil:
		t.Fatalf("%s: expected %v, got %v", field, want, got)
	case *want != *got:
		t.Fatalf("%s: expected %t, got %t", field, *want, *got)
	}
}

func assertString(t *testing.T, field string, want, got *string) {
	t.Helper()
	switch {
	case want == nil && got == nil:
	case want == nil || got == nil:
		t.Fatalf("%s: expected %v, got %v", field, want, got)
	case *want != *got:
		t.Fatalf("%s: expected %q, got %q", field, *want, *got)
	}
}
