package rsvp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/wedding-rsvp/backend/internal/attendance"
	"github.com/wedding-rsvp/backend/internal/metrics"
	"github.com/wedding-rsvp/backend/internal/validation"
	"github.com/wedding-rsvp/backend/internal/votes"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var noOpLogger = zap.NewNop()

// ServiceConfig wires the RSVP service dependencies.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
	Metrics  *metrics.Collectors
}

// Service applies guest and family RSVPs, keeps the vote ledger and serves
// the read models.
type Service struct {
	db       *gorm.DB
	clock    func() time.Time
	ledger   *votes.Ledger
	detector detector
	logger   *zap.Logger
	metrics  *metrics.Collectors
}

// NewService validates the configuration and constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	ledger := votes.NewLedger(clock)
	return &Service{
		db:       cfg.Database,
		clock:    clock,
		ledger:   ledger,
		detector: detector{ledger: ledger, logger: logger, metrics: cfg.Metrics},
		logger:   logger,
		metrics:  cfg.Metrics,
	}, nil
}

// GuestResult is the outcome of a single guest RSVP.
type GuestResult struct {
	Guest     Guest
	Outcome   attendance.Outcome
	Detection Detection
}

// FamilyResult is the outcome of a family bulk RSVP.
type FamilyResult struct {
	Family    Family
	Outcomes  map[uint]attendance.Outcome
	Detection Detection
}

// UpdateGuest applies a sparse RSVP to one guest. When the update carries
// attendance data the cross-scope check runs first, then one ledger row is
// appended for the guest. Everything commits or rolls back together.
func (s *Service) UpdateGuest(ctx context.Context, ipAddress string, guestID uint, update GuestUpdate) (GuestResult, error) {
	update, err := s.normalizeGuestUpdate(opUpdateGuest, update)
	if err != nil {
		return GuestResult{}, err
	}

	var result GuestResult
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		guest, err := s.loadGuest(tx, opUpdateGuest, guestID)
		if err != nil {
			return err
		}

		scope := guest.VoteScope()
		if update.Attendance.Touched() {
			result.Detection, err = s.detector.check(ctx, tx, ipAddress, scope)
			if err != nil {
				s.logError(opUpdateGuest, "ledger_query_failed", err, zap.Uint("guest_id", guestID))
				return storageError(opUpdateGuest, "ledger_query_failed", err)
			}
		}

		result.Outcome = ApplyUpdate(&guest, update)
		guest.UpdatedAt = s.clock().UTC()

		if result.Outcome.Touched() {
			if err := s.detector.record(ctx, tx, ipAddress, scope, guest.ID); err != nil {
				s.logError(opUpdateGuest, "ledger_append_failed", err, zap.Uint("guest_id", guestID))
				return storageError(opUpdateGuest, "ledger_append_failed", err)
			}
		}

		if err := tx.Save(&guest).Error; err != nil {
			s.logError(opUpdateGuest, "guest_save_failed", err, zap.Uint("guest_id", guestID))
			return storageError(opUpdateGuest, "guest_save_failed", err)
		}
		result.Guest = guest
		return nil
	})
	if txErr != nil {
		return GuestResult{}, txErr
	}

	if result.Outcome.Touched() {
		s.metrics.AttendanceUpdated(string(result.Outcome.Vocabulary))
	}
	return result, nil
}

// UpdateFamilyGuests applies a bulk RSVP to members of a family. All entries
// share the family scope, so one cross-scope check covers the request. Guest
// ids that are not members of the family are skipped.
func (s *Service) UpdateFamilyGuests(ctx context.Context, ipAddress string, familyID uint, updates map[uint]attendance.BulkValue) (FamilyResult, error) {
	result := FamilyResult{Outcomes: make(map[uint]attendance.Outcome, len(updates))}
	scope := votes.FamilyScope(familyID)

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		family, err := s.loadFamily(tx, opUpdateFamilyGuests, familyID)
		if err != nil {
			return err
		}

		members := make(map[uint]*Guest, len(family.Guests))
		for i := range family.Guests {
			members[family.Guests[i].ID] = &family.Guests[i]
		}

		affected := make([]uint, 0, len(updates))
		for guestID := range updates {
			if _, ok := members[guestID]; ok {
				affected = append(affected, guestID)
			}
		}
		sort.Slice(affected, func(i, j int) bool { return affected[i] < affected[j] })

		if len(affected) > 0 {
			result.Detection, err = s.detector.check(ctx, tx, ipAddress, scope)
			if err != nil {
				s.logError(opUpdateFamilyGuests, "ledger_query_failed", err, zap.Uint("family_id", familyID))
				return storageError(opUpdateFamilyGuests, "ledger_query_failed", err)
			}
		}

		updatedAt := s.clock().UTC()
		for _, guestID := range affected {
			guest := members[guestID]
			result.Outcomes[guestID] = applyBulk(guest, updates[guestID])
			guest.UpdatedAt = updatedAt

			if err := s.detector.record(ctx, tx, ipAddress, scope, guestID); err != nil {
				s.logError(opUpdateFamilyGuests, "ledger_append_failed", err,
					zap.Uint("family_id", familyID),
					zap.Uint("guest_id", guestID))
				return storageError(opUpdateFamilyGuests, "ledger_append_failed", err)
			}
			if err := tx.Save(guest).Error; err != nil {
				s.logError(opUpdateFamilyGuests, "guest_save_failed", err,
					zap.Uint("family_id", familyID),
					zap.Uint("guest_id", guestID))
				return storageError(opUpdateFamilyGuests, "guest_save_failed", err)
			}
		}

		result.Family = family
		return nil
	})
	if txErr != nil {
		return FamilyResult{}, txErr
	}

	for _, outcome := range result.Outcomes {
		s.metrics.AttendanceUpdated(string(outcome.Vocabulary))
	}
	return result, nil
}

// ListFamilies returns every family with its members, ordered by id.
func (s *Service) ListFamilies(ctx context.Context) ([]Family, error) {
	var families []Family
	if err := s.db.WithContext(ctx).
		Preload("Guests", orderByID).
		Order("id ASC").
		Find(&families).Error; err != nil {
		s.logError(opListFamilies, "query_failed", err)
		return nil, storageError(opListFamilies, "query_failed", err)
	}
	return families, nil
}

// ListIndividualGuests returns guests that do not belong to a family.
func (s *Service) ListIndividualGuests(ctx context.Context) ([]Guest, error) {
	guests, err := s.individualGuests(s.db.WithContext(ctx))
	if err != nil {
		s.logError(opListGuests, "query_failed", err)
		return nil, storageError(opListGuests, "query_failed", err)
	}
	return guests, nil
}

// Stats counts answers from the legacy attending field.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var row struct {
		Total     int64
		Confirmed int64
		Declined  int64
		Pending   int64
	}
	err := s.db.WithContext(ctx).
		Model(&Guest{}).
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN attending = ? THEN 1 ELSE 0 END), 0) AS confirmed,
			COALESCE(SUM(CASE WHEN attending = ? THEN 1 ELSE 0 END), 0) AS declined,
			COALESCE(SUM(CASE WHEN attending IS NULL THEN 1 ELSE 0 END), 0) AS pending`, true, false).
		Scan(&row).Error
	if err != nil {
		s.logError(opStats, "query_failed", err)
		return Stats{}, storageError(opStats, "query_failed", err)
	}
	return Stats{
		TotalGuests: row.Total,
		Confirmed:   row.Confirmed,
		Declined:    row.Declined,
		Pending:     row.Pending,
	}, nil
}

func (s *Service) normalizeGuestUpdate(operation string, update GuestUpdate) (GuestUpdate, error) {
	if choice := update.Attendance.AttendanceChoice; choice != nil && !choice.Valid() {
		err := fmt.Errorf("%w: %w: %q", ErrValidation, attendance.ErrInvalidChoice, string(*choice))
		return update, newServiceError(operation, "invalid_attendance_choice", err)
	}
	if update.Allergens != nil {
		normalized, err := validation.NormalizeAllergens(*update.Allergens)
		if err != nil {
			return update, newServiceError(operation, "invalid_allergens", fmt.Errorf("%w: %w", ErrValidation, err))
		}
		update.Allergens = &normalized
	}
	return update, nil
}

func (s *Service) loadGuest(tx *gorm.DB, operation string, guestID uint) (Guest, error) {
	var guest Guest
	err := tx.Where("id = ?", guestID).Take(&guest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Guest{}, newServiceError(operation, "guest_not_found", ErrGuestNotFound)
	}
	if err != nil {
		s.logError(operation, "guest_select_failed", err, zap.Uint("guest_id", guestID))
		return Guest{}, storageError(operation, "guest_select_failed", err)
	}
	return guest, nil
}

func (s *Service) loadFamily(tx *gorm.DB, operation string, familyID uint) (Family, error) {
	var family Family
	err := tx.Preload("Guests", orderByID).Where("id = ?", familyID).Take(&family).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Family{}, newServiceError(operation, "family_not_found", ErrFamilyNotFound)
	}
	if err != nil {
		s.logError(operation, "family_select_failed", err, zap.Uint("family_id", familyID))
		return Family{}, storageError(operation, "family_select_failed", err)
	}
	return family, nil
}

func (s *Service) individualGuests(db *gorm.DB) ([]Guest, error) {
	var guests []Guest
	err := db.Where("family_id IS NULL").Order("id ASC").Find(&guests).Error
	return guests, err
}

func orderByID(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil {
		return noOpLogger
	}
	if s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("rsvp service error", attrs...)
}
