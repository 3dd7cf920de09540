package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wedding-rsvp/backend/internal/rsvp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var errMissingDatabase = errors.New("seed: database handle is required")

// Options controls how a plan is written.
type Options struct {
	// Reset deletes every guest and family first. The vote ledger is kept.
	Reset  bool
	Clock  func() time.Time
	Logger *zap.Logger
}

// Result summarises an import.
type Result struct {
	Families int
	Guests   int
}

// Apply writes the plan in a single transaction.
func Apply(ctx context.Context, db *gorm.DB, plan Plan, opts Options) (Result, error) {
	if db == nil {
		return Result{}, errMissingDatabase
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := clock().UTC()

	var result Result
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if opts.Reset {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&rsvp.Guest{}).Error; err != nil {
				return fmt.Errorf("seed: clear guests: %w", err)
			}
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&rsvp.Family{}).Error; err != nil {
				return fmt.Errorf("seed: clear families: %w", err)
			}
		}

		for _, familyPlan := range plan.Families {
			family := rsvp.Family{FamilyName: familyPlan.Name, CreatedAt: now}
			if err := tx.Omit("Guests").Create(&family).Error; err != nil {
				return fmt.Errorf("seed: create family %q: %w", familyPlan.Name, err)
			}
			for _, name := range familyPlan.Members {
				guest := rsvp.Guest{Name: name, FamilyID: &family.ID, UpdatedAt: now}
				if err := tx.Create(&guest).Error; err != nil {
					return fmt.Errorf("seed: create guest %q: %w", name, err)
				}
			}
			result.Families++
			result.Guests += len(familyPlan.Members)
			logger.Debug("seeded family",
				zap.String("family", familyPlan.Name),
				zap.Int("members", len(familyPlan.Members)))
		}

		for _, name := range plan.Individuals {
			guest := rsvp.Guest{Name: name, UpdatedAt: now}
			if err := tx.Create(&guest).Error; err != nil {
				return fmt.Errorf("seed: create guest %q: %w", name, err)
			}
			result.Guests++
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	logger.Info("guest list seeded",
		zap.Int("families", result.Families),
		zap.Int("guests", result.Guests),
		zap.Bool("reset", opts.Reset))
	return result, nil
}
