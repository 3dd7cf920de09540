package rsvp

import (
	"context"
	"fmt"
	"strings"

	"github.com/wedding-rsvp/backend/internal/votes"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AdminData is the full guest list as shown to the organisers.
type AdminData struct {
	Families    []Family
	Individuals []Guest
}

// FamilyAssignment moves a guest between families. Set distinguishes an
// explicit detach (ID nil) from leaving the family unchanged.
type FamilyAssignment struct {
	Set bool
	ID  *uint
}

// AdminGuestInput is a sparse administrative guest change. Attendance runs
// through the same reconciliation as guest RSVPs but is not a vote.
type AdminGuestInput struct {
	Name       *string
	Family     FamilyAssignment
	RSVP       GuestUpdate
	AdminNotes *string
}

// AdminData returns every family with members plus the individual guests.
func (s *Service) AdminData(ctx context.Context) (AdminData, error) {
	families, err := s.ListFamilies(ctx)
	if err != nil {
		return AdminData{}, err
	}
	individuals, err := s.individualGuests(s.db.WithContext(ctx))
	if err != nil {
		s.logError(opAdminData, "query_failed", err)
		return AdminData{}, storageError(opAdminData, "query_failed", err)
	}
	return AdminData{Families: families, Individuals: individuals}, nil
}

// CreateGuest adds a guest. A name is required.
func (s *Service) CreateGuest(ctx context.Context, input AdminGuestInput) (Guest, error) {
	if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		return Guest{}, newServiceError(opCreateGuest, "missing_name", fmt.Errorf("%w: guest name is required", ErrValidation))
	}
	rsvpUpdate, err := s.normalizeGuestUpdate(opCreateGuest, input.RSVP)
	if err != nil {
		return Guest{}, err
	}
	input.RSVP = rsvpUpdate

	guest := Guest{}
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.applyAdminInput(tx, opCreateGuest, &guest, input); err != nil {
			return err
		}
		if err := tx.Create(&guest).Error; err != nil {
			s.logError(opCreateGuest, "guest_insert_failed", err)
			return storageError(opCreateGuest, "guest_insert_failed", err)
		}
		return nil
	})
	if txErr != nil {
		return Guest{}, txErr
	}
	return guest, nil
}

// UpdateGuestAdmin applies an administrative change without touching the vote ledger.
func (s *Service) UpdateGuestAdmin(ctx context.Context, guestID uint, input AdminGuestInput) (Guest, error) {
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return Guest{}, newServiceError(opAdminUpdateGuest, "missing_name", fmt.Errorf("%w: guest name is required", ErrValidation))
	}
	rsvpUpdate, err := s.normalizeGuestUpdate(opAdminUpdateGuest, input.RSVP)
	if err != nil {
		return Guest{}, err
	}
	input.RSVP = rsvpUpdate

	var guest Guest
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		guest, err = s.loadGuest(tx, opAdminUpdateGuest, guestID)
		if err != nil {
			return err
		}
		if err := s.applyAdminInput(tx, opAdminUpdateGuest, &guest, input); err != nil {
			return err
		}
		if err := tx.Save(&guest).Error; err != nil {
			s.logError(opAdminUpdateGuest, "guest_save_failed", err, zap.Uint("guest_id", guestID))
			return storageError(opAdminUpdateGuest, "guest_save_failed", err)
		}
		return nil
	})
	if txErr != nil {
		return Guest{}, txErr
	}
	return guest, nil
}

// DeleteGuest removes a guest. Ledger rows referencing it are kept.
func (s *Service) DeleteGuest(ctx context.Context, guestID uint) error {
	result := s.db.WithContext(ctx).Where("id = ?", guestID).Delete(&Guest{})
	if result.Error != nil {
		s.logError(opDeleteGuest, "guest_delete_failed", result.Error, zap.Uint("guest_id", guestID))
		return storageError(opDeleteGuest, "guest_delete_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return newServiceError(opDeleteGuest, "guest_not_found", ErrGuestNotFound)
	}
	return nil
}

// CreateFamily adds an empty family.
func (s *Service) CreateFamily(ctx context.Context, name string) (Family, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Family{}, newServiceError(opCreateFamily, "missing_name", fmt.Errorf("%w: family name is required", ErrValidation))
	}
	family := Family{FamilyName: name, CreatedAt: s.clock().UTC()}
	if err := s.db.WithContext(ctx).Omit("Guests").Create(&family).Error; err != nil {
		s.logError(opCreateFamily, "family_insert_failed", err)
		return Family{}, storageError(opCreateFamily, "family_insert_failed", err)
	}
	family.Guests = []Guest{}
	return family, nil
}

// RenameFamily updates the family name. An empty name leaves it unchanged.
func (s *Service) RenameFamily(ctx context.Context, familyID uint, name string) (Family, error) {
	var family Family
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		family, err = s.loadFamily(tx, opRenameFamily, familyID)
		if err != nil {
			return err
		}
		name = strings.TrimSpace(name)
		if name == "" || name == family.FamilyName {
			return nil
		}
		if err := tx.Model(&Family{}).Where("id = ?", familyID).Update("family_name", name).Error; err != nil {
			s.logError(opRenameFamily, "family_update_failed", err, zap.Uint("family_id", familyID))
			return storageError(opRenameFamily, "family_update_failed", err)
		}
		family.FamilyName = name
		return nil
	})
	if txErr != nil {
		return Family{}, txErr
	}
	return family, nil
}

// DeleteFamily removes a family; its members become individual guests.
func (s *Service) DeleteFamily(ctx context.Context, familyID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.loadFamily(tx, opDeleteFamily, familyID); err != nil {
			return err
		}
		if err := tx.Model(&Guest{}).Where("family_id = ?", familyID).Update("family_id", nil).Error; err != nil {
			s.logError(opDeleteFamily, "guest_detach_failed", err, zap.Uint("family_id", familyID))
			return storageError(opDeleteFamily, "guest_detach_failed", err)
		}
		if err := tx.Where("id = ?", familyID).Delete(&Family{}).Error; err != nil {
			s.logError(opDeleteFamily, "family_delete_failed", err, zap.Uint("family_id", familyID))
			return storageError(opDeleteFamily, "family_delete_failed", err)
		}
		return nil
	})
}

// ListVotes returns ledger rows for an address, oldest first. An empty
// address lists every row.
func (s *Service) ListVotes(ctx context.Context, ipAddress string, limit int) ([]votes.VoteAudit, error) {
	rows, err := s.ledger.ListByIP(ctx, s.db, ipAddress, limit)
	if err != nil {
		s.logError(opListVotes, "query_failed", err, zap.String("ip", ipAddress))
		return nil, storageError(opListVotes, "query_failed", err)
	}
	return rows, nil
}

func (s *Service) applyAdminInput(tx *gorm.DB, operation string, guest *Guest, input AdminGuestInput) error {
	if input.Family.Set && input.Family.ID != nil {
		var count int64
		if err := tx.Model(&Family{}).Where("id = ?", *input.Family.ID).Count(&count).Error; err != nil {
			s.logError(operation, "family_select_failed", err, zap.Uint("family_id", *input.Family.ID))
			return storageError(operation, "family_select_failed", err)
		}
		if count == 0 {
			return newServiceError(operation, "target_family_not_found", fmt.Errorf("%w: family %d", ErrUnknownFamily, *input.Family.ID))
		}
	}

	if input.Name != nil {
		guest.Name = strings.TrimSpace(*input.Name)
	}
	if input.Family.Set {
		if input.Family.ID == nil {
			guest.FamilyID = nil
		} else {
			familyID := *input.Family.ID
			guest.FamilyID = &familyID
		}
	}
	if input.AdminNotes != nil {
		notes := *input.AdminNotes
		guest.AdminNotes = &notes
	}
	ApplyUpdate(guest, input.RSVP)
	guest.UpdatedAt = s.clock().UTC()
	return nil
}
