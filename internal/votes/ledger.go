package votes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// ScopeType names the voting unit a ledger entry belongs to.
type ScopeType string

const (
	ScopeFamily ScopeType = "family"
	ScopeGuest  ScopeType = "guest"
)

var (
	// ErrStorage indicates the ledger could not be read or appended.
	ErrStorage = errors.New("votes: storage failure")
	// ErrMissingDatabase indicates the ledger was called without a handle.
	ErrMissingDatabase = errors.New("votes: database handle is required")
)

// Scope is the voting unit: a whole family, or a guest without one.
type Scope struct {
	Type ScopeType
	ID   uint
}

// ScopeFor derives the voting scope of a guest. Grouped guests vote as their
// family so that a household is never flagged against itself.
func ScopeFor(familyID *uint, guestID uint) Scope {
	if familyID != nil {
		return Scope{Type: ScopeFamily, ID: *familyID}
	}
	return Scope{Type: ScopeGuest, ID: guestID}
}

// FamilyScope returns the scope shared by every member of a family.
func FamilyScope(familyID uint) Scope {
	return Scope{Type: ScopeFamily, ID: familyID}
}

func (s Scope) String() string {
	return fmt.Sprintf("%s:%d", s.Type, s.ID)
}

// VoteAudit is one immutable ledger row.
type VoteAudit struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement"`
	IPAddress string    `gorm:"column:ip_address;size:190;not null;index:ix_vote_audits_ip_address"`
	ScopeType ScopeType `gorm:"column:scope_type;size:16;not null"`
	ScopeID   uint      `gorm:"column:scope_id;not null"`
	GuestID   uint      `gorm:"column:guest_id;not null;index"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (VoteAudit) TableName() string {
	return "vote_audits"
}

// Scope returns the voting scope recorded on the row.
func (v VoteAudit) Scope() Scope {
	return Scope{Type: v.ScopeType, ID: v.ScopeID}
}

// Entry is the input for one ledger append.
type Entry struct {
	IPAddress string
	Scope     Scope
	GuestID   uint
}

// Ledger appends and queries vote audit rows. It holds no connection of its
// own: callers pass the transaction the query must be consistent with.
type Ledger struct {
	clock func() time.Time
}

// NewLedger constructs a ledger stamping rows with the provided clock.
func NewLedger(clock func() time.Time) *Ledger {
	if clock == nil {
		clock = time.Now
	}
	return &Ledger{clock: clock}
}

// Record appends one entry. There is no uniqueness constraint.
func (l *Ledger) Record(ctx context.Context, tx *gorm.DB, entry Entry) error {
	if tx == nil {
		return ErrMissingDatabase
	}
	row := VoteAudit{
		IPAddress: normalizeIP(entry.IPAddress),
		ScopeType: entry.Scope.Type,
		ScopeID:   entry.Scope.ID,
		GuestID:   entry.GuestID,
		CreatedAt: l.clock().UTC(),
	}
	if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("%w: record: %w", ErrStorage, err)
	}
	return nil
}

// HasOtherScope reports whether the address has voted before under any scope
// other than the given one. It must run before the current request's entries
// are recorded.
func (l *Ledger) HasOtherScope(ctx context.Context, tx *gorm.DB, ipAddress string, scope Scope) (bool, error) {
	if tx == nil {
		return false, ErrMissingDatabase
	}
	var count int64
	err := tx.WithContext(ctx).
		Model(&VoteAudit{}).
		Where("ip_address = ?", normalizeIP(ipAddress)).
		Where("NOT (scope_type = ? AND scope_id = ?)", scope.Type, scope.ID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("%w: query: %w", ErrStorage, err)
	}
	return count > 0, nil
}

// ListByIP returns the rows recorded for an address, oldest first. An empty
// address lists every row. A non-positive limit means no limit.
func (l *Ledger) ListByIP(ctx context.Context, db *gorm.DB, ipAddress string, limit int) ([]VoteAudit, error) {
	if db == nil {
		return nil, ErrMissingDatabase
	}
	query := db.WithContext(ctx).Order("id ASC")
	if address := normalizeIP(ipAddress); address != "" {
		query = query.Where("ip_address = ?", address)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []VoteAudit
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: list: %w", ErrStorage, err)
	}
	return rows, nil
}

func normalizeIP(value string) string {
	return strings.TrimSpace(value)
}
