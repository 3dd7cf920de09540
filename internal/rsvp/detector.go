package rsvp

import (
	"context"

	"github.com/wedding-rsvp/backend/internal/metrics"
	"github.com/wedding-rsvp/backend/internal/votes"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MultiGroupWarning is surfaced to clients that already voted for another
// guest group. It never blocks the update.
const MultiGroupWarning = "This device has already submitted RSVPs for another guest group."

// Detection is the result of the cross-scope check for one request.
type Detection struct {
	IPAddress  string
	Scope      votes.Scope
	MultiGroup bool
}

// Warning returns the client-facing warning, or "" when nothing was detected.
func (d Detection) Warning() string {
	if !d.MultiGroup {
		return ""
	}
	return MultiGroupWarning
}

type detector struct {
	ledger  *votes.Ledger
	logger  *zap.Logger
	metrics *metrics.Collectors
}

// check must run inside the request transaction before any entry of the
// same request is recorded.
func (d detector) check(ctx context.Context, tx *gorm.DB, ipAddress string, scope votes.Scope) (Detection, error) {
	detection := Detection{IPAddress: ipAddress, Scope: scope}
	other, err := d.ledger.HasOtherScope(ctx, tx, ipAddress, scope)
	if err != nil {
		return detection, err
	}
	if other {
		detection.MultiGroup = true
		d.metrics.MultiGroupWarning()
		d.logger.Warn("multi-group vote detected",
			zap.String("ip", ipAddress),
			zap.String("scope_type", string(scope.Type)),
			zap.Uint("scope_id", scope.ID))
	}
	return detection, nil
}

// record appends one ledger row for a guest whose attendance was touched.
func (d detector) record(ctx context.Context, tx *gorm.DB, ipAddress string, scope votes.Scope, guestID uint) error {
	if err := d.ledger.Record(ctx, tx, votes.Entry{IPAddress: ipAddress, Scope: scope, GuestID: guestID}); err != nil {
		return err
	}
	d.metrics.VoteRecorded(string(scope.Type))
	return nil
}
