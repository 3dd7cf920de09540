package rsvp

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is the cause of every missing guest or family error.
	ErrNotFound = errors.New("rsvp: not found")
	// ErrGuestNotFound indicates an unknown guest id.
	ErrGuestNotFound = fmt.Errorf("%w: guest", ErrNotFound)
	// ErrFamilyNotFound indicates an unknown family id.
	ErrFamilyNotFound = fmt.Errorf("%w: family", ErrNotFound)
	// ErrValidation indicates input the service refuses before touching state.
	ErrValidation = errors.New("rsvp: validation failed")
	// ErrUnknownFamily indicates an admin change referencing a family that does not exist.
	ErrUnknownFamily = errors.New("rsvp: target family not found")
	// ErrStorage indicates a failed read, write or commit; the unit of work was rolled back.
	ErrStorage = errors.New("rsvp: storage failure")

	errMissingDatabase = errors.New("database handle is required")
)

// ServiceError carries an "operation.reason" code alongside the cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew         = "rsvp.service.new"
	opUpdateGuest        = "rsvp.update_guest"
	opUpdateFamilyGuests = "rsvp.update_family_guests"
	opListFamilies       = "rsvp.list_families"
	opListGuests         = "rsvp.list_guests"
	opStats              = "rsvp.stats"
	opAdminData          = "rsvp.admin_data"
	opCreateGuest        = "rsvp.create_guest"
	opAdminUpdateGuest   = "rsvp.admin_update_guest"
	opDeleteGuest        = "rsvp.delete_guest"
	opCreateFamily       = "rsvp.create_family"
	opRenameFamily       = "rsvp.rename_family"
	opDeleteFamily       = "rsvp.delete_family"
	opListVotes          = "rsvp.list_votes"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// storageError marks cause as a storage failure for the given operation.
func storageError(operation, reason string, cause error) error {
	if errors.Is(cause, ErrStorage) {
		return newServiceError(operation, reason, cause)
	}
	return newServiceError(operation, reason, fmt.Errorf("%w: %w", ErrStorage, cause))
}
