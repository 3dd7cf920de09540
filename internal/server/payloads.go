package server

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/wedding-rsvp/backend/internal/attendance"
	"github.com/wedding-rsvp/backend/internal/photos"
	"github.com/wedding-rsvp/backend/internal/rsvp"
	"github.com/wedding-rsvp/backend/internal/votes"
)

type guestUpdateRequest struct {
	Attending        *bool    `json:"attending"`
	AttendanceChoice *string  `json:"attendance_choice" validate:"omitempty,attendance_choice"`
	AttendCeremony   *bool    `json:"attend_ceremony"`
	AttendLunch      *bool    `json:"attend_lunch"`
	Allergens        []string `json:"allergens" validate:"omitempty,dive,allergen"`
	DietaryNotes     *string  `json:"dietary_notes" validate:"omitempty,max=2000"`
}

// toGuestUpdate converts the payload. A JSON null or absent field is "not supplied".
func (r guestUpdateRequest) toGuestUpdate() rsvp.GuestUpdate {
	update := rsvp.GuestUpdate{
		Attendance: attendance.Update{
			AttendCeremony: r.AttendCeremony,
			AttendLunch:    r.AttendLunch,
			Attending:      r.Attending,
		},
		DietaryNotes: r.DietaryNotes,
	}
	if r.AttendanceChoice != nil {
		choice := attendance.Choice(*r.AttendanceChoice)
		update.Attendance.AttendanceChoice = &choice
	}
	if r.Allergens != nil {
		allergens := r.Allergens
		update.Allergens = &allergens
	}
	return update
}

type familyGuestsRequest struct {
	GuestUpdates map[string]json.RawMessage `json:"guest_updates" validate:"required"`
}

type adminGuestRequest struct {
	guestUpdateRequest
	Name       *string `json:"name" validate:"omitempty,max=190"`
	FamilyID   *uint   `json:"family_id"`
	AdminNotes *string `json:"admin_notes" validate:"omitempty,max=4000"`
}

type familyRequest struct {
	FamilyName string `json:"family_name" validate:"max=190"`
}

type guestPayload struct {
	ID               uint      `json:"id"`
	Name             string    `json:"name"`
	FamilyID         *uint     `json:"family_id"`
	Attending        *bool     `json:"attending"`
	AttendanceChoice *string   `json:"attendance_choice"`
	AttendCeremony   *bool     `json:"attend_ceremony"`
	AttendLunch      *bool     `json:"attend_lunch"`
	DietaryNotes     *string   `json:"dietary_notes"`
	Allergens        []string  `json:"allergens"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type adminGuestPayload struct {
	guestPayload
	AdminNotes *string `json:"admin_notes"`
}

type familyPayload struct {
	ID         uint           `json:"id"`
	FamilyName string         `json:"family_name"`
	Guests     []guestPayload `json:"guests"`
}

type adminFamilyPayload struct {
	ID         uint                `json:"id"`
	FamilyName string              `json:"family_name"`
	Guests     []adminGuestPayload `json:"guests"`
}

type adminDataPayload struct {
	Families    []adminFamilyPayload `json:"families"`
	Individuals []adminGuestPayload  `json:"individuals"`
}

type statsPayload struct {
	TotalGuests int64 `json:"total_guests"`
	Confirmed   int64 `json:"confirmed"`
	Declined    int64 `json:"declined"`
	Pending     int64 `json:"pending"`
}

type photoPayload struct {
	ID               string    `json:"id"`
	OriginalFilename string    `json:"original_filename"`
	UploaderName     *string   `json:"uploader_name"`
	Caption          *string   `json:"caption"`
	Width            *int      `json:"width"`
	Height           *int      `json:"height"`
	ThumbURL         string    `json:"thumb_url"`
	FullURL          string    `json:"full_url"`
	CreatedAt        time.Time `json:"created_at"`
}

type photoListPayload struct {
	Photos     []photoPayload `json:"photos"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	PerPage    int            `json:"per_page"`
	TotalPages int            `json:"total_pages"`
}

type votePayload struct {
	ID        uint            `json:"id"`
	IPAddress string          `json:"ip_address"`
	ScopeType votes.ScopeType `json:"scope_type"`
	ScopeID   uint            `json:"scope_id"`
	GuestID   uint            `json:"guest_id"`
	CreatedAt time.Time       `json:"created_at"`
}

func newGuestPayload(guest rsvp.Guest) guestPayload {
	allergens := []string(guest.Allergens)
	if allergens == nil {
		allergens = []string{}
	}
	return guestPayload{
		ID:               guest.ID,
		Name:             guest.Name,
		FamilyID:         guest.FamilyID,
		Attending:        guest.Attending,
		AttendanceChoice: guest.AttendanceChoice,
		AttendCeremony:   guest.AttendCeremony,
		AttendLunch:      guest.AttendLunch,
		DietaryNotes:     guest.DietaryNotes,
		Allergens:        allergens,
		UpdatedAt:        guest.UpdatedAt,
	}
}

func newGuestPayloads(guests []rsvp.Guest) []guestPayload {
	payloads := make([]guestPayload, 0, len(guests))
	for _, guest := range guests {
		payloads = append(payloads, newGuestPayload(guest))
	}
	return payloads
}

func newFamilyPayload(family rsvp.Family) familyPayload {
	return familyPayload{
		ID:         family.ID,
		FamilyName: family.FamilyName,
		Guests:     newGuestPayloads(family.Guests),
	}
}

func newAdminGuestPayload(guest rsvp.Guest) adminGuestPayload {
	return adminGuestPayload{guestPayload: newGuestPayload(guest), AdminNotes: guest.AdminNotes}
}

func newAdminGuestPayloads(guests []rsvp.Guest) []adminGuestPayload {
	payloads := make([]adminGuestPayload, 0, len(guests))
	for _, guest := range guests {
		payloads = append(payloads, newAdminGuestPayload(guest))
	}
	return payloads
}

func newAdminFamilyPayload(family rsvp.Family) adminFamilyPayload {
	return adminFamilyPayload{
		ID:         family.ID,
		FamilyName: family.FamilyName,
		Guests:     newAdminGuestPayloads(family.Guests),
	}
}

func newPhotoPayload(photo photos.Photo) photoPayload {
	return photoPayload{
		ID:               photo.ID,
		OriginalFilename: photo.OriginalFilename,
		UploaderName:     photo.UploaderName,
		Caption:          photo.Caption,
		Width:            photo.Width,
		Height:           photo.Height,
		ThumbURL:         photo.ThumbURL(),
		FullURL:          photo.FullURL(),
		CreatedAt:        photo.CreatedAt,
	}
}

func newVotePayload(row votes.VoteAudit) votePayload {
	return votePayload{
		ID:        row.ID,
		IPAddress: row.IPAddress,
		ScopeType: row.ScopeType,
		ScopeID:   row.ScopeID,
		GuestID:   row.GuestID,
		CreatedAt: row.CreatedAt,
	}
}
