package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wedding-rsvp/backend/internal/rsvp"
)

const (
	defaultVoteLimit = 200
	maxVoteLimit     = 1000
)

func (h *httpHandler) handleAdminData(c *gin.Context) {
	data, err := h.rsvpService.AdminData(c.Request.Context())
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	payload := adminDataPayload{
		Families:    make([]adminFamilyPayload, 0, len(data.Families)),
		Individuals: newAdminGuestPayloads(data.Individuals),
	}
	for _, family := range data.Families {
		payload.Families = append(payload.Families, newAdminFamilyPayload(family))
	}
	c.JSON(http.StatusOK, payload)
}

func (h *httpHandler) handleAdminCreateGuest(c *gin.Context) {
	input, ok := h.bindAdminGuest(c)
	if !ok {
		return
	}
	guest, err := h.rsvpService.CreateGuest(c.Request.Context(), input)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newAdminGuestPayload(guest))
}

func (h *httpHandler) handleAdminUpdateGuest(c *gin.Context) {
	guestID, ok := pathID(c, "id")
	if !ok {
		return
	}
	input, ok := h.bindAdminGuest(c)
	if !ok {
		return
	}
	guest, err := h.rsvpService.UpdateGuestAdmin(c.Request.Context(), guestID, input)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newAdminGuestPayload(guest))
}

func (h *httpHandler) handleAdminDeleteGuest(c *gin.Context) {
	guestID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.rsvpService.DeleteGuest(c.Request.Context(), guestID); err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *httpHandler) handleAdminCreateFamily(c *gin.Context) {
	var request familyRequest
	if !h.bindJSON(c, &request) {
		return
	}
	family, err := h.rsvpService.CreateFamily(c.Request.Context(), request.FamilyName)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newAdminFamilyPayload(family))
}

func (h *httpHandler) handleAdminRenameFamily(c *gin.Context) {
	familyID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var request familyRequest
	if !h.bindJSON(c, &request) {
		return
	}
	family, err := h.rsvpService.RenameFamily(c.Request.Context(), familyID, request.FamilyName)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": family.ID, "family_name": family.FamilyName})
}

func (h *httpHandler) handleAdminDeleteFamily(c *gin.Context) {
	familyID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.rsvpService.DeleteFamily(c.Request.Context(), familyID); err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *httpHandler) handleAdminVotes(c *gin.Context) {
	limit := defaultVoteLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "detail": "limit must be a positive integer"})
			return
		}
		limit = min(parsed, maxVoteLimit)
	}
	rows, err := h.rsvpService.ListVotes(c.Request.Context(), c.Query("ip"), limit)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	payload := make([]votePayload, 0, len(rows))
	for _, row := range rows {
		payload = append(payload, newVotePayload(row))
	}
	c.JSON(http.StatusOK, payload)
}

// bindAdminGuest decodes an admin guest body. A family_id key sent as null
// detaches the guest; an absent key leaves the family unchanged.
func (h *httpHandler) bindAdminGuest(c *gin.Context) (rsvp.AdminGuestInput, bool) {
	var request adminGuestRequest
	body, ok := h.bindJSONBody(c, &request)
	if !ok {
		return rsvp.AdminGuestInput{}, false
	}
	return rsvp.AdminGuestInput{
		Name: request.Name,
		Family: rsvp.FamilyAssignment{
			Set: hasJSONKey(body, "family_id"),
			ID:  request.FamilyID,
		},
		RSVP:       request.toGuestUpdate(),
		AdminNotes: request.AdminNotes,
	}, true
}
