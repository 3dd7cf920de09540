package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wedding-rsvp/backend/internal/attendance"
	"github.com/wedding-rsvp/backend/internal/rsvp"
)

func (h *httpHandler) handleListFamilies(c *gin.Context) {
	families, err := h.rsvpService.ListFamilies(c.Request.Context())
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	payload := make([]familyPayload, 0, len(families))
	for _, family := range families {
		payload = append(payload, newFamilyPayload(family))
	}
	c.JSON(http.StatusOK, payload)
}

func (h *httpHandler) handleListGuests(c *gin.Context) {
	guests, err := h.rsvpService.ListIndividualGuests(c.Request.Context())
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newGuestPayloads(guests))
}

func (h *httpHandler) handleUpdateGuest(c *gin.Context) {
	guestID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var request guestUpdateRequest
	if !h.bindJSON(c, &request) {
		return
	}

	result, err := h.rsvpService.UpdateGuest(c.Request.Context(), requestClientIP(c), guestID, request.toGuestUpdate())
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	setWarning(c, result.Detection)
	if result.Outcome.Touched() {
		h.publishRSVPChange([]uint{result.Guest.ID}, result.Detection.MultiGroup)
	}
	c.JSON(http.StatusOK, newGuestPayload(result.Guest))
}

func (h *httpHandler) handleUpdateFamilyGuests(c *gin.Context) {
	familyID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var request familyGuestsRequest
	if !h.bindJSON(c, &request) {
		return
	}

	updates := make(map[uint]attendance.BulkValue, len(request.GuestUpdates))
	invalid := map[string]string{}
	for key, raw := range request.GuestUpdates {
		guestID, err := strconv.ParseUint(key, 10, 64)
		if err != nil || guestID == 0 {
			invalid[key] = "guest id must be a positive integer"
			continue
		}
		var value attendance.BulkValue
		if err := value.UnmarshalJSON(raw); err != nil {
			invalid[key] = "value must be null, a boolean or one of ceremony, lunch, decline"
			continue
		}
		updates[uint(guestID)] = value
	}
	if len(invalid) > 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation_failed", "fields": invalid})
		return
	}

	result, err := h.rsvpService.UpdateFamilyGuests(c.Request.Context(), requestClientIP(c), familyID, updates)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	setWarning(c, result.Detection)
	changed := make([]uint, 0, len(result.Outcomes))
	for guestID := range result.Outcomes {
		changed = append(changed, guestID)
	}
	h.publishRSVPChange(changed, result.Detection.MultiGroup)
	c.JSON(http.StatusOK, newFamilyPayload(result.Family))
}

func (h *httpHandler) handleStats(c *gin.Context) {
	stats, err := h.rsvpService.Stats(c.Request.Context())
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, statsPayload{
		TotalGuests: stats.TotalGuests,
		Confirmed:   stats.Confirmed,
		Declined:    stats.Declined,
		Pending:     stats.Pending,
	})
}

func setWarning(c *gin.Context, detection rsvp.Detection) {
	if warning := detection.Warning(); warning != "" {
		c.Header(warningHeader, warning)
	}
}
