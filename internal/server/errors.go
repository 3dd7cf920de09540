package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/wedding-rsvp/backend/internal/photos"
	"github.com/wedding-rsvp/backend/internal/rsvp"
	"github.com/wedding-rsvp/backend/internal/validation"
	"go.uber.org/zap"
)

const maxJSONBodyBytes = 1 << 20

var (
	errInvalidJSON = errors.New("request body is not valid JSON")
	errInvalidID   = errors.New("path id is not a positive integer")
)

type codedError interface {
	Code() string
}

// bindJSON decodes the body and runs struct validation. It writes the error
// response itself and reports whether the handler may continue.
func (h *httpHandler) bindJSON(c *gin.Context, target any) bool {
	_, ok := h.bindJSONBody(c, target)
	return ok
}

// bindJSONBody is bindJSON that also hands back the raw body.
func (h *httpHandler) bindJSONBody(c *gin.Context, target any) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxJSONBodyBytes))
	if err != nil || len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return nil, false
	}
	if err := json.Unmarshal(body, target); err != nil {
		h.logger.Debug("request decode failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "detail": errInvalidJSON.Error()})
		return nil, false
	}
	if err := validation.ValidateStruct(target); err != nil {
		h.writeValidationError(c, err)
		return nil, false
	}
	return body, true
}

// hasJSONKey reports whether the top-level object names key, even as null.
func hasJSONKey(body []byte, key string) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return false
	}
	_, present := fields[key]
	return present
}

func (h *httpHandler) writeValidationError(c *gin.Context, err error) {
	response := gin.H{"error": "validation_failed"}
	var requestErr *validation.RequestValidationError
	if errors.As(err, &requestErr) {
		response["fields"] = requestErr.Details()
	} else {
		response["detail"] = err.Error()
	}
	c.JSON(http.StatusUnprocessableEntity, response)
}

// pathID parses a positive integer path parameter.
func pathID(c *gin.Context, name string) (uint, bool) {
	value, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || value == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "detail": errInvalidID.Error()})
		return 0, false
	}
	return uint(value), true
}

// writeServiceError maps service failures onto HTTP responses.
func (h *httpHandler) writeServiceError(c *gin.Context, err error) {
	status, reason := classifyError(err)
	response := gin.H{"error": reason}

	var coded codedError
	if errors.As(err, &coded) {
		response["code"] = coded.Code()
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Error(err))
	}
	c.JSON(status, response)
}

func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, rsvp.ErrGuestNotFound):
		return http.StatusNotFound, "guest_not_found"
	case errors.Is(err, rsvp.ErrFamilyNotFound):
		return http.StatusNotFound, "family_not_found"
	case errors.Is(err, rsvp.ErrUnknownFamily):
		return http.StatusBadRequest, "target_family_not_found"
	case errors.Is(err, rsvp.ErrValidation):
		return http.StatusUnprocessableEntity, "validation_failed"
	case errors.Is(err, photos.ErrNotFound):
		return http.StatusNotFound, "photo_not_found"
	case errors.Is(err, photos.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, photos.ErrUnsupportedType):
		return http.StatusBadRequest, "unsupported_file_type"
	case errors.Is(err, photos.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "file_too_large"
	case errors.Is(err, photos.ErrEmptyUpload):
		return http.StatusBadRequest, "empty_upload"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
