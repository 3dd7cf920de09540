package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wedding-rsvp/backend/internal/photos"
)

// multipartOverhead leaves room for form fields around the file part.
const multipartOverhead = 1 << 20

func (h *httpHandler) handleUploadPhoto(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.photoService.MaxBytes()+multipartOverhead)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeServiceError(c, photos.ErrTooLarge)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "detail": "multipart field file is required"})
		return
	}
	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	defer file.Close()

	photo, err := h.photoService.Upload(c.Request.Context(), photos.UploadInput{
		ClientIP:     requestClientIP(c),
		Filename:     header.Filename,
		ContentType:  header.Header.Get("Content-Type"),
		UploaderName: c.PostForm("uploader_name"),
		Caption:      c.PostForm("caption"),
		Body:         file,
	})
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newPhotoPayload(photo))
}

func (h *httpHandler) handleListPhotos(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.Query("per_page"))

	result, err := h.photoService.List(c.Request.Context(), photos.ListQuery{
		Page:    page,
		PerPage: perPage,
		Search:  c.Query("search"),
	})
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	payload := photoListPayload{
		Photos:     make([]photoPayload, 0, len(result.Photos)),
		Total:      result.Total,
		Page:       result.Page,
		PerPage:    result.PerPage,
		TotalPages: result.TotalPages,
	}
	for _, photo := range result.Photos {
		payload.Photos = append(payload.Photos, newPhotoPayload(photo))
	}
	c.JSON(http.StatusOK, payload)
}

func (h *httpHandler) handleDeletePhoto(c *gin.Context) {
	if err := h.photoService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
