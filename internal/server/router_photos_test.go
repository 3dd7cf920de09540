package server

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type uploadForm struct {
	filename    string
	contentType string
	payload     []byte
	fields      map[string]string
}

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	canvas.Set(0, 0, color.RGBA{R: 200, A: 255})
	var buffer bytes.Buffer
	require.NoError(t, png.Encode(&buffer, canvas))
	return buffer.Bytes()
}

func (s *testServer) upload(t *testing.T, form uploadForm, ip string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for name, value := range form.fields {
		require.NoError(t, writer.WriteField(name, value))
	}
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+form.filename+`"`)
	header.Set("Content-Type", form.contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(form.payload)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	request := httptest.NewRequest(http.MethodPost, "/api/photos", &body)
	request.Header.Set("Content-Type", writer.FormDataContentType())
	request.Header.Set("X-Forwarded-For", ip)
	recorder := httptest.NewRecorder()
	s.handler.ServeHTTP(recorder, request)
	return recorder
}

func TestPhotoUploadListAndServe(t *testing.T) {
	server := newTestServer(t, serverOptions{})

	recorder := server.upload(t, uploadForm{
		filename:    "first-dance.png",
		contentType: "image/png",
		payload:     encodePNG(t, 4, 3),
		fields:      map[string]string{"uploader_name": "Zia Rosa", "caption": "First dance"},
	}, "10.0.0.1")
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())
	photo := decodeBody[photoPayload](t, recorder)
	assert.Equal(t, "photo-001", photo.ID)
	assert.Equal(t, "/photos/originals/photo-001.png", photo.FullURL)
	assert.Equal(t, photo.FullURL, photo.ThumbURL)
	require.NotNil(t, photo.Width)
	assert.Equal(t, 4, *photo.Width)

	_, err := os.Stat(filepath.Join(server.photos.OriginalsDir(), "photo-001.png"))
	require.NoError(t, err)

	served := server.do(t, http.MethodGet, photo.FullURL, nil)
	assert.Equal(t, http.StatusOK, served.Code)

	list := decodeBody[photoListPayload](t, server.do(t, http.MethodGet, "/api/photos?search=rosa", nil))
	assert.EqualValues(t, 1, list.Total)
	require.Len(t, list.Photos, 1)
	assert.Equal(t, "photo-001", list.Photos[0].ID)

	empty := decodeBody[photoListPayload](t, server.do(t, http.MethodGet, "/api/photos?search=cake", nil))
	assert.Zero(t, empty.Total)
	assert.Equal(t, []photoPayload{}, empty.Photos)
}

func TestPhotoUploadRejections(t *testing.T) {
	server := newTestServer(t, serverOptions{uploadLimit: 2})

	unsupported := server.upload(t, uploadForm{
		filename:    "notes.txt",
		contentType: "text/plain",
		payload:     []byte("hello"),
	}, "10.0.0.3")
	assert.Equal(t, http.StatusBadRequest, unsupported.Code)
	assert.Equal(t, "unsupported_file_type", decodeBody[map[string]any](t, unsupported)["error"])

	accepted := server.upload(t, uploadForm{
		filename:    "cake.png",
		contentType: "image/png",
		payload:     encodePNG(t, 2, 2),
	}, "10.0.0.3")
	require.Equal(t, http.StatusCreated, accepted.Code)

	limited := server.upload(t, uploadForm{
		filename:    "cake-again.png",
		contentType: "image/png",
		payload:     encodePNG(t, 2, 2),
	}, "10.0.0.3")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)

	otherAddress := server.upload(t, uploadForm{
		filename:    "cake-again.png",
		contentType: "image/png",
		payload:     encodePNG(t, 2, 2),
	}, "10.0.0.4")
	assert.Equal(t, http.StatusCreated, otherAddress.Code)

	missingFile := server.do(t, http.MethodPost, "/api/photos", nil, fromIP("10.0.0.5"))
	assert.Equal(t, http.StatusBadRequest, missingFile.Code)
}

func TestPhotoUploadOverSizeCapIsRejected(t *testing.T) {
	server := newTestServer(t, serverOptions{uploadMaxBytes: 64})

	recorder := server.upload(t, uploadForm{
		filename:    "panorama.png",
		contentType: "image/png",
		payload:     bytes.Repeat([]byte("x"), 65),
	}, "10.0.0.6")
	assert.Equal(t, http.StatusRequestEntityTooLarge, recorder.Code)
	assert.Equal(t, "file_too_large", decodeBody[map[string]any](t, recorder)["error"])

	list := decodeBody[photoListPayload](t, server.do(t, http.MethodGet, "/api/photos", nil))
	assert.Zero(t, list.Total)
}

func TestPhotoDeleteRequiresAdmin(t *testing.T) {
	server := newTestServer(t, serverOptions{})
	require.Equal(t, http.StatusCreated, server.upload(t, uploadForm{
		filename:    "rings.png",
		contentType: "image/png",
		payload:     encodePNG(t, 2, 2),
	}, "10.0.0.1").Code)

	assert.Equal(t, http.StatusUnauthorized, server.do(t, http.MethodDelete, "/api/photos/photo-001", nil).Code)

	deleted := server.do(t, http.MethodDelete, "/api/photos/photo-001", nil, asAdmin())
	require.Equal(t, http.StatusOK, deleted.Code)
	_, err := os.Stat(filepath.Join(server.photos.OriginalsDir(), "photo-001.png"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	missing := server.do(t, http.MethodDelete, "/api/photos/photo-001", nil, asAdmin())
	assert.Equal(t, http.StatusNotFound, missing.Code)
	assert.Equal(t, "photo_not_found", decodeBody[map[string]any](t, missing)["error"])
}
