package server

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/wedding-rsvp/backend/internal/database"
	"github.com/wedding-rsvp/backend/internal/metrics"
	"github.com/wedding-rsvp/backend/internal/photos"
	"github.com/wedding-rsvp/backend/internal/ratelimit"
	"github.com/wedding-rsvp/backend/internal/rsvp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testAdminPassword = "sposi-2026"

type counterIDs struct {
	next int
}

func (c *counterIDs) NewID() (string, error) {
	c.next++
	return fmt.Sprintf("photo-%03d", c.next), nil
}

type testServer struct {
	handler  http.Handler
	db       *gorm.DB
	rsvp     *rsvp.Service
	photos   *photos.Service
	registry *prometheus.Registry
}

type serverOptions struct {
	logger         *zap.Logger
	uploadLimit    int
	uploadMaxBytes int64
}

func newTestServer(t *testing.T, options serverOptions) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := options.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dir := t.TempDir()
	db, err := database.OpenSQLite(filepath.Join(dir, "wedding.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	registry := prometheus.NewRegistry()
	collectors := metrics.New(registry)
	clock := func() time.Time { return time.Date(2026, 6, 20, 12, 0, 0, 0, time.UTC) }

	rsvpService, err := rsvp.NewService(rsvp.ServiceConfig{
		Database: db,
		Clock:    clock,
		Logger:   logger,
		Metrics:  collectors,
	})
	require.NoError(t, err)

	uploadLimit := options.uploadLimit
	if uploadLimit == 0 {
		uploadLimit = 30
	}
	limiter, err := ratelimit.New(ratelimit.Config{Limit: uploadLimit, Window: time.Hour})
	require.NoError(t, err)
	photoService, err := photos.NewService(photos.ServiceConfig{
		Database:   db,
		Directory:  filepath.Join(dir, "photos"),
		MaxBytes:   options.uploadMaxBytes,
		Limiter:    limiter,
		IDProvider: &counterIDs{},
		Clock:      clock,
		Logger:     logger,
		Metrics:    collectors,
	})
	require.NoError(t, err)

	handler, err := NewHTTPHandler(Dependencies{
		RSVPService:    rsvpService,
		PhotoService:   photoService,
		AdminPassword:  testAdminPassword,
		AllowedOrigins: []string{"https://wedding.example.com"},
		Metrics:        collectors,
		Gatherer:       registry,
		Logger:         logger,
	})
	require.NoError(t, err)

	return &testServer{
		handler:  handler,
		db:       db,
		rsvp:     rsvpService,
		photos:   photoService,
		registry: registry,
	}
}

type requestOption func(*http.Request)

func fromIP(ip string) requestOption {
	return func(request *http.Request) {
		request.Header.Set("X-Forwarded-For", ip)
	}
}

func asAdmin() requestOption {
	return func(request *http.Request) {
		request.Header.Set(adminPasswordHeader, testAdminPassword)
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any, options ...requestOption) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch typed := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(typed))
	default:
		encoded, err := json.Marshal(typed)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	request := httptest.NewRequest(method, path, reader)
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	for _, option := range options {
		option(request)
	}
	recorder := httptest.NewRecorder()
	s.handler.ServeHTTP(recorder, request)
	return recorder
}

func decodeBody[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var value T
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &value), recorder.Body.String())
	return value
}

func (s *testServer) family(t *testing.T, name string, members ...string) (rsvp.Family, []rsvp.Guest) {
	t.Helper()
	ctx := context.Background()
	family, err := s.rsvp.CreateFamily(ctx, name)
	require.NoError(t, err)
	guests := make([]rsvp.Guest, 0, len(members))
	for _, member := range members {
		guests = append(guests, s.guest(t, member, &family.ID))
	}
	return family, guests
}

func (s *testServer) guest(t *testing.T, name string, familyID *uint) rsvp.Guest {
	t.Helper()
	guestName := name
	guest, err := s.rsvp.CreateGuest(context.Background(), rsvp.AdminGuestInput{
		Name:   &guestName,
		Family: rsvp.FamilyAssignment{Set: familyID != nil, ID: familyID},
	})
	require.NoError(t, err)
	return guest
}
