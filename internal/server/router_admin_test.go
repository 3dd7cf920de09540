package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wedding-rsvp/backend/internal/rsvp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequireAdminRejectsWrongPasswordAndLogsAtWarnLevel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)
	handler := &httpHandler{adminPassword: []byte(testAdminPassword), logger: zap.New(core)}

	testCases := []struct {
		name     string
		password string
	}{
		{name: "missing header", password: ""},
		{name: "wrong password", password: "guess"},
		{name: "prefix of password", password: testAdminPassword[:4]},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			ctx, _ := gin.CreateTestContext(recorder)
			ctx.Request = httptest.NewRequest(http.MethodGet, "/api/admin/data", http.NoBody)
			if testCase.password != "" {
				ctx.Request.Header.Set(adminPasswordHeader, testCase.password)
			}

			handler.requireAdmin(ctx)

			assert.Equal(t, http.StatusUnauthorized, recorder.Code)
			assert.True(t, ctx.IsAborted())
		})
	}

	entries := logs.FilterMessage("admin authorization failed").All()
	require.Len(t, entries, len(testCases))
	for _, entry := range entries {
		assert.Equal(t, zapcore.WarnLevel, entry.Level)
	}
}

func TestAdminRoutesRequirePassword(t *testing.T) {
	server := newTestServer(t, serverOptions{})

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/admin/data"},
		{http.MethodPost, "/api/admin/guests"},
		{http.MethodDelete, "/api/admin/families/1"},
		{http.MethodGet, "/api/admin/votes"},
		{http.MethodDelete, "/api/photos/photo-001"},
	} {
		recorder := server.do(t, route.method, route.path, nil)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code, route.path)
	}
}

func TestAdminManagesFamiliesAndGuests(t *testing.T) {
	server := newTestServer(t, serverOptions{})

	created := server.do(t, http.MethodPost, "/api/admin/families", map[string]any{"family_name": "Rossi"}, asAdmin())
	require.Equal(t, http.StatusCreated, created.Code, created.Body.String())
	family := decodeBody[adminFamilyPayload](t, created)
	assert.Equal(t, []adminGuestPayload{}, family.Guests)

	guestResponse := server.do(t, http.MethodPost, "/api/admin/guests", map[string]any{
		"name":              "Anna",
		"family_id":         family.ID,
		"attendance_choice": "lunch",
		"admin_notes":       "table 4",
	}, asAdmin())
	require.Equal(t, http.StatusCreated, guestResponse.Code, guestResponse.Body.String())
	anna := decodeBody[adminGuestPayload](t, guestResponse)
	require.NotNil(t, anna.FamilyID)
	assert.Equal(t, family.ID, *anna.FamilyID)
	require.NotNil(t, anna.AttendLunch)
	assert.True(t, *anna.AttendLunch)
	require.NotNil(t, anna.AdminNotes)
	assert.Equal(t, "table 4", *anna.AdminNotes)

	renamed := server.do(t, http.MethodPatch, fmt.Sprintf("/api/admin/families/%d", family.ID),
		map[string]any{"family_name": "Rossi-Bianchi"}, asAdmin())
	require.Equal(t, http.StatusOK, renamed.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"id":%d,"family_name":"Rossi-Bianchi"}`, family.ID), renamed.Body.String())

	unchangedFamily := server.do(t, http.MethodPatch, fmt.Sprintf("/api/admin/guests/%d", anna.ID),
		map[string]any{"dietary_notes": "no onions"}, asAdmin())
	require.Equal(t, http.StatusOK, unchangedFamily.Code)
	require.NotNil(t, decodeBody[adminGuestPayload](t, unchangedFamily).FamilyID)

	detached := server.do(t, http.MethodPatch, fmt.Sprintf("/api/admin/guests/%d", anna.ID),
		`{"family_id": null}`, asAdmin())
	require.Equal(t, http.StatusOK, detached.Code, detached.Body.String())
	assert.Nil(t, decodeBody[adminGuestPayload](t, detached).FamilyID)

	data := decodeBody[adminDataPayload](t, server.do(t, http.MethodGet, "/api/admin/data", nil, asAdmin()))
	require.Len(t, data.Families, 1)
	assert.Equal(t, "Rossi-Bianchi", data.Families[0].FamilyName)
	assert.Empty(t, data.Families[0].Guests)
	require.Len(t, data.Individuals, 1)
	assert.Equal(t, "Anna", data.Individuals[0].Name)

	var count int64
	require.NoError(t, server.db.Table("vote_audits").Count(&count).Error)
	assert.Zero(t, count)
}

func TestAdminGuestErrors(t *testing.T) {
	server := newTestServer(t, serverOptions{})
	luca := server.guest(t, "Luca", nil)

	testCases := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
		wantError  string
	}{
		{name: "missing name", method: http.MethodPost, path: "/api/admin/guests", body: map[string]any{"attending": true}, wantStatus: http.StatusUnprocessableEntity, wantError: "validation_failed"},
		{name: "unknown target family", method: http.MethodPatch, path: fmt.Sprintf("/api/admin/guests/%d", luca.ID), body: map[string]any{"family_id": 404}, wantStatus: http.StatusBadRequest, wantError: "target_family_not_found"},
		{name: "unknown guest", method: http.MethodPatch, path: "/api/admin/guests/9999", body: map[string]any{"name": "Nobody"}, wantStatus: http.StatusNotFound, wantError: "guest_not_found"},
		{name: "delete unknown guest", method: http.MethodDelete, path: "/api/admin/guests/9999", wantStatus: http.StatusNotFound, wantError: "guest_not_found"},
		{name: "rename unknown family", method: http.MethodPatch, path: "/api/admin/families/9999", body: map[string]any{"family_name": "X"}, wantStatus: http.StatusNotFound, wantError: "family_not_found"},
		{name: "create family without name", method: http.MethodPost, path: "/api/admin/families", body: map[string]any{"family_name": "  "}, wantStatus: http.StatusUnprocessableEntity, wantError: "validation_failed"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			recorder := server.do(t, testCase.method, testCase.path, testCase.body, asAdmin())
			require.Equal(t, testCase.wantStatus, recorder.Code, recorder.Body.String())
			body := decodeBody[map[string]any](t, recorder)
			assert.Equal(t, testCase.wantError, body["error"])
		})
	}
}

func TestAdminDeleteFamilyKeepsMembers(t *testing.T) {
	server := newTestServer(t, serverOptions{})
	family, members := server.family(t, "Verdi", "Giulia", "Pietro")

	recorder := server.do(t, http.MethodDelete, fmt.Sprintf("/api/admin/families/%d", family.ID), nil, asAdmin())
	require.Equal(t, http.StatusOK, recorder.Code)

	var guests []rsvp.Guest
	require.NoError(t, server.db.Order("id").Find(&guests).Error)
	require.Len(t, guests, len(members))
	for _, guest := range guests {
		assert.Nil(t, guest.FamilyID)
	}

	deleteGuest := server.do(t, http.MethodDelete, fmt.Sprintf("/api/admin/guests/%d", members[0].ID), nil, asAdmin())
	require.Equal(t, http.StatusOK, deleteGuest.Code)
}

func TestAdminVotesListsLedgerByAddress(t *testing.T) {
	server := newTestServer(t, serverOptions{})
	luca := server.guest(t, "Luca", nil)
	elena := server.guest(t, "Elena", nil)

	for _, vote := range []struct {
		guestID uint
		ip      string
	}{
		{luca.ID, "10.0.0.1"},
		{elena.ID, "10.0.0.1"},
		{elena.ID, "10.0.0.2"},
	} {
		require.Equal(t, http.StatusOK, server.do(t, http.MethodPatch, fmt.Sprintf("/api/guests/%d", vote.guestID),
			map[string]any{"attending": true}, fromIP(vote.ip)).Code)
	}

	all := decodeBody[[]votePayload](t, server.do(t, http.MethodGet, "/api/admin/votes", nil, asAdmin()))
	assert.Len(t, all, 3)

	filtered := decodeBody[[]votePayload](t, server.do(t, http.MethodGet, "/api/admin/votes?ip=10.0.0.1", nil, asAdmin()))
	require.Len(t, filtered, 2)
	assert.Equal(t, luca.ID, filtered[0].GuestID)
	assert.Equal(t, elena.ID, filtered[1].GuestID)

	limited := decodeBody[[]votePayload](t, server.do(t, http.MethodGet, "/api/admin/votes?limit=1", nil, asAdmin()))
	assert.Len(t, limited, 1)

	invalid := server.do(t, http.MethodGet, "/api/admin/votes?limit=zero", nil, asAdmin())
	assert.Equal(t, http.StatusBadRequest, invalid.Code)
}
