package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorsCount(t *testing.T) {
	registry := prometheus.NewRegistry()
	collectors := New(registry)

	collectors.AttendanceUpdated("choice")
	collectors.AttendanceUpdated("choice")
	collectors.VoteRecorded("family")
	collectors.MultiGroupWarning()
	collectors.PhotoUpload("rate_limited")

	assert.Equal(t, 2.0, testutil.ToFloat64(collectors.attendanceUpdates.WithLabelValues("choice")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collectors.votesRecorded.WithLabelValues("family")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collectors.multiGroupWarnings))
	assert.Equal(t, 1.0, testutil.ToFloat64(collectors.photoUploads.WithLabelValues("rate_limited")))

	expected := `
# HELP wedding_multi_group_warnings_total Requests flagged as voting for more than one guest group
# TYPE wedding_multi_group_warnings_total counter
wedding_multi_group_warnings_total 1
`
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "wedding_multi_group_warnings_total"))
}

func TestObserveRequestDefaultsRoute(t *testing.T) {
	collectors := New(prometheus.NewRegistry())
	collectors.ObserveRequest("GET", "", 404, 5*time.Millisecond)
	collectors.ObserveRequest("PATCH", "/api/guests/:id", 200, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(collectors.requestsTotal.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collectors.requestsTotal.WithLabelValues("PATCH", "/api/guests/:id", "200")))
}

func TestNilCollectorsAreNoOps(t *testing.T) {
	var collectors *Collectors
	assert.NotPanics(t, func() {
		collectors.AttendanceUpdated("legacy")
		collectors.VoteRecorded("guest")
		collectors.MultiGroupWarning()
		collectors.PhotoUpload("accepted")
		collectors.ObserveRequest("GET", "/", 200, time.Second)
	})
}
