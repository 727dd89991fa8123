package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRebuilt(t *testing.T) {
	m := New()
	at := time.Unix(1_700_000_000, 0)

	m.Rebuilt(at, 2, map[string]int{"Compensation": 3, "Benefits": 1})
	require.Equal(t, 1.0, testutil.ToFloat64(m.rebuilds.WithLabelValues("ok")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.malformedRows))
	require.Equal(t, 3.0, testutil.ToFloat64(m.intervals.WithLabelValues("Compensation")))
	require.Equal(t, 1.7e9, testutil.ToFloat64(m.lastRebuild))

	// A later rebuild drops groups that disappeared.
	m.Rebuilt(at, 0, map[string]int{"Benefits": 4})
	require.Equal(t, 1, testutil.CollectAndCount(m.intervals))
}

func TestRebuildFailed(t *testing.T) {
	m := New()
	m.RebuildFailed()
	m.RebuildFailed()
	require.Equal(t, 2.0, testutil.ToFloat64(m.rebuilds.WithLabelValues("error")))
}

func TestObserveAndHandler(t *testing.T) {
	m := New()
	m.Observe("/api/intervals", 200, 5*time.Millisecond)
	m.Observe("/api/intervals", 400, time.Millisecond)
	require.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("/api/intervals", "400")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, _ := io.ReadAll(rec.Body)
	require.True(t, strings.Contains(string(body), "bargain_timeline_http_requests_total"))
}
