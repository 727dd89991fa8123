package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/suykerbuyk/bargain-timeline/internal/dataset"
	"github.com/suykerbuyk/bargain-timeline/internal/groups"
	"github.com/suykerbuyk/bargain-timeline/internal/logger"
	"github.com/suykerbuyk/bargain-timeline/internal/metrics"
	"github.com/suykerbuyk/bargain-timeline/internal/negotiation"
	"github.com/suykerbuyk/bargain-timeline/internal/timeline"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := negotiation.ParseDate(s)
	require.NoError(t, err)
	return d
}

func fixture(t *testing.T) *dataset.Result {
	t.Helper()
	events := []negotiation.Event{
		{Article: "Salary", Date: mustDate(t, "2024-01-01"), Party: negotiation.Union, Description: "Proposed $45k", Seq: 0},
		{Article: "Salary", Date: mustDate(t, "2024-02-01"), Party: negotiation.University, Description: "Countered $38k", Seq: 1},
		{Article: "Salary", Date: mustDate(t, "2024-02-01"), Party: negotiation.Union, Description: "Held at $45k", Seq: 2},
		{Article: "Health Benefits", Date: mustDate(t, "2024-03-01"), Party: negotiation.Union, Description: "Full coverage", Seq: 3},
		{Article: "No Strike/No Lockout", Date: mustDate(t, "2024-04-01"), Party: negotiation.University, Description: "Initial language", Seq: 4},
	}
	tl, err := timeline.Build(events, groups.Default(), timeline.Options{Cutoff: mustDate(t, "2025-05-30")})
	require.NoError(t, err)
	return &dataset.Result{
		Timeline:  tl,
		Malformed: []*negotiation.MalformedRecordError{{Line: 9, Field: "date", Value: "soon"}},
		Source:    "test.csv",
	}
}

func newTestServer(t *testing.T, build BuildFunc) (*Server, *metrics.Metrics) {
	t.Helper()
	m := metrics.New()
	s := New(build, m, logger.Discard())
	return s, m
}

func loaded(t *testing.T) *Server {
	t.Helper()
	res := fixture(t)
	s, _ := newTestServer(t, func(context.Context) (*dataset.Result, error) { return res, nil })
	require.NoError(t, s.Reload(context.Background()))
	return s
}

func get(t *testing.T, s *Server, path string, out any) int {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

func TestNotLoaded(t *testing.T) {
	s, _ := newTestServer(t, func(context.Context) (*dataset.Result, error) { return nil, errors.New("boom") })

	require.Error(t, s.Reload(context.Background()))
	require.Nil(t, s.Current())
	require.Equal(t, http.StatusServiceUnavailable, get(t, s, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, get(t, s, "/api/intervals", nil))
}

func TestReloadKeepsPreviousOnFailure(t *testing.T) {
	res := fixture(t)
	fail := false
	s, m := newTestServer(t, func(context.Context) (*dataset.Result, error) {
		if fail {
			return nil, errors.New("unknown article")
		}
		return res, nil
	})

	require.NoError(t, s.Reload(context.Background()))
	first := s.Current().Timeline.ID()

	fail = true
	require.Error(t, s.Reload(context.Background()))
	require.Equal(t, first, s.Current().Timeline.ID())

	n, err := testutil.GatherAndCount(m.Registry(), "bargain_timeline_rebuilds_total")
	require.NoError(t, err)
	require.Equal(t, 2, n, "one ok and one error series")
}

func TestHealth(t *testing.T) {
	s := loaded(t)
	var body map[string]any
	require.Equal(t, http.StatusOK, get(t, s, "/health", &body))
	require.Equal(t, "ok", body["status"])
	require.Equal(t, s.Current().Timeline.ID(), body["build_id"])
	require.EqualValues(t, 5, body["events"])
	require.EqualValues(t, 1, body["malformed"])
}

func TestIntervals(t *testing.T) {
	s := loaded(t)

	var all intervalsResponse
	require.Equal(t, http.StatusOK, get(t, s, "/api/intervals", &all))
	require.Equal(t, 5, all.Count)
	require.Len(t, all.Intervals, 5)
	require.Equal(t, s.Current().Timeline.ID(), all.BuildID)

	var comp intervalsResponse
	require.Equal(t, http.StatusOK, get(t, s, "/api/intervals?group=Compensation", &comp))
	require.Equal(t, 3, comp.Count)
	for _, iv := range comp.Intervals {
		require.Equal(t, "Compensation", iv.Group)
	}

	// Union's 01-01 proposal runs until the University counter.
	require.Equal(t, "2024-01-01", comp.Intervals[0].Start)
	require.Equal(t, "2024-02-01", comp.Intervals[0].End)
	require.False(t, comp.Intervals[0].Open)
}

func TestIntervalsDateRange(t *testing.T) {
	s := loaded(t)

	var out intervalsResponse
	require.Equal(t, http.StatusOK, get(t, s, "/api/intervals?from=2025-01-01&to=2025-12-31", &out))
	for _, iv := range out.Intervals {
		require.True(t, iv.Open, "only open intervals reach 2025: %+v", iv)
	}

	require.Equal(t, http.StatusOK, get(t, s, "/api/intervals?to=2023-12-31", &out))
	require.Equal(t, 0, out.Count)
	require.NotNil(t, out.Intervals)
}

func TestIntervalsArticleWithSlash(t *testing.T) {
	s := loaded(t)
	var out intervalsResponse
	path := "/api/intervals?article=" + url.QueryEscape("No Strike/No Lockout")
	require.Equal(t, http.StatusOK, get(t, s, path, &out))
	require.Equal(t, 1, out.Count)
	require.Equal(t, "Contract Administration", out.Intervals[0].Group)
}

func TestIntervalsBadParams(t *testing.T) {
	s := loaded(t)
	var e errorResponse
	require.Equal(t, http.StatusBadRequest, get(t, s, "/api/intervals?from=yesterday", &e))
	require.Contains(t, e.Error, "from")
	require.Equal(t, http.StatusBadRequest, get(t, s, "/api/intervals?group=Parking", nil))
	require.Equal(t, http.StatusBadRequest, get(t, s, "/api/intervals?from=2024-05-01&to=2024-01-01", nil))
}

func TestChanges(t *testing.T) {
	s := loaded(t)

	var out eventsResponse
	require.Equal(t, http.StatusOK, get(t, s, "/api/changes?article=Salary&date=2024-02-01", &out))
	require.Len(t, out.Events, 2)
	require.Equal(t, "Countered $38k", out.Events[0].Description)
	require.Equal(t, "University", out.Events[0].Party)

	require.Equal(t, http.StatusOK, get(t, s, "/api/changes?article=Salary&date=2030-01-01", &out))
	require.Empty(t, out.Events)

	require.Equal(t, http.StatusBadRequest, get(t, s, "/api/changes?article=Salary", nil))
	require.Equal(t, http.StatusBadRequest, get(t, s, "/api/changes?date=2024-02-01", nil))
}

func TestRecentAndSummary(t *testing.T) {
	s := loaded(t)

	var recent eventsResponse
	require.Equal(t, http.StatusOK, get(t, s, "/api/recent?article=Salary", &recent))
	require.Len(t, recent.Events, 2, "both 02-01 events are most recent")

	var sum summaryResponse
	require.Equal(t, http.StatusOK, get(t, s, "/api/summary?article=Health+Benefits", &sum))
	require.Equal(t, "Full coverage", sum.Summary)

	require.Equal(t, http.StatusNotFound, get(t, s, "/api/recent?article=Parking", nil))
	require.Equal(t, http.StatusNotFound, get(t, s, "/api/summary?article=Parking", nil))
}

func TestArticlesGroupsTicks(t *testing.T) {
	s := loaded(t)

	var arts struct {
		Articles []articleJSON `json:"articles"`
	}
	require.Equal(t, http.StatusOK, get(t, s, "/api/articles", &arts))
	require.Len(t, arts.Articles, 3)

	var grps struct {
		Groups []groupJSON `json:"groups"`
	}
	require.Equal(t, http.StatusOK, get(t, s, "/api/groups", &grps))
	require.Len(t, grps.Groups, 3)
	require.Equal(t, "Compensation", grps.Groups[0].Group)

	var ticks struct {
		Ticks []tickJSON `json:"ticks"`
	}
	require.Equal(t, http.StatusOK, get(t, s, "/api/ticks", &ticks))
	require.Len(t, ticks.Ticks, 5)
	last := ticks.Ticks[len(ticks.Ticks)-1]
	require.True(t, last.Present)
	require.Equal(t, "Present", last.Label)
	require.Equal(t, "Jan 01, 24", ticks.Ticks[0].Label)
}

func TestRequestsObserved(t *testing.T) {
	s := loaded(t)

	get(t, s, "/api/intervals?group=Benefits", nil)
	get(t, s, "/api/intervals?from=bad", nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `bargain_timeline_http_requests_total{code="400",route="/api/intervals"} 1`)
	require.Contains(t, rec.Body.String(), `bargain_timeline_http_requests_total{code="200",route="/api/intervals"} 1`)
	require.Contains(t, rec.Body.String(), "bargain_timeline_malformed_rows 1")
	require.Contains(t, rec.Body.String(), `bargain_timeline_intervals{group="Benefits"} 1`)
}

func TestListenAndServeShutsDown(t *testing.T) {
	s := loaded(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0", time.Second, time.Second) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
