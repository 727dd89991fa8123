package server

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/suykerbuyk/bargain-timeline/internal/groups"
	"github.com/suykerbuyk/bargain-timeline/internal/negotiation"
	"github.com/suykerbuyk/bargain-timeline/internal/timeline"
)

type errorResponse struct {
	Error string `json:"error"`
}

type intervalJSON struct {
	Article     string  `json:"article"`
	Topic       string  `json:"topic,omitempty"`
	Group       string  `json:"group"`
	Party       string  `json:"party"`
	Start       string  `json:"start"`
	End         string  `json:"end"`
	Open        bool    `json:"open"`
	Description string  `json:"description"`
	ChangeCount int     `json:"change_count"`
	Intensity   float64 `json:"intensity"`
}

type eventJSON struct {
	Article     string `json:"article"`
	Topic       string `json:"topic,omitempty"`
	Date        string `json:"date"`
	Party       string `json:"party"`
	Description string `json:"description"`
}

type intervalsResponse struct {
	BuildID   string         `json:"build_id"`
	Count     int            `json:"count"`
	Intervals []intervalJSON `json:"intervals"`
}

type eventsResponse struct {
	BuildID string      `json:"build_id"`
	Article string      `json:"article"`
	Events  []eventJSON `json:"events"`
}

type summaryResponse struct {
	BuildID string `json:"build_id"`
	Article string `json:"article"`
	Topic   string `json:"topic,omitempty"`
	Summary string `json:"summary"`
}

type articleJSON struct {
	Article string `json:"article"`
	Group   string `json:"group"`
}

type groupJSON struct {
	Group    string   `json:"group"`
	Articles []string `json:"articles"`
}

type tickJSON struct {
	Date    string `json:"date"`
	Label   string `json:"label"`
	Present bool   `json:"present,omitempty"`
}

func (s *Server) timeline(w http.ResponseWriter) *timeline.Timeline {
	res := s.current.Load()
	if res == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "timeline not loaded"})
		return nil
	}
	return res.Timeline
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	res := s.current.Load()
	if res == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "timeline not loaded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"build_id":  res.Timeline.ID(),
		"events":    res.Timeline.Len(),
		"malformed": len(res.Malformed),
	})
}

func (s *Server) handleIntervals(w http.ResponseWriter, r *http.Request) {
	tl := s.timeline(w)
	if tl == nil {
		return
	}
	q := r.URL.Query()

	var view timeline.View
	if raw := strings.TrimSpace(q.Get("group")); raw != "" {
		g, err := groups.ParseName(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		view.Group = g
	}
	var ok bool
	if view.From, ok = parseDateParam(w, q.Get("from"), "from"); !ok {
		return
	}
	if view.To, ok = parseDateParam(w, q.Get("to"), "to"); !ok {
		return
	}
	if !view.From.IsZero() && !view.To.IsZero() && view.To.Before(view.From) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "to is before from"})
		return
	}

	selected := tl.Select(view)
	if article := strings.TrimSpace(q.Get("article")); article != "" {
		selected = timeline.FilterByArticle(selected, article)
	}

	out := intervalsResponse{BuildID: tl.ID(), Count: len(selected), Intervals: make([]intervalJSON, 0, len(selected))}
	for _, iv := range selected {
		out.Intervals = append(out.Intervals, toIntervalJSON(iv))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request) {
	tl := s.timeline(w)
	if tl == nil {
		return
	}
	article := strings.TrimSpace(r.URL.Query().Get("article"))
	if article == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "article is required"})
		return
	}
	rawDate := r.URL.Query().Get("date")
	if strings.TrimSpace(rawDate) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "date is required"})
		return
	}
	date, ok := parseDateParam(w, rawDate, "date")
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, eventsResponse{
		BuildID: tl.ID(),
		Article: article,
		Events:  toEventsJSON(tl.LookupChanges(article, date)),
	})
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	tl := s.timeline(w)
	if tl == nil {
		return
	}
	article := strings.TrimSpace(r.URL.Query().Get("article"))
	recent := tl.MostRecent(article)
	if recent == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "article not in log"})
		return
	}
	writeJSON(w, http.StatusOK, eventsResponse{BuildID: tl.ID(), Article: article, Events: toEventsJSON(recent)})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	tl := s.timeline(w)
	if tl == nil {
		return
	}
	article := strings.TrimSpace(r.URL.Query().Get("article"))
	sum, ok := tl.Summary(article)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no summary for article"})
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{BuildID: tl.ID(), Article: article, Topic: sum.Topic, Summary: sum.Text})
}

func (s *Server) handleArticles(w http.ResponseWriter, r *http.Request) {
	tl := s.timeline(w)
	if tl == nil {
		return
	}
	articles := tl.Articles()
	out := make([]articleJSON, 0, len(articles))
	for _, a := range articles {
		g, _ := tl.Group(a)
		out = append(out, articleJSON{Article: a, Group: string(g)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"build_id": tl.ID(), "articles": out})
}

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	tl := s.timeline(w)
	if tl == nil {
		return
	}
	byGroup := tl.GroupArticles()
	out := make([]groupJSON, 0, len(byGroup))
	for _, g := range groups.All {
		articles, ok := byGroup[g]
		if !ok {
			continue
		}
		sort.Strings(articles)
		out = append(out, groupJSON{Group: string(g), Articles: articles})
	}
	writeJSON(w, http.StatusOK, map[string]any{"build_id": tl.ID(), "groups": out})
}

func (s *Server) handleTicks(w http.ResponseWriter, r *http.Request) {
	tl := s.timeline(w)
	if tl == nil {
		return
	}
	ticks := tl.Ticks()
	out := make([]tickJSON, 0, len(ticks))
	for _, t := range ticks {
		out = append(out, tickJSON{Date: negotiation.FormatDate(t.Date), Label: t.Label, Present: t.Present})
	}
	writeJSON(w, http.StatusOK, map[string]any{"build_id": tl.ID(), "ticks": out})
}

// parseDateParam parses an optional date query value, writing a 400 on failure.
func parseDateParam(w http.ResponseWriter, raw, name string) (time.Time, bool) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, true
	}
	d, err := negotiation.ParseDate(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: name + ": " + err.Error()})
		return time.Time{}, false
	}
	return d, true
}

func toIntervalJSON(iv timeline.Interval) intervalJSON {
	return intervalJSON{
		Article:     iv.Article,
		Topic:       iv.Topic,
		Group:       string(iv.Group),
		Party:       iv.Party.String(),
		Start:       negotiation.FormatDate(iv.Start),
		End:         negotiation.FormatDate(iv.End),
		Open:        iv.Open,
		Description: iv.Description,
		ChangeCount: iv.ChangeCount,
		Intensity:   iv.Intensity,
	}
}

func toEventsJSON(events []negotiation.Event) []eventJSON {
	out := make([]eventJSON, 0, len(events))
	for _, e := range events {
		out = append(out, eventJSON{
			Article:     e.Article,
			Topic:       e.Topic,
			Date:        negotiation.FormatDate(e.Date),
			Party:       e.Party.String(),
			Description: e.Description,
		})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
