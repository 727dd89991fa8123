package timeline

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/suykerbuyk/bargain-timeline/internal/groups"
	"github.com/suykerbuyk/bargain-timeline/internal/negotiation"
)

// Options controls how a Timeline is derived.
type Options struct {
	// Cutoff is the "present" date that open intervals run to. Required.
	Cutoff time.Time
	// Weights overrides DefaultWeights when set. Zero values are honoured.
	Weights *Weights
	// Summaries optionally supplies precomputed per-article summaries.
	Summaries map[string]negotiation.Summary
}

// Timeline is the derived interval model for one load of the change log.
// It is never modified after Build; a changed log means a new Timeline.
type Timeline struct {
	id         uuid.UUID
	cutoff     time.Time
	events     []negotiation.Event
	intervals  []Interval
	classifier *groups.Classifier
	groupOf    map[string]groups.Name
	byKey      map[Key][]int
	latest     map[string][]int
	summaries  map[string]negotiation.Summary
	articles   []string
}

// Build classifies every article, synthesizes intervals and indexes the
// events for lookup. Any unclassified article fails the build; all of them
// are reported, each as a *groups.UnknownArticleError.
func Build(events []negotiation.Event, classifier *groups.Classifier, opts Options) (*Timeline, error) {
	if opts.Cutoff.IsZero() {
		return nil, errors.New("present cutoff is required")
	}
	if classifier == nil {
		classifier = groups.Default()
	}
	weights := DefaultWeights
	if opts.Weights != nil {
		weights = *opts.Weights
	}

	sorted := make([]negotiation.Event, len(events))
	copy(sorted, events)
	negotiation.Sort(sorted)

	t := &Timeline{
		id:         uuid.New(),
		cutoff:     negotiation.Day(opts.Cutoff),
		events:     sorted,
		classifier: classifier,
		groupOf:    make(map[string]groups.Name),
		byKey:      make(map[Key][]int),
		latest:     make(map[string][]int),
		summaries:  opts.Summaries,
	}

	var errs []error
	for i, e := range sorted {
		k := Key{Article: e.Article, Date: e.Date}
		t.byKey[k] = append(t.byKey[k], i)

		if _, seen := t.groupOf[e.Article]; !seen {
			g, err := classifier.Classify(e.Article)
			if err != nil {
				errs = append(errs, err)
			}
			t.groupOf[e.Article] = g
			t.articles = append(t.articles, e.Article)
		}

		cur := t.latest[e.Article]
		switch {
		case len(cur) == 0 || e.Date.After(sorted[cur[0]].Date):
			t.latest[e.Article] = []int{i}
		case e.Date.Equal(sorted[cur[0]].Date):
			t.latest[e.Article] = append(cur, i)
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("classify articles: %w", errors.Join(errs...))
	}

	t.intervals = Synthesize(sorted, t.cutoff)
	maxCounts := MaxChangeCounts(ChangeCounts(sorted))
	for i := range t.intervals {
		iv := &t.intervals[i]
		iv.Group = t.groupOf[iv.Article]
		iv.Intensity = weights.Intensity(iv.ChangeCount, maxCounts[iv.Article])
	}
	return t, nil
}

// ID identifies this build. Two builds of the same log get different IDs.
func (t *Timeline) ID() string { return t.id.String() }

// Cutoff returns the present cutoff date.
func (t *Timeline) Cutoff() time.Time { return t.cutoff }

// Len returns the number of events (and intervals).
func (t *Timeline) Len() int { return len(t.events) }

// Events returns a copy of the sorted events.
func (t *Timeline) Events() []negotiation.Event {
	out := make([]negotiation.Event, len(t.events))
	copy(out, t.events)
	return out
}

// Intervals returns a copy of the derived intervals, ordered by (article, start).
func (t *Timeline) Intervals() []Interval {
	out := make([]Interval, len(t.intervals))
	copy(out, t.intervals)
	return out
}

// Articles returns the articles present in the log, sorted.
func (t *Timeline) Articles() []string {
	out := make([]string, len(t.articles))
	copy(out, t.articles)
	return out
}

// Group returns the group of an article present in the log.
func (t *Timeline) Group(article string) (groups.Name, bool) {
	g, ok := t.groupOf[article]
	return g, ok
}

// Classify looks article up in the classification table, whether or not it
// appears in the log.
func (t *Timeline) Classify(article string) (groups.Name, error) {
	return t.classifier.Classify(article)
}

// GroupArticles maps each group to the logged articles it contains. Groups
// with no logged articles are omitted.
func (t *Timeline) GroupArticles() map[groups.Name][]string {
	out := make(map[groups.Name][]string)
	for _, a := range t.articles {
		g := t.groupOf[a]
		out[g] = append(out[g], a)
	}
	return out
}

// LookupChanges returns every event for article on date. An empty result
// is normal (nothing selected yet).
func (t *Timeline) LookupChanges(article string, date time.Time) []negotiation.Event {
	return t.pick(t.byKey[Key{Article: article, Date: negotiation.Day(date)}])
}

// MostRecent returns the events at the article's latest date. Several
// events come back when more than one party changed the article that day.
// Nil means the article is not in the log.
func (t *Timeline) MostRecent(article string) []negotiation.Event {
	idx, ok := t.latest[article]
	if !ok {
		return nil
	}
	return t.pick(idx)
}

// Summary returns the precomputed summary for article when one was supplied,
// otherwise one derived from the most recent events.
func (t *Timeline) Summary(article string) (negotiation.Summary, bool) {
	if s, ok := t.summaries[article]; ok {
		return s, true
	}
	recent := t.MostRecent(article)
	if len(recent) == 0 {
		return negotiation.Summary{}, false
	}

	s := negotiation.Summary{Article: article, Topic: recent[0].Topic}
	if len(recent) == 1 {
		s.Text = recent[0].Description
		return s, true
	}
	parts := make([]string, 0, len(recent))
	for _, e := range recent {
		parts = append(parts, e.Party.String()+": "+e.Description)
	}
	s.Text = strings.Join(parts, "; ")
	return s, true
}

// Select applies a view to the interval set.
func (t *Timeline) Select(v View) []Interval {
	return FilterByDateRange(FilterByGroup(t.Intervals(), v.Group), v.From, v.To)
}

// Tick is an axis mark: a date on which something changed, or the cutoff.
type Tick struct {
	Date    time.Time
	Label   string
	Present bool
}

// Ticks returns every distinct start date in order, followed by the cutoff
// labelled "Present".
func (t *Timeline) Ticks() []Tick {
	seen := make(map[time.Time]bool)
	var dates []time.Time
	for _, e := range t.events {
		if !seen[e.Date] {
			seen[e.Date] = true
			dates = append(dates, e.Date)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	ticks := make([]Tick, 0, len(dates)+1)
	for _, d := range dates {
		if d.Equal(t.cutoff) {
			continue
		}
		ticks = append(ticks, Tick{Date: d, Label: d.Format("Jan 02, 06")})
	}
	ticks = append(ticks, Tick{Date: t.cutoff, Label: "Present", Present: true})
	return ticks
}

func (t *Timeline) pick(idx []int) []negotiation.Event {
	out := make([]negotiation.Event, 0, len(idx))
	for _, i := range idx {
		out = append(out, t.events[i])
	}
	return out
}
