package timeline

import (
	"sort"
	"time"

	"github.com/suykerbuyk/bargain-timeline/internal/groups"
	"github.com/suykerbuyk/bargain-timeline/internal/negotiation"
)

// Interval is the span during which one event's version of an article stood
// unanswered by another party.
type Interval struct {
	Article     string
	Topic       string
	Group       groups.Name
	Start       time.Time
	End         time.Time
	Party       negotiation.Party
	Description string
	ChangeCount int     // events on this article at Start
	Intensity   float64 // presentation weight derived from ChangeCount
	Open        bool    // End is the present cutoff
	Seq         int
}

// Synthesize derives one interval per event, in input order.
//
// An interval ends at the earliest date strictly after its start on which a
// different party changed the same article. Events sharing a date never end
// one another. When no such change exists the interval runs to cutoff; if
// cutoff falls before the start, the interval is clamped to zero length.
//
// Group and Intensity are left zero; Build fills them in.
func Synthesize(events []negotiation.Event, cutoff time.Time) []Interval {
	out := make([]Interval, len(events))
	counts := ChangeCounts(events)

	byArticle := make(map[string][]int)
	for i, e := range events {
		byArticle[e.Article] = append(byArticle[e.Article], i)
		out[i] = Interval{
			Article:     e.Article,
			Topic:       e.Topic,
			Start:       e.Date,
			Party:       e.Party,
			Description: e.Description,
			ChangeCount: counts[Key{Article: e.Article, Date: e.Date}],
			Seq:         e.Seq,
		}
	}

	for _, idx := range byArticle {
		sort.SliceStable(idx, func(a, b int) bool {
			return events[idx[a]].Date.Before(events[idx[b]].Date)
		})

		// Reverse sweep over distinct dates. next holds, per party, the
		// earliest date seen so far, which is always strictly later than
		// the date group being resolved.
		next := make(map[negotiation.Party]time.Time, len(negotiation.Parties))
		for hi := len(idx); hi > 0; {
			day := events[idx[hi-1]].Date
			lo := hi - 1
			for lo > 0 && events[idx[lo-1]].Date.Equal(day) {
				lo--
			}

			for _, i := range idx[lo:hi] {
				if end, ok := earliestOther(next, events[i].Party); ok {
					out[i].End = end
					continue
				}
				out[i].Open = true
				out[i].End = cutoff
				if cutoff.Before(out[i].Start) {
					out[i].End = out[i].Start
				}
			}
			for _, i := range idx[lo:hi] {
				next[events[i].Party] = day
			}
			hi = lo
		}
	}
	return out
}

func earliestOther(next map[negotiation.Party]time.Time, p negotiation.Party) (time.Time, bool) {
	var best time.Time
	found := false
	for q, d := range next {
		if q == p {
			continue
		}
		if !found || d.Before(best) {
			best, found = d, true
		}
	}
	return best, found
}
