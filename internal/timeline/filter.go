package timeline

import (
	"time"

	"github.com/suykerbuyk/bargain-timeline/internal/groups"
)

// View is a (group, date range) selection held by a front end. Zero fields
// leave that dimension unconstrained.
type View struct {
	Group groups.Name
	From  time.Time
	To    time.Time
}

// FilterByGroup keeps intervals in group g. An empty g keeps everything.
func FilterByGroup(intervals []Interval, g groups.Name) []Interval {
	if g == "" {
		return intervals
	}
	var out []Interval
	for _, iv := range intervals {
		if iv.Group == g {
			out = append(out, iv)
		}
	}
	return out
}

// FilterByDateRange keeps intervals overlapping [from, to], inclusive at
// both ends. A zero from or to leaves that side open.
func FilterByDateRange(intervals []Interval, from, to time.Time) []Interval {
	var out []Interval
	for _, iv := range intervals {
		if !to.IsZero() && iv.Start.After(to) {
			continue
		}
		if !from.IsZero() && iv.End.Before(from) {
			continue
		}
		out = append(out, iv)
	}
	return out
}

// FilterByArticle keeps intervals for one article.
func FilterByArticle(intervals []Interval, article string) []Interval {
	var out []Interval
	for _, iv := range intervals {
		if iv.Article == article {
			out = append(out, iv)
		}
	}
	return out
}
