package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/suykerbuyk/bargain-timeline/internal/groups"
	"github.com/suykerbuyk/bargain-timeline/internal/negotiation"
	"github.com/suykerbuyk/bargain-timeline/internal/timeline"
)

// Options controls terminal rendering.
type Options struct {
	Title string // header line, e.g. "bt timeline --group Benefits"
	Width int    // description wrap width; 0 disables wrapping
}

const partyWidth = len("Tentative Agreement")

// Timeline renders intervals grouped by group and article as aligned
// terminal output.
func Timeline(ivs []timeline.Interval, o Options) string {
	var b strings.Builder
	b.WriteString(title(o.Title, "bt timeline"))

	if len(ivs) == 0 {
		b.WriteString("\n  No intervals match.\n")
		return b.String()
	}

	for _, g := range groups.All {
		inGroup := timeline.FilterByGroup(ivs, g)
		if len(inGroup) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s\n", g)

		for _, article := range articleOrder(inGroup) {
			rows := timeline.FilterByArticle(inGroup, article)
			fmt.Fprintf(&b, "  %s (%s)\n", article, changes(len(rows)))
			for _, iv := range rows {
				writeInterval(&b, iv, o.Width)
			}
		}
	}
	return b.String()
}

func writeInterval(b *strings.Builder, iv timeline.Interval, width int) {
	prefix := fmt.Sprintf("    %s  %-10s  %-*s  %-10s  ",
		negotiation.FormatDate(iv.Start), endLabel(iv), partyWidth, iv.Party, Span(iv.Start, iv.End))

	lines := Wrap(iv.Description, width)
	if len(lines) == 0 {
		b.WriteString(strings.TrimRight(prefix, " ") + "\n")
		return
	}
	indent := strings.Repeat(" ", len(prefix))
	for i, line := range lines {
		if i == 0 {
			b.WriteString(prefix + line + "\n")
			continue
		}
		b.WriteString(indent + line + "\n")
	}
}

// Changes renders the events for one article on one date.
func Changes(article string, date time.Time, events []negotiation.Event, width int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "bt changes %s %s\n", article, negotiation.FormatDate(date))
	if len(events) == 0 {
		b.WriteString("\n  No changes recorded.\n")
		return b.String()
	}
	b.WriteString("\n")
	writeEvents(&b, events, width)
	return b.String()
}

// Recent renders an article's summary followed by its most recent changes.
func Recent(article string, sum negotiation.Summary, events []negotiation.Event, width int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "bt recent %s\n", article)
	if len(events) == 0 {
		b.WriteString("\n  Article not in the change log.\n")
		return b.String()
	}

	if sum.Topic != "" {
		fmt.Fprintf(&b, "\nTopic\n  %s\n", sum.Topic)
	}
	b.WriteString("\nSummary\n")
	for _, line := range Wrap(sum.Text, width) {
		b.WriteString("  " + line + "\n")
	}

	fmt.Fprintf(&b, "\nLatest changes (%s)\n", events[0].Date.Format("Jan 02, 2006"))
	writeEvents(&b, events, width)
	return b.String()
}

func writeEvents(b *strings.Builder, events []negotiation.Event, width int) {
	for _, e := range events {
		prefix := fmt.Sprintf("  %-*s  ", partyWidth, e.Party)
		indent := strings.Repeat(" ", len(prefix))
		lines := Wrap(e.Description, width)
		if len(lines) == 0 {
			b.WriteString(strings.TrimRight(prefix, " ") + "\n")
			continue
		}
		for i, line := range lines {
			if i == 0 {
				b.WriteString(prefix + line + "\n")
				continue
			}
			b.WriteString(indent + line + "\n")
		}
	}
}

// Groups renders each group with its logged articles, their change counts
// and the date of their latest change.
func Groups(tl *timeline.Timeline) string {
	var b strings.Builder
	b.WriteString("bt groups\n")

	byGroup := tl.GroupArticles()
	if len(byGroup) == 0 {
		b.WriteString("\n  No articles logged.\n")
		return b.String()
	}

	perArticle := make(map[string]int)
	for _, e := range tl.Events() {
		perArticle[e.Article]++
	}

	for _, g := range groups.All {
		articles, ok := byGroup[g]
		if !ok {
			continue
		}
		var total int
		for _, a := range articles {
			total += perArticle[a]
		}
		fmt.Fprintf(&b, "\n%s (%s)\n", g, changes(total))
		for _, a := range articles {
			latest := "-"
			if recent := tl.MostRecent(a); len(recent) > 0 {
				latest = recent[0].Date.Format("Jan 02, 06")
			}
			fmt.Fprintf(&b, "  %-32s %12s   latest %s\n", a, changes(perArticle[a]), latest)
		}
	}
	fmt.Fprintf(&b, "\n%s changes across %d articles, present = %s\n",
		humanize.Comma(int64(tl.Len())), len(tl.Articles()), negotiation.FormatDate(tl.Cutoff()))
	return b.String()
}

// Span renders the length of an interval, e.g. "3 weeks".
func Span(start, end time.Time) string {
	if !end.After(start) {
		return "same day"
	}
	return strings.TrimSpace(humanize.RelTime(start, end, "", ""))
}

func endLabel(iv timeline.Interval) string {
	if iv.Open {
		return "Present"
	}
	return negotiation.FormatDate(iv.End)
}

func changes(n int) string {
	if n == 1 {
		return "1 change"
	}
	return humanize.Comma(int64(n)) + " changes"
}

func title(t, fallback string) string {
	if t == "" {
		t = fallback
	}
	return t + "\n"
}

// articleOrder returns the distinct articles of ivs in first-seen order.
func articleOrder(ivs []timeline.Interval) []string {
	seen := make(map[string]bool)
	var out []string
	for _, iv := range ivs {
		if !seen[iv.Article] {
			seen[iv.Article] = true
			out = append(out, iv.Article)
		}
	}
	return out
}
