package negotiation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/suykerbuyk/bargain-timeline/internal/archive"
)

// MalformedRecordError describes a single log row that could not be parsed.
// Rows failing this way are skipped; the rest of the log still loads.
type MalformedRecordError struct {
	Line  int    // 1-based line in the source file
	Field string // "record", "article", "date" or "party"
	Value string
	Err   error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("line %d: %s: %v", e.Line, e.Field, e.Err)
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }

var errEmptyArticle = errors.New("empty article")

// Log is the result of loading a change log: the parsed events, sorted by
// (article, date), plus every row that was rejected.
type Log struct {
	Events    []Event
	Malformed []*MalformedRecordError
}

// Column names recognized in the header row (compared case-insensitively).
var columnAliases = map[string][]string{
	"article":     {"article"},
	"date":        {"date"},
	"party":       {"party"},
	"topic":       {"topic"},
	"description": {"changes from previous version", "description", "changes"},
	"summary":     {"summary"},
}

// LoadFile reads a change log from path. Files ending in .zst are
// decompressed on the fly.
func LoadFile(path string) (*Log, error) {
	rc, err := archive.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer rc.Close()

	l, err := Load(rc)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return l, nil
}

// Load parses a CSV change log. A missing header or required column fails
// the whole load; bad rows are collected in Log.Malformed.
func Load(r io.Reader) (*Log, error) {
	cr := newReader(r)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty log: no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols, err := mapColumns(header, "article", "date", "party")
	if err != nil {
		return nil, err
	}

	out := &Log{}
	seq := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if pe, ok := recordError(err); ok {
			out.Malformed = append(out.Malformed, pe)
			seq++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		line, _ := cr.FieldPos(0)

		if blankRecord(rec) {
			continue
		}

		ev, bad := parseRecord(rec, cols, line)
		if bad != nil {
			out.Malformed = append(out.Malformed, bad)
			seq++
			continue
		}
		ev.Seq = seq
		seq++
		out.Events = append(out.Events, ev)
	}

	Sort(out.Events)
	return out, nil
}

// newReader accepts stray quotes inside free-text fields.
func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true
	return cr
}

// recordError turns a per-record CSV syntax error into a malformed row.
// The reader resumes at the next record after one.
func recordError(err error) (*MalformedRecordError, bool) {
	var pe *csv.ParseError
	if !errors.As(err, &pe) {
		return nil, false
	}
	return &MalformedRecordError{Line: pe.Line, Field: "record", Err: pe.Err}, true
}

// Sort orders events by (article, date), keeping source order for ties.
func Sort(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Article != events[j].Article {
			return events[i].Article < events[j].Article
		}
		return events[i].Date.Before(events[j].Date)
	})
}

func parseRecord(rec []string, cols map[string]int, line int) (Event, *MalformedRecordError) {
	article := field(rec, cols, "article")
	if article == "" {
		return Event{}, &MalformedRecordError{Line: line, Field: "article", Err: errEmptyArticle}
	}

	rawDate := field(rec, cols, "date")
	date, err := ParseDate(rawDate)
	if err != nil {
		return Event{}, &MalformedRecordError{Line: line, Field: "date", Value: rawDate, Err: err}
	}

	rawParty := field(rec, cols, "party")
	party, err := ParseParty(rawParty)
	if err != nil {
		return Event{}, &MalformedRecordError{Line: line, Field: "party", Value: rawParty, Err: err}
	}

	return Event{
		Article:     article,
		Topic:       field(rec, cols, "topic"),
		Date:        date,
		Party:       party,
		Description: field(rec, cols, "description"),
	}, nil
}

// mapColumns resolves header names to column indexes. Every name in
// required must be present.
func mapColumns(header []string, required ...string) (map[string]int, error) {
	cols := make(map[string]int)
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		for key, aliases := range columnAliases {
			if _, seen := cols[key]; seen {
				continue
			}
			for _, a := range aliases {
				if name == a {
					cols[key] = i
				}
			}
		}
	}

	var missing []string
	for _, r := range required {
		if _, ok := cols[r]; !ok {
			missing = append(missing, r)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required column(s): %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

func field(rec []string, cols map[string]int, key string) string {
	i, ok := cols[key]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func blankRecord(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
