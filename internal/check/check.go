package check

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/suykerbuyk/bargain-timeline/internal/archive"
	"github.com/suykerbuyk/bargain-timeline/internal/config"
	"github.com/suykerbuyk/bargain-timeline/internal/dataset"
	"github.com/suykerbuyk/bargain-timeline/internal/groups"
	"github.com/suykerbuyk/bargain-timeline/internal/negotiation"
	"github.com/suykerbuyk/bargain-timeline/internal/store"
)

// Status represents the outcome of a single check.
type Status int

const (
	Pass Status = iota
	Warn
	Fail
)

func (s Status) String() string {
	switch s {
	case Pass:
		return "pass"
	case Warn:
		return "warn"
	case Fail:
		return "FAIL"
	default:
		return "unknown"
	}
}

// Result holds the outcome of a single check.
type Result struct {
	Name   string
	Status Status
	Detail string
}

// Report aggregates all check results.
type Report struct {
	Results []Result
}

// HasFailures returns true if any result has Fail status.
func (r Report) HasFailures() bool {
	for _, res := range r.Results {
		if res.Status == Fail {
			return true
		}
	}
	return false
}

// Format returns the human-readable report string.
func (r Report) Format() string {
	if len(r.Results) == 0 {
		return "bt check\n\n  no checks ran\n"
	}

	maxName := 0
	for _, res := range r.Results {
		if len(res.Name) > maxName {
			maxName = len(res.Name)
		}
	}

	var b strings.Builder
	b.WriteString("bt check\n\n")

	var passed, warnings, failures int
	for _, res := range r.Results {
		switch res.Status {
		case Pass:
			passed++
		case Warn:
			warnings++
		case Fail:
			failures++
		}
		fmt.Fprintf(&b, "  %-4s  %-*s  %s\n", res.Status, maxName, res.Name, res.Detail)
	}

	fmt.Fprintf(&b, "\n%d passed, %d warning, %d failure\n", passed, warnings, failures)
	return b.String()
}

// CheckConfig reports the resolved config path. Always passes; broken TOML
// is caught by config.Load before we get here.
func CheckConfig() Result {
	cfgPath := filepath.Join(config.ConfigDir(), "config.toml")
	if _, err := os.Stat(cfgPath); err != nil {
		return Result{Name: "config", Status: Pass, Detail: "defaults (no " + config.CompressHome(cfgPath) + ")"}
	}
	return Result{Name: "config", Status: Pass, Detail: config.CompressHome(cfgPath)}
}

// CheckEventsFile checks that the CSV change log exists. Skipped when the
// store is the configured source.
func CheckEventsFile(cfg config.Config) (Result, bool) {
	if cfg.Data.Source == config.SourceStore {
		return Result{}, false
	}
	info, err := os.Stat(cfg.Data.Events)
	if err != nil {
		return Result{Name: "events", Status: Fail, Detail: cfg.Data.Events + " not found"}, true
	}
	return Result{
		Name:   "events",
		Status: Pass,
		Detail: fmt.Sprintf("%s (%s)", config.CompressHome(cfg.Data.Events), humanize.Bytes(uint64(info.Size()))),
	}, true
}

// CheckParse reports how many rows loaded and how many were skipped.
func CheckParse(events []negotiation.Event, malformed []*negotiation.MalformedRecordError) Result {
	if len(events) == 0 && len(malformed) == 0 {
		return Result{Name: "parse", Status: Warn, Detail: "change log is empty"}
	}
	if len(malformed) == 0 {
		return Result{Name: "parse", Status: Pass, Detail: fmt.Sprintf("%s events", humanize.Comma(int64(len(events))))}
	}
	lines := make([]string, 0, len(malformed))
	for i, m := range malformed {
		if i == 3 {
			lines = append(lines, "...")
			break
		}
		lines = append(lines, fmt.Sprintf("line %d", m.Line))
	}
	return Result{
		Name:   "parse",
		Status: Warn,
		Detail: fmt.Sprintf("%s events, %d malformed rows skipped (%s)",
			humanize.Comma(int64(len(events))), len(malformed), strings.Join(lines, ", ")),
	}
}

// CheckClassification fails when any logged article belongs to no group.
func CheckClassification(events []negotiation.Event, c *groups.Classifier) Result {
	seen := make(map[string]bool)
	used := make(map[groups.Name]bool)
	var unknown []string
	for _, e := range events {
		if seen[e.Article] {
			continue
		}
		seen[e.Article] = true
		g, err := c.Classify(e.Article)
		var ue *groups.UnknownArticleError
		if errors.As(err, &ue) {
			unknown = append(unknown, fmt.Sprintf("%q", e.Article))
			continue
		}
		used[g] = true
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return Result{Name: "groups", Status: Fail, Detail: "unclassified: " + strings.Join(unknown, ", ")}
	}
	return Result{Name: "groups", Status: Pass, Detail: fmt.Sprintf("%d articles in %d groups", len(seen), len(used))}
}

// CheckSummaries reports how many logged articles have a precomputed summary.
func CheckSummaries(path string, events []negotiation.Event) Result {
	if path == "" {
		return Result{Name: "summaries", Status: Pass, Detail: "not configured (derived from latest changes)"}
	}
	sums, err := negotiation.LoadSummariesFile(path)
	if err != nil {
		return Result{Name: "summaries", Status: Fail, Detail: err.Error()}
	}

	seen := make(map[string]bool)
	var missing int
	for _, e := range events {
		if seen[e.Article] {
			continue
		}
		seen[e.Article] = true
		if _, ok := sums[e.Article]; !ok {
			missing++
		}
	}
	if missing > 0 {
		return Result{Name: "summaries", Status: Warn, Detail: fmt.Sprintf("%d of %d articles have no summary", missing, len(seen))}
	}
	return Result{Name: "summaries", Status: Pass, Detail: fmt.Sprintf("%d summaries", len(sums))}
}

// CheckCutoff warns about changes dated after the present cutoff; their
// intervals collapse to a single day.
func CheckCutoff(cutoff time.Time, events []negotiation.Event) Result {
	var late int
	for _, e := range events {
		if e.Date.After(cutoff) {
			late++
		}
	}
	if late > 0 {
		return Result{
			Name:   "cutoff",
			Status: Warn,
			Detail: fmt.Sprintf("%d changes after %s; raise timeline.present_cutoff", late, negotiation.FormatDate(cutoff)),
		}
	}
	return Result{Name: "cutoff", Status: Pass, Detail: negotiation.FormatDate(cutoff)}
}

// CheckStore reports the event store and its last import. A missing store
// fails only when it is the configured source.
func CheckStore(ctx context.Context, cfg config.Config) Result {
	required := cfg.Data.Source == config.SourceStore
	if _, err := os.Stat(cfg.Store.Path); err != nil {
		status := Warn
		if required {
			status = Fail
		}
		return Result{Name: "store", Status: status, Detail: config.CompressHome(cfg.Store.Path) + " not found (run bt import)"}
	}

	s, err := store.Open(ctx, cfg.Store.Path)
	if err != nil {
		return Result{Name: "store", Status: Fail, Detail: err.Error()}
	}
	defer s.Close()

	imp, ok, err := s.LastImport(ctx)
	if err != nil {
		return Result{Name: "store", Status: Fail, Detail: err.Error()}
	}
	if !ok {
		status := Warn
		if required {
			status = Fail
		}
		return Result{Name: "store", Status: status, Detail: "no imports yet"}
	}
	return Result{
		Name:   "store",
		Status: Pass,
		Detail: fmt.Sprintf("%d events imported %s", imp.Events, humanize.Time(imp.ImportedAt)),
	}
}

// CheckArchive reports the snapshots of the change log.
func CheckArchive(cfg config.Config) Result {
	snaps, err := archive.List(cfg.Data.Events, cfg.Archive.Dir)
	if err != nil {
		return Result{Name: "archive", Status: Warn, Detail: err.Error()}
	}
	if len(snaps) == 0 {
		return Result{Name: "archive", Status: Pass, Detail: "no snapshots"}
	}
	latest, err := archive.Latest(cfg.Data.Events, cfg.Archive.Dir)
	if err != nil {
		return Result{Name: "archive", Status: Warn, Detail: err.Error()}
	}
	return Result{
		Name:   "archive",
		Status: Pass,
		Detail: fmt.Sprintf("%d snapshots in %s, newest %s", len(snaps), config.CompressHome(cfg.Archive.Dir), filepath.Base(latest)),
	}
}

// Run executes all checks against the given config and returns a report.
func Run(ctx context.Context, cfg config.Config) Report {
	var results []Result

	results = append(results, CheckConfig())
	if r, ok := CheckEventsFile(cfg); ok {
		results = append(results, r)
		if r.Status == Fail {
			return Report{Results: results}
		}
	}

	events, malformed, _, err := dataset.LoadEvents(ctx, cfg)
	if err != nil {
		results = append(results, Result{Name: "parse", Status: Fail, Detail: err.Error()})
		return Report{Results: results}
	}
	results = append(results, CheckParse(events, malformed))

	if c, err := dataset.Classifier(cfg); err != nil {
		results = append(results, Result{Name: "groups", Status: Fail, Detail: err.Error()})
	} else {
		results = append(results, CheckClassification(events, c))
	}

	results = append(results, CheckSummaries(cfg.Data.Summaries, events))

	if cutoff, err := cfg.Cutoff(); err != nil {
		results = append(results, Result{Name: "cutoff", Status: Fail, Detail: err.Error()})
	} else {
		results = append(results, CheckCutoff(cutoff, events))
	}

	results = append(results, CheckStore(ctx, cfg))
	results = append(results, CheckArchive(cfg))

	return Report{Results: results}
}
