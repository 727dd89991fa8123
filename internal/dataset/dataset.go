// Package dataset assembles a Timeline from configuration: it picks the event
// source, loads the classification and summaries, and builds the model.
package dataset

import (
	"context"
	"fmt"

	"github.com/suykerbuyk/bargain-timeline/internal/config"
	"github.com/suykerbuyk/bargain-timeline/internal/groups"
	"github.com/suykerbuyk/bargain-timeline/internal/negotiation"
	"github.com/suykerbuyk/bargain-timeline/internal/store"
	"github.com/suykerbuyk/bargain-timeline/internal/timeline"
)

// Result is one complete load.
type Result struct {
	Timeline  *timeline.Timeline
	Malformed []*negotiation.MalformedRecordError
	Source    string // file path or store path the events came from
}

// Build loads events from the configured source and derives the timeline.
// Malformed rows are returned alongside a usable Result; unclassified
// articles and I/O failures are errors.
func Build(ctx context.Context, cfg config.Config) (*Result, error) {
	events, malformed, source, err := LoadEvents(ctx, cfg)
	if err != nil {
		return nil, err
	}

	classifier, err := Classifier(cfg)
	if err != nil {
		return nil, err
	}

	opts, err := Options(cfg)
	if err != nil {
		return nil, err
	}

	tl, err := timeline.Build(events, classifier, opts)
	if err != nil {
		return nil, err
	}
	return &Result{Timeline: tl, Malformed: malformed, Source: source}, nil
}

// LoadEvents reads the change log from the CSV file or the sqlite store,
// depending on data.source.
func LoadEvents(ctx context.Context, cfg config.Config) ([]negotiation.Event, []*negotiation.MalformedRecordError, string, error) {
	switch cfg.Data.Source {
	case config.SourceStore:
		s, err := store.Open(ctx, cfg.Store.Path)
		if err != nil {
			return nil, nil, "", err
		}
		defer s.Close()
		events, err := s.Events(ctx)
		if err != nil {
			return nil, nil, "", err
		}
		return events, nil, cfg.Store.Path, nil

	default:
		log, err := negotiation.LoadFile(cfg.Data.Events)
		if err != nil {
			return nil, nil, "", err
		}
		return log.Events, log.Malformed, cfg.Data.Events, nil
	}
}

// Classifier returns the configured group table, or the built-in one.
func Classifier(cfg config.Config) (*groups.Classifier, error) {
	if cfg.Data.Groups == "" {
		return groups.Default(), nil
	}
	return groups.LoadFile(cfg.Data.Groups)
}

// Options translates the timeline config section.
func Options(cfg config.Config) (timeline.Options, error) {
	cutoff, err := cfg.Cutoff()
	if err != nil {
		return timeline.Options{}, err
	}
	opts := timeline.Options{
		Cutoff: cutoff,
		Weights: &timeline.Weights{
			Offset: cfg.Timeline.IntensityOffset,
			Floor:  cfg.Timeline.IntensityFloor,
		},
	}
	if cfg.Data.Summaries != "" {
		sums, err := negotiation.LoadSummariesFile(cfg.Data.Summaries)
		if err != nil {
			return timeline.Options{}, fmt.Errorf("summaries: %w", err)
		}
		opts.Summaries = sums
	}
	return opts, nil
}
