package negotiation

import (
	"fmt"
	"io"

	"github.com/suykerbuyk/bargain-timeline/internal/archive"
)

// Summary is a precomputed "where things stand" note for one article.
type Summary struct {
	Article string `json:"article"`
	Topic   string `json:"topic,omitempty"`
	Text    string `json:"summary"`
}

// LoadSummariesFile reads a summaries table (Article, Topic, Summary) from path.
func LoadSummariesFile(path string) (map[string]Summary, error) {
	rc, err := archive.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open summaries: %w", err)
	}
	defer rc.Close()

	out, err := LoadSummaries(rc)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return out, nil
}

// LoadSummaries parses a summaries table keyed by article. Rows without an
// article are ignored; a repeated article keeps the last row.
func LoadSummaries(r io.Reader) (map[string]Summary, error) {
	cr := newReader(r)

	header, err := cr.Read()
	if err == io.EOF {
		return map[string]Summary{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := mapColumns(header, "article", "summary")
	if err != nil {
		return nil, err
	}

	out := make(map[string]Summary)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if _, ok := recordError(err); ok {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		article := field(rec, cols, "article")
		if article == "" {
			continue
		}
		out[article] = Summary{
			Article: article,
			Topic:   field(rec, cols, "topic"),
			Text:    field(rec, cols, "summary"),
		}
	}
	return out, nil
}
