package timeline

import (
	"time"

	"github.com/suykerbuyk/bargain-timeline/internal/negotiation"
)

// Key identifies all changes to one article on one date.
type Key struct {
	Article string
	Date    time.Time
}

// ChangeCounts counts events per (article, date).
func ChangeCounts(events []negotiation.Event) map[Key]int {
	counts := make(map[Key]int)
	for _, e := range events {
		counts[Key{Article: e.Article, Date: e.Date}]++
	}
	return counts
}

// MaxChangeCounts returns, per article, the largest count across its dates.
func MaxChangeCounts(counts map[Key]int) map[string]int {
	max := make(map[string]int)
	for k, n := range counts {
		if n > max[k.Article] {
			max[k.Article] = n
		}
	}
	return max
}

// Weights turns change counts into a color-intensity value.
type Weights struct {
	Offset float64
	Floor  float64
}

// DefaultWeights are the dashboard's intensity constants.
var DefaultWeights = Weights{Offset: 0.2, Floor: 0.15}

// Intensity returns max(count/max - Offset, Floor).
func (w Weights) Intensity(count, max int) float64 {
	if max <= 0 {
		return w.Floor
	}
	v := float64(count)/float64(max) - w.Offset
	if v < w.Floor {
		return w.Floor
	}
	return v
}
