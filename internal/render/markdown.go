package render

import (
	"fmt"
	"strings"

	"github.com/suykerbuyk/bargain-timeline/internal/negotiation"
	"github.com/suykerbuyk/bargain-timeline/internal/timeline"
)

// Markdown renders intervals as a GitHub-flavoured markdown table.
func Markdown(ivs []timeline.Interval, heading string) string {
	var b strings.Builder
	if heading != "" {
		fmt.Fprintf(&b, "# %s\n\n", escapeMarkdown(heading))
	}
	if len(ivs) == 0 {
		b.WriteString("_No intervals match._\n")
		return b.String()
	}

	b.WriteString("| Group | Article | Party | Start | End | Span | Changes | Description |\n")
	b.WriteString("|---|---|---|---|---|---|---:|---|\n")
	for _, iv := range ivs {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %d | %s |\n",
			escapeMarkdown(string(iv.Group)),
			escapeMarkdown(iv.Article),
			iv.Party,
			negotiation.FormatDate(iv.Start),
			endLabel(iv),
			Span(iv.Start, iv.End),
			iv.ChangeCount,
			escapeMarkdown(iv.Description),
		)
	}
	return b.String()
}

// escapeMarkdown keeps a value inside one table cell.
func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\r\n", "<br>")
	s = strings.ReplaceAll(s, "\n", "<br>")
	return s
}
