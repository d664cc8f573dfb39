package answer

import (
	"fmt"
	"strings"
	"time"

	"github.com/GiuBuonafina/llm-data-analyzer-challenge/internal/query"
)

// RenderTable formats a result as a GitHub-flavored markdown table. It returns
// "" for an absent or row-less result.
func RenderTable(result *query.Result) string {
	if result.Empty() || len(result.Columns) == 0 {
		return ""
	}
	var b strings.Builder
	writeRow(&b, result.Columns)
	separators := make([]string, len(result.Columns))
	for i := range separators {
		separators[i] = "---"
	}
	writeRow(&b, separators)
	cells := make([]string, len(result.Columns))
	for _, row := range result.Rows {
		for i := range cells {
			cells[i] = ""
			if i < len(row) {
				cells[i] = formatCell(row[i])
			}
		}
		writeRow(&b, cells)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func writeRow(b *strings.Builder, cells []string) {
	b.WriteString("|")
	for _, cell := range cells {
		b.WriteString(" ")
		b.WriteString(cell)
		b.WriteString(" |")
	}
	b.WriteString("\n")
}

func formatCell(value any) string {
	var text string
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		text = typed
	case time.Time:
		text = typed.Format(time.RFC3339)
	case float32:
		text = fmt.Sprintf("%g", typed)
	case float64:
		text = fmt.Sprintf("%g", typed)
	default:
		text = fmt.Sprint(typed)
	}
	text = strings.ReplaceAll(text, "|", `\|`)
	return strings.ReplaceAll(text, "\n", " ")
}
