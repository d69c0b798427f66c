package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/salesask/salesask/internal/observability"
	"github.com/salesask/salesask/internal/oracle"
	"github.com/salesask/salesask/internal/prompt"
	"github.com/salesask/salesask/internal/query"
)

const (
	DefaultMaxRows = 50

	EmptyData    = "No matching rows."
	EmptyAnswer  = "No matching data was found for that question."
	nullRendered = "NULL"
)

type Summary struct {
	Text string
	Data     string
	Fallback bool
}

type Summarizer struct {
	oracle  oracle.Oracle
	maxRows int
	logger  *slog.Logger
}

func New(o oracle.Oracle, maxRows int, logger *slog.Logger) *Summarizer {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	return &Summarizer{oracle: o, maxRows: maxRows, logger: logger}
}

func (s *Summarizer) Summarize(ctx context.Context, question string, result query.Result) Summary {
	data := Serialize(result, s.maxRows)
	text, err := s.oracle.Generate(ctx, Prompt(question, data), oracle.PurposeSummarize)
	text = strings.TrimSpace(text)
	if err == nil && text != "" {
		return Summary{Text: text, Data: data}
	}

	observability.IncrementSummaryFallback()
	if s.logger != nil {
		attrs := []any{
			slog.String("trace_id", observability.TraceIDFromContext(ctx)),
			slog.Int("rows", len(result.Rows)),
		}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}
		s.logger.WarnContext(ctx, "summary fallback used", attrs...)
	}
	return Summary{Text: Fallback(result, s.maxRows), Data: data, Fallback: true}
}

func Prompt(question, data string) string {
	var out strings.Builder
	out.WriteString("Answer the user's question using only the data below.\n")
	out.WriteString("Do not restate or describe the query. Do not use any knowledge beyond the data.\n")
	out.WriteString("Reply with one direct, complete sentence.\n")
	out.WriteString("If the data says there are no matching rows, say that no matching data was found.\n")
	out.WriteString("\nQuestion:\n")
	out.WriteString(prompt.FenceQuestion(question))
	out.WriteString("\nData:\n")
	out.WriteString(data)
	out.WriteString("\n\nAnswer:\n")
	return out.String()
}

func Serialize(result query.Result, maxRows int) string {
	if len(result.Rows) == 0 {
		return EmptyData
	}
	shown := len(result.Rows)
	if maxRows > 0 && shown > maxRows {
		shown = maxRows
	}
	lines := make([]string, 0, shown+1)
	for _, row := range result.Rows[:shown] {
		lines = append(lines, renderRow(result.Columns, row))
	}
	if notice := truncationNotice(result, shown); notice != "" {
		lines = append(lines, notice)
	}
	return strings.Join(lines, "\n")
}

func Fallback(result query.Result, maxRows int) string {
	if len(result.Rows) == 0 {
		return EmptyAnswer
	}
	if len(result.Rows) == 1 && len(result.Columns) == 1 && !result.Truncated {
		if result.Rows[0][0] == nil {
			return EmptyAnswer
		}
		return fmt.Sprintf("The result is %s.", FormatValue(result.Rows[0][0]))
	}

	count := strconv.Itoa(len(result.Rows))
	if result.Truncated {
		count = "more than " + count
	}
	rows := "rows"
	if len(result.Rows) == 1 && !result.Truncated {
		rows = "row"
	}
	text := fmt.Sprintf("Found %s %s; first row: %s", count, rows, renderRow(result.Columns, result.Rows[0]))

	shown := len(result.Rows)
	if maxRows > 0 && shown > maxRows {
		shown = maxRows
	}
	if notice := truncationNotice(result, shown); notice != "" {
		text += " (" + notice + ")"
	}
	return text + "."
}

func truncationNotice(result query.Result, shown int) string {
	switch {
	case result.Truncated:
		return fmt.Sprintf("%d of more than %d rows shown", shown, len(result.Rows))
	case shown < len(result.Rows):
		return fmt.Sprintf("%d of %d rows shown", shown, len(result.Rows))
	default:
		return ""
	}
}

func renderRow(columns []string, row []any) string {
	parts := make([]string, 0, len(row))
	for i, value := range row {
		name := fmt.Sprintf("col%d", i+1)
		if i < len(columns) {
			name = columns[i]
		}
		parts = append(parts, name+"="+FormatValue(value))
	}
	return strings.Join(parts, ", ")
}

func FormatValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return nullRendered
	case string:
		return typed
	case float64:
		return formatFloat(typed)
	case float32:
		return formatFloat(float64(typed))
	case bool:
		return strconv.FormatBool(typed)
	case []byte:
		return string(typed)
	default:
		return fmt.Sprint(typed)
	}
}

func formatFloat(value float64) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return strconv.FormatFloat(value, 'f', -1, 64)
	}
	if rounded := math.Round(value*100) / 100; math.Abs(value-rounded) < 1e-9 {
		return strconv.FormatFloat(rounded, 'f', 2, 64)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
