// Package report renders a run summary as markdown and HTML.
package report

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"gotidy/domain/core"
	"gotidy/domain/table"
	"gotidy/internal/cleaning"
	"gotidy/internal/filtering"
	"gotidy/internal/profiling"
)

// Input collects everything a run report shows. Nil sections are omitted.
type Input struct {
	Job          string
	Description  string
	RunID        core.RunID
	Source       string
	StartedAt    time.Time
	Duration     time.Duration
	RowsLoaded   int
	Clean        cleaning.Report
	Filter       *filtering.YearRange
	RowsFiltered int
	Summaries    []profiling.Summary
	Correlation  *profiling.CorrelationMatrix
	Aggregate    *table.AggregateTable
	Artifacts    []string
}

// Markdown renders the report as GitHub-flavoured markdown
func Markdown(in Input) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", escape(in.Job))
	if in.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", in.Description)
	}
	fmt.Fprintf(&b, "- Run: `%s`\n", in.RunID)
	fmt.Fprintf(&b, "- Source: `%s`\n", in.Source)
	if !in.StartedAt.IsZero() {
		fmt.Fprintf(&b, "- Started: %s\n", in.StartedAt.UTC().Format(time.RFC3339))
	}
	if in.Duration > 0 {
		fmt.Fprintf(&b, "- Duration: %s\n", in.Duration.Round(time.Millisecond))
	}
	b.WriteString("\n")

	b.WriteString("## Cleaning\n\n")
	b.WriteString("| Rows loaded | Rows kept | Rows dropped |\n|---:|---:|---:|\n")
	fmt.Fprintf(&b, "| %d | %d | %d |\n\n", in.RowsLoaded, in.Clean.RowsOut, in.Clean.Dropped)
	writeCounts(&b, "Missing values before drop", in.Clean.MissingByField)
	writeCounts(&b, "Placeholder rewrites", in.Clean.PlaceholderRewrites)
	writeCounts(&b, "Coercion failures", in.Clean.CoercionFailures)

	if in.Filter != nil {
		fmt.Fprintf(&b, "## Year filter\n\n`%s` in [%d, %d]: %d rows retained.\n\n",
			in.Filter.Field, in.Filter.From, in.Filter.To, in.RowsFiltered)
	}

	if len(in.Summaries) > 0 {
		b.WriteString("## Describe\n\n")
		b.WriteString("| field | count | mean | std | min | 25% | 50% | 75% | max |\n")
		b.WriteString("|---|---:|---:|---:|---:|---:|---:|---:|---:|\n")
		for _, s := range in.Summaries {
			fmt.Fprintf(&b, "| %s | %d | %s | %s | %s | %s | %s | %s | %s |\n",
				escape(s.Field), s.Count, num(s.Mean), num(s.StdDev), num(s.Min),
				num(s.Q25), num(s.Median), num(s.Q75), num(s.Max))
		}
		b.WriteString("\n")
	}

	if in.Correlation != nil && len(in.Correlation.Fields) > 0 {
		b.WriteString("## Correlation\n\n|")
		for _, f := range in.Correlation.Fields {
			fmt.Fprintf(&b, " | %s", escape(f))
		}
		b.WriteString(" |\n|---")
		for range in.Correlation.Fields {
			b.WriteString("|---:")
		}
		b.WriteString("|\n")
		for i, f := range in.Correlation.Fields {
			fmt.Fprintf(&b, "| %s", escape(f))
			for j := range in.Correlation.Fields {
				fmt.Fprintf(&b, " | %s", num(in.Correlation.Values[i][j]))
			}
			b.WriteString(" |\n")
		}
		b.WriteString("\n")
	}

	if in.Aggregate != nil {
		b.WriteString("## Result\n\n")
		records := in.Aggregate.Records()
		fmt.Fprintf(&b, "| %s |\n|", strings.Join(escapeAll(records[0]), " | "))
		for range records[0] {
			b.WriteString("---|")
		}
		b.WriteString("\n")
		for _, rec := range records[1:] {
			fmt.Fprintf(&b, "| %s |\n", strings.Join(escapeAll(rec), " | "))
		}
		b.WriteString("\n")
	}

	if len(in.Artifacts) > 0 {
		b.WriteString("## Artifacts\n\n")
		for _, a := range in.Artifacts {
			fmt.Fprintf(&b, "- `%s`\n", a)
		}
	}
	return b.String()
}

// HTML converts markdown to a complete HTML page
func HTML(title, md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	r := html.NewRenderer(html.RendererOptions{
		Title: title,
		Flags: html.CommonFlags | html.CompletePage | html.HrefTargetBlank,
	})
	return markdown.ToHTML([]byte(md), p, r)
}

func writeCounts(b *strings.Builder, title string, counts map[string]int) {
	var fields []string
	for f, n := range counts {
		if n > 0 {
			fields = append(fields, f)
		}
	}
	if len(fields) == 0 {
		return
	}
	sort.Strings(fields)
	fmt.Fprintf(b, "%s:\n\n", title)
	for _, f := range fields {
		fmt.Fprintf(b, "- %s: %d\n", escape(f), counts[f])
	}
	b.WriteString("\n")
}

func num(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func escape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func escapeAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = escape(s)
	}
	return out
}
