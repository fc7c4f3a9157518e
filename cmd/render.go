package cmd

import (
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/jonesrussell/north-cloud/catalog/internal/domain"
	"github.com/jonesrussell/north-cloud/catalog/internal/processor"
)

const maxTagsColumn = 60

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func renderObjects(w io.Writer, objects []*domain.DataObject, total int) {
	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Name", "Type", "Source", "Status", "Score", "Tags", "Created"})
	for _, o := range objects {
		t.AppendRow(table.Row{
			o.ID,
			o.Name,
			o.Type,
			o.SourceName(),
			o.Status,
			o.QualityScore,
			truncate(strings.Join(o.Tags, ", "), maxTagsColumn),
			o.CreatedAt.Format(time.DateTime),
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "", "shown", len(objects)})
	t.AppendFooter(table.Row{"", "", "", "", "", "", "total", total})
	t.Render()
}

func renderResults(w io.Writer, results []*processor.ProcessResult) {
	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Name", "Status", "Score", "Tags", "Duration", "Note"})
	for _, r := range results {
		note := ""
		switch {
		case r.Skipped:
			note = "claimed elsewhere"
		case r.Error != nil:
			note = r.Error.Error()
		}
		t.AppendRow(table.Row{
			r.Object.ID,
			r.Object.Name,
			r.Outcome.Status,
			r.Outcome.QualityScore,
			truncate(strings.Join(r.Outcome.Tags, ", "), maxTagsColumn),
			r.Duration.Round(time.Millisecond),
			note,
		})
	}
	t.Render()
}

func renderStatusCounts(w io.Writer, counts map[domain.Status]int) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Status", "Count"})
	total := 0
	for _, s := range []domain.Status{domain.StatusNew, domain.StatusProcessing, domain.StatusClassified, domain.StatusError} {
		t.AppendRow(table.Row{s, counts[s]})
		total += counts[s]
	}
	t.AppendFooter(table.Row{"total", total})
	t.Render()
}

func renderGraph(w io.Writer, g *domain.Graph) {
	nodes := newTable(w)
	nodes.SetTitle("Tags")
	nodes.AppendHeader(table.Row{"Tag", "Frequency", "Size"})
	for _, n := range g.Nodes {
		nodes.AppendRow(table.Row{n.Name, n.Value, n.SymbolSize})
	}
	nodes.Render()

	edges := newTable(w)
	edges.SetTitle("Co-occurrence")
	edges.AppendHeader(table.Row{"Source", "Target", "Entries"})
	for _, l := range g.Links {
		edges.AppendRow(table.Row{l.Source, l.Target, l.Value})
	}
	edges.Render()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
