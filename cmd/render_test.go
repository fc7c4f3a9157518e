//nolint:testpackage // renderers are unexported
package cmd

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jonesrussell/north-cloud/catalog/internal/domain"
	"github.com/jonesrussell/north-cloud/catalog/internal/processor"
)

func TestRenderObjects(t *testing.T) {
	var buf bytes.Buffer
	renderObjects(&buf, []*domain.DataObject{{
		ID:        "0190d3f0-0000-7000-8000-000000000001",
		Name:      "report.json",
		Type:      domain.TypeJSONContainer,
		Source:    domain.StringPtr("finance"),
		Status:    domain.StatusNew,
		Tags:      []string{"json_container", "unclassified_list"},
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}}, 12)

	out := buf.String()
	assert.Contains(t, out, "report.json")
	assert.Contains(t, out, "finance")
	assert.Contains(t, out, "json_container, unclassified_list")
	assert.Contains(t, out, "2026-01-02 03:04:05")
	assert.Contains(t, out, "12")
}

func TestRenderResults(t *testing.T) {
	var buf bytes.Buffer
	renderResults(&buf, []*processor.ProcessResult{
		{Object: &domain.DataObject{ID: "a", Name: "ok.txt"}, Outcome: domain.Outcome{Status: domain.StatusClassified, Tags: []string{"txt"}}},
		{Object: &domain.DataObject{ID: "b", Name: "lost.txt"}, Skipped: true},
		{Object: &domain.DataObject{ID: "c", Name: "bad.txt"}, Error: errors.New("update failed")},
	})

	out := buf.String()
	assert.Contains(t, out, "classified")
	assert.Contains(t, out, "claimed elsewhere")
	assert.Contains(t, out, "update failed")
}

func TestRenderGraph(t *testing.T) {
	var buf bytes.Buffer
	renderGraph(&buf, &domain.Graph{
		Nodes: []domain.GraphNode{{ID: "finance", Name: "finance", Value: 3}, {ID: "report", Name: "report", Value: 2}},
		Links: []domain.GraphLink{{Source: "finance", Target: "report", Value: 2}},
	})

	nodes, links, found := strings.Cut(strings.ToLower(buf.String()), "co-occurrence")
	assert.True(t, found)
	assert.Contains(t, nodes, "finance")
	assert.Contains(t, links, "report")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
