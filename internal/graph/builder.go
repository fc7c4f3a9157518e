// Package graph builds the tag co-occurrence graph.
package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/jonesrussell/north-cloud/catalog/internal/domain"
)

const (
	// DefaultMinFrequency is the default minimum tag frequency for a node.
	DefaultMinFrequency = 2
	// DefaultMinLinkStrength is the default minimum co-occurrence for a link.
	DefaultMinLinkStrength = 1

	baseSymbolSize    = 10
	symbolSizePerItem = 2.5
)

// TagStatsReader provides tag usage aggregates.
type TagStatsReader interface {
	TagFrequencies(ctx context.Context, minFrequency int) ([]domain.TagFrequency, error)
	TagPairs(ctx context.Context, minStrength int) ([]domain.TagPair, error)
}

// Builder derives nodes and links from the tag index.
type Builder struct {
	stats TagStatsReader
}

// NewBuilder creates a new graph builder.
func NewBuilder(stats TagStatsReader) *Builder {
	return &Builder{stats: stats}
}

// Build returns every non-system tag used at least minFrequency times, and
// the links between those tags shared by at least minLinkStrength entries.
func (b *Builder) Build(ctx context.Context, minFrequency, minLinkStrength int) (*domain.Graph, error) {
	minFrequency = max(minFrequency, 1)
	minLinkStrength = max(minLinkStrength, 1)

	freqs, err := b.stats.TagFrequencies(ctx, minFrequency)
	if err != nil {
		return nil, fmt.Errorf("failed to load tag frequencies: %w", err)
	}

	nodes := make([]domain.GraphNode, 0, len(freqs))
	valid := make(map[string]struct{}, len(freqs))
	for _, f := range freqs {
		if f.Frequency < minFrequency || domain.IsStopTag(f.Name) {
			continue
		}
		nodes = append(nodes, domain.GraphNode{
			ID:         f.Name,
			Name:       f.Name,
			Value:      f.Frequency,
			SymbolSize: baseSymbolSize + symbolSizePerItem*float64(f.Frequency),
		})
		valid[f.Name] = struct{}{}
	}
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Value != nodes[j].Value {
			return nodes[i].Value > nodes[j].Value
		}
		return nodes[i].Name < nodes[j].Name
	})

	pairs, err := b.stats.TagPairs(ctx, minLinkStrength)
	if err != nil {
		return nil, fmt.Errorf("failed to load tag pairs: %w", err)
	}

	links := make([]domain.GraphLink, 0, len(pairs))
	for _, p := range pairs {
		if p.Strength < minLinkStrength {
			continue
		}
		if _, ok := valid[p.TagA]; !ok {
			continue
		}
		if _, ok := valid[p.TagB]; !ok {
			continue
		}
		links = append(links, domain.GraphLink{Source: p.TagA, Target: p.TagB, Value: p.Strength})
	}
	sort.Slice(links, func(i, j int) bool {
		if links[i].Value != links[j].Value {
			return links[i].Value > links[j].Value
		}
		if links[i].Source != links[j].Source {
			return links[i].Source < links[j].Source
		}
		return links[i].Target < links[j].Target
	})

	return &domain.Graph{Nodes: nodes, Links: links}, nil
}
