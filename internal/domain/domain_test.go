package domain_test

import (
	"slices"
	"testing"

	"github.com/jonesrussell/north-cloud/catalog/internal/domain"
)

func TestNormalizeTags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{name: "trims lowercases and sorts", in: []string{" Finance ", "ANNUAL"}, want: []string{"annual", "finance"}},
		{name: "deduplicates after folding", in: []string{"Report", "report", "REPORT "}, want: []string{"report"}},
		{name: "drops empties", in: []string{"", "  ", "x"}, want: []string{"x"}},
		{name: "applies NFKC", in: []string{"ｆｉｎａｎｃｅ"}, want: []string{"finance"}},
		{name: "nil", in: nil, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := domain.NormalizeTags(tt.in)
			if !slices.Equal(got, tt.want) {
				t.Errorf("NormalizeTags(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTagsOrDefault(t *testing.T) {
	t.Parallel()

	got := domain.TagsOrDefault([]string{" "})
	if !slices.Equal(got, []string{domain.TagUnclassified}) {
		t.Errorf("TagsOrDefault(blank) = %q, want [unclassified]", got)
	}
}

func TestIsStopTag(t *testing.T) {
	t.Parallel()

	for _, tag := range []string{"unclassified", "json_item", "json_object", "中文文本", "png"} {
		if !domain.IsStopTag(tag) {
			t.Errorf("IsStopTag(%q) = false, want true", tag)
		}
	}
	if domain.IsStopTag("finance") {
		t.Error("IsStopTag(finance) = true, want false")
	}
	if !slices.IsSorted(domain.StopTags()) {
		t.Error("StopTags() is not sorted")
	}
}

func TestPage_Normalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   domain.Page
		want domain.Page
	}{
		{name: "defaults", in: domain.Page{}, want: domain.Page{Limit: 30}},
		{name: "caps limit", in: domain.Page{Limit: 500, Offset: 10}, want: domain.Page{Limit: 100, Offset: 10}},
		{name: "keeps valid", in: domain.Page{Limit: 5, Offset: 2}, want: domain.Page{Limit: 5, Offset: 2}},
		{name: "negative offset", in: domain.Page{Limit: 5, Offset: -1}, want: domain.Page{Limit: 5}},
		{name: "negative limit", in: domain.Page{Limit: -3, Offset: 4}, want: domain.Page{Limit: 30, Offset: 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := tt.in.Normalize()
			if got != tt.want {
				t.Errorf("Normalize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestClampScore(t *testing.T) {
	t.Parallel()

	for in, want := range map[float64]float64{-0.2: 0, 0.42: 0.42, 1.7: 1} {
		if got := domain.ClampScore(in); got != want {
			t.Errorf("ClampScore(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestPatch_IsEmpty(t *testing.T) {
	t.Parallel()

	if !(domain.Patch{}).IsEmpty() {
		t.Error("zero Patch should be empty")
	}
	if (domain.Patch{Tags: []string{}}).IsEmpty() {
		t.Error("Patch with non-nil Tags should not be empty")
	}

	outcome := domain.Outcome{Tags: []string{"a"}, QualityScore: 0.5, Status: domain.StatusClassified}
	p := outcome.Patch()
	if *p.Status != domain.StatusClassified || *p.QualityScore != 0.5 {
		t.Errorf("Outcome.Patch() = %+v", p)
	}
}
