package classifier

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jonesrussell/north-cloud/catalog/internal/domain"
)

const scoreDelta = 1e-9

func TestFilenameTags(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		file string
		want []string
	}{
		{name: "words and year", file: "Annual_Report-2024.PDF", want: []string{"pdf", "annual", "report", "2024"}},
		{name: "short words and non years dropped", file: "ab_12_3000.txt", want: []string{"txt"}},
		{name: "year bounds", file: "archive 1899 1900 2031 2032.csv", want: []string{"csv", "archive", "1900", "2031"}},
		{name: "dotfile has no extension", file: ".hidden", want: []string{"hidden"}},
		{name: "empty", file: "", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilenameTags(tt.file, now)
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("FilenameTags(%q) = %v, want %v", tt.file, got, tt.want)
			}
		})
	}
}

func TestTextHeuristic(t *testing.T) {
	tests := []struct {
		name string
		text string
		size int64
		want float64
	}{
		{name: "empty", text: "", size: 0, want: 0.05},
		{name: "short", text: "tiny", size: 4, want: 0.3},
		{name: "medium", text: strings.Repeat("a", 150), size: 150, want: 0.45},
		{name: "long and large", text: strings.Repeat("a", 2001), size: 20000, want: 0.8},
		{name: "replacement char clamps", text: "bad �", size: 10, want: 0.05},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TextHeuristic(tt.text, tt.size); !approx(got, tt.want) {
				t.Errorf("TextHeuristic = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJSONHeuristic(t *testing.T) {
	row := func(a, b any) map[string]any { return map[string]any{"a": a, "b": b} }

	tests := []struct {
		name  string
		value any
		size  int64
		want  float64
	}{
		{name: "tabular array", value: []any{row(1, 2), row(3, 4), row(5, 6)}, size: 60, want: 0.65},
		{name: "tiny object penalized", value: map[string]any{"a": 1.0}, size: 7, want: 0.15},
		{name: "mixed array not tabular", value: []any{row(1, 2), "x"}, size: 200, want: 0.3},
		{name: "large primitive", value: "x", size: 60000, want: 0.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := JSONHeuristic(tt.value, tt.size); !approx(got, tt.want) {
				t.Errorf("JSONHeuristic = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJSONHeuristic_DeepNesting(t *testing.T) {
	var v any = 1.0
	for range 6 {
		v = map[string]any{"k": v}
	}
	// 6 keys (+0.1) and depth 6 (+0.1)
	if got := JSONHeuristic(v, 500); !approx(got, 0.5) {
		t.Errorf("JSONHeuristic = %v, want 0.5", got)
	}
}

func TestImageAndOtherHeuristics(t *testing.T) {
	if got := ImageHeuristic(1_000_000, 2_000_000); !approx(got, 0.8) {
		t.Errorf("large image = %v, want 0.8", got)
	}
	if got := ImageHeuristic(300_000, 50_000); !approx(got, 0.35) {
		t.Errorf("medium image = %v, want 0.35", got)
	}
	if got := ImageHeuristic(0, 100); !approx(got, 0.05) {
		t.Errorf("unknown small image = %v, want 0.05", got)
	}
	if got := OtherHeuristic(".PDF", 2_000_000, false); !approx(got, 0.6) {
		t.Errorf("large pdf = %v, want 0.6", got)
	}
	if got := OtherHeuristic(".json", 200_000, true); !approx(got, 0.45) {
		t.Errorf("large container = %v, want 0.45", got)
	}
}

func TestSourceWeights(t *testing.T) {
	w := NewSourceWeights(map[string]float64{SourceWebScraped: 0.5, "partner": 1.1, "broken": -1})

	if got := w.For(SourceOfficialReports); got != 1.2 {
		t.Errorf("official_reports = %v", got)
	}
	if got := w.For(SourceWebScraped); got != 0.5 {
		t.Errorf("override = %v", got)
	}
	if got := w.For("partner"); got != 1.1 {
		t.Errorf("added source = %v", got)
	}
	if got := w.For("broken"); got != 1.0 {
		t.Errorf("non-positive override must be ignored, got %v", got)
	}
}

type quotaExceededError struct{}

func (quotaExceededError) Error() string { return "quota" }

func TestErrorKindTag(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", quotaExceededError{}))
	if got := domain.ErrorKindTag(wrapped); got != "classifierquotaExcee" {
		t.Errorf("ErrorKindTag = %q", got)
	}

	multi := fmt.Errorf("%w: %w", errJSONDecode, errors.New("eof"))
	if got := domain.ErrorKindTag(multi); got != "errorserrorString" {
		t.Errorf("multi-wrap ErrorKindTag = %q", got)
	}

	if got := domain.PanicKindTag("boom"); got != "string" {
		t.Errorf("PanicKindTag = %q", got)
	}
}

func approx(a, b float64) bool {
	d := a - b
	return d < scoreDelta && d > -scoreDelta
}
