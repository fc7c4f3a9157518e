package classifier

import (
	"strings"
	"unicode/utf8"
)

const (
	minHeuristicScore = 0.05
	maxHeuristicScore = 1.0

	// Text
	textBaseScore      = 0.3
	textEmptyScore     = 0.05
	textLongRunes      = 2000
	textLongBonus      = 0.4
	textMediumRunes    = 100
	textMediumBonus    = 0.15
	textLargeFileBytes = 10240
	textLargeFileBonus = 0.1
	textReplacementHit = 0.3

	// JSON
	jsonBaseScore        = 0.3
	jsonManyItems        = 50
	jsonManyItemsBonus   = 0.3
	jsonSomeItems        = 5
	jsonSomeItemsBonus   = 0.15
	jsonManyKeys         = 30
	jsonManyKeysBonus    = 0.2
	jsonSomeKeys         = 5
	jsonSomeKeysBonus    = 0.1
	jsonDeepNesting      = 4
	jsonDeepBonus        = 0.1
	jsonTabularBonus     = 0.25
	jsonTabularSample    = 5
	jsonLargeFileBytes   = 51200
	jsonLargeFileBonus   = 0.1
	jsonTinyFileBytes    = 100
	jsonTinyPenalty      = 0.15
	jsonTinyMaxItems     = 1
	jsonTinyMaxKeys      = 2
	jsonTabularMinRows   = 2
	jsonTabularMinFields = 2

	// Image
	imageBaseScore      = 0.2
	imageLargePixels    = 1e6
	imageLargeBonus     = 0.3
	imageMediumPixels   = 2.5e5
	imageMediumBonus    = 0.15
	imageLargeFileBytes = 1e6
	imageLargeFileBonus = 0.3
	imageSmallFileBytes = 1e4
	imageSmallPenalty   = 0.2

	// Other
	otherBaseScore          = 0.2
	otherLargeFileBytes     = 1e6
	otherLargeFileBonus     = 0.2
	otherDocumentBonus      = 0.2
	otherLargeContainer     = 1e5
	otherLargeContainerHint = 0.25
)

var documentExtensions = map[string]struct{}{
	".pdf": {}, ".docx": {}, ".xlsx": {}, ".zip": {}, ".csv": {},
}

func clampHeuristic(v float64) float64 {
	return max(minHeuristicScore, min(maxHeuristicScore, v))
}

// TextHeuristic scores text by length, file size and decoding damage.
func TextHeuristic(text string, size int64) float64 {
	runes := utf8.RuneCountInString(text)
	if runes == 0 {
		return textEmptyScore
	}

	score := textBaseScore
	switch {
	case runes > textLongRunes:
		score += textLongBonus
	case runes > textMediumRunes:
		score += textMediumBonus
	}
	if size > textLargeFileBytes {
		score += textLargeFileBonus
	}
	if strings.ContainsRune(text, utf8.RuneError) {
		score -= textReplacementHit
	}
	return clampHeuristic(score)
}

type jsonStats struct {
	items    int
	keys     int
	maxDepth int
}

func (s *jsonStats) walk(v any, depth int) {
	s.maxDepth = max(s.maxDepth, depth)
	switch t := v.(type) {
	case map[string]any:
		s.keys += len(t)
		for _, child := range t {
			s.walk(child, depth+1)
		}
	case []any:
		s.items += len(t)
		for _, child := range t {
			s.walk(child, depth+1)
		}
	}
}

// JSONHeuristic scores decoded JSON by volume, nesting and tabular shape.
func JSONHeuristic(v any, size int64) float64 {
	var stats jsonStats
	stats.walk(v, 0)

	score := jsonBaseScore
	switch {
	case stats.items > jsonManyItems:
		score += jsonManyItemsBonus
	case stats.items > jsonSomeItems:
		score += jsonSomeItemsBonus
	}
	switch {
	case stats.keys > jsonManyKeys:
		score += jsonManyKeysBonus
	case stats.keys > jsonSomeKeys:
		score += jsonSomeKeysBonus
	}
	if stats.maxDepth > jsonDeepNesting {
		score += jsonDeepBonus
	}
	if isTabular(v) {
		score += jsonTabularBonus
	}
	switch {
	case size > jsonLargeFileBytes:
		score += jsonLargeFileBonus
	case size < jsonTinyFileBytes && stats.items <= jsonTinyMaxItems && stats.keys <= jsonTinyMaxKeys:
		score -= jsonTinyPenalty
	}
	return clampHeuristic(score)
}

// isTabular reports an array of objects whose leading rows share one key set.
func isTabular(v any) bool {
	rows, ok := v.([]any)
	if !ok || len(rows) < jsonTabularMinRows {
		return false
	}

	objects := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		obj, isObj := row.(map[string]any)
		if !isObj {
			return false
		}
		objects = append(objects, obj)
	}

	first := objects[0]
	if len(first) < jsonTabularMinFields {
		return false
	}
	for _, obj := range objects[1:min(len(objects), jsonTabularSample)] {
		if !sameKeys(first, obj) {
			return false
		}
	}
	return true
}

func sameKeys(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// ImageHeuristic scores an image by resolution and file size. Unknown
// dimensions count as zero pixels.
func ImageHeuristic(pixels int, size int64) float64 {
	score := imageBaseScore
	switch {
	case float64(pixels) >= imageLargePixels:
		score += imageLargeBonus
	case float64(pixels) >= imageMediumPixels:
		score += imageMediumBonus
	}
	switch {
	case float64(size) >= imageLargeFileBytes:
		score += imageLargeFileBonus
	case float64(size) < imageSmallFileBytes:
		score -= imageSmallPenalty
	}
	return clampHeuristic(score)
}

// OtherHeuristic scores binary and container entries by size and extension.
func OtherHeuristic(ext string, size int64, container bool) float64 {
	score := otherBaseScore
	if float64(size) > otherLargeFileBytes {
		score += otherLargeFileBonus
	}
	if _, ok := documentExtensions[strings.ToLower(ext)]; ok {
		score += otherDocumentBonus
	}
	if container && float64(size) > otherLargeContainer {
		score += otherLargeContainerHint
	}
	return clampHeuristic(score)
}
