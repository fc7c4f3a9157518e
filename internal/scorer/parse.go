package scorer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const truncationMarker = "..."

var scorePattern = regexp.MustCompile(`\b(\d+)\b`)

// ParseTags splits a comma separated model reply into lowercased tags.
func ParseTags(reply string) ([]string, error) {
	fields := strings.FieldsFunc(reply, func(r rune) bool {
		return r == ',' || r == '，' || r == '、' || r == '\n'
	})

	tags := make([]string, 0, len(fields))
	for _, f := range fields {
		tag := strings.ToLower(strings.Trim(strings.TrimSpace(f), `"'`+"`"))
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	if len(tags) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrEmptyReply, reply)
	}
	return tags, nil
}

// ParseScore reads the first integer in a reply as a 0-100 score and maps
// it to [0,1].
func ParseScore(reply string) (float64, error) {
	match := scorePattern.FindStringSubmatch(reply)
	if match == nil {
		return 0, fmt.Errorf("%w: no score in %q", ErrEmptyReply, reply)
	}
	n, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrEmptyReply, err)
	}
	return clamp(float64(n) / 100), nil
}

// Truncate shortens s to at most maxRunes runes, marking the cut.
func Truncate(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	keep := max(maxRunes-len(truncationMarker), 0)
	return string(runes[:keep]) + truncationMarker
}

func clamp(v float64) float64 {
	return min(max(v, 0), 1)
}
