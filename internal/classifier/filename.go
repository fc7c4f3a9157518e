package classifier

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	minWordRunes   = 3
	yearDigits     = 4
	minYear        = 1900
	futureYearSpan = 5
)

var filenameSeparators = regexp.MustCompile(`[-_.\s]+`)

// FilenameTags derives tags from a display name: the lowercased extension,
// then every word longer than two runes. Digit-only words survive only as
// plausible four digit years.
func FilenameTags(name string, now time.Time) []string {
	if name == "" {
		return nil
	}

	ext := filepath.Ext(name)
	if ext == name {
		ext = ""
	}
	stem := strings.TrimSuffix(name, ext)

	var tags []string
	if ext != "" {
		tags = append(tags, strings.ToLower(strings.TrimPrefix(ext, ".")))
	}

	for _, word := range filenameSeparators.Split(stem, -1) {
		word = strings.ToLower(strings.TrimSpace(word))
		if word == "" {
			continue
		}
		if isDigits(word) {
			if isPlausibleYear(word, now) {
				tags = append(tags, word)
			}
			continue
		}
		if utf8.RuneCountInString(word) >= minWordRunes {
			tags = append(tags, word)
		}
	}
	return tags
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func isPlausibleYear(word string, now time.Time) bool {
	if len(word) != yearDigits {
		return false
	}
	year, err := strconv.Atoi(word)
	if err != nil {
		return false
	}
	return year >= minYear && year <= now.Year()+futureYearSpan
}

// mimeSubtype returns the part after the slash, or "" for synthetic types.
func mimeSubtype(typ string) string {
	_, sub, ok := strings.Cut(typ, "/")
	if !ok {
		return ""
	}
	sub, _, _ = strings.Cut(sub, ";")
	return strings.TrimSpace(sub)
}
