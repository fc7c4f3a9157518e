package domain

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// System tags written by the ingestor and classifier.
const (
	TagUnclassified     = "unclassified"
	TagUnclassifiedList = "unclassified_list"
	TagJSON             = "json"
	TagJSONObject       = "json_object"
	TagJSONItem         = "json_item"
	TagJSONContainer    = "json_container"
	TagInvalidJSON      = "invalid_json"
	TagFileNotFound     = "file_not_found_error"
	TagJSONDecodeError  = "json_decode_error"
	TagProcessingError  = "processing_error"
	TagImageBase64Error = "image_base64_error"
	TagTextLLMFailed    = "text_llm_failed"
	TagJSONLLMFailed    = "json_llm_failed"
	TagImageLLMFailed   = "image_llm_failed"
)

// graphStopList holds system and format tags that carry no topical meaning.
var graphStopList = map[string]struct{}{}

func init() {
	for _, t := range []string{
		"item", TagJSON, TagJSONItem, TagJSONContainer, TagUnclassified, TagUnclassifiedList,
		TagJSONObject, "text", "image", "pdf", "docx", "xlsx", "csv", "txt", "md",
		"jpg", "jpeg", "png", "gif", "bmp", "svg", "zip", "gz", "tar",
		TagTextLLMFailed, TagJSONLLMFailed, TagImageLLMFailed, TagImageBase64Error,
		TagProcessingError, TagFileNotFound, TagJSONDecodeError, TagInvalidJSON,
		"needs_review", "object list", "中文文本", "chinese text",
	} {
		graphStopList[t] = struct{}{}
	}
}

// IsStopTag reports whether a tag is excluded from the tag graph.
func IsStopTag(tag string) bool {
	_, ok := graphStopList[tag]
	return ok
}

// StopTags returns the graph stop-list in sorted order.
func StopTags() []string {
	out := make([]string, 0, len(graphStopList))
	for t := range graphStopList {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// NormalizeTag trims, applies NFKC and lowercases a tag.
func NormalizeTag(tag string) string {
	tag = strings.TrimSpace(norm.NFKC.String(tag))
	return cases.Lower(language.Und).String(tag)
}

// NormalizeTags normalizes, drops empties, deduplicates and sorts tags.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		n := NormalizeTag(t)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// TagsOrDefault normalizes tags and falls back to {unclassified} when empty.
func TagsOrDefault(tags []string) []string {
	out := NormalizeTags(tags)
	if len(out) == 0 {
		return []string{TagUnclassified}
	}
	return out
}
