package ingestor

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jonesrussell/north-cloud/catalog/internal/domain"
	"github.com/jonesrussell/north-cloud/catalog/internal/imageinfo"
	"github.com/jonesrussell/north-cloud/catalog/internal/textextract"
)

const (
	maxTextSnippet = 200
	maxJSONSnippet = 150
	maxHTMLRead    = 1 << 20
	bytesPerKB     = 1024.0

	snippetMarker = "..."
	partSeparator = ". "
)

// summarize describes a stored blob for the catalog content column.
func (i *Ingestor) summarize(path, typ, displayName string) string {
	info, err := i.blobs.Stat(path)
	if err != nil {
		return fmt.Sprintf("[File not found: %s at %s]", displayName, path)
	}

	parts := []string{
		"File: " + displayName,
		"Type: " + typ,
		fmt.Sprintf("Size: %.2fKB", float64(info.Size())/bytesPerKB),
	}

	switch {
	case strings.HasPrefix(typ, "text/"):
		parts = append(parts, i.textSnippet(path, typ))
	case strings.HasPrefix(typ, "image/"):
		parts = append(parts, i.imageDetails(path)...)
	case typ == domain.TypeJSON || typ == domain.TypeJSONItem:
		parts = append(parts, i.jsonDetails(path)...)
	case typ == domain.TypeJSONContainer:
		parts = append(parts, i.containerDetails(path))
	}

	return strings.Join(parts, partSeparator)
}

func (i *Ingestor) textSnippet(path, typ string) string {
	rc, err := i.blobs.Open(path)
	if err != nil {
		return fmt.Sprintf("Snippet error: %v", err)
	}
	defer rc.Close()

	var text string
	if textextract.IsHTML(typ) {
		text, err = textextract.Read(io.LimitReader(rc, maxHTMLRead), typ)
	} else {
		text, err = readRunes(rc, maxTextSnippet+1)
	}
	if err != nil {
		return fmt.Sprintf("Snippet error: %v", err)
	}

	snippet, cut := firstRunes(text, maxTextSnippet)
	if cut {
		snippet += snippetMarker
	}
	return `Snippet: "` + snippet + `"`
}

func (i *Ingestor) imageDetails(path string) []string {
	rc, err := i.blobs.Open(path)
	if err != nil {
		return []string{"Image details: unavailable"}
	}
	defer rc.Close()

	info, err := imageinfo.Decode(rc)
	if err != nil {
		return []string{"Image details: unavailable"}
	}
	return []string{
		fmt.Sprintf("Dimensions: %dx%d", info.Width, info.Height),
		"Format: " + strings.ToUpper(info.Format),
	}
}

func (i *Ingestor) jsonDetails(path string) []string {
	data, err := i.readBlob(path)
	if err != nil {
		return []string{fmt.Sprintf("JSON details error: %v", err)}
	}

	var decoded any
	if err = json.Unmarshal(data, &decoded); err != nil {
		return []string{fmt.Sprintf("JSON details error: %v", err)}
	}
	var compact bytes.Buffer
	if err = json.Compact(&compact, data); err != nil {
		return []string{fmt.Sprintf("JSON details error: %v", err)}
	}

	var shape string
	switch v := decoded.(type) {
	case []any:
		shape = fmt.Sprintf("JSON array, elements: %d", len(v))
	case map[string]any:
		shape = fmt.Sprintf("JSON object, keys: %d", len(v))
	default:
		shape = "JSON primitive"
	}

	snippet, cut := firstRunes(compact.String(), maxJSONSnippet)
	if cut {
		snippet += snippetMarker
	}
	return []string{shape, "Data snippet: " + snippet}
}

func (i *Ingestor) containerDetails(path string) string {
	data, err := i.readBlob(path)
	if err != nil {
		return fmt.Sprintf("Container details error: %v", err)
	}

	// Only non-empty arrays are stored as containers.
	var items []json.RawMessage
	if err = json.Unmarshal(data, &items); err != nil {
		return fmt.Sprintf("Container details error: %v", err)
	}
	return fmt.Sprintf("Contains: list of %d JSON items.", len(items))
}

func (i *Ingestor) readBlob(path string) ([]byte, error) {
	rc, err := i.blobs.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// readRunes reads at most n runes of valid UTF-8 from r.
func readRunes(r io.Reader, n int) (string, error) {
	br := bufio.NewReader(io.LimitReader(r, int64(n*utf8.UTFMax)))
	var sb strings.Builder
	for count := 0; count < n; {
		ch, size, err := br.ReadRune()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		if ch == utf8.RuneError && size == 1 {
			continue
		}
		sb.WriteRune(ch)
		count++
	}
	return sb.String(), nil
}

// firstRunes returns the first n runes of s and whether s was longer.
func firstRunes(s string, n int) (string, bool) {
	count := 0
	for idx := range s {
		if count == n {
			return s[:idx], true
		}
		count++
	}
	return s, false
}
