// Package textextract turns stored text blobs into clean UTF-8 text.
package textextract

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const htmlType = "text/html"

// IsHTML reports whether a MIME type denotes an HTML document.
func IsHTML(mimeType string) bool {
	base, _, _ := strings.Cut(mimeType, ";")
	return strings.EqualFold(strings.TrimSpace(base), htmlType)
}

// Read returns the text of r with invalid UTF-8 dropped. HTML documents are
// reduced to their visible text.
func Read(r io.Reader, mimeType string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read text: %w", err)
	}
	text := strings.ToValidUTF8(string(data), "")
	if !IsHTML(mimeType) {
		return text, nil
	}
	return VisibleText(text)
}

// VisibleText extracts whitespace-collapsed text from an HTML document,
// skipping scripts and styles.
func VisibleText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}
	doc.Find("script, style, noscript, template").Remove()
	return strings.Join(strings.Fields(doc.Text()), " "), nil
}
