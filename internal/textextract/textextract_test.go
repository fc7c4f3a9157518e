package textextract_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/catalog/internal/textextract"
)

func TestRead(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		mimeType string
		want     string
	}{
		{name: "plain text", input: "hello world", mimeType: "text/plain", want: "hello world"},
		{name: "invalid utf8 dropped", input: "ok\xff\xfe!", mimeType: "text/plain", want: "ok!"},
		{
			name:     "html visible text",
			input:    "<html><head><style>p{}</style></head><body><h1>Quarterly</h1>\n<p>Report  2024</p><script>x()</script></body></html>",
			mimeType: "text/html; charset=utf-8",
			want:     "Quarterly Report 2024",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := textextract.Read(strings.NewReader(tt.input), tt.mimeType)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsHTML(t *testing.T) {
	assert.True(t, textextract.IsHTML("text/html"))
	assert.True(t, textextract.IsHTML("TEXT/HTML; charset=utf-8"))
	assert.False(t, textextract.IsHTML("text/plain"))
}
