package imageinfo_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/catalog/internal/imageinfo"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDimensions(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "chart.png")
	require.NoError(t, os.WriteFile(path, pngBytes(t, 40, 30), 0o600))

	info, err := imageinfo.Dimensions(path)
	require.NoError(t, err)
	assert.Equal(t, imageinfo.Info{Width: 40, Height: 30, Format: "png"}, info)
	assert.Equal(t, 1200, info.Pixels())
}

func TestDecode_Unavailable(t *testing.T) {
	t.Parallel()

	_, err := imageinfo.Decode(strings.NewReader("<svg></svg>"))
	require.ErrorIs(t, err, imageinfo.ErrUnavailable)

	_, err = imageinfo.Dimensions(filepath.Join(t.TempDir(), "missing.png"))
	require.ErrorIs(t, err, imageinfo.ErrUnavailable)
}

func TestPrepareForVision(t *testing.T) {
	t.Parallel()

	small := pngBytes(t, 10, 10)
	data, mime, err := imageinfo.PrepareForVision(small, "image/png")
	require.NoError(t, err)
	assert.Equal(t, small, data)
	assert.Equal(t, "image/png", mime)

	data, mime, err = imageinfo.PrepareForVision(pngBytes(t, 2048, 512), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	info, err := imageinfo.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 1024, info.Width)
	assert.Equal(t, 256, info.Height)

	raw := []byte("<svg/>")
	data, mime, err = imageinfo.PrepareForVision(raw, "image/svg+xml")
	require.NoError(t, err)
	assert.Equal(t, raw, data)
	assert.Equal(t, "image/svg+xml", mime)

	_, _, err = imageinfo.PrepareForVision(nil, "image/png")
	require.ErrorIs(t, err, imageinfo.ErrEmpty)
}
