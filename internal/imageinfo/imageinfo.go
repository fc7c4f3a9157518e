// Package imageinfo inspects image blobs and prepares them for vision models.
package imageinfo

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // GIF decoder
	"image/jpeg"
	"image/png"
	"io"
	"os"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"  // BMP decoder
	_ "golang.org/x/image/tiff" // TIFF decoder
	_ "golang.org/x/image/webp" // WebP decoder
)

// MaxVisionDimension bounds the longest side of images sent to a vision model.
const MaxVisionDimension = 1024

const jpegQuality = 85

var (
	// ErrUnavailable is returned when the image cannot be decoded.
	ErrUnavailable = errors.New("image details unavailable")
	// ErrEmpty is returned when there are no image bytes to encode.
	ErrEmpty = errors.New("empty image")
)

// Info describes an image.
type Info struct {
	Width  int
	Height int
	Format string
}

// Pixels returns Width*Height.
func (i Info) Pixels() int {
	return i.Width * i.Height
}

// Decode reads only the image header.
func Decode(r io.Reader) (Info, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return Info{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}

// Dimensions inspects the image file at path.
func Dimensions(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer f.Close()

	return Decode(f)
}

// PrepareForVision downscales decodable images whose longest side exceeds
// MaxVisionDimension. Undecodable data is returned unchanged with its MIME type.
func PrepareForVision(data []byte, mimeType string) ([]byte, string, error) {
	if len(data) == 0 {
		return nil, "", ErrEmpty
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data, mimeType, nil
	}

	bounds := img.Bounds()
	if bounds.Dx() <= MaxVisionDimension && bounds.Dy() <= MaxVisionDimension {
		return data, mimeType, nil
	}

	scaled := resize.Thumbnail(MaxVisionDimension, MaxVisionDimension, img, resize.Lanczos3)

	var buf bytes.Buffer
	if format == "jpeg" {
		if err = jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, "", fmt.Errorf("failed to encode jpeg: %w", err)
		}
		return buf.Bytes(), "image/jpeg", nil
	}

	if err = png.Encode(&buf, scaled); err != nil {
		return nil, "", fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), "image/png", nil
}
