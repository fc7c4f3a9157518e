// Package scorer talks to the external model that tags and quality-scores
// content. Every backend satisfies Scorer; failures are returned, never
// retried here, so the classifier can fall back to heuristics.
package scorer

import (
	"context"
	"errors"
)

// Kind selects the prompt family for a piece of content.
type Kind string

const (
	KindText  Kind = "text"
	KindJSON  Kind = "json"
	KindImage Kind = "image"
)

var (
	// ErrUnavailable is returned by backends that cannot serve a request.
	ErrUnavailable = errors.New("scorer unavailable")
	// ErrEmptyReply is returned when the model reply holds no usable answer.
	ErrEmptyReply = errors.New("empty scorer reply")
)

// Image is an encoded image sent to a vision model.
type Image struct {
	Data []byte
	MIME string
}

// Content is what gets classified or scored.
type Content struct {
	Kind     Kind
	Filename string
	Text     string
	Image    *Image
}

// Scorer tags and scores content.
type Scorer interface {
	// Classify returns raw tags suggested by the model.
	Classify(ctx context.Context, c Content) ([]string, error)
	// Score returns a quality score in [0,1].
	Score(ctx context.Context, c Content) (float64, error)
}

// None is the backend used when no model is configured. It always fails.
type None struct{}

// Classify always returns ErrUnavailable.
func (None) Classify(context.Context, Content) ([]string, error) {
	return nil, ErrUnavailable
}

// Score always returns ErrUnavailable.
func (None) Score(context.Context, Content) (float64, error) {
	return 0, ErrUnavailable
}
