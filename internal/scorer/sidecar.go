package scorer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	infrahttp "github.com/jonesrussell/north-cloud/catalog/infrastructure/http"
)

const sidecarTimeout = 5 * time.Second

// sidecarRequest is the body for POST /classify and POST /score.
type sidecarRequest struct {
	Kind        Kind   `json:"kind"`
	Filename    string `json:"filename"`
	Text        string `json:"text,omitempty"`
	ImageBase64 string `json:"image_base64,omitempty"`
	ImageMIME   string `json:"image_mime,omitempty"`
}

type classifyResponse struct {
	Tags []string `json:"tags"`
}

// scoreResponse carries a score in [0,1].
type scoreResponse struct {
	Score *float64 `json:"score"`
}

// Sidecar calls an HTTP classification service.
type Sidecar struct {
	baseURL string
	client  *http.Client
}

// NewSidecar creates a sidecar scorer for baseURL.
func NewSidecar(baseURL string) *Sidecar {
	return &Sidecar{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  infrahttp.NewClient(&infrahttp.ClientConfig{Timeout: sidecarTimeout}),
	}
}

// Classify sends POST /classify.
func (s *Sidecar) Classify(ctx context.Context, c Content) ([]string, error) {
	var resp classifyResponse
	if err := s.do(ctx, "/classify", c, &resp); err != nil {
		return nil, err
	}
	if len(resp.Tags) == 0 {
		return nil, fmt.Errorf("%w: no tags", ErrEmptyReply)
	}
	return resp.Tags, nil
}

// Score sends POST /score.
func (s *Sidecar) Score(ctx context.Context, c Content) (float64, error) {
	var resp scoreResponse
	if err := s.do(ctx, "/score", c, &resp); err != nil {
		return 0, err
	}
	if resp.Score == nil {
		return 0, fmt.Errorf("%w: no score", ErrEmptyReply)
	}
	return clamp(*resp.Score), nil
}

func (s *Sidecar) do(ctx context.Context, path string, c Content, respPtr any) error {
	req := sidecarRequest{Kind: c.Kind, Filename: c.Filename, Text: c.Text}
	if c.Image != nil {
		req.ImageBase64 = base64.StdEncoding.EncodeToString(c.Image.Data)
		req.ImageMIME = c.Image.MIME
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sidecar returned %d", resp.StatusCode)
	}

	if decodeErr := json.NewDecoder(resp.Body).Decode(respPtr); decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}
	return nil
}
