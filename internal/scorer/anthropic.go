package scorer

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	infrahttp "github.com/jonesrussell/north-cloud/catalog/infrastructure/http"
)

// DefaultAnthropicModel is used when no text model is configured.
const DefaultAnthropicModel = "claude-3-5-haiku-latest"

// Anthropic talks to the Anthropic Messages API.
type Anthropic struct {
	client anthropic.Client
	model  string
}

// NewAnthropic creates an Anthropic scorer. The SDK's own retries are
// disabled; the classifier falls back instead.
func NewAnthropic(apiKey, baseURL, model string) *Anthropic {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(infrahttp.NewClient(nil)),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = DefaultAnthropicModel
	}

	return &Anthropic{
		client: anthropic.NewClient(opts...),
		model:  model,
	}
}

// Classify asks the model for tags.
func (a *Anthropic) Classify(ctx context.Context, c Content) ([]string, error) {
	reply, err := a.complete(ctx, c, classifyPrompt(c), classifyTemperatureFor(c), classifyMaxTokens)
	if err != nil {
		return nil, err
	}
	return ParseTags(reply)
}

// Score asks the model for a 0-100 quality score.
func (a *Anthropic) Score(ctx context.Context, c Content) (float64, error) {
	reply, err := a.complete(ctx, c, scorePrompt(c), 0, scoreMaxTokens)
	if err != nil {
		return 0, err
	}
	return ParseScore(reply)
}

func (a *Anthropic) complete(ctx context.Context, c Content, prompt string, temperature float64, maxTokens int) (string, error) {
	var blocks []anthropic.ContentBlockParamUnion
	if c.Kind == KindImage {
		if c.Image == nil || len(c.Image.Data) == 0 {
			return "", fmt.Errorf("%w: no image data", ErrUnavailable)
		}
		blocks = append(blocks, anthropic.NewImageBlockBase64(c.Image.MIME, base64.StdEncoding.EncodeToString(c.Image.Data)))
	}
	blocks = append(blocks, anthropic.NewTextBlock(prompt))

	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(temperature),
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(blocks...)},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: no text blocks in response", ErrEmptyReply)
	}
	return strings.TrimSpace(sb.String()), nil
}
