package scorer

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"strings"

	"github.com/sashabaranov/go-openai"

	infrahttp "github.com/jonesrussell/north-cloud/catalog/infrastructure/http"
)

// OpenAI talks to any OpenAI-compatible chat completion endpoint, including
// DashScope's compatible mode for Qwen models.
type OpenAI struct {
	api         *openai.Client
	textModel   string
	visionModel string
}

// NewOpenAI creates an OpenAI-compatible scorer. An empty visionModel falls
// back to textModel.
func NewOpenAI(apiKey, baseURL, textModel, visionModel string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	cfg.HTTPClient = infrahttp.NewClient(nil)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if visionModel == "" {
		visionModel = textModel
	}

	return &OpenAI{
		api:         openai.NewClientWithConfig(cfg),
		textModel:   textModel,
		visionModel: visionModel,
	}
}

// Classify asks the model for tags.
func (o *OpenAI) Classify(ctx context.Context, c Content) ([]string, error) {
	reply, err := o.complete(ctx, c, classifyPrompt(c), classifyTemperatureFor(c), classifyMaxTokens)
	if err != nil {
		return nil, err
	}
	return ParseTags(reply)
}

// Score asks the model for a 0-100 quality score.
func (o *OpenAI) Score(ctx context.Context, c Content) (float64, error) {
	reply, err := o.complete(ctx, c, scorePrompt(c), 0, scoreMaxTokens)
	if err != nil {
		return 0, err
	}
	return ParseScore(reply)
}

func (o *OpenAI) complete(ctx context.Context, c Content, prompt string, temperature float64, maxTokens int) (string, error) {
	msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	model := o.textModel

	if c.Kind == KindImage {
		if c.Image == nil || len(c.Image.Data) == 0 {
			return "", fmt.Errorf("%w: no image data", ErrUnavailable)
		}
		model = o.visionModel
		msg.MultiContent = []openai.ChatMessagePart{
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    dataURI(c.Image),
					Detail: openai.ImageURLDetailAuto,
				},
			},
			{Type: openai.ChatMessagePartTypeText, Text: prompt},
		}
	} else {
		msg.Content = prompt
	}

	resp, err := o.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    []openai.ChatCompletionMessage{msg},
		Temperature: wireTemperature(temperature),
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", ErrEmptyReply)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// wireTemperature keeps a requested zero on the wire: the client drops a
// zero Temperature through omitempty and the endpoint then applies its default.
func wireTemperature(t float64) float32 {
	if t <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

func dataURI(img *Image) string {
	mime := img.MIME
	if mime == "" {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}
