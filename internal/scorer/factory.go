package scorer

import (
	"fmt"
	"time"

	"github.com/jonesrussell/north-cloud/catalog/infrastructure/logger"
)

// Providers.
const (
	ProviderNone      = "none"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderSidecar   = "sidecar"
)

// Defaults.
const (
	DefaultTimeout          = 30 * time.Second
	DefaultRPS              = 5.0
	DefaultBreakerThreshold = 5
	DefaultBreakerCooldown  = time.Minute
	DefaultMaxInputChars    = 10000
	DefaultTextModel        = "qwen-plus"
	DefaultVisionModel      = "qwen-vl-plus"
)

// Config selects and tunes the scorer backend.
type Config struct {
	Provider      string        `env:"SCORER_PROVIDER" yaml:"provider"`
	APIKey        string        `env:"SCORER_API_KEY"  yaml:"api_key"` //nolint:gosec // credential from env
	BaseURL       string        `env:"SCORER_BASE_URL" yaml:"base_url"`
	TextModel     string        `yaml:"text_model"`
	VisionModel   string        `yaml:"vision_model"`
	Timeout       time.Duration `yaml:"timeout"`
	RPS           float64       `yaml:"rps"`
	Burst         int           `yaml:"burst"`
	MaxInputChars int           `yaml:"max_input_chars"`

	// BreakerThreshold consecutive failures pause model calls for BreakerCooldown.
	// A negative threshold disables the breaker.
	BreakerThreshold int           `yaml:"breaker_threshold"`
	BreakerCooldown  time.Duration `yaml:"breaker_cooldown"`
}

// New builds the configured backend wrapped with rate limiting and a per-call
// timeout, all behind a circuit breaker. Model backends without credentials degrade to None.
func New(cfg Config, log logger.Logger, observe Observer) (Scorer, error) {
	if log == nil {
		log = logger.NewNop()
	}

	var base Scorer
	switch cfg.Provider {
	case "", ProviderNone:
		return None{}, nil
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			log.Warn("Scorer API key not set, falling back to heuristics only",
				logger.String("provider", cfg.Provider))
			return None{}, nil
		}
		textModel := cfg.TextModel
		if textModel == "" {
			textModel = DefaultTextModel
		}
		visionModel := cfg.VisionModel
		if visionModel == "" && cfg.TextModel == "" {
			visionModel = DefaultVisionModel
		}
		base = NewOpenAI(cfg.APIKey, cfg.BaseURL, textModel, visionModel)
	case ProviderAnthropic:
		if cfg.APIKey == "" {
			log.Warn("Scorer API key not set, falling back to heuristics only",
				logger.String("provider", cfg.Provider))
			return None{}, nil
		}
		base = NewAnthropic(cfg.APIKey, cfg.BaseURL, cfg.TextModel)
	case ProviderSidecar:
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("scorer provider %q requires base_url", cfg.Provider)
		}
		base = NewSidecar(cfg.BaseURL)
	default:
		return nil, fmt.Errorf("unknown scorer provider %q", cfg.Provider)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	log.Info("Scorer configured",
		logger.String("provider", cfg.Provider),
		logger.Duration("timeout", timeout),
		logger.Float64("rps", cfg.RPS),
		logger.Int("breaker_threshold", cfg.BreakerThreshold),
	)

	limited := WithRateLimit(WithTimeout(base, timeout), NewRateLimiter(cfg.RPS, cfg.Burst, log))
	observed := WithObserver(limited, observe)
	if cfg.BreakerThreshold < 0 {
		return observed, nil
	}
	return WithCircuitBreaker(observed, NewBreaker(cfg.BreakerThreshold, cfg.BreakerCooldown, log)), nil
}
