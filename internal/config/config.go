// Package config holds the catalog service configuration.
package config

import (
	"time"

	infraconfig "github.com/jonesrussell/north-cloud/catalog/infrastructure/config"
	"github.com/jonesrussell/north-cloud/catalog/internal/scorer"
)

// Default configuration values.
const (
	defaultServiceName     = "catalog"
	defaultServiceVersion  = "1.0.0"
	defaultServerPort      = 8090
	defaultReadTimeout     = 30 * time.Second
	defaultWriteTimeout    = 60 * time.Second
	defaultDBDriver        = "sqlite3"
	defaultDBDSN           = "data/catalog.db"
	defaultStorageDir      = "data/storage"
	defaultInputDir        = "input_data"
	defaultIngestInterval  = 10 * time.Second
	defaultIngestDebounce  = 500 * time.Millisecond
	defaultPollInterval    = 10 * time.Second
	defaultBatchSize       = 15
	defaultConcurrency     = 4
	defaultLogLevel        = "info"
	defaultLogFormat       = "json"
	defaultScorerProvider  = scorer.ProviderNone
	defaultConfigFileName  = "config.yml"
	defaultScorerMaxChars  = scorer.DefaultMaxInputChars
	defaultScorerTimeout   = scorer.DefaultTimeout
	defaultScorerRateLimit = scorer.DefaultRPS
	defaultBreakerLimit    = scorer.DefaultBreakerThreshold
	defaultBreakerCooldown = scorer.DefaultBreakerCooldown
)

// Config holds all configuration for the catalog service.
type Config struct {
	Service       ServiceConfig      `yaml:"service"`
	Server        ServerConfig       `yaml:"server"`
	Database      DatabaseConfig     `yaml:"database"`
	Storage       StorageConfig      `yaml:"storage"`
	Ingestor      IngestorConfig     `yaml:"ingestor"`
	Processor     ProcessorConfig    `yaml:"processor"`
	Scorer        scorer.Config      `yaml:"scorer"`
	SourceWeights map[string]float64 `yaml:"source_weights"`
	Logging       LoggingConfig      `yaml:"logging"`
}

// ServiceConfig holds service-level configuration.
type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Debug   bool   `env:"APP_DEBUG" yaml:"debug"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         int           `env:"CATALOG_PORT"         yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	CORSOrigins  []string      `env:"CATALOG_CORS_ORIGINS" yaml:"cors_origins"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Driver       string `env:"CATALOG_DB_DRIVER" yaml:"driver"`
	DSN          string `env:"CATALOG_DB_DSN"    yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// StorageConfig holds blob storage configuration.
type StorageConfig struct {
	Dir string `env:"CATALOG_STORAGE_DIR" yaml:"dir"`
}

// IngestorConfig holds ingestion loop settings.
type IngestorConfig struct {
	InputDir string        `env:"CATALOG_INPUT_DIR" yaml:"input_dir"`
	Interval time.Duration `yaml:"interval"`
	Watch    bool          `yaml:"watch"`
	Debounce time.Duration `yaml:"debounce"`
}

// ProcessorConfig holds classification loop settings.
type ProcessorConfig struct {
	Interval    time.Duration `yaml:"interval"`
	BatchSize   int           `yaml:"batch_size"`
	Concurrency int           `env:"CATALOG_CONCURRENCY" yaml:"concurrency"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL"  yaml:"level"`
	Format string `env:"LOG_FORMAT" yaml:"format"`
}

// DefaultPath returns the config file path, honouring CONFIG_PATH.
func DefaultPath() string {
	return infraconfig.GetConfigPath(defaultConfigFileName)
}

// Load loads configuration from the specified path. A missing file yields
// defaults plus environment overrides.
func Load(path string) (*Config, error) {
	cfg, err := infraconfig.LoadWithDefaults[Config](path, setDefaults)
	if err != nil {
		return nil, err
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	var errs []error
	errs = append(errs,
		infraconfig.ValidatePort("server.port", c.Server.Port),
		infraconfig.ValidateOneOf("database.driver", c.Database.Driver, "sqlite3", "postgres"),
		infraconfig.ValidateRequired("database.dsn", c.Database.DSN),
		infraconfig.ValidateRequired("storage.dir", c.Storage.Dir),
		infraconfig.ValidateRequired("ingestor.input_dir", c.Ingestor.InputDir),
		infraconfig.ValidateOneOf("scorer.provider", c.Scorer.Provider,
			scorer.ProviderNone, scorer.ProviderOpenAI, scorer.ProviderAnthropic, scorer.ProviderSidecar),
		infraconfig.ValidateLogLevel(c.Logging.Level),
	)
	if c.Processor.BatchSize < 1 {
		errs = append(errs, &infraconfig.ValidationError{Field: "processor.batch_size", Message: "must be positive"})
	}
	if c.Processor.Concurrency < 1 {
		errs = append(errs, &infraconfig.ValidationError{Field: "processor.concurrency", Message: "must be positive"})
	}
	return infraconfig.Join(errs...)
}

// setDefaults applies default values to the config.
func setDefaults(cfg *Config) {
	setServiceDefaults(&cfg.Service)
	setServerDefaults(&cfg.Server)
	setDatabaseDefaults(&cfg.Database)
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = defaultStorageDir
	}
	setIngestorDefaults(&cfg.Ingestor)
	setProcessorDefaults(&cfg.Processor)
	setScorerDefaults(&cfg.Scorer)
	setLoggingDefaults(&cfg.Logging)
}

func setServiceDefaults(s *ServiceConfig) {
	if s.Name == "" {
		s.Name = defaultServiceName
	}
	if s.Version == "" {
		s.Version = defaultServiceVersion
	}
}

func setServerDefaults(s *ServerConfig) {
	if s.Port == 0 {
		s.Port = defaultServerPort
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = defaultReadTimeout
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = defaultWriteTimeout
	}
}

func setDatabaseDefaults(d *DatabaseConfig) {
	if d.Driver == "" {
		d.Driver = defaultDBDriver
	}
	if d.DSN == "" && d.Driver == defaultDBDriver {
		d.DSN = defaultDBDSN
	}
}

func setIngestorDefaults(i *IngestorConfig) {
	if i.InputDir == "" {
		i.InputDir = defaultInputDir
	}
	if i.Interval == 0 {
		i.Interval = defaultIngestInterval
	}
	if i.Debounce == 0 {
		i.Debounce = defaultIngestDebounce
	}
}

func setProcessorDefaults(p *ProcessorConfig) {
	if p.Interval == 0 {
		p.Interval = defaultPollInterval
	}
	if p.BatchSize == 0 {
		p.BatchSize = defaultBatchSize
	}
	if p.Concurrency == 0 {
		p.Concurrency = defaultConcurrency
	}
}

func setScorerDefaults(s *scorer.Config) {
	if s.Provider == "" {
		s.Provider = defaultScorerProvider
	}
	if s.Timeout == 0 {
		s.Timeout = defaultScorerTimeout
	}
	if s.RPS == 0 {
		s.RPS = defaultScorerRateLimit
	}
	if s.MaxInputChars == 0 {
		s.MaxInputChars = defaultScorerMaxChars
	}
	if s.BreakerThreshold == 0 {
		s.BreakerThreshold = defaultBreakerLimit
	}
	if s.BreakerCooldown == 0 {
		s.BreakerCooldown = defaultBreakerCooldown
	}
}

func setLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = defaultLogLevel
	}
	if l.Format == "" {
		l.Format = defaultLogFormat
	}
}
