package config

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"

	"gotidy/internal/errors"
)

// Prefix is prepended to every environment variable name
const Prefix = "GOTIDY"

// Config represents the complete application configuration
type Config struct {
	LogLevel string         `envconfig:"LOG_LEVEL" default:"INFO" validate:"oneof=ERROR WARN INFO DEBUG"`
	Pipeline PipelineConfig `envconfig:"PIPELINE"`
	Output   OutputConfig   `envconfig:"OUTPUT"`
	Source   SourceConfig   `envconfig:"SOURCE"`
	Server   ServerConfig   `envconfig:"SERVER"`
	Database DatabaseConfig `envconfig:"DB"`
}

// PipelineConfig holds defaults a job may override
type PipelineConfig struct {
	TopN     int `envconfig:"TOP_N" default:"15" validate:"gte=0"`
	Decimals int `envconfig:"DECIMALS" default:"2" validate:"gte=0,lte=10"`
}

// OutputConfig holds where run artifacts go
type OutputConfig struct {
	Dir       string `envconfig:"DIR" default:"out" validate:"required"`
	Excel     bool   `envconfig:"EXCEL" default:"false"`
	PlotlyURL string `envconfig:"PLOTLY_URL" validate:"omitempty,url"`
}

// SourceConfig holds loader settings
type SourceConfig struct {
	HTTPTimeout  time.Duration `envconfig:"HTTP_TIMEOUT" default:"60s" validate:"gt=0"`
	InferSample  int           `envconfig:"INFER_SAMPLE" default:"1000" validate:"gt=0"`
	DecimalComma bool          `envconfig:"DECIMAL_COMMA" default:"false"`
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Addr string `envconfig:"ADDR" default:":8080" validate:"required"`
	// RateLimit is requests per second across all clients; 0 disables it
	RateLimit float64 `envconfig:"RATE_LIMIT" default:"20" validate:"gte=0"`
	Burst     int     `envconfig:"BURST" default:"40" validate:"gte=0"`
}

// DatabaseConfig holds result persistence settings. An empty URL disables
// persistence.
type DatabaseConfig struct {
	URL          string `envconfig:"URL" validate:"omitempty,url"`
	ResultsTable string `envconfig:"RESULTS_TABLE" default:"aggregate_results" validate:"required"`
	Migrate      bool   `envconfig:"MIGRATE" default:"true"`
}

// Enabled reports whether results should be persisted
func (d DatabaseConfig) Enabled() bool { return d.URL != "" }

var validate = validator.New()

// Load reads configuration from GOTIDY_* environment variables and validates it
func Load() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process(Prefix, cfg); err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, errors.Wrap(err, "failed to read environment"))
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cfg against its field constraints
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, errors.Wrap(err, "configuration validation failed"))
	}
	return nil
}
