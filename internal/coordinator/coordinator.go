// Package coordinator talks to the remote generation coordinator: it creates
// generation jobs, polls them to completion, and downloads the finished
// video. Retry policy beyond polling is internal to the remote service.
package coordinator

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

var (
	ErrAPIKeyRequired      = errors.New("API key is required")
	ErrGenerationFailed    = errors.New("video generation failed")
	ErrVideoNotReady       = errors.New("video not ready")
	ErrVideoDownloadFailed = errors.New("video download failed")
)

type Config struct {
	APIKey          string        `env:"VIDGEN_API_KEY"`
	BaseURL         string        `env:"VIDGEN_COORDINATOR_URL" envDefault:"https://api.vidgen.dev/v1"`
	Timeout         time.Duration `env:"VIDGEN_TIMEOUT" envDefault:"60s"`
	PollInterval    time.Duration `env:"VIDGEN_POLL_INTERVAL" envDefault:"2s"`
	MaxPollAttempts int           `env:"VIDGEN_MAX_POLL_ATTEMPTS" envDefault:"300"`
}

// ConfigFromEnv loads the coordinator configuration from the environment.
func ConfigFromEnv() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse coordinator config: %w", err)
	}
	return cfg, nil
}

type Client struct {
	cfg        *Config
	httpClient *http.Client
	errOut     io.Writer
}

func New(cfg *Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrAPIKeyRequired
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.vidgen.dev/v1"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.MaxPollAttempts <= 0 {
		cfg.MaxPollAttempts = 300
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		errOut:     os.Stderr,
	}, nil
}

// SetErrOutput redirects diagnostic output, mainly for tests.
func (c *Client) SetErrOutput(w io.Writer) {
	c.errOut = w
}
