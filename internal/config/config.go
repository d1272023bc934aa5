package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/illarion/safe/internal/crypto"
)

var (
	// ErrParsingConfig is returned when environment variables cannot be parsed into the config struct
	ErrParsingConfig = errors.New("failed to parse environment variables into config")

	// ErrInvalidConfig is returned when a parsed value is out of range
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config holds the CLI settings. Nothing here is read by package crypto
// directly; the CLI turns it into crypto options.
type Config struct {
	Password      string `env:"SAFE_PASSWORD"`
	Path          string `env:"SAFE_PATH" envDefault:".safe"`
	KDFIterations int    `env:"SAFE_KDF_ITERATIONS" envDefault:"600000"`
	KeyLengthBits int    `env:"SAFE_KEY_LENGTH" envDefault:"256"`
	LogLevel      string `env:"SAFE_LOG_LEVEL" envDefault:"warn"`
	LogFormat     string `env:"SAFE_LOG_FORMAT" envDefault:"text"`
}

// Load reads a .env file from the working directory if present, then
// parses the environment into a Config.
func Load() (*Config, error) {
	// The .env file is optional
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, errors.Join(ErrParsingConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges that struct tags cannot express.
func (c *Config) Validate() error {
	if c.KDFIterations <= 0 || c.KDFIterations > crypto.MaxIterations {
		return fmt.Errorf("%w: SAFE_KDF_ITERATIONS=%d", ErrInvalidConfig, c.KDFIterations)
	}
	switch c.KeyLengthBits {
	case 128, 192, 256:
	default:
		return fmt.Errorf("%w: SAFE_KEY_LENGTH=%d, want 128, 192 or 256", ErrInvalidConfig, c.KeyLengthBits)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: SAFE_LOG_FORMAT=%q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return level, fmt.Errorf("%w: SAFE_LOG_LEVEL=%q", ErrInvalidConfig, c.LogLevel)
	}
	return level, nil
}

// PasswordBytes returns a copy of Password, or nil when unset.
// The caller is responsible for calling crypto.ClearBytes on the result.
func (c *Config) PasswordBytes() []byte {
	if c.Password == "" {
		return nil
	}
	return []byte(c.Password)
}
