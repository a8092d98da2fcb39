// Package config loads the YAML configuration shared by the command-line
// tool, the file watcher and the HTTP service.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid configuration")

// Config is the top-level configuration.
type Config struct {
	// Engine names the optimisation engine: "fd" or "sat". The sat engine
	// bit-blasts every power matrix at its product bound and rejects
	// instances whose ranges outgrow its word width, so it suits small
	// depths and counts; fd handles the general case.
	Engine string `yaml:"engine" validate:"oneof=fd sat"`
	// Timeout is the default solve budget; 0 means unbounded.
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`
	// Bounds is the cell bound policy: "canonical" or "histogram".
	Bounds       string `yaml:"bounds" validate:"oneof=canonical histogram"`
	RequireAxiom bool   `yaml:"require_axiom"`
	ColumnCover  bool   `yaml:"column_cover"`
	// Layout is the record layout: "canonical" or "legacy".
	Layout string `yaml:"layout" validate:"oneof=canonical legacy"`

	FD     FDConfig     `yaml:"fd"`
	SAT    SATConfig    `yaml:"sat"`
	Log    LogConfig    `yaml:"log"`
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`
	Watch  WatchConfig  `yaml:"watch"`
	Trace  TraceConfig  `yaml:"trace"`
}

// FDConfig tunes the finite-domain engine.
type FDConfig struct {
	// NodeLimit caps search nodes per solve; 0 means no cap.
	NodeLimit int `yaml:"node_limit" validate:"gte=0"`
}

// SATConfig tunes the SAT engine.
type SATConfig struct {
	MaxWidth     int           `yaml:"max_width" validate:"gte=1,lte=62"`
	PollInterval time.Duration `yaml:"poll_interval" validate:"gt=0"`
}

// LogConfig selects the logrus level and formatter.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn warning error fatal panic"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	Addr            string        `yaml:"addr" validate:"required"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
	// MaxTimeout caps the budget a client may request.
	MaxTimeout time.Duration `yaml:"max_timeout" validate:"gte=0"`
}

// StoreConfig enables the solve archive when Path is set.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// WatchConfig names the request and result files of the watcher.
type WatchConfig struct {
	Input    string        `yaml:"input"`
	Output   string        `yaml:"output" validate:"required_with=Input"`
	Debounce time.Duration `yaml:"debounce" validate:"gt=0"`
}

// TraceConfig enables span export to stdout.
type TraceConfig struct {
	Enabled bool `yaml:"enabled"`
	Pretty  bool `yaml:"pretty"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Engine:       "fd",
		Timeout:      60 * time.Second,
		Bounds:       "canonical",
		RequireAxiom: true,
		ColumnCover:  true,
		Layout:       "canonical",
		FD:           FDConfig{},
		SAT:          SATConfig{MaxWidth: 24, PollInterval: 5 * time.Millisecond},
		Log:          LogConfig{Level: "info", Format: "text"},
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
			MaxTimeout:      5 * time.Minute,
		},
		Watch: WatchConfig{Debounce: 100 * time.Millisecond},
	}
}

var validate = validator.New()

// Validate checks every field constraint.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return fmt.Errorf("%w: %s fails %q (got %v)", ErrInvalid, f.Namespace(), f.Tag(), f.Value())
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Load reads the file at path over the defaults and validates the result.
// An empty path yields the validated defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := Parse(data, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Parse decodes YAML data into cfg, keeping fields the data leaves out.
// Unknown keys are rejected.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: parse: %w", err)
	}
	return nil
}
