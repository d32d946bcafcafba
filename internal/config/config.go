package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"xsearch/internal/model"
)

// Config is the run configuration.
// Secrets are never stored here; see Credentials.
type Config struct {
	Search  SearchConfig  `yaml:"search"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
	Client  ClientConfig  `yaml:"client"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type SearchConfig struct {
	Query string `yaml:"query"`
	// Start and End are RFC 3339 timestamps. When empty the window ends 30s
	// before now and spans Window.
	Start          string        `yaml:"start"`
	End            string        `yaml:"end"`
	Window         time.Duration `yaml:"window"`
	MaxResults     int           `yaml:"maxResults"`
	Threshold      int           `yaml:"threshold"`
	Language       string        `yaml:"language"`
	ExcludeReposts bool          `yaml:"excludeReposts"`
}

type OutputConfig struct {
	CSV      string `yaml:"csv"`
	Console  bool   `yaml:"console"`
	Timezone string `yaml:"timezone" validate:"required"`
}

type LoggingConfig struct {
	Dir     string `yaml:"dir" validate:"required"`
	Name    string `yaml:"name" validate:"required"`
	Level   string `yaml:"level" validate:"required,oneof=debug info warn error"`
	Console bool   `yaml:"console"`
}

type ClientConfig struct {
	BaseURL string        `yaml:"baseURL" validate:"required,url"`
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
	Auth    string        `yaml:"auth" validate:"required,oneof=bearer user"`
}

type MetricsConfig struct {
	// Textfile is a node-exporter textfile path; empty disables it.
	Textfile string `yaml:"textfile"`
}

// endSlack keeps end_time clear of the API's "at least 10 seconds ago" rule.
const endSlack = 30 * time.Second

var goValidator = validator.New()

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		Search: SearchConfig{
			Query:      "",
			Window:     24 * time.Hour,
			MaxResults: 100,
			Threshold:  3,
		},
		Output:  OutputConfig{CSV: "tweet_data.csv", Console: true, Timezone: "Asia/Tokyo"},
		Logging: LoggingConfig{Dir: "./logs", Name: "xsearch", Level: "debug", Console: false},
		Client:  ClientConfig{BaseURL: "https://api.twitter.com/2", Timeout: 15 * time.Second, Auth: "bearer"},
	}
}

// Load reads YAML config from path on top of Default. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// Validate checks static config values. Search criteria are validated
// separately once they are resolved.
func (c Config) Validate() error {
	if err := goValidator.Struct(c); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			msgs := make([]string, 0, len(ve))
			for _, e := range ve {
				msgs = append(msgs, fmt.Sprintf("%s %s", e.Namespace(), e.ActualTag()))
			}
			return fmt.Errorf("validate config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("validate config: %w", err)
	}
	if _, err := time.LoadLocation(c.Output.Timezone); err != nil {
		return fmt.Errorf("validate config: timezone %q: %w", c.Output.Timezone, err)
	}
	return nil
}

// Location returns the configured output time zone.
func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Output.Timezone)
}

// Criteria resolves the search section into immutable SearchCriteria.
// Time parse failures are reported as model.ErrInvalidCriteria.
func (c Config) Criteria(now time.Time) (model.SearchCriteria, error) {
	s := c.Search
	end := now.UTC().Add(-endSlack).Truncate(time.Second)
	if s.End != "" {
		t, err := time.Parse(time.RFC3339, s.End)
		if err != nil {
			return model.SearchCriteria{}, fmt.Errorf("%w: end %q: %v", model.ErrInvalidCriteria, s.End, err)
		}
		end = t.UTC()
	}
	window := s.Window
	if window <= 0 {
		window = 24 * time.Hour
	}
	start := end.Add(-window)
	if s.Start != "" {
		t, err := time.Parse(time.RFC3339, s.Start)
		if err != nil {
			return model.SearchCriteria{}, fmt.Errorf("%w: start %q: %v", model.ErrInvalidCriteria, s.Start, err)
		}
		start = t.UTC()
	}
	return model.SearchCriteria{
		Query:          s.Query,
		Start:          start,
		End:            end,
		MaxResults:     s.MaxResults,
		Threshold:      s.Threshold,
		Language:       s.Language,
		ExcludeReposts: s.ExcludeReposts,
	}, nil
}
