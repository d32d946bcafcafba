package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// ErrMissingCredential is returned when any of the five X API secrets is unset.
var ErrMissingCredential = errors.New("missing credential")

// Credentials holds the X API secrets. Load it once and pass it explicitly.
type Credentials struct {
	ConsumerKey       string `env:"CONSUMER_KEY"`
	ConsumerSecret    string `env:"CONSUMER_SECRET"`
	AccessToken       string `env:"ACCESS_TOKEN"`
	AccessTokenSecret string `env:"ACCESS_TOKEN_SECRET"`
	BearerToken       string `env:"BEARER_TOKEN"`
}

// String redacts every secret so Credentials is safe to log.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{consumer_key=%s consumer_secret=%s access_token=%s access_token_secret=%s bearer_token=%s}",
		redact(c.ConsumerKey), redact(c.ConsumerSecret), redact(c.AccessToken), redact(c.AccessTokenSecret), redact(c.BearerToken))
}

// Missing lists the env var names of unset secrets in declaration order.
func (c Credentials) Missing() []string {
	var out []string
	for _, f := range []struct {
		name, val string
	}{
		{"CONSUMER_KEY", c.ConsumerKey},
		{"CONSUMER_SECRET", c.ConsumerSecret},
		{"ACCESS_TOKEN", c.AccessToken},
		{"ACCESS_TOKEN_SECRET", c.AccessTokenSecret},
		{"BEARER_TOKEN", c.BearerToken},
	} {
		if strings.TrimSpace(f.val) == "" {
			out = append(out, f.name)
		}
	}
	return out
}

// Validate fails with ErrMissingCredential naming every unset variable.
func (c Credentials) Validate() error {
	if m := c.Missing(); len(m) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredential, strings.Join(m, ", "))
	}
	return nil
}

// CredentialProvider supplies the secrets for a run.
type CredentialProvider interface {
	Credentials() (Credentials, error)
}

// EnvProvider reads secrets from the process environment after loading an
// optional .env file. Variables already set in the environment win.
type EnvProvider struct {
	EnvFile string
}

func (p EnvProvider) Credentials() (Credentials, error) {
	if p.EnvFile != "" {
		if err := godotenv.Load(p.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Credentials{}, fmt.Errorf("load env file %s: %w", p.EnvFile, err)
		}
	}
	var c Credentials
	if err := envdecode.Decode(&c); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Credentials{}, fmt.Errorf("decode credentials: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Credentials{}, err
	}
	return c, nil
}

// StaticProvider returns fixed credentials; used by tests and embedders.
type StaticProvider Credentials

func (p StaticProvider) Credentials() (Credentials, error) {
	c := Credentials(p)
	if err := c.Validate(); err != nil {
		return Credentials{}, err
	}
	return c, nil
}

func redact(s string) string {
	if s == "" {
		return "<unset>"
	}
	return "***"
}
