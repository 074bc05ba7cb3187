// Package config loads the server's HCL configuration file.
package config

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/hashicorp/hcl/v2/hclsimple"
)

// Defaults applied when the config file omits a value.
const (
	DefaultListenAddress = ":8080"
	DefaultLogLevel      = "info"
)

// Config is the top-level server configuration.
type Config struct {
	// ListenAddress is the host:port the HTTP server binds to.
	ListenAddress string `hcl:"listen_address,optional"`

	// SchemaPath is the path to the API schema document that drives
	// endpoint resolution and document validation.
	SchemaPath string `hcl:"schema_path"`

	// ClaimSetsPath is the path to the claim set definitions used for
	// resource action authorization. Without it every request is denied.
	ClaimSetsPath string `hcl:"claim_sets_path,optional"`

	// ProfilesPath is the path to the API profile definitions. Empty
	// means no profiles are served.
	ProfilesPath string `hcl:"profiles_path,optional"`

	// MaxPageSize bounds the limit query parameter. Zero uses the
	// pipeline default.
	MaxPageSize int `hcl:"max_page_size,optional"`

	LogLevel string `hcl:"log_level,optional"`

	JWT *JWTConfig `hcl:"jwt,block"`
}

// JWTConfig configures bearer token validation.
type JWTConfig struct {
	// SecretEnv names the environment variable holding the HMAC signing
	// secret. The secret itself never appears in the config file.
	SecretEnv string `hcl:"secret_env"`

	// Audience, when set, must match the token's aud claim.
	Audience string `hcl:"audience,optional"`
}

// Load reads and validates the configuration at path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := hclsimple.DecodeFile(path, nil, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for structural errors.
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.SchemaPath, validation.Required),
		validation.Field(&c.MaxPageSize, validation.Min(0)),
		validation.Field(&c.LogLevel,
			validation.In("trace", "debug", "info", "warn", "error")),
		validation.Field(&c.JWT, validation.Required),
	)
	if err != nil {
		return err
	}
	return validation.ValidateStruct(c.JWT,
		validation.Field(&c.JWT.SecretEnv, validation.Required),
	)
}
