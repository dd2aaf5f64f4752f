package config

import (
	"errors"
	"fmt"
	"strings"
)

// placeholders are template values that must never reach a running
// service. A field holding one is treated as unset.
var placeholders = map[string]bool{
	"your_api_key_here": true,
	"changeme":          true,
	"change_me":         true,
	"placeholder":       true,
	"xxx":               true,
	"todo":              true,
}

func isPlaceholder(v string) bool {
	return placeholders[strings.ToLower(strings.TrimSpace(v))]
}

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	// generator.base_url and generator.model are required.
	if c.Generator.BaseURL == "" {
		errs = append(errs, fmt.Errorf("generator.base_url is required"))
	}
	if c.Generator.Model == "" {
		errs = append(errs, fmt.Errorf("generator.model is required"))
	}

	// Placeholder values from config templates fail fast rather than
	// surfacing as a 401 from the backend at the first generation.
	for _, f := range []struct{ path, value string }{
		{"generator.model", c.Generator.Model},
		{"generator.api_key", c.Generator.APIKey},
		{"auth.jwt.secret", c.Auth.JWT.Secret},
	} {
		if isPlaceholder(f.value) {
			errs = append(errs, fmt.Errorf("%s is set to placeholder value %q", f.path, f.value))
		}
	}
	for i, entry := range c.Auth.APIKeys {
		if isPlaceholder(entry.Key) {
			errs = append(errs, fmt.Errorf("auth.api_keys[%d].key is set to placeholder value %q", i, entry.Key))
		}
	}

	// server.port must be positive.
	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	// sandbox.type must be a known value with its required settings.
	switch c.Sandbox.Type {
	case "static":
		if c.Sandbox.URL == "" {
			errs = append(errs, fmt.Errorf("sandbox.url is required when sandbox.type is \"static\""))
		}
	case "kubernetes":
		if c.Sandbox.Kubernetes.Template == "" {
			errs = append(errs, fmt.Errorf("sandbox.kubernetes.template is required when sandbox.type is \"kubernetes\""))
		}
	default:
		errs = append(errs, fmt.Errorf("sandbox.type must be \"static\" or \"kubernetes\", got %q", c.Sandbox.Type))
	}

	// pipeline.tuning_top_models must be positive.
	if c.Pipeline.TuningTopModels <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.tuning_top_models must be > 0, got %d", c.Pipeline.TuningTopModels))
	}

	// storage.type must be a known value.
	switch c.Storage.Type {
	case "memory", "postgres":
		// valid
	default:
		errs = append(errs, fmt.Errorf("storage.type must be \"memory\" or \"postgres\", got %q", c.Storage.Type))
	}

	// If storage.type is "postgres", DSN or DSNFile must be set.
	if c.Storage.Type == "postgres" {
		if c.Storage.Postgres.DSN == "" && c.Storage.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("storage.postgres.dsn or storage.postgres.dsn_file is required when storage.type is \"postgres\""))
		}
	}

	// storage.blob.type must be a known value with its required settings.
	switch c.Storage.Blob.Type {
	case "memory":
		// valid
	case "local":
		if c.Storage.Blob.Local.Dir == "" {
			errs = append(errs, fmt.Errorf("storage.blob.local.dir is required when storage.blob.type is \"local\""))
		}
	case "s3":
		if c.Storage.Blob.S3.Bucket == "" {
			errs = append(errs, fmt.Errorf("storage.blob.s3.bucket is required when storage.blob.type is \"s3\""))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.blob.type must be \"memory\", \"local\", or \"s3\", got %q", c.Storage.Blob.Type))
	}

	// auth.type must be a known value.
	switch c.Auth.Type {
	case "none", "apikey", "jwt":
		// valid
	default:
		errs = append(errs, fmt.Errorf("auth.type must be \"none\", \"apikey\", or \"jwt\", got %q", c.Auth.Type))
	}

	if c.Auth.Type == "jwt" && c.Auth.JWT.Secret == "" && c.Auth.JWT.SecretFile == "" && c.Auth.JWT.JWKSURL == "" {
		errs = append(errs, fmt.Errorf("auth.jwt.secret, auth.jwt.secret_file, or auth.jwt.jwks_url is required when auth.type is \"jwt\""))
	}

	return errors.Join(errs...)
}
