package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, DATAKILN_CONFIG env, ./config.yaml, /etc/datakiln/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	// Start with defaults.
	cfg := Defaults()

	// Discover and load YAML config file.
	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	// Apply environment variable overrides.
	applyEnvOverrides(&cfg)

	// Resolve _file references.
	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	// Validate.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. DATAKILN_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/datakiln/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	// Explicit path takes priority.
	if configPath != "" {
		return configPath
	}

	// Check DATAKILN_CONFIG env var.
	if envPath := os.Getenv("DATAKILN_CONFIG"); envPath != "" {
		return envPath
	}

	// Check common locations.
	candidates := []string{
		"config.yaml",
		"/etc/datakiln/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps environment variables to config fields. Env vars
// win over both defaults and the config file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATAKILN_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DATAKILN_GENERATOR_URL"); v != "" {
		cfg.Generator.BaseURL = v
	}
	if v := os.Getenv("DATAKILN_GENERATOR_MODEL"); v != "" {
		cfg.Generator.Model = v
	}
	if v := os.Getenv("DATAKILN_GENERATOR_API_KEY"); v != "" {
		cfg.Generator.APIKey = v
	}
	if v := os.Getenv("DATAKILN_SANDBOX_TYPE"); v != "" {
		cfg.Sandbox.Type = v
	}
	if v := os.Getenv("DATAKILN_SANDBOX_URL"); v != "" {
		cfg.Sandbox.URL = v
	}
	if v := os.Getenv("DATAKILN_SANDBOX_TEMPLATE"); v != "" {
		cfg.Sandbox.Kubernetes.Template = v
	}
	if v := os.Getenv("DATAKILN_SANDBOX_NAMESPACE"); v != "" {
		cfg.Sandbox.Kubernetes.Namespace = v
	}
	if v := os.Getenv("DATAKILN_STORAGE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("DATAKILN_STORAGE_SIZE"); v != "" {
		if size, err := strconv.Atoi(v); err == nil {
			cfg.Storage.MaxSize = size
		}
	}
	if v := os.Getenv("DATAKILN_POSTGRES_DSN"); v != "" {
		cfg.Storage.Postgres.DSN = v
	}
	if v := os.Getenv("DATAKILN_BLOB"); v != "" {
		cfg.Storage.Blob.Type = v
	}
	if v := os.Getenv("DATAKILN_BLOB_DIR"); v != "" {
		cfg.Storage.Blob.Local.Dir = v
	}
	if v := os.Getenv("DATAKILN_S3_BUCKET"); v != "" {
		cfg.Storage.Blob.S3.Bucket = v
	}
	if v := os.Getenv("DATAKILN_S3_ENDPOINT"); v != "" {
		cfg.Storage.Blob.S3.Endpoint = v
	}
	if v := os.Getenv("DATAKILN_AUTH_TYPE"); v != "" {
		cfg.Auth.Type = v
	}
	if v := os.Getenv("DATAKILN_RATE_LIMIT_RPM"); v != "" {
		if rpm, err := strconv.Atoi(v); err == nil {
			cfg.Auth.RateLimitRPM = rpm
		}
	}

	// DATAKILN_API_KEYS: JSON array of API key configs.
	if v := os.Getenv("DATAKILN_API_KEYS"); v != "" {
		keys, err := parseAPIKeysJSON(v)
		if err == nil && len(keys) > 0 {
			cfg.Auth.APIKeys = keys
		}
	}
}

// parseAPIKeysJSON parses a JSON array of API key entries.
func parseAPIKeysJSON(raw string) ([]APIKeyConfig, error) {
	var entries []struct {
		Key     string `json:"key"`
		Subject string `json:"subject"`
	}
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, err
	}

	keys := make([]APIKeyConfig, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, APIKeyConfig{
			Key:     e.Key,
			Subject: e.Subject,
		})
	}
	return keys, nil
}

// resolveFileReferences reads _file suffixed fields and fills their plain
// counterparts. The plain value, when set, wins over the file reference.
func resolveFileReferences(cfg *Config) error {
	if cfg.Generator.APIKeyFile != "" && cfg.Generator.APIKey == "" {
		val, err := readSecretFile(cfg.Generator.APIKeyFile)
		if err != nil {
			return fmt.Errorf("generator.api_key_file: %w", err)
		}
		cfg.Generator.APIKey = val
	}

	if cfg.Storage.Postgres.DSNFile != "" && cfg.Storage.Postgres.DSN == "" {
		val, err := readSecretFile(cfg.Storage.Postgres.DSNFile)
		if err != nil {
			return fmt.Errorf("storage.postgres.dsn_file: %w", err)
		}
		cfg.Storage.Postgres.DSN = val
	}

	if cfg.Auth.JWT.SecretFile != "" && cfg.Auth.JWT.Secret == "" {
		val, err := readSecretFile(cfg.Auth.JWT.SecretFile)
		if err != nil {
			return fmt.Errorf("auth.jwt.secret_file: %w", err)
		}
		cfg.Auth.JWT.Secret = val
	}

	for i := range cfg.Auth.APIKeys {
		if cfg.Auth.APIKeys[i].KeyFile != "" && cfg.Auth.APIKeys[i].Key == "" {
			val, err := readSecretFile(cfg.Auth.APIKeys[i].KeyFile)
			if err != nil {
				return fmt.Errorf("auth.api_keys[%d].key_file: %w", i, err)
			}
			cfg.Auth.APIKeys[i].Key = val
		}
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
