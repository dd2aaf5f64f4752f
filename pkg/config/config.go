// Package config provides unified configuration for the datakiln service.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (DATAKILN_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the datakiln service.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Generator     GeneratorConfig     `yaml:"generator"`
	Sandbox       SandboxConfig       `yaml:"sandbox"`
	Pipeline      PipelineConfig      `yaml:"pipeline"`
	Storage       StorageConfig       `yaml:"storage"`
	Auth          AuthConfig          `yaml:"auth"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // default: 8080
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 300s, long enough for tuning runs
	MaxBodyBytes int64         `yaml:"max_body_bytes"` // default: 64 MiB, caps CSV uploads
}

// GeneratorConfig holds the code-generation backend settings.
type GeneratorConfig struct {
	BaseURL     string        `yaml:"base_url"`     // required
	Model       string        `yaml:"model"`        // required
	APIKey      string        `yaml:"api_key"`      // optional
	APIKeyFile  string        `yaml:"api_key_file"` // _file variant for api_key
	MaxTokens   int           `yaml:"max_tokens"`   // default: 4000
	Temperature float64       `yaml:"temperature"`  // default: 0.1
	Timeout     time.Duration `yaml:"timeout"`      // default: 120s
}

// SandboxConfig holds code execution sandbox settings.
type SandboxConfig struct {
	Type string `yaml:"type"` // "static" or "kubernetes", default: "static"

	// URL is the sandbox server base URL for type=static.
	URL string `yaml:"url"`

	// Kubernetes holds SandboxClaim settings for type=kubernetes.
	Kubernetes KubernetesSandboxConfig `yaml:"kubernetes"`

	PreprocessTimeout time.Duration `yaml:"preprocess_timeout"` // default: 60s
	TrainTimeout      time.Duration `yaml:"train_timeout"`      // default: 120s
	TuneTimeout       time.Duration `yaml:"tune_timeout"`       // default: 600s

	// Requirements overrides the package list installed for training
	// and tuning runs.
	Requirements []string `yaml:"requirements"`
}

// KubernetesSandboxConfig holds SandboxClaim provisioning settings.
type KubernetesSandboxConfig struct {
	Template     string        `yaml:"template"`      // SandboxTemplate name, required for type=kubernetes
	Namespace    string        `yaml:"namespace"`     // default: "default"
	ReadyTimeout time.Duration `yaml:"ready_timeout"` // default: 120s
}

// PipelineConfig holds orchestration settings.
type PipelineConfig struct {
	// ErrorMarkers are substrings of captured sandbox output that mark
	// a completed run as failed_with_errors.
	ErrorMarkers []string `yaml:"error_markers"`

	// TuningTopModels is how many baseline models a tuning run targets.
	TuningTopModels int `yaml:"tuning_top_models"` // default: 2
}

// StorageConfig holds experiment and artifact storage settings.
type StorageConfig struct {
	Type     string         `yaml:"type"`     // "memory" or "postgres", default: "memory"
	MaxSize  int            `yaml:"max_size"` // for memory store, default: 10000
	Postgres PostgresConfig `yaml:"postgres"`
	Blob     BlobConfig     `yaml:"blob"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 25
	MinConns       int32  `yaml:"min_conns"`        // default: 2
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: false
}

// BlobConfig holds artifact blob storage settings.
type BlobConfig struct {
	Type  string      `yaml:"type"`  // "memory", "local", or "s3", default: "local"
	Local LocalConfig `yaml:"local"` // for type=local
	S3    S3Config    `yaml:"s3"`    // for type=s3
}

// LocalConfig holds filesystem blob storage settings.
type LocalConfig struct {
	Dir string `yaml:"dir"` // default: "./data"
}

// S3Config holds S3-compatible blob storage settings.
type S3Config struct {
	Bucket       string `yaml:"bucket"` // required for type=s3
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`       // optional, for MinIO and friends
	UsePathStyle bool   `yaml:"use_path_style"` // required by most non-AWS endpoints
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	Type    string         `yaml:"type"`     // "none", "apikey", or "jwt", default: "none"
	APIKeys []APIKeyConfig `yaml:"api_keys"` // API key entries for type=apikey
	JWT     JWTConfig      `yaml:"jwt"`      // for type=jwt

	// RateLimitRPM caps requests per minute per authenticated subject.
	// Zero disables rate limiting.
	RateLimitRPM int `yaml:"rate_limit_rpm"`
}

// APIKeyConfig describes a single API key entry.
type APIKeyConfig struct {
	Key     string `yaml:"key"`
	KeyFile string `yaml:"key_file"` // _file variant for key
	Subject string `yaml:"subject"`
}

// JWTConfig holds JWT verification settings. Either a shared HMAC secret
// or a JWKS endpoint must be configured.
type JWTConfig struct {
	Secret     string `yaml:"secret"`      // HS256 shared secret
	SecretFile string `yaml:"secret_file"` // _file variant for secret
	JWKSURL    string `yaml:"jwks_url"`    // JWKS endpoint for RS256 keys
	Issuer     string `yaml:"issuer"`      // optional expected issuer
	Audience   string `yaml:"audience"`    // optional expected audience
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 300 * time.Second,
			MaxBodyBytes: 64 << 20,
		},
		Generator: GeneratorConfig{
			MaxTokens:   4000,
			Temperature: 0.1,
			Timeout:     120 * time.Second,
		},
		Sandbox: SandboxConfig{
			Type: "static",
			Kubernetes: KubernetesSandboxConfig{
				Namespace:    "default",
				ReadyTimeout: 120 * time.Second,
			},
			PreprocessTimeout: 60 * time.Second,
			TrainTimeout:      120 * time.Second,
			TuneTimeout:       600 * time.Second,
		},
		Pipeline: PipelineConfig{
			TuningTopModels: 2,
		},
		Storage: StorageConfig{
			Type:    "memory",
			MaxSize: 10000,
			Postgres: PostgresConfig{
				MaxConns: 25,
				MinConns: 2,
			},
			Blob: BlobConfig{
				Type: "local",
				Local: LocalConfig{
					Dir: "./data",
				},
			},
		},
		Auth: AuthConfig{
			Type: "none",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
