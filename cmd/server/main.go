// Command server runs the datakiln API service.
//
// Configuration is loaded from a YAML file (discovered or named via
// -config / DATAKILN_CONFIG) with DATAKILN_* environment overrides;
// see the config package for the full list. The quickest start:
//
//	DATAKILN_GENERATOR_URL=http://localhost:9090 \
//	DATAKILN_GENERATOR_MODEL=gpt-4o-mini \
//	DATAKILN_SANDBOX_URL=http://localhost:8090 \
//	server
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	ctrl "sigs.k8s.io/controller-runtime"
	ctrlclient "sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/datakiln/datakiln/pkg/auth"
	"github.com/datakiln/datakiln/pkg/auth/apikey"
	"github.com/datakiln/datakiln/pkg/auth/jwt"
	"github.com/datakiln/datakiln/pkg/auth/noop"
	"github.com/datakiln/datakiln/pkg/config"
	"github.com/datakiln/datakiln/pkg/debug"
	"github.com/datakiln/datakiln/pkg/generator"
	"github.com/datakiln/datakiln/pkg/pipeline"
	"github.com/datakiln/datakiln/pkg/sandbox"
	"github.com/datakiln/datakiln/pkg/sandbox/kubernetes"
	"github.com/datakiln/datakiln/pkg/storage"
	"github.com/datakiln/datakiln/pkg/storage/local"
	"github.com/datakiln/datakiln/pkg/storage/memory"
	"github.com/datakiln/datakiln/pkg/storage/postgres"
	"github.com/datakiln/datakiln/pkg/storage/s3"
	"github.com/datakiln/datakiln/pkg/transport"
	transporthttp "github.com/datakiln/datakiln/pkg/transport/http"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	debug.Init("", "")

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	ctx := context.Background()

	// Experiment store.
	experiments, healthCheck, closeStore, err := buildExperimentStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("creating experiment store: %w", err)
	}
	defer closeStore()

	// Blob store.
	blobs, err := buildBlobStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("creating blob store: %w", err)
	}

	// Code generator.
	gen, err := generator.New(generator.Config{
		BaseURL:     cfg.Generator.BaseURL,
		APIKey:      cfg.Generator.APIKey,
		Model:       cfg.Generator.Model,
		MaxTokens:   cfg.Generator.MaxTokens,
		Temperature: cfg.Generator.Temperature,
		Timeout:     cfg.Generator.Timeout,
	})
	if err != nil {
		return fmt.Errorf("creating generator: %w", err)
	}

	// Sandbox executor.
	acquirer, err := buildAcquirer(cfg)
	if err != nil {
		return fmt.Errorf("creating sandbox acquirer: %w", err)
	}
	executor := sandbox.NewExecutor(sandbox.NewHTTPBackend(acquirer), sandbox.Config{
		PreprocessTimeout: cfg.Sandbox.PreprocessTimeout,
		TrainTimeout:      cfg.Sandbox.TrainTimeout,
		TuneTimeout:       cfg.Sandbox.TuneTimeout,
		Requirements:      cfg.Sandbox.Requirements,
	})

	// Orchestrator.
	orch := pipeline.New(blobs, experiments, gen, executor, pipeline.Config{
		ErrorMarkers:    cfg.Pipeline.ErrorMarkers,
		TuningTopModels: cfg.Pipeline.TuningTopModels,
	})

	authMiddleware, err := buildAuthMiddleware(cfg)
	if err != nil {
		return fmt.Errorf("creating auth middleware: %w", err)
	}

	srv := transporthttp.NewServer(orch, transporthttp.ServerConfig{
		Addr:            fmt.Sprintf(":%d", cfg.Server.Port),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		MaxBodySize:     cfg.Server.MaxBodyBytes,
		ShutdownTimeout: 30 * time.Second,
		MetricsEnabled:  cfg.Observability.Metrics.Enabled,
		MetricsPath:     cfg.Observability.Metrics.Path,
		Ready:           healthCheck,
		ExtraMiddleware: []transport.Middleware{authMiddleware},
	})

	slog.Info("server starting",
		"port", cfg.Server.Port,
		"generator", cfg.Generator.BaseURL,
		"model", cfg.Generator.Model,
		"sandbox", cfg.Sandbox.Type,
		"storage", cfg.Storage.Type,
		"blob", cfg.Storage.Blob.Type,
		"auth", cfg.Auth.Type,
	)
	return srv.ListenAndServe()
}

// buildExperimentStore creates the experiment store named by the config
// along with a readiness probe and a cleanup function.
func buildExperimentStore(ctx context.Context, cfg *config.Config) (storage.ExperimentStore, func(context.Context) error, func(), error) {
	switch cfg.Storage.Type {
	case "postgres":
		store, err := postgres.New(ctx, postgres.Config{
			DSN:            cfg.Storage.Postgres.DSN,
			MaxConns:       cfg.Storage.Postgres.MaxConns,
			MinConns:       cfg.Storage.Postgres.MinConns,
			MigrateOnStart: cfg.Storage.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		return store, store.HealthCheck, func() { store.Close() }, nil
	case "memory", "":
		store := memory.New(cfg.Storage.MaxSize)
		return store, store.HealthCheck, func() {}, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}
}

// buildBlobStore creates the artifact blob store named by the config.
func buildBlobStore(ctx context.Context, cfg *config.Config) (storage.BlobStore, error) {
	switch cfg.Storage.Blob.Type {
	case "s3":
		return s3.New(ctx, s3.Config{
			Bucket:       cfg.Storage.Blob.S3.Bucket,
			Region:       cfg.Storage.Blob.S3.Region,
			Endpoint:     cfg.Storage.Blob.S3.Endpoint,
			UsePathStyle: cfg.Storage.Blob.S3.UsePathStyle,
		})
	case "memory":
		return memory.NewBlobStore(), nil
	case "local", "":
		return local.New(cfg.Storage.Blob.Local.Dir)
	default:
		return nil, fmt.Errorf("unknown blob storage type %q", cfg.Storage.Blob.Type)
	}
}

// buildAcquirer creates the sandbox acquirer named by the config. The
// kubernetes variant provisions ephemeral sandbox pods through
// SandboxClaim resources; static points at a fixed sandbox server.
func buildAcquirer(cfg *config.Config) (sandbox.Acquirer, error) {
	switch cfg.Sandbox.Type {
	case "kubernetes":
		scheme, err := kubernetes.NewScheme()
		if err != nil {
			return nil, err
		}
		restCfg, err := ctrl.GetConfig()
		if err != nil {
			return nil, fmt.Errorf("loading kubeconfig: %w", err)
		}
		c, err := ctrlclient.New(restCfg, ctrlclient.Options{Scheme: scheme})
		if err != nil {
			return nil, fmt.Errorf("creating kubernetes client: %w", err)
		}
		return kubernetes.NewClaimAcquirer(
			c,
			cfg.Sandbox.Kubernetes.Template,
			cfg.Sandbox.Kubernetes.Namespace,
			cfg.Sandbox.Kubernetes.ReadyTimeout,
		), nil
	case "static", "":
		return &sandbox.StaticAcquirer{URL: cfg.Sandbox.URL}, nil
	default:
		return nil, fmt.Errorf("unknown sandbox type %q", cfg.Sandbox.Type)
	}
}

// buildAuthMiddleware assembles the authentication chain and rate
// limiter named by the config.
func buildAuthMiddleware(cfg *config.Config) (transport.Middleware, error) {
	var chain *auth.AuthChain

	switch cfg.Auth.Type {
	case "apikey":
		entries := make([]apikey.RawKeyEntry, 0, len(cfg.Auth.APIKeys))
		for _, k := range cfg.Auth.APIKeys {
			subject := k.Subject
			if subject == "" {
				subject = "api-key-user"
			}
			entries = append(entries, apikey.RawKeyEntry{
				Key:      k.Key,
				Identity: auth.Identity{Subject: subject},
			})
		}
		chain = &auth.AuthChain{
			Authenticators:  []auth.Authenticator{apikey.New(entries)},
			DefaultDecision: auth.No,
		}
	case "jwt":
		chain = &auth.AuthChain{
			Authenticators: []auth.Authenticator{jwt.New(jwt.Config{
				Secret:   cfg.Auth.JWT.Secret,
				JWKSURL:  cfg.Auth.JWT.JWKSURL,
				Issuer:   cfg.Auth.JWT.Issuer,
				Audience: cfg.Auth.JWT.Audience,
			})},
			DefaultDecision: auth.No,
		}
	case "none", "":
		chain = &auth.AuthChain{
			Authenticators:  []auth.Authenticator{&noop.Authenticator{}},
			DefaultDecision: auth.Yes,
		}
	default:
		return nil, fmt.Errorf("unknown auth type %q", cfg.Auth.Type)
	}

	var limiter auth.RateLimiter
	if cfg.Auth.RateLimitRPM > 0 {
		limiter = auth.NewInProcessLimiter(cfg.Auth.RateLimitRPM)
	}

	return auth.Middleware(chain, limiter, auth.DefaultBypassEndpoints), nil
}
