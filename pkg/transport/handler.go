package transport

import (
	"context"

	"github.com/datakiln/datakiln/pkg/api"
	"github.com/datakiln/datakiln/pkg/pipeline"
)

// Pipeline is the contract between the transport layer and the pipeline
// orchestrator. Each method corresponds to one API operation; errors are
// *api.APIError values that the transport maps to HTTP status codes.
type Pipeline interface {
	// Upload validates and stores an uploaded CSV dataset.
	Upload(ctx context.Context, filename string, data []byte) (*pipeline.UploadResult, error)

	// Analyze profiles a stored dataset against a target column and
	// creates the experiment record.
	Analyze(ctx context.Context, datasetKey, targetColumn string) (*api.Experiment, error)

	// Generate produces, validates, and persists Python code for the
	// given pipeline stage.
	Generate(ctx context.Context, experimentID string, kind api.Kind) (*api.GeneratedArtifact, error)

	// Execute runs the stage's generated code in a sandbox and persists
	// the resulting artifacts. Transport-level sandbox failures are
	// reported inside the returned result, not as an error.
	Execute(ctx context.Context, experimentID string, kind api.Kind) (*api.ExecutionResult, error)

	// GetExperiment retrieves an experiment by ID.
	GetExperiment(ctx context.Context, id string) (*api.Experiment, error)

	// ListExperiments returns up to limit experiments, newest first.
	ListExperiments(ctx context.Context, limit int) ([]*api.Experiment, error)

	// Download returns the raw bytes of a stored artifact.
	Download(ctx context.Context, key string) ([]byte, error)

	// ListArtifacts lists stored artifacts with the given key prefix.
	ListArtifacts(ctx context.Context, prefix string) (*pipeline.ArtifactListing, error)

	// DeleteArtifact removes a stored artifact by key.
	DeleteArtifact(ctx context.Context, key string) error
}

// Interface guard: the orchestrator satisfies the transport contract.
var _ Pipeline = (*pipeline.Orchestrator)(nil)
