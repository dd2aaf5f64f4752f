package storage

import (
	"context"
	"time"

	"github.com/datakiln/datakiln/pkg/api"
)

// BlobInfo describes one stored file.
type BlobInfo struct {
	Key      string    `json:"key"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// BlobStore persists dataset and artifact files under validated keys.
type BlobStore interface {
	// Put stores data under key, overwriting any previous content.
	Put(ctx context.Context, key string, data []byte) error

	// Get returns the content stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes the blob under key. Deleting a missing key
	// returns ErrNotFound.
	Delete(ctx context.Context, key string) error

	// List returns info for every blob whose key starts with prefix,
	// ordered by key. An empty prefix lists everything.
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
}

// ExperimentStore persists experiment records.
type ExperimentStore interface {
	// SaveExperiment stores a new experiment. Returns ErrConflict if
	// the ID is already taken.
	SaveExperiment(ctx context.Context, exp *api.Experiment) error

	// GetExperiment returns the experiment with the given ID, or
	// ErrNotFound.
	GetExperiment(ctx context.Context, id string) (*api.Experiment, error)

	// UpdateExperiment replaces a stored experiment. Returns
	// ErrNotFound if it does not exist.
	UpdateExperiment(ctx context.Context, exp *api.Experiment) error

	// ListExperiments returns experiments ordered by creation time,
	// newest first, up to limit. A limit of 0 applies the store default.
	ListExperiments(ctx context.Context, limit int) ([]*api.Experiment, error)

	// DeleteExperiment removes an experiment. Returns ErrNotFound if
	// it does not exist.
	DeleteExperiment(ctx context.Context, id string) error
}
