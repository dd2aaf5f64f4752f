// Package postgres provides a PostgreSQL implementation of
// storage.ExperimentStore. It uses pgx/v5 for connection pooling and
// JSONB for the dataset analysis profile.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/datakiln/datakiln/pkg/api"
	"github.com/datakiln/datakiln/pkg/storage"
)

const defaultListLimit = 50

// Store is a PostgreSQL-backed ExperimentStore.
type Store struct {
	pool *pgxpool.Pool
}

// Ensure Store implements storage.ExperimentStore at compile time.
var _ storage.ExperimentStore = (*Store)(nil)

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

const experimentColumns = `
	id, filename, dataset_key, target_column, task_type,
	row_count, column_count, analysis,
	preprocess_code_key, cleaned_data_key,
	training_code_key, model_results_key,
	tuning_code_key, tuning_results_key,
	created_at, updated_at`

// SaveExperiment persists a new experiment record.
func (s *Store) SaveExperiment(ctx context.Context, exp *api.Experiment) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO experiments (`+experimentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`,
		exp.ID, exp.Filename, exp.DatasetKey,
		nullString(exp.TargetColumn), nullString(exp.TaskType),
		exp.Rows, exp.Columns, nullJSON(exp.Analysis),
		nullString(exp.PreprocessCodeKey), nullString(exp.CleanedDataKey),
		nullString(exp.TrainingCodeKey), nullString(exp.ModelResultsKey),
		nullString(exp.TuningCodeKey), nullString(exp.TuningResultsKey),
		exp.CreatedAt, exp.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("inserting experiment: %w", err)
	}
	return nil
}

// GetExperiment retrieves an experiment by ID.
func (s *Store) GetExperiment(ctx context.Context, id string) (*api.Experiment, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+experimentColumns+`
		FROM experiments
		WHERE id = $1
	`, id)

	exp, err := scanExperiment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying experiment: %w", err)
	}
	return exp, nil
}

// UpdateExperiment replaces a stored experiment.
func (s *Store) UpdateExperiment(ctx context.Context, exp *api.Experiment) error {
	result, err := s.pool.Exec(ctx, `
		UPDATE experiments SET
			filename = $2, dataset_key = $3, target_column = $4, task_type = $5,
			row_count = $6, column_count = $7, analysis = $8,
			preprocess_code_key = $9, cleaned_data_key = $10,
			training_code_key = $11, model_results_key = $12,
			tuning_code_key = $13, tuning_results_key = $14,
			updated_at = $15
		WHERE id = $1
	`,
		exp.ID, exp.Filename, exp.DatasetKey,
		nullString(exp.TargetColumn), nullString(exp.TaskType),
		exp.Rows, exp.Columns, nullJSON(exp.Analysis),
		nullString(exp.PreprocessCodeKey), nullString(exp.CleanedDataKey),
		nullString(exp.TrainingCodeKey), nullString(exp.ModelResultsKey),
		nullString(exp.TuningCodeKey), nullString(exp.TuningResultsKey),
		exp.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating experiment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListExperiments returns experiments newest first.
func (s *Store) ListExperiments(ctx context.Context, limit int) ([]*api.Experiment, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+experimentColumns+`
		FROM experiments
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing experiments: %w", err)
	}
	defer rows.Close()

	var out []*api.Experiment
	for rows.Next() {
		exp, err := scanExperiment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning experiment: %w", err)
		}
		out = append(out, exp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing experiments: %w", err)
	}
	return out, nil
}

// DeleteExperiment removes an experiment record.
func (s *Store) DeleteExperiment(ctx context.Context, id string) error {
	result, err := s.pool.Exec(ctx, "DELETE FROM experiments WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("deleting experiment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// HealthCheck verifies the database connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func scanExperiment(row pgx.Row) (*api.Experiment, error) {
	var exp api.Experiment
	var targetColumn, taskType *string
	var analysis *[]byte
	var preprocessCode, cleanedData, trainingCode, modelResults, tuningCode, tuningResults *string

	err := row.Scan(
		&exp.ID, &exp.Filename, &exp.DatasetKey, &targetColumn, &taskType,
		&exp.Rows, &exp.Columns, &analysis,
		&preprocessCode, &cleanedData,
		&trainingCode, &modelResults,
		&tuningCode, &tuningResults,
		&exp.CreatedAt, &exp.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	exp.TargetColumn = deref(targetColumn)
	exp.TaskType = deref(taskType)
	if analysis != nil {
		exp.Analysis = *analysis
	}
	exp.PreprocessCodeKey = deref(preprocessCode)
	exp.CleanedDataKey = deref(cleanedData)
	exp.TrainingCodeKey = deref(trainingCode)
	exp.ModelResultsKey = deref(modelResults)
	exp.TuningCodeKey = deref(tuningCode)
	exp.TuningResultsKey = deref(tuningResults)
	return &exp, nil
}

// nullString converts an empty string to nil for nullable TEXT columns.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullJSON converts nil/empty byte slices to nil for nullable JSONB columns.
func nullJSON(b []byte) *[]byte {
	if len(b) == 0 {
		return nil
	}
	return &b
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// isDuplicateKey checks if the error is a PostgreSQL unique violation (23505).
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
