package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/shortforge/pkg/models"
)

// PostgresStore implements JobStore using pgx/v5. Logs, options and results are JSONB.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logCap int
}

var _ JobStore = (*PostgresStore)(nil)

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, logCap int) *PostgresStore {
	if logCap <= 0 {
		logCap = DefaultLogCap
	}
	return &PostgresStore{pool: pool, logCap: logCap}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

const jobColumns = `id, topic, duration, mode, options, status, progress, logs, result, error_message, created_at, updated_at`

func (s *PostgresStore) CreateJob(ctx context.Context, job *models.Job) error {
	logs, err := json.Marshal(nonNilLogs(capLogs(job.Logs, s.logCap)))
	if err != nil {
		return fmt.Errorf("marshal logs: %w", err)
	}
	options := []byte(job.Options)
	if len(options) == 0 {
		options = nil
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO jobs (id, topic, duration, mode, options, status, progress, logs, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		job.ID, job.Topic, job.Duration, job.Mode, options, job.Status, job.Progress, logs,
		job.CreatedAt, job.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	job, err := scanJob(s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

func (s *PostgresStore) UpdateJob(ctx context.Context, id uuid.UUID, opts ...JobUpdateOption) error {
	params := buildParams(opts)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin update job: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// Lock the row so concurrent updates observe each other's transitions.
	var currentStatus string
	err = tx.QueryRow(ctx, `SELECT status FROM jobs WHERE id = $1 FOR UPDATE`, id).Scan(&currentStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get job status: %w", err)
	}

	next, err := checkUpdate(currentStatus, params)
	if err != nil {
		return err
	}

	query := `UPDATE jobs SET status = $2, updated_at = $3`
	args := []any{id, next, time.Now().UTC()}
	argIdx := 4

	if params.Progress != nil {
		query += fmt.Sprintf(", progress = $%d", argIdx)
		args = append(args, *params.Progress)
		argIdx++
	}
	if params.Result != nil {
		result, err := json.Marshal(params.Result)
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		query += fmt.Sprintf(", result = $%d", argIdx)
		args = append(args, result)
		argIdx++
	}
	if params.Error != nil {
		query += fmt.Sprintf(", error_message = $%d", argIdx)
		args = append(args, *params.Error)
		argIdx++
	}

	query += " WHERE id = $1"

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit update job: %w", err)
	}
	return nil
}

// AppendLog appends and trims in a single statement so concurrent appends cannot exceed the cap.
func (s *PostgresStore) AppendLog(ctx context.Context, id uuid.UUID, level, message string) error {
	now := time.Now().UTC()
	entry, err := json.Marshal([]models.LogEntry{{Timestamp: now, Level: level, Message: message}})
	if err != nil {
		return fmt.Errorf("marshal log entry: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`UPDATE jobs SET updated_at = $3, logs = (
		   SELECT COALESCE(jsonb_agg(e.value ORDER BY e.ord), '[]'::jsonb)
		   FROM (
		     SELECT value, ord
		     FROM jsonb_array_elements(jobs.logs || $2::jsonb) WITH ORDINALITY AS t(value, ord)
		     ORDER BY ord DESC
		     LIMIT $4
		   ) e
		 )
		 WHERE id = $1`,
		id, entry, now, s.logCap)
	if err != nil {
		return fmt.Errorf("append job log: %w", err)
	}
	return nil
}

func (s *PostgresStore) Sweep(ctx context.Context, maxAge time.Duration) ([]*models.Job, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	rows, err := s.pool.Query(ctx,
		`DELETE FROM jobs WHERE created_at <= $1 RETURNING `+jobColumns, cutoff)
	if err != nil {
		return nil, fmt.Errorf("sweep jobs: %w", err)
	}
	defer rows.Close()

	var removed []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan swept job: %w", err)
		}
		removed = append(removed, job)
	}
	return removed, rows.Err()
}

func scanJob(row pgx.Row) (*models.Job, error) {
	var (
		j       models.Job
		options []byte
		logs    []byte
		result  []byte
	)
	if err := row.Scan(&j.ID, &j.Topic, &j.Duration, &j.Mode, &options, &j.Status, &j.Progress,
		&logs, &result, &j.Error, &j.CreatedAt, &j.UpdatedAt); err != nil {
		return nil, err
	}
	if len(options) > 0 {
		j.Options = json.RawMessage(options)
	}
	if len(logs) > 0 {
		if err := json.Unmarshal(logs, &j.Logs); err != nil {
			return nil, fmt.Errorf("decode logs: %w", err)
		}
	}
	if len(result) > 0 {
		var r models.Result
		if err := json.Unmarshal(result, &r); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
		j.Result = &r
	}
	return &j, nil
}

func nonNilLogs(logs []models.LogEntry) []models.LogEntry {
	if logs == nil {
		return []models.LogEntry{}
	}
	return logs
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
