package runs

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

//go:embed sql/insert-run.sql
var insertRunSQL string

//go:embed sql/list-runs.sql
var listRunsSQL string

//go:embed sql/last-success.sql
var lastSuccessSQL string

// tsLayout is fixed-width so stored timestamps sort lexically.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run is one recorded poll-and-render pass.
type Run struct {
	ID         int64     `json:"id"`
	Source     string    `json:"source"`
	StartedAt  time.Time `json:"startedAt"`
	DurationMs int64     `json:"durationMs"`
	OK         bool      `json:"ok"`
	Error      string    `json:"error,omitempty"`
}

type Repository interface {
	Record(ctx context.Context, source string, startedAt time.Time, duration time.Duration, runErr error) error
	List(ctx context.Context, source string, limit int) ([]Run, error)
	// LastSuccess returns the zero time when the source never succeeded.
	LastSuccess(ctx context.Context, source string) (time.Time, error)
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) Record(ctx context.Context, source string, startedAt time.Time, duration time.Duration, runErr error) error {
	var errText any
	ok := 1
	if runErr != nil {
		ok = 0
		errText = runErr.Error()
	}
	_, err := r.db.ExecContext(ctx, insertRunSQL,
		source,
		startedAt.UTC().Format(tsLayout),
		duration.Milliseconds(),
		ok,
		errText,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (r *repositoryImpl) List(ctx context.Context, source string, limit int) ([]Run, error) {
	rows, err := r.db.QueryContext(ctx, listRunsSQL, source, source, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close runs rows", "error", err)
		}
	}()

	out := []Run{}
	for rows.Next() {
		var (
			run     Run
			ts      string
			ok      int
			errText sql.NullString
		)
		if err := rows.Scan(&run.ID, &run.Source, &ts, &run.DurationMs, &ok, &errText); err != nil {
			return nil, err
		}
		run.StartedAt, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse started_at %q: %w", ts, err)
		}
		run.OK = ok == 1
		run.Error = errText.String
		out = append(out, run)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) LastSuccess(ctx context.Context, source string) (time.Time, error) {
	var ts string
	err := r.db.QueryRowContext(ctx, lastSuccessSQL, source).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse started_at %q: %w", ts, err)
	}
	return t, nil
}
