package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/602gho/mtr-isl-hfc-webpage/internal/modules/weather/types"
)

//go:embed sql/insert-reading.sql
var insertReadingSQL string

//go:embed sql/get-latest-readings.sql
var getLatestReadingsSQL string

//go:embed sql/get-readings.sql
var getReadingsSQL string

// tsLayout is fixed-width so stored timestamps sort lexically.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

var maxTime = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)

type WeatherRepository interface {
	// InsertReading stores r and reports false when the same place/time is already stored.
	InsertReading(ctx context.Context, r types.Reading) (bool, error)
	GetLatestReadings(ctx context.Context, place string, limit int) ([]types.Reading, error)
	// GetReadings returns readings in [from, to], oldest first. Zero bounds are open.
	GetReadings(ctx context.Context, place string, from time.Time, to time.Time, limit int) ([]types.Reading, error)
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) WeatherRepository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) InsertReading(ctx context.Context, rec types.Reading) (bool, error) {
	if rec.Place == "" {
		return false, fmt.Errorf("insert reading: place is required")
	}
	if rec.Time.IsZero() {
		return false, fmt.Errorf("insert reading: timestamp is required")
	}
	if rec.HumidityPct != nil && (*rec.HumidityPct < 0 || *rec.HumidityPct > 100) {
		return false, fmt.Errorf("humidity_pct out of range: %f (must be 0-100)", *rec.HumidityPct)
	}

	var humidityVal any
	if rec.HumidityPct != nil {
		humidityVal = *rec.HumidityPct
	}

	res, err := r.db.ExecContext(ctx, insertReadingSQL,
		rec.Time.UTC().Format(tsLayout),
		rec.Place,
		rec.TemperatureC,
		humidityVal,
		rec.RainfallMm,
	)
	if err != nil {
		return false, fmt.Errorf("insert reading: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert reading rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *repositoryImpl) GetLatestReadings(ctx context.Context, place string, limit int) ([]types.Reading, error) {
	rows, err := r.db.QueryContext(ctx, getLatestReadingsSQL, place, place, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close latest readings rows", "error", err)
		}
	}()
	return scanReadings(rows)
}

func (r *repositoryImpl) GetReadings(ctx context.Context, place string, from time.Time, to time.Time, limit int) ([]types.Reading, error) {
	if to.IsZero() {
		to = maxTime
	}
	fromStr := from.UTC().Format(tsLayout)
	toStr := to.UTC().Format(tsLayout)
	rows, err := r.db.QueryContext(ctx, getReadingsSQL, place, place, fromStr, toStr, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close readings rows", "error", err)
		}
	}()
	return scanReadings(rows)
}

func scanReadings(rows *sql.Rows) ([]types.Reading, error) {
	out := []types.Reading{}
	for rows.Next() {
		var rec types.Reading
		var ts string
		var humidity sql.NullFloat64
		if err := rows.Scan(&rec.Place, &ts, &rec.TemperatureC, &humidity, &rec.RainfallMm); err != nil {
			return nil, err
		}
		t, err := time.Parse(tsLayout, ts)
		if err != nil {
			var err2 error
			t, err2 = time.Parse(time.RFC3339, ts)
			if err2 != nil {
				return nil, fmt.Errorf("parse timestamp %q: %w; RFC3339: %w", ts, err, err2)
			}
		}
		rec.Time = t
		if humidity.Valid {
			h := humidity.Float64
			rec.HumidityPct = &h
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
