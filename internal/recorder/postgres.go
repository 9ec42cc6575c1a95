package recorder

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is the subset of pgxpool.Pool used by Postgres.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Schema creates the aqi_predictions table.
const Schema = `
CREATE TABLE IF NOT EXISTS aqi_predictions (
	id            UUID PRIMARY KEY,
	latitude      DOUBLE PRECISION NOT NULL,
	longitude     DOUBLE PRECISION NOT NULL,
	feature_names TEXT[] NOT NULL,
	features      DOUBLE PRECISION[] NOT NULL,
	predicted_aqi DOUBLE PRECISION NOT NULL,
	fallback      BOOLEAN NOT NULL DEFAULT FALSE,
	reason        TEXT NOT NULL DEFAULT '',
	model         TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS aqi_predictions_created_at_idx ON aqi_predictions (created_at);
`

// Postgres writes records to the aqi_predictions table.
type Postgres struct {
	db Execer
}

// NewPostgres creates a recorder on top of a pool.
func NewPostgres(db Execer) *Postgres {
	return &Postgres{db: db}
}

// Record inserts rec. A record already stored under the same ID is left alone, so
// redelivered messages are harmless.
func (p *Postgres) Record(ctx context.Context, rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO aqi_predictions
			(id, latitude, longitude, feature_names, features, predicted_aqi, fallback, reason, model, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := p.db.Exec(ctx, query,
		rec.ID, rec.Latitude, rec.Longitude, rec.FeatureNames, rec.Features,
		rec.PredictedAQI, rec.Fallback, rec.Reason, rec.Model, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert prediction %s: %w", rec.ID, err)
	}
	return nil
}
