package trip

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL trip repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const tripColumns = `
	id, user_id, start_ts, end_ts, duration_sec, distance_m,
	path_json, polyline, fish_count, fish_events_json, meta_json, needs_dmi,
	spot_id, spot_name, spot_lat, spot_lng, auto_tagged,
	created_at, updated_at`

func scanTrip(row pgx.Row) (*Trip, error) {
	var t Trip
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.StartTS,
		&t.EndTS,
		&t.DurationSec,
		&t.DistanceM,
		&t.PathJSON,
		&t.Polyline,
		&t.FishCount,
		&t.FishEventsJSON,
		&t.MetaJSON,
		&t.NeedsDMI,
		&t.SpotID,
		&t.SpotName,
		&t.SpotLat,
		&t.SpotLng,
		&t.AutoTagged,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts a trip in a single statement.
func (r *PostgresRepository) Create(ctx context.Context, t *Trip) error {
	query := `
		INSERT INTO trips (` + tripColumns + `
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	_, err := r.pool.Exec(ctx, query,
		t.ID,
		t.UserID,
		t.StartTS,
		t.EndTS,
		t.DurationSec,
		t.DistanceM,
		t.PathJSON,
		t.Polyline,
		t.FishCount,
		t.FishEventsJSON,
		t.MetaJSON,
		t.NeedsDMI,
		t.SpotID,
		t.SpotName,
		t.SpotLat,
		t.SpotLng,
		t.AutoTagged,
		t.CreatedAt,
		t.UpdatedAt,
	)
	return err
}

// Get retrieves a trip owned by userID.
func (r *PostgresRepository) Get(ctx context.Context, userID, tripID string) (*Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1 AND user_id = $2`

	t, err := scanTrip(r.pool.QueryRow(ctx, query, tripID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTripNotFound
		}
		return nil, err
	}
	return t, nil
}

// List returns a user's trips, newest start first, using keyset pagination
// on (start_ts, id).
func (r *PostgresRepository) List(ctx context.Context, userID string, opts ListOptions) (*ListResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	// Fetch one extra to determine if there are more results
	fetchLimit := limit + 1

	var (
		rows pgx.Rows
		err  error
	)
	if opts.Cursor == "" {
		rows, err = r.pool.Query(ctx, `
			SELECT `+tripColumns+`
			FROM trips
			WHERE user_id = $1
			ORDER BY start_ts DESC, id DESC
			LIMIT $2`, userID, fetchLimit)
	} else {
		rows, err = r.pool.Query(ctx, `
			SELECT `+tripColumns+`
			FROM trips
			WHERE user_id = $1
			  AND (start_ts, id) < (SELECT start_ts, id FROM trips WHERE id = $3 AND user_id = $1)
			ORDER BY start_ts DESC, id DESC
			LIMIT $2`, userID, fetchLimit, opts.Cursor)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []*Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := &ListResult{Items: trips}
	if len(trips) > limit {
		result.Items = trips[:limit]
		result.NextCursor = trips[limit-1].ID
	}
	return result, nil
}

// UpdateWeather stores a weather evaluation and clears needs_dmi.
func (r *PostgresRepository) UpdateWeather(ctx context.Context, tripID, metaJSON string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE trips
		SET meta_json = $2, needs_dmi = FALSE, updated_at = NOW()
		WHERE id = $1`, tripID, metaJSON)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTripNotFound
	}
	return nil
}

// ListNeedingWeather returns trips flagged needs_dmi, oldest first.
func (r *PostgresRepository) ListNeedingWeather(ctx context.Context, limit int) ([]*Trip, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+tripColumns+`
		FROM trips
		WHERE needs_dmi
		ORDER BY created_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []*Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, t)
	}
	return trips, rows.Err()
}

var _ Repository = (*PostgresRepository)(nil)
