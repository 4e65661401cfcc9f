package spot

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

// NewPostgresRepository creates a new PostgreSQL spot repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// List returns all spots of a user, oldest first.
func (r *PostgresRepository) List(ctx context.Context, userID string) ([]*Spot, error) {
	query := `
		SELECT id, user_id, name, lat, lng, created_at
		FROM spots
		WHERE user_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var spots []*Spot
	for rows.Next() {
		var s Spot
		if err := rows.Scan(&s.ID, &s.UserID, &s.Name, &s.Lat, &s.Lng, &s.CreatedAt); err != nil {
			return nil, err
		}
		spots = append(spots, &s)
	}
	return spots, rows.Err()
}

// Get returns a spot owned by userID.
func (r *PostgresRepository) Get(ctx context.Context, userID, spotID string) (*Spot, error) {
	query := `
		SELECT id, user_id, name, lat, lng, created_at
		FROM spots
		WHERE id = $1 AND user_id = $2
	`

	var s Spot
	err := r.pool.QueryRow(ctx, query, spotID, userID).
		Scan(&s.ID, &s.UserID, &s.Name, &s.Lat, &s.Lng, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSpotNotFound
		}
		return nil, err
	}
	return &s, nil
}

// Create inserts a spot.
func (r *PostgresRepository) Create(ctx context.Context, s *Spot) error {
	query := `
		INSERT INTO spots (id, user_id, name, lat, lng, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query, s.ID, s.UserID, s.Name, s.Lat, s.Lng, s.CreatedAt)
	return err
}

// Delete removes a spot owned by userID.
func (r *PostgresRepository) Delete(ctx context.Context, userID, spotID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM spots WHERE id = $1 AND user_id = $2`, spotID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSpotNotFound
	}
	return nil
}

var _ Repository = (*PostgresRepository)(nil)
