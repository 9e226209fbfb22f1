package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/farmer-dashboard/internal/domain"
	"github.com/spec-kit/farmer-dashboard/internal/persistence"
)

// ProfileRepository defines persistence access for farmer profiles.
type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID string) (*domain.Profile, error)
	UpsertRegion(ctx context.Context, userID, region string) (*domain.Profile, error)
}

type profileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository returns a Postgres-backed implementation.
func NewProfileRepository(pool *pgxpool.Pool) ProfileRepository {
	return &profileRepository{pool: pool}
}

// GetByUserID returns the stored profile, or an empty one when none exists yet.
func (r *profileRepository) GetByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	if r.pool == nil {
		return nil, persistence.ErrPostgresNotConfigured
	}

	const query = `
        SELECT user_id, region, updated_at
        FROM profiles WHERE user_id=$1`

	var profile domain.Profile
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&profile.UserID,
		&profile.Region,
		&profile.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return &domain.Profile{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepository) UpsertRegion(ctx context.Context, userID, region string) (*domain.Profile, error) {
	if r.pool == nil {
		return nil, persistence.ErrPostgresNotConfigured
	}

	const query = `
        INSERT INTO profiles (user_id, region)
        VALUES ($1, $2)
        ON CONFLICT (user_id) DO UPDATE SET region=EXCLUDED.region, updated_at=NOW()
        RETURNING user_id, region, updated_at`

	var profile domain.Profile
	if err := r.pool.QueryRow(ctx, query, userID, region).Scan(
		&profile.UserID,
		&profile.Region,
		&profile.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &profile, nil
}
