// Package storage implements postgres repositories for users and records.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/memobot/internal/domain"
)

// UserRepo persists per-user profiles keyed by Telegram user id.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo wraps the shared database handle.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// GetTimezone returns the user's IANA timezone, or nil when the user has
// never completed timezone setup.
func (r *UserRepo) GetTimezone(ctx context.Context, userID int64) (*string, error) {
	var tz string
	err := r.db.GetContext(ctx, &tz,
		`SELECT timezone FROM users WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get timezone: %w", err)
	}
	return &tz, nil
}

// UpsertTimezone creates the user row on first contact or updates the
// timezone on later changes. The nickname seeds the profile only once:
// an existing nickname is never overwritten here.
func (r *UserRepo) UpsertTimezone(ctx context.Context, userID int64, tz string, now time.Time, nickname *string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (user_id, timezone, nickname, created_at_utc, updated_at_utc)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (user_id) DO UPDATE SET
		  timezone = EXCLUDED.timezone,
		  nickname = COALESCE(users.nickname, EXCLUDED.nickname),
		  updated_at_utc = EXCLUDED.updated_at_utc`,
		userID, tz, nickname, now)
	if err != nil {
		return fmt.Errorf("upsert timezone: %w", err)
	}
	return nil
}

// GetProfile returns the full profile row, or nil when the user is unknown.
func (r *UserRepo) GetProfile(ctx context.Context, userID int64) (*domain.UserProfile, error) {
	var profile domain.UserProfile
	err := r.db.GetContext(ctx, &profile, `
		SELECT user_id, nickname, timezone, height_cm, weight_kg, birthday,
		       created_at_utc, updated_at_utc
		FROM users WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &profile, nil
}

// UpdateNickname sets the nickname for an existing user.
func (r *UserRepo) UpdateNickname(ctx context.Context, userID int64, nickname string, now time.Time) error {
	return r.updateField(ctx, "nickname", userID, nickname, now)
}

// UpdateHeightCM sets the height for an existing user.
func (r *UserRepo) UpdateHeightCM(ctx context.Context, userID int64, heightCM int, now time.Time) error {
	return r.updateField(ctx, "height_cm", userID, heightCM, now)
}

// UpdateWeightKG sets the weight for an existing user.
func (r *UserRepo) UpdateWeightKG(ctx context.Context, userID int64, weightKG float64, now time.Time) error {
	return r.updateField(ctx, "weight_kg", userID, weightKG, now)
}

// UpdateBirthday sets the birthday (ISO date string) for an existing user.
func (r *UserRepo) UpdateBirthday(ctx context.Context, userID int64, birthday string, now time.Time) error {
	return r.updateField(ctx, "birthday", userID, birthday, now)
}

func (r *UserRepo) updateField(ctx context.Context, column string, userID int64, value any, now time.Time) error {
	// column is always one of the fixed names above, never user input.
	query := fmt.Sprintf(
		`UPDATE users SET %s = $1, updated_at_utc = $2 WHERE user_id = $3`, column)
	if _, err := r.db.ExecContext(ctx, query, value, now, userID); err != nil {
		return fmt.Errorf("update %s: %w", column, err)
	}
	return nil
}
