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

// RecordRepo persists completed entries. Rows are append-only; the only
// mutation is the hard delete behind the undo button.
type RecordRepo struct {
	db *sqlx.DB
}

// NewRecordRepo wraps the shared database handle.
func NewRecordRepo(db *sqlx.DB) *RecordRepo {
	return &RecordRepo{db: db}
}

// InsertRecord appends one completed entry and returns its id.
func (r *RecordRepo) InsertRecord(ctx context.Context, rec domain.Record) (int64, error) {
	var id int64
	err := r.db.GetContext(ctx, &id, `
		INSERT INTO records (
		  user_id, timestamp_utc, timezone, timestamp_local,
		  rating, duration_code, volume_code, viscosity_code, created_at_utc
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		rec.UserID, rec.TimestampUTC, rec.Timezone, rec.TimestampLoc,
		rec.Rating, rec.DurationCode, rec.VolumeCode, rec.ViscosityCode,
		rec.CreatedAtUTC)
	if err != nil {
		return 0, fmt.Errorf("insert record: %w", err)
	}
	return id, nil
}

// DeleteRecord hard-deletes a record owned by userID. It reports whether a
// matching row existed; deleting someone else's record is a no-op.
func (r *RecordRepo) DeleteRecord(ctx context.Context, recordID, userID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM records WHERE id = $1 AND user_id = $2`, recordID, userID)
	if err != nil {
		return false, fmt.Errorf("delete record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete record: rows affected: %w", err)
	}
	return n > 0, nil
}

// ListRecordsInRange returns timestamp pairs for the user's records within
// [start, end], ordered by UTC timestamp ascending.
func (r *RecordRepo) ListRecordsInRange(ctx context.Context, userID int64, start, end time.Time) ([]domain.RecordTimes, error) {
	var out []domain.RecordTimes
	err := r.db.SelectContext(ctx, &out, `
		SELECT timestamp_utc, timestamp_local
		FROM records
		WHERE user_id = $1 AND timestamp_utc BETWEEN $2 AND $3
		ORDER BY timestamp_utc ASC`,
		userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("list records in range: %w", err)
	}
	return out, nil
}

// FirstRecordTime returns the user's earliest record timestamp, or nil.
func (r *RecordRepo) FirstRecordTime(ctx context.Context, userID int64) (*time.Time, error) {
	return r.boundaryTime(ctx, userID, "MIN")
}

// LastRecordTime returns the user's latest record timestamp, or nil.
func (r *RecordRepo) LastRecordTime(ctx context.Context, userID int64) (*time.Time, error) {
	return r.boundaryTime(ctx, userID, "MAX")
}

func (r *RecordRepo) boundaryTime(ctx context.Context, userID int64, agg string) (*time.Time, error) {
	var ts sql.NullTime
	query := fmt.Sprintf(
		`SELECT %s(timestamp_utc) FROM records WHERE user_id = $1`, agg)
	err := r.db.GetContext(ctx, &ts, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s record time: %w", agg, err)
	}
	if !ts.Valid {
		return nil, nil
	}
	t := ts.Time.UTC()
	return &t, nil
}

// CountAllRecords returns the user's all-time record count.
func (r *RecordRepo) CountAllRecords(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM records WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}
