package domain

import "time"

// Record is one persisted, completed entry. Immutable after insert; the
// only mutation is a hard delete scoped to the owning user.
type Record struct {
	ID            int64         `db:"id"`
	UserID        int64         `db:"user_id"`
	TimestampUTC  time.Time     `db:"timestamp_utc"`
	Timezone      string        `db:"timezone"`
	TimestampLoc  time.Time     `db:"timestamp_local"`
	Rating        int           `db:"rating"`
	DurationCode  DurationCode  `db:"duration_code"`
	VolumeCode    VolumeCode    `db:"volume_code"`
	ViscosityCode ViscosityCode `db:"viscosity_code"`
	CreatedAtUTC  time.Time     `db:"created_at_utc"`
}

// RecordTimes is the projection used by the statistics engine.
type RecordTimes struct {
	TimestampUTC time.Time `db:"timestamp_utc"`
	TimestampLoc time.Time `db:"timestamp_local"`
}

// UserProfile is the persisted per-user row. Timezone is required before any
// recording or stats action; the remaining fields are independently optional.
type UserProfile struct {
	UserID       int64     `db:"user_id"`
	Nickname     *string   `db:"nickname"`
	Timezone     string    `db:"timezone"`
	HeightCM     *int      `db:"height_cm"`
	WeightKG     *float64  `db:"weight_kg"`
	Birthday     *string   `db:"birthday"`
	CreatedAtUTC time.Time `db:"created_at_utc"`
	UpdatedAtUTC time.Time `db:"updated_at_utc"`
}
