package domain

import "time"

// Session is the ephemeral in-memory state of one in-progress guided entry.
// It is owned by the session registry and mutated only by accepted actions
// matching the current step.
type Session struct {
	ID        string
	UserID    int64
	ChatID    int64
	MessageID int

	Step Step

	Rating        *int
	DurationCode  *DurationCode
	VolumeCode    *VolumeCode
	ViscosityCode *ViscosityCode

	CreatedAtUTC time.Time

	// Finalizing latches while the completed entry is being persisted so a
	// double-tap on the terminal button cannot produce two records. It is
	// cleared only when finalize fails, to allow a retry.
	Finalizing bool
}

// Complete reports whether every step's field has been populated.
func (s *Session) Complete() bool {
	return s.Rating != nil && s.DurationCode != nil && s.VolumeCode != nil && s.ViscosityCode != nil
}
