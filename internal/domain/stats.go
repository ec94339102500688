package domain

import "time"

// StatsSummary is a computed rolling summary over a user's records. Nil
// pointer fields mean "unavailable", which renders differently from zero:
// a rate is unavailable when the user's history is shorter than the period,
// and interval stats need at least two records in the window.
type StatsSummary struct {
	Total       int
	AvgWeek     *float64
	AvgMonth    *float64
	TopBucket   string
	AvgInterval *time.Duration
	LastAgo     *time.Duration
}
