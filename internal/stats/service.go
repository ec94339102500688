// Package stats computes rolling summaries over a user's persisted records.
package stats

import (
	"context"
	"fmt"
	"sort"
	"time"

	"log/slog"

	"github.com/m3rciful/memobot/core/logger"
	"github.com/m3rciful/memobot/internal/domain"
)

// Repository is the slice of record storage the engine needs.
type Repository interface {
	ListRecordsInRange(ctx context.Context, userID int64, start, end time.Time) ([]domain.RecordTimes, error)
	FirstRecordTime(ctx context.Context, userID int64) (*time.Time, error)
	CountAllRecords(ctx context.Context, userID int64) (int, error)
}

// Service builds StatsSummary values for a trailing window.
type Service struct {
	records Repository
	now     func() time.Time
}

// NewService wires the engine to record storage.
func NewService(records Repository) *Service {
	return &Service{
		records: records,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// The four fixed local-time bands used for the hour-of-day histogram.
var bucketLabels = [4]string{"深夜(00-06)", "上午(06-12)", "下午(12-18)", "晚上(18-24)"}

// BuildSummary computes the summary for the trailing windowDays window.
// Rates are all-time averages projected onto 7- and 30-day periods and stay
// unavailable while the user's history is shorter than the period, instead
// of extrapolating from too little data.
func (s *Service) BuildSummary(ctx context.Context, userID int64, windowDays int) (domain.StatsSummary, error) {
	now := s.now()
	start := now.AddDate(0, 0, -windowDays)

	entries, err := s.records.ListRecordsInRange(ctx, userID, start, now)
	if err != nil {
		return domain.StatsSummary{}, fmt.Errorf("stats: list records: %w", err)
	}

	first, err := s.records.FirstRecordTime(ctx, userID)
	if err != nil {
		return domain.StatsSummary{}, fmt.Errorf("stats: first record time: %w", err)
	}

	summary := domain.StatsSummary{Total: len(entries)}

	summary.AvgWeek, err = s.averageRate(ctx, userID, first, now, 7)
	if err != nil {
		return domain.StatsSummary{}, err
	}
	summary.AvgMonth, err = s.averageRate(ctx, userID, first, now, 30)
	if err != nil {
		return domain.StatsSummary{}, err
	}

	summary.TopBucket = TopBucket(BucketizeHours(localHours(entries)))
	summary.AvgInterval, summary.LastAgo = intervalStats(entries, now)

	logger.Debug(ctx, "stats", "stats.summary",
		slog.Int64("user_id", userID),
		slog.Int("window_days", windowDays),
		slog.Int("total", summary.Total),
	)
	return summary, nil
}

// averageRate projects the all-time record count onto a periodDays-long
// period. Nil means unavailable: no history at all, or history shorter than
// one full period.
func (s *Service) averageRate(ctx context.Context, userID int64, first *time.Time, now time.Time, periodDays int) (*float64, error) {
	if first == nil {
		return nil, nil
	}
	period := time.Duration(periodDays) * 24 * time.Hour
	elapsed := now.Sub(*first)
	if elapsed < period {
		return nil, nil
	}
	total, err := s.records.CountAllRecords(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("stats: count records: %w", err)
	}
	rate := float64(total) / (float64(elapsed) / float64(period))
	return &rate, nil
}

// BucketizeHours counts local hours into the four fixed bands, dropping
// empty buckets.
func BucketizeHours(hours []int) map[string]int {
	counts := make(map[string]int, len(bucketLabels))
	for _, hour := range hours {
		switch {
		case hour >= 0 && hour < 6:
			counts[bucketLabels[0]]++
		case hour < 12:
			counts[bucketLabels[1]]++
		case hour < 18:
			counts[bucketLabels[2]]++
		default:
			counts[bucketLabels[3]]++
		}
	}
	return counts
}

// TopBucket joins every bucket tied for the maximum count; ties are not
// arbitrarily broken. Empty input yields "".
func TopBucket(counts map[string]int) string {
	if len(counts) == 0 {
		return ""
	}
	max := 0
	for _, n := range counts {
		if n > max {
			max = n
		}
	}
	var top []string
	for _, label := range bucketLabels {
		if counts[label] == max {
			top = append(top, label)
		}
	}
	out := ""
	for i, label := range top {
		if i > 0 {
			out += " / "
		}
		out += label
	}
	return out
}

func localHours(entries []domain.RecordTimes) []int {
	hours := make([]int, 0, len(entries))
	for _, e := range entries {
		hours = append(hours, e.TimestampLoc.Hour())
	}
	return hours
}

// intervalStats returns the mean consecutive gap and the time since the
// latest record. With fewer than two records the mean is unavailable; with
// none, both are.
func intervalStats(entries []domain.RecordTimes, now time.Time) (*time.Duration, *time.Duration) {
	if len(entries) == 0 {
		return nil, nil
	}

	times := make([]time.Time, len(entries))
	for i, e := range entries {
		times[i] = e.TimestampUTC
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	lastAgo := now.Sub(times[len(times)-1])
	if len(times) < 2 {
		return nil, &lastAgo
	}

	var sum time.Duration
	for i := 1; i < len(times); i++ {
		sum += times[i].Sub(times[i-1])
	}
	avg := sum / time.Duration(len(times)-1)
	return &avg, &lastAgo
}
