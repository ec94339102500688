package stats

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/m3rciful/memobot/internal/domain"
)

type fakeRecordRepo struct {
	entries []domain.RecordTimes
	first   *time.Time
	total   int
}

func (f *fakeRecordRepo) ListRecordsInRange(_ context.Context, _ int64, _, _ time.Time) ([]domain.RecordTimes, error) {
	return f.entries, nil
}

func (f *fakeRecordRepo) FirstRecordTime(_ context.Context, _ int64) (*time.Time, error) {
	return f.first, nil
}

func (f *fakeRecordRepo) CountAllRecords(_ context.Context, _ int64) (int, error) {
	return f.total, nil
}

var statsNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func newService(repo *fakeRecordRepo) *Service {
	svc := NewService(repo)
	svc.now = func() time.Time { return statsNow }
	return svc
}

func TestBuildSummaryRatesDefinedAfterFullPeriods(t *testing.T) {
	// 10 records evenly spread over 40 days, first record 40 days old.
	first := statsNow.AddDate(0, 0, -40)
	entries := make([]domain.RecordTimes, 10)
	for i := range entries {
		ts := first.Add(time.Duration(i*4) * 24 * time.Hour)
		entries[i] = domain.RecordTimes{TimestampUTC: ts, TimestampLoc: ts}
	}
	repo := &fakeRecordRepo{entries: entries, first: &first, total: 10}

	summary, err := newService(repo).BuildSummary(context.Background(), 1, 90)
	if err != nil {
		t.Fatalf("BuildSummary: %v", err)
	}
	if summary.Total != 10 {
		t.Fatalf("total = %d, want 10", summary.Total)
	}
	if summary.AvgMonth == nil {
		t.Fatal("avg_month should be defined with 40 days of history")
	}
	if got, want := *summary.AvgMonth, 10.0/(40.0/30.0); math.Abs(got-want) > 1e-9 {
		t.Fatalf("avg_month = %f, want %f", got, want)
	}
	if summary.AvgWeek == nil {
		t.Fatal("avg_week should be defined with 40 days of history")
	}
	if got, want := *summary.AvgWeek, 10.0/(40.0/7.0); math.Abs(got-want) > 1e-9 {
		t.Fatalf("avg_week = %f, want %f", got, want)
	}
}

func TestBuildSummaryRatesUnavailableWithShortHistory(t *testing.T) {
	first := statsNow.AddDate(0, 0, -3)
	ts := first.Add(24 * time.Hour)
	repo := &fakeRecordRepo{
		entries: []domain.RecordTimes{{TimestampUTC: ts, TimestampLoc: ts}},
		first:   &first,
		total:   3,
	}

	summary, err := newService(repo).BuildSummary(context.Background(), 1, 7)
	if err != nil {
		t.Fatalf("BuildSummary: %v", err)
	}
	if summary.AvgWeek != nil || summary.AvgMonth != nil {
		t.Fatal("rates must be unavailable, not zero, with 3 days of history")
	}
}

func TestBuildSummaryNoRecordsAtAll(t *testing.T) {
	repo := &fakeRecordRepo{}
	summary, err := newService(repo).BuildSummary(context.Background(), 1, 7)
	if err != nil {
		t.Fatalf("BuildSummary: %v", err)
	}
	if summary.Total != 0 {
		t.Fatalf("total = %d, want 0", summary.Total)
	}
	if summary.AvgWeek != nil || summary.AvgMonth != nil || summary.AvgInterval != nil || summary.LastAgo != nil {
		t.Fatal("everything must be unavailable without records")
	}
	if summary.TopBucket != "" {
		t.Fatalf("top bucket = %q, want empty", summary.TopBucket)
	}
}

func TestBucketizeHours(t *testing.T) {
	counts := BucketizeHours([]int{1, 5, 13, 23})
	want := map[string]int{
		"深夜(00-06)": 2,
		"下午(12-18)": 1,
		"晚上(18-24)": 1,
	}
	if len(counts) != len(want) {
		t.Fatalf("counts = %v, want %v", counts, want)
	}
	for label, n := range want {
		if counts[label] != n {
			t.Fatalf("bucket %s = %d, want %d", label, counts[label], n)
		}
	}
	if _, ok := counts["上午(06-12)"]; ok {
		t.Fatal("empty buckets must be dropped")
	}
	if top := TopBucket(counts); top != "深夜(00-06)" {
		t.Fatalf("top bucket = %q", top)
	}
}

func TestTopBucketJoinsTies(t *testing.T) {
	counts := BucketizeHours([]int{2, 14, 3, 15})
	top := TopBucket(counts)
	if top != "深夜(00-06) / 下午(12-18)" {
		t.Fatalf("tied buckets = %q, want both joined in band order", top)
	}
}

func TestIntervalStats(t *testing.T) {
	base := statsNow.Add(-72 * time.Hour)
	entries := []domain.RecordTimes{
		{TimestampUTC: base, TimestampLoc: base},
		{TimestampUTC: base.Add(10 * time.Hour), TimestampLoc: base.Add(10 * time.Hour)},
		{TimestampUTC: base.Add(30 * time.Hour), TimestampLoc: base.Add(30 * time.Hour)},
	}
	first := base
	repo := &fakeRecordRepo{entries: entries, first: &first, total: 3}

	summary, err := newService(repo).BuildSummary(context.Background(), 1, 7)
	if err != nil {
		t.Fatalf("BuildSummary: %v", err)
	}
	if summary.AvgInterval == nil {
		t.Fatal("avg interval should be defined with 3 records")
	}
	if *summary.AvgInterval != 15*time.Hour {
		t.Fatalf("avg interval = %s, want 15h", summary.AvgInterval)
	}
	if summary.LastAgo == nil || *summary.LastAgo != 42*time.Hour {
		t.Fatalf("last ago = %v, want 42h", summary.LastAgo)
	}
}

func TestIntervalStatsSingleRecord(t *testing.T) {
	ts := statsNow.Add(-5 * time.Hour)
	first := ts
	repo := &fakeRecordRepo{
		entries: []domain.RecordTimes{{TimestampUTC: ts, TimestampLoc: ts}},
		first:   &first,
		total:   1,
	}

	summary, err := newService(repo).BuildSummary(context.Background(), 1, 7)
	if err != nil {
		t.Fatalf("BuildSummary: %v", err)
	}
	if summary.AvgInterval != nil {
		t.Fatal("avg interval needs at least two records")
	}
	if summary.LastAgo == nil || *summary.LastAgo != 5*time.Hour {
		t.Fatalf("last ago = %v, want 5h", summary.LastAgo)
	}
}
