package session

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m3rciful/memobot/internal/domain"
)

func TestCreateStartsAtRating(t *testing.T) {
	m := NewManager(30 * time.Minute)
	sess := m.Create(42, 1001)

	if sess.Step != domain.StepRating {
		t.Fatalf("new session step = %s, want RATING", sess.Step)
	}
	if sess.UserID != 42 || sess.ChatID != 1001 {
		t.Fatalf("owner fields = %d/%d", sess.UserID, sess.ChatID)
	}
	if sess.Rating != nil || sess.DurationCode != nil || sess.VolumeCode != nil || sess.ViscosityCode != nil {
		t.Fatal("future-step fields must start nil")
	}
	if got := m.Get(sess.ID); got != sess {
		t.Fatal("Get should return the registered session")
	}
}

func TestSessionIDsAreUniqueUnderRapidCreation(t *testing.T) {
	m := NewManager(time.Minute)
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		sess := m.Create(42, 1001)
		if seen[sess.ID] {
			t.Fatalf("duplicate session id %s", sess.ID)
		}
		seen[sess.ID] = true
		if !strings.HasPrefix(sess.ID, "42_") {
			t.Fatalf("id %s should embed the owner", sess.ID)
		}
	}
}

func TestRemoveReturnsAndForgets(t *testing.T) {
	m := NewManager(time.Minute)
	sess := m.Create(1, 2)

	if got := m.Remove(sess.ID); got != sess {
		t.Fatal("Remove should return the live session")
	}
	if got := m.Remove(sess.ID); got != nil {
		t.Fatal("second Remove should return nil")
	}
	if got := m.Get(sess.ID); got != nil {
		t.Fatal("removed session should not be readable")
	}
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	m := NewManager(30 * time.Minute)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	old := m.Create(1, 1)
	old.CreatedAtUTC = now.Add(-31 * time.Minute)
	young := m.Create(2, 2)
	young.CreatedAtUTC = now.Add(-10 * time.Minute)

	if removed := m.Sweep(); removed != 1 {
		t.Fatalf("Sweep removed %d, want 1", removed)
	}
	if m.Get(old.ID) != nil {
		t.Fatal("expired session should be gone")
	}
	if m.Get(young.ID) == nil {
		t.Fatal("young session should survive the sweep")
	}
}

func TestSweepExactTTLBoundarySurvives(t *testing.T) {
	m := NewManager(30 * time.Minute)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	sess := m.Create(1, 1)
	sess.CreatedAtUTC = now.Add(-30 * time.Minute)

	if removed := m.Sweep(); removed != 0 {
		t.Fatalf("session exactly at TTL should survive, removed %d", removed)
	}
}

func TestConcurrentAccess(t *testing.T) {
	m := NewManager(time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int64) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				sess := m.Create(n, n)
				m.Get(sess.ID)
				if j%2 == 0 {
					m.Remove(sess.ID)
				}
				m.Sweep()
			}
		}(int64(i))
	}
	wg.Wait()

	if m.Len() != 16*25 {
		t.Fatalf("expected %d surviving sessions, got %d", 16*25, m.Len())
	}
}

func TestTwoConcurrentSessionsPerUserCoexist(t *testing.T) {
	m := NewManager(time.Minute)
	first := m.Create(9, 9)
	second := m.Create(9, 9)

	if first.ID == second.ID {
		t.Fatal("two sessions for one user must have distinct ids")
	}
	if m.Get(first.ID) == nil || m.Get(second.ID) == nil {
		t.Fatal("both sessions should be independently tracked")
	}
}
