package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/memobot/core/telegram/state"
	"github.com/m3rciful/memobot/internal/domain"
	"github.com/m3rciful/memobot/internal/session"
)

// fakeContext implements the slice of tele.Context the handlers touch.
// Unimplemented methods panic via the embedded nil interface.
type fakeContext struct {
	tele.Context

	sender *tele.User
	chat   *tele.Chat
	data   string
	text   string

	store    map[string]any
	edits    []string
	sends    []string
	responds []*tele.CallbackResponse
}

func newFakeContext(userID int64) *fakeContext {
	return &fakeContext{
		sender: &tele.User{ID: userID},
		chat:   &tele.Chat{ID: userID, Type: tele.ChatPrivate},
		store:  make(map[string]any),
	}
}

func (c *fakeContext) Sender() *tele.User { return c.sender }
func (c *fakeContext) Chat() *tele.Chat   { return c.chat }
func (c *fakeContext) Update() tele.Update {
	return tele.Update{ID: 1}
}
func (c *fakeContext) Callback() *tele.Callback {
	return &tele.Callback{Data: c.data, Sender: c.sender}
}
func (c *fakeContext) Text() string        { return c.text }
func (c *fakeContext) Get(key string) any  { return c.store[key] }
func (c *fakeContext) Set(key string, val any) {
	c.store[key] = val
}
func (c *fakeContext) Edit(what any, _ ...any) error {
	if s, ok := what.(string); ok {
		c.edits = append(c.edits, s)
	}
	return nil
}
func (c *fakeContext) Send(what any, _ ...any) error {
	if s, ok := what.(string); ok {
		c.sends = append(c.sends, s)
	}
	return nil
}
func (c *fakeContext) Respond(resp ...*tele.CallbackResponse) error {
	if len(resp) > 0 {
		c.responds = append(c.responds, resp[0])
	} else {
		c.responds = append(c.responds, nil)
	}
	return nil
}

func (c *fakeContext) lastEdit() string {
	if len(c.edits) == 0 {
		return ""
	}
	return c.edits[len(c.edits)-1]
}

type fakeUserStore struct {
	timezone    *string
	timezoneErr error
	profile     *domain.UserProfile
}

func (f *fakeUserStore) GetTimezone(context.Context, int64) (*string, error) {
	return f.timezone, f.timezoneErr
}
func (f *fakeUserStore) UpsertTimezone(context.Context, int64, string, time.Time, *string) error {
	return nil
}
func (f *fakeUserStore) GetProfile(context.Context, int64) (*domain.UserProfile, error) {
	return f.profile, nil
}
func (f *fakeUserStore) UpdateNickname(context.Context, int64, string, time.Time) error { return nil }
func (f *fakeUserStore) UpdateHeightCM(context.Context, int64, int, time.Time) error    { return nil }
func (f *fakeUserStore) UpdateWeightKG(context.Context, int64, float64, time.Time) error {
	return nil
}
func (f *fakeUserStore) UpdateBirthday(context.Context, int64, string, time.Time) error { return nil }

type fakeRecordStore struct {
	records   []domain.Record
	nextID    int64
	insertErr error
}

func (f *fakeRecordStore) InsertRecord(_ context.Context, rec domain.Record) (int64, error) {
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	f.nextID++
	rec.ID = f.nextID
	f.records = append(f.records, rec)
	return rec.ID, nil
}
func (f *fakeRecordStore) DeleteRecord(_ context.Context, recordID, userID int64) (bool, error) {
	for i, rec := range f.records {
		if rec.ID == recordID && rec.UserID == userID {
			f.records = append(f.records[:i], f.records[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}
func (f *fakeRecordStore) CountAllRecords(context.Context, int64) (int, error) {
	return len(f.records), nil
}
func (f *fakeRecordStore) LastRecordTime(context.Context, int64) (*time.Time, error) {
	return nil, nil
}

type fakeStats struct{}

func (fakeStats) BuildSummary(context.Context, int64, int) (domain.StatsSummary, error) {
	return domain.StatsSummary{}, nil
}

var handlerNow = time.Date(2026, 3, 14, 14, 41, 0, 0, time.UTC)

func newTestHandlers(users *fakeUserStore, records *fakeRecordStore) (*Handlers, *session.Manager) {
	sessions := session.NewManager(30 * time.Minute)
	h := NewHandlers(users, records, fakeStats{}, sessions, state.NewMemoryManager())
	h.now = func() time.Time { return handlerNow }
	return h, sessions
}

// completeSession registers a session one tap away from the terminal step.
func completeSession(sessions *session.Manager, userID int64) *domain.Session {
	sess := sessions.Create(userID, userID)
	rating := 4
	dur := domain.DurationLE10
	vol := domain.VolumeMid
	sess.Rating = &rating
	sess.DurationCode = &dur
	sess.VolumeCode = &vol
	sess.Step = domain.StepViscosity
	return sess
}

func viscosityTap(sess *domain.Session) *fakeContext {
	c := newFakeContext(sess.UserID)
	c.data = "\fc|" + sess.ID + "|V3"
	return c
}

func TestFinalizeInsertsExactlyOneRecord(t *testing.T) {
	tz := "Etc/GMT-8"
	users := &fakeUserStore{timezone: &tz}
	records := &fakeRecordStore{}
	h, sessions := newTestHandlers(users, records)
	sess := completeSession(sessions, 7)

	c := viscosityTap(sess)
	if err := h.SessionAction(domain.ActionViscosity)(c); err != nil {
		t.Fatalf("terminal action: %v", err)
	}

	if len(records.records) != 1 {
		t.Fatalf("inserted %d records, want 1", len(records.records))
	}
	rec := records.records[0]
	if !rec.TimestampUTC.Equal(handlerNow) {
		t.Errorf("timestamp_utc = %v, want %v", rec.TimestampUTC, handlerNow)
	}
	if rec.Timezone != tz {
		t.Errorf("timezone = %q", rec.Timezone)
	}
	// UTC 14:41 is 22:41 wall clock in UTC+8.
	if got := rec.TimestampLoc.Format("2006-01-02 15:04"); got != "2026-03-14 22:41" {
		t.Errorf("local wall clock = %q", got)
	}
	if rec.Rating != 4 || rec.ViscosityCode != domain.ViscosityV3 {
		t.Errorf("answers not carried: %+v", rec)
	}
	if sessions.Get(sess.ID) != nil {
		t.Error("session should be consumed after a successful finalize")
	}
	if !strings.Contains(c.lastEdit(), "记录成功") {
		t.Errorf("confirmation edit = %q", c.lastEdit())
	}

	// A second tap on the stale keyboard must not insert again.
	c2 := viscosityTap(sess)
	if err := h.SessionAction(domain.ActionViscosity)(c2); err != nil {
		t.Fatalf("stale tap: %v", err)
	}
	if len(records.records) != 1 {
		t.Fatalf("stale tap inserted a second record")
	}
	if len(c2.responds) == 0 || c2.responds[0] == nil || c2.responds[0].Text != sessionExpiredText {
		t.Errorf("stale tap response = %+v", c2.responds)
	}
}

func TestFinalizeMissingTimezoneKeepsSession(t *testing.T) {
	users := &fakeUserStore{}
	records := &fakeRecordStore{}
	h, sessions := newTestHandlers(users, records)
	sess := completeSession(sessions, 7)

	c := viscosityTap(sess)
	if err := h.SessionAction(domain.ActionViscosity)(c); err != nil {
		t.Fatalf("terminal action: %v", err)
	}

	if len(records.records) != 0 {
		t.Fatal("nothing may be inserted without a timezone")
	}
	kept := sessions.Get(sess.ID)
	if kept == nil {
		t.Fatal("session must survive the missing-timezone path")
	}
	if kept.Finalizing {
		t.Error("latch must be released so finalize can be retried")
	}
	if !kept.Complete() {
		t.Error("the finished answers must be preserved")
	}
	if !strings.Contains(c.lastEdit(), "请先设置时区") {
		t.Errorf("edit = %q", c.lastEdit())
	}

	// Once the timezone exists, the same tap completes the entry.
	tz := "Etc/GMT-8"
	users.timezone = &tz
	c2 := viscosityTap(sess)
	if err := h.SessionAction(domain.ActionViscosity)(c2); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(records.records) != 1 {
		t.Fatalf("retry inserted %d records, want 1", len(records.records))
	}
	if sessions.Get(sess.ID) != nil {
		t.Error("session should be consumed after the successful retry")
	}
}

func TestFinalizeTimezoneErrorKeepsSession(t *testing.T) {
	users := &fakeUserStore{timezoneErr: errors.New("connection reset")}
	records := &fakeRecordStore{}
	h, sessions := newTestHandlers(users, records)
	sess := completeSession(sessions, 7)

	if err := h.SessionAction(domain.ActionViscosity)(viscosityTap(sess)); err != nil {
		t.Fatalf("terminal action: %v", err)
	}

	kept := sessions.Get(sess.ID)
	if kept == nil || kept.Finalizing {
		t.Fatal("transient timezone lookup failure must keep the session retryable")
	}
	if len(records.records) != 0 {
		t.Fatal("nothing may be inserted on a timezone lookup failure")
	}
}

func TestFinalizeInsertFailureReleasesLatch(t *testing.T) {
	tz := "Etc/GMT-8"
	users := &fakeUserStore{timezone: &tz}
	records := &fakeRecordStore{insertErr: errors.New("db down")}
	h, sessions := newTestHandlers(users, records)
	sess := completeSession(sessions, 7)

	c := viscosityTap(sess)
	if err := h.SessionAction(domain.ActionViscosity)(c); err != nil {
		t.Fatalf("terminal action: %v", err)
	}

	kept := sessions.Get(sess.ID)
	if kept == nil {
		t.Fatal("session must survive an insert failure")
	}
	if kept.Finalizing {
		t.Error("latch must be released after an insert failure")
	}
	if !strings.Contains(c.lastEdit(), "记录失败") {
		t.Errorf("edit = %q", c.lastEdit())
	}

	// Retry succeeds once the store recovers.
	records.insertErr = nil
	if err := h.SessionAction(domain.ActionViscosity)(viscosityTap(sess)); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(records.records) != 1 {
		t.Fatalf("retry inserted %d records, want 1", len(records.records))
	}
}

func TestUndoDeletesExactlyOnce(t *testing.T) {
	users := &fakeUserStore{}
	records := &fakeRecordStore{
		nextID:  1,
		records: []domain.Record{{ID: 1, UserID: 7}},
	}
	h, _ := newTestHandlers(users, records)

	c := newFakeContext(7)
	c.data = "\fu|7_1_ab|" + strconv.FormatInt(1, 10)
	if err := h.Undo(c); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if len(records.records) != 0 {
		t.Fatalf("undo left %d records, want 0", len(records.records))
	}
	if !strings.Contains(c.lastEdit(), "已删除本次记录") {
		t.Errorf("edit = %q", c.lastEdit())
	}

	c2 := newFakeContext(7)
	c2.data = c.data
	if err := h.Undo(c2); err != nil {
		t.Fatalf("second undo: %v", err)
	}
	if !strings.Contains(c2.lastEdit(), "删除失败或记录不存在") {
		t.Errorf("second undo edit = %q", c2.lastEdit())
	}
}

func TestUndoIsScopedToTheOwner(t *testing.T) {
	users := &fakeUserStore{}
	records := &fakeRecordStore{
		nextID:  1,
		records: []domain.Record{{ID: 1, UserID: 7}},
	}
	h, _ := newTestHandlers(users, records)

	c := newFakeContext(8)
	c.data = "\fu|7_1_ab|1"
	if err := h.Undo(c); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if len(records.records) != 1 {
		t.Fatal("another user's undo must not delete the record")
	}
	if !strings.Contains(c.lastEdit(), "删除失败或记录不存在") {
		t.Errorf("edit = %q", c.lastEdit())
	}
}

func TestCancelAbandonsWithoutSaving(t *testing.T) {
	users := &fakeUserStore{}
	records := &fakeRecordStore{}
	h, sessions := newTestHandlers(users, records)
	sess := completeSession(sessions, 7)

	c := newFakeContext(7)
	c.data = "\fx|" + sess.ID
	if err := h.Cancel(c); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if sessions.Get(sess.ID) != nil {
		t.Error("cancel must remove the session")
	}
	if len(records.records) != 0 {
		t.Error("cancel must not persist anything")
	}
	if !strings.Contains(c.lastEdit(), "已取消本次记录") {
		t.Errorf("edit = %q", c.lastEdit())
	}
}
