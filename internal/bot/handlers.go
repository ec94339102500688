// Package bot implements the Telegram-facing handlers: the guided entry
// flow, timezone setup, rolling statistics, and profile editing.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/memobot/core/logger"
	tghelpers "github.com/m3rciful/memobot/core/telegram/helpers"
	"github.com/m3rciful/memobot/core/telegram/state"
	"github.com/m3rciful/memobot/internal/domain"
	"github.com/m3rciful/memobot/internal/session"
)

// UserStore is the slice of user storage the handlers need.
type UserStore interface {
	GetTimezone(ctx context.Context, userID int64) (*string, error)
	UpsertTimezone(ctx context.Context, userID int64, tz string, now time.Time, nickname *string) error
	GetProfile(ctx context.Context, userID int64) (*domain.UserProfile, error)
	UpdateNickname(ctx context.Context, userID int64, nickname string, now time.Time) error
	UpdateHeightCM(ctx context.Context, userID int64, heightCM int, now time.Time) error
	UpdateWeightKG(ctx context.Context, userID int64, weightKG float64, now time.Time) error
	UpdateBirthday(ctx context.Context, userID int64, birthday string, now time.Time) error
}

// RecordStore is the slice of record storage the handlers need.
type RecordStore interface {
	InsertRecord(ctx context.Context, rec domain.Record) (int64, error)
	DeleteRecord(ctx context.Context, recordID, userID int64) (bool, error)
	CountAllRecords(ctx context.Context, userID int64) (int, error)
	LastRecordTime(ctx context.Context, userID int64) (*time.Time, error)
}

// StatsService builds rolling summaries.
type StatsService interface {
	BuildSummary(ctx context.Context, userID int64, windowDays int) (domain.StatsSummary, error)
}

// Handlers holds every Telegram handler plus its dependencies.
type Handlers struct {
	users    UserStore
	records  RecordStore
	stats    StatsService
	sessions *session.Manager
	fsm      state.Manager

	now          func() time.Time
	loadLocation func(name string) (*time.Location, error)
}

// NewHandlers wires the handler set.
func NewHandlers(users UserStore, records RecordStore, stats StatsService, sessions *session.Manager, fsm state.Manager) *Handlers {
	return &Handlers{
		users:        users,
		records:      records,
		stats:        stats,
		sessions:     sessions,
		fsm:          fsm,
		now:          func() time.Time { return time.Now().UTC() },
		loadLocation: time.LoadLocation,
	}
}

// Start greets the user: first contact gets the timezone picker, a known
// user gets the command overview.
func (h *Handlers) Start(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	tz, err := h.users.GetTimezone(ctx, c.Sender().ID)
	if err != nil {
		logger.Error(ctx, "users", "timezone.load.failed", slog.String("err", err.Error()))
		return tghelpers.SendText(c, "服务暂时不可用，请稍后再试。")
	}
	if tz == nil {
		return tghelpers.SendHTML(c, timezonePrompt, BuildTimezoneKeyboard(0))
	}

	text := "<b>欢迎回来</b>\n" +
		"• 当前时区：" + FormatTimezoneLabel(*tz) + "\n" +
		"• 修改时区：/timezone\n" +
		"• 开始记录：/do\n" +
		"• 我的信息：/me\n" +
		"• 统计：/week /month"
	return tghelpers.SendHTML(c, text)
}

// Timezone re-opens the timezone picker at the default page.
func (h *Handlers) Timezone(c tele.Context) error {
	return tghelpers.SendHTML(c, timezonePrompt, BuildTimezoneKeyboard(0))
}

// Do starts a new guided entry. Each /do opens an independent session, so a
// stale keyboard from an earlier message can never mutate the new one.
func (h *Handlers) Do(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	userID := c.Sender().ID

	tz, err := h.users.GetTimezone(ctx, userID)
	if err != nil {
		logger.Error(ctx, "users", "timezone.load.failed", slog.String("err", err.Error()))
		return tghelpers.SendText(c, "服务暂时不可用，请稍后再试。")
	}
	if tz == nil {
		return tghelpers.SendHTML(c, "请先设置时区后再记录：", BuildTimezoneKeyboard(0))
	}

	sess := h.sessions.Create(userID, c.Chat().ID)
	view := BuildStepView(sess)
	msg, err := c.Bot().Send(c.Chat(), view.Text,
		&tele.SendOptions{ParseMode: tele.ModeHTML, ReplyMarkup: view.Markup})
	if err != nil {
		h.sessions.Remove(sess.ID)
		return err
	}
	sess.MessageID = msg.ID

	logger.Info(logger.WithSessionID(ctx, sess.ID), "sessions", "session.created",
		slog.Int64("user_id", userID),
		slog.String("step", string(sess.Step)),
	)
	return nil
}

// Week reports the trailing 7-day summary.
func (h *Handlers) Week(c tele.Context) error {
	return h.sendStats(c, 7)
}

// Month reports the trailing 30-day summary.
func (h *Handlers) Month(c tele.Context) error {
	return h.sendStats(c, 30)
}

func (h *Handlers) sendStats(c tele.Context, windowDays int) error {
	ctx := tghelpers.BuildContext(c)
	summary, err := h.stats.BuildSummary(ctx, c.Sender().ID, windowDays)
	if err != nil {
		logger.Error(ctx, "stats", "stats.build.failed",
			slog.Int("window_days", windowDays),
			slog.String("err", err.Error()),
		)
		return tghelpers.SendText(c, "统计暂时不可用，请稍后再试。")
	}
	if summary.Total == 0 {
		return tghelpers.SendHTML(c, fmt.Sprintf(
			"<b>统计</b>\n• 最近 %d 天没有可用记录（撤销/删除的不计入）。", windowDays))
	}
	title := fmt.Sprintf("最近%d天统计", windowDays)
	return tghelpers.SendHTML(c, FormatStatsMessage(title, summary))
}

// Me shows the profile card with the edit entry button.
func (h *Handlers) Me(c tele.Context) error {
	return h.replyProfile(c, BuildProfileKeyboard())
}

// replyProfile sends a fresh profile card; callers pick the keyboard.
func (h *Handlers) replyProfile(c tele.Context, markup *tele.ReplyMarkup) error {
	text, err := h.profileText(c)
	if err != nil {
		return err
	}
	if text == "" {
		return tghelpers.SendHTML(c, "请先设置时区：", BuildTimezoneKeyboard(0))
	}
	return tghelpers.SendHTML(c, text, markup)
}

// profileText renders the /me card, or "" when the user has no profile yet.
func (h *Handlers) profileText(c tele.Context) (string, error) {
	ctx := tghelpers.BuildContext(c)
	userID := c.Sender().ID

	profile, err := h.users.GetProfile(ctx, userID)
	if err != nil {
		logger.Error(ctx, "users", "profile.load.failed", slog.String("err", err.Error()))
		return "", tghelpers.SendText(c, "服务暂时不可用，请稍后再试。")
	}
	if profile == nil {
		return "", nil
	}

	total, err := h.records.CountAllRecords(ctx, userID)
	if err != nil {
		logger.Error(ctx, "records", "records.count.failed", slog.String("err", err.Error()))
		return "", tghelpers.SendText(c, "服务暂时不可用，请稍后再试。")
	}
	last, err := h.records.LastRecordTime(ctx, userID)
	if err != nil {
		logger.Error(ctx, "records", "records.last.failed", slog.String("err", err.Error()))
		return "", tghelpers.SendText(c, "服务暂时不可用，请稍后再试。")
	}

	loc, err := h.loadLocation(profile.Timezone)
	if err != nil {
		logger.Warn(ctx, "users", "timezone.load_location.failed",
			slog.String("timezone", profile.Timezone),
			slog.String("err", err.Error()),
		)
		loc = time.UTC
	}
	return FormatProfileMessage(*profile, total, last, loc), nil
}

// Sweep is a hidden admin command that force-runs session expiry.
func (h *Handlers) Sweep(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	removed := h.sessions.Sweep()
	logger.Info(ctx, "sessions", "session.sweep.manual",
		slog.Int("removed", removed),
		slog.Int("total", h.sessions.Len()),
	)
	return tghelpers.SendText(c, fmt.Sprintf("已清理 %d 个过期会话，当前 %d 个。", removed, h.sessions.Len()))
}

// displayName picks the best human-readable name Telegram offers.
func displayName(u *tele.User) string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name != "" {
		return name
	}
	if u.Username != "" {
		return u.Username
	}
	return fmt.Sprintf("%d", u.ID)
}
