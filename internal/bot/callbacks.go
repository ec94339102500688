package bot

import (
	"log/slog"
	"strconv"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/memobot/core/logger"
	"github.com/m3rciful/memobot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/memobot/core/telegram/helpers"
	"github.com/m3rciful/memobot/core/telegram/state"
	"github.com/m3rciful/memobot/internal/domain"
	"github.com/m3rciful/memobot/internal/flow"
)

// SessionAction returns the callback handler for one step action. The
// payload is "<session_id>|<value>"; anything that fails to parse or
// validate is acknowledged silently, so stale keyboards just go inert.
func (h *Handlers) SessionAction(action domain.Action) tele.HandlerFunc {
	return func(c tele.Context) error {
		sid, raw, err := callbacks.PayloadKeyValue(c, "|")
		if err != nil {
			return c.Respond()
		}

		sess := h.sessions.Get(sid)
		if sess == nil || sess.UserID != c.Sender().ID {
			return c.Respond(&tele.CallbackResponse{Text: sessionExpiredText, ShowAlert: true})
		}
		if sess.Finalizing {
			return c.Respond(&tele.CallbackResponse{Text: sessionDoneText, ShowAlert: true})
		}

		transition, err := flow.Apply(sess, action, raw)
		if err != nil {
			// Stale button for an already-answered step, or a garbled value.
			return c.Respond()
		}

		if transition.Terminal {
			return h.finalize(c, sess)
		}

		view := BuildStepView(sess)
		if err := tghelpers.EditHTML(c, view.Text, view.Markup); err != nil {
			return err
		}
		return c.Respond()
	}
}

// finalize persists the completed session as one record. The Finalizing
// latch stays set on success paths so a double-tap cannot insert twice; it
// is cleared only when the insert fails, to allow a retry.
func (h *Handlers) finalize(c tele.Context, sess *domain.Session) error {
	ctx := logger.WithSessionID(tghelpers.BuildContext(c), sess.ID)
	sess.Finalizing = true

	if !sess.Complete() {
		sess.Finalizing = false
		if err := tghelpers.EditHTML(c, "记录信息不完整，请继续完成选择。", BuildStepView(sess).Markup); err != nil {
			return err
		}
		return c.Respond()
	}

	tz, err := h.users.GetTimezone(ctx, sess.UserID)
	if err != nil || tz == nil {
		// Recoverable: the finished answers stay in the registry so the
		// entry survives timezone setup and a retry.
		sess.Finalizing = false
		if err != nil {
			logger.Error(ctx, "users", "timezone.load.failed", slog.String("err", err.Error()))
		}
		if err := tghelpers.EditHTML(c, "请先设置时区后再记录：", BuildTimezoneKeyboard(0)); err != nil {
			return err
		}
		return c.Respond()
	}

	loc, err := h.loadLocation(*tz)
	if err != nil {
		logger.Warn(ctx, "users", "timezone.load_location.failed",
			slog.String("timezone", *tz),
			slog.String("err", err.Error()),
		)
		loc = nil
	}
	now := h.now()
	local := now
	if loc != nil {
		local = now.In(loc)
	}

	rec := domain.Record{
		UserID:        sess.UserID,
		TimestampUTC:  now,
		Timezone:      *tz,
		TimestampLoc:  local,
		Rating:        *sess.Rating,
		DurationCode:  *sess.DurationCode,
		VolumeCode:    *sess.VolumeCode,
		ViscosityCode: *sess.ViscosityCode,
		CreatedAtUTC:  now,
	}

	recordID, err := h.records.InsertRecord(ctx, rec)
	if err != nil {
		sess.Finalizing = false
		logger.Error(ctx, "records", "record.insert.failed",
			slog.Int64("user_id", sess.UserID),
			slog.String("err", err.Error()),
		)
		if err := tghelpers.EditHTML(c, "记录失败，请稍后再试。", BuildStepView(sess).Markup); err != nil {
			return err
		}
		return c.Respond()
	}
	rec.ID = recordID
	h.sessions.Remove(sess.ID)

	logger.Info(ctx, "records", "record.saved",
		slog.Int64("user_id", sess.UserID),
		slog.Int64("record_id", recordID),
	)
	if err := tghelpers.EditHTML(c, FormatRecordConfirmation(rec), BuildUndoKeyboard(sess.ID, recordID)); err != nil {
		return err
	}
	return c.Respond()
}

// Undo hard-deletes the record just saved. The delete is scoped to the
// tapping user, so a forwarded confirmation cannot remove someone else's
// record.
func (h *Handlers) Undo(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	_, rawID, err := callbacks.PayloadKeyValue(c, "|")
	if err != nil {
		return c.Respond()
	}
	recordID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return c.Respond()
	}

	deleted, err := h.records.DeleteRecord(ctx, recordID, c.Sender().ID)
	if err != nil {
		logger.Error(ctx, "records", "record.delete.failed",
			slog.Int64("record_id", recordID),
			slog.String("err", err.Error()),
		)
		if err := tghelpers.EditHTML(c, "删除失败或记录不存在。"); err != nil {
			return err
		}
		return c.Respond()
	}

	text := "已删除本次记录。"
	if !deleted {
		text = "删除失败或记录不存在。"
	} else {
		logger.Info(ctx, "records", "record.deleted", slog.Int64("record_id", recordID))
	}
	if err := tghelpers.EditHTML(c, text); err != nil {
		return err
	}
	return c.Respond()
}

// Cancel abandons the session whatever state it is in. Removing an already
// gone session is a no-op, so cancel never alerts about expiry.
func (h *Handlers) Cancel(c tele.Context) error {
	sid, _, err := callbacks.PayloadKeyValue(c, "|")
	if err != nil {
		return c.Respond()
	}
	if sess := h.sessions.Remove(sid); sess != nil {
		ctx := logger.WithSessionID(tghelpers.BuildContext(c), sid)
		logger.Info(ctx, "sessions", "session.cancelled", slog.Int64("user_id", sess.UserID))
	}
	if err := tghelpers.EditHTML(c, "已取消本次记录，数据未保存。"); err != nil {
		return err
	}
	return c.Respond()
}

// TimezoneSelect persists the chosen zone and seeds the profile nickname on
// first contact.
func (h *Handlers) TimezoneSelect(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	iana := callbacks.CallbackPayload(c)
	if _, err := h.loadLocation(iana); err != nil {
		return c.Respond()
	}

	var nickname *string
	if name := displayName(c.Sender()); name != "" {
		nickname = &name
	}
	if err := h.users.UpsertTimezone(ctx, c.Sender().ID, iana, h.now(), nickname); err != nil {
		logger.Error(ctx, "users", "timezone.save.failed",
			slog.String("timezone", iana),
			slog.String("err", err.Error()),
		)
		if err := tghelpers.EditHTML(c, "设置时区失败，请稍后再试。"); err != nil {
			return err
		}
		return c.Respond()
	}

	logger.Info(ctx, "users", "timezone.saved",
		slog.Int64("user_id", c.Sender().ID),
		slog.String("timezone", iana),
	)
	if err := tghelpers.EditHTML(c, "已设置时区："+FormatTimezoneLabel(iana)); err != nil {
		return err
	}
	return c.Respond()
}

// TimezonePage flips the picker to another page in place.
func (h *Handlers) TimezonePage(c tele.Context) error {
	page, err := callbacks.PayloadInt(c)
	if err != nil {
		return c.Respond()
	}
	if err := tghelpers.EditHTML(c, timezonePrompt, BuildTimezoneKeyboard(page)); err != nil {
		return err
	}
	return c.Respond()
}

// TimezoneCancel closes the picker without changing anything.
func (h *Handlers) TimezoneCancel(c tele.Context) error {
	if err := tghelpers.EditHTML(c, "已取消修改时区，保持原设置。"); err != nil {
		return err
	}
	return c.Respond()
}

// ProfileAction routes the profile keyboard: opening and closing the edit
// menu, and arming the pending-input state for one field.
func (h *Handlers) ProfileAction(c tele.Context) error {
	userID := c.Sender().ID
	action := callbacks.CallbackPayload(c)

	switch action {
	case "edit":
		return h.editProfileCard(c, BuildProfileEditKeyboard())
	case "back":
		h.fsm.ClearState(userID)
		return h.editProfileCard(c, BuildProfileKeyboard())
	case "nickname":
		return h.armProfileInput(c, stateProfileNickname,
			"请输入昵称（最多 32 个字符），发送 q! 取消。")
	case "height":
		return h.armProfileInput(c, stateProfileHeight,
			"请输入身高（cm），例如 175。发送 q! 取消。")
	case "weight":
		return h.armProfileInput(c, stateProfileWeight,
			"请输入体重（kg），例如 70.5。发送 q! 取消。")
	case "birthday":
		return h.armProfileInput(c, stateProfileBirthday,
			"请输入生日（YYYY-MM-DD），例如 1995-08-17。发送 q! 取消。")
	}
	return c.Respond()
}

func (h *Handlers) editProfileCard(c tele.Context, markup *tele.ReplyMarkup) error {
	text, err := h.profileText(c)
	if err != nil {
		return err
	}
	if text == "" {
		if err := tghelpers.EditHTML(c, "请先设置时区：", BuildTimezoneKeyboard(0)); err != nil {
			return err
		}
		return c.Respond()
	}
	if err := tghelpers.EditHTML(c, text, markup); err != nil {
		return err
	}
	return c.Respond()
}

func (h *Handlers) armProfileInput(c tele.Context, st state.State, prompt string) error {
	h.fsm.SetState(c.Sender().ID, st)
	if err := tghelpers.SendText(c, prompt); err != nil {
		return err
	}
	return c.Respond()
}
