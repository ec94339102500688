package bot

import (
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/memobot/core/logger"
	tghelpers "github.com/m3rciful/memobot/core/telegram/helpers"
	"github.com/m3rciful/memobot/core/telegram/state"
)

// Pending-input states for profile field edits.
const (
	stateProfileNickname state.State = "profile.nickname"
	stateProfileHeight   state.State = "profile.height"
	stateProfileWeight   state.State = "profile.weight"
	stateProfileBirthday state.State = "profile.birthday"
)

const cancelInput = "q!"

// RegisterProfileInputs binds the pending-input states to their text
// handlers. Call once during app wiring.
func (h *Handlers) RegisterProfileInputs() {
	state.RegisterHandler(stateProfileNickname, h.profileInput(h.applyNickname,
		"昵称不能为空且不超过 32 个字符。发送 q! 取消。"))
	state.RegisterHandler(stateProfileHeight, h.profileInput(h.applyHeight,
		"身高请输入 50-250 的整数（cm），例如 175。发送 q! 取消。"))
	state.RegisterHandler(stateProfileWeight, h.profileInput(h.applyWeight,
		"体重请输入 20-200 的数字（kg），例如 70.5。发送 q! 取消。"))
	state.RegisterHandler(stateProfileBirthday, h.profileInput(h.applyBirthday,
		"生日请输入 YYYY-MM-DD，且不能是未来日期。发送 q! 取消。"))
}

// profileInput wraps one field's apply func with the shared input protocol:
// q! cancels, commands pass through untouched, invalid input re-prompts and
// keeps the state armed.
func (h *Handlers) profileInput(apply func(c tele.Context, text string) (bool, error), invalidText string) tele.HandlerFunc {
	return func(c tele.Context) error {
		userID := c.Sender().ID
		text := strings.TrimSpace(c.Text())

		if text == "" || strings.HasPrefix(text, "/") {
			return nil
		}
		if strings.EqualFold(text, cancelInput) {
			h.fsm.ClearState(userID)
			if err := tghelpers.SendText(c, "已取消修改。"); err != nil {
				return err
			}
			return h.replyProfile(c, BuildProfileKeyboard())
		}

		ctx := tghelpers.BuildContext(c)
		profile, err := h.users.GetProfile(ctx, userID)
		if err != nil {
			logger.Error(ctx, "users", "profile.load.failed", slog.String("err", err.Error()))
			return tghelpers.SendText(c, "服务暂时不可用，请稍后再试。")
		}
		if profile == nil {
			h.fsm.ClearState(userID)
			return tghelpers.SendHTML(c, "请先设置时区后再修改资料：", BuildTimezoneKeyboard(0))
		}

		ok, err := apply(c, text)
		if err != nil {
			logger.Error(ctx, "users", "profile.update.failed", slog.String("err", err.Error()))
			return tghelpers.SendText(c, "更新失败，请稍后再试。")
		}
		if !ok {
			return tghelpers.SendText(c, invalidText)
		}

		h.fsm.ClearState(userID)
		return h.replyProfile(c, BuildProfileKeyboard())
	}
}

func (h *Handlers) applyNickname(c tele.Context, text string) (bool, error) {
	nickname, ok := parseNickname(text)
	if !ok {
		return false, nil
	}
	if err := h.users.UpdateNickname(tghelpers.BuildContext(c), c.Sender().ID, nickname, h.now()); err != nil {
		return false, err
	}
	return true, tghelpers.SendText(c, "已更新昵称。")
}

func (h *Handlers) applyHeight(c tele.Context, text string) (bool, error) {
	heightCM, ok := parseHeight(text)
	if !ok {
		return false, nil
	}
	if err := h.users.UpdateHeightCM(tghelpers.BuildContext(c), c.Sender().ID, heightCM, h.now()); err != nil {
		return false, err
	}
	return true, tghelpers.SendText(c, "已更新身高。")
}

func (h *Handlers) applyWeight(c tele.Context, text string) (bool, error) {
	weightKG, ok := parseWeight(text)
	if !ok {
		return false, nil
	}
	if err := h.users.UpdateWeightKG(tghelpers.BuildContext(c), c.Sender().ID, weightKG, h.now()); err != nil {
		return false, err
	}
	return true, tghelpers.SendText(c, "已更新体重。")
}

func (h *Handlers) applyBirthday(c tele.Context, text string) (bool, error) {
	birthday, ok := parseBirthday(text, h.now())
	if !ok {
		return false, nil
	}
	if err := h.users.UpdateBirthday(tghelpers.BuildContext(c), c.Sender().ID, birthday, h.now()); err != nil {
		return false, err
	}
	return true, tghelpers.SendText(c, "已更新生日。")
}

// parseNickname accepts non-empty names up to 32 runes.
func parseNickname(text string) (string, bool) {
	nickname := strings.TrimSpace(text)
	if nickname == "" || utf8.RuneCountInString(nickname) > 32 {
		return "", false
	}
	return nickname, true
}

// parseHeight accepts integer centimetres in [50, 250]; a trailing unit is
// tolerated.
func parseHeight(text string) (int, bool) {
	cleaned := strings.TrimSpace(strings.TrimSuffix(strings.ToLower(strings.TrimSpace(text)), "cm"))
	heightCM, err := strconv.Atoi(cleaned)
	if err != nil || heightCM < 50 || heightCM > 250 {
		return 0, false
	}
	return heightCM, true
}

// parseWeight accepts kilograms in [20, 200], rounded to one decimal.
func parseWeight(text string) (float64, bool) {
	cleaned := strings.TrimSpace(strings.TrimSuffix(strings.ToLower(strings.TrimSpace(text)), "kg"))
	weightKG, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || weightKG < 20 || weightKG > 200 {
		return 0, false
	}
	rounded := float64(int(weightKG*10+0.5)) / 10
	return rounded, true
}

// parseBirthday accepts ISO dates between 1900-01-01 and today (in UTC) and
// returns the canonical YYYY-MM-DD form.
func parseBirthday(text string, now time.Time) (string, bool) {
	date, ok := tghelpers.ParseDate(strings.TrimSpace(text))
	if !ok {
		return "", false
	}
	min := time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	if date.Before(min) || date.After(now) {
		return "", false
	}
	return date.Format("2006-01-02"), true
}
