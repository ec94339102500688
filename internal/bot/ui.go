package bot

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/memobot/core/telegram/format"
	"github.com/m3rciful/memobot/core/telegram/keyboard"
	"github.com/m3rciful/memobot/internal/domain"
)

// Callback uniques. The step actions reuse the domain action tags so the
// callback payload parses straight into a flow action.
const (
	cbRating    = string(domain.ActionRating)
	cbDuration  = string(domain.ActionDuration)
	cbVolume    = string(domain.ActionVolume)
	cbViscosity = string(domain.ActionViscosity)
	cbUndo      = string(domain.ActionUndo)
	cbCancel    = string(domain.ActionCancel)

	cbTimezone       = "tz"
	cbTimezonePage   = "tzp"
	cbTimezoneCancel = "tzc"
	cbProfile        = "me"
)

const (
	timezonePrompt     = "<b>选择时区</b>\n在下方按钮中选择或取消。"
	sessionExpiredText = "当前记录会话已过期，请重新发送 /do 开始新的记录。"
	sessionDoneText    = "这次记录已完成。"
	notSet             = "未设置"
)

var ratingLabels = map[int]string{
	1: "太垃了",
	2: "不爽",
	3: "一般",
	4: "爽",
	5: "冲爆",
}

var durationLabels = map[domain.DurationCode]string{
	domain.DurationLE5:  "5 分钟内",
	domain.DurationLE10: "10 分钟内",
	domain.DurationLE30: "30 分钟内",
	domain.DurationLE60: "60 分钟内",
	domain.DurationGT60: "60 分钟以上",
}

var volumeLabels = map[domain.VolumeCode]string{
	domain.VolumeLow:  "少",
	domain.VolumeMid:  "一般",
	domain.VolumeHigh: "多",
}

var viscosityLabels = map[domain.ViscosityCode]string{
	domain.ViscosityV1: "很稀",
	domain.ViscosityV2: "偏稀",
	domain.ViscosityV3: "适中",
	domain.ViscosityV4: "偏稠",
	domain.ViscosityV5: "很稠",
}

// StepView is one rendered step of the guided entry: message text plus the
// inline keyboard for that step.
type StepView struct {
	Text   string
	Markup *tele.ReplyMarkup
}

// BuildStepView renders the prompt and keyboard for the session's current
// step. Every step carries a cancel row so the entry can be abandoned at any
// point.
func BuildStepView(sess *domain.Session) StepView {
	markup := &tele.ReplyMarkup{}
	summary := selectionSummary(sess)

	switch sess.Step {
	case domain.StepRating:
		var row []tele.Btn
		for rating := 1; rating <= 5; rating++ {
			row = append(row, markup.Data(ratingLabels[rating], cbRating, sess.ID, strconv.Itoa(rating)))
		}
		markup.Inline(markup.Row(row...), cancelRow(markup, sess.ID))
		return StepView{Text: "<b>体验感</b>\n主人冲爽了吗：", Markup: markup}

	case domain.StepDuration:
		codes := []domain.DurationCode{
			domain.DurationLE5, domain.DurationLE10, domain.DurationLE30,
			domain.DurationLE60, domain.DurationGT60,
		}
		var row []tele.Btn
		for _, code := range codes {
			row = append(row, markup.Data(durationLabels[code], cbDuration, sess.ID, string(code)))
		}
		markup.Inline(markup.Row(row...), cancelRow(markup, sess.ID))
		return StepView{
			Text:   "<b>时长</b>\n已选：" + summary + "\n主人冲了多长时间：",
			Markup: markup,
		}

	case domain.StepVolume:
		codes := []domain.VolumeCode{domain.VolumeLow, domain.VolumeMid, domain.VolumeHigh}
		var row []tele.Btn
		for _, code := range codes {
			row = append(row, markup.Data(volumeLabels[code], cbVolume, sess.ID, string(code)))
		}
		markup.Inline(markup.Row(row...), cancelRow(markup, sess.ID))
		return StepView{
			Text:   "<b>量</b>\n已选：" + summary + "\n主人🐍的多吗：",
			Markup: markup,
		}

	default: // StepViscosity
		codes := []domain.ViscosityCode{
			domain.ViscosityV1, domain.ViscosityV2, domain.ViscosityV3,
			domain.ViscosityV4, domain.ViscosityV5,
		}
		var row []tele.Btn
		for _, code := range codes {
			row = append(row, markup.Data(viscosityLabels[code], cbViscosity, sess.ID, string(code)))
		}
		markup.Inline(markup.Row(row...), cancelRow(markup, sess.ID))
		return StepView{
			Text:   "<b>稠度</b>\n已选：" + summary + "\n主人的精液是：",
			Markup: markup,
		}
	}
}

func cancelRow(markup *tele.ReplyMarkup, sessionID string) tele.Row {
	return markup.Row(markup.Data("取消记录", cbCancel, sessionID))
}

// selectionSummary lists the answers chosen so far in step order.
func selectionSummary(sess *domain.Session) string {
	var parts []string
	if sess.Rating != nil {
		parts = append(parts, "体验感="+ratingLabels[*sess.Rating])
	}
	if sess.DurationCode != nil {
		parts = append(parts, "时长="+durationLabels[*sess.DurationCode])
	}
	if sess.VolumeCode != nil {
		parts = append(parts, "量="+volumeLabels[*sess.VolumeCode])
	}
	if sess.ViscosityCode != nil {
		parts = append(parts, "稠度="+viscosityLabels[*sess.ViscosityCode])
	}
	return strings.Join(parts, "；")
}

// BuildUndoKeyboard offers a one-tap hard delete of the record just saved.
func BuildUndoKeyboard(sessionID string, recordID int64) *tele.ReplyMarkup {
	return keyboard.SingleButtonMarkup("撤销这次", cbUndo, sessionID, strconv.FormatInt(recordID, 10))
}

// BuildProfileKeyboard is the single-button entry into profile editing.
func BuildProfileKeyboard() *tele.ReplyMarkup {
	return keyboard.SingleButtonMarkup("修改", cbProfile, "edit")
}

// BuildProfileEditKeyboard lists the editable fields plus a back button.
func BuildProfileEditKeyboard() *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	markup.Inline(
		markup.Row(
			markup.Data("修改昵称", cbProfile, "nickname"),
			markup.Data("修改生日", cbProfile, "birthday"),
		),
		markup.Row(
			markup.Data("修改身高", cbProfile, "height"),
			markup.Data("修改体重", cbProfile, "weight"),
		),
		markup.Row(markup.Data("返回", cbProfile, "back")),
	)
	return markup
}

// FormatRecordConfirmation renders the saved record with its local time.
func FormatRecordConfirmation(rec domain.Record) string {
	var b strings.Builder
	b.WriteString("<b>记录成功</b>\n")
	fmt.Fprintf(&b, "• 体验感：%s\n", ratingLabels[rec.Rating])
	fmt.Fprintf(&b, "• 时长：%s\n", durationLabels[rec.DurationCode])
	fmt.Fprintf(&b, "• 量：%s\n", volumeLabels[rec.VolumeCode])
	fmt.Fprintf(&b, "• 稠度：%s\n", viscosityLabels[rec.ViscosityCode])
	fmt.Fprintf(&b, "• 本地时间：%s", rec.TimestampLoc.Format("2006-01-02 15:04"))
	return b.String()
}

// FormatStatsMessage renders a rolling summary; unavailable lines are
// omitted rather than shown as zero.
func FormatStatsMessage(title string, summary domain.StatsSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n", title)
	fmt.Fprintf(&b, "• 总次数：%d", summary.Total)
	if summary.AvgWeek != nil {
		fmt.Fprintf(&b, "\n• 平均每周：%.1f", *summary.AvgWeek)
	}
	if summary.AvgMonth != nil {
		fmt.Fprintf(&b, "\n• 平均每月：%.1f", *summary.AvgMonth)
	}
	if summary.TopBucket != "" {
		fmt.Fprintf(&b, "\n• 高频时段：%s", summary.TopBucket)
	}
	if summary.AvgInterval != nil {
		fmt.Fprintf(&b, "\n• 平均间隔：%s", FormatTimedelta(*summary.AvgInterval))
	}
	if summary.LastAgo != nil {
		fmt.Fprintf(&b, "\n• 最近一次：%s 前", FormatTimedelta(*summary.LastAgo))
	}
	return b.String()
}

// FormatTimedelta renders a duration as "2d 3h 15m", dropping leading zero
// units. Minutes always appear so a fresh interval reads "0m", not "".
func FormatTimedelta(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Minute)
	days := total / (24 * 60)
	hours := total % (24 * 60) / 60
	minutes := total % 60

	var parts []string
	if days > 0 {
		parts = append(parts, strconv.FormatInt(days, 10)+"d")
	}
	if hours > 0 || days > 0 {
		parts = append(parts, strconv.FormatInt(hours, 10)+"h")
	}
	parts = append(parts, strconv.FormatInt(minutes, 10)+"m")
	return strings.Join(parts, " ")
}

// FormatProfileMessage renders the /me card. Times are shown in the user's
// own timezone; loc falls back to UTC when the stored zone fails to load.
func FormatProfileMessage(profile domain.UserProfile, total int, last *time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	var b strings.Builder
	b.WriteString("<b>我的信息</b>\n")
	fmt.Fprintf(&b, "• 昵称：%s\n", nicknameLine(profile.Nickname))
	fmt.Fprintf(&b, "• 身高：%s\n", heightLine(profile.HeightCM))
	fmt.Fprintf(&b, "• 体重：%s\n", weightLine(profile.WeightKG))
	fmt.Fprintf(&b, "• 生日：%s\n", format.DerefString(profile.Birthday, notSet))
	fmt.Fprintf(&b, "• 总记录次数：%d\n", total)
	fmt.Fprintf(&b, "• 最后一次利用：%s\n", localTimeLine(last, loc))
	created := profile.CreatedAtUTC
	fmt.Fprintf(&b, "• 开始利用时间：%s", localTimeLine(&created, loc))
	return b.String()
}

func nicknameLine(nickname *string) string {
	if nickname == nil || *nickname == "" {
		return notSet
	}
	return format.EscapeHTML(*nickname)
}

func heightLine(heightCM *int) string {
	if heightCM == nil {
		return notSet
	}
	return fmt.Sprintf("%d cm", *heightCM)
}

func weightLine(weightKG *float64) string {
	if weightKG == nil {
		return notSet
	}
	if *weightKG == math.Trunc(*weightKG) {
		return fmt.Sprintf("%d kg", int(*weightKG))
	}
	return fmt.Sprintf("%.1f kg", *weightKG)
}

func localTimeLine(t *time.Time, loc *time.Location) string {
	if t == nil || t.IsZero() {
		return "暂无"
	}
	return t.In(loc).Format("2006-01-02 15:04")
}
