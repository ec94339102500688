package bot

import (
	"strings"
	"testing"
	"time"

	"github.com/m3rciful/memobot/internal/domain"
)

func TestFormatTimedelta(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{0, "0m"},
		{45 * time.Second, "0m"},
		{5 * time.Minute, "5m"},
		{90 * time.Minute, "1h 30m"},
		{24*time.Hour + 5*time.Minute, "1d 0h 5m"},
		{51*time.Hour + 15*time.Minute, "2d 3h 15m"},
		{-time.Hour, "0m"},
	}
	for _, tc := range cases {
		if got := FormatTimedelta(tc.in); got != tc.want {
			t.Errorf("FormatTimedelta(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestBuildStepViewRating(t *testing.T) {
	sess := &domain.Session{ID: "7_1_ab", Step: domain.StepRating}
	view := BuildStepView(sess)

	if !strings.Contains(view.Text, "体验感") {
		t.Fatalf("rating text = %q", view.Text)
	}
	rows := view.Markup.InlineKeyboard
	if len(rows) != 2 {
		t.Fatalf("rating keyboard rows = %d, want 2", len(rows))
	}
	if len(rows[0]) != 5 {
		t.Fatalf("rating buttons = %d, want 5", len(rows[0]))
	}
	if rows[0][0].Data != "7_1_ab|1" {
		t.Errorf("first rating payload = %q", rows[0][0].Data)
	}
	if rows[0][4].Text != "冲爆" {
		t.Errorf("fifth rating label = %q", rows[0][4].Text)
	}
	if rows[1][0].Text != "取消记录" || rows[1][0].Data != "7_1_ab" {
		t.Errorf("cancel button = %+v", rows[1][0])
	}
}

func TestBuildStepViewCarriesSummary(t *testing.T) {
	rating := 4
	durCode := domain.DurationLE10
	sess := &domain.Session{
		ID:           "7_1_ab",
		Step:         domain.StepVolume,
		Rating:       &rating,
		DurationCode: &durCode,
	}
	view := BuildStepView(sess)

	if !strings.Contains(view.Text, "已选：体验感=爽；时长=10 分钟内") {
		t.Fatalf("volume text missing summary: %q", view.Text)
	}
	rows := view.Markup.InlineKeyboard
	if len(rows[0]) != 3 {
		t.Fatalf("volume buttons = %d, want 3", len(rows[0]))
	}
	if rows[0][0].Data != "7_1_ab|LOW" {
		t.Errorf("first volume payload = %q", rows[0][0].Data)
	}
}

func TestFormatStatsMessageFull(t *testing.T) {
	week := 3.5
	month := 15.0
	interval := 47 * time.Hour
	lastAgo := 26*time.Hour + 10*time.Minute
	summary := domain.StatsSummary{
		Total:       12,
		AvgWeek:     &week,
		AvgMonth:    &month,
		TopBucket:   "晚上(18-24)",
		AvgInterval: &interval,
		LastAgo:     &lastAgo,
	}

	got := FormatStatsMessage("最近30天统计", summary)
	want := "<b>最近30天统计</b>\n" +
		"• 总次数：12\n" +
		"• 平均每周：3.5\n" +
		"• 平均每月：15.0\n" +
		"• 高频时段：晚上(18-24)\n" +
		"• 平均间隔：1d 23h 0m\n" +
		"• 最近一次：1d 2h 10m 前"
	if got != want {
		t.Errorf("stats message = %q, want %q", got, want)
	}
}

func TestFormatStatsMessageSparse(t *testing.T) {
	got := FormatStatsMessage("最近7天统计", domain.StatsSummary{Total: 1})
	want := "<b>最近7天统计</b>\n• 总次数：1"
	if got != want {
		t.Errorf("sparse stats message = %q, want %q", got, want)
	}
}

func TestFormatRecordConfirmation(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	rec := domain.Record{
		Rating:        5,
		DurationCode:  domain.DurationLE30,
		VolumeCode:    domain.VolumeHigh,
		ViscosityCode: domain.ViscosityV3,
		TimestampLoc:  time.Date(2026, 3, 14, 22, 41, 0, 0, loc),
	}

	got := FormatRecordConfirmation(rec)
	want := "<b>记录成功</b>\n" +
		"• 体验感：冲爆\n" +
		"• 时长：30 分钟内\n" +
		"• 量：多\n" +
		"• 稠度：适中\n" +
		"• 本地时间：2026-03-14 22:41"
	if got != want {
		t.Errorf("confirmation = %q, want %q", got, want)
	}
}

func TestFormatProfileMessageDefaults(t *testing.T) {
	profile := domain.UserProfile{
		UserID:       7,
		Timezone:     "Etc/GMT-8",
		CreatedAtUTC: time.Date(2026, 1, 2, 16, 0, 0, 0, time.UTC),
	}
	loc := time.FixedZone("UTC+8", 8*3600)

	got := FormatProfileMessage(profile, 0, nil, loc)
	for _, want := range []string{
		"• 昵称：未设置",
		"• 身高：未设置",
		"• 体重：未设置",
		"• 生日：未设置",
		"• 总记录次数：0",
		"• 最后一次利用：暂无",
		"• 开始利用时间：2026-01-03 00:00",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("profile message missing %q:\n%s", want, got)
		}
	}
}

func TestFormatProfileMessageValues(t *testing.T) {
	nickname := "<小明>"
	height := 175
	weight := 70.0
	birthday := "1995-08-17"
	last := time.Date(2026, 3, 14, 14, 41, 0, 0, time.UTC)
	profile := domain.UserProfile{
		UserID:   7,
		Nickname: &nickname,
		Timezone: "Etc/GMT-8",
		HeightCM: &height,
		WeightKG: &weight,
		Birthday: &birthday,
	}
	loc := time.FixedZone("UTC+8", 8*3600)

	got := FormatProfileMessage(profile, 42, &last, loc)
	for _, want := range []string{
		"• 昵称：&lt;小明&gt;",
		"• 身高：175 cm",
		"• 体重：70 kg",
		"• 生日：1995-08-17",
		"• 总记录次数：42",
		"• 最后一次利用：2026-03-14 22:41",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("profile message missing %q:\n%s", want, got)
		}
	}
}

func TestWeightLineFraction(t *testing.T) {
	weight := 70.5
	if got := weightLine(&weight); got != "70.5 kg" {
		t.Errorf("weightLine(70.5) = %q", got)
	}
}
