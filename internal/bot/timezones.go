package bot

import (
	"strconv"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/memobot/core/telegram/keyboard"
)

// TimezoneOption pairs the human label with the IANA name stored in the
// database. Fixed UTC offsets via Etc/GMT zones keep the picker small and
// DST-free.
type TimezoneOption struct {
	Label string
	IANA  string
}

// timezonePages lists the picker pages in west-to-east order. Note the
// inverted sign convention of the Etc/GMT zone names.
var timezonePages = [][]TimezoneOption{
	{
		{"UTC-12", "Etc/GMT+12"},
		{"UTC-11", "Etc/GMT+11"},
		{"UTC-10", "Etc/GMT+10"},
		{"UTC-9", "Etc/GMT+9"},
		{"UTC-8", "Etc/GMT+8"},
		{"UTC-7", "Etc/GMT+7"},
		{"UTC-6", "Etc/GMT+6"},
		{"UTC-5", "Etc/GMT+5"},
	},
	{
		{"UTC-4", "Etc/GMT+4"},
		{"UTC-3", "Etc/GMT+3"},
		{"UTC-2", "Etc/GMT+2"},
		{"UTC-1", "Etc/GMT+1"},
		{"UTC+0", "Etc/GMT"},
		{"UTC+1", "Etc/GMT-1"},
		{"UTC+2", "Etc/GMT-2"},
		{"UTC+3", "Etc/GMT-3"},
	},
	{
		{"UTC+4", "Etc/GMT-4"},
		{"UTC+5", "Etc/GMT-5"},
		{"UTC+6", "Etc/GMT-6"},
		{"UTC+7", "Etc/GMT-7"},
		{"UTC+8", "Etc/GMT-8"},
		{"UTC+9", "Etc/GMT-9"},
		{"UTC+10", "Etc/GMT-10"},
		{"UTC+11", "Etc/GMT-11"},
	},
	{
		{"UTC+12", "Etc/GMT-12"},
		{"UTC+13", "Etc/GMT-13"},
		{"UTC+14", "Etc/GMT-14"},
	},
}

// defaultTimezonePage is the page shown first (1-based), centered on UTC.
const defaultTimezonePage = 2

var timezoneLabelByIANA = func() map[string]string {
	m := make(map[string]string)
	for _, page := range timezonePages {
		for _, opt := range page {
			m[opt.IANA] = opt.Label
		}
	}
	return m
}()

// FormatTimezoneLabel renders "UTC+8 (Etc/GMT-8)" style labels, falling back
// to the bare IANA name for zones outside the picker.
func FormatTimezoneLabel(iana string) string {
	label, ok := timezoneLabelByIANA[iana]
	if !ok {
		return iana
	}
	return label + " (" + iana + ")"
}

// BuildTimezoneKeyboard renders one picker page (1-based; 0 selects the
// default page) with two options per row plus a navigation row.
func BuildTimezoneKeyboard(page int) *tele.ReplyMarkup {
	if page <= 0 {
		page = defaultTimezonePage
	}
	pageIndex := page - 1
	if pageIndex > len(timezonePages)-1 {
		pageIndex = len(timezonePages) - 1
	}

	markup := &tele.ReplyMarkup{}
	options := timezonePages[pageIndex]
	buttons := make([]tele.Btn, 0, len(options))
	for _, opt := range options {
		buttons = append(buttons, markup.Data(opt.Label, cbTimezone, opt.IANA))
	}
	rows := keyboard.ChunkButtons(buttons, 2)

	var nav []tele.Btn
	if pageIndex > 0 {
		nav = append(nav, markup.Data("上一页", cbTimezonePage, strconv.Itoa(pageIndex)))
	}
	if pageIndex < len(timezonePages)-1 {
		nav = append(nav, markup.Data("下一页", cbTimezonePage, strconv.Itoa(pageIndex+2)))
	}
	nav = append(nav, markup.Data("取消", cbTimezoneCancel))
	rows = append(rows, markup.Row(nav...))

	markup.Inline(rows...)
	return markup
}
