package bot

import "testing"

func TestFormatTimezoneLabel(t *testing.T) {
	if got := FormatTimezoneLabel("Etc/GMT-8"); got != "UTC+8 (Etc/GMT-8)" {
		t.Errorf("FormatTimezoneLabel = %q", got)
	}
	if got := FormatTimezoneLabel("Etc/GMT+12"); got != "UTC-12 (Etc/GMT+12)" {
		t.Errorf("FormatTimezoneLabel = %q", got)
	}
	// Zones outside the picker pass through untouched.
	if got := FormatTimezoneLabel("Asia/Tokyo"); got != "Asia/Tokyo" {
		t.Errorf("FormatTimezoneLabel = %q", got)
	}
}

func TestBuildTimezoneKeyboardDefaultPage(t *testing.T) {
	rows := BuildTimezoneKeyboard(0).InlineKeyboard

	// 8 options in pairs plus the navigation row.
	if len(rows) != 5 {
		t.Fatalf("rows = %d, want 5", len(rows))
	}
	first := rows[0][0]
	if first.Text != "UTC-4" || first.Data != "Etc/GMT+4" {
		t.Errorf("first option = %+v", first)
	}

	nav := rows[len(rows)-1]
	if len(nav) != 3 {
		t.Fatalf("nav buttons = %d, want 3", len(nav))
	}
	if nav[0].Text != "上一页" || nav[0].Data != "1" {
		t.Errorf("prev button = %+v", nav[0])
	}
	if nav[1].Text != "下一页" || nav[1].Data != "3" {
		t.Errorf("next button = %+v", nav[1])
	}
	if nav[2].Text != "取消" {
		t.Errorf("cancel button = %+v", nav[2])
	}
}

func TestBuildTimezoneKeyboardFirstPage(t *testing.T) {
	rows := BuildTimezoneKeyboard(1).InlineKeyboard
	nav := rows[len(rows)-1]
	if len(nav) != 2 {
		t.Fatalf("nav buttons = %d, want 2", len(nav))
	}
	if nav[0].Text != "下一页" || nav[0].Data != "2" {
		t.Errorf("next button = %+v", nav[0])
	}
}

func TestBuildTimezoneKeyboardLastPageClamped(t *testing.T) {
	rows := BuildTimezoneKeyboard(99).InlineKeyboard

	// 3 options make two rows, plus navigation.
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[1][0].Text != "UTC+14" || rows[1][0].Data != "Etc/GMT-14" {
		t.Errorf("last option = %+v", rows[1][0])
	}
	nav := rows[len(rows)-1]
	if len(nav) != 2 {
		t.Fatalf("nav buttons = %d, want 2", len(nav))
	}
	if nav[0].Text != "上一页" || nav[0].Data != "3" {
		t.Errorf("prev button = %+v", nav[0])
	}
}

func TestTimezonePagesLoadable(t *testing.T) {
	// Every option must round-trip through the label lookup.
	for _, page := range timezonePages {
		for _, opt := range page {
			if timezoneLabelByIANA[opt.IANA] != opt.Label {
				t.Errorf("label lookup mismatch for %s", opt.IANA)
			}
		}
	}
}
