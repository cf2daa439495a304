package format

import (
	"testing"

	tele "gopkg.in/telebot.v4"
)

func TestEscape(t *testing.T) {
	cases := []struct {
		name string
		in   string
		mode tele.ParseMode
		want string
	}{
		{"markdown plain", "Main Library", tele.ModeMarkdown, "Main Library"},
		{"markdown specials", "a_b*c`d[e]", tele.ModeMarkdown, `a\_b\*c\` + "`" + `d\[e]`},
		{"markdown v2 specials", "12.30 (soon)!", tele.ModeMarkdownV2, `12\.30 \(soon\)\!`},
		{"markdown v2 backslash", `a\b`, tele.ModeMarkdownV2, `a\\b`},
		{"html untouched", "<b>_x_</b>", tele.ModeHTML, "<b>_x_</b>"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Escape(tc.in, tc.mode); got != tc.want {
				t.Fatalf("Escape(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
	if got := EscapeMD("_hi_"); got != `\_hi\_` {
		t.Fatalf("EscapeMD = %q", got)
	}
}
