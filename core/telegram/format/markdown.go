// Package format escapes user-supplied text for Telegram parse modes.
package format

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

var (
	markdownEscaper   = escaper("_*`[")
	markdownV2Escaper = escaper("_*[]()~`>#+-=|{}.!\\")
)

func escaper(specials string) *strings.Replacer {
	pairs := make([]string, 0, 2*len(specials))
	for _, r := range specials {
		pairs = append(pairs, string(r), `\`+string(r))
	}
	return strings.NewReplacer(pairs...)
}

// Escape backslash-escapes the characters mode treats as markup. Text for
// any other mode is returned unchanged.
func Escape(text string, mode tele.ParseMode) string {
	switch mode {
	case tele.ModeMarkdown:
		return markdownEscaper.Replace(text)
	case tele.ModeMarkdownV2:
		return markdownV2Escaper.Replace(text)
	}
	return text
}

// EscapeMD escapes text for legacy Markdown, the mode bot replies use.
func EscapeMD(text string) string {
	return Escape(text, tele.ModeMarkdown)
}
