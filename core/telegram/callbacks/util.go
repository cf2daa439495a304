// Package callbacks decodes inline-button callback data and answers
// callback queries at most once per update.
package callbacks

import (
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"
)

const answeredKey = "cb_answered"

// ParseCallbackData splits cb into its unique and payload. When telebot has
// not resolved the unique, the raw "\funique|payload" form is decoded.
func ParseCallbackData(cb *tele.Callback) (unique, payload string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	unique, payload, _ = strings.Cut(strings.TrimPrefix(cb.Data, "\f"), "|")
	return strings.TrimSpace(unique), payload
}

// CallbackKey returns the unique of the callback behind c.
func CallbackKey(c tele.Context) string {
	unique, _ := ParseCallbackData(c.Callback())
	return unique
}

// CallbackPayload returns the payload of the callback behind c.
func CallbackPayload(c tele.Context) string {
	_, payload := ParseCallbackData(c.Callback())
	return payload
}

// PayloadInt parses the payload as a decimal integer.
func PayloadInt(c tele.Context) (int, error) {
	return strconv.Atoi(CallbackPayload(c))
}

// Answer responds to the callback query unless it was already answered.
// An empty text sends a silent acknowledgement.
func Answer(c tele.Context, text string, alert bool) error {
	if c.Callback() == nil || Answered(c) {
		return nil
	}
	c.Set(answeredKey, true)
	if text == "" {
		return c.Respond()
	}
	return c.Respond(&tele.CallbackResponse{Text: text, ShowAlert: alert})
}

// Answered reports whether Answer already ran for this update.
func Answered(c tele.Context) bool {
	done, _ := c.Get(answeredKey).(bool)
	return done
}
