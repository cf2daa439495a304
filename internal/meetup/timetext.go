package meetup

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxTimeLength bounds free-text time input in runes.
const DefaultMaxTimeLength = 50

var (
	ErrTimeEmpty        = errors.New("time is empty")
	ErrTimeTooLong      = errors.New("time is too long")
	ErrTimeUnrecognized = errors.New("time is not recognized")
)

var timePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\d{1,2}:\d{2}\s*(am|pm)?`),
	regexp.MustCompile(`(?i)in\s+\d+\s+(minutes?|hours?)`),
	regexp.MustCompile(`(?i)(now|soon|later|afternoon|evening|morning)`),
	regexp.MustCompile(`(?i)(lunch|dinner|breakfast)\s*time`),
}

var timeWords = []string{"am", "pm", "hour", "minute", "o'clock", ":", "at"}

// LooksLikeTime reports whether text plausibly describes a time. The check
// is deliberately permissive: anything of a sensible length passes.
func LooksLikeTime(text string) bool {
	text = strings.TrimSpace(text)
	for _, re := range timePatterns {
		if re.MatchString(text) {
			return true
		}
	}
	lower := strings.ToLower(text)
	if strings.IndexFunc(lower, unicode.IsDigit) >= 0 {
		for _, w := range timeWords {
			if strings.Contains(lower, w) {
				return true
			}
		}
	}
	n := utf8.RuneCountInString(text)
	return n >= 3 && n <= 30
}

// ValidateTime trims text and checks it against maxLen runes and LooksLikeTime.
// maxLen <= 0 selects DefaultMaxTimeLength.
func ValidateTime(text string, maxLen int) (string, error) {
	if maxLen <= 0 {
		maxLen = DefaultMaxTimeLength
	}
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return "", ErrTimeEmpty
	case utf8.RuneCountInString(text) > maxLen:
		return "", ErrTimeTooLong
	case !LooksLikeTime(text):
		return "", ErrTimeUnrecognized
	}
	return text, nil
}
