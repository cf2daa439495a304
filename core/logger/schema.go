package logger

import "strings"

// Known values of the status and outcome fields. Unknown statuses are kept
// as written; unknown outcomes are dropped.
var (
	knownStatus = map[string]bool{
		"ok": true, "fail": true, "error": true, "skip": true,
		"retry": true, "rate_limited": true, "cancelled": true,
	}
	knownOutcome = map[string]bool{
		"ok": true, "fail": true, "cancelled": true, "rate_limited": true,
	}
)

func normalizeEnums(fields map[string]any) {
	if s, ok := fields["status"].(string); ok && s != "" {
		if lower := strings.ToLower(s); knownStatus[lower] {
			fields["status"] = lower
		}
	}
	if o, ok := fields["outcome"].(string); ok && o != "" {
		o = strings.ToLower(strings.TrimSpace(o))
		if knownOutcome[o] {
			fields["outcome"] = o
		} else {
			delete(fields, "outcome")
		}
	}
}

// defaultKeyOrder leads every line; remaining keys follow alphabetically.
var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"chat_type",
	"handler",
	"cb_key",
	"outcome",
	"duration_ms",
	"username",
	"lang",
	"payload",
	"mode",
	"listen",
	"public_url",
	"http_code",
	"action",
	"phase",
	"meetup_type",
	"location",
	"friends",
	"ping_id",
	"invitations",
	"sessions",
	"pings",
	"path",
	"method",
	"err",
	"err_code",
	"cause",
	"retryable",
	"attempts",
	"backoff_ms",
}
