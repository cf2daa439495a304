package logger

import (
	"log/slog"
	"slices"
	"strings"

	coreconfig "github.com/m3rciful/unilinkup/core/config"
)

type settings struct {
	format    logFormat
	level     slog.Level
	keyOrder  []string
	profile   string
	sampleNum int
	sampleDen int
}

// settingsFrom resolves the logging section. Debug and dev profiles default
// to the key=value format; everything else defaults to JSON.
func settingsFrom(cfg coreconfig.LoggingConfig) settings {
	s := settings{
		format:    formatJSON,
		level:     slog.LevelInfo,
		keyOrder:  slices.Clone(defaultKeyOrder),
		profile:   "prod",
		sampleNum: 1,
		sampleDen: 50,
	}
	if p := strings.ToLower(strings.TrimSpace(cfg.Profile)); p != "" {
		s.profile = p
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "kv", "text", "pretty":
		s.format = formatKV
	case "json":
	default:
		if s.profile == "debug" || s.profile == "dev" {
			s.format = formatKV
		}
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Level)) {
	case "debug":
		s.level = slog.LevelDebug
	case "warn", "warning":
		s.level = slog.LevelWarn
	case "error":
		s.level = slog.LevelError
	}

	if raw := strings.TrimSpace(cfg.KeysOrder); raw != "" && raw != "default" {
		var order []string
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				order = append(order, k)
			}
		}
		if len(order) > 0 {
			s.keyOrder = order
		}
	}

	if spec := strings.TrimSpace(cfg.DebugSample); spec != "" {
		num, den := parseRatioSpec(spec)
		switch {
		case num == 0 && den == 0:
			s.sampleNum, s.sampleDen = 0, 0
		case num > 0 && den > 0:
			s.sampleNum, s.sampleDen = num, den
		}
	}
	return s
}

func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
