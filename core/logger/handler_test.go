package logger

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	coreconfig "github.com/m3rciful/unilinkup/core/config"
)

func render(t *testing.T, format logFormat, ctx context.Context, emit func(*slog.Logger)) string {
	t.Helper()
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	log := slog.New(newStructuredHandler(handlerConfig{
		level:  slog.LevelDebug,
		writer: aw,
		format: format,
	}))
	emit(log)
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return strings.TrimSpace(buf.String())
}

func assertOrdered(t *testing.T, line string, parts ...string) {
	t.Helper()
	pos := -1
	for _, p := range parts {
		idx := strings.Index(line, p)
		if idx == -1 || idx < pos {
			t.Fatalf("%q missing or out of order in %s", p, line)
		}
		pos = idx
	}
}

func TestKVLineLeadsWithFixedKeys(t *testing.T) {
	ctx := WithMeta(context.Background(), Meta{RID: "rid-123", UpdateID: 42, UserID: 7, ChatID: 9})
	line := render(t, formatKV, ctx, func(log *slog.Logger) {
		LogEvent(ctx, log.With("component", "app"), slog.LevelInfo, "test.event",
			slog.String("status", "OK"),
			slog.String("cause", "unit"),
		)
	})
	tokens := strings.Split(line, " ")
	want := []string{"ts=", "level=INFO", "component=app", "event=test.event", "status=ok", "rid=rid-123", "update_id=42", "user_id=7", "chat_id=9"}
	if len(tokens) < len(want) {
		t.Fatalf("too few tokens in %s", line)
	}
	for i, prefix := range want {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, want prefix %s", i, tokens[i], prefix)
		}
	}
}

func TestJSONLineOrderAndCompactRID(t *testing.T) {
	ctx := WithMeta(context.Background(), Meta{RID: BuildRID(11, 33, 22), UpdateID: 11})
	line := render(t, formatJSON, ctx, func(log *slog.Logger) {
		LogEvent(ctx, log.With("component", "store.snapshot"), slog.LevelError, "snapshot.save_failed",
			slog.String("status", "fail"),
			slog.String("err", "disk full"),
		)
	})
	if !strings.HasPrefix(line, "{") {
		t.Fatalf("expected JSON, got %s", line)
	}
	assertOrdered(t, line,
		`{"ts":`,
		`"level":"ERROR"`,
		`"component":"store.snapshot"`,
		`"event":"snapshot.save_failed"`,
		`"status":"fail"`,
		`"rid":"b.x.m"`,
		`"rid_full":"11:33:22"`,
		`"ts_unix_nano":`,
		`"err":"disk full"`,
	)
}

func TestKVOmitsFullRID(t *testing.T) {
	ctx := WithMeta(context.Background(), Meta{RID: "123:456:789"})
	line := render(t, formatKV, ctx, func(log *slog.Logger) {
		log.InfoContext(ctx, "rid.test")
	})
	if !strings.Contains(line, "rid="+CompactRID("123:456:789")) {
		t.Fatalf("expected compact rid, got %s", line)
	}
	if strings.Contains(line, "rid_full=") || strings.Contains(line, "ts_unix_nano=") {
		t.Fatalf("JSON-only keys leaked into KV output: %s", line)
	}
	if !strings.Contains(line, "event=rid.test") {
		t.Fatalf("message should become the event: %s", line)
	}
}

func TestDomainKeysOrdered(t *testing.T) {
	line := render(t, formatKV, context.Background(), func(log *slog.Logger) {
		LogEvent(context.Background(), log.With("component", "conversation"), slog.LevelInfo, "ping.sent",
			slog.Int("invitations", 2),
			slog.String("location", "Main Library"),
			slog.String("meetup_type", "lunch"),
		)
	})
	assertOrdered(t, line, "meetup_type=lunch", `location="Main Library"`, "invitations=2")
}

func TestValueNormalization(t *testing.T) {
	line := render(t, formatKV, context.Background(), func(log *slog.Logger) {
		log.WithGroup("http").Info("req",
			slog.Duration("duration", 1500*time.Millisecond),
			slog.Duration("backoff", 2*time.Second),
			slog.Any("err", errors.New("boom")),
			slog.String("empty", ""),
		)
		log.Info("second", slog.String("outcome", "weird"))
	})
	for _, want := range []string{"http.duration_ms=1500", "http.backoff_ms=2000", "http.err=boom", "component=app"} {
		if !strings.Contains(line, want) {
			t.Fatalf("missing %s in %s", want, line)
		}
	}
	for _, absent := range []string{"outcome=", "http.empty="} {
		if strings.Contains(line, absent) {
			t.Fatalf("unexpected %s in %s", absent, line)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 0)
	log := slog.New(newStructuredHandler(handlerConfig{level: slog.LevelWarn, writer: aw, format: formatKV}))
	log.Info("dropped")
	log.Warn("kept")
	if err := aw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if got := buf.String(); strings.Contains(got, "dropped") || !strings.Contains(got, "event=kept") {
		t.Fatalf("unexpected output %q", got)
	}
	_ = aw.Close()
}

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(1, 3)
	var passed int
	for range 9 {
		if s.Allow() {
			passed++
		}
	}
	if passed != 3 {
		t.Fatalf("passed = %d, want 3", passed)
	}
	s.Set(0, 0)
	if !s.Allow() {
		t.Fatal("zero ratio must let everything through")
	}
}

func TestParseRatioSpec(t *testing.T) {
	cases := map[string][2]int{"1/50": {1, 50}, " 2 / 5 ": {2, 5}, "10": {1, 10}, "0": {0, 0}, "x/y": {0, 0}, "": {0, 0}}
	for spec, want := range cases {
		num, den := parseRatioSpec(spec)
		if num != want[0] || den != want[1] {
			t.Fatalf("parseRatioSpec(%q) = %d/%d, want %d/%d", spec, num, den, want[0], want[1])
		}
	}
}

func TestSettingsFrom(t *testing.T) {
	s := settingsFrom(coreconfig.LoggingConfig{Profile: "Dev", Level: "warning", KeysOrder: "event, ts", DebugSample: "0"})
	if s.format != formatKV || s.level != slog.LevelWarn || s.profile != "dev" {
		t.Fatalf("unexpected settings %+v", s)
	}
	if len(s.keyOrder) != 2 || s.keyOrder[0] != "event" {
		t.Fatalf("key order = %v", s.keyOrder)
	}
	if s.sampleNum != 0 || s.sampleDen != 0 {
		t.Fatalf("sample = %d/%d", s.sampleNum, s.sampleDen)
	}

	d := settingsFrom(coreconfig.LoggingConfig{})
	if d.format != formatJSON || d.level != slog.LevelInfo || d.profile != "prod" || d.sampleDen != 50 {
		t.Fatalf("unexpected defaults %+v", d)
	}
}

func TestSanitizeLimit(t *testing.T) {
	if got := SanitizeLimit("a\x00b\u200bc\td", 10); got != "abc\td" {
		t.Fatalf("got %q", got)
	}
	if got := SanitizeLimit("héllo", 2); got != "hé" {
		t.Fatalf("got %q", got)
	}
	if got := CompactRID("not-a-rid"); got != "not-a-rid" {
		t.Fatalf("got %q", got)
	}
}

func TestMetaHandler(t *testing.T) {
	ctx := WithMeta(context.Background(), Meta{RID: "r", UserID: 5})
	ctx = WithHandler(ctx, "cmd.start")
	m := MetaFrom(ctx)
	if m.Handler != "cmd.start" || m.UserID != 5 || m.RID != "r" {
		t.Fatalf("meta = %+v", m)
	}
	if MetaFrom(context.Background()) != (Meta{}) {
		t.Fatal("empty context must carry zero meta")
	}
}

func TestEventBeforeInitIsDiscarded(t *testing.T) {
	// Must not panic while the global logger is still the discard logger.
	Info(context.Background(), "store", "noop", slog.Int("count", 1))
	Component("").Info("still discarded")
}
