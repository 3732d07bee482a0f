package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/accessbot/core/config"
)

func render(t *testing.T, format logFormat, fn func(*slog.Logger)) string {
	t.Helper()
	var buf bytes.Buffer
	w := newLineWriter(&buf)
	fn(slog.New(newHandler(slog.LevelInfo, w, format, nil)))
	require.NoError(t, w.Close())
	return strings.TrimSpace(buf.String())
}

func TestHandlerKVOrder(t *testing.T) {
	line := render(t, formatKV, func(log *slog.Logger) {
		ctx := WithUpdateMeta(WithRID(Background(), "rid-123"), 42, 7, 9)
		LogEvent(ctx, log.With("component", "service.access"), slog.LevelInfo, "user.login",
			slog.String("status", "ok"),
			slog.String("outcome", "ok"),
		)
	})
	tokens := strings.Fields(line)
	want := []string{"ts=", "level=INFO", "component=service.access", "event=user.login", "status=ok",
		"rid=rid-123", "update_id=42", "user_id=7", "chat_id=9", "outcome=ok"}
	require.GreaterOrEqual(t, len(tokens), len(want), line)
	for i, prefix := range want {
		assert.True(t, strings.HasPrefix(tokens[i], prefix), "token %d = %s, want prefix %s", i, tokens[i], prefix)
	}
}

func TestHandlerJSONOrder(t *testing.T) {
	line := render(t, formatJSON, func(log *slog.Logger) {
		LogEvent(WithRID(Background(), "rid-json"), log.With("component", "db"), slog.LevelError, "register.failed",
			slog.String("status", "fail"),
			slog.Any("err", errors.New("boom")),
		)
	})
	pos := -1
	for _, part := range []string{`{"ts":`, `"level":"ERROR"`, `"component":"db"`, `"event":"register.failed"`, `"status":"fail"`, `"rid":"rid-json"`, `"err":"boom"`} {
		idx := strings.Index(line, part)
		require.Greater(t, idx, pos, "%s out of order in %s", part, line)
		pos = idx
	}
}

func TestHandlerCompactsRID(t *testing.T) {
	ctx := WithRID(Background(), BuildRID(100, 200, 300))
	kv := render(t, formatKV, func(log *slog.Logger) { LogEvent(ctx, log, slog.LevelInfo, "rid") })
	assert.Contains(t, kv, "rid=2s.5k.8c")
	assert.NotContains(t, kv, "rid_full=")

	js := render(t, formatJSON, func(log *slog.Logger) { LogEvent(ctx, log, slog.LevelInfo, "rid") })
	assert.Contains(t, js, `"rid_full":"100:200:300"`)
	assert.Contains(t, js, `"ts_unix_nano"`)
}

func TestHandlerNormalizesValues(t *testing.T) {
	line := render(t, formatKV, func(log *slog.Logger) {
		log.Info("plain message",
			slog.String("empty", ""),
			slog.String("outcome", "bogus"),
		)
		log.WithGroup("req").Info("retry",
			slog.Duration("duration", 1500*time.Microsecond),
			slog.Duration("backoff", time.Second),
		)
	})
	for _, want := range []string{"component=app", `event="plain message"`, "req.duration_ms=2", "req.backoff_ms=1000"} {
		assert.Contains(t, line, want)
	}
	assert.NotContains(t, line, "empty=")
	assert.NotContains(t, line, "outcome=")
}

func TestHandlerLevelFilter(t *testing.T) {
	assert.Empty(t, render(t, formatKV, func(log *slog.Logger) { log.Debug("hidden") }))
}

func TestMetaFromContext(t *testing.T) {
	assert.Equal(t, Meta{}, MetaFrom(context.TODO()))

	ctx := WithHandler(WithUpdateMeta(WithRID(Background(), "r"), 1, 2, 3), "/start")
	ctx = WithHandler(ctx, "")
	assert.Equal(t, Meta{RID: "r", UpdateID: 1, UserID: 2, ChatID: 3, Handler: "/start"}, MetaFrom(ctx))

	assert.Same(t, L, FromContext(ctx))
	scoped := Component("tg")
	assert.Same(t, scoped, FromContext(WithLogger(ctx, scoped)))
}

func TestWriterRejectsAfterClose(t *testing.T) {
	var buf bytes.Buffer
	w := newLineWriter(&buf)
	require.NoError(t, w.Write([]byte("a\n")))
	require.NoError(t, w.Flush())
	assert.Equal(t, "a\n", buf.String())
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.Write([]byte("b\n")), errWriterClosed)
}

func TestSampler(t *testing.T) {
	s := newSampler(1, 3)
	assert.Equal(t, []bool{true, false, false, true}, []bool{s.Allow(), s.Allow(), s.Allow(), s.Allow()})
	s.Set(0, 0)
	assert.True(t, s.Allow())

	for spec, want := range map[string][2]int{"2/5": {2, 5}, "10": {1, 10}, "x/2": {0, 0}, "-3": {0, 0}} {
		n, d := parseRatioSpec(spec)
		assert.Equal(t, want, [2]int{n, d}, spec)
	}
}

func TestSettingsFromConfig(t *testing.T) {
	s := settingsFrom(nil)
	assert.Equal(t, slog.LevelInfo, s.level)
	assert.Equal(t, formatJSON, s.format)

	cfg := &coreconfig.Config{}
	cfg.Logging.Profile = "Dev"
	cfg.Logging.Level = "warning"
	cfg.Logging.KeysOrder = "event, level"
	cfg.Logging.DebugSample = "0/0"
	s = settingsFrom(cfg)
	assert.Equal(t, "dev", s.profile)
	assert.Equal(t, formatKV, s.format)
	assert.Equal(t, slog.LevelWarn, s.level)
	assert.Equal(t, []string{"event", "level"}, s.order)
	assert.Zero(t, s.sampleDen)

	cfg.Logging.Format = "json"
	cfg.Logging.KeysOrder = "default"
	s = settingsFrom(cfg)
	assert.Equal(t, formatJSON, s.format)
	assert.Equal(t, defaultKeyOrder, s.order)
}

func TestSanitizeAndSummaries(t *testing.T) {
	assert.Equal(t, "ab\tc\n", Sanitize("a\x00b\tc\u200b\n"))
	assert.Equal(t, "héll", SanitizeLimit("héllo", 4))
	assert.Empty(t, SanitizeLimit("x", 0))

	s, cut := SummarizeStrings([]string{"a", "b", "c"}, 2)
	assert.Equal(t, "a, b", s)
	assert.True(t, cut)
	s, cut = SummarizeStrings([]string{"a"}, 2)
	assert.Equal(t, "a", s)
	assert.False(t, cut)

	assert.Equal(t, "ok", Status(nil))
	assert.Equal(t, "fail", Status(errors.New("x")))
	assert.Equal(t, 2*time.Millisecond, RoundMS(1500*time.Microsecond))
	assert.Equal(t, "a:b", CompactRID("a:b"))
}
