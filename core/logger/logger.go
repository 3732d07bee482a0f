// Package logger provides the process-wide structured logger: flat records
// with a stable key order, written asynchronously to stdout and an optional
// file.
package logger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"sync"

	"github.com/m3rciful/accessbot/core/buildinfo"
	coreconfig "github.com/m3rciful/accessbot/core/config"
)

var (
	initOnce sync.Once
	closeMu  sync.Mutex
	sink     *lineWriter
	files    []io.Closer

	level        slog.LevelVar
	debugSampler = newSampler(defaultSampleNum, defaultSampleDen)
	traceAll     bool

	// L is the base logger. Until InitLogger runs it is slog.Default().
	L *slog.Logger

	DB        *slog.Logger // database access
	MIG       *slog.Logger // schema migrations
	SEED      *slog.Logger // startup seeding
	TG        *slog.Logger // Telegram transport
	TWire     *slog.Logger // handler wiring
	SVCAccess *slog.Logger // registration, login and approvals
)

func init() {
	setBase(slog.Default())
}

func setBase(base *slog.Logger) {
	L = base
	DB = Component("db")
	MIG = Component("db.migrate")
	SEED = Component("db.seed")
	TG = Component("tg")
	TWire = Component("tg.wire")
	SVCAccess = Component("service.access")
}

// InitLogger installs the structured handler as the slog default. Only the
// first call has an effect. A log file that cannot be opened is reported but
// stdout logging is still set up.
func InitLogger(cfg *coreconfig.Config) error {
	var err error
	initOnce.Do(func() {
		s := settingsFrom(cfg)
		level.Set(s.level)
		debugSampler.Set(s.sampleNum, s.sampleDen)
		traceAll = s.trace

		outputs := []io.Writer{osStdout}
		var f io.WriteCloser
		if f, err = openLogFile(s.dir, s.file); f != nil {
			outputs = append(outputs, f)
			files = append(files, f)
		}
		sink = newLineWriter(outputs...)

		base := slog.New(newHandler(&level, sink, s.format, s.order))
		slog.SetDefault(base)
		setBase(base)

		L.LogAttrs(context.Background(), slog.LevelInfo, "startup",
			slog.String("component", "app"),
			slog.String("event", "startup"),
			slog.String("go_version", runtime.Version()),
			slog.String("build_version", buildinfo.Version),
			slog.String("build_commit", buildinfo.Commit),
			slog.String("build_time", buildinfo.Date),
			slog.String("cfg_profile", s.profile),
		)
	})
	return err
}

// Shutdown drains pending lines and closes the log file. It is safe to call
// more than once.
func Shutdown() error {
	closeMu.Lock()
	defer closeMu.Unlock()
	var errs []error
	if sink != nil {
		errs = append(errs, sink.Close())
		sink = nil
	}
	for _, f := range files {
		errs = append(errs, f.Close())
	}
	files = nil
	return errors.Join(errs...)
}

// Background returns context.Background().
func Background() context.Context {
	return context.Background()
}

// Component returns L scoped to the named component.
func Component(name string) *slog.Logger {
	if name = strings.TrimSpace(name); name == "" {
		return L
	}
	return L.With("component", name)
}

// LogEvent writes one record whose first attribute is event. A nil logg
// falls back to the logger carried by ctx.
func LogEvent(ctx context.Context, logg *slog.Logger, lvl slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, lvl, "", attrs...)
}

func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelDebug, event, attrs...)
}

func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelInfo, event, attrs...)
}

func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelWarn, event, attrs...)
}

func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelError, event, attrs...)
}

// ShouldSampleDebug reports whether a high-volume debug record should be
// emitted. TRACE=1 lets everything through.
func ShouldSampleDebug() bool {
	return traceAll || debugSampler.Allow()
}
