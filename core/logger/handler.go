package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"
)

const tsLayout = "2006-01-02T15:04:05.000Z07:00"

// defaultKeyOrder puts the correlation keys first; anything not listed
// follows in alphabetical order.
var defaultKeyOrder = []string{
	"ts", "level", "component", "event", "status",
	"rid", "rid_full", "ts_unix_nano",
	"update_id", "user_id", "chat_id", "chat_type",
	"handler", "state", "cb_key", "outcome", "duration_ms",
	"target_user_id", "target_chat_id", "channel_id", "approved", "registered",
	"mode", "listen", "public_url", "driver", "db",
	"count", "pending_count", "attempt", "attempts", "backoff_ms",
	"err", "err_kind", "err_code", "cause",
}

// outcomes lists the accepted values of the outcome key; others are dropped.
var outcomes = map[string]bool{"ok": true, "fail": true, "cancelled": true, "rate_limited": true}

// handler renders each record as one flat line. Groups become dotted keys.
type handler struct {
	level  slog.Leveler
	out    *lineWriter
	format logFormat
	order  []string

	preset []slog.Attr
	prefix string
}

func newHandler(level slog.Leveler, out *lineWriter, format logFormat, order []string) *handler {
	if level == nil {
		level = slog.LevelInfo
	}
	if len(order) == 0 {
		order = defaultKeyOrder
	}
	return &handler{level: level, out: out, format: format, order: order}
}

func (h *handler) Enabled(_ context.Context, lvl slog.Level) bool {
	return lvl >= h.level.Level()
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.preset = append(append([]slog.Attr(nil), h.preset...), qualify(h.prefix, attrs)...)
	return &c
}

func (h *handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.prefix = joinKey(h.prefix, name)
	return &c
}

func (h *handler) Handle(ctx context.Context, r slog.Record) error {
	if h.out == nil {
		return fmt.Errorf("logger: writer not initialized")
	}
	e := entry{}
	ts := r.Time.UTC()
	e["ts"] = ts.Truncate(time.Millisecond).Format(tsLayout)
	e["level"] = levelName(r.Level)
	if h.format == formatJSON {
		e["ts_unix_nano"] = ts.UnixNano()
	}

	for _, a := range h.preset {
		e.add("", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		e.add(h.prefix, a)
		return true
	})
	e.fromContext(ctx)
	e.finish(r.Message, h.format == formatJSON)

	var line []byte
	if h.format == formatJSON {
		var err error
		if line, err = e.json(h.order); err != nil {
			return err
		}
	} else {
		line = e.kv(h.order)
	}
	return h.out.Write(append(line, '\n'))
}

func qualify(prefix string, attrs []slog.Attr) []slog.Attr {
	if prefix == "" {
		return attrs
	}
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = slog.Attr{Key: joinKey(prefix, a.Key), Value: a.Value}
	}
	return out
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func levelName(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "ERROR"
	case l >= slog.LevelWarn:
		return "WARN"
	case l >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}

// entry is a record flattened to key/value pairs.
type entry map[string]any

func (e entry) add(prefix string, a slog.Attr) {
	key := joinKey(prefix, a.Key)
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, child := range v.Group() {
			e.add(key, child)
		}
		return
	}
	if key == "" {
		return
	}
	switch v.Kind() {
	case slog.KindString:
		e[key] = strings.TrimSpace(v.String())
	case slog.KindBool:
		e[key] = v.Bool()
	case slog.KindInt64:
		e[key] = v.Int64()
	case slog.KindUint64:
		if u := v.Uint64(); u <= math.MaxInt64 {
			e[key] = int64(u)
		} else {
			e[key] = u
		}
	case slog.KindFloat64:
		e[key] = v.Float64()
	case slog.KindDuration:
		e[msKey(key)] = RoundMS(v.Duration()).Milliseconds()
	case slog.KindTime:
		e[key] = v.Time().UTC().Format(time.RFC3339Nano)
	default:
		switch x := v.Any().(type) {
		case nil:
		case error:
			e[key] = x.Error()
		case fmt.Stringer:
			e[key] = x.String()
		default:
			e[key] = fmt.Sprint(x)
		}
	}
}

// msKey maps duration attrs onto *_ms keys.
func msKey(key string) string {
	switch {
	case key == "duration":
		return "duration_ms"
	case strings.HasSuffix(key, "_ms"):
		return key
	}
	return key + "_ms"
}

// fromContext fills correlation ids the record did not set itself.
func (e entry) fromContext(ctx context.Context) {
	m := MetaFrom(ctx)
	e.fill("rid", m.RID, m.RID != "")
	e.fill("update_id", m.UpdateID, m.UpdateID != 0)
	e.fill("user_id", m.UserID, m.UserID != 0)
	e.fill("chat_id", m.ChatID, m.ChatID != 0)
	e.fill("handler", m.Handler, m.Handler != "")
}

func (e entry) fill(key string, v any, ok bool) {
	if _, set := e[key]; ok && !set {
		e[key] = v
	}
}

func (e entry) finish(msg string, keepFullRID bool) {
	if rid, _ := e["rid"].(string); rid != "" {
		if short := CompactRID(rid); short != rid {
			e["rid"] = short
			if keepFullRID {
				e["rid_full"] = rid
			}
		}
	}
	if ev, _ := e["event"].(string); ev == "" {
		e["event"] = msg
		if msg == "" {
			e["event"] = "unknown"
		}
	}
	if c, _ := e["component"].(string); c == "" {
		e["component"] = "app"
	}
	if o, ok := e["outcome"].(string); ok && !outcomes[strings.ToLower(o)] {
		delete(e, "outcome")
	}
	for k, v := range e {
		if s, ok := v.(string); ok && s == "" {
			delete(e, k)
		}
	}
}

func (e entry) keys(order []string) []string {
	keys := make([]string, 0, len(e))
	listed := make(map[string]bool, len(order))
	for _, k := range order {
		listed[k] = true
		if _, ok := e[k]; ok {
			keys = append(keys, k)
		}
	}
	n := len(keys)
	for k := range e {
		if !listed[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys[n:])
	return keys
}

func (e entry) json(order []string) ([]byte, error) {
	buf := []byte{'{'}
	for i, k := range e.keys(order) {
		v, err := json.Marshal(e[k])
		if err != nil {
			return nil, err
		}
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendQuote(buf, k)
		buf = append(buf, ':')
		buf = append(buf, v...)
	}
	return append(buf, '}'), nil
}

func (e entry) kv(order []string) []byte {
	var buf []byte
	for i, k := range e.keys(order) {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, k...)
		buf = append(buf, '=')
		s := fmt.Sprint(e[k])
		if strings.IndexFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) >= 0 {
			buf = strconv.AppendQuote(buf, s)
		} else {
			buf = append(buf, s...)
		}
	}
	return buf
}
