package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/m3rciful/accessbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// Callback is a registered callback handler.
type Callback struct {
	Handler   tele.HandlerFunc
	AdminOnly bool
}

type prefixEntry struct {
	prefix string
	cb     Callback
}

// callbackTable maps callback data to handlers by exact key or by prefix.
// prefixes stays sorted longest first.
type callbackTable struct {
	mu       sync.RWMutex
	exact    map[string]Callback
	prefixes []prefixEntry
}

func (t *callbackTable) add(key string, cb Callback, prefix bool) error {
	if key == "" || cb.Handler == nil {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.callback.skip",
			slog.String("key", key),
			slog.Bool("handler_nil", cb.Handler == nil),
		)
		return errors.New("invalid callback registration")
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	taken := !prefix && t.exact[key].Handler != nil
	if prefix {
		i := sort.Search(len(t.prefixes), func(i int) bool { return len(t.prefixes[i].prefix) <= len(key) })
		for j := i; j < len(t.prefixes) && len(t.prefixes[j].prefix) == len(key); j++ {
			taken = taken || t.prefixes[j].prefix == key
		}
		if !taken {
			t.prefixes = append(t.prefixes, prefixEntry{})
			copy(t.prefixes[i+1:], t.prefixes[i:])
			t.prefixes[i] = prefixEntry{prefix: key, cb: cb}
		}
	} else if !taken {
		t.exact[key] = cb
	}
	if taken {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.callback.duplicate",
			slog.String("key", key),
		)
		return fmt.Errorf("callback already registered: %s", key)
	}
	return nil
}

func (t *callbackTable) get(key string) (Callback, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if cb, ok := t.exact[key]; ok {
		return cb, true
	}
	for _, p := range t.prefixes {
		if strings.HasPrefix(key, p.prefix) {
			return p.cb, true
		}
	}
	return Callback{}, false
}

func (t *callbackTable) keys() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.exact)+len(t.prefixes))
	for k := range t.exact {
		out = append(out, k)
	}
	for _, p := range t.prefixes {
		out = append(out, p.prefix+"*")
	}
	sort.Strings(out)
	return out
}
