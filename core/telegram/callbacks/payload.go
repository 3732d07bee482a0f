package callbacks

import (
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// PayloadInt64 parses callback payload as int64.
func PayloadInt64(c tele.Context) (int64, error) {
	return strconv.ParseInt(CallbackPayload(c), 10, 64)
}

// SuffixInt64 parses the id that follows prefix in key, as in "approve_42".
func SuffixInt64(key, prefix string) (int64, error) {
	rest, ok := strings.CutPrefix(key, prefix)
	if !ok || rest == "" {
		return 0, fmt.Errorf("callback %q: missing %q id", key, prefix)
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("callback %q: %w", key, err)
	}
	return id, nil
}

// KeyWithInt64 builds the inverse of SuffixInt64.
func KeyWithInt64(prefix string, id int64) string {
	return prefix + strconv.FormatInt(id, 10)
}
