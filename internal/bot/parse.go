package bot

import (
	"errors"
	"strings"
)

// ErrFormat reports free text that does not match the expected shape.
var ErrFormat = errors.New("invalid format")

const (
	minPollOptions = 2
	maxPollOptions = 10
)

// ParseCredentials splits "email password". Anything other than exactly two
// whitespace-separated tokens is ErrFormat.
func ParseCredentials(text string) (email, password string, err error) {
	fields := strings.Fields(text)
	if len(fields) != 2 {
		return "", "", ErrFormat
	}
	return fields[0], fields[1], nil
}

// Poll is a parsed "Question | Option1, Option2" request.
type Poll struct {
	Question string
	Options  []string
}

// ParsePoll parses "Question | Option1, Option2, ...". The question must be
// non-empty and there must be 2 to 10 non-empty options.
func ParsePoll(text string) (Poll, error) {
	question, rest, ok := strings.Cut(text, "|")
	if !ok || strings.Contains(rest, "|") {
		return Poll{}, ErrFormat
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return Poll{}, ErrFormat
	}
	var options []string
	for _, opt := range strings.Split(rest, ",") {
		if opt = strings.TrimSpace(opt); opt != "" {
			options = append(options, opt)
		}
	}
	if len(options) < minPollOptions || len(options) > maxPollOptions {
		return Poll{}, ErrFormat
	}
	return Poll{Question: question, Options: options}, nil
}
