package helpers

import "context"

// UserLookup resolves a Telegram user id to a domain user.
type UserLookup[T any] interface {
	GetUserByTelegramID(ctx context.Context, tgID int64) (T, error)
}

// CurrentUser resolves tgID through service. A nil service yields the zero
// value, which lets handlers run without a user store.
func CurrentUser[T any](ctx context.Context, service UserLookup[T], tgID int64) (T, error) {
	var zero T
	if service == nil {
		return zero, nil
	}
	return service.GetUserByTelegramID(ctx, tgID)
}
