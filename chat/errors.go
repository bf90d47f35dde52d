package chat

import "errors"

// Error kinds surfaced by engine operations. Callers match them with
// errors.Is; adapters wrap the underlying cause.
var (
	ErrAuthRequired = errors.New("no active session")
	ErrValidation   = errors.New("message text must not be empty")
	ErrNetwork      = errors.New("request failed")
	ErrServer       = errors.New("store rejected the operation")
	ErrSubscription = errors.New("could not establish realtime subscription")
	ErrClosed       = errors.New("engine is closed")
)
