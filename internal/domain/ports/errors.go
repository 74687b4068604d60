package ports

import "errors"

// Failure taxonomy shared by every ContentStore implementation.
// Adapters wrap these with context; callers test with errors.Is.
var (
	// ErrNetwork means the request never got a response.
	ErrNetwork = errors.New("network failure")

	// ErrNotFound means the referenced id does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation means the store rejected the payload or failed processing it.
	ErrValidation = errors.New("validation failure")
)
