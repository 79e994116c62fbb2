package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrTradeNotFound      = errors.New("trade_not_found")
	ErrTradeAlreadyExists = errors.New("trade_already_exists")
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// CorruptRecordError reports stored bytes under a key that do not
// decode as a TradeRecord. Surfaced from direct reads only; listing
// downgrades the value to a raw string instead.
type CorruptRecordError struct {
	Key string
	Err error
}

func (e *CorruptRecordError) Error() string {
	return fmt.Sprintf("corrupt record under key %q: %v", e.Key, e.Err)
}

func (e *CorruptRecordError) Unwrap() error {
	return e.Err
}
