package watcher

import (
	"errors"
	"fmt"
)

// ErrPriceNotFound means the extraction backend answered but explicitly
// reported that the page carries no recognizable price.
var ErrPriceNotFound = errors.New("extract: price not found on page")

// ConfigError is a missing required secret. It short-circuits a check before
// any outbound call is made.
type ConfigError struct {
	Name string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s is not configured", e.Name)
}

// FetchError covers everything that goes wrong retrieving rendered HTML:
// proxy unreachable, non-success status, or a degenerate body.
type FetchError struct {
	URL   string
	cause error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.cause)
}

func (e *FetchError) Unwrap() error {
	return e.cause
}

// ExtractError means the extraction backend failed or returned something we
// could not parse.
type ExtractError struct {
	cause error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extract: %v", e.cause)
}

func (e *ExtractError) Unwrap() error {
	return e.cause
}
