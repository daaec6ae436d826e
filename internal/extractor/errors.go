package extractor

import (
	"errors"
	"fmt"
)

var (
	ErrNotHTML     = errors.New("response is not html")
	ErrNoCandidate = errors.New("no content element found")
)

// StatusError is a non-2xx answer from a target page or reader service.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Code)
}

// PanicError wraps a recovered strategy panic.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("strategy panicked: %v", e.Value)
}
