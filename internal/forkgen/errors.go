package forkgen

import (
	"errors"
	"fmt"
)

var (
	// ErrNoLeadingImports means the base module has no import run after which
	// re-exports could be spliced.
	ErrNoLeadingImports = errors.New("base module has no leading import declarations")
	// ErrSentinelMissing means the base module lacks the fork-neutral import.
	ErrSentinelMissing = errors.New("sentinel import not found")
	// ErrSentinelDuplicate means the fork-neutral import occurs more than once.
	ErrSentinelDuplicate = errors.New("sentinel import is not unique")
)

// SentinelError reports a base module whose sentinel import count is not one.
type SentinelError struct {
	Import string
	Count  int
}

func (e *SentinelError) Error() string {
	if e.Count == 0 {
		return fmt.Sprintf("%v: base module must contain %q exactly once", ErrSentinelMissing, e.Import)
	}
	return fmt.Sprintf("%v: found %d copies of %q, please fix the base module", ErrSentinelDuplicate, e.Count, e.Import)
}

func (e *SentinelError) Unwrap() error {
	if e.Count == 0 {
		return ErrSentinelMissing
	}
	return ErrSentinelDuplicate
}
