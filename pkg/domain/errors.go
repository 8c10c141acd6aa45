package domain

import (
	"errors"
	"fmt"
	"strings"
)

// sentinel errors
var (
	ErrMalformed     = errors.New("malformed feed document")
	ErrNotAFeed      = errors.New("document is not a feed")
	ErrDuplicateFeed = errors.New("feed already registered")
	ErrFeedNotFound  = errors.New("feed not found")
)

// ValidationKind is a reason for rejecting a candidate feed URL
type ValidationKind string

// validation kinds
const (
	ValidationRequired ValidationKind = "required"
	ValidationURL      ValidationKind = "url"
	ValidationNotOneOf ValidationKind = "notOneOf" // already subscribed
)

// ValidationError is returned for rejected user input
type ValidationError struct {
	Kinds []ValidationKind
}

func (e *ValidationError) Error() string {
	kinds := make([]string, len(e.Kinds))
	for i, k := range e.Kinds {
		kinds[i] = string(k)
	}
	return "invalid feed url: " + strings.Join(kinds, ", ")
}

// Has reports whether the error contains the given kind
func (e *ValidationError) Has(kind ValidationKind) bool {
	for _, k := range e.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// NetworkError is a transient failure to retrieve feed content
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error for %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ParseErrorKind distinguishes unparsable content from parsable non-feeds
type ParseErrorKind string

// parse error kinds
const (
	ParseMalformed ParseErrorKind = "malformed"
	ParseNotAFeed  ParseErrorKind = "notAFeed"
)

// ParseError is returned when content is not a usable feed.
// errors.Is matches ErrMalformed or ErrNotAFeed according to Kind.
type ParseError struct {
	Kind ParseErrorKind
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return "parse feed: " + string(e.Kind)
	}
	return fmt.Sprintf("parse feed: %s: %v", e.Kind, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is matches the sentinel for the error kind
func (e *ParseError) Is(target error) bool {
	switch e.Kind {
	case ParseMalformed:
		return target == ErrMalformed
	case ParseNotAFeed:
		return target == ErrNotAFeed
	}
	return false
}
