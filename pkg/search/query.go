package search

import (
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// Validation errors. All are detected before any store access and are
// recoverable by the caller resubmitting a corrected request.
var (
	ErrMissingQuery  = errors.New("missing query text")
	ErrQueryTooShort = errors.New("query text too short")
	ErrInvalidLimit  = errors.New("limit must be a positive integer")
	ErrInvalidOffset = errors.New("offset must be a non-negative integer")
	ErrMissingOwner  = errors.New("missing owner")
)

const (
	// MinQueryLength is the minimum trimmed query length.
	MinQueryLength = 2
	// DefaultLimit applies when no limit is given.
	DefaultLimit = 10
	// MaxLimit caps any requested limit; larger values are clamped, not
	// rejected.
	MaxLimit = 50
)

// Query is a validated, immutable search request.
type Query struct {
	Text    string
	OwnerID string
	Limit   int
	Offset  int
}

// Validate normalizes raw query parameters into a Query. rawLimit and
// rawOffset are the raw parameter strings; empty means absent. The offset
// parameter only applies to partial search, so word-wheel callers pass
// withOffset=false and any offset input is ignored.
//
// Validate is a pure function: no side effects, no store access.
func Validate(ownerID, rawText, rawLimit, rawOffset string, withOffset bool) (Query, error) {
	if ownerID == "" {
		return Query{}, ErrMissingOwner
	}

	text := strings.TrimSpace(rawText)
	if text == "" {
		return Query{}, ErrMissingQuery
	}
	if utf8.RuneCountInString(text) < MinQueryLength {
		return Query{}, ErrQueryTooShort
	}

	limit := DefaultLimit
	if rawLimit != "" {
		parsed, err := strconv.Atoi(rawLimit)
		if err != nil || parsed <= 0 {
			return Query{}, ErrInvalidLimit
		}
		limit = parsed
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	offset := 0
	if withOffset && rawOffset != "" {
		parsed, err := strconv.Atoi(rawOffset)
		if err != nil || parsed < 0 {
			return Query{}, ErrInvalidOffset
		}
		offset = parsed
	}

	return Query{
		Text:    text,
		OwnerID: ownerID,
		Limit:   limit,
		Offset:  offset,
	}, nil
}

// Normalize case-folds and trims a query or token so that matching is
// case-insensitive beyond plain ASCII. A fresh Caser per call: x/text does
// not guarantee a Caser is safe for concurrent use, and construction is
// cheap.
func Normalize(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}
