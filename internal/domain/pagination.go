package domain

import (
	"encoding/base64"
	"strconv"
)

// DefaultMaxResults is the page size used when a listing does not ask for one.
const DefaultMaxResults = 100

// MaxMaxResults caps the page size of listings.
const MaxMaxResults = 1000

// PageRequest holds pagination parameters for listings.
type PageRequest struct {
	MaxResults int
	PageToken  string // base64 of the start offset
}

// Offset decodes the page token. Invalid or empty tokens start at 0.
func (p PageRequest) Offset() int {
	if p.PageToken == "" {
		return 0
	}
	decoded, err := base64.RawURLEncoding.DecodeString(p.PageToken)
	if err != nil {
		return 0
	}
	offset, err := strconv.Atoi(string(decoded))
	if err != nil || offset < 0 {
		return 0
	}
	return offset
}

// Limit returns the page size clamped to [1, MaxMaxResults].
func (p PageRequest) Limit() int {
	if p.MaxResults <= 0 {
		return DefaultMaxResults
	}
	return min(p.MaxResults, MaxMaxResults)
}

// EncodePageToken creates a page token for an offset; 0 encodes to "".
func EncodePageToken(offset int) string {
	if offset <= 0 {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.Itoa(offset)))
}

// Page slices items according to the request and returns the token for the
// following page, or "" on the last page.
func Page[T any](items []T, req PageRequest) ([]T, string) {
	offset, limit := req.Offset(), req.Limit()
	if offset >= len(items) {
		return []T{}, ""
	}
	end := min(offset+limit, len(items))
	next := ""
	if end < len(items) {
		next = EncodePageToken(end)
	}
	return items[offset:end], next
}
