// Package domain contains core business entities and rules.
package domain

import (
	"math"
	"strings"
	"time"
)

// Default and maximum page sizes for quote listings.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// MaxPage bounds the page number so the row offset stays within an int32.
const MaxPage = math.MaxInt32 / MaxPageSize

// Quote is a catalog entry.
// LikesCount is denormalized and always equals the number of likes recorded for the quote.
type Quote struct {
	ID         string
	Text       string
	Author     string
	LikesCount int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// QuoteUpdate is a partial patch. Nil fields are left unchanged.
type QuoteUpdate struct {
	Text   *string
	Author *string
}

// IsEmpty reports whether the patch changes no fields.
func (u QuoteUpdate) IsEmpty() bool {
	return u.Text == nil && u.Author == nil
}

// Validate rejects supplied fields that are blank.
func (u QuoteUpdate) Validate() error {
	if u.Text != nil && strings.TrimSpace(*u.Text) == "" {
		return NewValidationError("text", "must not be empty")
	}

	if u.Author != nil && strings.TrimSpace(*u.Author) == "" {
		return NewValidationError("author", "must not be empty")
	}

	return nil
}

// NewQuoteInput carries the fields required to create a quote.
type NewQuoteInput struct {
	Text   string
	Author string
}

// Validate checks both fields are present.
func (in NewQuoteInput) Validate() error {
	if strings.TrimSpace(in.Text) == "" {
		return NewValidationError("text", "is required")
	}

	if strings.TrimSpace(in.Author) == "" {
		return NewValidationError("author", "is required")
	}

	return nil
}

// ListQuery selects one page of quotes, optionally filtered by a search term.
type ListQuery struct {
	Page     int
	PageSize int
	Search   string
}

// Normalize clamps page and page size into their valid ranges.
func (q ListQuery) Normalize() ListQuery {
	switch {
	case q.Page < 1:
		q.Page = 1
	case q.Page > MaxPage:
		q.Page = MaxPage
	}

	switch {
	case q.PageSize < 1:
		q.PageSize = DefaultPageSize
	case q.PageSize > MaxPageSize:
		q.PageSize = MaxPageSize
	}

	q.Search = strings.TrimSpace(q.Search)

	return q
}

// Offset returns the number of rows to skip for the page.
func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}

// QuotePage is one page of a listing.
type QuotePage struct {
	Quotes   []Quote
	Total    int64
	Page     int
	PageSize int
}

// TotalPages returns ceil(Total / PageSize).
func (p QuotePage) TotalPages() int {
	if p.PageSize <= 0 {
		return 0
	}

	return int((p.Total + int64(p.PageSize) - 1) / int64(p.PageSize))
}

// IDs returns the quote identifiers in page order.
func (p QuotePage) IDs() []string {
	ids := make([]string, len(p.Quotes))
	for i, q := range p.Quotes {
		ids[i] = q.ID
	}

	return ids
}
