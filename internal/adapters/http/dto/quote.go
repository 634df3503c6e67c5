package dto

import (
	"time"

	"github.com/jsamuelsen/quotes-service/internal/domain"
)

// QuoteResponse is the JSON shape of a quote as seen by one caller.
type QuoteResponse struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	Author     string    `json:"author"`
	LikesCount int64     `json:"likes_count"`
	IsLiked    bool      `json:"is_liked"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewQuoteResponse converts a domain quote and the caller's like status.
func NewQuoteResponse(q *domain.LikedQuote) *QuoteResponse {
	if q == nil {
		return nil
	}

	return &QuoteResponse{
		ID:         q.ID,
		Text:       q.Text,
		Author:     q.Author,
		LikesCount: q.LikesCount,
		IsLiked:    q.IsLiked,
		CreatedAt:  q.CreatedAt.UTC(),
		UpdatedAt:  q.UpdatedAt.UTC(),
	}
}

// CreateQuoteRequest is the body of POST /api/quotes.
type CreateQuoteRequest struct {
	Text   string `json:"text"   validate:"required,notempty"`
	Author string `json:"author" validate:"required,notempty,max=255"`
}

// ToInput converts the request to a domain create input.
func (r *CreateQuoteRequest) ToInput() domain.NewQuoteInput {
	return domain.NewQuoteInput{Text: r.Text, Author: r.Author}
}

// UpdateQuoteRequest is the body of PUT /api/quotes/:id. Absent fields are unchanged.
type UpdateQuoteRequest struct {
	Text   *string `json:"text"   validate:"omitempty,notempty"`
	Author *string `json:"author" validate:"omitempty,notempty,max=255"`
}

// ToPatch converts the request to a domain patch.
func (r *UpdateQuoteRequest) ToPatch() domain.QuoteUpdate {
	return domain.QuoteUpdate{Text: r.Text, Author: r.Author}
}

// IsLikedResponse answers GET /api/quotes/:id/is-liked.
type IsLikedResponse struct {
	IsLiked bool `json:"is_liked"`
}

// TopQuotesResponse answers GET /api/quotes/top. Either entry may be null.
type TopQuotesResponse struct {
	Weekly  *QuoteResponse `json:"weekly"`
	AllTime *QuoteResponse `json:"alltime"`
}

// NewTopQuotesResponse converts the ranking winners.
func NewTopQuotesResponse(top *domain.TopQuotes) *TopQuotesResponse {
	return &TopQuotesResponse{
		Weekly:  NewQuoteResponse(top.Weekly),
		AllTime: NewQuoteResponse(top.AllTime),
	}
}

// ResetLikesResponse answers DELETE /api/quotes/likes/reset.
type ResetLikesResponse struct {
	Message string `json:"message"`
	Removed int64  `json:"removed"`
}

// ImportResponse answers POST /api/quotes/import.
// Incomplete is set when the import stopped before every fetched quote
// was stored.
type ImportResponse struct {
	Imported   int             `json:"imported"`
	Quotes     []QuoteResponse `json:"quotes"`
	Incomplete bool            `json:"incomplete,omitempty"`
}

// NewImportResponse converts the quotes stored by an import.
func NewImportResponse(quotes []domain.Quote) *ImportResponse {
	resp := &ImportResponse{
		Imported: len(quotes),
		Quotes:   make([]QuoteResponse, 0, len(quotes)),
	}

	for i := range quotes {
		resp.Quotes = append(resp.Quotes, *NewQuoteResponse(&domain.LikedQuote{Quote: quotes[i]}))
	}

	return resp
}
