package dto

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotes-service/internal/domain"
)

// Query parameter names for quote listings.
const (
	QueryPage     = "page"
	QueryPageSize = "page_size"
	QuerySearch   = "search"
)

// ListRequest holds the listing parameters as sent by the client.
// Malformed numbers fall back to the defaults rather than failing the request.
type ListRequest struct {
	Page     int
	PageSize int
	Search   string
}

// ParseListRequest reads page, page_size and search from the query string.
func ParseListRequest(c *gin.Context) ListRequest {
	return ListRequest{
		Page:     queryInt(c, QueryPage),
		PageSize: queryInt(c, QueryPageSize),
		Search:   c.Query(QuerySearch),
	}
}

// ToQuery converts the request to a normalized domain query.
func (r ListRequest) ToQuery() domain.ListQuery {
	return domain.ListQuery{
		Page:     r.Page,
		PageSize: r.PageSize,
		Search:   r.Search,
	}.Normalize()
}

func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(c.Query(key)))
	if err != nil {
		return 0
	}

	return n
}

// QuoteListResponse is one page of quotes.
type QuoteListResponse struct {
	Quotes     []QuoteResponse `json:"quotes"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	TotalPages int             `json:"total_pages"`
}

// NewQuoteListResponse merges a page with the caller's like status per quote.
func NewQuoteListResponse(page domain.QuotePage, liked map[string]bool) *QuoteListResponse {
	resp := &QuoteListResponse{
		Quotes:     make([]QuoteResponse, 0, len(page.Quotes)),
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages(),
	}

	for i := range page.Quotes {
		q := &domain.LikedQuote{Quote: page.Quotes[i], IsLiked: liked[page.Quotes[i].ID]}
		resp.Quotes = append(resp.Quotes, *NewQuoteResponse(q))
	}

	return resp
}
