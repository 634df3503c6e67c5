package domain

import "time"

// DefaultVisitorID is used when a request carries no forwarding headers.
const DefaultVisitorID = "127.0.0.1"

// Like is a ledger entry asserting that one visitor liked one quote.
type Like struct {
	ID        string
	QuoteID   string
	VisitorID string
	UserAgent string
	CreatedAt time.Time
}

// Visitor is the heuristic client identity derived from request metadata.
// It is trivially spoofable and is not a security boundary.
type Visitor struct {
	ID        string
	UserAgent string
}

// LikedQuote pairs a quote with the caller's like status.
type LikedQuote struct {
	Quote
	IsLiked bool
}

// TopQuotes holds the current ranking winners. Either may be nil when no quote qualifies.
type TopQuotes struct {
	Weekly  *LikedQuote
	AllTime *LikedQuote
}
