// Package ports defines interfaces for external dependencies.
// Ports are contracts that adapters implement, allowing the application layer
// to depend on abstractions rather than concrete implementations.
//
// Port conventions:
//   - Context is always the first parameter
//   - Methods return domain types, never driver rows or upstream DTOs
//   - Failures use domain errors (ErrNotFound, ErrAlreadyLiked, ...) so callers
//     can branch on domain.Kind instead of error text
package ports

import (
	"context"
	"time"

	"github.com/jsamuelsen/quotes-service/internal/domain"
)

// QuoteRepository persists quotes.
type QuoteRepository interface {
	// Random returns one quote picked uniformly from the full set.
	// Returns domain.ErrNotFound when the set is empty.
	Random(ctx context.Context) (*domain.Quote, error)

	// GetByID returns domain.ErrNotFound if the quote does not exist.
	GetByID(ctx context.Context, id string) (*domain.Quote, error)

	// List returns one page ordered by creation time, newest first, plus the
	// total number of matching quotes. The query must already be normalized.
	List(ctx context.Context, query domain.ListQuery) ([]domain.Quote, int64, error)

	// Create inserts a fully populated quote.
	Create(ctx context.Context, quote *domain.Quote) error

	// Update applies a partial patch in a single statement and returns the row
	// as stored. Returns domain.ErrNotFound if no row matched.
	Update(ctx context.Context, id string, patch domain.QuoteUpdate, now time.Time) (*domain.Quote, error)

	// Delete reports whether a row was removed.
	Delete(ctx context.Context, id string) (bool, error)
}

// LikeLedger records likes and keeps the quote counters in step with them.
type LikeLedger interface {
	// Like registers one like for the visitor and increments the counter in the
	// same transaction. Returns domain.ErrAlreadyLiked for a repeated pair and
	// domain.ErrNotFound when the quote does not exist.
	Like(ctx context.Context, quoteID string, visitor domain.Visitor, now time.Time) error

	// IsLiked reports whether the visitor has liked the quote.
	IsLiked(ctx context.Context, quoteID, visitorID string) (bool, error)

	// AreLiked answers IsLiked for many quotes with one lookup. Every requested
	// id is present in the result.
	AreLiked(ctx context.Context, quoteIDs []string, visitorID string) (map[string]bool, error)

	// ResetLikes zeroes every counter and removes every ledger entry atomically.
	// Returns the number of ledger entries removed.
	ResetLikes(ctx context.Context, now time.Time) (int64, error)
}

// RankingRepository answers the popularity queries.
type RankingRepository interface {
	// TopWeekly returns the most liked quote created in the trailing seven days.
	// Returns domain.ErrNotFound when no quote falls in the window.
	TopWeekly(ctx context.Context) (*domain.Quote, error)

	// TopAllTime returns the most liked quote overall.
	TopAllTime(ctx context.Context) (*domain.Quote, error)
}

// QuoteSource fetches quotes from an upstream provider for import.
// Returns domain.ErrUnavailable if the provider is unreachable.
type QuoteSource interface {
	RandomQuotes(ctx context.Context, limit int) ([]domain.NewQuoteInput, error)
}

// Cache defines the contract for caching operations.
// Implementations may use Redis or a no-op stand-in.
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns domain.ErrNotFound if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with a TTL. A TTL of 0 means no expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}
