// Package app contains application services that orchestrate use cases.
package app

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jsamuelsen/quotes-service/internal/domain"
	"github.com/jsamuelsen/quotes-service/internal/platform/metrics"
	"github.com/jsamuelsen/quotes-service/internal/ports"
)

// Invalidator drops derived state after a write. The ranking cache implements it.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(context.Context) {}

// QuoteService orchestrates the catalog use cases.
// It depends on port interfaces, not concrete implementations.
type QuoteService struct {
	quotes      ports.QuoteRepository
	likes       ports.LikeLedger
	invalidator Invalidator
	metrics     *metrics.Recorder
	logger      *slog.Logger
	now         func() time.Time
	newID       func() string
}

// QuoteServiceConfig contains configuration for the quote service.
type QuoteServiceConfig struct {
	Quotes      ports.QuoteRepository
	Likes       ports.LikeLedger
	Invalidator Invalidator
	Metrics     *metrics.Recorder
	Logger      *slog.Logger

	// Now and NewID default to UTC wall time and random UUIDs.
	Now   func() time.Time
	NewID func() string
}

// NewQuoteService creates a new quote service with the provided dependencies.
// Panics if Quotes or Likes is nil.
func NewQuoteService(cfg QuoteServiceConfig) *QuoteService {
	if cfg.Quotes == nil {
		panic("QuoteService: Quotes is required")
	}

	if cfg.Likes == nil {
		panic("QuoteService: Likes is required")
	}

	svc := &QuoteService{
		quotes:      cfg.Quotes,
		likes:       cfg.Likes,
		invalidator: cfg.Invalidator,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
		now:         cfg.Now,
		newID:       cfg.NewID,
	}

	if svc.invalidator == nil {
		svc.invalidator = noopInvalidator{}
	}

	if svc.logger == nil {
		svc.logger = slog.Default()
	}

	if svc.now == nil {
		svc.now = utcNow
	}

	if svc.newID == nil {
		svc.newID = uuid.NewString
	}

	return svc
}

func utcNow() time.Time {
	return time.Now().UTC()
}

// QuoteList is one page of quotes with the caller's like status for each.
type QuoteList struct {
	Page  domain.QuotePage
	Liked map[string]bool
}

// Random returns a uniformly chosen quote.
func (s *QuoteService) Random(ctx context.Context, visitor domain.Visitor) (*domain.LikedQuote, error) {
	quote, err := s.quotes.Random(ctx)
	if err != nil {
		return nil, err
	}

	return s.withLikeStatus(ctx, quote, visitor)
}

// Get returns a single quote.
func (s *QuoteService) Get(ctx context.Context, id string, visitor domain.Visitor) (*domain.LikedQuote, error) {
	quote, err := s.quotes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return s.withLikeStatus(ctx, quote, visitor)
}

// List returns one page of quotes. Like status for the whole page is
// resolved with a single ledger lookup.
func (s *QuoteService) List(ctx context.Context, query domain.ListQuery, visitor domain.Visitor) (*QuoteList, error) {
	query = query.Normalize()

	quotes, total, err := s.quotes.List(ctx, query)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list quotes", slog.Any("error", err))
		return nil, err
	}

	page := domain.QuotePage{
		Quotes:   quotes,
		Total:    total,
		Page:     query.Page,
		PageSize: query.PageSize,
	}

	liked := map[string]bool{}
	if len(quotes) > 0 {
		liked, err = s.likes.AreLiked(ctx, page.IDs(), visitor.ID)
		if err != nil {
			return nil, err
		}
	}

	return &QuoteList{Page: page, Liked: liked}, nil
}

// Create stores a new quote with a fresh identifier and a zero counter.
func (s *QuoteService) Create(ctx context.Context, in domain.NewQuoteInput) (*domain.LikedQuote, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	quote := &domain.Quote{
		ID:        s.newID(),
		Text:      strings.TrimSpace(in.Text),
		Author:    strings.TrimSpace(in.Author),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.quotes.Create(ctx, quote); err != nil {
		s.logger.ErrorContext(ctx, "failed to create quote", slog.Any("error", err))
		return nil, err
	}

	s.metrics.QuoteWrite("create")
	s.invalidator.Invalidate(ctx)

	s.logger.InfoContext(ctx, "quote created",
		slog.String("quote_id", quote.ID),
		slog.String("author", quote.Author),
	)

	return &domain.LikedQuote{Quote: *quote}, nil
}

// Update applies a partial patch. An empty patch only refreshes updated_at.
func (s *QuoteService) Update(
	ctx context.Context,
	id string,
	patch domain.QuoteUpdate,
	visitor domain.Visitor,
) (*domain.LikedQuote, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	patch = trimPatch(patch)

	quote, err := s.quotes.Update(ctx, id, patch, s.now())
	if err != nil {
		return nil, err
	}

	s.metrics.QuoteWrite("update")
	s.invalidator.Invalidate(ctx)

	s.logger.InfoContext(ctx, "quote updated", slog.String("quote_id", id))

	return s.withLikeStatus(ctx, quote, visitor)
}

// Delete removes a quote and, through the foreign key, its likes.
// Returns domain.ErrNotFound when nothing was removed.
func (s *QuoteService) Delete(ctx context.Context, id string) error {
	removed, err := s.quotes.Delete(ctx, id)
	if err != nil {
		return err
	}

	if !removed {
		return domain.NewNotFoundError("quote", id)
	}

	s.metrics.QuoteWrite("delete")
	s.invalidator.Invalidate(ctx)

	s.logger.InfoContext(ctx, "quote deleted", slog.String("quote_id", id))

	return nil
}

// IsLiked reports whether the visitor has liked the quote.
func (s *QuoteService) IsLiked(ctx context.Context, id string, visitor domain.Visitor) (bool, error) {
	return s.likes.IsLiked(ctx, id, visitor.ID)
}

func (s *QuoteService) withLikeStatus(
	ctx context.Context,
	quote *domain.Quote,
	visitor domain.Visitor,
) (*domain.LikedQuote, error) {
	return attachLikeStatus(ctx, s.likes, quote, visitor)
}

func attachLikeStatus(
	ctx context.Context,
	likes ports.LikeLedger,
	quote *domain.Quote,
	visitor domain.Visitor,
) (*domain.LikedQuote, error) {
	liked, err := likes.IsLiked(ctx, quote.ID, visitor.ID)
	if err != nil {
		return nil, err
	}

	return &domain.LikedQuote{Quote: *quote, IsLiked: liked}, nil
}

func trimPatch(patch domain.QuoteUpdate) domain.QuoteUpdate {
	if patch.Text != nil {
		text := strings.TrimSpace(*patch.Text)
		patch.Text = &text
	}

	if patch.Author != nil {
		author := strings.TrimSpace(*patch.Author)
		patch.Author = &author
	}

	return patch
}
