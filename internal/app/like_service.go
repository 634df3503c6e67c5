package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/jsamuelsen/quotes-service/internal/domain"
	"github.com/jsamuelsen/quotes-service/internal/platform/logging"
	"github.com/jsamuelsen/quotes-service/internal/platform/metrics"
	"github.com/jsamuelsen/quotes-service/internal/ports"
)

// LikeService registers likes and resets the ledger.
type LikeService struct {
	quotes      ports.QuoteRepository
	likes       ports.LikeLedger
	invalidator Invalidator
	metrics     *metrics.Recorder
	logger      *slog.Logger
	now         func() time.Time
}

// LikeServiceConfig contains configuration for the like service.
type LikeServiceConfig struct {
	Quotes      ports.QuoteRepository
	Likes       ports.LikeLedger
	Invalidator Invalidator
	Metrics     *metrics.Recorder
	Logger      *slog.Logger
	Now         func() time.Time
}

// NewLikeService creates a like service. Panics if Quotes or Likes is nil.
func NewLikeService(cfg LikeServiceConfig) *LikeService {
	if cfg.Quotes == nil {
		panic("LikeService: Quotes is required")
	}

	if cfg.Likes == nil {
		panic("LikeService: Likes is required")
	}

	svc := &LikeService{
		quotes:      cfg.Quotes,
		likes:       cfg.Likes,
		invalidator: cfg.Invalidator,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
		now:         cfg.Now,
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

	return svc
}

// Like records the visitor's like and returns the quote as it now stands.
// Returns domain.ErrAlreadyLiked on a repeat and domain.ErrNotFound for an
// unknown quote.
func (s *LikeService) Like(ctx context.Context, quoteID string, visitor domain.Visitor) (*domain.LikedQuote, error) {
	err := s.likes.Like(ctx, quoteID, visitor, s.now())
	if err != nil {
		s.metrics.LikeAttempt(likeOutcome(err))

		if domain.Kind(err) == domain.KindInternal {
			s.logger.ErrorContext(ctx, "failed to register like",
				slog.String("quote_id", quoteID),
				slog.Any("error", err),
			)
		}

		return nil, err
	}

	s.metrics.LikeAttempt(metrics.OutcomeLiked)
	s.invalidator.Invalidate(ctx)

	s.logger.Log(ctx, logging.LevelTrace, "like registered", slog.String("quote_id", quoteID))

	quote, err := s.quotes.GetByID(ctx, quoteID)
	if err != nil {
		return nil, err
	}

	return &domain.LikedQuote{Quote: *quote, IsLiked: true}, nil
}

// Reset zeroes every counter and clears the ledger. Returns the number of
// ledger entries removed.
func (s *LikeService) Reset(ctx context.Context) (int64, error) {
	removed, err := s.likes.ResetLikes(ctx, s.now())
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to reset likes", slog.Any("error", err))
		return 0, err
	}

	s.metrics.LikesReset(removed)
	s.invalidator.Invalidate(ctx)

	s.logger.InfoContext(ctx, "likes reset", slog.Int64("removed", removed))

	return removed, nil
}

func likeOutcome(err error) string {
	switch domain.Kind(err) {
	case domain.KindAlreadyLiked:
		return metrics.OutcomeAlreadyLiked
	case domain.KindNotFound:
		return metrics.OutcomeNotFound
	default:
		return metrics.OutcomeError
	}
}
