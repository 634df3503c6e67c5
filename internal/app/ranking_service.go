package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jsamuelsen/quotes-service/internal/domain"
	"github.com/jsamuelsen/quotes-service/internal/platform/metrics"
	"github.com/jsamuelsen/quotes-service/internal/ports"
)

// Ranking cache keys.
const (
	TopWeeklyKey  = "top:weekly"
	TopAllTimeKey = "top:alltime"
)

// RankingService answers the top-quote queries, caching the winners.
// Only the quote is cached; like status is always resolved per caller.
//
// generation advances on every Invalidate. A load that straddles an
// invalidation is not left in the cache.
type RankingService struct {
	generation atomic.Uint64

	ranking ports.RankingRepository
	likes   ports.LikeLedger
	cache   ports.Cache
	ttl     time.Duration
	metrics *metrics.Recorder
	logger  *slog.Logger
}

// RankingServiceConfig contains configuration for the ranking service.
type RankingServiceConfig struct {
	Ranking ports.RankingRepository
	Likes   ports.LikeLedger

	// Cache is optional. Without it every call goes to the repository.
	Cache   ports.Cache
	TTL     time.Duration
	Metrics *metrics.Recorder
	Logger  *slog.Logger
}

// NewRankingService creates a ranking service. Panics if Ranking or Likes is nil.
func NewRankingService(cfg RankingServiceConfig) *RankingService {
	if cfg.Ranking == nil {
		panic("RankingService: Ranking is required")
	}

	if cfg.Likes == nil {
		panic("RankingService: Likes is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &RankingService{
		ranking: cfg.Ranking,
		likes:   cfg.Likes,
		cache:   cfg.Cache,
		ttl:     cfg.TTL,
		metrics: cfg.Metrics,
		logger:  logger,
	}
}

// TopWeekly returns the most liked quote created in the last seven days.
func (s *RankingService) TopWeekly(ctx context.Context, visitor domain.Visitor) (*domain.LikedQuote, error) {
	return s.top(ctx, TopWeeklyKey, s.ranking.TopWeekly, visitor)
}

// TopAllTime returns the most liked quote overall.
func (s *RankingService) TopAllTime(ctx context.Context, visitor domain.Visitor) (*domain.LikedQuote, error) {
	return s.top(ctx, TopAllTimeKey, s.ranking.TopAllTime, visitor)
}

// Top resolves both rankings concurrently. A window with no qualifying quote
// yields a nil entry rather than an error.
func (s *RankingService) Top(ctx context.Context, visitor domain.Visitor) (*domain.TopQuotes, error) {
	weekly, allTime, err := both(ctx,
		func(ctx context.Context) (*domain.LikedQuote, error) {
			return optional(s.TopWeekly(ctx, visitor))
		},
		func(ctx context.Context) (*domain.LikedQuote, error) {
			return optional(s.TopAllTime(ctx, visitor))
		},
	)
	if err != nil {
		return nil, err
	}

	return &domain.TopQuotes{Weekly: weekly, AllTime: allTime}, nil
}

// Invalidate drops the cached winners. Failures are logged; entries expire
// on their TTL regardless.
func (s *RankingService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}

	s.generation.Add(1)

	if err := s.cache.Delete(ctx, TopWeeklyKey, TopAllTimeKey); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate ranking cache", slog.Any("error", err))
	}
}

func (s *RankingService) top(
	ctx context.Context,
	key string,
	load func(context.Context) (*domain.Quote, error),
	visitor domain.Visitor,
) (*domain.LikedQuote, error) {
	quote, ok := s.cached(ctx, key)
	if !ok {
		gen := s.generation.Load()

		var err error

		quote, err = load(ctx)
		if err != nil {
			return nil, err
		}

		s.store(ctx, key, quote, gen)
	}

	return attachLikeStatus(ctx, s.likes, quote, visitor)
}

func (s *RankingService) cached(ctx context.Context, key string) (*domain.Quote, bool) {
	if s.cache == nil {
		return nil, false
	}

	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if !domain.IsNotFound(err) {
			s.logger.WarnContext(ctx, "ranking cache read failed",
				slog.String("key", key),
				slog.Any("error", err),
			)
		}

		s.metrics.CacheLookup(false)

		return nil, false
	}

	var quote domain.Quote
	if err := json.Unmarshal(raw, &quote); err != nil {
		s.logger.WarnContext(ctx, "discarding malformed cache entry", slog.String("key", key))
		s.metrics.CacheLookup(false)

		return nil, false
	}

	s.metrics.CacheLookup(true)

	return &quote, true
}

// store caches quote unless an invalidation happened since gen was read. The
// generation is checked again after the write, since Invalidate may run
// between the check and the Set.
func (s *RankingService) store(ctx context.Context, key string, quote *domain.Quote, gen uint64) {
	if s.cache == nil || s.generation.Load() != gen {
		return
	}

	raw, err := json.Marshal(quote)
	if err != nil {
		return
	}

	if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
		s.logger.WarnContext(ctx, "ranking cache write failed",
			slog.String("key", key),
			slog.Any("error", err),
		)

		return
	}

	if s.generation.Load() != gen {
		if err := s.cache.Delete(ctx, key); err != nil {
			s.logger.WarnContext(ctx, "failed to drop stale ranking entry",
				slog.String("key", key),
				slog.Any("error", err),
			)
		}
	}
}

func optional(quote *domain.LikedQuote, err error) (*domain.LikedQuote, error) {
	if domain.IsNotFound(err) {
		return nil, nil
	}

	return quote, err
}
