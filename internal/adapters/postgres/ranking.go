package postgres

import (
	"context"
	"log/slog"

	"github.com/jsamuelsen/quotes-service/internal/domain"
	"github.com/jsamuelsen/quotes-service/internal/platform/telemetry"
)

// Both rankings order by likes, then by recency, so ties go to the newer quote.
const (
	topWeeklySQL = `SELECT ` + quoteColumns + ` FROM quotes
		WHERE created_at >= NOW() - INTERVAL '7 days'
		ORDER BY likes_count DESC, created_at DESC
		LIMIT 1`

	topAllTimeSQL = `SELECT ` + quoteColumns + ` FROM quotes
		ORDER BY likes_count DESC, created_at DESC
		LIMIT 1`
)

// RankingRepository implements ports.RankingRepository.
type RankingRepository struct {
	db     DB
	logger *slog.Logger
}

// NewRankingRepository creates a ranking reader on db.
func NewRankingRepository(db DB, logger *slog.Logger) *RankingRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &RankingRepository{db: db, logger: logger}
}

// TopWeekly returns the most liked quote created in the last seven days.
func (r *RankingRepository) TopWeekly(ctx context.Context) (*domain.Quote, error) {
	return r.top(ctx, "top_weekly", topWeeklySQL)
}

// TopAllTime returns the most liked quote overall.
func (r *RankingRepository) TopAllTime(ctx context.Context) (*domain.Quote, error) {
	return r.top(ctx, "top_alltime", topAllTimeSQL)
}

func (r *RankingRepository) top(ctx context.Context, operation, sql string) (_ *domain.Quote, err error) {
	ctx, span := telemetry.StartDBSpan(ctx, operation, "quotes")
	defer func() { telemetry.EndSpan(span, err) }()

	quote, err := scanQuote(r.db.QueryRow(ctx, sql))
	if err != nil {
		return nil, notFoundOr(err, "", "selecting "+operation)
	}

	return quote, nil
}
