package app

import (
	"context"
	"log/slog"

	"github.com/jsamuelsen/quotes-service/internal/domain"
	"github.com/jsamuelsen/quotes-service/internal/platform/metrics"
	"github.com/jsamuelsen/quotes-service/internal/ports"
)

// Import limits.
const (
	DefaultImportLimit = 5
	MaxImportLimit     = 50
)

// ImportService seeds the catalog from an upstream quote provider.
type ImportService struct {
	source  ports.QuoteSource
	quotes  *QuoteService
	metrics *metrics.Recorder
	logger  *slog.Logger
}

// ImportServiceConfig contains configuration for the import service.
type ImportServiceConfig struct {
	Source  ports.QuoteSource
	Quotes  *QuoteService
	Metrics *metrics.Recorder
	Logger  *slog.Logger
}

// NewImportService creates an import service. Panics if Source or Quotes is nil.
func NewImportService(cfg ImportServiceConfig) *ImportService {
	if cfg.Source == nil {
		panic("ImportService: Source is required")
	}

	if cfg.Quotes == nil {
		panic("ImportService: Quotes is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &ImportService{
		source:  cfg.Source,
		quotes:  cfg.Quotes,
		metrics: cfg.Metrics,
		logger:  logger,
	}
}

// Import fetches up to limit quotes and stores each through the regular
// create path. Upstream entries that fail validation are skipped.
func (s *ImportService) Import(ctx context.Context, limit int) ([]domain.Quote, error) {
	switch {
	case limit < 1:
		limit = DefaultImportLimit
	case limit > MaxImportLimit:
		limit = MaxImportLimit
	}

	inputs, err := s.source.RandomQuotes(ctx, limit)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to fetch upstream quotes", slog.Any("error", err))
		return nil, err
	}

	created := make([]domain.Quote, 0, len(inputs))

	for _, in := range inputs {
		quote, err := s.quotes.Create(ctx, in)
		if err != nil {
			if domain.IsValidation(err) {
				s.logger.WarnContext(ctx, "skipping invalid upstream quote", slog.Any("error", err))
				continue
			}

			s.metrics.Imported(len(created))
			s.logger.ErrorContext(ctx, "import stopped early",
				slog.Int("requested", limit),
				slog.Int("created", len(created)),
				slog.Any("error", err),
			)

			return created, err
		}

		created = append(created, quote.Quote)
	}

	s.metrics.Imported(len(created))

	s.logger.InfoContext(ctx, "quotes imported",
		slog.Int("requested", limit),
		slog.Int("created", len(created)),
	)

	return created, nil
}
