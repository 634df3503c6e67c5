package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jsamuelsen/quotes-service/internal/domain"
	"github.com/jsamuelsen/quotes-service/internal/platform/telemetry"
)

const quoteColumns = `id, text, author, likes_count, created_at, updated_at`

// likeEscaper escapes LIKE metacharacters so search is a literal substring match.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// QuoteRepository implements ports.QuoteRepository.
type QuoteRepository struct {
	db     DB
	logger *slog.Logger
}

// NewQuoteRepository creates a repository on db.
func NewQuoteRepository(db DB, logger *slog.Logger) *QuoteRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &QuoteRepository{db: db, logger: logger}
}

// Random picks a row offset uniformly in [0, count) inside one read-only
// snapshot, so the count and the pick see the same set.
func (r *QuoteRepository) Random(ctx context.Context) (_ *domain.Quote, err error) {
	ctx, span := telemetry.StartDBSpan(ctx, "random", "quotes")
	defer func() { telemetry.EndSpan(span, err) }()

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("beginning random transaction: %w", err)
	}
	defer rollback(ctx, tx, r.logger)

	var count int64
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM quotes`).Scan(&count); err != nil {
		return nil, fmt.Errorf("counting quotes: %w", err)
	}

	if count == 0 {
		return nil, domain.NewNotFoundError("quote", "")
	}

	offset := rand.Int64N(count) //nolint:gosec // selection, not security

	quote, err := scanQuote(tx.QueryRow(ctx,
		`SELECT `+quoteColumns+` FROM quotes ORDER BY id OFFSET $1 LIMIT 1`, offset))
	if err != nil {
		return nil, notFoundOr(err, "", "selecting random quote")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing random transaction: %w", err)
	}

	return quote, nil
}

// GetByID returns the quote or domain.ErrNotFound.
func (r *QuoteRepository) GetByID(ctx context.Context, id string) (_ *domain.Quote, err error) {
	ctx, span := telemetry.StartDBSpan(ctx, "select", "quotes")
	defer func() { telemetry.EndSpan(span, err) }()

	quote, err := scanQuote(r.db.QueryRow(ctx,
		`SELECT `+quoteColumns+` FROM quotes WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundOr(err, id, "selecting quote")
	}

	return quote, nil
}

// List returns one page, newest first. The id tiebreak keeps pages disjoint
// when several quotes share a creation time.
func (r *QuoteRepository) List(ctx context.Context, query domain.ListQuery) (_ []domain.Quote, _ int64, err error) {
	ctx, span := telemetry.StartDBSpan(ctx, "list", "quotes")
	defer func() { telemetry.EndSpan(span, err) }()

	var (
		where string
		args  []any
	)

	if query.Search != "" {
		where = ` WHERE text ILIKE $1 OR author ILIKE $1`
		args = append(args, "%"+likeEscaper.Replace(query.Search)+"%")
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM quotes`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting quotes: %w", err)
	}

	if total == 0 {
		return []domain.Quote{}, 0, nil
	}

	n := len(args)
	sql := fmt.Sprintf(`SELECT %s FROM quotes%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		quoteColumns, where, n+1, n+2)
	args = append(args, query.PageSize, query.Offset())

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing quotes: %w", err)
	}
	defer rows.Close()

	quotes := make([]domain.Quote, 0, query.PageSize)

	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning quote: %w", err)
		}

		quotes = append(quotes, *q)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating quotes: %w", err)
	}

	return quotes, total, nil
}

// Create inserts quote as given.
func (r *QuoteRepository) Create(ctx context.Context, quote *domain.Quote) (err error) {
	ctx, span := telemetry.StartDBSpan(ctx, "insert", "quotes")
	defer func() { telemetry.EndSpan(span, err) }()

	_, err = r.db.Exec(ctx,
		`INSERT INTO quotes (`+quoteColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		quote.ID, quote.Text, quote.Author, quote.LikesCount, quote.CreatedAt, quote.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting quote: %w", err)
	}

	return nil
}

// Update patches the row in a single statement, so a concurrent delete is
// reported as not found instead of being lost.
func (r *QuoteRepository) Update(
	ctx context.Context, id string, patch domain.QuoteUpdate, now time.Time,
) (_ *domain.Quote, err error) {
	ctx, span := telemetry.StartDBSpan(ctx, "update", "quotes")
	defer func() { telemetry.EndSpan(span, err) }()

	quote, err := scanQuote(r.db.QueryRow(ctx,
		`UPDATE quotes
		    SET text = COALESCE($2, text),
		        author = COALESCE($3, author),
		        updated_at = $4
		  WHERE id = $1
		RETURNING `+quoteColumns,
		id, patch.Text, patch.Author, now))
	if err != nil {
		return nil, notFoundOr(err, id, "updating quote")
	}

	return quote, nil
}

// Delete removes the quote. Its likes go with it through ON DELETE CASCADE.
func (r *QuoteRepository) Delete(ctx context.Context, id string) (_ bool, err error) {
	ctx, span := telemetry.StartDBSpan(ctx, "delete", "quotes")
	defer func() { telemetry.EndSpan(span, err) }()

	tag, err := r.db.Exec(ctx, `DELETE FROM quotes WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("deleting quote: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

func scanQuote(row scanner) (*domain.Quote, error) {
	var q domain.Quote
	if err := row.Scan(&q.ID, &q.Text, &q.Author, &q.LikesCount, &q.CreatedAt, &q.UpdatedAt); err != nil {
		return nil, err
	}

	q.CreatedAt = q.CreatedAt.UTC()
	q.UpdatedAt = q.UpdatedAt.UTC()

	return &q, nil
}

// notFoundOr maps pgx.ErrNoRows to a domain not found error and wraps anything else.
func notFoundOr(err error, id, action string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NewNotFoundError("quote", id)
	}

	return fmt.Errorf("%s: %w", action, err)
}
