package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jsamuelsen/quotes-service/internal/domain"
	"github.com/jsamuelsen/quotes-service/internal/platform/telemetry"
)

// LikeLedger implements ports.LikeLedger.
type LikeLedger struct {
	db     DB
	logger *slog.Logger
}

// NewLikeLedger creates a ledger on db.
func NewLikeLedger(db DB, logger *slog.Logger) *LikeLedger {
	if logger == nil {
		logger = slog.Default()
	}

	return &LikeLedger{db: db, logger: logger}
}

// Like records one like and bumps the counter atomically.
//
// The pre-check locks an existing ledger row. When two first-time likes from
// the same visitor race, neither sees a row to lock; the second then blocks on
// the quote row and its insert hits the unique key. An insert that affects no
// rows rolls the transaction back, so the increment is undone and the counter
// never drifts from the ledger.
func (l *LikeLedger) Like(ctx context.Context, quoteID string, visitor domain.Visitor, now time.Time) (err error) {
	ctx, span := telemetry.StartDBSpan(ctx, "like", "likes")
	defer func() { telemetry.EndSpan(span, err) }()

	tx, err := l.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning like transaction: %w", err)
	}
	defer rollback(ctx, tx, l.logger)

	var existing string

	err = tx.QueryRow(ctx,
		`SELECT id FROM likes WHERE quote_id = $1 AND user_ip = $2 FOR UPDATE`,
		quoteID, visitor.ID).Scan(&existing)

	switch {
	case err == nil:
		return domain.NewAlreadyLikedError(quoteID, visitor.ID)
	case !errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("checking existing like: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE quotes SET likes_count = likes_count + 1, updated_at = $2 WHERE id = $1`,
		quoteID, now)
	if err != nil {
		return fmt.Errorf("incrementing likes: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("quote", quoteID)
	}

	tag, err = tx.Exec(ctx,
		`INSERT INTO likes (id, quote_id, user_ip, user_agent, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (quote_id, user_ip) DO NOTHING`,
		uuid.NewString(), quoteID, visitor.ID, nullableText(visitor.UserAgent), now)
	if err != nil {
		return fmt.Errorf("inserting like: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.NewAlreadyLikedError(quoteID, visitor.ID)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing like: %w", err)
	}

	return nil
}

// IsLiked reports whether a ledger entry exists for the pair.
func (l *LikeLedger) IsLiked(ctx context.Context, quoteID, visitorID string) (_ bool, err error) {
	ctx, span := telemetry.StartDBSpan(ctx, "exists", "likes")
	defer func() { telemetry.EndSpan(span, err) }()

	var liked bool

	err = l.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM likes WHERE quote_id = $1 AND user_ip = $2)`,
		quoteID, visitorID).Scan(&liked)
	if err != nil {
		return false, fmt.Errorf("checking like: %w", err)
	}

	return liked, nil
}

// AreLiked looks up every id in one query. Ids without a ledger entry map to false.
func (l *LikeLedger) AreLiked(ctx context.Context, quoteIDs []string, visitorID string) (_ map[string]bool, err error) {
	result := make(map[string]bool, len(quoteIDs))
	for _, id := range quoteIDs {
		result[id] = false
	}

	if len(quoteIDs) == 0 {
		return result, nil
	}

	ctx, span := telemetry.StartDBSpan(ctx, "exists_batch", "likes")
	defer func() { telemetry.EndSpan(span, err) }()

	rows, err := l.db.Query(ctx,
		`SELECT quote_id FROM likes WHERE user_ip = $1 AND quote_id = ANY($2)`,
		visitorID, quoteIDs)
	if err != nil {
		return nil, fmt.Errorf("batch checking likes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning liked id: %w", err)
		}

		result[id] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating liked ids: %w", err)
	}

	return result, nil
}

// ResetLikes zeroes every counter and clears the ledger in one transaction.
func (l *LikeLedger) ResetLikes(ctx context.Context, now time.Time) (_ int64, err error) {
	ctx, span := telemetry.StartDBSpan(ctx, "reset", "likes")
	defer func() { telemetry.EndSpan(span, err) }()

	tx, err := l.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning reset transaction: %w", err)
	}
	defer rollback(ctx, tx, l.logger)

	if _, err := tx.Exec(ctx, `UPDATE quotes SET likes_count = 0, updated_at = $1`, now); err != nil {
		return 0, fmt.Errorf("zeroing counters: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM likes`)
	if err != nil {
		return 0, fmt.Errorf("clearing ledger: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing reset: %w", err)
	}

	return tag.RowsAffected(), nil
}

func nullableText(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}
