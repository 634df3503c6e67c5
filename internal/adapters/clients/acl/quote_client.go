package acl

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jsamuelsen/quotes-service/internal/adapters/clients"
	"github.com/jsamuelsen/quotes-service/internal/domain"
	"github.com/jsamuelsen/quotes-service/internal/platform/logging"
	"github.com/jsamuelsen/quotes-service/internal/ports"
)

const randomPath = "/quotes/random"

var (
	_ ports.QuoteSource     = (*QuoteClient)(nil)
	_ ports.OptionalChecker = (*QuoteClient)(nil)
)

// QuoteClientConfig configures a QuoteClient.
type QuoteClientConfig struct {
	// Client must point at the quotable API base URL.
	Client *clients.Client
	Logger *slog.Logger
}

// QuoteClient is the ports.QuoteSource backed by quotable.io.
type QuoteClient struct {
	upstream

	logger *slog.Logger
}

// NewQuoteClient panics without a Client.
func NewQuoteClient(cfg QuoteClientConfig) *QuoteClient {
	if cfg.Client == nil {
		panic("QuoteClient: Client is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &QuoteClient{
		upstream: upstream{client: cfg.Client, name: "quotable"},
		logger:   logger,
	}
}

// quotableQuote is the upstream DTO. Never exposed outside the ACL.
type quotableQuote struct {
	ID      string   `json:"_id"`
	Content string   `json:"content"`
	Author  string   `json:"author"`
	Tags    []string `json:"tags"`
}

// RandomQuotes fetches up to limit random quotes and translates the ones
// that carry both text and author.
func (c *QuoteClient) RandomQuotes(ctx context.Context, limit int) ([]domain.NewQuoteInput, error) {
	c.logger.Log(ctx, logging.LevelTrace, "starting request",
		slog.String("path", randomPath),
		slog.Int("limit", limit))

	query := url.Values{"limit": {strconv.Itoa(limit)}}

	body, err := c.fetch(ctx, randomPath, query, "fetch random quotes")
	if err != nil {
		return nil, err
	}

	external, err := decodeJSON[[]quotableQuote](body)
	if err != nil {
		return nil, domain.NewUnavailableError(c.name, err.Error())
	}

	inputs := translateAll(external, translateQuote, func(i int, err error) {
		c.logger.WarnContext(ctx, "dropping upstream quote",
			slog.String("upstream_id", external[i].ID),
			slog.Any("error", err))
	})

	c.logger.DebugContext(ctx, "fetched upstream quotes",
		slog.Int("received", len(external)),
		slog.Int("accepted", len(inputs)))

	return inputs, nil
}

// translateQuote converts the upstream DTO into a create request.
func translateQuote(ext *quotableQuote) (domain.NewQuoteInput, error) {
	in := domain.NewQuoteInput{Text: ext.Content, Author: ext.Author}

	if err := cmp.Or(required(in.Text, "content"), required(in.Author, "author")); err != nil {
		return domain.NewQuoteInput{}, err
	}

	return in, nil
}

// Name identifies the upstream in health reports.
func (c *QuoteClient) Name() string {
	return "quote-upstream"
}

// Optional marks the upstream as non-critical: the catalog serves without it.
func (c *QuoteClient) Optional() bool {
	return true
}

// Check asks for one random quote and expects a 200.
func (c *QuoteClient) Check(ctx context.Context) error {
	resp, err := c.client.Get(ctx, randomPath, url.Values{"limit": {"1"}})
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("quote API returned status %d", resp.StatusCode)
	}

	return nil
}
