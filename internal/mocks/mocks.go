// Package mocks provides testify mocks for the ports interfaces.
// Each constructor registers AssertExpectations with t.Cleanup.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/jsamuelsen/quotes-service/internal/domain"
	"github.com/jsamuelsen/quotes-service/internal/ports"
)

var (
	_ ports.QuoteRepository   = (*MockQuoteRepository)(nil)
	_ ports.LikeLedger        = (*MockLikeLedger)(nil)
	_ ports.RankingRepository = (*MockRankingRepository)(nil)
	_ ports.QuoteSource       = (*MockQuoteSource)(nil)
	_ ports.Cache             = (*MockCache)(nil)
	_ ports.HealthRegistry    = (*MockHealthRegistry)(nil)
	_ ports.HealthChecker     = (*MockHealthChecker)(nil)
)

// T is the subset of testing.TB the constructors need.
type T interface {
	mock.TestingT
	Cleanup(func())
}

func quoteOrNil(v any) *domain.Quote {
	if v == nil {
		return nil
	}

	return v.(*domain.Quote)
}

// MockQuoteRepository mocks ports.QuoteRepository.
type MockQuoteRepository struct {
	mock.Mock
}

// NewMockQuoteRepository creates a mock that asserts its expectations on cleanup.
func NewMockQuoteRepository(t T) *MockQuoteRepository {
	m := &MockQuoteRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockQuoteRepository) Random(ctx context.Context) (*domain.Quote, error) {
	args := m.Called(ctx)
	return quoteOrNil(args.Get(0)), args.Error(1)
}

func (m *MockQuoteRepository) GetByID(ctx context.Context, id string) (*domain.Quote, error) {
	args := m.Called(ctx, id)
	return quoteOrNil(args.Get(0)), args.Error(1)
}

func (m *MockQuoteRepository) List(ctx context.Context, query domain.ListQuery) ([]domain.Quote, int64, error) {
	args := m.Called(ctx, query)

	var quotes []domain.Quote
	if v := args.Get(0); v != nil {
		quotes = v.([]domain.Quote)
	}

	return quotes, args.Get(1).(int64), args.Error(2)
}

func (m *MockQuoteRepository) Create(ctx context.Context, quote *domain.Quote) error {
	return m.Called(ctx, quote).Error(0)
}

func (m *MockQuoteRepository) Update(
	ctx context.Context,
	id string,
	patch domain.QuoteUpdate,
	now time.Time,
) (*domain.Quote, error) {
	args := m.Called(ctx, id, patch, now)
	return quoteOrNil(args.Get(0)), args.Error(1)
}

func (m *MockQuoteRepository) Delete(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// MockLikeLedger mocks ports.LikeLedger.
type MockLikeLedger struct {
	mock.Mock
}

// NewMockLikeLedger creates a mock that asserts its expectations on cleanup.
func NewMockLikeLedger(t T) *MockLikeLedger {
	m := &MockLikeLedger{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockLikeLedger) Like(ctx context.Context, quoteID string, visitor domain.Visitor, now time.Time) error {
	return m.Called(ctx, quoteID, visitor, now).Error(0)
}

func (m *MockLikeLedger) IsLiked(ctx context.Context, quoteID, visitorID string) (bool, error) {
	args := m.Called(ctx, quoteID, visitorID)
	return args.Bool(0), args.Error(1)
}

func (m *MockLikeLedger) AreLiked(ctx context.Context, quoteIDs []string, visitorID string) (map[string]bool, error) {
	args := m.Called(ctx, quoteIDs, visitorID)

	var liked map[string]bool
	if v := args.Get(0); v != nil {
		liked = v.(map[string]bool)
	}

	return liked, args.Error(1)
}

func (m *MockLikeLedger) ResetLikes(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// MockRankingRepository mocks ports.RankingRepository.
type MockRankingRepository struct {
	mock.Mock
}

// NewMockRankingRepository creates a mock that asserts its expectations on cleanup.
func NewMockRankingRepository(t T) *MockRankingRepository {
	m := &MockRankingRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockRankingRepository) TopWeekly(ctx context.Context) (*domain.Quote, error) {
	args := m.Called(ctx)
	return quoteOrNil(args.Get(0)), args.Error(1)
}

func (m *MockRankingRepository) TopAllTime(ctx context.Context) (*domain.Quote, error) {
	args := m.Called(ctx)
	return quoteOrNil(args.Get(0)), args.Error(1)
}

// MockQuoteSource mocks ports.QuoteSource.
type MockQuoteSource struct {
	mock.Mock
}

// NewMockQuoteSource creates a mock that asserts its expectations on cleanup.
func NewMockQuoteSource(t T) *MockQuoteSource {
	m := &MockQuoteSource{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockQuoteSource) RandomQuotes(ctx context.Context, limit int) ([]domain.NewQuoteInput, error) {
	args := m.Called(ctx, limit)

	var inputs []domain.NewQuoteInput
	if v := args.Get(0); v != nil {
		inputs = v.([]domain.NewQuoteInput)
	}

	return inputs, args.Error(1)
}

// MockCache mocks ports.Cache.
type MockCache struct {
	mock.Mock
}

// NewMockCache creates a mock that asserts its expectations on cleanup.
func NewMockCache(t T) *MockCache {
	m := &MockCache{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)

	var value []byte
	if v := args.Get(0); v != nil {
		value = v.([]byte)
	}

	return value, args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}

// Delete flattens keys so expectations read On("Delete", ctx, "a", "b").
func (m *MockCache) Delete(ctx context.Context, keys ...string) error {
	args := make([]any, 0, len(keys)+1)
	args = append(args, ctx)

	for _, k := range keys {
		args = append(args, k)
	}

	return m.Called(args...).Error(0)
}

// MockHealthRegistry mocks ports.HealthRegistry.
type MockHealthRegistry struct {
	mock.Mock
}

// NewMockHealthRegistry creates a mock that asserts its expectations on cleanup.
func NewMockHealthRegistry(t T) *MockHealthRegistry {
	m := &MockHealthRegistry{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockHealthRegistry) Register(checker ports.HealthChecker) error {
	return m.Called(checker).Error(0)
}

func (m *MockHealthRegistry) CheckAll(ctx context.Context) *ports.HealthResult {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.(*ports.HealthResult)
	}

	return nil
}

// MockHealthChecker mocks ports.HealthChecker.
type MockHealthChecker struct {
	mock.Mock
}

// NewMockHealthChecker creates a mock that asserts its expectations on cleanup.
func NewMockHealthChecker(t T) *MockHealthChecker {
	m := &MockHealthChecker{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockHealthChecker) Name() string {
	return m.Called().String(0)
}

func (m *MockHealthChecker) Check(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
