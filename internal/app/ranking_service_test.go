package app

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotes-service/internal/domain"
	"github.com/jsamuelsen/quotes-service/internal/mocks"
)

const rankingTTL = 30 * time.Second

type rankingFixture struct {
	ranking *mocks.MockRankingRepository
	likes   *mocks.MockLikeLedger
	cache   *mocks.MockCache
	svc     *RankingService
}

func newRankingFixture(t *testing.T, withCache bool) *rankingFixture {
	t.Helper()

	f := &rankingFixture{
		ranking: mocks.NewMockRankingRepository(t),
		likes:   mocks.NewMockLikeLedger(t),
	}

	cfg := RankingServiceConfig{
		Ranking: f.ranking,
		Likes:   f.likes,
		TTL:     rankingTTL,
		Logger:  discardLogger(),
	}

	if withCache {
		f.cache = mocks.NewMockCache(t)
		cfg.Cache = f.cache
	}

	f.svc = NewRankingService(cfg)

	return f
}

func TestRankingService_TopAllTime_CacheMissStores(t *testing.T) {
	f := newRankingFixture(t, true)
	quote := sampleQuote("q-1")
	quote.LikesCount = 4
	raw, err := json.Marshal(quote)
	require.NoError(t, err)

	f.cache.On("Get", mock.Anything, TopAllTimeKey).Return(nil, domain.NewNotFoundError("cache", TopAllTimeKey))
	f.ranking.On("TopAllTime", mock.Anything).Return(quote, nil).Once()
	f.cache.On("Set", mock.Anything, TopAllTimeKey, raw, rankingTTL).Return(nil)
	f.likes.On("IsLiked", mock.Anything, "q-1", visitor.ID).Return(true, nil)

	got, err := f.svc.TopAllTime(context.Background(), visitor)

	require.NoError(t, err)
	assert.Equal(t, int64(4), got.LikesCount)
	assert.True(t, got.IsLiked)
}

func TestRankingService_TopWeekly_CacheHitSkipsRepository(t *testing.T) {
	f := newRankingFixture(t, true)
	raw, err := json.Marshal(sampleQuote("q-2"))
	require.NoError(t, err)

	f.cache.On("Get", mock.Anything, TopWeeklyKey).Return(raw, nil)
	f.likes.On("IsLiked", mock.Anything, "q-2", visitor.ID).Return(false, nil)

	got, err := f.svc.TopWeekly(context.Background(), visitor)

	require.NoError(t, err)
	assert.Equal(t, "q-2", got.ID)
	assert.True(t, got.CreatedAt.Equal(fixedNow))
	f.ranking.AssertNotCalled(t, "TopWeekly", mock.Anything)
}

func TestRankingService_CacheFailureFallsThrough(t *testing.T) {
	f := newRankingFixture(t, true)

	f.cache.On("Get", mock.Anything, TopWeeklyKey).Return(nil, errors.New("redis down"))
	f.ranking.On("TopWeekly", mock.Anything).Return(sampleQuote("q-3"), nil)
	f.cache.On("Set", mock.Anything, TopWeeklyKey, mock.Anything, rankingTTL).Return(errors.New("redis down"))
	f.likes.On("IsLiked", mock.Anything, "q-3", visitor.ID).Return(false, nil)

	got, err := f.svc.TopWeekly(context.Background(), visitor)

	require.NoError(t, err)
	assert.Equal(t, "q-3", got.ID)
}

func TestRankingService_EmptyWindowNotCached(t *testing.T) {
	f := newRankingFixture(t, true)

	f.cache.On("Get", mock.Anything, TopWeeklyKey).Return(nil, domain.NewNotFoundError("cache", TopWeeklyKey))
	f.ranking.On("TopWeekly", mock.Anything).Return(nil, domain.NewNotFoundError("quote", ""))

	_, err := f.svc.TopWeekly(context.Background(), visitor)

	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
	f.cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRankingService_NoCache(t *testing.T) {
	f := newRankingFixture(t, false)

	f.ranking.On("TopAllTime", mock.Anything).Return(sampleQuote("q-1"), nil).Twice()
	f.likes.On("IsLiked", mock.Anything, "q-1", visitor.ID).Return(false, nil)

	for range 2 {
		_, err := f.svc.TopAllTime(context.Background(), visitor)
		require.NoError(t, err)
	}

	assert.NotPanics(t, func() { f.svc.Invalidate(context.Background()) })
}

func TestRankingService_Top(t *testing.T) {
	tests := []struct {
		name        string
		weeklyErr   error
		allTimeErr  error
		wantWeekly  bool
		wantAllTime bool
		wantErr     bool
	}{
		{name: "both present", wantWeekly: true, wantAllTime: true},
		{
			name:        "weekly window empty",
			weeklyErr:   domain.NewNotFoundError("quote", ""),
			wantAllTime: true,
		},
		{
			name:       "storage failure",
			allTimeErr: errors.New("boom"),
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRankingFixture(t, false)

			var weekly *domain.Quote
			if tt.weeklyErr == nil {
				weekly = sampleQuote("w")
			}

			var allTime *domain.Quote
			if tt.allTimeErr == nil {
				allTime = sampleQuote("a")
			}

			f.ranking.On("TopWeekly", mock.Anything).Return(weekly, tt.weeklyErr)
			f.ranking.On("TopAllTime", mock.Anything).Return(allTime, tt.allTimeErr)
			f.likes.On("IsLiked", mock.Anything, mock.Anything, visitor.ID).Return(false, nil).Maybe()

			got, err := f.svc.Top(context.Background(), visitor)

			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantWeekly, got.Weekly != nil)
			assert.Equal(t, tt.wantAllTime, got.AllTime != nil)
		})
	}
}

func TestRankingService_Invalidate(t *testing.T) {
	f := newRankingFixture(t, true)
	f.cache.On("Delete", mock.Anything, TopWeeklyKey, TopAllTimeKey).Return(errors.New("ignored")).Once()

	f.svc.Invalidate(context.Background())
}

func TestRankingService_InvalidationDuringLoadSkipsStore(t *testing.T) {
	f := newRankingFixture(t, true)

	f.cache.On("Get", mock.Anything, TopAllTimeKey).Return(nil, domain.NewNotFoundError("cache", TopAllTimeKey))
	f.cache.On("Delete", mock.Anything, TopWeeklyKey, TopAllTimeKey).Return(nil).Once()
	f.ranking.On("TopAllTime", mock.Anything).
		Run(func(args mock.Arguments) {
			// A like commits while the winner is being read.
			f.svc.Invalidate(args.Get(0).(context.Context))
		}).
		Return(sampleQuote("q-1"), nil).Once()
	f.likes.On("IsLiked", mock.Anything, "q-1", visitor.ID).Return(false, nil)

	got, err := f.svc.TopAllTime(context.Background(), visitor)

	require.NoError(t, err)
	assert.Equal(t, "q-1", got.ID)
	f.cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRankingService_InvalidationAfterCheckDropsEntry(t *testing.T) {
	f := newRankingFixture(t, true)
	quote := sampleQuote("q-1")
	raw, err := json.Marshal(quote)
	require.NoError(t, err)

	f.cache.On("Get", mock.Anything, TopAllTimeKey).Return(nil, domain.NewNotFoundError("cache", TopAllTimeKey))
	f.ranking.On("TopAllTime", mock.Anything).Return(quote, nil).Once()
	f.cache.On("Delete", mock.Anything, TopWeeklyKey, TopAllTimeKey).Return(nil).Once()
	f.cache.On("Set", mock.Anything, TopAllTimeKey, raw, rankingTTL).
		Run(func(args mock.Arguments) {
			f.svc.Invalidate(args.Get(0).(context.Context))
		}).
		Return(nil).Once()
	f.cache.On("Delete", mock.Anything, TopAllTimeKey).Return(nil).Once()
	f.likes.On("IsLiked", mock.Anything, "q-1", visitor.ID).Return(false, nil)

	_, err = f.svc.TopAllTime(context.Background(), visitor)

	require.NoError(t, err)
}
