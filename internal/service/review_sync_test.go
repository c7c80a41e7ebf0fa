package service

import (
	"context"
	"fmt"
	"testing"

	"GameSync/internal/config"
	"GameSync/internal/model"
	"GameSync/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateAdaptiveTarget(t *testing.T) {
	tests := []struct {
		name  string
		stats model.SteamReviewStats
		want  ReviewTarget
	}{
		{"below minimum", model.SteamReviewStats{TotalReviews: 9, TotalPositive: 9}, ReviewTarget{}},
		{"small takes all", model.SteamReviewStats{TotalReviews: 50, TotalPositive: 25}, ReviewTarget{Total: 50, Positive: 25, Negative: 25}},
		{"medium", model.SteamReviewStats{TotalReviews: 500, TotalPositive: 450}, ReviewTarget{Total: 200, Positive: 180, Negative: 20}},
		{"large", model.SteamReviewStats{TotalReviews: 5000, TotalPositive: 5000}, ReviewTarget{Total: 500, Positive: 500}},
		{"floor positive", model.SteamReviewStats{TotalReviews: 3000, TotalPositive: 1001}, ReviewTarget{Total: 500, Positive: 166, Negative: 334}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculateAdaptiveTarget(tt.stats))
		})
	}
}

func reviews(prefix string, n, votes int) []model.SteamReview {
	out := make([]model.SteamReview, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, model.SteamReview{
			RecommendationID:  fmt.Sprintf("%s-%d", prefix, i),
			VotesUp:           votes,
			VotedUp:           prefix == "pos",
			WeightedVoteScore: decimal.RequireFromString("0.523456"),
			TimestampCreated:  1700000000,
		})
	}
	return out
}

func newReviewService(t *testing.T, front *fakeStorefront, minVotes int) *ReviewSyncService {
	t.Helper()
	store, _ := newStore(t)
	svc := NewReviewSyncService(store, front, config.ReviewSyncConfig{ThreadPoolSize: 4, MinVotesUp: minVotes}, quietLogger())
	svc.sleep = noSleep
	return svc
}

func countReviews(t *testing.T, store *repository.Store, gameID uint64, votedUp bool) int64 {
	t.Helper()
	var n int64
	require.NoError(t, store.DB().Model(&model.Review{}).Where("game_id = ? AND voted_up = ?", gameID, votedUp).Count(&n).Error)
	return n
}

func TestReviewSync_CollectsQuotaPerPolarity(t *testing.T) {
	ctx := context.Background()
	front := newFakeStorefront()
	svc := newReviewService(t, front, 1)
	g := seedSteamGame(t, svc.store, "10", "A")

	front.stats["10"] = &model.SteamReviewStats{ReviewScore: 8, ReviewScoreDesc: "Very Positive", TotalReviews: 500, TotalPositive: 450, TotalNegative: 50}
	pos := reviews("pos", 100, 2)
	pos[0].VotesUp = 0
	front.pages[reviewPageKey{"10", model.ReviewPositive, "*"}] = reviewPage{reviews: pos, next: "p2"}
	front.pages[reviewPageKey{"10", model.ReviewPositive, "p2"}] = reviewPage{reviews: reviews("pos2", 100, 2), next: "p3"}
	front.pages[reviewPageKey{"10", model.ReviewNegative, "*"}] = reviewPage{reviews: reviews("neg", 15, 2), next: "n2"}
	// 游标重复：停止
	front.pages[reviewPageKey{"10", model.ReviewNegative, "n2"}] = reviewPage{reviews: reviews("neg2", 15, 2), next: "*"}

	res := svc.ProcessBatch(ctx, []repository.GameRef{{GameID: g.ID, AppID: "10"}})
	assert.Equal(t, ReviewBatchResult{Succeeded: 1}, res)

	assert.Equal(t, int64(180), countReviews(t, svc.store, g.ID, true))
	assert.Equal(t, int64(20), countReviews(t, svc.store, g.ID, false))
	assert.Equal(t, 2, front.pageCalls[model.ReviewPositive])
	assert.Equal(t, 2, front.pageCalls[model.ReviewNegative])

	var stat model.ReviewStat
	require.NoError(t, svc.store.DB().First(&stat, "game_id = ?", g.ID).Error)
	assert.Equal(t, 500, stat.TotalReview)
	assert.Equal(t, "Very Positive", stat.ReviewScoreDesc)

	var r model.Review
	require.NoError(t, svc.store.DB().Where("recommendation_id = ?", "pos-1").First(&r).Error)
	assert.Equal(t, "0.52", r.WeightedVoteScore.StringFixed(2))
}

func TestReviewSync_SmallPopulationStoresStatsOnly(t *testing.T) {
	ctx := context.Background()
	front := newFakeStorefront()
	svc := newReviewService(t, front, 0)
	g := seedSteamGame(t, svc.store, "10", "A")
	front.stats["10"] = &model.SteamReviewStats{TotalReviews: 5, TotalPositive: 5}

	svc.ProcessBatch(ctx, []repository.GameRef{{GameID: g.ID, AppID: "10"}})

	assert.Zero(t, front.pageCalls[model.ReviewPositive]+front.pageCalls[model.ReviewNegative])
	var n int64
	require.NoError(t, svc.store.DB().Model(&model.ReviewStat{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestReviewSync_DuplicateReviewsPersistOnce(t *testing.T) {
	ctx := context.Background()
	front := newFakeStorefront()
	svc := newReviewService(t, front, 0)
	g := seedSteamGame(t, svc.store, "10", "A")
	front.stats["10"] = &model.SteamReviewStats{TotalReviews: 20, TotalPositive: 20}
	dup := reviews("pos", 1, 0)
	front.pages[reviewPageKey{"10", model.ReviewPositive, "*"}] = reviewPage{reviews: append(dup, dup...), next: ""}

	ref := []repository.GameRef{{GameID: g.ID, AppID: "10"}}
	svc.ProcessBatch(ctx, ref)
	svc.ProcessBatch(ctx, ref)

	assert.Equal(t, int64(1), countReviews(t, svc.store, g.ID, true))
	var stats int64
	require.NoError(t, svc.store.DB().Model(&model.ReviewStat{}).Count(&stats).Error)
	assert.Equal(t, int64(1), stats)
}

func TestReviewSync_PageErrorKeepsGatheredReviews(t *testing.T) {
	ctx := context.Background()
	front := newFakeStorefront()
	svc := newReviewService(t, front, 0)
	g := seedSteamGame(t, svc.store, "10", "A")
	front.stats["10"] = &model.SteamReviewStats{TotalReviews: 5000, TotalPositive: 5000}
	front.pages[reviewPageKey{"10", model.ReviewPositive, "*"}] = reviewPage{reviews: reviews("pos", 100, 0), next: "p2"}

	erroring := &pageErrorStorefront{fakeStorefront: front, failCursor: "p2"}
	svc.collector = erroring
	svc.ProcessBatch(ctx, []repository.GameRef{{GameID: g.ID, AppID: "10"}})

	assert.Equal(t, int64(100), countReviews(t, svc.store, g.ID, true))
}

type pageErrorStorefront struct {
	*fakeStorefront
	failCursor string
}

func (p *pageErrorStorefront) FetchReviewPage(ctx context.Context, appID, cursor string, polarity model.ReviewPolarity, size int) ([]model.SteamReview, string, error) {
	if cursor == p.failCursor {
		return nil, "", errUpstream
	}
	return p.fakeStorefront.FetchReviewPage(ctx, appID, cursor, polarity, size)
}

type panicStorefront struct {
	*fakeStorefront
	panicApp string
}

func (p *panicStorefront) FetchReviewStats(ctx context.Context, appID string) (*model.SteamReviewStats, error) {
	if appID == p.panicApp {
		panic("boom")
	}
	return p.fakeStorefront.FetchReviewStats(ctx, appID)
}

func TestReviewSync_FailureIsIsolatedWithinBatch(t *testing.T) {
	ctx := context.Background()
	front := newFakeStorefront()
	svc := newReviewService(t, front, 0)
	var refs []repository.GameRef
	for i := 1; i <= 6; i++ {
		app := fmt.Sprint(i)
		g := seedSteamGame(t, svc.store, app, "G"+app)
		refs = append(refs, repository.GameRef{GameID: g.ID, AppID: app})
		front.stats[app] = &model.SteamReviewStats{TotalReviews: 3}
	}
	front.statsErr["2"] = errUpstream
	svc.collector = &panicStorefront{fakeStorefront: front, panicApp: "5"}

	res := svc.ProcessBatch(ctx, refs)

	assert.Equal(t, ReviewBatchResult{Succeeded: 4, Failed: 2}, res)
	var n int64
	require.NoError(t, svc.store.DB().Model(&model.ReviewStat{}).Count(&n).Error)
	assert.Equal(t, int64(4), n)
}

func TestReviewSync_InitAllReviewsStopsWhenRoundMakesNoProgress(t *testing.T) {
	ctx := context.Background()
	front := newFakeStorefront()
	svc := newReviewService(t, front, 0)
	svc.cfg.InitBatchSize = 2
	for i := 1; i <= 5; i++ {
		app := fmt.Sprint(i)
		seedSteamGame(t, svc.store, app, "G"+app)
		front.stats[app] = &model.SteamReviewStats{TotalReviews: 1}
	}
	front.statsErr["5"] = errUpstream

	svc.InitAllReviews(ctx)

	var n int64
	require.NoError(t, svc.store.DB().Model(&model.ReviewStat{}).Count(&n).Error)
	assert.Equal(t, int64(4), n)
}

func TestReviewSync_SyncReviewsRefreshesStalestFirst(t *testing.T) {
	ctx := context.Background()
	front := newFakeStorefront()
	svc := newReviewService(t, front, 0)
	svc.cfg.MaintenanceBatchSize = 1
	a := seedSteamGame(t, svc.store, "1", "A")
	b := seedSteamGame(t, svc.store, "2", "B")
	require.NoError(t, svc.store.Reviews().UpsertStat(ctx, &model.ReviewStat{GameID: a.ID, TotalReview: 1}))
	front.stats["2"] = &model.SteamReviewStats{TotalReviews: 7}

	svc.SyncReviews(ctx)

	var stat model.ReviewStat
	require.NoError(t, svc.store.DB().First(&stat, "game_id = ?", b.ID).Error)
	assert.Equal(t, 7, stat.TotalReview)
}
