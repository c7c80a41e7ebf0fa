package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"GameSync/internal/cache"
	"GameSync/internal/model"
	"GameSync/internal/repository"
	"GameSync/internal/testdb"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func noSleep(context.Context, time.Duration) error { return nil }

func newStore(t *testing.T) (*repository.Store, *gorm.DB) {
	t.Helper()
	db := testdb.New(t)
	return repository.NewStore(db), db
}

// seedSteamGame 建一个只有 Steam 上架行的游戏
func seedSteamGame(t *testing.T, store *repository.Store, appID, title string) *model.Game {
	t.Helper()
	ctx := context.Background()
	g := &model.Game{Title: title}
	require.NoError(t, store.Games().Create(ctx, g))
	id := appID
	require.NoError(t, store.StoreDetails().Create(ctx, &model.StoreDetail{
		GameID:     g.ID,
		StoreName:  model.StoreSteam,
		StoreAppID: &id,
		URL:        "https://store.steampowered.com/app/" + appID,
	}))
	return g
}

// writeCounter 统计 create/update/delete 回调次数
type writeCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func countWrites(t *testing.T, db *gorm.DB) *writeCounter {
	t.Helper()
	wc := &writeCounter{counts: map[string]int{}}
	hook := func(kind string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			wc.mu.Lock()
			wc.counts[kind+":"+tx.Statement.Table]++
			wc.mu.Unlock()
		}
	}
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:count_create", hook("create")))
	require.NoError(t, db.Callback().Update().Before("gorm:update").Register("test:count_update", hook("update")))
	require.NoError(t, db.Callback().Delete().Before("gorm:delete").Register("test:count_delete", hook("delete")))
	return wc
}

func (w *writeCounter) get(kind, table string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.counts[kind+":"+table]
}

func (w *writeCounter) reset() {
	w.mu.Lock()
	w.counts = map[string]int{}
	w.mu.Unlock()
}

var errUpstream = errors.New("upstream 503")

type fakeCatalog struct {
	mu         sync.Mutex
	summaries  []model.IgdbGameSummary
	details    map[int64]model.IgdbGameDetail
	detailErr  error
	detailCall int
}

func (f *fakeCatalog) FetchByIDAfter(_ context.Context, afterID int64, limit int) ([]model.IgdbGameSummary, error) {
	var out []model.IgdbGameSummary
	for _, s := range f.summaries {
		if s.ID > afterID && len(out) < limit {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeCatalog) FetchByUpdatedSince(_ context.Context, since int64, limit int) ([]model.IgdbGameSummary, error) {
	var out []model.IgdbGameSummary
	for _, s := range f.summaries {
		if s.UpdatedAt >= since && len(out) < limit {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeCatalog) FetchDetails(_ context.Context, ids []int64) ([]model.IgdbGameDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailCall++
	if f.detailErr != nil {
		return nil, f.detailErr
	}
	var out []model.IgdbGameDetail
	for _, id := range ids {
		if d, ok := f.details[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeCatalog) AccessToken(context.Context) (string, error) { return "token", nil }

type fakePrices struct {
	mapping     map[string]string
	prices      map[string][]model.ItadDeal
	resolveCall int
	priceCall   int
}

func (f *fakePrices) ResolveIDs(_ context.Context, appIDs []string) (map[string]string, error) {
	f.resolveCall++
	out := map[string]string{}
	for _, id := range appIDs {
		if v, ok := f.mapping[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

func (f *fakePrices) FetchPrices(_ context.Context, itadIDs []string) ([]model.ItadGamePrices, error) {
	f.priceCall++
	var out []model.ItadGamePrices
	for _, id := range itadIDs {
		if deals, ok := f.prices[id]; ok {
			out = append(out, model.ItadGamePrices{ID: id, Deals: deals})
		}
	}
	return out, nil
}

type reviewPageKey struct {
	appID    string
	polarity model.ReviewPolarity
	cursor   string
}

type reviewPage struct {
	reviews []model.SteamReview
	next    string
}

type fakeStorefront struct {
	mu sync.Mutex

	appPages []*model.SteamAppPage
	appErrAt int

	stats     map[string]*model.SteamReviewStats
	statsErr  map[string]error
	pages     map[reviewPageKey]reviewPage
	pageCalls map[model.ReviewPolarity]int

	rankings     map[string]*model.SteamRanking
	rankingCalls map[string]int
	rankingErr   error
}

func newFakeStorefront() *fakeStorefront {
	return &fakeStorefront{
		appErrAt:     -1,
		stats:        map[string]*model.SteamReviewStats{},
		statsErr:     map[string]error{},
		pages:        map[reviewPageKey]reviewPage{},
		pageCalls:    map[model.ReviewPolarity]int{},
		rankings:     map[string]*model.SteamRanking{},
		rankingCalls: map[string]int{},
	}
}

func (f *fakeStorefront) ListApps(_ context.Context, lastAppID int64, _ int) (*model.SteamAppPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.appPages {
		first := int64(0)
		if i > 0 {
			first = f.appPages[i-1].LastAppID
		}
		if first != lastAppID {
			continue
		}
		if i == f.appErrAt {
			return nil, errUpstream
		}
		return p, nil
	}
	return &model.SteamAppPage{}, nil
}

func (f *fakeStorefront) FetchReviewStats(_ context.Context, appID string) (*model.SteamReviewStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.statsErr[appID]; err != nil {
		return nil, err
	}
	if s, ok := f.stats[appID]; ok {
		cp := *s
		return &cp, nil
	}
	return &model.SteamReviewStats{}, nil
}

func (f *fakeStorefront) FetchReviewPage(_ context.Context, appID, cursor string, polarity model.ReviewPolarity, _ int) ([]model.SteamReview, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageCalls[polarity]++
	p, ok := f.pages[reviewPageKey{appID, polarity, cursor}]
	if !ok {
		return nil, "", nil
	}
	return p.reviews, p.next, nil
}

func (f *fakeStorefront) ranking(name string) (*model.SteamRanking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rankingCalls[name]++
	if f.rankingErr != nil {
		return nil, f.rankingErr
	}
	r, ok := f.rankings[name]
	if !ok {
		return &model.SteamRanking{}, nil
	}
	cp := *r
	cp.Entries = append([]model.RankEntry(nil), r.Entries...)
	return &cp, nil
}

func (f *fakeStorefront) FetchWeeklyTopSellers(_ context.Context, start time.Time) (*model.SteamRanking, error) {
	return f.ranking("weekly")
}

func (f *fakeStorefront) FetchMonthlyTop(_ context.Context, month time.Time) (*model.SteamRanking, error) {
	return f.ranking("monthly")
}

func (f *fakeStorefront) FetchYearlyTop(_ context.Context, year time.Time) (*model.SteamRanking, error) {
	return f.ranking("yearly")
}

func (f *fakeStorefront) FetchConcurrentPlayers(context.Context) (*model.SteamRanking, error) {
	return f.ranking("concurrent")
}

func (f *fakeStorefront) FetchMostPlayed(context.Context) (*model.SteamRanking, error) {
	return f.ranking("most_played")
}

func (f *fakeStorefront) calls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rankingCalls[name]
}

// failingCache 读写都失败的缓存
type failingCache struct{}

func (failingCache) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("redis down")
}

func (failingCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("redis down")
}

func (failingCache) Delete(context.Context, string) error { return errors.New("redis down") }

func newMemoryCache() *cache.MemoryCache { return cache.NewMemoryCache() }
