package repository

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"GameSync/internal/model"
	"GameSync/internal/testdb"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedSteam(t *testing.T, s *Store, appID int64, title string) *model.Game {
	t.Helper()
	ctx := context.Background()
	g := &model.Game{Title: title}
	require.NoError(t, s.Games().Create(ctx, g))
	id := strconv.FormatInt(appID, 10)
	require.NoError(t, s.StoreDetails().Create(ctx, &model.StoreDetail{GameID: g.ID, StoreName: model.StoreSteam, StoreAppID: &id}))
	return g
}

func TestTransaction_RollsBackOnErrorAndPanic(t *testing.T) {
	s := NewStore(testdb.New(t))
	ctx := context.Background()

	err := s.Transaction(ctx, func(tx *Store) error {
		require.NoError(t, tx.Games().Create(ctx, &model.Game{Title: "rolled back"}))
		return errors.New("boom")
	})
	require.Error(t, err)

	err = s.Transaction(ctx, func(tx *Store) error {
		require.NoError(t, tx.Games().Create(ctx, &model.Game{Title: "panicked"}))
		panic("bad row")
	})
	require.ErrorContains(t, err, "bad row")

	var count int64
	require.NoError(t, s.DB().Model(&model.Game{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestGameRepository_CursorsAndItadKeyset(t *testing.T) {
	s := NewStore(testdb.New(t))
	ctx := context.Background()

	maxID, err := s.Games().MaxIgdbID(ctx)
	require.NoError(t, err)
	assert.Zero(t, maxID)
	latest, err := s.Games().MaxIgdbUpdatedAt(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	a := seedSteam(t, s, 10, "Counter-Strike")
	b := seedSteam(t, s, 20, "Team Fortress Classic")
	seedSteam(t, s, 30, "Day of Defeat")

	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	a.AssignIgdbID(241)
	a.IgdbUpdatedAt = &ts
	require.NoError(t, s.Games().Save(ctx, a))

	maxID, err = s.Games().MaxIgdbID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(241), maxID)
	latest, err = s.Games().MaxIgdbUpdatedAt(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, ts.Equal(*latest))

	b.AssignItadID("itad-b")
	require.NoError(t, s.Games().UpdateItadID(ctx, b))

	missing, err := s.Games().ListMissingItadID(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, missing, 2)
	assert.Equal(t, GameRef{GameID: a.ID, AppID: "10"}, missing[0])

	missing, err = s.Games().ListMissingItadID(ctx, a.ID, 10)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, "30", missing[0].AppID)

	withItad, err := s.Games().ListWithItadID(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, withItad, 1)
	assert.Equal(t, b.ID, withItad[0].ID)
}

func TestGameRepository_UpdateItadIDIsWriteOnce(t *testing.T) {
	s := NewStore(testdb.New(t))
	ctx := context.Background()
	g := seedSteam(t, s, 70, "Half-Life")
	first, second := "first", "second"

	require.NoError(t, s.Games().UpdateItadID(ctx, &model.Game{ID: g.ID, ItadID: &first}))
	require.NoError(t, s.Games().UpdateItadID(ctx, &model.Game{ID: g.ID, ItadID: &second}))

	got, err := s.Games().GetByIDs(ctx, []uint64{g.ID})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "first", *got[0].ItadID)
}

func TestStoreDetailRepository_SteamLookups(t *testing.T) {
	s := NewStore(testdb.New(t))
	ctx := context.Background()
	g := seedSteam(t, s, 570, "Dota 2")
	seedSteam(t, s, 730, "Counter-Strike 2")

	ids, err := s.StoreDetails().SteamGameIDsByAppIDs(ctx, []string{"570", "999"})
	require.NoError(t, err)
	assert.Equal(t, map[string]uint64{"570": g.ID}, ids)

	set, err := s.StoreDetails().SteamAppIDSet(ctx)
	require.NoError(t, err)
	assert.Len(t, set, 2)

	rows, err := s.StoreDetails().FindSteamByAppIDs(ctx, []string{"570"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].Game)
	assert.Equal(t, "Dota 2", rows[0].Game.Title)
}

func TestReviewRepository_StatsAndDedup(t *testing.T) {
	s := NewStore(testdb.New(t))
	ctx := context.Background()
	a := seedSteam(t, s, 10, "A")
	b := seedSteam(t, s, 20, "B")

	refs, err := s.Reviews().ListGamesWithoutStats(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, refs, 2)

	require.NoError(t, s.Reviews().UpsertStat(ctx, &model.ReviewStat{GameID: a.ID, TotalReview: 5}))
	require.NoError(t, s.Reviews().UpsertStat(ctx, &model.ReviewStat{GameID: a.ID, TotalReview: 7}))

	refs, err = s.Reviews().ListGamesWithoutStats(ctx, 10)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, b.ID, refs[0].GameID)

	refs, err = s.Reviews().ListGamesByStatStaleness(ctx, 10)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, b.ID, refs[0].GameID)

	var stat model.ReviewStat
	require.NoError(t, s.DB().First(&stat, "game_id = ?", a.ID).Error)
	assert.Equal(t, 7, stat.TotalReview)

	reviews := []*model.Review{
		{GameID: a.ID, RecommendationID: "r1", WeightedVoteScore: decimal.RequireFromString("0.52")},
		{GameID: a.ID, RecommendationID: "r2"},
	}
	n, err := s.Reviews().InsertIfAbsent(ctx, reviews)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = s.Reviews().InsertIfAbsent(ctx, []*model.Review{{GameID: a.ID, RecommendationID: "r1"}, {GameID: a.ID, RecommendationID: "r3"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSatelliteRepository_ReplaceSet(t *testing.T) {
	s := NewStore(testdb.New(t))
	ctx := context.Background()
	a := seedSteam(t, s, 10, "A")
	b := seedSteam(t, s, 20, "B")

	require.NoError(t, s.Satellites().ReplaceScreenshots(ctx, []uint64{a.ID, b.ID}, []*model.Screenshot{
		{GameID: a.ID, ImageID: "a1"}, {GameID: a.ID, ImageID: "a2"}, {GameID: b.ID, ImageID: "b1"},
	}))
	require.NoError(t, s.Satellites().ReplaceScreenshots(ctx, []uint64{a.ID}, []*model.Screenshot{
		{GameID: a.ID, ImageID: "a3"},
	}))

	var shots []model.Screenshot
	require.NoError(t, s.DB().Order("image_id").Find(&shots).Error)
	require.Len(t, shots, 2)
	assert.Equal(t, "a3", shots[0].ImageID)
	assert.Equal(t, "b1", shots[1].ImageID)

	require.NoError(t, s.Satellites().CreateCompanies(ctx, []*model.Company{{Name: "Valve"}}))
	require.NoError(t, s.Satellites().CreateCompanies(ctx, []*model.Company{{Name: "Valve"}, {Name: "Gearbox"}}))
	companies, err := s.Satellites().FindCompaniesByNames(ctx, []string{"Valve", "Gearbox", "Unknown"})
	require.NoError(t, err)
	assert.Len(t, companies, 2)
}

func TestDashboardRepository_LatestSnapshot(t *testing.T) {
	s := NewStore(testdb.New(t))
	ctx := context.Background()
	a := seedSteam(t, s, 10, "A")
	b := seedSteam(t, s, 20, "B")
	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cur := old.Add(time.Hour)

	require.NoError(t, s.Dashboards().CreateBatch(ctx, []*model.Dashboard{
		{GameID: a.ID, CurationType: model.CurationMostPlayed, Rank: 1, ReferenceAt: old},
		{GameID: b.ID, CurationType: model.CurationMostPlayed, Rank: 2, ReferenceAt: cur},
		{GameID: a.ID, CurationType: model.CurationMostPlayed, Rank: 1, ReferenceAt: cur},
	}))

	exists, err := s.Dashboards().ExistsByTypeAndReferenceAt(ctx, model.CurationMostPlayed, cur)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = s.Dashboards().ExistsByTypeAndReferenceAt(ctx, model.CurationConcurrentPlayer, cur)
	require.NoError(t, err)
	assert.False(t, exists)

	rows, err := s.Dashboards().FindLatest(ctx, model.CurationMostPlayed)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, "A", rows[0].Game.Title)
	assert.Equal(t, "B", rows[1].Game.Title)
}
