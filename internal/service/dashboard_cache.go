package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"GameSync/internal/interfaces"
	"GameSync/internal/model"
	"GameSync/internal/repository"

	"github.com/sirupsen/logrus"
)

const (
	dashboardCachePrefix = "dashboard:"
	defaultDashboardTTL  = 30 * time.Minute
)

// DashboardCacheService 榜单读缓存：未命中时从库重建
type DashboardCacheService struct {
	store  *repository.Store
	cache  interfaces.Cache
	ttl    time.Duration
	logger *logrus.Logger
}

func NewDashboardCacheService(store *repository.Store, cache interfaces.Cache, ttl time.Duration, logger *logrus.Logger) *DashboardCacheService {
	if ttl <= 0 {
		ttl = defaultDashboardTTL
	}
	return &DashboardCacheService{store: store, cache: cache, ttl: ttl, logger: logger}
}

func dashboardKey(t model.CurationType) string {
	return dashboardCachePrefix + string(t)
}

// Get 先读缓存，未命中、读取失败或内容损坏时同步重建
func (s *DashboardCacheService) Get(ctx context.Context, t model.CurationType) ([]model.DashboardItem, error) {
	log := s.logger.WithField("curation_type", t)
	raw, err := s.cache.Get(ctx, dashboardKey(t))
	switch {
	case err == nil:
		var items []model.DashboardItem
		jerr := json.Unmarshal(raw, &items)
		if jerr == nil {
			return items, nil
		}
		log.WithError(jerr).Warn("榜单缓存内容损坏，按未命中处理")
	case errors.Is(err, interfaces.ErrCacheMiss):
	default:
		log.WithError(err).Warn("读取榜单缓存失败，按未命中处理")
	}
	return s.Refresh(ctx, t)
}

// Refresh 从库中读取最新一期榜单，投影为缓存条目并写回缓存；写缓存失败只记录日志
func (s *DashboardCacheService) Refresh(ctx context.Context, t model.CurationType) ([]model.DashboardItem, error) {
	rows, err := s.store.Dashboards().FindLatest(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("查询最新榜单失败(%s): %w", t, err)
	}

	gameIDs := make([]uint64, 0, len(rows))
	for _, r := range rows {
		gameIDs = append(gameIDs, r.GameID)
	}
	listings, err := s.store.StoreDetails().FindByGameIDsAndStore(ctx, gameIDs, model.StoreSteam)
	if err != nil {
		return nil, fmt.Errorf("查询Steam上架信息失败(%s): %w", t, err)
	}
	steam := make(map[uint64]*model.StoreDetail, len(listings))
	for _, d := range listings {
		if _, ok := steam[d.GameID]; !ok {
			steam[d.GameID] = d
		}
	}

	items := make([]model.DashboardItem, 0, len(rows))
	for _, r := range rows {
		item := model.DashboardItem{
			GameID:       r.GameID,
			CurationType: r.CurationType,
			Rank:         r.Rank,
			ReferenceAt:  r.ReferenceAt.UTC(),
		}
		if r.Game != nil {
			item.Title = r.Game.Title
			item.CoverID = r.Game.CoverID
		}
		if d := steam[r.GameID]; d != nil {
			item.OriginalPrice = d.OriginalPrice
			item.DiscountPrice = d.DiscountPrice
			item.DiscountRate = d.DiscountRate
		}
		items = append(items, item)
	}

	raw, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("序列化榜单失败(%s): %w", t, err)
	}
	if err := s.cache.Set(ctx, dashboardKey(t), raw, s.ttl); err != nil {
		s.logger.WithError(err).WithField("curation_type", t).Warn("写入榜单缓存失败")
	}
	return items, nil
}
