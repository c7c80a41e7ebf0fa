package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"GameSync/internal/config"
	"GameSync/internal/cursor"
	"GameSync/internal/interfaces"
	"GameSync/internal/model"
	"GameSync/internal/repository"

	"github.com/sirupsen/logrus"
)

// DashboardSyncService Steam 榜单采集：周/月/年榜按期采集，实时榜按响应时间去重
type DashboardSyncService struct {
	store     *repository.Store
	collector interfaces.StorefrontCollector
	cache     *DashboardCacheService
	cfg       config.DashboardSyncConfig
	logger    *logrus.Logger
	sleep     sleepFunc
	now       func() time.Time
}

func NewDashboardSyncService(store *repository.Store, collector interfaces.StorefrontCollector, cache *DashboardCacheService, cfg config.DashboardSyncConfig, logger *logrus.Logger) *DashboardSyncService {
	return &DashboardSyncService{
		store:     store,
		collector: collector,
		cache:     cache,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

type periodSource struct {
	curation model.CurationType
	period   cursor.Period
	fetch    func(ctx context.Context, start time.Time) (*model.SteamRanking, error)
}

func (s *DashboardSyncService) sources() []periodSource {
	return []periodSource{
		{model.CurationWeeklyTopSeller, cursor.Week, s.collector.FetchWeeklyTopSellers},
		{model.CurationMonthlyTop, cursor.Month, s.collector.FetchMonthlyTop},
		{model.CurationYearlyTop, cursor.Year, s.collector.FetchYearlyTop},
	}
}

// InitHistorical 从最早采集日期起补齐周/月/年榜的所有历史期，已采集的期不再请求
func (s *DashboardSyncService) InitHistorical(ctx context.Context) {
	runJob(ctx, s.logger, "dashboard_init", func(ctx context.Context, log *logrus.Entry) error {
		from := s.cfg.MinCollectionTime()
		now := s.now()
		for _, src := range s.sources() {
			starts := cursor.Periods(src.period, from, now)
			res := s.periodWalker(src).Walk(ctx, starts)
			log.WithFields(logrus.Fields{
				"curation_type": src.curation,
				"periods":       len(starts),
				"collected":     res.Collected,
				"skipped":       res.Skipped,
				"failed":        res.Failed,
			}).Info("历史榜单补齐完成")
			if res.Err != nil {
				return res.Err
			}
		}
		return nil
	})
}

// SyncWeekly 采集上一个周二开始的周销量榜
func (s *DashboardSyncService) SyncWeekly(ctx context.Context) {
	s.syncPrevious(ctx, "dashboard_weekly", s.sources()[0])
}

// SyncMonthly 采集上个月的月度新品榜
func (s *DashboardSyncService) SyncMonthly(ctx context.Context) {
	s.syncPrevious(ctx, "dashboard_monthly", s.sources()[1])
}

// SyncYearly 采集去年的年度新品榜
func (s *DashboardSyncService) SyncYearly(ctx context.Context) {
	s.syncPrevious(ctx, "dashboard_yearly", s.sources()[2])
}

func (s *DashboardSyncService) syncPrevious(ctx context.Context, job string, src periodSource) {
	runJob(ctx, s.logger, job, func(ctx context.Context, log *logrus.Entry) error {
		start := cursor.Previous(src.period, s.now())
		res := s.periodWalker(src).Walk(ctx, []time.Time{start})
		log.WithFields(logrus.Fields{
			"period":    start.Format(time.DateOnly),
			"collected": res.Collected,
			"skipped":   res.Skipped,
		}).Info("榜单采集结束")
		if res.Err != nil {
			return res.Err
		}
		if res.Failed > 0 {
			return fmt.Errorf("%s 榜单采集失败(%s)", src.curation, start.Format(time.DateOnly))
		}
		return nil
	})
}

func (s *DashboardSyncService) periodWalker(src periodSource) *cursor.PeriodWalker {
	return &cursor.PeriodWalker{
		Name: string(src.curation),
		Exists: func(ctx context.Context, start time.Time) (bool, error) {
			return s.store.Dashboards().ExistsByTypeAndReferenceAt(ctx, src.curation, start)
		},
		Collect: func(ctx context.Context, start time.Time) error {
			ranking, err := src.fetch(ctx, start)
			if err != nil {
				return err
			}
			// 以期起点为准，保证查重键与写入键一致
			ranking.ReferenceAt = start
			_, err = s.Save(ctx, src.curation, ranking)
			return err
		},
		Interval: s.cfg.PeriodInterval,
		Logger:   s.logger,
		Sleep:    s.sleep,
	}
}

// SyncConcurrent 采集同时在线人数榜
func (s *DashboardSyncService) SyncConcurrent(ctx context.Context) {
	s.syncRealtime(ctx, "dashboard_concurrent", model.CurationConcurrentPlayer, s.collector.FetchConcurrentPlayers)
}

// SyncMostPlayed 采集最多游玩榜
func (s *DashboardSyncService) SyncMostPlayed(ctx context.Context) {
	s.syncRealtime(ctx, "dashboard_most_played", model.CurationMostPlayed, s.collector.FetchMostPlayed)
}

func (s *DashboardSyncService) syncRealtime(ctx context.Context, job string, t model.CurationType, fetch func(context.Context) (*model.SteamRanking, error)) {
	runJob(ctx, s.logger, job, func(ctx context.Context, log *logrus.Entry) error {
		ranking, err := fetch(ctx)
		if err != nil {
			return fmt.Errorf("拉取%s榜单失败: %w", t, err)
		}
		ref := ranking.ReferenceAt.UTC()
		exists, err := s.store.Dashboards().ExistsByTypeAndReferenceAt(ctx, t, ref)
		if err != nil {
			return fmt.Errorf("榜单查重失败: %w", err)
		}
		if exists {
			log.WithField("reference_at", ref).Info("该时间点榜单已存在，跳过")
			return nil
		}
		n, err := s.Save(ctx, t, ranking)
		if err != nil {
			return err
		}
		log.WithFields(logrus.Fields{"reference_at": ref, "rows": n}).Info("榜单写入完成")
		return nil
	})
}

// Save 把榜单映射到游戏并在一个事务中批量写入，成功后刷新缓存。未收录的 appid 跳过。
func (s *DashboardSyncService) Save(ctx context.Context, t model.CurationType, ranking *model.SteamRanking) (int, error) {
	appIDs := make([]string, 0, len(ranking.Entries))
	for _, e := range ranking.Entries {
		appIDs = append(appIDs, strconv.FormatInt(e.AppID, 10))
	}
	ref := ranking.ReferenceAt.UTC()

	var rows []*model.Dashboard
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		games, err := tx.StoreDetails().SteamGameIDsByAppIDs(ctx, appIDs)
		if err != nil {
			return fmt.Errorf("按appid查询游戏失败: %w", err)
		}
		for _, e := range ranking.Entries {
			gameID, ok := games[strconv.FormatInt(e.AppID, 10)]
			if !ok {
				continue
			}
			rows = append(rows, &model.Dashboard{
				GameID:       gameID,
				CurationType: t,
				Rank:         e.Rank,
				ReferenceAt:  ref,
			})
		}
		if err := tx.Dashboards().CreateBatch(ctx, rows); err != nil {
			return fmt.Errorf("写入榜单失败(%s): %w", t, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		s.logger.WithFields(logrus.Fields{"curation_type": t, "reference_at": ref}).Warn("榜单中没有已收录的游戏")
		return 0, nil
	}
	if _, err := s.cache.Refresh(ctx, t); err != nil {
		s.logger.WithError(err).WithField("curation_type", t).Warn("刷新榜单缓存失败")
	}
	return len(rows), nil
}
