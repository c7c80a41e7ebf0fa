package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"GameSync/internal/config"
	"GameSync/internal/interfaces"
	"GameSync/internal/model"
	"GameSync/internal/repository"

	"github.com/sirupsen/logrus"
)

const (
	defaultAppListPageSize = 10000
	defaultStoreHost       = "store.steampowered.com"
)

// AppSyncService Steam 应用列表同步：为新出现的 appid 建游戏与 Steam 上架行
type AppSyncService struct {
	store     *repository.Store
	collector interfaces.StorefrontCollector
	cfg       config.SteamSyncConfig
	logger    *logrus.Logger
}

func NewAppSyncService(store *repository.Store, collector interfaces.StorefrontCollector, cfg config.SteamSyncConfig, logger *logrus.Logger) *AppSyncService {
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultAppListPageSize
	}
	if isBlank(cfg.StoreHost) {
		cfg.StoreHost = defaultStoreHost
	}
	return &AppSyncService{
		store:     store,
		collector: collector,
		cfg:       cfg,
		logger:    logger,
	}
}

// SyncAppList 按 last_appid 翻页，直到上游不再有更多结果
func (s *AppSyncService) SyncAppList(ctx context.Context) {
	runJob(ctx, s.logger, "steam_app_list", func(ctx context.Context, log *logrus.Entry) error {
		known, err := s.store.StoreDetails().SteamAppIDSet(ctx)
		if err != nil {
			return fmt.Errorf("加载已有appid失败: %w", err)
		}

		var (
			lastAppID int64
			pages     int
			created   int
		)
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			page, err := s.collector.ListApps(ctx, lastAppID, s.cfg.PageSize)
			if err != nil {
				return fmt.Errorf("拉取Steam应用列表失败(last_appid=%d): %w", lastAppID, err)
			}
			pages++
			n, err := s.savePage(ctx, page.Apps, known)
			if err != nil {
				log.WithError(err).WithField("cursor", lastAppID).Error("应用列表单页入库失败，继续下一页")
			} else {
				created += n
			}
			if !page.HaveMoreResults || page.LastAppID <= lastAppID {
				break
			}
			lastAppID = page.LastAppID
		}
		log.WithFields(logrus.Fields{"pages": pages, "created": created}).Info("Steam应用列表同步结束")
		return nil
	})
}

func (s *AppSyncService) savePage(ctx context.Context, apps []model.SteamApp, known map[string]struct{}) (int, error) {
	var fresh []model.SteamApp
	pending := map[string]bool{}
	for _, app := range apps {
		id := strconv.FormatInt(app.AppID, 10)
		if app.AppID <= 0 || isBlank(app.Name) || pending[id] {
			continue
		}
		if _, ok := known[id]; ok {
			continue
		}
		pending[id] = true
		fresh = append(fresh, app)
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		for _, app := range fresh {
			g := &model.Game{Title: strings.TrimSpace(app.Name)}
			if err := tx.Games().Create(ctx, g); err != nil {
				return fmt.Errorf("新建游戏失败(app=%d): %w", app.AppID, err)
			}
			appID := strconv.FormatInt(app.AppID, 10)
			d := &model.StoreDetail{
				GameID:     g.ID,
				StoreName:  model.StoreSteam,
				StoreAppID: &appID,
				URL:        s.appURL(appID),
			}
			if err := tx.StoreDetails().Create(ctx, d); err != nil {
				return fmt.Errorf("新建Steam上架信息失败(app=%d): %w", app.AppID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	for id := range pending {
		known[id] = struct{}{}
	}
	return len(fresh), nil
}

func (s *AppSyncService) appURL(appID string) string {
	return fmt.Sprintf("https://%s/app/%s", s.cfg.StoreHost, appID)
}
