package service

import (
	"context"
	"fmt"
	"time"

	"GameSync/internal/config"
	"GameSync/internal/interfaces"
	"GameSync/internal/model"
	"GameSync/internal/repository"

	"github.com/sirupsen/logrus"
)

const (
	defaultPriceBatchSize     = 200
	defaultPriceBatchInterval = 500 * time.Millisecond
	defaultPriceErrorBackoff  = 3 * time.Second
)

// PriceSyncService ITAD 身份解析与多商店价格对账
type PriceSyncService struct {
	store     *repository.Store
	collector interfaces.PriceCollector
	cfg       config.ITADSyncConfig
	logger    *logrus.Logger
	sleep     sleepFunc
}

func NewPriceSyncService(store *repository.Store, collector interfaces.PriceCollector, cfg config.ITADSyncConfig, logger *logrus.Logger) *PriceSyncService {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultPriceBatchSize
	}
	if cfg.BatchInterval <= 0 {
		cfg.BatchInterval = defaultPriceBatchInterval
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = defaultPriceErrorBackoff
	}
	return &PriceSyncService{
		store:     store,
		collector: collector,
		cfg:       cfg,
		logger:    logger,
	}
}

// PriceBatchResult 单批对账统计
type PriceBatchResult struct {
	Created   int
	Updated   int
	Unchanged int
}

// SyncMissingIDs 为有 Steam 上架但未关联 ITAD 的游戏解析 ITAD id，直到某批一个都没解析出来
func (s *PriceSyncService) SyncMissingIDs(ctx context.Context) {
	runJob(ctx, s.logger, "itad_resolve", func(ctx context.Context, log *logrus.Entry) error {
		sleep := orSleep(s.sleep)
		var (
			afterID  uint64
			resolved int
		)
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			refs, err := s.store.Games().ListMissingItadID(ctx, afterID, s.cfg.BatchSize)
			if err != nil {
				return fmt.Errorf("查询未关联ITAD的游戏失败: %w", err)
			}
			if len(refs) == 0 {
				break
			}
			afterID = refs[len(refs)-1].GameID

			n, err := s.resolveBatch(ctx, refs)
			if err != nil {
				log.WithError(err).WithField("after_id", afterID).Warn("ITAD id解析失败，退避后继续")
				if err := sleep(ctx, s.cfg.ErrorBackoff); err != nil {
					return err
				}
				continue
			}
			if n < 0 {
				log.WithField("after_id", afterID).Info("本批无可解析的ITAD id，结束")
				break
			}
			resolved += n
			if err := sleep(ctx, s.cfg.BatchInterval); err != nil {
				return err
			}
		}
		log.WithField("resolved", resolved).Info("ITAD id解析结束")
		return nil
	})
}

// resolveBatch 上游返回空映射时返回 -1
func (s *PriceSyncService) resolveBatch(ctx context.Context, refs []repository.GameRef) (int, error) {
	appIDs := make([]string, 0, len(refs))
	for _, r := range refs {
		appIDs = append(appIDs, r.AppID)
	}
	mapping, err := s.collector.ResolveIDs(ctx, appIDs)
	if err != nil {
		return 0, fmt.Errorf("调用ITAD查询接口失败: %w", err)
	}
	if len(mapping) == 0 {
		return -1, nil
	}

	assigned := 0
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		ids := make([]uint64, 0, len(refs))
		for _, r := range refs {
			ids = append(ids, r.GameID)
		}
		games, err := tx.Games().GetByIDs(ctx, ids)
		if err != nil {
			return fmt.Errorf("查询游戏失败: %w", err)
		}
		byID := make(map[uint64]*model.Game, len(games))
		for _, g := range games {
			byID[g.ID] = g
		}
		for _, r := range refs {
			itadID, ok := mapping[r.AppID]
			g := byID[r.GameID]
			if !ok || g == nil || !g.AssignItadID(itadID) {
				continue
			}
			if err := tx.Games().UpdateItadID(ctx, g); err != nil {
				return fmt.Errorf("写入ITAD id失败(game_id=%d): %w", g.ID, err)
			}
			assigned++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return assigned, nil
}

// SyncPrices 按 id 顺序遍历已关联 ITAD 的游戏，每批一个事务对账价格
func (s *PriceSyncService) SyncPrices(ctx context.Context) {
	runJob(ctx, s.logger, "itad_prices", func(ctx context.Context, log *logrus.Entry) error {
		sleep := orSleep(s.sleep)
		var (
			afterID uint64
			total   PriceBatchResult
		)
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			games, err := s.store.Games().ListWithItadID(ctx, afterID, s.cfg.BatchSize)
			if err != nil {
				return fmt.Errorf("查询已关联ITAD的游戏失败: %w", err)
			}
			if len(games) == 0 {
				break
			}
			afterID = games[len(games)-1].ID

			res, err := s.ReconcileBatch(ctx, games)
			if err != nil {
				log.WithError(err).WithField("after_id", afterID).Warn("价格对账失败，退避后继续下一批")
				if err := sleep(ctx, s.cfg.ErrorBackoff); err != nil {
					return err
				}
				continue
			}
			total.Created += res.Created
			total.Updated += res.Updated
			total.Unchanged += res.Unchanged
			if err := sleep(ctx, s.cfg.BatchInterval); err != nil {
				return err
			}
		}
		log.WithFields(logrus.Fields{
			"created":   total.Created,
			"updated":   total.Updated,
			"unchanged": total.Unchanged,
		}).Info("价格对账结束")
		return nil
	})
}

// ReconcileBatch 拉取一批游戏的报价并落库；与库中值完全相同的行不发写操作
func (s *PriceSyncService) ReconcileBatch(ctx context.Context, games []*model.Game) (PriceBatchResult, error) {
	var res PriceBatchResult
	byItad := make(map[string]*model.Game, len(games))
	itadIDs := make([]string, 0, len(games))
	gameIDs := make([]uint64, 0, len(games))
	for _, g := range games {
		if g.ItadID == nil {
			continue
		}
		byItad[*g.ItadID] = g
		itadIDs = append(itadIDs, *g.ItadID)
		gameIDs = append(gameIDs, g.ID)
	}
	if len(itadIDs) == 0 {
		return res, nil
	}

	prices, err := s.collector.FetchPrices(ctx, itadIDs)
	if err != nil {
		return res, fmt.Errorf("拉取ITAD价格失败: %w", err)
	}

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		existing, err := tx.StoreDetails().FindByGameIDs(ctx, gameIDs)
		if err != nil {
			return fmt.Errorf("查询上架信息失败: %w", err)
		}
		rows := make(map[string]*model.StoreDetail, len(existing))
		for _, d := range existing {
			key := detailKey(d.GameID, d.StoreName)
			if _, ok := rows[key]; !ok {
				rows[key] = d
			}
		}

		for _, gp := range prices {
			g := byItad[gp.ID]
			if g == nil {
				continue
			}
			for _, deal := range gp.Deals {
				q, ok := deal.Quote()
				if !ok {
					continue
				}
				key := detailKey(g.ID, q.Store)
				row, found := rows[key]
				if !found {
					row = &model.StoreDetail{GameID: g.ID, StoreName: q.Store}
				}
				if !row.ApplyQuote(q) {
					res.Unchanged++
					continue
				}
				if !found {
					if err := tx.StoreDetails().Create(ctx, row); err != nil {
						return fmt.Errorf("新建上架信息失败(game_id=%d,store=%s): %w", g.ID, q.Store, err)
					}
					rows[key] = row
					res.Created++
					continue
				}
				if err := tx.StoreDetails().Save(ctx, row); err != nil {
					return fmt.Errorf("更新价格失败(game_id=%d,store=%s): %w", g.ID, q.Store, err)
				}
				res.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return PriceBatchResult{}, err
	}
	return res, nil
}

func detailKey(gameID uint64, store model.StoreName) string {
	return fmt.Sprintf("%d|%s", gameID, store)
}
