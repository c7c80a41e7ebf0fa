package service

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"GameSync/internal/config"
	"GameSync/internal/interfaces"
	"GameSync/internal/model"
	"GameSync/internal/repository"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	// 评论总数低于该值不做详情采样
	minTotalReviews = 10
	reviewPageSize  = 100
	firstCursor     = "*"

	defaultReviewPoolSize      = 8
	defaultInitBatchSize       = 200
	defaultMaintenanceBatch    = 500
	defaultReviewRoundInterval = 500 * time.Millisecond
)

// ReviewTarget 一个游戏的采样目标
type ReviewTarget struct {
	Total    int
	Positive int
	Negative int
}

// CalculateAdaptiveTarget 按评论总数决定采样量，并按好评占比拆分正负配额
func CalculateAdaptiveTarget(stats model.SteamReviewStats) ReviewTarget {
	total := stats.TotalReviews
	var target int
	switch {
	case total < minTotalReviews:
		return ReviewTarget{}
	case total < 100:
		target = total
	case total < 1000:
		target = 200
	default:
		target = 500
	}
	pos := int(math.Floor(float64(target) * stats.PositiveRatio()))
	if pos > target {
		pos = target
	}
	return ReviewTarget{Total: target, Positive: pos, Negative: target - pos}
}

// ReviewSyncService Steam 评论汇总与按配额采样
type ReviewSyncService struct {
	store     *repository.Store
	collector interfaces.StorefrontCollector
	cfg       config.ReviewSyncConfig
	logger    *logrus.Logger
	sleep     sleepFunc
}

func NewReviewSyncService(store *repository.Store, collector interfaces.StorefrontCollector, cfg config.ReviewSyncConfig, logger *logrus.Logger) *ReviewSyncService {
	if cfg.ThreadPoolSize <= 0 {
		cfg.ThreadPoolSize = defaultReviewPoolSize
	}
	if cfg.InitBatchSize <= 0 {
		cfg.InitBatchSize = defaultInitBatchSize
	}
	if cfg.MaintenanceBatchSize <= 0 {
		cfg.MaintenanceBatchSize = defaultMaintenanceBatch
	}
	if cfg.RoundInterval <= 0 {
		cfg.RoundInterval = defaultReviewRoundInterval
	}
	return &ReviewSyncService{
		store:     store,
		collector: collector,
		cfg:       cfg,
		logger:    logger,
	}
}

// ReviewBatchResult 一轮并行采样的统计
type ReviewBatchResult struct {
	Succeeded int
	Failed    int
}

// InitAllReviews 为尚无评论汇总的游戏逐轮采样，直到没有剩余或一整轮都没有落库
func (s *ReviewSyncService) InitAllReviews(ctx context.Context) {
	runJob(ctx, s.logger, "review_init", func(ctx context.Context, log *logrus.Entry) error {
		sleep := orSleep(s.sleep)
		round := 0
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			refs, err := s.store.Reviews().ListGamesWithoutStats(ctx, s.cfg.InitBatchSize)
			if err != nil {
				return fmt.Errorf("查询无评论汇总的游戏失败: %w", err)
			}
			if len(refs) == 0 {
				break
			}
			round++
			res := s.ProcessBatch(ctx, refs)
			log.WithFields(logrus.Fields{
				"round":     round,
				"size":      len(refs),
				"succeeded": res.Succeeded,
				"failed":    res.Failed,
			}).Info("评论初始化一轮完成")
			if res.Succeeded == 0 {
				return fmt.Errorf("第%d轮全部失败，停止初始化", round)
			}
			if err := sleep(ctx, s.cfg.RoundInterval); err != nil {
				return err
			}
		}
		return nil
	})
}

// SyncReviews 维护：取汇总最旧的一批游戏重新采样
func (s *ReviewSyncService) SyncReviews(ctx context.Context) {
	runJob(ctx, s.logger, "review_maintenance", func(ctx context.Context, log *logrus.Entry) error {
		refs, err := s.store.Reviews().ListGamesByStatStaleness(ctx, s.cfg.MaintenanceBatchSize)
		if err != nil {
			return fmt.Errorf("查询待维护评论的游戏失败: %w", err)
		}
		res := s.ProcessBatch(ctx, refs)
		log.WithFields(logrus.Fields{
			"size":      len(refs),
			"succeeded": res.Succeeded,
			"failed":    res.Failed,
		}).Info("评论维护完成")
		return nil
	})
}

// ProcessBatch 在有界协程池中并行处理一批游戏；单个游戏失败不影响其他游戏，Wait 为屏障
func (s *ReviewSyncService) ProcessBatch(ctx context.Context, refs []repository.GameRef) ReviewBatchResult {
	var ok, failed atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(s.cfg.ThreadPoolSize)
	for _, ref := range refs {
		g.Go(func() error {
			err := safeRun(func() error { return s.syncOne(ctx, ref) })
			if err != nil {
				failed.Add(1)
				s.logger.WithError(err).WithFields(logrus.Fields{
					"game_id": ref.GameID,
					"app_id":  ref.AppID,
				}).Warn("评论采样失败")
				return nil
			}
			ok.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	return ReviewBatchResult{Succeeded: int(ok.Load()), Failed: int(failed.Load())}
}

func (s *ReviewSyncService) syncOne(ctx context.Context, ref repository.GameRef) error {
	stats, err := s.collector.FetchReviewStats(ctx, ref.AppID)
	if err != nil {
		return fmt.Errorf("拉取评论汇总失败: %w", err)
	}

	var reviews []model.SteamReview
	target := CalculateAdaptiveTarget(*stats)
	if target.Total > 0 {
		log := s.logger.WithFields(logrus.Fields{"game_id": ref.GameID, "app_id": ref.AppID})
		reviews = append(reviews, s.collect(ctx, log, ref.AppID, model.ReviewPositive, target.Positive)...)
		reviews = append(reviews, s.collect(ctx, log, ref.AppID, model.ReviewNegative, target.Negative)...)
	}

	return s.store.Transaction(ctx, func(tx *repository.Store) error {
		stat := &model.ReviewStat{
			GameID:          ref.GameID,
			ReviewScore:     stats.ReviewScore,
			ReviewScoreDesc: stats.ReviewScoreDesc,
			TotalReview:     stats.TotalReviews,
			TotalPositive:   stats.TotalPositive,
			TotalNegative:   stats.TotalNegative,
			UpdatedAt:       time.Now(),
		}
		if err := tx.Reviews().UpsertStat(ctx, stat); err != nil {
			return fmt.Errorf("保存评论汇总失败: %w", err)
		}
		rows := toReviewRows(ref.GameID, reviews)
		if _, err := tx.Reviews().InsertIfAbsent(ctx, rows); err != nil {
			return fmt.Errorf("保存评论失败: %w", err)
		}
		return nil
	})
}

// collect 按倾向翻页收集评论，直到配额满、空页、cursor 为空或重复；出错时保留已收集的部分
func (s *ReviewSyncService) collect(ctx context.Context, log *logrus.Entry, appID string, polarity model.ReviewPolarity, quota int) []model.SteamReview {
	if quota <= 0 {
		return nil
	}
	var out []model.SteamReview
	cur := firstCursor
	seen := map[string]bool{}
	for len(out) < quota {
		if ctx.Err() != nil {
			break
		}
		seen[cur] = true
		page, next, err := s.collector.FetchReviewPage(ctx, appID, cur, polarity, reviewPageSize)
		if err != nil {
			log.WithError(err).WithFields(logrus.Fields{"polarity": polarity, "cursor": cur}).
				Warn("评论翻页失败，保留已收集部分")
			break
		}
		if len(page) == 0 {
			break
		}
		for _, r := range page {
			if r.VotesUp < s.cfg.MinVotesUp {
				continue
			}
			out = append(out, r)
			if len(out) >= quota {
				break
			}
		}
		if next == "" || seen[next] {
			break
		}
		cur = next
	}
	return out
}

func toReviewRows(gameID uint64, reviews []model.SteamReview) []*model.Review {
	rows := make([]*model.Review, 0, len(reviews))
	seen := make(map[string]bool, len(reviews))
	for _, r := range reviews {
		if isBlank(r.RecommendationID) || seen[r.RecommendationID] {
			continue
		}
		seen[r.RecommendationID] = true
		row := &model.Review{
			GameID:            gameID,
			RecommendationID:  r.RecommendationID,
			PlaytimeAtReview:  r.Author.PlaytimeAtReview,
			WeightedVoteScore: r.WeightedVoteScore.Round(2),
			ReviewText:        r.Review,
			VotesUp:           r.VotesUp,
			VotedUp:           r.VotedUp,
		}
		if r.TimestampCreated > 0 {
			t := time.Unix(r.TimestampCreated, 0).UTC()
			row.WrittenAt = &t
		}
		rows = append(rows, row)
	}
	return rows
}
