package repository

import (
	"context"

	"GameSync/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReviewRepository 评论汇总与采样评论仓储
type ReviewRepository interface {
	// ListGamesWithoutStats 有 Steam 上架但还没有评论汇总的游戏
	ListGamesWithoutStats(ctx context.Context, limit int) ([]GameRef, error)
	// ListGamesByStatStaleness 按评论汇总更新时间升序（无汇总的排最前）
	ListGamesByStatStaleness(ctx context.Context, limit int) ([]GameRef, error)
	UpsertStat(ctx context.Context, stat *model.ReviewStat) error
	// InsertIfAbsent 按 (game_id, recommendation_id) 去重插入，返回实际插入条数
	InsertIfAbsent(ctx context.Context, reviews []*model.Review) (int64, error)
}

type reviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) steamGames(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("games").
		Select("games.id AS game_id, store_details.store_app_id AS app_id").
		Joins("JOIN store_details ON store_details.game_id = games.id AND store_details.store_name = ?", model.StoreSteam).
		Joins("LEFT JOIN review_stats ON review_stats.game_id = games.id").
		Where("store_details.store_app_id IS NOT NULL")
}

func (r *reviewRepository) ListGamesWithoutStats(ctx context.Context, limit int) ([]GameRef, error) {
	var refs []GameRef
	err := r.steamGames(ctx).
		Where("review_stats.game_id IS NULL").
		Order("games.id ASC").
		Limit(limit).
		Scan(&refs).Error
	if err != nil {
		return nil, err
	}
	return refs, nil
}

func (r *reviewRepository) ListGamesByStatStaleness(ctx context.Context, limit int) ([]GameRef, error) {
	var refs []GameRef
	err := r.steamGames(ctx).
		Order("review_stats.updated_at ASC NULLS FIRST").
		Order("games.id ASC").
		Limit(limit).
		Scan(&refs).Error
	if err != nil {
		return nil, err
	}
	return refs, nil
}

func (r *reviewRepository) UpsertStat(ctx context.Context, stat *model.ReviewStat) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "game_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"review_score", "review_score_desc", "total_review", "total_positive", "total_negative", "updated_at",
		}),
	}).Create(stat).Error
}

func (r *reviewRepository) InsertIfAbsent(ctx context.Context, reviews []*model.Review) (int64, error) {
	if len(reviews) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "game_id"}, {Name: "recommendation_id"}},
		DoNothing: true,
	}).CreateInBatches(reviews, 100)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
