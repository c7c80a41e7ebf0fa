package repository

import (
	"context"
	"time"

	"GameSync/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DashboardRepository 榜单仓储（只追加）
type DashboardRepository interface {
	ExistsByTypeAndReferenceAt(ctx context.Context, t model.CurationType, referenceAt time.Time) (bool, error)
	CreateBatch(ctx context.Context, rows []*model.Dashboard) error
	// FindLatest 指定类型最新一期（reference_at 最大）的榜单，按名次升序，带出 Game
	FindLatest(ctx context.Context, t model.CurationType) ([]*model.Dashboard, error)
}

type dashboardRepository struct {
	db *gorm.DB
}

func NewDashboardRepository(db *gorm.DB) DashboardRepository {
	return &dashboardRepository{db: db}
}

func (r *dashboardRepository) ExistsByTypeAndReferenceAt(ctx context.Context, t model.CurationType, referenceAt time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Dashboard{}).
		Where("curation_type = ? AND reference_at = ?", t, referenceAt.UTC()).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *dashboardRepository) CreateBatch(ctx context.Context, rows []*model.Dashboard) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).CreateInBatches(rows, 200).Error
}

func (r *dashboardRepository) FindLatest(ctx context.Context, t model.CurationType) ([]*model.Dashboard, error) {
	var rows []*model.Dashboard
	latest := r.db.Model(&model.Dashboard{}).
		Select("MAX(reference_at)").
		Where("curation_type = ?", t)
	err := r.db.WithContext(ctx).
		Preload("Game").
		Where("curation_type = ? AND reference_at = (?)", t, latest).
		Order("rank ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
