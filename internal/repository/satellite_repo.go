package repository

import (
	"context"
	"fmt"

	"GameSync/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SatelliteRepository 游戏附属数据（标签/公司/截图/语言）仓储
type SatelliteRepository interface {
	UpsertTags(ctx context.Context, tags []*model.Tag) error
	FindCompaniesByNames(ctx context.Context, names []string) ([]*model.Company, error)
	// CreateCompanies 按名称去重插入，已存在的忽略
	CreateCompanies(ctx context.Context, companies []*model.Company) error
	ReplaceGameCompanies(ctx context.Context, gameIDs []uint64, rows []*model.GameCompany) error
	ReplaceScreenshots(ctx context.Context, gameIDs []uint64, rows []*model.Screenshot) error
	ReplaceLanguageSupports(ctx context.Context, gameIDs []uint64, rows []*model.LanguageSupport) error
}

type satelliteRepository struct {
	db *gorm.DB
}

func NewSatelliteRepository(db *gorm.DB) SatelliteRepository {
	return &satelliteRepository{db: db}
}

func (r *satelliteRepository) UpsertTags(ctx context.Context, tags []*model.Tag) error {
	if len(tags) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "game_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"genres", "themes", "keywords", "updated_at"}),
	}).CreateInBatches(tags, 200).Error
}

func (r *satelliteRepository) FindCompaniesByNames(ctx context.Context, names []string) ([]*model.Company, error) {
	var companies []*model.Company
	if len(names) == 0 {
		return companies, nil
	}
	if err := r.db.WithContext(ctx).Where("name IN ?", names).Find(&companies).Error; err != nil {
		return nil, err
	}
	return companies, nil
}

func (r *satelliteRepository) CreateCompanies(ctx context.Context, companies []*model.Company) error {
	if len(companies) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).CreateInBatches(companies, 200).Error
}

func (r *satelliteRepository) ReplaceGameCompanies(ctx context.Context, gameIDs []uint64, rows []*model.GameCompany) error {
	return replaceSet(ctx, r.db, gameIDs, rows)
}

func (r *satelliteRepository) ReplaceScreenshots(ctx context.Context, gameIDs []uint64, rows []*model.Screenshot) error {
	return replaceSet(ctx, r.db, gameIDs, rows)
}

func (r *satelliteRepository) ReplaceLanguageSupports(ctx context.Context, gameIDs []uint64, rows []*model.LanguageSupport) error {
	return replaceSet(ctx, r.db, gameIDs, rows)
}

// replaceSet 先按 game_id 删除再批量插入，需在事务内调用
func replaceSet[T any](ctx context.Context, db *gorm.DB, gameIDs []uint64, rows []*T) error {
	if len(gameIDs) == 0 {
		return nil
	}
	if err := db.WithContext(ctx).Where("game_id IN ?", gameIDs).Delete(new(T)).Error; err != nil {
		return fmt.Errorf("删除旧数据失败: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}
	if err := db.WithContext(ctx).CreateInBatches(rows, 500).Error; err != nil {
		return fmt.Errorf("插入新数据失败: %w", err)
	}
	return nil
}
