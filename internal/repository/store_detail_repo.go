package repository

import (
	"context"

	"GameSync/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StoreDetailRepository 商店上架信息仓储
type StoreDetailRepository interface {
	Create(ctx context.Context, d *model.StoreDetail) error
	Save(ctx context.Context, d *model.StoreDetail) error
	// FindSteamByAppIDs 按 Steam appid 查上架行，并带出 Game
	FindSteamByAppIDs(ctx context.Context, appIDs []string) ([]*model.StoreDetail, error)
	// SteamAppIDSet 所有已存在的 Steam appid
	SteamAppIDSet(ctx context.Context) (map[string]struct{}, error)
	// SteamGameIDsByAppIDs appid -> game_id，同一 appid 多行时取 id 最小的一行
	SteamGameIDsByAppIDs(ctx context.Context, appIDs []string) (map[string]uint64, error)
	FindByGameIDs(ctx context.Context, gameIDs []uint64) ([]*model.StoreDetail, error)
	FindByGameIDsAndStore(ctx context.Context, gameIDs []uint64, store model.StoreName) ([]*model.StoreDetail, error)
}

type storeDetailRepository struct {
	db *gorm.DB
}

func NewStoreDetailRepository(db *gorm.DB) StoreDetailRepository {
	return &storeDetailRepository{db: db}
}

func (r *storeDetailRepository) Create(ctx context.Context, d *model.StoreDetail) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(d).Error
}

func (r *storeDetailRepository) Save(ctx context.Context, d *model.StoreDetail) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(d).Error
}

func (r *storeDetailRepository) FindSteamByAppIDs(ctx context.Context, appIDs []string) ([]*model.StoreDetail, error) {
	var rows []*model.StoreDetail
	if len(appIDs) == 0 {
		return rows, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Game").
		Where("store_name = ? AND store_app_id IN ?", model.StoreSteam, appIDs).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *storeDetailRepository) SteamAppIDSet(ctx context.Context) (map[string]struct{}, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&model.StoreDetail{}).
		Where("store_name = ? AND store_app_id IS NOT NULL", model.StoreSteam).
		Pluck("store_app_id", &ids).Error
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

func (r *storeDetailRepository) SteamGameIDsByAppIDs(ctx context.Context, appIDs []string) (map[string]uint64, error) {
	out := make(map[string]uint64, len(appIDs))
	if len(appIDs) == 0 {
		return out, nil
	}
	var rows []*model.StoreDetail
	err := r.db.WithContext(ctx).
		Select("id", "game_id", "store_app_id").
		Where("store_name = ? AND store_app_id IN ?", model.StoreSteam, appIDs).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, d := range rows {
		if d.StoreAppID == nil {
			continue
		}
		if _, ok := out[*d.StoreAppID]; !ok {
			out[*d.StoreAppID] = d.GameID
		}
	}
	return out, nil
}

func (r *storeDetailRepository) FindByGameIDs(ctx context.Context, gameIDs []uint64) ([]*model.StoreDetail, error) {
	var rows []*model.StoreDetail
	if len(gameIDs) == 0 {
		return rows, nil
	}
	if err := r.db.WithContext(ctx).Where("game_id IN ?", gameIDs).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *storeDetailRepository) FindByGameIDsAndStore(ctx context.Context, gameIDs []uint64, store model.StoreName) ([]*model.StoreDetail, error) {
	var rows []*model.StoreDetail
	if len(gameIDs) == 0 {
		return rows, nil
	}
	err := r.db.WithContext(ctx).
		Where("game_id IN ? AND store_name = ?", gameIDs, store).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
