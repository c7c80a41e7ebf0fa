package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"GameSync/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GameRef 游戏与其 Steam appid
type GameRef struct {
	GameID uint64
	AppID  string
}

// GameRepository 游戏主表仓储
type GameRepository interface {
	Create(ctx context.Context, g *model.Game) error
	// Save 覆盖保存（不级联关联表）
	Save(ctx context.Context, g *model.Game) error
	GetByIDs(ctx context.Context, ids []uint64) ([]*model.Game, error)
	FindByIgdbIDs(ctx context.Context, igdbIDs []int64) ([]*model.Game, error)
	// MaxIgdbID 已关联的最大 IGDB id，没有时返回 0
	MaxIgdbID(ctx context.Context) (int64, error)
	// MaxIgdbUpdatedAt 已同步的最大 IGDB 修改时间，没有时返回 nil
	MaxIgdbUpdatedAt(ctx context.Context) (*time.Time, error)
	// ListMissingItadID 有 Steam 上架且未关联 ITAD 的游戏，按 id 升序从 afterID 之后取
	ListMissingItadID(ctx context.Context, afterID uint64, limit int) ([]GameRef, error)
	// ListWithItadID 已关联 ITAD 的游戏，按 id 升序从 afterID 之后取
	ListWithItadID(ctx context.Context, afterID uint64, limit int) ([]*model.Game, error)
	UpdateItadID(ctx context.Context, g *model.Game) error
}

type gameRepository struct {
	db *gorm.DB
}

func NewGameRepository(db *gorm.DB) GameRepository {
	return &gameRepository{db: db}
}

func (r *gameRepository) Create(ctx context.Context, g *model.Game) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(g).Error
}

func (r *gameRepository) Save(ctx context.Context, g *model.Game) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(g).Error
}

func (r *gameRepository) GetByIDs(ctx context.Context, ids []uint64) ([]*model.Game, error) {
	var games []*model.Game
	if len(ids) == 0 {
		return games, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&games).Error; err != nil {
		return nil, err
	}
	return games, nil
}

func (r *gameRepository) FindByIgdbIDs(ctx context.Context, igdbIDs []int64) ([]*model.Game, error) {
	var games []*model.Game
	if len(igdbIDs) == 0 {
		return games, nil
	}
	if err := r.db.WithContext(ctx).Where("igdb_id IN ?", igdbIDs).Find(&games).Error; err != nil {
		return nil, err
	}
	return games, nil
}

func (r *gameRepository) MaxIgdbID(ctx context.Context) (int64, error) {
	var maxID sql.NullInt64
	if err := r.db.WithContext(ctx).Model(&model.Game{}).Select("MAX(igdb_id)").Scan(&maxID).Error; err != nil {
		return 0, err
	}
	return maxID.Int64, nil
}

func (r *gameRepository) MaxIgdbUpdatedAt(ctx context.Context) (*time.Time, error) {
	var g model.Game
	err := r.db.WithContext(ctx).
		Where("igdb_updated_at IS NOT NULL").
		Order("igdb_updated_at DESC").
		Select("id", "igdb_updated_at").
		Take(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return g.IgdbUpdatedAt, nil
}

func (r *gameRepository) ListMissingItadID(ctx context.Context, afterID uint64, limit int) ([]GameRef, error) {
	var refs []GameRef
	err := r.db.WithContext(ctx).
		Table("games").
		Select("games.id AS game_id, store_details.store_app_id AS app_id").
		Joins("JOIN store_details ON store_details.game_id = games.id AND store_details.store_name = ?", model.StoreSteam).
		Where("games.itad_id IS NULL AND store_details.store_app_id IS NOT NULL AND games.id > ?", afterID).
		Order("games.id ASC").
		Limit(limit).
		Scan(&refs).Error
	if err != nil {
		return nil, err
	}
	return refs, nil
}

func (r *gameRepository) ListWithItadID(ctx context.Context, afterID uint64, limit int) ([]*model.Game, error) {
	var games []*model.Game
	err := r.db.WithContext(ctx).
		Where("itad_id IS NOT NULL AND id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&games).Error
	if err != nil {
		return nil, err
	}
	return games, nil
}

func (r *gameRepository) UpdateItadID(ctx context.Context, g *model.Game) error {
	return r.db.WithContext(ctx).Model(&model.Game{}).
		Where("id = ? AND itad_id IS NULL", g.ID).
		Update("itad_id", g.ItadID).Error
}
