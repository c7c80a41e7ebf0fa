package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Store 聚合各仓储，Transaction 内返回绑定到同一事务的 Store
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) Games() GameRepository               { return NewGameRepository(s.db) }
func (s *Store) StoreDetails() StoreDetailRepository { return NewStoreDetailRepository(s.db) }
func (s *Store) Dashboards() DashboardRepository     { return NewDashboardRepository(s.db) }
func (s *Store) Reviews() ReviewRepository           { return NewReviewRepository(s.db) }
func (s *Store) Satellites() SatelliteRepository     { return NewSatelliteRepository(s.db) }

// Transaction 在单个事务中执行 fn，fn 返回错误或 panic 时回滚
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) (err error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("开启事务失败: %w", tx.Error)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			err = fmt.Errorf("事务执行panic: %v", p)
		}
	}()

	if err := fn(&Store{db: tx}); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}
	return nil
}
