package main

import (
	"context"
	"fmt"
	"strings"

	"GameSync/internal/adapter"
	"GameSync/internal/cache"
	"GameSync/internal/config"
	"GameSync/internal/interfaces"
	"GameSync/internal/model"
	"GameSync/internal/repository"
	"GameSync/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// app 进程内共享的依赖
type app struct {
	cfg            *config.Config
	logger         *logrus.Logger
	db             *gorm.DB
	rdb            *redis.Client
	jobs           *service.Jobs
	dashboardCache *service.DashboardCacheService
}

func newApp(ctx context.Context) (*app, error) {
	// 1. 加载配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("加载配置文件失败: %w", err)
	}

	// 2. 初始化日志
	log := logrus.New()
	log.SetLevel(logrus.InfoLevel)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.Info("配置文件加载成功")

	// 3. 初始化 PostgreSQL 连接（库不存在则先创建再连）
	db, err := openDatabase(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(model.AllModels()...); err != nil {
		return nil, fmt.Errorf("数据库表结构迁移失败: %w", err)
	}
	log.Info("数据库表结构检查完成（不存在则已创建）")

	// 4. Redis 不可用时退化为进程内缓存
	var (
		kv  interfaces.Cache
		rdb *redis.Client
	)
	rdb, err = cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.WithError(err).Warn("Redis不可用，使用进程内缓存")
		kv = cache.NewMemoryCache()
	} else {
		kv = cache.NewRedisCache(rdb)
		log.WithField("addr", cfg.Redis.Addr).Info("Redis连接成功")
	}

	// 5. 数据源适配器
	providers, err := adapter.NewProviders(cfg, kv, log)
	if err != nil {
		return nil, fmt.Errorf("初始化数据源失败: %w", err)
	}

	// 6. 同步服务
	store := repository.NewStore(db)
	dashboardCache := service.NewDashboardCacheService(store, kv, cfg.Sync.Dashboard.CacheTTL, log)
	jobs := &service.Jobs{
		App:       service.NewAppSyncService(store, providers.Storefront, cfg.Sync.Steam, log),
		Catalog:   service.NewCatalogSyncService(store, providers.Catalog, cfg.Sync.IGDB, log),
		Price:     service.NewPriceSyncService(store, providers.Prices, cfg.Sync.ITAD, log),
		Review:    service.NewReviewSyncService(store, providers.Storefront, cfg.Sync.Review, log),
		Dashboard: service.NewDashboardSyncService(store, providers.Storefront, dashboardCache, cfg.Sync.Dashboard, log),
	}

	return &app{
		cfg:            cfg,
		logger:         log,
		db:             db,
		rdb:            rdb,
		jobs:           jobs,
		dashboardCache: dashboardCache,
	}, nil
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig, log *logrus.Logger) (*gorm.DB, error) {
	gormCfg := cfg.GetGORMConfig()
	level := logger.Warn
	if cfg.LogSQL {
		level = logger.Info
	}
	gormCfg.Logger = logger.Default.LogMode(level)

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gormCfg)
	if err != nil {
		if !strings.Contains(err.Error(), "does not exist") && !strings.Contains(err.Error(), "3D000") {
			return nil, fmt.Errorf("连接PostgreSQL失败: %w", err)
		}
		log.Info("目标数据库不存在，尝试自动创建…")
		if e := ensureDatabaseExists(ctx, cfg.DSN); e != nil {
			return nil, fmt.Errorf("创建数据库失败: %w", e)
		}
		if db, err = gorm.Open(postgres.Open(cfg.DSN), &gormCfg); err != nil {
			return nil, fmt.Errorf("连接PostgreSQL失败: %w", err)
		}
	}
	log.Info("PostgreSQL连接成功")

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取SQL DB失败: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return db, nil
}

// Close 释放数据库与 Redis 连接
func (a *app) Close() {
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.WithError(err).Warn("关闭Redis连接失败")
		}
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
