package interfaces

import (
	"context"
	"time"

	"GameSync/internal/model"
)

// CatalogCollector 目录元数据源（IGDB）
type CatalogCollector interface {
	// FetchByIDAfter 按 id 升序拉取 id > afterID 的摘要（全量回填）
	FetchByIDAfter(ctx context.Context, afterID int64, limit int) ([]model.IgdbGameSummary, error)
	// FetchByUpdatedSince 按 updated_at 升序拉取 updated_at >= since 的摘要（增量同步）
	FetchByUpdatedSince(ctx context.Context, since int64, limit int) ([]model.IgdbGameSummary, error)
	// FetchDetails 拉取详情，ids 不超过 500
	FetchDetails(ctx context.Context, ids []int64) ([]model.IgdbGameDetail, error)
	AccessToken(ctx context.Context) (string, error)
}

// PriceCollector 价格聚合源（ITAD）
type PriceCollector interface {
	// ResolveIDs Steam appid -> ITAD id，未命中的不出现在结果中
	ResolveIDs(ctx context.Context, steamAppIDs []string) (map[string]string, error)
	FetchPrices(ctx context.Context, itadIDs []string) ([]model.ItadGamePrices, error)
}

// StorefrontCollector 商店源（Steam）
type StorefrontCollector interface {
	ListApps(ctx context.Context, lastAppID int64, pageSize int) (*model.SteamAppPage, error)
	FetchReviewStats(ctx context.Context, appID string) (*model.SteamReviewStats, error)
	// FetchReviewPage 返回一页评论与下一页 cursor
	FetchReviewPage(ctx context.Context, appID, cursor string, polarity model.ReviewPolarity, pageSize int) ([]model.SteamReview, string, error)
	FetchWeeklyTopSellers(ctx context.Context, startDate time.Time) (*model.SteamRanking, error)
	FetchMonthlyTop(ctx context.Context, month time.Time) (*model.SteamRanking, error)
	FetchYearlyTop(ctx context.Context, year time.Time) (*model.SteamRanking, error)
	FetchConcurrentPlayers(ctx context.Context) (*model.SteamRanking, error)
	FetchMostPlayed(ctx context.Context) (*model.SteamRanking, error)
}
