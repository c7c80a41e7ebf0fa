package service

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// 任务名（管理接口路径与命令行 run 子命令共用）
const (
	JobSteamAppList = "steam-app-list"
	JobIGDB         = "igdb"
	JobIGDBUpdated  = "igdb-updated"
	JobITAD         = "itad"
	JobReviews      = "reviews"
	JobReviewsStale = "reviews-maintenance"
	JobDashboard    = "dashboard"
	JobWeekly       = "weekly"
	JobMonthly      = "monthly"
	JobYearly       = "yearly"
	JobConcurrent   = "concurrent"
	JobMostPlayed   = "most-played"
	JobDaily        = "daily"
	JobPrices       = "prices"
	JobInitAll      = "init-all"
)

// Jobs 汇总各同步服务的入口，供定时器、管理接口、命令行调用。
// 同名任务同一时刻只允许一个在跑。
type Jobs struct {
	App       *AppSyncService
	Catalog   *CatalogSyncService
	Price     *PriceSyncService
	Review    *ReviewSyncService
	Dashboard *DashboardSyncService

	mu      sync.Mutex
	running map[string]bool
}

// Names 全部可调用的任务名（排序后）
func (j *Jobs) Names() []string {
	names := make([]string, 0, len(j.table()))
	for name := range j.table() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (j *Jobs) table() map[string]func(context.Context) {
	return map[string]func(context.Context){
		JobSteamAppList: j.App.SyncAppList,
		JobIGDB:         j.Catalog.Backfill,
		JobIGDBUpdated:  j.Catalog.SyncUpdated,
		JobITAD:         j.Prices,
		JobReviews:      j.Review.InitAllReviews,
		JobReviewsStale: j.Review.SyncReviews,
		JobDashboard:    j.Dashboard.InitHistorical,
		JobWeekly:       j.Dashboard.SyncWeekly,
		JobMonthly:      j.Dashboard.SyncMonthly,
		JobYearly:       j.Dashboard.SyncYearly,
		JobConcurrent:   j.Dashboard.SyncConcurrent,
		JobMostPlayed:   j.Dashboard.SyncMostPlayed,
		JobDaily:        j.Daily,
		JobPrices:       j.Prices,
		JobInitAll:      j.InitAll,
	}
}

// Has 任务名是否存在
func (j *Jobs) Has(name string) bool {
	_, ok := j.table()[name]
	return ok
}

// Run 同步执行指定任务；任务不存在或同名任务正在执行时返回 false
func (j *Jobs) Run(ctx context.Context, name string) bool {
	fn, ok := j.table()[name]
	if !ok || !j.acquire(name) {
		return false
	}
	defer j.release(name)
	fn(ctx)
	return true
}

// Start 异步执行指定任务；返回是否已启动
func (j *Jobs) Start(ctx context.Context, name string) bool {
	fn, ok := j.table()[name]
	if !ok || !j.acquire(name) {
		return false
	}
	go func() {
		defer j.release(name)
		fn(ctx)
	}()
	return true
}

func (j *Jobs) acquire(name string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running == nil {
		j.running = map[string]bool{}
	}
	if j.running[name] {
		return false
	}
	j.running[name] = true
	return true
}

func (j *Jobs) release(name string) {
	j.mu.Lock()
	delete(j.running, name)
	j.mu.Unlock()
}

// Daily 每日任务：应用列表 -> IGDB 增量 -> 评论维护，严格串行
func (j *Jobs) Daily(ctx context.Context) {
	j.App.SyncAppList(ctx)
	j.Catalog.SyncUpdated(ctx)
	j.Review.SyncReviews(ctx)
}

// Prices 先补全 ITAD id，再对账价格
func (j *Jobs) Prices(ctx context.Context) {
	j.Price.SyncMissingIDs(ctx)
	j.Price.SyncPrices(ctx)
}

// InitAll 首次初始化：先拉应用列表，再并行跑 IGDB 回填、ITAD、评论、榜单，等待全部结束
func (j *Jobs) InitAll(ctx context.Context) {
	j.App.SyncAppList(ctx)

	var g errgroup.Group
	for _, fn := range []func(context.Context){
		j.Catalog.Backfill,
		j.Prices,
		j.Review.InitAllReviews,
		j.Dashboard.InitHistorical,
	} {
		g.Go(func() error {
			fn(ctx)
			return nil
		})
	}
	_ = g.Wait()
}
