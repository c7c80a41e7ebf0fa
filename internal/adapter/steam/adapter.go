package steam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"GameSync/internal/config"
	"GameSync/internal/model"
	"GameSync/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
)

// ErrNoReviewSummary 评论接口未返回 query_summary
var ErrNoReviewSummary = errors.New("steam评论接口未返回query_summary")

// rankingPageCount 榜单每次取的条数
const rankingPageCount = 100

type Adapter struct {
	cfg        *config.ProviderConfig
	syncCfg    config.SteamSyncConfig
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewSteamAdapter(cfg *config.ProviderConfig, syncCfg config.SteamSyncConfig, logger *logrus.Logger) *Adapter {
	if syncCfg.Language == "" {
		syncCfg.Language = "korean"
	}
	if syncCfg.Country == "" {
		syncCfg.Country = "KR"
	}
	return &Adapter{
		cfg:        cfg,
		syncCfg:    syncCfg,
		httpClient: httpclient.NewHTTPClient(cfg, logger),
		logger:     logger,
	}
}

// ListApps 从 lastAppID 之后分页拉取商店应用列表
func (a *Adapter) ListApps(ctx context.Context, lastAppID int64, pageSize int) (*model.SteamAppPage, error) {
	q := url.Values{}
	q.Set("include_games", "true")
	q.Set("max_results", strconv.Itoa(pageSize))
	if lastAppID > 0 {
		q.Set("last_appid", strconv.FormatInt(lastAppID, 10))
	}
	var resp struct {
		Response model.SteamAppPage `json:"response"`
	}
	if err := a.getAPI(ctx, "/IStoreService/GetAppList/v1/", q, &resp); err != nil {
		return nil, fmt.Errorf("拉取Steam应用列表失败(last_appid=%d): %w", lastAppID, err)
	}
	return &resp.Response, nil
}

func (a *Adapter) FetchReviewStats(ctx context.Context, appID string) (*model.SteamReviewStats, error) {
	q := url.Values{}
	q.Set("json", "1")
	q.Set("language", a.syncCfg.Language)
	q.Set("filter", "recent")
	q.Set("purchase_type", "all")
	q.Set("num_per_page", "20")

	var page model.SteamReviewPage
	if err := a.getStore(ctx, "/appreviews/"+url.PathEscape(appID), q, &page); err != nil {
		return nil, fmt.Errorf("拉取Steam评论汇总失败(app=%s): %w", appID, err)
	}
	if page.QuerySummary == nil {
		return nil, fmt.Errorf("app=%s: %w", appID, ErrNoReviewSummary)
	}
	return page.QuerySummary, nil
}

func (a *Adapter) FetchReviewPage(ctx context.Context, appID, cursor string, polarity model.ReviewPolarity, pageSize int) ([]model.SteamReview, string, error) {
	if cursor == "" {
		cursor = "*"
	}
	q := url.Values{}
	q.Set("json", "1")
	q.Set("language", a.syncCfg.Language)
	q.Set("filter", "recent")
	q.Set("review_type", string(polarity))
	q.Set("purchase_type", "all")
	q.Set("cursor", cursor)
	q.Set("num_per_page", strconv.Itoa(pageSize))

	var page model.SteamReviewPage
	if err := a.getStore(ctx, "/appreviews/"+url.PathEscape(appID), q, &page); err != nil {
		return nil, "", fmt.Errorf("拉取Steam评论失败(app=%s, %s): %w", appID, polarity, err)
	}
	return page.Reviews, page.Cursor, nil
}

func (a *Adapter) FetchWeeklyTopSellers(ctx context.Context, startDate time.Time) (*model.SteamRanking, error) {
	input := map[string]any{
		"country_code": a.syncCfg.Country,
		"context":      map[string]string{"country_code": a.syncCfg.Country},
		"start_date":   startDate.Unix(),
		"page_start":   0,
		"page_count":   rankingPageCount,
	}
	raw, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("input_json", string(raw))

	var resp struct {
		Response struct {
			StartDate int64             `json:"start_date"`
			Ranks     []model.RankEntry `json:"ranks"`
		} `json:"response"`
	}
	if err := a.getAPI(ctx, "/IStoreTopSellersService/GetWeeklyTopSellers/v1/", q, &resp); err != nil {
		return nil, fmt.Errorf("拉取Steam周销量榜失败(%s): %w", startDate.Format(time.DateOnly), err)
	}
	ref := startDate
	if resp.Response.StartDate > 0 {
		ref = time.Unix(resp.Response.StartDate, 0)
	}
	return &model.SteamRanking{ReferenceAt: ref.UTC(), Entries: validEntries(resp.Response.Ranks)}, nil
}

type releaseRank struct {
	AppID          int64 `json:"appid"`
	AppReleaseRank int   `json:"app_release_rank"`
}

func (a *Adapter) FetchMonthlyTop(ctx context.Context, month time.Time) (*model.SteamRanking, error) {
	return a.fetchTopReleases(ctx, "/ISteamChartsService/GetMonthTopAppReleases/v1/", "rtime_month", month)
}

func (a *Adapter) FetchYearlyTop(ctx context.Context, year time.Time) (*model.SteamRanking, error) {
	return a.fetchTopReleases(ctx, "/ISteamChartsService/GetYearTopAppReleases/v1/", "rtime_year", year)
}

func (a *Adapter) fetchTopReleases(ctx context.Context, path, param string, ref time.Time) (*model.SteamRanking, error) {
	q := url.Values{}
	q.Set(param, strconv.FormatInt(ref.Unix(), 10))
	var resp struct {
		Response struct {
			Releases []releaseRank `json:"top_combined_app_and_dlc_releases"`
		} `json:"response"`
	}
	if err := a.getAPI(ctx, path, q, &resp); err != nil {
		return nil, fmt.Errorf("拉取Steam新品榜失败(%s=%d): %w", param, ref.Unix(), err)
	}
	entries := make([]model.RankEntry, 0, len(resp.Response.Releases))
	for _, r := range resp.Response.Releases {
		entries = append(entries, model.RankEntry{Rank: r.AppReleaseRank, AppID: r.AppID})
	}
	return &model.SteamRanking{ReferenceAt: ref.UTC(), Entries: validEntries(entries)}, nil
}

func (a *Adapter) FetchConcurrentPlayers(ctx context.Context) (*model.SteamRanking, error) {
	var resp struct {
		Response struct {
			LastUpdate int64             `json:"last_update"`
			Ranks      []model.RankEntry `json:"ranks"`
		} `json:"response"`
	}
	if err := a.getAPI(ctx, "/ISteamChartsService/GetGamesByConcurrentPlayers/v1/", nil, &resp); err != nil {
		return nil, fmt.Errorf("拉取Steam同时在线榜失败: %w", err)
	}
	return &model.SteamRanking{
		ReferenceAt: unixOrNow(resp.Response.LastUpdate),
		Entries:     validEntries(resp.Response.Ranks),
	}, nil
}

func (a *Adapter) FetchMostPlayed(ctx context.Context) (*model.SteamRanking, error) {
	var resp struct {
		Response struct {
			RollupDate int64             `json:"rollup_date"`
			Ranks      []model.RankEntry `json:"ranks"`
		} `json:"response"`
	}
	if err := a.getAPI(ctx, "/ISteamChartsService/GetMostPlayedGames/v1/", nil, &resp); err != nil {
		return nil, fmt.Errorf("拉取Steam最多游玩榜失败: %w", err)
	}
	return &model.SteamRanking{
		ReferenceAt: unixOrNow(resp.Response.RollupDate),
		Entries:     validEntries(resp.Response.Ranks),
	}, nil
}

func (a *Adapter) getAPI(ctx context.Context, path string, q url.Values, out any) error {
	if q == nil {
		q = url.Values{}
	}
	if a.cfg.APIKey != "" {
		q.Set("key", a.cfg.APIKey)
	}
	return a.get(ctx, strings.TrimRight(a.cfg.BaseURL, "/")+path, q, out)
}

func (a *Adapter) getStore(ctx context.Context, path string, q url.Values, out any) error {
	return a.get(ctx, strings.TrimRight(a.cfg.StoreURL, "/")+path, q, out)
}

func (a *Adapter) get(ctx context.Context, endpoint string, q url.Values, out any) error {
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	return httpclient.DoJSON(a.httpClient, req, out)
}

// validEntries 去掉 appid 或名次缺失的条目
func validEntries(in []model.RankEntry) []model.RankEntry {
	out := make([]model.RankEntry, 0, len(in))
	for _, e := range in {
		if e.AppID <= 0 || e.Rank <= 0 {
			continue
		}
		out = append(out, e)
	}
	return out
}

func unixOrNow(ts int64) time.Time {
	if ts <= 0 {
		return time.Now().UTC().Truncate(time.Second)
	}
	return time.Unix(ts, 0).UTC()
}
