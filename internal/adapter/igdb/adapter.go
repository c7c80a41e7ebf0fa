package igdb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"GameSync/internal/config"
	"GameSync/internal/interfaces"
	"GameSync/internal/model"
	"GameSync/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// MaxBatch IGDB 单次查询上限
const MaxBatch = 500

type Adapter struct {
	cfg        *config.ProviderConfig
	httpClient *http.Client
	logger     *logrus.Logger
	tokens     *TokenManager
	limiter    *rate.Limiter
}

// NewIGDBAdapter rps 为每秒请求上限（IGDB 要求不超过4）
func NewIGDBAdapter(cfg *config.ProviderConfig, rps float64, cache interfaces.Cache, logger *logrus.Logger) *Adapter {
	if rps <= 0 {
		rps = 4
	}
	client := httpclient.NewHTTPClient(cfg, logger)
	return &Adapter{
		cfg:        cfg,
		httpClient: client,
		logger:     logger,
		tokens:     NewTokenManager(cfg, client, cache, logger),
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
	}
}

func (a *Adapter) AccessToken(ctx context.Context) (string, error) {
	return a.tokens.AccessToken(ctx)
}

func (a *Adapter) FetchByIDAfter(ctx context.Context, afterID int64, limit int) ([]model.IgdbGameSummary, error) {
	q := NewQuery(summaryFields...).
		Where(fmt.Sprintf("id > %d", afterID)).
		Where(fmt.Sprintf("external_games.external_game_source = %d", model.IgdbExternalSourceSteam)).
		Sort("id asc").
		Limit(clampLimit(limit))
	var out []model.IgdbGameSummary
	if err := a.post(ctx, "games", q, &out); err != nil {
		return nil, fmt.Errorf("按id拉取IGDB摘要失败(after=%d): %w", afterID, err)
	}
	return out, nil
}

func (a *Adapter) FetchByUpdatedSince(ctx context.Context, since int64, limit int) ([]model.IgdbGameSummary, error) {
	q := NewQuery(summaryFields...).
		Where(fmt.Sprintf("updated_at >= %d", since)).
		Where(fmt.Sprintf("external_games.external_game_source = %d", model.IgdbExternalSourceSteam)).
		Sort("updated_at asc").
		Limit(clampLimit(limit))
	var out []model.IgdbGameSummary
	if err := a.post(ctx, "games", q, &out); err != nil {
		return nil, fmt.Errorf("按更新时间拉取IGDB摘要失败(since=%d): %w", since, err)
	}
	return out, nil
}

func (a *Adapter) FetchDetails(ctx context.Context, ids []int64) ([]model.IgdbGameDetail, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > MaxBatch {
		return nil, fmt.Errorf("IGDB详情单次最多%d个id，实际%d", MaxBatch, len(ids))
	}
	q := NewQuery(detailFields...).
		Where("id = " + idList(ids)).
		Limit(len(ids))
	var out []model.IgdbGameDetail
	if err := a.post(ctx, "games", q, &out); err != nil {
		return nil, fmt.Errorf("拉取IGDB详情失败(%d个): %w", len(ids), err)
	}
	return out, nil
}

func (a *Adapter) post(ctx context.Context, endpoint string, q *Query, out any) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}
	token, err := a.tokens.AccessToken(ctx)
	if err != nil {
		return err
	}
	url := strings.TrimRight(a.cfg.BaseURL, "/") + "/" + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(q.String()))
	if err != nil {
		return err
	}
	req.Header.Set("Client-ID", a.cfg.ClientID)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "text/plain")

	err = httpclient.DoJSON(a.httpClient, req, out)
	var apiErr *httpclient.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		a.logger.Warn("IGDB返回401，丢弃当前token")
		a.tokens.Invalidate(ctx)
	}
	return err
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxBatch {
		return MaxBatch
	}
	return limit
}
