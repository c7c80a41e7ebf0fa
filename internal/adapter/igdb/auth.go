package igdb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"GameSync/internal/config"
	"GameSync/internal/interfaces"
	"GameSync/internal/model"
	"GameSync/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	tokenCacheKey = "auth:igdb:token"
	// tokenSafetyMargin 提前过期，避免临界时刻使用失效 token
	tokenSafetyMargin = 300 * time.Second
)

// TokenManager IGDB access token 管理：Redis 共享缓存 + 进程内副本，刷新用 singleflight 串行化
type TokenManager struct {
	cfg        *config.ProviderConfig
	httpClient *http.Client
	cache      interfaces.Cache
	logger     *logrus.Logger
	group      singleflight.Group

	mu       sync.RWMutex
	token    string
	expireAt time.Time
	now      func() time.Time
}

func NewTokenManager(cfg *config.ProviderConfig, httpClient *http.Client, cache interfaces.Cache, logger *logrus.Logger) *TokenManager {
	return &TokenManager{
		cfg:        cfg,
		httpClient: httpClient,
		cache:      cache,
		logger:     logger,
		now:        time.Now,
	}
}

// AccessToken 返回可用 token；缓存都未命中时只会有一个刷新请求在途，其余调用者共享结果
func (m *TokenManager) AccessToken(ctx context.Context) (string, error) {
	if tok, ok := m.cached(ctx); ok {
		return tok, nil
	}
	v, err, _ := m.group.Do(tokenCacheKey, func() (any, error) {
		// 等待期间可能已被其他实例刷新
		if tok, ok := m.cached(ctx); ok {
			return tok, nil
		}
		return m.refresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate 上游返回 401 时丢弃当前 token
func (m *TokenManager) Invalidate(ctx context.Context) {
	m.mu.Lock()
	m.token = ""
	m.expireAt = time.Time{}
	m.mu.Unlock()
	if m.cache != nil {
		if err := m.cache.Delete(ctx, tokenCacheKey); err != nil {
			m.logger.WithError(err).Warn("删除IGDB token缓存失败")
		}
	}
}

func (m *TokenManager) cached(ctx context.Context) (string, bool) {
	m.mu.RLock()
	tok, exp := m.token, m.expireAt
	m.mu.RUnlock()
	if tok != "" && m.now().Before(exp) {
		return tok, true
	}
	if m.cache == nil {
		return "", false
	}
	raw, err := m.cache.Get(ctx, tokenCacheKey)
	if err != nil {
		if !errors.Is(err, interfaces.ErrCacheMiss) {
			m.logger.WithError(err).Warn("读取IGDB token缓存失败，直接刷新")
		}
		return "", false
	}
	if len(raw) == 0 {
		return "", false
	}
	return string(raw), true
}

func (m *TokenManager) refresh(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("client_id", m.cfg.ClientID)
	form.Set("client_secret", m.cfg.ClientSecret)
	form.Set("grant_type", "client_credentials")

	endpoint := strings.TrimRight(m.cfg.AuthURL, "/") + "/oauth2/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("构建IGDB鉴权请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var tok model.IgdbToken
	if err := httpclient.DoJSON(m.httpClient, req, &tok); err != nil {
		return "", fmt.Errorf("获取IGDB access token失败: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("获取IGDB access token失败: 响应中没有 access_token")
	}

	ttl := time.Duration(tok.ExpiresIn)*time.Second - tokenSafetyMargin
	if ttl <= 0 {
		ttl = time.Duration(tok.ExpiresIn) * time.Second / 2
	}

	m.mu.Lock()
	m.token = tok.AccessToken
	m.expireAt = m.now().Add(ttl)
	m.mu.Unlock()

	if m.cache != nil {
		if err := m.cache.Set(ctx, tokenCacheKey, []byte(tok.AccessToken), ttl); err != nil {
			m.logger.WithError(err).Warn("写入IGDB token缓存失败，仅保留进程内副本")
		}
	}
	m.logger.WithField("ttl", ttl.String()).Info("IGDB access token 已刷新")
	return tok.AccessToken, nil
}
