package itad

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"GameSync/internal/config"
	"GameSync/internal/model"
	"GameSync/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
)

// steamShopID ITAD 中 Steam 的 shop id
const steamShopID = 61

type Adapter struct {
	cfg        *config.ProviderConfig
	country    string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewITADAdapter(cfg *config.ProviderConfig, country string, logger *logrus.Logger) *Adapter {
	if country == "" {
		country = "KR"
	}
	return &Adapter{
		cfg:        cfg,
		country:    country,
		httpClient: httpclient.NewHTTPClient(cfg, logger),
		logger:     logger,
	}
}

// ResolveIDs 通过 Steam 商店 id 批量查 ITAD 游戏 id，未命中的不返回
func (a *Adapter) ResolveIDs(ctx context.Context, steamAppIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(steamAppIDs))
	if len(steamAppIDs) == 0 {
		return out, nil
	}
	shopIDs := make([]string, len(steamAppIDs))
	for i, id := range steamAppIDs {
		shopIDs[i] = "app/" + id
	}

	var resp map[string]*string
	endpoint := fmt.Sprintf("/lookup/id/shop/%d/v1", steamShopID)
	if err := a.postJSON(ctx, endpoint, nil, shopIDs, &resp); err != nil {
		return nil, fmt.Errorf("ITAD id查询失败(%d个): %w", len(steamAppIDs), err)
	}
	for shopID, itadID := range resp {
		if itadID == nil || *itadID == "" {
			continue
		}
		appID := strings.TrimPrefix(shopID, "app/")
		out[appID] = *itadID
	}
	return out, nil
}

// FetchPrices 批量查询当前价格
func (a *Adapter) FetchPrices(ctx context.Context, itadIDs []string) ([]model.ItadGamePrices, error) {
	if len(itadIDs) == 0 {
		return nil, nil
	}
	shops := make([]string, 0, len(model.ItadShopIDs()))
	for _, id := range model.ItadShopIDs() {
		shops = append(shops, strconv.Itoa(id))
	}
	q := url.Values{}
	q.Set("country", a.country)
	q.Set("shops", strings.Join(shops, ","))

	var resp []model.ItadGamePrices
	if err := a.postJSON(ctx, "/games/prices/v3", q, itadIDs, &resp); err != nil {
		return nil, fmt.Errorf("ITAD价格查询失败(%d个): %w", len(itadIDs), err)
	}
	return resp, nil
}

func (a *Adapter) postJSON(ctx context.Context, path string, query url.Values, body any, out any) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("key", a.cfg.APIKey)
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	endpoint := strings.TrimRight(a.cfg.BaseURL, "/") + path + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return httpclient.DoJSON(a.httpClient, req, out)
}
