package adapter

import (
	"fmt"

	"GameSync/internal/adapter/igdb"
	"GameSync/internal/adapter/itad"
	"GameSync/internal/adapter/steam"
	"GameSync/internal/config"
	"GameSync/internal/interfaces"

	"github.com/sirupsen/logrus"
)

// 数据源名称，对应配置 providers 下的键
const (
	ProviderIGDB  = "igdb"
	ProviderITAD  = "itad"
	ProviderSteam = "steam"
)

// Providers 三个外部数据源的采集器实例
type Providers struct {
	Catalog    interfaces.CatalogCollector
	Prices     interfaces.PriceCollector
	Storefront interfaces.StorefrontCollector
}

// NewProviders 按配置创建全部数据源适配器，缺少 base_url 时返回错误，缺少凭据只告警
func NewProviders(cfg *config.Config, cache interfaces.Cache, logger *logrus.Logger) (*Providers, error) {
	for _, name := range []string{ProviderIGDB, ProviderITAD, ProviderSteam} {
		pc := cfg.Provider(name)
		if pc.BaseURL == "" {
			return nil, fmt.Errorf("数据源%s未配置base_url", name)
		}
		if missing := missingCredentials(name, pc); len(missing) > 0 {
			logger.WithFields(logrus.Fields{"provider": name, "missing": missing}).Warn("数据源凭据未配置，相关任务将失败")
		}
	}

	p := &Providers{
		Catalog:    igdb.NewIGDBAdapter(cfg.Provider(ProviderIGDB), cfg.Sync.IGDB.RateLimit, cache, logger),
		Prices:     itad.NewITADAdapter(cfg.Provider(ProviderITAD), cfg.Sync.ITAD.Country, logger),
		Storefront: steam.NewSteamAdapter(cfg.Provider(ProviderSteam), cfg.Sync.Steam, logger),
	}
	logger.WithFields(logrus.Fields{
		"igdb":  cfg.Provider(ProviderIGDB).BaseURL,
		"itad":  cfg.Provider(ProviderITAD).BaseURL,
		"steam": cfg.Provider(ProviderSteam).BaseURL,
	}).Info("数据源适配器初始化成功")
	return p, nil
}

func missingCredentials(name string, pc *config.ProviderConfig) []string {
	var missing []string
	switch name {
	case ProviderIGDB:
		if pc.ClientID == "" {
			missing = append(missing, "client_id")
		}
		if pc.ClientSecret == "" {
			missing = append(missing, "client_secret")
		}
		if pc.AuthURL == "" {
			missing = append(missing, "auth_url")
		}
	case ProviderITAD:
		if pc.APIKey == "" {
			missing = append(missing, "api_key")
		}
	}
	return missing
}
