package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

// Config 全局配置结构体（完全匹配config.yaml）
type Config struct {
	Server    ServerConfig              `mapstructure:"server"`    // 服务器配置
	Database  DatabaseConfig            `mapstructure:"database"`  // PostgreSQL配置
	Redis     RedisConfig               `mapstructure:"redis"`     // Redis缓存配置
	Admin     AdminConfig               `mapstructure:"admin"`     // 管理接口配置
	Providers map[string]ProviderConfig `mapstructure:"providers"` // 外部数据源配置（igdb/itad/steam）
	Sync      SyncConfig                `mapstructure:"sync"`      // 各同步任务参数
	Schedule  ScheduleConfig            `mapstructure:"schedule"`  // 定时任务Cron表达式
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port int    `mapstructure:"port"` // 服务端口
	Mode string `mapstructure:"mode"` // Gin运行模式：debug/release/test
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`               // 连接DSN（URL形式）
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 最大打开连接数
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 最大空闲连接数
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 连接最大存活时间
	LogSQL          bool          `mapstructure:"log_sql"`           // 是否打印SQL
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AdminConfig 管理接口配置
type AdminConfig struct {
	Key string `mapstructure:"key"` // X-ADMIN-KEY 校验值
}

// ProviderConfig 单个外部数据源的独立配置
type ProviderConfig struct {
	BaseURL      string `mapstructure:"base_url"`      // API基础地址
	AuthURL      string `mapstructure:"auth_url"`      // 鉴权地址（IGDB 使用 Twitch OAuth）
	StoreURL     string `mapstructure:"store_url"`     // 商店前台地址（Steam 评论接口）
	Timeout      int    `mapstructure:"timeout"`       // 请求超时（秒）
	Proxy        string `mapstructure:"proxy"`         // 代理地址
	ClientID     string `mapstructure:"client_id"`     // OAuth client id
	ClientSecret string `mapstructure:"client_secret"` // OAuth client secret
	APIKey       string `mapstructure:"api_key"`       // API Key
}

// SyncConfig 同步任务参数
type SyncConfig struct {
	IGDB      IGDBSyncConfig      `mapstructure:"igdb"`
	ITAD      ITADSyncConfig      `mapstructure:"itad"`
	Steam     SteamSyncConfig     `mapstructure:"steam"`
	Review    ReviewSyncConfig    `mapstructure:"review"`
	Dashboard DashboardSyncConfig `mapstructure:"dashboard"`
}

// IGDBSyncConfig 目录元数据同步参数
type IGDBSyncConfig struct {
	PageSize     int           `mapstructure:"page_size"`     // 每页条数（上游上限500）
	PageInterval time.Duration `mapstructure:"page_interval"` // 翻页间隔
	ErrorBackoff time.Duration `mapstructure:"error_backoff"` // 传输错误后退避时间
	MaxRetries   int           `mapstructure:"max_retries"`   // 连续传输错误上限
	RateLimit    float64       `mapstructure:"rate_limit"`    // 每秒请求数上限
}

// ITADSyncConfig 价格同步参数
type ITADSyncConfig struct {
	BatchSize     int           `mapstructure:"batch_size"`
	Country       string        `mapstructure:"country"`
	BatchInterval time.Duration `mapstructure:"batch_interval"`
	ErrorBackoff  time.Duration `mapstructure:"error_backoff"`
}

// SteamSyncConfig 商店同步参数
type SteamSyncConfig struct {
	PageSize  int    `mapstructure:"page_size"`  // GetAppList max_results
	StoreHost string `mapstructure:"store_host"` // 商店页面域名，用于拼接商品链接
	Language  string `mapstructure:"language"`   // 评论语言
	Country   string `mapstructure:"country"`    // 榜单国家代码
}

// ReviewSyncConfig 评论采样参数
type ReviewSyncConfig struct {
	ThreadPoolSize       int           `mapstructure:"thread_pool_size"`
	MinVotesUp           int           `mapstructure:"min_votes_up"`
	InitBatchSize        int           `mapstructure:"init_batch_size"`
	MaintenanceBatchSize int           `mapstructure:"maintenance_batch_size"`
	RoundInterval        time.Duration `mapstructure:"round_interval"`
}

// DashboardSyncConfig 榜单采集参数
type DashboardSyncConfig struct {
	MinCollectionDate string        `mapstructure:"min_collection_date"` // 历史采集起始日期 YYYY-MM-DD
	PeriodInterval    time.Duration `mapstructure:"period_interval"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
}

// ScheduleConfig 定时任务（带秒的6段Cron）
type ScheduleConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Daily      string `mapstructure:"daily"`
	Prices     string `mapstructure:"prices"`
	Concurrent string `mapstructure:"concurrent"`
	MostPlayed string `mapstructure:"most_played"`
	Weekly     string `mapstructure:"weekly"`
	Monthly    string `mapstructure:"monthly"`
	Yearly     string `mapstructure:"yearly"`
}

// MinCollectionTime 解析历史采集起始日期，解析失败回落到 2022-01-01
func (d DashboardSyncConfig) MinCollectionTime() time.Time {
	t, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(d.MinCollectionDate), time.UTC)
	if err != nil {
		return time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return t
}

// Provider 获取指定数据源配置（不存在时返回零值）
func (c *Config) Provider(name string) *ProviderConfig {
	p := c.Providers[name]
	return &p
}

// LoadConfig 加载配置文件（config/config.yaml），敏感项从 .env 覆盖（不提交 git）
func LoadConfig() (*Config, error) {
	// 1. 加载 .env（若存在）
	_ = godotenv.Load()

	// 2. 读取 config.yaml
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	setDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 3. 敏感字段：用 env 覆盖（优先级 env > yaml）
	overrideFromEnv(&cfg)
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("redis.addr", "localhost:6379")

	v.SetDefault("sync.igdb.page_size", 500)
	v.SetDefault("sync.igdb.page_interval", 250*time.Millisecond)
	v.SetDefault("sync.igdb.error_backoff", 5*time.Second)
	v.SetDefault("sync.igdb.max_retries", 10)
	v.SetDefault("sync.igdb.rate_limit", 4)

	v.SetDefault("sync.itad.batch_size", 200)
	v.SetDefault("sync.itad.country", "KR")
	v.SetDefault("sync.itad.batch_interval", 500*time.Millisecond)
	v.SetDefault("sync.itad.error_backoff", 3*time.Second)

	v.SetDefault("sync.steam.page_size", 10000)
	v.SetDefault("sync.steam.store_host", "store.steampowered.com")
	v.SetDefault("sync.steam.language", "korean")
	v.SetDefault("sync.steam.country", "KR")

	v.SetDefault("sync.review.thread_pool_size", 8)
	v.SetDefault("sync.review.min_votes_up", 1)
	v.SetDefault("sync.review.init_batch_size", 100)
	v.SetDefault("sync.review.maintenance_batch_size", 200)
	v.SetDefault("sync.review.round_interval", 500*time.Millisecond)

	v.SetDefault("sync.dashboard.min_collection_date", "2022-01-01")
	v.SetDefault("sync.dashboard.period_interval", 100*time.Millisecond)
	v.SetDefault("sync.dashboard.cache_ttl", 30*time.Minute)

	v.SetDefault("schedule.enabled", true)
	v.SetDefault("schedule.daily", "0 0 4 * * *")
	v.SetDefault("schedule.prices", "0 0 0,6,12,18 * * *")
	v.SetDefault("schedule.concurrent", "0 0/15 * * * *")
	v.SetDefault("schedule.most_played", "0 0 * * * *")
	v.SetDefault("schedule.weekly", "0 0 18 * * TUE")
	v.SetDefault("schedule.monthly", "0 0 3 16 * *")
	v.SetDefault("schedule.yearly", "0 0 18 15 1 *")
}

// overrideFromEnv 用环境变量覆盖敏感配置
func overrideFromEnv(cfg *Config) {
	if cfg.Providers == nil {
		cfg.Providers = map[string]ProviderConfig{}
	}
	if p, ok := cfg.Providers["igdb"]; ok || os.Getenv("IGDB_CLIENT_ID") != "" {
		if v := os.Getenv("IGDB_CLIENT_ID"); v != "" {
			p.ClientID = v
		}
		if v := os.Getenv("IGDB_CLIENT_SECRET"); v != "" {
			p.ClientSecret = v
		}
		cfg.Providers["igdb"] = p
	}
	if p, ok := cfg.Providers["itad"]; ok || os.Getenv("ITAD_API_KEY") != "" {
		if v := os.Getenv("ITAD_API_KEY"); v != "" {
			p.APIKey = v
		}
		cfg.Providers["itad"] = p
	}
	if p, ok := cfg.Providers["steam"]; ok || os.Getenv("STEAM_API_KEY") != "" {
		if v := os.Getenv("STEAM_API_KEY"); v != "" {
			p.APIKey = v
		}
		cfg.Providers["steam"] = p
	}
	if v := os.Getenv("ADMIN_KEY"); v != "" {
		cfg.Admin.Key = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
}

// GetGORMConfig 获取GORM配置
func (d *DatabaseConfig) GetGORMConfig() gorm.Config {
	return gorm.Config{}
}
