package model

import (
	"time"

	"gorm.io/datatypes"
)

// Tag 游戏标签（与游戏1:1，整行upsert）
type Tag struct {
	GameID    uint64                      `gorm:"column:game_id;primaryKey;autoIncrement:false;comment:关联游戏ID"`
	Genres    datatypes.JSONSlice[string] `gorm:"column:genres;comment:类型"`
	Themes    datatypes.JSONSlice[string] `gorm:"column:themes;comment:主题"`
	Keywords  datatypes.JSONSlice[string] `gorm:"column:keywords;comment:关键词"`
	UpdatedAt time.Time                   `gorm:"column:updated_at;comment:更新时间"`
}

func (Tag) TableName() string { return "tags" }

// Screenshot 游戏截图（1:N，整体替换）
type Screenshot struct {
	ID      uint64 `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	GameID  uint64 `gorm:"column:game_id;not null;index;comment:关联游戏ID"`
	ImageID string `gorm:"column:image_id;type:varchar(64);not null;comment:图片ID"`
	Width   int    `gorm:"column:width;comment:宽"`
	Height  int    `gorm:"column:height;comment:高"`
}

func (Screenshot) TableName() string { return "screenshots" }

// Company 开发/发行公司（按名称唯一）
type Company struct {
	ID   uint64 `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	Name string `gorm:"column:name;type:varchar(255);not null;uniqueIndex:uk_company_name;comment:公司名"`
	Logo string `gorm:"column:logo;type:varchar(64);comment:Logo图片ID"`
	URL  string `gorm:"column:url;type:varchar(1024);comment:官网"`
}

func (Company) TableName() string { return "companies" }

// GameCompany 游戏与公司的关联（开发商/发行商标记）
type GameCompany struct {
	GameID      uint64 `gorm:"column:game_id;primaryKey;autoIncrement:false;comment:关联游戏ID"`
	CompanyID   uint64 `gorm:"column:company_id;primaryKey;autoIncrement:false;comment:关联公司ID"`
	IsDeveloper bool   `gorm:"column:is_developer;not null;default:false;comment:是否开发商"`
	IsPublisher bool   `gorm:"column:is_publisher;not null;default:false;comment:是否发行商"`
}

func (GameCompany) TableName() string { return "game_companies" }

// LanguageSupport 语言支持（1:N，整体替换）
type LanguageSupport struct {
	ID               uint64 `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	GameID           uint64 `gorm:"column:game_id;not null;index;comment:关联游戏ID"`
	Language         string `gorm:"column:language;type:varchar(64);not null;comment:语言名"`
	VoiceSupport     bool   `gorm:"column:voice_support;not null;default:false;comment:配音"`
	SubtitleSupport  bool   `gorm:"column:subtitle_support;not null;default:false;comment:字幕"`
	InterfaceSupport bool   `gorm:"column:interface_support;not null;default:false;comment:界面"`
}

func (LanguageSupport) TableName() string { return "language_supports" }

// AllModels 按依赖顺序返回需要迁移的模型
func AllModels() []any {
	return []any{
		&Game{},
		&StoreDetail{},
		&Dashboard{},
		&ReviewStat{},
		&Review{},
		&Tag{},
		&Screenshot{},
		&Company{},
		&GameCompany{},
		&LanguageSupport{},
	}
}
