package model

import (
	"time"

	"gorm.io/datatypes"
)

// Game 游戏主表（跨数据源统一主键）
// 首次出现在 Steam 应用列表时创建，IGDB 负责补全目录字段，ITAD 负责写入价格侧ID
type Game struct {
	ID                uint64                      `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID" json:"id"`
	IgdbID            *int64                      `gorm:"column:igdb_id;uniqueIndex:uk_game_igdb;comment:IGDB游戏ID（只写一次）" json:"igdb_id"`
	ItadID            *string                     `gorm:"column:itad_id;type:varchar(64);uniqueIndex:uk_game_itad;comment:ITAD游戏ID（只写一次）" json:"itad_id"`
	Title             string                      `gorm:"column:title;type:varchar(512);not null;comment:标题（Steam原名）" json:"title"`
	TitleLocalization string                      `gorm:"column:title_localization;type:varchar(512);comment:本地化标题" json:"title_localization"`
	Description       string                      `gorm:"column:description;type:text;comment:简介" json:"description"`
	Storyline         string                      `gorm:"column:storyline;type:text;comment:剧情" json:"storyline"`
	Type              string                      `gorm:"column:type;type:varchar(32);comment:游戏类型（main_game/dlc...）" json:"type"`
	ReleaseStatus     string                      `gorm:"column:release_status;type:varchar(32);comment:发售状态" json:"release_status"`
	FirstRelease      *time.Time                  `gorm:"column:first_release;comment:首发日期" json:"first_release"`
	Platforms         datatypes.JSONSlice[string] `gorm:"column:platforms;comment:平台名列表" json:"platforms"`
	Modes             datatypes.JSONSlice[string] `gorm:"column:modes;comment:游戏模式列表" json:"modes"`
	Perspectives      datatypes.JSONSlice[string] `gorm:"column:perspectives;comment:视角列表" json:"perspectives"`
	CoverID           string                      `gorm:"column:cover_id;type:varchar(64);comment:封面图片ID" json:"cover_id"`
	Hypes             int                         `gorm:"column:hypes;default:0;comment:热度" json:"hypes"`
	RatingEsrb        string                      `gorm:"column:rating_esrb;type:varchar(16);comment:ESRB评级" json:"rating_esrb"`
	RatingKr          string                      `gorm:"column:rating_kr;type:varchar(16);comment:韩国GRAC评级" json:"rating_kr"`
	IgdbUpdatedAt     *time.Time                  `gorm:"column:igdb_updated_at;index:idx_game_igdb_updated;comment:IGDB侧最后修改时间" json:"igdb_updated_at"`
	CreatedAt         time.Time                   `gorm:"column:created_at;comment:创建时间" json:"created_at"`
	UpdatedAt         time.Time                   `gorm:"column:updated_at;comment:更新时间" json:"updated_at"`
}

func (Game) TableName() string { return "games" }

// AssignIgdbID 仅在尚未关联时写入 IGDB ID，返回是否发生写入
func (g *Game) AssignIgdbID(id int64) bool {
	if g.IgdbID != nil || id <= 0 {
		return false
	}
	g.IgdbID = &id
	return true
}

// AssignItadID 仅在尚未关联时写入 ITAD ID，返回是否发生写入
func (g *Game) AssignItadID(id string) bool {
	if g.ItadID != nil || id == "" {
		return false
	}
	g.ItadID = &id
	return true
}

// GameSummary IGDB 摘要阶段要覆盖的可变字段
type GameSummary struct {
	TitleLocalization string
	Description       string
	Storyline         string
	Type              string
	ReleaseStatus     string
	FirstRelease      *time.Time
	Platforms         []string
	Modes             []string
	Perspectives      []string
	CoverID           string
	Hypes             int
	RatingEsrb        string
	RatingKr          string
	IgdbUpdatedAt     *time.Time
}

// ApplySummary 覆盖目录字段；本地化标题仅在非空时覆盖
func (g *Game) ApplySummary(s GameSummary) {
	if s.TitleLocalization != "" {
		g.TitleLocalization = s.TitleLocalization
	}
	g.Description = s.Description
	g.Storyline = s.Storyline
	g.Type = s.Type
	g.ReleaseStatus = s.ReleaseStatus
	g.FirstRelease = s.FirstRelease
	g.Platforms = datatypes.NewJSONSlice(nonNil(s.Platforms))
	g.Modes = datatypes.NewJSONSlice(nonNil(s.Modes))
	g.Perspectives = datatypes.NewJSONSlice(nonNil(s.Perspectives))
	g.CoverID = s.CoverID
	g.Hypes = s.Hypes
	g.RatingEsrb = s.RatingEsrb
	g.RatingKr = s.RatingKr
	g.IgdbUpdatedAt = s.IgdbUpdatedAt
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
