package model

import (
	"strings"
	"time"
)

// CurationType 榜单类型
type CurationType string

const (
	CurationWeeklyTopSeller  CurationType = "WEEKLY_TOP_SELLER"
	CurationMonthlyTop       CurationType = "MONTHLY_TOP"
	CurationYearlyTop        CurationType = "YEARLY_TOP"
	CurationConcurrentPlayer CurationType = "CONCURRENT_PLAYER"
	CurationMostPlayed       CurationType = "MOST_PLAYED"
)

// CurationTypes 全部榜单类型
var CurationTypes = []CurationType{
	CurationWeeklyTopSeller,
	CurationMonthlyTop,
	CurationYearlyTop,
	CurationConcurrentPlayer,
	CurationMostPlayed,
}

// ParseCurationType 校验并解析榜单类型（大小写不敏感，允许用 - 代替 _）
func ParseCurationType(s string) (CurationType, bool) {
	norm := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), "-", "_")
	for _, t := range CurationTypes {
		if string(t) == norm {
			return t, true
		}
	}
	return "", false
}

// Dashboard 榜单快照（只追加，不修改）
type Dashboard struct {
	ID           uint64       `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID" json:"id"`
	GameID       uint64       `gorm:"column:game_id;not null;index;comment:关联游戏ID" json:"game_id"`
	Game         *Game        `gorm:"foreignKey:GameID" json:"-"`
	CurationType CurationType `gorm:"column:curation_type;type:varchar(32);not null;index:idx_dashboard_type_ref,priority:1;comment:榜单类型" json:"curation_type"`
	Rank         int          `gorm:"column:rank;not null;comment:名次（从1开始）" json:"rank"`
	ReferenceAt  time.Time    `gorm:"column:reference_at;not null;index:idx_dashboard_type_ref,priority:2;comment:榜单基准时间" json:"reference_at"`
	CreatedAt    time.Time    `gorm:"column:created_at;comment:创建时间" json:"created_at"`
}

func (Dashboard) TableName() string { return "dashboards" }

// DashboardItem 缓存中的榜单条目
type DashboardItem struct {
	GameID        uint64       `json:"gameId"`
	Title         string       `json:"title"`
	CoverID       string       `json:"coverId"`
	CurationType  CurationType `json:"curationType"`
	Rank          int          `json:"rank"`
	OriginalPrice *int         `json:"originalPrice"`
	DiscountPrice *int         `json:"discountPrice"`
	DiscountRate  int          `json:"discountRate"`
	ReferenceAt   time.Time    `json:"referenceAt"`
}
