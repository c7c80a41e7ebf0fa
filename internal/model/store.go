package model

import (
	"strings"
	"time"
)

// StoreName 商店枚举
type StoreName string

const (
	StoreSteam          StoreName = "STEAM"
	StoreEpicGames      StoreName = "EPIC_GAMES_STORE"
	StoreUbisoft        StoreName = "UBISOFT_STORE"
	StoreEA             StoreName = "EA_STORE"
	StoreMicrosoft      StoreName = "MICROSOFT_STORE"
	StoreGreenManGaming StoreName = "GREEN_MAN_GAMING"
	StoreGamersGate     StoreName = "GAMERSGATE"
	StoreFanatical      StoreName = "FANATICAL"
	StoreBlizzard       StoreName = "BLIZZARD"
)

// StoreDetail 游戏在某商店的上架信息与价格（game_id + store_name 唯一）
type StoreDetail struct {
	ID            uint64     `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID" json:"id"`
	GameID        uint64     `gorm:"column:game_id;not null;uniqueIndex:uk_store_detail_game_store,priority:1;comment:关联游戏ID" json:"game_id"`
	Game          *Game      `gorm:"foreignKey:GameID" json:"-"`
	StoreName     StoreName  `gorm:"column:store_name;type:varchar(32);not null;uniqueIndex:uk_store_detail_game_store,priority:2;index:idx_store_detail_app,priority:1;comment:商店名" json:"store_name"`
	StoreAppID    *string    `gorm:"column:store_app_id;type:varchar(64);index:idx_store_detail_app,priority:2;comment:商店侧商品ID" json:"store_app_id"`
	URL           string     `gorm:"column:url;type:varchar(1024);comment:商品页链接" json:"url"`
	OriginalPrice *int       `gorm:"column:original_price;comment:原价" json:"original_price"`
	DiscountPrice *int       `gorm:"column:discount_price;comment:折扣价（无折扣时为空）" json:"discount_price"`
	HistoricalLow *int       `gorm:"column:historical_low;comment:史低价" json:"historical_low"`
	DiscountRate  int        `gorm:"column:discount_rate;not null;default:0;comment:折扣率（百分比）" json:"discount_rate"`
	ExpiryDate    *time.Time `gorm:"column:expiry_date;comment:折扣截止时间（无折扣时为空）" json:"expiry_date"`
	CreatedAt     time.Time  `gorm:"column:created_at;comment:创建时间" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;comment:更新时间" json:"updated_at"`
}

func (StoreDetail) TableName() string { return "store_details" }

// PriceQuote 某商店的一条报价（已映射到内部商店枚举）
type PriceQuote struct {
	Store    StoreName
	Current  *int
	Regular  *int
	StoreLow *int
	Cut      int
	Expiry   *time.Time
	URL      string
}

// Valid 现价与原价都缺失的报价无法落库
func (q PriceQuote) Valid() bool {
	return q.Current != nil || q.Regular != nil
}

// ApplyQuote 按价格规则计算新值，与当前行逐字段比较；全部相同则不修改并返回 false。
// 新建行（ID 为 0）总是返回 true。
func (d *StoreDetail) ApplyQuote(q PriceQuote) bool {
	var (
		original *int
		discount *int
		expiry   *time.Time
		rate     int
	)
	if q.Cut > 0 {
		original = firstNonNil(q.Regular, q.Current)
		discount = q.Current
		rate = q.Cut
		expiry = q.Expiry
	} else {
		original = firstNonNil(q.Current, q.Regular)
	}

	url := q.URL
	if d.StoreName == StoreSteam && strings.TrimSpace(d.URL) != "" {
		url = d.URL
	}

	if d.ID != 0 &&
		equalInt(d.OriginalPrice, original) &&
		equalInt(d.HistoricalLow, q.StoreLow) &&
		equalInt(d.DiscountPrice, discount) &&
		equalTime(d.ExpiryDate, expiry) &&
		d.DiscountRate == rate &&
		d.URL == url {
		return false
	}

	d.OriginalPrice = original
	d.HistoricalLow = q.StoreLow
	d.DiscountPrice = discount
	d.DiscountRate = rate
	d.ExpiryDate = expiry
	d.URL = url
	return true
}

func firstNonNil(a, b *int) *int {
	if a != nil {
		return a
	}
	return b
}

func equalInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// equalTime 比较到秒，数据库存储精度与上游不一致
func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Truncate(time.Second).Equal(b.Truncate(time.Second))
}
