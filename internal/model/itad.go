package model

import "time"

type ItadShop struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type ItadAmount struct {
	Amount    float64 `json:"amount"`
	AmountInt int     `json:"amountInt"`
	Currency  string  `json:"currency"`
}

// ItadDeal 单个商店的报价
type ItadDeal struct {
	Shop     *ItadShop   `json:"shop"`
	Price    *ItadAmount `json:"price"`
	Regular  *ItadAmount `json:"regular"`
	StoreLow *ItadAmount `json:"storeLow"`
	Cut      int         `json:"cut"`
	Expiry   *time.Time  `json:"expiry"`
	URL      string      `json:"url"`
}

// ItadGamePrices /games/prices/v3 返回的单个游戏
type ItadGamePrices struct {
	ID    string     `json:"id"`
	Deals []ItadDeal `json:"deals"`
}

// ItadShopStores ITAD shop id 与内部商店枚举的映射，未列出的商店忽略
var ItadShopStores = map[int]StoreName{
	61: StoreSteam,
	16: StoreEpicGames,
	62: StoreUbisoft,
	52: StoreEA,
	48: StoreMicrosoft,
	36: StoreGreenManGaming,
	24: StoreGamersGate,
	6:  StoreFanatical,
	4:  StoreBlizzard,
}

// ItadShopIDs 价格查询时传给 shops 参数的商店列表
func ItadShopIDs() []int {
	return []int{61, 16, 62, 52, 48, 36, 24, 6, 4}
}

func amountPtr(a *ItadAmount) *int {
	if a == nil {
		return nil
	}
	v := a.AmountInt
	return &v
}

// Quote 转换为内部报价；商店缺失或未映射时返回 false
func (d ItadDeal) Quote() (PriceQuote, bool) {
	if d.Shop == nil {
		return PriceQuote{}, false
	}
	store, ok := ItadShopStores[d.Shop.ID]
	if !ok {
		return PriceQuote{}, false
	}
	q := PriceQuote{
		Store:    store,
		Current:  amountPtr(d.Price),
		Regular:  amountPtr(d.Regular),
		StoreLow: amountPtr(d.StoreLow),
		Cut:      d.Cut,
		Expiry:   d.Expiry,
		URL:      d.URL,
	}
	if !q.Valid() {
		return PriceQuote{}, false
	}
	return q, true
}
