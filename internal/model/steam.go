package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type SteamApp struct {
	AppID int64  `json:"appid"`
	Name  string `json:"name"`
}

// SteamAppPage IStoreService/GetAppList 单页
type SteamAppPage struct {
	Apps            []SteamApp `json:"apps"`
	HaveMoreResults bool       `json:"have_more_results"`
	LastAppID       int64      `json:"last_appid"`
}

// SteamReviewStats appreviews 的 query_summary
type SteamReviewStats struct {
	ReviewScore     int    `json:"review_score"`
	ReviewScoreDesc string `json:"review_score_desc"`
	TotalReviews    int    `json:"total_reviews"`
	TotalPositive   int    `json:"total_positive"`
	TotalNegative   int    `json:"total_negative"`
}

// PositiveRatio 好评占比，total 为 0 时返回 0
func (s SteamReviewStats) PositiveRatio() float64 {
	if s.TotalReviews <= 0 {
		return 0
	}
	return float64(s.TotalPositive) / float64(s.TotalReviews)
}

type SteamReviewAuthor struct {
	SteamID          string `json:"steamid"`
	PlaytimeAtReview int    `json:"playtime_at_review"`
}

type SteamReview struct {
	RecommendationID  string            `json:"recommendationid"`
	Author            SteamReviewAuthor `json:"author"`
	Review            string            `json:"review"`
	WeightedVoteScore decimal.Decimal   `json:"weighted_vote_score"`
	VotesUp           int               `json:"votes_up"`
	VotedUp           bool              `json:"voted_up"`
	TimestampCreated  int64             `json:"timestamp_created"`
}

// SteamReviewPage appreviews 单页（query_summary 只在首页出现）
type SteamReviewPage struct {
	Success      int               `json:"success"`
	QuerySummary *SteamReviewStats `json:"query_summary"`
	Reviews      []SteamReview     `json:"reviews"`
	Cursor       string            `json:"cursor"`
}

// ReviewPolarity 评论倾向
type ReviewPolarity string

const (
	ReviewPositive ReviewPolarity = "positive"
	ReviewNegative ReviewPolarity = "negative"
)

// RankEntry 榜单中的一个名次
type RankEntry struct {
	Rank  int   `json:"rank"`
	AppID int64 `json:"appid"`
}

// SteamRanking 各榜单接口统一后的结果
type SteamRanking struct {
	ReferenceAt time.Time
	Entries     []RankEntry
}
