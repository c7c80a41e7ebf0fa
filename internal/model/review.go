package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReviewStat 游戏评论汇总（每个游戏一行，每次轮询覆盖）
type ReviewStat struct {
	GameID          uint64    `gorm:"column:game_id;primaryKey;autoIncrement:false;comment:关联游戏ID" json:"game_id"`
	ReviewScore     int       `gorm:"column:review_score;comment:评分档位" json:"review_score"`
	ReviewScoreDesc string    `gorm:"column:review_score_desc;type:varchar(64);comment:评分描述" json:"review_score_desc"`
	TotalReview     int       `gorm:"column:total_review;comment:评论总数" json:"total_review"`
	TotalPositive   int       `gorm:"column:total_positive;comment:好评数" json:"total_positive"`
	TotalNegative   int       `gorm:"column:total_negative;comment:差评数" json:"total_negative"`
	CreatedAt       time.Time `gorm:"column:created_at;comment:创建时间" json:"created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at;index:idx_review_stat_updated;comment:更新时间" json:"updated_at"`
}

func (ReviewStat) TableName() string { return "review_stats" }

// Review 采样评论（game_id + recommendation_id 唯一，只插入不更新）
type Review struct {
	ID                uint64          `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID" json:"id"`
	GameID            uint64          `gorm:"column:game_id;not null;uniqueIndex:uk_review_game_recommendation,priority:1;comment:关联游戏ID" json:"game_id"`
	RecommendationID  string          `gorm:"column:recommendation_id;type:varchar(32);not null;uniqueIndex:uk_review_game_recommendation,priority:2;comment:Steam评论ID" json:"recommendation_id"`
	PlaytimeAtReview  int             `gorm:"column:playtime_at_review;comment:评论时游玩时长（分钟）" json:"playtime_at_review"`
	WeightedVoteScore decimal.Decimal `gorm:"column:weighted_vote_score;type:numeric(5,2);comment:有用度加权分" json:"weighted_vote_score"`
	ReviewText        string          `gorm:"column:review_text;type:text;comment:评论内容" json:"review_text"`
	VotesUp           int             `gorm:"column:votes_up;comment:有用票数" json:"votes_up"`
	VotedUp           bool            `gorm:"column:voted_up;comment:是否好评" json:"voted_up"`
	WrittenAt         *time.Time      `gorm:"column:written_at;comment:评论发表时间" json:"written_at"`
	CreatedAt         time.Time       `gorm:"column:created_at;comment:创建时间" json:"created_at"`
}

func (Review) TableName() string { return "reviews" }
