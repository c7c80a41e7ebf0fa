package igdb

import (
	"fmt"
	"strconv"
	"strings"
)

// Query IGDB apicalypse 查询体
type Query struct {
	fields []string
	where  []string
	sort   string
	limit  int
}

func NewQuery(fields ...string) *Query {
	return &Query{fields: fields}
}

// Where 追加条件，多个条件以 & 连接
func (q *Query) Where(cond string) *Query {
	q.where = append(q.where, cond)
	return q
}

func (q *Query) Sort(sort string) *Query {
	q.sort = sort
	return q
}

func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

func (q *Query) String() string {
	var b strings.Builder
	fields := "*"
	if len(q.fields) > 0 {
		fields = strings.Join(q.fields, ",")
	}
	fmt.Fprintf(&b, "fields %s;", fields)
	if len(q.where) > 0 {
		fmt.Fprintf(&b, " where %s;", strings.Join(q.where, " & "))
	}
	if q.sort != "" {
		fmt.Fprintf(&b, " sort %s;", q.sort)
	}
	if q.limit > 0 {
		fmt.Fprintf(&b, " limit %d;", q.limit)
	}
	return b.String()
}

// idList 格式化为 (1,2,3)
func idList(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return "(" + strings.Join(parts, ",") + ")"
}

var summaryFields = []string{
	"id", "name", "summary", "storyline", "hypes", "updated_at", "first_release_date",
	"game_type.type", "game_status.status",
	"platforms.name", "game_modes.name", "player_perspectives.name",
	"cover.image_id",
	"external_games.external_game_source", "external_games.uid",
	"game_localizations.name", "game_localizations.region",
	"age_ratings.organization", "age_ratings.rating_category.rating",
}

var detailFields = []string{
	"id",
	"genres.name", "themes.name", "keywords.name",
	"involved_companies.developer", "involved_companies.publisher",
	"involved_companies.company.name", "involved_companies.company.logo.image_id",
	"involved_companies.company.websites.url", "involved_companies.company.websites.type",
	"screenshots.image_id", "screenshots.width", "screenshots.height",
	"language_supports.language.name", "language_supports.language_support_type.name",
}
