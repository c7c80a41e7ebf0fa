package model

// IGDB 外部数据源 external_game_source 取值
const IgdbExternalSourceSteam = 1

// IgdbNamed IGDB 中只取 name 的关联对象
type IgdbNamed struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type IgdbImage struct {
	ID      int64  `json:"id"`
	ImageID string `json:"image_id"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

type IgdbExternalGame struct {
	ID                 int64  `json:"id"`
	ExternalGameSource int    `json:"external_game_source"`
	UID                string `json:"uid"`
}

type IgdbLocalization struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Region int    `json:"region"`
}

type IgdbAgeRating struct {
	ID             int64 `json:"id"`
	Organization   int   `json:"organization"`
	RatingCategory *struct {
		Rating string `json:"rating"`
	} `json:"rating_category"`
}

// IgdbGameSummary /games 摘要查询返回
type IgdbGameSummary struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Summary   string `json:"summary"`
	Storyline string `json:"storyline"`
	GameType  *struct {
		Type string `json:"type"`
	} `json:"game_type"`
	GameStatus *struct {
		Status string `json:"status"`
	} `json:"game_status"`
	FirstReleaseDate   *int64             `json:"first_release_date"`
	Platforms          []IgdbNamed        `json:"platforms"`
	GameModes          []IgdbNamed        `json:"game_modes"`
	PlayerPerspectives []IgdbNamed        `json:"player_perspectives"`
	Cover              *IgdbImage         `json:"cover"`
	Hypes              int                `json:"hypes"`
	UpdatedAt          int64              `json:"updated_at"`
	ExternalGames      []IgdbExternalGame `json:"external_games"`
	GameLocalizations  []IgdbLocalization `json:"game_localizations"`
	AgeRatings         []IgdbAgeRating    `json:"age_ratings"`
}

type IgdbWebsite struct {
	ID   int64  `json:"id"`
	URL  string `json:"url"`
	Type int    `json:"type"`
}

type IgdbCompany struct {
	ID       int64         `json:"id"`
	Name     string        `json:"name"`
	Logo     *IgdbImage    `json:"logo"`
	Websites []IgdbWebsite `json:"websites"`
}

type IgdbInvolvedCompany struct {
	ID        int64        `json:"id"`
	Company   *IgdbCompany `json:"company"`
	Developer bool         `json:"developer"`
	Publisher bool         `json:"publisher"`
}

type IgdbLanguageSupport struct {
	ID                  int64      `json:"id"`
	Language            *IgdbNamed `json:"language"`
	LanguageSupportType *IgdbNamed `json:"language_support_type"`
}

// IgdbGameDetail /games 详情查询返回
type IgdbGameDetail struct {
	ID                int64                 `json:"id"`
	Genres            []IgdbNamed           `json:"genres"`
	Themes            []IgdbNamed           `json:"themes"`
	Keywords          []IgdbNamed           `json:"keywords"`
	InvolvedCompanies []IgdbInvolvedCompany `json:"involved_companies"`
	Screenshots       []IgdbImage           `json:"screenshots"`
	LanguageSupports  []IgdbLanguageSupport `json:"language_supports"`
}

// IgdbToken Twitch OAuth 返回
type IgdbToken struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}
