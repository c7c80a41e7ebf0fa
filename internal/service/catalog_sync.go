package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"GameSync/internal/adapter/igdb"
	"GameSync/internal/config"
	"GameSync/internal/cursor"
	"GameSync/internal/interfaces"
	"GameSync/internal/model"
	"GameSync/internal/repository"
	"GameSync/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

const (
	// 本地化标题优先取的 IGDB 地区（韩国）
	localizationRegion = 2
	// 年龄分级机构：ESRB（全球）与 GRAC（韩国）
	ratingOrgESRB = 1
	ratingOrgGRAC = 5
)

// CatalogSyncService IGDB 目录同步：游标翻页 + 摘要/详情两阶段入库
type CatalogSyncService struct {
	store     *repository.Store
	collector interfaces.CatalogCollector
	cfg       config.IGDBSyncConfig
	logger    *logrus.Logger
	sleep     sleepFunc
}

func NewCatalogSyncService(store *repository.Store, collector interfaces.CatalogCollector, cfg config.IGDBSyncConfig, logger *logrus.Logger) *CatalogSyncService {
	if cfg.PageSize <= 0 || cfg.PageSize > igdb.MaxBatch {
		cfg.PageSize = igdb.MaxBatch
	}
	return &CatalogSyncService{
		store:     store,
		collector: collector,
		cfg:       cfg,
		logger:    logger,
	}
}

// BatchResult 一批摘要的处理结果
type BatchResult struct {
	Matched  int // 摘要阶段命中并保存的游戏数
	Enriched int // 详情阶段补全的游戏数
}

// Backfill 全量回填：从已关联的最大 IGDB id 之后按 id 升序翻页
func (s *CatalogSyncService) Backfill(ctx context.Context) {
	runJob(ctx, s.logger, "igdb_backfill", func(ctx context.Context, log *logrus.Entry) error {
		seed, err := s.store.Games().MaxIgdbID(ctx)
		if err != nil {
			return fmt.Errorf("查询最大IGDB id失败: %w", err)
		}
		log.WithField("seed", seed).Info("IGDB全量回填起点")
		w := s.walker("igdb_backfill", func(ctx context.Context, after int64) ([]model.IgdbGameSummary, error) {
			return s.collector.FetchByIDAfter(ctx, after, s.cfg.PageSize)
		}, func(last model.IgdbGameSummary) int64 { return last.ID })
		res := w.Walk(ctx, seed)
		log.WithFields(logrus.Fields{"cursor": res.Cursor, "pages": res.Pages, "items": res.Items}).Info("IGDB全量回填结束")
		return res.Err
	})
}

// SyncUpdated 增量同步：从已同步的最大 IGDB 修改时间起按 updated_at 升序翻页
func (s *CatalogSyncService) SyncUpdated(ctx context.Context) {
	runJob(ctx, s.logger, "igdb_incremental", func(ctx context.Context, log *logrus.Entry) error {
		maxUpdated, err := s.store.Games().MaxIgdbUpdatedAt(ctx)
		if err != nil {
			return fmt.Errorf("查询最大IGDB修改时间失败: %w", err)
		}
		var seed int64
		if maxUpdated != nil {
			seed = maxUpdated.Unix()
		}
		log.WithField("seed", seed).Info("IGDB增量同步起点")
		w := s.walker("igdb_incremental", func(ctx context.Context, since int64) ([]model.IgdbGameSummary, error) {
			return s.collector.FetchByUpdatedSince(ctx, since, s.cfg.PageSize)
		}, func(last model.IgdbGameSummary) int64 { return last.UpdatedAt })
		res := w.Walk(ctx, seed)
		log.WithFields(logrus.Fields{"cursor": res.Cursor, "pages": res.Pages, "items": res.Items}).Info("IGDB增量同步结束")
		return res.Err
	})
}

func (s *CatalogSyncService) walker(
	name string,
	fetch func(ctx context.Context, c int64) ([]model.IgdbGameSummary, error),
	next func(last model.IgdbGameSummary) int64,
) *cursor.Walker[int64, model.IgdbGameSummary] {
	return &cursor.Walker[int64, model.IgdbGameSummary]{
		Name:  name,
		Fetch: fetch,
		Next:  next,
		Handle: func(ctx context.Context, page []model.IgdbGameSummary) {
			s.ProcessBatch(ctx, page)
		},
		Interval:    s.cfg.PageInterval,
		Backoff:     s.cfg.ErrorBackoff,
		MaxRetries:  s.cfg.MaxRetries,
		IsTransient: httpclient.IsTransient,
		Logger:      s.logger,
		Sleep:       s.sleep,
	}
}

// ProcessBatch 两阶段处理一页摘要。摘要阶段失败则整批放弃；详情阶段失败只记录，不回滚摘要。
func (s *CatalogSyncService) ProcessBatch(ctx context.Context, summaries []model.IgdbGameSummary) BatchResult {
	var res BatchResult
	if len(summaries) == 0 {
		return res
	}
	log := s.logger.WithFields(logrus.Fields{
		"first_igdb_id": summaries[0].ID,
		"batch_size":    len(summaries),
	})

	games, err := s.upsertSummaries(ctx, log, summaries)
	if err != nil {
		log.WithError(err).WithField("phase", "summary").Error("摘要阶段入库失败，放弃本批")
		return res
	}
	res.Matched = len(games)
	if len(games) == 0 {
		return res
	}

	enriched, err := s.enrichDetails(ctx, log, games)
	if err != nil {
		log.WithError(err).WithField("phase", "detail").Error("详情阶段入库失败，摘要已保留")
		return res
	}
	res.Enriched = enriched
	return res
}

// upsertSummaries 摘要阶段：按 Steam appid 匹配已有游戏，写入 IGDB id 并覆盖目录字段
func (s *CatalogSyncService) upsertSummaries(ctx context.Context, log *logrus.Entry, summaries []model.IgdbGameSummary) ([]*model.Game, error) {
	byApp := make(map[string]*model.IgdbGameSummary, len(summaries))
	appIDs := make([]string, 0, len(summaries))
	igdbIDs := make([]int64, 0, len(summaries))
	for i := range summaries {
		sum := &summaries[i]
		appID := steamAppID(sum)
		if appID == "" {
			continue
		}
		if _, ok := byApp[appID]; !ok {
			appIDs = append(appIDs, appID)
		}
		byApp[appID] = sum
		igdbIDs = append(igdbIDs, sum.ID)
	}
	if len(appIDs) == 0 {
		return nil, nil
	}

	var saved []*model.Game
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		listings, err := tx.StoreDetails().FindSteamByAppIDs(ctx, appIDs)
		if err != nil {
			return fmt.Errorf("按appid查询上架信息失败: %w", err)
		}
		owned, err := tx.Games().FindByIgdbIDs(ctx, igdbIDs)
		if err != nil {
			return fmt.Errorf("按IGDB id查询游戏失败: %w", err)
		}
		owners := make(map[int64]uint64, len(owned))
		for _, g := range owned {
			owners[*g.IgdbID] = g.ID
		}

		done := make(map[uint64]bool, len(listings))
		for _, l := range listings {
			if l.Game == nil || l.StoreAppID == nil || done[l.GameID] {
				continue
			}
			sum := byApp[*l.StoreAppID]
			if sum == nil {
				continue
			}
			g := l.Game
			if owner, ok := owners[sum.ID]; ok && owner != g.ID {
				log.WithFields(logrus.Fields{"game_id": g.ID, "igdb_id": sum.ID, "owner": owner}).
					Warn("IGDB id已关联到其他游戏，跳过")
				continue
			}
			if g.AssignIgdbID(sum.ID) {
				owners[sum.ID] = g.ID
			}
			if *g.IgdbID != sum.ID {
				// 已关联到另一个 IGDB 条目，不用这条摘要覆盖
				continue
			}
			g.ApplySummary(toGameSummary(sum))
			if err := tx.Games().Save(ctx, g); err != nil {
				return fmt.Errorf("保存游戏失败(game_id=%d): %w", g.ID, err)
			}
			done[g.ID] = true
			saved = append(saved, g)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

type companyLink struct {
	gameID    uint64
	name      string
	developer bool
	publisher bool
}

// enrichDetails 详情阶段：标签 upsert，公司/截图/语言按游戏整体替换
func (s *CatalogSyncService) enrichDetails(ctx context.Context, log *logrus.Entry, games []*model.Game) (int, error) {
	byIgdb := make(map[int64]*model.Game, len(games))
	ids := make([]int64, 0, len(games))
	for _, g := range games {
		if g.IgdbID == nil {
			continue
		}
		byIgdb[*g.IgdbID] = g
		ids = append(ids, *g.IgdbID)
	}

	var details []model.IgdbGameDetail
	for _, part := range chunk(ids, igdb.MaxBatch) {
		d, err := s.collector.FetchDetails(ctx, part)
		if err != nil {
			log.WithError(err).WithField("ids", len(part)).Warn("拉取IGDB详情失败，跳过该分片")
			continue
		}
		details = append(details, d...)
	}
	if len(details) == 0 {
		return 0, nil
	}

	var (
		gameIDs     []uint64
		tags        []*model.Tag
		screenshots []*model.Screenshot
		languages   []*model.LanguageSupport
		links       []*companyLink
		companies   = map[string]*model.Company{}
		companyKeys []string
	)
	linkIndex := map[string]*companyLink{}
	seen := map[uint64]bool{}
	for i := range details {
		det := &details[i]
		g := byIgdb[det.ID]
		if g == nil || seen[g.ID] {
			continue
		}
		seen[g.ID] = true
		gameIDs = append(gameIDs, g.ID)

		tags = append(tags, &model.Tag{
			GameID:   g.ID,
			Genres:   datatypes.NewJSONSlice(namesOf(det.Genres)),
			Themes:   datatypes.NewJSONSlice(namesOf(det.Themes)),
			Keywords: datatypes.NewJSONSlice(namesOf(det.Keywords)),
		})
		for _, shot := range det.Screenshots {
			if isBlank(shot.ImageID) {
				continue
			}
			screenshots = append(screenshots, &model.Screenshot{
				GameID:  g.ID,
				ImageID: shot.ImageID,
				Width:   shot.Width,
				Height:  shot.Height,
			})
		}
		languages = append(languages, foldLanguages(g.ID, det.LanguageSupports)...)

		for _, ic := range det.InvolvedCompanies {
			if ic.Company == nil || isBlank(ic.Company.Name) {
				continue
			}
			name := strings.TrimSpace(ic.Company.Name)
			if _, ok := companies[name]; !ok {
				companies[name] = companyOf(name, ic.Company)
				companyKeys = append(companyKeys, name)
			}
			key := fmt.Sprintf("%d|%s", g.ID, name)
			if l, ok := linkIndex[key]; ok {
				l.developer = l.developer || ic.Developer
				l.publisher = l.publisher || ic.Publisher
				continue
			}
			l := &companyLink{gameID: g.ID, name: name, developer: ic.Developer, publisher: ic.Publisher}
			linkIndex[key] = l
			links = append(links, l)
		}
	}

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		sat := tx.Satellites()
		if err := sat.UpsertTags(ctx, tags); err != nil {
			return fmt.Errorf("保存标签失败: %w", err)
		}

		companyIDs, err := resolveCompanies(ctx, sat, companyKeys, companies)
		if err != nil {
			return err
		}
		gameCompanies := make([]*model.GameCompany, 0, len(links))
		for _, l := range links {
			id, ok := companyIDs[l.name]
			if !ok {
				continue
			}
			gameCompanies = append(gameCompanies, &model.GameCompany{
				GameID:      l.gameID,
				CompanyID:   id,
				IsDeveloper: l.developer,
				IsPublisher: l.publisher,
			})
		}
		if err := sat.ReplaceGameCompanies(ctx, gameIDs, gameCompanies); err != nil {
			return fmt.Errorf("替换公司关联失败: %w", err)
		}
		if err := sat.ReplaceScreenshots(ctx, gameIDs, screenshots); err != nil {
			return fmt.Errorf("替换截图失败: %w", err)
		}
		if err := sat.ReplaceLanguageSupports(ctx, gameIDs, languages); err != nil {
			return fmt.Errorf("替换语言支持失败: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(gameIDs), nil
}

// resolveCompanies 按名称查已有公司，缺失的新建，返回 名称 -> id
func resolveCompanies(ctx context.Context, sat repository.SatelliteRepository, names []string, candidates map[string]*model.Company) (map[string]uint64, error) {
	ids := make(map[string]uint64, len(names))
	if len(names) == 0 {
		return ids, nil
	}
	existing, err := sat.FindCompaniesByNames(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("查询公司失败: %w", err)
	}
	for _, c := range existing {
		ids[c.Name] = c.ID
	}
	var missing []*model.Company
	for _, name := range names {
		if _, ok := ids[name]; !ok {
			missing = append(missing, candidates[name])
		}
	}
	if len(missing) == 0 {
		return ids, nil
	}
	if err := sat.CreateCompanies(ctx, missing); err != nil {
		return nil, fmt.Errorf("新建公司失败: %w", err)
	}
	created, err := sat.FindCompaniesByNames(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("查询公司失败: %w", err)
	}
	for _, c := range created {
		ids[c.Name] = c.ID
	}
	return ids, nil
}

func companyOf(name string, c *model.IgdbCompany) *model.Company {
	company := &model.Company{Name: name}
	if c.Logo != nil {
		company.Logo = c.Logo.ImageID
	}
	for _, w := range c.Websites {
		if isBlank(w.URL) {
			continue
		}
		// type 1 为官网
		if w.Type == 1 {
			company.URL = w.URL
			break
		}
		if company.URL == "" {
			company.URL = w.URL
		}
	}
	return company
}

// foldLanguages 把每种语言的支持类型聚合成配音/字幕/界面三个布尔值
func foldLanguages(gameID uint64, supports []model.IgdbLanguageSupport) []*model.LanguageSupport {
	var order []string
	tokens := map[string]map[string]bool{}
	for _, ls := range supports {
		if ls.Language == nil || isBlank(ls.Language.Name) {
			continue
		}
		name := strings.TrimSpace(ls.Language.Name)
		set, ok := tokens[name]
		if !ok {
			set = map[string]bool{}
			tokens[name] = set
			order = append(order, name)
		}
		if ls.LanguageSupportType != nil {
			set[strings.TrimSpace(ls.LanguageSupportType.Name)] = true
		}
	}
	out := make([]*model.LanguageSupport, 0, len(order))
	for _, name := range order {
		set := tokens[name]
		out = append(out, &model.LanguageSupport{
			GameID:           gameID,
			Language:         name,
			VoiceSupport:     set["Audio"],
			SubtitleSupport:  set["Subtitles"],
			InterfaceSupport: set["Interface"],
		})
	}
	return out
}

// steamAppID 取第一个 Steam 来源的外部 id
func steamAppID(s *model.IgdbGameSummary) string {
	for _, ext := range s.ExternalGames {
		if ext.ExternalGameSource == model.IgdbExternalSourceSteam && !isBlank(ext.UID) {
			return strings.TrimSpace(ext.UID)
		}
	}
	return ""
}

func toGameSummary(s *model.IgdbGameSummary) model.GameSummary {
	gs := model.GameSummary{
		Description:  s.Summary,
		Storyline:    s.Storyline,
		Hypes:        s.Hypes,
		Platforms:    namesOf(s.Platforms),
		Modes:        namesOf(s.GameModes),
		Perspectives: namesOf(s.PlayerPerspectives),
	}
	if s.GameType != nil {
		gs.Type = s.GameType.Type
	}
	if s.GameStatus != nil {
		gs.ReleaseStatus = s.GameStatus.Status
	}
	if s.FirstReleaseDate != nil {
		t := time.Unix(*s.FirstReleaseDate, 0).UTC()
		gs.FirstRelease = &t
	}
	if s.Cover != nil {
		gs.CoverID = s.Cover.ImageID
	}
	if s.UpdatedAt > 0 {
		t := time.Unix(s.UpdatedAt, 0).UTC()
		gs.IgdbUpdatedAt = &t
	}
	for _, loc := range s.GameLocalizations {
		if loc.Region == localizationRegion && !isBlank(loc.Name) {
			gs.TitleLocalization = strings.TrimSpace(loc.Name)
			break
		}
	}
	gs.RatingEsrb, gs.RatingKr = ageRatings(s.AgeRatings)
	return gs
}

// ageRatings 每个机构取第一个有效评级，两个都找到即停止
func ageRatings(ratings []model.IgdbAgeRating) (esrb, kr string) {
	for _, r := range ratings {
		if r.RatingCategory == nil || isBlank(r.RatingCategory.Rating) {
			continue
		}
		switch r.Organization {
		case ratingOrgESRB:
			if esrb == "" {
				esrb = r.RatingCategory.Rating
			}
		case ratingOrgGRAC:
			if kr == "" {
				kr = r.RatingCategory.Rating
			}
		}
		if esrb != "" && kr != "" {
			break
		}
	}
	return esrb, kr
}

func namesOf(items []model.IgdbNamed) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if isBlank(it.Name) {
			continue
		}
		out = append(out, strings.TrimSpace(it.Name))
	}
	return out
}
