package scraper

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/alvarorichard/Gomanga/internal/models"
	"github.com/alvarorichard/Gomanga/internal/util"
	"github.com/samber/lo"
)

const (
	MangaDexName = "MangaDex"
	MangaDexBase = "https://mangadex.org"
	MangaDexAPI  = "https://api.mangadex.org"
	MangaDexCDN  = "https://uploads.mangadex.org"

	mangaDexPageSize = 12
	mangaDexLanguage = "en"
)

// MangaDexClient handles interactions with the MangaDex JSON API
type MangaDexClient struct {
	client    *util.Client
	baseURL   string
	apiBase   string
	cdnBase   string
	dataSaver bool
}

// NewMangaDexClient creates a new MangaDex client
func NewMangaDexClient(s Settings) (*MangaDexClient, error) {
	client, err := s.newClient(map[string]string{
		"Accept":          "application/json",
		"Accept-Language": "en-US,en;q=0.9",
		"Referer":         MangaDexBase,
		"Origin":          MangaDexBase,
	}, nil, false)
	if err != nil {
		return nil, err
	}
	return &MangaDexClient{
		client:    client,
		baseURL:   MangaDexBase,
		apiBase:   MangaDexAPI,
		cdnBase:   MangaDexCDN,
		dataSaver: s.MangaDexDataSaver,
	}, nil
}

func (c *MangaDexClient) Name() string      { return MangaDexName }
func (c *MangaDexClient) BaseURL() string   { return c.baseURL }
func (c *MangaDexClient) Kind() models.Kind { return models.KindManga }

// mdLocalized is a language -> text map
type mdLocalized map[string]string

func (l mdLocalized) pick(fallback string) string {
	if v := l[mangaDexLanguage]; v != "" {
		return v
	}
	keys := lo.Keys(l)
	sort.Strings(keys)
	for _, k := range keys {
		if l[k] != "" {
			return l[k]
		}
	}
	return fallback
}

type mdRelationship struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Attributes struct {
		FileName string `json:"fileName"`
		Name     string `json:"name"`
	} `json:"attributes"`
}

type mdManga struct {
	ID         string `json:"id"`
	Attributes struct {
		Title       mdLocalized `json:"title"`
		Description mdLocalized `json:"description"`
		Status      string      `json:"status"`
		Tags        []struct {
			Attributes struct {
				Name  mdLocalized `json:"name"`
				Group string      `json:"group"`
			} `json:"attributes"`
		} `json:"tags"`
	} `json:"attributes"`
	Relationships []mdRelationship `json:"relationships"`
}

type mdListResponse struct {
	Data  []mdManga `json:"data"`
	Total int       `json:"total"`
}

type mdMangaResponse struct {
	Data mdManga `json:"data"`
}

type mdAggregate struct {
	Volumes map[string]struct {
		Chapters map[string]struct {
			ID string `json:"id"`
		} `json:"chapters"`
	} `json:"volumes"`
}

type mdStatistics struct {
	Statistics map[string]struct {
		Rating struct {
			Bayesian *float64 `json:"bayesian"`
		} `json:"rating"`
	} `json:"statistics"`
}

type mdChapter struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			Volume  string `json:"volume"`
			Chapter string `json:"chapter"`
			Title   string `json:"title"`
		} `json:"attributes"`
	} `json:"data"`
}

type mdAtHome struct {
	BaseURL string `json:"baseUrl"`
	Chapter struct {
		Hash      string   `json:"hash"`
		Data      []string `json:"data"`
		DataSaver []string `json:"dataSaver"`
	} `json:"chapter"`
}

// mangadexFilters holds the search facets MangaDex understands
type mangadexFilters struct {
	ContentRating []string
	Order         string
	Status        []string
	Demographic   []string
}

func newMangadexFilters(f models.Filters) mangadexFilters {
	return mangadexFilters{
		ContentRating: f.All("content_rating"),
		Order:         f.First("order"),
		Status:        f.All("status"),
		Demographic:   f.All("publication_demographic"),
	}
}

func (f mangadexFilters) apply(q url.Values) {
	if len(f.ContentRating) > 0 {
		q["contentRating[]"] = f.ContentRating
	}
	if f.Order != "" {
		q.Del("order[followedCount]")
		q.Set(fmt.Sprintf("order[%s]", f.Order), "desc")
	}
	for _, s := range f.Status {
		q.Add("status[]", s)
	}
	for _, d := range f.Demographic {
		q.Add("publicationDemographic[]", d)
	}
}

// Filters returns the search facets MangaDex supports
func (c *MangaDexClient) Filters() []models.FilterGroup {
	return []models.FilterGroup{
		{Key: "content_rating", Label: "Content rating", Multi: true, Options: plainOptions("safe", "suggestive", "erotica", "pornographic")},
		{Key: "order", Label: "Order", Options: plainOptions("relevance", "latestUploadedChapter", "title", "rating", "followedCount")},
		{Key: "status", Label: "Status", Multi: true, Options: plainOptions("ongoing", "completed", "hiatus", "cancelled")},
		{Key: "publication_demographic", Label: "Demographic", Multi: true, Options: plainOptions("none", "shounen", "shoujo", "seinen", "josei")},
	}
}

func (c *MangaDexClient) listQuery(page int) url.Values {
	page = max(page, 1)
	return url.Values{
		"limit":                         {strconv.Itoa(mangaDexPageSize)},
		"offset":                        {strconv.Itoa((page - 1) * mangaDexPageSize)},
		"includes[]":                    {"cover_art"},
		"contentRating[]":               {"safe", "suggestive", "erotica"},
		"availableTranslatedLanguage[]": {mangaDexLanguage},
	}
}

// ListPopular lists titles by follower count
func (c *MangaDexClient) ListPopular(ctx context.Context, page int) ([]models.Title, error) {
	q := c.listQuery(page)
	q.Set("order[followedCount]", "desc")
	return c.list(ctx, q)
}

// ListLatest lists titles by latest uploaded chapter
func (c *MangaDexClient) ListLatest(ctx context.Context, page int) ([]models.Title, error) {
	q := c.listQuery(page)
	q.Set("order[latestUploadedChapter]", "desc")
	return c.list(ctx, q)
}

// Search searches titles by name and facets
func (c *MangaDexClient) Search(ctx context.Context, query string, page int, filters models.Filters) ([]models.Title, error) {
	if id, ok := directID(query); ok {
		return c.resolveDirect(ctx, id)
	}

	q := c.listQuery(page)
	if query = strings.TrimSpace(query); query != "" {
		q.Set("title", query)
	}
	newMangadexFilters(filters).apply(q)
	return c.list(ctx, q)
}

func (c *MangaDexClient) resolveDirect(ctx context.Context, id string) ([]models.Title, error) {
	resp, err := util.FetchJSON[mdMangaResponse](ctx, c.client, c.mangaURL(id)).Get()
	if err != nil {
		util.Debug("MangaDex direct lookup failed", "id", id, "error", err)
		return []models.Title{}, ctx.Err()
	}
	return []models.Title{c.toTitle(resp.Data)}, nil
}

func (c *MangaDexClient) list(ctx context.Context, q url.Values) ([]models.Title, error) {
	resp, err := util.FetchJSON[mdListResponse](ctx, c.client, util.Request{URL: c.apiBase + "/manga", Query: q}).Get()
	if err != nil {
		util.Debug("MangaDex listing failed", "error", err)
		return []models.Title{}, ctx.Err()
	}
	return lo.Map(resp.Data, func(m mdManga, _ int) models.Title { return c.toTitle(m) }), nil
}

func (c *MangaDexClient) mangaURL(id string) util.Request {
	return util.Request{
		URL:   c.apiBase + "/manga/" + url.PathEscape(id),
		Query: url.Values{"includes[]": {"cover_art", "author", "artist"}},
	}
}

// GetDetail fetches a title with its full chapter index and rating
func (c *MangaDexClient) GetDetail(ctx context.Context, id string) (models.Title, error) {
	resp, err := util.FetchJSON[mdMangaResponse](ctx, c.client, c.mangaURL(id)).Get()
	if err != nil {
		util.Debug("MangaDex detail failed", "id", id, "error", err)
		return models.ErrorTitle(id, models.KindManga), ctx.Err()
	}

	title := c.toTitle(resp.Data)

	agg := util.FetchJSON[mdAggregate](ctx, c.client, util.Request{
		URL:   fmt.Sprintf("%s/manga/%s/aggregate", c.apiBase, url.PathEscape(id)),
		Query: url.Values{"translatedLanguage[]": {mangaDexLanguage}},
	})
	if a, err := agg.Get(); err == nil {
		for _, volume := range a.Volumes {
			for number, chapter := range volume.Chapters {
				if number == "none" {
					number = "1"
				}
				title.AddUnit("Chapter "+number, chapter.ID)
			}
		}
	}
	title.UnitCount = len(title.Units)

	stats := util.FetchJSON[mdStatistics](ctx, c.client, util.Request{URL: c.apiBase + "/statistics/manga/" + url.PathEscape(id)})
	if s, err := stats.Get(); err == nil {
		if st, ok := s.Statistics[id]; ok && st.Rating.Bayesian != nil {
			title.Rating = *st.Rating.Bayesian
		}
	}

	return title, nil
}

func (c *MangaDexClient) toTitle(m mdManga) models.Title {
	t := models.NewTitle(m.ID, models.KindManga)
	t.SourceURL = c.baseURL + "/title/" + m.ID
	t.Name = m.Attributes.Title.pick("Unknown Title")
	t.Description = m.Attributes.Description.pick("No description available.")
	t.Status = NormalizeStatus(mangadexStatuses, m.Attributes.Status)

	var authors []string
	for _, rel := range m.Relationships {
		switch rel.Type {
		case "cover_art":
			if rel.Attributes.FileName != "" {
				t.Cover = fmt.Sprintf("%s/covers/%s/%s", c.cdnBase, m.ID, rel.Attributes.FileName)
			}
		case "author", "artist":
			if rel.Attributes.Name != "" {
				authors = append(authors, rel.Attributes.Name)
			}
		}
	}
	if authors = lo.Uniq(authors); len(authors) > 0 {
		t.Author = strings.Join(authors, ", ")
	}

	for _, tag := range m.Attributes.Tags {
		name := tag.Attributes.Name.pick("")
		if name == "" {
			continue
		}
		if tag.Attributes.Group == "genre" {
			t.Genres = append(t.Genres, name)
		} else {
			t.Tags = append(t.Tags, name)
		}
	}
	return t
}

// GetUnit resolves a chapter to its page images
func (c *MangaDexClient) GetUnit(ctx context.Context, id string) (models.Unit, error) {
	chapter, err := util.FetchJSON[mdChapter](ctx, c.client, util.Request{URL: c.apiBase + "/chapter/" + url.PathEscape(id)}).Get()
	if err != nil {
		util.Debug("MangaDex chapter failed", "id", id, "error", err)
		return models.ErrorUnit(id, models.KindManga), ctx.Err()
	}

	unit := models.Unit{ID: id, Kind: models.KindManga, Name: mangaDexChapterName(chapter), Pages: []string{}}

	home, err := util.FetchJSON[mdAtHome](ctx, c.client, util.Request{URL: c.apiBase + "/at-home/server/" + url.PathEscape(id)}).Get()
	if err != nil {
		util.Debug("MangaDex at-home failed", "id", id, "error", err)
		return unit, ctx.Err()
	}

	files, quality := home.Chapter.DataSaver, "data-saver"
	if !c.dataSaver || len(files) == 0 {
		files, quality = home.Chapter.Data, "data"
	}
	for _, file := range files {
		unit.Pages = append(unit.Pages, fmt.Sprintf("%s/%s/%s/%s", home.BaseURL, quality, home.Chapter.Hash, file))
	}
	return unit, nil
}

func mangaDexChapterName(ch mdChapter) string {
	attrs := ch.Data.Attributes
	var parts []string
	if attrs.Volume != "" {
		parts = append(parts, "Vol."+attrs.Volume)
	}
	if attrs.Chapter != "" {
		parts = append(parts, "Ch."+attrs.Chapter)
	}
	if attrs.Title != "" {
		if len(parts) > 0 {
			parts = append(parts, "-")
		}
		parts = append(parts, attrs.Title)
	}
	if len(parts) == 0 {
		return "Oneshot"
	}
	return strings.Join(parts, " ")
}
