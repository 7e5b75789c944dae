package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/alvarorichard/Gomanga/internal/models"
	"github.com/alvarorichard/Gomanga/internal/util"
	"github.com/samber/lo"
)

const (
	ComickName   = "Comick"
	ComickBase   = "https://comick.io"
	ComickAPI    = "https://api.comick.fun"
	ComickCovers = "https://meo.comick.pictures"

	comickSearchLimit  = 300
	comickListLimit    = 49
	comickChapterLimit = 99999
	comickLanguage     = "en"
	comickWorkers      = 3
	comickAttempts     = 3
)

var (
	comickMarkdownLink = regexp.MustCompile(`\[([^]]+)]\(([^)]+)\)`)
	comickBold         = regexp.MustCompile(`\*+\s*([^*]*)\s*\*+`)
	comickItalic       = regexp.MustCompile(`_+\s*([^_]*)\s*_+`)
)

// ComickClient talks to the Comick JSON API
type ComickClient struct {
	client   *util.Client
	baseURL  string
	apiBase  string
	coverCDN string
	maxPages int
}

// NewComickClient creates a new Comick client
func NewComickClient(s Settings) (*ComickClient, error) {
	s.HTTP.Retries = max(s.HTTP.Retries, comickAttempts-1)
	client, err := s.newClient(map[string]string{
		"Referer":         ComickBase + "/",
		"Origin":          ComickBase,
		"Accept":          "application/json, text/plain, */*",
		"Accept-Language": "en-US,en;q=0.9",
	}, nil, true)
	if err != nil {
		return nil, err
	}
	return &ComickClient{
		client:   client,
		baseURL:  ComickBase,
		apiBase:  ComickAPI,
		coverCDN: ComickCovers,
		maxPages: s.maxPages(),
	}, nil
}

func (c *ComickClient) Name() string      { return ComickName }
func (c *ComickClient) BaseURL() string   { return c.baseURL }
func (c *ComickClient) Kind() models.Kind { return models.KindManga }

type comickCover struct {
	B2Key string `json:"b2key"`
	Vol   string `json:"vol"`
}

type comickSearchItem struct {
	HID                  string        `json:"hid"`
	Slug                 string        `json:"slug"`
	Title                string        `json:"title"`
	Desc                 string        `json:"desc"`
	CoverURL             string        `json:"cover_url"`
	Covers               []comickCover `json:"md_covers"`
	Status               int           `json:"status"`
	TranslationCompleted bool          `json:"translation_completed"`
	Rating               json.Number   `json:"bayesian_rating"`
}

type comickNamed struct {
	Name  string `json:"name"`
	Group string `json:"group"`
}

type comickGenreLink struct {
	Genre comickNamed `json:"md_genres"`
}

type comickDetail struct {
	Comic struct {
		comickSearchItem
		Country string            `json:"country"`
		Genres  []comickGenreLink `json:"md_comic_md_genres"`
	} `json:"comic"`
	Authors     []comickNamed `json:"authors"`
	Artists     []comickNamed `json:"artists"`
	Genres      []comickNamed `json:"genres"`
	Demographic string        `json:"demographic"`
}

type comickChapter struct {
	HID       string   `json:"hid"`
	Chap      string   `json:"chap"`
	Vol       string   `json:"vol"`
	Title     string   `json:"title"`
	Lang      string   `json:"lang"`
	PublishAt string   `json:"publish_at"`
	Groups    []string `json:"group_name"`
}

type comickChapterList struct {
	Chapters []comickChapter `json:"chapters"`
}

type comickPages struct {
	Chapter struct {
		Chap   string `json:"chap"`
		Vol    string `json:"vol"`
		Title  string `json:"title"`
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
	} `json:"chapter"`
}

// comickFilters holds the /v1.0/search parameters
type comickFilters struct {
	Sort          string
	Country       []string
	Demographic   []string
	Status        string
	ContentRating string
	Completed     bool
	Time          string
	Minimum       string
	From          string
	To            string
	Genres        []string
	Excludes      []string
	Tags          []string
	ExcludedTags  []string
}

func newComickFilters(f models.Filters) comickFilters {
	return comickFilters{
		Sort:          f.First("sort"),
		Country:       f.All("country"),
		Demographic:   f.All("demographic"),
		Status:        f.First("status"),
		ContentRating: f.First("content_rating"),
		Completed:     lo.Contains([]string{"true", "1", "yes"}, strings.ToLower(f.First("completed"))),
		Time:          f.First("time"),
		Minimum:       f.First("minimum"),
		From:          f.First("from"),
		To:            f.First("to"),
		Genres:        f.All("genres"),
		Excludes:      f.All("excludes"),
		Tags:          lo.Map(f.All("tags"), func(t string, _ int) string { return EncodeTag(t) }),
		ExcludedTags:  lo.Map(f.All("excluded_tags"), func(t string, _ int) string { return EncodeTag(t) }),
	}
}

func (f comickFilters) apply(q url.Values) {
	set := func(key, value string) {
		if value != "" {
			q.Set(key, value)
		}
	}
	add := func(key string, values []string) {
		for _, v := range values {
			q.Add(key, v)
		}
	}

	set("sort", f.Sort)
	add("country", f.Country)
	add("demographic", f.Demographic)
	set("status", f.Status)
	set("content_rating", f.ContentRating)
	if f.Completed {
		q.Set("completed", "true")
	}
	set("time", f.Time)
	set("minimum", f.Minimum)
	set("from", f.From)
	set("to", f.To)
	add("genres", f.Genres)
	add("excludes", f.Excludes)
	add("tags", f.Tags)
	add("excluded-tags", f.ExcludedTags)
}

// Filters returns the search facets Comick supports
func (c *ComickClient) Filters() []models.FilterGroup {
	genres := labeledOptions(
		"Action", "action", "Adventure", "adventure", "Comedy", "comedy", "Drama", "drama",
		"Fantasy", "fantasy", "Historical", "historical", "Horror", "horror", "Isekai", "isekai",
		"Martial Arts", "martial-arts", "Mystery", "mystery", "Psychological", "psychological",
		"Reincarnation", "reincarnation", "Romance", "romance", "School Life", "school-life",
		"Sci-Fi", "sci-fi", "Slice of Life", "slice-of-life", "Sports", "sports",
		"Supernatural", "supernatural", "Thriller", "thriller", "Tragedy", "tragedy",
	)
	return []models.FilterGroup{
		{Key: "sort", Label: "Sort", Options: labeledOptions(
			"Most popular", "follow", "Most follows", "user_follow_count", "Most views", "view",
			"High rating", "rating", "Last updated", "uploaded", "Newest", "created_at",
		)},
		{Key: "country", Label: "Type", Multi: true, Options: labeledOptions("Manga", "jp", "Manhwa", "kr", "Manhua", "cn", "Others", "others")},
		{Key: "demographic", Label: "Demographic", Multi: true, Options: labeledOptions("Shounen", "1", "Shoujo", "2", "Seinen", "3", "Josei", "4", "None", "5")},
		{Key: "status", Label: "Status", Options: labeledOptions("All", "0", "Ongoing", "1", "Completed", "2", "Cancelled", "3", "Hiatus", "4")},
		{Key: "content_rating", Label: "Content rating", Options: labeledOptions("All", "", "Safe", "safe", "Suggestive", "suggestive", "Erotica", "erotica")},
		{Key: "completed", Label: "Completely scanlated", Options: plainOptions("true")},
		{Key: "time", Label: "Created at", Options: labeledOptions(
			"Any time", "", "3 days", "3", "7 days", "7", "30 days", "30", "3 months", "90", "6 months", "180", "1 year", "365",
		)},
		{Key: "minimum", Label: "Minimum chapters"},
		{Key: "from", Label: "From year", Options: yearOptions(time.Now().Year(), 1990)},
		{Key: "to", Label: "To year", Options: yearOptions(time.Now().Year(), 1990)},
		{Key: "genres", Label: "Genres", Multi: true, Options: genres},
		{Key: "excludes", Label: "Excluded genres", Multi: true, Options: genres},
		{Key: "tags", Label: "Tags", Multi: true},
		{Key: "excluded_tags", Label: "Excluded tags", Multi: true},
	}
}

// ListPopular lists comics by follow count
func (c *ComickClient) ListPopular(ctx context.Context, page int) ([]models.Title, error) {
	return c.list(ctx, "follow", page)
}

// ListLatest lists comics by last upload
func (c *ComickClient) ListLatest(ctx context.Context, page int) ([]models.Title, error) {
	return c.list(ctx, "uploaded", page)
}

func (c *ComickClient) list(ctx context.Context, sortBy string, page int) ([]models.Title, error) {
	items, err := c.search(ctx, url.Values{
		"sort":  {sortBy},
		"page":  {strconv.Itoa(page)},
		"limit": {strconv.Itoa(comickListLimit)},
	})
	if err != nil {
		util.Debug("Comick listing failed", "sort", sortBy, "error", err)
		return []models.Title{}, ctx.Err()
	}
	return lo.Map(items, func(item comickSearchItem, _ int) models.Title { return c.toTitle(item) }), nil
}

// Search resolves id: lookups, runs a single text search, or walks filtered pages
func (c *ComickClient) Search(ctx context.Context, query string, page int, filters models.Filters) ([]models.Title, error) {
	if id, ok := directID(query); ok {
		t, err := c.GetDetail(ctx, id)
		return single(t), err
	}

	if query = strings.TrimSpace(query); query != "" {
		items, err := c.search(ctx, url.Values{
			"q":     {query},
			"page":  {strconv.Itoa(page)},
			"limit": {strconv.Itoa(comickSearchLimit)},
		})
		if err != nil {
			util.Debug("Comick search failed", "query", query, "error", err)
			return []models.Title{}, ctx.Err()
		}
		return lo.Map(items, func(item comickSearchItem, _ int) models.Title { return c.toTitle(item) }), nil
	}

	f := newComickFilters(filters)
	loop := PageLoop{Start: page, PageSize: comickSearchLimit, MaxPages: c.maxPages}
	items, err := PaginateParallel(ctx, loop, comickWorkers, func(ctx context.Context, p int) (PageResult[comickSearchItem], error) {
		q := url.Values{"page": {strconv.Itoa(p)}, "limit": {strconv.Itoa(comickSearchLimit)}}
		f.apply(q)
		found, err := c.search(ctx, q)
		if err != nil {
			return PageResult[comickSearchItem]{}, err
		}
		return PageResult[comickSearchItem]{Items: found, HasNext: len(found) > 0}, nil
	})
	if err != nil {
		util.Debug("Comick filtered search stopped early", "results", len(items), "error", err)
	}
	if len(items) == 0 {
		return []models.Title{}, ctx.Err()
	}
	return lo.Map(items, func(item comickSearchItem, _ int) models.Title { return c.toTitle(item) }), nil
}

func (c *ComickClient) search(ctx context.Context, q url.Values) ([]comickSearchItem, error) {
	q.Set("tachiyomi", "true")
	return util.FetchJSON[[]comickSearchItem](ctx, c.client, util.Request{URL: c.apiBase + "/v1.0/search", Query: q}).Get()
}

func (c *ComickClient) toTitle(item comickSearchItem) models.Title {
	t := models.NewTitle(item.HID, models.KindManga)
	t.Name = lo.CoalesceOrEmpty(item.Title, "Unknown")
	t.SourceURL = c.baseURL + "/comic/" + lo.CoalesceOrEmpty(item.Slug, item.HID)
	t.Cover = c.cover(item.CoverURL, item.Covers)
	t.Description = comickDescription(item.Desc)
	t.Status = comickStatus(item.Status)
	if rating, err := item.Rating.Float64(); err == nil {
		t.Rating = rating
	}
	return t
}

func (c *ComickClient) cover(fallback string, covers []comickCover) string {
	for _, cv := range covers {
		if cv.B2Key != "" {
			return c.coverCDN + "/" + cv.B2Key
		}
	}
	return fallback
}

// comickStatus maps the numeric status; publication-complete counts as Completed
func comickStatus(code int) models.Status {
	return NormalizeStatus(comickStatuses, strconv.Itoa(code))
}

// comickDescription unescapes entities, drops everything after a "---" rule and
// flattens markdown links and emphasis
func comickDescription(desc string) string {
	desc = html.UnescapeString(desc)
	desc, _, _ = strings.Cut(desc, "---")
	desc = comickMarkdownLink.ReplaceAllString(desc, "$1")
	desc = comickBold.ReplaceAllString(desc, "$1")
	desc = comickItalic.ReplaceAllString(desc, "$1")
	return strings.TrimSpace(desc)
}

// fancyScore renders a 0-10 score as five stars followed by the number
func fancyScore(score float64) string {
	stars := min(max(int(math.RoundToEven(score/2)), 0), 5)
	return strings.Repeat("★", stars) + strings.Repeat("☆", 5-stars) + " " + strconv.FormatFloat(score, 'f', -1, 64)
}

// GetDetail loads a comic and its chapter list
func (c *ComickClient) GetDetail(ctx context.Context, id string) (models.Title, error) {
	detail, err := util.FetchJSON[comickDetail](ctx, c.client, util.Request{
		URL:   c.apiBase + "/comic/" + url.PathEscape(id),
		Query: url.Values{"tachiyomi": {"true"}},
	}).Get()
	if err != nil || detail.Comic.HID == "" {
		util.Debug("Comick detail failed", "id", id, "error", err)
		return models.ErrorTitle(id, models.KindManga), ctx.Err()
	}

	comic := detail.Comic
	t := c.toTitle(comic.comickSearchItem)
	t.ID = id

	if t.Rating != models.NoRating {
		t.Description = strings.TrimSpace(fancyScore(t.Rating) + "\n\n" + t.Description)
	}

	names := func(list []comickNamed) []string {
		return lo.Uniq(lo.Compact(lo.Map(list, func(n comickNamed, _ int) string { return strings.TrimSpace(n.Name) })))
	}
	if creators := lo.Uniq(append(names(detail.Authors), names(detail.Artists)...)); len(creators) > 0 {
		t.Author = strings.Join(creators, ", ")
	}

	switch comic.Country {
	case "jp":
		t.Tags = append(t.Tags, "Manga")
	case "kr":
		t.Tags = append(t.Tags, "Manhwa")
	case "cn":
		t.Tags = append(t.Tags, "Manhua")
	}
	if detail.Demographic != "" {
		t.Tags = append(t.Tags, detail.Demographic)
	}

	genres := lo.Map(comic.Genres, func(g comickGenreLink, _ int) comickNamed { return g.Genre })
	t.Genres = lo.Uniq(append(names(genres), names(detail.Genres)...))
	t.Tags = lo.Uniq(append(t.Tags, t.Genres...))

	for label, chapterID := range c.chapters(ctx, id) {
		t.AddUnit(label, chapterID)
	}
	t.UnitCount = len(t.Units)
	return t, nil
}

// chapters lists the published chapters in the configured language
func (c *ComickClient) chapters(ctx context.Context, id string) map[string]string {
	list, err := util.FetchJSON[comickChapterList](ctx, c.client, util.Request{
		URL: c.apiBase + "/comic/" + url.PathEscape(id) + "/chapters",
		Query: url.Values{
			"tachiyomi": {"true"},
			"lang":      {comickLanguage},
			"limit":     {strconv.Itoa(comickChapterLimit)},
		},
	}).Get()
	if err != nil {
		util.Debug("Comick chapter list failed", "id", id, "error", err)
		return nil
	}

	now := time.Now()
	out := make(map[string]string, len(list.Chapters))
	for _, ch := range list.Chapters {
		if ch.HID == "" {
			continue
		}
		if published, err := time.Parse(time.RFC3339, ch.PublishAt); err == nil && published.After(now) {
			continue
		}
		label := comickChapterName(ch.Vol, ch.Chap, ch.Title)
		if label == "" {
			label = "Chapter " + ch.HID
		}
		out[label] = ch.HID
	}
	return out
}

// comickChapterName renders "Vol. 1 Ch. 2: Title", "Chapter 2", "Volume 1" and so on
func comickChapterName(vol, chap, title string) string {
	var b strings.Builder
	switch {
	case vol != "" && chap == "":
		b.WriteString("Volume " + vol)
	case vol != "":
		b.WriteString("Vol. " + vol)
	}
	if chap != "" {
		if vol == "" {
			b.WriteString("Chapter " + chap)
		} else {
			b.WriteString(" Ch. " + chap)
		}
	}
	if title != "" {
		if chap == "" {
			if b.Len() > 0 {
				b.WriteString(" ")
			}
			b.WriteString(title)
		} else {
			b.WriteString(": " + title)
		}
	}
	return b.String()
}

// GetUnit lists the page images of a chapter, busting the cache once when the list comes back empty
func (c *ComickClient) GetUnit(ctx context.Context, id string) (models.Unit, error) {
	target := c.apiBase + "/chapter/" + url.PathEscape(id)
	fetch := func(q url.Values) (comickPages, error) {
		return util.FetchJSON[comickPages](ctx, c.client, util.Request{URL: target, Query: q}).Get()
	}

	data, err := fetch(url.Values{"tachiyomi": {"true"}})
	if err == nil && len(data.Chapter.Images) == 0 {
		data, err = fetch(url.Values{
			"tachiyomi": {"true"},
			"_":         {strconv.FormatInt(time.Now().UnixMilli(), 10)},
		})
	}
	if err != nil {
		util.Debug("Comick chapter failed", "id", id, "error", err)
		return models.ErrorUnit(id, models.KindManga), ctx.Err()
	}

	ch := data.Chapter
	unit := models.Unit{ID: id, Kind: models.KindManga, Pages: []string{}}
	unit.Name = lo.CoalesceOrEmpty(comickChapterName(ch.Vol, ch.Chap, ch.Title), fmt.Sprintf("Chapter %s", id))
	for _, img := range ch.Images {
		if img.URL != "" {
			unit.Pages = append(unit.Pages, img.URL)
		}
	}
	return unit, nil
}
