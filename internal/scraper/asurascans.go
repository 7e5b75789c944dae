package scraper

import (
	"context"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/alvarorichard/Gomanga/internal/models"
	"github.com/alvarorichard/Gomanga/internal/util"
)

const (
	AsuraScansName = "AsuraScans"
	AsuraScansBase = "https://asuracomic.net"
)

// asuraPages matches the page list inside the Next.js flight payload, escaped or not
var asuraPages = regexp.MustCompile(`\\?"pages\\?":(\[.*?\])`)

// AsuraScansClient scrapes the AsuraScans website
type AsuraScansClient struct {
	client  *util.Client
	baseURL string
}

// NewAsuraScansClient creates a new AsuraScans client
func NewAsuraScansClient(s Settings) (*AsuraScansClient, error) {
	client, err := s.newClient(map[string]string{
		"Referer":         AsuraScansBase + "/",
		"Origin":          AsuraScansBase,
		"Accept-Language": "en-US,en;q=0.9",
	}, nil, true)
	if err != nil {
		return nil, err
	}
	return &AsuraScansClient{client: client, baseURL: AsuraScansBase}, nil
}

func (c *AsuraScansClient) Name() string      { return AsuraScansName }
func (c *AsuraScansClient) BaseURL() string   { return c.baseURL }
func (c *AsuraScansClient) Kind() models.Kind { return models.KindManga }

// asuraFilters holds the listing facets of /series
type asuraFilters struct {
	Genres []string
	Status string
	Types  string
	Order  string
}

func newAsuraFilters(f models.Filters) asuraFilters {
	out := asuraFilters{
		Genres: f.All("genres"),
		Status: f.First("status"),
		Types:  f.First("types"),
		Order:  f.First("order"),
	}
	if out.Status == "" {
		out.Status = "-1"
	}
	if out.Types == "" {
		out.Types = "-1"
	}
	if out.Order == "" {
		out.Order = "rating"
	}
	return out
}

func (f asuraFilters) query(page int) url.Values {
	return url.Values{
		"page":   {strconv.Itoa(max(page, 1))},
		"genres": {strings.Join(f.Genres, ",")},
		"status": {f.Status},
		"types":  {f.Types},
		"order":  {f.Order},
	}
}

// Filters returns the search facets AsuraScans supports
func (c *AsuraScansClient) Filters() []models.FilterGroup {
	return []models.FilterGroup{
		{Key: "genres", Label: "Genres", Multi: true},
		{Key: "status", Label: "Status", Options: labeledOptions("All", "-1", "Ongoing", "1", "Completed", "2", "Hiatus", "3", "Dropped", "4")},
		{Key: "types", Label: "Type", Options: labeledOptions("All", "-1", "Manga", "1", "Manhwa", "2", "Manhua", "3", "Comic", "4")},
		{Key: "order", Label: "Order", Options: labeledOptions("Rating", "rating", "Update", "update", "Latest", "latest", "Z-A", "desc", "A-Z", "asc")},
	}
}

// ListPopular lists series ordered by rating
func (c *AsuraScansClient) ListPopular(ctx context.Context, page int) ([]models.Title, error) {
	return c.list(ctx, asuraFilters{Status: "-1", Types: "-1", Order: "rating"}.query(page))
}

// ListLatest lists series ordered by last update
func (c *AsuraScansClient) ListLatest(ctx context.Context, page int) ([]models.Title, error) {
	return c.list(ctx, asuraFilters{Status: "-1", Types: "-1", Order: "update"}.query(page))
}

// Search searches series by name and facets
func (c *AsuraScansClient) Search(ctx context.Context, query string, page int, filters models.Filters) ([]models.Title, error) {
	if id, ok := directID(query); ok {
		t, err := c.GetDetail(ctx, id)
		return single(t), err
	}

	q := newAsuraFilters(filters).query(page)
	if query = strings.TrimSpace(query); query != "" {
		q.Set("name", query)
	}
	return c.list(ctx, q)
}

func (c *AsuraScansClient) list(ctx context.Context, q url.Values) ([]models.Title, error) {
	doc, err := c.client.Document(ctx, util.Request{URL: c.baseURL + "/series", Query: q}).Get()
	if err != nil {
		util.Debug("AsuraScans listing failed", "error", err)
		return []models.Title{}, ctx.Err()
	}

	titles := []models.Title{}
	doc.Find("div.grid > a[href]").Each(func(_ int, s *goquery.Selection) {
		name := strings.TrimSpace(s.Find("div.block > span.block").First().Text())
		if name == "" {
			return
		}
		href, _ := s.Attr("href")
		id := lastSegment(href)
		if id == "" {
			return
		}

		t := models.NewTitle(id, models.KindManga)
		t.Name = name
		t.SourceURL = "/series/" + id
		t.Cover = resolveURL(c.baseURL, imageSource(s.Find("img").First()))
		titles = append(titles, t)
	})
	return titles, nil
}

// GetDetail scrapes a series page and its chapter list
func (c *AsuraScansClient) GetDetail(ctx context.Context, id string) (models.Title, error) {
	doc, err := c.client.Document(ctx, util.Request{URL: c.baseURL + "/series/" + id}).Get()
	if err != nil {
		util.Debug("AsuraScans detail failed", "id", id, "error", err)
		return models.ErrorTitle(id, models.KindManga), ctx.Err()
	}

	t := models.NewTitle(id, models.KindManga)
	t.SourceURL = "/series/" + id
	t.Name = strings.TrimSpace(doc.Find("span.text-xl.font-bold, h3.truncate").First().Text())
	if t.Name == "" {
		t.Name = "Manga #" + id
	}
	t.Cover = resolveURL(c.baseURL, imageSource(doc.Find("img[alt=poster]").First()))
	t.Description = strings.TrimSpace(doc.Find("span.font-medium.text-sm").First().Text())

	if author := asuraInfo(doc, `div.grid > div:has(h3:contains("Author"))`); author != "" && author != "_" {
		t.Author = author
	}
	if kind := asuraInfo(doc, `div.flex:has(h3:contains("Type"))`); kind != "" {
		t.Genres = append(t.Genres, kind)
	}
	doc.Find("div[class^=space] > div.flex > button.text-white").Each(func(_ int, s *goquery.Selection) {
		if g := strings.TrimSpace(s.Text()); g != "" {
			t.Genres = append(t.Genres, g)
		}
	})
	t.Tags = append(t.Tags, t.Genres...)

	if status := asuraInfo(doc, `div.flex:has(h3:contains("Status"))`); status != "" {
		t.Status = NormalizeStatus(asuraStatuses, status)
	}

	doc.Find("div.scrollbar-thumb-themecolor > div.group").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Find("a").First().Attr("href")
		if !ok {
			return
		}
		number := strings.TrimSpace(s.Find("h3").First().Contents().Not("span").Text())
		if number == "" {
			number = strings.TrimSpace(s.Find("h3").First().Text())
		}
		label := number
		if extra := strings.TrimSpace(s.Find("h3 > span").Text()); extra != "" {
			label = number + " - " + extra
		}
		t.AddUnit(label, c.chapterID(id, href))
	})
	t.UnitCount = len(t.Units)

	return t, nil
}

// chapterID returns the chapter path relative to /series/
func (c *AsuraScansClient) chapterID(seriesID, href string) string {
	href = strings.TrimPrefix(href, c.baseURL)
	href = strings.TrimPrefix(href, "/")
	href = strings.TrimPrefix(href, "series/")
	if !strings.Contains(href, "/chapter/") {
		return seriesID + "/chapter/" + lastSegment(href)
	}
	return href
}

func asuraInfo(doc *goquery.Document, row string) string {
	return strings.TrimSpace(doc.Find(row).First().Find("h3").Eq(1).Text())
}

type asuraPage struct {
	Order int    `json:"order"`
	URL   string `json:"url"`
}

// GetUnit extracts the page list of a chapter
func (c *AsuraScansClient) GetUnit(ctx context.Context, id string) (models.Unit, error) {
	doc, err := c.client.Document(ctx, util.Request{URL: c.baseURL + "/series/" + id}).Get()
	if err != nil {
		util.Debug("AsuraScans chapter failed", "id", id, "error", err)
		return models.ErrorUnit(id, models.KindManga), ctx.Err()
	}

	unit := models.Unit{ID: id, Kind: models.KindManga, Pages: []string{}}
	unit.Name = strings.TrimSpace(doc.Find("h1.flex-1, h2.flex-1").First().Text())
	if unit.Name == "" {
		unit.Name = "Chapter " + lastSegment(id)
	}

	pages, err := ExtractInlineJSON[[]asuraPage](doc, InlineScript{
		Marker:   "self.__next_f.push",
		Pattern:  asuraPages,
		Unescape: true,
	}).Get()
	if err == nil && len(pages) > 0 {
		sort.SliceStable(pages, func(i, j int) bool { return pages[i].Order < pages[j].Order })
		for _, p := range pages {
			unit.Pages = append(unit.Pages, p.URL)
		}
		return unit, nil
	}

	util.Debug("AsuraScans inline pages missing, falling back to images", "id", id, "error", err)
	doc.Find(`img[alt*="chapter"]`).Each(func(_ int, s *goquery.Selection) {
		if src := imageSource(s); src != "" {
			unit.Pages = append(unit.Pages, resolveURL(c.baseURL, src))
		}
	})
	return unit, nil
}

// lastSegment returns the final path segment of a URL or path
func lastSegment(href string) string {
	href = strings.TrimRight(strings.SplitN(href, "?", 2)[0], "/")
	if i := strings.LastIndex(href, "/"); i >= 0 {
		return href[i+1:]
	}
	return href
}
