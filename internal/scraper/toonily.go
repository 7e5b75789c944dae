package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/alvarorichard/Gomanga/internal/models"
	"github.com/alvarorichard/Gomanga/internal/util"
	"github.com/samber/lo"
)

const (
	ToonilyName = "Toonily"
	ToonilyBase = "https://toonily.com"

	toonilySeries = "serie"
)

var (
	toonilySDCover   = regexp.MustCompile(`-[0-9]+x[0-9]+(\.\w+)$`)
	toonilyQueryJunk = regexp.MustCompile(`[^a-z0-9]+`)
)

// ToonilyClient scrapes Toonily, a Madara WordPress site
type ToonilyClient struct {
	client  *util.Client
	baseURL string
}

// NewToonilyClient creates a new Toonily client
func NewToonilyClient(s Settings) (*ToonilyClient, error) {
	client, err := s.newClient(map[string]string{
		"Referer":         ToonilyBase + "/",
		"Origin":          ToonilyBase,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.9",
	}, map[string]string{"toonily-mature": "1"}, true)
	if err != nil {
		return nil, err
	}
	return &ToonilyClient{client: client, baseURL: ToonilyBase}, nil
}

func (c *ToonilyClient) Name() string      { return ToonilyName }
func (c *ToonilyClient) BaseURL() string   { return c.baseURL }
func (c *ToonilyClient) Kind() models.Kind { return models.KindManga }

// toonilyFilters holds the Madara search parameters
type toonilyFilters struct {
	Genres []string
	Author string
	Artist string
	Year   string
	Status []string
	Order  string
}

func newToonilyFilters(f models.Filters) toonilyFilters {
	return toonilyFilters{
		Genres: f.All("genre"),
		Author: f.First("author"),
		Artist: f.First("artist"),
		Year:   f.First("year"),
		Status: f.All("status"),
		Order:  f.First("order"),
	}
}

func (f toonilyFilters) apply(q url.Values) {
	for _, g := range f.Genres {
		q.Add("genre[]", g)
	}
	for _, s := range f.Status {
		q.Add("status[]", s)
	}
	if f.Author != "" {
		q.Set("author", f.Author)
	}
	if f.Artist != "" {
		q.Set("artist", f.Artist)
	}
	if f.Year != "" {
		q.Set("release", f.Year)
	}
	if f.Order != "" {
		q.Set("m_orderby", f.Order)
	}
}

// Filters returns the search facets Toonily supports
func (c *ToonilyClient) Filters() []models.FilterGroup {
	return []models.FilterGroup{
		{Key: "genre", Label: "Genres", Multi: true, Options: labeledOptions(
			"Action", "action", "Adult", "adult", "Adventure", "adventure", "Comedy", "comedy",
			"Drama", "drama", "Ecchi", "ecchi", "Fantasy", "fantasy", "Gender Bender", "gender-bender",
			"Harem", "harem", "Historical", "historical", "Horror", "horror", "Josei", "josei",
			"Martial Arts", "martial-arts", "Mature", "mature", "Mystery", "mystery",
			"Psychological", "psychological", "Romance", "romance", "School Life", "school-life",
			"Sci-fi", "sci-fi", "Seinen", "seinen", "Shoujo", "shoujo", "Shounen", "shounen",
			"Slice of Life", "slice-of-life", "Smut", "smut", "Sports", "sports",
			"Supernatural", "supernatural", "Tragedy", "tragedy", "Webtoons", "webtoons",
		)},
		{Key: "status", Label: "Status", Multi: true, Options: labeledOptions("Completed", "end", "Ongoing", "on-going", "Canceled", "canceled", "On Hold", "on-hold")},
		{Key: "order", Label: "Order by", Options: labeledOptions(
			"Relevance", "", "Latest", "latest", "A-Z", "alphabet", "Rating", "rating",
			"Trending", "trending", "Views", "views", "New", "new-manga",
		)},
		{Key: "author", Label: "Author"},
		{Key: "artist", Label: "Artist"},
		{Key: "year", Label: "Year of release"},
	}
}

// ListPopular lists series by views
func (c *ToonilyClient) ListPopular(ctx context.Context, page int) ([]models.Title, error) {
	return c.list(ctx, c.listingURL(page), url.Values{"m_orderby": {"views"}})
}

// ListLatest lists series by last update
func (c *ToonilyClient) ListLatest(ctx context.Context, page int) ([]models.Title, error) {
	return c.list(ctx, c.listingURL(page), url.Values{"m_orderby": {"latest"}})
}

func (c *ToonilyClient) listingURL(page int) string {
	return fmt.Sprintf("%s/%s/page/%d/", c.baseURL, toonilySeries, page)
}

// Search runs a WordPress search restricted to manga posts
func (c *ToonilyClient) Search(ctx context.Context, query string, page int, filters models.Filters) ([]models.Title, error) {
	if id, ok := directID(query); ok {
		t, err := c.GetDetail(ctx, id)
		return single(t), err
	}

	query = strings.TrimSpace(toonilyQueryJunk.ReplaceAllString(strings.ToLower(query), " "))
	q := url.Values{"s": {query}, "post_type": {"wp-manga"}}
	newToonilyFilters(filters).apply(q)
	if page > 1 {
		q.Set("paged", strconv.Itoa(page))
	}
	return c.list(ctx, c.baseURL+"/", q)
}

func (c *ToonilyClient) list(ctx context.Context, target string, q url.Values) ([]models.Title, error) {
	doc, err := c.client.Document(ctx, util.Request{URL: target, Query: q}).Get()
	if err != nil {
		util.Debug("Toonily listing failed", "url", target, "error", err)
		return []models.Title{}, ctx.Err()
	}

	items := doc.Find("div.c-tabs-item__content")
	if items.Length() == 0 {
		items = doc.Find("div.page-item-detail.manga")
	}

	titles := []models.Title{}
	items.Each(func(_ int, s *goquery.Selection) {
		link := s.Find("div.post-title a, h3.h5 a").First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		id := lastSegment(href)
		if id == "" {
			return
		}
		t := models.NewTitle(id, models.KindManga)
		t.Name = strings.TrimSpace(link.Text())
		t.SourceURL = "/" + toonilySeries + "/" + id
		t.Cover = toonilyCover(imageSource(s.Find("img").First()))
		titles = append(titles, t)
	})
	return titles, nil
}

// toonilyCover strips the thumbnail size suffix to get the full image
func toonilyCover(src string) string {
	return toonilySDCover.ReplaceAllString(src, "$1")
}

func (c *ToonilyClient) seriesURL(id string) string {
	return fmt.Sprintf("%s/%s/%s/", c.baseURL, toonilySeries, strings.Trim(id, "/"))
}

// GetDetail scrapes a series page; chapters come from the ajax endpoint
func (c *ToonilyClient) GetDetail(ctx context.Context, id string) (models.Title, error) {
	doc, err := c.client.Document(ctx, util.Request{URL: c.seriesURL(id)}).Get()
	if err != nil {
		util.Debug("Toonily detail failed", "id", id, "error", err)
		return models.ErrorTitle(id, models.KindManga), ctx.Err()
	}

	t := models.NewTitle(id, models.KindManga)
	t.SourceURL = "/" + toonilySeries + "/" + id
	t.Name = lo.CoalesceOrEmpty(strings.TrimSpace(doc.Find("div.post-title h1, div.post-title h3").First().Text()), "Series "+id)

	notUpdating := func(s string, _ int) bool { return !strings.Contains(strings.ToLower(s), "updating") }
	if authors := lo.Filter(linkTexts(doc, "div.author-content a"), notUpdating); len(authors) > 0 {
		t.Author = strings.Join(authors, ", ")
	}

	summary := doc.Find("div.description-summary div.summary__content, div.summary_content div.post-content_item > h5 + div").First()
	if paragraphs := summary.Find("p"); paragraphs.Length() > 0 {
		t.Description = strings.Join(lo.Compact(paragraphs.Map(func(_ int, p *goquery.Selection) string {
			return strings.TrimSpace(p.Text())
		})), "\n\n")
	} else {
		t.Description = strings.TrimSpace(summary.Text())
	}
	if alt := strings.TrimSpace(doc.Find(`.post-content_item:contains("Alt") .summary-content`).First().Text()); alt != "" {
		t.Description = strings.TrimSpace(t.Description + "\n\nAlternative Names: " + alt)
	}

	t.Cover = toonilyCover(imageSource(doc.Find("div.summary_image img").First()))

	status := doc.Find(`div.post-status div.summary-content, div.post-content_item:contains("Status") .summary-content`).Last()
	if status.Length() > 0 {
		t.Status = NormalizeStatus(madaraStatuses, status.Text())
	}

	t.Genres = append(t.Genres, linkTexts(doc, "div.genres-content a")...)
	t.Tags = append(t.Tags, t.Genres...)

	for label, chapterID := range c.chapters(ctx, id, doc) {
		t.AddUnit(label, chapterID)
	}
	t.UnitCount = len(t.Units)
	return t, nil
}

// chapters loads the chapter list through the ajax endpoint, or from the page itself
func (c *ToonilyClient) chapters(ctx context.Context, id string, page *goquery.Document) map[string]string {
	out := map[string]string{}
	collect := func(doc *goquery.Document) {
		doc.Find("li.wp-manga-chapter a").Each(func(_ int, a *goquery.Selection) {
			href, ok := a.Attr("href")
			name := strings.TrimSpace(a.Text())
			if !ok || name == "" {
				return
			}
			out[name] = strings.TrimPrefix(href, c.baseURL)
		})
	}

	if page.Find("div[id^=manga-chapters-holder]").Length() > 0 {
		ajax := c.client.Document(ctx, util.Request{
			Method:  http.MethodPost,
			URL:     c.seriesURL(id) + "ajax/chapters/",
			Headers: map[string]string{"X-Requested-With": "XMLHttpRequest"},
		})
		if doc, err := ajax.Get(); err == nil {
			collect(doc)
		} else {
			util.Debug("Toonily chapter ajax failed", "id", id, "error", err)
		}
	}
	if len(out) == 0 {
		collect(page)
	}
	return out
}

// GetUnit lists the page images of a chapter
func (c *ToonilyClient) GetUnit(ctx context.Context, id string) (models.Unit, error) {
	doc, err := c.client.Document(ctx, util.Request{URL: resolveURL(c.baseURL, id)}).Get()
	if err != nil {
		util.Debug("Toonily chapter failed", "id", id, "error", err)
		return models.ErrorUnit(id, models.KindManga), ctx.Err()
	}

	unit := models.Unit{ID: id, Kind: models.KindManga, Pages: []string{}}
	unit.Name = lo.CoalesceOrEmpty(strings.TrimSpace(doc.Find("ol.breadcrumb li.active").First().Text()), "Chapter "+lastSegment(id))

	doc.Find("div.page-break img, .reading-content .text-left img").Each(func(_ int, s *goquery.Selection) {
		src := imageSource(s)
		if src == "" || strings.Contains(src, "images/default-image") {
			return
		}
		unit.Pages = append(unit.Pages, resolveURL(c.baseURL, src))
	})
	return unit, nil
}
