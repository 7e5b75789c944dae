package scraper

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/alvarorichard/Gomanga/internal/models"
	"github.com/alvarorichard/Gomanga/internal/util"
	"github.com/samber/lo"
)

const (
	HentaiReadName = "HentaiRead"
	HentaiReadBase = "https://hentairead.com"
)

var (
	hentaiReadExtra   = regexp.MustCompile(`= (\{[^;]+)`)
	hentaiReadPayload = regexp.MustCompile(`.(ey\S+).\s`)
)

// hentaiReadTaxonomies maps term filter keys to WordPress taxonomies
var hentaiReadTaxonomies = []struct{ key, taxonomy string }{
	{"tags", "manga_tag"},
	{"artists", "artist"},
	{"circles", "circle"},
	{"characters", "character"},
	{"collections", "collection"},
	{"scanlators", "scanlator"},
	{"conventions", "convention"},
}

const hentaiReadMaxPages = 9999

// HentaiReadClient scrapes HentaiRead
type HentaiReadClient struct {
	client  *util.Client
	baseURL string
}

// NewHentaiReadClient creates a new HentaiRead client
func NewHentaiReadClient(s Settings) (*HentaiReadClient, error) {
	client, err := s.newClient(map[string]string{
		"Referer":         HentaiReadBase,
		"Origin":          HentaiReadBase,
		"Accept-Language": "en-US,en;q=0.9",
	}, nil, true)
	if err != nil {
		return nil, err
	}
	return &HentaiReadClient{client: client, baseURL: HentaiReadBase}, nil
}

func (c *HentaiReadClient) Name() string      { return HentaiReadName }
func (c *HentaiReadClient) BaseURL() string   { return c.baseURL }
func (c *HentaiReadClient) Kind() models.Kind { return models.KindManga }

// hentaiReadFilters holds the advanced search parameters
type hentaiReadFilters struct {
	Types    []string
	Sort     string
	Order    string
	Pages    string
	Uploaded string
	Terms    map[string][]string
}

func newHentaiReadFilters(f models.Filters) hentaiReadFilters {
	out := hentaiReadFilters{
		Types:    f.All("types"),
		Sort:     f.First("sort"),
		Order:    lo.CoalesceOrEmpty(f.First("order"), "desc"),
		Pages:    f.First("pages"),
		Uploaded: f.First("uploaded"),
		Terms:    map[string][]string{},
	}
	for _, t := range hentaiReadTaxonomies {
		if values := f.All(t.key); len(values) > 0 {
			out.Terms[t.key] = values
		}
	}
	return out
}

func (f hentaiReadFilters) empty() bool {
	return len(f.Types) == 0 && f.Sort == "" && f.Pages == "" && f.Uploaded == "" && len(f.Terms) == 0
}

// Filters returns the search facets HentaiRead supports
func (c *HentaiReadClient) Filters() []models.FilterGroup {
	groups := []models.FilterGroup{
		{Key: "sort", Label: "Sort", Options: labeledOptions("Latest", "new", "A-Z", "alphabet", "Rating", "rating", "Views", "views")},
		{Key: "order", Label: "Order", Options: labeledOptions("Descending", "desc", "Ascending", "asc")},
		{Key: "types", Label: "Type", Multi: true, Options: labeledOptions("Doujinshi", "4", "Manga", "52", "Artist CG", "4798")},
		{Key: "pages", Label: "Pages (e.g. >20, <=40, 30)"},
		{Key: "uploaded", Label: "Uploaded (e.g. >2020, <2015, 2019)"},
	}
	for _, t := range hentaiReadTaxonomies {
		groups = append(groups, models.FilterGroup{Key: t.key, Label: t.key, Multi: true})
	}
	return groups
}

// ListPopular lists galleries by views
func (c *HentaiReadClient) ListPopular(ctx context.Context, page int) ([]models.Title, error) {
	return c.list(ctx, fmt.Sprintf("%s/hentai/page/%d/", c.baseURL, page), url.Values{"sortby": {"views"}})
}

// ListLatest lists the newest galleries
func (c *HentaiReadClient) ListLatest(ctx context.Context, page int) ([]models.Title, error) {
	return c.list(ctx, fmt.Sprintf("%s/hentai/page/%d/", c.baseURL, page), url.Values{"sortby": {"new"}})
}

// Search runs a plain or advanced search; term names are resolved to ids first
func (c *HentaiReadClient) Search(ctx context.Context, query string, page int, filters models.Filters) ([]models.Title, error) {
	if id, ok := directID(query); ok {
		t, err := c.GetDetail(ctx, id)
		return single(t), err
	}

	query = strings.TrimSpace(query)
	f := newHentaiReadFilters(filters)
	if query == "" && f.empty() {
		return c.ListLatest(ctx, page)
	}

	target := fmt.Sprintf("%s/page/%d/", c.baseURL, page)
	q := url.Values{"s": {query}}
	if f.empty() {
		return c.list(ctx, target, q)
	}

	q.Set("title-type", "contains")
	for _, t := range f.Types {
		q.Add("categories[]", t)
	}
	if f.Sort != "" {
		q.Set("sortby", f.Sort)
		q.Set("order", f.Order)
	}
	if f.Pages != "" {
		low, high := hentaiReadPageRange(f.Pages)
		q.Set("pages", fmt.Sprintf("%d-%d", low, high))
	}
	if f.Uploaded != "" {
		kind, year := hentaiReadRelease(f.Uploaded)
		q.Set("release-type", kind)
		q.Set("release", year)
	}
	for _, t := range hentaiReadTaxonomies {
		for _, raw := range f.Terms[t.key] {
			name := strings.TrimSpace(raw)
			exclude := t.taxonomy == "manga_tag" && strings.HasPrefix(name, "-")
			if exclude {
				name = strings.TrimSpace(name[1:])
			}
			if name == "" {
				continue
			}
			id, ok := c.termID(ctx, name, t.taxonomy)
			if !ok {
				continue
			}
			switch {
			case exclude:
				q.Add("excluding[]", id)
			case t.taxonomy == "manga_tag":
				q.Add("including[]", id)
			default:
				q.Add(t.taxonomy+"s[]", id)
			}
		}
	}
	return c.list(ctx, target, q)
}

// hentaiReadPageRange parses "<n", "<=n", ">n", ">=n", "=n", "=>n", "=<n" or "n"
func hentaiReadPageRange(s string) (int, int) {
	s = strings.TrimSpace(s)
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 1, hentaiReadMaxPages
	}

	switch {
	case strings.HasPrefix(s, "<="), strings.HasPrefix(s, "=<"):
		return 1, min(n, hentaiReadMaxPages)
	case strings.HasPrefix(s, "<"):
		return 1, min(n-1, hentaiReadMaxPages)
	case strings.HasPrefix(s, ">="), strings.HasPrefix(s, "=>"):
		return max(1, n), hentaiReadMaxPages
	case strings.HasPrefix(s, ">"):
		return max(1, n+1), hentaiReadMaxPages
	}
	return max(1, n), min(n, hentaiReadMaxPages)
}

// hentaiReadRelease parses "<year", ">year" or "year"
func hentaiReadRelease(s string) (string, string) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, ">"):
		return "after", strings.TrimSpace(s[1:])
	case strings.HasPrefix(s, "<"):
		return "before", strings.TrimSpace(s[1:])
	}
	return "in", s
}

type hrTermResults struct {
	Results []struct {
		ID   any    `json:"id"`
		Text string `json:"text"`
	} `json:"results"`
}

// termID looks a term name up through the WordPress ajax endpoint
func (c *HentaiReadClient) termID(ctx context.Context, name, taxonomy string) (string, bool) {
	if taxonomy == "artist" {
		taxonomy = "manga_artist"
	}
	res, err := util.FetchJSON[hrTermResults](ctx, c.client, util.Request{
		URL: c.baseURL + "/wp-admin/admin-ajax.php",
		Query: url.Values{
			"action":   {"search_manga_terms"},
			"search":   {name},
			"taxonomy": {taxonomy},
		},
	}).Get()
	if err != nil {
		util.Debug("HentaiRead term lookup failed", "term", name, "error", err)
		return "", false
	}
	for _, r := range res.Results {
		if strings.EqualFold(r.Text, name) && r.ID != nil {
			return fmt.Sprint(r.ID), true
		}
	}
	return "", false
}

func (c *HentaiReadClient) list(ctx context.Context, target string, q url.Values) ([]models.Title, error) {
	doc, err := c.client.Document(ctx, util.Request{URL: target, Query: q}).Get()
	if err != nil {
		util.Debug("HentaiRead listing failed", "url", target, "error", err)
		return []models.Title{}, ctx.Err()
	}

	titles := []models.Title{}
	doc.Find(".manga-item").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Find(".manga-item__link").First().Attr("href")
		if !ok {
			return
		}
		id := lastSegment(href)
		if id == "" {
			return
		}
		t := c.gallery(id)
		t.Name = lo.CoalesceOrEmpty(strings.TrimSpace(s.Find("h3").First().Text()), "Unknown")
		t.Cover = resolveURL(c.baseURL, imageSource(s.Find("img").First()))
		titles = append(titles, t)
	})
	return titles, nil
}

func (c *HentaiReadClient) gallery(id string) models.Title {
	t := models.NewTitle(id, models.KindManga)
	t.SourceURL = id
	t.Status = models.StatusCompleted
	t.AddUnit("Chapter", id)
	t.UnitCount = 1
	return t
}

// GetDetail scrapes a gallery page
func (c *HentaiReadClient) GetDetail(ctx context.Context, id string) (models.Title, error) {
	doc, err := c.client.Document(ctx, util.Request{URL: c.baseURL + "/" + id + "/"}).Get()
	if err != nil {
		util.Debug("HentaiRead detail failed", "id", id, "error", err)
		return models.ErrorTitle(id, models.KindManga), ctx.Err()
	}

	t := c.gallery(id)
	t.Name = lo.CoalesceOrEmpty(strings.TrimSpace(doc.Find("h1").First().Text()), "Gallery #"+id)

	names := func(path string) []string {
		return linkTexts(doc, fmt.Sprintf("a[href*='/%s/'] span:first-of-type", path))
	}
	circles, artists := names("circle"), names("artist")
	if author := strings.Join(lo.Ternary(len(circles) > 0, circles, artists), ", "); author != "" {
		t.Author = author
	}
	tags := names("tag")
	t.Tags = append(t.Tags, tags...)
	t.Genres = append(t.Genres, tags...)
	t.Cover = resolveURL(c.baseURL, imageSource(doc.Find(".c-manga-cover img").First()))

	var parts []string
	for _, section := range []struct{ label, path string }{
		{"Characters", "characters"},
		{"Parodies", "parody"},
		{"Circles", "circle"},
		{"Convention", "convention"},
		{"Scanlators", "scanlator"},
	} {
		if list := lo.Map(names(section.path), func(s string, _ int) string { return capitalizeEach(s) }); len(list) > 0 {
			parts = append(parts, section.label+": "+strings.Join(list, ", "))
		}
	}
	if alt := strings.TrimSpace(doc.Find(".manga-titles h2").First().Text()); alt != "" {
		lines := lo.Map(strings.Split(alt, "|"), func(s string, _ int) string { return "- " + strings.TrimSpace(s) })
		parts = append(parts, "Alternative Titles: \n"+strings.Join(lines, "\n"))
	}
	doc.Find(".items-center").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if text := strings.TrimSpace(s.Text()); strings.Contains(strings.ToLower(text), "pages:") {
			parts = append(parts, strings.Join(strings.Fields(text), " "))
			return false
		}
		return true
	})
	t.Description = strings.Join(parts, "\n\n")

	return t, nil
}

type hrExtra struct {
	BaseURL string `json:"baseUrl"`
}

type hrChapter struct {
	Data struct {
		Chapter struct {
			Images []struct {
				Src string `json:"src"`
			} `json:"images"`
		} `json:"chapter"`
	} `json:"data"`
}

// GetUnit decodes the reader's embedded image list
func (c *HentaiReadClient) GetUnit(ctx context.Context, id string) (models.Unit, error) {
	doc, err := c.client.Document(ctx, util.Request{URL: c.baseURL + "/" + id + "/english/p/1/"}).Get()
	if err != nil {
		util.Debug("HentaiRead chapter failed", "id", id, "error", err)
		return models.ErrorUnit(id, models.KindManga), ctx.Err()
	}

	unit := models.Unit{ID: id, Name: "Chapter", Kind: models.KindManga, Pages: []string{}}

	extra := ExtractInlineJSON[hrExtra](doc, InlineScript{Selector: "#single-chapter-js-extra", Pattern: hentaiReadExtra})
	chapter := ExtractInlineJSON[hrChapter](doc, InlineScript{Selector: "#single-chapter-js-before", Pattern: hentaiReadPayload, Base64: true})
	if e, err := extra.Get(); err == nil && e.BaseURL != "" {
		if ch, err := chapter.Get(); err == nil {
			for _, img := range ch.Data.Chapter.Images {
				if img.Src != "" {
					unit.Pages = append(unit.Pages, strings.TrimRight(e.BaseURL, "/")+"/"+strings.TrimLeft(img.Src, "/"))
				}
			}
		}
	}
	if len(unit.Pages) > 0 {
		return unit, nil
	}

	util.Debug("HentaiRead embedded pages missing, falling back to images", "id", id)
	doc.Find("#chapter-images img").Each(func(_ int, s *goquery.Selection) {
		if src := imageSource(s); src != "" {
			unit.Pages = append(unit.Pages, resolveURL(c.baseURL, src))
		}
	})
	return unit, nil
}
