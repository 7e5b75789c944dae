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
	Hentai3Name = "3Hentai"
	Hentai3Base = "https://3hentai.net"
)

// hentai3TagTypes are the search facets 3Hentai exposes as "type:'value'" terms.
// "pages" is rendered as the site's "page:" term so it does not clash with the page number.
var hentai3TagTypes = []string{"tags", "male_tags", "female_tags", "series", "characters", "artist", "groups", "language", "pages"}

var hentai3Thumb = regexp.MustCompile(`t(\.\w+)$`)

// Hentai3Client scrapes 3Hentai
type Hentai3Client struct {
	client  *util.Client
	baseURL string
}

// NewHentai3Client creates a new 3Hentai client
func NewHentai3Client(s Settings) (*Hentai3Client, error) {
	client, err := s.newClient(map[string]string{
		"Referer":         Hentai3Base + "/",
		"Origin":          Hentai3Base,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.9",
	}, nil, true)
	if err != nil {
		return nil, err
	}
	return &Hentai3Client{client: client, baseURL: Hentai3Base}, nil
}

func (c *Hentai3Client) Name() string      { return Hentai3Name }
func (c *Hentai3Client) BaseURL() string   { return c.baseURL }
func (c *Hentai3Client) Kind() models.Kind { return models.KindManga }

// hentai3Filters holds the sort order and the per-type tag terms
type hentai3Filters struct {
	Sort  string
	Terms map[string][]string
}

func newHentai3Filters(f models.Filters) hentai3Filters {
	out := hentai3Filters{Sort: f.First("sort"), Terms: map[string][]string{}}
	for _, kind := range hentai3TagTypes {
		if values := f.All(kind); len(values) > 0 {
			out.Terms[kind] = values
		}
	}
	return out
}

// singlePath returns the browse path used when exactly one non-tag value is set
func (f hentai3Filters) singlePath() (string, bool) {
	if len(f.Terms) != 1 {
		return "", false
	}
	for kind, values := range f.Terms {
		if kind == "tags" || kind == "male_tags" || kind == "female_tags" || kind == "pages" || len(values) != 1 {
			return "", false
		}
		return "/" + kind + "/" + strings.ReplaceAll(strings.TrimSpace(values[0]), " ", "-"), true
	}
	return "", false
}

// terms renders every tag value in search syntax; a leading "-" excludes
func (f hentai3Filters) terms() []string {
	var out []string
	for _, kind := range hentai3TagTypes {
		for _, raw := range f.Terms[kind] {
			value := strings.ToLower(strings.TrimSpace(raw))
			prefix := ""
			if strings.HasPrefix(value, "-") {
				prefix, value = "-", strings.TrimPrefix(value, "-")
			}
			switch kind {
			case "male_tags":
				out = append(out, fmt.Sprintf("%stags:'%s (male)'", prefix, value))
			case "female_tags":
				out = append(out, fmt.Sprintf("%stags:'%s (female)'", prefix, value))
			case "pages":
				out = append(out, fmt.Sprintf("%spage:'%s'", prefix, value))
			default:
				out = append(out, fmt.Sprintf("%s%s:'%s'", prefix, kind, value))
			}
		}
	}
	return out
}

// Filters returns the search facets 3Hentai supports
func (c *Hentai3Client) Filters() []models.FilterGroup {
	groups := []models.FilterGroup{
		{Key: "sort", Label: "Sort", Options: labeledOptions("Recent", "", "Popular: All Time", "popular", "Popular: Week", "popular-7d", "Popular: Today", "popular-24h")},
	}
	for _, kind := range hentai3TagTypes {
		groups = append(groups, models.FilterGroup{Key: kind, Label: strings.ReplaceAll(kind, "_", " "), Multi: true})
	}
	return groups
}

// ListPopular lists galleries by all-time popularity
func (c *Hentai3Client) ListPopular(ctx context.Context, page int) ([]models.Title, error) {
	return c.list(ctx, c.baseURL+"/search", url.Values{"q": {"pages:>0"}, "page": {strconv.Itoa(page)}, "sort": {"popular"}})
}

// ListLatest lists the newest galleries
func (c *Hentai3Client) ListLatest(ctx context.Context, page int) ([]models.Title, error) {
	return c.list(ctx, c.baseURL+"/search", url.Values{"q": {"pages:>0"}, "page": {strconv.Itoa(page)}})
}

// Search searches galleries by free text and tag terms
func (c *Hentai3Client) Search(ctx context.Context, query string, page int, filters models.Filters) ([]models.Title, error) {
	if id, ok := directID(query); ok {
		t, err := c.GetDetail(ctx, id)
		return single(t), err
	}

	f := newHentai3Filters(filters)
	query = strings.TrimSpace(query)

	if path, ok := f.singlePath(); ok && query == "" {
		if page > 1 {
			path += "/" + strconv.Itoa(page)
		}
		q := url.Values{}
		if f.Sort != "" {
			q.Set("sort", f.Sort)
		}
		return c.list(ctx, c.baseURL+path, q)
	}

	terms := f.terms()
	if query != "" {
		terms = append([]string{query}, terms...)
	}
	if len(terms) == 0 {
		terms = []string{"page:>0"}
	}

	q := url.Values{"q": {strings.Join(terms, ",")}}
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	if f.Sort != "" {
		q.Set("sort", f.Sort)
	}
	return c.list(ctx, c.baseURL+"/search", q)
}

func (c *Hentai3Client) list(ctx context.Context, target string, q url.Values) ([]models.Title, error) {
	doc, err := c.client.Document(ctx, util.Request{URL: target, Query: q}).Get()
	if err != nil {
		util.Debug("3Hentai listing failed", "url", target, "error", err)
		return []models.Title{}, ctx.Err()
	}

	titles := []models.Title{}
	seen := map[string]bool{}
	doc.Find("a[href*='/d/']").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		id := lastSegment(href)
		if id == "" || seen[id] {
			return
		}
		seen[id] = true

		t := c.gallery(id)
		t.Name = lo.CoalesceOrEmpty(strings.TrimSpace(s.Find("div").First().Text()), "Unknown")
		t.Cover = resolveURL(c.baseURL, imageSource(s.Find("img:not([class])").First()))
		titles = append(titles, t)
	})
	return titles, nil
}

// gallery returns the shared shape of every 3Hentai title: one completed chapter
func (c *Hentai3Client) gallery(id string) models.Title {
	t := models.NewTitle(id, models.KindManga)
	t.SourceURL = "/d/" + id
	t.Status = models.StatusCompleted
	t.AddUnit("Chapter", id)
	t.UnitCount = 1
	return t
}

// GetDetail scrapes a gallery page
func (c *Hentai3Client) GetDetail(ctx context.Context, id string) (models.Title, error) {
	doc, err := c.client.Document(ctx, util.Request{URL: c.baseURL + "/d/" + id}).Get()
	if err != nil {
		util.Debug("3Hentai detail failed", "id", id, "error", err)
		return models.ErrorTitle(id, models.KindManga), ctx.Err()
	}

	t := c.gallery(id)
	t.Name = strings.TrimSpace(doc.Find("h1 > span").First().Text())
	if t.Name == "" {
		t.Name = "Gallery #" + id
	}

	groups := linkTexts(doc, "a[href*='/groups/']")
	artists := linkTexts(doc, "a[href*='/artists/']")
	if author := strings.Join(lo.Ternary(len(groups) > 0, groups, artists), ", "); author != "" {
		t.Author = author
	}

	for _, tag := range linkTexts(doc, "a[href*='/tags/']") {
		tag = capitalizeEach(tag)
		tag = strings.ReplaceAll(tag, "(female)", "♀")
		tag = strings.ReplaceAll(tag, "(male)", "♂")
		t.Genres = append(t.Genres, tag)
	}
	t.Tags = append(t.Tags, t.Genres...)
	t.Cover = resolveURL(c.baseURL, imageSource(doc.Find("img[src*=thumbnail].w-96, img[data-src*=thumbnail].w-96").First()))

	var parts []string
	for _, section := range []struct{ label, selector string }{
		{"Characters", "a[href*='/characters/']"},
		{"Series", "a[href*='/series/']"},
		{"Groups", "a[href*='/groups/']"},
		{"Languages", "a[href*='/language/']"},
	} {
		names := lo.Map(linkTexts(doc, section.selector), func(s string, _ int) string { return capitalizeEach(s) })
		if len(names) > 0 {
			parts = append(parts, section.label+": "+strings.Join(names, ", "))
		}
	}
	doc.Find("div.tag-container").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if text := strings.TrimSpace(s.Text()); strings.Contains(text, "pages:") {
			parts = append(parts, strings.Join(strings.Fields(text), " "))
			return false
		}
		return true
	})
	t.Description = strings.Join(parts, "\n\n")

	return t, nil
}

// GetUnit lists the full-size page images of a gallery
func (c *Hentai3Client) GetUnit(ctx context.Context, id string) (models.Unit, error) {
	doc, err := c.client.Document(ctx, util.Request{URL: c.baseURL + "/d/" + id}).Get()
	if err != nil {
		util.Debug("3Hentai gallery failed", "id", id, "error", err)
		return models.ErrorUnit(id, models.KindManga), ctx.Err()
	}

	unit := models.Unit{ID: id, Name: "Chapter", Kind: models.KindManga, Pages: []string{}}
	doc.Find("img:not([class]):not([src*=thumb]):not([src*=cover])").Each(func(_ int, s *goquery.Selection) {
		src := imageSource(s)
		if src == "" || strings.Contains(src, "cover") {
			return
		}
		unit.Pages = append(unit.Pages, hentai3Thumb.ReplaceAllString(resolveURL(c.baseURL, src), "$1"))
	})
	return unit, nil
}

// linkTexts returns the trimmed, de-duplicated text of every match
func linkTexts(doc *goquery.Document, selector string) []string {
	texts := doc.Find(selector).Map(func(_ int, s *goquery.Selection) string {
		return strings.TrimSpace(s.Text())
	})
	return lo.Uniq(lo.Compact(texts))
}

func capitalizeEach(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
