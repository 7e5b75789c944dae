package scraper

import (
	"bytes"
	"context"
	"fmt"
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
	NHentaiName   = "NHentai"
	NHentaiBase   = "https://nhentai.net"
	NHentaiThumbs = "https://t.nhentai.net"
)

var (
	nhentaiJSON        = regexp.MustCompile(`JSON\.parse\(\s*"(.*)"\s*\)`)
	nhentaiMediaServer = regexp.MustCompile(`media_server\s*:\s*(\d+)`)
	nhentaiMediaID     = regexp.MustCompile(`/galleries/(\d+)/`)
	nhentaiPageCount   = regexp.MustCompile(`(\d+) pages`)
	nhentaiDigits      = regexp.MustCompile(`^\d+$`)
)

// nhentaiTermTypes are the namespaces accepted in the search query
var nhentaiTermTypes = []string{"tag", "category", "artist", "group", "parody", "character", "language"}

// nhentaiExtensions maps the single-letter image type codes to file extensions
var nhentaiExtensions = map[string]string{"j": "jpg", "p": "png", "g": "gif", "w": "webp"}

// NHentaiClient scrapes nhentai
type NHentaiClient struct {
	client      *util.Client
	baseURL     string
	thumbURL    string
	imageHost   string
	maxPages    int
	mediaServer int
}

// NewNHentaiClient creates a new nhentai client
func NewNHentaiClient(s Settings) (*NHentaiClient, error) {
	client, err := s.newClient(map[string]string{
		"Referer":         NHentaiBase,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.9",
	}, nil, true)
	if err != nil {
		return nil, err
	}
	return &NHentaiClient{
		client:      client,
		baseURL:     NHentaiBase,
		thumbURL:    NHentaiThumbs,
		imageHost:   "nhentai.net",
		maxPages:    s.maxPages(),
		mediaServer: 1,
	}, nil
}

func (c *NHentaiClient) Name() string      { return NHentaiName }
func (c *NHentaiClient) BaseURL() string   { return c.baseURL }
func (c *NHentaiClient) Kind() models.Kind { return models.KindManga }

// nhentaiFilters holds the namespaced search terms
type nhentaiFilters struct {
	Sort     string
	Terms    map[string][]string
	Pages    string
	Uploaded string
}

func newNHentaiFilters(f models.Filters) nhentaiFilters {
	out := nhentaiFilters{
		Sort:     f.First("sort"),
		Terms:    map[string][]string{},
		Pages:    f.First("pages"),
		Uploaded: f.First("uploaded"),
	}
	for _, kind := range nhentaiTermTypes {
		if values := f.All(kind); len(values) > 0 {
			out.Terms[kind] = values
		}
	}
	return out
}

// query renders the free-text query plus every namespaced term
func (f nhentaiFilters) query(text string) string {
	var parts []string
	if text = strings.TrimSpace(text); text != "" {
		parts = append(parts, text)
	}
	for _, kind := range nhentaiTermTypes {
		for _, value := range f.Terms[kind] {
			value = strings.TrimSpace(value)
			prefix := ""
			if strings.HasPrefix(value, "-") {
				prefix, value = "-", value[1:]
			}
			if value != "" {
				parts = append(parts, fmt.Sprintf(`%s%s:"%s"`, prefix, kind, value))
			}
		}
	}
	if f.Pages != "" {
		parts = append(parts, "pages:"+f.Pages)
	}
	if f.Uploaded != "" {
		parts = append(parts, "uploaded:"+f.Uploaded)
	}
	if len(parts) == 0 {
		return `""`
	}
	return strings.Join(parts, " ")
}

// Filters returns the search facets nhentai supports
func (c *NHentaiClient) Filters() []models.FilterGroup {
	groups := []models.FilterGroup{
		{Key: "sort", Label: "Sort", Options: labeledOptions(
			"Recent", "date", "Popular: All Time", "popular", "Popular: Month", "popular-month",
			"Popular: Week", "popular-week", "Popular: Today", "popular-today",
		)},
		{Key: "category", Label: "Category", Multi: true, Options: plainOptions(
			"doujinshi", "manga", "artistcg", "gamecg", "western", "non-h", "imageset", "cosplay", "asianporn", "misc",
		)},
	}
	for _, kind := range nhentaiTermTypes {
		if kind != "category" {
			groups = append(groups, models.FilterGroup{Key: kind, Label: kind, Multi: true})
		}
	}
	return append(groups,
		models.FilterGroup{Key: "pages", Label: "Pages (e.g. >20)"},
		models.FilterGroup{Key: "uploaded", Label: "Uploaded (e.g. >20d)"},
	)
}

// ListPopular lists galleries by all-time popularity
func (c *NHentaiClient) ListPopular(ctx context.Context, page int) ([]models.Title, error) {
	res, err := c.searchPage(ctx, c.baseURL+"/search/", url.Values{"q": {`""`}, "sort": {"popular"}}, page)
	return res.Items, err
}

// ListLatest lists the newest galleries from the front page
func (c *NHentaiClient) ListLatest(ctx context.Context, page int) ([]models.Title, error) {
	res, err := c.searchPage(ctx, c.baseURL+"/", url.Values{}, page)
	return res.Items, err
}

// Search walks up to maxPages result pages starting at page
func (c *NHentaiClient) Search(ctx context.Context, query string, page int, filters models.Filters) ([]models.Title, error) {
	if id, ok := directID(query); ok {
		t, err := c.GetDetail(ctx, id)
		return single(t), err
	}
	if q := strings.TrimSpace(query); nhentaiDigits.MatchString(q) {
		t, err := c.GetDetail(ctx, q)
		return single(t), err
	}

	f := newNHentaiFilters(filters)
	params := url.Values{"q": {f.query(query)}}
	if f.Sort != "" {
		params.Set("sort", f.Sort)
	}

	titles, err := Paginate(ctx, PageLoop{Start: page, MaxPages: c.maxPages}, func(ctx context.Context, p int) (PageResult[models.Title], error) {
		return c.searchPage(ctx, c.baseURL+"/search/", params, p)
	})
	if titles == nil {
		titles = []models.Title{}
	}
	return titles, err
}

// searchPage fetches one result page; a failed page is an empty, final page
func (c *NHentaiClient) searchPage(ctx context.Context, target string, params url.Values, page int) (PageResult[models.Title], error) {
	q := lo.Assign(params)
	q["page"] = []string{strconv.Itoa(page)}

	doc, err := c.client.Document(ctx, util.Request{URL: target, Query: q}).Get()
	if err != nil {
		util.Debug("nhentai listing failed", "url", target, "page", page, "error", err)
		return PageResult[models.Title]{Items: []models.Title{}}, ctx.Err()
	}

	items := []models.Title{}
	doc.Find(".gallery").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Find("a").First().Attr("href")
		if !ok {
			return
		}
		id := lastSegment(href)
		if id == "" {
			return
		}
		t := c.gallery(id)
		t.Name = lo.CoalesceOrEmpty(strings.TrimSpace(s.Find(".caption").First().Text()), "Unknown Title")
		t.Cover = resolveURL(c.baseURL, imageSource(s.Find(".cover img").First()))
		items = append(items, t)
	})

	hasNext := doc.Find("section.pagination > a.next").Length() > 0
	return PageResult[models.Title]{Items: items, HasNext: hasNext}, nil
}

func (c *NHentaiClient) gallery(id string) models.Title {
	t := models.NewTitle(id, models.KindManga)
	t.SourceURL = c.baseURL + "/g/" + id + "/"
	t.Status = models.StatusCompleted
	t.AddUnit("Chapter 1", id)
	t.UnitCount = 1
	return t
}

type nhTag struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type nhImage struct {
	T string `json:"t"`
}

type nhGallery struct {
	MediaID string `json:"media_id"`
	Title   struct {
		English  string `json:"english"`
		Japanese string `json:"japanese"`
		Pretty   string `json:"pretty"`
	} `json:"title"`
	Images struct {
		Pages []nhImage `json:"pages"`
		Cover nhImage   `json:"cover"`
	} `json:"images"`
	Tags         []nhTag `json:"tags"`
	NumFavorites int     `json:"num_favorites"`
}

func (g nhGallery) tagsOf(kind string) []string {
	return lo.FilterMap(g.Tags, func(t nhTag, _ int) (string, bool) {
		return t.Name, t.Type == kind && t.Name != ""
	})
}

func nhExtension(code string) string {
	if ext, ok := nhentaiExtensions[code]; ok {
		return ext
	}
	return "jpg"
}

func (c *NHentaiClient) inlineGallery(doc *goquery.Document) (nhGallery, error) {
	return ExtractInlineJSON[nhGallery](doc, InlineScript{
		Marker:   "JSON.parse",
		Pattern:  nhentaiJSON,
		Unescape: true,
	}).Get()
}

// GetDetail reads the gallery JSON embedded in the page, falling back to the HTML
func (c *NHentaiClient) GetDetail(ctx context.Context, id string) (models.Title, error) {
	doc, err := c.client.Document(ctx, util.Request{URL: c.baseURL + "/g/" + id + "/"}).Get()
	if err != nil {
		util.Debug("nhentai detail failed", "id", id, "error", err)
		return models.ErrorTitle(id, models.KindManga), ctx.Err()
	}

	t := c.gallery(id)
	if g, err := c.inlineGallery(doc); err == nil {
		c.fillFromJSON(&t, g)
	} else {
		util.Debug("nhentai inline gallery missing, parsing HTML", "id", id, "error", err)
		c.fillFromHTML(&t, doc)
	}
	return t, nil
}

func (c *NHentaiClient) fillFromJSON(t *models.Title, g nhGallery) {
	t.Name = lo.CoalesceOrEmpty(g.Title.English, g.Title.Japanese, g.Title.Pretty, "Gallery #"+t.ID)
	if g.MediaID != "" {
		t.Cover = fmt.Sprintf("%s/galleries/%s/cover.%s", c.thumbURL, g.MediaID, nhExtension(g.Images.Cover.T))
	}

	if artists := g.tagsOf("artist"); len(artists) > 0 {
		t.Author = strings.Join(artists, ", ")
	}
	t.Genres = append(t.Genres, g.tagsOf("tag")...)
	t.Tags = append(t.Tags, t.Genres...)

	var b strings.Builder
	b.WriteString("Full English and Japanese titles:\n")
	for _, name := range lo.Compact([]string{g.Title.English, g.Title.Japanese}) {
		b.WriteString(name + "\n")
	}
	fmt.Fprintf(&b, "\nPages: %d\nFavorited by: %d\n", len(g.Images.Pages), g.NumFavorites)
	nhDescribe(&b, g.tagsOf("category"), g.tagsOf("parody"), g.tagsOf("character"))
	t.Description = strings.TrimSpace(b.String())
}

func (c *NHentaiClient) fillFromHTML(t *models.Title, doc *goquery.Document) {
	t.Name = lo.CoalesceOrEmpty(strings.TrimSpace(doc.Find("#info > h1").First().Text()), "Gallery #"+t.ID)
	t.Cover = resolveURL(c.baseURL, imageSource(doc.Find("#cover img").First()))

	groups := map[string][]string{}
	doc.Find("#tags > .tag-container").Each(func(_ int, s *goquery.Selection) {
		kind := strings.ToLower(strings.TrimSpace(s.Contents().First().Text()))
		names := s.Find("a.tag > span.name").Map(func(_ int, n *goquery.Selection) string {
			return strings.TrimSpace(n.Text())
		})
		for _, key := range []string{"artist", "group", "categor", "parod", "character", "tag"} {
			if strings.Contains(kind, key) {
				groups[key] = names
				break
			}
		}
	})

	if artists := groups["artist"]; len(artists) > 0 {
		t.Author = strings.Join(artists, ", ")
	}
	t.Genres = append(t.Genres, groups["tag"]...)
	t.Tags = append(t.Tags, t.Genres...)

	pages := 0
	if m := nhentaiPageCount.FindStringSubmatch(doc.Find("#info > div").Text()); len(m) > 1 {
		pages, _ = strconv.Atoi(m[1])
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n\nPages: %d\n", t.Name, pages)
	nhDescribe(&b, groups["categor"], groups["parod"], groups["character"])
	t.Description = strings.TrimSpace(b.String())
}

func nhDescribe(b *strings.Builder, categories, parodies, characters []string) {
	if len(categories) > 0 {
		fmt.Fprintf(b, "\nCategories: %s\n", strings.Join(categories, ", "))
	}
	if len(parodies) > 0 {
		fmt.Fprintf(b, "Parodies: %s\n", strings.Join(parodies, ", "))
	}
	if len(characters) > 0 {
		fmt.Fprintf(b, "Characters: %s\n", strings.Join(characters, ", "))
	}
}

// GetUnit builds the image URLs of a gallery from its media id
func (c *NHentaiClient) GetUnit(ctx context.Context, id string) (models.Unit, error) {
	resp, err := c.client.Get(ctx, c.baseURL+"/g/"+id+"/", nil).Get()
	if err != nil {
		util.Debug("nhentai gallery failed", "id", id, "error", err)
		return models.ErrorUnit(id, models.KindManga), ctx.Err()
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return models.ErrorUnit(id, models.KindManga), nil
	}

	server := c.mediaServer
	if m := nhentaiMediaServer.FindSubmatch(resp.Body); len(m) > 1 {
		server, _ = strconv.Atoi(string(m[1]))
	}

	unit := models.Unit{ID: id, Kind: models.KindManga, Pages: []string{}}

	if g, err := c.inlineGallery(doc); err == nil {
		unit.Name = lo.CoalesceOrEmpty(g.Title.English, g.Title.Japanese, g.Title.Pretty, "Gallery #"+id)
		for i, p := range g.Images.Pages {
			unit.Pages = append(unit.Pages, c.imageURL(server, g.MediaID, i+1, nhExtension(p.T)))
		}
		if len(unit.Pages) > 0 {
			return unit, nil
		}
	}

	unit.Name = lo.CoalesceOrEmpty(strings.TrimSpace(doc.Find("#info > h1").First().Text()), "Gallery #"+id)

	mediaID := ""
	doc.Find("#cover img, .gallerythumb img").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if m := nhentaiMediaID.FindStringSubmatch(imageSource(s)); len(m) > 1 {
			mediaID = m[1]
			return false
		}
		return true
	})

	count := 0
	if m := nhentaiPageCount.FindStringSubmatch(doc.Find("#info > div").Text()); len(m) > 1 {
		count, _ = strconv.Atoi(m[1])
	}
	if count == 0 {
		count = doc.Find(".gallerythumb").Length()
	}

	if mediaID != "" {
		for i := 1; i <= count; i++ {
			unit.Pages = append(unit.Pages, c.imageURL(server, mediaID, i, "jpg"))
		}
	}
	if len(unit.Pages) == 0 {
		doc.Find("#image-container img").Each(func(_ int, s *goquery.Selection) {
			if src := imageSource(s); src != "" {
				unit.Pages = append(unit.Pages, resolveURL(c.baseURL, src))
			}
		})
	}
	return unit, nil
}

func (c *NHentaiClient) imageURL(server int, mediaID string, page int, ext string) string {
	return fmt.Sprintf("https://i%d.%s/galleries/%s/%d.%s", server, c.imageHost, mediaID, page, ext)
}
