package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/alvarorichard/Gomanga/internal/models"
	"github.com/alvarorichard/Gomanga/internal/util"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

const (
	AllAnimeName    = "AllAnime"
	AllAnimeBase    = "https://allanime.to"
	AllAnimeAPI     = "https://api.allanime.day/api"
	AllAnimeReferer = "https://allmanga.to"

	allAnimePageSize = 26
)

// GraphQL documents understood by the AllAnime API
const (
	allAnimeSearchGQL  = `query ($search: SearchInput, $limit: Int, $page: Int, $translationType: VaildTranslationTypeEnumType, $countryOrigin: VaildCountryOriginEnumType) { shows(search: $search, limit: $limit, page: $page, translationType: $translationType, countryOrigin: $countryOrigin) { edges { _id name englishName nativeName thumbnail slugTime type season score availableEpisodesDetail } } }`
	allAnimeDetailGQL  = `query ($_id: String!) { show(_id: $_id) { _id name englishName nativeName thumbnail description genres studios season status score type availableEpisodesDetail } }`
	allAnimeStreamsGQL = `query ($showId: String!, $translationType: VaildTranslationTypeEnumType!, $episodeString: String!) { episode(showId: $showId, translationType: $translationType, episodeString: $episodeString) { sourceUrls } }`
)

// Boosts applied to links resolved from AllAnime's internal player
const (
	mp4Boost = 0.5
	hlsBoost = 0.6
)

// AllAnimeClient handles interactions with the AllAnime GraphQL API
type AllAnimeClient struct {
	client      *util.Client
	baseURL     string
	apiBase     string
	translation string
	titleStyle  string
}

// NewAllAnimeClient creates a new AllAnime client
func NewAllAnimeClient(s Settings) (*AllAnimeClient, error) {
	client, err := s.newClient(map[string]string{
		"Accept":  "*/*",
		"Origin":  AllAnimeReferer,
		"Referer": AllAnimeReferer + "/",
	}, nil, false)
	if err != nil {
		return nil, err
	}

	translation := strings.ToLower(s.AllAnimeTranslation)
	if translation != "dub" && translation != "raw" {
		translation = "sub"
	}

	return &AllAnimeClient{
		client:      client,
		baseURL:     AllAnimeBase,
		apiBase:     AllAnimeAPI,
		translation: translation,
		titleStyle:  strings.ToLower(s.AllAnimeTitleStyle),
	}, nil
}

func (c *AllAnimeClient) Name() string      { return AllAnimeName }
func (c *AllAnimeClient) BaseURL() string   { return c.baseURL }
func (c *AllAnimeClient) Kind() models.Kind { return models.KindAnime }

type aaSeason struct {
	Quarter string `json:"quarter"`
	Year    int    `json:"year"`
}

type aaSearchInput struct {
	AllowAdult   bool      `json:"allowAdult"`
	AllowUnknown bool      `json:"allowUnknown"`
	Query        string    `json:"query,omitempty"`
	SortBy       string    `json:"sortBy,omitempty"`
	Season       *aaSeason `json:"season,omitempty"`
	Genres       []string  `json:"genres,omitempty"`
	Types        []string  `json:"types,omitempty"`
}

type aaSearchVariables struct {
	Search          aaSearchInput `json:"search"`
	Limit           int           `json:"limit"`
	Page            int           `json:"page"`
	TranslationType string        `json:"translationType"`
	CountryOrigin   string        `json:"countryOrigin"`
}

// aaStreamVariables is the unit id payload. Field order is fixed so ids are stable.
type aaStreamVariables struct {
	ShowID          string `json:"showId"`
	TranslationType string `json:"translationType"`
	EpisodeString   string `json:"episodeString"`
}

type aaRequest[V any] struct {
	Variables V      `json:"variables"`
	Query     string `json:"query"`
}

type aaShow struct {
	ID                      string              `json:"_id"`
	Name                    string              `json:"name"`
	EnglishName             string              `json:"englishName"`
	NativeName              string              `json:"nativeName"`
	Thumbnail               string              `json:"thumbnail"`
	Description             string              `json:"description"`
	Genres                  []string            `json:"genres"`
	Studios                 []string            `json:"studios"`
	Status                  string              `json:"status"`
	Score                   *float64            `json:"score"`
	Type                    string              `json:"type"`
	AvailableEpisodesDetail map[string][]string `json:"availableEpisodesDetail"`
}

type aaShowsResponse struct {
	Data struct {
		Shows struct {
			Edges []aaShow `json:"edges"`
		} `json:"shows"`
	} `json:"data"`
}

type aaShowResponse struct {
	Data struct {
		Show *aaShow `json:"show"`
	} `json:"data"`
}

type aaSourceURL struct {
	SourceURL  string  `json:"sourceUrl"`
	SourceName string  `json:"sourceName"`
	Type       string  `json:"type"`
	Priority   float64 `json:"priority"`
}

type aaEpisodeResponse struct {
	Data struct {
		Episode *struct {
			SourceUrls []aaSourceURL `json:"sourceUrls"`
		} `json:"episode"`
	} `json:"data"`
}

type aaVersion struct {
	EpisodeIframeHead string `json:"episodeIframeHead"`
}

type aaClockLinks struct {
	Links []struct {
		Link          string `json:"link"`
		MP4           bool   `json:"mp4"`
		HLS           bool   `json:"hls"`
		ResolutionStr string `json:"resolutionStr"`
	} `json:"links"`
}

// allAnimeFilters holds the search facets AllAnime understands
type allAnimeFilters struct {
	Origin string
	Season string
	Year   int
	SortBy string
	Types  []string
	Genres []string
}

func newAllAnimeFilters(f models.Filters) allAnimeFilters {
	out := allAnimeFilters{
		Origin: strings.ToUpper(f.First("origin")),
		Season: f.First("season"),
		SortBy: f.First("sortBy"),
		Types:  f.All("types"),
		Genres: f.All("genres"),
	}
	if year, err := strconv.Atoi(f.First("year")); err == nil {
		out.Year = year
	}
	if out.Season == "all" {
		out.Season = ""
	}
	return out
}

func (f allAnimeFilters) apply(v *aaSearchVariables) {
	if f.Origin != "" {
		v.CountryOrigin = f.Origin
	}
	if f.Season != "" && f.Year > 0 {
		v.Search.Season = &aaSeason{Quarter: f.Season, Year: f.Year}
	}
	if f.SortBy != "" {
		v.Search.SortBy = f.SortBy
	}
	v.Search.Types = f.Types
	v.Search.Genres = f.Genres
}

// Filters returns the search facets AllAnime supports
func (c *AllAnimeClient) Filters() []models.FilterGroup {
	return []models.FilterGroup{
		{Key: "origin", Label: "Origin", Options: labeledOptions("All", "ALL", "Japan", "JP", "China", "CN", "Korea", "KR")},
		{Key: "season", Label: "Season", Options: labeledOptions("All", "all", "Winter", "Winter", "Spring", "Spring", "Summer", "Summer", "Fall", "Fall")},
		{Key: "year", Label: "Year", Options: yearOptions(2024, 1975)},
		{Key: "sortBy", Label: "Sort by", Options: labeledOptions("Update", "update", "Name Asc", "Name_ASC", "Name Desc", "Name_DESC", "Ratings", "Top")},
		{Key: "types", Label: "Type", Multi: true, Options: plainOptions("Movie", "ONA", "OVA", "Special", "TV")},
		{Key: "genres", Label: "Genre", Multi: true, Options: plainOptions(
			"Action", "Adventure", "Comedy", "Drama", "Fantasy", "Horror", "Mystery",
			"Romance", "Sci-Fi", "Slice of Life", "Supernatural", "Thriller",
		)},
	}
}

func (c *AllAnimeClient) searchVariables(page int) aaSearchVariables {
	return aaSearchVariables{
		Limit:           allAnimePageSize,
		Page:            max(page, 1),
		TranslationType: c.translation,
		CountryOrigin:   "ALL",
	}
}

// ListPopular lists the top rated shows
func (c *AllAnimeClient) ListPopular(ctx context.Context, page int) ([]models.Title, error) {
	v := c.searchVariables(page)
	v.Search.SortBy = "Top"
	return c.shows(ctx, v)
}

// ListLatest lists the most recently updated shows
func (c *AllAnimeClient) ListLatest(ctx context.Context, page int) ([]models.Title, error) {
	v := c.searchVariables(page)
	v.Search.SortBy = "Recent"
	return c.shows(ctx, v)
}

// Search searches shows by name and facets
func (c *AllAnimeClient) Search(ctx context.Context, query string, page int, filters models.Filters) ([]models.Title, error) {
	if id, ok := directID(query); ok {
		t, err := c.GetDetail(ctx, id)
		return single(t), err
	}

	v := c.searchVariables(page)
	v.Search.Query = strings.TrimSpace(query)
	newAllAnimeFilters(filters).apply(&v)
	return c.shows(ctx, v)
}

// post sends one GraphQL document
func post[T any](ctx context.Context, c *AllAnimeClient, payload any) (T, error) {
	var zero T
	body, err := json.Marshal(payload)
	if err != nil {
		return zero, errors.Wrap(err, "failed to encode graphql payload")
	}
	return util.FetchJSON[T](ctx, c.client, util.Request{
		Method:  http.MethodPost,
		URL:     c.apiBase,
		Body:    body,
		Headers: map[string]string{"Content-Type": "application/json"},
	}).Get()
}

func (c *AllAnimeClient) shows(ctx context.Context, v aaSearchVariables) ([]models.Title, error) {
	resp, err := post[aaShowsResponse](ctx, c, aaRequest[aaSearchVariables]{Variables: v, Query: allAnimeSearchGQL})
	if err != nil {
		util.Debug("AllAnime listing failed", "error", err)
		return []models.Title{}, ctx.Err()
	}

	titles := make([]models.Title, 0, len(resp.Data.Shows.Edges))
	for _, show := range resp.Data.Shows.Edges {
		if show.ID == "" {
			continue
		}
		t := c.toTitle(show)
		t.UnitCount = len(show.AvailableEpisodesDetail[c.translation])
		titles = append(titles, t)
	}
	return titles, nil
}

func (c *AllAnimeClient) displayName(show aaShow) string {
	name := show.Name
	switch c.titleStyle {
	case "eng", "english":
		name = lo.CoalesceOrEmpty(show.EnglishName, name)
	case "native":
		name = lo.CoalesceOrEmpty(show.NativeName, name)
	}
	return lo.CoalesceOrEmpty(name, "Unknown Title")
}

func (c *AllAnimeClient) toTitle(show aaShow) models.Title {
	t := models.NewTitle(show.ID, models.KindAnime)
	t.Name = c.displayName(show)
	t.SourceURL = c.baseURL + "/anime/" + Slugify(t.Name)
	t.Cover = resolveURL(c.baseURL, show.Thumbnail)
	if show.Score != nil {
		t.Rating = *show.Score
	}
	return t
}

// GetDetail fetches a show with its episode index for the configured translation
func (c *AllAnimeClient) GetDetail(ctx context.Context, id string) (models.Title, error) {
	showID := strings.Split(id, "<&sep>")[0]

	resp, err := post[aaShowResponse](ctx, c, aaRequest[map[string]string]{
		Variables: map[string]string{"_id": showID},
		Query:     allAnimeDetailGQL,
	})
	if err != nil || resp.Data.Show == nil {
		util.Debug("AllAnime detail failed", "id", id, "error", err)
		return models.ErrorTitle(id, models.KindAnime), ctx.Err()
	}
	show := *resp.Data.Show

	t := c.toTitle(show)
	t.Description = lo.CoalesceOrEmpty(StripHTML(show.Description), "No description available")
	t.Status = NormalizeStatus(allAnimeStatuses, show.Status)
	if show.Genres != nil {
		t.Genres = show.Genres
		t.Tags = append(t.Tags, show.Genres...)
	}
	if show.Type != "" {
		t.Tags = append(t.Tags, show.Type)
	}
	if len(show.Studios) > 0 {
		t.Author = strings.Join(show.Studios, ", ")
	}

	for _, episode := range show.AvailableEpisodesDetail[c.translation] {
		unitID, err := json.Marshal(aaRequest[aaStreamVariables]{
			Variables: aaStreamVariables{ShowID: showID, TranslationType: c.translation, EpisodeString: episode},
			Query:     allAnimeStreamsGQL,
		})
		if err != nil {
			continue
		}
		t.AddUnit("Episode "+episode, string(unitID))
	}
	t.UnitCount = len(t.Units)
	return t, nil
}

// GetUnit resolves an episode payload to its best stream
func (c *AllAnimeClient) GetUnit(ctx context.Context, id string) (models.Unit, error) {
	var payload aaRequest[aaStreamVariables]
	if err := json.Unmarshal([]byte(id), &payload); err != nil || payload.Variables.ShowID == "" {
		util.Debug("AllAnime unit id is not a stream payload", "id", id)
		return models.ErrorUnit(id, models.KindAnime), nil
	}
	if payload.Query == "" {
		payload.Query = allAnimeStreamsGQL
	}

	resp, err := post[aaEpisodeResponse](ctx, c, payload)
	if err != nil || resp.Data.Episode == nil {
		util.Debug("AllAnime episode failed", "error", err)
		return models.ErrorUnit(id, models.KindAnime), ctx.Err()
	}

	unit := models.Unit{
		ID:    id,
		Name:  "Episode " + payload.Variables.EpisodeString,
		Kind:  models.KindAnime,
		Pages: []string{},
	}

	candidates := c.candidates(ctx, resp.Data.Episode.SourceUrls)
	if best, ok := SelectBestStream(candidates).Get(); ok {
		unit.Stream = &models.Stream{
			URL:      best.URL,
			Quality:  best.Quality,
			Language: payload.Variables.TranslationType,
			Priority: best.Priority,
		}
	}
	return unit, ctx.Err()
}

// candidates decodes every source URL and expands internal player links.
// Direct links come first, then the expanded internal ones.
func (c *AllAnimeClient) candidates(ctx context.Context, sources []aaSourceURL) []Candidate {
	var (
		out        []Candidate
		internal   []Candidate
		iframeHead string
		versionErr error
		fetched    bool
	)

	for _, src := range sources {
		link := DecodeObfuscated(src.SourceURL)
		switch {
		case strings.HasPrefix(link, "http"):
			out = append(out, Candidate{URL: link, Quality: src.SourceName, Priority: src.Priority})

		case strings.HasPrefix(link, "/apivtwo/"):
			if !fetched {
				iframeHead, versionErr = c.iframeHead(ctx)
				fetched = true
			}
			if versionErr != nil {
				continue
			}
			internal = append(internal, c.playerLinks(ctx, iframeHead, link, src)...)
		}
	}
	return append(out, internal...)
}

func (c *AllAnimeClient) iframeHead(ctx context.Context) (string, error) {
	v, err := util.FetchJSON[aaVersion](ctx, c.client, util.Request{URL: c.baseURL + "/getVersion"}).Get()
	if err != nil {
		util.Debug("AllAnime getVersion failed", "error", err)
		return "", err
	}
	if v.EpisodeIframeHead == "" {
		return "", errors.New("getVersion returned no episodeIframeHead")
	}
	return v.EpisodeIframeHead, nil
}

func (c *AllAnimeClient) playerLinks(ctx context.Context, head, path string, src aaSourceURL) []Candidate {
	target := strings.TrimRight(head, "/") + strings.Replace(path, "/clock?", "/clock.json?", 1)
	resp, err := util.FetchJSON[aaClockLinks](ctx, c.client, util.Request{URL: target}).Get()
	if err != nil {
		util.Debug("AllAnime player link failed", "source", src.SourceName, "error", err)
		return nil
	}

	var out []Candidate
	for _, l := range resp.Links {
		switch {
		case l.MP4:
			out = append(out, Candidate{URL: l.Link, Quality: fmt.Sprintf("Direct MP4 (%s)", src.SourceName), Priority: src.Priority + mp4Boost})
		case l.HLS:
			out = append(out, Candidate{URL: l.Link, Quality: fmt.Sprintf("HLS (%s)", src.SourceName), Priority: src.Priority + hlsBoost})
		}
	}
	return out
}
