package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"

	"github.com/alvarorichard/Gomanga/internal/models"
	"github.com/alvarorichard/Gomanga/internal/scraper"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// fakeSource serves fixed titles and remembers the last search
type fakeSource struct {
	name    string
	fail    bool
	query   string
	page    int
	filters models.Filters
}

func (f *fakeSource) Name() string      { return f.name }
func (f *fakeSource) BaseURL() string   { return "https://" + f.name + ".test" }
func (f *fakeSource) Kind() models.Kind { return models.KindManga }
func (f *fakeSource) Filters() []models.FilterGroup {
	return []models.FilterGroup{
		{Key: "genres", Label: "Genres", Multi: true, Options: []models.FilterOption{{Label: "Action", Value: "action"}}},
		{Key: "excluded-tags", Label: "Excluded tags"},
	}
}

func (f *fakeSource) titles() ([]models.Title, error) {
	if f.fail {
		return nil, errors.New("site down")
	}
	a := models.NewTitle("berserk", models.KindManga)
	a.Name = "Berserk"
	b := models.NewTitle("vagabond", models.KindManga)
	b.Name = "Vagabond"
	return []models.Title{a, b}, nil
}

func (f *fakeSource) ListPopular(_ context.Context, page int) ([]models.Title, error) {
	f.page = page
	return f.titles()
}

func (f *fakeSource) ListLatest(_ context.Context, page int) ([]models.Title, error) {
	f.page = page
	return f.titles()
}

func (f *fakeSource) Search(_ context.Context, query string, page int, filters models.Filters) ([]models.Title, error) {
	f.query, f.page, f.filters = query, page, filters
	return f.titles()
}

func (f *fakeSource) GetDetail(_ context.Context, id string) (models.Title, error) {
	t := models.NewTitle(id, models.KindManga)
	t.Name = "Detail of " + id
	t.AddUnit("Chapter 10", id+"/10")
	t.AddUnit("Chapter 2", id+"/2")
	t.AddUnit("Chapter 1", id+"/1")
	t.UnitCount = 3
	return t, nil
}

func (f *fakeSource) GetUnit(_ context.Context, id string) (models.Unit, error) {
	return models.Unit{ID: id, Name: "Chapter " + id, Kind: models.KindManga, Pages: []string{"https://img.test/" + id + "/1.jpg", "https://img.test/" + id + "/2.jpg"}}, nil
}

func newRegistry(sources ...*fakeSource) *scraper.Registry {
	r := scraper.NewRegistry(scraper.DefaultSettings(), nil)
	for _, s := range sources {
		r.Register(s)
	}
	return r
}

func run(t *testing.T, reg *scraper.Registry, args ...string) (string, error) {
	t.Helper()
	return runWith(t, []Option{WithRegistry(reg)}, args...)
}

func runWith(t *testing.T, opts []Option, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd(opts...)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// ============================================================================
// Listing commands
// ============================================================================

func TestSourcesCommand(t *testing.T) {
	reg := newRegistry(&fakeSource{name: "MangaDex"}, &fakeSource{name: "Comick"})

	out, err := run(t, reg, "sources")
	require.NoError(t, err)
	assert.Contains(t, out, "MangaDex")
	assert.Contains(t, out, "https://Comick.test")

	out, err = run(t, reg, "sources", "--format", "json")
	require.NoError(t, err)
	var infos []scraper.SourceInfo
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	assert.Len(t, infos, 2)

	out, err = run(t, reg, "sources", "filters", "comick")
	require.NoError(t, err)
	assert.Contains(t, out, "genres")
	assert.Contains(t, out, "(free text)")

	_, err = run(t, reg, "sources", "filters", "ghost")
	assert.ErrorIs(t, err, scraper.ErrSourceNotFound)
}

func TestPopularAndLatestCommands(t *testing.T) {
	src := &fakeSource{name: "MangaDex"}
	reg := newRegistry(src)

	out, err := run(t, reg, "popular", "mangadex", "--page", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "Berserk")
	assert.Contains(t, out, "Vagabond")
	assert.Equal(t, 4, src.page)

	out, err = run(t, reg, "latest", "mangadex", "-f", "yaml")
	require.NoError(t, err)
	var summaries []map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &summaries))
	require.Len(t, summaries, 2)
	assert.Equal(t, "berserk", summaries[0]["id"])
	assert.Equal(t, 1, src.page)

	_, err = run(t, reg, "popular", "mangadex", "--page", "0")
	assert.ErrorIs(t, err, scraper.ErrInvalidArgument)
}

func TestSearchCommand(t *testing.T) {
	src := &fakeSource{name: "Comick"}
	reg := newRegistry(src)

	_, err := run(t, reg, "search", "comick", "solo", "leveling", "--filter", "genres=action", "--filter", "genres=fantasy", "--filter", "sort=rating")
	require.NoError(t, err)
	assert.Equal(t, "solo leveling", src.query)
	assert.Equal(t, models.Filters{"genres": {"action", "fantasy"}, "sort": {"rating"}}, src.filters)

	_, err = run(t, reg, "search", "comick", "x", "--filter", "broken")
	assert.Error(t, err)

	_, err = run(t, reg, "search")
	assert.Error(t, err)
}

func TestSearchAllCommand(t *testing.T) {
	reg := newRegistry(&fakeSource{name: "Good"}, &fakeSource{name: "Bad", fail: true})

	out, err := run(t, reg, "search", "--all", "berserk", "-f", "json")
	require.NoError(t, err)

	var results []struct {
		Source string           `json:"source"`
		Titles []map[string]any `json:"titles"`
		Error  string           `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	assert.Equal(t, "Good", results[0].Source)
	assert.Len(t, results[0].Titles, 2)
	assert.Contains(t, results[1].Error, "site down")

	out, err = run(t, reg, "search", "--all", "berserk")
	require.NoError(t, err)
	assert.Contains(t, out, "unavailable")
}

// ============================================================================
// Detail and unit
// ============================================================================

func TestDetailCommandOrdersUnits(t *testing.T) {
	reg := newRegistry(&fakeSource{name: "MangaDex"})

	out, err := run(t, reg, "detail", "mangadex", "berserk")
	require.NoError(t, err)
	assert.Contains(t, out, "Detail of berserk")

	first := bytes.Index([]byte(out), []byte("Chapter 1 "))
	second := bytes.Index([]byte(out), []byte("Chapter 2 "))
	tenth := bytes.Index([]byte(out), []byte("Chapter 10"))
	require.True(t, first >= 0 && second >= 0 && tenth >= 0, out)
	assert.Less(t, first, second)
	assert.Less(t, second, tenth)
}

func TestUnitCommand(t *testing.T) {
	reg := newRegistry(&fakeSource{name: "MangaDex"})

	out, err := run(t, reg, "unit", "mangadex", "abc", "-f", "json")
	require.NoError(t, err)
	var unit models.UnitSummary
	require.NoError(t, json.Unmarshal([]byte(out), &unit))
	assert.Equal(t, 2, unit.TotalPages)

	out, err = run(t, reg, "unit", "mangadex", "abc")
	require.NoError(t, err)
	assert.Contains(t, out, "https://img.test/abc/2.jpg")

	_, err = run(t, reg, "unit", "mangadex")
	assert.Error(t, err)
}

func TestUnknownFormat(t *testing.T) {
	_, err := run(t, newRegistry(), "sources", "--format", "xml")
	assert.ErrorContains(t, err, "unknown format")
}

// ============================================================================
// Interactive browsing
// ============================================================================

func TestBrowseWalksThroughMenus(t *testing.T) {
	reg := newRegistry(&fakeSource{name: "MangaDex"}, &fakeSource{name: "Comick"})

	var labels []string
	selectItem := func(label string, items []string) (int, string, error) {
		labels = append(labels, label)
		switch label {
		case "Source":
			return 1, items[1], nil
		case "Title":
			return 1, items[1], nil
		}
		// first chapter after natural ordering
		return 0, items[0], nil
	}
	prompt := func(string, int) (string, error) { return "", nil }

	out, err := runWith(t, []Option{WithRegistry(reg), WithPrompts(selectItem, prompt)}, "browse")
	require.NoError(t, err)
	require.Len(t, labels, 3)
	assert.Equal(t, []string{"Source", "Title"}, labels[:2])
	assert.Contains(t, out, "Detail of vagabond")
	assert.Contains(t, out, "https://img.test/vagabond/1/1.jpg")
}

func TestBrowseStopsOnPromptError(t *testing.T) {
	reg := newRegistry(&fakeSource{name: "MangaDex"})
	abort := errors.New("^C")
	selectItem := func(string, []string) (int, string, error) { return -1, "", abort }
	prompt := func(string, int) (string, error) { return "berserk", nil }

	_, err := runWith(t, []Option{WithRegistry(reg), WithPrompts(selectItem, prompt)}, "browse", "mangadex")
	assert.ErrorIs(t, err, abort)
}

// ============================================================================
// Helpers
// ============================================================================

func TestParseFilters(t *testing.T) {
	tests := []struct {
		name    string
		raw     []string
		want    models.Filters
		wantErr bool
	}{
		{"empty", nil, models.Filters{}, false},
		{"repeated key", []string{"tag=a", "tag= b "}, models.Filters{"tag": {"a", "b"}}, false},
		{"value with equals", []string{"q=a=b"}, models.Filters{"q": {"a=b"}}, false},
		{"empty value", []string{"sort="}, models.Filters{"sort": {""}}, false},
		{"missing separator", []string{"sort"}, nil, true},
		{"missing key", []string{"=x"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFilters(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := runWith(t, nil, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Gomanga v")
	assert.Contains(t, out, "built-in sources")
}

func TestVersionCheck(t *testing.T) {
	asset := fmt.Sprintf("gomanga-%s-%s", runtime.GOOS, runtime.GOARCH)
	if runtime.GOOS == "windows" {
		asset += ".exe"
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"tag_name":"v99.0.0","html_url":"https://releases.test/v99","assets":[{"name":%q,"browser_download_url":"https://dl.test/bin"}]}`, asset)
	}))
	defer server.Close()

	out, err := runWith(t, nil, "version", "--check", "--release-api", server.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "New version available: v99.0.0")
	assert.Contains(t, out, "https://dl.test/bin")
}
