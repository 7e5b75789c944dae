package scraper

import (
	"context"
	"net/http"
	"testing"

	"github.com/alvarorichard/Gomanga/internal/models"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hentai3Listing = `<html><body>
	<div class="listing">
		<a href="/d/123"><img src="/thumb/123.jpg"><div>First Gallery</div></a>
		<a href="/d/123"><div>Duplicate</div></a>
		<a href="/d/456"><img data-src="https://cdn.test/456.jpg"><div></div></a>
	</div>
</body></html>`

const hentai3Gallery = `<html><body>
	<h1><span>Some Gallery</span></h1>
	<img class="w-96" src="https://cdn.test/g/123/thumbnail.jpg">
	<a href="/artists/someone">someone</a>
	<a href="/tags/big eyes">big eyes</a>
	<a href="/tags/glasses (female)">glasses (female)</a>
	<a href="/characters/hero">hero</a>
	<a href="/language/english">english</a>
	<div class="tag-container">pages:   24</div>
	<img src="https://cdn.test/g/123/cover.jpg">
	<img src="https://cdn.test/g/123/1t.jpg">
	<img src="https://cdn.test/g/123/2t.png">
</body></html>`

func newHentai3Fixture(t *testing.T) (*Hentai3Client, *upstream) {
	t.Helper()
	up := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/d/123":
			writeHTML(w, hentai3Gallery)
		default:
			writeHTML(w, hentai3Listing)
		}
	})
	c, err := NewHentai3Client(testSettings())
	require.NoError(t, err)
	pointAt(t, c, up.URL)
	return c, up
}

func TestHentai3Listing(t *testing.T) {
	t.Parallel()

	c, up := newHentai3Fixture(t)
	titles, err := c.ListPopular(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, titles, 2)

	assert.Equal(t, "First Gallery", titles[0].Name)
	assert.Equal(t, up.URL+"/thumb/123.jpg", titles[0].Cover)
	assert.Equal(t, "Unknown", titles[1].Name)
	assert.Equal(t, models.StatusCompleted, titles[0].Status)
	assert.Equal(t, map[string]string{"Chapter": "123"}, titles[0].Units)

	q := up.last("/search").URL.Query()
	assert.Equal(t, "pages:>0", q.Get("q"))
	assert.Equal(t, "2", q.Get("page"))
	assert.Equal(t, "popular", q.Get("sort"))
}

func TestHentai3SearchTerms(t *testing.T) {
	t.Parallel()

	c, up := newHentai3Fixture(t)
	_, err := c.Search(context.Background(), "maid", 2, models.Filters{
		"tags":        {"Glasses"},
		"female_tags": {"-Big Breasts"},
		"sort":        {"popular-7d"},
	})
	require.NoError(t, err)

	q := up.last("/search").URL.Query()
	assert.Equal(t, "maid,tags:'glasses',-tags:'big breasts (female)'", q.Get("q"))
	assert.Equal(t, "2", q.Get("page"))
	assert.Equal(t, "popular-7d", q.Get("sort"))
}

func TestHentai3PageCountFacet(t *testing.T) {
	t.Parallel()

	c, up := newHentai3Fixture(t)
	keys := lo.Map(c.Filters(), func(g models.FilterGroup, _ int) string { return g.Key })
	assert.Contains(t, keys, "pages")
	assert.NotContains(t, keys, "page")

	_, err := c.Search(context.Background(), "", 2, models.Filters{"pages": {">20"}})
	require.NoError(t, err)

	q := up.last("/search").URL.Query()
	assert.Equal(t, "page:'>20'", q.Get("q"))
	assert.Equal(t, "2", q.Get("page"))
}

func TestHentai3SingleFacetBrowsesItsPage(t *testing.T) {
	t.Parallel()

	c, up := newHentai3Fixture(t)
	_, err := c.Search(context.Background(), "", 3, models.Filters{"artist": {"some artist"}, "sort": {"popular"}})
	require.NoError(t, err)

	req := up.last("/artist/some-artist/3")
	require.NotNil(t, req)
	assert.Equal(t, "popular", req.URL.Query().Get("sort"))
	assert.Zero(t, up.count("/search"))
}

func TestHentai3Detail(t *testing.T) {
	t.Parallel()

	c, _ := newHentai3Fixture(t)
	title, err := c.GetDetail(context.Background(), "123")
	require.NoError(t, err)

	assert.Equal(t, "Some Gallery", title.Name)
	assert.Equal(t, "someone", title.Author)
	assert.Equal(t, []string{"Big Eyes", "Glasses ♀"}, title.Genres)
	assert.Equal(t, "https://cdn.test/g/123/thumbnail.jpg", title.Cover)
	assert.Contains(t, title.Description, "Characters: Hero")
	assert.Contains(t, title.Description, "Languages: English")
	assert.Contains(t, title.Description, "pages: 24")
}

func TestHentai3UnitUsesFullSizeImages(t *testing.T) {
	t.Parallel()

	c, _ := newHentai3Fixture(t)
	unit, err := c.GetUnit(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn.test/g/123/1.jpg", "https://cdn.test/g/123/2.png"}, unit.Pages)
}

func TestCapitalizeEach(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Big Eyes (female)", capitalizeEach("big EYES (female)"))
	assert.Equal(t, "Élan", capitalizeEach("élan"))
}
