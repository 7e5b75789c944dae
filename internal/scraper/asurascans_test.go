package scraper

import (
	"context"
	"net/http"
	"testing"

	"github.com/alvarorichard/Gomanga/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const asuraListing = `<html><body><div class="grid">
	<a href="series/solo-leveling-1a2b3c"><div class="block"><span class="block">Solo Leveling</span></div><img src="/covers/solo.webp"></a>
	<a href="/series/empty"><div class="block"><span class="block"></span></div></a>
</div></body></html>`

const asuraSeries = `<html><body>
	<span class="text-xl font-bold">Solo Leveling</span>
	<img alt="poster" src="https://gg.asuracomic.net/poster.webp">
	<span class="font-medium text-sm">Hunters and gates.</span>
	<div class="grid"><div><h3>Author</h3><h3>Chugong</h3></div></div>
	<div class="flex"><h3>Status</h3><h3>Completed</h3></div>
	<div class="flex"><h3>Type</h3><h3>Manhwa</h3></div>
	<div class="space-y-1"><div class="flex"><button class="text-white">Action</button></div></div>
	<div class="scrollbar-thumb-themecolor">
		<div class="group"><a href="solo-leveling-1a2b3c/chapter/2"><h3>Chapter 2<span>The End</span></h3></a></div>
		<div class="group"><a href="/series/solo-leveling-1a2b3c/chapter/1"><h3>Chapter 1</h3></a></div>
	</div>
</body></html>`

const asuraChapter = `<html><body>
	<h2 class="flex-1">Chapter 1</h2>
	<script>self.__next_f.push([1,"12:{\"pages\":[{\"order\":2,\"url\":\"https://img.test/2.jpg\"},{\"order\":1,\"url\":\"https://img.test/1.jpg\"}]}"])</script>
</body></html>`

const asuraChapterNoScript = `<html><body>
	<img alt="chapter page 1" src="/p/1.jpg"><img alt="logo" src="/logo.png"><img alt="chapter page 2" data-src="/p/2.jpg">
</body></html>`

func newAsuraFixture(t *testing.T) (*AsuraScansClient, *upstream) {
	t.Helper()
	up := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/series":
			writeHTML(w, asuraListing)
		case "/series/solo-leveling-1a2b3c":
			writeHTML(w, asuraSeries)
		case "/series/solo-leveling-1a2b3c/chapter/1":
			writeHTML(w, asuraChapter)
		case "/series/solo-leveling-1a2b3c/chapter/2":
			writeHTML(w, asuraChapterNoScript)
		default:
			http.NotFound(w, r)
		}
	})
	c, err := NewAsuraScansClient(testSettings())
	require.NoError(t, err)
	pointAt(t, c, up.URL)
	return c, up
}

func TestAsuraListing(t *testing.T) {
	t.Parallel()

	c, up := newAsuraFixture(t)
	titles, err := c.Search(context.Background(), "solo", 3, models.Filters{"genres": {"action", "fantasy"}, "status": {"2"}})
	require.NoError(t, err)
	require.Len(t, titles, 1)
	assert.Equal(t, "solo-leveling-1a2b3c", titles[0].ID)
	assert.Equal(t, up.URL+"/covers/solo.webp", titles[0].Cover)
	assert.Equal(t, models.NoRating, titles[0].Rating)

	q := up.last("/series").URL.Query()
	assert.Equal(t, "solo", q.Get("name"))
	assert.Equal(t, "3", q.Get("page"))
	assert.Equal(t, "action,fantasy", q.Get("genres"))
	assert.Equal(t, "2", q.Get("status"))
	assert.Equal(t, "-1", q.Get("types"))
	assert.Equal(t, "rating", q.Get("order"))
}

func TestAsuraDetail(t *testing.T) {
	t.Parallel()

	c, _ := newAsuraFixture(t)
	title, err := c.GetDetail(context.Background(), "solo-leveling-1a2b3c")
	require.NoError(t, err)

	assert.Equal(t, "Solo Leveling", title.Name)
	assert.Equal(t, "Chugong", title.Author)
	assert.Equal(t, models.StatusCompleted, title.Status)
	assert.Equal(t, []string{"Manhwa", "Action"}, title.Genres)
	assert.Equal(t, map[string]string{
		"Chapter 2 - The End": "solo-leveling-1a2b3c/chapter/2",
		"Chapter 1":           "solo-leveling-1a2b3c/chapter/1",
	}, title.Units)
	assert.Equal(t, 2, title.UnitCount)
}

func TestAsuraUnitPrefersInlinePages(t *testing.T) {
	t.Parallel()

	c, _ := newAsuraFixture(t)
	unit, err := c.GetUnit(context.Background(), "solo-leveling-1a2b3c/chapter/1")
	require.NoError(t, err)
	assert.Equal(t, "Chapter 1", unit.Name)
	assert.Equal(t, []string{"https://img.test/1.jpg", "https://img.test/2.jpg"}, unit.Pages)

	unit, err = c.GetUnit(context.Background(), "solo-leveling-1a2b3c/chapter/2")
	require.NoError(t, err)
	assert.Equal(t, []string{c.baseURL + "/p/1.jpg", c.baseURL + "/p/2.jpg"}, unit.Pages)
}

func TestLastSegment(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "abc", lastSegment("https://x.test/series/abc/"))
	assert.Equal(t, "abc", lastSegment("/d/abc?page=2"))
	assert.Equal(t, "abc", lastSegment("abc"))
}
