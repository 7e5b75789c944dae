package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"testing"

	"github.com/alvarorichard/Gomanga/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nhGalleryPage = `<html><body>
	<div id="info"><h1>Fallback Title</h1></div>
	<script>
		window._gallery = JSON.parse("{"media_id":"999","title":{"english":"English Title","japanese":"Japanese Title","pretty":"Pretty"},"images":{"pages":[{"t":"j"},{"t":"w"}],"cover":{"t":"p"}},"tags":[{"type":"artist","name":"someone"},{"type":"tag","name":"glasses"},{"type":"category","name":"doujinshi"}],"num_favorites":12}");
	</script>
	<script>window._n_app = {media_server: 7};</script>
</body></html>`

const nhGalleryHTMLOnly = `<html><body>
	<div id="info"><h1>Only HTML</h1><div>31 pages</div></div>
	<div id="cover"><img data-src="https://t.test/galleries/555/cover.jpg"></div>
	<div id="tags">
		<div class="tag-container">Artists: <a class="tag"><span class="name">drawer</span></a></div>
		<div class="tag-container">Tags: <a class="tag"><span class="name">maid</span></a></div>
	</div>
</body></html>`

func nhResultsPage(page int, next bool) string {
	nav := ""
	if next {
		nav = `<section class="pagination"><a class="next" href="?page=` + strconv.Itoa(page+1) + `">next</a></section>`
	}
	return fmt.Sprintf(`<html><body>
		<div class="gallery"><a href="/g/%d01/" class="cover"><img data-src="https://t.test/%d01.jpg"><div class="caption">Gallery %d-1</div></a></div>
		<div class="gallery"><a href="/g/%d02/" class="cover"><div class="caption">Gallery %d-2</div></a></div>
		%s
	</body></html>`, page, page, page, page, page, nav)
}

func newNHentaiFixture(t *testing.T, lastPage int) (*NHentaiClient, *upstream) {
	t.Helper()
	up := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/g/177013/":
			writeHTML(w, nhGalleryPage)
		case "/g/555/":
			writeHTML(w, nhGalleryHTMLOnly)
		case "/search/", "/":
			page, _ := strconv.Atoi(r.URL.Query().Get("page"))
			writeHTML(w, nhResultsPage(page, page < lastPage))
		default:
			http.NotFound(w, r)
		}
	})
	c, err := NewNHentaiClient(testSettings())
	require.NoError(t, err)
	pointAt(t, c, up.URL)
	return c, up
}

func TestNHentaiSearchFollowsPagination(t *testing.T) {
	t.Parallel()

	c, up := newNHentaiFixture(t, 2)
	titles, err := c.Search(context.Background(), "maid", 1, models.Filters{"tag": {"glasses", "-ntr"}, "sort": {"popular"}})
	require.NoError(t, err)
	require.Len(t, titles, 4)
	assert.Equal(t, "101", titles[0].ID)
	assert.Equal(t, "Gallery 2-2", titles[3].Name)
	assert.Equal(t, "https://t.test/101.jpg", titles[0].Cover)
	assert.Equal(t, 2, up.count("/search/"))

	q := up.last("/search/").URL.Query()
	assert.Equal(t, `maid tag:"glasses" -tag:"ntr"`, q.Get("q"))
	assert.Equal(t, "popular", q.Get("sort"))
}

func TestNHentaiSearchStopsAtCeiling(t *testing.T) {
	t.Parallel()

	c, up := newNHentaiFixture(t, 1000)
	titles, err := c.Search(context.Background(), "", 1, nil)
	require.NoError(t, err)
	assert.Len(t, titles, 2*DefaultMaxPages)
	assert.Equal(t, DefaultMaxPages, up.count("/search/"))
	assert.Equal(t, `""`, up.last("/search/").URL.Query().Get("q"))
}

func TestNHentaiNumericQueryResolvesGallery(t *testing.T) {
	t.Parallel()

	c, up := newNHentaiFixture(t, 1)
	titles, err := c.Search(context.Background(), "177013", 1, nil)
	require.NoError(t, err)
	require.Len(t, titles, 1)
	assert.Equal(t, "English Title", titles[0].Name)
	assert.Zero(t, up.count("/search/"))
}

func TestNHentaiDetailFromInlineJSON(t *testing.T) {
	t.Parallel()

	c, up := newNHentaiFixture(t, 1)
	title, err := c.GetDetail(context.Background(), "177013")
	require.NoError(t, err)

	assert.Equal(t, "English Title", title.Name)
	assert.Equal(t, "someone", title.Author)
	assert.Equal(t, up.URL+"/galleries/999/cover.png", title.Cover)
	assert.Equal(t, []string{"glasses"}, title.Genres)
	assert.Contains(t, title.Description, "Pages: 2")
	assert.Contains(t, title.Description, "Categories: doujinshi")
	assert.Equal(t, models.StatusCompleted, title.Status)
}

func TestNHentaiDetailFallsBackToHTML(t *testing.T) {
	t.Parallel()

	c, _ := newNHentaiFixture(t, 1)
	title, err := c.GetDetail(context.Background(), "555")
	require.NoError(t, err)

	assert.Equal(t, "Only HTML", title.Name)
	assert.Equal(t, "drawer", title.Author)
	assert.Equal(t, []string{"maid"}, title.Genres)
	assert.Contains(t, title.Description, "Pages: 31")
}

func TestNHentaiUnitPages(t *testing.T) {
	t.Parallel()

	c, _ := newNHentaiFixture(t, 1)
	unit, err := c.GetUnit(context.Background(), "177013")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://i7.nhentai.net/galleries/999/1.jpg",
		"https://i7.nhentai.net/galleries/999/2.webp",
	}, unit.Pages)

	unit, err = c.GetUnit(context.Background(), "555")
	require.NoError(t, err)
	assert.Len(t, unit.Pages, 31)
	assert.Equal(t, "https://i1.nhentai.net/galleries/555/1.jpg", unit.Pages[0])
}
