package scraper

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/alvarorichard/Gomanga/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const toonilyListing = `<html><body>
	<div class="page-item-detail manga">
		<img data-src="https://cdn.test/cover-175x238.jpg">
		<h3 class="h5"><a href="https://toonily.com/serie/my-boss/">My Boss</a></h3>
	</div>
	<div class="page-item-detail manga"><h3 class="h5"><a>no link</a></h3></div>
</body></html>`

const toonilySearch = `<html><body>
	<div class="c-tabs-item__content">
		<img src="https://cdn.test/found-110x150.webp">
		<div class="post-title"><a href="/serie/found-it/">Found It</a></div>
	</div>
</body></html>`

const toonilySeriesPage = `<html><body>
	<div class="post-title"><h1> My Boss </h1></div>
	<div class="summary_image"><img data-src="https://cdn.test/boss-193x278.jpg"></div>
	<div class="author-content"><a>Writer</a><a>Updating</a></div>
	<div class="description-summary"><div class="summary__content"><p>First.</p><p></p><p>Second.</p></div></div>
	<div class="post-content_item"><h5>Alternative</h5><div class="summary-content">Boss-nim</div></div>
	<div class="post-status"><div class="summary-content">Completed</div></div>
	<div class="genres-content"><a>Romance</a><a>Drama</a></div>
	<div id="manga-chapters-holder" data-id="1"></div>
	<ul><li class="wp-manga-chapter"><a href="/serie/my-boss/chapter-0/">Inline only</a></li></ul>
</body></html>`

const toonilyChapters = `<ul>
	<li class="wp-manga-chapter"><a href="{base}/serie/my-boss/chapter-2/">Chapter 2</a></li>
	<li class="wp-manga-chapter"><a href="{base}/serie/my-boss/chapter-1/">Chapter 1</a></li>
</ul>`

const toonilyChapterPage = `<html><body>
	<ol class="breadcrumb"><li>My Boss</li><li class="active"> Chapter 1 </li></ol>
	<div class="page-break"><img data-src=" https://cdn.test/p1.jpg "></div>
	<div class="page-break"><img src="https://toonily.com/wp-content/images/default-image.jpg"></div>
	<div class="page-break"><img src="/p2.jpg"></div>
</body></html>`

func newToonilyFixture(t *testing.T, ajax bool) (*ToonilyClient, *upstream) {
	t.Helper()
	up := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/serie/page/2/":
			writeHTML(w, toonilyListing)
		case "/":
			writeHTML(w, toonilySearch)
		case "/serie/my-boss/":
			writeHTML(w, toonilySeriesPage)
		case "/serie/my-boss/ajax/chapters/":
			if !ajax || r.Method != http.MethodPost {
				http.Error(w, "nope", http.StatusBadRequest)
				return
			}
			base := "http://" + r.Host
			writeHTML(w, strings.ReplaceAll(toonilyChapters, "{base}", base))
		case "/serie/my-boss/chapter-1/":
			writeHTML(w, toonilyChapterPage)
		default:
			http.NotFound(w, r)
		}
	})
	c, err := NewToonilyClient(testSettings())
	require.NoError(t, err)
	pointAt(t, c, up.URL)
	return c, up
}

func TestToonilyCoverDropsSizeSuffix(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "https://cdn.test/a.jpg", toonilyCover("https://cdn.test/a-175x238.jpg"))
	assert.Equal(t, "https://cdn.test/a-b.jpg", toonilyCover("https://cdn.test/a-b.jpg"))
}

func TestToonilyListingFallsBackToGridItems(t *testing.T) {
	t.Parallel()

	c, up := newToonilyFixture(t, true)
	titles, err := c.ListPopular(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, titles, 1)
	assert.Equal(t, "my-boss", titles[0].ID)
	assert.Equal(t, "My Boss", titles[0].Name)
	assert.Equal(t, "https://cdn.test/cover.jpg", titles[0].Cover)
	assert.Equal(t, "/serie/my-boss", titles[0].SourceURL)

	req := up.last("/serie/page/2/")
	assert.Equal(t, "views", req.URL.Query().Get("m_orderby"))
	cookie, err := req.Cookie("toonily-mature")
	require.NoError(t, err)
	assert.Equal(t, "1", cookie.Value)
}

func TestToonilySearchCleansQuery(t *testing.T) {
	t.Parallel()

	c, up := newToonilyFixture(t, true)
	titles, err := c.Search(context.Background(), "My-Boss's  Secret!", 3, models.Filters{
		"genre":  {"romance,drama"},
		"status": {"end"},
		"order":  {"rating"},
		"year":   {"2021"},
	})
	require.NoError(t, err)
	require.Len(t, titles, 1)
	assert.Equal(t, "found-it", titles[0].ID)
	assert.Equal(t, "https://cdn.test/found.webp", titles[0].Cover)

	q := up.last("/").URL.Query()
	assert.Equal(t, "my boss s secret", q.Get("s"))
	assert.Equal(t, "wp-manga", q.Get("post_type"))
	assert.Equal(t, "3", q.Get("paged"))
	assert.Equal(t, []string{"romance", "drama"}, q["genre[]"])
	assert.Equal(t, []string{"end"}, q["status[]"])
	assert.Equal(t, "rating", q.Get("m_orderby"))
	assert.Equal(t, "2021", q.Get("release"))
}

func TestToonilyDetailLoadsAjaxChapters(t *testing.T) {
	t.Parallel()

	c, up := newToonilyFixture(t, true)
	title, err := c.GetDetail(context.Background(), "my-boss")
	require.NoError(t, err)

	assert.Equal(t, "My Boss", title.Name)
	assert.Equal(t, "Writer", title.Author)
	assert.Equal(t, "First.\n\nSecond.\n\nAlternative Names: Boss-nim", title.Description)
	assert.Equal(t, "https://cdn.test/boss.jpg", title.Cover)
	assert.Equal(t, models.StatusCompleted, title.Status)
	assert.Equal(t, []string{"Romance", "Drama"}, title.Genres)
	assert.Equal(t, map[string]string{
		"Chapter 2": "/serie/my-boss/chapter-2/",
		"Chapter 1": "/serie/my-boss/chapter-1/",
	}, title.Units)
	assert.Equal(t, 2, title.UnitCount)
	assert.Equal(t, "XMLHttpRequest", up.last("/serie/my-boss/ajax/chapters/").Header.Get("X-Requested-With"))
}

func TestToonilyDetailIsIdempotent(t *testing.T) {
	t.Parallel()

	c, _ := newToonilyFixture(t, true)
	first, err := c.GetDetail(context.Background(), "my-boss")
	require.NoError(t, err)
	second, err := c.GetDetail(context.Background(), "my-boss")
	require.NoError(t, err)
	assert.ElementsMatch(t, first.SortedLabels(), second.SortedLabels())
}

func TestToonilyDetailFallsBackToInlineChapters(t *testing.T) {
	t.Parallel()

	c, _ := newToonilyFixture(t, false)
	title, err := c.GetDetail(context.Background(), "my-boss")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Inline only": "/serie/my-boss/chapter-0/"}, title.Units)
}

func TestToonilyUnitSkipsPlaceholders(t *testing.T) {
	t.Parallel()

	c, _ := newToonilyFixture(t, true)
	unit, err := c.GetUnit(context.Background(), "/serie/my-boss/chapter-1/")
	require.NoError(t, err)
	assert.Equal(t, "Chapter 1", unit.Name)
	assert.Equal(t, []string{"https://cdn.test/p1.jpg", c.baseURL + "/p2.jpg"}, unit.Pages)
}
