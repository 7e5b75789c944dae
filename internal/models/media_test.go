package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestNewTitleDefaults(t *testing.T) {
	t.Parallel()

	title := NewTitle("42", KindManga)
	assert.Equal(t, "42", title.ID)
	assert.Equal(t, UnknownAuthor, title.Author)
	assert.Equal(t, StatusOngoing, title.Status)
	assert.Equal(t, NoRating, title.Rating)
	assert.NotNil(t, title.Units)
	assert.NotNil(t, title.Tags)
	assert.NotNil(t, title.Genres)
	assert.False(t, title.Failed())
}

func TestPlaceholders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind       Kind
		title      string
		unit       string
		unitNounIs string
	}{
		{KindManga, "Error loading manga", "Error loading chapter", "Chapter"},
		{KindAnime, "Error loading anime", "Error loading episode", "Episode"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			title := ErrorTitle("x", tt.kind)
			assert.Equal(t, tt.title, title.Name)
			assert.True(t, title.Failed())
			assert.Equal(t, NoRating, title.Rating)

			unit := ErrorUnit("x", tt.kind)
			assert.Equal(t, tt.unit, unit.Name)
			assert.NotNil(t, unit.Pages)
			assert.Empty(t, unit.Pages)
			assert.Equal(t, tt.unitNounIs, tt.kind.UnitNoun())
		})
	}
}

func TestAddUnitLastWriteWins(t *testing.T) {
	t.Parallel()

	var title Title
	title.AddUnit("Chapter 1", "a")
	title.AddUnit("Chapter 1", "b")
	assert.Equal(t, map[string]string{"Chapter 1": "b"}, title.Units)
}

func TestStatusValid(t *testing.T) {
	t.Parallel()

	for _, s := range []Status{StatusOngoing, StatusCompleted, StatusCancelled, StatusHiatus, StatusUnknown} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, Status("Finished").Valid())
	assert.False(t, Status("").Valid())
}

func TestFilters(t *testing.T) {
	t.Parallel()

	f := Filters{
		"genre":  {" action , comedy", "drama"},
		"status": {""},
		"sort":   {" popular ", "latest"},
	}
	assert.Equal(t, []string{"action", "comedy", "drama"}, f.All("genre"))
	assert.Equal(t, "popular", f.First("sort"))
	assert.Equal(t, "", f.First("missing"))
	assert.True(t, f.Has("genre"))
	assert.False(t, f.Has("status"))

	var none Filters
	assert.Empty(t, none.All("genre"))
	assert.Empty(t, none.First("genre"))
}

func TestTitleProjection(t *testing.T) {
	t.Parallel()

	title := NewTitle("42", KindManga)
	title.SourceURL = "/title/42"
	title.Name = "Frieren"
	title.Cover = "https://img.test/42.jpg"
	title.UnitCount = 1
	title.AddUnit("Chapter 1", "c1")

	s := title.Get()
	assert.Equal(t, "42", s.ID)
	assert.Equal(t, "/title/42", s.URL)
	assert.Equal(t, "Frieren", s.Title)
	assert.Equal(t, "https://img.test/42.jpg", s.Poster)
	assert.Equal(t, 1, s.TotalUnits)
	assert.Equal(t, title.Get(), s)

	var encoded map[string]any
	raw, err := json.Marshal(s)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &encoded))
	assert.Equal(t, map[string]any{"Chapter 1": "c1"}, encoded["chapters"])
	assert.EqualValues(t, 1, encoded["total_chapters"])
	assert.EqualValues(t, -1, encoded["rating"])
	assert.NotContains(t, encoded, "episodes")
}

func TestAnimeProjectionUsesEpisodeKeys(t *testing.T) {
	t.Parallel()

	title := Title{ID: "abc", Kind: KindAnime}
	s := title.Get()
	assert.NotNil(t, s.Units)
	assert.NotNil(t, s.Tags)
	assert.NotNil(t, s.Genres)

	raw, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"episodes":{}`)
	assert.Contains(t, string(raw), `"total_episodes":0`)
	assert.Contains(t, string(raw), `"tags":[]`)

	out, err := yaml.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(out), "total_episodes: 0")
}

func TestUnitProjection(t *testing.T) {
	t.Parallel()

	s := Unit{ID: "c1", Name: "Chapter 1", Kind: KindManga, Pages: []string{"a", "b"}}.Get()
	assert.Equal(t, UnitSummary{ID: "c1", Title: "Chapter 1", Kind: KindManga, TotalPages: 2, Pages: []string{"a", "b"}}, s)

	video := Unit{ID: "e1", Name: "Episode 1", Kind: KindAnime, Stream: &Stream{URL: "https://v.test/m.m3u8", Quality: "1080p", Language: "sub"}}.Get()
	assert.Equal(t, "https://v.test/m.m3u8", video.StreamURL)
	assert.Equal(t, "1080p", video.Quality)
	assert.Equal(t, "sub", video.Language)
	assert.Equal(t, []string{}, video.Pages)
	assert.Zero(t, video.TotalPages)

	raw, err := json.Marshal(s)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "stream_url")
}

func TestSummaries(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []Summary{}, Summaries(nil))
	assert.Len(t, Summaries([]Title{NewTitle("1", KindManga), NewTitle("2", KindManga)}), 2)
}

func TestSortedLabels(t *testing.T) {
	t.Parallel()

	title := NewTitle("x", KindManga)
	for _, label := range []string{"Chapter 10", "Chapter 2", "Chapter 2.5", "Oneshot", "Episode 1", "Chapter 1", "Announcement"} {
		title.AddUnit(label, label)
	}
	assert.Equal(t, []string{"Chapter 1", "Episode 1", "Chapter 2", "Chapter 2.5", "Chapter 10", "Announcement", "Oneshot"}, title.SortedLabels())
	assert.Empty(t, NewTitle("y", KindManga).SortedLabels())
}
