package scraper

import (
	"testing"

	"github.com/alvarorichard/Gomanga/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestDirectID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		query  string
		wantID string
		wantOK bool
	}{
		{"id:42", "42", true},
		{"  ID: solo-leveling ", "solo-leveling", true},
		{"id:", "", false},
		{"identity", "", false},
		{"42", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			id, ok := directID(tt.query)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestOptionBuilders(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []models.FilterOption{{Label: "TV", Value: "TV"}}, plainOptions("TV"))
	assert.Equal(t, []models.FilterOption{{Label: "All", Value: "-1"}, {Label: "Ongoing", Value: "1"}},
		labeledOptions("All", "-1", "Ongoing", "1", "dangling"))

	years := yearOptions(2024, 2022)
	assert.Equal(t, []string{"2024", "2023", "2022"}, []string{years[0].Value, years[1].Value, years[2].Value})
}

func TestSingleDropsPlaceholders(t *testing.T) {
	t.Parallel()

	assert.Empty(t, single(models.ErrorTitle("1", models.KindManga)))

	ok := models.NewTitle("1", models.KindManga)
	ok.Name = "Found"
	assert.Len(t, single(ok), 1)
}

func TestFiltersAccessors(t *testing.T) {
	t.Parallel()

	f := models.Filters{
		"genres": {"action, comedy", "drama"},
		"sort":   {" popular "},
		"empty":  {" , "},
	}
	assert.Equal(t, []string{"action", "comedy", "drama"}, f.All("genres"))
	assert.Equal(t, "popular", f.First("sort"))
	assert.False(t, f.Has("empty"))
	assert.False(t, f.Has("missing"))
	assert.Equal(t, "", f.First("missing"))
}
