package scraper

import (
	"strconv"
	"strings"

	"github.com/alvarorichard/Gomanga/internal/models"
	"github.com/samber/lo"
)

// idPrefix marks a search query that names a title directly
const idPrefix = "id:"

// directID reports whether query is an "id:<value>" lookup
func directID(query string) (string, bool) {
	query = strings.TrimSpace(query)
	if !strings.HasPrefix(strings.ToLower(query), idPrefix) {
		return "", false
	}
	id := strings.TrimSpace(query[len(idPrefix):])
	return id, id != ""
}

// plainOptions builds options whose label is the value itself
func plainOptions(values ...string) []models.FilterOption {
	return lo.Map(values, func(v string, _ int) models.FilterOption {
		return models.FilterOption{Label: v, Value: v}
	})
}

// labeledOptions builds options from label, value pairs
func labeledOptions(pairs ...string) []models.FilterOption {
	out := make([]models.FilterOption, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, models.FilterOption{Label: pairs[i], Value: pairs[i+1]})
	}
	return out
}

// yearOptions lists years from newest down to oldest
func yearOptions(newest, oldest int) []models.FilterOption {
	out := make([]models.FilterOption, 0, newest-oldest+1)
	for y := newest; y >= oldest; y-- {
		out = append(out, models.FilterOption{Label: strconv.Itoa(y), Value: strconv.Itoa(y)})
	}
	return out
}

// single wraps a resolved detail as a search result, dropping placeholders
func single(t models.Title) []models.Title {
	if t.Failed() {
		return []models.Title{}
	}
	return []models.Title{t}
}
