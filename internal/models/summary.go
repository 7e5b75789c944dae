package models

import "encoding/json"

// Summary is the caller-facing shape of a Title. When encoded, the unit
// fields are named after the kind: total_chapters/chapters for manga,
// total_episodes/episodes for anime.
type Summary struct {
	ID          string            `json:"id" yaml:"id"`
	URL         string            `json:"url" yaml:"url"`
	Title       string            `json:"title" yaml:"title"`
	Author      string            `json:"author" yaml:"author"`
	Description string            `json:"description" yaml:"description"`
	Poster      string            `json:"poster" yaml:"poster"`
	Kind        Kind              `json:"kind" yaml:"kind"`
	TotalUnits  int               `json:"total_units" yaml:"total_units"`
	Units       map[string]string `json:"units" yaml:"units"`
	Tags        []string          `json:"tags" yaml:"tags"`
	Genres      []string          `json:"genres" yaml:"genres"`
	Status      Status            `json:"status" yaml:"status"`
	Rating      float64           `json:"rating" yaml:"rating"`
}

// fields returns the encoded form with kind-specific unit keys
func (s Summary) fields() map[string]any {
	noun := "chapters"
	if s.Kind == KindAnime {
		noun = "episodes"
	}
	m := map[string]any{
		"id":          s.ID,
		"url":         s.URL,
		"title":       s.Title,
		"author":      s.Author,
		"description": s.Description,
		"poster":      s.Poster,
		"kind":        s.Kind,
		"tags":        orEmpty(s.Tags),
		"genres":      orEmpty(s.Genres),
		"status":      s.Status,
		"rating":      s.Rating,
	}
	m["total_"+noun] = s.TotalUnits
	m[noun] = orEmptyMap(s.Units)
	return m
}

func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.fields())
}

func (s Summary) MarshalYAML() (any, error) {
	return s.fields(), nil
}

// UnitSummary is the caller-facing shape of a Unit
type UnitSummary struct {
	ID         string   `json:"id" yaml:"id"`
	Title      string   `json:"title" yaml:"title"`
	Kind       Kind     `json:"kind" yaml:"kind"`
	TotalPages int      `json:"total_pages" yaml:"total_pages"`
	Pages      []string `json:"pages" yaml:"pages"`
	StreamURL  string   `json:"stream_url,omitempty" yaml:"stream_url,omitempty"`
	Quality    string   `json:"quality,omitempty" yaml:"quality,omitempty"`
	Language   string   `json:"language,omitempty" yaml:"language,omitempty"`
}

// Get projects the title into its summary. Nil collections become empty ones.
func (t Title) Get() Summary {
	return Summary{
		ID:          t.ID,
		URL:         t.SourceURL,
		Title:       t.Name,
		Author:      t.Author,
		Description: t.Description,
		Poster:      t.Cover,
		Kind:        t.Kind,
		TotalUnits:  t.UnitCount,
		Units:       orEmptyMap(t.Units),
		Tags:        orEmpty(t.Tags),
		Genres:      orEmpty(t.Genres),
		Status:      t.Status,
		Rating:      t.Rating,
	}
}

// Get projects the unit into its summary
func (u Unit) Get() UnitSummary {
	s := UnitSummary{
		ID:         u.ID,
		Title:      u.Name,
		Kind:       u.Kind,
		TotalPages: len(u.Pages),
		Pages:      orEmpty(u.Pages),
	}
	if u.Stream != nil {
		s.StreamURL = u.Stream.URL
		s.Quality = u.Stream.Quality
		s.Language = u.Stream.Language
	}
	return s
}

// Summaries projects a list of titles
func Summaries(titles []Title) []Summary {
	out := make([]Summary, 0, len(titles))
	for _, t := range titles {
		out = append(out, t.Get())
	}
	return out
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func orEmptyMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
