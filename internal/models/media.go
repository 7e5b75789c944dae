// Package models contains the normalized data structures every source produces
package models

import (
	"strings"
)

// Kind represents the type of content a source serves
type Kind string

const (
	KindManga Kind = "manga"
	KindAnime Kind = "anime"
)

// UnitNoun returns the word used for a single unit of this kind
func (k Kind) UnitNoun() string {
	if k == KindAnime {
		return "Episode"
	}
	return "Chapter"
}

// Status is the canonical publication status of a title
type Status string

const (
	StatusOngoing   Status = "Ongoing"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
	StatusHiatus    Status = "On Hiatus"
	StatusUnknown   Status = "Unknown"
)

// Valid reports whether s is one of the five canonical values
func (s Status) Valid() bool {
	switch s {
	case StatusOngoing, StatusCompleted, StatusCancelled, StatusHiatus, StatusUnknown:
		return true
	}
	return false
}

// NoRating marks a title the source did not rate
const NoRating = -1.0

// UnknownAuthor is used when a source does not expose a creator
const UnknownAuthor = "Unknown"

// Title represents one work (manga or series) on one source.
// Titles are built fresh per call and never mutated after an adapter returns them.
type Title struct {
	ID          string
	SourceURL   string
	Name        string
	Author      string
	Description string
	Cover       string
	Kind        Kind

	// UnitCount is 0 when the real count needs a second fetch
	UnitCount int
	// Units maps a human label ("Chapter 12") to an opaque unit id.
	// Colliding labels overwrite each other.
	Units map[string]string

	Tags   []string
	Genres []string
	Status Status
	Rating float64
}

// NewTitle returns a title filled with the default values
func NewTitle(id string, kind Kind) Title {
	return Title{
		ID:     id,
		Author: UnknownAuthor,
		Kind:   kind,
		Units:  map[string]string{},
		Tags:   []string{},
		Genres: []string{},
		Status: StatusOngoing,
		Rating: NoRating,
	}
}

// ErrorTitle returns the placeholder used when a detail page cannot be loaded
func ErrorTitle(id string, kind Kind) Title {
	t := NewTitle(id, kind)
	t.Name = "Error loading " + string(kind)
	t.Status = StatusUnknown
	return t
}

// Failed reports whether t is the placeholder returned for an unreachable detail page
func (t Title) Failed() bool {
	return t.Name == "Error loading "+string(t.Kind)
}

// AddUnit records a unit label; the last write for a label wins
func (t *Title) AddUnit(label, id string) {
	if t.Units == nil {
		t.Units = map[string]string{}
	}
	t.Units[label] = id
}

// Stream is one playable video link
type Stream struct {
	URL      string
	Quality  string
	Language string
	Priority float64
}

// Unit represents one chapter or episode
type Unit struct {
	ID   string
	Name string
	Kind Kind

	// Pages holds image URLs in reading order
	Pages []string
	// Stream is set for video sources only
	Stream *Stream
}

// ErrorUnit returns the placeholder used when a unit cannot be loaded
func ErrorUnit(id string, kind Kind) Unit {
	return Unit{
		ID:    id,
		Name:  "Error loading " + strings.ToLower(kind.UnitNoun()),
		Kind:  kind,
		Pages: []string{},
	}
}

// FilterOption is one selectable value of a search facet
type FilterOption struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// FilterGroup describes one search facet a source understands
type FilterGroup struct {
	Key     string         `json:"key" yaml:"key"`
	Label   string         `json:"label" yaml:"label"`
	Multi   bool           `json:"multi" yaml:"multi"`
	Options []FilterOption `json:"options,omitempty" yaml:"options,omitempty"`
}

// Filters is the raw search parameter bag a caller passes in.
// Sources pick the keys they know and ignore the rest.
type Filters map[string][]string

// First returns the first value for key, or ""
func (f Filters) First(key string) string {
	if v := f[key]; len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}

// All returns every non-empty value for key.
// Comma separated values are split so "a,b" and a repeated key behave the same.
func (f Filters) All(key string) []string {
	var out []string
	for _, v := range f[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Has reports whether key carries at least one value
func (f Filters) Has(key string) bool {
	return len(f.All(key)) > 0
}
