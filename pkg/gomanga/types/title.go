// Package types provides public type definitions for the gomanga library
package types

import (
	"github.com/alvarorichard/Gomanga/internal/models"
	"github.com/alvarorichard/Gomanga/internal/scraper"
	"github.com/samber/lo"
)

// Title is a manga, doujin or anime series
type Title struct {
	// ID is the source-specific id, passed back to GetTitle
	ID string
	// URL is the title page on the source site
	URL         string
	Name        string
	Author      string
	Description string
	CoverURL    string
	Kind        string
	Status      string
	Genres      []string
	Tags        []string
	// Rating is -1 when the source has none
	Rating float64
	// UnitCount is 0 in listings of sources that need a detail fetch to count
	UnitCount int
	// Units is filled by GetTitle only
	Units []*UnitRef
	// Source identifies where this title came from
	Source Source
}

// UnitRef points at one chapter or episode of a title
type UnitRef struct {
	Label string
	ID    string
}

// Unit is a loaded chapter or episode
type Unit struct {
	ID   string
	Name string
	// Pages holds image URLs in reading order, empty for video sources
	Pages []string
	// StreamURL and Quality are set for video sources only
	StreamURL string
	Quality   string
	Source    Source
}

// FromInternalTitle converts a scraped title, ordering units by label
func FromInternalTitle(t models.Title, source string) *Title {
	out := &Title{
		ID:          t.ID,
		URL:         t.SourceURL,
		Name:        t.Name,
		Author:      t.Author,
		Description: t.Description,
		CoverURL:    t.Cover,
		Kind:        string(t.Kind),
		Status:      string(t.Status),
		Genres:      t.Genres,
		Tags:        t.Tags,
		Rating:      t.Rating,
		UnitCount:   t.UnitCount,
		Source:      Source(source),
	}
	for _, label := range t.SortedLabels() {
		out.Units = append(out.Units, &UnitRef{Label: label, ID: t.Units[label]})
	}
	return out
}

// FromInternalTitleList converts a listing
func FromInternalTitleList(titles []models.Title, source string) []*Title {
	return lo.Map(titles, func(t models.Title, _ int) *Title { return FromInternalTitle(t, source) })
}

// FromInternalUnit converts a loaded unit
func FromInternalUnit(u models.Unit, source string) *Unit {
	out := &Unit{ID: u.ID, Name: u.Name, Pages: u.Pages, Source: Source(source)}
	if u.Stream != nil {
		out.StreamURL = u.Stream.URL
		out.Quality = u.Stream.Quality
	}
	return out
}

// FromInternalSources converts the registry listing
func FromInternalSources(infos []scraper.SourceInfo) []SourceInfo {
	return lo.Map(infos, func(i scraper.SourceInfo, _ int) SourceInfo {
		return SourceInfo{Name: Source(i.Name), BaseURL: i.BaseURL, Kind: string(i.Kind)}
	})
}
