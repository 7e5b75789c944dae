package types

import (
	"fmt"
	"strings"

	"github.com/alvarorichard/Gomanga/internal/scraper"
)

// Source names one of the built-in sites
type Source string

const (
	SourceMangaDex   Source = scraper.MangaDexName
	SourceAllAnime   Source = scraper.AllAnimeName
	SourceAsuraScans Source = scraper.AsuraScansName
	Source3Hentai    Source = scraper.Hentai3Name
	SourceNHentai    Source = scraper.NHentaiName
	SourceHentaiRead Source = scraper.HentaiReadName
	SourceToonily    Source = scraper.ToonilyName
	SourceComick     Source = scraper.ComickName
)

// AllSources lists every built-in source in registration order
var AllSources = []Source{
	SourceMangaDex,
	SourceAllAnime,
	SourceAsuraScans,
	Source3Hentai,
	SourceNHentai,
	SourceHentaiRead,
	SourceToonily,
	SourceComick,
}

// String returns the display name of the source
func (s Source) String() string {
	return string(s)
}

// ParseSource parses a source name case-insensitively
func ParseSource(s string) (Source, error) {
	for _, src := range AllSources {
		if strings.EqualFold(strings.TrimSpace(s), string(src)) {
			return src, nil
		}
	}
	return "", fmt.Errorf("unknown source: %s", s)
}

// SourceInfo describes a registered source
type SourceInfo struct {
	Name    Source
	BaseURL string
	// Kind is "manga" or "anime"
	Kind string
}
