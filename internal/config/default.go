package config

import (
	"github.com/alvarorichard/Gomanga/internal/scraper"
	"github.com/alvarorichard/Gomanga/internal/util"
)

// Field is one configuration entry with its default value
type Field struct {
	Key         string `json:"key" yaml:"key"`
	Value       any    `json:"default" yaml:"default"`
	Description string `json:"description" yaml:"description"`
}

// Fields lists every supported key in display order
var Fields = []Field{
	{ServerAddr, ":8080", "Address the HTTP server listens on"},
	{HTTPTimeout, util.DefaultTimeout, "Timeout of a single outbound request"},
	{HTTPUserAgent, util.DefaultUserAgent, "User-Agent sent to every source"},
	{HTTPCloudflareBypass, true, "Use the Cloudflare bypass transport for HTML sources"},
	{HTTPTLSFingerprint, false, "Dial with a Chrome TLS fingerprint"},
	{HTTPRetries, 1, "Extra attempts after a transport error, 429 or 5xx"},
	{LogDebug, false, "Enable debug logging"},
	{SourcesDisabled, []string{}, "Source names that are not registered"},
	{MangaDexDataSaver, true, "Serve compressed MangaDex pages"},
	{AllAnimeTranslationType, "sub", "AllAnime translation: sub, dub or raw"},
	{AllAnimeTitleStyle, "romaji", "AllAnime title language: romaji, english or native"},
	{PaginationMaxPages, scraper.DefaultMaxPages, "Page ceiling of multi-page searches"},
}
