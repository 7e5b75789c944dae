package config

// Server
const (
	ServerAddr = "server.addr"
)

// Outbound HTTP, shared by every source client
const (
	HTTPTimeout          = "http.timeout"
	HTTPUserAgent        = "http.user_agent"
	HTTPCloudflareBypass = "http.cloudflare_bypass"
	HTTPTLSFingerprint   = "http.tls_fingerprint"
	HTTPRetries          = "http.retries"
)

const (
	LogDebug = "log.debug"
)

// Source selection and per-source tuning
const (
	SourcesDisabled         = "sources.disabled"
	MangaDexDataSaver       = "mangadex.data_saver"
	AllAnimeTranslationType = "allanime.translation_type"
	AllAnimeTitleStyle      = "allanime.title_style"
	PaginationMaxPages      = "pagination.max_pages"
)
