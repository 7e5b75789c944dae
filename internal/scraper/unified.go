// Package scraper provides a unified interface over every supported manga and anime source
package scraper

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alvarorichard/Gomanga/internal/models"
	"github.com/alvarorichard/Gomanga/internal/util"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// searchAllTimeout is the maximum time to wait for every source in SearchAll
const searchAllTimeout = 20 * time.Second

// Source is the five-operation contract every site adapter implements.
// Upstream failures never surface as errors: lists degrade to empty and
// detail/unit calls degrade to placeholder records. The returned error is
// reserved for cancellation.
type Source interface {
	Name() string
	BaseURL() string
	Kind() models.Kind
	Filters() []models.FilterGroup

	ListPopular(ctx context.Context, page int) ([]models.Title, error)
	ListLatest(ctx context.Context, page int) ([]models.Title, error)
	Search(ctx context.Context, query string, page int, filters models.Filters) ([]models.Title, error)
	GetDetail(ctx context.Context, id string) (models.Title, error)
	GetUnit(ctx context.Context, id string) (models.Unit, error)
}

var (
	// ErrSourceNotFound is returned for names missing from the registry
	ErrSourceNotFound = errors.New("source not found")
	// ErrInvalidArgument is returned for malformed caller input
	ErrInvalidArgument = errors.New("invalid argument")
)

// OperationError carries an adapter failure back to the caller
type OperationError struct {
	Source string
	Op     string
	Err    error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Source, e.Op, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// Settings is shared by every source constructor
type Settings struct {
	HTTP     util.ClientOptions
	MaxPages int

	MangaDexDataSaver   bool
	AllAnimeTranslation string
	AllAnimeTitleStyle  string

	// Disabled lists source names that must not be registered
	Disabled []string
}

// DefaultSettings returns the settings used when no configuration is loaded
func DefaultSettings() Settings {
	return Settings{
		HTTP: util.ClientOptions{
			Timeout:          util.DefaultTimeout,
			CloudflareBypass: true,
			Retries:          1,
		},
		MaxPages:            DefaultMaxPages,
		MangaDexDataSaver:   true,
		AllAnimeTranslation: "sub",
		AllAnimeTitleStyle:  "romaji",
	}
}

// newClient builds the HTTP client for one source. Cloudflare bypass only
// applies to HTML sources that ask for it.
func (s Settings) newClient(headers, cookies map[string]string, cloudflare bool) (*util.Client, error) {
	opts := s.HTTP
	opts.Headers = lo.Assign(s.HTTP.Headers, headers)
	opts.Cookies = lo.Assign(s.HTTP.Cookies, cookies)
	opts.CloudflareBypass = s.HTTP.CloudflareBypass && cloudflare
	return util.NewClient(opts)
}

func (s Settings) maxPages() int {
	if s.MaxPages < 1 {
		return DefaultMaxPages
	}
	return s.MaxPages
}

// Provider registers a source constructor under its display name
type Provider struct {
	Name   string
	Create func(Settings) (Source, error)
}

// Builtins is the explicit registration list of every supported source
var Builtins = []Provider{
	{Name: MangaDexName, Create: func(s Settings) (Source, error) { return NewMangaDexClient(s) }},
	{Name: AllAnimeName, Create: func(s Settings) (Source, error) { return NewAllAnimeClient(s) }},
	{Name: AsuraScansName, Create: func(s Settings) (Source, error) { return NewAsuraScansClient(s) }},
	{Name: Hentai3Name, Create: func(s Settings) (Source, error) { return NewHentai3Client(s) }},
	{Name: NHentaiName, Create: func(s Settings) (Source, error) { return NewNHentaiClient(s) }},
	{Name: HentaiReadName, Create: func(s Settings) (Source, error) { return NewHentaiReadClient(s) }},
	{Name: ToonilyName, Create: func(s Settings) (Source, error) { return NewToonilyClient(s) }},
	{Name: ComickName, Create: func(s Settings) (Source, error) { return NewComickClient(s) }},
}

// SourceInfo describes a registered source
type SourceInfo struct {
	Name    string      `json:"name" yaml:"name"`
	BaseURL string      `json:"base_url" yaml:"base_url"`
	Kind    models.Kind `json:"kind" yaml:"kind"`
}

// Registry maps source names to adapter instances and dispatches calls
type Registry struct {
	sources map[string]Source
	order   []string
	perf    *util.PerfTracker
}

// NewRegistry instantiates every provider. A provider that fails to build,
// or is disabled, is logged and left out.
func NewRegistry(settings Settings, providers []Provider) *Registry {
	r := &Registry{
		sources: make(map[string]Source, len(providers)),
		perf:    util.NewPerfTracker(),
	}

	disabled := lo.SliceToMap(settings.Disabled, func(name string) (string, struct{}) {
		return strings.ToLower(strings.TrimSpace(name)), struct{}{}
	})

	for _, p := range providers {
		key := strings.ToLower(p.Name)
		if _, skip := disabled[key]; skip {
			util.Debug("Source disabled by configuration", "source", p.Name)
			continue
		}

		src, err := p.Create(settings)
		if err != nil {
			util.Warn("Source unavailable", "source", p.Name, "error", err)
			continue
		}
		r.Register(src)
	}

	util.Debug("Registry ready", "sources", len(r.sources))
	return r
}

// Register adds or replaces a source
func (r *Registry) Register(src Source) {
	key := strings.ToLower(src.Name())
	if _, exists := r.sources[key]; !exists {
		r.order = append(r.order, key)
	}
	r.sources[key] = src
}

// Lookup resolves a source name case-insensitively
func (r *Registry) Lookup(name string) (Source, error) {
	if src, ok := r.sources[strings.ToLower(strings.TrimSpace(name))]; ok {
		return src, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, name)
}

// Sources lists every registered source in registration order
func (r *Registry) Sources() []SourceInfo {
	return lo.Map(r.order, func(key string, _ int) SourceInfo {
		src := r.sources[key]
		return SourceInfo{Name: src.Name(), BaseURL: src.BaseURL(), Kind: src.Kind()}
	})
}

// Perf exposes the per-operation timings
func (r *Registry) Perf() *util.PerfTracker {
	return r.perf
}

// Filters returns the filter descriptors of a source
func (r *Registry) Filters(source string) ([]models.FilterGroup, error) {
	src, err := r.Lookup(source)
	if err != nil {
		return nil, err
	}
	return src.Filters(), nil
}

// Popular lists popular titles of one source
func (r *Registry) Popular(ctx context.Context, source string, page int) ([]models.Title, error) {
	if err := checkPage(page); err != nil {
		return nil, err
	}
	var out []models.Title
	err := r.invoke(source, "popular", func(src Source) (err error) {
		out, err = src.ListPopular(ctx, page)
		return err
	})
	return out, err
}

// Latest lists recently updated titles of one source
func (r *Registry) Latest(ctx context.Context, source string, page int) ([]models.Title, error) {
	if err := checkPage(page); err != nil {
		return nil, err
	}
	var out []models.Title
	err := r.invoke(source, "latest", func(src Source) (err error) {
		out, err = src.ListLatest(ctx, page)
		return err
	})
	return out, err
}

// Search searches one source
func (r *Registry) Search(ctx context.Context, source, query string, page int, filters models.Filters) ([]models.Title, error) {
	if err := checkPage(page); err != nil {
		return nil, err
	}
	var out []models.Title
	err := r.invoke(source, "search", func(src Source) (err error) {
		out, err = src.Search(ctx, query, page, filters)
		return err
	})
	return out, err
}

// Detail fetches the full record of one title
func (r *Registry) Detail(ctx context.Context, source, id string) (models.Title, error) {
	if strings.TrimSpace(id) == "" {
		return models.Title{}, fmt.Errorf("%w: empty title id", ErrInvalidArgument)
	}
	var out models.Title
	err := r.invoke(source, "detail", func(src Source) (err error) {
		out, err = src.GetDetail(ctx, id)
		return err
	})
	return out, err
}

// Unit fetches the content of one chapter or episode
func (r *Registry) Unit(ctx context.Context, source, id string) (models.Unit, error) {
	if strings.TrimSpace(id) == "" {
		return models.Unit{}, fmt.Errorf("%w: empty unit id", ErrInvalidArgument)
	}
	var out models.Unit
	err := r.invoke(source, "unit", func(src Source) (err error) {
		out, err = src.GetUnit(ctx, id)
		return err
	})
	return out, err
}

// invoke runs exactly one adapter call, converting failures and panics into OperationError
func (r *Registry) invoke(source, op string, call func(Source) error) error {
	src, err := r.Lookup(source)
	if err != nil {
		return err
	}

	timer := r.perf.StartTimer(strings.ToLower(src.Name()) + "." + op)
	err = func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = errors.Errorf("panic: %v", p)
			}
		}()
		return call(src)
	}()
	timer.Stop(err != nil)

	if err != nil {
		util.Debug("Source operation failed", "source", src.Name(), "op", op, "error", err)
		return &OperationError{Source: src.Name(), Op: op, Err: err}
	}
	return nil
}

func checkPage(page int) error {
	if page < 1 {
		return fmt.Errorf("%w: page must be >= 1, got %d", ErrInvalidArgument, page)
	}
	return nil
}

// SourceResults groups the titles one source returned in SearchAll
type SourceResults struct {
	Source string
	Titles []models.Title
	Err    error
}

// SearchAll searches every registered source concurrently. Sources that time
// out or fail are reported in their entry; the call itself never fails.
func (r *Registry) SearchAll(ctx context.Context, query string) []SourceResults {
	ctx, cancel := context.WithTimeout(ctx, searchAllTimeout)
	defer cancel()

	util.Debug("Starting concurrent search across all sources", "query", query)

	results := make([]SourceResults, len(r.order))
	var wg sync.WaitGroup
	for i, key := range r.order {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			titles, err := r.Search(ctx, src.Name(), query, 1, nil)
			results[i] = SourceResults{Source: src.Name(), Titles: titles, Err: err}
		}(i, r.sources[key])
	}
	wg.Wait()

	var failed []string
	for _, res := range results {
		if res.Err != nil {
			failed = append(failed, res.Source)
		}
	}
	if len(failed) > 0 {
		sort.Strings(failed)
		util.Warn("Search source unavailable", "sources", strings.Join(failed, ", "))
	}
	return results
}
