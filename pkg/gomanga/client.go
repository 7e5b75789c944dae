// Package gomanga provides a public API over every built-in manga and anime source.
// This package can be used as a library in other Go projects.
package gomanga

import (
	"context"
	"time"

	"github.com/alvarorichard/Gomanga/internal/scraper"
	"github.com/alvarorichard/Gomanga/pkg/gomanga/types"
	"github.com/samber/lo"
)

// Options tunes the client. The zero value keeps the defaults.
type Options struct {
	// Timeout bounds one upstream request
	Timeout time.Duration
	// UserAgent replaces the browser user agent sent upstream
	UserAgent string
	// MaxPages caps how many upstream pages a single search may walk
	MaxPages int
	// Disabled lists sources that must not be registered
	Disabled []types.Source
}

// Client is the main client for interacting with the sources
type Client struct {
	registry *scraper.Registry
}

// NewClient creates a client with every built-in source
func NewClient(opts ...Options) *Client {
	settings := scraper.DefaultSettings()
	if len(opts) > 0 {
		o := opts[0]
		if o.Timeout > 0 {
			settings.HTTP.Timeout = o.Timeout
		}
		if o.UserAgent != "" {
			settings.HTTP.UserAgent = o.UserAgent
		}
		if o.MaxPages > 0 {
			settings.MaxPages = o.MaxPages
		}
		settings.Disabled = lo.Map(o.Disabled, func(s types.Source, _ int) string { return string(s) })
	}
	return &Client{registry: scraper.NewRegistry(settings, scraper.Builtins)}
}

// GetAvailableSources returns every registered source
func (c *Client) GetAvailableSources() []types.SourceInfo {
	return types.FromInternalSources(c.registry.Sources())
}

// Popular lists popular titles of one source. Pages start at 1.
func (c *Client) Popular(ctx context.Context, source types.Source, page int) ([]*types.Title, error) {
	titles, err := c.registry.Popular(ctx, string(source), page)
	if err != nil {
		return nil, err
	}
	return types.FromInternalTitleList(titles, string(source)), nil
}

// Latest lists recently updated titles of one source
func (c *Client) Latest(ctx context.Context, source types.Source, page int) ([]*types.Title, error) {
	titles, err := c.registry.Latest(ctx, string(source), page)
	if err != nil {
		return nil, err
	}
	return types.FromInternalTitleList(titles, string(source)), nil
}

// SearchTitles searches one source, or every source when source is nil.
// Across all sources, failing sources are skipped and the rest are merged in
// registration order.
func (c *Client) SearchTitles(ctx context.Context, query string, source *types.Source) ([]*types.Title, error) {
	if source != nil {
		return c.Search(ctx, *source, query, 1, nil)
	}

	var out []*types.Title
	for _, r := range c.registry.SearchAll(ctx, query) {
		if r.Err != nil {
			continue
		}
		out = append(out, types.FromInternalTitleList(r.Titles, r.Source)...)
	}
	return out, nil
}

// Search queries one source with source-specific filters, such as
// {"genres": {"action"}} for Comick
func (c *Client) Search(ctx context.Context, source types.Source, query string, page int, filters map[string][]string) ([]*types.Title, error) {
	titles, err := c.registry.Search(ctx, string(source), query, page, filters)
	if err != nil {
		return nil, err
	}
	return types.FromInternalTitleList(titles, string(source)), nil
}

// GetTitle loads a title with its chapters or episodes.
// The id should be obtained from a listing or search result.
func (c *Client) GetTitle(ctx context.Context, source types.Source, id string) (*types.Title, error) {
	title, err := c.registry.Detail(ctx, string(source), id)
	if err != nil {
		return nil, err
	}
	return types.FromInternalTitle(title, string(source)), nil
}

// GetUnit loads the pages of a chapter or the stream of an episode.
// The id should be obtained from the Units of GetTitle.
func (c *Client) GetUnit(ctx context.Context, source types.Source, id string) (*types.Unit, error) {
	unit, err := c.registry.Unit(ctx, string(source), id)
	if err != nil {
		return nil, err
	}
	return types.FromInternalUnit(unit, string(source)), nil
}
