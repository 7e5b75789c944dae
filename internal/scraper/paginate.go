package scraper

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DefaultMaxPages bounds every multi-page loop
const DefaultMaxPages = 5

// PageLoop configures a multi-page walk
type PageLoop struct {
	// Start is the first page number, 1 when zero
	Start int
	// PageSize is the requested page size; a shorter page ends the walk. Zero disables the check.
	PageSize int
	// MaxPages is the hard ceiling, DefaultMaxPages when zero
	MaxPages int
}

func (l PageLoop) normalize() PageLoop {
	if l.Start < 1 {
		l.Start = 1
	}
	if l.MaxPages < 1 {
		l.MaxPages = DefaultMaxPages
	}
	return l
}

// PageResult is what one page fetch yields
type PageResult[T any] struct {
	Items []T
	// HasNext is the document's own next-page signal
	HasNext bool
}

// PageFetcher fetches a single page
type PageFetcher[T any] func(ctx context.Context, page int) (PageResult[T], error)

// terminal reports whether the walk ends after this page
func terminal[T any](l PageLoop, r PageResult[T]) bool {
	return !r.HasNext || len(r.Items) == 0 || (l.PageSize > 0 && len(r.Items) < l.PageSize)
}

// Paginate walks pages in order and stops on a no-next signal, a short or
// empty page, or the page ceiling. Items gathered before an error are returned with it.
func Paginate[T any](ctx context.Context, loop PageLoop, fetch PageFetcher[T]) ([]T, error) {
	loop = loop.normalize()

	var out []T
	for page := loop.Start; page < loop.Start+loop.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		res, err := fetch(ctx, page)
		if err != nil {
			return out, err
		}
		out = append(out, res.Items...)
		if terminal(loop, res) {
			break
		}
	}
	return out, nil
}

// PaginateParallel fetches pages up to the ceiling concurrently and
// assembles them exactly as Paginate would have. Once a terminal page is
// seen, later pages are cancelled or never requested.
func PaginateParallel[T any](ctx context.Context, loop PageLoop, workers int, fetch PageFetcher[T]) ([]T, error) {
	loop = loop.normalize()
	if workers < 1 {
		workers = 1
	}

	results := make([]PageResult[T], loop.MaxPages)
	errs := make([]error, loop.MaxPages)

	var (
		mu      sync.Mutex
		last    = loop.MaxPages - 1
		cancels = make([]context.CancelFunc, loop.MaxPages)
	)
	// stopAfter cancels every page past i
	stopAfter := func(i int) {
		mu.Lock()
		defer mu.Unlock()
		if i >= last {
			return
		}
		last = i
		for _, cancel := range cancels[i+1:] {
			if cancel != nil {
				cancel()
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < loop.MaxPages; i++ {
		g.Go(func() error {
			mu.Lock()
			if i > last {
				mu.Unlock()
				return nil
			}
			pctx, cancel := context.WithCancel(gctx)
			cancels[i] = cancel
			mu.Unlock()
			defer cancel()

			res, err := fetch(pctx, loop.Start+i)
			results[i], errs[i] = res, err
			if err == nil && terminal(loop, res) {
				stopAfter(i)
			}
			return nil
		})
	}
	_ = g.Wait()

	var out []T
	for i := range results {
		if errs[i] != nil {
			return out, errs[i]
		}
		out = append(out, results[i].Items...)
		if terminal(loop, results[i]) {
			break
		}
	}
	return out, nil
}
