package artifacts

import (
	"context"
	"fmt"
	"iter"
	"sync/atomic"
)

// PageFetcher provides the two single-page primitives a Pager is built from.
type PageFetcher[T any] struct {
	// First fetches the first page.
	First func(ctx context.Context) (*Page[T], error)
	// Next fetches the page identified by a continuation token.
	Next func(ctx context.Context, nextLink string) (*Page[T], error)
}

// Pager is a lazy, forward-only sequence over a paged listing. A page is only
// requested once the caller asks for it. A Pager is single-pass and must not be
// shared between goroutines; concurrent NextPage calls fail with ErrPagerBusy.
type Pager[T any] struct {
	fetcher  PageFetcher[T]
	started  bool
	nextLink string
	err      error
	busy     atomic.Bool
}

// NewPager creates a pager from page fetch primitives.
func NewPager[T any](fetcher PageFetcher[T]) *Pager[T] {
	return &Pager[T]{fetcher: fetcher}
}

// More reports whether another page may be fetched.
func (p *Pager[T]) More() bool {
	if p.err != nil {
		return false
	}

	return !p.started || p.nextLink != ""
}

// Err returns the error that ended iteration, if any.
func (p *Pager[T]) Err() error {
	return p.err
}

// NextPage fetches the next page. It returns ErrNoMorePages once the final
// page has been returned. A fetch failure ends the pager; the same error is
// returned by every later call.
func (p *Pager[T]) NextPage(ctx context.Context) (*Page[T], error) {
	if !p.busy.CompareAndSwap(false, true) {
		return nil, ErrPagerBusy
	}
	defer p.busy.Store(false)

	if p.err != nil {
		return nil, p.err
	}

	if !p.More() {
		return nil, ErrNoMorePages
	}

	var (
		page *Page[T]
		err  error
	)

	if !p.started {
		page, err = p.fetcher.First(ctx)
	} else {
		page, err = p.fetcher.Next(ctx, p.nextLink)
	}

	if err != nil {
		p.err = fmt.Errorf("fetching page: %w", err)

		return nil, p.err
	}

	p.started = true

	if page == nil {
		page = &Page[T]{}
	}

	p.nextLink = page.NextLink

	return page, nil
}

// Pages returns the remaining pages as a lazy sequence. Breaking out of the
// loop stops fetching.
func (p *Pager[T]) Pages(ctx context.Context) iter.Seq2[*Page[T], error] {
	return func(yield func(*Page[T], error) bool) {
		for p.More() {
			page, err := p.NextPage(ctx)
			if err != nil {
				yield(nil, err)

				return
			}

			if !yield(page, nil) {
				return
			}
		}
	}
}

// Items returns the remaining items, page by page, in server order.
func (p *Pager[T]) Items(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for page, err := range p.Pages(ctx) {
			if err != nil {
				var zero T

				yield(zero, err)

				return
			}

			for _, item := range page.Items {
				if !yield(item, nil) {
					return
				}
			}
		}
	}
}

// Collect fetches every remaining page and returns all items.
func (p *Pager[T]) Collect(ctx context.Context) ([]T, error) {
	var all []T

	for item, err := range p.Items(ctx) {
		if err != nil {
			return all, err
		}

		all = append(all, item)
	}

	return all, nil
}

// ForEach calls fn for every remaining item and stops at the first error.
func (p *Pager[T]) ForEach(ctx context.Context, fn func(T) error) error {
	for item, err := range p.Items(ctx) {
		if err != nil {
			return err
		}

		err = fn(item)
		if err != nil {
			return err
		}
	}

	return nil
}
