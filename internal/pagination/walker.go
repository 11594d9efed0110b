// Package pagination provides a lazy cursor-following iterator over
// paginated API results.
package pagination

import (
	"context"
	"errors"
	"fmt"
)

// ErrDone is returned by Next after the final page has been consumed.
var ErrDone = errors.New("pagination: walk complete")

// Page is one page of results from a cursor-paginated API. An empty Cursor
// marks the final page.
type Page[T any] struct {
	Items  []T
	Cursor string
}

// FetchFunc fetches the page at the given cursor. An empty cursor requests
// the first page.
type FetchFunc[T any] func(ctx context.Context, cursor string) (Page[T], error)

// WalkError reports a failed page fetch along with how many pages were
// successfully consumed before the failure.
type WalkError struct {
	Pages int
	Err   error
}

func (e *WalkError) Error() string {
	return fmt.Sprintf("page fetch failed after %d pages: %v", e.Pages, e.Err)
}

func (e *WalkError) Unwrap() error { return e.Err }

// Walker lazily follows a cursor-paginated sequence. It is restartable: a new
// Walker over the same fetch function replays the sequence from the start.
type Walker[T any] struct {
	fetch   FetchFunc[T]
	cursor  string
	pages   int
	started bool
	done    bool
}

// NewWalker creates a Walker over fetch.
func NewWalker[T any](fetch FetchFunc[T]) *Walker[T] {
	return &Walker[T]{fetch: fetch}
}

// Next fetches the next page. After the final page, or after a fetch failure,
// subsequent calls return ErrDone. Fetch failures are returned as *WalkError.
//
// A page whose cursor is identical to the one just used is treated as the end
// of the sequence; without that guard a non-advancing upstream cursor would
// loop forever.
func (w *Walker[T]) Next(ctx context.Context) (Page[T], error) {
	if w.done {
		return Page[T]{}, ErrDone
	}
	if err := ctx.Err(); err != nil {
		w.done = true
		return Page[T]{}, &WalkError{Pages: w.pages, Err: err}
	}

	page, err := w.fetch(ctx, w.cursor)
	if err != nil {
		w.done = true
		return Page[T]{}, &WalkError{Pages: w.pages, Err: err}
	}
	w.pages++

	if page.Cursor == "" || (w.started && page.Cursor == w.cursor) {
		w.done = true
	}
	w.cursor = page.Cursor
	w.started = true

	return page, nil
}

// Done reports whether the walk has ended.
func (w *Walker[T]) Done() bool { return w.done }

// Pages returns the number of pages successfully consumed so far.
func (w *Walker[T]) Pages() int { return w.pages }

// Collect drains the whole sequence and returns every item.
func Collect[T any](ctx context.Context, fetch FetchFunc[T]) ([]T, error) {
	var items []T
	w := NewWalker(fetch)
	for !w.Done() {
		page, err := w.Next(ctx)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
	}
	return items, nil
}
