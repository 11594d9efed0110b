package pagination

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// pagedFetch simulates an upstream returning n pages, with a cursor on every
// page but the last.
func pagedFetch(n int, calls *[]string) FetchFunc[int] {
	return func(ctx context.Context, cursor string) (Page[int], error) {
		*calls = append(*calls, cursor)
		idx := len(*calls)
		page := Page[int]{Items: []int{idx}}
		if idx < n {
			page.Cursor = fmt.Sprintf("cursor-%d", idx)
		}
		return page, nil
	}
}

func TestWalker_Next(t *testing.T) {
	ctx := context.Background()

	t.Run("Given N pages When walked Then yields exactly N pages in order", func(t *testing.T) {
		var calls []string
		w := NewWalker(pagedFetch(3, &calls))

		var items []int
		for !w.Done() {
			page, err := w.Next(ctx)
			if err != nil {
				t.Fatalf("Next failed: %v", err)
			}
			items = append(items, page.Items...)
		}

		if w.Pages() != 3 {
			t.Errorf("expected 3 pages, got %d", w.Pages())
		}
		if len(items) != 3 || items[0] != 1 || items[2] != 3 {
			t.Errorf("unexpected items %v", items)
		}
		// No duplicate fetches: cursors used are "", cursor-1, cursor-2
		if len(calls) != 3 || calls[0] != "" || calls[1] != "cursor-1" || calls[2] != "cursor-2" {
			t.Errorf("unexpected cursor sequence %v", calls)
		}
	})

	t.Run("Given a single page with no cursor When walked Then terminates after one page", func(t *testing.T) {
		var calls []string
		w := NewWalker(pagedFetch(1, &calls))

		if _, err := w.Next(ctx); err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if !w.Done() {
			t.Error("expected walk to be done")
		}
		if _, err := w.Next(ctx); !errors.Is(err, ErrDone) {
			t.Errorf("expected ErrDone, got %v", err)
		}
	})

	t.Run("Given a non-advancing cursor When walked Then terminates instead of looping", func(t *testing.T) {
		fetches := 0
		w := NewWalker(func(ctx context.Context, cursor string) (Page[string], error) {
			fetches++
			return Page[string]{Items: []string{"x"}, Cursor: "stuck"}, nil
		})

		for !w.Done() {
			if _, err := w.Next(ctx); err != nil {
				t.Fatalf("Next failed: %v", err)
			}
			if fetches > 10 {
				t.Fatal("walker looped on a repeated cursor")
			}
		}
		if fetches != 2 {
			t.Errorf("expected 2 fetches (initial + repeat), got %d", fetches)
		}
	})

	t.Run("Given an empty page with a cursor When walked Then still terminates", func(t *testing.T) {
		w := NewWalker(func(ctx context.Context, cursor string) (Page[string], error) {
			return Page[string]{Cursor: "same"}, nil
		})

		pages := 0
		for !w.Done() {
			if _, err := w.Next(ctx); err != nil {
				t.Fatalf("Next failed: %v", err)
			}
			pages++
			if pages > 10 {
				t.Fatal("walker looped on empty cursor-bearing pages")
			}
		}
	})

	t.Run("Given a failing fetch When walked Then surfaces pages consumed so far", func(t *testing.T) {
		errFetch := errors.New("upstream unavailable")
		call := 0
		w := NewWalker(func(ctx context.Context, cursor string) (Page[int], error) {
			call++
			if call == 3 {
				return Page[int]{}, errFetch
			}
			return Page[int]{Items: []int{call}, Cursor: fmt.Sprintf("c%d", call)}, nil
		})

		var err error
		for !w.Done() {
			if _, err = w.Next(ctx); err != nil {
				break
			}
		}

		var walkErr *WalkError
		if !errors.As(err, &walkErr) {
			t.Fatalf("expected WalkError, got %v", err)
		}
		if walkErr.Pages != 2 {
			t.Errorf("expected 2 pages consumed, got %d", walkErr.Pages)
		}
		if !errors.Is(err, errFetch) {
			t.Errorf("expected wrapped fetch error, got %v", err)
		}
	})

	t.Run("Given a cancelled context When walked Then stops with WalkError", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		var calls []string
		w := NewWalker(pagedFetch(3, &calls))
		_, err := w.Next(cancelled)

		var walkErr *WalkError
		if !errors.As(err, &walkErr) {
			t.Fatalf("expected WalkError, got %v", err)
		}
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if len(calls) != 0 {
			t.Errorf("expected no fetches after cancellation, got %d", len(calls))
		}
	})
}

func TestCollect(t *testing.T) {
	t.Run("Given multiple pages When collected Then returns all items", func(t *testing.T) {
		var calls []string
		items, err := Collect(context.Background(), pagedFetch(4, &calls))
		if err != nil {
			t.Fatalf("Collect failed: %v", err)
		}
		if len(items) != 4 {
			t.Errorf("expected 4 items, got %d", len(items))
		}
	})
}
