/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package session

import (
	"context"

	ctxcfg "github.com/sabouaram/graphbolt/context"
)

// BookmarkManager lets causally related sessions share bookmarks outside the
// driver's process-local tracking: GetBookmarks supplies extra bookmarks to
// merge in before a transaction starts, UpdateBookmarks is notified of the
// bookmarks a session produced.
type BookmarkManager interface {
	GetBookmarks(ctx context.Context) ([]string, error)
	UpdateBookmarks(ctx context.Context, previous, new []string) error
}

// staticBookmarkManager keeps the current bookmarks in an atomic set: each
// update removes the previous bookmarks it is given and stores the new ones.
// It is the default in-process manager when a caller supplies none of their
// own.
type staticBookmarkManager struct {
	set ctxcfg.Config[string]
}

// NewStaticBookmarkManager returns the default in-process BookmarkManager:
// a set of bookmarks, shared by reference across every session it's handed
// to, in which each update replaces the previous bookmarks with the new ones.
func NewStaticBookmarkManager() BookmarkManager {
	return &staticBookmarkManager{set: ctxcfg.New[string](nil)}
}

func (m *staticBookmarkManager) GetBookmarks(context.Context) ([]string, error) {
	var out []string
	m.set.Walk(func(key string, _ interface{}) bool {
		out = append(out, key)
		return true
	})
	return out, nil
}

func (m *staticBookmarkManager) UpdateBookmarks(_ context.Context, previous, next []string) error {
	for _, b := range previous {
		m.set.Delete(b)
	}
	for _, b := range next {
		m.set.Store(b, struct{}{})
	}
	return nil
}

// mergeBookmarks returns the sorted-free union of a and b with duplicates
// removed, preserving first-seen order.
func mergeBookmarks(a, b []string) []string {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, bm := range list {
			if _, ok := seen[bm]; ok {
				continue
			}
			seen[bm] = struct{}{}
			out = append(out, bm)
		}
	}
	return out
}
