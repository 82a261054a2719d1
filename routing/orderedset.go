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

// Package routing holds the per-database routing table: role-grouped
// address sets with a TTL-based freshness and purge policy.
package routing

import "container/list"

// OrderedSet is a set that remembers insertion order: O(1) Contains,
// Add and Remove via a hash map of list elements, O(n) Slice/Range in
// insertion order via the backing doubly-linked list.
type OrderedSet[T comparable] struct {
	index map[T]*list.Element
	order *list.List
}

func NewOrderedSet[T comparable](items ...T) *OrderedSet[T] {
	s := &OrderedSet[T]{
		index: make(map[T]*list.Element),
		order: list.New(),
	}
	for _, it := range items {
		s.Add(it)
	}
	return s
}

func (s *OrderedSet[T]) Add(item T) {
	if _, ok := s.index[item]; ok {
		return
	}
	s.index[item] = s.order.PushBack(item)
}

func (s *OrderedSet[T]) Remove(item T) {
	if e, ok := s.index[item]; ok {
		s.order.Remove(e)
		delete(s.index, item)
	}
}

func (s *OrderedSet[T]) Contains(item T) bool {
	_, ok := s.index[item]
	return ok
}

func (s *OrderedSet[T]) Len() int {
	return len(s.index)
}

// Slice returns the set's members in insertion order.
func (s *OrderedSet[T]) Slice() []T {
	out := make([]T, 0, s.order.Len())
	for e := s.order.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(T))
	}
	return out
}

// Range calls f for each member in insertion order, stopping early if f
// returns false.
func (s *OrderedSet[T]) Range(f func(T) bool) {
	for e := s.order.Front(); e != nil; e = e.Next() {
		if !f(e.Value.(T)) {
			return
		}
	}
}

// ReplaceAll clears the set and inserts items in the given order.
func (s *OrderedSet[T]) ReplaceAll(items []T) {
	s.index = make(map[T]*list.Element)
	s.order = list.New()
	for _, it := range items {
		s.Add(it)
	}
}
