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

package pool

import "sync"

// reentrantMutex is a mutex that the same owner token can lock more than
// once without blocking on itself, built on the same mutex+condvar shape as
// the rest of this package since sync.Mutex has no such notion. A refresh
// that needs to resolve a nested database (the home-database lookup inside
// a routing-table fetch) re-enters under the same owner rather than
// deadlocking against its own outer Lock.
type reentrantMutex struct {
	mu    sync.Mutex
	cond  *sync.Cond
	held  bool
	owner interface{}
	count int
}

func newReentrantMutex() *reentrantMutex {
	m := &reentrantMutex{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

func (m *reentrantMutex) Lock(owner interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for m.held && m.owner != owner {
		m.cond.Wait()
	}
	m.held = true
	m.owner = owner
	m.count++
}

func (m *reentrantMutex) Unlock(owner interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.held || m.owner != owner {
		return
	}
	m.count--
	if m.count == 0 {
		m.held = false
		m.owner = nil
		m.cond.Broadcast()
	}
}
