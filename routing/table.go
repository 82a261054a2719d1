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

package routing

import (
	"time"

	"github.com/sabouaram/graphbolt/bolt"
	liberr "github.com/sabouaram/graphbolt/errors"
	"github.com/sabouaram/graphbolt/packstream"
)

// DefaultPurgeDelay is how long past expiry a table is kept around before
// ShouldBePurged reports true, per the routing_table_purge_delay default.
const DefaultPurgeDelay = 30 * time.Second

// Table is one database's routing information: role-grouped address sets,
// a TTL and the timestamp it was last refreshed.
type Table struct {
	Routers *OrderedSet[bolt.Address]
	Readers *OrderedSet[bolt.Address]
	Writers *OrderedSet[bolt.Address]

	Database       string
	TTL            time.Duration
	PurgeDelay     time.Duration
	LastUpdatedAt  time.Time
	InitialRouters []bolt.Address
}

// NewTable seeds a table with the initial router set used before the
// first successful refresh; it carries a zero TTL so IsFresh is false
// until a real routing response lands.
func NewTable(initialRouters []bolt.Address, purgeDelay time.Duration) *Table {
	if purgeDelay <= 0 {
		purgeDelay = DefaultPurgeDelay
	}
	return &Table{
		Routers:        NewOrderedSet(initialRouters...),
		Readers:        NewOrderedSet[bolt.Address](),
		Writers:        NewOrderedSet[bolt.Address](),
		PurgeDelay:     purgeDelay,
		InitialRouters: append([]bolt.Address(nil), initialRouters...),
	}
}

// ParseInfo turns a ROUTE/procedure-call response's {servers, ttl, db?}
// metadata into a Table, grouping addresses by role while preserving the
// server list's order. Each host:port entry becomes an Address through the
// caller-supplied resolve function.
func ParseInfo(meta packstream.Map, resolve func(host, port string) bolt.Address) (*Table, liberr.Error) {
	serversVal, ok := meta["servers"]
	if !ok {
		return nil, ErrorMalformedRoutingInfo.Error()
	}
	servers, ok := serversVal.(packstream.List)
	if !ok {
		return nil, ErrorMalformedRoutingInfo.Error()
	}

	t := &Table{
		Routers: NewOrderedSet[bolt.Address](),
		Readers: NewOrderedSet[bolt.Address](),
		Writers: NewOrderedSet[bolt.Address](),
	}

	for _, sv := range servers {
		entry, ok := sv.(packstream.Map)
		if !ok {
			return nil, ErrorMalformedRoutingInfo.Error()
		}
		roleVal, _ := entry["role"].(packstream.String)
		addrsVal, _ := entry["addresses"].(packstream.List)

		for _, av := range addrsVal {
			as, ok := av.(packstream.String)
			if !ok {
				continue
			}
			host, port := splitHostPort(string(as))
			addr := resolve(host, port)

			switch string(roleVal) {
			case "ROUTE":
				t.Routers.Add(addr)
			case "READ":
				t.Readers.Add(addr)
			case "WRITE":
				t.Writers.Add(addr)
			}
		}
	}

	if ttlVal, ok := meta["ttl"].(packstream.Int64); ok {
		t.TTL = time.Duration(ttlVal) * time.Second
	}
	if t.PurgeDelay <= 0 {
		t.PurgeDelay = DefaultPurgeDelay
	}
	if dbVal, ok := meta["db"].(packstream.String); ok {
		t.Database = string(dbVal)
	}
	t.LastUpdatedAt = time.Now()

	return t, nil
}

func splitHostPort(hostport string) (string, string) {
	for i := len(hostport) - 1; i >= 0; i-- {
		if hostport[i] == ':' {
			return hostport[:i], hostport[i+1:]
		}
	}
	return hostport, "7687"
}

// IsFresh reports whether the table can still serve requests in the given
// mode without a refresh: not expired, at least one router known, and at
// least one reader (readonly) or writer (otherwise).
func (t *Table) IsFresh(readonly bool) bool {
	if time.Now().After(t.LastUpdatedAt.Add(t.TTL)) {
		return false
	}
	if t.Routers.Len() == 0 {
		return false
	}
	if readonly {
		return t.Readers.Len() > 0
	}
	return t.Writers.Len() > 0
}

// ShouldBePurged reports whether this table is old enough to be dropped
// from the routed pool's per-database cache entirely.
func (t *Table) ShouldBePurged(now time.Time) bool {
	return now.After(t.LastUpdatedAt.Add(t.TTL).Add(t.PurgeDelay))
}

// Update replaces this table's ordered sets in place with newTable's and
// refreshes LastUpdatedAt, preserving the receiver's identity for callers
// holding a pointer to it.
func (t *Table) Update(newTable *Table) {
	t.Routers = newTable.Routers
	t.Readers = newTable.Readers
	t.Writers = newTable.Writers
	t.TTL = newTable.TTL
	if newTable.Database != "" {
		t.Database = newTable.Database
	}
	t.LastUpdatedAt = time.Now()
}

// AllAddresses returns the union of routers, readers and writers, useful
// for computing which pool addresses are still referenced by any table.
func (t *Table) AllAddresses() []bolt.Address {
	seen := make(map[bolt.Address]struct{})
	var out []bolt.Address
	for _, set := range []*OrderedSet[bolt.Address]{t.Routers, t.Readers, t.Writers} {
		set.Range(func(a bolt.Address) bool {
			if _, ok := seen[a]; !ok {
				seen[a] = struct{}{}
				out = append(out, a)
			}
			return true
		})
	}
	return out
}
