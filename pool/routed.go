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

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sabouaram/graphbolt/bolt"
	"github.com/sabouaram/graphbolt/cache"
	"github.com/sabouaram/graphbolt/config"
	liberr "github.com/sabouaram/graphbolt/errors"
	errpool "github.com/sabouaram/graphbolt/errors/pool"
	"github.com/sabouaram/graphbolt/logger"
	logfld "github.com/sabouaram/graphbolt/logger/fields"
	"github.com/sabouaram/graphbolt/packstream"
	"github.com/sabouaram/graphbolt/resolver"
	"github.com/sabouaram/graphbolt/routing"
)

type ownerKeyType struct{}

var ownerKey = ownerKeyType{}

// withOwner returns ctx carrying a refresh-lock owner token, reusing one
// already present so a nested EnsureFresh call (resolving the home database
// while refreshing a named one) re-enters instead of deadlocking.
func withOwner(ctx context.Context) (context.Context, interface{}) {
	if tok := ctx.Value(ownerKey); tok != nil {
		return ctx, tok
	}
	tok := new(struct{})
	return context.WithValue(ctx, ownerKey, tok), tok
}

// RoutedPool layers the routing table lifecycle on top of a plain Pool:
// one table per database name, refreshed from a router when stale, and
// address selection by least connections in use.
type RoutedPool struct {
	*Pool

	tables cache.Cache[string, *routing.Table]
	homeDB cache.Cache[string, string]

	refreshLock *reentrantMutex

	seedRouters []bolt.UnresolvedAddress
	routingCfg  config.Routing
	resolve     resolver.Resolver

	rngMu sync.Mutex
	rng   *rand.Rand

	log logger.Logger
}

func NewRoutedPool(ctx context.Context, cfg config.Pool, routingCfg config.Routing, seedRouters []bolt.UnresolvedAddress, res resolver.Resolver, open Opener, log logger.Logger) *RoutedPool {
	if res == nil {
		res = resolver.Identity()
	}
	return &RoutedPool{
		Pool:        New(cfg, res, open, log),
		tables:      cache.New[string, *routing.Table](ctx, 24*time.Hour),
		homeDB:      cache.New[string, string](ctx, 24*time.Hour),
		refreshLock: newReentrantMutex(),
		seedRouters: seedRouters,
		routingCfg:  routingCfg,
		resolve:     res,
		rng:         rand.New(rand.NewSource(1)),
		log:         log,
	}
}

func (rp *RoutedPool) resolveAddress(host, port string) bolt.Address {
	candidates, err := rp.resolve.Resolve(context.Background(), bolt.UnresolvedAddress{Host: host, Port: port})
	if err != nil || len(candidates) == 0 {
		return bolt.NewAddress(host, port, host)
	}
	return candidates[0]
}

// EnsureFresh returns database's routing table, refreshing it from a router
// first if it is missing, expired, or lacks the role set readonly implies.
// Concurrent callers for the same database serialize on refreshLock; the
// loser of that race simply re-checks freshness after acquiring it and
// very likely finds the winner's refresh already satisfies it.
func (rp *RoutedPool) EnsureFresh(ctx context.Context, database string, readonly bool) (*routing.Table, liberr.Error) {
	ctx, owner := withOwner(ctx)
	rp.refreshLock.Lock(owner)
	defer rp.refreshLock.Unlock(owner)

	if t, _, ok := rp.tables.Load(database); ok && t.IsFresh(readonly) {
		return t, nil
	}

	return rp.refreshLocked(ctx, database)
}

func (rp *RoutedPool) refreshLocked(ctx context.Context, database string) (*routing.Table, liberr.Error) {
	routers := rp.candidateRouters(database)
	if len(routers) == 0 {
		return nil, ErrorNoRoutersAvailable.Error()
	}

	attempt := uuid.New()
	if rp.log != nil {
		rp.log.Debug("pool: refreshing routing table", logfld.New(ctx).Add("database", database).Add("attempt", attempt.String()).Add("routers", len(routers)))
	}

	failures := errpool.New()
	for _, routerAddr := range routers {
		table, err := rp.fetchFrom(ctx, routerAddr, database)
		if err != nil {
			failures.Add(err)
			rp.Pool.Deactivate(routerAddr)
			if rp.log != nil {
				rp.log.Warning("pool: router unreachable during refresh", logfld.New(ctx).Add("attempt", attempt.String()).Add("router", routerAddr.Key()))
			}
			continue
		}
		rp.tables.Store(database, table)
		if table.Database != "" {
			rp.homeDB.Store(database, table.Database)
		}
		return table, nil
	}

	if failures.Len() == 0 {
		return nil, ErrorNoRoutersAvailable.Error()
	}
	return nil, ErrorNoRoutersAvailable.Error(failures.Error())
}

// candidateRouters returns the routers to try for database: the existing
// table's own router list if one exists (even stale), otherwise the seed
// routers given at construction.
func (rp *RoutedPool) candidateRouters(database string) []bolt.Address {
	if t, _, ok := rp.tables.Load(database); ok && t.Routers.Len() > 0 {
		return t.Routers.Slice()
	}

	out := make([]bolt.Address, 0, len(rp.seedRouters))
	for _, u := range rp.seedRouters {
		out = append(out, rp.resolveAddress(u.Host, u.Port))
	}
	return out
}

func (rp *RoutedPool) fetchFrom(ctx context.Context, routerAddr bolt.Address, database string) (*routing.Table, liberr.Error) {
	conn, err := rp.Pool.AcquireAddress(ctx, routerAddr)
	if err != nil {
		return nil, err
	}
	defer rp.Pool.Release(conn)

	dbCtx := packstream.Map{}
	if database != "" {
		dbCtx["db"] = packstream.String(database)
	}

	var meta packstream.Map
	if conn.SupportsRouteMessage() {
		meta, err = conn.RouteSync(packstream.Map{}, packstream.List{}, dbCtx)
	} else {
		meta, err = rp.routeViaProcedure(conn, database)
	}
	if err != nil {
		return nil, err
	}

	table, perr := routing.ParseInfo(meta, rp.resolveAddress)
	if perr != nil {
		return nil, perr
	}
	if table.PurgeDelay <= 0 {
		table.PurgeDelay = rp.routingCfg.RoutingTablePurgeDelay
	}
	return table, nil
}

// routeViaProcedure falls back to the dbms.routing.getRoutingTable
// procedure call for servers older than the dedicated ROUTE message
// (bolt < 4.3), wrapping a RUN+PULL exchange instead of a single message.
func (rp *RoutedPool) routeViaProcedure(conn *bolt.Connection, database string) (packstream.Map, liberr.Error) {
	params := packstream.Map{"context": packstream.Map{}}
	if database != "" {
		params["database"] = packstream.String(database)
	}

	var (
		record  packstream.List
		failure liberr.Error
	)
	runHandler := &bolt.ResponseHandler{
		OnFailure: func(code, message string) { failure = ErrorDial.Error() },
	}
	if err := conn.Enqueue(bolt.MsgRun, bolt.Run("CALL dbms.routing.getRoutingTable($context, $database)", params, packstream.Map{}), runHandler); err != nil {
		return nil, err
	}

	pullHandler := &bolt.ResponseHandler{
		OnRecord:  func(fields packstream.List) { record = fields },
		OnFailure: func(code, message string) { failure = ErrorDial.Error() },
	}
	if err := conn.Enqueue(bolt.MsgPull, bolt.Pull(packstream.Map{"n": packstream.Int64(-1)}), pullHandler); err != nil {
		return nil, err
	}
	if err := conn.Flush(); err != nil {
		return nil, err
	}
	for conn.Pending() > 0 {
		if err := conn.Dispatch(); err != nil && failure == nil {
			return nil, err
		}
	}
	if failure != nil {
		return nil, failure
	}
	if len(record) == 0 {
		return nil, ErrorNoRoutersAvailable.Error()
	}
	meta, ok := record[0].(packstream.Map)
	if !ok {
		return nil, ErrorNoRoutersAvailable.Error()
	}
	return meta, nil
}

// PickReader returns the least-in-use reader address for database,
// breaking ties at random so a cold pool does not pile every session onto
// the first entry in the table.
func (rp *RoutedPool) PickReader(ctx context.Context, database string) (bolt.Address, liberr.Error) {
	t, err := rp.EnsureFresh(ctx, database, true)
	if err != nil {
		return bolt.Address{}, err
	}
	return rp.pickLeastInUse(t.Readers, ErrorNoReadersAvailable)
}

// PickWriter returns the least-in-use writer address for database.
func (rp *RoutedPool) PickWriter(ctx context.Context, database string) (bolt.Address, liberr.Error) {
	t, err := rp.EnsureFresh(ctx, database, false)
	if err != nil {
		return bolt.Address{}, err
	}
	return rp.pickLeastInUse(t.Writers, ErrorNoWritersAvailable)
}

func (rp *RoutedPool) pickLeastInUse(set *routing.OrderedSet[bolt.Address], onEmpty liberr.CodeError) (bolt.Address, liberr.Error) {
	candidates := set.Slice()
	if len(candidates) == 0 {
		return bolt.Address{}, onEmpty.Error()
	}

	best := candidates[:0:0]
	lowest := -1
	for _, addr := range candidates {
		n := rp.Pool.InUseCount(addr)
		switch {
		case lowest == -1 || n < lowest:
			lowest = n
			best = append(best[:0], addr)
		case n == lowest:
			best = append(best, addr)
		}
	}

	rp.rngMu.Lock()
	idx := rp.rng.Intn(len(best))
	rp.rngMu.Unlock()
	return best[idx], nil
}

// AcquireReader picks a reader for database and checks out a connection to
// it from the underlying Pool.
func (rp *RoutedPool) AcquireReader(ctx context.Context, database string) (*bolt.Connection, liberr.Error) {
	addr, err := rp.PickReader(ctx, database)
	if err != nil {
		return nil, err
	}
	return rp.Pool.AcquireAddress(ctx, addr)
}

// AcquireWriter picks a writer for database and checks out a connection to
// it from the underlying Pool.
func (rp *RoutedPool) AcquireWriter(ctx context.Context, database string) (*bolt.Connection, liberr.Error) {
	addr, err := rp.PickWriter(ctx, database)
	if err != nil {
		return nil, err
	}
	return rp.Pool.AcquireAddress(ctx, addr)
}

// HomeDatabase returns the server-resolved default database name for the
// connection's current user, fetching and caching a routing table for the
// empty database name (the protocol's "use my home db" sentinel) if it is
// not already known.
func (rp *RoutedPool) HomeDatabase(ctx context.Context) (string, liberr.Error) {
	if name, _, ok := rp.homeDB.Load(""); ok {
		return name, nil
	}
	t, err := rp.EnsureFresh(ctx, "", false)
	if err != nil {
		return "", err
	}
	return t.Database, nil
}

// RemoveWriter drops addr from every cached table's writer set, used on a
// Neo.ClientError.Cluster.NotALeader or ...ForbiddenOnReadOnlyDatabase
// FAILURE: the server that just rejected a write told us it is no longer
// (or never was) the leader, so PickWriter must not offer it again until
// the next refresh rediscovers the cluster's real leader.
func (rp *RoutedPool) RemoveWriter(addr bolt.Address) {
	rp.tables.Walk(func(_ string, t *routing.Table, _ time.Duration) bool {
		t.Writers.Remove(addr)
		return true
	})
}

// DeactivateEverywhere drops addr from every cached table's router, reader
// and writer sets and deactivates it in the underlying pool, used on a
// database/service-unavailable FAILURE: the address is gone for every
// database it appeared in, not just the one in scope when the FAILURE hit.
func (rp *RoutedPool) DeactivateEverywhere(addr bolt.Address) {
	rp.tables.Walk(func(_ string, t *routing.Table, _ time.Duration) bool {
		t.Routers.Remove(addr)
		t.Readers.Remove(addr)
		t.Writers.Remove(addr)
		return true
	})
	rp.Pool.Deactivate(addr)
}

// PurgeStaleTables drops every cached table old enough that ShouldBePurged
// reports true, per the routing_table_purge_delay policy.
func (rp *RoutedPool) PurgeStaleTables() {
	now := time.Now()
	var stale []string
	rp.tables.Walk(func(db string, t *routing.Table, _ time.Duration) bool {
		if t.ShouldBePurged(now) {
			stale = append(stale, db)
		}
		return true
	})
	for _, db := range stale {
		rp.tables.Delete(db)
	}
}
