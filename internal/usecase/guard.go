package usecase

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/domain"
)

const lockShards = 64

func shardOf(key domain.ListingKey) uint32 {
	h := fnv.New32a()
	h.Write([]byte(key.Collection))
	h.Write([]byte{0})
	h.Write([]byte(key.AssetID))
	return h.Sum32() % lockShards
}

// keyLocks serializes mutations per listing key by striping keys over a fixed set of mutexes.
type keyLocks struct {
	shards [lockShards]sync.Mutex
}

func (k *keyLocks) lock(key domain.ListingKey) (unlock func()) {
	m := &k.shards[shardOf(key)]
	m.Lock()
	return m.Unlock
}

// keyGenerations counts committed mutations per stripe. A cache fill compares the count from
// before and after its store read to notice a write that raced it.
type keyGenerations struct {
	shards [lockShards]atomic.Uint64
}

func (g *keyGenerations) current(key domain.ListingKey) uint64 {
	return g.shards[shardOf(key)].Load()
}

func (g *keyGenerations) bump(key domain.ListingKey) {
	g.shards[shardOf(key)].Add(1)
}

// callGuard is held by the one purchase or price update in flight. While it is held every
// mutating call is rejected, whichever context it arrives with.
type callGuard struct {
	busy atomic.Bool
}

func (g *callGuard) enter() (exit func(), ok bool) {
	if !g.busy.CompareAndSwap(false, true) {
		return nil, false
	}
	return func() { g.busy.Store(false) }, true
}

func (g *callGuard) held() bool {
	return g.busy.Load()
}

type inFlightKey struct{}

// markInFlight tags ctx as belonging to a purchase or price update that is still running.
func markInFlight(ctx context.Context) context.Context {
	return context.WithValue(ctx, inFlightKey{}, true)
}

func isInFlight(ctx context.Context) bool {
	v, _ := ctx.Value(inFlightKey{}).(bool)
	return v
}
