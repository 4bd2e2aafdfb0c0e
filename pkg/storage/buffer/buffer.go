package buffer

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/lintang-b-s/mwmrouter/pkg/datastructure"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var ErrHandleReleased = errors.New("region handle already released")

// Loader materializes the value of one region. It runs detached from the
// caller's cancellation so a load shared by several searches completes even
// when the search that started it is cancelled.
type Loader[V any] func(ctx context.Context, id datastructure.RegionID) (V, error)

// Buffer holds one materialized region in the pool while its pin count is
// above zero. An unpinned buffer stays resident until the pool needs room or
// the region is evicted.
type Buffer[V any] struct {
	id       datastructure.RegionID
	contents V
	pins     int
	lastUsed uint64
	retired  bool // evicted from the pool while still pinned
}

func (b *Buffer[V]) isPinned() bool {
	return b.pins > 0
}

// Handle is a pinned reference to a region. The value stays valid until
// Release, even if the region is evicted meanwhile.
type Handle[V any] struct {
	pool     *Pool[V]
	buf      *Buffer[V]
	released atomic.Bool
}

func (h *Handle[V]) ID() datastructure.RegionID {
	return h.buf.id
}

func (h *Handle[V]) Value() V {
	return h.buf.contents
}

// Release unpins the region. Releasing twice is an error and a no-op.
func (h *Handle[V]) Release() error {
	if !h.released.CompareAndSwap(false, true) {
		return ErrHandleReleased
	}
	h.pool.unpin(h.buf)
	return nil
}

type Stats struct {
	Hits      uint64
	Loads     uint64
	Failures  uint64
	Evictions uint64
}

// Pool is the shared region cache. Entries are inserted once and never
// replaced, a region is only dropped when nothing pins it.
type Pool[V any] struct {
	mu      sync.Mutex
	buffers map[datastructure.RegionID]*Buffer[V]
	limit   int
	tick    uint64

	group  singleflight.Group
	loader Loader[V]
	logger *zap.Logger

	hits, loads, failures, evictions atomic.Uint64
}

// NewPool creates a pool keeping at most limit unpinned regions resident.
// limit <= 0 means no limit.
func NewPool[V any](loader Loader[V], limit int, logger *zap.Logger) *Pool[V] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool[V]{
		buffers: make(map[datastructure.RegionID]*Buffer[V]),
		limit:   limit,
		loader:  loader,
		logger:  logger,
	}
}

// Pin returns a handle to region id, loading it on first use. Concurrent
// pins of the same region share one load.
func (p *Pool[V]) Pin(ctx context.Context, id datastructure.RegionID) (*Handle[V], error) {
	if h := p.pinResident(id); h != nil {
		p.hits.Add(1)
		return h, nil
	}

	ch := p.group.DoChan(strconv.Itoa(int(id)), func() (interface{}, error) {
		if b := p.resident(id); b != nil {
			// loaded by a previous flight between our check and this one
			return b, nil
		}
		v, err := p.loader(context.WithoutCancel(ctx), id)
		if err != nil {
			p.failures.Add(1)
			return nil, err
		}
		p.loads.Add(1)
		return p.insert(id, v), nil
	})

	select {
	case <-ctx.Done():
		// the flight still inserts the region, only this caller gives up
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return p.pinBuffer(res.Val.(*Buffer[V])), nil
	}
}

func (p *Pool[V]) resident(id datastructure.RegionID) *Buffer[V] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffers[id]
}

func (p *Pool[V]) pinResident(id datastructure.RegionID) *Handle[V] {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.buffers[id]
	if !ok {
		return nil
	}
	b.pins++
	return &Handle[V]{pool: p, buf: b}
}

func (p *Pool[V]) pinBuffer(b *Buffer[V]) *Handle[V] {
	p.mu.Lock()
	defer p.mu.Unlock()
	b.pins++
	return &Handle[V]{pool: p, buf: b}
}

// insert adds a loaded region unless one is already resident. Eviction
// happens on unpin so a fresh region is not dropped before its first pin.
func (p *Pool[V]) insert(id datastructure.RegionID, v V) *Buffer[V] {
	p.mu.Lock()
	defer p.mu.Unlock()
	if b, ok := p.buffers[id]; ok {
		return b
	}
	p.tick++
	b := &Buffer[V]{id: id, contents: v, lastUsed: p.tick}
	p.buffers[id] = b
	return b
}

func (p *Pool[V]) unpin(b *Buffer[V]) {
	p.mu.Lock()
	defer p.mu.Unlock()
	b.pins--
	p.tick++
	b.lastUsed = p.tick
	if !b.retired {
		p.evictOverLimit()
	}
}

// evictOverLimit drops least recently released unpinned buffers while the
// pool holds more than limit regions. Must hold p.mu.
func (p *Pool[V]) evictOverLimit() {
	if p.limit <= 0 {
		return
	}
	for len(p.buffers) > p.limit {
		var victim *Buffer[V]
		for _, b := range p.buffers {
			if b.isPinned() {
				continue
			}
			if victim == nil || b.lastUsed < victim.lastUsed ||
				(b.lastUsed == victim.lastUsed && b.id < victim.id) {
				victim = b
			}
		}
		if victim == nil {
			return
		}
		delete(p.buffers, victim.id)
		victim.retired = true
		p.evictions.Add(1)
		p.logger.Debug("evicted region from cache", zap.Uint16("region", uint16(victim.id)))
	}
}

// Evict removes region id from the pool. Searches that pinned it keep their
// handle, the next Pin loads it again.
func (p *Pool[V]) Evict(id datastructure.RegionID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.buffers[id]
	if !ok {
		return false
	}
	delete(p.buffers, id)
	b.retired = true
	p.evictions.Add(1)
	return true
}

func (p *Pool[V]) IsResident(id datastructure.RegionID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.buffers[id]
	return ok
}

// Pins returns the pin count of a resident region, 0 otherwise.
func (p *Pool[V]) Pins(id datastructure.RegionID) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if b, ok := p.buffers[id]; ok {
		return b.pins
	}
	return 0
}

func (p *Pool[V]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buffers)
}

func (p *Pool[V]) Stats() Stats {
	return Stats{
		Hits:      p.hits.Load(),
		Loads:     p.loads.Load(),
		Failures:  p.failures.Load(),
		Evictions: p.evictions.Load(),
	}
}
