package platform

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// ProcessInfo is the subset of process-table data the Adapter needs for
// application_by_name/application_by_pid lookups (spec.md §4.A).
type ProcessInfo struct {
	PID  int
	Name string
}

// processCache is the PROCESS_CACHE of spec.md §5: a process table behind a
// 2-second TTL, readers refresh when stale. Backed by an expirable LRU so
// entries are evicted automatically rather than growing unbounded across a
// long-lived Adapter.
type processCache struct {
	cache *lru.LRU[int, ProcessInfo]
	ttl   time.Duration
	list  func(ctx context.Context) ([]ProcessInfo, error)
}

const processCacheTTL = 2 * time.Second

func newProcessCache(list func(ctx context.Context) ([]ProcessInfo, error)) *processCache {
	return &processCache{
		cache: lru.NewLRU[int, ProcessInfo](4096, nil, processCacheTTL),
		ttl:   processCacheTTL,
		list:  list,
	}
}

// byPID returns the process info for pid, refreshing the whole table when
// pid is not cached — a cheap way to honour the "readers refresh
// when stale" rule without per-key staleness bookkeeping, since the
// underlying LRU already expires entries on the same TTL.
func (p *processCache) byPID(ctx context.Context, pid int) (ProcessInfo, bool, error) {
	if info, ok := p.cache.Get(pid); ok {
		return info, true, nil
	}
	if err := p.refresh(ctx); err != nil {
		return ProcessInfo{}, false, err
	}
	info, ok := p.cache.Get(pid)
	return info, ok, nil
}

// byName returns every cached process that the matches predicate accepts,
// refreshing first if the cache looks cold.
func (p *processCache) byName(ctx context.Context, matches func(ProcessInfo) bool) ([]ProcessInfo, error) {
	if p.cache.Len() == 0 {
		if err := p.refresh(ctx); err != nil {
			return nil, err
		}
	}
	var out []ProcessInfo
	for _, pid := range p.cache.Keys() {
		info, ok := p.cache.Get(pid)
		if ok && matches(info) {
			out = append(out, info)
		}
	}
	return out, nil
}

func (p *processCache) refresh(ctx context.Context) error {
	procs, err := p.list(ctx)
	if err != nil {
		return err
	}
	for _, info := range procs {
		p.cache.Add(info.PID, info)
	}
	return nil
}
