package cloudinit

import (
	"github.com/yanizio/autoinstall/internal/cache"
	"github.com/yanizio/autoinstall/internal/config"
	"github.com/yanizio/autoinstall/internal/metrics"
)

// DefaultCacheSize bounds the number of rendered documents kept in memory.
const DefaultCacheSize = 1024

type cacheKey struct {
	doc  string
	vm   string
	snap config.Snapshot
}

// Cached memoizes another Renderer.  Output depends only on the snapshot
// and the VM name, so a hit returns the same bytes a fresh render would.
type Cached struct {
	next Renderer
	lru  *cache.LRU[cacheKey, []byte]
}

// NewCached wraps r with an LRU of the given size.
func NewCached(r Renderer, size int) *Cached {
	return &Cached{next: r, lru: cache.New[cacheKey, []byte](size)}
}

func (c *Cached) UserData(s config.Snapshot, vmName string) ([]byte, error) {
	return c.get(cacheKey{doc: DocUserData, vm: vmName, snap: s}, func() ([]byte, error) {
		return c.next.UserData(s, vmName)
	})
}

func (c *Cached) MetaData(vmName string) ([]byte, error) {
	return c.get(cacheKey{doc: DocMetaData, vm: vmName}, func() ([]byte, error) {
		return c.next.MetaData(vmName)
	})
}

func (c *Cached) Variant() config.Variant { return c.next.Variant() }

func (c *Cached) get(k cacheKey, render func() ([]byte, error)) ([]byte, error) {
	if out, ok := c.lru.Get(k); ok {
		metrics.RenderCacheHits.WithLabelValues(k.doc).Inc()
		return out, nil
	}
	out, err := render()
	if err != nil {
		return nil, err
	}
	c.lru.Add(k, out)
	return out, nil
}
