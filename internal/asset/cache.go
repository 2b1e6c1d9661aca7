package asset

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"go.uber.org/zap"
)

var ErrClosed = errors.New("texture cache closed")

// Options tune the cache's background decoders.
type Options struct {
	Workers     int
	QueueSize   int
	IdleTimeout time.Duration
	DebugLog    bool // log every texture load
}

// Cache deduplicates textures by key. Entries are evicted only by Clear and
// only once no holder remains. Everything except the decode workers runs on
// the game loop goroutine.
type Cache struct {
	log      *zap.Logger
	loader   Loader
	entries  map[string]*Texture
	errTex   *Texture
	nextID   uint32
	debugLog bool
	closed   bool

	pool    worker.DynamicWorkerPool
	queued  map[string]struct{}
	pending atomic.Int32
	wg      sync.WaitGroup
	taskID  int

	mu   sync.Mutex // guards done
	done []decoded
}

type decoded struct {
	key string
	img *Image
	err error
}

func NewCache(loader Loader, opts Options, log *zap.Logger) *Cache {
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = time.Second
	}
	return &Cache{
		log:      log,
		loader:   loader,
		entries:  make(map[string]*Texture),
		errTex:   newErrorTexture(),
		nextID:   1,
		debugLog: opts.DebugLog,
		pool:     worker.NewDynamicWorkerPool(opts.Workers, opts.QueueSize, opts.IdleTimeout),
		queued:   make(map[string]struct{}),
	}
}

// ErrorTexture returns the shared placeholder used for failed loads.
func (c *Cache) ErrorTexture() *Texture { return c.errTex }

// Len returns the number of cached entries, the error texture excluded.
func (c *Cache) Len() int { return len(c.entries) }

// Add returns the texture for key, loading it on first use, and counts one
// more holder. A failed load logs and returns the error texture.
func (c *Cache) Add(key string) *Texture {
	k := NormalizeKey(key)
	if k == "" {
		c.log.Warn("invalid texture key", zap.String("texture", key))
		return c.errTex
	}
	if t, ok := c.entries[k]; ok {
		t.holders++
		return t
	}
	if c.closed {
		c.log.Error("texture requested from closed cache", zap.String("texture", k))
		return c.errTex
	}
	img, err := c.loader.Load(k)
	if err != nil {
		c.log.Error("load texture failed", zap.String("texture", k), zap.Error(err))
		return c.errTex
	}
	t := c.insert(k, img)
	t.holders++
	return t
}

// Find returns the cached texture for key without taking a hold, or nil.
func (c *Cache) Find(key string) *Texture {
	return c.entries[NormalizeKey(key)]
}

// Holders returns the holder count of key, 0 when it is not cached.
func (c *Cache) Holders(key string) int {
	if t, ok := c.entries[NormalizeKey(key)]; ok {
		return t.holders
	}
	return 0
}

// Remove drops one hold on t. The entry stays cached until Clear.
func (c *Cache) Remove(t *Texture) {
	if t == nil || t.isError {
		return
	}
	if cur, ok := c.entries[t.key]; !ok || cur != t {
		c.log.Warn("remove of texture not in cache", zap.String("texture", t.key))
		return
	}
	if t.holders == 0 {
		c.log.Warn("remove of texture without holders", zap.String("texture", t.key))
		return
	}
	t.holders--
}

// Clear evicts every entry without holders and returns how many went.
func (c *Cache) Clear() int {
	n := 0
	for k, t := range c.entries {
		if t.holders > 0 {
			continue
		}
		t.unload()
		delete(c.entries, k)
		n++
	}
	if n > 0 {
		c.log.Debug("textures evicted", zap.Int("count", n), zap.Int("remaining", len(c.entries)))
	}
	return n
}

// Unload drops the pixel data of every entry, keeping the entries and
// their holders. Used when the render device goes away.
func (c *Cache) Unload() {
	for _, t := range c.entries {
		t.unload()
	}
	c.log.Info("textures unloaded", zap.Int("count", len(c.entries)))
}

// Reload re-reads every entry from its source. Entries still holding
// pixels whose source checksum did not change are left alone. Entries that
// fail to load keep their previous state; the failures are returned joined.
func (c *Cache) Reload() error {
	var errs []error
	reloaded := 0
	for k, t := range c.entries {
		img, err := c.loader.Load(k)
		if err != nil {
			c.log.Error("reload texture failed", zap.String("texture", k), zap.Error(err))
			errs = append(errs, fmt.Errorf("reload %s: %w", k, err))
			continue
		}
		if t.img != nil && img.Sum == t.sum {
			continue
		}
		t.set(img)
		reloaded++
	}
	c.log.Info("textures reloaded", zap.Int("reloaded", reloaded), zap.Int("count", len(c.entries)))
	return errors.Join(errs...)
}

func (c *Cache) insert(k string, img *Image) *Texture {
	t := &Texture{key: k, id: c.nextID}
	c.nextID++
	t.set(img)
	c.entries[k] = t
	if c.debugLog {
		c.log.Info("texture loaded",
			zap.String("texture", k), zap.String("format", img.Format),
			zap.Int("width", t.width), zap.Int("height", t.height))
	}
	return t
}
