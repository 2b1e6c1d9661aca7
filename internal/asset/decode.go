package asset

import (
	"github.com/Carmen-Shannon/automation/tools/worker"
	"go.uber.org/zap"
)

// Preload queues background decodes for keys not cached or already queued.
// Results are inserted by Sync.
func (c *Cache) Preload(keys ...string) error {
	if c.closed {
		return ErrClosed
	}
	for _, key := range keys {
		k := NormalizeKey(key)
		if k == "" {
			c.log.Warn("invalid texture key", zap.String("texture", key))
			continue
		}
		if _, ok := c.entries[k]; ok {
			continue
		}
		if _, ok := c.queued[k]; ok {
			continue
		}
		c.queued[k] = struct{}{}
		c.pending.Add(1)
		c.wg.Add(1)
		c.taskID++
		c.pool.SubmitTask(worker.Task{
			ID:      c.taskID,
			Payload: k,
			Do: func() (any, error) {
				defer c.wg.Done()
				img, err := c.loader.Load(k)
				c.mu.Lock()
				c.done = append(c.done, decoded{key: k, img: img, err: err})
				c.mu.Unlock()
				c.pending.Add(-1)
				return img, err
			},
		})
	}
	return nil
}

// Pending returns how many background decodes have not finished. It is
// advisory: a decode may complete right after the call.
func (c *Cache) Pending() int { return int(c.pending.Load()) }

// Sync inserts finished background decodes into the cache and returns how
// many were added. Preloaded entries start with no holders.
func (c *Cache) Sync() int {
	c.mu.Lock()
	done := c.done
	c.done = nil
	c.mu.Unlock()

	n := 0
	for _, d := range done {
		delete(c.queued, d.key)
		if d.err != nil {
			c.log.Error("background texture decode failed", zap.String("texture", d.key), zap.Error(d.err))
			continue
		}
		if _, ok := c.entries[d.key]; ok {
			continue
		}
		c.insert(d.key, d.img)
		n++
	}
	return n
}

// Flush waits for every queued decode and inserts the results. Game loop
// only.
func (c *Cache) Flush() int {
	c.wg.Wait()
	return c.Sync()
}

// Close waits for outstanding decodes, stops the decoders and drops every
// entry. The cache refuses new loads afterwards.
func (c *Cache) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.wg.Wait()
	c.pool.Stop()
	c.Sync()
	for k, t := range c.entries {
		t.unload()
		delete(c.entries, k)
	}
	c.log.Info("texture cache closed")
	return nil
}
