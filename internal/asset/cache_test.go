package asset

import (
	"errors"
	"image"
	"image/color"
	"io/fs"
	"sync"
	"testing"
	"time"

	"github.com/l1jgo/stage/internal/geom"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/blake2b"
)

// memLoader serves solid-color images from memory.
type memLoader struct {
	mu     sync.Mutex
	colors map[string]color.RGBA
	loads  map[string]int
	gate   chan struct{} // when set, Load blocks until it is closed
}

func newMemLoader() *memLoader {
	return &memLoader{colors: make(map[string]color.RGBA), loads: make(map[string]int)}
}

func (m *memLoader) set(key string, c color.RGBA) {
	m.mu.Lock()
	m.colors[key] = c
	m.mu.Unlock()
}

func (m *memLoader) count(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads[key]
}

func (m *memLoader) Load(key string) (*Image, error) {
	if m.gate != nil {
		<-m.gate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads[key]++
	c, ok := m.colors[key]
	if !ok {
		return nil, fs.ErrNotExist
	}
	pix := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := 0; i < len(pix.Pix); i += 4 {
		pix.Pix[i], pix.Pix[i+1], pix.Pix[i+2], pix.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return &Image{Pix: pix, Format: "mem", Sum: blake2b.Sum256([]byte{c.R, c.G, c.B, c.A})}, nil
}

func newTestCache(t *testing.T, l Loader) *Cache {
	t.Helper()
	c := NewCache(l, Options{Workers: 2, QueueSize: 8, IdleTimeout: 50 * time.Millisecond}, zaptest.NewLogger(t))
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCache_SameKeySharesTexture(t *testing.T) {
	l := newMemLoader()
	l.set("gfx/rock", color.RGBA{R: 255, A: 255})
	c := newTestCache(t, l)

	a := c.Add("gfx/rock")
	b := c.Add("GFX\\Rock")
	if a != b {
		t.Fatal("same key returned different textures")
	}
	if a.Holders() != 2 || c.Holders("gfx/rock") != 2 {
		t.Fatalf("holders %d", a.Holders())
	}
	if l.count("gfx/rock") != 1 {
		t.Fatalf("loaded %d times", l.count("gfx/rock"))
	}
	if a.Color() != geom.RGB(1, 0, 0) {
		t.Fatalf("average color %v", a.Color())
	}
	if w, h := a.Size(); w != 2 || h != 2 {
		t.Fatalf("size %dx%d", w, h)
	}
	if c.Find("gfx/rock") != a || c.Find("gfx/other") != nil {
		t.Fatal("find mismatch")
	}
}

func TestCache_ClearReleasesOnlyUnheld(t *testing.T) {
	l := newMemLoader()
	l.set("a", color.RGBA{A: 255})
	l.set("b", color.RGBA{A: 255})
	c := newTestCache(t, l)

	a := c.Add("a")
	b := c.Add("b")
	c.Add("b")
	c.Remove(a)
	c.Remove(b)

	if n := c.Clear(); n != 1 {
		t.Fatalf("evicted %d, want 1", n)
	}
	if c.Find("a") != nil || c.Find("b") != b || b.Holders() != 1 {
		t.Fatal("wrong entries evicted")
	}
	if a.Loaded() {
		t.Fatal("evicted texture still holds pixels")
	}

	// A fresh Add after eviction loads again.
	if c.Add("a") == a || l.count("a") != 2 {
		t.Fatal("expected a reload after eviction")
	}
}

func TestCache_RemoveIsTolerant(t *testing.T) {
	l := newMemLoader()
	l.set("a", color.RGBA{A: 255})
	c := newTestCache(t, l)
	a := c.Add("a")
	c.Remove(a)
	c.Remove(a)
	c.Remove(nil)
	c.Remove(c.ErrorTexture())
	if a.Holders() != 0 {
		t.Fatalf("holders %d", a.Holders())
	}
}

func TestCache_FailedLoadUsesErrorTexture(t *testing.T) {
	c := newTestCache(t, newMemLoader())
	tex := c.Add("missing")
	if tex != c.ErrorTexture() || !tex.IsError() {
		t.Fatal("expected the error texture")
	}
	if tex.Color() != geom.Magenta {
		t.Fatalf("error texture color %v", tex.Color())
	}
	if c.Len() != 0 {
		t.Fatal("failed load was cached")
	}
	c.Clear()
	if c.ErrorTexture() != tex || !tex.Loaded() {
		t.Fatal("error texture evicted")
	}
}

func TestCache_UnloadReload(t *testing.T) {
	l := newMemLoader()
	l.set("a", color.RGBA{R: 255, A: 255})
	l.set("b", color.RGBA{G: 255, A: 255})
	c := newTestCache(t, l)
	a, b := c.Add("a"), c.Add("b")

	c.Unload()
	if a.Loaded() || b.Loaded() || c.Len() != 2 {
		t.Fatal("unload should keep entries and drop pixels")
	}
	if err := c.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !a.Loaded() || !b.Loaded() || a.Holders() != 1 {
		t.Fatal("reload did not restore entries")
	}

	// Unchanged sources are skipped; a changed one is replaced.
	l.set("b", color.RGBA{B: 255, A: 255})
	va, vb := a.Version(), b.Version()
	if err := c.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if a.Version() != va || b.Version() != vb+1 {
		t.Fatalf("versions a %d->%d b %d->%d", va, a.Version(), vb, b.Version())
	}
	if b.Color() != geom.RGB(0, 0, 1) {
		t.Fatalf("b color %v", b.Color())
	}
}

func TestCache_ReloadFailureIsReported(t *testing.T) {
	l := newMemLoader()
	l.set("a", color.RGBA{A: 255})
	c := newTestCache(t, l)
	c.Add("a")
	l.mu.Lock()
	delete(l.colors, "a")
	l.mu.Unlock()
	if err := c.Reload(); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("got %v", err)
	}
}

func TestCache_PreloadAndSync(t *testing.T) {
	l := newMemLoader()
	l.set("a", color.RGBA{A: 255})
	l.set("b", color.RGBA{A: 255})
	l.gate = make(chan struct{})
	c := newTestCache(t, l)

	if err := c.Preload("a", "b", "A", "missing"); err != nil {
		t.Fatalf("preload: %v", err)
	}
	if c.Pending() != 3 {
		t.Fatalf("pending %d, want 3", c.Pending())
	}
	close(l.gate)

	deadline := time.Now().Add(5 * time.Second)
	for c.Pending() > 0 {
		if time.Now().After(deadline) {
			t.Fatal("decodes did not finish")
		}
		time.Sleep(time.Millisecond)
	}
	if n := c.Sync(); n != 2 {
		t.Fatalf("synced %d, want 2", n)
	}
	a := c.Find("a")
	if a == nil || a.Holders() != 0 {
		t.Fatal("preloaded entry missing or held")
	}
	if c.Add("a") != a || l.count("a") != 1 {
		t.Fatal("add after preload should hit the cache")
	}
}

func TestCache_CloseWaitsForDecodes(t *testing.T) {
	l := newMemLoader()
	l.set("a", color.RGBA{A: 255})
	l.gate = make(chan struct{})
	c := NewCache(l, Options{Workers: 1}, zaptest.NewLogger(t))
	c.Preload("a")

	closed := make(chan struct{})
	go func() {
		c.Close()
		close(closed)
	}()
	select {
	case <-closed:
		t.Fatal("close returned with a decode outstanding")
	case <-time.After(20 * time.Millisecond):
	}
	close(l.gate)
	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("close did not return")
	}
	if c.Pending() != 0 || c.Len() != 0 {
		t.Fatalf("pending %d len %d", c.Pending(), c.Len())
	}
	if err := c.Preload("b"); !errors.Is(err, ErrClosed) {
		t.Fatalf("preload after close: %v", err)
	}
}

func TestNormalizeKey(t *testing.T) {
	tests := map[string]string{
		"gfx/Rock.png":    "gfx/rock.png",
		"GFX\\rock.png":   "gfx/rock.png",
		"./gfx//rock.png": "gfx/rock.png",
		"/gfx/../rock":    "rock",
		"  ":              "",
		"ÄBC.png":         "äbc.png",
		"../../etc/x":     "",
		"gfx/../../x":     "",
		"..":              "",
	}
	for in, want := range tests {
		if got := NormalizeKey(in); got != want {
			t.Errorf("NormalizeKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCache_RejectsKeysOutsideRoot(t *testing.T) {
	l := newMemLoader()
	core, logs := observer.New(zapcore.WarnLevel)
	c := NewCache(l, Options{Workers: 1}, zap.New(core))
	t.Cleanup(func() { c.Close() })

	tex := c.Add("../../etc/passwd")
	if tex != c.ErrorTexture() {
		t.Fatal("escaping key did not get the error texture")
	}
	if err := c.Preload("gfx/../../secret"); err != nil {
		t.Fatal(err)
	}
	if c.Pending() != 0 || c.Flush() != 0 {
		t.Fatal("escaping key was queued for decode")
	}
	if n := len(l.loads); n != 0 {
		t.Fatalf("loader called %d times", n)
	}
	if n := logs.FilterMessage("invalid texture key").Len(); n != 2 {
		t.Fatalf("warnings = %d, want 2", n)
	}
}
