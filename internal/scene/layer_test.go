package scene

import (
	"testing"

	"github.com/l1jgo/stage/internal/device"
	"github.com/l1jgo/stage/internal/geom"
)

// staticScene fills layer 0 with static a and b, a dynamic x and a static c.
func staticScene(t *testing.T) (*Manager, *device.Capture, map[rune]*dot) {
	t.Helper()
	m, dev := newTestManager(t, 1)
	m.Layer(0).SetCull(false)
	dots := make(map[rune]*dot)
	for _, g := range "abxc" {
		d := newDot(g, 10, 10)
		d.SetStatic(g != 'x')
		m.AddRenderObject(d, 0)
		dots[g] = d
	}
	return m, dev, dots
}

func TestLayer_CacheMatchesLiveRender(t *testing.T) {
	m, dev, _ := staticScene(t)
	render(t, m, FullRange)
	live := glyphs(dev.LastFrame())
	if live != "abxc" {
		t.Fatalf("live render: %q", live)
	}
	if dev.Compiles != 0 {
		t.Fatalf("compiled without optimizeStatic: %d", dev.Compiles)
	}

	m.Layer(0).SetOptimizeStatic(true)
	render(t, m, FullRange) // miss: rebuild
	if got := glyphs(dev.LastFrame()); got != live {
		t.Fatalf("cache miss: got %q, want %q", got, live)
	}
	if s := m.Stats(); s.CacheRebuilds != 1 || s.CacheHits != 0 {
		t.Fatalf("miss stats %+v", s)
	}
	if dev.Compiles != 2 {
		t.Fatalf("expected batches [ab] and [c], compiled %d", dev.Compiles)
	}

	render(t, m, FullRange) // hit: replay
	if got := glyphs(dev.LastFrame()); got != live {
		t.Fatalf("cache hit: got %q, want %q", got, live)
	}
	if s := m.Stats(); s.CacheHits != 1 || s.CacheRebuilds != 0 || s.Rendered != 4 {
		t.Fatalf("hit stats %+v", s)
	}
	if dev.Submits != 2 {
		t.Fatalf("submits %d", dev.Submits)
	}
}

func TestLayer_ChangesInvalidateCache(t *testing.T) {
	m, dev, dots := staticScene(t)
	l := m.Layer(0)
	l.SetOptimizeStatic(true)
	render(t, m, FullRange)

	d := newDot('d', 10, 10)
	d.SetStatic(true)
	tests := []struct {
		name   string
		change func()
		want   string
	}{
		{"add", func() { m.AddRenderObject(d, 0) }, "abxcd"},
		{"remove", func() { m.RemoveRenderObject(dots['a'], DoNotDestroy) }, "bxcd"},
		{"reorder", func() { m.MoveToFront(dots['b']) }, "xcdb"},
		{"hide static", func() { dots['c'].SetVisible(false) }, "xdb"},
		{"show static", func() { dots['c'].SetVisible(true) }, "xcdb"},
		{"pass", func() { d.SetPass(1) }, "xcb"},
		{"unmark static", func() { d.SetPass(0); dots['b'].SetStatic(false) }, "xcdb"},
		{"tint", func() { l.SetTint(geom.RGB(1, 0, 0)) }, "xcdb"},
	}
	for _, tt := range tests {
		tt.change()
		render(t, m, FullRange)
		if got := glyphs(dev.LastFrame()); got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, got, tt.want)
		}
		if s := m.Stats(); s.CacheRebuilds != 1 {
			t.Errorf("%s: expected a rebuild, stats %+v", tt.name, s)
		}
		render(t, m, FullRange)
		if got := glyphs(dev.LastFrame()); got != tt.want {
			t.Errorf("%s replay: got %q, want %q", tt.name, got, tt.want)
		}
		if s := m.Stats(); s.CacheHits != 1 {
			t.Errorf("%s replay: expected a hit, stats %+v", tt.name, s)
		}
	}
}

func TestLayer_StaticMoveRedraws(t *testing.T) {
	m, dev, dots := staticScene(t)
	m.Layer(0).SetOptimizeStatic(true)
	render(t, m, FullRange)
	render(t, m, FullRange)

	dots['a'].SetPosition(geom.V(3, 4))
	render(t, m, FullRange)
	cmds := dev.LastFrame()
	if cmds[0].Glyph != 'a' || cmds[0].Pos != geom.V(3, 4) {
		t.Fatalf("moved static drawn at %v", cmds[0].Pos)
	}
}

func TestLayer_StaleReplayFallsBack(t *testing.T) {
	m, dev, dots := staticScene(t)
	l := m.Layer(0)
	l.SetOptimizeStatic(true)
	render(t, m, FullRange)

	// x sits between the batches [ab] and [c]; removing c while replaying
	// makes the second batch stale.
	dots['x'].onRender = func(ctx *FrameContext) {
		ctx.Scene.RemoveRenderObject(dots['c'], DoNotDestroy)
	}
	render(t, m, FullRange)
	if got := glyphs(dev.LastFrame()); got != "abx" {
		t.Fatalf("got %q, want %q", got, "abx")
	}
	dots['x'].onRender = nil

	render(t, m, FullRange)
	if got := glyphs(dev.LastFrame()); got != "abx" {
		t.Fatalf("after rebuild: got %q", got)
	}
	if s := m.Stats(); s.CacheRebuilds != 1 {
		t.Fatalf("stats %+v", s)
	}
}

func TestLayer_CullingLayerNeverBatches(t *testing.T) {
	m, dev, _ := staticScene(t)
	l := m.Layer(0)
	l.SetCull(true)
	l.SetOptimizeStatic(true)
	render(t, m, FullRange)
	render(t, m, FullRange)
	if dev.Compiles != 0 {
		t.Fatalf("culling layer compiled %d batches", dev.Compiles)
	}
	if got := glyphs(dev.LastFrame()); got != "abxc" {
		t.Fatalf("got %q", got)
	}
}

func TestLayer_ParallaxLayerSkipsCache(t *testing.T) {
	m, dev, _ := staticScene(t)
	l := m.Layer(0)
	l.SetOptimizeStatic(true)
	l.SetFollowCamera(0.5, LockNone)
	render(t, m, FullRange)
	render(t, m, FullRange)
	if dev.Compiles != 0 || l.CachedPasses() != 0 {
		t.Fatalf("compiles %d cached passes %d", dev.Compiles, l.CachedPasses())
	}
}

func TestLayer_DisablingOptimizeReleasesBatches(t *testing.T) {
	m, dev, _ := staticScene(t)
	l := m.Layer(0)
	l.SetOptimizeStatic(true)
	render(t, m, FullRange)
	if dev.LiveBatches() != 2 {
		t.Fatalf("live batches %d", dev.LiveBatches())
	}
	l.SetOptimizeStatic(false)
	if dev.LiveBatches() != 0 || l.CachedPasses() != 0 {
		t.Fatalf("live batches %d cached passes %d", dev.LiveBatches(), l.CachedPasses())
	}
}

func TestLayer_RebuildReleasesOldBatches(t *testing.T) {
	m, dev, dots := staticScene(t)
	m.Layer(0).SetOptimizeStatic(true)
	render(t, m, FullRange)
	dots['a'].SetPosition(geom.V(11, 11))
	render(t, m, FullRange)
	if dev.LiveBatches() != 2 || dev.Releases != 2 {
		t.Fatalf("live %d released %d", dev.LiveBatches(), dev.Releases)
	}
}

func TestLayer_GenerationBumps(t *testing.T) {
	m, _ := newTestManager(t, 1)
	l := m.Layer(0)
	a, b := newDot('a', 0, 0), newDot('b', 0, 0)

	steps := []struct {
		name string
		do   func()
	}{
		{"add a", func() { l.Add(a) }},
		{"add b", func() { l.Add(b) }},
		{"front", func() { l.MoveToFront(a) }},
		{"back", func() { l.MoveToBack(a) }},
		{"remove", func() { l.Remove(b) }},
		{"invalidate", func() { l.Invalidate() }},
		{"static flag", func() { a.SetStatic(true) }},
		{"static move", func() { a.SetPosition(geom.V(1, 1)) }},
	}
	for _, s := range steps {
		before := l.Generation()
		s.do()
		if l.Generation() <= before {
			t.Errorf("%s: generation %d -> %d", s.name, before, l.Generation())
		}
	}

	// Dynamic objects do not touch the generation when they move.
	a.SetStatic(false)
	before := l.Generation()
	a.SetPosition(geom.V(2, 2))
	if l.Generation() != before {
		t.Fatal("moving a dynamic object invalidated the layer")
	}
}

func TestLayer_TintAppliesToCommands(t *testing.T) {
	m, dev := newTestManager(t, 1)
	m.Layer(0).SetTint(geom.RGB(0.5, 1, 0))
	m.AddRenderObject(newDot('t', 10, 10), 0)
	render(t, m, FullRange)
	if got := dev.LastFrame()[0].Tint; got != geom.RGB(0.5, 1, 0) {
		t.Fatalf("tint %v", got)
	}
}

func TestLayer_AddTwiceWarns(t *testing.T) {
	m, _, logs := newObservedManager(t, 2)
	d := newDot('d', 0, 0)
	m.AddRenderObject(d, 0)
	m.AddRenderObject(d, 1)
	if d.Layer() != 0 || m.Layer(1).Count() != 0 {
		t.Fatalf("object moved by second add: layer %d", d.Layer())
	}
	if logs.FilterMessage("add of object already in a layer").Len() != 1 {
		t.Fatal("expected a usage warning")
	}
}

func TestLayer_FollowPosition(t *testing.T) {
	center := geom.V(0, 0)
	p := geom.V(10, 20)
	tests := []struct {
		name   string
		follow float32
		lock   FollowLock
		want   geom.Vec2
	}{
		{"no follow", NoFollowCamera, LockNone, p},
		{"zero", 0, LockNone, p},
		{"one", 1, LockNone, p},
		{"half", 0.5, LockNone, geom.V(5, 10)},
		{"half horizontal", 0.5, LockHorizontal, geom.V(5, 20)},
		{"half vertical", 0.5, LockVertical, geom.V(10, 10)},
		{"double", 2, LockNone, geom.V(20, 40)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &Layer{}
			l.followCamera, l.followLock = tt.follow, tt.lock
			if got := l.FollowPosition(p, center); got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLayer_SortKeepsTiesInSlotOrder(t *testing.T) {
	m, _ := newTestManager(t, 1)
	l := m.Layer(0)
	for _, g := range "xyz" {
		l.Add(newDot(g, 0, 5))
	}
	l.Add(newDot('a', 0, 1))
	before := l.Generation()
	l.Sort()
	if got := layerGlyphs(l); got != "axyz" {
		t.Fatalf("got %q", got)
	}
	if l.Generation() == before {
		t.Fatal("sort did not bump the generation")
	}

	before = l.Generation()
	l.Sort()
	if l.Generation() != before {
		t.Fatal("sorting a sorted layer changed the generation")
	}
}
