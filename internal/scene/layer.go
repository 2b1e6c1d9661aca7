package scene

import (
	"sort"

	"github.com/l1jgo/stage/internal/core/slot"
	"github.com/l1jgo/stage/internal/device"
	"github.com/l1jgo/stage/internal/geom"
	"go.uber.org/zap"
)

// NoFollowCamera is the follow factor of a layer without parallax.
const NoFollowCamera float32 = -999

// Mode selects how a layer orders its objects.
type Mode int

const (
	ModeUnordered Mode = iota // insertion/slot order
	ModeSorted                // re-sorted by Y at frame begin
)

// FollowLock restricts parallax to one axis.
type FollowLock int

const (
	LockNone FollowLock = iota
	LockHorizontal
	LockVertical
)

// Layer is one addressable bucket of renderables with its own visibility,
// pass range, culling, parallax and tint.
// Accessed only from the frame loop goroutine, no locks.
type Layer struct {
	index   int
	log     *zap.Logger
	dev     device.Device
	objects *slot.Store[Renderable]

	mode         Mode
	visible      bool
	startPass    int
	endPass      int
	followCamera float32
	followLock   FollowLock
	cull         bool
	update       bool
	tint         geom.Color

	optimizeStatic bool
	revision       uint64
	lists          map[int]*drawList
	open           int // iterations currently in progress
	rec            Recorder
}

func newLayer(index int, dev device.Device, log *zap.Logger) *Layer {
	return &Layer{
		index:        index,
		log:          log,
		dev:          dev,
		objects:      slot.NewStore[Renderable](64),
		visible:      true,
		followCamera: NoFollowCamera,
		cull:         true,
		update:       true,
		tint:         geom.White,
		lists:        make(map[int]*drawList),
	}
}

func (l *Layer) Index() int               { return l.index }
func (l *Layer) Mode() Mode               { return l.mode }
func (l *Layer) Visible() bool            { return l.visible }
func (l *Layer) Passes() (start, end int) { return l.startPass, l.endPass }
func (l *Layer) FollowCamera() float32    { return l.followCamera }
func (l *Layer) FollowLock() FollowLock   { return l.followLock }
func (l *Layer) Cull() bool               { return l.cull }
func (l *Layer) UpdateEnabled() bool      { return l.update }
func (l *Layer) Tint() geom.Color         { return l.tint }
func (l *Layer) OptimizeStatic() bool     { return l.optimizeStatic }
func (l *Layer) Count() int               { return l.objects.Len() }
func (l *Layer) Empty() bool              { return l.objects.Empty() }
func (l *Layer) Iterating() bool          { return l.open > 0 }

func (l *Layer) SetVisible(v bool)       { l.visible = v }
func (l *Layer) SetUpdateEnabled(u bool) { l.update = u }

func (l *Layer) SetMode(m Mode) {
	l.mode = m
}

// SetPasses sets the inclusive pass range walked on every render.
func (l *Layer) SetPasses(start, end int) {
	if end < start {
		start, end = end, start
	}
	l.startPass, l.endPass = start, end
	l.purge(true)
}

// SetFollowCamera sets the parallax factor. NoFollowCamera or any factor
// <= 0 disables parallax.
func (l *Layer) SetFollowCamera(f float32, lock FollowLock) {
	l.followCamera, l.followLock = f, lock
	l.Invalidate()
}

func (l *Layer) SetCull(c bool) {
	if l.cull == c {
		return
	}
	l.cull = c
	l.Invalidate()
}

func (l *Layer) SetTint(c geom.Color) {
	l.tint = c
	l.Invalidate()
}

// SetOptimizeStatic enables the compiled draw-list cache. Turning it off
// releases every compiled batch.
func (l *Layer) SetOptimizeStatic(opt bool) {
	if l.optimizeStatic == opt {
		return
	}
	l.optimizeStatic = opt
	if !opt {
		l.purge(true)
	}
}

// Generation changes whenever the layer's contents or settings change in a
// way that makes compiled batches stale.
func (l *Layer) Generation() uint64 {
	return l.objects.Generation() + l.revision
}

// Invalidate marks every compiled draw list stale. They are rebuilt lazily
// on the next render that needs them.
func (l *Layer) Invalidate() { l.revision++ }

// Add stores r in the lowest free slot. An object already in a layer is
// left alone.
func (l *Layer) Add(r Renderable) bool {
	o := r.Base()
	if o.owner != nil {
		l.log.Warn("add of object already in a layer",
			zap.Int("layer", l.index), zap.Int("current_layer", o.layer))
		return false
	}
	o.attach(l, l.index)
	l.objects.Add(r)
	return true
}

// Remove turns r's slot into a hole. Removing an object that is not here is
// a logged no-op.
func (l *Layer) Remove(r Renderable) bool {
	if !l.objects.Remove(r) {
		l.log.Warn("remove of object not in layer",
			zap.Int("layer", l.index), zap.Int("object_layer", r.Base().layer),
			zap.Int("slot", r.SlotIndex()))
		return false
	}
	r.Base().detach()
	return true
}

// Contains reports whether r occupies a slot of this layer.
func (l *Layer) Contains(r Renderable) bool { return l.objects.Contains(r) }

// MoveToFront makes r draw after every other object of the layer.
func (l *Layer) MoveToFront(r Renderable) bool {
	if !l.objects.MoveToFront(r) {
		l.log.Warn("move to front of object not in layer", zap.Int("layer", l.index))
		return false
	}
	return true
}

// MoveToBack makes r draw before every other object of the layer.
func (l *Layer) MoveToBack(r Renderable) bool {
	if !l.objects.MoveToBack(r) {
		l.log.Warn("move to back of object not in layer", zap.Int("layer", l.index))
		return false
	}
	return true
}

// Sort orders the layer by Y, ties kept in slot order, and packs out the
// holes. Nothing changes when the layer is already sorted and dense.
func (l *Layer) Sort() {
	live := l.objects.Live(nil)
	dense := len(live) == l.objects.Cap()
	sorted := sort.SliceIsSorted(live, func(i, j int) bool {
		return live[i].Base().pos.Y < live[j].Base().pos.Y
	})
	if dense && sorted {
		return
	}
	sort.SliceStable(live, func(i, j int) bool {
		return live[i].Base().pos.Y < live[j].Base().pos.Y
	})
	l.objects.Compact(live)
}

// First rewinds the layer cursor and returns the first live object.
func (l *Layer) First() Renderable {
	r, _ := l.objects.First()
	return r
}

// Next returns the live object after the last one returned, or nil.
func (l *Layer) Next() Renderable {
	r, _ := l.objects.Next()
	return r
}

// Objects returns the live objects in slot order.
func (l *Layer) Objects() []Renderable {
	return l.objects.Live(nil)
}

// FollowPosition applies the layer's parallax to p around center.
func (l *Layer) FollowPosition(p, center geom.Vec2) geom.Vec2 {
	f := l.followCamera
	if f <= 0 {
		return p
	}
	d := p.Sub(center)
	switch l.followLock {
	case LockHorizontal:
		return geom.V(center.X+d.X*f, p.Y)
	case LockVertical:
		return geom.V(p.X, center.Y+d.Y*f)
	}
	return center.Add(d.Scale(f))
}

func (l *Layer) followsCamera() bool {
	return l.followCamera > 0 && l.followCamera != 1
}

// cacheable reports whether passes of this layer go through the compiled
// draw-list cache. Parallax layers move every frame and never do.
func (l *Layer) cacheable() bool {
	return l.optimizeStatic && !l.followsCamera()
}

// staticCompatible is the rule for folding an object into a batch: the
// object is marked static and the layer does not cull. Culled objects stay
// per-object so the culler sees them every frame.
func (l *Layer) staticCompatible(o *Object) bool {
	return o.static && !l.cull
}

// ReloadDevice drops every compiled list without releasing it; the handles
// died with the device.
func (l *Layer) ReloadDevice() {
	l.purge(false)
}

func (l *Layer) purge(release bool) {
	for pass, dl := range l.lists {
		if release {
			dl.release(l.dev)
		}
		delete(l.lists, pass)
	}
}

// CachedPasses returns how many passes currently hold a compiled list.
func (l *Layer) CachedPasses() int { return len(l.lists) }

func (l *Layer) clear() {
	for _, r := range l.objects.Live(nil) {
		r.Base().detach()
	}
	l.objects.Clear()
	l.purge(true)
}

// renderPass draws every object of the layer that belongs to pass.
func (l *Layer) renderPass(ctx *FrameContext, pass int) {
	ctx.Layer, ctx.Pass = l, pass
	l.open++
	defer func() { l.open-- }()

	if !l.cacheable() {
		cur := l.objects.Iter()
		for r, ok := cur.Next(); ok; r, ok = cur.Next() {
			l.renderOne(ctx, r)
		}
		return
	}

	if dl := l.lists[pass]; dl != nil && dl.generation == l.Generation() {
		ctx.stats.CacheHits++
		l.replay(ctx, dl)
		return
	}
	l.rebuild(ctx, pass)
}

// replay draws a valid compiled list. If the layer changes mid-replay the
// remaining batches fall back to drawing their live objects one by one.
func (l *Layer) replay(ctx *FrameContext, dl *drawList) {
	gen := dl.generation
	for _, el := range dl.elements {
		switch e := el.(type) {
		case batchElement:
			if l.Generation() == gen {
				l.dev.Submit(e.batch)
				ctx.stats.Total += len(e.objs)
				ctx.stats.Processed += len(e.objs)
				ctx.stats.Rendered += len(e.objs)
				continue
			}
			for _, r := range e.objs {
				if l.objects.Contains(r) {
					l.renderOne(ctx, r)
				}
			}
		case objectElement:
			if l.objects.Contains(e.obj) {
				l.renderOne(ctx, e.obj)
			}
		}
	}
}

// rebuild performs a live traversal that draws the pass and records a new
// compiled list for the next frame.
func (l *Layer) rebuild(ctx *FrameContext, pass int) {
	if old := l.lists[pass]; old != nil {
		old.release(l.dev)
	}
	ctx.stats.CacheRebuilds++
	b := listBuilder{
		dev:  l.dev,
		log:  l.log,
		list: &drawList{generation: l.Generation()},
	}
	cur := l.objects.Iter()
	for r, ok := cur.Next(); ok; r, ok = cur.Next() {
		o := r.Base()
		if !l.staticCompatible(o) {
			b.addObject(r)
			l.renderOne(ctx, r)
			continue
		}
		ctx.stats.Total++
		if !o.visible || !o.drawsIn(pass) {
			continue
		}
		ctx.stats.Processed++
		cmds := l.record(ctx, r)
		l.dev.Draw(cmds)
		ctx.stats.Rendered++
		b.addStatic(r, cmds)
	}
	l.lists[pass] = b.finish()
	l.log.Debug("rebuilt draw list",
		zap.Int("layer", l.index), zap.Int("pass", pass),
		zap.Int("elements", len(l.lists[pass].elements)))
}

// renderOne applies the visibility, pass and cull tests and draws r.
func (l *Layer) renderOne(ctx *FrameContext, r Renderable) {
	ctx.stats.Total++
	o := r.Base()
	if !o.visible || !o.drawsIn(ctx.Pass) {
		return
	}
	ctx.stats.Processed++
	if l.cull && !ctx.culler.InRange(l.FollowPosition(o.pos, ctx.culler.Center()), o.radius) {
		return
	}
	l.dev.Draw(l.record(ctx, r))
	ctx.stats.Rendered++
}

func (l *Layer) record(ctx *FrameContext, r Renderable) []device.Command {
	l.rec.reset()
	r.Render(ctx, &l.rec)
	if l.tint != geom.White {
		for i := range l.rec.cmds {
			l.rec.cmds[i].Tint = l.rec.cmds[i].Tint.Mul(l.tint)
		}
	}
	return l.rec.cmds
}
