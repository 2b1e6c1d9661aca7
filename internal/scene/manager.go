package scene

import (
	"errors"
	"fmt"
	"time"

	"github.com/l1jgo/stage/internal/core/event"
	"github.com/l1jgo/stage/internal/device"
	"github.com/l1jgo/stage/internal/geom"
	"go.uber.org/zap"
)

var (
	ErrLayerOutOfRange = errors.New("layer index out of range")
	ErrNotInitialized  = errors.New("layers not initialized")
	ErrSweepActive     = errors.New("layer sweep in progress")
)

// AllLayers is the layer index meaning "every layer" in a Range.
const AllLayers = -1

// Range is an inclusive range of layer indices to render.
type Range struct {
	Start, End int
}

// FullRange renders every layer.
var FullRange = Range{Start: AllLayers, End: AllLayers}

func (r Range) includes(i int) bool {
	if r.Start == AllLayers || r.End == AllLayers {
		return true
	}
	return i >= r.Start && i <= r.End
}

// RemoveFlag selects what RemoveRenderObject does with the object.
type RemoveFlag int

const (
	Destroy RemoveFlag = iota
	DoNotDestroy
)

// State is where the manager is in its frame.
type State int

const (
	StateIdle State = iota
	StateUpdate
	StateBegin
	StateClear
	StateRender
	StatePresent
	StateDrain
	StateShutdown
)

var stateNames = [...]string{"idle", "update", "begin", "clear", "render", "present", "drain", "shutdown"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ResourceOwner holds device-side resources that must follow device loss,
// restore and shutdown.
type ResourceOwner interface {
	Unload()
	Reload() error
	Close() error
}

// Config holds the manager's fixed view parameters.
type Config struct {
	VirtualWidth  float32
	VirtualHeight float32
	CullRadius    float32 // 0 = half the virtual diagonal
	ClearColor    geom.Color
}

type opKind int

const (
	opSwitch opKind = iota
	opFront
	opBack
)

// deferredOp is a layer change requested while the layers involved were
// being iterated.
type deferredOp struct {
	kind opKind
	obj  Renderable
	to   int
}

// Manager owns the layers and runs the per-frame sweep. It is driven by a
// single goroutine.
type Manager struct {
	cfg Config
	dev device.Device
	bus *event.Bus
	log *zap.Logger

	layers    []*Layer
	order     []int
	culler    *Culler
	camera    geom.Vec2
	cursor    geom.Vec2
	scale     float32
	garbage   *GarbageQueue
	deferred  []deferredOp
	resources ResourceOwner

	sweeping int
	state    State
	frame    uint64
	stats    Stats
	ctx      FrameContext
}

// NewManager builds a manager drawing into dev. Layers are created by
// InitLayers.
func NewManager(cfg Config, dev device.Device, bus *event.Bus, log *zap.Logger) *Manager {
	if cfg.VirtualWidth <= 0 {
		cfg.VirtualWidth = 800
	}
	if cfg.VirtualHeight <= 0 {
		cfg.VirtualHeight = 600
	}
	half := geom.V(cfg.VirtualWidth/2, cfg.VirtualHeight/2)
	if cfg.CullRadius <= 0 {
		cfg.CullRadius = half.Len()
	}
	if bus == nil {
		bus = event.NewBus()
	}
	return &Manager{
		cfg:     cfg,
		dev:     dev,
		bus:     bus,
		log:     log,
		culler:  NewCuller(cfg.CullRadius, half),
		scale:   1,
		garbage: newGarbageQueue(),
	}
}

// InitLayers creates count empty layers in storage order. Calling it again
// discards the previous layers; their objects are detached, not destroyed.
func (m *Manager) InitLayers(count int) error {
	if count <= 0 {
		return fmt.Errorf("init layers: count %d: %w", count, ErrLayerOutOfRange)
	}
	if m.sweeping > 0 {
		return fmt.Errorf("init layers: %w", ErrSweepActive)
	}
	for _, l := range m.layers {
		l.clear()
	}
	m.layers = make([]*Layer, count)
	m.order = make([]int, count)
	for i := range m.layers {
		m.layers[i] = newLayer(i, m.dev, m.log)
		m.order[i] = i
	}
	m.log.Info("layers initialized", zap.Int("count", count))
	return nil
}

func (m *Manager) LayerCount() int        { return len(m.layers) }
func (m *Manager) Bus() *event.Bus        { return m.bus }
func (m *Manager) Device() device.Device  { return m.dev }
func (m *Manager) Culler() *Culler        { return m.culler }
func (m *Manager) Camera() geom.Vec2      { return m.camera }
func (m *Manager) Cursor() geom.Vec2      { return m.cursor }
func (m *Manager) GlobalScale() float32   { return m.scale }
func (m *Manager) Frame() uint64          { return m.frame }
func (m *Manager) State() State           { return m.state }
func (m *Manager) Stats() Stats           { return m.stats }
func (m *Manager) Garbage() *GarbageQueue { return m.garbage }
func (m *Manager) Sweeping() bool         { return m.sweeping > 0 }
func (m *Manager) SetCamera(p geom.Vec2)  { m.camera = p }
func (m *Manager) SetCursor(p geom.Vec2)  { m.cursor = p }
func (m *Manager) Order() []int           { return append([]int(nil), m.order...) }
func (m *Manager) Config() Config         { return m.cfg }

// AttachResources registers the owner of device-side resources.
func (m *Manager) AttachResources(r ResourceOwner) { m.resources = r }

// SetGlobalScale sets the zoom factor. Non-positive scales are ignored.
func (m *Manager) SetGlobalScale(s float32) {
	if s <= 0 {
		m.log.Warn("ignoring non-positive global scale", zap.Float32("scale", s))
		return
	}
	m.scale = s
}

// Layer returns layer i, or nil when i is out of range.
func (m *Manager) Layer(i int) *Layer {
	if i < 0 || i >= len(m.layers) {
		m.log.Warn("layer index out of range", zap.Int("layer", i), zap.Int("count", len(m.layers)))
		return nil
	}
	return m.layers[i]
}

func (m *Manager) checkLayer(i int) error {
	if m.layers == nil {
		return ErrNotInitialized
	}
	if i < 0 || i >= len(m.layers) {
		m.log.Warn("layer index out of range", zap.Int("layer", i), zap.Int("count", len(m.layers)))
		return fmt.Errorf("layer %d: %w", i, ErrLayerOutOfRange)
	}
	return nil
}

// SetLayerOrder sets the order layers are rendered and updated in. Entries
// of -1 are skipped; every other entry must name an existing layer.
func (m *Manager) SetLayerOrder(order []int) error {
	if m.layers == nil {
		return ErrNotInitialized
	}
	for _, i := range order {
		if i == -1 {
			continue
		}
		if i < 0 || i >= len(m.layers) {
			return fmt.Errorf("layer order entry %d: %w", i, ErrLayerOutOfRange)
		}
	}
	m.order = append(m.order[:0:0], order...)
	return nil
}

// AddRenderObject places r in layer. An object already in a layer is left
// where it is.
func (m *Manager) AddRenderObject(r Renderable, layer int) error {
	if err := m.checkLayer(layer); err != nil {
		return err
	}
	if r.Base().destroyed {
		m.log.Warn("add of destroyed object", zap.Int("layer", layer))
		return nil
	}
	m.layers[layer].Add(r)
	return nil
}

// RemoveRenderObject takes r out of its layer. With Destroy the object is
// destroyed too; during a sweep that happens at the next garbage drain and
// the object stays in its layer until then.
func (m *Manager) RemoveRenderObject(r Renderable, flag RemoveFlag) {
	o := r.Base()
	if flag == Destroy {
		if m.sweeping > 0 {
			m.EnqueueRenderObjectDeletion(r)
			return
		}
		if o.owner != nil {
			o.owner.Remove(r)
		} else if !o.destroyed && !o.pending {
			m.log.Warn("remove of object not in any layer")
		}
		m.destroy(r, LayerNone)
		return
	}
	if o.owner == nil {
		m.log.Warn("remove of object not in any layer", zap.Int("slot", o.slot))
		return
	}
	o.owner.Remove(r)
}

// EnqueueRenderObjectDeletion marks r for destruction at the next garbage
// drain. r keeps its slot until then. Enqueuing twice is a no-op.
func (m *Manager) EnqueueRenderObjectDeletion(r Renderable) {
	o := r.Base()
	if o.destroyed {
		m.log.Warn("enqueue of destroyed object")
		return
	}
	if !m.garbage.Enqueue(r) {
		m.log.Debug("object already queued for deletion", zap.Int("layer", o.layer))
		return
	}
	o.pending = true
}

// SwitchRenderObjectLayer moves r to layer to, keeping its other state. If
// either layer is being iterated the move is queued until the next garbage
// drain.
func (m *Manager) SwitchRenderObjectLayer(r Renderable, to int) error {
	if err := m.checkLayer(to); err != nil {
		return err
	}
	o := r.Base()
	if o.owner == nil {
		m.log.Warn("switch of object not in any layer", zap.Int("to", to))
		return nil
	}
	if o.owner.Iterating() || m.layers[to].Iterating() {
		m.deferred = append(m.deferred, deferredOp{kind: opSwitch, obj: r, to: to})
		return nil
	}
	m.switchLayer(r, to)
	return nil
}

func (m *Manager) switchLayer(r Renderable, to int) {
	o := r.Base()
	from := o.layer
	if from == to || o.owner == nil {
		return
	}
	o.owner.Remove(r)
	m.layers[to].Add(r)
	event.Emit(m.bus, LayerSwitched{Object: r, From: from, To: to})
}

// MoveToFront makes r draw on top of its layer. Deferred while the layer is
// being iterated.
func (m *Manager) MoveToFront(r Renderable) {
	m.reorder(r, opFront)
}

// MoveToBack makes r draw below everything else in its layer. Deferred
// while the layer is being iterated.
func (m *Manager) MoveToBack(r Renderable) {
	m.reorder(r, opBack)
}

func (m *Manager) reorder(r Renderable, kind opKind) {
	l := r.Base().owner
	if l == nil {
		m.log.Warn("reorder of object not in any layer")
		return
	}
	if l.Iterating() {
		m.deferred = append(m.deferred, deferredOp{kind: kind, obj: r})
		return
	}
	if kind == opFront {
		l.MoveToFront(r)
	} else {
		l.MoveToBack(r)
	}
}

// ClearGarbage applies queued layer changes and then destroys every queued
// object. It must not run while any layer is being iterated.
func (m *Manager) ClearGarbage() error {
	if m.sweeping > 0 {
		return ErrSweepActive
	}
	prev := m.state
	m.state = StateDrain
	defer func() { m.state = prev }()

	ops := m.deferred
	m.deferred = nil
	for _, op := range ops {
		o := op.obj.Base()
		if o.destroyed || o.owner == nil {
			continue
		}
		switch op.kind {
		case opSwitch:
			m.switchLayer(op.obj, op.to)
		case opFront:
			o.owner.MoveToFront(op.obj)
		case opBack:
			o.owner.MoveToBack(op.obj)
		}
	}

	items := m.garbage.Drain()
	for _, r := range items {
		o := r.Base()
		layer := o.layer
		if o.owner != nil {
			o.owner.Remove(r)
		}
		m.destroy(r, layer)
	}
	if len(items) > 0 {
		m.log.Debug("garbage drained", zap.Int("objects", len(items)), zap.Uint64("frame", m.frame))
	}
	return nil
}

func (m *Manager) destroy(r Renderable, layer int) {
	o := r.Base()
	o.pending = false
	if o.destroyed {
		return
	}
	o.destroyed = true
	if d, ok := r.(Destroyer); ok {
		d.Destroy()
	}
	event.Emit(m.bus, ObjectDestroyed{Object: r, Layer: layer})
}

// UpdateRenderObjects runs Update on every live object of every layer with
// updates enabled, in layer order. Objects awaiting destruction are skipped.
func (m *Manager) UpdateRenderObjects(dt time.Duration) {
	if m.layers == nil {
		return
	}
	m.state = StateUpdate
	m.sweeping++
	defer func() {
		m.sweeping--
		m.state = StateIdle
	}()

	ctx := m.frameContext(dt)
	for _, idx := range m.order {
		if idx < 0 {
			continue
		}
		l := m.layers[idx]
		if !l.update {
			continue
		}
		ctx.Layer = l
		l.open++
		cur := l.objects.Iter()
		for r, ok := cur.Next(); ok; r, ok = cur.Next() {
			if r.Base().pending {
				continue
			}
			r.Update(ctx)
		}
		l.open--
	}
	ctx.Layer = nil
}

func (m *Manager) frameContext(dt time.Duration) *FrameContext {
	m.ctx = FrameContext{
		Scene:  m,
		Log:    m.log,
		DT:     dt,
		Frame:  m.frame,
		Camera: m.camera,
		Cursor: m.cursor,
		stats:  &m.stats,
		culler: m.culler,
	}
	return &m.ctx
}

// Render runs one frame: begin, clear, every visible layer in rng walking
// its passes, present, then the garbage drain. A lost device is restored
// in place; failure to restore is returned and is fatal.
func (m *Manager) Render(rng Range) error {
	if m.layers == nil {
		return ErrNotInitialized
	}
	if m.sweeping > 0 {
		return fmt.Errorf("render: %w", ErrSweepActive)
	}

	m.state = StateBegin
	m.culler.Update(m.camera, m.scale)
	for _, l := range m.layers {
		if l.mode == ModeSorted {
			l.Sort()
		}
	}
	if err := m.beginFrame(); err != nil {
		m.state = StateIdle
		return err
	}
	m.dev.SetView(device.View{Origin: m.camera, Scale: m.scale})

	m.state = StateClear
	m.dev.Clear(m.cfg.ClearColor)

	m.state = StateRender
	m.stats = Stats{}
	ctx := m.frameContext(0)
	m.sweeping++
	for _, idx := range m.order {
		if idx < 0 || !rng.includes(idx) {
			continue
		}
		l := m.layers[idx]
		if !l.visible {
			continue
		}
		m.stats.Layers++
		for pass := l.startPass; pass <= l.endPass; pass++ {
			m.stats.Passes++
			l.renderPass(ctx, pass)
		}
	}
	m.sweeping--
	ctx.Layer, ctx.Pass = nil, 0

	m.state = StatePresent
	if err := m.dev.Present(); err != nil {
		m.state = StateIdle
		return fmt.Errorf("present: %w", err)
	}

	if err := m.ClearGarbage(); err != nil {
		return err
	}
	m.frame++
	m.state = StateIdle
	return nil
}

func (m *Manager) beginFrame() error {
	err := m.dev.BeginFrame()
	if !errors.Is(err, device.ErrDeviceLost) {
		if err != nil {
			return fmt.Errorf("begin frame: %w", err)
		}
		return nil
	}
	m.log.Warn("render device lost", zap.Uint64("frame", m.frame))
	m.DeviceLost()
	if err := m.RestoreDevice(); err != nil {
		return fmt.Errorf("restore device: %w", err)
	}
	if err := m.dev.BeginFrame(); err != nil {
		return fmt.Errorf("begin frame after restore: %w", err)
	}
	return nil
}

// Step updates every object and renders rng.
func (m *Manager) Step(dt time.Duration, rng Range) error {
	m.UpdateRenderObjects(dt)
	return m.Render(rng)
}

// DeviceLost drops every compiled batch and unloads device-side resources.
// The batch handles are not released; they died with the device.
func (m *Manager) DeviceLost() {
	for _, l := range m.layers {
		l.ReloadDevice()
	}
	if m.resources != nil {
		m.resources.Unload()
	}
}

// RestoreDevice reloads device-side resources after a loss. Compiled
// batches are rebuilt lazily by the next render.
func (m *Manager) RestoreDevice() error {
	if m.resources != nil {
		if err := m.resources.Reload(); err != nil {
			m.log.Error("reload resources failed", zap.Error(err))
			return err
		}
	}
	event.Emit(m.bus, DeviceReset{Frame: m.frame})
	m.log.Info("render device restored", zap.Uint64("frame", m.frame))
	return nil
}

// ClearRenderObjects queues every object of every layer for destruction.
func (m *Manager) ClearRenderObjects() {
	for _, l := range m.layers {
		for _, r := range l.Objects() {
			m.EnqueueRenderObjectDeletion(r)
		}
	}
}

// Shutdown destroys every object, releases compiled batches and resources,
// and closes the device. It runs to the end even when steps fail.
func (m *Manager) Shutdown() error {
	if m.sweeping > 0 {
		return fmt.Errorf("shutdown: %w", ErrSweepActive)
	}
	m.state = StateShutdown
	m.ClearRenderObjects()
	var errs []error
	if err := m.ClearGarbage(); err != nil {
		errs = append(errs, fmt.Errorf("clear garbage: %w", err))
	}
	for _, l := range m.layers {
		l.purge(true)
	}
	if m.resources != nil {
		if err := m.resources.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close resources: %w", err))
		}
	}
	if err := m.dev.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close device: %w", err))
	}
	m.log.Info("scene shut down", zap.Uint64("frames", m.frame))
	return errors.Join(errs...)
}
