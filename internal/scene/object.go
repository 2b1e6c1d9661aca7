package scene

import (
	"github.com/l1jgo/stage/internal/core/slot"
	"github.com/l1jgo/stage/internal/device"
	"github.com/l1jgo/stage/internal/geom"
)

// LayerNone is the layer of an object that is not in any layer.
const LayerNone = -1

// PassAll makes an object draw in every pass of its layer.
const PassAll = -1

// Renderable is anything the scene can hold. Concrete types embed Object,
// which supplies Base and the slot back-index; they only implement Update
// and Render.
type Renderable interface {
	Base() *Object
	SlotIndex() int
	SetSlotIndex(idx int)
	Update(ctx *FrameContext)
	Render(ctx *FrameContext, rec *Recorder)
}

// Destroyer is implemented by renderables holding resources that must be
// released when the scene destroys them.
type Destroyer interface {
	Destroy()
}

// Object is the scene-visible state of a renderable.
type Object struct {
	pos     geom.Vec2
	radius  float32
	pass    int
	visible bool
	static  bool

	layer     int
	slot      int
	owner     *Layer
	pending   bool // queued for destruction
	destroyed bool
}

// NewObject returns a visible, non-static object at pos in no layer.
func NewObject(pos geom.Vec2) Object {
	return Object{
		pos:     pos,
		visible: true,
		layer:   LayerNone,
		slot:    slot.None,
	}
}

func (o *Object) Base() *Object          { return o }
func (o *Object) SlotIndex() int         { return o.slot }
func (o *Object) SetSlotIndex(idx int)   { o.slot = idx }
func (o *Object) Position() geom.Vec2    { return o.pos }
func (o *Object) Radius() float32        { return o.radius }
func (o *Object) Pass() int              { return o.pass }
func (o *Object) Visible() bool          { return o.visible }
func (o *Object) Static() bool           { return o.static }
func (o *Object) Layer() int             { return o.layer }
func (o *Object) DestroyPending() bool   { return o.pending }
func (o *Object) Destroyed() bool        { return o.destroyed }
func (o *Object) InLayer() bool          { return o.owner != nil }
func (o *Object) Owner() *Layer          { return o.owner }
func (o *Object) drawsIn(pass int) bool  { return o.pass == PassAll || o.pass == pass }
func (o *Object) batchable() bool        { return o.static && o.owner != nil }
func (o *Object) attach(l *Layer, i int) { o.owner, o.layer = l, i }
func (o *Object) detach()                { o.owner, o.layer = nil, LayerNone }

// SetPosition moves the object. Static objects invalidate their layer's
// compiled batches.
func (o *Object) SetPosition(p geom.Vec2) {
	if o.pos == p {
		return
	}
	o.pos = p
	o.invalidate()
}

// SetRadius sets the object's extent added to the cull radius.
func (o *Object) SetRadius(r float32) {
	o.radius = r
}

func (o *Object) SetPass(pass int) {
	if o.pass == pass {
		return
	}
	o.pass = pass
	o.invalidate()
}

func (o *Object) SetVisible(v bool) {
	if o.visible == v {
		return
	}
	o.visible = v
	o.invalidate()
}

// SetStatic marks the object as never changing between explicit setter
// calls, which lets its layer fold it into a compiled batch.
func (o *Object) SetStatic(s bool) {
	if o.static == s {
		return
	}
	o.static = s
	if o.owner != nil {
		o.owner.Invalidate()
	}
}

func (o *Object) invalidate() {
	if o.batchable() {
		o.owner.Invalidate()
	}
}

// Recorder collects the draw commands of one object.
type Recorder struct {
	cmds []device.Command
}

// Draw appends a command.
func (r *Recorder) Draw(cmd device.Command) {
	r.cmds = append(r.cmds, cmd)
}

// Len returns how many commands were recorded.
func (r *Recorder) Len() int { return len(r.cmds) }

func (r *Recorder) reset() { r.cmds = r.cmds[:0] }
