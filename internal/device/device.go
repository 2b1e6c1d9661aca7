// Package device is the boundary to the graphics backend. The scene core
// only ever talks to a Device; window and context creation live behind it.
package device

import (
	"errors"

	"github.com/l1jgo/stage/internal/geom"
)

// ErrDeviceLost is returned by BeginFrame when the backend lost its context.
// Every compiled Batch is invalid after it.
var ErrDeviceLost = errors.New("device lost")

// Command is one tinted quad in world coordinates.
type Command struct {
	Texture uint32 // asset id, 0 = untextured
	Glyph   rune   // fallback for character backends
	Pos     geom.Vec2
	Size    geom.Vec2
	Tint    geom.Color
	Alpha   float32
}

// Batch is an opaque handle to a compiled run of commands.
type Batch uint32

// View maps world coordinates to the screen: screen = (world - Origin) * Scale.
type View struct {
	Origin geom.Vec2
	Scale  float32
}

// Project maps a world position through the view.
func (v View) Project(p geom.Vec2) geom.Vec2 {
	s := v.Scale
	if s == 0 {
		s = 1
	}
	return p.Sub(v.Origin).Scale(s)
}

// Device is the graphics collaborator driven once per frame:
// BeginFrame, Clear, SetView, any number of Draw/Submit, Present.
type Device interface {
	BeginFrame() error
	Clear(c geom.Color)
	SetView(v View)
	// Draw renders commands immediately.
	Draw(cmds []Command)
	// Compile turns commands into a reusable batch.
	Compile(cmds []Command) (Batch, error)
	Submit(b Batch)
	Release(b Batch)
	Present() error
	Close() error
}
