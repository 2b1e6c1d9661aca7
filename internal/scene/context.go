package scene

import (
	"time"

	"github.com/l1jgo/stage/internal/geom"
	"go.uber.org/zap"
)

// FrameContext is handed to every Update and Render call. It replaces any
// global engine state: everything an object may need about the current
// frame is reachable from here.
type FrameContext struct {
	Scene  *Manager
	Log    *zap.Logger
	DT     time.Duration
	Frame  uint64
	Camera geom.Vec2
	Cursor geom.Vec2

	// Layer and Pass being walked. Pass is zero during updates.
	Layer *Layer
	Pass  int

	stats  *Stats
	culler *Culler
}

// DrawPosition returns where p should be drawn on the current layer, with
// the layer's parallax applied.
func (c *FrameContext) DrawPosition(p geom.Vec2) geom.Vec2 {
	if c.Layer == nil || c.culler == nil {
		return p
	}
	return c.Layer.FollowPosition(p, c.culler.Center())
}

// Culler returns the frame's cull parameters.
func (c *FrameContext) Culler() *Culler { return c.culler }

// Stats counts objects seen during one render.
type Stats struct {
	Total         int // objects walked
	Processed     int // visible and in the pass
	Rendered      int // drawn after culling
	CacheHits     int
	CacheRebuilds int
	Layers        int
	Passes        int
}
