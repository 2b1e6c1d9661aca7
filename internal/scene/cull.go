package scene

import "github.com/l1jgo/stage/internal/geom"

// Culler decides whether an object is close enough to the camera to draw.
// The test is a circle around the view center grown by the object's radius.
type Culler struct {
	base   float32
	offset geom.Vec2

	center geom.Vec2
	radius float32
	sqr    float32
}

// NewCuller returns a culler with the given radius at scale 1. offset is
// the distance from the camera position to the view center.
func NewCuller(base float32, offset geom.Vec2) *Culler {
	c := &Culler{base: base, offset: offset}
	c.Update(geom.Vec2{}, 1)
	return c
}

// Update recomputes the cull circle for camera and global scale. A smaller
// scale shows more of the world, so the circle grows by 1/scale.
func (c *Culler) Update(camera geom.Vec2, scale float32) {
	inv := float32(1)
	if scale > 0 {
		inv = 1 / scale
	}
	c.center = camera.Add(c.offset.Scale(inv))
	c.radius = c.base * inv
	c.sqr = c.radius * c.radius
}

// InRange reports whether a circle at p with the given radius touches the
// cull circle. Touching counts as in range.
func (c *Culler) InRange(p geom.Vec2, radius float32) bool {
	r := c.radius + radius
	return p.DistSq(c.center) <= r*r
}

func (c *Culler) Center() geom.Vec2  { return c.center }
func (c *Culler) Radius() float32    { return c.radius }
func (c *Culler) RadiusSqr() float32 { return c.sqr }
