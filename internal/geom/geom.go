package geom

import "math"

// Vec2 is a 2D position or offset in world units.
type Vec2 struct {
	X float32
	Y float32
}

func V(x, y float32) Vec2 { return Vec2{X: x, Y: y} }

func (v Vec2) Add(o Vec2) Vec2       { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2       { return Vec2{X: v.X - o.X, Y: v.Y - o.Y} }
func (v Vec2) Scale(f float32) Vec2  { return Vec2{X: v.X * f, Y: v.Y * f} }
func (v Vec2) LenSq() float32        { return v.X*v.X + v.Y*v.Y }
func (v Vec2) Len() float32          { return float32(math.Sqrt(float64(v.LenSq()))) }
func (v Vec2) DistSq(o Vec2) float32 { return v.Sub(o).LenSq() }
func (v Vec2) IsZero() bool          { return v.X == 0 && v.Y == 0 }
func (v Vec2) Mul(o Vec2) Vec2       { return Vec2{X: v.X * o.X, Y: v.Y * o.Y} }

// Color is a linear RGB tint, each channel 0..1.
type Color struct {
	R float32 `yaml:"r" toml:"r"`
	G float32 `yaml:"g" toml:"g"`
	B float32 `yaml:"b" toml:"b"`
}

var (
	White   = Color{R: 1, G: 1, B: 1}
	Black   = Color{}
	Magenta = Color{R: 1, B: 1}
)

func RGB(r, g, b float32) Color { return Color{R: r, G: g, B: b} }

// Mul modulates c by o channel-wise.
func (c Color) Mul(o Color) Color {
	return Color{R: c.R * o.R, G: c.G * o.G, B: c.B * o.B}
}

// RGB8 returns the color clamped to 0..255 per channel.
func (c Color) RGB8() (r, g, b uint8) {
	return clamp8(c.R), clamp8(c.G), clamp8(c.B)
}

func clamp8(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}
