package object

import (
	"github.com/l1jgo/stage/internal/asset"
	"github.com/l1jgo/stage/internal/device"
	"github.com/l1jgo/stage/internal/geom"
	"github.com/l1jgo/stage/internal/scene"
)

// Sprite draws one textured quad. Its color is the texture's average color
// times its own tint.
type Sprite struct {
	scene.Object
	cache *asset.Cache
	tex   *asset.Texture
	glyph rune
	size  geom.Vec2
	tint  geom.Color
	alpha float32
}

// SpriteOptions describe a sprite at creation.
type SpriteOptions struct {
	Texture string
	Glyph   rune
	Pos     geom.Vec2
	Size    geom.Vec2
	Radius  float32
	Static  bool
	Pass    int
}

// NewSprite takes a hold on the texture in cache. The hold is released
// when the scene destroys the sprite.
func NewSprite(cache *asset.Cache, opts SpriteOptions) *Sprite {
	s := &Sprite{
		Object: scene.NewObject(opts.Pos),
		cache:  cache,
		glyph:  opts.Glyph,
		size:   opts.Size,
		tint:   geom.White,
		alpha:  1,
	}
	if cache != nil && opts.Texture != "" {
		s.tex = cache.Add(opts.Texture)
	}
	if s.size.IsZero() {
		s.size = geom.V(1, 1)
	}
	radius := opts.Radius
	if radius == 0 {
		radius = s.size.Len() / 2
	}
	s.SetRadius(radius)
	s.SetPass(opts.Pass)
	s.SetStatic(opts.Static)
	return s
}

func (s *Sprite) Texture() *asset.Texture { return s.tex }
func (s *Sprite) Glyph() rune             { return s.glyph }
func (s *Sprite) Size() geom.Vec2         { return s.size }
func (s *Sprite) Tint() geom.Color        { return s.tint }
func (s *Sprite) Alpha() float32          { return s.alpha }

func (s *Sprite) SetTint(c geom.Color) {
	s.tint = c
	if s.Static() && s.Owner() != nil {
		s.Owner().Invalidate()
	}
}

func (s *Sprite) SetAlpha(a float32) {
	s.alpha = a
	if s.Static() && s.Owner() != nil {
		s.Owner().Invalidate()
	}
}

func (s *Sprite) Update(*scene.FrameContext) {}

func (s *Sprite) Render(ctx *scene.FrameContext, rec *scene.Recorder) {
	cmd := device.Command{
		Glyph: s.glyph,
		Pos:   ctx.DrawPosition(s.Position()),
		Size:  s.size,
		Tint:  s.tint,
		Alpha: s.alpha,
	}
	if s.tex != nil {
		cmd.Texture = s.tex.ID()
		cmd.Tint = s.tex.Color().Mul(s.tint)
	}
	rec.Draw(cmd)
}

// Destroy releases the texture hold.
func (s *Sprite) Destroy() {
	if s.tex != nil && s.cache != nil {
		s.cache.Remove(s.tex)
		s.tex = nil
	}
}
