package object

import (
	"github.com/l1jgo/stage/internal/asset"
	"github.com/l1jgo/stage/internal/scene"
	"go.uber.org/zap"
)

// Behavior drives a Scripted object once per update.
type Behavior interface {
	Name() string
	Step(self *Scripted, ctx *scene.FrameContext) error
}

// Scripted is a sprite whose Update runs a behavior. A behavior that fails
// is logged and disabled; the object keeps drawing.
type Scripted struct {
	Sprite
	behavior Behavior
	disabled bool
}

func NewScripted(cache *asset.Cache, opts SpriteOptions, b Behavior) *Scripted {
	return &Scripted{Sprite: *NewSprite(cache, opts), behavior: b}
}

func (s *Scripted) Behavior() Behavior { return s.behavior }
func (s *Scripted) Disabled() bool     { return s.disabled }

func (s *Scripted) Update(ctx *scene.FrameContext) {
	if s.behavior == nil || s.disabled {
		return
	}
	if err := s.behavior.Step(s, ctx); err != nil {
		s.disabled = true
		ctx.Log.Error("behavior failed, disabled",
			zap.String("behavior", s.behavior.Name()),
			zap.Int("layer", s.Layer()),
			zap.Error(err))
	}
}
