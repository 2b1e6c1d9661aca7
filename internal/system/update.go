package system

import (
	"time"

	coresys "github.com/l1jgo/stage/internal/core/system"
	"github.com/l1jgo/stage/internal/scene"
)

// UpdateSystem steps every live render object. Phase 2 (Update).
type UpdateSystem struct {
	scene *scene.Manager
}

func NewUpdateSystem(m *scene.Manager) *UpdateSystem {
	return &UpdateSystem{scene: m}
}

func (s *UpdateSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *UpdateSystem) Update(dt time.Duration) error {
	s.scene.UpdateRenderObjects(dt)
	return nil
}
