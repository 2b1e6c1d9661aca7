package system

import (
	"time"

	coresys "github.com/l1jgo/stage/internal/core/system"
	"github.com/l1jgo/stage/internal/geom"
	"github.com/l1jgo/stage/internal/scene"
)

// InputSource is polled once per frame for the camera and cursor.
type InputSource interface {
	Poll()
	Camera() geom.Vec2
	Cursor() geom.Vec2
	Quit() bool
}

// InputSystem copies the polled camera and cursor into the scene.
// Phase 0 (Input).
type InputSystem struct {
	scene  *scene.Manager
	source InputSource
}

func NewInputSystem(m *scene.Manager, source InputSource) *InputSystem {
	return &InputSystem{scene: m, source: source}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InputSystem) Update(_ time.Duration) error {
	s.source.Poll()
	s.scene.SetCamera(s.source.Camera())
	s.scene.SetCursor(s.source.Cursor())
	return nil
}

// QuitRequested reports whether the source asked to stop.
func (s *InputSystem) QuitRequested() bool { return s.source.Quit() }
