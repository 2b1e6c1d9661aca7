package system

import (
	"time"

	"github.com/l1jgo/stage/internal/core/event"
	coresys "github.com/l1jgo/stage/internal/core/system"
)

// EventSystem delivers the events emitted during the previous frame.
// Phase 1 (Events).
type EventSystem struct {
	bus *event.Bus
}

func NewEventSystem(bus *event.Bus) *EventSystem {
	return &EventSystem{bus: bus}
}

func (s *EventSystem) Phase() coresys.Phase { return coresys.PhaseEvents }

func (s *EventSystem) Update(_ time.Duration) error {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
	return nil
}
