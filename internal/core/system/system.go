package system

import "time"

// Phase defines execution ordering within a single frame.
type Phase int

const (
	PhaseInput   Phase = iota // 0: read camera and cursor
	PhaseEvents               // 1: dispatch last frame's events
	PhaseUpdate               // 2: per-object update step
	PhaseRender               // 3: clear, layer sweep, present
	PhaseCleanup              // 4: drain garbage, sync decoded assets
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhaseEvents:
		return "events"
	case PhaseUpdate:
		return "update"
	case PhaseRender:
		return "render"
	case PhaseCleanup:
		return "cleanup"
	}
	return "unknown"
}

// System is the interface every frame system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration) error
}
