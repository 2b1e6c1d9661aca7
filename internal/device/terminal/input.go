package terminal

import (
	"github.com/gdamore/tcell/v2"
	"github.com/l1jgo/stage/internal/geom"
)

// Input turns tcell key and mouse events into a camera position and a cursor
// position. Events are pumped by tcell on its own goroutine into a channel;
// Poll drains that channel on the frame loop goroutine.
type Input struct {
	dev    *Device
	events chan tcell.Event
	stop   chan struct{}

	camera geom.Vec2
	cursor geom.Vec2
	step   float32
	quit   bool
}

// NewInput starts pumping events from the device's screen.
func NewInput(dev *Device, step float32) *Input {
	in := &Input{
		dev:    dev,
		events: make(chan tcell.Event, 64),
		stop:   make(chan struct{}),
		step:   step,
	}
	dev.screen.EnableMouse()
	go dev.screen.ChannelEvents(in.events, in.stop)
	return in
}

// Poll applies every queued event without blocking.
func (in *Input) Poll() {
	for {
		select {
		case ev, ok := <-in.events:
			if !ok {
				in.quit = true
				return
			}
			in.apply(ev)
		default:
			return
		}
	}
}

func (in *Input) apply(ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			in.quit = true
		case tcell.KeyLeft:
			in.camera.X -= in.step
		case tcell.KeyRight:
			in.camera.X += in.step
		case tcell.KeyUp:
			in.camera.Y -= in.step
		case tcell.KeyDown:
			in.camera.Y += in.step
		case tcell.KeyRune:
			if ev.Rune() == 'q' {
				in.quit = true
			}
		}
	case *tcell.EventMouse:
		x, y := ev.Position()
		in.cursor = in.dev.World(x, y)
	case *tcell.EventResize:
		in.dev.screen.Sync()
	}
}

func (in *Input) Camera() geom.Vec2 { return in.camera }
func (in *Input) Cursor() geom.Vec2 { return in.cursor }
func (in *Input) Quit() bool        { return in.quit }

// Close stops the event pump.
func (in *Input) Close() {
	select {
	case <-in.stop:
	default:
		close(in.stop)
	}
}
