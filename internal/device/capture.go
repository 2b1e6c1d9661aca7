package device

import (
	"fmt"

	"github.com/l1jgo/stage/internal/geom"
)

// Capture is a headless Device that records what each frame drew. Submitted
// batches are flattened back into their commands so a cached frame and an
// uncached frame can be compared directly.
type Capture struct {
	batches map[Batch][]Command
	nextID  Batch

	frame    []Command
	last     []Command
	view     View
	clear    geom.Color
	inFrame  bool
	lost     bool
	Frames   int
	Compiles int
	Releases int
	Submits  int
}

var _ Device = (*Capture)(nil)

func NewCapture() *Capture {
	return &Capture{
		batches: make(map[Batch][]Command),
		nextID:  1,
	}
}

// Lose simulates a context loss: the next BeginFrame fails and every batch
// handle is forgotten.
func (c *Capture) Lose() {
	c.lost = true
	c.batches = make(map[Batch][]Command)
}

func (c *Capture) BeginFrame() error {
	if c.lost {
		c.lost = false
		return ErrDeviceLost
	}
	c.inFrame = true
	c.frame = c.frame[:0]
	return nil
}

func (c *Capture) Clear(col geom.Color) { c.clear = col }
func (c *Capture) SetView(v View)       { c.view = v }

func (c *Capture) Draw(cmds []Command) {
	c.frame = append(c.frame, cmds...)
}

func (c *Capture) Compile(cmds []Command) (Batch, error) {
	if len(cmds) == 0 {
		return 0, fmt.Errorf("compile: empty batch")
	}
	id := c.nextID
	c.nextID++
	c.batches[id] = append([]Command(nil), cmds...)
	c.Compiles++
	return id, nil
}

func (c *Capture) Submit(b Batch) {
	cmds, ok := c.batches[b]
	if !ok {
		return
	}
	c.Submits++
	c.frame = append(c.frame, cmds...)
}

func (c *Capture) Release(b Batch) {
	if _, ok := c.batches[b]; ok {
		delete(c.batches, b)
		c.Releases++
	}
}

func (c *Capture) Present() error {
	if !c.inFrame {
		return fmt.Errorf("present outside frame")
	}
	c.inFrame = false
	c.last = append(c.last[:0], c.frame...)
	c.Frames++
	return nil
}

func (c *Capture) Close() error {
	c.batches = make(map[Batch][]Command)
	return nil
}

// LastFrame returns a copy of the commands presented by the last frame.
func (c *Capture) LastFrame() []Command {
	return append([]Command(nil), c.last...)
}

// LiveBatches returns how many compiled batches are still held.
func (c *Capture) LiveBatches() int { return len(c.batches) }

func (c *Capture) View() View             { return c.view }
func (c *Capture) ClearColor() geom.Color { return c.clear }
