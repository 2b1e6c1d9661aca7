// Package terminal renders device commands into a tcell screen, one cell per
// command, so the scene core can be watched without a GPU.
package terminal

import (
	"errors"
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"
	"github.com/l1jgo/stage/internal/device"
	"github.com/l1jgo/stage/internal/geom"
	"go.uber.org/zap"
)

// Device draws into a tcell screen. World units are mapped to cells by the
// configured cell size after the view transform.
// Accessed only from the frame loop goroutine, so there are no locks.
type Device struct {
	screen tcell.Screen
	log    *zap.Logger

	cellW, cellH float32
	view         device.View
	bg           tcell.Style

	batches map[device.Batch][]device.Command
	nextID  device.Batch
	drawn   int
}

var _ device.Device = (*Device)(nil)

// New wraps an initialized screen. cellW and cellH are the world units
// covered by one terminal cell.
func New(screen tcell.Screen, cellW, cellH float32, log *zap.Logger) (*Device, error) {
	if screen == nil {
		return nil, errors.New("terminal: nil screen")
	}
	if cellW <= 0 || cellH <= 0 {
		return nil, fmt.Errorf("terminal: invalid cell size %gx%g", cellW, cellH)
	}
	return &Device{
		screen:  screen,
		log:     log,
		cellW:   cellW,
		cellH:   cellH,
		bg:      tcell.StyleDefault,
		batches: make(map[device.Batch][]device.Command),
		nextID:  1,
	}, nil
}

func (d *Device) BeginFrame() error {
	d.drawn = 0
	return nil
}

func (d *Device) Clear(c geom.Color) {
	d.bg = tcell.StyleDefault.Background(toColor(c, 1))
	d.screen.Fill(' ', d.bg)
}

func (d *Device) SetView(v device.View) { d.view = v }

func (d *Device) Draw(cmds []device.Command) {
	for i := range cmds {
		d.put(&cmds[i])
	}
}

func (d *Device) Compile(cmds []device.Command) (device.Batch, error) {
	if len(cmds) == 0 {
		return 0, errors.New("terminal: empty batch")
	}
	id := d.nextID
	d.nextID++
	d.batches[id] = append([]device.Command(nil), cmds...)
	return id, nil
}

func (d *Device) Submit(b device.Batch) {
	cmds, ok := d.batches[b]
	if !ok {
		d.log.Warn("submit of unknown batch", zap.Uint32("batch", uint32(b)))
		return
	}
	d.Draw(cmds)
}

func (d *Device) Release(b device.Batch) {
	delete(d.batches, b)
}

func (d *Device) Present() error {
	d.screen.Show()
	return nil
}

// Close finalizes the screen. The device is unusable afterwards.
func (d *Device) Close() error {
	d.batches = nil
	d.screen.Fini()
	return nil
}

// Drawn returns how many cells the current frame wrote.
func (d *Device) Drawn() int { return d.drawn }

// Cell maps a world position to a screen cell under the current view.
func (d *Device) Cell(p geom.Vec2) (x, y int) {
	s := d.view.Project(p)
	return int(math.Floor(float64(s.X / d.cellW))), int(math.Floor(float64(s.Y / d.cellH)))
}

// World maps a screen cell back to the world position of its corner.
func (d *Device) World(x, y int) geom.Vec2 {
	scale := d.view.Scale
	if scale == 0 {
		scale = 1
	}
	s := geom.V(float32(x)*d.cellW, float32(y)*d.cellH)
	return s.Scale(1 / scale).Add(d.view.Origin)
}

func (d *Device) put(c *device.Command) {
	if c.Alpha <= 0 {
		return
	}
	x, y := d.Cell(c.Pos)
	w, h := d.screen.Size()
	if x < 0 || y < 0 || x >= w || y >= h {
		return
	}
	glyph := c.Glyph
	if glyph == 0 {
		glyph = '█'
	}
	style := d.bg.Foreground(toColor(c.Tint, c.Alpha))
	d.screen.SetContent(x, y, glyph, nil, style)
	d.drawn++
}

func toColor(c geom.Color, alpha float32) tcell.Color {
	if alpha < 1 {
		c = geom.RGB(c.R*alpha, c.G*alpha, c.B*alpha)
	}
	r, g, b := c.RGB8()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}
