package scene

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/l1jgo/stage/internal/device"
	"github.com/l1jgo/stage/internal/geom"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// dot draws one glyph at its position.
type dot struct {
	Object
	glyph        rune
	updates      int
	destroyCalls int
	onUpdate     func(ctx *FrameContext, d *dot)
	onRender     func(ctx *FrameContext)
}

func newDot(glyph rune, x, y float32) *dot {
	return &dot{Object: NewObject(geom.V(x, y)), glyph: glyph}
}

func (d *dot) Update(ctx *FrameContext) {
	d.updates++
	if d.onUpdate != nil {
		d.onUpdate(ctx, d)
	}
}

func (d *dot) Render(ctx *FrameContext, rec *Recorder) {
	if d.onRender != nil {
		d.onRender(ctx)
	}
	rec.Draw(device.Command{
		Glyph: d.glyph,
		Pos:   ctx.DrawPosition(d.Position()),
		Size:  geom.V(1, 1),
		Tint:  geom.White,
		Alpha: 1,
	})
}

func (d *dot) Destroy() { d.destroyCalls++ }

// fakeResources records device-loss callbacks.
type fakeResources struct {
	unloads, reloads, closes int
	reloadErr                error
}

func (f *fakeResources) Unload() { f.unloads++ }

func (f *fakeResources) Close() error {
	f.closes++
	return nil
}

func (f *fakeResources) Reload() error {
	f.reloads++
	return f.reloadErr
}

var errReload = errors.New("reload failed")

func newTestManager(t *testing.T, layers int) (*Manager, *device.Capture) {
	t.Helper()
	dev := device.NewCapture()
	m := NewManager(Config{VirtualWidth: 20, VirtualHeight: 20, CullRadius: 10}, dev, nil, zaptest.NewLogger(t))
	if err := m.InitLayers(layers); err != nil {
		t.Fatalf("init layers: %v", err)
	}
	return m, dev
}

func newObservedManager(t *testing.T, layers int) (*Manager, *device.Capture, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.WarnLevel)
	dev := device.NewCapture()
	m := NewManager(Config{VirtualWidth: 20, VirtualHeight: 20, CullRadius: 10}, dev, nil, zap.New(core))
	if err := m.InitLayers(layers); err != nil {
		t.Fatalf("init layers: %v", err)
	}
	return m, dev, logs
}

func render(t *testing.T, m *Manager, rng Range) {
	t.Helper()
	if err := m.Render(rng); err != nil {
		t.Fatalf("render: %v", err)
	}
}

func frame(t *testing.T, m *Manager) {
	t.Helper()
	if err := m.Step(16*time.Millisecond, FullRange); err != nil {
		t.Fatalf("frame: %v", err)
	}
}

// glyphs returns the drawn glyphs of a frame in draw order.
func glyphs(cmds []device.Command) string {
	var b strings.Builder
	for _, c := range cmds {
		b.WriteRune(c.Glyph)
	}
	return b.String()
}

func layerGlyphs(l *Layer) string {
	var b strings.Builder
	for r := l.First(); r != nil; r = l.Next() {
		b.WriteRune(r.(*dot).glyph)
	}
	return b.String()
}
