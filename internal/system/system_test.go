package system

import (
	"errors"
	"image"
	"testing"
	"time"

	"github.com/l1jgo/stage/internal/asset"
	"github.com/l1jgo/stage/internal/core/event"
	coresys "github.com/l1jgo/stage/internal/core/system"
	"github.com/l1jgo/stage/internal/device"
	"github.com/l1jgo/stage/internal/geom"
	"github.com/l1jgo/stage/internal/scene"
	"go.uber.org/zap/zaptest"
)

type fakeInput struct {
	camera, cursor geom.Vec2
	polls          int
	quit           bool
}

func (f *fakeInput) Poll()             { f.polls++ }
func (f *fakeInput) Camera() geom.Vec2 { return f.camera }
func (f *fakeInput) Cursor() geom.Vec2 { return f.cursor }
func (f *fakeInput) Quit() bool        { return f.quit }

// walker moves right every update and asks to be removed once it passes limit.
type walker struct {
	scene.Object
	limit float32
}

func (w *walker) Update(ctx *scene.FrameContext) {
	p := w.Position()
	w.SetPosition(geom.V(p.X+1, p.Y))
	if p.X+1 >= w.limit {
		ctx.Scene.EnqueueRenderObjectDeletion(w)
	}
}

func (w *walker) Render(ctx *scene.FrameContext, rec *scene.Recorder) {
	rec.Draw(device.Command{Glyph: 'w', Pos: ctx.DrawPosition(w.Position()), Size: geom.V(1, 1), Tint: geom.White, Alpha: 1})
}

type failingResources struct{}

func (failingResources) Unload()       {}
func (failingResources) Reload() error { return errors.New("no context") }
func (failingResources) Close() error  { return nil }

type grayLoader struct{}

func (grayLoader) Load(string) (*asset.Image, error) {
	pix := image.NewRGBA(image.Rect(0, 0, 1, 1))
	copy(pix.Pix, []byte{128, 128, 128, 255})
	return &asset.Image{Pix: pix, Format: "gray"}, nil
}

type rig struct {
	scene  *scene.Manager
	dev    *device.Capture
	input  *fakeInput
	cache  *asset.Cache
	runner *coresys.Runner
}

func newRig(t *testing.T) *rig {
	t.Helper()
	log := zaptest.NewLogger(t)
	dev := device.NewCapture()
	m := scene.NewManager(scene.Config{VirtualWidth: 40, VirtualHeight: 40}, dev, event.NewBus(), log)
	if err := m.InitLayers(2); err != nil {
		t.Fatal(err)
	}
	cache := asset.NewCache(grayLoader{}, asset.Options{Workers: 1}, log)
	t.Cleanup(func() { cache.Close() })

	r := &rig{scene: m, dev: dev, input: &fakeInput{}, cache: cache, runner: coresys.NewRunner()}
	r.runner.Register(NewCleanupSystem(m, cache, log))
	r.runner.Register(NewRenderSystem(m, scene.FullRange, 1, log))
	r.runner.Register(NewUpdateSystem(m))
	r.runner.Register(NewEventSystem(m.Bus()))
	r.runner.Register(NewInputSystem(m, r.input))
	return r
}

func TestSystems_FrameLoop(t *testing.T) {
	r := newRig(t)
	var destroyed []scene.ObjectDestroyed
	event.Subscribe(r.scene.Bus(), func(ev scene.ObjectDestroyed) {
		destroyed = append(destroyed, ev)
	})

	w := &walker{Object: scene.NewObject(geom.V(0, 0)), limit: 2}
	if err := r.scene.AddRenderObject(w, 1); err != nil {
		t.Fatal(err)
	}
	r.input.camera = geom.V(-18, -18)
	r.input.cursor = geom.V(7, 7)

	if err := r.runner.Tick(16 * time.Millisecond); err != nil {
		t.Fatalf("frame 1: %v", err)
	}
	if r.scene.Camera() != geom.V(-18, -18) || r.scene.Cursor() != geom.V(7, 7) {
		t.Fatalf("camera/cursor = %v/%v", r.scene.Camera(), r.scene.Cursor())
	}
	if got := w.Position(); got != geom.V(1, 0) {
		t.Fatalf("position after frame 1 = %v", got)
	}
	if n := len(r.dev.LastFrame()); n != 1 {
		t.Fatalf("frame 1 drew %d commands, want 1", n)
	}

	// Frame 2 reaches the limit: the walker is still drawn, then drained.
	if err := r.runner.Tick(16 * time.Millisecond); err != nil {
		t.Fatalf("frame 2: %v", err)
	}
	if n := len(r.dev.LastFrame()); n != 1 {
		t.Fatalf("frame 2 drew %d commands, want 1", n)
	}
	if !w.Destroyed() {
		t.Fatal("walker not destroyed after frame 2")
	}
	if len(destroyed) != 0 {
		t.Fatal("destroy event delivered in the frame it was emitted")
	}

	if err := r.runner.Tick(16 * time.Millisecond); err != nil {
		t.Fatalf("frame 3: %v", err)
	}
	if len(destroyed) != 1 || destroyed[0].Layer != 1 {
		t.Fatalf("destroyed events = %+v", destroyed)
	}
	if n := len(r.dev.LastFrame()); n != 0 {
		t.Fatalf("frame 3 drew %d commands, want 0", n)
	}
	if r.input.polls != 3 {
		t.Fatalf("polls = %d, want 3", r.input.polls)
	}
}

func TestRenderSystem_RestoreFailureStopsFrame(t *testing.T) {
	r := newRig(t)
	r.scene.AttachResources(failingResources{})
	r.dev.Lose()

	err := r.runner.Tick(16 * time.Millisecond)
	if err == nil {
		t.Fatal("expected restore failure")
	}
	if r.scene.Frame() != 0 {
		t.Fatalf("frame advanced to %d", r.scene.Frame())
	}
}

func TestCleanupSystem_SyncsDecodedTextures(t *testing.T) {
	r := newRig(t)
	if err := r.cache.Preload("gfx/a", "gfx/b"); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for r.cache.Pending() > 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if err := r.runner.TickPhase(coresys.PhaseCleanup, 0); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"gfx/a", "gfx/b"} {
		if r.cache.Find(k) == nil {
			t.Fatalf("%s not synced into the cache", k)
		}
	}
}

func TestInputSystem_Quit(t *testing.T) {
	r := newRig(t)
	in := NewInputSystem(r.scene, r.input)
	if in.QuitRequested() {
		t.Fatal("quit before request")
	}
	r.input.quit = true
	if !in.QuitRequested() {
		t.Fatal("quit not reported")
	}
}
