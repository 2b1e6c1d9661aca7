package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/l1jgo/stage/internal/core/event"
	"github.com/l1jgo/stage/internal/object"
	"github.com/l1jgo/stage/internal/scene"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM running object behaviors.
// Single-goroutine access only (game loop).
type Engine struct {
	vm    *lua.LState
	log   *zap.Logger
	scene *scene.Manager
	selfs map[*object.Scripted]*lua.LUserData
}

// NewEngine creates a Lua engine and loads all scripts from the given
// directory, then from each subdirectory in name order.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	vm.SetGlobal("behaviors", vm.NewTable())

	e := &Engine{vm: vm, log: log, selfs: make(map[*object.Scripted]*lua.LUserData)}
	e.registerSelf()

	if scriptsDir == "" {
		return e, nil
	}
	if err := e.loadDir(scriptsDir); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load scripts: %w", err)
	}
	subs, err := os.ReadDir(scriptsDir)
	if err != nil && !os.IsNotExist(err) {
		vm.Close()
		return nil, fmt.Errorf("read scripts dir: %w", err)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].Name() < subs[j].Name() })
	for _, sub := range subs {
		if !sub.IsDir() {
			continue
		}
		if err := e.loadDir(filepath.Join(scriptsDir, sub.Name())); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub.Name(), err)
		}
	}
	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// DoString runs a chunk of Lua in the engine's VM.
func (e *Engine) DoString(src string) error {
	return e.vm.DoString(src)
}

// Bind connects the engine to a scene: self:kill and self:switch_layer go
// through m, and on_destroy hooks run when m's destroy events are
// dispatched.
func (e *Engine) Bind(m *scene.Manager) {
	e.scene = m
	event.Subscribe(m.Bus(), e.onDestroyed)
}

// Behaviors returns the names registered in the behaviors table.
func (e *Engine) Behaviors() []string {
	var names []string
	e.behaviorTable().ForEach(func(k, _ lua.LValue) {
		if s, ok := k.(lua.LString); ok {
			names = append(names, string(s))
		}
	})
	sort.Strings(names)
	return names
}

// Behavior looks up a registered behavior. A behavior is either a function
// (self, dt) or a table with an update function and an optional on_destroy.
func (e *Engine) Behavior(name string) (*Behavior, error) {
	v := e.behaviorTable().RawGetString(name)
	switch fn := v.(type) {
	case *lua.LFunction:
		return &Behavior{e: e, name: name, update: fn}, nil
	case *lua.LTable:
		update, ok := fn.RawGetString("update").(*lua.LFunction)
		if !ok {
			return nil, fmt.Errorf("behavior %q: update is not a function", name)
		}
		b := &Behavior{e: e, name: name, update: update}
		if d, ok := fn.RawGetString("on_destroy").(*lua.LFunction); ok {
			b.destroy = d
		}
		return b, nil
	case *lua.LNilType:
		return nil, fmt.Errorf("behavior %q not registered", name)
	default:
		return nil, fmt.Errorf("behavior %q: unexpected %s", name, v.Type())
	}
}

func (e *Engine) behaviorTable() *lua.LTable {
	t, ok := e.vm.GetGlobal("behaviors").(*lua.LTable)
	if !ok {
		t = e.vm.NewTable()
		e.vm.SetGlobal("behaviors", t)
	}
	return t
}

func (e *Engine) onDestroyed(ev scene.ObjectDestroyed) {
	s, ok := ev.Object.(*object.Scripted)
	if !ok {
		return
	}
	defer delete(e.selfs, s)
	b, ok := s.Behavior().(*Behavior)
	if !ok || b.destroy == nil {
		return
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      b.destroy,
		NRet:    0,
		Protect: true,
	}, e.self(s)); err != nil {
		e.log.Error("lua on_destroy error", zap.String("behavior", b.name), zap.Error(err))
	}
}

// Close releases the VM.
func (e *Engine) Close() {
	e.vm.Close()
}
