package scripting

import (
	"github.com/l1jgo/stage/internal/geom"
	"github.com/l1jgo/stage/internal/object"
	"github.com/l1jgo/stage/internal/scene"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

const selfTypeName = "stage.self"

func (e *Engine) registerSelf() {
	mt := e.vm.NewTypeMetatable(selfTypeName)
	e.vm.SetField(mt, "__index", e.vm.SetFuncs(e.vm.NewTable(), map[string]lua.LGFunction{
		"x":            e.selfX,
		"y":            e.selfY,
		"move":         e.selfMove,
		"set_position": e.selfSetPosition,
		"layer":        e.selfLayer,
		"switch_layer": e.selfSwitchLayer,
		"kill":         e.selfKill,
		"set_visible":  e.selfSetVisible,
	}))
}

// self returns the userdata handed to scripts for s, one per object.
func (e *Engine) self(s *object.Scripted) *lua.LUserData {
	if ud, ok := e.selfs[s]; ok {
		return ud
	}
	ud := e.vm.NewUserData()
	ud.Value = s
	e.vm.SetMetatable(ud, e.vm.GetTypeMetatable(selfTypeName))
	e.selfs[s] = ud
	return ud
}

func checkSelf(L *lua.LState) *object.Scripted {
	ud := L.CheckUserData(1)
	if s, ok := ud.Value.(*object.Scripted); ok {
		return s
	}
	L.ArgError(1, "self expected")
	return nil
}

func (e *Engine) selfX(L *lua.LState) int {
	L.Push(lua.LNumber(checkSelf(L).Position().X))
	return 1
}

func (e *Engine) selfY(L *lua.LState) int {
	L.Push(lua.LNumber(checkSelf(L).Position().Y))
	return 1
}

func (e *Engine) selfMove(L *lua.LState) int {
	s := checkSelf(L)
	d := geom.V(float32(L.CheckNumber(2)), float32(L.CheckNumber(3)))
	s.SetPosition(s.Position().Add(d))
	return 0
}

func (e *Engine) selfSetPosition(L *lua.LState) int {
	s := checkSelf(L)
	s.SetPosition(geom.V(float32(L.CheckNumber(2)), float32(L.CheckNumber(3))))
	return 0
}

func (e *Engine) selfLayer(L *lua.LState) int {
	L.Push(lua.LNumber(checkSelf(L).Layer()))
	return 1
}

func (e *Engine) selfSwitchLayer(L *lua.LState) int {
	s := checkSelf(L)
	to := L.CheckInt(2)
	if e.scene == nil {
		L.RaiseError("switch_layer: engine not bound to a scene")
		return 0
	}
	if err := e.scene.SwitchRenderObjectLayer(s, to); err != nil {
		e.log.Warn("lua switch_layer rejected", zap.Int("layer", to), zap.Error(err))
		L.Push(lua.LFalse)
		return 1
	}
	L.Push(lua.LTrue)
	return 1
}

func (e *Engine) selfKill(L *lua.LState) int {
	s := checkSelf(L)
	if e.scene == nil {
		L.RaiseError("kill: engine not bound to a scene")
		return 0
	}
	e.scene.RemoveRenderObject(s, scene.Destroy)
	return 0
}

func (e *Engine) selfSetVisible(L *lua.LState) int {
	checkSelf(L).SetVisible(L.ToBool(2))
	return 0
}
