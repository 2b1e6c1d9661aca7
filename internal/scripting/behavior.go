package scripting

import (
	"github.com/l1jgo/stage/internal/object"
	"github.com/l1jgo/stage/internal/scene"
	lua "github.com/yuin/gopher-lua"
)

// Behavior is a Lua behavior bound to its engine. It implements
// object.Behavior.
type Behavior struct {
	e       *Engine
	name    string
	update  *lua.LFunction
	destroy *lua.LFunction
}

var _ object.Behavior = (*Behavior)(nil)

func (b *Behavior) Name() string { return b.name }

// Step calls the behavior with self and the frame time in seconds.
func (b *Behavior) Step(self *object.Scripted, ctx *scene.FrameContext) error {
	return b.e.vm.CallByParam(lua.P{
		Fn:      b.update,
		NRet:    0,
		Protect: true,
	}, b.e.self(self), lua.LNumber(ctx.DT.Seconds()))
}
