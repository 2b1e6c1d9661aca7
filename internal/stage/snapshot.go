package stage

import (
	"fmt"

	"github.com/l1jgo/stage/internal/data"
	"github.com/l1jgo/stage/internal/object"
	"github.com/l1jgo/stage/internal/persist"
	"github.com/l1jgo/stage/internal/scene"
	"go.uber.org/zap"
)

// Snapshot lists the sprites and scripted objects of m in layer and slot
// order. Objects awaiting destruction and other renderables are left out.
func Snapshot(m *scene.Manager) []persist.Placement {
	var out []persist.Placement
	for i := 0; i < m.LayerCount(); i++ {
		for _, r := range m.Layer(i).Objects() {
			if r.Base().DestroyPending() {
				continue
			}
			p, ok := placement(r)
			if !ok {
				continue
			}
			out = append(out, p)
		}
	}
	return out
}

func placement(r scene.Renderable) (persist.Placement, bool) {
	var sp *object.Sprite
	p := persist.Placement{Kind: data.KindSprite}
	switch o := r.(type) {
	case *object.Scripted:
		sp = &o.Sprite
		p.Kind = data.KindScripted
		if b := o.Behavior(); b != nil {
			p.Script = b.Name()
		}
	case *object.Sprite:
		sp = o
	default:
		return p, false
	}
	pos := sp.Position()
	p.Layer, p.Slot = sp.Layer(), sp.SlotIndex()
	p.X, p.Y = pos.X, pos.Y
	p.Width, p.Height = sp.Size().X, sp.Size().Y
	p.Radius = sp.Radius()
	p.Pass = sp.Pass()
	p.Static = sp.Static()
	p.Visible = sp.Visible()
	if g := sp.Glyph(); g != 0 {
		p.Glyph = string(g)
	}
	if t := sp.Texture(); t != nil && !t.IsError() {
		p.Texture = t.Key()
	}
	return p, true
}

// Restore destroys every object of the spawner's scene and spawns the
// placements in order. It must run between frames.
func (s *Spawner) Restore(placements []persist.Placement) (int, error) {
	s.Scene.ClearRenderObjects()
	if err := s.Scene.ClearGarbage(); err != nil {
		return 0, fmt.Errorf("restore: %w", err)
	}
	entries := make([]data.SpawnEntry, len(placements))
	for i, p := range placements {
		entries[i] = data.SpawnEntry{
			Kind:    p.Kind,
			Texture: p.Texture,
			Glyph:   p.Glyph,
			Layer:   p.Layer,
			X:       p.X,
			Y:       p.Y,
			Width:   p.Width,
			Height:  p.Height,
			Radius:  p.Radius,
			Static:  p.Static,
			Pass:    p.Pass,
			Script:  p.Script,
		}
	}

	var failed error
	n := 0
	for i, e := range entries {
		r, err := s.Spawn(e)
		if err != nil {
			s.Log.Warn("restore placement failed", zap.Int("placement", i), zap.Error(err))
			failed = err
			continue
		}
		r.Base().SetVisible(placements[i].Visible)
		n++
	}
	s.Log.Info("scene restored", zap.Int("objects", n), zap.Int("placements", len(placements)))
	if failed != nil {
		return n, fmt.Errorf("restore: last failure: %w", failed)
	}
	return n, nil
}
