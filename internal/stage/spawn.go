// Package stage wires manifests, scripts, textures and snapshots to a
// scene.
package stage

import (
	"errors"
	"fmt"

	"github.com/l1jgo/stage/internal/asset"
	"github.com/l1jgo/stage/internal/data"
	"github.com/l1jgo/stage/internal/geom"
	"github.com/l1jgo/stage/internal/object"
	"github.com/l1jgo/stage/internal/scene"
	"github.com/l1jgo/stage/internal/scripting"
	"go.uber.org/zap"
)

// Spawner builds renderables from spawn entries and places them.
type Spawner struct {
	Scene   *scene.Manager
	Cache   *asset.Cache
	Scripts *scripting.Engine // nil disables scripted spawns
	Log     *zap.Logger
}

// Preload decodes every texture the entries name in the background and
// waits for the results.
func (s *Spawner) Preload(entries []data.SpawnEntry) error {
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Texture != "" {
			keys = append(keys, e.Texture)
		}
	}
	if err := s.Cache.Preload(keys...); err != nil {
		return fmt.Errorf("preload textures: %w", err)
	}
	n := s.Cache.Flush()
	s.Log.Info("textures preloaded", zap.Int("requested", len(keys)), zap.Int("loaded", n))
	return nil
}

// Spawn creates the object described by e and adds it to its layer.
func (s *Spawner) Spawn(e data.SpawnEntry) (scene.Renderable, error) {
	opts := object.SpriteOptions{
		Texture: e.Texture,
		Glyph:   e.GlyphRune(),
		Pos:     geom.V(e.X, e.Y),
		Size:    geom.V(e.Width, e.Height),
		Radius:  e.Radius,
		Static:  e.Static,
		Pass:    e.Pass,
	}

	var r scene.Renderable
	switch e.Kind {
	case data.KindScripted:
		if s.Scripts == nil {
			return nil, fmt.Errorf("spawn %q: scripting disabled", e.Script)
		}
		b, err := s.Scripts.Behavior(e.Script)
		if err != nil {
			return nil, fmt.Errorf("spawn: %w", err)
		}
		r = object.NewScripted(s.Cache, opts, b)
	default:
		r = object.NewSprite(s.Cache, opts)
	}

	if err := s.Scene.AddRenderObject(r, e.Layer); err != nil {
		if d, ok := r.(scene.Destroyer); ok {
			d.Destroy()
		}
		return nil, fmt.Errorf("spawn on layer %d: %w", e.Layer, err)
	}
	return r, nil
}

// SpawnAll spawns every entry. Failed entries are logged and skipped; the
// failures are returned joined.
func (s *Spawner) SpawnAll(entries []data.SpawnEntry) (int, error) {
	var errs []error
	n := 0
	for i, e := range entries {
		if _, err := s.Spawn(e); err != nil {
			s.Log.Warn("spawn failed", zap.Int("entry", i), zap.Int("layer", e.Layer), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		n++
	}
	s.Log.Info("spawn list placed", zap.Int("spawned", n), zap.Int("failed", len(errs)))
	return n, errors.Join(errs...)
}
