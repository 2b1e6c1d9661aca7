package data

import (
	"fmt"
	"os"

	"github.com/l1jgo/stage/internal/geom"
	"github.com/l1jgo/stage/internal/scene"
	"gopkg.in/yaml.v3"
)

// LayerDef holds the settings of one render layer loaded from YAML.
// Omitted booleans keep the layer defaults (visible, culled, updated).
type LayerDef struct {
	Index          int         `yaml:"index"`
	Name           string      `yaml:"name"`
	Visible        *bool       `yaml:"visible"`
	Mode           string      `yaml:"mode"` // unordered, sorted
	StartPass      int         `yaml:"start_pass"`
	EndPass        int         `yaml:"end_pass"`
	FollowCamera   *float32    `yaml:"follow_camera"` // omitted = no parallax
	FollowLock     string      `yaml:"follow_lock"`   // none, horizontal, vertical
	Cull           *bool       `yaml:"cull"`
	OptimizeStatic bool        `yaml:"optimize_static"`
	Update         *bool       `yaml:"update"`
	Tint           *geom.Color `yaml:"tint"`
}

var layerModes = map[string]scene.Mode{
	"":          scene.ModeUnordered,
	"unordered": scene.ModeUnordered,
	"sorted":    scene.ModeSorted,
}

var followLocks = map[string]scene.FollowLock{
	"":           scene.LockNone,
	"none":       scene.LockNone,
	"horizontal": scene.LockHorizontal,
	"vertical":   scene.LockVertical,
}

type layerFile struct {
	Order  []int      `yaml:"order"`
	Layers []LayerDef `yaml:"layers"`
}

// LayerTable holds layer settings indexed by layer index and name.
type LayerTable struct {
	order  []int
	defs   []LayerDef
	byName map[string]*LayerDef
}

// Count returns the number of layer definitions.
func (t *LayerTable) Count() int { return len(t.defs) }

// Order returns the render order, nil when the file leaves it to the
// storage order.
func (t *LayerTable) Order() []int { return t.order }

// ByName returns a layer definition by name, or nil.
func (t *LayerTable) ByName(name string) *LayerDef { return t.byName[name] }

// LayerCount returns how many layers the manager needs to hold every
// defined index.
func (t *LayerTable) LayerCount() int {
	n := 0
	for _, d := range t.defs {
		n = max(n, d.Index+1)
	}
	for _, i := range t.order {
		n = max(n, i+1)
	}
	return n
}

// Apply configures m's layers and render order. m must already hold
// LayerCount layers.
func (t *LayerTable) Apply(m *scene.Manager) error {
	if m.LayerCount() < t.LayerCount() {
		return fmt.Errorf("layers: need %d layers, manager has %d: %w",
			t.LayerCount(), m.LayerCount(), scene.ErrLayerOutOfRange)
	}
	for i := range t.defs {
		d := &t.defs[i]
		l := m.Layer(d.Index)
		l.SetMode(layerModes[d.Mode])
		l.SetPasses(d.StartPass, d.EndPass)
		follow := scene.NoFollowCamera
		if d.FollowCamera != nil {
			follow = *d.FollowCamera
		}
		l.SetFollowCamera(follow, followLocks[d.FollowLock])
		l.SetOptimizeStatic(d.OptimizeStatic)
		if d.Visible != nil {
			l.SetVisible(*d.Visible)
		}
		if d.Cull != nil {
			l.SetCull(*d.Cull)
		}
		if d.Update != nil {
			l.SetUpdateEnabled(*d.Update)
		}
		if d.Tint != nil {
			l.SetTint(*d.Tint)
		}
	}
	if t.order != nil {
		if err := m.SetLayerOrder(t.order); err != nil {
			return fmt.Errorf("layers: order: %w", err)
		}
	}
	return nil
}

// LoadLayerTable loads layer settings from YAML.
func LoadLayerTable(path string) (*LayerTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("layers: read %s: %w", path, err)
	}

	var f layerFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("layers: parse %s: %w", path, err)
	}

	t := &LayerTable{
		order:  f.Order,
		defs:   f.Layers,
		byName: make(map[string]*LayerDef, len(f.Layers)),
	}
	seen := make(map[int]bool, len(f.Layers))
	for i := range t.defs {
		d := &t.defs[i]
		if d.Index < 0 {
			return nil, fmt.Errorf("layers: %s: negative index %d", path, d.Index)
		}
		if seen[d.Index] {
			return nil, fmt.Errorf("layers: %s: duplicate index %d", path, d.Index)
		}
		seen[d.Index] = true
		if _, ok := layerModes[d.Mode]; !ok {
			return nil, fmt.Errorf("layers: %s: layer %d: unknown mode %q", path, d.Index, d.Mode)
		}
		if _, ok := followLocks[d.FollowLock]; !ok {
			return nil, fmt.Errorf("layers: %s: layer %d: unknown follow_lock %q", path, d.Index, d.FollowLock)
		}
		if d.EndPass < d.StartPass {
			return nil, fmt.Errorf("layers: %s: layer %d: end_pass %d < start_pass %d",
				path, d.Index, d.EndPass, d.StartPass)
		}
		if d.Name != "" {
			t.byName[d.Name] = d
		}
	}
	for _, i := range t.order {
		if i < -1 {
			return nil, fmt.Errorf("layers: %s: bad order entry %d", path, i)
		}
	}
	return t, nil
}
