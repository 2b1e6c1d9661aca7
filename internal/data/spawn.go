package data

import (
	"fmt"
	"os"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Spawn kinds.
const (
	KindSprite   = "sprite"
	KindScripted = "scripted"
)

// SpawnEntry places one initial object.
type SpawnEntry struct {
	Kind    string  `yaml:"kind"` // sprite, scripted
	Texture string  `yaml:"texture"`
	Glyph   string  `yaml:"glyph"`
	Layer   int     `yaml:"layer"`
	X       float32 `yaml:"x"`
	Y       float32 `yaml:"y"`
	Width   float32 `yaml:"width"`
	Height  float32 `yaml:"height"`
	Radius  float32 `yaml:"radius"`
	Static  bool    `yaml:"static"`
	Pass    int     `yaml:"pass"`
	Script  string  `yaml:"script"`
}

// GlyphRune returns the first rune of Glyph, or 0.
func (e *SpawnEntry) GlyphRune() rune {
	r, _ := utf8.DecodeRuneInString(e.Glyph)
	if r == utf8.RuneError {
		return 0
	}
	return r
}

type spawnListFile struct {
	Spawns []SpawnEntry `yaml:"spawns"`
}

// LoadSpawnList loads spawn entries from a YAML file.
func LoadSpawnList(path string) ([]SpawnEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spawn_list: %w", err)
	}
	var f spawnListFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse spawn_list: %w", err)
	}
	for i := range f.Spawns {
		e := &f.Spawns[i]
		switch e.Kind {
		case "":
			e.Kind = KindSprite
		case KindSprite:
		case KindScripted:
			if e.Script == "" {
				return nil, fmt.Errorf("spawn_list: entry %d: scripted spawn without script", i)
			}
		default:
			return nil, fmt.Errorf("spawn_list: entry %d: unknown kind %q", i, e.Kind)
		}
	}
	return f.Spawns, nil
}
