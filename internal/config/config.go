package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/l1jgo/stage/internal/geom"
)

// DefaultPath is read when STAGE_CONFIG is unset.
const DefaultPath = "config/stage.toml"

type Config struct {
	Render   RenderConfig   `toml:"render"`
	Assets   AssetsConfig   `toml:"assets"`
	Scripts  ScriptsConfig  `toml:"scripts"`
	Data     DataConfig     `toml:"data"`
	Database DatabaseConfig `toml:"database"`
	Logging  LoggingConfig  `toml:"logging"`
}

type RenderConfig struct {
	LayerCount    int           `toml:"layer_count"`
	VirtualWidth  float32       `toml:"virtual_width"`
	VirtualHeight float32       `toml:"virtual_height"`
	CullRadius    float32       `toml:"cull_radius"` // 0 = half the virtual diagonal
	FrameRate     time.Duration `toml:"frame_rate"`
	MaxFrames     int           `toml:"max_frames"` // 0 = run until quit
	ClearColor    geom.Color    `toml:"clear_color"`
	Device        string        `toml:"device"` // "terminal" or "headless"
	CellWidth     float32       `toml:"cell_width"`
	CellHeight    float32       `toml:"cell_height"`
	CameraStep    float32       `toml:"camera_step"` // world units per arrow key press
}

type AssetsConfig struct {
	TextureDir       string `toml:"texture_dir"`
	DecodeWorkers    int    `toml:"decode_workers"`
	DecodeQueue      int    `toml:"decode_queue"`
	MaxTextureSize   int    `toml:"max_texture_size"`
	DebugLogTextures bool   `toml:"debug_log_textures"`
}

type ScriptsConfig struct {
	Dir string `toml:"dir"`
}

type DataConfig struct {
	Layers    string `toml:"layers"`
	SpawnList string `toml:"spawn_list"`
}

type DatabaseConfig struct {
	DSN             string        `toml:"dsn"` // empty = snapshots disabled
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
	SceneName       string        `toml:"scene_name"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// Path returns the config path from STAGE_CONFIG, or DefaultPath.
func Path() string {
	if p := os.Getenv("STAGE_CONFIG"); p != "" {
		return p
	}
	return DefaultPath
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Render.Device {
	case "terminal", "headless":
	default:
		return fmt.Errorf("render.device: unknown device %q", c.Render.Device)
	}
	if c.Render.LayerCount <= 0 {
		return fmt.Errorf("render.layer_count must be positive, got %d", c.Render.LayerCount)
	}
	if c.Render.CellWidth <= 0 || c.Render.CellHeight <= 0 {
		return fmt.Errorf("render.cell_width and render.cell_height must be positive")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unknown format %q", c.Logging.Format)
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Render: RenderConfig{
			LayerCount:    8,
			VirtualWidth:  800,
			VirtualHeight: 600,
			FrameRate:     33 * time.Millisecond,
			ClearColor:    geom.Black,
			Device:        "terminal",
			CellWidth:     10,
			CellHeight:    20,
			CameraStep:    20,
		},
		Assets: AssetsConfig{
			TextureDir:     "data/gfx",
			DecodeWorkers:  2,
			DecodeQueue:    64,
			MaxTextureSize: 2048,
		},
		Scripts: ScriptsConfig{
			Dir: "scripts",
		},
		Data: DataConfig{
			Layers:    "data/yaml/layers.yaml",
			SpawnList: "data/yaml/spawn_list.yaml",
		},
		Database: DatabaseConfig{
			MaxOpenConns:    4,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
			SceneName:       "default",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
