package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/l1jgo/stage/internal/asset"
	"github.com/l1jgo/stage/internal/config"
	"github.com/l1jgo/stage/internal/core/event"
	coresys "github.com/l1jgo/stage/internal/core/system"
	"github.com/l1jgo/stage/internal/data"
	"github.com/l1jgo/stage/internal/device"
	"github.com/l1jgo/stage/internal/device/terminal"
	"github.com/l1jgo/stage/internal/persist"
	"github.com/l1jgo/stage/internal/scene"
	"github.com/l1jgo/stage/internal/scripting"
	"github.com/l1jgo/stage/internal/stage"
	"github.com/l1jgo/stage/internal/system"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(device string, layers int) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m               stage  v0.1.0               \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m       layered scene renderer in Go        \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mdevice:\033[0m %s \033[90m(layers: %d)\033[0m\n\n", device, layers)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main loop ─────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfg, err := config.Load(config.Path())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Render.Device, cfg.Render.LayerCount)

	// 3. Optional snapshot database
	var snapshots *persist.SnapshotRepo
	if cfg.Database.DSN != "" {
		printSection("database")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			cancel()
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL connected")

		err = persist.RunMigrations(ctx, db.Pool, log)
		cancel()
		if err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK("migrations applied")
		fmt.Println()
		snapshots = persist.NewSnapshotRepo(db)
	}

	// 4. Load data tables
	printSection("data")
	layerTable, err := data.LoadLayerTable(cfg.Data.Layers)
	if err != nil {
		return fmt.Errorf("load layer table: %w", err)
	}
	printStat("layer definitions", layerTable.Count())

	spawnList, err := data.LoadSpawnList(cfg.Data.SpawnList)
	if err != nil {
		return fmt.Errorf("load spawn list: %w", err)
	}
	printStat("spawn entries", len(spawnList))

	// 5. Texture cache
	cache := asset.NewCache(
		asset.NewFileLoader(cfg.Assets.TextureDir, cfg.Assets.MaxTextureSize),
		asset.Options{
			Workers:   cfg.Assets.DecodeWorkers,
			QueueSize: cfg.Assets.DecodeQueue,
			DebugLog:  cfg.Assets.DebugLogTextures,
		},
		log,
	)
	defer cache.Close()

	// 6. Lua behaviors
	luaEngine, err := scripting.NewEngine(cfg.Scripts.Dir, log)
	if err != nil {
		return fmt.Errorf("lua engine: %w", err)
	}
	defer luaEngine.Close()
	printStat("lua behaviors", len(luaEngine.Behaviors()))

	// 7. Render device
	dev, input, err := openDevice(cfg.Render, log)
	if err != nil {
		return fmt.Errorf("render device: %w", err)
	}
	if input != nil {
		defer input.Close()
	}

	// 8. Scene
	bus := event.NewBus()
	m := scene.NewManager(scene.Config{
		VirtualWidth:  cfg.Render.VirtualWidth,
		VirtualHeight: cfg.Render.VirtualHeight,
		CullRadius:    cfg.Render.CullRadius,
		ClearColor:    cfg.Render.ClearColor,
	}, dev, bus, log)
	if err := m.InitLayers(max(cfg.Render.LayerCount, layerTable.LayerCount())); err != nil {
		dev.Close()
		return fmt.Errorf("init layers: %w", err)
	}
	if err := layerTable.Apply(m); err != nil {
		dev.Close()
		return fmt.Errorf("apply layer table: %w", err)
	}
	m.AttachResources(cache)
	luaEngine.Bind(m)
	defer func() {
		if err := m.Shutdown(); err != nil {
			log.Error("scene shutdown", zap.Error(err))
		}
	}()

	// 9. Populate the scene
	spawner := &stage.Spawner{Scene: m, Cache: cache, Scripts: luaEngine, Log: log}
	if err := spawner.Preload(spawnList); err != nil {
		return fmt.Errorf("preload textures: %w", err)
	}
	printStat("textures", cache.Len())

	restored, err := restoreSnapshot(snapshots, spawner, cfg.Database.SceneName, log)
	if err != nil {
		return err
	}
	if !restored {
		n, err := spawner.SpawnAll(spawnList)
		if err != nil {
			log.Warn("some spawn entries failed", zap.Error(err))
		}
		printStat("objects spawned", n)
	}
	fmt.Println()

	// 10. Create systems and register with runner
	runner := coresys.NewRunner()
	var inputSys *system.InputSystem
	if input != nil {
		inputSys = system.NewInputSystem(m, input)
		runner.Register(inputSys)
	}
	runner.Register(system.NewEventSystem(bus))
	runner.Register(system.NewUpdateSystem(m))
	runner.Register(system.NewRenderSystem(m, scene.FullRange, 300, log))
	runner.Register(system.NewCleanupSystem(m, cache, log))

	// 11. Start frame loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Render.FrameRate)
	defer ticker.Stop()

	printSection("ready")
	printReady(fmt.Sprintf("frame loop started (frame: %s)", cfg.Render.FrameRate))
	fmt.Println()

	stop := func(reason string) error {
		log.Info("stopping", zap.String("reason", reason), zap.Uint64("frames", m.Frame()))
		saveSnapshot(snapshots, m, cfg.Database.SceneName, log)
		return nil
	}

	for {
		select {
		case <-ticker.C:
			if err := runner.Tick(cfg.Render.FrameRate); err != nil {
				return fmt.Errorf("frame %d: %w", m.Frame(), err)
			}
			if inputSys != nil && inputSys.QuitRequested() {
				return stop("quit key")
			}
			if cfg.Render.MaxFrames > 0 && m.Frame() >= uint64(cfg.Render.MaxFrames) {
				return stop("max frames")
			}
		case sig := <-shutdownCh:
			return stop(sig.String())
		}
	}
}

// openDevice creates the configured render device. The terminal device also
// returns its input source.
func openDevice(cfg config.RenderConfig, log *zap.Logger) (device.Device, *terminal.Input, error) {
	if cfg.Device == "headless" {
		printOK("headless capture device")
		return device.NewCapture(), nil, nil
	}
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, nil, fmt.Errorf("open screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, nil, fmt.Errorf("init screen: %w", err)
	}
	dev, err := terminal.New(screen, cfg.CellWidth, cfg.CellHeight, log)
	if err != nil {
		screen.Fini()
		return nil, nil, err
	}
	return dev, terminal.NewInput(dev, cfg.CameraStep), nil
}

// restoreSnapshot replaces the spawn list with the saved scene when one
// exists. It reports whether the scene was restored.
func restoreSnapshot(repo *persist.SnapshotRepo, spawner *stage.Spawner, name string, log *zap.Logger) (bool, error) {
	if repo == nil {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	placements, err := repo.Load(ctx, name)
	if errors.Is(err, persist.ErrSnapshotNotFound) {
		log.Info("no saved scene, using spawn list", zap.String("scene", name))
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load snapshot: %w", err)
	}
	n, err := spawner.Restore(placements)
	if err != nil {
		log.Warn("snapshot restored partially", zap.Error(err))
	}
	printStat("objects restored", n)
	return true, nil
}

func saveSnapshot(repo *persist.SnapshotRepo, m *scene.Manager, name string, log *zap.Logger) {
	if repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	placements := stage.Snapshot(m)
	if err := repo.Save(ctx, name, placements); err != nil {
		log.Error("save snapshot", zap.String("scene", name), zap.Error(err))
		return
	}
	log.Info("scene saved", zap.String("scene", name), zap.Int("objects", len(placements)))
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}
	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}
