package system

import (
	"time"

	coresys "github.com/l1jgo/stage/internal/core/system"
	"github.com/l1jgo/stage/internal/scene"
	"go.uber.org/zap"
)

// RenderSystem draws one frame of the configured layer range.
// Phase 3 (Render). Its error stops the loop.
type RenderSystem struct {
	scene     *scene.Manager
	rng       scene.Range
	log       *zap.Logger
	statEvery uint64
}

// NewRenderSystem renders rng each frame. When statEvery is non-zero the
// frame stats are logged at debug level every statEvery frames.
func NewRenderSystem(m *scene.Manager, rng scene.Range, statEvery uint64, log *zap.Logger) *RenderSystem {
	return &RenderSystem{scene: m, rng: rng, statEvery: statEvery, log: log}
}

func (s *RenderSystem) Phase() coresys.Phase { return coresys.PhaseRender }

func (s *RenderSystem) Update(_ time.Duration) error {
	if err := s.scene.Render(s.rng); err != nil {
		return err
	}
	if s.statEvery > 0 && s.scene.Frame()%s.statEvery == 0 {
		st := s.scene.Stats()
		s.log.Debug("frame stats",
			zap.Uint64("frame", s.scene.Frame()),
			zap.Int("total", st.Total),
			zap.Int("processed", st.Processed),
			zap.Int("rendered", st.Rendered),
			zap.Int("cache_hits", st.CacheHits),
			zap.Int("cache_rebuilds", st.CacheRebuilds),
		)
	}
	return nil
}
