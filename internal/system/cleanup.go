package system

import (
	"time"

	"github.com/l1jgo/stage/internal/asset"
	coresys "github.com/l1jgo/stage/internal/core/system"
	"github.com/l1jgo/stage/internal/scene"
	"go.uber.org/zap"
)

// CleanupSystem drains anything queued after the render pass and inserts
// textures decoded in the background. Phase 4 (Cleanup).
type CleanupSystem struct {
	scene *scene.Manager
	cache *asset.Cache
	log   *zap.Logger
}

func NewCleanupSystem(m *scene.Manager, cache *asset.Cache, log *zap.Logger) *CleanupSystem {
	return &CleanupSystem{scene: m, cache: cache, log: log}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) error {
	if err := s.scene.ClearGarbage(); err != nil {
		return err
	}
	if s.cache != nil {
		if n := s.cache.Sync(); n > 0 {
			s.log.Debug("textures decoded", zap.Int("count", n), zap.Int("pending", s.cache.Pending()))
		}
	}
	return nil
}
