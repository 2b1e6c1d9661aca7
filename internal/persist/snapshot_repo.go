package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// ErrSnapshotNotFound is returned by Load for an unknown scene name.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Placement is one saved object: where it sat in the scene and enough of
// its state to spawn it again.
type Placement struct {
	Layer   int
	Slot    int
	Kind    string
	Texture string
	Glyph   string
	X, Y    float32
	Width   float32
	Height  float32
	Radius  float32
	Pass    int
	Static  bool
	Visible bool
	Script  string
}

// SnapshotInfo summarizes one saved scene.
type SnapshotInfo struct {
	Name    string
	Objects int
	SavedAt time.Time
}

var placementColumns = []string{
	"scene", "seq", "layer", "slot", "kind", "texture", "glyph",
	"x", "y", "width", "height", "radius", "pass", "is_static", "visible", "script",
}

// SnapshotRepo stores scene snapshots.
type SnapshotRepo struct {
	db *DB
}

func NewSnapshotRepo(db *DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// Save replaces the snapshot called scene in a single transaction.
func (r *SnapshotRepo) Save(ctx context.Context, scene string, placements []Placement) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("snapshot begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO scenes (name, object_count, saved_at) VALUES ($1, $2, now())
		 ON CONFLICT (name) DO UPDATE SET object_count = EXCLUDED.object_count, saved_at = EXCLUDED.saved_at`,
		scene, len(placements),
	); err != nil {
		return fmt.Errorf("snapshot upsert scene: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM scene_objects WHERE scene = $1`, scene); err != nil {
		return fmt.Errorf("snapshot clear: %w", err)
	}

	rows := make([][]any, len(placements))
	for i, p := range placements {
		rows[i] = []any{
			scene, i, p.Layer, p.Slot, p.Kind, p.Texture, p.Glyph,
			p.X, p.Y, p.Width, p.Height, p.Radius, p.Pass, p.Static, p.Visible, p.Script,
		}
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"scene_objects"}, placementColumns, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("snapshot copy: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("snapshot commit: %w", err)
	}
	r.db.log.Debug("snapshot saved", zap.String("scene", scene), zap.Int("objects", len(placements)))
	return nil
}

// Load returns the placements of scene in saved order.
func (r *SnapshotRepo) Load(ctx context.Context, scene string) ([]Placement, error) {
	var exists bool
	if err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM scenes WHERE name = $1)`, scene,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("snapshot lookup: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("scene %q: %w", scene, ErrSnapshotNotFound)
	}

	rows, err := r.db.Pool.Query(ctx,
		`SELECT layer, slot, kind, texture, glyph, x, y, width, height, radius,
		        pass, is_static, visible, script
		 FROM scene_objects WHERE scene = $1 ORDER BY seq`, scene)
	if err != nil {
		return nil, fmt.Errorf("snapshot query: %w", err)
	}
	defer rows.Close()

	var out []Placement
	for rows.Next() {
		var p Placement
		if err := rows.Scan(
			&p.Layer, &p.Slot, &p.Kind, &p.Texture, &p.Glyph, &p.X, &p.Y, &p.Width, &p.Height, &p.Radius,
			&p.Pass, &p.Static, &p.Visible, &p.Script,
		); err != nil {
			return nil, fmt.Errorf("snapshot scan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// List returns every saved scene, most recent first.
func (r *SnapshotRepo) List(ctx context.Context) ([]SnapshotInfo, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT name, object_count, saved_at FROM scenes ORDER BY saved_at DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("snapshot list: %w", err)
	}
	defer rows.Close()

	var out []SnapshotInfo
	for rows.Next() {
		var s SnapshotInfo
		if err := rows.Scan(&s.Name, &s.Objects, &s.SavedAt); err != nil {
			return nil, fmt.Errorf("snapshot list scan: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Delete removes a snapshot. Deleting an unknown scene is not an error.
func (r *SnapshotRepo) Delete(ctx context.Context, scene string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM scenes WHERE name = $1`, scene)
	return err
}
