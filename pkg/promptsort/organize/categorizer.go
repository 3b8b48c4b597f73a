package organize

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"github.com/cognicore/promptsort/internal/workerpool"
	"github.com/cognicore/promptsort/pkg/promptsort/naming"
	"github.com/cognicore/promptsort/pkg/promptsort/pipeline"
	"github.com/cognicore/promptsort/pkg/promptsort/tagclean"
)

// Categorizer moves each image into a folder named after its first core
// keyword, or into the unclassified folder when it has none.
type Categorizer struct {
	Unclassified string
	Protection   Protection
	DryRun       bool
	Workers      int
	Logger       *log.Logger
}

// Folder returns the keyword folder name for rec, or "" when rec has no
// core keyword.
func Folder(rec *pipeline.Record) string {
	for _, kw := range tagclean.Split(rec.CoreKeywords) {
		if kw = naming.SafeComponent(kw); kw != "" {
			return kw
		}
	}
	return ""
}

// Move relocates records under root. Name conflicts are resolved with a
// registry scoped to this call. Actions keep the order of records.
func (c *Categorizer) Move(ctx context.Context, records []*pipeline.Record, root string) (*Result, error) {
	logger := c.Logger
	if logger == nil {
		logger = log.Default()
	}
	registry := naming.NewRegistry()
	actions := make([]Action, len(records))

	err := workerpool.Each(ctx, c.Workers, len(records), func(ctx context.Context, i int) {
		actions[i] = c.moveOne(records[i], root, registry, logger)
	})

	res := newResult(c.DryRun, len(records))
	for _, a := range actions {
		// empty when cancelled before the record was reached
		if a.Status != "" {
			res.add(a)
		}
	}
	return res, err
}

func (c *Categorizer) moveOne(rec *pipeline.Record, root string, registry *naming.Registry, logger *log.Logger) Action {
	act := Action{From: rec.Path}
	if !rec.OK() {
		act.Status = StatusSkippedFailed
		return act
	}
	if c.Protection.Protected(rec.Path) {
		act.Status = StatusSkippedProtected
		logger.Printf("skip protected %s", rec.Path)
		return act
	}

	folder, status := Folder(rec), StatusMoved
	if folder == "" {
		folder, status = c.Unclassified, StatusUnclassified
	}
	targetDir := filepath.Join(root, folder)
	if samePath(rec.Folder(), targetDir) {
		act.Status = StatusSkippedSamePath
		return act
	}

	name, conflict := registry.Reserve(targetDir, filepath.Base(rec.Path), exists)
	if conflict {
		logger.Printf("name conflict in %s: using %s", targetDir, name)
	}
	act.To = filepath.Join(targetDir, name)

	if c.DryRun {
		act.Status = status
		logger.Printf("would move %s -> %s", rec.Path, act.To)
		return act
	}
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		registry.Release(targetDir, name)
		act.Status, act.Err = StatusFailed, err
		logger.Printf("move %s: %v", rec.Path, err)
		return act
	}
	if err := moveFile(rec.Path, act.To); err != nil {
		registry.Release(targetDir, name)
		act.Status, act.Err = StatusFailed, err
		logger.Printf("move %s: %v", rec.Path, err)
		return act
	}
	act.Status = status
	rec.Path = act.To
	return act
}
