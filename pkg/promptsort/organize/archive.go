package organize

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cognicore/promptsort/internal/workerpool"
	"github.com/cognicore/promptsort/pkg/promptsort/naming"
)

// ArchiveDateLayout names the dated folders inside the archive.
const ArchiveDateLayout = "2006-01-02"

// Archiver moves the files of every top-level folder under a root into
// Target/<yyyy-mm-dd>. Files directly in the root are left alone.
type Archiver struct {
	Target     string
	SkipDirs   []string
	Protection Protection
	DryRun     bool
	Workers    int
	Logger     *log.Logger
	Now        func() time.Time // defaults to time.Now
}

// DatedDir returns the folder files archived at t go to.
func (a *Archiver) DatedDir(t time.Time) string {
	return filepath.Join(a.Target, t.Format(ArchiveDateLayout))
}

// Archive scans root and archives the files it finds. Only an unreadable
// root is returned as an error, apart from cancellation.
func (a *Archiver) Archive(ctx context.Context, root string) (*Result, error) {
	logger := a.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	if a.Target == "" {
		return nil, fmt.Errorf("archive: target folder is required")
	}

	files, skipped, err := a.collect(root, logger)
	if err != nil {
		return nil, err
	}

	targetDir := a.DatedDir(now())
	registry := naming.NewRegistry()
	actions := make([]Action, len(files))
	err = workerpool.Each(ctx, a.Workers, len(files), func(ctx context.Context, i int) {
		actions[i] = a.archiveOne(files[i], targetDir, registry, logger)
	})

	res := newResult(a.DryRun, len(skipped)+len(files))
	for _, act := range skipped {
		res.add(act)
	}
	for _, act := range actions {
		if act.Status != "" {
			res.add(act)
		}
	}
	return res, err
}

// collect lists the files of the top-level folders under root. Protected
// folders are reported as one skipped action each.
func (a *Archiver) collect(root string, logger *log.Logger) ([]string, []Action, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, nil, fmt.Errorf("archive: %w", err)
	}

	var files []string
	var skipped []Action
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(root, e.Name())
		if samePath(dir, a.Target) || a.skipDir(e.Name()) {
			continue
		}
		// Protected checks the parent of a path, so probe with a child.
		if a.Protection.Protected(filepath.Join(dir, "_")) {
			logger.Printf("skip protected folder %s", dir)
			skipped = append(skipped, Action{From: dir, Status: StatusSkippedProtected})
			continue
		}

		children, err := os.ReadDir(dir)
		if err != nil {
			logger.Printf("archive: read %s: %v", dir, err)
			skipped = append(skipped, Action{From: dir, Status: StatusFailed, Err: err})
			continue
		}
		for _, c := range children {
			if c.Type().IsRegular() {
				files = append(files, filepath.Join(dir, c.Name()))
			}
		}
	}
	return files, skipped, nil
}

func (a *Archiver) skipDir(name string) bool {
	for _, s := range a.SkipDirs {
		if strings.EqualFold(name, s) {
			return true
		}
	}
	return false
}

func (a *Archiver) archiveOne(path, targetDir string, registry *naming.Registry, logger *log.Logger) Action {
	act := Action{From: path}
	// checked again per file before anything moves
	if a.Protection.Protected(path) {
		act.Status = StatusSkippedProtected
		return act
	}
	if !exists(path) {
		act.Status, act.Err = StatusFailed, fmt.Errorf("%s: %w", path, os.ErrNotExist)
		return act
	}

	name, conflict := registry.Reserve(targetDir, filepath.Base(path), exists)
	if conflict {
		logger.Printf("name conflict in %s: using %s", targetDir, name)
	}
	act.To = filepath.Join(targetDir, name)

	if a.DryRun {
		act.Status = StatusArchived
		logger.Printf("would archive %s -> %s", path, act.To)
		return act
	}
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		registry.Release(targetDir, name)
		act.Status, act.Err = StatusFailed, err
		logger.Printf("archive %s: %v", path, err)
		return act
	}
	if err := moveFile(path, act.To); err != nil {
		registry.Release(targetDir, name)
		act.Status, act.Err = StatusFailed, err
		logger.Printf("archive %s: %v", path, err)
		return act
	}
	act.Status = StatusArchived
	return act
}
