package organize

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"github.com/cognicore/promptsort/pkg/promptsort/scan"
	"github.com/cognicore/promptsort/pkg/promptsort/score"
)

// ScoreOrganizer moves files whose name carries a score tag into
// Target/评分NN folders.
type ScoreOrganizer struct {
	Target     string
	Scan       scan.Options
	Protection Protection
	DryRun     bool
	Logger     *log.Logger
}

// Organize scans root and moves files whose score is in selected. Only an
// invalid root is returned as an error.
func (o *ScoreOrganizer) Organize(ctx context.Context, root string, selected map[int]bool) (*Result, error) {
	logger := o.Logger
	if logger == nil {
		logger = log.Default()
	}
	files, err := scan.Discover(root, o.Scan)
	if err != nil {
		return nil, err
	}

	res := newResult(o.DryRun, len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.add(o.organizeOne(path, selected, logger))
	}
	return res, nil
}

func (o *ScoreOrganizer) organizeOne(path string, selected map[int]bool, logger *log.Logger) Action {
	act := Action{From: path}
	if o.Protection.Protected(path) {
		act.Status = StatusSkippedProtected
		return act
	}
	n, ok := score.ExtractScore(filepath.Base(path))
	if !ok {
		act.Status = StatusSkippedNoScore
		return act
	}
	if !selected[n] {
		act.Status = StatusSkippedOutRange
		return act
	}

	targetDir := filepath.Join(o.Target, score.DirName(n))
	act.To = filepath.Join(targetDir, filepath.Base(path))
	switch {
	case samePath(path, act.To):
		act.Status = StatusSkippedSamePath
	case exists(act.To):
		act.Status = StatusSkippedExists
		logger.Printf("skip %s: %s already exists", path, act.To)
	case o.DryRun:
		act.Status = StatusMoved
		logger.Printf("would move %s -> %s", path, act.To)
	default:
		if err := os.MkdirAll(targetDir, 0755); err != nil {
			act.Status, act.Err = StatusFailed, err
			break
		}
		if err := moveFile(path, act.To); err != nil {
			act.Status, act.Err = StatusFailed, err
			logger.Printf("move %s: %v", path, err)
			break
		}
		act.Status = StatusMoved
	}
	return act
}
