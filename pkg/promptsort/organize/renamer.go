package organize

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"github.com/cognicore/promptsort/pkg/promptsort/naming"
	"github.com/cognicore/promptsort/pkg/promptsort/pipeline"
	"github.com/cognicore/promptsort/pkg/promptsort/score"
)

// Renamer appends keyword (and optionally score) tags to filenames in place.
type Renamer struct {
	Delimiter       string
	TaggingKeywords []string
	ScoreTag        bool
	DryRun          bool
	Logger          *log.Logger
}

// TargetName computes the tagged filename for rec.
func (r *Renamer) TargetName(rec *pipeline.Record) string {
	name := filepath.Base(rec.Path)
	if r.ScoreTag {
		name = score.StripTag(name)
	}
	matched := naming.MatchKeywords(rec.RawTags, r.TaggingKeywords)
	name = naming.TaggedName(name, matched, rec.Terms(), r.Delimiter)
	if r.ScoreTag {
		name = score.TagFilename(name, rec.Score)
	}
	return name
}

// Rename renames every successful record. Renamed records get their Path
// updated unless DryRun is set.
func (r *Renamer) Rename(ctx context.Context, records []*pipeline.Record) (*Result, error) {
	logger := r.Logger
	if logger == nil {
		logger = log.Default()
	}
	res := newResult(r.DryRun, len(records))

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if !rec.OK() {
			res.add(Action{From: rec.Path, Status: StatusSkippedFailed})
			continue
		}

		target := filepath.Join(rec.Folder(), r.TargetName(rec))
		act := Action{From: rec.Path, To: target}
		switch {
		case samePath(rec.Path, target):
			act.Status = StatusSkippedSamePath
		case exists(target):
			act.Status = StatusSkippedExists
			logger.Printf("skip rename %s: %s already exists", rec.Path, filepath.Base(target))
		case r.DryRun:
			act.Status = StatusRenamed
			logger.Printf("would rename %s -> %s", rec.Path, filepath.Base(target))
		default:
			if err := os.Rename(rec.Path, target); err != nil {
				act.Status, act.Err = StatusFailed, err
				logger.Printf("rename %s: %v", rec.Path, err)
				break
			}
			act.Status = StatusRenamed
			rec.Path = target
		}
		res.add(act)
	}
	return res, nil
}
