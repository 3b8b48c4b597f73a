// Package pipeline runs the per-image keyword pipeline over a batch:
// extraction and cleaning in parallel, then style learning and TF-IDF
// ranking over the whole corpus.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/cognicore/promptsort/internal/workerpool"
	"github.com/cognicore/promptsort/pkg/promptsort/config"
	"github.com/cognicore/promptsort/pkg/promptsort/metadata"
	"github.com/cognicore/promptsort/pkg/promptsort/naming"
	"github.com/cognicore/promptsort/pkg/promptsort/score"
	"github.com/cognicore/promptsort/pkg/promptsort/stylewords"
	"github.com/cognicore/promptsort/pkg/promptsort/tagclean"
	"github.com/cognicore/promptsort/pkg/promptsort/tfidf"
)

// Options configures a Runner.
type Options struct {
	Collector   metadata.Collector
	Cleaner     tagclean.TextCleaner
	Scorer      *score.Scorer
	LearnStyles bool
	Thresholds  stylewords.Thresholds
	TopN        int
	Workers     int
	Logger      *log.Logger
}

// Runner executes one batch at a time. It keeps no state between runs.
type Runner struct {
	collector   metadata.Collector
	cleaner     tagclean.TextCleaner
	scorer      *score.Scorer
	learnStyles bool
	thresholds  stylewords.Thresholds
	topN        int
	workers     int
	logger      *log.Logger
}

// New creates a Runner. A nil Collector reads files from disk, a nil
// Cleaner removes nothing but weights, a nil Logger uses log.Default().
func New(opts Options) (*Runner, error) {
	if opts.TopN < 1 {
		return nil, fmt.Errorf("pipeline: top n must be >= 1, got %d", opts.TopN)
	}
	if opts.LearnStyles {
		if err := opts.Thresholds.Validate(); err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
	}
	r := &Runner{
		collector:   opts.Collector,
		cleaner:     opts.Cleaner,
		scorer:      opts.Scorer,
		learnStyles: opts.LearnStyles,
		thresholds:  opts.Thresholds,
		topN:        opts.TopN,
		workers:     opts.Workers,
		logger:      opts.Logger,
	}
	if r.collector == nil {
		r.collector = metadata.FileCollector{}
	}
	if r.cleaner == nil {
		r.cleaner = tagclean.NewCleaner(nil)
	}
	if r.logger == nil {
		r.logger = log.Default()
	}
	return r, nil
}

// FromConfig wires a Runner from a loaded configuration.
func FromConfig(cfg config.Config, collector metadata.Collector, logger *log.Logger) (*Runner, error) {
	return New(Options{
		Collector:   collector,
		Cleaner:     tagclean.NewCleaner(cfg.StopPhrases),
		Scorer:      score.NewScorer(cfg.RatingMap, cfg.KeywordWeights, cfg.NeutralScore),
		LearnStyles: cfg.LearnStyles,
		Thresholds:  cfg.StyleThresholds(),
		TopN:        cfg.TopN,
		Workers:     cfg.Workers,
		Logger:      logger,
	})
}

// Batch is the outcome of one run.
type Batch struct {
	Records []*Record
	Styles  stylewords.Table
	Summary Summary
}

// Succeeded returns the records that reached Annotated.
func (b *Batch) Succeeded() []*Record {
	var out []*Record
	for _, r := range b.Records {
		if r.OK() {
			out = append(out, r)
		}
	}
	return out
}

// Summary counts the outcome of a batch.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Reasons   map[string]int
}

func (s Summary) String() string {
	out := fmt.Sprintf("total=%d succeeded=%d failed=%d", s.Total, s.Succeeded, s.Failed)
	if len(s.Reasons) == 0 {
		return out
	}
	reasons := make([]string, 0, len(s.Reasons))
	for k := range s.Reasons {
		reasons = append(reasons, k)
	}
	sort.Strings(reasons)
	for _, k := range reasons {
		out += fmt.Sprintf(" %s=%d", k, s.Reasons[k])
	}
	return out
}

// Run processes paths. Per-file failures are recorded on the records and
// never abort the batch. The returned error is non-nil only when ctx was
// cancelled; the batch is still returned with the unfinished records
// marked failed.
func (r *Runner) Run(ctx context.Context, paths []string) (*Batch, error) {
	batch := &Batch{Records: make([]*Record, len(paths))}
	for i, p := range paths {
		batch.Records[i] = NewRecord(p)
	}

	runErr := workerpool.Each(ctx, r.workers, len(paths), func(ctx context.Context, i int) {
		r.extract(ctx, batch.Records[i])
	})
	if runErr == nil {
		runErr = r.annotate(ctx, batch)
	}
	if runErr != nil {
		for _, rec := range batch.Records {
			if rec.OK() && rec.State != Annotated {
				rec.fail(ReasonCancelled, runErr)
			}
		}
	}

	batch.Summary = summarize(batch.Records)
	for _, rec := range batch.Records {
		if !rec.OK() {
			r.logger.Printf("%s: %s: %v", rec.Path, rec.Reason, rec.Err)
		}
	}
	return batch, runErr
}

func (r *Runner) extract(ctx context.Context, rec *Record) {
	info, err := r.collector.Extract(ctx, rec.Path)
	switch {
	case errors.Is(err, metadata.ErrNoMetadata):
		rec.fail(ReasonNoMetadata, err)
		return
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		rec.fail(ReasonCancelled, err)
		return
	case err != nil:
		rec.fail(ReasonUnreadable, err)
		return
	}

	rec.Info = info
	rec.RawTags = info.Positive
	r.step(rec, MetadataExtracted)

	rec.CleanedTags = r.cleaner.Clean(rec.RawTags)
	r.step(rec, Cleaned)
}

// annotate runs the corpus-wide steps over the records that survived
// extraction.
func (r *Runner) annotate(ctx context.Context, batch *Batch) error {
	live := batch.Succeeded()
	corpus := make([]string, len(live))
	for i, rec := range live {
		corpus[i] = rec.CleanedTags
	}

	core := corpus
	if r.learnStyles {
		table, err := stylewords.Learn(ctx, corpus, r.thresholds)
		if err != nil {
			return err
		}
		batch.Styles = table
		if table.Len() > 0 {
			stripper := stylewords.NewStripper(table)
			core = make([]string, len(corpus))
			for i, doc := range corpus {
				core[i] = stripper.Strip(doc)
			}
		}
	}

	ranking, err := tfidf.Ranker{TopN: r.topN, Workers: r.workers}.Rank(ctx, core)
	if err != nil {
		return err
	}

	for i, rec := range live {
		rec.CoreKeywords = SafeKeywords(core[i])
		for _, k := range ranking.KeywordsFor(i) {
			if term := naming.SafeComponent(k.Term); term != "" {
				rec.Keywords = append(rec.Keywords, tfidf.Keyword{Term: term, Weight: k.Weight})
			}
		}
		r.step(rec, Ranked)

		if r.scorer != nil {
			rec.Score = r.scorer.Score(rec.Folder(), rec.CleanedTags)
		}
		r.step(rec, Annotated)
	}
	return nil
}

func (r *Runner) step(rec *Record, to State) {
	if err := rec.advance(to); err != nil {
		r.logger.Printf("pipeline: %v", err)
	}
}

// SafeKeywords makes every comma-separated keyword filename-safe and
// rejoins them with the cleaner's separator.
func SafeKeywords(text string) string {
	var kept []string
	for _, tok := range tagclean.Split(text) {
		if tok = naming.SafeComponent(tok); tok != "" {
			kept = append(kept, tok)
		}
	}
	return strings.Join(kept, tagclean.Separator)
}

func summarize(records []*Record) Summary {
	s := Summary{Total: len(records), Reasons: make(map[string]int)}
	for _, rec := range records {
		if rec.OK() {
			s.Succeeded++
			continue
		}
		s.Failed++
		s.Reasons[rec.Reason]++
	}
	return s
}
