package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/cognicore/promptsort/pkg/promptsort/config"
	"github.com/cognicore/promptsort/pkg/promptsort/organize"
	"github.com/cognicore/promptsort/pkg/promptsort/pipeline"
	"github.com/cognicore/promptsort/pkg/promptsort/report"
	"github.com/cognicore/promptsort/pkg/promptsort/scan"
	"github.com/cognicore/promptsort/pkg/promptsort/score"
	"github.com/cognicore/promptsort/pkg/promptsort/stylewords"
)

const usage = `usage: promptsort <command> [flags]

commands:
  scan             extract keywords and write reports
  tag              rename files with keyword suffixes
  categorize       move files into keyword folders
  styles           learn style phrases and report them
  archive          move files of top-level folders into a dated archive
  organize-scores  move score-tagged files into score folders
`

type options struct {
	configPath string
	root       string
	execute    bool
	reportDir  string
	scores     string
	target     string
	scoreTag   bool
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	command := os.Args[1]

	fs := flag.NewFlagSet(command, flag.ExitOnError)
	var opts options
	fs.StringVar(&opts.configPath, "config", "", "YAML config file (optional)")
	fs.StringVar(&opts.root, "root", "", "Image directory (required)")
	fs.BoolVar(&opts.execute, "x", false, "Execute file operations (dry run otherwise)")
	fs.StringVar(&opts.reportDir, "report", "", "Report directory (overrides config)")
	fs.StringVar(&opts.scores, "scores", "80-99", "Score range for organize-scores")
	fs.StringVar(&opts.target, "target", "", "Target directory for organize-scores (default: root) or archive (default: root/<archive_folder>)")
	fs.BoolVar(&opts.scoreTag, "score-tag", false, "Append the score tag when renaming")
	fs.Parse(os.Args[2:])

	if opts.root == "" {
		log.Fatal("--root required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, command, opts, log.Default(), os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func loadConfig(opts options) (config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return config.Config{}, fmt.Errorf("load config: %w", err)
		}
	}
	if opts.reportDir != "" {
		cfg.ReportDir = opts.reportDir
	}
	return cfg, nil
}

func run(ctx context.Context, command string, opts options, logger *log.Logger, out io.Writer) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	switch command {
	case "organize-scores":
		return organizeScores(ctx, cfg, opts, logger, out)
	case "archive":
		return archive(ctx, cfg, opts, logger, out)
	case "scan", "tag", "categorize", "styles":
	default:
		return fmt.Errorf("unknown command %q\n%s", command, usage)
	}

	started := time.Now()
	paths, err := scan.Discover(opts.root, scan.Options{Extensions: cfg.Extensions, SkipDirs: cfg.SkipDirs})
	if err != nil {
		return err
	}
	logger.Printf("found %d images under %s", len(paths), opts.root)

	if command == "styles" {
		cfg.LearnStyles = true
	}
	runner, err := pipeline.FromConfig(cfg, nil, logger)
	if err != nil {
		return err
	}
	batch, err := runner.Run(ctx, paths)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "pipeline: %s\n", batch.Summary)

	rep := report.NewRun(command, opts.root, started, batch)
	dryRun := !opts.execute

	switch command {
	case "tag":
		r := &organize.Renamer{
			Delimiter:       cfg.KeywordDelimiter,
			TaggingKeywords: cfg.TaggingKeywords,
			ScoreTag:        opts.scoreTag,
			DryRun:          dryRun,
			Logger:          logger,
		}
		res, err := r.Rename(ctx, batch.Records)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "tag: %s\n", res)
	case "categorize":
		c := &organize.Categorizer{
			Unclassified: cfg.UnclassifiedFolder,
			Protection:   organize.Protection{Exact: cfg.ProtectedFolders, Fuzzy: cfg.FuzzyProtected},
			DryRun:       dryRun,
			Workers:      cfg.Workers,
			Logger:       logger,
		}
		res, err := c.Move(ctx, batch.Records, opts.root)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "categorize: %s\n", res)
	case "styles":
		rep.Refined = stylewords.Refine(batch.Styles, cfg.NoiseSuffixes, cfg.StyleThresholds())
		printStyles(out, "learned", batch.Styles)
		printStyles(out, "refined", rep.Refined)
	}

	return writeReports(ctx, cfg, rep, logger)
}

func organizeScores(ctx context.Context, cfg config.Config, opts options, logger *log.Logger, out io.Writer) error {
	selected, err := score.ParseRange(opts.scores)
	if err != nil {
		return err
	}
	target := opts.target
	if target == "" {
		target = opts.root
	}
	o := &organize.ScoreOrganizer{
		Target:     target,
		Scan:       scan.Options{Extensions: cfg.Extensions, SkipDirs: cfg.SkipDirs},
		Protection: organize.Protection{Exact: cfg.ProtectedFolders, Fuzzy: cfg.FuzzyProtected},
		DryRun:     !opts.execute,
		Logger:     logger,
	}
	res, err := o.Organize(ctx, opts.root, selected)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "organize-scores: %s\n", res)
	return nil
}

func archive(ctx context.Context, cfg config.Config, opts options, logger *log.Logger, out io.Writer) error {
	target := opts.target
	if target == "" {
		target = filepath.Join(opts.root, cfg.ArchiveFolder)
	}
	a := &organize.Archiver{
		Target:   target,
		SkipDirs: cfg.SkipDirs,
		Protection: organize.Protection{
			Exact: cfg.ProtectedFolders,
			Fuzzy: append(append([]string{}, cfg.FuzzyProtected...), cfg.ArchiveProtected...),
		},
		DryRun:  !opts.execute,
		Workers: cfg.Workers,
		Logger:  logger,
	}
	res, err := a.Archive(ctx, opts.root)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "archive: %s\n", res)
	return nil
}

func printStyles(out io.Writer, kind string, t stylewords.Table) {
	fmt.Fprintf(out, "%s style phrases: %d\n", kind, t.Len())
	for _, p := range t.Phrases() {
		fmt.Fprintf(out, "  %5d  %s\n", p.Count, p.Text)
	}
}

func writeReports(ctx context.Context, cfg config.Config, run report.Run, logger *log.Logger) error {
	var sinks report.Multi
	if cfg.ReportDir != "" {
		xlsx := report.XLSXSink{Dir: cfg.ReportDir}
		sinks = append(sinks, xlsx)
		logger.Printf("report: %s", xlsx.Path(run))
	}
	if cfg.HistoryDB != "" {
		db, err := report.OpenSQLite(ctx, cfg.HistoryDB)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer db.Close()
		sinks = append(sinks, db)
	}
	if err := sinks.Write(ctx, run); err != nil {
		return fmt.Errorf("write reports: %w", err)
	}
	return nil
}
