package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/promptsort/pkg/promptsort/stylewords"
)

// ErrInvalid marks configuration values that are out of range.
var ErrInvalid = errors.New("invalid configuration")

// Config is the run configuration loaded from YAML.
type Config struct {
	// Keyword pipeline
	StopPhrases      []string `yaml:"stop_phrases"`
	StopPhrasesFile  string   `yaml:"stop_phrases_file"`
	LearnStyles      bool     `yaml:"learn_styles"`
	AnchorToken      string   `yaml:"anchor_token"`
	MinOccurrences   int      `yaml:"min_occurrences"`
	MinPhraseLength  int      `yaml:"min_phrase_length"`
	NoiseSuffixes    []string `yaml:"noise_suffixes"`
	NoiseFile        string   `yaml:"noise_suffixes_file"`
	TopN             int      `yaml:"top_n"`
	KeywordDelimiter string   `yaml:"keyword_delimiter"`
	Workers          int      `yaml:"workers"`

	// Scanning
	Extensions []string `yaml:"extensions"`
	SkipDirs   []string `yaml:"skip_dirs"`

	// Sinks
	TaggingKeywords    []string `yaml:"tagging_keywords"`
	ProtectedFolders   []string `yaml:"protected_folders"`
	FuzzyProtected     []string `yaml:"fuzzy_protected"`
	UnclassifiedFolder string   `yaml:"unclassified_folder"`
	ArchiveFolder      string   `yaml:"archive_folder"`
	ArchiveProtected   []string `yaml:"archive_protected"`
	ReportDir          string   `yaml:"report_dir"`
	HistoryDB          string   `yaml:"history_db"`

	// Scoring
	RatingMap      map[string]float64 `yaml:"rating_map"`
	KeywordWeights map[string]float64 `yaml:"keyword_weights"`
	NeutralScore   float64            `yaml:"neutral_score"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		StopPhrases: []string{
			"sexy and cute,",
			"dynamic pose, sexy pose,",
			"very awa,absurdres,newest,very aesthetic,depth of field,",
		},
		LearnStyles:      true,
		AnchorToken:      "1girl",
		MinOccurrences:   10,
		MinPhraseLength:  30,
		TopN:             5,
		KeywordDelimiter: "___",
		Extensions:       []string{".png", ".jpg", ".jpeg", ".webp", ".gif", ".bmp"},
		SkipDirs:         []string{".bf"},
		TaggingKeywords: []string{
			"azur_lane", "blue_archive", "genshin_impact", "hololive", "touhou",
			"umamusume", "pokemon", "fate", "idolmaster", "love_live",
		},
		ProtectedFolders:   []string{"超级精选", "超绝", "精选", "特殊画风"},
		FuzzyProtected:     []string{"特殊", "精选", "手动"},
		UnclassifiedFolder: "未分类_待处理",
		ArchiveFolder:      "历史",
		ArchiveProtected:   []string{"超", "精", "特"},
		ReportDir:          ".",
		RatingMap: map[string]float64{
			"特殊：98分": 98,
			"超绝":     95,
			"特殊画风":   90,
			"超级精选":   85,
			"精选":     80,
		},
		KeywordWeights: map[string]float64{
			"masterpiece":  1.5,
			"best_quality": 1.2,
			"absurdres":    1.1,
		},
		NeutralScore: 50,
	}
}

// Load reads a YAML config file over the defaults, pulls in the
// referenced stop phrase and noise files (relative to the config file)
// and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	// yaml.v3 merges into existing maps; a map set in the file replaces
	// the default one instead.
	cfg.RatingMap, cfg.KeywordWeights = nil, nil
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	def := Default()
	if cfg.RatingMap == nil {
		cfg.RatingMap = def.RatingMap
	}
	if cfg.KeywordWeights == nil {
		cfg.KeywordWeights = def.KeywordWeights
	}

	base := filepath.Dir(path)
	if cfg.StopPhrasesFile != "" {
		sl, err := LoadStopPhrases(resolve(base, cfg.StopPhrasesFile))
		if err != nil {
			return Config{}, fmt.Errorf("load stop phrases: %w", err)
		}
		cfg.StopPhrases = append(cfg.StopPhrases, sl.Terms...)
	}
	if cfg.NoiseFile != "" {
		noise, err := LoadNoise(resolve(base, cfg.NoiseFile))
		if err != nil {
			return Config{}, fmt.Errorf("load noise suffixes: %w", err)
		}
		cfg.NoiseSuffixes = append(cfg.NoiseSuffixes, noise...)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// Validate rejects out-of-range values instead of substituting defaults.
func (c Config) Validate() error {
	if strings.TrimSpace(c.AnchorToken) == "" {
		return fmt.Errorf("%w: anchor_token must not be empty", ErrInvalid)
	}
	if c.MinOccurrences < 1 {
		return fmt.Errorf("%w: min_occurrences must be >= 1, got %d", ErrInvalid, c.MinOccurrences)
	}
	if c.MinPhraseLength < 1 {
		return fmt.Errorf("%w: min_phrase_length must be >= 1, got %d", ErrInvalid, c.MinPhraseLength)
	}
	if c.TopN < 1 {
		return fmt.Errorf("%w: top_n must be >= 1, got %d", ErrInvalid, c.TopN)
	}
	if c.KeywordDelimiter == "" {
		return fmt.Errorf("%w: keyword_delimiter must not be empty", ErrInvalid)
	}
	if strings.ContainsAny(c.KeywordDelimiter, `/\:*?"<>|`) {
		return fmt.Errorf("%w: keyword_delimiter %q contains a filename-unsafe character", ErrInvalid, c.KeywordDelimiter)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must be >= 0, got %d", ErrInvalid, c.Workers)
	}
	if len(c.Extensions) == 0 {
		return fmt.Errorf("%w: extensions must not be empty", ErrInvalid)
	}
	for _, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("%w: extension %q must start with a dot", ErrInvalid, ext)
		}
	}
	if strings.TrimSpace(c.UnclassifiedFolder) == "" {
		return fmt.Errorf("%w: unclassified_folder must not be empty", ErrInvalid)
	}
	if strings.TrimSpace(c.ArchiveFolder) == "" {
		return fmt.Errorf("%w: archive_folder must not be empty", ErrInvalid)
	}
	if c.NeutralScore < 0 || c.NeutralScore > 100 {
		return fmt.Errorf("%w: neutral_score must be within [0,100], got %g", ErrInvalid, c.NeutralScore)
	}
	for k, v := range c.RatingMap {
		if v < 0 || v > 100 {
			return fmt.Errorf("%w: rating_map[%q] must be within [0,100], got %g", ErrInvalid, k, v)
		}
	}
	return nil
}

// StyleThresholds converts the learner settings.
func (c Config) StyleThresholds() stylewords.Thresholds {
	return stylewords.Thresholds{
		Anchor:          c.AnchorToken,
		MinOccurrences:  c.MinOccurrences,
		MinPhraseLength: c.MinPhraseLength,
		Workers:         c.Workers,
	}
}

// StopPhraseList is the YAML shape of a stop phrase file.
type StopPhraseList struct {
	Terms []string `yaml:"terms"`
}

// LoadStopPhrases loads stop phrases from a YAML file with a "terms" list.
func LoadStopPhrases(path string) (*StopPhraseList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sl StopPhraseList
	if err := yaml.Unmarshal(data, &sl); err != nil {
		return nil, err
	}

	return &sl, nil
}

// LoadNoise loads style phrase noise fragments, one per line.
// Blank lines and lines starting with '#' are skipped.
func LoadNoise(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, nil
}
