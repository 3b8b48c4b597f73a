package pipeline

import (
	"fmt"
	"path/filepath"

	"github.com/cognicore/promptsort/pkg/promptsort/metadata"
	"github.com/cognicore/promptsort/pkg/promptsort/tfidf"
)

// State is the lifecycle position of a Record.
type State int

const (
	Discovered State = iota
	MetadataExtracted
	Cleaned
	Ranked
	Annotated
	Failed
)

func (s State) String() string {
	switch s {
	case Discovered:
		return "discovered"
	case MetadataExtracted:
		return "metadata_extracted"
	case Cleaned:
		return "cleaned"
	case Ranked:
		return "ranked"
	case Annotated:
		return "annotated"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Failure reasons counted in the batch summary.
const (
	ReasonNoMetadata = "no_metadata"
	ReasonUnreadable = "unreadable"
	ReasonCancelled  = "cancelled"
)

// Record is one image moving through the pipeline.
type Record struct {
	Path         string
	Info         metadata.Info
	RawTags      string
	CleanedTags  string
	CoreKeywords string
	Keywords     []tfidf.Keyword
	Score        float64

	State  State
	Reason string
	Err    error
}

// NewRecord starts a record in the Discovered state.
func NewRecord(path string) *Record {
	return &Record{Path: path, State: Discovered}
}

// Folder is the directory holding the image.
func (r *Record) Folder() string {
	return filepath.Dir(r.Path)
}

// Terms returns the ranked keyword terms, highest weight first.
func (r *Record) Terms() []string {
	terms := make([]string, len(r.Keywords))
	for i, k := range r.Keywords {
		terms[i] = k.Term
	}
	return terms
}

// OK reports whether the record took part in the corpus-wide steps.
func (r *Record) OK() bool {
	return r.State != Failed
}

// advance moves the record forward. Moving backwards, standing still or
// leaving Failed is an error.
func (r *Record) advance(to State) error {
	if r.State == Failed {
		return fmt.Errorf("%s: record already failed", r.Path)
	}
	if to <= r.State {
		return fmt.Errorf("%s: illegal transition %s -> %s", r.Path, r.State, to)
	}
	r.State = to
	return nil
}

func (r *Record) fail(reason string, err error) {
	r.State = Failed
	r.Reason = reason
	r.Err = err
}
