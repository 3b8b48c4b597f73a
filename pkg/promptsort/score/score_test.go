package score

import (
	"testing"
)

func testScorer() *Scorer {
	return NewScorer(
		map[string]float64{"精选": 80, "超级精选": 85, "超绝": 95},
		map[string]float64{"masterpiece": 1.5, "best_quality": 1.2},
		50,
	)
}

func TestScore(t *testing.T) {
	s := testScorer()
	tests := []struct {
		name   string
		folder string
		tags   string
		want   float64
	}{
		{"neutral", "/img/misc", "1girl, smile", 50},
		{"folder rating", "/img/精选", "1girl", 80},
		{"longest key wins", "/img/超级精选", "1girl", 85},
		{"keyword bonus", "/img", "masterpiece, best_quality", 63.5},
		{"clamped", "/img/超绝", "masterpiece, best_quality", 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Score(tt.folder, tt.tags); got != tt.want {
				t.Errorf("Score() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScoreDeterministic(t *testing.T) {
	first := testScorer().Score("/img/超级精选", "masterpiece")
	for i := 0; i < 20; i++ {
		if got := testScorer().Score("/img/超级精选", "masterpiece"); got != first {
			t.Fatalf("score changed between runs: %v vs %v", got, first)
		}
	}
}

func TestExtractScore(t *testing.T) {
	if n, ok := ExtractScore("abc@@@评分87.png"); !ok || n != 87 {
		t.Errorf("ExtractScore = %d, %v", n, ok)
	}
	if _, ok := ExtractScore("abc.png"); ok {
		t.Error("expected no score")
	}
}

func TestTagFilename(t *testing.T) {
	tests := []struct {
		in    string
		score float64
		want  string
	}{
		{"a.png", 87.4, "a@@@评分87.png"},
		{"a@@@评分60.png", 91, "a@@@评分91.png"},
		{"a_.png", 100, "a@@@评分99.png"},
		{"a.png", 5, "a@@@评分05.png"},
	}
	for _, tt := range tests {
		if got := TagFilename(tt.in, tt.score); got != tt.want {
			t.Errorf("TagFilename(%q, %v) = %q, want %q", tt.in, tt.score, got, tt.want)
		}
	}
}

func TestParseRange(t *testing.T) {
	set, err := ParseRange("85-80")
	if err != nil {
		t.Fatalf("ParseRange failed: %v", err)
	}
	if len(set) != 6 || !set[80] || !set[85] {
		t.Errorf("unexpected set: %v", set)
	}

	single, err := ParseRange(" 90 ")
	if err != nil || len(single) != 1 || !single[90] {
		t.Errorf("single score: %v %v", single, err)
	}

	for _, bad := range []string{"", "abc", "5-20", "80-100", "80-"} {
		if _, err := ParseRange(bad); err == nil {
			t.Errorf("ParseRange(%q) should fail", bad)
		}
	}
}

func TestDirName(t *testing.T) {
	if got := DirName(7); got != "评分07" {
		t.Errorf("DirName(7) = %q", got)
	}
}

func TestStripTag(t *testing.T) {
	if got := StripTag("a@@@评分87___b.png"); got != "a___b.png" {
		t.Errorf("StripTag() = %q", got)
	}
	if got := StripTag("plain.png"); got != "plain.png" {
		t.Errorf("StripTag() = %q", got)
	}
}
