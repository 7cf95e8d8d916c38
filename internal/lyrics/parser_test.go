package lyrics

import "testing"

const sampleLrc = `[00:01.00]first line
[00:03.50]second line

[00:10.000]third line
[ti:ignored title]`

func TestParse(t *testing.T) {
	lines := Parse(sampleLrc, "")

	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}

	if lines[0].TimeMs != 1000 || lines[0].Text != "first line" {
		t.Errorf("unexpected first line: %+v", lines[0])
	}
	if lines[1].TimeMs != 3500 {
		t.Errorf("expected 3500ms, got %d", lines[1].TimeMs)
	}
	if lines[2].TimeMs != 10000 {
		t.Errorf("expected 10000ms, got %d", lines[2].TimeMs)
	}
}

func TestParse_MergesTranslation(t *testing.T) {
	lrc := "[00:01.00]hello\n[00:02.00]world"
	tlyric := "[00:01.00]bonjour"

	lines := Parse(lrc, tlyric)

	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Translation != "bonjour" {
		t.Errorf("expected translation merged, got %q", lines[0].Translation)
	}
	if lines[1].Translation != "" {
		t.Errorf("unexpected translation on second line: %q", lines[1].Translation)
	}
}

func TestParse_MultipleTimeTags(t *testing.T) {
	lines := Parse("[00:01.00][00:05.00]chorus", "")

	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].TimeMs != 1000 || lines[1].TimeMs != 5000 {
		t.Errorf("unexpected times: %d, %d", lines[0].TimeMs, lines[1].TimeMs)
	}
	if lines[0].Text != "chorus" || lines[1].Text != "chorus" {
		t.Errorf("unexpected texts: %q, %q", lines[0].Text, lines[1].Text)
	}
}

func TestLineAt(t *testing.T) {
	lines := Parse(sampleLrc, "")

	tests := []struct {
		name     string
		elapsed  int64
		offset   int64
		expected int
	}{
		{"before first", 500, 0, -1},
		{"on first", 1000, 0, 0},
		{"between", 3499, 0, 0},
		{"on second", 3500, 0, 1},
		{"after last", 60000, 0, 2},
		{"offset shifts back", 1200, 500, -1},
		{"negative offset shifts forward", 600, -500, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LineAt(lines, tt.elapsed, tt.offset); got != tt.expected {
				t.Errorf("LineAt(%d, %d) = %d, want %d", tt.elapsed, tt.offset, got, tt.expected)
			}
		})
	}
}
