package subtitle

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mgpai22/clipforge/internal/timeline"
)

func caption(start, end float64, text string) timeline.Segment {
	return timeline.Segment{Start: start, End: end, Label: timeline.LabelCaption, Text: text}
}

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		seconds float64
		sep     byte
		want    string
	}{
		{0, ',', "00:00:00,000"},
		{1.5, ',', "00:00:01,500"},
		{2.9999, ',', "00:00:03,000"},
		{3723.042, '.', "01:02:03.042"},
		{-1, '.', "00:00:00.000"},
	}
	for _, tt := range tests {
		if got := formatTimestamp(tt.seconds, tt.sep); got != tt.want {
			t.Errorf("formatTimestamp(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
	if got := formatASSTime(3723.456); got != "1:02:03.46" {
		t.Errorf("formatASSTime = %q", got)
	}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"srt":  FormatSRT,
		".VTT": FormatVTT,
		"ass":  FormatASS,
		"ssa":  FormatASS,
		"":     FormatSRT,
	}
	for in, want := range tests {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("sub"); err == nil {
		t.Error("expected error for unknown format")
	}
	if FormatASS.Extension() != ".ass" || Format("").Extension() != ".srt" {
		t.Error("Extension mismatch")
	}
}

func TestLayoutBuild(t *testing.T) {
	layout := DefaultLayout()
	segments := []timeline.Segment{
		caption(0, 2, "Hello there."),
		caption(2, 2.3, "Hi."),
		caption(2.5, 2.6, "   "),
		caption(2.6, 2.6, "zero length"),
		caption(2.8, 6, "General Kenobi, you are a bold one, said the droid commander loudly."),
	}

	sub := layout.Build(segments)
	if len(sub.Entries) != 3 {
		t.Fatalf("got %d entries, want 3: %+v", len(sub.Entries), sub.Entries)
	}

	// the short entry is held until the next entry starts
	if sub.Entries[1].End != 2.8 {
		t.Errorf("short entry end = %v, want 2.8", sub.Entries[1].End)
	}
	for i, e := range sub.Entries {
		if e.Index != i+1 {
			t.Errorf("entry %d index = %d", i, e.Index)
		}
	}
	if !strings.Contains(sub.Entries[2].Text, "\n") {
		t.Errorf("long text was not wrapped: %q", sub.Entries[2].Text)
	}
}

func TestLayoutSplitsLongSegments(t *testing.T) {
	layout := DefaultLayout().WithLineLength(10)
	text := "one two three four five six seven eight nine ten eleven twelve"
	sub := layout.Build([]timeline.Segment{caption(10, 20, text)})

	if len(sub.Entries) < 2 {
		t.Fatalf("expected split into several entries, got %d", len(sub.Entries))
	}
	if sub.Entries[0].Start != 10 || sub.Entries[len(sub.Entries)-1].End != 20 {
		t.Errorf("split entries do not span the segment: %+v", sub.Entries)
	}
	for i := 1; i < len(sub.Entries); i++ {
		if sub.Entries[i].Start != sub.Entries[i-1].End {
			t.Errorf("entries %d and %d are not contiguous", i-1, i)
		}
	}

	var words []string
	for _, e := range sub.Entries {
		words = append(words, strings.Fields(e.Text)...)
	}
	if strings.Join(words, " ") != text {
		t.Errorf("words lost in split: %q", strings.Join(words, " "))
	}
}

func TestLayoutSplitsByDuration(t *testing.T) {
	sub := DefaultLayout().Build([]timeline.Segment{caption(0, 20, "a slow sentence spoken over twenty seconds")})
	if len(sub.Entries) != 3 {
		t.Errorf("got %d entries, want 3 for a 20s segment with 7s max", len(sub.Entries))
	}
}

func TestWriters(t *testing.T) {
	segments := []timeline.Segment{
		caption(0, 1.25, "Hello"),
		caption(1.25, 3, "World"),
	}
	dir := t.TempDir()

	tests := []struct {
		format Format
		want   []string
	}{
		{FormatSRT, []string{"1\n00:00:00,000 --> 00:00:01,250\nHello\n\n", "2\n00:00:01,250 --> 00:00:03,000\nWorld\n\n"}},
		{FormatVTT, []string{"WEBVTT\n\n", "00:00:01.250 --> 00:00:03.000\nWorld"}},
		{FormatASS, []string{"[Events]", "Dialogue: 0,0:00:00.00,0:00:01.25,Default,,0,0,0,,Hello"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			path := filepath.Join(dir, "nested", "captions"+tt.format.Extension())
			sub, err := WriteSegments(segments, path, tt.format, DefaultLayout())
			if err != nil {
				t.Fatalf("WriteSegments: %v", err)
			}
			if len(sub.Entries) != 2 {
				t.Errorf("entries = %d", len(sub.Entries))
			}
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(string(data), w) {
					t.Errorf("%s output missing %q:\n%s", tt.format, w, data)
				}
			}
		})
	}

	if _, err := WriteSegments(segments, filepath.Join(dir, "x.sub"), Format("sub"), DefaultLayout()); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestEscapeASSText(t *testing.T) {
	if got := escapeASSText("two\nlines"); got != `two\Nlines` {
		t.Errorf("escapeASSText = %q", got)
	}
}
