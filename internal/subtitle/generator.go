package subtitle

import (
	"strings"
	"unicode/utf8"

	"github.com/mgpai22/clipforge/internal/timeline"
)

// Layout turns transcript segments into readable subtitle entries: long
// segments are split and text is wrapped to at most MaxLinesPerSub lines.
type Layout struct {
	MaxCharsPerLine int
	MaxLinesPerSub  int
	MinDuration     float64 // seconds; short entries are held until the next one starts
	MaxDuration     float64 // seconds
}

func DefaultLayout() Layout {
	return Layout{
		MaxCharsPerLine: 42, // Standard subtitle line length
		MaxLinesPerSub:  2,  // Most players support 2 lines
		MinDuration:     1,
		MaxDuration:     7,
	}
}

// WithLineLength overrides the line length when n is positive.
func (l Layout) WithLineLength(n int) Layout {
	if n > 0 {
		l.MaxCharsPerLine = n
	}
	return l
}

// converts transcript segments to subtitle entries
func (l Layout) Build(segments []timeline.Segment) *Subtitle {
	entries := []Entry{}

	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" || seg.End <= seg.Start {
			continue
		}

		if l.needsSplit(text, seg.Length()) {
			entries = append(entries, l.splitSegment(seg)...)
		} else {
			entries = append(entries, Entry{
				Start: seg.Start,
				End:   seg.End,
				Text:  l.formatText(text),
			})
		}
	}

	for i := range entries {
		entries[i].Index = i + 1
		if l.MinDuration <= 0 || entries[i].End-entries[i].Start >= l.MinDuration {
			continue
		}
		end := entries[i].Start + l.MinDuration
		if i+1 < len(entries) {
			end = min(end, entries[i+1].Start)
		}
		entries[i].End = max(entries[i].End, end)
	}

	return &Subtitle{Entries: entries}
}

func (l Layout) needsSplit(text string, duration float64) bool {
	if utf8.RuneCountInString(text) > l.MaxCharsPerLine*l.MaxLinesPerSub {
		return true
	}
	return l.MaxDuration > 0 && duration > l.MaxDuration
}

// splits long segment into multiple entries, sharing its time evenly
func (l Layout) splitSegment(seg timeline.Segment) []Entry {
	words := strings.Fields(seg.Text)
	if len(words) == 0 {
		return nil
	}

	maxChars := l.MaxCharsPerLine * l.MaxLinesPerSub
	totalChars := utf8.RuneCountInString(strings.Join(words, " "))

	numSplits := max((totalChars+maxChars-1)/maxChars, 1)
	if l.MaxDuration > 0 {
		numSplits = max(numSplits, int(seg.Length()/l.MaxDuration)+1)
	}
	numSplits = min(numSplits, len(words))

	wordsPerSplit := (len(words) + numSplits - 1) / numSplits
	durationPerSplit := seg.Length() / float64(numSplits)

	var entries []Entry
	start := seg.Start

	for i := 0; i < numSplits && len(words) > 0; i++ {
		n := min(wordsPerSplit, len(words))
		chunk := words[:n]
		words = words[n:]

		end := start + durationPerSplit
		// last split ends at the original end time
		if len(words) == 0 {
			end = seg.End
		}

		entries = append(entries, Entry{
			Start: start,
			End:   end,
			Text:  l.formatText(strings.Join(chunk, " ")),
		})
		start = end
	}

	return entries
}

// wraps text onto two lines at the word break closest to the middle
func (l Layout) formatText(text string) string {
	text = strings.TrimSpace(text)
	runeCount := utf8.RuneCountInString(text)

	if runeCount <= l.MaxCharsPerLine || l.MaxLinesPerSub < 2 {
		return text
	}

	words := strings.Fields(text)
	if len(words) < 2 {
		return text
	}

	middle := runeCount / 2
	bestSplit := 0
	bestDiff := runeCount

	currentLen := 0
	for i, word := range words[:len(words)-1] {
		currentLen += utf8.RuneCountInString(word)
		if i > 0 {
			currentLen++ // space
		}

		diff := currentLen - middle
		if diff < 0 {
			diff = -diff
		}
		if diff < bestDiff {
			bestDiff = diff
			bestSplit = i + 1
		}
	}

	return strings.Join(words[:bestSplit], " ") + "\n" + strings.Join(words[bestSplit:], " ")
}
