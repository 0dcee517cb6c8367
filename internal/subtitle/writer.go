package subtitle

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// SubRip format
type SRTWriter struct{}

// WebVTT format
type VTTWriter struct{}

// Advanced SubStation Alpha format
type ASSWriter struct {
	Title    string
	FontName string
	FontSize int
}

func NewWriter(format Format) (Writer, error) {
	switch format {
	case FormatSRT:
		return &SRTWriter{}, nil
	case FormatVTT:
		return &VTTWriter{}, nil
	case FormatASS:
		return &ASSWriter{
			Title:    "clipforge captions",
			FontName: "Arial",
			FontSize: 20,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// writes the subtitle to an SRT file
func (w *SRTWriter) Write(sub *Subtitle, path string) error {
	var sb strings.Builder
	for i, entry := range sub.Entries {
		fmt.Fprintf(&sb, "%d\n", i+1)
		fmt.Fprintf(&sb, "%s --> %s\n", formatTimestamp(entry.Start, ','), formatTimestamp(entry.End, ','))
		sb.WriteString(entry.Text)
		sb.WriteString("\n\n")
	}
	return writeFile(path, sb.String())
}

// writes the subtitle to a VTT file
func (w *VTTWriter) Write(sub *Subtitle, path string) error {
	var sb strings.Builder
	sb.WriteString("WEBVTT\n\n")

	for i, entry := range sub.Entries {
		// optional cue identifier
		fmt.Fprintf(&sb, "%d\n", i+1)
		fmt.Fprintf(&sb, "%s --> %s\n", formatTimestamp(entry.Start, '.'), formatTimestamp(entry.End, '.'))
		sb.WriteString(entry.Text)
		sb.WriteString("\n\n")
	}
	return writeFile(path, sb.String())
}

// writes the subtitle to an ASS file
func (w *ASSWriter) Write(sub *Subtitle, path string) error {
	var sb strings.Builder

	sb.WriteString("[Script Info]\n")
	fmt.Fprintf(&sb, "Title: %s\n", w.Title)
	sb.WriteString("ScriptType: v4.00+\n")
	sb.WriteString("Collisions: Normal\n")
	sb.WriteString("PlayDepth: 0\n\n")

	sb.WriteString("[V4+ Styles]\n")
	sb.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	fmt.Fprintf(&sb, "Style: Default,%s,%d,&H00FFFFFF,&H000000FF,&H00000000,&H00000000,0,0,0,0,100,100,0,0,1,2,2,2,10,10,10,1\n\n",
		w.FontName, w.FontSize)

	sb.WriteString("[Events]\n")
	sb.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")

	for _, entry := range sub.Entries {
		fmt.Fprintf(&sb, "Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n",
			formatASSTime(entry.Start),
			formatASSTime(entry.End),
			escapeASSText(entry.Text))
	}

	return writeFile(path, sb.String())
}

// HH:MM:SS<sep>mmm, rounded to the millisecond
func formatTimestamp(seconds float64, sep byte) string {
	ms := int64(math.Round(max(seconds, 0) * 1000))
	return fmt.Sprintf("%02d:%02d:%02d%c%03d",
		ms/3600000, (ms/60000)%60, (ms/1000)%60, sep, ms%1000)
}

// H:MM:SS.cc
func formatASSTime(seconds float64) string {
	cs := int64(math.Round(max(seconds, 0) * 100))
	return fmt.Sprintf("%d:%02d:%02d.%02d",
		cs/360000, (cs/6000)%60, (cs/100)%60, cs%100)
}

func escapeASSText(text string) string {
	return strings.ReplaceAll(text, "\n", "\\N")
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0644)
}
