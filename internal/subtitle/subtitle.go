package subtitle

import (
	"fmt"
	"strings"

	"github.com/mgpai22/clipforge/internal/timeline"
)

// represents single subtitle entry; times in seconds
type Entry struct {
	Index int
	Start float64
	End   float64
	Text  string
}

// represents complete subtitle track
type Subtitle struct {
	Entries  []Entry
	Language string
}

// represents supported subtitle formats
type Format string

const (
	FormatSRT Format = "srt"
	FormatVTT Format = "vtt"
	FormatASS Format = "ass"
)

// ParseFormat validates a format name such as "srt" or ".vtt".
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.TrimPrefix(strings.ToLower(name), ".")); f {
	case FormatSRT, FormatVTT, FormatASS:
		return f, nil
	case "ssa":
		return FormatASS, nil
	case "":
		return FormatSRT, nil
	default:
		return "", fmt.Errorf("unsupported subtitle format: %s", name)
	}
}

// file extension for a format
func (f Format) Extension() string {
	switch f {
	case FormatVTT:
		return ".vtt"
	case FormatASS:
		return ".ass"
	default:
		return ".srt"
	}
}

// interface for writing subtitles to files
type Writer interface {
	Write(sub *Subtitle, path string) error
}

// WriteSegments lays out caption segments and writes them to path in the
// given format.
func WriteSegments(
	segments []timeline.Segment,
	path string,
	format Format,
	layout Layout,
) (*Subtitle, error) {
	w, err := NewWriter(format)
	if err != nil {
		return nil, err
	}
	sub := layout.Build(segments)
	if err := w.Write(sub, path); err != nil {
		return nil, fmt.Errorf("failed to write %s subtitles: %w", format, err)
	}
	return sub, nil
}
