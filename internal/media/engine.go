package media

import (
	"context"

	"github.com/mgpai22/clipforge/internal/timeline"
)

// receives the completion of a long-running delegate call, in [0, 1]
type ProgressFunc func(fraction float64)

// metadata extracted from a media file
type ProbeResult struct {
	Duration        float64 `json:"duration"`
	HasVideo        bool    `json:"has_video"`
	HasAudio        bool    `json:"has_audio"`
	Width           int     `json:"width,omitempty"`
	Height          int     `json:"height,omitempty"`
	FPS             float64 `json:"fps,omitempty"`
	AudioSampleRate int     `json:"audio_sample_rate,omitempty"`
	VideoCodec      string  `json:"video_codec,omitempty"`
	AudioCodec      string  `json:"audio_codec,omitempty"`
}

// silencedetect parameters
type SilenceOptions struct {
	ThresholdDB float64 // noise floor, e.g. -30
	MinDuration float64 // seconds of quiet before a span counts as silence
}

// holds options for audio extraction
type AudioOptions struct {
	Format     string // Output format (wav, mp3, aac, flac)
	SampleRate int    // Sample rate in Hz (e.g., 16000, 44100, 48000)
	Channels   int    // Number of channels (1 = mono, 2 = stereo)
	Bitrate    string // Bitrate for lossy formats (e.g., "128k", "320k")
}

// returns the format speech models expect: 16 kHz mono PCM
func DefaultAudioOptions() AudioOptions {
	return AudioOptions{
		Format:     "wav",
		SampleRate: 16000,
		Channels:   1,
	}
}

// Engine is the media toolkit the pipeline delegates all decoding and
// encoding to.
type Engine interface {
	// reads duration and stream layout
	Probe(ctx context.Context, path string) (*ProbeResult, error)

	// runs silence detection and returns the raw diagnostic text; duration
	// is only used to scale progress and may be zero
	DetectSilence(
		ctx context.Context,
		path string,
		opts SilenceOptions,
		duration float64,
		progress ProgressFunc,
	) (string, error)

	// keeps only the given ranges, in order, and joins them into dst;
	// fails with ErrEmptyKeepRanges when keep is empty
	CutAndConcatenate(
		ctx context.Context,
		path string,
		keep []timeline.TimeRange,
		dst string,
		progress ProgressFunc,
	) error

	// extracts the audio track
	ExtractAudio(ctx context.Context, path, dst string, opts AudioOptions) error

	// renders a subtitle file onto the video
	BurnSubtitles(
		ctx context.Context,
		path, subtitlePath, dst string,
		progress ProgressFunc,
	) error
}

// RequireStreams reports the stream a job needs but the source lacks.
func RequireStreams(p *ProbeResult, needAudio bool) error {
	if !p.HasVideo {
		return ErrNoVideoStream
	}
	if needAudio && !p.HasAudio {
		return ErrNoAudioStream
	}
	return nil
}
