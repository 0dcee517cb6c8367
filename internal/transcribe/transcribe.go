package transcribe

import (
	"context"
	"fmt"
	"strings"

	"github.com/mgpai22/clipforge/internal/media"
	"github.com/mgpai22/clipforge/internal/timeline"
)

// transcription result; segment times are seconds from the start of the audio
type Result struct {
	Segments []timeline.Segment
	Language string
	Duration float64
}

// interface for audio transcription
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*Result, error)
}

// transcription service provider
type Provider string

const (
	ProviderWhisper Provider = "whisper"
	ProviderOpenAI  Provider = "openai"
	ProviderGemini  Provider = "gemini"
)

// transcription options
type Options struct {
	Language           string // Source language of audio
	TranscriptLanguage string // Output language for transcript (default: "native")
	Model              string
	Prompt             string
	WordLevel          bool // one caption per word where the provider supports it

	// whisper.cpp only
	Binary   string // executable, e.g. whisper-cli
	ModelDir string // directory holding ggml-<model>.bin files
}

// creates transcriber based on provider
func Factory(
	ctx context.Context,
	provider Provider,
	apiKey string,
	opts Options,
) (Transcriber, error) {
	switch provider {
	case ProviderWhisper, "":
		return NewWhisperCPPTranscriber(opts), nil
	case ProviderGemini:
		return NewGeminiTranscriber(ctx, apiKey, opts)
	case ProviderOpenAI:
		return NewOpenAITranscriber(ctx, apiKey, opts)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

// IsRemote reports whether the provider uploads audio to an API.
func IsRemote(provider Provider) bool {
	return provider == ProviderOpenAI || provider == ProviderGemini
}

// AudioOptionsFor returns the audio a provider should be given. Local models
// read 16 kHz PCM; uploads are compressed to keep requests small.
func AudioOptionsFor(provider Provider) media.AudioOptions {
	if IsRemote(provider) {
		return media.AudioOptions{
			Format:     "mp3",
			SampleRate: 16000,
			Channels:   1,
			Bitrate:    "64k",
		}
	}
	return media.DefaultAudioOptions()
}

// whisper model sizes, which only mean something to the local provider
var whisperSizes = map[string]bool{
	"tiny": true, "tiny.en": true,
	"base": true, "base.en": true,
	"small": true, "small.en": true,
	"medium": true, "medium.en": true,
	"large": true, "large-v1": true, "large-v2": true, "large-v3": true,
	"large-v3-turbo": true, "turbo": true,
}

// remoteModel maps a local model size to the provider default
func remoteModel(model, fallback string) string {
	if model == "" || whisperSizes[strings.ToLower(model)] {
		return fallback
	}
	return model
}
