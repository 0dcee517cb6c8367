package pipeline

import (
	"context"
	"os"
	"strings"

	"github.com/mgpai22/clipforge/internal/audio"
	"github.com/mgpai22/clipforge/internal/logging"
	"github.com/mgpai22/clipforge/internal/manifest"
	"github.com/mgpai22/clipforge/internal/media"
	"github.com/mgpai22/clipforge/internal/transcribe"
	"github.com/mgpai22/clipforge/internal/translate"
)

// environment variables read by the default providers
const (
	EnvWhisperBinary = "CLIPFORGE_WHISPER_BIN"
	EnvWhisperModels = "CLIPFORGE_WHISPER_MODELS"
)

// APIKey returns the key for a hosted provider from the environment.
func APIKey(provider string) string {
	switch strings.ToLower(provider) {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "gemini":
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			return key
		}
		return os.Getenv("GOOGLE_API_KEY")
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	}
	return ""
}

// DefaultTranscriber builds transcribers from caption settings. Hosted
// providers are wrapped so long audio is uploaded in chunks cut by ffmpeg.
func DefaultTranscriber(
	engine media.Engine,
	ffmpegPath string,
	logger *logging.Logger,
) TranscriberFactory {
	return func(ctx context.Context, c manifest.Captions) (transcribe.Transcriber, error) {
		provider := transcribe.Provider(strings.ToLower(c.Provider))
		t, err := transcribe.Factory(ctx, provider, APIKey(string(provider)), transcriberOptions(c))
		if err != nil {
			return nil, err
		}
		if !transcribe.IsRemote(provider) {
			return t, nil
		}

		chunker := audio.NewChunker(ffmpegPath, engine, logger)
		return transcribe.NewChunked(t, chunker, logger), nil
	}
}

func transcriberOptions(c manifest.Captions) transcribe.Options {
	return transcribe.Options{
		Language:           c.Language,
		TranscriptLanguage: c.TranscriptLanguage,
		Model:              c.Model,
		Prompt:             c.Prompt,
		WordLevel:          c.WordLevel,
		Binary:             os.Getenv(EnvWhisperBinary),
		ModelDir:           os.Getenv(EnvWhisperModels),
	}
}

// DefaultTranslator builds caption translators from caption settings.
func DefaultTranslator(logger *logging.Logger) TranslatorFactory {
	return func(ctx context.Context, c manifest.Captions) (translate.Translator, error) {
		provider := strings.ToLower(c.TranslateProvider)
		t, err := translate.Factory(
			ctx,
			translate.Provider(provider),
			APIKey(provider),
			translate.Options{
				InputLanguage:  c.Language,
				TargetLanguage: c.TranslateTo,
			},
			logger,
		)
		if err != nil {
			return nil, err
		}
		return t, nil
	}
}
