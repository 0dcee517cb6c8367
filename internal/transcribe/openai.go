package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/mgpai22/clipforge/internal/timeline"
)

// implements Transcriber interface using OpenAI Audio API
type OpenAITranscriber struct {
	client  openai.Client
	model   string
	options Options
}

// segment from OpenAI Whisper verbose_json response
type whisperSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// word timing, present when word granularity is requested
type whisperWord struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Word  string  `json:"word"`
}

// verbose_json response structure from Whisper
type whisperVerboseResponse struct {
	Text     string           `json:"text"`
	Segments []whisperSegment `json:"segments"`
	Words    []whisperWord    `json:"words"`
	Language string           `json:"language"`
	Duration float64          `json:"duration"`
}

func NewOpenAITranscriber(
	ctx context.Context,
	apiKey string,
	opts Options,
) (*OpenAITranscriber, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))

	return &OpenAITranscriber{
		client:  client,
		model:   remoteModel(opts.Model, "whisper-1"),
		options: opts,
	}, nil
}

// transcribes single audio file
func (t *OpenAITranscriber) Transcribe(
	ctx context.Context,
	audioPath string,
) (*Result, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	if t.shouldUseTranslation() {
		return t.transcribeWithTranslation(ctx, file)
	}

	return t.transcribeWithTimestamps(ctx, file)
}

func (t *OpenAITranscriber) shouldUseTranslation() bool {
	lang := strings.ToLower(strings.TrimSpace(t.options.TranscriptLanguage))
	return lang == "english" || lang == "en"
}

func (t *OpenAITranscriber) transcribeWithTranslation(
	ctx context.Context,
	file *os.File,
) (*Result, error) {
	params := openai.AudioTranslationNewParams{
		File:           file,
		Model:          openai.AudioModel(t.model),
		ResponseFormat: openai.AudioTranslationNewParamsResponseFormatVerboseJSON,
	}

	if t.options.Prompt != "" {
		params.Prompt = openai.String(t.options.Prompt)
	}

	resp, err := t.client.Audio.Translations.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("translation failed: %w", err)
	}

	result, err := parseVerboseJSONResponse(resp.RawJSON(), false)
	if err != nil {
		result = &Result{Segments: singleSegment(resp.Text, 0)}
	}
	result.Language = "en"
	return result, nil
}

func (t *OpenAITranscriber) transcribeWithTimestamps(
	ctx context.Context,
	file *os.File,
) (*Result, error) {
	granularities := []string{"segment"}
	if t.options.WordLevel {
		granularities = append(granularities, "word")
	}

	params := openai.AudioTranscriptionNewParams{
		File:                   file,
		Model:                  openai.AudioModel(t.model),
		ResponseFormat:         openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: granularities,
	}

	if t.options.Language != "" {
		params.Language = openai.String(t.options.Language)
	}

	if t.options.Prompt != "" {
		params.Prompt = openai.String(t.options.Prompt)
	}

	resp, err := t.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}

	result, err := parseVerboseJSONResponse(resp.RawJSON(), t.options.WordLevel)
	if err != nil {
		result = &Result{Segments: singleSegment(resp.Text, 0)}
	}
	if result.Language == "" {
		result.Language = t.options.Language
	}
	return result, nil
}

func parseVerboseJSONResponse(rawJSON string, wordLevel bool) (*Result, error) {
	if rawJSON == "" {
		return nil, fmt.Errorf("empty response")
	}

	var verboseResp whisperVerboseResponse
	if err := json.Unmarshal([]byte(rawJSON), &verboseResp); err != nil {
		return nil, fmt.Errorf("failed to parse verbose_json response: %w", err)
	}

	result := &Result{
		Language: verboseResp.Language,
		Duration: verboseResp.Duration,
	}

	if wordLevel && len(verboseResp.Words) > 0 {
		for _, w := range verboseResp.Words {
			if text := strings.TrimSpace(w.Word); text != "" {
				result.Segments = append(result.Segments, timeline.Segment{
					Start: w.Start,
					End:   w.End,
					Label: timeline.LabelCaption,
					Text:  text,
				})
			}
		}
		return result, nil
	}

	if len(verboseResp.Segments) == 0 {
		if strings.TrimSpace(verboseResp.Text) == "" {
			return nil, fmt.Errorf("no segments or text in response")
		}
		result.Segments = singleSegment(verboseResp.Text, verboseResp.Duration)
		return result, nil
	}

	for _, seg := range verboseResp.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		result.Segments = append(result.Segments, timeline.Segment{
			Start: seg.Start,
			End:   seg.End,
			Label: timeline.LabelCaption,
			Text:  text,
		})
	}

	return result, nil
}

// whole-response caption for replies that carry text without timing
func singleSegment(text string, duration float64) []timeline.Segment {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return []timeline.Segment{{
		Start: 0,
		End:   duration,
		Label: timeline.LabelCaption,
		Text:  text,
	}}
}
