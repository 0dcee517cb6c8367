package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"google.golang.org/genai"

	"github.com/mgpai22/clipforge/internal/timeline"
)

// implements Transcriber interface using Google Gemini
type GeminiTranscriber struct {
	client  *genai.Client
	model   string
	options Options
}

// segment from Gemini's JSON response
type transcriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

func NewGeminiTranscriber(ctx context.Context, apiKey string, opts Options) (*GeminiTranscriber, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiTranscriber{
		client:  client,
		model:   remoteModel(opts.Model, "gemini-2.5-flash"),
		options: opts,
	}, nil
}

// transcribes single audio file
func (t *GeminiTranscriber) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	if _, err := os.Stat(audioPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("audio file not found: %s", audioPath)
	}

	uploadedFile, err := t.client.Files.UploadFromPath(ctx, audioPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upload audio file: %w", err)
	}

	defer func() {
		_, _ = t.client.Files.Delete(context.WithoutCancel(ctx), uploadedFile.Name, nil)
	}()

	parts := []*genai.Part{
		genai.NewPartFromText(t.buildTranscriptionPrompt()),
		genai.NewPartFromURI(uploadedFile.URI, uploadedFile.MIMEType),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	result, err := t.client.Models.GenerateContent(ctx, t.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}

	segments, err := parseTranscriptionResponse(result.Text())
	if err != nil {
		return nil, fmt.Errorf("failed to parse transcription: %w", err)
	}

	res := &Result{Segments: segments, Language: t.options.Language}
	for _, seg := range segments {
		res.Duration = max(res.Duration, seg.End)
	}
	return res, nil
}

// creates the prompt for transcription
func (t *GeminiTranscriber) buildTranscriptionPrompt() string {
	var sb strings.Builder

	sb.WriteString("Generate a detailed transcript of this audio. ")
	if t.options.WordLevel {
		sb.WriteString("Provide one entry per spoken word with its start timestamp, end timestamp and the word. ")
	} else {
		sb.WriteString("For each sentence or phrase, provide the start timestamp, end timestamp, and the exact text spoken. ")
	}
	sb.WriteString("Format your response as a JSON array with objects containing 'start', 'end', and 'text' fields, ")
	sb.WriteString("where 'start' and 'end' are timestamps in seconds (as numbers). ")

	if t.options.Language != "" {
		sb.WriteString(fmt.Sprintf("The audio is in %s. ", t.options.Language))
	}

	if t.options.TranscriptLanguage != "" && t.options.TranscriptLanguage != "native" {
		sb.WriteString(fmt.Sprintf("Output the transcript in %s. ", t.options.TranscriptLanguage))
	}

	if t.options.Prompt != "" {
		sb.WriteString(t.options.Prompt)
		sb.WriteString(" ")
	}

	sb.WriteString("Return ONLY the JSON array, no other text or markdown formatting.")

	return sb.String()
}

// parses Gemini's response text into caption segments
func parseTranscriptionResponse(responseText string) ([]timeline.Segment, error) {
	if strings.TrimSpace(responseText) == "" {
		return nil, fmt.Errorf("no text in Gemini response")
	}

	responseText = cleanJSONResponse(responseText)

	transcript, err := extractTranscriptSegments(responseText)
	if err != nil {
		return nil, fmt.Errorf("%w (response: %s)", err, truncateString(responseText, 200))
	}

	segments := make([]timeline.Segment, 0, len(transcript))
	for _, ts := range transcript {
		text := strings.TrimSpace(ts.Text)
		if text == "" || ts.End < ts.Start {
			continue
		}
		segments = append(segments, timeline.Segment{
			Start: ts.Start,
			End:   ts.End,
			Label: timeline.LabelCaption,
			Text:  text,
		})
	}
	return segments, nil
}

var jsonFence = regexp.MustCompile("```(?:json)?\\s*")

// removes markdown formatting from the response
func cleanJSONResponse(s string) string {
	s = strings.TrimSpace(s)
	s = jsonFence.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// finds the first JSON value in text that holds transcript segments, looking
// through wrapper objects like {"segments": [...]}
func extractTranscriptSegments(text string) ([]transcriptSegment, error) {
	for i := 0; i < len(text); i++ {
		if text[i] != '[' && text[i] != '{' {
			continue
		}
		decoder := json.NewDecoder(strings.NewReader(text[i:]))
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			continue
		}
		if segments, ok := findSegments(raw, 3); ok {
			return segments, nil
		}
	}
	return nil, fmt.Errorf("no transcript JSON found in response")
}

func findSegments(raw json.RawMessage, depth int) ([]transcriptSegment, bool) {
	var segments []transcriptSegment
	if err := json.Unmarshal(raw, &segments); err == nil && validateSegments(segments) {
		return segments, true
	}
	if depth == 0 {
		return nil, false
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, false
	}
	for _, key := range []string{"segments", "transcript", "transcription", "results", "data"} {
		if field, ok := wrapper[key]; ok {
			if segments, ok := findSegments(field, depth-1); ok {
				return segments, true
			}
		}
	}
	for _, field := range wrapper {
		if segments, ok := findSegments(field, depth-1); ok {
			return segments, true
		}
	}
	return nil, false
}

// at least one segment must carry timing or text
func validateSegments(segments []transcriptSegment) bool {
	for _, s := range segments {
		if s.Text != "" || s.Start != 0 || s.End != 0 {
			return true
		}
	}
	return false
}

// truncates a string to maxLen characters
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
