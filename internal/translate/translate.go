package translate

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mgpai22/clipforge/internal/logging"
	"github.com/mgpai22/clipforge/internal/timeline"
)

// single text item to translate, or its translation
type Item struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// interface for text translation
type Translator interface {
	Translate(ctx context.Context, items []Item) ([]Item, error)
}

// translation service provider
type Provider string

const (
	ProviderGemini    Provider = "gemini"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

const (
	DefaultBatchSize   = 50
	DefaultConcurrency = 3
)

type Options struct {
	InputLanguage  string
	TargetLanguage string
	Model          string
	Prompt         string
	BatchSize      int // items per API request (default 50)
	Concurrency    int // batches in flight (default 3)
}

// completer sends one prompt to a chat model and returns the reply text
type completer interface {
	complete(ctx context.Context, prompt string) (string, error)
}

// BatchTranslator splits items into batches, sends each batch to the
// provider as one prompt and reassembles the replies in index order.
type BatchTranslator struct {
	backend completer
	options Options
	logger  *logging.Logger
}

var _ Translator = (*BatchTranslator)(nil)

// creates Translator based on provider
func Factory(
	ctx context.Context,
	provider Provider,
	apiKey string,
	opts Options,
	logger *logging.Logger,
) (*BatchTranslator, error) {
	if opts.TargetLanguage == "" {
		return nil, fmt.Errorf("target language is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required for %s translation", provider)
	}

	var (
		backend completer
		err     error
	)
	switch provider {
	case ProviderGemini, "":
		backend, err = newGeminiBackend(ctx, apiKey, opts.Model)
	case ProviderOpenAI:
		backend = newOpenAIBackend(apiKey, opts.Model)
	case ProviderAnthropic:
		backend = newAnthropicBackend(apiKey, opts.Model)
	default:
		return nil, fmt.Errorf("unsupported translation provider: %s", provider)
	}
	if err != nil {
		return nil, err
	}

	return newBatchTranslator(backend, opts, logger), nil
}

func newBatchTranslator(backend completer, opts Options, logger *logging.Logger) *BatchTranslator {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &BatchTranslator{
		backend: backend,
		options: opts,
		logger:  logging.OrNop(logger),
	}
}

// Workers (up to Concurrency) pull batches from a shared queue; the first
// failing batch cancels the rest.
func (t *BatchTranslator) Translate(ctx context.Context, items []Item) ([]Item, error) {
	if len(items) == 0 {
		return []Item{}, nil
	}

	batches := splitBatches(items, t.options.BatchSize)
	if len(batches) == 1 {
		return t.translateBatch(ctx, batches[0])
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type batchResult struct {
		Index   int
		Results []Item
		Error   error
	}

	workChan := make(chan int)
	resultChan := make(chan batchResult, len(batches))

	var wg sync.WaitGroup
	for i := 0; i < t.options.Concurrency && i < len(batches); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batchIdx := range workChan {
				if ctx.Err() != nil {
					return
				}
				results, err := t.translateBatch(ctx, batches[batchIdx])
				if err != nil {
					cancel()
				}
				resultChan <- batchResult{Index: batchIdx, Results: results, Error: err}
			}
		}()
	}

	go func() {
		defer close(workChan)
		for i := range batches {
			select {
			case <-ctx.Done():
				return
			case workChan <- i:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	var (
		all      []Item
		firstErr error
		done     int
	)
	for result := range resultChan {
		if result.Error != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("batch %d failed: %w", result.Index, result.Error)
			}
			continue
		}
		done++
		all = append(all, result.Results...)
	}
	if firstErr != nil {
		return nil, firstErr
	}
	if done < len(batches) {
		return nil, ctx.Err()
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].Index < all[j].Index
	})
	return all, nil
}

func (t *BatchTranslator) translateBatch(ctx context.Context, items []Item) ([]Item, error) {
	t.logger.Debugw("Translating batch", "items", len(items), "first_index", items[0].Index)

	reply, err := t.backend.complete(ctx, BuildPrompt(t.options, items))
	if err != nil {
		return nil, fmt.Errorf("translation failed: %w", err)
	}
	return parseResponse(reply, items)
}

func splitBatches(items []Item, size int) [][]Item {
	var batches [][]Item
	for i := 0; i < len(items); i += size {
		batches = append(batches, items[i:min(i+size, len(items))])
	}
	return batches
}

// Segments translates caption text, keeping timing and labels.
func Segments(ctx context.Context, t Translator, segments []timeline.Segment) ([]timeline.Segment, error) {
	items := make([]Item, 0, len(segments))
	for i, seg := range segments {
		if seg.Text != "" {
			items = append(items, Item{Index: i, Text: seg.Text})
		}
	}
	if len(items) == 0 {
		return segments, nil
	}

	translated, err := t.Translate(ctx, items)
	if err != nil {
		return nil, err
	}

	out := append([]timeline.Segment(nil), segments...)
	for _, item := range translated {
		if item.Index < 0 || item.Index >= len(out) {
			return nil, fmt.Errorf("translation returned unknown index %d", item.Index)
		}
		out[item.Index].Text = item.Text
	}
	return out, nil
}
