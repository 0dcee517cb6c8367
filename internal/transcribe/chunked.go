package transcribe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/mgpai22/clipforge/internal/audio"
	"github.com/mgpai22/clipforge/internal/logging"
	"github.com/mgpai22/clipforge/internal/timeline"
)

// Splitter cuts audio into consecutive chunks.
type Splitter interface {
	Split(
		ctx context.Context,
		audioPath string,
		chunkSeconds float64,
		outputDir string,
	) ([]audio.ChunkInfo, error)
}

// Chunked wraps a transcriber so long audio is split and transcribed in
// parallel. Remote APIs cap upload size, so this is how they are used.
type Chunked struct {
	inner    Transcriber
	splitter Splitter
	logger   *logging.Logger

	ChunkSeconds float64
	Concurrency  int
}

func NewChunked(inner Transcriber, splitter Splitter, logger *logging.Logger) *Chunked {
	return &Chunked{
		inner:        inner,
		splitter:     splitter,
		logger:       logging.OrNop(logger),
		ChunkSeconds: 600,
		Concurrency:  3,
	}
}

func (c *Chunked) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	dir, err := os.MkdirTemp(filepath.Dir(audioPath), "chunks-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create chunk directory: %w", err)
	}
	defer os.RemoveAll(dir)

	chunks, err := c.splitter.Split(ctx, audioPath, c.ChunkSeconds, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to chunk audio: %w", err)
	}
	c.logger.Debugw("Transcribing audio in chunks", "chunks", len(chunks), "concurrency", c.Concurrency)

	return TranscribeChunks(ctx, c.inner, chunks, c.Concurrency)
}

// holds the result of transcribing a chunk
type chunkResult struct {
	Index    int
	Segments []timeline.Segment
	Language string
	Error    error
}

// TranscribeChunks transcribes chunks with up to concurrency workers and
// merges the segments in chunk order, shifted by each chunk's offset. The
// first failure cancels the remaining work.
func TranscribeChunks(
	ctx context.Context,
	t Transcriber,
	chunks []audio.ChunkInfo,
	concurrency int,
) (*Result, error) {
	if len(chunks) == 0 {
		return &Result{}, nil
	}

	if concurrency <= 0 {
		concurrency = 3
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workChan := make(chan audio.ChunkInfo)
	resultChan := make(chan chunkResult, len(chunks))

	var wg sync.WaitGroup
	for i := 0; i < concurrency && i < len(chunks); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for chunk := range workChan {
				if ctx.Err() != nil {
					return
				}
				result, err := t.Transcribe(ctx, chunk.Path)
				if err != nil {
					cancel()
					resultChan <- chunkResult{Index: chunk.Index, Error: err}
					continue
				}
				resultChan <- chunkResult{
					Index:    chunk.Index,
					Segments: offsetSegments(result.Segments, chunk),
					Language: result.Language,
				}
			}
		}()
	}

	go func() {
		defer close(workChan)
		for _, chunk := range chunks {
			select {
			case <-ctx.Done():
				return
			case workChan <- chunk:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make([]chunkResult, 0, len(chunks))
	var firstErr error
	for result := range resultChan {
		if result.Error != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("chunk %d failed: %w", result.Index, result.Error)
			}
			continue
		}
		results = append(results, result)
	}
	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil && len(results) < len(chunks) {
		return nil, err
	}

	// sort by index to maintain order
	sort.Slice(results, func(i, j int) bool {
		return results[i].Index < results[j].Index
	})

	merged := &Result{Duration: chunks[len(chunks)-1].End}
	for _, r := range results {
		merged.Segments = append(merged.Segments, r.Segments...)
		if merged.Language == "" {
			merged.Language = r.Language
		}
	}
	return merged, nil
}

// shifts chunk-relative segments onto the source timeline
func offsetSegments(segments []timeline.Segment, chunk audio.ChunkInfo) []timeline.Segment {
	length := chunk.End - chunk.Start
	out := make([]timeline.Segment, 0, len(segments))
	for _, seg := range segments {
		end := seg.End
		if end <= seg.Start && length > 0 {
			end = length
		}
		out = append(out, timeline.Segment{
			Start: seg.Start + chunk.Start,
			End:   end + chunk.Start,
			Label: timeline.LabelCaption,
			Text:  seg.Text,
		})
	}
	return out
}
