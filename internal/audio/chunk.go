package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/mgpai22/clipforge/internal/logging"
	"github.com/mgpai22/clipforge/internal/media"
)

// audio chunk info; Start and End are offsets into the source in seconds
type ChunkInfo struct {
	Path  string
	Index int
	Start float64
	End   float64
}

// Prober reports media duration.
type Prober interface {
	Probe(ctx context.Context, path string) (*media.ProbeResult, error)
}

// Chunker splits audio into fixed-length pieces with stream copy.
type Chunker struct {
	ffmpeg string
	prober Prober
	logger *logging.Logger

	// If Concurrency is 0 or negative, it defaults to 10 concurrent workers.
	Concurrency int
}

func NewChunker(ffmpegPath string, prober Prober, logger *logging.Logger) *Chunker {
	return &Chunker{
		ffmpeg: ffmpegPath,
		prober: prober,
		logger: logging.OrNop(logger),
	}
}

// Split cuts audioPath into chunks of chunkSeconds written to outputDir,
// returned in source order.
func (c *Chunker) Split(
	ctx context.Context,
	audioPath string,
	chunkSeconds float64,
	outputDir string,
) ([]ChunkInfo, error) {
	if chunkSeconds <= 0 {
		return nil, fmt.Errorf("chunk duration must be positive, got %v", chunkSeconds)
	}
	if _, err := os.Stat(audioPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("audio file not found: %s", audioPath)
	}

	probe, err := c.prober.Probe(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get audio duration: %w", err)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	jobs := planChunks(audioPath, probe.Duration, chunkSeconds, outputDir)
	if len(jobs) == 1 {
		// nothing to split
		jobs[0].Path = audioPath
		return jobs, nil
	}

	concurrency := c.Concurrency
	if concurrency <= 0 {
		concurrency = 10
	}

	var (
		mu       sync.Mutex
		chunks   []ChunkInfo
		firstErr error
		wg       sync.WaitGroup
	)

	sem := make(chan struct{}, concurrency)

	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(j ChunkInfo) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			mu.Lock()
			hasErr := firstErr != nil
			mu.Unlock()
			if hasErr || ctx.Err() != nil {
				return
			}

			err := c.cut(ctx, audioPath, j)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("failed to create chunk %d: %w", j.Index, err)
				}
				return
			}
			chunks = append(chunks, j)
		}(job)
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// sort chunks by index to maintain order
	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].Index < chunks[j].Index
	})

	return chunks, nil
}

func (c *Chunker) cut(ctx context.Context, audioPath string, j ChunkInfo) error {
	args := ffmpeg.Input(audioPath, ffmpeg.KwArgs{
		"ss": strconv.FormatFloat(j.Start, 'f', 3, 64),
		"t":  strconv.FormatFloat(j.End-j.Start, 'f', 3, 64),
	}).
		Output(j.Path, ffmpeg.KwArgs{"c": "copy"}).
		OverWriteOutput().
		GetArgs()

	c.logger.Debugw("Cutting audio chunk", "index", j.Index, "args", args)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.ffmpeg, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &media.DelegateError{Op: "ffmpeg chunk", Err: err, Output: stderr.String()}
	}
	return nil
}

// planChunks lays out consecutive windows covering [0, total]
func planChunks(audioPath string, total, chunkSeconds float64, outputDir string) []ChunkInfo {
	baseName := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	ext := filepath.Ext(audioPath)

	if total <= 0 {
		return []ChunkInfo{{Path: audioPath, Index: 0}}
	}

	var chunks []ChunkInfo
	for i := 0; ; i++ {
		start := float64(i) * chunkSeconds
		if start >= total {
			break
		}
		chunks = append(chunks, ChunkInfo{
			Path:  filepath.Join(outputDir, fmt.Sprintf("%s_chunk_%03d%s", baseName, i, ext)),
			Index: i,
			Start: start,
			End:   min(start+chunkSeconds, total),
		})
	}
	return chunks
}
