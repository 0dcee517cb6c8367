package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mgpai22/clipforge/internal/manifest"
	"github.com/mgpai22/clipforge/internal/pipeline"
)

var processCmd = &cobra.Command{
	Use:   "process [video]",
	Short: "Cut silence and/or caption a video",
	Long: `Process a video through the editing pipeline.

Settings come either from flags or from a JSON/TOML manifest. Without
--output the result is written next to the input as <name>_edited<ext>.

Examples:
  clipforge process talk.mp4 --cut-silence
  clipforge process talk.mp4 --captions --caption-format vtt
  clipforge process talk.mp4 --cut-silence --captions --caption-provider openai --burn-captions
  clipforge process --manifest job.toml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runProcess,
}

// flag values for process
type processOptions struct {
	manifestPath string
	output       string
	language     string

	cutSilence bool
	threshold  float64
	minSilence float64
	padding    float64

	captions          bool
	captionModel      string
	captionFormat     string
	captionProvider   string
	wordLevel         bool
	burnCaptions      bool
	maxLineChars      int
	transcriptLang    string
	prompt            string
	translateTo       string
	translateProvider string

	workDir string
}

var processOpts processOptions

func init() {
	rootCmd.AddCommand(processCmd)

	defaults := manifest.New("", "")
	f := processCmd.Flags()
	f.StringVarP(&processOpts.manifestPath, "manifest", "m", "", "Path to a JSON or TOML manifest")
	f.StringVar(&processOpts.workDir, "work-dir", "", "Keep intermediate files in this directory")

	f.BoolVar(&processOpts.cutSilence, "cut-silence", false, "Remove silent segments")
	f.Float64Var(&processOpts.threshold, "silence-threshold", defaults.SilenceCut.ThresholdDB, "Silence threshold in dB")
	f.Float64Var(&processOpts.minSilence, "silence-min-duration", defaults.SilenceCut.MinDuration, "Minimum silence duration in seconds")
	f.Float64Var(&processOpts.padding, "silence-padding", defaults.SilenceCut.Padding, "Seconds of silence kept on each side of a cut")

	f.BoolVar(&processOpts.captions, "captions", false, "Generate captions")
	f.StringVar(&processOpts.captionModel, "caption-model", defaults.Captions.Model, "Whisper model size, or a provider model name")
	f.StringVar(&processOpts.captionFormat, "caption-format", defaults.Captions.OutputFormat, "Caption format (srt, vtt, ass)")
	f.StringVar(&processOpts.captionProvider, "caption-provider", defaults.Captions.Provider, "Transcription provider (whisper, openai, gemini)")
	f.BoolVar(&processOpts.wordLevel, "word-level", false, "One caption per word where the provider supports it")
	f.BoolVar(&processOpts.burnCaptions, "burn-captions", false, "Render captions onto the video")
	f.IntVar(&processOpts.maxLineChars, "max-line-chars", 0, "Maximum caption line length (default 42)")
	f.StringVar(&processOpts.transcriptLang, "transcript-language", "", "Language of the transcript itself, e.g. en to transcribe straight to English")
	f.StringVar(&processOpts.prompt, "caption-prompt", "", "Names or vocabulary to guide transcription")
	f.StringVar(&processOpts.translateTo, "translate-to", "", "Translate captions to this language")
	f.StringVar(&processOpts.translateProvider, "translate-provider", defaults.Captions.TranslateProvider, "Translation provider (gemini, openai, anthropic)")
}

func runProcess(cmd *cobra.Command, args []string) error {
	processOpts.output, _ = cmd.Flags().GetString("output")
	processOpts.language, _ = cmd.Flags().GetString("language")

	m, err := processOpts.buildManifest(args)
	if err != nil {
		return err
	}

	engine, paths, err := newEngine()
	if err != nil {
		return err
	}

	p := pipeline.New(pipeline.Deps{
		Engine:      engine,
		Transcriber: pipeline.DefaultTranscriber(engine, paths.FFmpeg, logger),
		Translator:  pipeline.DefaultTranslator(logger),
		Logger:      logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	progress := newProgressPrinter(out, isTerminal(out))
	result, err := p.Process(ctx, m, progress.handle)
	progress.finish()
	if err != nil {
		return fmt.Errorf("%s error: %w", pipeline.Kind(err), err)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, renderTable(
		[]string{"Result", "Value"},
		summaryRows(result),
		[]columnAlignment{alignLeft, alignLeft},
	))
	return nil
}

func (o processOptions) buildManifest(args []string) (*manifest.Manifest, error) {
	if o.manifestPath != "" {
		m, err := manifest.Load(o.manifestPath)
		if err != nil {
			return nil, err
		}
		if o.output != "" {
			m.Output = o.output
		}
		if o.workDir != "" {
			m.WorkDir = o.workDir
		}
		if err := m.Validate(); err != nil {
			return nil, err
		}
		return m, nil
	}

	if len(args) == 0 {
		return nil, errors.New("provide either a video argument or --manifest")
	}

	input := args[0]
	output := o.output
	if output == "" {
		output = defaultOutputPath(input)
	}

	m := manifest.New(input, output)
	m.WorkDir = o.workDir
	m.SilenceCut = manifest.SilenceCut{
		Enabled:     o.cutSilence,
		ThresholdDB: o.threshold,
		MinDuration: o.minSilence,
		Padding:     o.padding,
	}
	m.Captions = manifest.Captions{
		Enabled:            o.captions,
		Provider:           o.captionProvider,
		Model:              o.captionModel,
		Language:           o.language,
		OutputFormat:       o.captionFormat,
		WordLevel:          o.wordLevel,
		BurnIn:             o.burnCaptions,
		MaxLineChars:       o.maxLineChars,
		TranscriptLanguage: o.transcriptLang,
		Prompt:             o.prompt,
		TranslateTo:        o.translateTo,
		TranslateProvider:  o.translateProvider,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// defaultOutputPath returns <stem>_edited<ext> beside input.
func defaultOutputPath(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "_edited" + ext
}

func summaryRows(r *pipeline.Result) [][]string {
	rows := [][]string{
		{"Output", r.OutputPath},
		{"Duration", fmt.Sprintf("%.1fs -> %.1fs", r.OriginalDuration, r.FinalDuration)},
	}
	if r.SilenceSegmentsRemoved > 0 {
		rows = append(rows, []string{"Silent segments removed", strconv.Itoa(r.SilenceSegmentsRemoved)})
	}
	if r.CaptionPath != "" {
		rows = append(rows, []string{"Captions", r.CaptionPath})
	}
	return rows
}

// progressPrinter renders pipeline events, redrawing one line on a terminal
// and printing a line per stage or 5% step otherwise.
type progressPrinter struct {
	w       io.Writer
	inPlace bool

	stage   string
	percent int
	drawn   bool
}

func newProgressPrinter(w io.Writer, inPlace bool) *progressPrinter {
	return &progressPrinter{w: w, inPlace: inPlace, percent: -1}
}

func (p *progressPrinter) handle(e pipeline.Event) {
	percent := int(e.Fraction * 100)

	if p.inPlace {
		fmt.Fprintf(p.w, "\r  [%3d%%] %-14s", percent, e.Stage)
		p.drawn = true
		p.stage, p.percent = e.Stage, percent
		return
	}

	if e.Stage == p.stage && percent < p.percent+5 {
		return
	}
	fmt.Fprintf(p.w, "  [%3d%%] %s\n", percent, e.Stage)
	p.stage, p.percent = e.Stage, percent
}

// finish ends an in-place line.
func (p *progressPrinter) finish() {
	if p.inPlace && p.drawn {
		fmt.Fprintln(p.w)
	}
}
