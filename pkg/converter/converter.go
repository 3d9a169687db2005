// Package converter is the batch orchestrator: it enumerates source
// videos, derives a fitting plan per file, invokes the encoder, and
// reports per-run statistics. Files are processed strictly one at a
// time; a failure is isolated to its file and never aborts the batch.
package converter

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/tinyscreen/tinytv/internal/bardetect"
	"github.com/tinyscreen/tinytv/internal/config"
	"github.com/tinyscreen/tinytv/internal/ffmpeg"
	"github.com/tinyscreen/tinytv/internal/filterchain"
	"github.com/tinyscreen/tinytv/internal/fitting"
	"github.com/tinyscreen/tinytv/internal/subtitle"
)

// Prober yields source metadata. Unknown geometry is a normal result.
type Prober interface {
	Probe(path string) (*ffmpeg.Metadata, error)
}

// BarDetector proposes a bar-crop rectangle, or nil for none.
type BarDetector interface {
	Detect(path string, meta *ffmpeg.Metadata) *fitting.CropBox
}

// Encoder runs one encode job to completion.
type Encoder interface {
	Encode(ctx context.Context, job ffmpeg.EncodeJob) error
}

// Converter drives the batch.
type Converter struct {
	opts     config.Options
	log      zerolog.Logger
	prober   Prober
	detector BarDetector
	encoder  Encoder
}

// New wires a Converter with the real ffmpeg-backed collaborators.
func New(opts config.Options, log zerolog.Logger) *Converter {
	return NewWithBackends(opts, log,
		ffmpeg.NewProber(log),
		bardetect.NewDetector(log),
		ffmpeg.NewEncoder(log, opts.Verbose),
	)
}

// NewWithBackends wires a Converter with explicit collaborators.
func NewWithBackends(opts config.Options, log zerolog.Logger, p Prober, d BarDetector, e Encoder) *Converter {
	return &Converter{opts: opts, log: log, prober: p, detector: d, encoder: e}
}

// Run processes the whole input directory once and, in watch mode,
// keeps converting files as they appear until the context is cancelled.
func (c *Converter) Run(ctx context.Context) (*Stats, error) {
	if err := c.opts.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(c.opts.OutputDir, 0755); err != nil {
		return nil, errors.Wrap(err, "create output directory")
	}

	// Two concurrent runs would race the "output exists" check, so the
	// output directory is held for the duration of the run.
	lock := flock.New(filepath.Join(c.opts.OutputDir, ".tinytv.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, errors.Wrap(err, "acquire output lock")
	}
	if !locked {
		return nil, errors.Errorf("another run is already writing to %s", c.opts.OutputDir)
	}
	defer lock.Unlock()

	videos, err := FindVideos(c.opts.InputDir)
	if err != nil {
		return nil, err
	}

	stats := NewStats(len(videos))
	c.log.Info().
		Int("files", len(videos)).
		Str("profile", c.opts.Profile).
		Int("height", c.opts.Target.Height).
		Int("width_min", c.opts.Target.WidthMin).
		Int("width_max", c.opts.Target.WidthMax).
		Int("width_preferred", c.opts.Target.WidthPreferred).
		Bool("rotate", c.opts.Rotate).
		Msg("starting batch")

	for i, video := range videos {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		res := c.ProcessFile(ctx, video)
		stats.Record(res)
		c.logResult(res, i+1, len(videos))
	}

	if c.opts.Watch {
		if err := c.watch(ctx, stats); err != nil && !errors.Is(err, context.Canceled) {
			return stats, err
		}
	}
	return stats, nil
}

// ProcessFile runs the full pipeline for one source: probe, bar
// detection, fitting, filter composition, encode. The output-exists
// check happens immediately before any work so completed files are
// never redone.
func (c *Converter) ProcessFile(ctx context.Context, inputPath string) FileResult {
	res := FileResult{
		Input:  inputPath,
		Output: OutputPath(c.opts.OutputDir, inputPath),
	}

	if !c.opts.Force {
		if _, err := os.Stat(res.Output); err == nil {
			res.Status = StatusSkipped
			return res
		}
	}

	meta, err := c.prober.Probe(inputPath)
	if err != nil {
		res.Status = StatusFailed
		res.Err = err
		return res
	}

	srtPath := subtitle.FindSidecar(inputPath)
	barCrop := c.detector.Detect(inputPath, meta)

	req := filterchain.Request{
		Source:        meta.Geometry,
		BarCrop:       barCrop,
		SubtitlePath:  srtPath,
		SubtitleStyle: c.opts.Subtitles,
		Rotate:        c.opts.Rotate,
		RotateDir:     c.opts.RotateDir,
		Fallback: fitting.Geometry{
			Width:  c.opts.Target.WidthPreferred,
			Height: c.opts.Target.Height,
		},
	}

	if meta.Geometry.Valid() {
		// Fitting reasons about the frame that survives the bar crop.
		current := meta.Geometry
		if barCrop != nil {
			current = fitting.Geometry{Width: barCrop.Width, Height: barCrop.Height}
		}
		target := fitting.SelectTarget(current, c.opts.Rotate, c.opts.Target)
		plan := fitting.SelectStrategy(current, target, c.opts.Limits)
		req.Plan = &plan
		res.Strategy = strategyLabel(plan)

		c.log.Debug().
			Str("file", inputPath).
			Int("source_w", current.Width).
			Int("source_h", current.Height).
			Int("target_w", target.Width).
			Int("target_h", target.Height).
			Str("mode", string(plan.Mode)).
			Float64("distortion", plan.DistortionFactor).
			Msg("fitting plan")
	} else {
		res.Strategy = StrategyFallback
		c.log.Warn().Str("file", inputPath).Msg("geometry unknown, using fallback chain")
	}

	chain := filterchain.Compose(req)

	job := ffmpeg.EncodeJob{
		InputPath:  inputPath,
		OutputPath: res.Output,
		Filters:    chain,
		Threads:    c.opts.Threads,
	}

	var printer *progressPrinter
	if meta.HasDuration && isatty.IsTerminal(os.Stdout.Fd()) {
		printer = newProgressPrinter(os.Stdout, time.Duration(meta.Duration*float64(time.Second)))
		job.Observer = printer
	}

	start := time.Now()
	err = c.encoder.Encode(ctx, job)
	res.Elapsed = time.Since(start)
	if printer != nil {
		if err == nil {
			printer.finish()
		} else {
			// Drop to a fresh line so the error doesn't land mid-bar.
			os.Stdout.WriteString("\n")
		}
	}

	if err != nil {
		res.Status = StatusFailed
		res.Err = err
		return res
	}

	res.Status = StatusProcessed
	return res
}

func (c *Converter) logResult(res FileResult, index, total int) {
	base := filepath.Base(res.Input)
	switch res.Status {
	case StatusSkipped:
		c.log.Info().Int("n", index).Int("of", total).Str("file", base).
			Msg("output exists, skipping")
	case StatusFailed:
		// A partial output may remain on disk; the next run treats it
		// as done unless removed or forced.
		c.log.Error().Int("n", index).Int("of", total).Str("file", base).
			Err(res.Err).Msg("encode failed")
	case StatusProcessed:
		c.log.Info().Int("n", index).Int("of", total).Str("file", base).
			Str("strategy", res.Strategy).
			Dur("took", res.Elapsed).
			Msg("encoded")
	}
}

func strategyLabel(plan fitting.Plan) string {
	switch plan.Mode {
	case fitting.ModeScaleThenCrop:
		return StrategyCrop
	case fitting.ModeUniformDistort:
		if plan.DistortionFactor == 1.0 {
			return StrategyExact
		}
		return StrategyDistort
	}
	return StrategyFallback
}
