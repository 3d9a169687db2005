package converter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyscreen/tinytv/internal/config"
	"github.com/tinyscreen/tinytv/internal/ffmpeg"
	"github.com/tinyscreen/tinytv/internal/fitting"
)

// stubProber serves canned metadata keyed by base name; files without an
// entry probe as unknown.
type stubProber struct {
	metas map[string]*ffmpeg.Metadata
	errs  map[string]error
}

func (s *stubProber) Probe(path string) (*ffmpeg.Metadata, error) {
	base := filepath.Base(path)
	if err := s.errs[base]; err != nil {
		return nil, err
	}
	if meta := s.metas[base]; meta != nil {
		return meta, nil
	}
	return &ffmpeg.Metadata{}, nil
}

// stubDetector serves canned bar crops keyed by base name.
type stubDetector struct {
	boxes map[string]*fitting.CropBox
}

func (s *stubDetector) Detect(path string, meta *ffmpeg.Metadata) *fitting.CropBox {
	return s.boxes[filepath.Base(path)]
}

// stubEncoder records every job and materializes the output file on
// success, mirroring what a real encode leaves behind.
type stubEncoder struct {
	jobs  []ffmpeg.EncodeJob
	fails map[string]bool
}

func (s *stubEncoder) Encode(ctx context.Context, job ffmpeg.EncodeJob) error {
	s.jobs = append(s.jobs, job)
	if s.fails[filepath.Base(job.InputPath)] {
		return errors.New("encoder exploded")
	}
	return os.WriteFile(job.OutputPath, []byte("encoded"), 0o644)
}

func hdMeta() *ffmpeg.Metadata {
	return &ffmpeg.Metadata{
		Geometry:    fitting.Geometry{Width: 1920, Height: 1080},
		Duration:    120,
		HasDuration: true,
		Codec:       "h264",
	}
}

func testOptions(t *testing.T) config.Options {
	t.Helper()
	opts := config.Default()
	opts.InputDir = t.TempDir()
	opts.OutputDir = t.TempDir()
	opts.Target = config.TargetPolicy{
		Height:             480,
		WidthMin:           770,
		WidthMax:           800,
		WidthPreferred:     780,
		PreferenceStrength: 5,
	}
	opts.Limits = config.ScalingLimits{
		MaxStretch:             1.15,
		MinSqueeze:             0.85,
		PreferredMaxDistortion: 1.10,
	}
	return opts
}

func writeInput(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
}

func newTestConverter(opts config.Options, p *stubProber, d *stubDetector, e *stubEncoder) *Converter {
	return NewWithBackends(opts, zerolog.Nop(), p, d, e)
}

func TestRunProcessesBatchAndSkipsOnRerun(t *testing.T) {
	opts := testOptions(t)
	writeInput(t, opts.InputDir, "a.mp4", "b.mkv")

	prober := &stubProber{metas: map[string]*ffmpeg.Metadata{
		"a.mp4": hdMeta(),
		"b.mkv": hdMeta(),
	}}
	detector := &stubDetector{}
	encoder := &stubEncoder{}

	stats, err := newTestConverter(opts, prober, detector, encoder).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 0, stats.Skipped)
	assert.Len(t, encoder.jobs, 2)
	assert.FileExists(t, filepath.Join(opts.OutputDir, "a.mp4"))
	assert.FileExists(t, filepath.Join(opts.OutputDir, "b.mp4"))

	// A second run finds every output in place and never touches the
	// encoder.
	stats, err = newTestConverter(opts, prober, detector, encoder).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, 0, stats.Processed)
	assert.Len(t, encoder.jobs, 2)
}

func TestRunForceReencodes(t *testing.T) {
	opts := testOptions(t)
	writeInput(t, opts.InputDir, "a.mp4")

	prober := &stubProber{metas: map[string]*ffmpeg.Metadata{"a.mp4": hdMeta()}}
	encoder := &stubEncoder{}

	_, err := newTestConverter(opts, prober, &stubDetector{}, encoder).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, encoder.jobs, 1)

	opts.Force = true
	stats, err := newTestConverter(opts, prober, &stubDetector{}, encoder).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Processed)
	assert.Len(t, encoder.jobs, 2)
}

func TestRunIsolatesFailures(t *testing.T) {
	opts := testOptions(t)
	writeInput(t, opts.InputDir, "bad.mp4", "good.mp4")

	prober := &stubProber{metas: map[string]*ffmpeg.Metadata{
		"bad.mp4":  hdMeta(),
		"good.mp4": hdMeta(),
	}}
	encoder := &stubEncoder{fails: map[string]bool{"bad.mp4": true}}

	stats, err := newTestConverter(opts, prober, &stubDetector{}, encoder).Run(context.Background())
	require.NoError(t, err)

	// The failure is counted but the batch continues to the next file.
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Processed)
	assert.Len(t, encoder.jobs, 2)
	assert.FileExists(t, filepath.Join(opts.OutputDir, "good.mp4"))
	assert.NoFileExists(t, filepath.Join(opts.OutputDir, "bad.mp4"))
}

func TestRunProbeErrorMarksFileFailed(t *testing.T) {
	opts := testOptions(t)
	writeInput(t, opts.InputDir, "gone.mp4")

	prober := &stubProber{errs: map[string]error{"gone.mp4": errors.New("no such file")}}
	encoder := &stubEncoder{}

	stats, err := newTestConverter(opts, prober, &stubDetector{}, encoder).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.Empty(t, encoder.jobs)
}

func TestRunRefusesHeldOutputLock(t *testing.T) {
	opts := testOptions(t)
	writeInput(t, opts.InputDir, "a.mp4")

	held := flock.New(filepath.Join(opts.OutputDir, ".tinytv.lock"))
	locked, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer held.Unlock()

	encoder := &stubEncoder{}
	_, err = newTestConverter(opts, &stubProber{}, &stubDetector{}, encoder).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "another run is already writing")
	assert.Empty(t, encoder.jobs)
}

func TestRunReleasesOutputLock(t *testing.T) {
	opts := testOptions(t)

	_, err := newTestConverter(opts, &stubProber{}, &stubDetector{}, &stubEncoder{}).Run(context.Background())
	require.NoError(t, err)

	// The lock must be free again once the run returns.
	lock := flock.New(filepath.Join(opts.OutputDir, ".tinytv.lock"))
	locked, err := lock.TryLock()
	require.NoError(t, err)
	assert.True(t, locked)
	lock.Unlock()
}

func TestRunRejectsInvalidOptions(t *testing.T) {
	opts := testOptions(t)
	opts.Target.Height = 0

	_, err := newTestConverter(opts, &stubProber{}, &stubDetector{}, &stubEncoder{}).Run(context.Background())
	assert.Error(t, err)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	opts := testOptions(t)
	writeInput(t, opts.InputDir, "a.mp4")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	encoder := &stubEncoder{}
	_, err := newTestConverter(opts, &stubProber{}, &stubDetector{}, encoder).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, encoder.jobs)
}

func TestProcessFileFallbackOnUnknownGeometry(t *testing.T) {
	opts := testOptions(t)
	writeInput(t, opts.InputDir, "weird.mp4")

	encoder := &stubEncoder{}
	c := newTestConverter(opts, &stubProber{}, &stubDetector{}, encoder)

	res := c.ProcessFile(context.Background(), filepath.Join(opts.InputDir, "weird.mp4"))

	assert.Equal(t, StatusProcessed, res.Status)
	assert.Equal(t, StrategyFallback, res.Strategy)
	require.Len(t, encoder.jobs, 1)
	assert.Equal(t, "scale=780:480,transpose=2", encoder.jobs[0].Filters.String())
}

func TestProcessFileBarCropFeedsFitting(t *testing.T) {
	opts := testOptions(t)
	writeInput(t, opts.InputDir, "letterboxed.mkv")

	prober := &stubProber{metas: map[string]*ffmpeg.Metadata{"letterboxed.mkv": hdMeta()}}
	detector := &stubDetector{boxes: map[string]*fitting.CropBox{
		"letterboxed.mkv": {Width: 1920, Height: 800, X: 0, Y: 140},
	}}
	encoder := &stubEncoder{}
	c := newTestConverter(opts, prober, detector, encoder)

	res := c.ProcessFile(context.Background(), filepath.Join(opts.InputDir, "letterboxed.mkv"))

	// The 1920x800 frame that survives the bar crop is 2.4:1, far past
	// the distortion bounds, so it scales to cover and center-crops.
	assert.Equal(t, StatusProcessed, res.Status)
	assert.Equal(t, StrategyCrop, res.Strategy)
	require.Len(t, encoder.jobs, 1)
	assert.Equal(t,
		"crop=1920:800:0:140,scale=1152:480,crop=770:480:191:0,transpose=2",
		encoder.jobs[0].Filters.String())
}

func TestProcessFileBurnsSidecarSubtitles(t *testing.T) {
	opts := testOptions(t)
	opts.Rotate = false
	writeInput(t, opts.InputDir, "show.mp4", "show.srt")

	prober := &stubProber{metas: map[string]*ffmpeg.Metadata{
		"show.mp4": {
			Geometry:    fitting.Geometry{Width: 1600, Height: 960},
			Duration:    60,
			HasDuration: true,
		},
	}}
	encoder := &stubEncoder{}
	c := newTestConverter(opts, prober, &stubDetector{}, encoder)

	res := c.ProcessFile(context.Background(), filepath.Join(opts.InputDir, "show.mp4"))

	// 1600x960 hits the top of the band exactly, so no crop and no
	// distortion, just the scale and the burn-in.
	assert.Equal(t, StrategyExact, res.Strategy)
	require.Len(t, encoder.jobs, 1)
	chain := encoder.jobs[0].Filters.String()
	assert.Contains(t, chain, "scale=800:480,subtitles='")
	assert.Contains(t, chain, "show.srt")
	assert.NotContains(t, chain, "transpose")
}

func TestProcessFileSkipLeavesExistingOutput(t *testing.T) {
	opts := testOptions(t)
	writeInput(t, opts.InputDir, "done.mp4")

	existing := filepath.Join(opts.OutputDir, "done.mp4")
	require.NoError(t, os.WriteFile(existing, []byte("previous run"), 0o644))

	encoder := &stubEncoder{}
	c := newTestConverter(opts, &stubProber{}, &stubDetector{}, encoder)

	res := c.ProcessFile(context.Background(), filepath.Join(opts.InputDir, "done.mp4"))

	assert.Equal(t, StatusSkipped, res.Status)
	assert.Empty(t, encoder.jobs)

	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "previous run", string(data))
}
