package ffmpeg

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/tinyscreen/tinytv/internal/filterchain"
)

// EncodeJob is one encoder invocation: a source, a composed filter
// chain, and the output path.
type EncodeJob struct {
	InputPath  string
	OutputPath string
	Filters    filterchain.Chain

	// Threads caps the encoder's worker threads; <=0 uses the machine
	// optimum.
	Threads int

	// Observer, when set, receives progress events from the encode's
	// -progress side channel.
	Observer Observer
}

// Encoder runs ffmpeg encodes tuned for the small H.264 displays this
// tool targets.
type Encoder struct {
	log     zerolog.Logger
	verbose bool
}

// NewEncoder creates an Encoder. With verbose set, ffmpeg's own
// diagnostics pass through to stdout.
func NewEncoder(log zerolog.Logger, verbose bool) *Encoder {
	return &Encoder{log: log, verbose: verbose}
}

// Encode transcodes one file. A non-zero ffmpeg exit is returned as an
// error; any partial output file is left on disk for the caller to
// account for.
func (e *Encoder) Encode(ctx context.Context, job EncodeJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	threads := job.Threads
	if threads <= 0 {
		threads = OptimalThreadCount()
	}

	vf := job.Filters.String()
	e.log.Debug().
		Str("file", job.InputPath).
		Str("filters", vf).
		Int("threads", threads).
		Msg("starting encode")

	stream := ffmpeg.Input(job.InputPath).
		Output(job.OutputPath, ffmpeg.KwArgs{
			"vf":        vf,
			"c:v":       "libx264",
			"profile:v": "main",
			"level":     "3.0",
			"preset":    "veryslow",
			"crf":       23,
			"threads":   threads,
			"c:a":       "aac",
			"b:a":       "256k",
			"pix_fmt":   "yuv420p",
			"movflags":  "+faststart",
		}).
		OverWriteOutput()

	if job.Observer != nil {
		sock, cleanup, err := progressSocket(e.log, job.Observer)
		if err != nil {
			e.log.Warn().Err(err).Msg("progress socket unavailable, encoding without progress")
		} else {
			defer cleanup()
			stream = stream.GlobalArgs("-progress", "unix://"+sock)
		}
	}

	if e.verbose {
		stream = stream.ErrorToStdOut()
	} else {
		stream = stream.WithErrorOutput(io.Discard)
	}

	if err := stream.Run(); err != nil {
		return errors.Wrapf(err, "encode %s", job.InputPath)
	}
	return nil
}
