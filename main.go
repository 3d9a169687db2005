package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tinyscreen/tinytv/internal/bardetect"
	"github.com/tinyscreen/tinytv/internal/config"
	"github.com/tinyscreen/tinytv/internal/display"
	"github.com/tinyscreen/tinytv/internal/ffmpeg"
	"github.com/tinyscreen/tinytv/pkg/converter"
)

var (
	rootCmd = &cobra.Command{
		Use:   "tinytv",
		Short: "A batch video converter for small fixed-geometry displays",
		Long: `tinytv converts arbitrary videos into the exact geometry of a small
display (such as a 4-inch 800x480 panel), removing letterbox bars,
burning in sidecar subtitles, and minimizing visible distortion.

Examples:
  # Convert everything in ~/Desktop/c_input for the default display
  tinytv convert -i ~/Desktop/c_input -o ~/Desktop/output

  # Same, but keep watching the input directory for new files
  tinytv convert -i ~/in -o ~/out --watch

  # Inspect what the black-bar detector would do to one file
  tinytv detect movie.mkv`,
	}

	convertCmd = &cobra.Command{
		Use:   "convert",
		Short: "Convert every video in a directory to the display geometry",
		Long: fmt.Sprintf(`Convert all videos found under the input directory.

Outputs that already exist are skipped, so an interrupted batch can be
re-run safely. One failed file never aborts the batch.

Supported display profiles:
%s`, formatSupportedProfiles()),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := buildOptions(cmd)
			if err != nil {
				return err
			}

			log := newLogger(opts.Verbose)
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			stats, err := converter.New(*opts, log).Run(ctx)
			if stats != nil {
				stats.RenderSummary(os.Stdout)
			}
			return err
		},
	}

	probeCmd = &cobra.Command{
		Use:   "probe <file>",
		Short: "Show the metadata the converter would use for a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(false)
			meta, err := ffmpeg.NewProber(log).Probe(args[0])
			if err != nil {
				return err
			}
			if meta.Geometry.Valid() {
				fmt.Printf("dimensions: %dx%d\n", meta.Geometry.Width, meta.Geometry.Height)
			} else {
				fmt.Println("dimensions: unknown")
			}
			if meta.HasDuration {
				fmt.Printf("duration: %.2fs\n", meta.Duration)
			} else {
				fmt.Println("duration: unknown")
			}
			if meta.Codec != "" {
				fmt.Printf("codec: %s\n", meta.Codec)
			}
			return nil
		},
	}

	detectCmd = &cobra.Command{
		Use:   "detect <file>",
		Short: "Run black-bar detection on a single file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			log := newLogger(verbose)

			meta, err := ffmpeg.NewProber(log).Probe(args[0])
			if err != nil {
				return err
			}
			box := bardetect.NewDetector(log).Detect(args[0], meta)
			if box == nil {
				fmt.Println("no significant black bars")
				return nil
			}
			fmt.Printf("crop=%d:%d:%d:%d\n", box.Width, box.Height, box.X, box.Y)
			return nil
		},
	}
)

func buildOptions(cmd *cobra.Command) (*config.Options, error) {
	opts := config.Default()

	profileName, _ := cmd.Flags().GetString("profile")
	profile, err := display.Get(profileName)
	if err != nil {
		return nil, err
	}
	display.Apply(profile, &opts)

	if configPath, _ := cmd.Flags().GetString("config"); configPath != "" {
		if err := config.LoadFile(configPath, &opts); err != nil {
			return nil, err
		}
	}

	// Flags are the outermost layer and win over file values when set.
	if v, _ := cmd.Flags().GetString("input"); v != "" {
		opts.InputDir = v
	}
	if v, _ := cmd.Flags().GetString("output"); v != "" {
		opts.OutputDir = v
	}
	if cmd.Flags().Changed("rotate") {
		opts.Rotate, _ = cmd.Flags().GetBool("rotate")
	}
	if cmd.Flags().Changed("rotate-dir") {
		v, _ := cmd.Flags().GetString("rotate-dir")
		opts.RotateDir = config.RotateDirection(v)
	}
	if cmd.Flags().Changed("threads") {
		opts.Threads, _ = cmd.Flags().GetInt("threads")
	}
	if v, _ := cmd.Flags().GetBool("force"); v {
		opts.Force = true
	}
	if v, _ := cmd.Flags().GetBool("watch"); v {
		opts.Watch = true
	}
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		opts.Verbose = true
	}

	if opts.InputDir == "" || opts.OutputDir == "" {
		return nil, fmt.Errorf("input and output directories are required")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &opts, nil
}

func formatSupportedProfiles() string {
	var sb strings.Builder
	for _, name := range display.Supported() {
		sb.WriteString(fmt.Sprintf("- %s\n", name))
	}
	return sb.String()
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.Kitchen,
	}).Level(level).With().Timestamp().Logger()
}

func init() {
	convertCmd.Flags().StringP("input", "i", "", "Input directory to scan for videos")
	convertCmd.Flags().StringP("output", "o", "", "Output directory for converted videos")
	convertCmd.Flags().StringP("profile", "p", "tinytv",
		fmt.Sprintf("Display profile (%s)", strings.Join(display.Supported(), ", ")))
	convertCmd.Flags().String("config", "", "Optional TOML config file")
	convertCmd.Flags().Bool("rotate", true, "Rotate output 90 degrees for a portrait-mounted display")
	convertCmd.Flags().String("rotate-dir", string(config.RotateCounterclockwise),
		"Rotation direction (clockwise or counterclockwise)")
	convertCmd.Flags().Int("threads", 0, "Encoder thread cap (0 = auto)")
	convertCmd.Flags().Bool("force", false, "Re-encode even when the output already exists")
	convertCmd.Flags().Bool("watch", false, "Keep watching the input directory for new files")
	convertCmd.Flags().BoolP("verbose", "v", false, "Enable verbose logging")

	convertCmd.MarkFlagRequired("input")
	convertCmd.MarkFlagRequired("output")

	detectCmd.Flags().BoolP("verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(detectCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
