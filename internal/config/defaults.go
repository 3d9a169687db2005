package config

// Subtitle defaults, sized for readability on a 4-inch panel.
const (
	DefaultSubtitleFont    = "Arial"
	DefaultSubtitleSize    = 18
	DefaultSubtitleOutline = 2
	DefaultSubtitleMarginV = 15
)

// Default returns the baseline options before any profile, file or flag
// overrides are applied.
func Default() Options {
	return Options{
		Profile:   "tinytv",
		Rotate:    true,
		RotateDir: RotateCounterclockwise,
		Subtitles: SubtitleStyle{
			FontName: DefaultSubtitleFont,
			FontSize: DefaultSubtitleSize,
			Outline:  DefaultSubtitleOutline,
			MarginV:  DefaultSubtitleMarginV,
		},
	}
}
