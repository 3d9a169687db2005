package display

import (
	"github.com/tinyscreen/tinytv/internal/config"
	"github.com/tinyscreen/tinytv/pkg/types"
)

// TinyTV is the 4-inch 800x480 panel. The case bezel covers the outer
// edge, so widths between 770 and 800 are all acceptable and 780 is the
// sweet spot.
type TinyTV struct{}

func init() {
	Register(&TinyTV{})
}

func (p *TinyTV) Name() string {
	return string(types.DisplayProfileTinyTV)
}

func (p *TinyTV) Target() config.TargetPolicy {
	return config.TargetPolicy{
		Height:             480,
		WidthMin:           770,
		WidthMax:           800,
		WidthPreferred:     780,
		PreferenceStrength: 5,
	}
}

func (p *TinyTV) Limits() config.ScalingLimits {
	return config.ScalingLimits{
		MaxStretch:             1.15,
		MinSqueeze:             0.85,
		PreferredMaxDistortion: 1.10,
	}
}
