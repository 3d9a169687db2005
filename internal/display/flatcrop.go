package display

import (
	"github.com/tinyscreen/tinytv/internal/config"
	"github.com/tinyscreen/tinytv/pkg/types"
)

// FlatCrop is the full 800x480 panel with no bezel allowance. The width
// band is degenerate, so fitting leans on a small crop tolerance first
// and a gentle stretch when the overflow is too large to crop away.
type FlatCrop struct{}

func init() {
	Register(&FlatCrop{})
}

func (p *FlatCrop) Name() string {
	return string(types.DisplayProfileTinyTVFlat)
}

func (p *FlatCrop) Target() config.TargetPolicy {
	return config.TargetPolicy{
		Height:             480,
		WidthMin:           800,
		WidthMax:           800,
		WidthPreferred:     800,
		PreferenceStrength: 0,
	}
}

func (p *FlatCrop) Limits() config.ScalingLimits {
	return config.ScalingLimits{
		MaxStretch:             1.05,
		MinSqueeze:             0.95,
		PreferredMaxDistortion: 1.05,
		CropTolerance:          0.05,
	}
}
