package fitting

import (
	"math"

	"github.com/tinyscreen/tinytv/internal/config"
)

// SelectTarget picks the output dimensions for a source inside the
// display's width band. It reasons in post-rotation orientation, since
// that is what the viewer sees, but the returned geometry is expressed
// pre-rotation (the scale and crop steps run before the transpose).
func SelectTarget(src Geometry, willRotate bool, policy config.TargetPolicy) Geometry {
	effW, effH := src.Width, src.Height
	if willRotate {
		effW, effH = effH, effW
	}

	aspect := float64(effW) / float64(effH)
	minAspect := float64(policy.WidthMin) / float64(policy.Height)
	maxAspect := float64(policy.WidthMax) / float64(policy.Height)

	var width int
	switch {
	case aspect <= minAspect:
		width = policy.WidthMin
	case aspect >= maxAspect:
		width = policy.WidthMax
	default:
		// Width that would reproduce the source aspect at the fixed
		// height, snapped to the preferred width when close enough.
		// libx264 with yuv420p rejects odd dimensions, so the natural
		// width rounds down to even.
		natural := int(math.Round(aspect * float64(policy.Height)))
		natural -= natural % 2
		if abs(natural-policy.WidthPreferred) <= policy.PreferenceStrength {
			width = policy.WidthPreferred
		} else {
			width = natural
		}
	}

	if width < policy.WidthMin {
		width = policy.WidthMin
	}
	if width > policy.WidthMax {
		width = policy.WidthMax
	}

	return Geometry{Width: width, Height: policy.Height}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
