package fitting

import (
	"github.com/tinyscreen/tinytv/internal/config"
)

// SelectStrategy decides how to fit src into target. Source dimensions
// are the post-bar-crop, pre-rotation frame; the caller must not pass
// unknown geometry (the neutral fallback chain covers that case).
//
// Matching aspects take the no-crop, no-distortion path regardless of
// limits. Otherwise distortion is used only when the needed factor is
// inside both the hard stretch/squeeze ceiling and the tighter preferred
// bound; everything else scales to cover and center-crops. When the
// limits carry a crop tolerance, an overflow crop within tolerance wins
// before distortion is considered at all.
func SelectStrategy(src, target Geometry, limits config.ScalingLimits) Plan {
	// Exact rational compare, so 1920x1080 vs 768x432 counts as equal.
	if src.Width*target.Height == src.Height*target.Width {
		return Plan{
			Mode:               ModeUniformDistort,
			IntermediateWidth:  target.Width,
			IntermediateHeight: target.Height,
			DistortionFactor:   1.0,
			Adjustment:         AdjustNone,
		}
	}

	srcAspect := src.Aspect()
	targetAspect := target.Aspect()

	var needed float64
	var adjust Adjustment
	if srcAspect < targetAspect {
		// Source is relatively taller: equalizing aspect means
		// stretching width.
		needed = targetAspect / srcAspect
		adjust = AdjustStretch
	} else {
		needed = srcAspect / targetAspect
		adjust = AdjustSqueeze
	}

	if limits.CropTolerance > 0 {
		plan := coverCropPlan(srcAspect, targetAspect, target)
		if overflowFraction(plan, target) <= limits.CropTolerance {
			return plan
		}
	}

	withinHard := false
	switch adjust {
	case AdjustStretch:
		withinHard = needed <= limits.MaxStretch
	case AdjustSqueeze:
		withinHard = needed <= 1.0/limits.MinSqueeze
	}

	if withinHard && needed <= limits.PreferredMaxDistortion {
		return Plan{
			Mode:               ModeUniformDistort,
			IntermediateWidth:  target.Width,
			IntermediateHeight: target.Height,
			DistortionFactor:   needed,
			Adjustment:         adjust,
		}
	}

	return coverCropPlan(srcAspect, targetAspect, target)
}

// coverCropPlan scales by the larger axis ratio so the frame fully
// covers the target, then center-crops the overflowing axis.
func coverCropPlan(srcAspect, targetAspect float64, target Geometry) Plan {
	var scaleW, scaleH int
	if srcAspect < targetAspect {
		// Fill width, height overflows.
		scaleW = target.Width
		scaleH = int(float64(target.Width) / srcAspect)
	} else {
		// Fill height, width overflows.
		scaleH = target.Height
		scaleW = int(float64(target.Height) * srcAspect)
	}

	cropW := minInt(scaleW, target.Width)
	cropH := minInt(scaleH, target.Height)
	crop := &CropBox{
		Width:  cropW,
		Height: cropH,
		X:      (scaleW - cropW) / 2,
		Y:      (scaleH - cropH) / 2,
	}

	return Plan{
		Mode:               ModeScaleThenCrop,
		IntermediateWidth:  scaleW,
		IntermediateHeight: scaleH,
		FinalCrop:          crop,
		DistortionFactor:   1.0,
		Adjustment:         AdjustNone,
	}
}

// overflowFraction is the share of the scaled frame the final crop
// discards on its overflowing axis.
func overflowFraction(p Plan, target Geometry) float64 {
	if p.FinalCrop == nil {
		return 0
	}
	if p.IntermediateHeight > target.Height {
		return float64(p.IntermediateHeight-target.Height) / float64(p.IntermediateHeight)
	}
	if p.IntermediateWidth > target.Width {
		return float64(p.IntermediateWidth-target.Width) / float64(p.IntermediateWidth)
	}
	return 0
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
