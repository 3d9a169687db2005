// Package fitting decides how an arbitrary source frame becomes the
// fixed-geometry output frame: which width inside the display's band to
// aim for, and whether to get there by bounded aspect distortion or by
// uniform scaling plus a center crop.
package fitting

// Geometry is a frame size. The zero value means unknown.
type Geometry struct {
	Width  int
	Height int
}

// Valid reports whether both dimensions are strictly positive.
func (g Geometry) Valid() bool {
	return g.Width > 0 && g.Height > 0
}

// Aspect returns width/height. Callers must check Valid first.
func (g Geometry) Aspect() float64 {
	return float64(g.Width) / float64(g.Height)
}

// CropBox is a sub-rectangle of a frame, either a detected black-bar
// crop of the source or the final crop of a scaled intermediate.
type CropBox struct {
	Width  int
	Height int
	X      int
	Y      int
}

// Within reports whether the box fits inside the given frame.
func (c CropBox) Within(g Geometry) bool {
	return c.Width >= 0 && c.Height >= 0 && c.X >= 0 && c.Y >= 0 &&
		c.X+c.Width <= g.Width && c.Y+c.Height <= g.Height
}

// Mode is the scaling strategy chosen for a source.
type Mode string

const (
	// ModeUniformDistort scales straight to the target, changing the
	// aspect ratio by at most the configured distortion bound.
	ModeUniformDistort Mode = "uniform_distort"

	// ModeScaleThenCrop scales uniformly to cover the target and
	// center-crops the overflowing axis.
	ModeScaleThenCrop Mode = "scale_then_crop"
)

// Adjustment names the direction of an aspect change.
type Adjustment string

const (
	AdjustNone    Adjustment = "none"
	AdjustStretch Adjustment = "stretch"
	AdjustSqueeze Adjustment = "squeeze"
)

// Plan is the output of the strategy selector, consumed once by the
// filter chain composer.
type Plan struct {
	Mode               Mode
	IntermediateWidth  int
	IntermediateHeight int

	// FinalCrop is set only in ModeScaleThenCrop and always lands on
	// exactly the target dimensions.
	FinalCrop *CropBox

	// DistortionFactor is the applied aspect change (1.0 means none).
	DistortionFactor float64
	Adjustment       Adjustment
}
