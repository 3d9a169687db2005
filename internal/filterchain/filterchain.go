// Package filterchain assembles the ordered video filter pipeline handed
// to the encoder. The operation order is fixed and never reordered:
// bar-crop, scale, target-crop, subtitles, rotate. Subtitles come before
// the transpose so the burned-in text inherits the final orientation.
package filterchain

import (
	"fmt"
	"strings"

	"github.com/tinyscreen/tinytv/internal/config"
	"github.com/tinyscreen/tinytv/internal/fitting"
	"github.com/tinyscreen/tinytv/internal/subtitle"
)

// Op is one named filter with its rendered parameters.
type Op struct {
	Name string
	expr string
}

func (o Op) String() string {
	return o.expr
}

// Chain is an immutable ordered filter sequence.
type Chain struct {
	ops []Op
}

// Ops returns the operations in composition order.
func (c Chain) Ops() []Op {
	return c.ops
}

// String renders the chain as an ffmpeg -vf argument.
func (c Chain) String() string {
	parts := make([]string, len(c.ops))
	for i, op := range c.ops {
		parts[i] = op.expr
	}
	return strings.Join(parts, ",")
}

// Request carries everything Compose needs for one source file.
type Request struct {
	// Source is the probed geometry; the zero value means unknown and
	// selects the neutral fallback chain.
	Source fitting.Geometry

	// BarCrop removes detected letterbox bars before scaling. Optional.
	BarCrop *fitting.CropBox

	// Plan is the scaling strategy. Ignored when Source is unknown.
	Plan *fitting.Plan

	// SubtitlePath burns in a sidecar track when non-empty.
	SubtitlePath  string
	SubtitleStyle config.SubtitleStyle

	Rotate    bool
	RotateDir config.RotateDirection

	// Fallback is the scale target used when Source is unknown
	// (preferred width at the fixed height).
	Fallback fitting.Geometry
}

// Compose builds the filter chain for one file.
func Compose(req Request) Chain {
	var c Chain

	if !req.Source.Valid() || req.Plan == nil {
		// Neutral fallback: no cropping, no distortion reasoning.
		c.ops = append(c.ops, scaleOp(req.Fallback.Width, req.Fallback.Height))
	} else {
		if req.BarCrop != nil {
			c.ops = append(c.ops, cropOp(*req.BarCrop))
		}
		c.ops = append(c.ops, scaleOp(req.Plan.IntermediateWidth, req.Plan.IntermediateHeight))
		if req.Plan.FinalCrop != nil {
			c.ops = append(c.ops, cropOp(*req.Plan.FinalCrop))
		}
	}

	if req.SubtitlePath != "" {
		c.ops = append(c.ops, Op{
			Name: "subtitles",
			expr: subtitle.Filter(req.SubtitlePath, req.SubtitleStyle),
		})
	}

	if req.Rotate {
		c.ops = append(c.ops, transposeOp(req.RotateDir))
	}

	return c
}

func scaleOp(w, h int) Op {
	return Op{Name: "scale", expr: fmt.Sprintf("scale=%d:%d", w, h)}
}

func cropOp(b fitting.CropBox) Op {
	return Op{Name: "crop", expr: fmt.Sprintf("crop=%d:%d:%d:%d", b.Width, b.Height, b.X, b.Y)}
}

func transposeOp(dir config.RotateDirection) Op {
	// transpose=1 rotates clockwise, transpose=2 counterclockwise.
	n := 2
	if dir == config.RotateClockwise {
		n = 1
	}
	return Op{Name: "transpose", expr: fmt.Sprintf("transpose=%d", n)}
}
