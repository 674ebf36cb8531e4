package render

import (
	"image"

	"github.com/nvr-ai/go-detect/models"
	"github.com/nvr-ai/go-detect/models/postprocess"
)

const (
	// DefaultLineThickness is the outline width of a detection box.
	DefaultLineThickness = 2
	// DefaultLabelOffset lifts the label baseline above the box's top edge.
	DefaultLabelOffset = 5
)

// Annotator draws retained detections with their class label.
type Annotator struct {
	classes   *models.OutputClassSet
	palette   Palette
	thickness int
	offset    int
}

// NewAnnotator creates an annotator for the given labels and palette.
func NewAnnotator(labels []string, palette Palette) *Annotator {
	return &Annotator{
		classes:   models.NewOutputClassSet(labels),
		palette:   palette,
		thickness: DefaultLineThickness,
		offset:    DefaultLabelOffset,
	}
}

// Annotate draws every retained detection on c: the box outline in its class
// color and the class label at the top-left corner, raised by the label
// offset. Indices outside dets are ignored.
//
// Arguments:
//   - c: The canvas to draw on.
//   - dets: The decoded detections.
//   - kept: Indices of the detections that survived suppression.
//
// Returns:
//   - The number of detections drawn.
func (a *Annotator) Annotate(c Canvas, dets postprocess.DetectionSet, kept postprocess.RetainedIndices) int {
	drawn := 0
	for _, i := range kept {
		if i < 0 || i >= len(dets) {
			continue
		}
		d := dets[i]
		clr := a.palette.Color(d.Class)

		c.Rectangle(d.Box.Rectangle(), clr, a.thickness)
		c.Text(a.classes.Name(d.Class), image.Pt(d.Box.X, d.Box.Y-a.offset), clr)
		drawn++
	}
	return drawn
}
