package ratio

import "fmt"

// Anchor positions the crop rectangle when the source has excess area
// beyond the target ratio.
type Anchor string

const (
	AnchorCenter Anchor = "center"
	AnchorTop    Anchor = "top"
	AnchorBottom Anchor = "bottom"
	AnchorLeft   Anchor = "left"
	AnchorRight  Anchor = "right"
	// AnchorSmart is an alias for center. Subject detection is not
	// implemented; known limitation, kept for request compatibility.
	AnchorSmart Anchor = "smart"
)

// CropBox is a rectangle within a source image, PIL-style coordinates:
// left/top inclusive, right/bottom exclusive.
type CropBox struct {
	Left   int
	Top    int
	Right  int
	Bottom int
}

// Width returns the box width in pixels.
func (b CropBox) Width() int { return b.Right - b.Left }

// Height returns the box height in pixels.
func (b CropBox) Height() int { return b.Bottom - b.Top }

// ComputeCropBox computes the maximal rectangle of the target aspect ratio
// that fits inside a sourceWidth x sourceHeight image, positioned by anchor.
//
// The target rectangle is fit to the full source width first; if the
// resulting height overflows, it is refit by height instead. The result
// therefore never exceeds source bounds. Unknown anchors fall back to center.
func ComputeCropBox(sourceWidth, sourceHeight int, target Ratio, anchor Anchor) (CropBox, error) {
	if sourceWidth <= 0 || sourceHeight <= 0 {
		return CropBox{}, fmt.Errorf("invalid source dimensions %dx%d", sourceWidth, sourceHeight)
	}

	targetDecimal := target.Decimal()

	newWidth := sourceWidth
	newHeight := int(float64(sourceWidth) / targetDecimal)
	if newHeight > sourceHeight {
		newHeight = sourceHeight
		newWidth = int(float64(sourceHeight) * targetDecimal)
	}

	// Extreme ratios can round a dimension down to zero on tiny sources.
	newWidth = max(newWidth, 1)
	newHeight = max(newHeight, 1)

	var left, top int
	switch anchor {
	case AnchorTop:
		left = (sourceWidth - newWidth) / 2
		top = 0
	case AnchorBottom:
		left = (sourceWidth - newWidth) / 2
		top = sourceHeight - newHeight
	case AnchorLeft:
		left = 0
		top = (sourceHeight - newHeight) / 2
	case AnchorRight:
		left = sourceWidth - newWidth
		top = (sourceHeight - newHeight) / 2
	default:
		// center, smart, and anything unrecognized
		left = (sourceWidth - newWidth) / 2
		top = (sourceHeight - newHeight) / 2
	}

	box := CropBox{
		Left:   left,
		Top:    top,
		Right:  left + newWidth,
		Bottom: top + newHeight,
	}

	// A box outside source bounds is an implementation bug, not a runtime
	// condition to recover from.
	if box.Left < 0 || box.Top < 0 || box.Right > sourceWidth || box.Bottom > sourceHeight ||
		box.Left >= box.Right || box.Top >= box.Bottom {
		panic(fmt.Sprintf("crop box %+v outside source bounds %dx%d", box, sourceWidth, sourceHeight))
	}

	return box, nil
}
