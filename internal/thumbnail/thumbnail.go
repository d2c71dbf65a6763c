// Package thumbnail derives the bounded preview artifact stored next to
// every asset.
package thumbnail

import (
	"image"

	"github.com/disintegration/imaging"
)

// Fit scales img down to the largest size that fits within
// maxWidth×maxHeight while preserving the aspect ratio. Images already
// inside the bounds are returned at their original size; a thumbnail is
// never an upscale.
func Fit(img image.Image, maxWidth, maxHeight int) *image.NRGBA {
	return imaging.Fit(img, maxWidth, maxHeight, imaging.Lanczos)
}
