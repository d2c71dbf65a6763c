// Package transform holds the pure pixel operations behind the edit
// endpoints: crop, brightness scaling and contrast remapping. Each
// operation reads an untouched source buffer and fills a fresh output
// buffer, so a transform is trivially parallelizable and never observes
// its own writes. Output is always fully opaque: source alpha is
// discarded.
package transform

import (
	"errors"
	"image"
	"math"
)

// ErrInvalidParameters reports a crop rectangle that does not fit the
// source image.
var ErrInvalidParameters = errors.New("invalid transform parameters")

// Crop extracts the w×h sub-rectangle anchored at (x, y). The rectangle
// must lie fully inside src.
func Crop(src *image.NRGBA, x, y, w, h int) (*image.NRGBA, error) {
	srcW := src.Rect.Dx()
	srcH := src.Rect.Dy()
	if x < 0 || y < 0 || w <= 0 || h <= 0 || x+w > srcW || y+h > srcH {
		return nil, ErrInvalidParameters
	}

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	for j := 0; j < h; j++ {
		srcRow := src.PixOffset(src.Rect.Min.X+x, src.Rect.Min.Y+y+j)
		dstRow := dst.PixOffset(0, j)
		for i := 0; i < w; i++ {
			s := srcRow + i*4
			d := dstRow + i*4
			dst.Pix[d+0] = src.Pix[s+0]
			dst.Pix[d+1] = src.Pix[s+1]
			dst.Pix[d+2] = src.Pix[s+2]
			dst.Pix[d+3] = 0xff
		}
	}
	return dst, nil
}

// Brightness multiplies every channel of every pixel by factor and
// clamps the result to [0, 255]. The factor is deliberately
// unvalidated: zero and negative values crush the image to black, which
// is accepted behavior.
func Brightness(src *image.NRGBA, factor float64) *image.NRGBA {
	return perChannel(src, func(c uint8) uint8 {
		return clampRound(float64(c) * factor)
	})
}

// Contrast remaps channels around the mid-point 128. The level is a
// 50–150 control value: 100 is identity, lower flattens, higher
// steepens. Out-of-range levels are not rejected and extrapolate the
// same curve.
func Contrast(src *image.NRGBA, level float64) *image.NRGBA {
	n := (level - 100) / 100 * 128
	factor := (259 * (n + 255)) / (255 * (259 - n))
	return perChannel(src, func(c uint8) uint8 {
		return clampRound(factor*(float64(c)-128) + 128)
	})
}

func perChannel(src *image.NRGBA, fn func(uint8) uint8) *image.NRGBA {
	w := src.Rect.Dx()
	h := src.Rect.Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	for j := 0; j < h; j++ {
		srcRow := src.PixOffset(src.Rect.Min.X, src.Rect.Min.Y+j)
		dstRow := dst.PixOffset(0, j)
		for i := 0; i < w; i++ {
			s := srcRow + i*4
			d := dstRow + i*4
			dst.Pix[d+0] = fn(src.Pix[s+0])
			dst.Pix[d+1] = fn(src.Pix[s+1])
			dst.Pix[d+2] = fn(src.Pix[s+2])
			dst.Pix[d+3] = 0xff
		}
	}
	return dst
}

func clampRound(v float64) uint8 {
	r := math.Round(v)
	if r < 0 {
		return 0
	}
	if r > 255 {
		return 255
	}
	return uint8(r)
}
