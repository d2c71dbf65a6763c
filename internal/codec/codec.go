// Package codec decodes uploaded byte streams into pixel buffers and
// re-encodes buffers using a format chosen by extension normalization.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
)

// ErrInvalidImage reports that a byte stream is not a decodable raster
// image. Detection is done by attempting a real decode, never by
// trusting a declared extension.
var ErrInvalidImage = errors.New("invalid image data")

// DefaultExt is the fallback output format for assets whose stored
// filename carries no recognized extension.
const DefaultExt = "jpg"

var supportedExts = map[string]imaging.Format{
	"jpg":  imaging.JPEG,
	"jpeg": imaging.JPEG,
	"png":  imaging.PNG,
	"gif":  imaging.GIF,
	"bmp":  imaging.BMP,
}

// Decode parses data into an NRGBA pixel buffer. Alpha is carried
// through decode; transforms downstream discard it.
func Decode(data []byte) (*image.NRGBA, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return imaging.Clone(img), nil
}

// Encode serializes img in the format named by ext, which must already
// be normalized (see NormalizeExt).
func Encode(img image.Image, ext string) ([]byte, error) {
	format, ok := supportedExts[ext]
	if !ok {
		format = imaging.JPEG
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format); err != nil {
		return nil, fmt.Errorf("failed to encode image as %s: %w", ext, err)
	}
	return buf.Bytes(), nil
}

// NormalizeExt extracts the substring after the last '.' in filename,
// lower-cases it and checks it against the supported whitelist. Names
// with no extension or an unrecognized one fall back to "jpg", so
// repeated edits of such assets converge to jpg output.
func NormalizeExt(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 || idx == len(filename)-1 {
		return DefaultExt
	}
	ext := strings.ToLower(filename[idx+1:])
	if _, ok := supportedExts[ext]; !ok {
		return DefaultExt
	}
	return ext
}
