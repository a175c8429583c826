package decompose

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
)

// DefaultScale is the render scale applied to extracted images.
const DefaultScale = 2.0

// maxSide caps the longest edge after scaling.
const maxSide = 4096

// NormalizePNG decodes PNG, JPEG or GIF data, scales it by scale using
// Catmull-Rom resampling and re-encodes it as PNG. A scale of 1 only
// re-encodes.
func NormalizePNG(data []byte, scale float64) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if scale <= 0 {
		scale = 1
	}
	b := src.Bounds()
	w := int(float64(b.Dx()) * scale)
	h := int(float64(b.Dy()) * scale)
	if longest := max(w, h); longest > maxSide {
		w = w * maxSide / longest
		h = h * maxSide / longest
	}
	w, h = max(w, 1), max(h, 1)

	var out image.Image = src
	if w != b.Dx() || h != b.Dy() {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
		out = dst
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Rect is a region in normalized page coordinates (0-1).
type Rect struct {
	Left, Top, Right, Bottom float64
}

// CropPNG cuts a normalized region out of a rendered page and returns it as
// PNG.
func CropPNG(data []byte, r Rect) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode page image: %w", err)
	}
	b := src.Bounds()
	crop := image.Rect(
		b.Min.X+int(r.Left*float64(b.Dx())),
		b.Min.Y+int(r.Top*float64(b.Dy())),
		b.Min.X+int(r.Right*float64(b.Dx())+0.5),
		b.Min.Y+int(r.Bottom*float64(b.Dy())+0.5),
	).Intersect(b)
	if crop.Empty() {
		return nil, fmt.Errorf("crop region %+v is empty", r)
	}
	dst := image.NewRGBA(image.Rect(0, 0, crop.Dx(), crop.Dy()))
	draw.Copy(dst, image.Point{}, src, crop, draw.Src, nil)
	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
