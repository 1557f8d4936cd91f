package resample

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

// Stride returns the uniform decimation interval for an image of size src
// aimed at target. Each axis that exceeds the target proposes the floor of
// its ratio; the smaller proposal wins so neither axis is over-shrunk.
func Stride(src, target Dimensions) int {
	strideW, strideH := 1, 1
	if src.Width > target.Width {
		strideW = src.Width / target.Width
	}
	if src.Height > target.Height {
		strideH = src.Height / target.Height
	}
	return max(1, min(strideW, strideH))
}

// Subsample shrinks f by keeping every stride-th row and column, where the
// stride comes from Stride. Frames already smaller than target on both axes,
// and frames whose stride rounds down to 1, are returned unchanged.
func Subsample(f Frame, target Dimensions) (Frame, error) {
	if err := target.Validate(); err != nil {
		return Frame{}, err
	}
	if err := f.validate(); err != nil {
		return Frame{}, err
	}
	if !f.Orientation.Resolved() {
		return Frame{}, fmt.Errorf("%w: exif orientation %d", ErrUnresolvedOrientation, f.Orientation)
	}

	size := f.Size()
	if size.Width < target.Width && size.Height < target.Height {
		return f, nil
	}

	stride := Stride(size, target)
	if stride == 1 {
		return f, nil
	}

	normalized, err := normalize(f)
	if err != nil {
		return Frame{}, err
	}

	return Frame{
		Image:       decimate(normalized.Image, stride),
		Format:      normalized.Format,
		Orientation: f.Orientation,
	}, nil
}

// normalize converts frames whose channels are not RGB/RGBA into RGBA.
func normalize(f Frame) (Frame, error) {
	if f.Format.channelUniform() {
		return f, nil
	}
	if f.Format == FormatUnknown {
		return Frame{}, fmt.Errorf("%w: %T", ErrUnsupportedPixelFormat, f.Image)
	}
	return Frame{
		Image:       imaging.Clone(f.Image),
		Format:      FormatRGBA,
		Orientation: f.Orientation,
	}, nil
}

// decimate keeps the pixel at every stride-th column of every stride-th row,
// starting at the top-left corner. The result is ceil(w/stride) x ceil(h/stride).
func decimate(src image.Image, stride int) image.Image {
	b := src.Bounds()
	w := (b.Dx() + stride - 1) / stride
	h := (b.Dy() + stride - 1) / stride
	r := image.Rect(0, 0, w, h)

	switch s := src.(type) {
	case *image.NRGBA:
		dst := image.NewNRGBA(r)
		decimatePix(dst.Pix, dst.Stride, s.Pix, s.Stride, s.PixOffset(b.Min.X, b.Min.Y), 4, w, h, stride)
		return dst
	case *image.RGBA:
		dst := image.NewRGBA(r)
		decimatePix(dst.Pix, dst.Stride, s.Pix, s.Stride, s.PixOffset(b.Min.X, b.Min.Y), 4, w, h, stride)
		return dst
	case *image.NRGBA64:
		dst := image.NewNRGBA64(r)
		decimatePix(dst.Pix, dst.Stride, s.Pix, s.Stride, s.PixOffset(b.Min.X, b.Min.Y), 8, w, h, stride)
		return dst
	case *image.RGBA64:
		dst := image.NewRGBA64(r)
		decimatePix(dst.Pix, dst.Stride, s.Pix, s.Stride, s.PixOffset(b.Min.X, b.Min.Y), 8, w, h, stride)
		return dst
	}

	// Planar sources (YCbCr, NYCbCrA) have no packed layout to copy from.
	var dst draw.Image
	if Classify(src) == FormatRGB {
		dst = image.NewRGBA(r)
	} else {
		dst = image.NewNRGBA(r)
	}
	for y := 0; y < h; y++ {
		sy := b.Min.Y + y*stride
		for x := 0; x < w; x++ {
			dst.Set(x, y, src.At(b.Min.X+x*stride, sy))
		}
	}
	return dst
}

// decimatePix copies every stride-th pixel of a packed buffer into dst.
func decimatePix(dst []uint8, dstStride int, src []uint8, srcStride, srcOff, bpp, w, h, stride int) {
	for y := 0; y < h; y++ {
		si := srcOff + y*stride*srcStride
		di := y * dstStride
		for x := 0; x < w; x++ {
			copy(dst[di:di+bpp], src[si:si+bpp])
			si += stride * bpp
			di += bpp
		}
	}
}
