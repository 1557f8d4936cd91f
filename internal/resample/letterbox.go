package resample

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

// CenterCropRect returns the region of an image of size src that a center
// crop to target keeps, relative to the image's top-left corner. Axes that
// already fit are kept whole.
func CenterCropRect(src, target Dimensions) (image.Rectangle, error) {
	left := max(0, (src.Width-target.Width)/2)
	top := max(0, (src.Height-target.Height)/2)
	right := min(src.Width, left+target.Width)
	bottom := min(src.Height, top+target.Height)

	r := image.Rect(left, top, right, bottom)
	if r.Dx() <= 0 || r.Dy() <= 0 {
		return image.Rectangle{}, fmt.Errorf("%w: %dx%d from %s", ErrDegenerateCrop, r.Dx(), r.Dy(), src)
	}
	return r, nil
}

// Letterbox places f on an opaque canvas of exactly target size filled with
// bg. Oversized axes are center-cropped first; content is never scaled.
// A frame without pixels is rejected with ErrEmptyFrame.
// Sources with an alpha channel are blended over the background, others
// overwrite the canvas region. A nil bg means black.
func Letterbox(f Frame, target Dimensions, bg color.Color) (Frame, error) {
	if err := target.Validate(); err != nil {
		return Frame{}, err
	}
	if err := f.validate(); err != nil {
		return Frame{}, err
	}

	blend := f.hasAlpha()
	src := f.Image
	size := f.Size()

	if size.Width > target.Width || size.Height > target.Height {
		crop, err := CenterCropRect(size, target)
		if err != nil {
			return Frame{}, err
		}
		cropped := imaging.Crop(src, crop.Add(src.Bounds().Min))
		src = cropped
		size = Dimensions{Width: cropped.Bounds().Dx(), Height: cropped.Bounds().Dy()}
	}

	canvas := image.NewRGBA(image.Rect(0, 0, target.Width, target.Height))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: opaque(bg)}, image.Point{}, draw.Src)

	pasteX := (target.Width - size.Width) / 2
	pasteY := (target.Height - size.Height) / 2
	dr := image.Rect(pasteX, pasteY, pasteX+size.Width, pasteY+size.Height)

	op := draw.Src
	if blend {
		op = draw.Over
	}
	draw.Draw(canvas, dr, src, src.Bounds().Min, op)

	return Frame{
		Image:       canvas,
		Format:      FormatRGB,
		Orientation: f.Orientation,
	}, nil
}

// Fit runs Subsample followed by Letterbox.
func Fit(f Frame, target Dimensions, bg color.Color) (Frame, error) {
	sub, err := Subsample(f, target)
	if err != nil {
		return Frame{}, fmt.Errorf("subsample: %w", err)
	}
	out, err := Letterbox(sub, target, bg)
	if err != nil {
		return Frame{}, fmt.Errorf("letterbox: %w", err)
	}
	return out, nil
}
