package resample

import (
	"fmt"
	"image"
	"image/color"
)

// PixelFormat tags the channel layout of a frame's pixels.
type PixelFormat int

const (
	// FormatUnknown is an image type the package cannot normalize.
	FormatUnknown PixelFormat = iota
	// FormatGray is single-channel luminance (8 or 16 bit).
	FormatGray
	// FormatGrayAlpha is luminance plus alpha, or alpha-only masks.
	FormatGrayAlpha
	// FormatPaletted is indexed color.
	FormatPaletted
	// FormatRGB is opaque color without an alpha channel.
	FormatRGB
	// FormatRGBA is color with an alpha channel.
	FormatRGBA
	// FormatCMYK is subtractive four-channel color.
	FormatCMYK
)

// String returns the lowercase name of the format.
func (f PixelFormat) String() string {
	switch f {
	case FormatGray:
		return "gray"
	case FormatGrayAlpha:
		return "gray_alpha"
	case FormatPaletted:
		return "paletted"
	case FormatRGB:
		return "rgb"
	case FormatRGBA:
		return "rgba"
	case FormatCMYK:
		return "cmyk"
	default:
		return "unknown"
	}
}

// channelUniform reports whether pixels of this format can be decimated
// without conversion.
func (f PixelFormat) channelUniform() bool {
	return f == FormatRGB || f == FormatRGBA
}

// Classify maps a concrete image type to its pixel format.
func Classify(img image.Image) PixelFormat {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return FormatGray
	case *image.Alpha, *image.Alpha16:
		return FormatGrayAlpha
	case *image.Paletted:
		return FormatPaletted
	case *image.YCbCr:
		return FormatRGB
	case *image.RGBA, *image.NRGBA, *image.RGBA64, *image.NRGBA64, *image.NYCbCrA:
		return FormatRGBA
	case *image.CMYK:
		return FormatCMYK
	default:
		return FormatUnknown
	}
}

// Orientation is the EXIF orientation tag (1-8) still attached to a frame.
// Zero means the source carried no orientation metadata.
type Orientation int

const (
	// OrientationNone means no orientation metadata was present.
	OrientationNone Orientation = 0
	// OrientationNormal means pixels are already in display orientation.
	OrientationNormal Orientation = 1
)

// Resolved reports whether the pixels can be used for geometry as-is.
func (o Orientation) Resolved() bool {
	return o == OrientationNone || o == OrientationNormal
}

// Frame is a decoded image together with the metadata the transforms need.
// Frames are values; transforms never modify the pixels of their input.
type Frame struct {
	Image       image.Image
	Format      PixelFormat
	Orientation Orientation
}

// NewFrame wraps img, tagging it with its classified pixel format.
func NewFrame(img image.Image) Frame {
	return Frame{
		Image:  img,
		Format: Classify(img),
	}
}

// Size returns the frame's width and height.
func (f Frame) Size() Dimensions {
	if f.Image == nil {
		return Dimensions{}
	}
	b := f.Image.Bounds()
	return Dimensions{Width: b.Dx(), Height: b.Dy()}
}

// validate returns ErrEmptyFrame for a nil image or one with no pixels.
func (f Frame) validate() error {
	if f.Image == nil {
		return fmt.Errorf("%w: nil image", ErrEmptyFrame)
	}
	if f.Image.Bounds().Empty() {
		return fmt.Errorf("%w: %s", ErrEmptyFrame, f.Size())
	}
	return nil
}

// hasAlpha reports whether the frame must be alpha-blended onto a canvas.
// Paletted frames only count when the palette holds a translucent entry.
func (f Frame) hasAlpha() bool {
	switch f.Format {
	case FormatGrayAlpha, FormatRGBA:
		return true
	case FormatPaletted:
		p, ok := f.Image.(*image.Paletted)
		if !ok {
			return true
		}
		for _, c := range p.Palette {
			if _, _, _, a := c.RGBA(); a != 0xffff {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Dimensions is a width/height pair in pixels.
type Dimensions struct {
	Width  int
	Height int
}

// Validate returns ErrInvalidDimensions unless both sides are positive.
func (d Dimensions) Validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidDimensions, d)
	}
	return nil
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// opaque drops the alpha of c; nil becomes black.
func opaque(c color.Color) color.RGBA {
	if c == nil {
		return color.RGBA{A: 0xff}
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return color.RGBA{R: n.R, G: n.G, B: n.B, A: 0xff}
}
