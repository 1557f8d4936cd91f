package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"pixelbox/internal/logging"
	"pixelbox/internal/resample"

	// Decoders for formats the standard library lacks.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/disintegration/imaging"
)

// DefaultMaxPixels bounds width*height of images accepted for decoding.
// A 100MP image needs ~400MB as RGBA.
const DefaultMaxPixels = 100_000_000

const (
	// DecoderNative marks frames decoded by the Go image decoders.
	DecoderNative = "native"
	// DecoderVips marks frames decoded through the libvips fallback.
	DecoderVips = "vips"
)

// ErrTooLarge is returned when an image exceeds the pixel limit.
var ErrTooLarge = errors.New("image exceeds pixel limit")

// Decoded is a source image ready for the resample pipeline.
type Decoded struct {
	Frame   resample.Frame
	Format  string // as reported by the decoder registry, "unknown" if not sniffed
	Decoder string
}

// ReadHeader reads the header of an encoded image without decoding its pixels.
func ReadHeader(data []byte) (resample.Dimensions, string, error) {
	config, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return resample.Dimensions{}, "", err
	}
	return resample.Dimensions{Width: config.Width, Height: config.Height}, format, nil
}

// Decode turns encoded image bytes into a frame whose pixels are already in
// display orientation. maxPixels <= 0 disables the size guard.
func Decode(data []byte, maxPixels int) (*Decoded, error) {
	if len(data) == 0 {
		return nil, errors.New("empty image data")
	}

	format := "unknown"
	dims, sniffed, headerErr := ReadHeader(data)
	if headerErr == nil {
		format = sniffed
		if maxPixels > 0 && dims.Width*dims.Height > maxPixels {
			return nil, fmt.Errorf("%w: %s is %d pixels, limit %d", ErrTooLarge, dims, dims.Width*dims.Height, maxPixels)
		}
		logging.Debug("Read %s header: %s", format, dims)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err == nil {
		return newDecoded(img, format, DecoderNative), nil
	}

	if !IsVipsAvailable() {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	logging.Debug("Native decode failed (%v), trying libvips", err)
	img, vipsErr := DecodeWithVips(data)
	if vipsErr != nil {
		return nil, fmt.Errorf("decode image: %w (libvips: %v)", err, vipsErr)
	}
	return newDecoded(img, format, DecoderVips), nil
}

func newDecoded(img image.Image, format, decoder string) *Decoded {
	frame := resample.NewFrame(img)
	frame.Orientation = resample.OrientationNormal
	return &Decoded{Frame: frame, Format: format, Decoder: decoder}
}
