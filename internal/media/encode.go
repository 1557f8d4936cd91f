package media

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

const (
	// DefaultJPEGQuality matches the quality used for lossy outputs.
	DefaultJPEGQuality = 95
	// DefaultWebPQuality is the lossy WebP quality.
	DefaultWebPQuality = 80
)

// EncodeOptions holds format-specific encoder settings.
type EncodeOptions struct {
	JPEGQuality  int
	WebPQuality  int
	WebPLossless bool
}

// DefaultEncodeOptions returns the encoder defaults.
func DefaultEncodeOptions() EncodeOptions {
	return EncodeOptions{
		JPEGQuality: DefaultJPEGQuality,
		WebPQuality: DefaultWebPQuality,
	}
}

// Encode writes img to w using codec. Quality values outside 1-100 fall
// back to the defaults.
func Encode(w io.Writer, img image.Image, codec Codec, opts EncodeOptions) error {
	if img == nil {
		return errors.New("nil image")
	}

	switch codec {
	case CodecJPEG:
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(clampQuality(opts.JPEGQuality, DefaultJPEGQuality)))
	case CodecPNG:
		return imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(png.DefaultCompression))
	case CodecBMP:
		return imaging.Encode(w, img, imaging.BMP)
	case CodecTIFF:
		return imaging.Encode(w, img, imaging.TIFF)
	case CodecWebP:
		return webp.Encode(w, img, &webp.Options{
			Lossless: opts.WebPLossless,
			Quality:  float32(clampQuality(opts.WebPQuality, DefaultWebPQuality)),
		})
	default:
		return fmt.Errorf("unsupported output codec: %q", codec)
	}
}

// Key describes the settings that affect output written with codec, for
// example "jpeg q=95" or "webp lossless". Options a codec ignores are left out.
func (o EncodeOptions) Key(codec Codec) string {
	switch codec {
	case CodecJPEG:
		return fmt.Sprintf("%s q=%d", codec, clampQuality(o.JPEGQuality, DefaultJPEGQuality))
	case CodecWebP:
		if o.WebPLossless {
			return fmt.Sprintf("%s lossless", codec)
		}
		return fmt.Sprintf("%s q=%d", codec, clampQuality(o.WebPQuality, DefaultWebPQuality))
	default:
		return string(codec)
	}
}

func clampQuality(q, fallback int) int {
	if q < 1 || q > 100 {
		return fallback
	}
	return q
}
