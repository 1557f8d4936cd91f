package media

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixelbox/internal/resample"
)

func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 10), G: uint8(y * 10), B: 128, A: 255})
		}
	}
	return img
}

func encoded(t *testing.T, img image.Image, codec Codec, opts EncodeOptions) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, img, codec, opts))
	require.NotZero(t, buf.Len())
	return buf.Bytes()
}

func TestEncodeDecodeEachCodec(t *testing.T) {
	tests := []struct {
		codec  Codec
		format string
		opts   EncodeOptions
	}{
		{CodecJPEG, "jpeg", DefaultEncodeOptions()},
		{CodecPNG, "png", DefaultEncodeOptions()},
		{CodecBMP, "bmp", DefaultEncodeOptions()},
		{CodecTIFF, "tiff", DefaultEncodeOptions()},
		{CodecWebP, "webp", DefaultEncodeOptions()},
		{CodecWebP, "webp", EncodeOptions{WebPLossless: true}},
	}

	for _, tt := range tests {
		t.Run(string(tt.codec), func(t *testing.T) {
			data := encoded(t, testImage(12, 7), tt.codec, tt.opts)

			dims, format, err := ReadHeader(data)
			require.NoError(t, err)
			assert.Equal(t, resample.Dimensions{Width: 12, Height: 7}, dims)
			assert.Equal(t, tt.format, format)

			dec, err := Decode(data, DefaultMaxPixels)
			require.NoError(t, err)
			assert.Equal(t, tt.format, dec.Format)
			assert.Equal(t, DecoderNative, dec.Decoder)
			assert.Equal(t, resample.OrientationNormal, dec.Frame.Orientation)
			assert.Equal(t, resample.Dimensions{Width: 12, Height: 7}, dec.Frame.Size())
			assert.NotEqual(t, resample.FormatUnknown, dec.Frame.Format)
		})
	}
}

func TestLosslessRoundTripKeepsPixels(t *testing.T) {
	src := testImage(5, 4)

	for _, codec := range []Codec{CodecPNG, CodecBMP, CodecTIFF} {
		t.Run(string(codec), func(t *testing.T) {
			dec, err := Decode(encoded(t, src, codec, DefaultEncodeOptions()), 0)
			require.NoError(t, err)

			for y := 0; y < 4; y++ {
				for x := 0; x < 5; x++ {
					want := src.NRGBAAt(x, y)
					got := color.NRGBAModel.Convert(dec.Frame.Image.At(x, y)).(color.NRGBA)
					assert.Equal(t, want, got, "pixel (%d,%d)", x, y)
				}
			}
		})
	}
}

func TestDecodeJPEGIsRGB(t *testing.T) {
	dec, err := Decode(encoded(t, testImage(8, 8), CodecJPEG, DefaultEncodeOptions()), 0)
	require.NoError(t, err)
	assert.Equal(t, resample.FormatRGB, dec.Frame.Format)
}

func TestDecodeRejectsOversizedImages(t *testing.T) {
	data := encoded(t, testImage(20, 10), CodecPNG, DefaultEncodeOptions())

	_, err := Decode(data, 199)
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = Decode(data, 200)
	assert.NoError(t, err)
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode(nil, 0)
	assert.Error(t, err)

	_, err = Decode([]byte("definitely not an image"), 0)
	assert.Error(t, err)

	data := encoded(t, testImage(20, 20), CodecPNG, DefaultEncodeOptions())
	_, err = Decode(data[:len(data)/2], 0)
	assert.Error(t, err)
}

func TestEncodeErrors(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Encode(&buf, nil, CodecPNG, DefaultEncodeOptions()))
	assert.Error(t, Encode(&buf, testImage(2, 2), Codec("gif"), DefaultEncodeOptions()))
}

func TestJPEGQualityAffectsSize(t *testing.T) {
	img := testImage(64, 64)
	low := encoded(t, img, CodecJPEG, EncodeOptions{JPEGQuality: 10})
	high := encoded(t, img, CodecJPEG, EncodeOptions{JPEGQuality: 100})
	assert.Less(t, len(low), len(high))
}

func TestClampQuality(t *testing.T) {
	assert.Equal(t, 50, clampQuality(50, 95))
	assert.Equal(t, 95, clampQuality(0, 95))
	assert.Equal(t, 95, clampQuality(101, 95))
	assert.Equal(t, 1, clampQuality(1, 95))
	assert.Equal(t, 100, clampQuality(100, 95))
}

func TestEncodeOptionsKey(t *testing.T) {
	tests := []struct {
		name  string
		opts  EncodeOptions
		codec Codec
		want  string
	}{
		{"jpeg quality", EncodeOptions{JPEGQuality: 60}, CodecJPEG, "jpeg q=60"},
		{"jpeg out of range", EncodeOptions{JPEGQuality: 0}, CodecJPEG, "jpeg q=95"},
		{"webp lossy", EncodeOptions{WebPQuality: 70}, CodecWebP, "webp q=70"},
		{"webp lossless ignores quality", EncodeOptions{WebPQuality: 70, WebPLossless: true}, CodecWebP, "webp lossless"},
		{"png ignores quality", EncodeOptions{JPEGQuality: 60, WebPQuality: 70}, CodecPNG, "png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.opts.Key(tt.codec))
		})
	}
}

func TestVipsUnavailableWithoutInit(t *testing.T) {
	assert.False(t, IsVipsAvailable())
	_, err := DecodeWithVips([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrVipsUnavailable)
}

// withEXIFOrientation inserts an APP1 segment carrying only the orientation
// tag right after the SOI marker of a JPEG.
func withEXIFOrientation(jpegData []byte, orientation uint16) []byte {
	tiff := []byte{
		'M', 'M', 0, 42, // big-endian TIFF header
		0, 0, 0, 8, // offset of IFD0
		0, 1, // one entry
		0x01, 0x12, // Orientation
		0, 3, // SHORT
		0, 0, 0, 1, // count
		byte(orientation >> 8), byte(orientation), 0, 0,
		0, 0, 0, 0, // no next IFD
	}
	payload := append([]byte("Exif\x00\x00"), tiff...)
	size := len(payload) + 2

	out := append([]byte{}, jpegData[:2]...)
	out = append(out, 0xFF, 0xE1, byte(size>>8), byte(size))
	out = append(out, payload...)
	return append(out, jpegData[2:]...)
}

// halves is red on the left half and blue on the right.
func halves(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA{R: 230, G: 20, B: 20, A: 255}
			if x >= w/2 {
				c = color.NRGBA{R: 20, G: 20, B: 230, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func isRed(c color.Color) bool {
	r, _, b, _ := c.RGBA()
	return r>>8 > 180 && b>>8 < 80
}

func isBlue(c color.Color) bool {
	r, _, b, _ := c.RGBA()
	return b>>8 > 180 && r>>8 < 80
}

func TestDecodeAppliesEXIFOrientation(t *testing.T) {
	plain := encoded(t, halves(40, 20), CodecJPEG, DefaultEncodeOptions())

	tests := []struct {
		name        string
		orientation uint16
		wantSize    resample.Dimensions
		top, bottom func(color.Color) bool
	}{
		{"normal", 1, resample.Dimensions{Width: 40, Height: 20}, nil, nil},
		// 90° clockwise: the left (red) half becomes the top.
		{"rotate 90 cw", 6, resample.Dimensions{Width: 20, Height: 40}, isRed, isBlue},
		// 90° counter-clockwise: the right (blue) half becomes the top.
		{"rotate 90 ccw", 8, resample.Dimensions{Width: 20, Height: 40}, isBlue, isRed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec, err := Decode(withEXIFOrientation(plain, tt.orientation), 0)
			require.NoError(t, err)

			assert.Equal(t, tt.wantSize, dec.Frame.Size())
			assert.Equal(t, resample.OrientationNormal, dec.Frame.Orientation)
			assert.True(t, dec.Frame.Orientation.Resolved())

			if tt.top != nil {
				b := dec.Frame.Image.Bounds()
				assert.True(t, tt.top(dec.Frame.Image.At(b.Min.X+10, b.Min.Y+8)), "top half")
				assert.True(t, tt.bottom(dec.Frame.Image.At(b.Min.X+10, b.Min.Y+32)), "bottom half")
			}
		})
	}
}
