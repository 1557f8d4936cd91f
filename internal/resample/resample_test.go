package resample

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gradient returns an opaque RGBA image whose pixels encode their coordinates.
func gradient(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: uint8(x ^ y), A: 255})
		}
	}
	return img
}

func rgbaAt(t *testing.T, img image.Image, x, y int) color.RGBA {
	t.Helper()
	return color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
}

// opaqueOnly is an image type the package does not know how to normalize.
type opaqueOnly struct{ r image.Rectangle }

func (o opaqueOnly) ColorModel() color.Model { return color.RGBAModel }
func (o opaqueOnly) Bounds() image.Rectangle { return o.r }
func (o opaqueOnly) At(x, y int) color.Color { return color.RGBA{R: 10, G: 20, B: 30, A: 255} }

var black = color.RGBA{A: 255}

func TestStride(t *testing.T) {
	target := Dimensions{Width: 1280, Height: 720}

	tests := []struct {
		name string
		src  Dimensions
		want int
	}{
		{"4K to 720p", Dimensions{3840, 2160}, 3},
		{"just over target", Dimensions{2000, 1000}, 1},
		{"below target", Dimensions{640, 480}, 1},
		{"equal to target", Dimensions{1280, 720}, 1},
		{"smaller ratio wins", Dimensions{4000, 3000}, 3},
		{"wide strip only exceeds width", Dimensions{5000, 500}, 1},
		{"tall strip only exceeds height", Dimensions{600, 2900}, 1},
		{"exceeds both, floor division", Dimensions{2559, 1439}, 1},
		{"exact double", Dimensions{2560, 1440}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Stride(tt.src, target))
		})
	}
}

func TestSubsampleBelowTargetIsUnchanged(t *testing.T) {
	src := gradient(64, 48)
	f := NewFrame(src)

	out, err := Subsample(f, Dimensions{Width: 128, Height: 72})
	require.NoError(t, err)

	assert.Same(t, src, out.Image)
	assert.Equal(t, FormatRGBA, out.Format)
}

func TestSubsampleStrideOneIsUnchanged(t *testing.T) {
	src := gradient(200, 100)

	out, err := Subsample(NewFrame(src), Dimensions{Width: 128, Height: 72})
	require.NoError(t, err)
	assert.Same(t, src, out.Image)
}

func TestSubsampleDecimatesRowsAndColumns(t *testing.T) {
	tests := []struct {
		name       string
		src        Dimensions
		target     Dimensions
		wantStride int
	}{
		{"exact multiple", Dimensions{30, 18}, Dimensions{10, 6}, 3},
		{"ceil on remainder", Dimensions{31, 20}, Dimensions{10, 6}, 3},
		{"height limits stride", Dimensions{100, 13}, Dimensions{10, 6}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := gradient(tt.src.Width, tt.src.Height)

			out, err := Subsample(NewFrame(src), tt.target)
			require.NoError(t, err)

			stride := Stride(tt.src, tt.target)
			require.Equal(t, tt.wantStride, stride)

			wantW := (tt.src.Width + stride - 1) / stride
			wantH := (tt.src.Height + stride - 1) / stride
			assert.Equal(t, Dimensions{wantW, wantH}, out.Size())
			assert.LessOrEqual(t, out.Size().Width, tt.src.Width)
			assert.LessOrEqual(t, out.Size().Height, tt.src.Height)

			for y := 0; y < wantH; y++ {
				for x := 0; x < wantW; x++ {
					require.Equal(t, src.RGBAAt(x*stride, y*stride), rgbaAt(t, out.Image, x, y), "pixel %d,%d", x, y)
				}
			}
		})
	}
}

func TestSubsampleHonorsBoundsOrigin(t *testing.T) {
	full := gradient(50, 50)
	sub := full.SubImage(image.Rect(10, 20, 40, 38)).(*image.RGBA)

	out, err := Subsample(NewFrame(sub), Dimensions{Width: 10, Height: 6})
	require.NoError(t, err)

	assert.Equal(t, Dimensions{10, 6}, out.Size())
	assert.Equal(t, full.RGBAAt(10, 20), rgbaAt(t, out.Image, 0, 0))
	assert.Equal(t, full.RGBAAt(13, 23), rgbaAt(t, out.Image, 1, 1))
}

func TestSubsampleNormalizesPixelFormats(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 40, 40))
	for i := range gray.Pix {
		gray.Pix[i] = uint8(i)
	}

	pal := image.NewPaletted(image.Rect(0, 0, 40, 40), color.Palette{
		color.RGBA{255, 0, 0, 255},
		color.RGBA{0, 0, 255, 255},
	})
	for i := range pal.Pix {
		pal.Pix[i] = uint8(i % 2)
	}

	ycc := image.NewYCbCr(image.Rect(0, 0, 40, 40), image.YCbCrSubsampleRatio444)
	for i := range ycc.Y {
		ycc.Y[i] = uint8(i)
		ycc.Cb[i] = 128
		ycc.Cr[i] = 128
	}

	cmyk := image.NewCMYK(image.Rect(0, 0, 40, 40))

	tests := []struct {
		name       string
		src        image.Image
		inFormat   PixelFormat
		outFormat  PixelFormat
		checkPixel bool
	}{
		{"gray", gray, FormatGray, FormatRGBA, true},
		{"paletted", pal, FormatPaletted, FormatRGBA, true},
		{"cmyk", cmyk, FormatCMYK, FormatRGBA, true},
		{"ycbcr stays rgb", ycc, FormatRGB, FormatRGB, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFrame(tt.src)
			require.Equal(t, tt.inFormat, f.Format)

			out, err := Subsample(f, Dimensions{Width: 10, Height: 10})
			require.NoError(t, err)

			assert.Equal(t, tt.outFormat, out.Format)
			assert.Equal(t, Dimensions{10, 10}, out.Size())
			if tt.outFormat == FormatRGB {
				assert.IsType(t, &image.RGBA{}, out.Image)
			} else {
				assert.IsType(t, &image.NRGBA{}, out.Image)
			}

			if tt.checkPixel {
				want := rgbaAt(t, tt.src, 8, 12)
				assert.Equal(t, want, rgbaAt(t, out.Image, 2, 3))
			}
		})
	}
}

func TestSubsampleUnsupportedFormat(t *testing.T) {
	f := NewFrame(opaqueOnly{r: image.Rect(0, 0, 40, 40)})
	require.Equal(t, FormatUnknown, f.Format)

	_, err := Subsample(f, Dimensions{Width: 10, Height: 10})
	require.ErrorIs(t, err, ErrUnsupportedPixelFormat)

	// No decimation needed, so nothing has to be indexed.
	out, err := Subsample(f, Dimensions{Width: 40, Height: 40})
	require.NoError(t, err)
	assert.Equal(t, f, out)
}

func TestSubsampleRejectsInvalidInput(t *testing.T) {
	f := NewFrame(gradient(10, 10))

	for _, target := range []Dimensions{{0, 10}, {10, 0}, {-1, 5}} {
		_, err := Subsample(f, target)
		assert.ErrorIs(t, err, ErrInvalidDimensions, "target %s", target)
	}

	rotated := f
	rotated.Orientation = 6
	_, err := Subsample(rotated, Dimensions{Width: 5, Height: 5})
	assert.ErrorIs(t, err, ErrUnresolvedOrientation)

	normal := f
	normal.Orientation = OrientationNormal
	_, err = Subsample(normal, Dimensions{Width: 5, Height: 5})
	assert.NoError(t, err)
}

func TestSubsamplePreservesAspectRatio(t *testing.T) {
	sizes := []Dimensions{{400, 300}, {300, 400}, {192, 108}, {701, 233}, {260, 150}}
	target := Dimensions{Width: 64, Height: 36}

	for _, size := range sizes {
		t.Run(size.String(), func(t *testing.T) {
			src := image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
			out, err := Subsample(NewFrame(src), target)
			require.NoError(t, err)

			stride := Stride(size, target)
			got := out.Size()
			assert.Equal(t, (size.Width+stride-1)/stride, got.Width)
			assert.Equal(t, (size.Height+stride-1)/stride, got.Height)

			in := float64(size.Width) / float64(size.Height)
			ratio := float64(got.Width) / float64(got.Height)
			assert.InDelta(t, in, ratio, (in+1)*2/float64(got.Height))
		})
	}
}

func TestCenterCropRect(t *testing.T) {
	target := Dimensions{Width: 1280, Height: 720}

	tests := []struct {
		name string
		src  Dimensions
		want image.Rectangle
	}{
		{"both axes", Dimensions{2000, 1000}, image.Rect(360, 140, 1640, 860)},
		{"width only", Dimensions{1500, 500}, image.Rect(110, 0, 1390, 500)},
		{"height only", Dimensions{800, 1000}, image.Rect(0, 140, 800, 860)},
		{"odd excess floors", Dimensions{1281, 721}, image.Rect(0, 0, 1280, 720)},
		{"odd excess of three", Dimensions{1283, 723}, image.Rect(1, 1, 1281, 721)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CenterCropRect(tt.src, target)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := CenterCropRect(Dimensions{2000, 0}, target)
	assert.ErrorIs(t, err, ErrDegenerateCrop)
}

func TestLetterboxAlwaysTargetSize(t *testing.T) {
	target := Dimensions{Width: 64, Height: 36}

	for _, size := range []Dimensions{{10, 10}, {64, 36}, {100, 20}, {20, 100}, {200, 200}, {1, 1}} {
		t.Run(size.String(), func(t *testing.T) {
			out, err := Letterbox(NewFrame(gradient(size.Width, size.Height)), target, nil)
			require.NoError(t, err)

			assert.Equal(t, target, out.Size())
			assert.Equal(t, FormatRGB, out.Format)
			assert.True(t, out.Image.(*image.RGBA).Opaque())
		})
	}
}

func TestLetterboxIdempotentOnTargetSizedImage(t *testing.T) {
	src := gradient(32, 18)

	out, err := Letterbox(NewFrame(src), Dimensions{Width: 32, Height: 18}, color.RGBA{R: 200, A: 255})
	require.NoError(t, err)

	assert.Equal(t, src.Pix, out.Image.(*image.RGBA).Pix)

	again, err := Letterbox(out, Dimensions{Width: 32, Height: 18}, color.RGBA{G: 200, A: 255})
	require.NoError(t, err)
	assert.Equal(t, src.Pix, again.Image.(*image.RGBA).Pix)
}

func TestLetterboxBackground(t *testing.T) {
	bg := color.RGBA{R: 12, G: 34, B: 56, A: 255}

	out, err := Letterbox(NewFrame(gradient(2, 2)), Dimensions{Width: 6, Height: 6}, color.NRGBA{R: 12, G: 34, B: 56, A: 10})
	require.NoError(t, err)

	assert.Equal(t, bg, rgbaAt(t, out.Image, 0, 0))
	assert.Equal(t, bg, rgbaAt(t, out.Image, 5, 5))
	assert.Equal(t, color.RGBA{A: 255}, rgbaAt(t, out.Image, 2, 2))
}

func TestLetterboxOddPaddingFloors(t *testing.T) {
	src := gradient(3, 2)

	out, err := Letterbox(NewFrame(src), Dimensions{Width: 8, Height: 5}, nil)
	require.NoError(t, err)

	// (8-3)/2 = 2, (5-2)/2 = 1
	assert.Equal(t, black, rgbaAt(t, out.Image, 1, 1))
	assert.Equal(t, src.RGBAAt(0, 0), rgbaAt(t, out.Image, 2, 1))
	assert.Equal(t, src.RGBAAt(2, 1), rgbaAt(t, out.Image, 4, 2))
	assert.Equal(t, black, rgbaAt(t, out.Image, 5, 2))
	assert.Equal(t, black, rgbaAt(t, out.Image, 4, 3))
}

func TestLetterboxCropsOnlyOversizedAxis(t *testing.T) {
	src := gradient(100, 10)

	out, err := Letterbox(NewFrame(src), Dimensions{Width: 40, Height: 20}, nil)
	require.NoError(t, err)

	// width cropped from x=30, height padded by 5 on top
	assert.Equal(t, black, rgbaAt(t, out.Image, 0, 4))
	assert.Equal(t, src.RGBAAt(30, 0), rgbaAt(t, out.Image, 0, 5))
	assert.Equal(t, src.RGBAAt(69, 9), rgbaAt(t, out.Image, 39, 14))
	assert.Equal(t, black, rgbaAt(t, out.Image, 39, 15))
}

func TestLetterboxEmptyBeforeCrop(t *testing.T) {
	empty := image.NewRGBA(image.Rect(0, 0, 200, 0))

	_, err := Letterbox(NewFrame(empty), Dimensions{Width: 50, Height: 50}, nil)
	require.ErrorIs(t, err, ErrEmptyFrame)
	assert.NotErrorIs(t, err, ErrDegenerateCrop)
}

func TestLetterboxInvalidDimensions(t *testing.T) {
	_, err := Letterbox(NewFrame(gradient(4, 4)), Dimensions{Width: 0, Height: 4}, nil)
	require.ErrorIs(t, err, ErrInvalidDimensions)
}

func TestLetterboxPalettedTransparency(t *testing.T) {
	pal := image.NewPaletted(image.Rect(0, 0, 2, 1), color.Palette{
		color.RGBA{},
		color.RGBA{R: 255, A: 255},
	})
	pal.Pix[0] = 0
	pal.Pix[1] = 1

	out, err := Letterbox(NewFrame(pal), Dimensions{Width: 2, Height: 1}, color.RGBA{B: 255, A: 255})
	require.NoError(t, err)

	assert.Equal(t, color.RGBA{B: 255, A: 255}, rgbaAt(t, out.Image, 0, 0))
	assert.Equal(t, color.RGBA{R: 255, A: 255}, rgbaAt(t, out.Image, 1, 0))
}

// An exact 3x multiple of the target decimates by 3 and needs no padding.
func TestFitUltraHDToHD(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3840, 2160))
	for y := 0; y < 2160; y += 3 {
		for x := 0; x < 3840; x += 3 {
			src.SetNRGBA(x, y, color.NRGBA{R: uint8(x / 3), G: uint8(y / 3), B: 7, A: 255})
		}
	}
	target := Dimensions{Width: 1280, Height: 720}

	sub, err := Subsample(NewFrame(src), target)
	require.NoError(t, err)
	require.Equal(t, target, sub.Size())

	out, err := Letterbox(sub, target, nil)
	require.NoError(t, err)
	require.Equal(t, target, out.Size())

	for _, p := range []image.Point{{0, 0}, {1, 1}, {639, 359}, {1279, 719}} {
		want := color.RGBA{R: uint8(p.X), G: uint8(p.Y), B: 7, A: 255}
		assert.Equal(t, want, rgbaAt(t, out.Image, p.X, p.Y), "pixel %v", p)
	}
}

// Less than twice the target on both axes means stride 1, so both axes are center-cropped.
func TestFitCropsSlightlyOversized(t *testing.T) {
	src := gradient(2000, 1000)
	target := Dimensions{Width: 1280, Height: 720}

	sub, err := Subsample(NewFrame(src), target)
	require.NoError(t, err)
	require.Same(t, src, sub.Image)

	out, err := Fit(NewFrame(src), target, nil)
	require.NoError(t, err)
	require.Equal(t, target, out.Size())

	assert.Equal(t, src.RGBAAt(360, 140), rgbaAt(t, out.Image, 0, 0))
	assert.Equal(t, src.RGBAAt(1639, 859), rgbaAt(t, out.Image, 1279, 719))
}

// A smaller image is centered with equal padding on opposite sides.
func TestFitPadsSmallImage(t *testing.T) {
	src := gradient(640, 480)
	target := Dimensions{Width: 1280, Height: 720}

	out, err := Fit(NewFrame(src), target, nil)
	require.NoError(t, err)
	require.Equal(t, target, out.Size())

	assert.Equal(t, black, rgbaAt(t, out.Image, 319, 360))
	assert.Equal(t, black, rgbaAt(t, out.Image, 640, 119))
	assert.Equal(t, src.RGBAAt(0, 0), rgbaAt(t, out.Image, 320, 120))
	assert.Equal(t, src.RGBAAt(639, 479), rgbaAt(t, out.Image, 959, 599))
	assert.Equal(t, black, rgbaAt(t, out.Image, 960, 600))
	assert.Equal(t, black, rgbaAt(t, out.Image, 1279, 719))
}

// Transparent pixels become background and opaque ones keep their color.
func TestFitCompositesTransparency(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if x < 2 {
				src.SetNRGBA(x, y, color.NRGBA{R: 90, G: 180, B: 30, A: 0})
			} else {
				src.SetNRGBA(x, y, color.NRGBA{R: 90, G: 180, B: 30, A: 255})
			}
		}
	}
	src.SetNRGBA(3, 3, color.NRGBA{R: 250, G: 250, B: 250, A: 128})

	out, err := Fit(NewFrame(src), Dimensions{Width: 4, Height: 4}, nil)
	require.NoError(t, err)

	assert.Equal(t, black, rgbaAt(t, out.Image, 0, 0))
	assert.Equal(t, black, rgbaAt(t, out.Image, 1, 3))
	assert.Equal(t, color.RGBA{R: 90, G: 180, B: 30, A: 255}, rgbaAt(t, out.Image, 2, 0))

	half := rgbaAt(t, out.Image, 3, 3)
	assert.Equal(t, uint8(255), half.A)
	assert.InDelta(t, 125, int(half.R), 2)
}

func TestPixelFormatString(t *testing.T) {
	assert.Equal(t, "rgb", FormatRGB.String())
	assert.Equal(t, "gray_alpha", FormatGrayAlpha.String())
	assert.Equal(t, "unknown", PixelFormat(99).String())
}

func TestEmptyFrameRejected(t *testing.T) {
	target := Dimensions{Width: 4, Height: 4}
	frames := map[string]Frame{
		"nil image":   {},
		"zero width":  NewFrame(image.NewRGBA(image.Rect(0, 0, 0, 3))),
		"zero height": NewFrame(image.NewRGBA(image.Rect(2, 2, 6, 2))),
	}

	for name, f := range frames {
		t.Run(name, func(t *testing.T) {
			_, err := Subsample(f, target)
			assert.ErrorIs(t, err, ErrEmptyFrame)

			_, err = Letterbox(f, target, nil)
			assert.ErrorIs(t, err, ErrEmptyFrame)

			_, err = Fit(f, target, nil)
			assert.ErrorIs(t, err, ErrEmptyFrame)
		})
	}
}
