package media

import (
	"path/filepath"
	"strings"
)

// Codec names the encoder used to write an output file.
type Codec string

const (
	// CodecJPEG writes baseline JPEG with a configurable quality.
	CodecJPEG Codec = "jpeg"
	// CodecPNG writes PNG with default compression.
	CodecPNG Codec = "png"
	// CodecBMP writes uncompressed BMP.
	CodecBMP Codec = "bmp"
	// CodecTIFF writes TIFF.
	CodecTIFF Codec = "tiff"
	// CodecWebP writes WebP, lossy or lossless.
	CodecWebP Codec = "webp"
)

// ImageExtensions maps the recognized lowercase file extensions to the
// codec their output is written with.
var ImageExtensions = map[string]Codec{
	".jpg":  CodecJPEG,
	".jpeg": CodecJPEG,
	".png":  CodecPNG,
	".bmp":  CodecBMP,
	".webp": CodecWebP,
	".tiff": CodecTIFF,
}

// MimeTypes maps codecs to their MIME types.
var MimeTypes = map[Codec]string{
	CodecJPEG: "image/jpeg",
	CodecPNG:  "image/png",
	CodecBMP:  "image/bmp",
	CodecTIFF: "image/tiff",
	CodecWebP: "image/webp",
}

// CodecFor returns the codec for a file name, matching its extension
// case-insensitively. The second result is false for unrecognized files.
func CodecFor(name string) (Codec, bool) {
	codec, ok := ImageExtensions[strings.ToLower(filepath.Ext(name))]
	return codec, ok
}

// IsImageFile reports whether name has a recognized image extension.
func IsImageFile(name string) bool {
	_, ok := CodecFor(name)
	return ok
}

// MimeType returns the MIME type for a codec, or application/octet-stream.
func (c Codec) MimeType() string {
	if mime, ok := MimeTypes[c]; ok {
		return mime
	}
	return "application/octet-stream"
}

