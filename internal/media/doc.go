// Package media handles the codec side of pixelbox: which file extensions
// are recognized, how files are decoded into resample frames with their EXIF
// orientation applied, and how finished frames are encoded back into the
// format of the original file.
//
// Decoding uses the imaging library with auto-orientation. When libvips has
// been initialized with InitVips, files the pure Go decoders reject are
// retried through libvips before giving up.
package media
