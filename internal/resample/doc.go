// Package resample implements the two-step geometry pipeline that turns an
// arbitrary decoded image into a fixed-size frame.
//
// The pipeline has two stateless stages:
//   - Subsample: integer-stride decimation that never upsamples and keeps
//     the aspect ratio by using the same stride on both axes
//   - Letterbox: centers the result on an opaque canvas of the target size,
//     center-cropping any axis that still exceeds the target
//
// Both stages operate on a Frame, which pairs the pixels with an explicit
// PixelFormat tag. The tag decides whether pixels must be normalized before
// decimation and whether the source is alpha-blended onto the canvas.
//
// Neither stage performs I/O. Decoding, EXIF orientation and encoding belong
// to the media package; the batch package chains everything per file.
package resample
