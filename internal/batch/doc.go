// Package batch runs the resample pipeline over a directory of images.
//
// A run enumerates the recognized image files of the input directory (and
// optionally its sub-directories), then for each file reads it, decodes it
// upright, subsamples and letterboxes it to the target canvas, re-encodes it
// in the format of its extension and hands the bytes to an output sink under
// the same relative name.
//
// Failures are per file: each one becomes a FileResult carrying a *FileError
// that names the failing phase, and the run moves on to the next file. Only
// an unreadable input directory aborts a run.
//
// Files are processed by a bounded pool of workers fed through a jobs
// channel. Results are always reported in name order regardless of the
// number of workers. Cancellation is checked between files.
package batch
