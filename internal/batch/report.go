package batch

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"

	"pixelbox/internal/database"
	"pixelbox/internal/storage"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Phases a file passes through, in order.
const (
	PhaseRead      = "read"
	PhaseDecode    = "decode"
	PhaseTransform = "transform"
	PhaseEncode    = "encode"
	PhaseWrite     = "write"
)

// Trigger names what started a run.
type Trigger string

const (
	TriggerStartup  Trigger = "startup"
	TriggerWatch    Trigger = "watch"
	TriggerInterval Trigger = "interval"
	TriggerAPI      Trigger = "api"
)

// ErrRunInProgress is returned by Run while another run is active.
var ErrRunInProgress = errors.New("a run is already in progress")

// FileError is the failure of one file in one phase.
type FileError struct {
	Name  string
	Phase string
	Err   error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// FileResult is the outcome of one input file.
type FileResult struct {
	Name         string `json:"name"`
	Status       string `json:"status"`
	Phase        string `json:"phase,omitempty"`
	Error        string `json:"error,omitempty"`
	Fingerprint  string `json:"fingerprint,omitempty"`
	SourceFormat string `json:"sourceFormat,omitempty"`
	Decoder      string `json:"decoder,omitempty"`
	SourceWidth  int    `json:"sourceWidth,omitempty"`
	SourceHeight int    `json:"sourceHeight,omitempty"`
	Stride       int    `json:"stride,omitempty"`
	OutputBytes  int64  `json:"outputBytes,omitempty"`
	OutputPath   string `json:"outputPath,omitempty"`
	DurationMS   int64  `json:"durationMs"`

	Err error `json:"-"`
}

// OK reports whether the file did not fail.
func (r FileResult) OK() bool {
	return r.Err == nil
}

// Report summarizes one run.
type Report struct {
	RunID      string       `json:"runId"`
	Trigger    Trigger      `json:"trigger"`
	InputDir   string       `json:"inputDir"`
	Target     string       `json:"target"`
	Background string       `json:"background"`
	StartedAt  time.Time    `json:"startedAt"`
	DurationMS int64        `json:"durationMs"`
	Processed  int          `json:"processed"`
	Skipped    int          `json:"skipped"`
	Failed     int          `json:"failed"`
	Canceled   bool         `json:"canceled,omitempty"`
	Files      []FileResult `json:"files"`
}

// Errors returns the failures of the run in name order.
func (r *Report) Errors() []error {
	var errs []error
	for _, f := range r.Files {
		if !f.OK() {
			errs = append(errs, f.Err)
		}
	}
	return errs
}

// tally recounts the status totals from Files.
func (r *Report) tally() {
	r.Processed, r.Skipped, r.Failed = 0, 0, 0
	for _, f := range r.Files {
		switch f.Status {
		case database.StatusProcessed:
			r.Processed++
		case database.StatusSkipped:
			r.Skipped++
		case database.StatusFailed:
			r.Failed++
		}
	}
}

// MarshalIndent renders the report as indented JSON.
func (r *Report) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// WriteFile atomically writes the report as JSON to path.
func (r *Report) WriteFile(path string) error {
	data, err := r.MarshalIndent()
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := storage.AtomicWrite(path, bytes.NewReader(append(data, '\n'))); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
