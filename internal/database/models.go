package database

import "time"

// File statuses recorded in the ledger.
const (
	StatusProcessed = "processed"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

// Run is one batch run.
type Run struct {
	ID         string    `json:"id"`
	Trigger    string    `json:"trigger"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt,omitempty"`
	Processed  int       `json:"processed"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	Target     string    `json:"target"`
	Background string    `json:"background"`
}

// FileRecord is the outcome of one input file within a run.
type FileRecord struct {
	RunID        string    `json:"runId"`
	Name         string    `json:"name"`
	Fingerprint  string    `json:"fingerprint"`
	Target       string    `json:"target"`
	Background   string    `json:"background"`
	Encoding     string    `json:"encoding,omitempty"`
	Status       string    `json:"status"`
	Phase        string    `json:"phase,omitempty"`
	Error        string    `json:"error,omitempty"`
	SourceFormat string    `json:"sourceFormat,omitempty"`
	Decoder      string    `json:"decoder,omitempty"`
	Stride       int       `json:"stride,omitempty"`
	OutputBytes  int64     `json:"outputBytes,omitempty"`
	OutputPath   string    `json:"outputPath,omitempty"`
	ProcessedAt  time.Time `json:"processedAt"`
}

// OutputKey identifies everything an output depends on besides the input
// name. A changed field means the stored output is stale.
type OutputKey struct {
	Fingerprint string
	Target      string
	Background  string
	Encoding    string
}
