package batch

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"image/color"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"pixelbox/internal/database"
	"pixelbox/internal/filesystem"
	"pixelbox/internal/logging"
	"pixelbox/internal/media"
	"pixelbox/internal/metrics"
	"pixelbox/internal/resample"
	"pixelbox/internal/storage"
)

// Output is where encoded files go.
type Output interface {
	storage.Sink
	Exists(name string) bool
}

// Ledger records runs and answers whether an input was already processed.
// *database.Database implements it.
type Ledger interface {
	BeginRun(ctx context.Context, run database.Run) error
	FinishRun(ctx context.Context, run database.Run) error
	RecordFile(ctx context.Context, rec database.FileRecord) error
	LastProcessed(ctx context.Context, name string, key database.OutputKey) (*database.FileRecord, error)
}

// Options configures a Processor.
type Options struct {
	InputDir      string
	OutputDir     string // for log messages; the sink decides where files go
	Target        resample.Dimensions
	Background    color.RGBA
	Encode        media.EncodeOptions
	MaxPixels     int
	Workers       int
	Recursive     bool
	Exclude       []string // directories never descended into, such as a nested output directory
	SkipUnchanged bool
	ReportFile    string
}

// Processor runs batches. At most one run is active at a time.
type Processor struct {
	opts   Options
	out    Output
	ledger Ledger
	retry  filesystem.RetryConfig

	mu         sync.Mutex
	running    bool
	pending    Trigger // set when TriggerRun found a run active
	lastReport *Report
	lastRun    time.Time

	onRunComplete func(*Report)
}

// Status describes the processor for health checks.
type Status struct {
	Running    bool      `json:"running"`
	LastRun    time.Time `json:"lastRun,omitempty"`
	LastRunID  string    `json:"lastRunId,omitempty"`
	LastFailed int       `json:"lastFailed"`
}

// New creates a Processor writing to out. ledger may be nil.
func New(opts Options, out Output, ledger Ledger) (*Processor, error) {
	if err := opts.Target.Validate(); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, errors.New("output sink is required")
	}
	return &Processor{
		opts:   opts,
		out:    out,
		ledger: ledger,
		retry:  filesystem.DefaultRetryConfig(),
	}, nil
}

// SetOnRunComplete sets a callback invoked after every finished run.
func (p *Processor) SetOnRunComplete(callback func(*Report)) {
	p.onRunComplete = callback
}

// backgroundHex is the background as it is keyed in the ledger.
func (p *Processor) backgroundHex() string {
	bg := p.opts.Background
	return fmt.Sprintf("#%02x%02x%02x", bg.R, bg.G, bg.B)
}

// Run processes every recognized file of the input directory once. Per-file
// failures are part of the report; the error is non-nil only when the input
// directory cannot be read, the context was canceled, or another run is
// active. A canceled run still returns the partial report.
func (p *Processor) Run(ctx context.Context, trigger Trigger) (*Report, error) {
	if !p.tryStart() {
		return nil, ErrRunInProgress
	}
	defer p.finish()
	return p.run(ctx, trigger)
}

// Start begins a run in the background and returns at once. It returns
// ErrRunInProgress if a run is already active.
func (p *Processor) Start(ctx context.Context, trigger Trigger) error {
	if !p.tryStart() {
		return ErrRunInProgress
	}
	go p.runLoop(ctx, trigger)
	return nil
}

// runLoop runs in the background until no trigger is queued. The caller
// must hold the run slot.
func (p *Processor) runLoop(ctx context.Context, trigger Trigger) {
	for {
		if _, err := p.run(ctx, trigger); err != nil {
			logging.Error("%s run failed: %v", trigger, err)
		}
		next, ok := p.finishOrContinue(ctx)
		if !ok {
			return
		}
		logging.Info("Starting queued %s run", next)
		trigger = next
	}
}

func (p *Processor) run(ctx context.Context, trigger Trigger) (*Report, error) {
	metrics.RunIsRunning.Set(1)
	defer metrics.RunIsRunning.Set(0)

	startTime := time.Now()
	report := &Report{
		RunID:      uuid.NewString(),
		Trigger:    trigger,
		InputDir:   p.opts.InputDir,
		Target:     p.opts.Target.String(),
		Background: p.backgroundHex(),
		StartedAt:  startTime,
	}

	logging.Info("Starting run %s (trigger: %s, target: %s, workers: %d)",
		report.RunID, trigger, report.Target, max(1, p.opts.Workers))

	jobs, err := enumerate(ctx, p.opts.InputDir, p.opts.Recursive, p.opts.Exclude, p.retry)
	if err != nil {
		metrics.RunsTotal.WithLabelValues(string(trigger), "error").Inc()
		return nil, err
	}
	logging.Debug("Found %d image files in %s", len(jobs), p.opts.InputDir)

	p.beginLedgerRun(ctx, report)

	results, canceled := runPool(ctx, jobs, p.opts.Workers, func(ctx context.Context, job fileJob) FileResult {
		return p.processFile(ctx, report.RunID, job)
	})

	report.Files = results
	report.Canceled = canceled || ctx.Err() != nil
	report.tally()
	report.DurationMS = time.Since(startTime).Milliseconds()

	p.finishLedgerRun(report)
	p.recordRunMetrics(report, startTime)

	if p.opts.ReportFile != "" {
		if err := report.WriteFile(p.opts.ReportFile); err != nil {
			logging.Error("Failed to write report: %v", err)
		} else {
			logging.Debug("Report written to %s", p.opts.ReportFile)
		}
	}

	p.mu.Lock()
	p.lastReport = report
	p.lastRun = time.Now()
	p.mu.Unlock()

	if report.Canceled {
		logging.Warn("Run %s canceled after %d of %d files", report.RunID, len(results), len(jobs))
		return report, ctx.Err()
	}

	logging.Info("Run %s complete in %v: %d processed, %d skipped, %d failed",
		report.RunID, time.Since(startTime).Round(time.Millisecond), report.Processed, report.Skipped, report.Failed)
	logging.Info("All images processed and written to %s", p.opts.OutputDir)

	if p.onRunComplete != nil {
		p.onRunComplete(report)
	}
	return report, nil
}

// TriggerRun is Start for the watcher. A trigger that arrives while a run
// is active is queued, and one more run starts when the active one ends.
// Further triggers during that time collapse into the same queued run.
func (p *Processor) TriggerRun(ctx context.Context, trigger Trigger) {
	if err := p.Start(ctx, trigger); err == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		// The active run ended between Start and here.
		p.running = true
		go p.runLoop(ctx, trigger)
		return
	}
	if p.pending == "" {
		logging.Info("Run in progress, queueing %s trigger", trigger)
	}
	p.pending = trigger
}

// LastReport returns the report of the last finished run, or nil.
func (p *Processor) LastReport() *Report {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastReport
}

// IsRunning reports whether a run is active.
func (p *Processor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Status returns a snapshot for health reporting.
func (p *Processor) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Status{Running: p.running, LastRun: p.lastRun}
	if p.lastReport != nil {
		s.LastRunID = p.lastReport.RunID
		s.LastFailed = p.lastReport.Failed
	}
	return s
}

func (p *Processor) tryStart() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return false
	}
	p.running = true
	return true
}

// finish ends a blocking run. Triggers queued during it are dropped.
func (p *Processor) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = false
	p.pending = ""
}

// finishOrContinue ends the active run, unless a trigger was queued while it
// ran and ctx is still live. In that case the run slot stays claimed and the
// queued trigger is returned.
func (p *Processor) finishOrContinue(ctx context.Context) (Trigger, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	next := p.pending
	p.pending = ""
	if next == "" || ctx.Err() != nil {
		p.running = false
		return "", false
	}
	return next, true
}

// processFile runs one file through every phase and records its outcome.
func (p *Processor) processFile(ctx context.Context, runID string, job fileJob) FileResult {
	start := time.Now()
	result := p.transformFile(ctx, job)
	result.DurationMS = time.Since(start).Milliseconds()

	switch result.Status {
	case database.StatusProcessed:
		logging.Info("Processed: %s", job.name)
	case database.StatusSkipped:
		logging.Info("Skipped: %s (unchanged)", job.name)
	case database.StatusFailed:
		logging.Error("Error processing %s: %v", job.name, result.Err)
		metrics.FileErrorsByPhase.WithLabelValues(result.Phase).Inc()
	}
	metrics.FilesTotal.WithLabelValues(result.Status).Inc()

	p.recordFile(ctx, runID, result)
	return result
}

func (p *Processor) transformFile(ctx context.Context, job fileJob) FileResult {
	result := FileResult{Name: job.name}
	fail := func(phase string, err error) FileResult {
		result.Status = database.StatusFailed
		result.Phase = phase
		result.Err = &FileError{Name: job.name, Phase: phase, Err: err}
		result.Error = result.Err.Error()
		return result
	}

	codec, ok := media.CodecFor(job.name)
	if !ok {
		return fail(PhaseRead, errors.New("unrecognized extension"))
	}

	var data []byte
	err := timePhase(PhaseRead, func() error {
		var err error
		data, err = filesystem.ReadFileWithRetry(job.path, p.retry)
		return err
	})
	if err != nil {
		return fail(PhaseRead, err)
	}

	sum := blake2b.Sum256(data)
	result.Fingerprint = hex.EncodeToString(sum[:])

	key := database.OutputKey{
		Fingerprint: result.Fingerprint,
		Target:      p.opts.Target.String(),
		Background:  p.backgroundHex(),
		Encoding:    p.opts.Encode.Key(codec),
	}
	if p.unchanged(ctx, job.name, key) {
		result.Status = database.StatusSkipped
		return result
	}

	var decoded *media.Decoded
	err = timePhase(PhaseDecode, func() error {
		var err error
		decoded, err = media.Decode(data, p.opts.MaxPixels)
		return err
	})
	if err != nil {
		return fail(PhaseDecode, err)
	}
	size := decoded.Frame.Size()
	result.SourceFormat = decoded.Format
	result.Decoder = decoded.Decoder
	result.SourceWidth = size.Width
	result.SourceHeight = size.Height
	metrics.DecodeByFormat.WithLabelValues(decoded.Format, decoded.Decoder).Inc()

	var frame resample.Frame
	err = timePhase(PhaseTransform, func() error {
		var err error
		frame, err = resample.Fit(decoded.Frame, p.opts.Target, p.opts.Background)
		return err
	})
	if err != nil {
		return fail(PhaseTransform, err)
	}
	result.Stride = resample.Stride(size, p.opts.Target)
	metrics.SubsampleStride.Observe(float64(result.Stride))

	var buf bytes.Buffer
	err = timePhase(PhaseEncode, func() error {
		return media.Encode(&buf, frame.Image, codec, p.opts.Encode)
	})
	if err != nil {
		return fail(PhaseEncode, err)
	}

	var location string
	err = timePhase(PhaseWrite, func() error {
		var err error
		location, err = p.out.Put(context.WithoutCancel(ctx), job.name, buf.Bytes(), codec.MimeType())
		return err
	})
	result.OutputPath = location
	if err != nil {
		return fail(PhaseWrite, err)
	}

	result.Status = database.StatusProcessed
	result.OutputBytes = int64(buf.Len())
	metrics.OutputBytes.WithLabelValues(string(codec)).Add(float64(buf.Len()))
	return result
}

// unchanged reports whether the ledger already holds a successful result
// for name under key, and the output still exists.
func (p *Processor) unchanged(ctx context.Context, name string, key database.OutputKey) bool {
	if !p.opts.SkipUnchanged || p.ledger == nil {
		return false
	}
	rec, err := p.ledger.LastProcessed(ctx, name, key)
	if err != nil {
		logging.Warn("Ledger lookup failed for %s: %v", name, err)
		return false
	}
	return rec != nil && p.out.Exists(name)
}

// encodingFor is the encoder key of name's output, empty for names no
// codec writes.
func (p *Processor) encodingFor(name string) string {
	codec, ok := media.CodecFor(name)
	if !ok {
		return ""
	}
	return p.opts.Encode.Key(codec)
}

func timePhase(phase string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.PhaseDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
	return err
}

func (p *Processor) beginLedgerRun(ctx context.Context, report *Report) {
	if p.ledger == nil {
		return
	}
	err := p.ledger.BeginRun(ctx, database.Run{
		ID:         report.RunID,
		Trigger:    string(report.Trigger),
		StartedAt:  report.StartedAt,
		Target:     report.Target,
		Background: report.Background,
	})
	if err != nil {
		logging.Warn("Failed to record run start: %v", err)
	}
}

func (p *Processor) finishLedgerRun(report *Report) {
	if p.ledger == nil {
		return
	}
	// The run may have been canceled; the ledger still gets its counts.
	err := p.ledger.FinishRun(context.Background(), database.Run{
		ID:         report.RunID,
		FinishedAt: time.Now(),
		Processed:  report.Processed,
		Skipped:    report.Skipped,
		Failed:     report.Failed,
	})
	if err != nil {
		logging.Warn("Failed to record run finish: %v", err)
	}
}

func (p *Processor) recordFile(ctx context.Context, runID string, r FileResult) {
	if p.ledger == nil {
		return
	}
	err := p.ledger.RecordFile(context.WithoutCancel(ctx), database.FileRecord{
		RunID:        runID,
		Name:         r.Name,
		Fingerprint:  r.Fingerprint,
		Target:       p.opts.Target.String(),
		Background:   p.backgroundHex(),
		Encoding:     p.encodingFor(r.Name),
		Status:       r.Status,
		Phase:        r.Phase,
		Error:        r.Error,
		SourceFormat: r.SourceFormat,
		Decoder:      r.Decoder,
		Stride:       r.Stride,
		OutputBytes:  r.OutputBytes,
		OutputPath:   r.OutputPath,
		ProcessedAt:  time.Now(),
	})
	if err != nil {
		logging.Warn("Failed to record %s in ledger: %v", r.Name, err)
	}
}

func (p *Processor) recordRunMetrics(report *Report, startTime time.Time) {
	status := "success"
	if report.Canceled {
		status = "error"
	}
	metrics.RunsTotal.WithLabelValues(string(report.Trigger), status).Inc()
	metrics.RunDuration.Observe(time.Since(startTime).Seconds())
	metrics.LastRunTimestamp.Set(float64(time.Now().Unix()))
	metrics.LastRunFiles.WithLabelValues(database.StatusProcessed).Set(float64(report.Processed))
	metrics.LastRunFiles.WithLabelValues(database.StatusSkipped).Set(float64(report.Skipped))
	metrics.LastRunFiles.WithLabelValues(database.StatusFailed).Set(float64(report.Failed))
}
