package metrics

import (
	"time"

	"pixelbox/internal/logging"
)

// StatsProvider reports ledger totals for periodic collection.
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds the current ledger statistics
type Stats struct {
	Runs           int
	FilesProcessed int
	FilesSkipped   int
	FilesFailed    int
	DBMainBytes    int64
	DBWALBytes     int64
	DBSHMBytes     int64
}

// Collector periodically collects and updates ledger gauges
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()

	LedgerRuns.Set(float64(stats.Runs))
	LedgerFiles.WithLabelValues("processed").Set(float64(stats.FilesProcessed))
	LedgerFiles.WithLabelValues("skipped").Set(float64(stats.FilesSkipped))
	LedgerFiles.WithLabelValues("failed").Set(float64(stats.FilesFailed))
	DBSizeBytes.WithLabelValues("main").Set(float64(stats.DBMainBytes))
	DBSizeBytes.WithLabelValues("wal").Set(float64(stats.DBWALBytes))
	DBSizeBytes.WithLabelValues("shm").Set(float64(stats.DBSHMBytes))

	logging.Debug("Metrics collected: runs=%d, processed=%d, skipped=%d, failed=%d",
		stats.Runs, stats.FilesProcessed, stats.FilesSkipped, stats.FilesFailed)
}
