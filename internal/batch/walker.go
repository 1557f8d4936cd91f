package batch

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"pixelbox/internal/filesystem"
	"pixelbox/internal/logging"
	"pixelbox/internal/media"
)

// fileJob is one input file, named relative to the input directory with
// forward slashes.
type fileJob struct {
	name string
	path string
}

// enumerate lists the recognized image files below root in name order.
// Hidden entries and the directories in exclude are skipped. Only an
// unreadable root is an error; unreadable sub-directories are logged and
// skipped.
func enumerate(ctx context.Context, root string, recursive bool, exclude []string, retry filesystem.RetryConfig) ([]fileJob, error) {
	excluded := make(map[string]bool, len(exclude))
	for _, dir := range exclude {
		if abs, err := filepath.Abs(dir); err == nil {
			excluded[abs] = true
		}
	}

	var jobs []fileJob

	var walk func(rel string) error
	walk = func(rel string) error {
		dir := filepath.Join(root, filepath.FromSlash(rel))
		entries, err := filesystem.ReadDirWithRetry(dir, retry)
		if err != nil {
			return err
		}

		for _, entry := range entries {
			if ctx.Err() != nil {
				return nil
			}

			name := entry.Name()
			if strings.HasPrefix(name, ".") {
				continue
			}
			relName := path.Join(rel, name)

			if entry.IsDir() {
				if !recursive {
					continue
				}
				if abs, err := filepath.Abs(filepath.Join(dir, name)); err == nil && excluded[abs] {
					logging.Debug("Skipping excluded directory: %s", relName)
					continue
				}
				if err := walk(relName); err != nil {
					logging.Warn("Error reading directory %s: %v", relName, err)
				}
				continue
			}

			if !media.IsImageFile(name) {
				logging.Debug("Skipping unrecognized file: %s", relName)
				continue
			}
			jobs = append(jobs, fileJob{name: relName, path: filepath.Join(dir, name)})
		}
		return nil
	}

	if err := walk(""); err != nil {
		return nil, fmt.Errorf("read input directory: %w", err)
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].name < jobs[j].name })
	return jobs, nil
}

// runPool feeds jobs to numWorkers goroutines running fn and returns the
// results sorted by name. Once ctx is done no further jobs are started;
// the second result reports whether that happened before every job ran.
func runPool(ctx context.Context, jobs []fileJob, numWorkers int, fn func(context.Context, fileJob) FileResult) ([]FileResult, bool) {
	numWorkers = max(1, min(numWorkers, len(jobs)))

	jobsCh := make(chan fileJob)
	resultsCh := make(chan FileResult, numWorkers)

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			logging.Debug("Worker %d started", id)
			for job := range jobsCh {
				resultsCh <- fn(ctx, job)
			}
			logging.Debug("Worker %d finished", id)
		}(i)
	}

	go func() {
		defer close(jobsCh)
		for _, job := range jobs {
			// A ready job and a done context are both selectable; check
			// the context first so cancellation wins.
			if ctx.Err() != nil {
				return
			}
			select {
			case jobsCh <- job:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultsCh)
	}()

	results := make([]FileResult, 0, len(jobs))
	for r := range resultsCh {
		results = append(results, r)
	}
	canceled := len(results) < len(jobs)

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results, canceled
}
