package recolor

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"iconkit/parallel"
)

var DefaultExtensions = []string{".png", ".ico"}

// Result is the outcome of recoloring one file. Images is the number of
// images the file held, more than one only for icons. Err is set when the file
// could not be opened, decoded or saved; Output is empty in that case and on
// dry runs.
type Result struct {
	Name   string
	Output string
	Format string
	Images int
	Counts Counts
	Err    error
}

type Stats struct {
	Processed uint64
	Errors    uint64
	Skipped   uint64
}

func (s Stats) Total() uint64 {
	return s.Processed + s.Errors
}

// Batch recolors every matching file in Scan and writes the results to Dest
// under the same name and format.
type Batch struct {
	Scan       string
	Dest       string
	Extensions []string
	Transform  Transform
	DryRun     bool
}

// Match reports whether name has one of the batch extensions, ignoring case.
func (b *Batch) Match(name string) bool {
	exts := b.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}

	lower := strings.ToLower(name)
	for _, ext := range exts {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

// Run processes the scan folder on pool and waits for it to drain. A failing
// file is logged and recorded in its Result; only setup failures and
// cancellation are returned as errors. Results follow directory order.
func (b *Batch) Run(ctx context.Context, pool *parallel.Pool) ([]Result, Stats, error) {
	defer pool.Wait()

	if !b.DryRun {
		if err := os.MkdirAll(b.Dest, 0o755); err != nil {
			return nil, Stats{}, fmt.Errorf("unable to create destination folder %q: %w", b.Dest, err)
		}
	}

	files, err := os.ReadDir(b.Scan)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("unable to read folder %q: %w", b.Scan, err)
	}

	var stats Stats
	var names []string
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		if !b.Match(file.Name()) {
			stats.Skipped++
			continue
		}
		names = append(names, file.Name())
	}

	results := make([]Result, len(names))
	var processedCount, errCount atomic.Uint64
	submitted := 0
	for i, name := range names {
		err := pool.Submit(ctx, func() {
			results[i] = b.process(name)
			if results[i].Err != nil {
				errCount.Add(1)
			} else {
				processedCount.Add(1)
			}
		})
		if err != nil {
			break
		}
		submitted++
	}

	pool.Wait()

	stats.Processed = processedCount.Load()
	stats.Errors = errCount.Load()
	slog.Info("stats", "processed", stats.Processed, "errors", stats.Errors,
		"skipped", stats.Skipped, "total", stats.Total(), "workers", pool.Workers())

	if submitted < len(names) {
		return results[:submitted], stats, fmt.Errorf("stopped after %d of %d files: %w", submitted, len(names), ctx.Err())
	}
	return results, stats, nil
}

func (b *Batch) process(name string) Result {
	res := Result{Name: name}
	src := filepath.Join(b.Scan, name)
	logger := slog.Default().With("file", src)

	logger.Info("processing")
	imgs, format, err := decodeFile(src)
	if err != nil {
		res.Err = err
		logger.Error("could not read image", "error", err)
		return res
	}
	res.Format = format
	res.Images = len(imgs)

	themed := make([]image.Image, len(imgs))
	var counts Counts
	for i, img := range imgs {
		out, c := b.Transform.Image(img)
		themed[i] = out
		counts = counts.Add(c)
	}
	res.Counts = counts

	if b.DryRun {
		logger.Info("recolored", "format", format, "images", res.Images, "colored", counts.Colored,
			"grayscale", counts.Grayscale, "transparent", counts.Transparent)
		return res
	}

	if err := save(themed, format, b.Dest, name); err != nil {
		res.Err = err
		logger.Error("could not save image", "dir", b.Dest, "error", err)
		return res
	}

	res.Output = filepath.Join(b.Dest, name)
	logger.Info("saved", "output", res.Output, "format", format, "images", res.Images, "colored", counts.Colored,
		"grayscale", counts.Grayscale, "transparent", counts.Transparent)
	return res
}
