// Package dataset assembles the supervised-learning matrices from raw
// telemetry files.
//
// BuildTraining runs parse -> resample -> segment -> extract for every
// client/server path and concatenates the resulting rows in path order.
// BuildTest extracts one feature row per test document in listing order.
//
// Paths are independent, so BuildTraining processes them on a bounded
// worker pool. Each path writes into its own result slot and slots are
// concatenated in input order, so the output does not depend on the number
// of workers or on scheduling.
package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/HatiCode/ratecast/pkg/features"
	"github.com/HatiCode/ratecast/pkg/series"
	"github.com/HatiCode/ratecast/pkg/source"
	"github.com/HatiCode/ratecast/pkg/telemetry"
	"github.com/HatiCode/ratecast/pkg/windows"
)

// Key identifies the window a training row came from.
type Key struct {
	Client string
	Server string
	// Window is the index of the window's first bucket in the path's series.
	Window int
}

// Training holds aligned feature and target rows.
type Training struct {
	X    []features.FeatureVector
	Y    []features.TargetVector
	Keys []Key
}

// Len returns the number of rows.
func (t *Training) Len() int { return len(t.X) }

// Test holds feature rows aligned with test document ids.
type Test struct {
	X   []features.FeatureVector
	IDs []string
}

// Len returns the number of rows.
func (t *Test) Len() int { return len(t.X) }

// Stats counts what happened while building the training set.
type Stats struct {
	Paths           int
	EmptyPaths      int // paths that produced no events
	Files           int
	Lines           int
	SkippedLines    int
	Events          int
	Buckets         int
	Windows         int
	TailBuckets     int // buckets discarded in short final chunks
	RejectedWindows int // windows dropped for spanning a gap
}

func (s *Stats) add(o Stats) {
	s.Paths += o.Paths
	s.EmptyPaths += o.EmptyPaths
	s.Files += o.Files
	s.Lines += o.Lines
	s.SkippedLines += o.SkippedLines
	s.Events += o.Events
	s.Buckets += o.Buckets
	s.Windows += o.Windows
	s.TailBuckets += o.TailBuckets
	s.RejectedWindows += o.RejectedWindows
}

// Options configures a Builder.
type Options struct {
	// Interval is the resampling bucket width. Defaults to series.DefaultInterval.
	Interval time.Duration
	// Std selects the per-bucket standard deviation mode.
	Std series.StdMode
	// RejectGaps drops windows spanning more than 12 intervals.
	RejectGaps bool
	// Workers bounds concurrent path processing. Values < 1 mean 1.
	Workers int
}

// Builder turns source listings into datasets.
type Builder struct {
	extractor *features.Extractor
	opts      Options
	logger    *slog.Logger
}

// NewBuilder creates a Builder.
func NewBuilder(extractor *features.Extractor, opts Options, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Interval <= 0 {
		opts.Interval = series.DefaultInterval
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Builder{extractor: extractor, opts: opts, logger: logger}
}

type pathResult struct {
	x     []features.FeatureVector
	y     []features.TargetVector
	keys  []Key
	stats Stats
}

// BuildTraining builds the training matrices for paths.
//
// An unknown client or server code aborts the build with an error wrapping
// *features.UnknownCodeError. Unreadable request files abort it as well.
// Malformed lines, empty paths and short tails only reduce the row count.
func (b *Builder) BuildTraining(ctx context.Context, paths []source.ServerPath) (*Training, Stats, error) {
	results := make([]pathResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Workers)

	for i, p := range paths {
		g.Go(func() error {
			r, err := b.processPath(gctx, p)
			if err != nil {
				return fmt.Errorf("path %s: %w", p.Key(), err)
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, Stats{}, err
	}

	var (
		out   Training
		stats Stats
	)
	for _, r := range results {
		out.X = append(out.X, r.x...)
		out.Y = append(out.Y, r.y...)
		out.Keys = append(out.Keys, r.keys...)
		stats.add(r.stats)
	}

	b.logger.Info("built training set",
		"paths", stats.Paths,
		"empty_paths", stats.EmptyPaths,
		"lines", stats.Lines,
		"skipped_lines", stats.SkippedLines,
		"buckets", stats.Buckets,
		"samples", out.Len(),
	)

	return &out, stats, nil
}

func (b *Builder) processPath(ctx context.Context, p source.ServerPath) (pathResult, error) {
	r := pathResult{stats: Stats{Paths: 1}}

	vocab := b.extractor.Vocabulary()
	if _, err := vocab.Resolve(features.RoleClient, p.Client); err != nil {
		return r, err
	}
	if _, err := vocab.Resolve(features.RoleServer, p.Server); err != nil {
		return r, err
	}

	var events []telemetry.RawEvent
	for _, file := range p.Files {
		if err := ctx.Err(); err != nil {
			return r, err
		}
		evs, rs, err := telemetry.ReadRequestFile(file, b.logger)
		if err != nil {
			return r, err
		}
		r.stats.Files++
		r.stats.Lines += rs.Lines
		r.stats.SkippedLines += rs.Skipped
		events = append(events, evs...)
	}
	r.stats.Events = len(events)

	if len(events) == 0 {
		r.stats.EmptyPaths = 1
		b.logger.Debug("no usable events", "path", p.Key(), "files", len(p.Files))
		return r, nil
	}

	buckets := series.Resample(events, series.Options{Interval: b.opts.Interval, Std: b.opts.Std})
	seg := windows.Segment(buckets, windows.Options{Interval: b.opts.Interval, RejectGaps: b.opts.RejectGaps})

	r.stats.Buckets = len(buckets)
	r.stats.TailBuckets = seg.Tail
	r.stats.RejectedWindows = seg.Rejected

	for _, w := range seg.Windows {
		fv, tv, err := b.extractor.ExtractWindow(p.Client, p.Server, w)
		if err != nil {
			return r, err
		}
		r.x = append(r.x, fv)
		r.y = append(r.y, tv)
		r.keys = append(r.keys, Key{Client: p.Client, Server: p.Server, Window: w.Index})
	}
	r.stats.Windows = len(seg.Windows)

	b.logger.Debug("processed path",
		"path", p.Key(),
		"events", len(events),
		"buckets", len(buckets),
		"windows", len(seg.Windows),
		"tail", seg.Tail,
		"rejected", seg.Rejected,
	)

	return r, nil
}

// BuildTest extracts one feature row per test file, in the given order.
func (b *Builder) BuildTest(ctx context.Context, files []source.TestFile) (*Test, error) {
	out := &Test{
		X:   make([]features.FeatureVector, 0, len(files)),
		IDs: make([]string, 0, len(files)),
	}

	fallbacks := 0
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rec, err := telemetry.ReadTestRecord(f.Path)
		if err != nil {
			return nil, err
		}
		if len(rec.Rates) == 0 {
			fallbacks++
		}

		fv, err := b.extractor.ExtractTestRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("test file %s: %w", f.ID, err)
		}

		out.X = append(out.X, fv)
		out.IDs = append(out.IDs, f.ID)
	}

	b.logger.Info("built test set", "records", out.Len(), "zero_fallbacks", fallbacks)
	return out, nil
}
