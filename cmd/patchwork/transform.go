package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/valoeghese/patchwork-patcher/internal/archive"
	"github.com/valoeghese/patchwork-patcher/internal/cache"
	"github.com/valoeghese/patchwork-patcher/internal/config"
	"github.com/valoeghese/patchwork-patcher/internal/diag"
	"github.com/valoeghese/patchwork-patcher/internal/pipeline"
	"github.com/valoeghese/patchwork-patcher/internal/report"
	"github.com/valoeghese/patchwork-patcher/internal/trace"
	"github.com/valoeghese/patchwork-patcher/internal/version"
)

const maxDiagnostics = 1000

type transformOptions struct {
	out         string
	jobs        int
	entrypoints string
	report      string
	configPath  string
	ui          string
	noCache     bool
	timings     bool
	reserved    []string
}

var transformOpts transformOptions

func init() {
	f := transformCmd.Flags()
	f.StringVarP(&transformOpts.out, "out", "o", "", "output directory or jar (default: INPUT-patched)")
	f.IntVarP(&transformOpts.jobs, "jobs", "j", 0, "classes transformed in parallel (0 = GOMAXPROCS)")
	f.StringVar(&transformOpts.entrypoints, "entrypoints", "", "write initializer entrypoints to this file")
	f.StringVar(&transformOpts.report, "report", "", "write a YAML build report to this file")
	f.StringVar(&transformOpts.configPath, "config", "", "config file (default: nearest "+config.FileName+")")
	f.StringVar(&transformOpts.ui, "ui", "", "progress view (auto|on|off)")
	f.BoolVar(&transformOpts.noCache, "no-cache", false, "do not read or write the transform cache")
	f.BoolVar(&transformOpts.timings, "timings", false, "print per-stage timings")
	f.StringSliceVar(&transformOpts.reserved, "reserved", nil, "reserved class name prefixes")
}

var transformCmd = &cobra.Command{
	Use:   "transform [flags] INPUT",
	Short: "Rewrite the classes of a directory or jar",
	Args:  cobra.ExactArgs(1),
	RunE:  runTransform,
}

// applyTransformFlags overrides config values with explicitly set flags.
func applyTransformFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("jobs") {
		cfg.Transform.Jobs = transformOpts.jobs
	}
	if flags.Changed("reserved") {
		cfg.Transform.ReservedPrefixes = transformOpts.reserved
	}
	if flags.Changed("no-cache") {
		cfg.Transform.Cache = !transformOpts.noCache
	}
	if flags.Changed("ui") {
		cfg.UI.Mode = transformOpts.ui
	}
}

// defaultOutput places the result next to the input.
func defaultOutput(input string) string {
	clean := filepath.Clean(input)
	if archive.IsJar(clean) {
		ext := filepath.Ext(clean)
		return strings.TrimSuffix(clean, ext) + "-patched" + ext
	}
	return clean + "-patched"
}

// signatureFile reports whether a resource is a jar signature, which the
// rewritten classes would invalidate.
func signatureFile(name string) bool {
	if !strings.HasPrefix(name, "META-INF/") || strings.Count(name, "/") != 1 {
		return false
	}
	switch strings.ToUpper(filepath.Ext(name)) {
	case ".SF", ".RSA", ".DSA", ".EC":
		return true
	}
	return false
}

func openCache(cmd *cobra.Command, cfg config.Transform) pipeline.Cache {
	if !cfg.Cache {
		return nil
	}
	dir := cfg.CacheDir
	if dir == "" {
		var err error
		if dir, err = cache.DefaultDir("patchwork"); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "cache disabled: %v\n", err)
			return nil
		}
	}
	dc, err := cache.Open(dir)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "cache disabled: %v\n", err)
		return nil
	}
	return dc
}

func runTransform(cmd *cobra.Command, args []string) (err error) {
	root := cmd.Root().PersistentFlags()
	quiet, err := root.GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}
	colorMode, err := root.GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}
	if err := applyColorMode(colorMode); err != nil {
		return err
	}

	cfg, err := config.Load(".", transformOpts.configPath)
	if err != nil {
		return err
	}
	applyTransformFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	uiMode, err := readUIMode(cfg.UI.Mode)
	if err != nil {
		return err
	}

	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer stopProfiling()

	run := &transformRun{}
	cleanup, err := setupTracing(cmd, cfg.Trace, run.status)
	if err != nil {
		return err
	}
	defer func() { cleanup(err != nil) }()
	ctx := cmd.Context()

	input := args[0]
	in, err := archive.Read(input)
	if err != nil {
		return diag.Wrap(diag.IOReadInput, diag.Location{}, err, "read "+input)
	}
	outPath := transformOpts.out
	if outPath == "" {
		outPath = defaultOutput(input)
	}
	if filepath.Clean(outPath) == filepath.Clean(input) {
		return fmt.Errorf("output %s would overwrite the input", outPath)
	}
	w, err := archive.Create(outPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}

	bag := diag.NewBag(maxDiagnostics)
	collector := report.NewCollector(input, outPath)
	reporter := diag.NewDedupReporter(diag.MultiReporter{diag.BagReporter{Bag: bag}, collector})

	for _, res := range in.Resources {
		if signatureFile(res.Name) {
			continue
		}
		if err := w.WriteFile(res.Name, res.Data); err != nil {
			_ = w.Close()
			return fmt.Errorf("copy %s: %w", res.Name, err)
		}
	}

	jobs := cfg.Transform.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	run.classes = in.Classes
	run.jobs = jobs
	run.bag = bag
	run.total.Store(int64(len(in.Classes)))
	opts := pipeline.Options{
		ReservedPrefixes: cfg.Transform.ReservedPrefixes,
		Output:           w.WriteClass,
		Reporter:         reporter,
		Cache:            openCache(cmd, cfg.Transform),
		CacheSalt:        version.Version,
	}

	if shouldUseTUI(uiMode) && !quiet {
		err = runTransformWithUI(ctx, run, opts, collector)
	} else {
		opts.Progress = collector
		err = run.execute(ctx, opts)
	}
	if closeErr := w.Close(); closeErr != nil && err == nil {
		err = fmt.Errorf("close %s: %w", outPath, closeErr)
	}

	bag.Sort()
	printDiagnostics(cmd.ErrOrStderr(), bag.Items(), quiet)
	if !quiet {
		printSummary(cmd.ErrOrStderr(), bag)
	}
	collector.Finish(run.primary, run.entrypoints)
	if run.pipeline != nil {
		collector.Timings(run.pipeline.Timings())
		if transformOpts.timings {
			printStageTimings(cmd.OutOrStdout(), run.pipeline.Timings())
		}
	}
	if transformOpts.report != "" {
		if repErr := collector.WriteFile(transformOpts.report); repErr != nil && err == nil {
			err = repErr
		}
	}
	if err != nil {
		return err
	}

	if transformOpts.entrypoints != "" {
		data := strings.Join(run.entrypoints, "\n") + "\n"
		if err := os.WriteFile(transformOpts.entrypoints, []byte(data), 0o644); err != nil {
			return fmt.Errorf("write entrypoints: %w", err)
		}
	} else if !quiet {
		for _, ep := range run.entrypoints {
			fmt.Fprintf(cmd.OutOrStdout(), "entrypoint %s\n", ep)
		}
	}
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "patched %d classes for %s into %s\n", len(in.Classes)-int(run.failed.Load()), run.primary, outPath)
	}
	if n := run.failed.Load(); n > 0 {
		return fmt.Errorf("%d of %d classes failed", n, len(in.Classes))
	}
	return nil
}

// transformRun submits every class and finishes the build.
type transformRun struct {
	classes []archive.Entry
	jobs    int
	bag     *diag.Bag

	pipeline    *pipeline.Pipeline
	total       atomic.Int64
	done        atomic.Int64
	failed      atomic.Int64
	mu          sync.Mutex
	primary     string
	entrypoints []string
}

// status reports submission progress for the trace heartbeat.
func (r *transformRun) status() string {
	return fmt.Sprintf("%d/%d classes", r.done.Load(), r.total.Load())
}

func (r *transformRun) execute(ctx context.Context, opts pipeline.Options) error {
	p, err := pipeline.New(opts)
	if err != nil {
		return err
	}
	r.pipeline = p

	span := trace.Begin(trace.FromContext(ctx), trace.ScopeBuild, "transform", trace.CurrentSpan(ctx)).
		WithExtra("classes", fmt.Sprint(len(r.classes)))
	defer span.End("")
	ctx = trace.WithSpan(ctx, span)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(r.jobs, len(r.classes))))
	for _, class := range r.classes {
		g.Go(func() error {
			err := p.Submit(gctx, class.Name, class.Data)
			r.done.Add(1)
			if err == nil {
				return nil
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			r.failed.Add(1)
			var de *diag.Error
			if errors.As(err, &de) {
				r.bag.Add(de.Diagnostic())
			} else {
				r.bag.Add(diag.New(diag.SevError, diag.UnknownCode, diag.Location{Module: class.Name}, err.Error()))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	primary, err := p.Finish(ctx, func(name string) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.entrypoints = append(r.entrypoints, name)
		return nil
	})
	if err != nil {
		return err
	}
	r.primary = primary
	return nil
}
