// Package pipeline runs every submitted class through the transform stages,
// gathers build-wide facts, and on Finish emits one initializer per
// application and runs the subscription consistency check.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/valoeghese/patchwork-patcher/internal/cache"
	"github.com/valoeghese/patchwork-patcher/internal/classfile"
	"github.com/valoeghese/patchwork-patcher/internal/diag"
	"github.com/valoeghese/patchwork-patcher/internal/event"
	"github.com/valoeghese/patchwork-patcher/internal/initializer"
	"github.com/valoeghese/patchwork-patcher/internal/trace"
)

// DefaultReservedPrefixes are namespaces a mod may not define classes in.
var DefaultReservedPrefixes = []string{"java", "net/minecraft"}

// OutputFunc receives every class the pipeline writes.
type OutputFunc func(name string, data []byte) error

// EntrypointFunc receives the dotted name of every initializer.
type EntrypointFunc func(name string) error

// Cache stores per-module results. *cache.DiskCache implements it.
type Cache interface {
	Get(key cache.Digest, out *cache.Entry) (bool, error)
	Put(key cache.Digest, e *cache.Entry) error
}

// Options configures a Pipeline.
type Options struct {
	// Before and After surround the built-in stages.
	Before []Stage
	After  []Stage
	// ReservedPrefixes defaults to DefaultReservedPrefixes when nil.
	ReservedPrefixes []string
	Output           OutputFunc
	Progress         ProgressSink
	Reporter         diag.Reporter
	Cache            Cache
	// CacheSalt distinguishes cache entries of differently configured builds.
	CacheSalt string
}

// Pipeline transforms classes. Submit is safe for concurrent use; Finish must
// be called once, after every Submit has returned.
type Pipeline struct {
	stages   []Stage
	reserved []string
	output   OutputFunc
	progress ProgressSink
	reporter diag.Reporter
	cache    Cache
	salt     string

	build   *BuildContext
	checker *event.Checker
	timings Timings
}

// New composes the stage list.
func New(opts Options) (*Pipeline, error) {
	if opts.Output == nil {
		return nil, errors.New("pipeline: Output is required")
	}
	p := &Pipeline{
		reserved: opts.ReservedPrefixes,
		output:   opts.Output,
		progress: opts.Progress,
		reporter: opts.Reporter,
		cache:    opts.Cache,
		build:    newBuildContext(),
		checker:  event.NewChecker(),
	}
	if p.reserved == nil {
		p.reserved = DefaultReservedPrefixes
	}
	if p.reporter == nil {
		p.reporter = diag.NopReporter{}
	}
	p.stages = append(p.stages, opts.Before...)
	p.stages = append(p.stages, AppScanner{}, EventStage{Rewriter: event.NewRewriter()})
	p.stages = append(p.stages, opts.After...)

	names := make([]string, 0, len(p.stages))
	for _, s := range p.stages {
		names = append(names, s.Name())
	}
	p.salt = strings.Join([]string{
		"schema=" + strconv.Itoa(int(cache.SchemaVersion)),
		"stages=" + strings.Join(names, ","),
		"reserved=" + strings.Join(p.reserved, ","),
		opts.CacheSalt,
	}, ";")
	return p, nil
}

// StageNames returns the composed stage order.
func (p *Pipeline) StageNames() []string {
	names := make([]string, 0, len(p.stages))
	for _, s := range p.stages {
		names = append(names, s.Name())
	}
	return names
}

// Timings returns accumulated stage durations.
func (p *Pipeline) Timings() *Timings { return &p.timings }

// validateName checks an internal class name before parsing.
func (p *Pipeline) validateName(name string) error {
	loc := diag.Location{Module: name}
	switch {
	case name == "":
		return diag.Errorf(diag.MalModuleName, loc, "name is empty")
	case strings.HasPrefix(name, "/"):
		return diag.Errorf(diag.MalModuleName, loc, "name should not start with a /")
	case strings.HasSuffix(name, ".class"):
		return diag.Errorf(diag.MalModuleName, loc, "name should not end with .class")
	case strings.HasPrefix(name, initializer.GeneratedPackage):
		return diag.Errorf(diag.MalDuplicateGeneration, loc, "%s is reserved for generated initializers", initializer.GeneratedPackage)
	}
	for _, prefix := range p.reserved {
		if prefix != "" && strings.HasPrefix(name, prefix) {
			return diag.Errorf(diag.MalReservedNamespace, loc, "classes may not be defined in the reserved namespace %s", prefix)
		}
	}
	return nil
}

// Submit transforms one class and writes the result. Errors abort this
// class only and are *diag.Error values.
func (p *Pipeline) Submit(ctx context.Context, name string, data []byte) (err error) {
	tracer := trace.FromContext(ctx)
	span := trace.BeginModule(tracer, name, "submit", trace.CurrentSpan(ctx))
	ctx = trace.WithSpan(ctx, span)
	start := time.Now()
	emit(p.progress, name, "", StatusWorking, nil, 0)
	status := StatusDone
	defer func() {
		if err != nil {
			err = diag.WithModule(err, name)
			status = StatusError
			trace.Point(tracer, trace.ScopeModule, "error", err.Error())
		}
		elapsed := span.End(string(status))
		if elapsed == 0 {
			elapsed = time.Since(start)
		}
		emit(p.progress, name, "", status, err, elapsed)
	}()

	if p.build.Finished() {
		return diag.Errorf(diag.UseSubmitAfterEnd, diag.Location{Module: name}, "module submitted after finish")
	}
	if err := p.validateName(name); err != nil {
		return err
	}

	var key cache.Digest
	if p.cache != nil {
		key = cache.Key(name, data, p.salt)
		hit, err := p.replay(ctx, name, key)
		if err != nil {
			return err
		}
		if hit {
			status = StatusCached
			return nil
		}
	}

	parseStart := time.Now()
	c, err := classfile.Parse(data)
	p.timings.Add(PhaseParse, time.Since(parseStart))
	if err != nil {
		return diag.Wrap(classCode(err), diag.Location{Module: name}, err, "parse class file")
	}
	if c.Name != name {
		return diag.Errorf(diag.MalNameMismatch, diag.Location{Module: name}, "class file declares %s", c.Name)
	}

	local := diag.NewBag(0)
	m := &Module{Name: name, Class: c, Reporter: diag.BagReporter{Bag: local}}
	defer func() {
		for _, d := range local.Items() {
			p.reporter.Report(d.Code, d.Severity, d.Primary, d.Message, d.Notes)
		}
	}()

	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		stageStart := time.Now()
		err := stage.Transform(ctx, m)
		p.timings.Add(stage.Name(), time.Since(stageStart))
		if err != nil {
			emit(p.progress, name, stage.Name(), StatusError, err, 0)
			return err
		}
	}

	accessStart := time.Now()
	changed := m.Access.Apply(m.Class)
	p.timings.Add(PhaseAccess, time.Since(accessStart))
	trace.Pointf(tracer, trace.ScopeModule, "access", "%d flags widened", changed)

	writeStart := time.Now()
	outputs, err := serialize(m)
	if err != nil {
		return diag.Wrap(classCode(err), diag.Location{Module: name}, err, "write class file")
	}
	for _, out := range outputs {
		if err := p.output(out.Name, out.Data); err != nil {
			return diag.Wrap(diag.IOWriteOutput, diag.Location{Module: out.Name}, err, "write output")
		}
	}
	p.timings.Add(PhaseWrite, time.Since(writeStart))

	if err := p.record(name, m.Events, m.Applications, m.ObjectHolders); err != nil {
		return err
	}

	if p.cache != nil {
		entry := &cache.Entry{
			Module:       name,
			Outputs:      outputs,
			Scan:         m.Events,
			Applications: m.Applications,
			Holders:      m.ObjectHolders,
			Diagnostics:  local.Items(),
		}
		if err := p.cache.Put(key, entry); err != nil {
			diag.ReportWarning(p.reporter, diag.IOCache, diag.Location{Module: name}, "cache write failed: "+err.Error()).Emit()
		}
	}
	return nil
}

// classCode picks the malformed-input code for a classfile error.
func classCode(err error) diag.Code {
	switch {
	case errors.Is(err, classfile.ErrTooLarge):
		return diag.MalClassFileTooLarge
	case errors.Is(err, classfile.ErrConstantPool):
		return diag.MalConstantPool
	case errors.Is(err, classfile.ErrBootstrapMethods):
		return diag.MalBootstrapAttribute
	}
	return diag.MalClassFile
}

func serialize(m *Module) ([]cache.Output, error) {
	data, err := m.Class.Bytes()
	if err != nil {
		return nil, err
	}
	outputs := []cache.Output{{Name: m.Name, Data: data}}
	for _, shim := range m.Shims {
		b, err := shim.Class.Bytes()
		if err != nil {
			return nil, fmt.Errorf("shim %s: %w", shim.Name, err)
		}
		outputs = append(outputs, cache.Output{Name: shim.Name, Data: b})
	}
	return outputs, nil
}

// replay writes a cached result. It reports whether the cache had one.
func (p *Pipeline) replay(ctx context.Context, name string, key cache.Digest) (bool, error) {
	start := time.Now()
	var entry cache.Entry
	hit, err := p.cache.Get(key, &entry)
	p.timings.Add(PhaseCache, time.Since(start))
	if err != nil {
		diag.ReportWarning(p.reporter, diag.IOCache, diag.Location{Module: name}, "cache read failed: "+err.Error()).Emit()
		return false, nil
	}
	if !hit || entry.Module != name {
		return false, nil
	}
	trace.Point(trace.FromContext(ctx), trace.ScopeModule, "cache", "hit "+key.String()[:12])
	for _, out := range entry.Outputs {
		if err := p.output(out.Name, out.Data); err != nil {
			return true, diag.Wrap(diag.IOWriteOutput, diag.Location{Module: out.Name}, err, "write output")
		}
	}
	for _, d := range entry.Diagnostics {
		p.reporter.Report(d.Code, d.Severity, d.Primary, d.Message, d.Notes)
	}
	return true, p.record(name, entry.Scan, entry.Applications, entry.Holders)
}

// record folds a module's facts into the build context and the checker.
func (p *Pipeline) record(name string, scan *event.Scan, apps []ApplicationDescriptor, holders []ObjectHolderEntry) error {
	if err := p.build.fold(name, scan, apps, holders, p.reporter); err != nil {
		return err
	}
	if scan == nil {
		return nil
	}
	return p.checker.Record(name, scan.Subscribers(), scan.Super, scan.Interfaces)
}

// Finish emits one initializer per application, primary first, writes their
// entrypoint names, runs the consistency check and returns the primary id.
// It may be called once.
func (p *Pipeline) Finish(ctx context.Context, entrypoints EntrypointFunc) (string, error) {
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeBuild, "finish", trace.CurrentSpan(ctx))
	start := time.Now()
	defer func() {
		span.End("")
		p.timings.Add(PhaseFinish, time.Since(start))
	}()

	facts, err := p.build.claim()
	if err != nil {
		return "", err
	}
	if len(facts.apps) == 0 {
		return "", diag.Errorf(diag.UseNoApplications, diag.Location{},
			"located no classes with an @Mod annotation, could not pick a primary mod")
	}
	primary := facts.apps[0]
	trace.Pointf(tracer, trace.ScopeBuild, "primary", "%s (%s)", primary.ID, primary.Class)

	plans := p.plan(facts)
	type generated struct {
		name, entrypoint string
		data             []byte
	}
	out := make([]generated, 0, len(plans))
	for _, plan := range plans {
		c, err := initializer.Generate(plan)
		if err != nil {
			return "", diag.Wrap(diag.MalClassFile, diag.Location{Module: plan.App.Class}, err, "generate initializer")
		}
		data, err := c.Bytes()
		if err != nil {
			return "", diag.Wrap(classCode(err), diag.Location{Module: c.Name}, err, "write initializer")
		}
		out = append(out, generated{name: c.Name, entrypoint: initializer.EntrypointName(plan.App.Class), data: data})
	}
	for _, g := range out {
		if entrypoints != nil {
			if err := entrypoints(g.entrypoint); err != nil {
				return "", diag.Wrap(diag.IOWriteOutput, diag.Location{Module: g.name}, err, "write entrypoint")
			}
		}
		if err := p.output(g.name, g.data); err != nil {
			return "", diag.Wrap(diag.IOWriteOutput, diag.Location{Module: g.name}, err, "write initializer")
		}
		emit(p.progress, g.name, PhaseFinish, StatusDone, nil, 0)
	}

	findings, err := p.checker.Check(p.reporter)
	if err != nil {
		return "", err
	}
	trace.Pointf(tracer, trace.ScopeBuild, "check", "%d subscription findings", findings)
	return primary.ID, nil
}

// plan distributes facts over the applications. Registrars and object
// holders go to the primary; a group goes to the application its modid
// names, or to the primary when it names none or an unknown one.
func (p *Pipeline) plan(facts buildFacts) []initializer.Plan {
	plans := make([]initializer.Plan, len(facts.apps))
	byID := make(map[string]int, len(facts.apps))
	for i, app := range facts.apps {
		plans[i].App = app
		byID[app.ID] = i
	}
	plans[0].Registrars = facts.registrars
	plans[0].Holders = facts.holders
	for _, g := range facts.groups {
		target := 0
		if g.group.AppID != "" {
			if i, ok := byID[g.group.AppID]; ok {
				target = i
			} else {
				diag.ReportWarning(p.reporter, diag.ChkUnknownGroupTarget, diag.Location{Module: g.group.Owner},
					"@EventBusSubscriber names unknown modid "+g.group.AppID+", registering with "+facts.apps[0].ID).Emit()
			}
		}
		plans[target].Groups = append(plans[target].Groups, initializer.Group{
			Owner:     g.group.Owner,
			Buses:     g.group.Buses,
			Interface: g.itf,
		})
	}
	return plans
}
