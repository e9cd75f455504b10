package pipeline

import (
	"sort"
	"sync"

	"github.com/valoeghese/patchwork-patcher/internal/diag"
	"github.com/valoeghese/patchwork-patcher/internal/event"
	"github.com/valoeghese/patchwork-patcher/internal/initializer"
)

// BuildContext holds the facts gathered across every submitted module. It is
// written by Submit and read and cleared once by Finish.
type BuildContext struct {
	mu         sync.Mutex
	finished   bool
	registrars map[string]*initializer.Registrar
	groups     []groupFact
	apps       []ApplicationDescriptor
	holders    []ObjectHolderEntry
}

type groupFact struct {
	group event.SubscriberGroup
	itf   bool
}

func newBuildContext() *BuildContext {
	return &BuildContext{registrars: make(map[string]*initializer.Registrar)}
}

// Finished reports whether Finish has claimed the context.
func (b *BuildContext) Finished() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.finished
}

// fold records one module's facts. Invalid groups are dropped with a
// warning to rep.
func (b *BuildContext) fold(module string, scan *event.Scan, apps []ApplicationDescriptor, holders []ObjectHolderEntry, rep diag.Reporter) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.finished {
		return diag.Errorf(diag.UseSubmitAfterEnd, diag.Location{Module: module}, "module submitted after finish")
	}
	if scan != nil {
		if len(scan.Static) > 0 || len(scan.Instance) > 0 {
			r := b.registrars[scan.Owner]
			if r == nil {
				r = &initializer.Registrar{Class: scan.Owner, Interface: scan.Interface}
				b.registrars[scan.Owner] = r
			}
			r.Static = r.Static || len(scan.Static) > 0
			r.Instance = r.Instance || len(scan.Instance) > 0
		}
		if scan.Group != nil {
			if scan.GroupValid() {
				b.groups = append(b.groups, groupFact{group: *scan.Group, itf: scan.Interface})
			} else {
				diag.ReportWarning(rep, diag.ChkGroupWithoutStatic, diag.Location{Module: module},
					"ignoring the @EventBusSubscriber annotation because the class has no static methods with @SubscribeEvent").Emit()
			}
		}
	}
	for _, app := range apps {
		dup := false
		for _, known := range b.apps {
			if known.ID == app.ID {
				dup = true
				diag.ReportWarning(rep, diag.ChkDuplicateApplication, diag.Location{Module: module},
					"application id "+app.ID+" is already declared by "+known.Class).Emit()
				break
			}
		}
		if !dup {
			b.apps = append(b.apps, app)
		}
	}
	b.holders = append(b.holders, holders...)
	return nil
}

// buildFacts is the state Finish consumes.
type buildFacts struct {
	registrars []initializer.Registrar
	groups     []groupFact
	apps       []ApplicationDescriptor
	holders    []ObjectHolderEntry
}

// claim marks the context finished and returns and clears its facts.
func (b *BuildContext) claim() (buildFacts, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.finished {
		return buildFacts{}, diag.Errorf(diag.UseAlreadyFinished, diag.Location{}, "already finished")
	}
	b.finished = true

	facts := buildFacts{
		groups:  b.groups,
		apps:    b.apps,
		holders: b.holders,
	}
	facts.registrars = make([]initializer.Registrar, 0, len(b.registrars))
	for _, r := range b.registrars {
		facts.registrars = append(facts.registrars, *r)
	}
	sort.Slice(facts.registrars, func(i, j int) bool { return facts.registrars[i].Class < facts.registrars[j].Class })
	sort.SliceStable(facts.groups, func(i, j int) bool { return facts.groups[i].group.Owner < facts.groups[j].group.Owner })
	sort.SliceStable(facts.holders, func(i, j int) bool { return facts.holders[i].ShimName < facts.holders[j].ShimName })

	b.registrars = make(map[string]*initializer.Registrar)
	b.groups = nil
	b.apps = nil
	b.holders = nil
	return facts, nil
}
