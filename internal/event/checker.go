package event

import (
	"fmt"
	"sort"
	"sync"

	"github.com/valoeghese/patchwork-patcher/internal/diag"
)

type checkedClass struct {
	name     string
	supers   []string
	static   []Subscriber
	instance []Subscriber
}

// Checker finds subscriber signatures that collide across inheritance edges.
// Record may be called concurrently and in any order; Check runs once after
// every class has been recorded.
type Checker struct {
	mu      sync.Mutex
	classes map[string]*checkedClass
	checked bool
}

// NewChecker returns an empty checker.
func NewChecker() *Checker {
	return &Checker{classes: make(map[string]*checkedClass)}
}

// Record adds a scanned class with its subscribers and direct supertypes.
func (c *Checker) Record(class string, subs []Subscriber, super string, interfaces []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.checked {
		return diag.Errorf(diag.UseCheckerReentered, diag.Location{Module: class}, "class recorded after the consistency check ran")
	}
	cc := &checkedClass{name: class}
	if super != "" {
		cc.supers = append(cc.supers, super)
	}
	cc.supers = append(cc.supers, interfaces...)
	for _, s := range subs {
		if s.IsStatic() {
			cc.static = append(cc.static, s)
		} else {
			cc.instance = append(cc.instance, s)
		}
	}
	c.classes[class] = cc
	return nil
}

// Len returns the number of recorded classes.
func (c *Checker) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.classes)
}

type signature struct{ name, desc string }

// Check reports collisions to rep and returns how many it found. It may be
// called once.
func (c *Checker) Check(rep diag.Reporter) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.checked {
		return 0, diag.Errorf(diag.UseCheckerReentered, diag.Location{}, "consistency check already ran")
	}
	c.checked = true
	if rep == nil {
		rep = diag.NopReporter{}
	}

	names := make([]string, 0, len(c.classes))
	for name := range c.classes {
		names = append(names, name)
	}
	sort.Strings(names)

	findings := 0
	for _, name := range names {
		cc := c.classes[name]
		if len(cc.static) == 0 && len(cc.instance) == 0 {
			continue
		}
		for _, anc := range c.ancestors(cc) {
			inherited := make(map[signature]Subscriber, len(anc.instance))
			for _, s := range anc.instance {
				inherited[signature{s.Method, s.Descriptor}] = s
			}
			if len(inherited) == 0 {
				continue
			}
			for _, s := range cc.instance {
				base, ok := inherited[signature{s.Method, s.Descriptor}]
				if !ok {
					continue
				}
				findings++
				diag.ReportWarning(rep, diag.ChkOverriddenSubscriber, diag.MemberLocation(cc.name, s.Method, s.Descriptor),
					fmt.Sprintf("overrides subscriber %s.%s, both will be registered", anc.name, base.Method)).
					WithNote(diag.MemberLocation(anc.name, base.Method, base.Descriptor), "overridden subscriber").
					Emit()
			}
			for _, s := range cc.static {
				base, ok := inherited[signature{s.Method, s.Descriptor}]
				if !ok {
					continue
				}
				findings++
				diag.ReportWarning(rep, diag.ChkStaticShadowsInstance, diag.MemberLocation(cc.name, s.Method, s.Descriptor),
					fmt.Sprintf("static subscriber has the signature of instance subscriber %s.%s", anc.name, base.Method)).
					WithNote(diag.MemberLocation(anc.name, base.Method, base.Descriptor), "instance subscriber").
					Emit()
			}
		}
	}
	return findings, nil
}

// ancestors walks recorded supertypes breadth-first. Unrecorded names are
// skipped but not traversed; cycles terminate.
func (c *Checker) ancestors(cc *checkedClass) []*checkedClass {
	seen := map[string]bool{cc.name: true}
	queue := append([]string(nil), cc.supers...)
	var out []*checkedClass
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if seen[name] {
			continue
		}
		seen[name] = true
		anc, ok := c.classes[name]
		if !ok {
			continue
		}
		out = append(out, anc)
		queue = append(queue, anc.supers...)
	}
	return out
}
