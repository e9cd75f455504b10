package event

import (
	"context"
	"errors"
	"fmt"

	"github.com/valoeghese/patchwork-patcher/internal/access"
	"github.com/valoeghese/patchwork-patcher/internal/classfile"
	"github.com/valoeghese/patchwork-patcher/internal/descriptor"
	"github.com/valoeghese/patchwork-patcher/internal/diag"
	"github.com/valoeghese/patchwork-patcher/internal/trace"
)

// Rewriter collects subscribers of a class and synthesizes its registrars.
// It holds no per-class state and is safe for concurrent use.
type Rewriter struct{}

// NewRewriter returns a Rewriter.
func NewRewriter() *Rewriter { return &Rewriter{} }

// Rewrite scans c, records access widening in at, appends registrar methods
// to c and returns what it found. Recoverable findings go to rep. Errors are
// *diag.Error values and leave c in an unspecified state.
func (rw *Rewriter) Rewrite(ctx context.Context, c *classfile.Class, at *access.ClassTransformations, rep diag.Reporter) (*Scan, error) {
	if rep == nil {
		rep = diag.NopReporter{}
	}
	tracer := trace.FromContext(ctx)
	loc := diag.Location{Module: c.Name}

	for _, m := range c.Methods {
		if m.Name == StaticRegistrarName || m.Name == InstanceRegistrarName {
			return nil, diag.Errorf(diag.MalReservedMethodName, diag.MemberLocation(c.Name, m.Name, m.Descriptor),
				"class already contains a method named %s, this name is reserved", m.Name)
		}
	}
	if c.IsInterface() && c.IsFinal() {
		return nil, diag.Errorf(diag.MalFinalInterface, loc, "interface is declared final")
	}

	scan := &Scan{
		Owner:      c.Name,
		Super:      c.Super,
		Interfaces: c.Interfaces,
		Interface:  c.IsInterface(),
	}

	group, err := readGroup(c)
	if err != nil {
		return nil, err
	}
	scan.Group = group

	var static, instance subscriberSet
	for _, m := range c.Methods {
		sub, ok, err := rw.collect(c, m, rep, tracer)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		set := &instance
		if sub.IsStatic() {
			set = &static
		}
		if set.add(sub) {
			at.SetClass(access.MakePublic)
			at.AddMethod(m.Name, m.Descriptor, access.MakePublic)
			trace.Pointf(tracer, trace.ScopeMember, "subscriber", "%s %s -> %s", m.Name, m.Descriptor, sub.EventType)
		}
	}
	scan.Static = static.items
	scan.Instance = instance.items

	if len(scan.Static) == 0 && len(scan.Instance) == 0 {
		return scan, nil
	}
	if c.Major < classfile.VersionJava7 {
		return nil, diag.Errorf(diag.MalClassFile, loc,
			"class file version %d.%d predates invokedynamic", c.Major, c.Minor)
	}
	if len(scan.Static) > 0 {
		if err := emitStaticRegistrar(c, scan.Static); err != nil {
			return nil, diag.Wrap(emitCode(err), diag.MemberLocation(c.Name, StaticRegistrarName, StaticRegistrarDesc), err, "emit static registrar")
		}
	}
	if len(scan.Instance) > 0 {
		if err := emitInstanceRegistrar(c, scan.Instance); err != nil {
			return nil, diag.Wrap(emitCode(err), diag.MemberLocation(c.Name, InstanceRegistrarName, InstanceRegistrarDesc(c.Name)), err, "emit instance registrar")
		}
	}
	trace.Pointf(tracer, trace.ScopeModule, "registrars", "%d static, %d instance", len(scan.Static), len(scan.Instance))
	return scan, nil
}

// emitCode classifies a registrar emission failure.
func emitCode(err error) diag.Code {
	switch {
	case errors.Is(err, classfile.ErrTooLarge):
		return diag.MalClassFileTooLarge
	case errors.Is(err, classfile.ErrBootstrapMethods):
		return diag.MalBootstrapAttribute
	case errors.Is(err, classfile.ErrConstantPool):
		return diag.MalConstantPool
	}
	return diag.MalClassFile
}

// collect validates one method. ok is false when it is not a subscriber.
func (rw *Rewriter) collect(c *classfile.Class, m *classfile.Member, rep diag.Reporter, tracer trace.Tracer) (Subscriber, bool, error) {
	loc := diag.MemberLocation(c.Name, m.Name, m.Descriptor)
	ann, err := c.FindAnnotation(m.Attributes, SubscribeEventDesc)
	if err != nil {
		return Subscriber{}, false, diag.Wrap(diag.MalAnnotation, loc, err, "decode annotations")
	}
	if ann == nil {
		return Subscriber{}, false, nil
	}
	if m.IsPrivate() {
		return Subscriber{}, false, diag.Errorf(diag.ShpPrivateSubscriber, loc,
			"methods marked with @SubscribeEvent must not be private, but %s has private access", m.Name)
	}
	sig, _, err := c.Signature(m)
	if err != nil {
		return Subscriber{}, false, diag.Wrap(diag.MalClassFile, loc, err, "read signature")
	}
	res, err := descriptor.Parse(m.Descriptor, sig)
	switch {
	case errors.Is(err, descriptor.ErrNoArgument):
		return Subscriber{}, false, diag.Wrap(diag.ShpNoArgument, loc, err, "methods marked with @SubscribeEvent")
	case errors.Is(err, descriptor.ErrTooManyArguments):
		return Subscriber{}, false, diag.Wrap(diag.ShpTooManyArguments, loc, err, "methods marked with @SubscribeEvent")
	case err != nil:
		return Subscriber{}, false, diag.Wrap(diag.ShpBadDescriptor, loc, err, "")
	}
	switch res.Issue {
	case descriptor.IssueWildcard:
		diag.ReportWarning(rep, diag.SigWildcardGeneric, loc,
			fmt.Sprintf("wildcard type argument %s on %s, generic type is unknown", res.Detail, res.EventType)).Emit()
		trace.Pointf(tracer, trace.ScopeMember, "generic", "wildcard %s in %s", res.Detail, sig)
	case descriptor.IssueMultiple:
		diag.ReportWarning(rep, diag.SigMultipleGenerics, loc,
			fmt.Sprintf("generic events may only have one type parameter, but %s uses %s", res.EventType, sig)).Emit()
		trace.Pointf(tracer, trace.ScopeMember, "generic", "multiple type arguments in %s", sig)
	}
	return Subscriber{
		Owner:          c.Name,
		Method:         m.Name,
		Descriptor:     m.Descriptor,
		Access:         m.Access,
		EventType:      res.EventType,
		Generic:        res.Generic,
		HasReturnValue: res.HasReturnValue,
	}, true, nil
}

// readGroup decodes @Mod.EventBusSubscriber on the class.
func readGroup(c *classfile.Class) (*SubscriberGroup, error) {
	loc := diag.Location{Module: c.Name}
	ann, err := c.FindAnnotation(c.Attributes, EventBusSubscriber)
	if err != nil {
		return nil, diag.Wrap(diag.MalAnnotation, loc, err, "decode class annotations")
	}
	if ann == nil {
		return nil, nil
	}
	g := &SubscriberGroup{Owner: c.Name}
	if v, ok := ann.Element("modid"); ok {
		if v.Tag != 's' {
			return nil, diag.Errorf(diag.ShpBadGroupAnnotation, loc, "modid must be a string, got tag %q", v.Tag)
		}
		g.AppID = v.String
	}
	if v, ok := ann.Element("bus"); ok {
		values := []classfile.ElementValue{v}
		if v.Tag == '[' {
			values = v.Array
		}
		for _, ev := range values {
			if ev.Tag != 'e' {
				return nil, diag.Errorf(diag.ShpBadGroupAnnotation, loc, "bus must be an enum constant, got tag %q", ev.Tag)
			}
			bus, err := ParseBus(ev.EnumName)
			if err != nil {
				return nil, diag.Wrap(diag.ShpBadGroupAnnotation, loc, err, "")
			}
			g.Buses = append(g.Buses, bus)
		}
	}
	if len(g.Buses) == 0 {
		g.Buses = []Bus{BusForge}
	}
	return g, nil
}
