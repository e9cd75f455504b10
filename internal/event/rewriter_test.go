package event_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/valoeghese/patchwork-patcher/internal/access"
	"github.com/valoeghese/patchwork-patcher/internal/classfile"
	"github.com/valoeghese/patchwork-patcher/internal/diag"
	"github.com/valoeghese/patchwork-patcher/internal/event"
	"github.com/valoeghese/patchwork-patcher/internal/testkit"
)

const (
	pub    = classfile.AccPublic
	static = classfile.AccPublic | classfile.AccStatic
	tick   = "(Lnet/example/TickEvent;)V"
)

func rewrite(t *testing.T, b *testkit.ClassBuilder) (*classfile.Class, *event.Scan, *access.ClassTransformations, *diag.Bag, error) {
	t.Helper()
	c, err := b.Class()
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	var at access.ClassTransformations
	bag := diag.NewBag(100)
	scan, err := event.NewRewriter().Rewrite(context.Background(), c, &at, diag.BagReporter{Bag: bag})
	return c, scan, &at, bag, err
}

func mustRewrite(t *testing.T, b *testkit.ClassBuilder) (*classfile.Class, *event.Scan, *access.ClassTransformations, *diag.Bag) {
	t.Helper()
	c, scan, at, bag, err := rewrite(t, b)
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	return c, scan, at, bag
}

func TestStaticRegistrarHasOneRegistrationPerSubscriber(t *testing.T) {
	for _, n := range []int{1, 3, 17} {
		b := testkit.NewClass("com/example/Handlers", pub)
		for i := 0; i < n; i++ {
			b.Subscriber(static, fmt.Sprintf("on%d", i), tick)
		}
		c, scan, _, _ := mustRewrite(t, b)
		if len(scan.Static) != n || len(scan.Instance) != 0 {
			t.Fatalf("n=%d: scan has %d static, %d instance", n, len(scan.Static), len(scan.Instance))
		}
		shape, err := testkit.InspectMethod(c, event.StaticRegistrarName, event.StaticRegistrarDesc)
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		if got := shape.CountCalls(event.EventBusClass, "addListener"); got != n {
			t.Errorf("n=%d: %d addListener calls", n, got)
		}
		if len(shape.Dynamic) != n {
			t.Errorf("n=%d: %d invokedynamic sites", n, len(shape.Dynamic))
		}
		if shape.MaxStack != 2 || shape.MaxLocals != 1 {
			t.Errorf("n=%d: max stack/locals %d/%d", n, shape.MaxStack, shape.MaxLocals)
		}
		if shape.Access != classfile.AccPublic|classfile.AccStatic {
			t.Errorf("n=%d: registrar access %#x", n, shape.Access)
		}
		for _, site := range shape.Dynamic {
			if site.Name != "accept" || site.Desc != "()Ljava/util/function/Consumer;" {
				t.Errorf("site %s%s", site.Name, site.Desc)
			}
			if site.TargetKind != classfile.RefInvokeStatic || site.Target.Owner != "com/example/Handlers" {
				t.Errorf("target %v kind %v", site.Target, site.TargetKind)
			}
			if site.Bootstrap.Owner != "java/lang/invoke/LambdaMetafactory" || site.Bootstrap.Name != "metafactory" {
				t.Errorf("bootstrap %v", site.Bootstrap)
			}
			if site.Erased != "(Ljava/lang/Object;)V" || site.Instantiated != tick {
				t.Errorf("method types %s %s", site.Erased, site.Instantiated)
			}
		}
		if c.Method(event.InstanceRegistrarName, event.InstanceRegistrarDesc(c.Name)) != nil {
			t.Errorf("n=%d: unexpected instance registrar", n)
		}
	}
}

func TestNoSubscribersNoRegistrars(t *testing.T) {
	b := testkit.NewClass("com/example/Plain", pub).
		Method(static, "helper", tick).
		Group("", "FORGE")
	c, scan, at, _ := mustRewrite(t, b)
	if len(c.MethodNamed(event.StaticRegistrarName)) != 0 || len(c.MethodNamed(event.InstanceRegistrarName)) != 0 {
		t.Fatal("registrar emitted for class without subscribers")
	}
	if !at.Empty() {
		t.Fatal("access requested for class without subscribers")
	}
	if scan.Group == nil || scan.GroupValid() {
		t.Fatalf("group should be captured but invalid: %+v", scan.Group)
	}
}

func TestShapeErrors(t *testing.T) {
	cases := []struct {
		name   string
		access uint16
		desc   string
		code   diag.Code
	}{
		{"noArgs", static, "()V", diag.ShpNoArgument},
		{"twoRefs", static, "(Lnet/A;Lnet/B;)V", diag.ShpTooManyArguments},
		{"primitive", pub, "(I)V", diag.ShpTooManyArguments},
		{"mixed", pub, "(Lnet/A;J)V", diag.ShpTooManyArguments},
		{"private", classfile.AccPrivate, tick, diag.ShpPrivateSubscriber},
	}
	for _, tc := range cases {
		b := testkit.NewClass("com/example/Bad", pub).
			Subscriber(static, "good", tick).
			Subscriber(tc.access, tc.name, tc.desc)
		_, _, _, _, err := rewrite(t, b)
		if err == nil {
			t.Errorf("%s: expected error", tc.name)
			continue
		}
		code, ok := diag.CodeOf(err)
		if !ok || code != tc.code {
			t.Errorf("%s: code %v, want %v (%v)", tc.name, code, tc.code, err)
		}
		var de *diag.Error
		if !errors.As(err, &de) || de.Loc.Module != "com/example/Bad" || de.Loc.Member != tc.name+" "+tc.desc {
			t.Errorf("%s: location %+v", tc.name, de)
		}
	}
}

func TestReservedNameAbortsWithoutSubscribers(t *testing.T) {
	for _, name := range []string{event.StaticRegistrarName, event.InstanceRegistrarName} {
		b := testkit.NewClass("com/example/Clash", pub).Method(static, name, "()V")
		_, _, _, _, err := rewrite(t, b)
		if code, _ := diag.CodeOf(err); code != diag.MalReservedMethodName {
			t.Errorf("%s: got %v", name, err)
		}
	}
}

func TestFinalInterfaceIsMalformed(t *testing.T) {
	b := testkit.NewInterface("com/example/Weird")
	c, err := b.Class()
	if err != nil {
		t.Fatal(err)
	}
	c.Access |= classfile.AccFinal
	_, _, _, _, err = rewrite(t, b)
	if code, _ := diag.CodeOf(err); code != diag.MalFinalInterface {
		t.Fatalf("got %v", err)
	}
}

func TestWildcardGenericDegrades(t *testing.T) {
	b := testkit.NewClass("com/example/Registry", pub).
		GenericSubscriber(static, "onRegister", "(Lnet/example/RegistryEvent;)V", "(Lnet/example/RegistryEvent<*>;)V").
		GenericSubscriber(static, "onBlocks", "(Lnet/example/GenericEvent;)V", "(Lnet/example/GenericEvent<Lnet/example/Block;>;)V")
	_, scan, _, bag := mustRewrite(t, b)
	if len(scan.Static) != 2 {
		t.Fatalf("expected both subscribers, got %d", len(scan.Static))
	}
	if !scan.Static[0].Generic.Unknown {
		t.Errorf("wildcard generic = %+v", scan.Static[0].Generic)
	}
	if scan.Static[1].Generic.Class != "net/example/Block" {
		t.Errorf("block generic = %+v", scan.Static[1].Generic)
	}
	items := bag.Items()
	if len(items) != 1 || items[0].Code != diag.SigWildcardGeneric || items[0].Severity != diag.SevWarning {
		t.Fatalf("diagnostics = %+v", items)
	}
}

func TestInstanceRegistrarSingleNullCheck(t *testing.T) {
	for _, n := range []int{1, 50} {
		b := testkit.NewClass("com/example/Listener", pub)
		for i := 0; i < n; i++ {
			b.Subscriber(pub, fmt.Sprintf("on%d", i), tick)
		}
		c, scan, _, _ := mustRewrite(t, b)
		if len(scan.Instance) != n {
			t.Fatalf("n=%d: %d instance subscribers", n, len(scan.Instance))
		}
		shape, err := testkit.InspectMethod(c, event.InstanceRegistrarName, event.InstanceRegistrarDesc(c.Name))
		if err != nil {
			t.Fatal(err)
		}
		if got := shape.CountCalls("java/util/Objects", "requireNonNull"); got != 1 {
			t.Errorf("n=%d: %d null checks", n, got)
		}
		if got := shape.Count(classfile.OpPop); got != 1 {
			t.Errorf("n=%d: %d pops", n, got)
		}
		if got := shape.CountCalls(event.EventBusClass, "addListener"); got != n {
			t.Errorf("n=%d: %d registrations", n, got)
		}
		if shape.MaxStack != 2 || shape.MaxLocals != 2 {
			t.Errorf("n=%d: max stack/locals %d/%d", n, shape.MaxStack, shape.MaxLocals)
		}
		for _, site := range shape.Dynamic {
			if site.Desc != "(Lcom/example/Listener;)Ljava/util/function/Consumer;" {
				t.Fatalf("site desc %s", site.Desc)
			}
		}
	}
}

func TestInstanceHandleKinds(t *testing.T) {
	cases := []struct {
		name    string
		builder *testkit.ClassBuilder
		kind    classfile.RefKind
		itf     bool
	}{
		{"virtual", testkit.NewClass("com/example/V", pub).Subscriber(pub, "on", tick), classfile.RefInvokeVirtual, false},
		{"finalClass", testkit.NewClass("com/example/F", pub|classfile.AccFinal).Subscriber(pub, "on", tick), classfile.RefInvokeSpecial, false},
		{"finalMethod", testkit.NewClass("com/example/M", pub).Subscriber(pub|classfile.AccFinal, "on", tick), classfile.RefInvokeSpecial, false},
		{"interface", testkit.NewInterface("com/example/I").Subscriber(pub|classfile.AccAbstract, "on", tick), classfile.RefInvokeInterface, true},
	}
	for _, tc := range cases {
		c, _, _, _ := mustRewrite(t, tc.builder)
		shape, err := testkit.InspectMethod(c, event.InstanceRegistrarName, event.InstanceRegistrarDesc(c.Name))
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if len(shape.Dynamic) != 1 {
			t.Fatalf("%s: %d sites", tc.name, len(shape.Dynamic))
		}
		site := shape.Dynamic[0]
		if site.TargetKind != tc.kind || site.Target.Interface != tc.itf {
			t.Errorf("%s: kind %v interface %v", tc.name, site.TargetKind, site.Target.Interface)
		}
	}
}

func TestAccessAndRoundTrip(t *testing.T) {
	b := testkit.NewClass("com/example/Mixed", 0).
		Subscriber(classfile.AccStatic, "onStatic", tick).
		Subscriber(classfile.AccProtected, "onInstance", "(Lnet/example/Other;)Z")
	c, scan, at, _ := mustRewrite(t, b)
	if at.Class() != access.MakePublic {
		t.Errorf("class strength %v", at.Class())
	}
	if at.Method("onStatic", tick) != access.MakePublic || at.Method("onInstance", "(Lnet/example/Other;)Z") != access.MakePublic {
		t.Error("subscriber methods not widened")
	}
	if !scan.Instance[0].HasReturnValue {
		t.Error("return value not recorded")
	}
	at.Apply(c)
	data, err := c.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := testkit.CheckRoundTrip(data)
	if err != nil {
		t.Fatal(err)
	}
	shape, err := testkit.InspectMethod(parsed, event.InstanceRegistrarName, event.InstanceRegistrarDesc(c.Name))
	if err != nil {
		t.Fatal(err)
	}
	if got := shape.Dynamic[0].Instantiated; got != "(Lnet/example/Other;)V" {
		t.Errorf("instantiated type %s", got)
	}
	if m := parsed.Method("onStatic", tick); m == nil || m.Access&classfile.AccPublic == 0 {
		t.Error("onStatic not public after apply")
	}
}

func TestGroupAnnotation(t *testing.T) {
	b := testkit.NewClass("com/example/Auto", pub).
		Group("examplemod", "MOD").
		Subscriber(static, "on", tick)
	_, scan, _, _ := mustRewrite(t, b)
	if !scan.GroupValid() {
		t.Fatal("group should be valid")
	}
	g := scan.Group
	if g.AppID != "examplemod" || len(g.Buses) != 1 || g.Buses[0] != event.BusMod {
		t.Fatalf("group = %+v", g)
	}

	b = testkit.NewClass("com/example/Both", pub).
		Group("", "FORGE", "MOD").
		Subscriber(static, "on", tick)
	_, scan, _, _ = mustRewrite(t, b)
	if len(scan.Group.Buses) != 2 || scan.Group.AppID != "" {
		t.Fatalf("group = %+v", scan.Group)
	}

	b = testkit.NewClass("com/example/Default", pub).Group("").Subscriber(static, "on", tick)
	_, scan, _, _ = mustRewrite(t, b)
	if len(scan.Group.Buses) != 1 || scan.Group.Buses[0] != event.BusForge {
		t.Fatalf("default bus = %+v", scan.Group.Buses)
	}
}

func TestOldClassVersionRejected(t *testing.T) {
	b := testkit.NewClass("com/example/Old", pub).Version(50).Subscriber(static, "on", tick)
	_, _, _, _, err := rewrite(t, b)
	if code, _ := diag.CodeOf(err); code != diag.MalClassFile {
		t.Fatalf("got %v", err)
	}
}
