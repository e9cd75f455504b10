package event_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/valoeghese/patchwork-patcher/internal/classfile"
	"github.com/valoeghese/patchwork-patcher/internal/diag"
	"github.com/valoeghese/patchwork-patcher/internal/event"
)

func sub(owner, name string, access uint16) event.Subscriber {
	return event.Subscriber{Owner: owner, Method: name, Descriptor: tick, Access: access, EventType: "net/example/TickEvent"}
}

func TestCheckerFindsOverridesInAnyOrder(t *testing.T) {
	records := []struct {
		class, super string
		itfs         []string
		subs         []event.Subscriber
	}{
		{"a/Child", "a/Middle", nil, []event.Subscriber{sub("a/Child", "onTick", pub)}},
		{"a/Middle", "a/Base", []string{"a/Listener"}, nil},
		{"a/Base", "java/lang/Object", nil, []event.Subscriber{sub("a/Base", "onTick", pub)}},
		{"a/Listener", "java/lang/Object", nil, []event.Subscriber{sub("a/Listener", "onTick", pub|classfile.AccAbstract)}},
	}
	for _, reverse := range []bool{false, true} {
		ch := event.NewChecker()
		for i := range records {
			r := records[i]
			if reverse {
				r = records[len(records)-1-i]
			}
			if err := ch.Record(r.class, r.subs, r.super, r.itfs); err != nil {
				t.Fatal(err)
			}
		}
		bag := diag.NewBag(10)
		n, err := ch.Check(diag.BagReporter{Bag: bag})
		if err != nil {
			t.Fatal(err)
		}
		if n != 2 || bag.Len() != 2 {
			t.Fatalf("reverse=%v: %d findings, %d diagnostics", reverse, n, bag.Len())
		}
		for _, d := range bag.Items() {
			if d.Code != diag.ChkOverriddenSubscriber || d.Severity != diag.SevWarning {
				t.Errorf("unexpected diagnostic %+v", d)
			}
			if d.Primary.Module != "a/Child" || len(d.Notes) != 1 {
				t.Errorf("diagnostic location %+v", d)
			}
		}
	}
}

func TestCheckerStaticShadowsInstance(t *testing.T) {
	ch := event.NewChecker()
	_ = ch.Record("b/Base", []event.Subscriber{sub("b/Base", "onTick", pub)}, "java/lang/Object", nil)
	_ = ch.Record("b/Sub", []event.Subscriber{sub("b/Sub", "onTick", static)}, "b/Base", nil)
	bag := diag.NewBag(10)
	n, err := ch.Check(diag.BagReporter{Bag: bag})
	if err != nil || n != 1 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	if bag.Items()[0].Code != diag.ChkStaticShadowsInstance {
		t.Fatalf("code %v", bag.Items()[0].Code)
	}
}

func TestCheckerIgnoresDifferentSignaturesAndCycles(t *testing.T) {
	ch := event.NewChecker()
	other := sub("c/A", "onTick", pub)
	other.Descriptor = "(Lnet/example/Other;)V"
	_ = ch.Record("c/A", []event.Subscriber{other}, "c/B", nil)
	_ = ch.Record("c/B", []event.Subscriber{sub("c/B", "onTick", pub)}, "c/A", nil)
	n, err := ch.Check(nil)
	if err != nil || n != 0 {
		t.Fatalf("n=%d err=%v", n, err)
	}
}

func TestCheckerRunsOnce(t *testing.T) {
	ch := event.NewChecker()
	var wg sync.WaitGroup
	for _, name := range []string{"d/A", "d/B", "d/C", "d/D"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			_ = ch.Record(name, nil, "java/lang/Object", nil)
		}(name)
	}
	wg.Wait()
	if ch.Len() != 4 {
		t.Fatalf("recorded %d classes", ch.Len())
	}
	if _, err := ch.Check(nil); err != nil {
		t.Fatal(err)
	}
	if _, err := ch.Check(nil); !errors.Is(err, diag.ErrUsage) {
		t.Fatalf("second check: %v", err)
	}
	if err := ch.Record("d/E", nil, "", nil); !errors.Is(err, diag.ErrUsage) {
		t.Fatalf("record after check: %v", err)
	}
}
