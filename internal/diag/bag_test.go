package diag

import (
	"sync"
	"testing"
)

func TestBagLimitAndSeverity(t *testing.T) {
	b := NewBag(2)
	if !b.Add(NewWarning(SigWildcardGeneric, Location{Module: "a/A"}, "w")) {
		t.Fatal("first add must succeed")
	}
	if !b.Add(New(SevError, MalClassFile, Location{Module: "a/B"}, "e")) {
		t.Fatal("second add must succeed")
	}
	if b.Add(NewWarning(SigWildcardGeneric, Location{Module: "a/C"}, "w")) {
		t.Fatal("limit must reject third add")
	}
	if b.Count(SevError) != 1 || b.Count(SevWarning) != 1 || b.Count(SevInfo) != 0 {
		t.Fatal("expected one error and one warning")
	}
	if b.Dropped() != 1 {
		t.Fatalf("Dropped = %d, want 1", b.Dropped())
	}
}

func TestBagConcurrentAddAndSort(t *testing.T) {
	b := NewBag(100)
	r := BagReporter{Bag: b}
	var wg sync.WaitGroup
	for _, mod := range []string{"c/C", "a/A", "b/B"} {
		wg.Add(1)
		go func(mod string) {
			defer wg.Done()
			ReportWarning(r, ChkOverriddenSubscriber, Location{Module: mod}, "dup").Emit()
		}(mod)
	}
	wg.Wait()
	b.Sort()
	items := b.Items()
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0].Primary.Module != "a/A" || items[2].Primary.Module != "c/C" {
		t.Fatalf("unexpected order: %+v", items)
	}
}

func TestDedupReporter(t *testing.T) {
	b := NewBag(10)
	r := NewDedupReporter(BagReporter{Bag: b})
	loc := MemberLocation("a/A", "on", "(La/E;)V")
	for i := 0; i < 3; i++ {
		r.Report(SigWildcardGeneric, SevWarning, loc, "wildcard", nil)
	}
	r.Report(SigWildcardGeneric, SevWarning, loc, "other", nil)
	if b.Len() != 2 {
		t.Fatalf("expected 2 unique diagnostics, got %d", b.Len())
	}
}

func TestPendingEmitsOnce(t *testing.T) {
	b := NewBag(10)
	rb := ReportWarning(BagReporter{Bag: b}, ChkGroupWithoutStatic, Location{Module: "a/A"}, "dropped").
		WithNote(Location{Module: "a/A"}, "no static subscribers")
	rb.Emit()
	rb.Emit()
	if b.Len() != 1 {
		t.Fatalf("expected one emit, got %d", b.Len())
	}
	if len(b.Items()[0].Notes) != 1 {
		t.Fatal("note lost")
	}
}

func TestWithNoteDoesNotShareNotes(t *testing.T) {
	base := NewWarning(ChkOverriddenSubscriber, Location{Module: "a/B"}, "overrides").
		WithNote(Location{Module: "a/A"}, "first")
	left := base.WithNote(Location{Module: "a/A"}, "left")
	right := base.WithNote(Location{Module: "a/A"}, "right")
	if len(base.Notes) != 1 || left.Notes[1].Msg != "left" || right.Notes[1].Msg != "right" {
		t.Fatalf("notes aliased: %+v %+v", left.Notes, right.Notes)
	}
}
