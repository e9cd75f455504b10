package cache

import (
	"bytes"
	"testing"

	"github.com/valoeghese/patchwork-patcher/internal/descriptor"
	"github.com/valoeghese/patchwork-patcher/internal/diag"
	"github.com/valoeghese/patchwork-patcher/internal/event"
	"github.com/valoeghese/patchwork-patcher/internal/initializer"
)

func TestKeyDependsOnEveryPart(t *testing.T) {
	base := Key("a/B", []byte{1, 2, 3}, "v1")
	if base.IsZero() {
		t.Fatal("zero key")
	}
	variants := []Digest{
		Key("a/C", []byte{1, 2, 3}, "v1"),
		Key("a/B", []byte{1, 2, 4}, "v1"),
		Key("a/B", []byte{1, 2, 3}, "v2"),
		Key("a/B", []byte{1, 2, 3}),
		Key("a/B1", []byte{2, 3}, "v1"),
	}
	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d collides with base", i)
		}
	}
	if Key("a/B", []byte{1, 2, 3}, "v1") != base {
		t.Error("key is not deterministic")
	}
}

func TestDiskCachePutGet(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	key := Key("a/B", []byte("class"))
	var miss Entry
	if ok, err := c.Get(key, &miss); ok || err != nil {
		t.Fatalf("expected miss, got %v %v", ok, err)
	}
	in := &Entry{
		Module:  "a/B",
		Outputs: []Output{{Name: "a/B", Data: []byte{0xCA, 0xFE}}},
		Scan: &event.Scan{
			Owner: "a/B",
			Super: "java/lang/Object",
			Static: []event.Subscriber{{
				Owner: "a/B", Method: "on", Descriptor: "(La/E;)V", Access: 9,
				EventType: "a/E", Generic: descriptor.Generic{Unknown: true},
			}},
			Group: &event.SubscriberGroup{Owner: "a/B", Buses: []event.Bus{event.BusMod}, AppID: "m"},
		},
		Applications: []initializer.Application{{ID: "m", Class: "a/B"}},
		Diagnostics:  []diag.Diagnostic{diag.NewWarning(diag.SigWildcardGeneric, diag.Location{Module: "a/B"}, "w")},
	}
	if err := c.Put(key, in); err != nil {
		t.Fatal(err)
	}
	var out Entry
	ok, err := c.Get(key, &out)
	if err != nil || !ok {
		t.Fatalf("expected hit, got %v %v", ok, err)
	}
	if !bytes.Equal(out.Outputs[0].Data, in.Outputs[0].Data) {
		t.Error("output bytes differ")
	}
	if len(out.Scan.Static) != 1 || !out.Scan.Static[0].Generic.Unknown || out.Scan.Group.Buses[0] != event.BusMod {
		t.Errorf("scan = %+v", out.Scan)
	}
	if len(out.Diagnostics) != 1 || out.Diagnostics[0].Code != diag.SigWildcardGeneric {
		t.Errorf("diagnostics = %+v", out.Diagnostics)
	}

	if err := c.DropAll(); err != nil {
		t.Fatal(err)
	}
	if ok, _ := c.Get(key, &Entry{}); ok {
		t.Fatal("entry survived DropAll")
	}
}
