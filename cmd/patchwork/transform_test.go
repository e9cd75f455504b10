package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/valoeghese/patchwork-patcher/internal/archive"
	"github.com/valoeghese/patchwork-patcher/internal/classfile"
	"github.com/valoeghese/patchwork-patcher/internal/diag"
	"github.com/valoeghese/patchwork-patcher/internal/initializer"
	"github.com/valoeghese/patchwork-patcher/internal/pipeline"
	"github.com/valoeghese/patchwork-patcher/internal/testkit"
)

func TestDefaultOutput(t *testing.T) {
	tests := map[string]string{
		"mods/example.jar": filepath.Clean("mods/example-patched.jar"),
		"build/classes/":   filepath.Clean("build/classes-patched"),
		"lib.ZIP":          "lib-patched.ZIP",
	}
	for in, want := range tests {
		if got := defaultOutput(in); got != want {
			t.Errorf("defaultOutput(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSignatureFile(t *testing.T) {
	for name, want := range map[string]bool{
		"META-INF/MOD.SF":          true,
		"META-INF/MOD.RSA":         true,
		"META-INF/MANIFEST.MF":     false,
		"META-INF/services/x.SF":   false,
		"assets/example/lang.json": false,
	} {
		if got := signatureFile(name); got != want {
			t.Errorf("signatureFile(%q) = %v", name, got)
		}
	}
}

func TestReadUIMode(t *testing.T) {
	for in, want := range map[string]string{"": "auto", "AUTO": "auto", " on ": "on", "off": "off"} {
		got, err := readUIMode(in)
		if err != nil || got != want {
			t.Errorf("readUIMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := readUIMode("maybe"); err == nil {
		t.Error("expected error for invalid mode")
	}
}

func TestPrintDiagnostics(t *testing.T) {
	orig := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = orig })

	items := []diag.Diagnostic{
		diag.New(diag.SevError, diag.ShpPrivateSubscriber, diag.MemberLocation("com/a/A", "on", "(Lx;)V"), "subscriber must not be private"),
		diag.NewWarning(diag.ChkOverriddenSubscriber, diag.MemberLocation("com/a/B", "on", "(Lx;)V"), "overrides").
			WithNote(diag.MemberLocation("com/a/A", "on", "(Lx;)V"), "overridden subscriber"),
	}
	var buf bytes.Buffer
	printDiagnostics(&buf, items, false)
	out := buf.String()
	if !strings.Contains(out, "ERROR[SHP2003] com/a/A.on (Lx;)V: subscriber must not be private") {
		t.Fatalf("missing error line:\n%s", out)
	}
	if !strings.Contains(out, "  note: com/a/A.on (Lx;)V: overridden subscriber") {
		t.Fatalf("missing note:\n%s", out)
	}

	bag := diag.NewBag(1)
	for _, d := range items {
		bag.Add(d)
	}
	buf.Reset()
	printSummary(&buf, bag)
	if got := buf.String(); got != "1 error(s), 0 warning(s) (1 more not shown)\n" {
		t.Fatalf("summary = %q", got)
	}

	buf.Reset()
	printDiagnostics(&buf, items, true)
	if strings.Contains(buf.String(), "WARNING") {
		t.Fatalf("quiet output kept warnings:\n%s", buf.String())
	}
}

func TestTransformRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "in")
	w, err := archive.Create(inPath)
	if err != nil {
		t.Fatal(err)
	}
	fixtures := map[string]*testkit.ClassBuilder{
		"com/example/Mod": testkit.NewClass("com/example/Mod", classfile.AccPublic).Mod("example"),
		"com/example/Handlers": testkit.NewClass("com/example/Handlers", classfile.AccPublic).
			Subscriber(classfile.AccPublic|classfile.AccStatic, "onTick", "(Lnet/example/TickEvent;)V"),
		"com/example/Broken": testkit.NewClass("com/example/Broken", classfile.AccPublic).
			Subscriber(classfile.AccPublic|classfile.AccStatic, "onNothing", "()V"),
	}
	for name, b := range fixtures {
		data, err := b.Bytes()
		if err != nil {
			t.Fatal(err)
		}
		if err := w.WriteClass(name, data); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	in, err := archive.Read(inPath)
	if err != nil {
		t.Fatal(err)
	}
	outPath := filepath.Join(dir, "out.jar")
	out, err := archive.Create(outPath)
	if err != nil {
		t.Fatal(err)
	}
	bag := diag.NewBag(100)
	run := &transformRun{classes: in.Classes, jobs: 2, bag: bag}
	err = run.execute(context.Background(), pipeline.Options{Output: out.WriteClass, Reporter: diag.BagReporter{Bag: bag}})
	if closeErr := out.Close(); closeErr != nil {
		t.Fatal(closeErr)
	}
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if run.primary != "example" || run.failed.Load() != 1 {
		t.Fatalf("primary=%q failed=%d", run.primary, run.failed.Load())
	}
	if len(run.entrypoints) != 1 || run.entrypoints[0] != initializer.EntrypointName("com/example/Mod") {
		t.Fatalf("entrypoints = %v", run.entrypoints)
	}
	found := false
	for _, d := range bag.Items() {
		if d.Code == diag.ShpNoArgument && d.Primary.Module == "com/example/Broken" {
			found = true
		}
	}
	if !found {
		t.Fatalf("module failure not recorded: %+v", bag.Items())
	}

	result, err := archive.Read(outPath)
	if err != nil {
		t.Fatal(err)
	}
	names := make([]string, 0, len(result.Classes))
	for _, c := range result.Classes {
		names = append(names, c.Name)
	}
	want := []string{"com/example/Handlers", "com/example/Mod", initializer.Name("com/example/Mod")}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("output classes = %v, want %v", names, want)
	}
}
