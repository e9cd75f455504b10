package archive

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeAll(t *testing.T, w Writer) {
	t.Helper()
	if err := w.WriteClass("com/example/Mod", []byte{0xCA, 0xFE}); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteClass("com/example/Handlers", []byte{1}); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteFile("META-INF/MANIFEST.MF", []byte("Manifest-Version: 1.0\n")); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteClass("com/example/Mod", nil); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if err := w.WriteFile("../escape", nil); err == nil {
		t.Fatal("expected escaping name to be rejected")
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestRoundTrip(t *testing.T) {
	for _, out := range []string{"classes", "mod.jar"} {
		t.Run(out, func(t *testing.T) {
			p := filepath.Join(t.TempDir(), out)
			w, err := Create(p)
			if err != nil {
				t.Fatal(err)
			}
			writeAll(t, w)

			in, err := Read(p)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if len(in.Classes) != 2 || len(in.Resources) != 1 {
				t.Fatalf("read %d classes, %d resources", len(in.Classes), len(in.Resources))
			}
			if in.Classes[0].Name != "com/example/Handlers" || in.Classes[1].Name != "com/example/Mod" {
				t.Fatalf("classes not sorted by name: %s, %s", in.Classes[0].Name, in.Classes[1].Name)
			}
			if string(in.Classes[1].Data) != "\xCA\xFE" {
				t.Fatalf("class data = %x", in.Classes[1].Data)
			}
			if in.Resources[0].Name != "META-INF/MANIFEST.MF" {
				t.Fatalf("resource = %s", in.Resources[0].Name)
			}
		})
	}
}

func TestReadMissing(t *testing.T) {
	if _, err := Read(filepath.Join(t.TempDir(), "nope.jar")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist, got %v", err)
	}
}

func TestIsJar(t *testing.T) {
	for p, want := range map[string]bool{"a.jar": true, "A.JAR": true, "b.zip": true, "out": false, "x.class": false} {
		if got := IsJar(p); got != want {
			t.Errorf("IsJar(%q) = %v", p, got)
		}
	}
}
