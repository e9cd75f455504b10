// Package archive reads class inputs from a directory or a jar and writes
// outputs to a directory or a jar.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

const classSuffix = ".class"

// Entry is one file of an input. For classes Name is the internal class name
// without the .class suffix; for resources it is the slash-separated path.
type Entry struct {
	Name string
	Data []byte
}

// Input is the content of a directory or jar.
type Input struct {
	Path      string
	Classes   []Entry
	Resources []Entry
}

// IsJar reports whether path names a jar or zip archive.
func IsJar(p string) bool {
	ext := strings.ToLower(filepath.Ext(p))
	return ext == ".jar" || ext == ".zip"
}

// Read loads every file under a directory, or every entry of a jar.
func Read(p string) (*Input, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	in := &Input{Path: p}
	if info.IsDir() {
		err = readDir(p, in)
	} else {
		err = readJar(p, in)
	}
	if err != nil {
		return nil, err
	}
	sort.Slice(in.Classes, func(i, j int) bool { return in.Classes[i].Name < in.Classes[j].Name })
	sort.Slice(in.Resources, func(i, j int) bool { return in.Resources[i].Name < in.Resources[j].Name })
	return in, nil
}

func (in *Input) add(name string, data []byte) {
	if strings.HasSuffix(name, classSuffix) {
		in.Classes = append(in.Classes, Entry{Name: strings.TrimSuffix(name, classSuffix), Data: data})
		return
	}
	in.Resources = append(in.Resources, Entry{Name: name, Data: data})
}

func readDir(root string, in *Input) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		in.add(filepath.ToSlash(rel), data)
		return nil
	})
}

func readJar(p string, in *Input) error {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return fmt.Errorf("open jar %s: %w", p, err)
	}
	defer zr.Close()
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
		in.add(f.Name, data)
	}
	return nil
}

// Writer receives outputs. Implementations are safe for concurrent use.
type Writer interface {
	// WriteClass writes an internal class name as name.class.
	WriteClass(name string, data []byte) error
	// WriteFile writes any other file by slash-separated path.
	WriteFile(name string, data []byte) error
	Close() error
}

// ErrDuplicate is returned when a name is written twice.
var ErrDuplicate = errors.New("duplicate output")

// Create opens a jar writer when p ends in .jar or .zip, a directory writer
// otherwise.
func Create(p string) (Writer, error) {
	if IsJar(p) {
		if dir := filepath.Dir(p); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		f, err := os.Create(p)
		if err != nil {
			return nil, err
		}
		return &jarWriter{f: f, zw: zip.NewWriter(f), seen: make(map[string]struct{})}, nil
	}
	if err := os.MkdirAll(p, 0o755); err != nil {
		return nil, err
	}
	return &dirWriter{root: p, seen: make(map[string]struct{})}, nil
}

func cleanName(name string) (string, error) {
	clean := path.Clean(name)
	if name == "" || path.IsAbs(name) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("invalid output name %q", name)
	}
	return clean, nil
}

type dirWriter struct {
	root string
	mu   sync.Mutex
	seen map[string]struct{}
}

func (w *dirWriter) WriteClass(name string, data []byte) error {
	return w.WriteFile(name+classSuffix, data)
}

func (w *dirWriter) WriteFile(name string, data []byte) error {
	clean, err := cleanName(name)
	if err != nil {
		return err
	}
	w.mu.Lock()
	if _, dup := w.seen[clean]; dup {
		w.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicate, clean)
	}
	w.seen[clean] = struct{}{}
	w.mu.Unlock()

	p := filepath.Join(w.root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}

func (w *dirWriter) Close() error { return nil }

type jarWriter struct {
	mu   sync.Mutex
	f    *os.File
	zw   *zip.Writer
	seen map[string]struct{}
}

func (w *jarWriter) WriteClass(name string, data []byte) error {
	return w.WriteFile(name+classSuffix, data)
}

func (w *jarWriter) WriteFile(name string, data []byte) error {
	clean, err := cleanName(name)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, dup := w.seen[clean]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicate, clean)
	}
	w.seen[clean] = struct{}{}
	fw, err := w.zw.Create(clean)
	if err != nil {
		return err
	}
	_, err = fw.Write(data)
	return err
}

func (w *jarWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.zw.Close(); err != nil {
		_ = w.f.Close()
		return err
	}
	return w.f.Close()
}
