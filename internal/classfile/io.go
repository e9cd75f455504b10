package classfile

import (
	"encoding/binary"
	"errors"
	"fmt"

	"fortio.org/safecast"
)

var (
	// ErrTooLarge reports that a class outgrew a u2 or u4 limit of the format.
	ErrTooLarge = errors.New("class file limit exceeded")
	// ErrConstantPool reports a corrupt pool or a bad index into it.
	ErrConstantPool     = errors.New("bad constant pool")
	ErrBootstrapMethods = errors.New("bad BootstrapMethods attribute")
)

// reader is a big-endian cursor with a sticky error.
type reader struct {
	data []byte
	off  int
	err  error
}

func (r *reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if n < 0 || r.off+n > len(r.data) {
		r.err = fmt.Errorf("unexpected end of data at offset %d (need %d bytes)", r.off, n)
		return false
	}
	return true
}

func (r *reader) u1() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.data[r.off]
	r.off++
	return v
}

func (r *reader) u2() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v
}

func (r *reader) u4() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v
}

func (r *reader) u8() uint64 {
	if !r.need(8) {
		return 0
	}
	v := binary.BigEndian.Uint64(r.data[r.off:])
	r.off += 8
	return v
}

func (r *reader) bytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	out := make([]byte, n)
	copy(out, r.data[r.off:r.off+n])
	r.off += n
	return out
}

// writer is a growing big-endian buffer with a sticky error.
type writer struct {
	buf []byte
	err error
}

func (w *writer) u1(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *writer) u2(v uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

func (w *writer) u4(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

func (w *writer) u8(v uint64) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, v)
}

func (w *writer) raw(b []byte) {
	w.buf = append(w.buf, b...)
}

// count writes a u2 length prefix, failing on overflow.
func (w *writer) count(n int, what string) {
	v, err := safecast.Conv[uint16](n)
	if err != nil {
		w.fail(fmt.Errorf("too many %s (%d): %w: %w", what, n, ErrTooLarge, err))
		return
	}
	w.u2(v)
}

// length writes a u4 length prefix, failing on overflow.
func (w *writer) length(n int, what string) {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		w.fail(fmt.Errorf("%s too long (%d): %w: %w", what, n, ErrTooLarge, err))
		return
	}
	w.u4(v)
}

func (w *writer) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}
