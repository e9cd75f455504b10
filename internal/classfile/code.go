package classfile

import (
	"encoding/binary"
	"fmt"

	"fortio.org/safecast"
)

// Code assembles a straight-line method body, tracking operand stack depth.
// The first error sticks and is reported by Attribute.
type Code struct {
	class     *Class
	buf       []byte
	depth     int
	maxStack  int
	maxLocals int
	err       error
}

// NewCode starts a body for a method of c with the given local slot count.
func (c *Class) NewCode(maxLocals int) *Code {
	return &Code{class: c, maxLocals: maxLocals}
}

func (a *Code) fail(err error) {
	if a.err == nil {
		a.err = err
	}
}

func (a *Code) push(n int) {
	a.depth += n
	if a.depth > a.maxStack {
		a.maxStack = a.depth
	}
}

func (a *Code) pop(n int) {
	a.depth -= n
	if a.depth < 0 {
		a.fail(fmt.Errorf("operand stack underflow at offset %d", len(a.buf)))
		a.depth = 0
	}
}

func (a *Code) op(b ...byte) {
	a.buf = append(a.buf, b...)
}

func (a *Code) u2(v uint16) {
	a.buf = binary.BigEndian.AppendUint16(a.buf, v)
}

// ALoad pushes a reference local.
func (a *Code) ALoad(slot int) *Code {
	switch {
	case slot >= 0 && slot <= 3:
		a.op(OpAload0 + byte(slot))
	case slot <= 0xFF:
		a.op(OpAload, byte(slot))
	default:
		a.fail(fmt.Errorf("aload slot %d out of range", slot))
	}
	if slot >= a.maxLocals {
		a.maxLocals = slot + 1
	}
	a.push(1)
	return a
}

// Pop discards the top of stack.
func (a *Code) Pop() *Code {
	a.op(OpPop)
	a.pop(1)
	return a
}

// Dup duplicates the top of stack.
func (a *Code) Dup() *Code {
	a.op(OpDup)
	a.push(1)
	return a
}

// Return emits a void return.
func (a *Code) Return() *Code {
	a.op(OpReturn)
	return a
}

// AReturn returns the reference on top of stack.
func (a *Code) AReturn() *Code {
	a.op(OpAreturn)
	a.pop(1)
	return a
}

// New allocates an uninitialized instance.
func (a *Code) New(class string) *Code {
	idx, err := a.class.Pool.AddClass(class)
	if err != nil {
		a.fail(err)
	}
	a.op(OpNew)
	a.u2(idx)
	a.push(1)
	return a
}

func (a *Code) ldc(idx uint16) {
	if idx <= 0xFF {
		a.op(OpLdc, byte(idx))
	} else {
		a.op(OpLdcW)
		a.u2(idx)
	}
	a.push(1)
}

// LdcString pushes a string constant.
func (a *Code) LdcString(s string) *Code {
	idx, err := a.class.Pool.AddString(s)
	if err != nil {
		a.fail(err)
	}
	a.ldc(idx)
	return a
}

// LdcClass pushes a class literal.
func (a *Code) LdcClass(name string) *Code {
	idx, err := a.class.Pool.AddClass(name)
	if err != nil {
		a.fail(err)
	}
	a.ldc(idx)
	return a
}

// GetStatic reads a static reference field.
func (a *Code) GetStatic(owner, name, desc string) *Code {
	idx, err := a.class.Pool.AddFieldref(owner, name, desc)
	if err != nil {
		a.fail(err)
	}
	size, _, err := fieldSlots(desc, 0)
	if err != nil {
		a.fail(err)
	}
	a.op(OpGetstatic)
	a.u2(idx)
	a.push(size)
	return a
}

func (a *Code) invoke(op byte, owner, name, desc string, itf, receiver bool) {
	idx, err := a.class.Pool.AddMethodref(owner, name, desc, itf)
	if err != nil {
		a.fail(err)
	}
	args, ret, err := ArgSlots(desc)
	if err != nil {
		a.fail(err)
	}
	a.op(op)
	a.u2(idx)
	if op == OpInvokeinterface {
		n := args + 1
		if n > 0xFF {
			a.fail(fmt.Errorf("invokeinterface %s.%s: %d argument slots", owner, name, n))
		}
		a.op(byte(n), 0)
	}
	if receiver {
		args++
	}
	a.pop(args)
	a.push(ret)
}

// InvokeStatic calls a static method.
func (a *Code) InvokeStatic(owner, name, desc string, itf bool) *Code {
	a.invoke(OpInvokestatic, owner, name, desc, itf, false)
	return a
}

// InvokeVirtual calls an instance method on a class.
func (a *Code) InvokeVirtual(owner, name, desc string) *Code {
	a.invoke(OpInvokevirtual, owner, name, desc, false, true)
	return a
}

// InvokeSpecial calls a constructor or private/super method.
func (a *Code) InvokeSpecial(owner, name, desc string, itf bool) *Code {
	a.invoke(OpInvokespecial, owner, name, desc, itf, true)
	return a
}

// InvokeInterface calls an interface method.
func (a *Code) InvokeInterface(owner, name, desc string) *Code {
	a.invoke(OpInvokeinterface, owner, name, desc, true, true)
	return a
}

// InvokeDynamic emits an invokedynamic call site bound to bootstrap.
func (a *Code) InvokeDynamic(bootstrap uint16, name, desc string) *Code {
	idx, err := a.class.Pool.AddInvokeDynamic(bootstrap, name, desc)
	if err != nil {
		a.fail(err)
	}
	args, ret, err := ArgSlots(desc)
	if err != nil {
		a.fail(err)
	}
	a.op(OpInvokedynamic)
	a.u2(idx)
	a.op(0, 0)
	a.pop(args)
	a.push(ret)
	return a
}

// MaxStack returns the deepest operand stack seen so far.
func (a *Code) MaxStack() int { return a.maxStack }

// MaxLocals returns the local slot count.
func (a *Code) MaxLocals() int { return a.maxLocals }

// Len returns the bytecode length so far.
func (a *Code) Len() int { return len(a.buf) }

// Err returns the first assembly error.
func (a *Code) Err() error { return a.err }

// Attribute encodes the Code attribute with no exception table and no
// nested attributes.
func (a *Code) Attribute() (Attribute, error) {
	if a.err != nil {
		return Attribute{}, a.err
	}
	stack, err := safecast.Conv[uint16](a.maxStack)
	if err != nil {
		return Attribute{}, fmt.Errorf("max_stack %d: %w: %w", a.maxStack, ErrTooLarge, err)
	}
	locals, err := safecast.Conv[uint16](a.maxLocals)
	if err != nil {
		return Attribute{}, fmt.Errorf("max_locals %d: %w: %w", a.maxLocals, ErrTooLarge, err)
	}
	if len(a.buf) == 0 {
		return Attribute{}, fmt.Errorf("empty code")
	}
	if len(a.buf) >= 65536 {
		return Attribute{}, fmt.Errorf("code length %d: %w", len(a.buf), ErrTooLarge)
	}
	w := &writer{buf: make([]byte, 0, len(a.buf)+12)}
	w.u2(stack)
	w.u2(locals)
	w.length(len(a.buf), "code")
	w.raw(a.buf)
	w.u2(0) // exception_table_length
	w.u2(0) // attributes_count
	return Attribute{Name: AttrCode, Data: w.buf}, w.err
}

// CodeInfo is the decoded header of a Code attribute.
type CodeInfo struct {
	MaxStack  uint16
	MaxLocals uint16
	Bytecode  []byte
}

// ParseCode decodes the fixed part of a Code attribute body.
func ParseCode(data []byte) (CodeInfo, error) {
	r := &reader{data: data}
	info := CodeInfo{MaxStack: r.u2(), MaxLocals: r.u2()}
	n := int(r.u4())
	info.Bytecode = r.bytes(n)
	return info, r.err
}
