package classfile

import (
	"errors"
	"fmt"
)

// Attribute is a raw attribute: its name and body bytes.
type Attribute struct {
	Name string
	Data []byte
}

// Member is a field or method.
type Member struct {
	Access     uint16
	Name       string
	Descriptor string
	Attributes []Attribute
}

// IsStatic reports whether ACC_STATIC is set.
func (m *Member) IsStatic() bool { return m.Access&AccStatic != 0 }

// IsPrivate reports whether ACC_PRIVATE is set.
func (m *Member) IsPrivate() bool { return m.Access&AccPrivate != 0 }

// IsFinal reports whether ACC_FINAL is set.
func (m *Member) IsFinal() bool { return m.Access&AccFinal != 0 }

// Attribute returns the first attribute with the given name.
func (m *Member) Attribute(name string) ([]byte, bool) {
	return findAttribute(m.Attributes, name)
}

// Class is a parsed or synthesized class file.
type Class struct {
	Minor, Major uint16
	Pool         *Pool
	Access       uint16
	Name         string
	Super        string // empty only for java/lang/Object
	Interfaces   []string
	Fields       []*Member
	Methods      []*Member
	Attributes   []Attribute

	bootstraps       []BootstrapMethod
	bootstrapsLoaded bool
	bootstrapsDirty  bool
}

// NewClass starts an empty class with the given header.
func NewClass(major uint16, access uint16, name, super string, interfaces ...string) *Class {
	return &Class{
		Major:            major,
		Pool:             NewPool(),
		Access:           access,
		Name:             name,
		Super:            super,
		Interfaces:       interfaces,
		bootstrapsLoaded: true,
	}
}

// IsInterface reports whether ACC_INTERFACE is set.
func (c *Class) IsInterface() bool { return c.Access&AccInterface != 0 }

// IsFinal reports whether ACC_FINAL is set.
func (c *Class) IsFinal() bool { return c.Access&AccFinal != 0 }

// Method returns the method with the given name and descriptor.
func (c *Class) Method(name, desc string) *Member {
	for _, m := range c.Methods {
		if m.Name == name && m.Descriptor == desc {
			return m
		}
	}
	return nil
}

// MethodNamed returns every method called name.
func (c *Class) MethodNamed(name string) []*Member {
	var out []*Member
	for _, m := range c.Methods {
		if m.Name == name {
			out = append(out, m)
		}
	}
	return out
}

// AddMethod appends a method. The caller is responsible for uniqueness.
func (c *Class) AddMethod(m *Member) {
	c.Methods = append(c.Methods, m)
}

// Attribute returns the first class attribute with the given name.
func (c *Class) Attribute(name string) ([]byte, bool) {
	return findAttribute(c.Attributes, name)
}

// Signature returns the generic signature of a member, if present.
func (c *Class) Signature(m *Member) (string, bool, error) {
	data, ok := m.Attribute(AttrSignature)
	if !ok {
		return "", false, nil
	}
	if len(data) != 2 {
		return "", false, fmt.Errorf("%s attribute of %s has length %d", AttrSignature, m.Name, len(data))
	}
	s, err := c.Pool.UTF8(uint16(data[0])<<8 | uint16(data[1]))
	if err != nil {
		return "", false, fmt.Errorf("%s attribute of %s: %w", AttrSignature, m.Name, err)
	}
	return s, true, nil
}

func findAttribute(attrs []Attribute, name string) ([]byte, bool) {
	for _, a := range attrs {
		if a.Name == name {
			return a.Data, true
		}
	}
	return nil, false
}

// ErrNotClassFile is returned when the magic number does not match.
var ErrNotClassFile = errors.New("not a class file")

// Parse decodes a class file.
func Parse(data []byte) (*Class, error) {
	r := &reader{data: data}
	if magic := r.u4(); r.err == nil && magic != Magic {
		return nil, fmt.Errorf("%w: magic %#08x", ErrNotClassFile, magic)
	}
	c := &Class{}
	c.Minor = r.u2()
	c.Major = r.u2()
	if r.err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotClassFile, r.err)
	}
	pool, err := readPool(r)
	if err != nil {
		return nil, err
	}
	c.Pool = pool

	c.Access = r.u2()
	thisIdx := r.u2()
	superIdx := r.u2()
	if r.err != nil {
		return nil, r.err
	}
	if c.Name, err = pool.ClassName(thisIdx); err != nil {
		return nil, fmt.Errorf("this_class: %w", err)
	}
	if superIdx != 0 {
		if c.Super, err = pool.ClassName(superIdx); err != nil {
			return nil, fmt.Errorf("super_class: %w", err)
		}
	}
	n := int(r.u2())
	for i := 0; i < n && r.err == nil; i++ {
		name, err := pool.ClassName(r.u2())
		if err != nil {
			return nil, fmt.Errorf("interface %d: %w", i, err)
		}
		c.Interfaces = append(c.Interfaces, name)
	}
	if c.Fields, err = readMembers(r, pool, "field"); err != nil {
		return nil, err
	}
	if c.Methods, err = readMembers(r, pool, "method"); err != nil {
		return nil, err
	}
	if c.Attributes, err = readAttributes(r, pool); err != nil {
		return nil, fmt.Errorf("class attributes: %w", err)
	}
	if r.err != nil {
		return nil, r.err
	}
	if r.off != len(data) {
		return nil, fmt.Errorf("%d trailing bytes after class file", len(data)-r.off)
	}
	return c, nil
}

func readMembers(r *reader, pool *Pool, what string) ([]*Member, error) {
	n := int(r.u2())
	out := make([]*Member, 0, n)
	for i := 0; i < n; i++ {
		m := &Member{Access: r.u2()}
		nameIdx, descIdx := r.u2(), r.u2()
		if r.err != nil {
			return nil, r.err
		}
		var err error
		if m.Name, err = pool.UTF8(nameIdx); err != nil {
			return nil, fmt.Errorf("%s %d name: %w", what, i, err)
		}
		if m.Descriptor, err = pool.UTF8(descIdx); err != nil {
			return nil, fmt.Errorf("%s %s descriptor: %w", what, m.Name, err)
		}
		if m.Attributes, err = readAttributes(r, pool); err != nil {
			return nil, fmt.Errorf("%s %s: %w", what, m.Name, err)
		}
		out = append(out, m)
	}
	return out, r.err
}

func readAttributes(r *reader, pool *Pool) ([]Attribute, error) {
	n := int(r.u2())
	if n == 0 {
		return nil, r.err
	}
	out := make([]Attribute, 0, n)
	for i := 0; i < n; i++ {
		nameIdx := r.u2()
		size := int(r.u4())
		data := r.bytes(size)
		if r.err != nil {
			return nil, r.err
		}
		name, err := pool.UTF8(nameIdx)
		if err != nil {
			return nil, fmt.Errorf("attribute %d name: %w", i, err)
		}
		out = append(out, Attribute{Name: name, Data: data})
	}
	return out, nil
}

// Bytes serializes the class. Constants needed by the header and member
// names are interned before the pool is written.
func (c *Class) Bytes() ([]byte, error) {
	if err := c.flushBootstraps(); err != nil {
		return nil, err
	}
	body := &writer{}
	c.writeBody(body)
	if body.err != nil {
		return nil, body.err
	}
	out := &writer{buf: make([]byte, 0, len(body.buf)+c.Pool.Count()*8+10)}
	out.u4(Magic)
	out.u2(c.Minor)
	out.u2(c.Major)
	c.Pool.writeTo(out)
	out.raw(body.buf)
	if out.err != nil {
		return nil, out.err
	}
	return out.buf, nil
}

func (c *Class) writeBody(w *writer) {
	p := c.Pool
	intern := func(idx uint16, err error) uint16 {
		if err != nil {
			w.fail(err)
		}
		return idx
	}
	w.u2(c.Access)
	w.u2(intern(p.AddClass(c.Name)))
	if c.Super == "" {
		w.u2(0)
	} else {
		w.u2(intern(p.AddClass(c.Super)))
	}
	w.count(len(c.Interfaces), "interfaces")
	for _, name := range c.Interfaces {
		w.u2(intern(p.AddClass(name)))
	}
	for _, group := range [][]*Member{c.Fields, c.Methods} {
		w.count(len(group), "members")
		for _, m := range group {
			w.u2(m.Access)
			w.u2(intern(p.AddUTF8(m.Name)))
			w.u2(intern(p.AddUTF8(m.Descriptor)))
			writeAttributes(w, p, m.Attributes)
		}
	}
	writeAttributes(w, p, c.Attributes)
}

func writeAttributes(w *writer, p *Pool, attrs []Attribute) {
	w.count(len(attrs), "attributes")
	for _, a := range attrs {
		idx, err := p.AddUTF8(a.Name)
		if err != nil {
			w.fail(err)
		}
		w.u2(idx)
		w.length(len(a.Data), a.Name)
		w.raw(a.Data)
	}
}
