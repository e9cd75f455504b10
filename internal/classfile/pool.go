package classfile

import (
	"fmt"

	"fortio.org/safecast"
)

// Constant is one constant pool entry. Which fields are meaningful depends on
// Tag; references to other entries are kept as raw indices.
type Constant struct {
	Tag  uint8
	A, B uint16 // class/string/type name index, ref class+nat, nat name+desc, indy bsm+nat
	Kind RefKind
	Num  uint64 // Integer/Float (low 32 bits), Long/Double
	Utf8 string // raw modified UTF-8 bytes
}

type poolKey struct {
	tag  uint8
	a, b uint16
	kind RefKind
	num  uint64
	s    string
}

func (c Constant) key() poolKey {
	return poolKey{tag: c.Tag, a: c.A, b: c.B, kind: c.Kind, num: c.Num, s: c.Utf8}
}

// Pool is a class constant pool. Index 0 is unused; Long and Double occupy
// two slots, the second being a zero entry.
type Pool struct {
	entries []Constant
	lookup  map[poolKey]uint16
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{
		entries: make([]Constant, 1, 64),
		lookup:  make(map[poolKey]uint16, 64),
	}
}

// Count returns constant_pool_count as written to the class file.
func (p *Pool) Count() int {
	return len(p.entries)
}

// Get returns the entry at index i.
func (p *Pool) Get(i uint16) (Constant, error) {
	if i == 0 || int(i) >= len(p.entries) || p.entries[i].Tag == 0 {
		return Constant{}, fmt.Errorf("%w: index %d out of range (count %d)", ErrConstantPool, i, len(p.entries))
	}
	return p.entries[i], nil
}

func (p *Pool) expect(i uint16, tag uint8) (Constant, error) {
	c, err := p.Get(i)
	if err != nil {
		return c, err
	}
	if c.Tag != tag {
		return c, fmt.Errorf("%w: index %d has tag %d, expected %d", ErrConstantPool, i, c.Tag, tag)
	}
	return c, nil
}

// UTF8 returns the decoded string at a Utf8 entry.
func (p *Pool) UTF8(i uint16) (string, error) {
	c, err := p.expect(i, TagUtf8)
	if err != nil {
		return "", err
	}
	return decodeModifiedUTF8(c.Utf8), nil
}

// ClassName returns the internal name referenced by a Class entry.
func (p *Pool) ClassName(i uint16) (string, error) {
	c, err := p.expect(i, TagClass)
	if err != nil {
		return "", err
	}
	return p.UTF8(c.A)
}

// NameAndType returns the name and descriptor of a NameAndType entry.
func (p *Pool) NameAndType(i uint16) (string, string, error) {
	c, err := p.expect(i, TagNameAndType)
	if err != nil {
		return "", "", err
	}
	name, err := p.UTF8(c.A)
	if err != nil {
		return "", "", err
	}
	desc, err := p.UTF8(c.B)
	return name, desc, err
}

// Ref resolves a Fieldref/Methodref/InterfaceMethodref entry.
func (p *Pool) Ref(i uint16) (owner, name, desc string, err error) {
	c, err := p.Get(i)
	if err != nil {
		return "", "", "", err
	}
	if c.Tag != TagFieldref && c.Tag != TagMethodref && c.Tag != TagInterfaceMethodref {
		return "", "", "", fmt.Errorf("%w: index %d is not a member reference (tag %d)", ErrConstantPool, i, c.Tag)
	}
	if owner, err = p.ClassName(c.A); err != nil {
		return "", "", "", err
	}
	name, desc, err = p.NameAndType(c.B)
	return owner, name, desc, err
}

func (p *Pool) add(c Constant) (uint16, error) {
	k := c.key()
	if idx, ok := p.lookup[k]; ok {
		return idx, nil
	}
	idx, err := safecast.Conv[uint16](len(p.entries))
	if err != nil || idx == 0xFFFF {
		return 0, fmt.Errorf("constant pool overflow at %d entries: %w", len(p.entries), ErrTooLarge)
	}
	p.entries = append(p.entries, c)
	if c.Tag == TagLong || c.Tag == TagDouble {
		if len(p.entries) > 0xFFFF {
			return 0, fmt.Errorf("constant pool overflow at %d entries: %w", len(p.entries), ErrTooLarge)
		}
		p.entries = append(p.entries, Constant{})
	}
	p.lookup[k] = idx
	return idx, nil
}

// AddUTF8 interns a Utf8 constant.
func (p *Pool) AddUTF8(s string) (uint16, error) {
	enc := encodeModifiedUTF8(s)
	if len(enc) > 0xFFFF {
		return 0, fmt.Errorf("utf8 constant too long (%d bytes)", len(enc))
	}
	return p.add(Constant{Tag: TagUtf8, Utf8: enc})
}

// AddClass interns a Class constant for an internal name or array descriptor.
func (p *Pool) AddClass(name string) (uint16, error) {
	n, err := p.AddUTF8(name)
	if err != nil {
		return 0, err
	}
	return p.add(Constant{Tag: TagClass, A: n})
}

// AddString interns a String constant.
func (p *Pool) AddString(s string) (uint16, error) {
	n, err := p.AddUTF8(s)
	if err != nil {
		return 0, err
	}
	return p.add(Constant{Tag: TagString, A: n})
}

// AddInteger interns an Integer constant.
func (p *Pool) AddInteger(v int32) (uint16, error) {
	return p.add(Constant{Tag: TagInteger, Num: uint64(uint32(v))})
}

// AddNameAndType interns a NameAndType constant.
func (p *Pool) AddNameAndType(name, desc string) (uint16, error) {
	n, err := p.AddUTF8(name)
	if err != nil {
		return 0, err
	}
	d, err := p.AddUTF8(desc)
	if err != nil {
		return 0, err
	}
	return p.add(Constant{Tag: TagNameAndType, A: n, B: d})
}

func (p *Pool) addRef(tag uint8, owner, name, desc string) (uint16, error) {
	cls, err := p.AddClass(owner)
	if err != nil {
		return 0, err
	}
	nat, err := p.AddNameAndType(name, desc)
	if err != nil {
		return 0, err
	}
	return p.add(Constant{Tag: tag, A: cls, B: nat})
}

// AddFieldref interns a Fieldref constant.
func (p *Pool) AddFieldref(owner, name, desc string) (uint16, error) {
	return p.addRef(TagFieldref, owner, name, desc)
}

// AddMethodref interns a Methodref, or an InterfaceMethodref when itf is set.
func (p *Pool) AddMethodref(owner, name, desc string, itf bool) (uint16, error) {
	if itf {
		return p.addRef(TagInterfaceMethodref, owner, name, desc)
	}
	return p.addRef(TagMethodref, owner, name, desc)
}

// AddMethodHandle interns a MethodHandle constant pointing at a method.
func (p *Pool) AddMethodHandle(h Handle) (uint16, error) {
	var (
		ref uint16
		err error
	)
	switch h.Kind {
	case RefGetField, RefGetStatic, RefPutField, RefPutStatic:
		ref, err = p.AddFieldref(h.Owner, h.Name, h.Desc)
	default:
		ref, err = p.AddMethodref(h.Owner, h.Name, h.Desc, h.Interface)
	}
	if err != nil {
		return 0, err
	}
	return p.add(Constant{Tag: TagMethodHandle, Kind: h.Kind, A: ref})
}

// AddMethodType interns a MethodType constant.
func (p *Pool) AddMethodType(desc string) (uint16, error) {
	d, err := p.AddUTF8(desc)
	if err != nil {
		return 0, err
	}
	return p.add(Constant{Tag: TagMethodType, A: d})
}

// AddInvokeDynamic interns an InvokeDynamic constant.
func (p *Pool) AddInvokeDynamic(bootstrap uint16, name, desc string) (uint16, error) {
	nat, err := p.AddNameAndType(name, desc)
	if err != nil {
		return 0, err
	}
	return p.add(Constant{Tag: TagInvokeDynamic, A: bootstrap, B: nat})
}

// Handle names a method (or field) for a MethodHandle constant.
type Handle struct {
	Kind      RefKind
	Owner     string
	Name      string
	Desc      string
	Interface bool // owner is an interface: use InterfaceMethodref
}

func readPool(r *reader) (*Pool, error) {
	count := int(r.u2())
	if r.err != nil {
		return nil, r.err
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: constant_pool_count is zero", ErrConstantPool)
	}
	p := &Pool{
		entries: make([]Constant, 1, count+16),
		lookup:  make(map[poolKey]uint16, count),
	}
	for i := 1; i < count; i++ {
		tag := r.u1()
		var c Constant
		c.Tag = tag
		switch tag {
		case TagUtf8:
			n := int(r.u2())
			c.Utf8 = string(r.bytes(n))
		case TagInteger, TagFloat:
			c.Num = uint64(r.u4())
		case TagLong, TagDouble:
			c.Num = r.u8()
		case TagClass, TagString, TagMethodType, TagModule, TagPackage:
			c.A = r.u2()
		case TagFieldref, TagMethodref, TagInterfaceMethodref, TagNameAndType, TagDynamic, TagInvokeDynamic:
			c.A = r.u2()
			c.B = r.u2()
		case TagMethodHandle:
			c.Kind = RefKind(r.u1())
			c.A = r.u2()
		default:
			if r.err == nil {
				return nil, fmt.Errorf("%w: unknown tag %d at index %d", ErrConstantPool, tag, i)
			}
		}
		if r.err != nil {
			return nil, fmt.Errorf("%w: entry %d: %w", ErrConstantPool, i, r.err)
		}
		idx := uint16(len(p.entries)) //nolint:gosec // bounded by count, a u2
		p.entries = append(p.entries, c)
		if _, dup := p.lookup[c.key()]; !dup {
			p.lookup[c.key()] = idx
		}
		if tag == TagLong || tag == TagDouble {
			p.entries = append(p.entries, Constant{})
			i++
		}
	}
	if len(p.entries) != count {
		return nil, fmt.Errorf("%w: wide constant overruns count %d", ErrConstantPool, count)
	}
	return p, nil
}

func (p *Pool) writeTo(w *writer) {
	w.count(len(p.entries), "constants")
	for i := 1; i < len(p.entries); i++ {
		c := p.entries[i]
		w.u1(c.Tag)
		switch c.Tag {
		case TagUtf8:
			w.count(len(c.Utf8), "utf8 bytes")
			w.raw([]byte(c.Utf8))
		case TagInteger, TagFloat:
			w.u4(uint32(c.Num)) //nolint:gosec // stored from a u4
		case TagLong, TagDouble:
			w.u8(c.Num)
			i++
		case TagClass, TagString, TagMethodType, TagModule, TagPackage:
			w.u2(c.A)
		case TagFieldref, TagMethodref, TagInterfaceMethodref, TagNameAndType, TagDynamic, TagInvokeDynamic:
			w.u2(c.A)
			w.u2(c.B)
		case TagMethodHandle:
			w.u1(uint8(c.Kind))
			w.u2(c.A)
		default:
			w.fail(fmt.Errorf("cannot write constant pool tag %d at index %d", c.Tag, i))
		}
	}
}
