package testkit

import (
	"bytes"
	"fmt"

	"github.com/valoeghese/patchwork-patcher/internal/classfile"
)

// Call is a resolved invoke instruction.
type Call struct {
	Op        byte
	Owner     string
	Name      string
	Desc      string
	Interface bool // the constant is an InterfaceMethodref
}

func (c Call) String() string { return fmt.Sprintf("%s.%s%s", c.Owner, c.Name, c.Desc) }

// DynamicSite is a resolved invokedynamic with its bootstrap arguments.
type DynamicSite struct {
	Name, Desc   string
	Bootstrap    Call
	Target       Call // the implementation method handle
	TargetKind   classfile.RefKind
	Erased       string
	Instantiated string
}

// MethodShape summarizes a generated method body.
type MethodShape struct {
	Access    uint16
	MaxStack  uint16
	MaxLocals uint16
	Ops       []byte
	Calls     []Call
	Dynamic   []DynamicSite
	Strings   []string // ldc strings
	Classes   []string // ldc classes and new
	Statics   []Call   // getstatic
}

// Count returns how many instructions have opcode op.
func (s *MethodShape) Count(op byte) int {
	n := 0
	for _, o := range s.Ops {
		if o == op {
			n++
		}
	}
	return n
}

// CountCalls returns how many calls target owner.name.
func (s *MethodShape) CountCalls(owner, name string) int {
	n := 0
	for _, c := range s.Calls {
		if c.Owner == owner && c.Name == name {
			n++
		}
	}
	return n
}

// InspectMethod decodes the body of a method the assembler produced.
func InspectMethod(c *classfile.Class, name, desc string) (*MethodShape, error) {
	m := c.Method(name, desc)
	if m == nil {
		return nil, fmt.Errorf("method %s%s not found in %s", name, desc, c.Name)
	}
	data, ok := m.Attribute(classfile.AttrCode)
	if !ok {
		return nil, fmt.Errorf("method %s%s has no code", name, desc)
	}
	info, err := classfile.ParseCode(data)
	if err != nil {
		return nil, err
	}
	insns, err := classfile.Instructions(info.Bytecode)
	if err != nil {
		return nil, err
	}
	shape := &MethodShape{Access: m.Access, MaxStack: info.MaxStack, MaxLocals: info.MaxLocals}
	p := c.Pool
	for _, in := range insns {
		shape.Ops = append(shape.Ops, in.Op)
		switch in.Op {
		case classfile.OpInvokestatic, classfile.OpInvokevirtual, classfile.OpInvokespecial, classfile.OpInvokeinterface:
			call, err := resolveCall(p, in.Index)
			if err != nil {
				return nil, err
			}
			call.Op = in.Op
			shape.Calls = append(shape.Calls, call)
		case classfile.OpGetstatic:
			call, err := resolveCall(p, in.Index)
			if err != nil {
				return nil, err
			}
			call.Op = in.Op
			shape.Statics = append(shape.Statics, call)
		case classfile.OpInvokedynamic:
			site, err := resolveDynamic(c, in.Index)
			if err != nil {
				return nil, err
			}
			shape.Dynamic = append(shape.Dynamic, site)
		case classfile.OpLdc, classfile.OpLdcW:
			k, err := p.Get(in.Index)
			if err != nil {
				return nil, err
			}
			switch k.Tag {
			case classfile.TagString:
				s, err := p.UTF8(k.A)
				if err != nil {
					return nil, err
				}
				shape.Strings = append(shape.Strings, s)
			case classfile.TagClass:
				s, err := p.ClassName(in.Index)
				if err != nil {
					return nil, err
				}
				shape.Classes = append(shape.Classes, s)
			}
		case classfile.OpNew:
			s, err := p.ClassName(in.Index)
			if err != nil {
				return nil, err
			}
			shape.Classes = append(shape.Classes, s)
		}
	}
	return shape, nil
}

func resolveCall(p *classfile.Pool, idx uint16) (Call, error) {
	k, err := p.Get(idx)
	if err != nil {
		return Call{}, err
	}
	owner, name, desc, err := p.Ref(idx)
	if err != nil {
		return Call{}, err
	}
	return Call{Owner: owner, Name: name, Desc: desc, Interface: k.Tag == classfile.TagInterfaceMethodref}, nil
}

func resolveHandle(p *classfile.Pool, idx uint16) (Call, classfile.RefKind, error) {
	k, err := p.Get(idx)
	if err != nil {
		return Call{}, 0, err
	}
	if k.Tag != classfile.TagMethodHandle {
		return Call{}, 0, fmt.Errorf("constant %d is not a method handle", idx)
	}
	call, err := resolveCall(p, k.A)
	return call, k.Kind, err
}

func methodType(p *classfile.Pool, idx uint16) (string, error) {
	k, err := p.Get(idx)
	if err != nil {
		return "", err
	}
	if k.Tag != classfile.TagMethodType {
		return "", fmt.Errorf("constant %d is not a method type", idx)
	}
	return p.UTF8(k.A)
}

func resolveDynamic(c *classfile.Class, idx uint16) (DynamicSite, error) {
	var site DynamicSite
	p := c.Pool
	k, err := p.Get(idx)
	if err != nil {
		return site, err
	}
	if k.Tag != classfile.TagInvokeDynamic {
		return site, fmt.Errorf("constant %d is not invokedynamic", idx)
	}
	if site.Name, site.Desc, err = p.NameAndType(k.B); err != nil {
		return site, err
	}
	bsms, err := c.Bootstraps()
	if err != nil {
		return site, err
	}
	if int(k.A) >= len(bsms) {
		return site, fmt.Errorf("bootstrap index %d out of range", k.A)
	}
	bsm := bsms[k.A]
	if site.Bootstrap, _, err = resolveHandle(p, bsm.Ref); err != nil {
		return site, err
	}
	if len(bsm.Args) != 3 {
		return site, fmt.Errorf("bootstrap has %d arguments, want 3", len(bsm.Args))
	}
	if site.Erased, err = methodType(p, bsm.Args[0]); err != nil {
		return site, err
	}
	if site.Target, site.TargetKind, err = resolveHandle(p, bsm.Args[1]); err != nil {
		return site, err
	}
	site.Instantiated, err = methodType(p, bsm.Args[2])
	return site, err
}

// CheckRoundTrip verifies that data parses and re-serializes unchanged.
func CheckRoundTrip(data []byte) (*classfile.Class, error) {
	c, err := classfile.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	again, err := c.Bytes()
	if err != nil {
		return nil, fmt.Errorf("serialize: %w", err)
	}
	if !bytes.Equal(data, again) {
		return nil, fmt.Errorf("class %s does not round-trip", c.Name)
	}
	return c, nil
}
