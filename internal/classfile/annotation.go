package classfile

import (
	"fmt"
	"math"
)

// Annotation is a decoded annotation.
type Annotation struct {
	Type     string // field descriptor, e.g. Lnet/example/Foo;
	Visible  bool
	Elements []Element
}

// Element is one name=value pair of an annotation.
type Element struct {
	Name  string
	Value ElementValue
}

// ElementValue is an annotation element value. Which field is populated
// depends on Tag.
type ElementValue struct {
	Tag        byte
	Number     uint64 // B C D F I J S Z: raw constant bits
	String     string // s: the string; c: the class descriptor
	EnumType   string // e
	EnumName   string // e
	Annotation *Annotation
	Array      []ElementValue
}

// Element returns the value of the named element.
func (a *Annotation) Element(name string) (ElementValue, bool) {
	for _, e := range a.Elements {
		if e.Name == name {
			return e.Value, true
		}
	}
	return ElementValue{}, false
}

// StringValue builds an 's' element value.
func StringValue(s string) ElementValue { return ElementValue{Tag: 's', String: s} }

// EnumValue builds an 'e' element value.
func EnumValue(typ, name string) ElementValue {
	return ElementValue{Tag: 'e', EnumType: typ, EnumName: name}
}

// IntValue builds an 'I' element value.
func IntValue(v int32) ElementValue { return ElementValue{Tag: 'I', Number: uint64(uint32(v))} }

// BoolValue builds a 'Z' element value.
func BoolValue(v bool) ElementValue {
	if v {
		return ElementValue{Tag: 'Z', Number: 1}
	}
	return ElementValue{Tag: 'Z'}
}

// ArrayValue builds a '[' element value.
func ArrayValue(vs ...ElementValue) ElementValue { return ElementValue{Tag: '[', Array: vs} }

// Float64 interprets a D or F value.
func (v ElementValue) Float64() float64 {
	if v.Tag == 'F' {
		return float64(math.Float32frombits(uint32(v.Number))) //nolint:gosec // stored from a u4
	}
	return math.Float64frombits(v.Number)
}

// Annotations decodes the runtime visible and invisible annotations in attrs,
// visible first.
func (c *Class) Annotations(attrs []Attribute) ([]Annotation, error) {
	var out []Annotation
	for _, name := range [...]string{AttrRuntimeVisibleAnnotations, AttrRuntimeInvisibleAnnotations} {
		data, ok := findAttribute(attrs, name)
		if !ok {
			continue
		}
		r := &reader{data: data}
		n := int(r.u2())
		for i := 0; i < n; i++ {
			a, err := c.readAnnotation(r, 0)
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", name, i, err)
			}
			a.Visible = name == AttrRuntimeVisibleAnnotations
			out = append(out, a)
		}
		if r.err != nil {
			return nil, fmt.Errorf("%s: %w", name, r.err)
		}
		if r.off != len(data) {
			return nil, fmt.Errorf("%s: %d trailing bytes", name, len(data)-r.off)
		}
	}
	return out, nil
}

// FindAnnotation returns the first annotation of the given type in attrs.
func (c *Class) FindAnnotation(attrs []Attribute, typ string) (*Annotation, error) {
	anns, err := c.Annotations(attrs)
	if err != nil {
		return nil, err
	}
	for i := range anns {
		if anns[i].Type == typ {
			return &anns[i], nil
		}
	}
	return nil, nil
}

const maxAnnotationDepth = 32

func (c *Class) readAnnotation(r *reader, depth int) (Annotation, error) {
	var a Annotation
	if depth > maxAnnotationDepth {
		return a, fmt.Errorf("annotation nesting deeper than %d", maxAnnotationDepth)
	}
	typ, err := c.Pool.UTF8(r.u2())
	if r.err != nil {
		return a, r.err
	}
	if err != nil {
		return a, err
	}
	a.Type = typ
	n := int(r.u2())
	for i := 0; i < n && r.err == nil; i++ {
		name, err := c.Pool.UTF8(r.u2())
		if r.err != nil {
			break
		}
		if err != nil {
			return a, fmt.Errorf("element %d name: %w", i, err)
		}
		v, err := c.readElementValue(r, depth)
		if err != nil {
			return a, fmt.Errorf("element %s: %w", name, err)
		}
		a.Elements = append(a.Elements, Element{Name: name, Value: v})
	}
	return a, r.err
}

func (c *Class) readElementValue(r *reader, depth int) (ElementValue, error) {
	v := ElementValue{Tag: r.u1()}
	if r.err != nil {
		return v, r.err
	}
	p := c.Pool
	switch v.Tag {
	case 'B', 'C', 'I', 'S', 'Z', 'D', 'F', 'J':
		k, err := p.Get(r.u2())
		if err != nil {
			return v, err
		}
		if k.Tag != constTagFor(v.Tag) {
			return v, fmt.Errorf("element tag %q points at constant tag %d", v.Tag, k.Tag)
		}
		v.Number = k.Num
	case 's':
		s, err := p.UTF8(r.u2())
		if err != nil {
			return v, err
		}
		v.String = s
	case 'e':
		typ, err := p.UTF8(r.u2())
		if err != nil {
			return v, err
		}
		name, err := p.UTF8(r.u2())
		if err != nil {
			return v, err
		}
		v.EnumType, v.EnumName = typ, name
	case 'c':
		s, err := p.UTF8(r.u2())
		if err != nil {
			return v, err
		}
		v.String = s
	case '@':
		a, err := c.readAnnotation(r, depth+1)
		if err != nil {
			return v, err
		}
		v.Annotation = &a
	case '[':
		n := int(r.u2())
		for i := 0; i < n && r.err == nil; i++ {
			ev, err := c.readElementValue(r, depth+1)
			if err != nil {
				return v, fmt.Errorf("[%d]: %w", i, err)
			}
			v.Array = append(v.Array, ev)
		}
	default:
		return v, fmt.Errorf("unknown element value tag %q", v.Tag)
	}
	return v, r.err
}

func constTagFor(tag byte) uint8 {
	switch tag {
	case 'D':
		return TagDouble
	case 'F':
		return TagFloat
	case 'J':
		return TagLong
	}
	return TagInteger
}

// AddAnnotation appends an annotation to the matching Runtime*Annotations
// attribute in attrs, creating it when absent, and returns the new list.
func (c *Class) AddAnnotation(attrs []Attribute, a Annotation) ([]Attribute, error) {
	name := AttrRuntimeInvisibleAnnotations
	if a.Visible {
		name = AttrRuntimeVisibleAnnotations
	}
	w := &writer{}
	c.writeAnnotation(w, a)
	if w.err != nil {
		return attrs, w.err
	}
	for i := range attrs {
		if attrs[i].Name != name {
			continue
		}
		data := attrs[i].Data
		if len(data) < 2 {
			return attrs, fmt.Errorf("%s: truncated", name)
		}
		n := int(data[0])<<8 | int(data[1])
		if n == 0xFFFF {
			return attrs, fmt.Errorf("%s: too many annotations", name)
		}
		merged := make([]byte, 0, len(data)+len(w.buf))
		merged = append(merged, byte((n+1)>>8), byte(n+1))
		merged = append(merged, data[2:]...)
		merged = append(merged, w.buf...)
		attrs[i].Data = merged
		return attrs, nil
	}
	data := append([]byte{0, 1}, w.buf...)
	return append(attrs, Attribute{Name: name, Data: data}), nil
}

func (c *Class) writeAnnotation(w *writer, a Annotation) {
	p := c.Pool
	idx, err := p.AddUTF8(a.Type)
	if err != nil {
		w.fail(err)
	}
	w.u2(idx)
	w.count(len(a.Elements), "annotation elements")
	for _, e := range a.Elements {
		idx, err := p.AddUTF8(e.Name)
		if err != nil {
			w.fail(err)
		}
		w.u2(idx)
		c.writeElementValue(w, e.Value)
	}
}

func (c *Class) writeElementValue(w *writer, v ElementValue) {
	p := c.Pool
	w.u1(v.Tag)
	var (
		idx uint16
		err error
	)
	switch v.Tag {
	case 'B', 'C', 'I', 'S', 'Z', 'D', 'F', 'J':
		idx, err = p.add(Constant{Tag: constTagFor(v.Tag), Num: v.Number})
		w.u2(idx)
	case 's', 'c':
		idx, err = p.AddUTF8(v.String)
		w.u2(idx)
	case 'e':
		idx, err = p.AddUTF8(v.EnumType)
		w.u2(idx)
		if err == nil {
			idx, err = p.AddUTF8(v.EnumName)
			w.u2(idx)
		}
	case '@':
		if v.Annotation == nil {
			err = fmt.Errorf("nested annotation value is nil")
			break
		}
		c.writeAnnotation(w, *v.Annotation)
	case '[':
		w.count(len(v.Array), "array elements")
		for _, ev := range v.Array {
			c.writeElementValue(w, ev)
		}
	default:
		err = fmt.Errorf("unknown element value tag %q", v.Tag)
	}
	if err != nil {
		w.fail(err)
	}
}
