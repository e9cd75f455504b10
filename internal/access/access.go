// Package access records visibility-widening requests for a class and its
// members and applies them to the parsed class before it is written.
package access

import "github.com/valoeghese/patchwork-patcher/internal/classfile"

// Strength orders widening requests. Merging keeps the maximum.
type Strength uint8

const (
	None Strength = iota
	MakePublic
	DefinalizeMakePublic
)

func (s Strength) String() string {
	switch s {
	case MakePublic:
		return "make-public"
	case DefinalizeMakePublic:
		return "definalize-make-public"
	}
	return "none"
}

// Merge returns the stronger of s and o.
func (s Strength) Merge(o Strength) Strength {
	if o > s {
		return o
	}
	return s
}

// Apply rewrites access flags. MakePublic clears private and protected and
// sets public; DefinalizeMakePublic also clears final.
func (s Strength) Apply(flags uint16) uint16 {
	switch s {
	case MakePublic:
		return flags&^(classfile.AccPrivate|classfile.AccProtected) | classfile.AccPublic
	case DefinalizeMakePublic:
		return flags&^(classfile.AccPrivate|classfile.AccProtected|classfile.AccFinal) | classfile.AccPublic
	}
	return flags
}

// MemberKey identifies a field or method by name and descriptor.
type MemberKey struct {
	Name       string
	Descriptor string
}

// ClassTransformations collects requests for one class. The zero value is
// ready to use. It is not safe for concurrent use; each module owns one.
type ClassTransformations struct {
	class   Strength
	methods map[MemberKey]Strength
	fields  map[MemberKey]Strength
}

// SetClass merges a class-wide request.
func (t *ClassTransformations) SetClass(s Strength) {
	t.class = t.class.Merge(s)
}

// Class returns the class-wide strength.
func (t *ClassTransformations) Class() Strength { return t.class }

// AddMethod merges a request for a method.
func (t *ClassTransformations) AddMethod(name, desc string, s Strength) {
	if t.methods == nil {
		t.methods = make(map[MemberKey]Strength)
	}
	k := MemberKey{Name: name, Descriptor: desc}
	t.methods[k] = t.methods[k].Merge(s)
}

// AddField merges a request for a field.
func (t *ClassTransformations) AddField(name, desc string, s Strength) {
	if t.fields == nil {
		t.fields = make(map[MemberKey]Strength)
	}
	k := MemberKey{Name: name, Descriptor: desc}
	t.fields[k] = t.fields[k].Merge(s)
}

// Method returns the recorded strength for a method.
func (t *ClassTransformations) Method(name, desc string) Strength {
	return t.methods[MemberKey{Name: name, Descriptor: desc}]
}

// Field returns the recorded strength for a field.
func (t *ClassTransformations) Field(name, desc string) Strength {
	return t.fields[MemberKey{Name: name, Descriptor: desc}]
}

// Len returns the number of recorded member requests.
func (t *ClassTransformations) Len() int {
	return len(t.methods) + len(t.fields)
}

// Empty reports whether nothing would change on Apply.
func (t *ClassTransformations) Empty() bool {
	if t.class != None {
		return false
	}
	for _, s := range t.methods {
		if s != None {
			return false
		}
	}
	for _, s := range t.fields {
		if s != None {
			return false
		}
	}
	return true
}

// Apply raises access on the class and on every recorded member that the
// class declares, returning how many flags changed. Requests for members
// the class does not declare are ignored.
func (t *ClassTransformations) Apply(c *classfile.Class) int {
	changed := 0
	if next := t.class.Apply(c.Access); next != c.Access {
		c.Access = next
		changed++
	}
	for _, m := range c.Methods {
		s, ok := t.methods[MemberKey{Name: m.Name, Descriptor: m.Descriptor}]
		if !ok {
			continue
		}
		if next := s.Apply(m.Access); next != m.Access {
			m.Access = next
			changed++
		}
	}
	for _, f := range c.Fields {
		s, ok := t.fields[MemberKey{Name: f.Name, Descriptor: f.Descriptor}]
		if !ok {
			continue
		}
		if next := s.Apply(f.Access); next != f.Access {
			f.Access = next
			changed++
		}
	}
	return changed
}
