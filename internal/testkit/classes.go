// Package testkit builds class-file fixtures and inspects generated code for
// tests.
package testkit

import (
	"fmt"

	"github.com/valoeghese/patchwork-patcher/internal/classfile"
)

// Forge annotation descriptors used by fixtures.
const (
	SubscribeEvent     = "Lnet/minecraftforge/eventbus/api/SubscribeEvent;"
	EventBusSubscriber = "Lnet/minecraftforge/fml/common/Mod$EventBusSubscriber;"
	BusEnum            = "Lnet/minecraftforge/fml/common/Mod$EventBusSubscriber$Bus;"
	Mod                = "Lnet/minecraftforge/fml/common/Mod;"
)

// ClassBuilder assembles a fixture class. Errors stick and surface from
// Class or Bytes.
type ClassBuilder struct {
	c   *classfile.Class
	err error
}

// NewClass starts a Java 8 class extending java/lang/Object.
func NewClass(name string, access uint16) *ClassBuilder {
	return &ClassBuilder{c: classfile.NewClass(classfile.VersionJava8, access|classfile.AccSuper, name, "java/lang/Object")}
}

// NewInterface starts a Java 8 interface.
func NewInterface(name string) *ClassBuilder {
	return &ClassBuilder{c: classfile.NewClass(classfile.VersionJava8,
		classfile.AccPublic|classfile.AccInterface|classfile.AccAbstract, name, "java/lang/Object")}
}

// Version overrides the class file major version.
func (b *ClassBuilder) Version(major uint16) *ClassBuilder {
	b.c.Major = major
	return b
}

// Super sets the superclass.
func (b *ClassBuilder) Super(name string) *ClassBuilder {
	b.c.Super = name
	return b
}

// Implements adds interfaces.
func (b *ClassBuilder) Implements(names ...string) *ClassBuilder {
	b.c.Interfaces = append(b.c.Interfaces, names...)
	return b
}

// Annotate adds a class-level annotation.
func (b *ClassBuilder) Annotate(a classfile.Annotation) *ClassBuilder {
	if b.err != nil {
		return b
	}
	b.c.Attributes, b.err = b.c.AddAnnotation(b.c.Attributes, a)
	return b
}

// Mod marks the class as an application entry point.
func (b *ClassBuilder) Mod(id string) *ClassBuilder {
	return b.Annotate(classfile.Annotation{
		Type:     Mod,
		Visible:  true,
		Elements: []classfile.Element{{Name: "value", Value: classfile.StringValue(id)}},
	})
}

// Group adds @Mod.EventBusSubscriber. An empty modid or no buses leave the
// element out.
func (b *ClassBuilder) Group(modid string, buses ...string) *ClassBuilder {
	a := classfile.Annotation{Type: EventBusSubscriber, Visible: true}
	if modid != "" {
		a.Elements = append(a.Elements, classfile.Element{Name: "modid", Value: classfile.StringValue(modid)})
	}
	switch len(buses) {
	case 0:
	case 1:
		a.Elements = append(a.Elements, classfile.Element{Name: "bus", Value: classfile.EnumValue(BusEnum, buses[0])})
	default:
		vals := make([]classfile.ElementValue, 0, len(buses))
		for _, bus := range buses {
			vals = append(vals, classfile.EnumValue(BusEnum, bus))
		}
		a.Elements = append(a.Elements, classfile.Element{Name: "bus", Value: classfile.ArrayValue(vals...)})
	}
	return b.Annotate(a)
}

// Method adds a method. Non-abstract methods get a body that returns.
func (b *ClassBuilder) Method(access uint16, name, desc string, anns ...classfile.Annotation) *ClassBuilder {
	if b.err != nil {
		return b
	}
	m := &classfile.Member{Access: access, Name: name, Descriptor: desc}
	if access&(classfile.AccAbstract|classfile.AccNative) == 0 {
		args, _, err := classfile.ArgSlots(desc)
		if err != nil {
			b.err = err
			return b
		}
		if access&classfile.AccStatic == 0 {
			args++
		}
		attr, err := b.c.NewCode(args).Return().Attribute()
		if err != nil {
			b.err = fmt.Errorf("method %s: %w", name, err)
			return b
		}
		m.Attributes = append(m.Attributes, attr)
	}
	for _, a := range anns {
		if m.Attributes, b.err = b.c.AddAnnotation(m.Attributes, a); b.err != nil {
			return b
		}
	}
	b.c.AddMethod(m)
	return b
}

// Subscriber adds a method marked @SubscribeEvent.
func (b *ClassBuilder) Subscriber(access uint16, name, desc string) *ClassBuilder {
	return b.Method(access, name, desc, classfile.Annotation{Type: SubscribeEvent, Visible: true})
}

// GenericSubscriber adds a subscriber with a Signature attribute.
func (b *ClassBuilder) GenericSubscriber(access uint16, name, desc, signature string) *ClassBuilder {
	b.Subscriber(access, name, desc)
	if b.err != nil {
		return b
	}
	idx, err := b.c.Pool.AddUTF8(signature)
	if err != nil {
		b.err = err
		return b
	}
	m := b.c.Methods[len(b.c.Methods)-1]
	m.Attributes = append(m.Attributes, classfile.Attribute{
		Name: classfile.AttrSignature,
		Data: []byte{byte(idx >> 8), byte(idx)},
	})
	return b
}

// Field adds a field.
func (b *ClassBuilder) Field(access uint16, name, desc string) *ClassBuilder {
	b.c.Fields = append(b.c.Fields, &classfile.Member{Access: access, Name: name, Descriptor: desc})
	return b
}

// Class returns the in-memory class.
func (b *ClassBuilder) Class() (*classfile.Class, error) {
	return b.c, b.err
}

// Bytes serializes the class.
func (b *ClassBuilder) Bytes() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.c.Bytes()
}
