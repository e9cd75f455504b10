package event

import (
	"strings"

	"github.com/valoeghese/patchwork-patcher/internal/classfile"
)

// handleKind picks how the bound method handle dispatches.
func handleKind(c *classfile.Class, sub Subscriber) classfile.RefKind {
	switch {
	case sub.IsStatic():
		return classfile.RefInvokeStatic
	case c.IsInterface():
		return classfile.RefInvokeInterface
	case c.IsFinal() || sub.IsFinal():
		return classfile.RefInvokeSpecial
	}
	return classfile.RefInvokeVirtual
}

// voidDescriptor returns desc with its return type replaced by V, the
// instantiated method type of a Consumer.
func voidDescriptor(desc string) string {
	if i := strings.LastIndexByte(desc, ')'); i >= 0 {
		return desc[:i+1] + "V"
	}
	return desc
}

// consumerBootstrap interns the metafactory bootstrap binding sub.
func consumerBootstrap(c *classfile.Class, sub Subscriber) (uint16, error) {
	p := c.Pool
	erased, err := p.AddMethodType(consumerErasedDesc)
	if err != nil {
		return 0, err
	}
	impl, err := p.AddMethodHandle(classfile.Handle{
		Kind:      handleKind(c, sub),
		Owner:     c.Name,
		Name:      sub.Method,
		Desc:      sub.Descriptor,
		Interface: c.IsInterface(),
	})
	if err != nil {
		return 0, err
	}
	instantiated, err := p.AddMethodType(voidDescriptor(sub.Descriptor))
	if err != nil {
		return 0, err
	}
	return c.AddBootstrapMethod(Metafactory, erased, impl, instantiated)
}

func emitStaticRegistrar(c *classfile.Class, subs []Subscriber) error {
	code := c.NewCode(1)
	for _, sub := range subs {
		bsm, err := consumerBootstrap(c, sub)
		if err != nil {
			return err
		}
		code.ALoad(0).
			InvokeDynamic(bsm, consumerName, consumerFactoryStatic).
			InvokeInterface(EventBusClass, addListenerName, addListenerDesc)
	}
	code.Return()
	return addRegistrar(c, StaticRegistrarName, StaticRegistrarDesc, code)
}

func emitInstanceRegistrar(c *classfile.Class, subs []Subscriber) error {
	code := c.NewCode(2)
	code.ALoad(0).
		InvokeStatic(objectsClass, requireNonNullName, requireNonNullDesc, false).
		Pop()
	factory := consumerFactoryBound(c.Name)
	for _, sub := range subs {
		bsm, err := consumerBootstrap(c, sub)
		if err != nil {
			return err
		}
		code.ALoad(1).
			ALoad(0).
			InvokeDynamic(bsm, consumerName, factory).
			InvokeInterface(EventBusClass, addListenerName, addListenerDesc)
	}
	code.Return()
	return addRegistrar(c, InstanceRegistrarName, InstanceRegistrarDesc(c.Name), code)
}

func addRegistrar(c *classfile.Class, name, desc string, code *classfile.Code) error {
	attr, err := code.Attribute()
	if err != nil {
		return err
	}
	c.AddMethod(&classfile.Member{
		Access:     classfile.AccPublic | classfile.AccStatic,
		Name:       name,
		Descriptor: desc,
		Attributes: []classfile.Attribute{attr},
	})
	return nil
}
