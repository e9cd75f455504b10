package classfile

import "fmt"

// BootstrapMethod is one entry of the BootstrapMethods attribute.
type BootstrapMethod struct {
	Ref  uint16 // MethodHandle constant
	Args []uint16
}

func (b BootstrapMethod) equal(o BootstrapMethod) bool {
	if b.Ref != o.Ref || len(b.Args) != len(o.Args) {
		return false
	}
	for i := range b.Args {
		if b.Args[i] != o.Args[i] {
			return false
		}
	}
	return true
}

func (c *Class) loadBootstraps() error {
	if c.bootstrapsLoaded {
		return nil
	}
	data, ok := c.Attribute(AttrBootstrapMethods)
	if ok {
		r := &reader{data: data}
		n := int(r.u2())
		c.bootstraps = make([]BootstrapMethod, 0, n)
		for i := 0; i < n && r.err == nil; i++ {
			b := BootstrapMethod{Ref: r.u2()}
			argc := int(r.u2())
			for j := 0; j < argc && r.err == nil; j++ {
				b.Args = append(b.Args, r.u2())
			}
			c.bootstraps = append(c.bootstraps, b)
		}
		if r.err != nil {
			return fmt.Errorf("%w: %w", ErrBootstrapMethods, r.err)
		}
		if r.off != len(data) {
			return fmt.Errorf("%w: %d trailing bytes", ErrBootstrapMethods, len(data)-r.off)
		}
	}
	c.bootstrapsLoaded = true
	return nil
}

// Bootstraps returns the bootstrap method table.
func (c *Class) Bootstraps() ([]BootstrapMethod, error) {
	if err := c.loadBootstraps(); err != nil {
		return nil, err
	}
	return c.bootstraps, nil
}

// AddBootstrapMethod interns a bootstrap method and returns its index.
func (c *Class) AddBootstrapMethod(handle Handle, args ...uint16) (uint16, error) {
	if err := c.loadBootstraps(); err != nil {
		return 0, err
	}
	ref, err := c.Pool.AddMethodHandle(handle)
	if err != nil {
		return 0, err
	}
	b := BootstrapMethod{Ref: ref, Args: args}
	for i, existing := range c.bootstraps {
		if existing.equal(b) {
			return uint16(i), nil //nolint:gosec // table length is a u2
		}
	}
	if len(c.bootstraps) >= 0xFFFF {
		return 0, fmt.Errorf("%s table full: %w", AttrBootstrapMethods, ErrTooLarge)
	}
	c.bootstraps = append(c.bootstraps, b)
	c.bootstrapsDirty = true
	return uint16(len(c.bootstraps) - 1), nil //nolint:gosec // checked above
}

// flushBootstraps re-encodes the table in place of the original attribute.
func (c *Class) flushBootstraps() error {
	if !c.bootstrapsDirty {
		return nil
	}
	w := &writer{}
	w.count(len(c.bootstraps), "bootstrap methods")
	for _, b := range c.bootstraps {
		w.u2(b.Ref)
		w.count(len(b.Args), "bootstrap arguments")
		for _, a := range b.Args {
			w.u2(a)
		}
	}
	if w.err != nil {
		return w.err
	}
	for i := range c.Attributes {
		if c.Attributes[i].Name == AttrBootstrapMethods {
			c.Attributes[i].Data = w.buf
			c.bootstrapsDirty = false
			return nil
		}
	}
	c.Attributes = append(c.Attributes, Attribute{Name: AttrBootstrapMethods, Data: w.buf})
	c.bootstrapsDirty = false
	return nil
}
