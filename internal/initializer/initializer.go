// Package initializer synthesizes the ForgeInitializer class that boots one
// application: it registers event registrars, constructs the application,
// registers automatic subscriber groups and registers object holders, in
// that order.
package initializer

import (
	"fmt"
	"strings"

	"github.com/valoeghese/patchwork-patcher/internal/classfile"
	"github.com/valoeghese/patchwork-patcher/internal/event"
)

// Step method names, in the order onForgeInitialize calls them.
const (
	StepRegisterEventRegistrars      = "registerEventRegistrars"
	StepConstructTargetMod           = "constructTargetMod"
	StepRegisterAutomaticSubscribers = "registerAutomaticSubscribers"
	StepRegisterObjectHolders        = "registerObjectHolders"
)

// Steps lists the step methods in call order.
var Steps = []string{
	StepRegisterEventRegistrars,
	StepConstructTargetMod,
	StepRegisterAutomaticSubscribers,
	StepRegisterObjectHolders,
}

// GeneratedPackage holds every synthesized initializer.
const GeneratedPackage = "patchwork_generated/"

const (
	initializerIface = "net/patchworkmc/api/ForgeInitializer"

	registrarRegistry     = "net/patchworkmc/impl/event/EventRegistrarRegistry"
	registrarRegistryDesc = "L" + registrarRegistry + ";"

	holderRegistry     = "net/patchworkmc/impl/registries/ObjectHolderRegistry"
	holderRegistryDesc = "L" + holderRegistry + ";"
	holderRegisterDesc = "(Ljava/lang/String;Ljava/lang/String;Ljava/lang/String;Ljava/util/function/Consumer;)V"

	forgeClass       = "net/minecraftforge/common/MinecraftForge"
	modContext       = "net/minecraftforge/fml/javafmlmod/FMLJavaModLoadingContext"
	modContextDesc   = "L" + modContext + ";"
	voidDesc         = "()V"
	getModIDDesc     = "()Ljava/lang/String;"
	consumerDesc     = "()Ljava/util/function/Consumer;"
	biConsumerDesc   = "()Ljava/util/function/BiConsumer;"
	erasedConsumer   = "(Ljava/lang/Object;)V"
	erasedBiConsumer = "(Ljava/lang/Object;Ljava/lang/Object;)V"
)

// Application is an @Mod class and its id.
type Application struct {
	ID    string
	Class string
}

// Registrar names a class whose registrars must be handed to the runtime.
type Registrar struct {
	Class     string
	Static    bool
	Instance  bool
	Interface bool
}

// Group is an automatic subscriber group bound to this initializer.
type Group struct {
	Owner     string
	Buses     []event.Bus
	Interface bool
}

// ObjectHolder describes a registry entry a shim fills in.
type ObjectHolder struct {
	Owner      string
	Field      string
	Descriptor string
	Registry   string
	Namespace  string
	Name       string
}

// ObjectHolderEntry pairs a generated shim class with its holder. The shim
// has a no-argument constructor and implements Consumer.
type ObjectHolderEntry struct {
	ShimName string
	Holder   ObjectHolder
}

// Plan is everything one initializer registers.
type Plan struct {
	App        Application
	Registrars []Registrar
	Groups     []Group
	Holders    []ObjectHolderEntry
}

// Name returns the internal name of the initializer for an @Mod class.
func Name(class string) string {
	return GeneratedPackage + class + "Initializer"
}

// EntrypointName returns the dotted name written to the entrypoint list.
func EntrypointName(class string) string {
	return strings.ReplaceAll(Name(class), "/", ".")
}

// Generate builds the initializer class for p.
func Generate(p Plan) (*classfile.Class, error) {
	if p.App.ID == "" || p.App.Class == "" {
		return nil, fmt.Errorf("initializer needs an application id and class, got %+v", p.App)
	}
	name := Name(p.App.Class)
	c := classfile.NewClass(classfile.VersionJava8, classfile.AccPublic|classfile.AccSuper|classfile.AccFinal,
		name, "java/lang/Object", initializerIface)

	ctor := c.NewCode(1).ALoad(0).InvokeSpecial("java/lang/Object", "<init>", voidDesc, false).Return()
	if err := addMethod(c, classfile.AccPublic, "<init>", voidDesc, ctor); err != nil {
		return nil, err
	}
	modID := c.NewCode(1).LdcString(p.App.ID).AReturn()
	if err := addMethod(c, classfile.AccPublic, "getModId", getModIDDesc, modID); err != nil {
		return nil, err
	}
	boot := c.NewCode(1)
	for _, step := range Steps {
		boot.InvokeStatic(name, step, voidDesc, false)
	}
	boot.Return()
	if err := addMethod(c, classfile.AccPublic, "onForgeInitialize", voidDesc, boot); err != nil {
		return nil, err
	}

	steps := []struct {
		name string
		emit func(*classfile.Class, *classfile.Code, Plan) error
	}{
		{StepRegisterEventRegistrars, emitRegisterEventRegistrars},
		{StepConstructTargetMod, emitConstructTargetMod},
		{StepRegisterAutomaticSubscribers, emitRegisterAutomaticSubscribers},
		{StepRegisterObjectHolders, emitRegisterObjectHolders},
	}
	for _, st := range steps {
		code := c.NewCode(0)
		if err := st.emit(c, code, p); err != nil {
			return nil, fmt.Errorf("%s: %w", st.name, err)
		}
		code.Return()
		if err := addMethod(c, classfile.AccPrivate|classfile.AccStatic, st.name, voidDesc, code); err != nil {
			return nil, fmt.Errorf("%s: %w", st.name, err)
		}
	}
	return c, nil
}

func addMethod(c *classfile.Class, access uint16, name, desc string, code *classfile.Code) error {
	attr, err := code.Attribute()
	if err != nil {
		return fmt.Errorf("%s%s: %w", name, desc, err)
	}
	c.AddMethod(&classfile.Member{
		Access:     access,
		Name:       name,
		Descriptor: desc,
		Attributes: []classfile.Attribute{attr},
	})
	return nil
}

// lambda interns a metafactory bootstrap for target with the given erased
// and instantiated types.
func lambda(c *classfile.Class, target classfile.Handle, erased string) (uint16, error) {
	e, err := c.Pool.AddMethodType(erased)
	if err != nil {
		return 0, err
	}
	h, err := c.Pool.AddMethodHandle(target)
	if err != nil {
		return 0, err
	}
	inst, err := c.Pool.AddMethodType(target.Desc)
	if err != nil {
		return 0, err
	}
	return c.AddBootstrapMethod(event.Metafactory, e, h, inst)
}

func emitRegisterEventRegistrars(c *classfile.Class, code *classfile.Code, p Plan) error {
	for _, r := range p.Registrars {
		if r.Static {
			bsm, err := lambda(c, classfile.Handle{
				Kind:      classfile.RefInvokeStatic,
				Owner:     r.Class,
				Name:      event.StaticRegistrarName,
				Desc:      event.StaticRegistrarDesc,
				Interface: r.Interface,
			}, erasedConsumer)
			if err != nil {
				return err
			}
			code.GetStatic(registrarRegistry, "INSTANCE", registrarRegistryDesc).
				LdcClass(r.Class).
				InvokeDynamic(bsm, "accept", consumerDesc).
				InvokeVirtual(registrarRegistry, "registerStatic", "(Ljava/lang/Class;Ljava/util/function/Consumer;)V")
		}
		if r.Instance {
			bsm, err := lambda(c, classfile.Handle{
				Kind:      classfile.RefInvokeStatic,
				Owner:     r.Class,
				Name:      event.InstanceRegistrarName,
				Desc:      event.InstanceRegistrarDesc(r.Class),
				Interface: r.Interface,
			}, erasedBiConsumer)
			if err != nil {
				return err
			}
			code.GetStatic(registrarRegistry, "INSTANCE", registrarRegistryDesc).
				LdcClass(r.Class).
				InvokeDynamic(bsm, "accept", biConsumerDesc).
				InvokeVirtual(registrarRegistry, "registerInstance", "(Ljava/lang/Class;Ljava/util/function/BiConsumer;)V")
		}
	}
	return code.Err()
}

func emitConstructTargetMod(_ *classfile.Class, code *classfile.Code, p Plan) error {
	code.New(p.App.Class).
		Dup().
		InvokeSpecial(p.App.Class, "<init>", voidDesc, false).
		Pop()
	return code.Err()
}

func emitRegisterAutomaticSubscribers(_ *classfile.Class, code *classfile.Code, p Plan) error {
	for _, g := range p.Groups {
		for _, bus := range g.Buses {
			switch bus {
			case event.BusMod:
				code.InvokeStatic(modContext, "get", "()"+modContextDesc, false).
					InvokeVirtual(modContext, "getModEventBus", "()"+event.EventBusDesc)
			default:
				code.GetStatic(forgeClass, "EVENT_BUS", event.EventBusDesc)
			}
			code.InvokeStatic(g.Owner, event.StaticRegistrarName, event.StaticRegistrarDesc, g.Interface)
		}
	}
	return code.Err()
}

func emitRegisterObjectHolders(_ *classfile.Class, code *classfile.Code, p Plan) error {
	for _, e := range p.Holders {
		code.GetStatic(holderRegistry, "INSTANCE", holderRegistryDesc).
			LdcString(e.Holder.Registry).
			LdcString(e.Holder.Namespace).
			LdcString(e.Holder.Name).
			New(e.ShimName).
			Dup().
			InvokeSpecial(e.ShimName, "<init>", voidDesc, false).
			InvokeVirtual(holderRegistry, "register", holderRegisterDesc)
	}
	return code.Err()
}
