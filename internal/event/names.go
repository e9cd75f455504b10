package event

import "github.com/valoeghese/patchwork-patcher/internal/classfile"

// Reserved registrar methods.
const (
	StaticRegistrarName   = "patchwork$registerStaticEventHandlers"
	StaticRegistrarDesc   = "(" + EventBusDesc + ")V"
	InstanceRegistrarName = "patchwork$registerInstanceEventHandlers"
)

// InstanceRegistrarDesc returns the instance registrar descriptor for owner.
func InstanceRegistrarDesc(owner string) string {
	return "(L" + owner + ";" + EventBusDesc + ")V"
}

// Forge types.
const (
	EventBusClass         = "net/minecraftforge/eventbus/api/IEventBus"
	EventBusDesc          = "L" + EventBusClass + ";"
	SubscribeEventDesc    = "Lnet/minecraftforge/eventbus/api/SubscribeEvent;"
	EventBusSubscriber    = "Lnet/minecraftforge/fml/common/Mod$EventBusSubscriber;"
	EventBusSubscriberBus = "Lnet/minecraftforge/fml/common/Mod$EventBusSubscriber$Bus;"
)

// Metafactory is the LambdaMetafactory bootstrap used for every Consumer.
var Metafactory = classfile.Handle{
	Kind:  classfile.RefInvokeStatic,
	Owner: metafactoryOwner,
	Name:  metafactoryName,
	Desc:  metafactoryDesc,
}

const (
	addListenerName = "addListener"
	addListenerDesc = "(Ljava/util/function/Consumer;)V"

	consumerName       = "accept"
	consumerErasedDesc = "(Ljava/lang/Object;)V"

	metafactoryOwner = "java/lang/invoke/LambdaMetafactory"
	metafactoryName  = "metafactory"
	metafactoryDesc  = "(Ljava/lang/invoke/MethodHandles$Lookup;Ljava/lang/String;Ljava/lang/invoke/MethodType;" +
		"Ljava/lang/invoke/MethodType;Ljava/lang/invoke/MethodHandle;Ljava/lang/invoke/MethodType;)" +
		"Ljava/lang/invoke/CallSite;"

	objectsClass          = "java/util/Objects"
	requireNonNullName    = "requireNonNull"
	requireNonNullDesc    = "(Ljava/lang/Object;)Ljava/lang/Object;"
	consumerFactoryStatic = "()Ljava/util/function/Consumer;"
)

func consumerFactoryBound(owner string) string {
	return "(L" + owner + ";)Ljava/util/function/Consumer;"
}
