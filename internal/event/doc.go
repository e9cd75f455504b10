// Package event rewrites Forge event subscriptions into explicit registrar
// methods and checks subscriptions for consistency across class hierarchies.
//
// Rewriter scans one class at a time. Methods carrying @SubscribeEvent are
// validated and collected into static and instance sets, access is widened
// through an access.ClassTransformations, and up to two registrar methods are
// synthesized:
//
//	public static void patchwork$registerStaticEventHandlers(IEventBus bus)
//	public static void patchwork$registerInstanceEventHandlers(Owner self, IEventBus bus)
//
// Each registrar binds one Consumer per subscriber with invokedynamic through
// LambdaMetafactory and passes it to IEventBus.addListener.
//
// Checker accumulates every scanned class with its supertypes and, once the
// build is complete, reports subscriber signatures that collide along
// inheritance edges.
package event
