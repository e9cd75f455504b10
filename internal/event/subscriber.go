package event

import (
	"fmt"

	"github.com/valoeghese/patchwork-patcher/internal/classfile"
	"github.com/valoeghese/patchwork-patcher/internal/descriptor"
)

// Subscriber is one @SubscribeEvent method.
type Subscriber struct {
	Owner          string
	Method         string
	Descriptor     string
	Access         uint16 // as declared, before widening
	EventType      string
	Generic        descriptor.Generic
	HasReturnValue bool
}

// IsStatic reports whether the subscriber is a static method.
func (s Subscriber) IsStatic() bool { return s.Access&classfile.AccStatic != 0 }

// IsFinal reports whether the subscriber method is final.
func (s Subscriber) IsFinal() bool { return s.Access&classfile.AccFinal != 0 }

func (s Subscriber) String() string {
	return fmt.Sprintf("%s.%s%s", s.Owner, s.Method, s.Descriptor)
}

type subscriberKey struct {
	method, desc string
	access       uint16
}

func (s Subscriber) key() subscriberKey {
	return subscriberKey{method: s.Method, desc: s.Descriptor, access: s.Access}
}

// subscriberSet keeps declaration order and collapses duplicates.
type subscriberSet struct {
	items []Subscriber
	seen  map[subscriberKey]struct{}
}

func (s *subscriberSet) add(sub Subscriber) bool {
	if s.seen == nil {
		s.seen = make(map[subscriberKey]struct{})
	}
	k := sub.key()
	if _, dup := s.seen[k]; dup {
		return false
	}
	s.seen[k] = struct{}{}
	s.items = append(s.items, sub)
	return true
}

// Bus selects the event bus a group registers on.
type Bus uint8

const (
	BusForge Bus = iota
	BusMod
)

func (b Bus) String() string {
	if b == BusMod {
		return "MOD"
	}
	return "FORGE"
}

// ParseBus maps the enum constant name to a Bus.
func ParseBus(name string) (Bus, error) {
	switch name {
	case "FORGE":
		return BusForge, nil
	case "MOD":
		return BusMod, nil
	}
	return BusForge, fmt.Errorf("unknown bus %q", name)
}

// SubscriberGroup is a class-level @Mod.EventBusSubscriber.
type SubscriberGroup struct {
	Owner string
	Buses []Bus
	AppID string // empty when the annotation names no modid
}

// Scan is what Rewrite learned about one class.
type Scan struct {
	Owner      string
	Super      string
	Interfaces []string
	Interface  bool
	Static     []Subscriber
	Instance   []Subscriber
	Group      *SubscriberGroup
}

// Subscribers returns static then instance subscribers.
func (s *Scan) Subscribers() []Subscriber {
	out := make([]Subscriber, 0, len(s.Static)+len(s.Instance))
	out = append(out, s.Static...)
	return append(out, s.Instance...)
}

// GroupValid reports whether the class's group may be registered, which
// requires at least one static subscriber.
func (s *Scan) GroupValid() bool {
	return s.Group != nil && len(s.Static) > 0
}
