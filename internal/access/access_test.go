package access

import (
	"testing"

	"github.com/valoeghese/patchwork-patcher/internal/classfile"
)

func TestMergeNeverWeakens(t *testing.T) {
	all := []Strength{None, MakePublic, DefinalizeMakePublic}
	for _, first := range all {
		for _, second := range all {
			var ct ClassTransformations
			ct.AddMethod("m", "()V", first)
			ct.AddMethod("m", "()V", second)
			want := max(first, second)
			if got := ct.Method("m", "()V"); got != want {
				t.Errorf("%v then %v = %v, want %v", first, second, got, want)
			}
			ct.SetClass(first)
			ct.SetClass(second)
			if ct.Class() != want {
				t.Errorf("class %v then %v = %v", first, second, ct.Class())
			}
		}
	}
}

func TestApplyTouchesOnlyRecordedMembers(t *testing.T) {
	c := classfile.NewClass(classfile.VersionJava8, classfile.AccSuper, "a/B", "java/lang/Object")
	c.Methods = []*classfile.Member{
		{Access: classfile.AccPrivate | classfile.AccStatic, Name: "onEvent", Descriptor: "(La/E;)V"},
		{Access: classfile.AccPrivate, Name: "onEvent", Descriptor: "(La/F;)V"},
		{Access: classfile.AccProtected, Name: "other", Descriptor: "()V"},
	}
	c.Fields = []*classfile.Member{
		{Access: classfile.AccPrivate | classfile.AccStatic | classfile.AccFinal, Name: "HOLDER", Descriptor: "La/Item;"},
	}
	var ct ClassTransformations
	ct.SetClass(MakePublic)
	ct.AddMethod("onEvent", "(La/E;)V", MakePublic)
	ct.AddMethod("missing", "()V", DefinalizeMakePublic)
	ct.AddField("HOLDER", "La/Item;", DefinalizeMakePublic)

	if n := ct.Apply(c); n != 3 {
		t.Fatalf("changed = %d, want 3", n)
	}
	if c.Access != classfile.AccSuper|classfile.AccPublic {
		t.Errorf("class access = %#x", c.Access)
	}
	if c.Methods[0].Access != classfile.AccPublic|classfile.AccStatic {
		t.Errorf("onEvent(E) access = %#x", c.Methods[0].Access)
	}
	if c.Methods[1].Access != classfile.AccPrivate {
		t.Errorf("onEvent(F) must be untouched, got %#x", c.Methods[1].Access)
	}
	if c.Methods[2].Access != classfile.AccProtected {
		t.Errorf("other must be untouched, got %#x", c.Methods[2].Access)
	}
	if c.Fields[0].Access != classfile.AccPublic|classfile.AccStatic {
		t.Errorf("field access = %#x", c.Fields[0].Access)
	}
	if n := ct.Apply(c); n != 0 {
		t.Errorf("second apply changed %d flags", n)
	}
}

func TestEmpty(t *testing.T) {
	var ct ClassTransformations
	if !ct.Empty() || ct.Len() != 0 {
		t.Fatal("zero value must be empty")
	}
	ct.AddMethod("m", "()V", None)
	if !ct.Empty() || ct.Len() != 1 {
		t.Fatal("None request must not make the set non-empty")
	}
	ct.AddField("f", "I", MakePublic)
	if ct.Empty() {
		t.Fatal("expected non-empty")
	}
}
