// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import "testing"

func TestSymbolTableDedupsEqualConstants(t *testing.T) {
	st := NewSymbolTable("com/example/Foo")

	c1, err := st.AddClass("com/example/Foo")
	if err != nil {
		t.Fatalf("AddClass: %v", err)
	}
	c2, err := st.AddClass("com/example/Foo")
	if err != nil {
		t.Fatalf("AddClass: %v", err)
	}
	if c1 != c2 {
		t.Errorf("AddClass did not dedup: got distinct symbols %v, %v", c1, c2)
	}

	u1, _ := st.AddUTF8("hello")
	u2, _ := st.AddUTF8("hello")
	if u1 != u2 {
		t.Errorf("AddUTF8 did not dedup")
	}

	i1, _ := st.AddInteger(42)
	i2, _ := st.AddInteger(42)
	if i1 != i2 {
		t.Errorf("AddInteger did not dedup")
	}

	f1, _ := st.AddFieldref("com/example/Foo", "bar", "I")
	f2, _ := st.AddFieldref("com/example/Foo", "bar", "I")
	if f1 != f2 {
		t.Errorf("AddFieldref did not dedup")
	}
}

func TestSymbolTableDistinctValuesGetDistinctIndices(t *testing.T) {
	st := NewSymbolTable("com/example/Foo")

	a, err := st.AddInteger(1)
	if err != nil {
		t.Fatalf("AddInteger: %v", err)
	}
	b, err := st.AddInteger(2)
	if err != nil {
		t.Fatalf("AddInteger: %v", err)
	}
	if a.Index == b.Index {
		t.Errorf("distinct integers got same index %d", a.Index)
	}
}

func TestSymbolTableLongAndDoubleReserveTwoSlots(t *testing.T) {
	st := NewSymbolTable("com/example/Foo")

	before := st.ConstantPoolCount()
	if _, err := st.AddLong(123456789); err != nil {
		t.Fatalf("AddLong: %v", err)
	}
	after := st.ConstantPoolCount()
	if after-before != 2 {
		t.Errorf("AddLong advanced constantPoolCount by %d, want 2", after-before)
	}

	before = st.ConstantPoolCount()
	if _, err := st.AddDouble(3.14); err != nil {
		t.Fatalf("AddDouble: %v", err)
	}
	after = st.ConstantPoolCount()
	if after-before != 2 {
		t.Errorf("AddDouble advanced constantPoolCount by %d, want 2", after-before)
	}
}

func TestSymbolTableMethodHandleDispatchesFieldVsMethodRef(t *testing.T) {
	st := NewSymbolTable("com/example/Foo")

	getField, err := st.AddMethodHandle(Handle{Kind: HGetField, Owner: "com/example/Foo", Name: "x", Descriptor: "I"})
	if err != nil {
		t.Fatalf("AddMethodHandle(getfield): %v", err)
	}
	if getField.ReferenceKind() != HGetField || !getField.IsFieldHandle() {
		t.Errorf("getField handle not recognized as a field handle")
	}

	invokeStatic, err := st.AddMethodHandle(Handle{Kind: HInvokeStatic, Owner: "com/example/Foo", Name: "m", Descriptor: "()V"})
	if err != nil {
		t.Fatalf("AddMethodHandle(invokestatic): %v", err)
	}
	if invokeStatic.IsFieldHandle() {
		t.Errorf("invokeStatic handle wrongly recognized as a field handle")
	}
}

func TestSymbolTableBootstrapMethodsDedupByContent(t *testing.T) {
	st := NewSymbolTable("com/example/Foo")
	bootstrap := Handle{Kind: HInvokeStatic, Owner: "com/example/Boot", Name: "bsm", Descriptor: "(...)Ljava/lang/invoke/CallSite;"}

	s1, err := st.AddInvokeDynamic("run", "()V", bootstrap, []any{int32(1)})
	if err != nil {
		t.Fatalf("AddInvokeDynamic: %v", err)
	}
	s2, err := st.AddInvokeDynamic("run2", "()V", bootstrap, []any{int32(1)})
	if err != nil {
		t.Fatalf("AddInvokeDynamic: %v", err)
	}
	if st.BootstrapMethodCount() != 1 {
		t.Errorf("BootstrapMethodCount() = %d, want 1 (same bootstrap+args should dedup)", st.BootstrapMethodCount())
	}
	if s1.Data != s2.Data {
		t.Errorf("differing invokedynamic names got different bootstrap method indices: %d vs %d", s1.Data, s2.Data)
	}

	if _, err := st.AddInvokeDynamic("run3", "()V", bootstrap, []any{int32(2)}); err != nil {
		t.Fatalf("AddInvokeDynamic: %v", err)
	}
	if st.BootstrapMethodCount() != 2 {
		t.Errorf("BootstrapMethodCount() = %d, want 2 after a distinct-argument bootstrap", st.BootstrapMethodCount())
	}
}

func TestSymbolTableTypeTableDedupsAndMergedTypeIsOrderIndependent(t *testing.T) {
	st := NewSymbolTable("com/example/Foo")

	a := st.AddType("java/lang/String")
	b := st.AddType("java/lang/String")
	if a != b {
		t.Errorf("AddType did not dedup equal internal names")
	}

	c := st.AddType("java/lang/Object")
	m1 := st.AddMergedType(a.Index, c.Index)
	m2 := st.AddMergedType(c.Index, a.Index)
	if m1 != m2 {
		t.Errorf("AddMergedType is not order independent: got distinct symbols")
	}

	idx1, idx2 := m1.MergedTypeIndices()
	if idx1 > idx2 {
		t.Errorf("MergedTypeIndices() = (%d, %d), want normalized (min, max)", idx1, idx2)
	}
}

func TestSymbolTableUninitializedTypeKeyedByOffset(t *testing.T) {
	st := NewSymbolTable("com/example/Foo")

	a := st.AddUninitializedType("com/example/Foo", 10)
	b := st.AddUninitializedType("com/example/Foo", 10)
	if a != b {
		t.Errorf("AddUninitializedType did not dedup identical (name, offset)")
	}

	c := st.AddUninitializedType("com/example/Foo", 20)
	if a == c {
		t.Errorf("AddUninitializedType conflated distinct offsets")
	}
	if c.UninitializedOffset() != 20 {
		t.Errorf("UninitializedOffset() = %d, want 20", c.UninitializedOffset())
	}
}

func TestConstantDynamicEqualityIsValueBased(t *testing.T) {
	bootstrap := Handle{Kind: HInvokeStatic, Owner: "com/example/Boot", Name: "bsm", Descriptor: "()V"}
	a := ConstantDynamic{Name: "k", Descriptor: "I", BootstrapMethod: bootstrap, BootstrapMethodArguments: []any{int32(1), "x"}}
	b := ConstantDynamic{Name: "k", Descriptor: "I", BootstrapMethod: bootstrap, BootstrapMethodArguments: []any{int32(1), "x"}}
	if !a.Equal(b) {
		t.Errorf("identical ConstantDynamic values compared unequal")
	}

	c := ConstantDynamic{Name: "k", Descriptor: "I", BootstrapMethod: bootstrap, BootstrapMethodArguments: []any{int32(2), "x"}}
	if a.Equal(c) {
		t.Errorf("distinct ConstantDynamic argument lists compared equal")
	}

	if a.Size() != 1 {
		t.Errorf("Size() for descriptor %q = %d, want 1", a.Descriptor, a.Size())
	}
	d := ConstantDynamic{Descriptor: "J"}
	if d.Size() != 2 {
		t.Errorf("Size() for descriptor %q = %d, want 2", d.Descriptor, d.Size())
	}
}

func TestSymbolTableDedupSurvivesRehash(t *testing.T) {
	st := NewSymbolTable("com/example/Foo")

	// newSymbolHashSet starts at 256 buckets and rehashes once insertions
	// exceed 3/4 load factor (192), so 250 distinct UTF8 entries forces at
	// least one rehash of constantHash mid-way through.
	syms := make([]*Symbol, 250)
	for i := range syms {
		sym, err := st.AddUTF8(string(rune('a')) + string(rune(i)))
		if err != nil {
			t.Fatalf("AddUTF8 #%d: %v", i, err)
		}
		syms[i] = sym
	}

	for i, want := range syms {
		got, err := st.AddUTF8(string(rune('a')) + string(rune(i)))
		if err != nil {
			t.Fatalf("re-AddUTF8 #%d: %v", i, err)
		}
		if got != want {
			t.Fatalf("entry %d did not dedup after rehash: got %v, want %v", i, got, want)
		}
	}
}

func TestSymbolTablePoolIndexOverflow(t *testing.T) {
	st := NewSymbolTable("com/example/Huge")
	st.constantPoolCount = 0xFFFF

	if _, err := st.AddClass("com/example/AnotherClass"); err == nil {
		t.Fatalf("expected overflow error once constant_pool_count exceeds 0xFFFF")
	}
}
