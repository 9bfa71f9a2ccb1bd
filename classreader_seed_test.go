// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import "testing"

// minimalClassBytes builds a hand-assembled .class file with a two-entry
// constant pool (a Utf8 "Foo" at index 1, a Class referencing it at index
// 2), no fields, no methods, no attributes -- just enough structure for
// NewSymbolTableFromReader to walk past without needing a real compiled
// class file.
func minimalClassBytes() []byte {
	return []byte{
		0xCA, 0xFE, 0xBA, 0xBE, // magic
		0x00, 0x00, // minor
		0x00, 0x34, // major
		0x00, 0x03, // constant_pool_count (entries 1, 2 used)
		0x01, 0x00, 0x03, 'F', 'o', 'o', // #1 Utf8 "Foo"
		0x07, 0x00, 0x01, // #2 Class -> #1
		0x00, 0x21, // access_flags
		0x00, 0x02, // this_class -> #2
		0x00, 0x00, // super_class
		0x00, 0x00, // interfaces_count
		0x00, 0x00, // fields_count
		0x00, 0x00, // methods_count
		0x00, 0x00, // attributes_count
	}
}

func TestNewSymbolTableFromReaderPreservesOriginalIndices(t *testing.T) {
	r := NewBytes(minimalClassBytes(), ReaderOptions{})

	table, err := NewSymbolTableFromReader(r, "Foo")
	if err != nil {
		t.Fatalf("NewSymbolTableFromReader: %v", err)
	}
	if table.ConstantPoolCount() != 3 {
		t.Fatalf("ConstantPoolCount() = %d, want 3", table.ConstantPoolCount())
	}

	utf8, err := table.AddUTF8("Foo")
	if err != nil {
		t.Fatalf("AddUTF8: %v", err)
	}
	if utf8.Index != 1 {
		t.Errorf("AddUTF8(%q).Index = %d, want 1 (seeded entry, not re-added)", "Foo", utf8.Index)
	}
	if table.ConstantPoolCount() != 3 {
		t.Errorf("ConstantPoolCount() grew to %d after re-adding a seeded entry, want unchanged 3", table.ConstantPoolCount())
	}

	class, err := table.AddClass("Foo")
	if err != nil {
		t.Fatalf("AddClass: %v", err)
	}
	if class.Index != 2 {
		t.Errorf("AddClass(%q).Index = %d, want 2 (seeded entry, not re-added)", "Foo", class.Index)
	}

	fresh, err := table.AddUTF8("Bar")
	if err != nil {
		t.Fatalf("AddUTF8(Bar): %v", err)
	}
	if fresh.Index != 3 {
		t.Errorf("AddUTF8(%q).Index = %d, want 3 (first genuinely new entry)", "Bar", fresh.Index)
	}
	if table.ConstantPoolCount() != 4 {
		t.Errorf("ConstantPoolCount() = %d after one new entry, want 4", table.ConstantPoolCount())
	}
}

func TestNewClassWriterFromReaderSeedsAndVisitMethodVerbatimCopies(t *testing.T) {
	r := NewBytes(minimalClassBytes(), ReaderOptions{})

	w, err := NewClassWriterFromReader(r, ComputeFrames, WriterOptions{})
	if err != nil {
		t.Fatalf("NewClassWriterFromReader: %v", err)
	}
	w.VisitHeader(0x34, 0x21, "Foo", "", "", nil)

	raw := RawMethodInfo{
		AccessFlags: 0x0001,
		Name:        "Foo",
		Descriptor:  "()V",
		Bytes: []byte{
			0x00, 0x01, // access_flags (ACC_PUBLIC)
			0x00, 0x01, // name_index -> #1 "Foo"
			0x00, 0x01, // descriptor_index -> #1 "Foo" (stand-in, not a real descriptor)
			0x00, 0x00, // attributes_count
		},
	}
	w.VisitMethodVerbatim(raw)
	w.VisitEnd()

	out, err := w.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}

	// out ends with methods..., then a trailing 2-byte class
	// attributes_count (0, since nothing set one) -- no class attribute was
	// added for this minimal header.
	methodStart := len(out) - 2 - len(raw.Bytes)
	methodsCountOffset := methodStart - 2
	gotCount := int(out[methodsCountOffset])<<8 | int(out[methodsCountOffset+1])
	if gotCount != 1 {
		t.Fatalf("methods_count = %d, want 1", gotCount)
	}
	for i, b := range raw.Bytes {
		if out[methodStart+i] != b {
			t.Fatalf("verbatim method byte %d = %#x, want %#x", i, out[methodStart+i], b)
		}
	}
}
