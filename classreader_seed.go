// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

// RawMethodInfo is one method_info structure's bytes, unparsed, alongside
// the access_flags/name/descriptor a caller needs to decide whether to
// keep it unchanged. See ClassWriter.VisitMethodVerbatim.
type RawMethodInfo struct {
	AccessFlags int
	Name        string
	Descriptor  string
	Bytes       []byte // the complete method_info structure (JVMS §4.6).
}

// methodsCountOffset indexes the constant pool if that has not happened
// yet, then walks this_class/super_class/interfaces/fields far enough to
// return the byte offset of methods_count, the point every caller that
// only cares about methods (or what follows them) actually needs.
func (r *Reader) methodsCountOffset() (int, error) {
	if r.cpInfoOffsets == nil {
		if err := r.indexConstantPool(); err != nil {
			return 0, err
		}
	}
	offset := r.cpEndOffset + 6 // access_flags, this_class, super_class
	interfacesCount := r.u2(offset)
	offset += 2 + 2*interfacesCount

	fieldsCount := r.u2(offset)
	offset += 2
	for i := 0; i < fieldsCount; i++ {
		offset = r.skipFieldOrMethod(offset)
	}
	return offset, nil
}

// locateBootstrapMethods indexes the constant pool and walks the class
// body far enough to find a BootstrapMethods attribute, without driving a
// ClassVisitor through any of it. NewSymbolTableFromReader calls this
// before seeding a table so that a Dynamic/InvokeDynamic entry already in
// the pool decodes correctly (it needs the bootstrap table, which sits
// after every field and method).
func (r *Reader) locateBootstrapMethods() error {
	offset, err := r.methodsCountOffset()
	if err != nil {
		return err
	}
	methodsCount := r.u2(offset)
	offset += 2
	for i := 0; i < methodsCount; i++ {
		offset = r.skipFieldOrMethod(offset)
	}
	r.scanClassAttributes(offset)
	return nil
}

// RawMethods returns every method_info structure's raw bytes unchanged,
// alongside its access flags/name/descriptor, without decoding any
// attribute. A ClassWriter built with NewClassWriterFromReader can splice
// these back in verbatim, via VisitMethodVerbatim, for a method a
// transformation leaves untouched: its seeded constant pool keeps the
// same indices these bytes already reference (spec.md §4.6 "mostly-add").
func (r *Reader) RawMethods() ([]RawMethodInfo, error) {
	offset, err := r.methodsCountOffset()
	if err != nil {
		return nil, err
	}
	methodsCount := r.u2(offset)
	offset += 2
	methods := make([]RawMethodInfo, methodsCount)
	for i := 0; i < methodsCount; i++ {
		start := offset
		access := r.u2(offset)
		name := r.utf8(r.u2(offset + 2))
		descriptor := r.utf8(r.u2(offset + 4))
		offset = r.skipFieldOrMethod(offset)
		raw := make([]byte, offset-start)
		copy(raw, r.bytes[start:offset])
		methods[i] = RawMethodInfo{AccessFlags: access, Name: name, Descriptor: descriptor, Bytes: raw}
	}
	return methods, nil
}
