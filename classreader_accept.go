// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

// Accept parses the whole class file and drives visitor through every
// event spec.md §6 lists, in JVMS §4.1 order. options combines the
// SkipCode/SkipDebug/SkipFrames/ExpandFrames/ExpandASMInsns flags.
func (r *Reader) Accept(visitor ClassVisitor, options int) error {
	if len(r.bytes) < 10 || r.u4(0) != 0xCAFEBABE {
		return &MalformedInputError{Reason: "missing CAFEBABE magic", Offset: 0}
	}
	minor := r.u2(4)
	major := r.u2(6)
	version := minor<<16 | major

	if err := r.indexConstantPool(); err != nil {
		return err
	}

	offset := r.cpEndOffset
	accessFlags := r.u2(offset)
	thisClass := r.class(r.u2(offset + 2))
	superClass := r.class(r.u2(offset + 4))
	offset += 6

	interfacesCount := r.u2(offset)
	offset += 2
	interfaces := make([]string, interfacesCount)
	for i := 0; i < interfacesCount; i++ {
		interfaces[i] = r.class(r.u2(offset))
		offset += 2
	}

	fieldsCount := r.u2(offset)
	offset += 2
	fieldSpans := make([]int, fieldsCount)
	for i := 0; i < fieldsCount; i++ {
		fieldSpans[i] = offset
		offset = r.skipFieldOrMethod(offset)
	}

	methodsCount := r.u2(offset)
	offset += 2
	methodSpans := make([]int, methodsCount)
	for i := 0; i < methodsCount; i++ {
		methodSpans[i] = offset
		offset = r.skipFieldOrMethod(offset)
	}

	// A first pass over the class attributes locates Signature and
	// BootstrapMethods before any field/method body needs them; everything
	// else is replayed in file order after VisitHeader below.
	signature, classAnno := r.scanClassAttributes(offset)

	visitor.VisitHeader(version, accessFlags, thisClass, signature, superClass, interfaces)

	for _, a := range classAnno {
		r.replayClassAttribute(visitor, a)
	}

	for _, start := range fieldSpans {
		r.readField(visitor, start)
	}
	for _, start := range methodSpans {
		r.readMethod(visitor, start, options)
	}

	visitor.VisitEnd()
	return nil
}

type deferredAttribute struct {
	name   string
	offset int // offset of the attribute body
	length int
}

// indexConstantPool walks the constant pool once, recording each entry's
// tag and info offset in cpInfoOffsets/cpTags. It resets
// bootstrapMethodsOffset to -1; scanClassAttributes sets it once the class
// attributes are reached and a BootstrapMethods attribute is found.
func (r *Reader) indexConstantPool() error {
	count := r.u2(8)
	r.cpTags = make([]byte, count)
	r.cpInfoOffsets = make([]int, count)
	r.bootstrapMethodsOffset = -1

	offset := 10
	for i := 1; i < count; i++ {
		tag := byte(r.u1(offset))
		r.cpTags[i] = tag
		r.cpInfoOffsets[i] = offset + 1
		offset++
		switch tag {
		case TagUtf8:
			offset += 2 + r.u2(offset)
		case TagInteger, TagFloat:
			offset += 4
		case TagLong, TagDouble:
			offset += 8
			i++
			if i < count {
				r.cpTags[i] = 0
			}
		case TagClass, TagString, TagMethodType, TagModule, TagPackage:
			offset += 2
		case TagFieldref, TagMethodref, TagInterfaceMethodref, TagNameAndType, TagDynamic, TagInvokeDynamic:
			offset += 4
		case TagMethodHandle:
			offset += 3
		default:
			return &MalformedInputError{Reason: "unrecognized constant pool tag", Offset: offset - 1}
		}
	}
	r.cpEndOffset = offset
	return nil
}

// scanClassAttributes reads the class's own attribute list, locating
// Signature and BootstrapMethods (needed before any Code attribute can
// decode ldc/invokedynamic constants) and collecting the rest to replay
// through the visitor in file order.
func (r *Reader) scanClassAttributes(offset int) (signature string, rest []deferredAttribute) {
	count := r.u2(offset)
	offset += 2
	for i := 0; i < count; i++ {
		nameIndex := r.u2(offset)
		length := int(r.u4(offset + 2))
		name := r.utf8(nameIndex)
		bodyOffset := offset + 6
		switch name {
		case AttrSignature:
			signature = r.utf8(r.u2(bodyOffset))
		case AttrBootstrapMethods:
			r.bootstrapMethodsOffset = bodyOffset
		default:
			rest = append(rest, deferredAttribute{name: name, offset: bodyOffset, length: length})
		}
		offset = bodyOffset + length
	}
	return signature, rest
}

// replayClassAttribute dispatches one previously-scanned class attribute
// to the matching visitor call, or VisitAttribute for anything this reader
// does not specially interpret.
func (r *Reader) replayClassAttribute(visitor ClassVisitor, a deferredAttribute) {
	switch a.name {
	case AttrSourceFile:
		visitor.VisitSource(r.utf8(r.u2(a.offset)), "")
	case AttrSourceDebugExtension:
		visitor.VisitSource("", DecodeModifiedUTF8(r.bytes[a.offset:a.offset+a.length]))
	case AttrModule:
		r.readModule(visitor, a.offset)
	case AttrNestHost:
		visitor.VisitNestHost(r.class(r.u2(a.offset)))
	case AttrNestMembers:
		r.readClassRefList(a.offset, visitor.VisitNestMember)
	case AttrPermittedSubclasses:
		r.readClassRefList(a.offset, visitor.VisitPermittedSubclass)
	case AttrEnclosingMethod:
		owner := r.class(r.u2(a.offset))
		natIndex := r.u2(a.offset + 2)
		var name, descriptor string
		if natIndex != 0 {
			name, descriptor = r.nameAndType(natIndex)
		}
		visitor.VisitOuterClass(owner, name, descriptor)
	case AttrInnerClasses:
		r.readInnerClasses(visitor, a.offset)
	case AttrRecord:
		r.readRecordComponents(visitor, a.offset)
	case AttrRuntimeVisibleAnnotations:
		r.readAnnotations(a.offset, func(d string) AnnotationVisitor { return visitor.VisitAnnotation(d, true) })
	case AttrRuntimeInvisibleAnnotations:
		r.readAnnotations(a.offset, func(d string) AnnotationVisitor { return visitor.VisitAnnotation(d, false) })
	default:
		body := make([]byte, a.length)
		copy(body, r.bytes[a.offset:a.offset+a.length])
		visitor.VisitAttribute(Attribute{Name: a.name, Data: body})
	}
}

func (r *Reader) readClassRefList(offset int, visit func(string)) {
	count := r.u2(offset)
	offset += 2
	for i := 0; i < count; i++ {
		visit(r.class(r.u2(offset)))
		offset += 2
	}
}

func (r *Reader) readModule(visitor ClassVisitor, offset int) {
	nameIndex := r.u2(offset)
	access := r.u2(offset + 2)
	versionIndex := r.u2(offset + 4)
	name := r.moduleName(nameIndex)
	version := r.utf8(versionIndex)
	mv := visitor.VisitModule(name, access, version)
	if mv == nil {
		return
	}
	offset += 6

	requiresCount := r.u2(offset)
	offset += 2
	for i := 0; i < requiresCount; i++ {
		module := r.moduleName(r.u2(offset))
		racc := r.u2(offset + 2)
		rver := r.utf8(r.u2(offset + 4))
		mv.VisitRequire(module, racc, rver)
		offset += 6
	}

	exportsCount := r.u2(offset)
	offset += 2
	for i := 0; i < exportsCount; i++ {
		offset = r.readModuleEdge(offset, mv.VisitExport)
	}

	opensCount := r.u2(offset)
	offset += 2
	for i := 0; i < opensCount; i++ {
		offset = r.readModuleEdge(offset, mv.VisitOpen)
	}

	usesCount := r.u2(offset)
	offset += 2
	for i := 0; i < usesCount; i++ {
		mv.VisitUse(r.class(r.u2(offset)))
		offset += 2
	}

	providesCount := r.u2(offset)
	offset += 2
	for i := 0; i < providesCount; i++ {
		service := r.class(r.u2(offset))
		withCount := r.u2(offset + 2)
		offset += 4
		providers := make([]string, withCount)
		for j := 0; j < withCount; j++ {
			providers[j] = r.class(r.u2(offset))
			offset += 2
		}
		mv.VisitProvide(service, providers...)
	}

	mv.VisitEnd()
}

func (r *Reader) readModuleEdge(offset int, visit func(string, int, ...string)) int {
	packaze := r.packageName(r.u2(offset))
	access := r.u2(offset + 2)
	toCount := r.u2(offset + 4)
	offset += 6
	modules := make([]string, toCount)
	for i := 0; i < toCount; i++ {
		modules[i] = r.moduleName(r.u2(offset))
		offset += 2
	}
	visit(packaze, access, modules...)
	return offset
}

func (r *Reader) moduleName(index int) string {
	if index == 0 {
		return ""
	}
	return r.utf8(r.u2(r.cpInfoOffsets[index]))
}

func (r *Reader) packageName(index int) string { return r.moduleName(index) }

func (r *Reader) readInnerClasses(visitor ClassVisitor, offset int) {
	count := r.u2(offset)
	offset += 2
	for i := 0; i < count; i++ {
		name := r.class(r.u2(offset))
		outerIndex := r.u2(offset + 2)
		innerNameIndex := r.u2(offset + 4)
		access := r.u2(offset + 6)
		var outerName string
		if outerIndex != 0 {
			outerName = r.class(outerIndex)
		}
		var innerName string
		if innerNameIndex != 0 {
			innerName = r.utf8(innerNameIndex)
		}
		visitor.VisitInnerClass(name, outerName, innerName, access)
		offset += 8
	}
}

func (r *Reader) readRecordComponents(visitor ClassVisitor, offset int) {
	count := r.u2(offset)
	offset += 2
	for i := 0; i < count; i++ {
		nameIndex := r.u2(offset)
		descIndex := r.u2(offset + 2)
		name := r.utf8(nameIndex)
		descriptor := r.utf8(descIndex)
		offset += 4
		attrCount := r.u2(offset)
		offset += 2
		var signature string
		var rv ReadAnnotationsFunc
		var ri ReadAnnotationsFunc
		for j := 0; j < attrCount; j++ {
			aNameIndex := r.u2(offset)
			length := int(r.u4(offset + 2))
			aName := r.utf8(aNameIndex)
			bodyOffset := offset + 6
			switch aName {
			case AttrSignature:
				signature = r.utf8(r.u2(bodyOffset))
			case AttrRuntimeVisibleAnnotations:
				rv = r.annotationReplayer(bodyOffset)
			case AttrRuntimeInvisibleAnnotations:
				ri = r.annotationReplayer(bodyOffset)
			}
			offset = bodyOffset + length
		}
		rcv := visitor.VisitRecordComponent(name, descriptor, signature)
		if rcv != nil {
			if rv != nil {
				rv(func(d string) AnnotationVisitor { return rcv.VisitAnnotation(d, true) })
			}
			if ri != nil {
				ri(func(d string) AnnotationVisitor { return rcv.VisitAnnotation(d, false) })
			}
			rcv.VisitEnd()
		}
	}
}

// ReadAnnotationsFunc replays a previously-located RuntimeVisible/Invisible
// Annotations attribute body through whatever VisitAnnotation callback the
// caller supplies, deferring the decision of which visibility the
// attribute represents to the caller.
type ReadAnnotationsFunc func(visit func(descriptor string) AnnotationVisitor)

func (r *Reader) annotationReplayer(offset int) ReadAnnotationsFunc {
	return func(visit func(string) AnnotationVisitor) {
		r.readAnnotations(offset, visit)
	}
}
