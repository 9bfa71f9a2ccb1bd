// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

// skipFieldOrMethod walks one field_info/method_info structure (they share
// the same shape: access_flags, name_index, descriptor_index,
// attributes_count, attributes[]) and returns the offset just past it,
// without interpreting any attribute body.
func (r *Reader) skipFieldOrMethod(offset int) int {
	offset += 6 // access_flags, name_index, descriptor_index
	attrCount := r.u2(offset)
	offset += 2
	for i := 0; i < attrCount; i++ {
		length := int(r.u4(offset + 2))
		offset += 6 + length
	}
	return offset
}

type rawAttr struct {
	name   string
	offset int
	length int
}

// scanAttributes reads one attributes[] list starting at offset (which
// must point at attributes_count) and returns each entry's name and body
// span, without interpreting any of them.
func (r *Reader) scanAttributes(offset int) []rawAttr {
	count := r.u2(offset)
	offset += 2
	attrs := make([]rawAttr, count)
	for i := 0; i < count; i++ {
		nameIndex := r.u2(offset)
		length := int(r.u4(offset + 2))
		attrs[i] = rawAttr{name: r.utf8(nameIndex), offset: offset + 6, length: length}
		offset += 6 + length
	}
	return attrs
}

func (r *Reader) readField(visitor ClassVisitor, offset int) {
	access := r.u2(offset)
	name := r.utf8(r.u2(offset + 2))
	descriptor := r.utf8(r.u2(offset + 4))
	attrs := r.scanAttributes(offset + 6)

	var signature string
	var value any
	var rawRest []rawAttr
	for _, a := range attrs {
		switch a.name {
		case AttrSignature:
			signature = r.utf8(r.u2(a.offset))
		case AttrConstantValue:
			value = r.constant(r.u2(a.offset))
		default:
			rawRest = append(rawRest, a)
		}
	}

	fv := visitor.VisitField(access, name, descriptor, signature, value)
	if fv == nil {
		return
	}
	for _, a := range rawRest {
		r.replayMemberAttribute(a, fv.VisitAnnotation, fv.VisitAttribute)
	}
	fv.VisitEnd()
}

// replayMemberAttribute dispatches one field/method attribute
// not already specially handled by the caller to VisitAnnotation (for the
// RuntimeVisible/InvisibleAnnotations attributes) or VisitAttribute
// (everything else, preserved verbatim for a round trip).
func (r *Reader) replayMemberAttribute(a rawAttr, visitAnnotation func(string, bool) AnnotationVisitor, visitAttribute func(Attribute)) {
	switch a.name {
	case AttrRuntimeVisibleAnnotations:
		r.readAnnotations(a.offset, func(d string) AnnotationVisitor { return visitAnnotation(d, true) })
	case AttrRuntimeInvisibleAnnotations:
		r.readAnnotations(a.offset, func(d string) AnnotationVisitor { return visitAnnotation(d, false) })
	case AttrSynthetic, AttrDeprecated:
		// Carried as access-flag bits (ACC_SYNTHETIC / ACC_DEPRECATED);
		// nothing further to replay.
	default:
		body := make([]byte, a.length)
		copy(body, r.bytes[a.offset:a.offset+a.length])
		visitAttribute(Attribute{Name: a.name, Data: body})
	}
}

// readAnnotations replays one RuntimeVisible/InvisibleAnnotations attribute
// body (JVMS §4.7.16): num_annotations, then that many annotation entries.
func (r *Reader) readAnnotations(offset int, visit func(descriptor string) AnnotationVisitor) {
	count := r.u2(offset)
	offset += 2
	for i := 0; i < count; i++ {
		offset = r.readAnnotation(offset, visit)
	}
}

// readAnnotation replays one annotation structure (type_index,
// num_element_value_pairs, pairs) and returns the offset just past it.
func (r *Reader) readAnnotation(offset int, visit func(descriptor string) AnnotationVisitor) int {
	descriptor := r.utf8(r.u2(offset))
	offset += 2
	av := visit(descriptor)
	offset = r.readElementValuePairs(offset, av)
	if av != nil {
		av.VisitEnd()
	}
	return offset
}

func (r *Reader) readElementValuePairs(offset int, av AnnotationVisitor) int {
	count := r.u2(offset)
	offset += 2
	for i := 0; i < count; i++ {
		name := r.utf8(r.u2(offset))
		offset += 2
		offset = r.readElementValue(offset, name, av)
	}
	return offset
}

// readElementValue replays one element_value (JVMS §4.7.16.1) and returns
// the offset just past it. av may be nil, in which case the value is still
// skipped correctly but nothing is visited.
func (r *Reader) readElementValue(offset int, name string, av AnnotationVisitor) int {
	tag := byte(r.u1(offset))
	offset++
	switch tag {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 's':
		cpIndex := r.u2(offset)
		offset += 2
		if av != nil {
			av.Visit(name, r.elementConstValue(tag, cpIndex))
		}
	case 'e':
		typeNameIndex := r.u2(offset)
		constNameIndex := r.u2(offset + 2)
		offset += 4
		if av != nil {
			av.VisitEnum(name, r.utf8(typeNameIndex), r.utf8(constNameIndex))
		}
	case 'c':
		classIndex := r.u2(offset)
		offset += 2
		if av != nil {
			av.Visit(name, AnnotationClassValue{Descriptor: r.utf8(classIndex)})
		}
	case '@':
		var nested AnnotationVisitor
		var nestedDescriptor string
		descOffset := offset
		nestedDescriptor = r.utf8(r.u2(descOffset))
		offset += 2
		if av != nil {
			nested = av.VisitAnnotation(name, nestedDescriptor)
		}
		offset = r.readElementValuePairs(offset, nested)
		if nested != nil {
			nested.VisitEnd()
		}
	case '[':
		count := r.u2(offset)
		offset += 2
		var arr AnnotationVisitor
		if av != nil {
			arr = av.VisitArray(name)
		}
		for i := 0; i < count; i++ {
			offset = r.readElementValue(offset, "", arr)
		}
		if arr != nil {
			arr.VisitEnd()
		}
	}
	return offset
}

func (r *Reader) elementConstValue(tag byte, cpIndex int) any {
	switch tag {
	case 's':
		return r.utf8(cpIndex)
	case 'Z':
		return r.s4(r.cpInfoOffsets[cpIndex]) != 0
	default:
		return r.constant(cpIndex)
	}
}
