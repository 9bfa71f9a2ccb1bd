// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classtree

import "github.com/go-classfile/classfile"

// FieldNode mirrors one field_info structure.
type FieldNode struct {
	Access     int
	Name       string
	Descriptor string
	Signature  string
	Value      any

	VisibleAnnotations       []*AnnotationNode
	InvisibleAnnotations     []*AnnotationNode
	VisibleTypeAnnotations   []*TypeAnnotationNode
	InvisibleTypeAnnotations []*TypeAnnotationNode
	Attrs                    []classfile.Attribute
}

// NewFieldNode builds a node already populated with the header fields
// VisitField receives; the remaining slices fill in as further Visit*
// calls arrive.
func NewFieldNode(access int, name, descriptor, signature string, value any) *FieldNode {
	return &FieldNode{Access: access, Name: name, Descriptor: descriptor, Signature: signature, Value: value}
}

func (f *FieldNode) VisitAnnotation(descriptor string, visible bool) classfile.AnnotationVisitor {
	n := NewAnnotationNode(descriptor)
	if visible {
		f.VisibleAnnotations = append(f.VisibleAnnotations, n)
	} else {
		f.InvisibleAnnotations = append(f.InvisibleAnnotations, n)
	}
	return n
}

func (f *FieldNode) VisitTypeAnnotation(typeRef int, typePath, descriptor string, visible bool) classfile.AnnotationVisitor {
	n := newTypeAnnotationNode(typeRef, typePath, descriptor)
	if visible {
		f.VisibleTypeAnnotations = append(f.VisibleTypeAnnotations, n)
	} else {
		f.InvisibleTypeAnnotations = append(f.InvisibleTypeAnnotations, n)
	}
	return n
}

func (f *FieldNode) VisitAttribute(attr classfile.Attribute) { f.Attrs = append(f.Attrs, attr) }

func (f *FieldNode) VisitEnd() {}

// Accept replays this field into cv, calling VisitField and then every
// recorded annotation/attribute in the order they were originally visited.
func (f *FieldNode) Accept(cv classfile.ClassVisitor) {
	fv := cv.VisitField(f.Access, f.Name, f.Descriptor, f.Signature, f.Value)
	if fv == nil {
		return
	}
	for _, a := range f.VisibleAnnotations {
		a.Accept(fv.VisitAnnotation(a.Descriptor, true))
	}
	for _, a := range f.InvisibleAnnotations {
		a.Accept(fv.VisitAnnotation(a.Descriptor, false))
	}
	for _, a := range f.VisibleTypeAnnotations {
		a.Accept(fv.VisitTypeAnnotation(a.TypeRef, a.TypePath, a.Descriptor, true))
	}
	for _, a := range f.InvisibleTypeAnnotations {
		a.Accept(fv.VisitTypeAnnotation(a.TypeRef, a.TypePath, a.Descriptor, false))
	}
	for _, attr := range f.Attrs {
		fv.VisitAttribute(attr)
	}
	fv.VisitEnd()
}

// RecordComponentNode mirrors one record_component_info entry (JVMS
// §4.7.30). It shares FieldNode's annotation/attribute shape since the two
// structures carry the same trailing attribute family.
type RecordComponentNode struct {
	Name       string
	Descriptor string
	Signature  string

	VisibleAnnotations       []*AnnotationNode
	InvisibleAnnotations     []*AnnotationNode
	VisibleTypeAnnotations   []*TypeAnnotationNode
	InvisibleTypeAnnotations []*TypeAnnotationNode
	Attrs                    []classfile.Attribute
}

func NewRecordComponentNode(name, descriptor, signature string) *RecordComponentNode {
	return &RecordComponentNode{Name: name, Descriptor: descriptor, Signature: signature}
}

func (r *RecordComponentNode) VisitAnnotation(descriptor string, visible bool) classfile.AnnotationVisitor {
	n := NewAnnotationNode(descriptor)
	if visible {
		r.VisibleAnnotations = append(r.VisibleAnnotations, n)
	} else {
		r.InvisibleAnnotations = append(r.InvisibleAnnotations, n)
	}
	return n
}

func (r *RecordComponentNode) VisitTypeAnnotation(typeRef int, typePath, descriptor string, visible bool) classfile.AnnotationVisitor {
	n := newTypeAnnotationNode(typeRef, typePath, descriptor)
	if visible {
		r.VisibleTypeAnnotations = append(r.VisibleTypeAnnotations, n)
	} else {
		r.InvisibleTypeAnnotations = append(r.InvisibleTypeAnnotations, n)
	}
	return n
}

func (r *RecordComponentNode) VisitAttribute(attr classfile.Attribute) { r.Attrs = append(r.Attrs, attr) }

func (r *RecordComponentNode) VisitEnd() {}

func (r *RecordComponentNode) Accept(cv classfile.ClassVisitor) {
	rcv := cv.VisitRecordComponent(r.Name, r.Descriptor, r.Signature)
	if rcv == nil {
		return
	}
	for _, a := range r.VisibleAnnotations {
		a.Accept(rcv.VisitAnnotation(a.Descriptor, true))
	}
	for _, a := range r.InvisibleAnnotations {
		a.Accept(rcv.VisitAnnotation(a.Descriptor, false))
	}
	for _, a := range r.VisibleTypeAnnotations {
		a.Accept(rcv.VisitTypeAnnotation(a.TypeRef, a.TypePath, a.Descriptor, true))
	}
	for _, a := range r.InvisibleTypeAnnotations {
		a.Accept(rcv.VisitTypeAnnotation(a.TypeRef, a.TypePath, a.Descriptor, false))
	}
	for _, attr := range r.Attrs {
		rcv.VisitAttribute(attr)
	}
	rcv.VisitEnd()
}
