// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package classtree is a thin, mutable tree-model mirror of a class file: a
// ClassNode built from a Reader via Accept, editable in memory, and replayed
// back into any ClassVisitor (typically a ClassWriter) via its own Accept.
// It plays the same role ASM's org.objectweb.asm.tree package does for its
// streaming visitor API.
package classtree

import "github.com/go-classfile/classfile"

// EnumValue is the value of an annotation element of enum type (JVMS
// §4.7.16.1, tag 'e').
type EnumValue struct {
	Descriptor string
	Value      string
}

// AnnotationValue is one name/value pair of an annotation. Value holds a
// primitive, string, []byte, classfile.Handle, classfile.AnnotationClassValue,
// EnumValue, *AnnotationNode (nested annotation), or *annotationArray
// (array value), matching whatever classfile.AnnotationVisitor.Visit would
// have received.
type AnnotationValue struct {
	Name  string
	Value any
}

// AnnotationNode collects the element-value pairs of one annotation so it
// can be inspected or replayed later.
type AnnotationNode struct {
	Descriptor string
	Values     []AnnotationValue
}

// NewAnnotationNode creates an empty node for an annotation of the given
// type descriptor.
func NewAnnotationNode(descriptor string) *AnnotationNode {
	return &AnnotationNode{Descriptor: descriptor}
}

func (a *AnnotationNode) Visit(name string, value any) {
	a.Values = append(a.Values, AnnotationValue{Name: name, Value: value})
}

func (a *AnnotationNode) VisitEnum(name, descriptor, value string) {
	a.Values = append(a.Values, AnnotationValue{Name: name, Value: EnumValue{Descriptor: descriptor, Value: value}})
}

func (a *AnnotationNode) VisitAnnotation(name, descriptor string) classfile.AnnotationVisitor {
	nested := NewAnnotationNode(descriptor)
	a.Values = append(a.Values, AnnotationValue{Name: name, Value: nested})
	return nested
}

func (a *AnnotationNode) VisitArray(name string) classfile.AnnotationVisitor {
	arr := &annotationArray{}
	a.Values = append(a.Values, AnnotationValue{Name: name, Value: arr})
	return arr
}

func (a *AnnotationNode) VisitEnd() {}

// Accept replays this annotation's element-value pairs into av, in the
// order they were originally visited.
func (a *AnnotationNode) Accept(av classfile.AnnotationVisitor) {
	if av == nil {
		return
	}
	for _, v := range a.Values {
		acceptValue(av, v.Name, v.Value)
	}
	av.VisitEnd()
}

func acceptValue(av classfile.AnnotationVisitor, name string, value any) {
	switch val := value.(type) {
	case EnumValue:
		av.VisitEnum(name, val.Descriptor, val.Value)
	case *AnnotationNode:
		val.Accept(av.VisitAnnotation(name, val.Descriptor))
	case *annotationArray:
		arr := av.VisitArray(name)
		for _, e := range val.Values {
			acceptValue(arr, "", e)
		}
		arr.VisitEnd()
	default:
		av.Visit(name, value)
	}
}

// annotationArray backs one '[' element_value: a homogeneous array of
// further element_values, each visited through the same AnnotationVisitor
// contract with an empty name.
type annotationArray struct {
	Values []any
}

func (a *annotationArray) Visit(name string, value any) { a.Values = append(a.Values, value) }

func (a *annotationArray) VisitEnum(name, descriptor, value string) {
	a.Values = append(a.Values, EnumValue{Descriptor: descriptor, Value: value})
}

func (a *annotationArray) VisitAnnotation(name, descriptor string) classfile.AnnotationVisitor {
	nested := NewAnnotationNode(descriptor)
	a.Values = append(a.Values, nested)
	return nested
}

func (a *annotationArray) VisitArray(name string) classfile.AnnotationVisitor {
	arr := &annotationArray{}
	a.Values = append(a.Values, arr)
	return arr
}

func (a *annotationArray) VisitEnd() {}

// TypeAnnotationNode is an AnnotationNode carrying the extra type_annotation
// target_type/target_path fields JVMS §4.7.20 adds over a plain annotation.
type TypeAnnotationNode struct {
	TypeRef  int
	TypePath string
	*AnnotationNode
}

func newTypeAnnotationNode(typeRef int, typePath, descriptor string) *TypeAnnotationNode {
	return &TypeAnnotationNode{TypeRef: typeRef, TypePath: typePath, AnnotationNode: NewAnnotationNode(descriptor)}
}
