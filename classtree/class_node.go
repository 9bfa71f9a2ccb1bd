// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classtree

import "github.com/go-classfile/classfile"

type InnerClassNode struct {
	Name, OuterName, InnerName string
	Access                     int
}

// ClassNode is a full in-memory mirror of one class file, built by driving
// a classfile.Reader's Accept through it (ClassNode implements
// classfile.ClassVisitor) and replayed back into a classfile.ClassWriter
// (or any other ClassVisitor) through Accept.
type ClassNode struct {
	Version    int
	Access     int
	Name       string
	Signature  string
	SuperName  string
	Interfaces []string

	SourceFile  string
	SourceDebug string

	Module *ModuleNode

	NestHostClass       string
	OuterClass          string
	OuterMethod         string
	OuterMethodDesc     string
	NestMembers         []string
	PermittedSubclasses []string
	InnerClasses        []InnerClassNode

	VisibleAnnotations       []*AnnotationNode
	InvisibleAnnotations     []*AnnotationNode
	VisibleTypeAnnotations   []*TypeAnnotationNode
	InvisibleTypeAnnotations []*TypeAnnotationNode
	Attrs                    []classfile.Attribute

	RecordComponents []*RecordComponentNode
	Fields           []*FieldNode
	Methods          []*MethodNode
}

// NewClassNode returns an empty node ready to be driven by a Reader's
// Accept, or populated directly by a caller building a class from scratch.
func NewClassNode() *ClassNode { return &ClassNode{} }

func (c *ClassNode) VisitHeader(version, access int, name, signature, superName string, interfaces []string) {
	c.Version = version
	c.Access = access
	c.Name = name
	c.Signature = signature
	c.SuperName = superName
	c.Interfaces = interfaces
}

func (c *ClassNode) VisitSource(source, debug string) {
	c.SourceFile = source
	c.SourceDebug = debug
}

func (c *ClassNode) VisitModule(name string, access int, version string) classfile.ModuleVisitor {
	c.Module = NewModuleNode(name, access, version)
	return c.Module
}

func (c *ClassNode) VisitNestHost(nestHost string) { c.NestHostClass = nestHost }

func (c *ClassNode) VisitOuterClass(owner, name, descriptor string) {
	c.OuterClass = owner
	c.OuterMethod = name
	c.OuterMethodDesc = descriptor
}

func (c *ClassNode) VisitAnnotation(descriptor string, visible bool) classfile.AnnotationVisitor {
	n := NewAnnotationNode(descriptor)
	if visible {
		c.VisibleAnnotations = append(c.VisibleAnnotations, n)
	} else {
		c.InvisibleAnnotations = append(c.InvisibleAnnotations, n)
	}
	return n
}

func (c *ClassNode) VisitTypeAnnotation(typeRef int, typePath, descriptor string, visible bool) classfile.AnnotationVisitor {
	n := newTypeAnnotationNode(typeRef, typePath, descriptor)
	if visible {
		c.VisibleTypeAnnotations = append(c.VisibleTypeAnnotations, n)
	} else {
		c.InvisibleTypeAnnotations = append(c.InvisibleTypeAnnotations, n)
	}
	return n
}

func (c *ClassNode) VisitAttribute(attr classfile.Attribute) { c.Attrs = append(c.Attrs, attr) }

func (c *ClassNode) VisitNestMember(nestMember string) {
	c.NestMembers = append(c.NestMembers, nestMember)
}

func (c *ClassNode) VisitPermittedSubclass(permittedSubclass string) {
	c.PermittedSubclasses = append(c.PermittedSubclasses, permittedSubclass)
}

func (c *ClassNode) VisitInnerClass(name, outerName, innerName string, access int) {
	c.InnerClasses = append(c.InnerClasses, InnerClassNode{Name: name, OuterName: outerName, InnerName: innerName, Access: access})
}

func (c *ClassNode) VisitRecordComponent(name, descriptor, signature string) classfile.RecordComponentVisitor {
	n := NewRecordComponentNode(name, descriptor, signature)
	c.RecordComponents = append(c.RecordComponents, n)
	return n
}

func (c *ClassNode) VisitField(access int, name, descriptor, signature string, value any) classfile.FieldVisitor {
	n := NewFieldNode(access, name, descriptor, signature, value)
	c.Fields = append(c.Fields, n)
	return n
}

func (c *ClassNode) VisitMethod(access int, name, descriptor, signature string, exceptions []string) classfile.MethodVisitor {
	n := NewMethodNode(access, name, descriptor, signature, exceptions)
	c.Methods = append(c.Methods, n)
	return n
}

func (c *ClassNode) VisitEnd() {}

// Accept replays this class into cv (typically a *classfile.ClassWriter),
// driving every event in JVMS §4.1 order.
func (c *ClassNode) Accept(cv classfile.ClassVisitor) {
	cv.VisitHeader(c.Version, c.Access, c.Name, c.Signature, c.SuperName, c.Interfaces)
	if c.SourceFile != "" || c.SourceDebug != "" {
		cv.VisitSource(c.SourceFile, c.SourceDebug)
	}
	if c.Module != nil {
		c.Module.Accept(cv)
	}
	if c.NestHostClass != "" {
		cv.VisitNestHost(c.NestHostClass)
	}
	if c.OuterClass != "" {
		cv.VisitOuterClass(c.OuterClass, c.OuterMethod, c.OuterMethodDesc)
	}
	for _, a := range c.VisibleAnnotations {
		a.Accept(cv.VisitAnnotation(a.Descriptor, true))
	}
	for _, a := range c.InvisibleAnnotations {
		a.Accept(cv.VisitAnnotation(a.Descriptor, false))
	}
	for _, a := range c.VisibleTypeAnnotations {
		a.Accept(cv.VisitTypeAnnotation(a.TypeRef, a.TypePath, a.Descriptor, true))
	}
	for _, a := range c.InvisibleTypeAnnotations {
		a.Accept(cv.VisitTypeAnnotation(a.TypeRef, a.TypePath, a.Descriptor, false))
	}
	for _, attr := range c.Attrs {
		cv.VisitAttribute(attr)
	}
	for _, n := range c.NestMembers {
		cv.VisitNestMember(n)
	}
	for _, p := range c.PermittedSubclasses {
		cv.VisitPermittedSubclass(p)
	}
	for _, ic := range c.InnerClasses {
		cv.VisitInnerClass(ic.Name, ic.OuterName, ic.InnerName, ic.Access)
	}
	for _, rc := range c.RecordComponents {
		rc.Accept(cv)
	}
	for _, f := range c.Fields {
		f.Accept(cv)
	}
	for _, m := range c.Methods {
		m.Accept(cv)
	}
	cv.VisitEnd()
}

// ReadClassNode drives r through a ClassNode, the one-call convenience the
// dumper and any other consumer wanting an in-memory tree instead of a
// streaming visitor chain would reach for.
func ReadClassNode(r *classfile.Reader, options int) (*ClassNode, error) {
	n := NewClassNode()
	if err := r.Accept(n, options); err != nil {
		return nil, err
	}
	return n, nil
}
