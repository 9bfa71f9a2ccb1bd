// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classtree

import "github.com/go-classfile/classfile"

type ParameterNode struct {
	Name   string
	Access int
}

type TryCatchBlockNode struct {
	Start, End, Handler      *LabelNode
	Type                     string
	VisibleTypeAnnotations   []*TypeAnnotationNode
	InvisibleTypeAnnotations []*TypeAnnotationNode
}

type LocalVariableNode struct {
	Name, Descriptor, Signature string
	Start, End                  *LabelNode
	Index                       int
}

type LocalVariableAnnotationNode struct {
	TypeRef  int
	TypePath string
	Start    []*LabelNode
	End      []*LabelNode
	Index    []int
	Visible  bool
	*AnnotationNode
}

type insnAnnotation struct {
	insn    Insn
	node    *TypeAnnotationNode
	visible bool
}

// MethodNode mirrors one method_info structure, including its Code
// attribute's instruction stream, decoded into the Insn nodes in
// insn_nodes.go.
type MethodNode struct {
	Access     int
	Name       string
	Descriptor string
	Signature  string
	Exceptions []string

	Parameters        []ParameterNode
	AnnotationDefault  *AnnotationNode
	VisibleAnnotations   []*AnnotationNode
	InvisibleAnnotations []*AnnotationNode
	VisibleTypeAnnotations   []*TypeAnnotationNode
	InvisibleTypeAnnotations []*TypeAnnotationNode

	VisibleAnnotableParameterCount   int
	InvisibleAnnotableParameterCount int
	VisibleParameterAnnotations      map[int][]*AnnotationNode
	InvisibleParameterAnnotations    map[int][]*AnnotationNode

	Attrs []classfile.Attribute

	Instructions   []Insn
	TryCatchBlocks []*TryCatchBlockNode
	LocalVariables []*LocalVariableNode
	LocalVariableAnnotations []*LocalVariableAnnotationNode

	MaxStack, MaxLocals int

	labels          map[*classfile.Label]*LabelNode
	nextLabelID     int
	lastTryCatch    *TryCatchBlockNode
	insnAnnotations []insnAnnotation
}

func NewMethodNode(access int, name, descriptor, signature string, exceptions []string) *MethodNode {
	return &MethodNode{
		Access:     access,
		Name:       name,
		Descriptor: descriptor,
		Signature:  signature,
		Exceptions: exceptions,
		labels:     make(map[*classfile.Label]*LabelNode),
	}
}

func (m *MethodNode) labelNode(l *classfile.Label) *LabelNode {
	if n, ok := m.labels[l]; ok {
		return n
	}
	n := &LabelNode{id: m.nextLabelID, label: l}
	m.nextLabelID++
	m.labels[l] = n
	return n
}

func (m *MethodNode) VisitParameter(name string, access int) {
	m.Parameters = append(m.Parameters, ParameterNode{Name: name, Access: access})
}

func (m *MethodNode) VisitAnnotationDefault() classfile.AnnotationVisitor {
	m.AnnotationDefault = NewAnnotationNode("")
	return m.AnnotationDefault
}

func (m *MethodNode) VisitAnnotation(descriptor string, visible bool) classfile.AnnotationVisitor {
	n := NewAnnotationNode(descriptor)
	if visible {
		m.VisibleAnnotations = append(m.VisibleAnnotations, n)
	} else {
		m.InvisibleAnnotations = append(m.InvisibleAnnotations, n)
	}
	return n
}

func (m *MethodNode) VisitTypeAnnotation(typeRef int, typePath, descriptor string, visible bool) classfile.AnnotationVisitor {
	n := newTypeAnnotationNode(typeRef, typePath, descriptor)
	if visible {
		m.VisibleTypeAnnotations = append(m.VisibleTypeAnnotations, n)
	} else {
		m.InvisibleTypeAnnotations = append(m.InvisibleTypeAnnotations, n)
	}
	return n
}

func (m *MethodNode) VisitAnnotableParameterCount(parameterCount int, visible bool) {
	if visible {
		m.VisibleAnnotableParameterCount = parameterCount
	} else {
		m.InvisibleAnnotableParameterCount = parameterCount
	}
}

func (m *MethodNode) VisitParameterAnnotation(parameter int, descriptor string, visible bool) classfile.AnnotationVisitor {
	n := NewAnnotationNode(descriptor)
	if visible {
		if m.VisibleParameterAnnotations == nil {
			m.VisibleParameterAnnotations = make(map[int][]*AnnotationNode)
		}
		m.VisibleParameterAnnotations[parameter] = append(m.VisibleParameterAnnotations[parameter], n)
	} else {
		if m.InvisibleParameterAnnotations == nil {
			m.InvisibleParameterAnnotations = make(map[int][]*AnnotationNode)
		}
		m.InvisibleParameterAnnotations[parameter] = append(m.InvisibleParameterAnnotations[parameter], n)
	}
	return n
}

func (m *MethodNode) VisitAttribute(attr classfile.Attribute) { m.Attrs = append(m.Attrs, attr) }

func (m *MethodNode) VisitCode() {}

func (m *MethodNode) VisitFrame(frameType int, numLocal int, local []any, numStack int, stack []any) {
	m.Instructions = append(m.Instructions, &FrameNode{Type: frameType, NumLocal: numLocal, Local: local, NumStack: numStack, Stack: stack})
}

func (m *MethodNode) appendInsn(n Insn) { m.Instructions = append(m.Instructions, n) }

func (m *MethodNode) VisitInsn(opcode int) { m.appendInsn(&InsnNode{Opcode: opcode}) }

func (m *MethodNode) VisitIntInsn(opcode, operand int) {
	m.appendInsn(&IntInsnNode{Opcode: opcode, Operand: operand})
}

func (m *MethodNode) VisitVarInsn(opcode, varIndex int) {
	m.appendInsn(&VarInsnNode{Opcode: opcode, Var: varIndex})
}

func (m *MethodNode) VisitTypeInsn(opcode int, typeName string) {
	m.appendInsn(&TypeInsnNode{Opcode: opcode, Desc: typeName})
}

func (m *MethodNode) VisitFieldInsn(opcode int, owner, name, descriptor string) {
	m.appendInsn(&FieldInsnNode{Opcode: opcode, Owner: owner, Name: name, Descriptor: descriptor})
}

func (m *MethodNode) VisitMethodInsn(opcode int, owner, name, descriptor string, isInterface bool) {
	m.appendInsn(&MethodInsnNode{Opcode: opcode, Owner: owner, Name: name, Descriptor: descriptor, IsInterface: isInterface})
}

func (m *MethodNode) VisitInvokeDynamicInsn(name, descriptor string, bootstrapMethod classfile.Handle, bootstrapArguments ...any) {
	m.appendInsn(&InvokeDynamicInsnNode{Name: name, Descriptor: descriptor, Bootstrap: bootstrapMethod, Arguments: bootstrapArguments})
}

func (m *MethodNode) VisitJumpInsn(opcode int, label *classfile.Label) {
	m.appendInsn(&JumpInsnNode{Opcode: opcode, Label: m.labelNode(label)})
}

func (m *MethodNode) VisitLabel(label *classfile.Label) {
	m.appendInsn(m.labelNode(label))
}

func (m *MethodNode) VisitLdcInsn(value any) { m.appendInsn(&LdcInsnNode{Value: value}) }

func (m *MethodNode) VisitIincInsn(varIndex, increment int) {
	m.appendInsn(&IincInsnNode{Var: varIndex, Incr: increment})
}

func (m *MethodNode) VisitTableSwitchInsn(min, max int, dflt *classfile.Label, labels ...*classfile.Label) {
	nodes := make([]*LabelNode, len(labels))
	for i, l := range labels {
		nodes[i] = m.labelNode(l)
	}
	m.appendInsn(&TableSwitchInsnNode{Min: min, Max: max, Default: m.labelNode(dflt), Labels: nodes})
}

func (m *MethodNode) VisitLookupSwitchInsn(dflt *classfile.Label, keys []int, labels []*classfile.Label) {
	nodes := make([]*LabelNode, len(labels))
	for i, l := range labels {
		nodes[i] = m.labelNode(l)
	}
	m.appendInsn(&LookupSwitchInsnNode{Default: m.labelNode(dflt), Keys: keys, Labels: nodes})
}

func (m *MethodNode) VisitMultiANewArrayInsn(descriptor string, numDimensions int) {
	m.appendInsn(&MultiANewArrayInsnNode{Descriptor: descriptor, NumDimensions: numDimensions})
}

// VisitInsnAnnotation attaches a type annotation to the most recently
// visited real instruction, the way ASM's MethodNode tracks "currentInsn".
func (m *MethodNode) VisitInsnAnnotation(typeRef int, typePath, descriptor string, visible bool) classfile.AnnotationVisitor {
	n := newTypeAnnotationNode(typeRef, typePath, descriptor)
	for i := len(m.Instructions) - 1; i >= 0; i-- {
		switch m.Instructions[i].(type) {
		case *LabelNode, *LineNumberNode, *FrameNode:
			continue
		}
		m.insnAnnotations = append(m.insnAnnotations, insnAnnotation{insn: m.Instructions[i], node: n, visible: visible})
		break
	}
	return n
}

func (m *MethodNode) VisitTryCatchBlock(start, end, handler *classfile.Label, catchType string) {
	n := &TryCatchBlockNode{Start: m.labelNode(start), End: m.labelNode(end), Handler: m.labelNode(handler), Type: catchType}
	m.TryCatchBlocks = append(m.TryCatchBlocks, n)
	m.lastTryCatch = n
}

func (m *MethodNode) VisitTryCatchAnnotation(typeRef int, typePath, descriptor string, visible bool) classfile.AnnotationVisitor {
	n := newTypeAnnotationNode(typeRef, typePath, descriptor)
	if m.lastTryCatch != nil {
		if visible {
			m.lastTryCatch.VisibleTypeAnnotations = append(m.lastTryCatch.VisibleTypeAnnotations, n)
		} else {
			m.lastTryCatch.InvisibleTypeAnnotations = append(m.lastTryCatch.InvisibleTypeAnnotations, n)
		}
	}
	return n
}

func (m *MethodNode) VisitLocalVariable(name, descriptor, signature string, start, end *classfile.Label, index int) {
	m.LocalVariables = append(m.LocalVariables, &LocalVariableNode{
		Name: name, Descriptor: descriptor, Signature: signature,
		Start: m.labelNode(start), End: m.labelNode(end), Index: index,
	})
}

func (m *MethodNode) VisitLocalVariableAnnotation(typeRef int, typePath string, start, end []*classfile.Label, index []int, descriptor string, visible bool) classfile.AnnotationVisitor {
	starts := make([]*LabelNode, len(start))
	for i, l := range start {
		starts[i] = m.labelNode(l)
	}
	ends := make([]*LabelNode, len(end))
	for i, l := range end {
		ends[i] = m.labelNode(l)
	}
	n := &LocalVariableAnnotationNode{
		TypeRef: typeRef, TypePath: typePath, Start: starts, End: ends, Index: index, Visible: visible,
		AnnotationNode: NewAnnotationNode(descriptor),
	}
	m.LocalVariableAnnotations = append(m.LocalVariableAnnotations, n)
	return n
}

func (m *MethodNode) VisitLineNumber(line int, start *classfile.Label) {
	m.appendInsn(&LineNumberNode{Line: line, Start: m.labelNode(start)})
}

func (m *MethodNode) VisitMaxs(maxStack, maxLocals int) {
	m.MaxStack = maxStack
	m.MaxLocals = maxLocals
}

func (m *MethodNode) VisitEnd() {}

// Accept replays this method into cv, in the event order MethodVisitor
// documents: parameters/annotations/attributes, then (if any instructions
// were recorded) the Code attribute, then maxs.
func (m *MethodNode) Accept(cv classfile.ClassVisitor) {
	mv := cv.VisitMethod(m.Access, m.Name, m.Descriptor, m.Signature, m.Exceptions)
	if mv == nil {
		return
	}
	for _, p := range m.Parameters {
		mv.VisitParameter(p.Name, p.Access)
	}
	if m.AnnotationDefault != nil {
		m.AnnotationDefault.Accept(mv.VisitAnnotationDefault())
	}
	for _, a := range m.VisibleAnnotations {
		a.Accept(mv.VisitAnnotation(a.Descriptor, true))
	}
	for _, a := range m.InvisibleAnnotations {
		a.Accept(mv.VisitAnnotation(a.Descriptor, false))
	}
	for _, a := range m.VisibleTypeAnnotations {
		a.Accept(mv.VisitTypeAnnotation(a.TypeRef, a.TypePath, a.Descriptor, true))
	}
	for _, a := range m.InvisibleTypeAnnotations {
		a.Accept(mv.VisitTypeAnnotation(a.TypeRef, a.TypePath, a.Descriptor, false))
	}
	if m.VisibleAnnotableParameterCount > 0 {
		mv.VisitAnnotableParameterCount(m.VisibleAnnotableParameterCount, true)
	}
	for p, anns := range m.VisibleParameterAnnotations {
		for _, a := range anns {
			a.Accept(mv.VisitParameterAnnotation(p, a.Descriptor, true))
		}
	}
	if m.InvisibleAnnotableParameterCount > 0 {
		mv.VisitAnnotableParameterCount(m.InvisibleAnnotableParameterCount, false)
	}
	for p, anns := range m.InvisibleParameterAnnotations {
		for _, a := range anns {
			a.Accept(mv.VisitParameterAnnotation(p, a.Descriptor, false))
		}
	}
	for _, attr := range m.Attrs {
		mv.VisitAttribute(attr)
	}

	if len(m.Instructions) > 0 {
		mv.VisitCode()
		for _, insn := range m.Instructions {
			insn.accept(mv)
			for _, ia := range m.insnAnnotations {
				if ia.insn == insn {
					ia.node.Accept(mv.VisitInsnAnnotation(ia.node.TypeRef, ia.node.TypePath, ia.node.Descriptor, ia.visible))
				}
			}
		}
		for _, t := range m.TryCatchBlocks {
			mv.VisitTryCatchBlock(t.Start.label, t.End.label, t.Handler.label, t.Type)
			for _, a := range t.VisibleTypeAnnotations {
				a.Accept(mv.VisitTryCatchAnnotation(a.TypeRef, a.TypePath, a.Descriptor, true))
			}
			for _, a := range t.InvisibleTypeAnnotations {
				a.Accept(mv.VisitTryCatchAnnotation(a.TypeRef, a.TypePath, a.Descriptor, false))
			}
		}
		for _, lv := range m.LocalVariables {
			mv.VisitLocalVariable(lv.Name, lv.Descriptor, lv.Signature, lv.Start.label, lv.End.label, lv.Index)
		}
		for _, lva := range m.LocalVariableAnnotations {
			starts := make([]*classfile.Label, len(lva.Start))
			for i, l := range lva.Start {
				starts[i] = l.label
			}
			ends := make([]*classfile.Label, len(lva.End))
			for i, l := range lva.End {
				ends[i] = l.label
			}
			lva.Accept(mv.VisitLocalVariableAnnotation(lva.TypeRef, lva.TypePath, starts, ends, lva.Index, lva.Descriptor, lva.Visible))
		}
		mv.VisitMaxs(m.MaxStack, m.MaxLocals)
	}
	mv.VisitEnd()
}
