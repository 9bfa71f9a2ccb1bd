// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classtree

import "github.com/go-classfile/classfile"

// Insn is implemented by every node a MethodNode keeps in its instruction
// list: the opcode-shaped nodes (InsnNode..MultiANewArrayInsnNode) plus the
// pseudo-instructions a bytecode stream interleaves with real ones
// (LabelNode, LineNumberNode, FrameNode).
type Insn interface {
	accept(mv classfile.MethodVisitor)
}

// LabelNode wraps the *classfile.Label a jump/switch/try-catch/local
// variable range refers to, giving it a stable, display-friendly ordinal
// (L0, L1, ...) assigned the first time MethodNode sees it.
type LabelNode struct {
	id    int
	label *classfile.Label
}

func (n *LabelNode) ID() int                { return n.id }
func (n *LabelNode) Label() *classfile.Label { return n.label }
func (n *LabelNode) accept(mv classfile.MethodVisitor) { mv.VisitLabel(n.label) }

type InsnNode struct{ Opcode int }

func (n *InsnNode) accept(mv classfile.MethodVisitor) { mv.VisitInsn(n.Opcode) }

type IntInsnNode struct{ Opcode, Operand int }

func (n *IntInsnNode) accept(mv classfile.MethodVisitor) { mv.VisitIntInsn(n.Opcode, n.Operand) }

type VarInsnNode struct{ Opcode, Var int }

func (n *VarInsnNode) accept(mv classfile.MethodVisitor) { mv.VisitVarInsn(n.Opcode, n.Var) }

type TypeInsnNode struct {
	Opcode int
	Desc   string
}

func (n *TypeInsnNode) accept(mv classfile.MethodVisitor) { mv.VisitTypeInsn(n.Opcode, n.Desc) }

type FieldInsnNode struct {
	Opcode                     int
	Owner, Name, Descriptor    string
}

func (n *FieldInsnNode) accept(mv classfile.MethodVisitor) {
	mv.VisitFieldInsn(n.Opcode, n.Owner, n.Name, n.Descriptor)
}

type MethodInsnNode struct {
	Opcode                  int
	Owner, Name, Descriptor string
	IsInterface             bool
}

func (n *MethodInsnNode) accept(mv classfile.MethodVisitor) {
	mv.VisitMethodInsn(n.Opcode, n.Owner, n.Name, n.Descriptor, n.IsInterface)
}

type InvokeDynamicInsnNode struct {
	Name, Descriptor string
	Bootstrap        classfile.Handle
	Arguments        []any
}

func (n *InvokeDynamicInsnNode) accept(mv classfile.MethodVisitor) {
	mv.VisitInvokeDynamicInsn(n.Name, n.Descriptor, n.Bootstrap, n.Arguments...)
}

type JumpInsnNode struct {
	Opcode int
	Label  *LabelNode
}

func (n *JumpInsnNode) accept(mv classfile.MethodVisitor) { mv.VisitJumpInsn(n.Opcode, n.Label.label) }

type LdcInsnNode struct{ Value any }

func (n *LdcInsnNode) accept(mv classfile.MethodVisitor) { mv.VisitLdcInsn(n.Value) }

type IincInsnNode struct{ Var, Incr int }

func (n *IincInsnNode) accept(mv classfile.MethodVisitor) { mv.VisitIincInsn(n.Var, n.Incr) }

type TableSwitchInsnNode struct {
	Min, Max int
	Default  *LabelNode
	Labels   []*LabelNode
}

func (n *TableSwitchInsnNode) accept(mv classfile.MethodVisitor) {
	labels := make([]*classfile.Label, len(n.Labels))
	for i, l := range n.Labels {
		labels[i] = l.label
	}
	mv.VisitTableSwitchInsn(n.Min, n.Max, n.Default.label, labels...)
}

type LookupSwitchInsnNode struct {
	Default *LabelNode
	Keys    []int
	Labels  []*LabelNode
}

func (n *LookupSwitchInsnNode) accept(mv classfile.MethodVisitor) {
	labels := make([]*classfile.Label, len(n.Labels))
	for i, l := range n.Labels {
		labels[i] = l.label
	}
	mv.VisitLookupSwitchInsn(n.Default.label, n.Keys, labels)
}

type MultiANewArrayInsnNode struct {
	Descriptor    string
	NumDimensions int
}

func (n *MultiANewArrayInsnNode) accept(mv classfile.MethodVisitor) {
	mv.VisitMultiANewArrayInsn(n.Descriptor, n.NumDimensions)
}

type LineNumberNode struct {
	Line  int
	Start *LabelNode
}

func (n *LineNumberNode) accept(mv classfile.MethodVisitor) { mv.VisitLineNumber(n.Line, n.Start.label) }

type FrameNode struct {
	Type     int
	NumLocal int
	Local    []any
	NumStack int
	Stack    []any
}

func (n *FrameNode) accept(mv classfile.MethodVisitor) {
	mv.VisitFrame(n.Type, n.NumLocal, n.Local, n.NumStack, n.Stack)
}
