// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

// Reader.Accept parsing flags, combined with bitwise OR.
const (
	// SkipCode skips the Code attribute's instructions entirely: no
	// VisitFrame/VisitInsn*/VisitLabel/VisitMaxs calls are made, though
	// VisitTryCatchBlock and the line-number/local-variable tables still
	// are unless their own skip flags are also set.
	SkipCode = 1 << iota

	// SkipDebug skips LineNumberTable, LocalVariableTable, and
	// LocalVariableTypeTable attributes.
	SkipDebug

	// SkipFrames skips StackMapTable frames: no VisitFrame calls are made
	// even when ExpandFrames is also set.
	SkipFrames

	// ExpandFrames expands a compressed StackMapTable entry (SAME,
	// SAME_LOCALS_1_STACK_ITEM, CHOP, APPEND, SAME_FRAME_EXTENDED) into the
	// equivalent FrameFull shape before calling VisitFrame, so a visitor
	// never has to track the previous frame itself.
	ExpandFrames

	// ExpandASMInsns is accepted but not consulted by the reader: the
	// ASM-internal wide-branch placeholder opcodes (AsmIfeqW etc.) are not
	// expanded, and reach VisitInsn unchanged if present.
	ExpandASMInsns
)

// ComputeMode selects how a ClassWriter computes a method's max_stack/
// max_locals and StackMapTable, mirroring spec.md §5 "Two computation
// modes, chosen once per ClassWriter".
type ComputeMode int

const (
	// ComputeNothing leaves max_stack, max_locals, and any StackMapTable
	// exactly as the visitor supplied them via VisitMaxs/VisitFrame.
	ComputeNothing ComputeMode = iota

	// ComputeMaxs derives max_stack and max_locals from a CFG data-flow
	// analysis that tracks concrete stack depth only (spec.md §4.4's
	// COMPUTE_MAXS algorithm); StackMapTable frames are passed through
	// unchanged. Supports jsr/ret.
	ComputeMaxs

	// ComputeFrames recomputes the StackMapTable from scratch via the
	// full two-phase abstract-interpretation algorithm, and derives
	// max_stack/max_locals as a side effect of that analysis
	// (COMPUTE_MAXS_FROM_FRAMES). Does not support jsr/ret.
	ComputeFrames
)
