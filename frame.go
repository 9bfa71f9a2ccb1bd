// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

// AbstractType is the packed 32-bit representation of a potentially-unknown
// JVM type used during stack-map frame computation (spec.md §3 "An
// abstract type"):
//
//	[ DIM:6 signed | KIND:4 | FLAGS:2 | VALUE:20 ]
//
// Go has no native bitfields, so unlike the original design this is kept
// behind accessor methods rather than exposed as a bare integer; only
// frame.go and symboltable.go ever pack or unpack one directly (spec.md §9
// "Packed abstract types").
type AbstractType uint32

const (
	atValueBits = 20
	atValueMask = 1<<atValueBits - 1
	atFlagsBits = 2
	atFlagsMask = 1<<atFlagsBits - 1
	atKindBits  = 4
	atKindMask  = 1<<atKindBits - 1
	atDimBits   = 6
	atDimMask   = 1<<atDimBits - 1
)

// Abstract-type kinds.
const (
	KindConstant = iota
	KindReference
	KindUninitialized
	KindLocal
	KindStack
)

// FlagTopIfLongOrDouble marks a local/stack-referencing abstract type that
// resolution should turn into TOP if the referenced input slot turns out
// to hold the upper half of a long/double (spec.md §4.4 "Stores invalidate
// the neighboring local-variable slot").
const FlagTopIfLongOrDouble = 1

func packAbstractType(dim int, kind int, flags int, value int) AbstractType {
	return AbstractType(
		uint32(value&atValueMask) |
			uint32(flags&atFlagsMask)<<atValueBits |
			uint32(kind&atKindMask)<<(atValueBits+atFlagsBits) |
			uint32(dim&atDimMask)<<(atValueBits+atFlagsBits+atKindBits),
	)
}

// Dim returns the signed array-dimension delta in [-32, 31].
func (a AbstractType) Dim() int {
	raw := int(uint32(a) >> (atValueBits + atFlagsBits + atKindBits) & atDimMask)
	if raw > 31 {
		return raw - 64
	}
	return raw
}

// Kind returns one of the Kind* constants.
func (a AbstractType) Kind() int {
	return int(uint32(a) >> (atValueBits + atFlagsBits) & atKindMask)
}

// Flags returns the FlagTopIfLongOrDouble bit (and any future flag bits).
func (a AbstractType) Flags() int {
	return int(uint32(a) >> atValueBits & atFlagsMask)
}

// Value returns the kind-dependent 20-bit payload.
func (a AbstractType) Value() int {
	return int(uint32(a) & atValueMask)
}

// withDim returns a copy of a with its dimension delta adjusted by delta.
func (a AbstractType) withDim(delta int) AbstractType {
	return packAbstractType(a.Dim()+delta, a.Kind(), a.Flags(), a.Value())
}

// withTopIfLongOrDouble returns a copy of a with FlagTopIfLongOrDouble set.
func (a AbstractType) withTopIfLongOrDouble() AbstractType {
	return packAbstractType(a.Dim(), a.Kind(), a.Flags()|FlagTopIfLongOrDouble, a.Value())
}

func constantType(item int) AbstractType { return packAbstractType(0, KindConstant, 0, item) }

// Predefined constant abstract types (JVMS §4.7.4 verification_type_info,
// plus the ASM-internal small-int kinds used only to tag array elements).
var (
	ATop               = constantType(ItemTop)
	AInteger           = constantType(ItemInteger)
	AFloat             = constantType(ItemFloat)
	ALong              = constantType(ItemLong)
	ADouble            = constantType(ItemDouble)
	ANull              = constantType(ItemNull)
	AUninitializedThis = constantType(ItemUninitializedThis)
	ABoolean           = constantType(ItemBoolean)
	AByte              = constantType(ItemByte)
	AChar              = constantType(ItemChar)
	AShort             = constantType(ItemShort)
)

func localRef(index int) AbstractType { return packAbstractType(0, KindLocal, 0, index) }
func stackRef(offset int) AbstractType { return packAbstractType(0, KindStack, 0, offset) }

// ReferenceType returns the abstract type naming the type-table entry at
// typeTableIndex, with array dimension dim.
func ReferenceType(dim, typeTableIndex int) AbstractType {
	return packAbstractType(dim, KindReference, 0, typeTableIndex)
}

// UninitializedType returns the abstract type for the not-yet-initialized
// result of `new` naming the uninitialized type-table entry at
// typeTableIndex.
func UninitializedType(typeTableIndex int) AbstractType {
	return packAbstractType(0, KindUninitialized, 0, typeTableIndex)
}

// Frame holds the per-basic-block abstract-type arrays used by the
// stack-map frame engine's two phases (spec.md §4.4).
type Frame struct {
	owner *Label

	// Concrete at block entry once phase 2's fixpoint converges.
	InputLocals []AbstractType
	InputStack  []AbstractType

	// Expressed relatively to InputLocals/InputStack during phase 1;
	// resolved to concrete values by resolveOutput once InputLocals/
	// InputStack are known.
	outputLocals     []AbstractType
	outputStack      []AbstractType
	outputStackStart int

	// Types on which a constructor was invoked within this block: by
	// block exit every occurrence becomes the corresponding reference
	// type rather than uninitialized (spec.md §4.4).
	initializations []AbstractType

	// initializedMap resolves an initializations entry to its concrete
	// reference type; initializeType adds each pair, and SetInitializedMap
	// replaces the whole map.
	initializedMap map[AbstractType]AbstractType
}

// NewFrame returns an empty Frame owned by block.
func NewFrame(block *Label) *Frame {
	f := &Frame{owner: block}
	block.frame = f
	return f
}

// SetInput installs the (now known) concrete input locals/stack, used both
// for the method's implicit first frame and by the fixpoint merge once a
// predecessor's merge changes this block's input.
func (f *Frame) SetInput(locals, stack []AbstractType) {
	f.InputLocals = locals
	f.InputStack = stack
}

// setLocal ensures outputLocals is long enough and fills any newly exposed
// gap with a reference back to the corresponding input local (the
// "unchanged from input" representation), then writes value at index.
func (f *Frame) setLocal(index int, value AbstractType) {
	for len(f.outputLocals) <= index {
		f.outputLocals = append(f.outputLocals, localRef(len(f.outputLocals)))
	}
	f.outputLocals[index] = value
}

func (f *Frame) getLocal(index int) AbstractType {
	if index < len(f.outputLocals) {
		return f.outputLocals[index]
	}
	return localRef(index)
}

// invalidateNeighbor implements "stores invalidate the neighboring
// local-variable slot": storing a one-slot value at index may overlap the
// upper half of a long/double a previous store placed at index-1.
func (f *Frame) invalidateNeighbor(index int) {
	if index == 0 {
		return
	}
	neighbor := f.getLocal(index - 1)
	switch neighbor.Kind() {
	case KindConstant:
		if neighbor == ALong || neighbor == ADouble {
			f.setLocal(index-1, ATop)
		}
	case KindLocal:
		f.setLocal(index-1, neighbor.withTopIfLongOrDouble())
	}
}

func (f *Frame) push(t AbstractType) {
	f.outputStack = append(f.outputStack, t)
	f.owner.outputStackSize++
	if f.owner.outputStackSize > f.owner.outputStackMax {
		f.owner.outputStackMax = f.owner.outputStackSize
	}
}

func (f *Frame) pop() AbstractType {
	if n := len(f.outputStack); n > 0 {
		t := f.outputStack[n-1]
		f.outputStack = f.outputStack[:n-1]
		f.owner.outputStackSize--
		return t
	}
	offset := -f.outputStackStart
	f.outputStackStart--
	f.owner.outputStackSize--
	return stackRef(offset)
}

func (f *Frame) popN(n int) {
	for i := 0; i < n; i++ {
		f.pop()
	}
}

func (f *Frame) pushLong(t AbstractType) {
	f.push(t)
	f.push(ATop)
}

func (f *Frame) popLong() AbstractType {
	f.pop() // discard TOP half.
	return f.pop()
}

// initializeType replaces every current occurrence of uninitType in this
// block's output locals and stack with its initialized reference form, and
// records the mapping so the fixpoint can do the same across block
// boundaries (spec.md §4.4 "invokespecial <init>").
func (f *Frame) initializeType(uninitType, initializedType AbstractType) {
	f.initializations = append(f.initializations, uninitType)
	if f.initializedMap == nil {
		f.initializedMap = map[AbstractType]AbstractType{}
	}
	f.initializedMap[uninitType] = initializedType
	for i, t := range f.outputLocals {
		if t == uninitType {
			f.outputLocals[i] = initializedType
		}
	}
	for i, t := range f.outputStack {
		if t == uninitType {
			f.outputStack[i] = initializedType
		}
	}
}

// resolveReference resolves a local/stack-kind abstract type against this
// block's now-known input arrays, applying any recorded initializations.
// Reference/constant/uninitialized types pass through unchanged except for
// dimension bookkeeping already folded into the packed value.
func (f *Frame) resolveReference(t AbstractType, table *SymbolTable) AbstractType {
	switch t.Kind() {
	case KindLocal:
		idx := t.Value()
		var resolved AbstractType
		if idx < len(f.InputLocals) {
			resolved = f.InputLocals[idx]
		} else {
			resolved = ATop
		}
		if t.Flags()&FlagTopIfLongOrDouble != 0 && (resolved == ALong || resolved == ADouble) {
			resolved = ATop
		}
		return f.applyInitializations(resolved)
	case KindStack:
		offset := t.Value()
		idx := len(f.InputStack) - 1 - offset
		if idx < 0 || idx >= len(f.InputStack) {
			return ATop
		}
		return f.applyInitializations(f.InputStack[idx])
	default:
		return t
	}
}

func (f *Frame) applyInitializations(t AbstractType) AbstractType {
	for _, uninit := range f.initializations {
		if t == uninit {
			owner := f.owner
			return owner.frame.initializedReplacement(uninit)
		}
	}
	return t
}

// initializedReplacement returns the reference type recorded in
// initializedMap for uninit, or uninit itself when none is recorded.
func (f *Frame) initializedReplacement(uninit AbstractType) AbstractType {
	if f.initializedMap == nil {
		return uninit
	}
	if replacement, ok := f.initializedMap[uninit]; ok {
		return replacement
	}
	return uninit
}

// SetInitializedMap installs the uninitialized->reference replacement map
// used by applyInitializations, replacing the pairs initializeType has
// recorded so far.
func (f *Frame) SetInitializedMap(m map[AbstractType]AbstractType) {
	f.initializedMap = m
}

// resolvedOutputLocals returns this block's concrete exit locals: every
// input local, with the slots the block stored to replaced by the stored
// types, and the array extended to the highest slot the block stored to.
func (f *Frame) resolvedOutputLocals(table *SymbolTable) []AbstractType {
	n := len(f.outputLocals)
	if len(f.InputLocals) > n {
		n = len(f.InputLocals)
	}
	out := make([]AbstractType, n)
	for i := range out {
		out[i] = f.resolveReference(f.getLocal(i), table)
	}
	return out
}

// resolvedOutputStack returns this block's concrete exit stack, accounting
// for outputStackStart: a negative start means the block also consumed
// that many elements of the (now known) input stack before its first push.
func (f *Frame) resolvedOutputStack(table *SymbolTable) []AbstractType {
	var out []AbstractType
	if f.outputStackStart < 0 {
		consumed := -f.outputStackStart
		keep := len(f.InputStack) - consumed
		if keep > 0 {
			out = append(out, f.InputStack[:keep]...)
		}
	} else {
		out = append(out, f.InputStack...)
	}
	for _, t := range f.outputStack {
		out = append(out, f.resolveReference(t, table))
	}
	return out
}

// --- merge rules (spec.md §4.4 phase 2 step 3) ---

// mergeType merges two concrete abstract types per the JVM verifier's
// lub-like rule and reports whether the result differs from dst (so the
// caller knows whether the destination block needs re-enqueuing).
func mergeType(dst, src AbstractType, table *SymbolTable) (AbstractType, bool) {
	if src == dst {
		return dst, false
	}
	if src == ATop {
		return ATop, dst != ATop
	}
	if dst == ATop {
		return ATop, false
	}
	if src == ANull {
		if isReferenceLike(dst) {
			return dst, false
		}
		return ATop, true
	}
	if dst == ANull {
		if isReferenceLike(src) {
			return src, true
		}
		return ATop, true
	}
	if !isReferenceLike(dst) || !isReferenceLike(src) {
		return ATop, true
	}

	primElem := func(t AbstractType) bool {
		if t.Kind() != KindReference || t.Dim() == 0 {
			return false
		}
		e := table.TypeTableEntry(t.Value()).Value
		return len(e) == 1 && IsPrimitive(e)
	}
	dstDim, srcDim := dst.Dim(), src.Dim()
	if dstDim == srcDim && dst.Kind() == KindReference && src.Kind() == KindReference && !primElem(dst) && !primElem(src) {
		if dst.Value() == src.Value() {
			return dst, false
		}
		merged := table.AddMergedType(dst.Value(), src.Value())
		result := ReferenceType(dstDim, merged.Index)
		return result, true
	}

	minDim := dstDim
	if srcDim < minDim {
		minDim = srcDim
	}
	if (dstDim == minDim && primElem(dst)) || (srcDim == minDim && primElem(src)) {
		minDim--
	}
	if minDim > 0 {
		// Mixed array shapes reduce to an Object array of the smaller
		// dimension, one less when a side of that dimension has a
		// primitive element (int[][] and String[] give Object).
		result := ReferenceType(minDim, objectTypeIndex(table))
		return result, true
	}
	result := ReferenceType(0, objectTypeIndex(table))
	return result, true
}

func isReferenceLike(t AbstractType) bool {
	return t.Kind() == KindReference || t.Kind() == KindUninitialized || t == AUninitializedThis
}

// objectTypeIndex interns java/lang/Object in the type table; AddType
// already dedups by hash, so no separate cache is needed.
func objectTypeIndex(table *SymbolTable) int {
	return table.AddType("java/lang/Object").Index
}

// MergeInto merges this block's resolved exit frame into successor's
// entry frame, enqueuing successor onto worklist (via the caller) if its
// input changed. For an exception-handler successor the input stack
// becomes a single-element stack holding the caught type, and the input
// locals merge against this block's *input* locals (an exception can be
// raised by any instruction in the try range, including the first).
func MergeInto(from *Frame, to *Frame, table *SymbolTable, caughtType AbstractType, isExceptionEdge bool) bool {
	changed := false

	var fromLocals []AbstractType
	if isExceptionEdge {
		fromLocals = from.InputLocals
	} else {
		fromLocals = from.resolvedOutputLocals(table)
	}

	if to.InputLocals == nil {
		to.InputLocals = append([]AbstractType(nil), fromLocals...)
		changed = true
	} else {
		n := len(to.InputLocals)
		if len(fromLocals) < n {
			n = len(fromLocals)
		}
		for i := 0; i < n; i++ {
			merged, diff := mergeType(to.InputLocals[i], fromLocals[i], table)
			if diff {
				to.InputLocals[i] = merged
				changed = true
			}
		}
		if len(to.InputLocals) > len(fromLocals) {
			for i := len(fromLocals); i < len(to.InputLocals); i++ {
				if to.InputLocals[i] != ATop {
					to.InputLocals[i] = ATop
					changed = true
				}
			}
		}
	}

	var fromStack []AbstractType
	if isExceptionEdge {
		fromStack = []AbstractType{caughtType}
	} else {
		fromStack = from.resolvedOutputStack(table)
	}

	if to.InputStack == nil {
		to.InputStack = append([]AbstractType(nil), fromStack...)
		changed = true
	} else {
		if len(to.InputStack) != len(fromStack) {
			// A stack-depth mismatch between two merge sources for the
			// same block is a malformed method; keep the existing input
			// rather than panic, matching the engine's "never increase
			// max_stack on rewrite" stance of erring conservatively.
			return changed
		}
		for i := range to.InputStack {
			merged, diff := mergeType(to.InputStack[i], fromStack[i], table)
			if diff {
				to.InputStack[i] = merged
				changed = true
			}
		}
	}

	return changed
}
