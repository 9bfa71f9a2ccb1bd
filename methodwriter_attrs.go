// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

// verificationTypeInfo appends one verification_type_info entry (JVMS
// §4.7.4) for abstract type t. A reference type whose type-table entry is
// still an unresolved TagMergedType symbol is conservatively widened to
// java/lang/Object: computing an exact common superclass needs a classpath
// and classloader this package does not have.
func verificationTypeInfo(out *ByteVector, t AbstractType, table *SymbolTable) {
	switch {
	case t == ATop:
		out.PutByte(ItemTop)
	case t == AInteger:
		out.PutByte(ItemInteger)
	case t == AFloat:
		out.PutByte(ItemFloat)
	case t == ALong:
		out.PutByte(ItemLong)
	case t == ADouble:
		out.PutByte(ItemDouble)
	case t == ANull:
		out.PutByte(ItemNull)
	case t == AUninitializedThis:
		out.PutByte(ItemUninitializedThis)
	default:
		switch t.Kind() {
		case KindUninitialized:
			sym := table.TypeTableEntry(t.Value())
			out.PutByte(ItemUninitialized)
			out.PutShort(sym.UninitializedOffset())
		case KindReference:
			out.PutByte(ItemObject)
			name := referenceInternalName(t, table)
			classSym, _ := table.AddClass(name)
			out.PutShort(classSym.Index)
		default:
			out.PutByte(ItemTop)
		}
	}
}

// referenceInternalName rebuilds the internal-name-or-array-descriptor a
// reference abstract type denotes, resolving a still-unmerged
// TagMergedType type-table entry to java/lang/Object.
func referenceInternalName(t AbstractType, table *SymbolTable) string {
	sym := table.TypeTableEntry(t.Value())
	var base string
	if sym.Tag == TagMergedType {
		base = "java/lang/Object"
	} else {
		base = sym.Value
	}
	if t.Dim() == 0 {
		return base
	}
	prefix := ""
	for i := 0; i < t.Dim(); i++ {
		prefix += "["
	}
	if len(base) == 1 && IsPrimitive(base) {
		return prefix + base
	}
	return prefix + "L" + base + ";"
}

// buildStackMapTable assembles the method's StackMapTable attribute body,
// serialized as an (uncompressed, all-FrameFull) sequence. Per-entry delta/
// chop/append compression, which real javac/ASM output uses, is out of
// scope here; a verifier accepts full frames exactly as well, just less
// compactly.
//
// Under ComputeNothing it re-serializes, verbatim, whatever frames the
// visitor supplied via VisitFrame (options.go's documented contract for
// that mode). Under ComputeFrames it runs the fixpoint merge over every
// reachable block, rewrites any block the merge never reached to
// nop...athrow padding (eliminateUnreachableBlocks), and emits a frame for
// every jump target and every rewritten dead block.
func (w *MethodWriter) buildStackMapTable() []byte {
	if w.compute == ComputeNothing {
		return w.buildCapturedStackMapTable()
	}
	if w.compute != ComputeFrames || w.firstLabel == nil {
		return nil
	}
	w.runFixpoint()
	w.eliminateUnreachableBlocks()

	out2 := NewByteVector(64)
	count := 0
	previousOffset := -1
	for b := w.firstLabel.nextBasicBlock; b != nil; b = b.nextBasicBlock {
		if (!b.IsJumpTarget() && !b.IsDeadCode()) || b.frame == nil || b.frame.InputLocals == nil {
			continue
		}
		count++
		delta := b.Offset()
		if previousOffset >= 0 {
			delta = b.Offset() - previousOffset - 1
		}
		previousOffset = b.Offset()
		out2.PutByte(FrameFull)
		out2.PutShort(delta)
		out2.PutShort(len(b.frame.InputLocals))
		for _, l := range b.frame.InputLocals {
			verificationTypeInfo(out2, l, w.table)
		}
		out2.PutShort(len(b.frame.InputStack))
		for _, s := range b.frame.InputStack {
			verificationTypeInfo(out2, s, w.table)
		}
	}
	if count == 0 {
		return nil
	}
	result := NewByteVector(out2.Len() + 2)
	result.PutShort(count)
	result.PutByteArray(out2.Bytes(), 0, out2.Len())
	return result.Bytes()
}

// buildCapturedStackMapTable re-serializes the frames VisitFrame captured
// verbatim, unchanged from how the visitor supplied them, for a
// ComputeNothing method (spec.md's "Roundtrip" property: a class read and
// re-emitted without recomputation must keep its StackMapTable).
func (w *MethodWriter) buildCapturedStackMapTable() []byte {
	if len(w.capturedFrames) == 0 {
		return nil
	}
	out2 := NewByteVector(64)
	previousOffset := -1
	for _, f := range w.capturedFrames {
		delta := f.offset
		if previousOffset >= 0 {
			delta = f.offset - previousOffset - 1
		}
		previousOffset = f.offset
		out2.PutByte(FrameFull)
		out2.PutShort(delta)
		out2.PutShort(len(f.local))
		for _, l := range f.local {
			writeVerificationTypeAny(out2, l, w.table)
		}
		out2.PutShort(len(f.stack))
		for _, s := range f.stack {
			writeVerificationTypeAny(out2, s, w.table)
		}
	}
	result := NewByteVector(out2.Len() + 2)
	result.PutShort(len(w.capturedFrames))
	result.PutByteArray(out2.Bytes(), 0, out2.Len())
	return result.Bytes()
}

// writeVerificationTypeAny appends one verification_type_info entry for a
// frame item in the shape VisitFrame/readStackMapTable exchange them in: an
// int tag for a primitive/Top/Null/UninitializedThis item, a string
// internal name for an object item, or a *Label for an uninitialized item.
func writeVerificationTypeAny(out *ByteVector, v any, table *SymbolTable) {
	switch t := v.(type) {
	case int:
		out.PutByte(t)
	case string:
		out.PutByte(ItemObject)
		sym, _ := table.AddClass(t)
		out.PutShort(sym.Index)
	case *Label:
		out.PutByte(ItemUninitialized)
		out.PutShort(t.Offset())
	default:
		out.PutByte(ItemTop)
	}
}

// runFixpoint performs phase 2 of the frame algorithm: a worklist merge
// starting at the entry block, whose input frame is already known, until no
// block's input frame changes further (spec.md §4.4).
func (w *MethodWriter) runFixpoint() {
	entry := w.firstLabel
	entry.MarkReachable()
	worklist := []*Label{entry}
	inWorklist := map[*Label]bool{entry: true}
	for len(worklist) > 0 {
		b := worklist[0]
		worklist = worklist[1:]
		inWorklist[b] = false
		if b.frame == nil {
			continue
		}
		for e := b.outgoingEdges; e != nil; e = e.Next {
			succ := e.Successor
			if succ.frame == nil {
				NewFrame(succ)
			}
			isException := e.Info >= 0
			var caught AbstractType
			if isException {
				if e.Info == 0 {
					sym := w.table.AddType("java/lang/Throwable")
					caught = ReferenceType(0, sym.Index)
				} else {
					caught = ReferenceType(0, e.Info-1)
				}
			}
			changed := MergeInto(b.frame, succ.frame, w.table, caught, isException)
			wasReachable := succ.IsReachable()
			succ.MarkReachable()
			if (changed || !wasReachable) && !inWorklist[succ] {
				worklist = append(worklist, succ)
				inWorklist[succ] = true
			}
		}
	}
}

// eliminateUnreachableBlocks implements the frame algorithm's phase 2
// termination step (spec.md §4.4): every block the fixpoint never reached
// is overwritten with nop...nop athrow padding, given a synthetic frame
// whose stack holds a single Throwable, and excised from every exception
// range it falls in via RemoveRange. Rewriting in place (rather than
// deleting the block) keeps every later offset, and every label pointing
// past the block, unchanged.
func (w *MethodWriter) eliminateUnreachableBlocks() {
	codeEnd := NewLabel()
	_ = codeEnd.Resolve(w.code, w.code.Len())

	code := w.code.Bytes()
	throwable := w.table.AddType("java/lang/Throwable")

	for b := w.firstLabel.nextBasicBlock; b != nil; b = b.nextBasicBlock {
		if b.IsReachable() {
			continue
		}
		blockEnd := codeEnd
		if b.nextBasicBlock != nil {
			blockEnd = b.nextBasicBlock
		}
		start, stop := b.Offset(), blockEnd.Offset()
		if stop <= start {
			continue
		}

		for i := start; i < stop-1; i++ {
			code[i] = byte(OpNop)
		}
		code[stop-1] = byte(OpAthrow)

		if b.frame == nil {
			NewFrame(b)
		}
		locals := make([]AbstractType, w.maxLocalsSeen)
		for i := range locals {
			locals[i] = ATop
		}
		b.frame.SetInput(locals, []AbstractType{ReferenceType(0, throwable.Index)})
		b.MarkDeadCode()
		b.MarkReachable()

		w.firstHandler = RemoveRange(w.firstHandler, b, blockEnd)
	}
}
