// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import "sort"

// Finish must be called exactly once, after every visitor call for this
// method has been made. It widens every overflowing branch
// (rewriteOverflowingJumps) and adds the exception-handler CFG edges
// (linkExceptionEdges); buildCodeAttributeBody calls it before it resolves
// max_stack/max_locals and the StackMapTable and assembles the Code attribute.
func (w *MethodWriter) Finish() error {
	if !w.sawCode {
		return nil
	}
	w.rewriteOverflowingJumps()
	w.linkExceptionEdges()
	return nil
}

// negatedConditionalOpcode returns the logical negation of a one-operand
// conditional-branch opcode (ifeq/ifne, the if_icmp* family, if_acmp*, and
// ifnull/ifnonnull), and whether opcode is one of those at all. goto and
// jsr, which have a wide form of their own, are not conditional branches
// and report false.
func negatedConditionalOpcode(opcode int) (int, bool) {
	switch opcode {
	case OpIfeq:
		return OpIfne, true
	case OpIfne:
		return OpIfeq, true
	case OpIflt:
		return OpIfge, true
	case OpIfge:
		return OpIflt, true
	case OpIfgt:
		return OpIfle, true
	case OpIfle:
		return OpIfgt, true
	case OpIfIcmpeq:
		return OpIfIcmpne, true
	case OpIfIcmpne:
		return OpIfIcmpeq, true
	case OpIfIcmplt:
		return OpIfIcmpge, true
	case OpIfIcmpge:
		return OpIfIcmplt, true
	case OpIfIcmpgt:
		return OpIfIcmple, true
	case OpIfIcmple:
		return OpIfIcmpgt, true
	case OpIfAcmpeq:
		return OpIfAcmpne, true
	case OpIfAcmpne:
		return OpIfAcmpeq, true
	case OpIfnull:
		return OpIfnonnull, true
	case OpIfnonnull:
		return OpIfnull, true
	default:
		return 0, false
	}
}

// shiftLabelsFrom bumps by n the recorded offset of every block at or past
// pos, along with the already-baked LineNumberTable offsets and the offsets
// of frames captured by VisitFrame (the other places a bytecode offset is
// captured as a bare int rather than read lazily through a *Label).
// Exception-handler and local-variable entries
// hold *Label pointers and need no separate adjustment: Label.Offset goes
// through Canonical, which resolves to the same block objects this walk
// updates.
func (w *MethodWriter) shiftLabelsFrom(pos, n int) {
	for b := w.firstLabel; b != nil; b = b.nextBasicBlock {
		if b.bytecodeOffset >= pos {
			b.bytecodeOffset += n
		}
	}
	for i := range w.lineNumbers {
		if w.lineNumbers[i].offset >= pos {
			w.lineNumbers[i].offset += n
		}
	}
	for i := range w.capturedFrames {
		if w.capturedFrames[i].offset >= pos {
			w.capturedFrames[i].offset += n
		}
	}
}

// rewriteOverflowingJumps widens every forward branch Label.Resolve
// reported as unable to fit its target delta into a 16-bit operand
// (spec.md §4.3, and its §8 concrete scenario 3 "Oversized forward jump").
// goto/jsr gain a four-byte operand in place (goto_w/jsr_w). A conditional
// branch has no wide form, so it is negated and followed by a goto_w to
// the original target -- the same substitution ASM-style writers use:
//
//	if<cond> L          -->   if<negated-cond> M
//	                          goto_w L
//	                     M:
//
// Entries are processed in ascending original-offset order, with a running
// shift applied to each entry's recorded offset, so every insertion is
// accounted for before the next one's position is computed.
func (w *MethodWriter) rewriteOverflowingJumps() {
	if len(w.pendingWideJumps) == 0 {
		return
	}
	pending := append([]pendingWideJump(nil), w.pendingWideJumps...)
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].sourceInstructionOffset < pending[j].sourceInstructionOffset
	})

	shift := 0
	for _, pw := range pending {
		pos := pw.sourceInstructionOffset + shift
		opcode := int(w.code.Bytes()[pos])

		if negated, ok := negatedConditionalOpcode(opcode); ok {
			w.code.InsertZeros(pos+3, 5)
			w.shiftLabelsFrom(pos+3, 5)
			w.code.overwriteByte(pos, byte(negated))
			w.code.OverwriteShort(pos+1, 8) // skip past the inserted goto_w
			w.code.overwriteByte(pos+3, byte(OpGotoW))
			w.code.OverwriteInt(pos+4, int32(pw.target.Offset()-(pos+3)))
			shift += 5
			continue
		}

		wideOpcode := opcode
		switch opcode {
		case OpGoto:
			wideOpcode = OpGotoW
		case OpJsr:
			wideOpcode = OpJsrW
		}
		w.code.InsertZeros(pos+1, 2)
		w.shiftLabelsFrom(pos+1, 2)
		w.code.overwriteByte(pos, byte(wideOpcode))
		w.code.OverwriteInt(pos+1, int32(pw.target.Offset()-pos))
		shift += 2
	}
	w.pendingWideJumps = nil
}

// WriteMethodInfo appends this method's complete method_info structure
// (JVMS §4.6) to out, building its own Code attribute body.
func (w *MethodWriter) WriteMethodInfo(out *ByteVector) error {
	var code []byte
	if w.sawCode {
		var err error
		code, err = w.buildCodeAttributeBody()
		if err != nil {
			return err
		}
	}
	return w.writeMethodInfoWithCode(out, code)
}

// writeMethodInfoWithCode appends the method_info structure using an
// already-built Code attribute body, letting a caller (ClassWriter) check
// every method's size before committing any bytes.
func (w *MethodWriter) writeMethodInfoWithCode(out *ByteVector, code []byte) error {
	out.PutShort(w.accessFlags)
	out.PutShort(w.nameIndex)
	out.PutShort(w.descriptorIndex)

	var attributes [][]byte
	var attributeNameIndices []int

	addAttr := func(name string, body []byte) error {
		sym, err := w.table.AddUTF8(name)
		if err != nil {
			return err
		}
		attributeNameIndices = append(attributeNameIndices, sym.Index)
		attributes = append(attributes, body)
		return nil
	}

	if w.sawCode {
		if err := addAttr(AttrCode, code); err != nil {
			return err
		}
	}

	if len(w.exceptions) > 0 {
		body := NewByteVector(2 + 2*len(w.exceptions))
		body.PutShort(len(w.exceptions))
		for _, e := range w.exceptions {
			sym, err := w.table.AddClass(e)
			if err != nil {
				return err
			}
			body.PutShort(sym.Index)
		}
		if err := addAttr(AttrExceptions, body.Bytes()); err != nil {
			return err
		}
	}

	if w.signatureIndex != 0 {
		body := NewByteVector(2)
		body.PutShort(w.signatureIndex)
		if err := addAttr(AttrSignature, body.Bytes()); err != nil {
			return err
		}
	}

	if w.accessFlags&AccSynthetic != 0 {
		if err := addAttr(AttrSynthetic, nil); err != nil {
			return err
		}
	}
	if w.accessFlags&AccDeprecated != 0 {
		if err := addAttr(AttrDeprecated, nil); err != nil {
			return err
		}
	}

	if len(w.parameters) > 0 {
		body := NewByteVector(1 + 4*len(w.parameters))
		body.PutByte(len(w.parameters))
		for _, p := range w.parameters {
			if p.name == "" {
				body.PutShort(0)
			} else {
				sym, err := w.table.AddUTF8(p.name)
				if err != nil {
					return err
				}
				body.PutShort(sym.Index)
			}
			body.PutShort(p.access)
		}
		if err := addAttr(AttrMethodParameters, body.Bytes()); err != nil {
			return err
		}
	}

	if w.annotationDefault != nil {
		if err := addAttr(AttrAnnotationDefault, w.annotationDefault.Bytes()); err != nil {
			return err
		}
	}
	if w.visibleAnnotations != nil {
		if err := addAttr(AttrRuntimeVisibleAnnotations, w.visibleAnnotations.finish()); err != nil {
			return err
		}
	}
	if w.invisibleAnnotations != nil {
		if err := addAttr(AttrRuntimeInvisibleAnnotations, w.invisibleAnnotations.finish()); err != nil {
			return err
		}
	}

	for _, a := range w.rawAttributes {
		if err := addAttr(a.Name, a.Data); err != nil {
			return err
		}
	}

	out.PutShort(len(attributes))
	for i, body := range attributes {
		out.PutShort(attributeNameIndices[i])
		out.PutInt(int64(len(body)))
		out.PutByteArray(body, 0, len(body))
	}
	return nil
}

// buildCodeAttributeBody assembles the Code attribute body (JVMS §4.7.3):
// max_stack, max_locals, code, exception_table, then its own nested
// attributes (LineNumberTable, LocalVariableTable, StackMapTable).
func (w *MethodWriter) buildCodeAttributeBody() ([]byte, error) {
	if err := w.Finish(); err != nil {
		return nil, err
	}
	maxStack, maxLocals := w.resolvedMaxStackAndLocals()
	smt := w.buildStackMapTable()

	body := NewByteVector(w.code.Len() + 32)
	body.PutShort(maxStack)
	body.PutShort(maxLocals)
	body.PutInt(int64(w.code.Len()))
	body.PutByteArray(w.code.Bytes(), 0, w.code.Len())

	handlerCount := 0
	for h := w.firstHandler; h != nil; h = h.Next {
		handlerCount++
	}
	body.PutShort(handlerCount)
	for h := w.firstHandler; h != nil; h = h.Next {
		body.PutShort(h.StartLabel.Offset())
		body.PutShort(h.EndLabel.Offset())
		body.PutShort(h.HandlerLabel.Offset())
		body.PutShort(h.CatchTypeIndex)
	}

	var nested [][]byte
	var nestedNames []int

	addNested := func(name string, data []byte) error {
		sym, err := w.table.AddUTF8(name)
		if err != nil {
			return err
		}
		nestedNames = append(nestedNames, sym.Index)
		nested = append(nested, data)
		return nil
	}

	if len(w.lineNumbers) > 0 {
		n := NewByteVector(2 + 4*len(w.lineNumbers))
		n.PutShort(len(w.lineNumbers))
		for _, e := range w.lineNumbers {
			n.PutShort(e.offset)
			n.PutShort(e.line)
		}
		if err := addNested(AttrLineNumberTable, n.Bytes()); err != nil {
			return nil, err
		}
	}

	if len(w.localVars) > 0 {
		n := NewByteVector(2 + 10*len(w.localVars))
		n.PutShort(len(w.localVars))
		for _, e := range w.localVars {
			nameSym, err := w.table.AddUTF8(e.name)
			if err != nil {
				return nil, err
			}
			descSym, err := w.table.AddUTF8(e.descriptor)
			if err != nil {
				return nil, err
			}
			n.PutShort(e.start.Offset())
			n.PutShort(e.end.Offset() - e.start.Offset())
			n.PutShort(nameSym.Index)
			n.PutShort(descSym.Index)
			n.PutShort(e.index)
		}
		if err := addNested(AttrLocalVariableTable, n.Bytes()); err != nil {
			return nil, err
		}
	}

	if smt != nil {
		if err := addNested(AttrStackMapTable, smt); err != nil {
			return nil, err
		}
	}

	body.PutShort(len(nested))
	for i, data := range nested {
		body.PutShort(nestedNames[i])
		body.PutInt(int64(len(data)))
		body.PutByteArray(data, 0, len(data))
	}

	return body.Bytes(), nil
}
