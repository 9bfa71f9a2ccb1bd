// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

// readMethod reads one method_info structure starting at offset and drives
// visitor through VisitMethod and, unless SkipCode is set and a Code
// attribute is present, the full bytecode decode (JVMS §4.7.3, §6.5).
func (r *Reader) readMethod(visitor ClassVisitor, offset int, options int) {
	access := r.u2(offset)
	name := r.utf8(r.u2(offset + 2))
	descriptor := r.utf8(r.u2(offset + 4))
	attrs := r.scanAttributes(offset + 6)

	var signature string
	var exceptions []string
	var codeAttr *rawAttr
	var methodParams *rawAttr
	var annotationDefault *rawAttr
	var rawRest []rawAttr
	for _, a := range attrs {
		a := a
		switch a.name {
		case AttrSignature:
			signature = r.utf8(r.u2(a.offset))
		case AttrExceptions:
			exceptions = r.readExceptions(a.offset)
		case AttrCode:
			codeAttr = &a
		case AttrMethodParameters:
			methodParams = &a
		case AttrAnnotationDefault:
			annotationDefault = &a
		default:
			rawRest = append(rawRest, a)
		}
	}

	mv := visitor.VisitMethod(access, name, descriptor, signature, exceptions)
	if mv == nil {
		return
	}

	if methodParams != nil {
		r.readMethodParameters(mv, methodParams.offset)
	}
	if annotationDefault != nil {
		av := mv.VisitAnnotationDefault()
		if av != nil {
			r.readElementValue(annotationDefault.offset, "", av)
			av.VisitEnd()
		}
	}
	for _, a := range rawRest {
		r.replayMemberAttribute(a, mv.VisitAnnotation, mv.VisitAttribute)
	}

	if codeAttr != nil && options&SkipCode == 0 {
		r.readCode(mv, *codeAttr, options)
	}

	mv.VisitEnd()
}

func (r *Reader) readExceptions(offset int) []string {
	count := r.u2(offset)
	offset += 2
	exceptions := make([]string, count)
	for i := 0; i < count; i++ {
		exceptions[i] = r.class(r.u2(offset))
		offset += 2
	}
	return exceptions
}

func (r *Reader) readMethodParameters(mv MethodVisitor, offset int) {
	count := r.u1(offset)
	offset++
	for i := 0; i < count; i++ {
		nameIndex := r.u2(offset)
		access := r.u2(offset + 2)
		var name string
		if nameIndex != 0 {
			name = r.utf8(nameIndex)
		}
		mv.VisitParameter(name, access)
		offset += 4
	}
}

// codeCursor holds the mutable state threaded through the two bytecode
// traversal passes in readCode: the code bytes, the label table, and the
// frame events decoded from the StackMapTable.
type codeCursor struct {
	code   []byte
	labels map[int]*Label
	frames []frameEvent
}

func (c *codeCursor) labelAt(offset int) *Label {
	if l, ok := c.labels[offset]; ok {
		return l
	}
	l := NewLabel()
	c.labels[offset] = l
	return l
}

// readCode decodes one Code attribute body (JVMS §4.7.3): max_stack,
// max_locals, the instruction stream, the exception table, and nested
// attributes (LineNumberTable, LocalVariableTable, LocalVariableTypeTable,
// StackMapTable, raw), driving mv through VisitCode..VisitMaxs in the order
// JVMS §4.9 requires of a class file, reusing the Label forward-reference
// machinery label.go already provides for the writer.
func (r *Reader) readCode(mv MethodVisitor, a rawAttr, options int) {
	base := a.offset
	maxStack := r.u2(base)
	maxLocals := r.u2(base + 2)
	codeLength := int(r.u4(base + 4))
	codeOffset := base + 8
	code := r.bytes[codeOffset : codeOffset+codeLength]

	excOffset := codeOffset + codeLength
	excCount := r.u2(excOffset)
	type excEntry struct{ start, end, handler, catchType int }
	excEntries := make([]excEntry, excCount)
	eo := excOffset + 2
	for i := 0; i < excCount; i++ {
		excEntries[i] = excEntry{r.u2(eo), r.u2(eo + 2), r.u2(eo + 4), r.u2(eo + 6)}
		eo += 8
	}

	codeAttrs := r.scanAttributes(eo)
	type localEntry struct {
		start, length, nameIndex, descIndex, index int
	}
	var lines []lineEntry
	var locals []localEntry
	var stackMap *rawAttr
	var rawCodeAttrs []rawAttr
	for _, ca := range codeAttrs {
		ca := ca
		switch ca.name {
		case AttrLineNumberTable:
			n := r.u2(ca.offset)
			o := ca.offset + 2
			for i := 0; i < n; i++ {
				lines = append(lines, lineEntry{r.u2(o), r.u2(o + 2)})
				o += 4
			}
		case AttrLocalVariableTable:
			n := r.u2(ca.offset)
			o := ca.offset + 2
			for i := 0; i < n; i++ {
				locals = append(locals, localEntry{r.u2(o), r.u2(o + 2), r.u2(o + 4), r.u2(o + 6), r.u2(o + 8)})
				o += 10
			}
		case AttrStackMapTable:
			stackMap = &ca
		default:
			rawCodeAttrs = append(rawCodeAttrs, ca)
		}
	}

	cursor := &codeCursor{code: code, labels: map[int]*Label{}}
	for _, e := range excEntries {
		cursor.labelAt(e.start)
		cursor.labelAt(e.end)
		cursor.labelAt(e.handler)
	}
	if options&SkipDebug == 0 {
		for _, ln := range lines {
			cursor.labelAt(ln.offset)
		}
		for _, lv := range locals {
			cursor.labelAt(lv.start)
			cursor.labelAt(lv.start + lv.length)
		}
	}
	r.scanBranchTargets(cursor)

	mv.VisitCode()

	if stackMap != nil && options&SkipFrames == 0 {
		r.readStackMapTable(mv, cursor, *stackMap, options)
	}

	r.decodeInstructions(mv, cursor, options, lines)

	for _, e := range excEntries {
		var catchType string
		if e.catchType != 0 {
			catchType = r.class(e.catchType)
		}
		mv.VisitTryCatchBlock(cursor.labelAt(e.start), cursor.labelAt(e.end), cursor.labelAt(e.handler), catchType)
	}

	if options&SkipDebug == 0 {
		for _, lv := range locals {
			name := r.utf8(lv.nameIndex)
			descriptor := r.utf8(lv.descIndex)
			mv.VisitLocalVariable(name, descriptor, "", cursor.labelAt(lv.start), cursor.labelAt(lv.start+lv.length), lv.index)
		}
	}

	for _, ca := range rawCodeAttrs {
		body := make([]byte, ca.length)
		copy(body, r.bytes[ca.offset:ca.offset+ca.length])
		mv.VisitAttribute(Attribute{Name: ca.name, Data: body})
	}

	mv.VisitMaxs(maxStack, maxLocals)
}

// scanBranchTargets walks the instruction stream once, purely to discover
// every offset a branch or switch instruction targets, so the labels those
// targets need exist before the emitting pass in decodeInstructions reaches
// them (a backward jump's target is otherwise seen only after the jump
// itself has already been decoded).
func (r *Reader) scanBranchTargets(c *codeCursor) {
	code := c.code
	offset := 0
	wide := false
	for offset < len(code) {
		start := offset
		opcode := int(code[offset])
		if opcode == OpWide {
			offset++
			wide = true
			continue
		}
		length, targets := instructionLength(code, offset, opcode, wide)
		for _, t := range targets {
			c.labelAt(start + t)
		}
		offset += length
		wide = false
	}
}

// instructionLength returns the byte length of the instruction at offset
// (opcode already read, operand(s) not yet consumed) and any branch offsets
// it carries, relative to the instruction's own start. A preceding `wide`
// opcode is consumed separately by the caller, so the wide form's length
// here excludes that prefix byte.
func instructionLength(code []byte, offset, opcode int, wide bool) (length int, targets []int) {
	switch {
	case opcode >= OpIconstM1 && opcode <= OpDconst1, opcode == OpNop, opcode == OpAconstNull,
		opcode >= OpIload0 && opcode <= 45, // iload_0..aload_3
		opcode >= OpIaload && opcode <= OpSaload,
		opcode >= OpIstore0 && opcode <= 78, // istore_0..astore_3
		opcode >= OpIastore && opcode <= OpSastore,
		opcode >= OpPop && opcode <= OpDup2X2, opcode == OpSwap,
		opcode >= OpIadd && opcode <= OpLxor, opcode >= OpI2l && opcode <= OpI2s,
		opcode >= OpLcmp && opcode <= OpDcmpg, opcode >= OpIreturn && opcode <= OpReturn,
		opcode == OpArraylength, opcode == OpAthrow, opcode == OpMonitorenter, opcode == OpMonitorexit:
		return 1, nil
	case opcode == OpBipush, opcode == OpNewarray, opcode == OpLdc:
		return 2, nil
	case opcode == OpSipush, opcode == OpLdcW, opcode == OpLdc2W,
		opcode == OpGetstatic, opcode == OpPutstatic, opcode == OpGetfield, opcode == OpPutfield,
		opcode == OpInvokevirtual, opcode == OpInvokespecial, opcode == OpInvokestatic,
		opcode == OpNew, opcode == OpAnewarray, opcode == OpCheckcast, opcode == OpInstanceof:
		return 3, nil
	case opcode >= OpIload && opcode <= OpAload, opcode >= OpIstore && opcode <= OpAstore, opcode == OpRet:
		if wide {
			return 3, nil
		}
		return 2, nil
	case opcode == OpIinc:
		if wide {
			return 5, nil
		}
		return 3, nil
	case opcode >= OpIfeq && opcode <= OpIfIcmple, opcode >= OpIfAcmpeq && opcode <= OpGoto, opcode == OpJsr,
		opcode == OpIfnull, opcode == OpIfnonnull:
		delta := int(int16(uint16(code[offset+1])<<8 | uint16(code[offset+2])))
		return 3, []int{delta}
	case opcode == OpGotoW, opcode == OpJsrW:
		delta := int(int32(uint32(code[offset+1])<<24 | uint32(code[offset+2])<<16 | uint32(code[offset+3])<<8 | uint32(code[offset+4])))
		return 5, []int{delta}
	case opcode == OpInvokeinterface:
		return 5, nil
	case opcode == OpInvokedynamic:
		return 5, nil
	case opcode == OpMultianewarray:
		return 4, nil
	case opcode == OpTableswitch:
		pad := (4 - (offset+1)%4) % 4
		p := offset + 1 + pad
		low := int(int32(be32(code, p+4)))
		high := int(int32(be32(code, p+8)))
		n := high - low + 1
		dflt := int(int32(be32(code, p)))
		targets = append(targets, dflt)
		for i := 0; i < n; i++ {
			targets = append(targets, int(int32(be32(code, p+12+4*i))))
		}
		return (p + 12 + 4*n) - offset, targets
	case opcode == OpLookupswitch:
		pad := (4 - (offset+1)%4) % 4
		p := offset + 1 + pad
		dflt := int(int32(be32(code, p)))
		npairs := int(int32(be32(code, p+4)))
		targets = append(targets, dflt)
		for i := 0; i < npairs; i++ {
			targets = append(targets, int(int32(be32(code, p+8+8*i+4))))
		}
		return (p + 8 + 8*npairs) - offset, targets
	default:
		return 1, nil
	}
}

func be32(code []byte, offset int) uint32 {
	return uint32(code[offset])<<24 | uint32(code[offset+1])<<16 | uint32(code[offset+2])<<8 | uint32(code[offset+3])
}

type lineEntry struct{ offset, line int }

// decodeInstructions is the emitting pass over the bytecode stream: for each
// offset it first replays any label/line-number events recorded against it,
// then decodes exactly one instruction into the matching MethodVisitor call
// (JVMS §6.5). The ExpandASMInsns flag is not consulted: an opcode in the
// AsmIfeqW..AsmIfnonnullW range reaches VisitInsn unchanged.
func (r *Reader) decodeInstructions(mv MethodVisitor, c *codeCursor, options int, lines []lineEntry) {
	lineAt := make(map[int]int, len(lines))
	if options&SkipDebug == 0 {
		for _, ln := range lines {
			lineAt[ln.offset] = ln.line
		}
	}
	frameAt := make(map[int]frameEvent, len(c.frames))
	for _, f := range c.frames {
		frameAt[f.offset] = f
	}

	code := c.code
	offset := 0
	wide := false
	for offset < len(code) {
		start := offset
		if l, ok := c.labels[start]; ok {
			mv.VisitLabel(l)
		}
		if f, ok := frameAt[start]; ok {
			mv.VisitFrame(f.frameType, f.numLocal, f.local, f.numStack, f.stack)
		}
		if line, ok := lineAt[start]; ok {
			mv.VisitLineNumber(line, c.labelAt(start))
		}

		opcode := int(code[offset])
		if opcode == OpWide {
			offset++
			wide = true
			continue
		}

		switch {
		case opcode == OpBipush:
			mv.VisitIntInsn(opcode, int(int8(code[offset+1])))
		case opcode == OpNewarray:
			mv.VisitIntInsn(opcode, int(code[offset+1]))
		case opcode == OpSipush:
			mv.VisitIntInsn(opcode, int(int16(uint16(code[offset+1])<<8|uint16(code[offset+2]))))
		case opcode == OpLdc:
			mv.VisitLdcInsn(r.constant(int(code[offset+1])))
		case opcode == OpLdcW, opcode == OpLdc2W:
			mv.VisitLdcInsn(r.constant(r.u2c(code, offset+1)))
		case opcode >= OpIload && opcode <= OpAload, opcode >= OpIstore && opcode <= OpAstore:
			if wide {
				mv.VisitVarInsn(opcode, r.u2c(code, offset+1))
			} else {
				mv.VisitVarInsn(opcode, int(code[offset+1]))
			}
		case opcode == OpRet:
			if wide {
				mv.VisitVarInsn(opcode, r.u2c(code, offset+1))
			} else {
				mv.VisitVarInsn(opcode, int(code[offset+1]))
			}
		case opcode >= OpIload0 && opcode <= 45:
			base, idx := shortFormVarBase(opcode)
			mv.VisitVarInsn(base, idx)
		case opcode >= OpIstore0 && opcode <= 78:
			base, idx := shortFormVarBase(opcode)
			mv.VisitVarInsn(base, idx)
		case opcode == OpIinc:
			if wide {
				varIndex := r.u2c(code, offset+1)
				inc := int(int16(uint16(code[offset+3])<<8 | uint16(code[offset+4])))
				mv.VisitIincInsn(varIndex, inc)
			} else {
				mv.VisitIincInsn(int(code[offset+1]), int(int8(code[offset+2])))
			}
		case opcode >= OpIfeq && opcode <= OpIfIcmple, opcode >= OpIfAcmpeq && opcode <= OpGoto, opcode == OpJsr,
			opcode == OpIfnull, opcode == OpIfnonnull:
			delta := int(int16(uint16(code[offset+1])<<8 | uint16(code[offset+2])))
			mv.VisitJumpInsn(opcode, c.labelAt(start+delta))
		case opcode == OpGotoW, opcode == OpJsrW:
			delta := int(int32(be32(code, offset+1)))
			jumpOp := OpGoto
			if opcode == OpJsrW {
				jumpOp = OpJsr
			}
			mv.VisitJumpInsn(jumpOp, c.labelAt(start+delta))
		case opcode == OpGetstatic, opcode == OpPutstatic, opcode == OpGetfield, opcode == OpPutfield:
			owner, name, descriptor := r.fieldref(r.u2c(code, offset+1))
			mv.VisitFieldInsn(opcode, owner, name, descriptor)
		case opcode == OpInvokevirtual, opcode == OpInvokespecial, opcode == OpInvokestatic:
			owner, name, descriptor, isInterface := r.methodref(r.u2c(code, offset+1))
			mv.VisitMethodInsn(opcode, owner, name, descriptor, isInterface)
		case opcode == OpInvokeinterface:
			owner, name, descriptor, _ := r.methodref(r.u2c(code, offset+1))
			mv.VisitMethodInsn(opcode, owner, name, descriptor, true)
		case opcode == OpInvokedynamic:
			index := r.u2c(code, offset+1)
			cpOffset := r.cpInfoOffsets[index]
			bsmIndex := r.u2(cpOffset)
			name, descriptor := r.nameAndType(r.u2(cpOffset + 2))
			handle, args := r.bootstrapMethod(bsmIndex)
			mv.VisitInvokeDynamicInsn(name, descriptor, handle, args...)
		case opcode == OpNew, opcode == OpAnewarray, opcode == OpCheckcast, opcode == OpInstanceof:
			mv.VisitTypeInsn(opcode, r.class(r.u2c(code, offset+1)))
		case opcode == OpMultianewarray:
			descriptor := ObjectDescriptorFromInternalName(r.class(r.u2c(code, offset+1)))
			mv.VisitMultiANewArrayInsn(descriptor, int(code[offset+3]))
		case opcode == OpTableswitch:
			pad := (4 - (start+1)%4) % 4
			p := start + 1 + pad
			dflt := int(int32(be32(code, p)))
			low := int(int32(be32(code, p+4)))
			high := int(int32(be32(code, p+8)))
			n := high - low + 1
			labels := make([]*Label, n)
			for i := 0; i < n; i++ {
				labels[i] = c.labelAt(start + int(int32(be32(code, p+12+4*i))))
			}
			mv.VisitTableSwitchInsn(low, high, c.labelAt(start+dflt), labels...)
		case opcode == OpLookupswitch:
			pad := (4 - (start+1)%4) % 4
			p := start + 1 + pad
			dflt := int(int32(be32(code, p)))
			npairs := int(int32(be32(code, p+4)))
			keys := make([]int, npairs)
			labels := make([]*Label, npairs)
			for i := 0; i < npairs; i++ {
				keys[i] = int(int32(be32(code, p+8+8*i)))
				labels[i] = c.labelAt(start + int(int32(be32(code, p+8+8*i+4))))
			}
			mv.VisitLookupSwitchInsn(c.labelAt(start+dflt), keys, labels)
		default:
			mv.VisitInsn(opcode)
		}

		length, _ := instructionLength(code, start, opcode, wide)
		offset = start + length
		wide = false
	}
}

// u2c reads a big-endian u2 out of a code byte slice at a local (not file)
// offset.
func (r *Reader) u2c(code []byte, offset int) int {
	return int(code[offset])<<8 | int(code[offset+1])
}

func (r *Reader) fieldref(index int) (owner, name, descriptor string) {
	offset := r.cpInfoOffsets[index]
	owner = r.class(r.u2(offset))
	name, descriptor = r.nameAndType(r.u2(offset + 2))
	return
}

func (r *Reader) methodref(index int) (owner, name, descriptor string, isInterface bool) {
	offset := r.cpInfoOffsets[index]
	owner = r.class(r.u2(offset))
	name, descriptor = r.nameAndType(r.u2(offset + 2))
	isInterface = r.cpTags[index] == TagInterfaceMethodref
	return
}

// shortFormVarBase maps an *load_n/*store_n opcode (JVMS §6.5, the 26-45 and
// 59-78 ranges) back to its indexed form's opcode and the n it encodes.
func shortFormVarBase(opcode int) (base, index int) {
	switch {
	case opcode >= OpIload0 && opcode <= OpIload0+3:
		return OpIload, opcode - OpIload0
	case opcode >= 30 && opcode <= 33:
		return OpLload, opcode - 30
	case opcode >= 34 && opcode <= 37:
		return OpFload, opcode - 34
	case opcode >= 38 && opcode <= 41:
		return OpDload, opcode - 38
	case opcode >= 42 && opcode <= 45:
		return OpAload, opcode - 42
	case opcode >= OpIstore0 && opcode <= OpIstore0+3:
		return OpIstore, opcode - OpIstore0
	case opcode >= 63 && opcode <= 66:
		return OpLstore, opcode - 63
	case opcode >= 67 && opcode <= 70:
		return OpFstore, opcode - 67
	case opcode >= 71 && opcode <= 74:
		return OpDstore, opcode - 71
	default: // 75-78
		return OpAstore, opcode - 75
	}
}

// readStackMapTable decodes a StackMapTable attribute body (JVMS §4.7.4)
// into a sequence of VisitFrame calls interleaved at the right bytecode
// offsets. ExpandFrames turns every compressed entry into the equivalent
// full-frame shape so a visitor never has to track accumulated locals
// itself; without it, a compressed entry is passed through with the locals/
// stack slices it actually carries (possibly empty, per its frame type).
func (r *Reader) readStackMapTable(mv MethodVisitor, c *codeCursor, a rawAttr, options int) {
	offset := a.offset
	count := r.u2(offset)
	offset += 2

	// runningLocals tracks the locals a CHOP/APPEND/SAME entry extends from.
	// A well-formed class file's first entry is always either FULL_FRAME or
	// a 0-local-delta SAME/SAME_LOCALS_1_STACK_ITEM frame at the method's
	// implicit initial locals; a CHOP/APPEND as the very first entry (legal
	// per JVMS but never emitted by javac) would need those implicit locals
	// seeded here, which this reader does not attempt.
	var runningLocals []any
	previousOffset := -1
	for i := 0; i < count; i++ {
		frameType := r.u1(offset)
		offset++
		var deltaOffset int
		var numLocal int
		var locals []any
		var numStack int
		var stack []any
		expandedType := frameType

		switch {
		case frameType < FrameSame1: // SAME
			deltaOffset = frameType
		case frameType < FrameReserved: // SAME_LOCALS_1_STACK_ITEM
			deltaOffset = frameType - FrameSame1
			stack = append(stack, r.verificationType(c, &offset))
			numStack = 1
		case frameType < FrameChop-1: // reserved for future use
			deltaOffset = 0
		case frameType == FrameChop-1: // SAME_LOCALS_1_STACK_ITEM_EXTENDED
			deltaOffset = r.u2(offset)
			offset += 2
			stack = append(stack, r.verificationType(c, &offset))
			numStack = 1
		case frameType < FrameSameFrameExtended: // CHOP
			deltaOffset = r.u2(offset)
			offset += 2
			chop := int(FrameSameFrameExtended) - frameType
			if chop <= len(runningLocals) {
				runningLocals = runningLocals[:len(runningLocals)-chop]
			}
		case frameType == FrameSameFrameExtended:
			deltaOffset = r.u2(offset)
			offset += 2
		case frameType < FrameFull: // APPEND
			deltaOffset = r.u2(offset)
			offset += 2
			appended := frameType - FrameSameFrameExtended
			for j := 0; j < appended; j++ {
				runningLocals = append(runningLocals, r.verificationType(c, &offset))
			}
		default: // FULL_FRAME
			deltaOffset = r.u2(offset)
			offset += 2
			numLocal = r.u2(offset)
			offset += 2
			runningLocals = make([]any, 0, numLocal)
			for j := 0; j < numLocal; j++ {
				runningLocals = append(runningLocals, r.verificationType(c, &offset))
			}
			numStack = r.u2(offset)
			offset += 2
			for j := 0; j < numStack; j++ {
				stack = append(stack, r.verificationType(c, &offset))
			}
		}

		absOffset := deltaOffset
		if previousOffset >= 0 {
			absOffset = previousOffset + deltaOffset + 1
		}
		previousOffset = absOffset

		if options&ExpandFrames != 0 {
			locals = append([]any(nil), runningLocals...)
			numLocal = len(locals)
			expandedType = FrameNew
		} else if frameType > FrameSameFrameExtended && frameType < FrameFull {
			appended := frameType - FrameSameFrameExtended
			locals = append([]any(nil), runningLocals[len(runningLocals)-appended:]...)
			numLocal = appended
		} else if frameType != FrameFull {
			locals = nil
		} else {
			locals = runningLocals
		}

		c.frames = append(c.frames, frameEvent{
			offset:    absOffset,
			frameType: expandedType,
			numLocal:  numLocal,
			local:     locals,
			numStack:  numStack,
			stack:     stack,
		})
	}
}

// verificationType decodes one verification_type_info entry (JVMS §4.7.4),
// advancing *offset past it.
func (r *Reader) verificationType(c *codeCursor, offset *int) any {
	tag := r.u1(*offset)
	*offset++
	switch tag {
	case ItemObject:
		index := r.u2(*offset)
		*offset += 2
		return r.class(index)
	case ItemUninitialized:
		newOffset := r.u2(*offset)
		*offset += 2
		return c.labelAt(newOffset)
	default:
		return tag
	}
}

// frameEvent is one decoded StackMapTable entry, keyed by its absolute
// bytecode offset so decodeInstructions can call VisitFrame at the right
// point relative to labels and instructions.
type frameEvent struct {
	offset    int
	frameType int
	numLocal  int
	local     []any
	numStack  int
	stack     []any
}
