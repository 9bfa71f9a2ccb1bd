// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

// MethodWriter implements MethodVisitor, assembling one method_info
// structure (JVMS §4.6) including, for a concrete method, its Code
// attribute (JVMS §4.7.3). It mirrors the Label-driven emission model in
// label.go: branches are written immediately, with unresolved forward
// targets patched in place once the destination label's offset becomes
// known.
type MethodWriter struct {
	BaseMethodVisitor

	table       *SymbolTable
	classWriter *ClassWriter

	accessFlags     int
	name            string
	nameIndex       int
	descriptorIndex int
	descriptor      string
	signatureIndex  int
	exceptions      []string
	compute         ComputeMode

	parameters []methodParameter

	annotationDefault       *ByteVector
	visibleAnnotations      *annotationSetWriter
	invisibleAnnotations    *annotationSetWriter
	rawAttributes           []Attribute

	code            *ByteVector
	firstLabel      *Label
	currentBlock    *Label
	lastWasTerminal bool
	pendingJsrTarget *Label
	nextSubroutineID int

	firstHandler *Handler
	lastHandler  *Handler
	handlerCount int

	lineNumbers []lineNumberEntry
	localVars   []localVariableEntry

	maxStackExplicit  int
	maxLocalsExplicit int
	maxLocalsSeen     int

	// capturedFrames holds every frame VisitFrame was given, in visited
	// order, so a ComputeNothing method can re-serialize them verbatim
	// instead of deriving its own StackMapTable (options.go's documented
	// contract for that mode).
	capturedFrames []capturedFrame

	// pendingWideJumps records every forward short branch Label.Resolve
	// reported as overflowing its 16-bit operand, for Finish to rewrite to
	// the instruction's wide form (spec.md §4.3 "short-to-wide branch
	// rewriting").
	pendingWideJumps []pendingWideJump

	sawCode bool
}

// pendingWideJump is one overflowing forward branch awaiting a wide-form
// rewrite: the branch instruction's original (pre-rewrite) offset and the
// label it targets, whose Offset() reflects every earlier rewrite already
// applied.
type pendingWideJump struct {
	sourceInstructionOffset int
	target                  *Label
}

// capturedFrame is one VisitFrame call recorded verbatim: the bytecode
// offset it applies at (the block's start, since a frame is always visited
// immediately after the VisitLabel that opens its block) plus the expanded
// local/stack verification-type items exactly as supplied.
type capturedFrame struct {
	offset int
	local  []any
	stack  []any
}

type methodParameter struct {
	name   string
	access int
}

type lineNumberEntry struct {
	offset int
	line   int
}

type localVariableEntry struct {
	name, descriptor, signature string
	start, end                  *Label
	index                       int
}

// NewMethodWriter returns a MethodWriter that will intern its own constant-
// pool entries into table as it goes.
func NewMethodWriter(table *SymbolTable, compute ComputeMode, access int, name, descriptor, signature string, exceptions []string) (*MethodWriter, error) {
	nameSym, err := table.AddUTF8(name)
	if err != nil {
		return nil, err
	}
	descSym, err := table.AddUTF8(descriptor)
	if err != nil {
		return nil, err
	}
	w := &MethodWriter{
		table:           table,
		accessFlags:     access,
		name:            name,
		nameIndex:       nameSym.Index,
		descriptorIndex: descSym.Index,
		descriptor:      descriptor,
		exceptions:      exceptions,
		compute:         compute,
	}
	if signature != "" {
		sigSym, err := table.AddUTF8(signature)
		if err != nil {
			return nil, err
		}
		w.signatureIndex = sigSym.Index
	}
	return w, nil
}

func (w *MethodWriter) VisitParameter(name string, access int) {
	w.parameters = append(w.parameters, methodParameter{name, access})
}

func (w *MethodWriter) VisitAnnotationDefault() AnnotationVisitor {
	w.annotationDefault = NewByteVector(32)
	return newAnnotationWriter(w.table, false, w.annotationDefault, nil)
}

func (w *MethodWriter) VisitAnnotation(descriptor string, visible bool) AnnotationVisitor {
	set := w.annotationSet(visible)
	return set.visitAnnotation(descriptor)
}

func (w *MethodWriter) annotationSet(visible bool) *annotationSetWriter {
	if visible {
		if w.visibleAnnotations == nil {
			w.visibleAnnotations = newAnnotationSetWriter(w.table)
		}
		return w.visibleAnnotations
	}
	if w.invisibleAnnotations == nil {
		w.invisibleAnnotations = newAnnotationSetWriter(w.table)
	}
	return w.invisibleAnnotations
}

func (w *MethodWriter) VisitAttribute(attr Attribute) {
	w.rawAttributes = append(w.rawAttributes, attr)
}

// VisitCode starts code emission: the method's implicit first frame (JVMS
// §4.10.1.6) becomes the entry block's known input.
func (w *MethodWriter) VisitCode() {
	w.sawCode = true
	w.code = NewByteVector(256)
	entry := NewLabel()
	w.firstLabel = entry
	w.currentBlock = entry
	frame := NewFrame(entry)
	frame.SetInput(w.implicitFirstFrameLocals(), nil)
	_ = entry.Resolve(w.code, 0)
}

// implicitFirstFrameLocals builds the method entry's local-variable array:
// `this` at slot 0 for an instance method (absent for static, absent for
// <init> where it instead starts as uninitializedThis), followed by the
// argument types in order (JVMS §4.10.1.6).
func (w *MethodWriter) implicitFirstFrameLocals() []AbstractType {
	var locals []AbstractType
	if w.accessFlags&AccStatic == 0 {
		if w.name == "<init>" {
			locals = append(locals, AUninitializedThis)
		} else {
			ownerName := "java/lang/Object"
			if w.classWriter != nil {
				ownerName = w.classWriter.thisName
			}
			sym := w.table.AddType(ownerName)
			locals = append(locals, ReferenceType(0, sym.Index))
		}
	}
	args, _ := ArgumentTypesAndReturnOffset(w.descriptor)
	for _, a := range args {
		t := typeForDescriptor(a, w.table)
		locals = append(locals, t)
		if isWideType(t) {
			locals = append(locals, ATop)
		}
	}
	if n := len(locals); n > w.maxLocalsSeen {
		w.maxLocalsSeen = n
	}
	return locals
}

// VisitFrame records a caller-supplied frame verbatim. Only meaningful
// under ComputeNothing: ComputeMaxs and ComputeFrames both derive their own
// StackMapTable and ignore it, matching the rest of the writer's mode
// dispatch (e.g. resolvedMaxStackAndLocals).
func (w *MethodWriter) VisitFrame(frameType int, numLocal int, local []any, numStack int, stack []any) {
	if w.compute != ComputeNothing {
		return
	}
	if numLocal < len(local) {
		local = local[:numLocal]
	}
	if numStack < len(stack) {
		stack = stack[:numStack]
	}
	w.capturedFrames = append(w.capturedFrames, capturedFrame{
		offset: w.currentOffset(),
		local:  append([]any(nil), local...),
		stack:  append([]any(nil), stack...),
	})
}

func (w *MethodWriter) currentOffset() int { return w.code.Len() }

func (w *MethodWriter) bumpLocals(index, slots int) {
	if index+slots > w.maxLocalsSeen {
		w.maxLocalsSeen = index + slots
	}
}

// endBlock marks the current instruction as a control-transfer that may or
// may not fall through, opening a fresh basic block at the next VisitLabel.
func (w *MethodWriter) endBlock(terminal bool) {
	w.lastWasTerminal = terminal
}

func (w *MethodWriter) VisitInsn(opcode int) {
	w.code.PutByte(opcode)
	if w.currentBlock != nil && w.currentBlock.frame != nil {
		w.currentBlock.frame.Execute(opcode, 0, "", "", "", w.currentOffset()-1, w.table)
	}
	switch opcode {
	case OpIreturn, OpLreturn, OpFreturn, OpDreturn, OpAreturn, OpReturn, OpAthrow:
		w.endBlock(true)
	default:
		w.endBlock(false)
	}
}

func (w *MethodWriter) VisitIntInsn(opcode, operand int) {
	switch opcode {
	case OpBipush, OpNewarray:
		w.code.Put11(opcode, operand)
	default: // Sipush
		w.code.PutByte(opcode).PutShort(operand)
	}
	if w.currentBlock != nil && w.currentBlock.frame != nil {
		w.currentBlock.frame.Execute(opcode, operand, "", "", "", w.currentOffset(), w.table)
	}
	w.endBlock(false)
}

func (w *MethodWriter) VisitVarInsn(opcode, varIndex int) {
	slots := 1
	switch opcode {
	case OpLload, OpLstore, OpDload, OpDstore:
		slots = 2
	}
	w.bumpLocals(varIndex, slots)
	if varIndex < 4 && opcode != OpRet {
		w.code.PutByte(shortFormVarOpcode(opcode, varIndex))
	} else if varIndex <= 255 {
		w.code.Put11(opcode, varIndex)
	} else {
		w.code.PutByte(OpWide).PutByte(opcode).PutShort(varIndex)
	}
	if w.currentBlock != nil && w.currentBlock.frame != nil && opcode != OpRet {
		w.currentBlock.frame.Execute(opcode, varIndex, "", "", "", w.currentOffset(), w.table)
	}
	if opcode == OpRet {
		w.endBlock(true)
	} else {
		w.endBlock(false)
	}
}

func shortFormVarOpcode(opcode, varIndex int) int {
	switch opcode {
	case OpIload:
		return OpIload0 + varIndex
	case OpLload:
		return opLload0 + varIndex
	case OpFload:
		return opFload0 + varIndex
	case OpDload:
		return opDload0 + varIndex
	case OpAload:
		return opAload0 + varIndex
	case OpIstore:
		return OpIstore0 + varIndex
	case OpLstore:
		return opLstore0 + varIndex
	case OpFstore:
		return opFstore0 + varIndex
	case OpDstore:
		return opDstore0 + varIndex
	case OpAstore:
		return opAstore0 + varIndex
	default:
		return opcode
	}
}

func (w *MethodWriter) VisitTypeInsn(opcode int, typeName string) {
	offset := w.currentOffset()
	classSym, _ := w.table.AddClass(typeName)
	w.code.PutByte(opcode).PutShort(classSym.Index)
	if w.currentBlock != nil && w.currentBlock.frame != nil {
		w.currentBlock.frame.Execute(opcode, 0, typeName, "", "", offset, w.table)
	}
	w.endBlock(false)
}

func (w *MethodWriter) VisitFieldInsn(opcode int, owner, name, descriptor string) {
	sym, _ := w.table.AddFieldref(owner, name, descriptor)
	w.code.PutByte(opcode).PutShort(sym.Index)
	if w.currentBlock != nil && w.currentBlock.frame != nil {
		w.currentBlock.frame.Execute(opcode, 0, owner, name, descriptor, w.currentOffset(), w.table)
	}
	w.endBlock(false)
}

func (w *MethodWriter) VisitMethodInsn(opcode int, owner, name, descriptor string, isInterface bool) {
	if opcode == OpInvokeinterface {
		sym, _ := w.table.AddMethodref(owner, name, descriptor, true)
		argsSlots, _ := ArgumentsAndReturnSizes(descriptor)
		w.code.PutByte(opcode).PutShort(sym.Index).Put11(argsSlots+1, 0)
	} else {
		sym, _ := w.table.AddMethodref(owner, name, descriptor, isInterface)
		w.code.PutByte(opcode).PutShort(sym.Index)
	}
	if w.currentBlock != nil && w.currentBlock.frame != nil {
		w.currentBlock.frame.Execute(opcode, 0, owner, name, descriptor, w.currentOffset(), w.table)
	}
	w.endBlock(false)
}

func (w *MethodWriter) VisitInvokeDynamicInsn(name, descriptor string, bootstrapMethod Handle, bootstrapArguments ...any) {
	sym, _ := w.table.AddInvokeDynamic(name, descriptor, bootstrapMethod, bootstrapArguments)
	w.code.PutByte(OpInvokedynamic).PutShort(sym.Index).PutShort(0)
	if w.currentBlock != nil && w.currentBlock.frame != nil {
		w.currentBlock.frame.Execute(OpInvokedynamic, 0, "", name, descriptor, w.currentOffset(), w.table)
	}
	w.endBlock(false)
}

func (w *MethodWriter) VisitJumpInsn(opcode int, label *Label) {
	sourceOffset := w.currentOffset()
	w.code.PutByte(opcode)
	label.Put(w.code, sourceOffset, false)
	label.Canonical().MarkAsJumpTarget()
	if w.currentBlock != nil {
		w.currentBlock.AddOutgoingEdge(label.Canonical(), EdgeJump)
		if w.currentBlock.frame != nil {
			w.currentBlock.frame.Execute(opcode, 0, "", "", "", sourceOffset, w.table)
		}
	}
	switch opcode {
	case OpGoto, OpGotoW:
		w.endBlock(true)
	case OpJsr, OpJsrW:
		w.pendingJsrTarget = label.Canonical()
		w.endBlock(true)
	default:
		w.endBlock(false)
	}
}

func (w *MethodWriter) VisitLabel(label *Label) {
	canonical := label.Canonical()
	if canonical == w.currentBlock {
		return
	}
	if !canonical.IsResolved() {
		overflows := canonical.Resolve(w.code, w.currentOffset())
		for _, o := range overflows {
			w.pendingWideJumps = append(w.pendingWideJumps, pendingWideJump{
				sourceInstructionOffset: o.SourceInstructionOffset,
				target:                  canonical,
			})
		}
	}
	if w.currentBlock != nil {
		canonical.nextBasicBlock = nil
		w.currentBlock.nextBasicBlock = canonical
		if !w.lastWasTerminal {
			w.currentBlock.AddOutgoingEdge(canonical, EdgeJump)
		}
	}
	if canonical.frame == nil {
		NewFrame(canonical)
	}
	if w.pendingJsrTarget != nil {
		w.nextSubroutineID++
		w.pendingJsrTarget.MarkSubroutine(w.nextSubroutineID)
		w.pendingJsrTarget.AddSubroutineRetSuccessors(w.pendingJsrTarget, canonical)
		w.pendingJsrTarget = nil
	}
	w.currentBlock = canonical
	w.lastWasTerminal = false
}

func (w *MethodWriter) VisitLdcInsn(value any) {
	sym := w.internConstant(value)
	wide := isWideType(typeOfConstant(value))
	if wide {
		w.code.PutByte(OpLdc2W).PutShort(sym.Index)
	} else if sym.Index <= 255 {
		w.code.Put11(OpLdc, sym.Index)
	} else {
		w.code.PutByte(OpLdcW).PutShort(sym.Index)
	}
	if w.currentBlock != nil && w.currentBlock.frame != nil {
		w.currentBlock.frame.Execute(OpLdc, 0, "", "", descriptorOfConstant(value), w.currentOffset(), w.table)
	}
	w.endBlock(false)
}

func (w *MethodWriter) internConstant(value any) *Symbol {
	switch v := value.(type) {
	case int32:
		s, _ := w.table.AddInteger(v)
		return s
	case int:
		s, _ := w.table.AddInteger(int32(v))
		return s
	case float32:
		s, _ := w.table.AddFloat(v)
		return s
	case int64:
		s, _ := w.table.AddLong(v)
		return s
	case float64:
		s, _ := w.table.AddDouble(v)
		return s
	case string:
		s, _ := w.table.AddString(v)
		return s
	case Handle:
		s, _ := w.table.AddMethodHandle(v)
		return s
	case ConstantDynamic:
		s, _ := w.table.AddConstantDynamic(v)
		return s
	case classConstant:
		s, _ := w.table.AddClass(v.internalName)
		return s
	default:
		s, _ := w.table.AddString("")
		return s
	}
}

// classConstant is the VisitLdcInsn value shape naming a Class literal
// (JVMS §4.4.1), distinguishing it from a plain string constant.
type classConstant struct{ internalName string }

func typeOfConstant(value any) AbstractType {
	switch value.(type) {
	case int64:
		return ALong
	case float64:
		return ADouble
	default:
		return ATop
	}
}

func descriptorOfConstant(value any) string {
	switch value.(type) {
	case int32, int:
		return "I"
	case float32:
		return "F"
	case int64:
		return "J"
	case float64:
		return "D"
	case string:
		return "Ljava/lang/String;"
	case Handle:
		return "Ljava/lang/invoke/MethodHandle;"
	case ConstantDynamic:
		return value.(ConstantDynamic).Descriptor
	case classConstant:
		return "Ljava/lang/Class;"
	default:
		return "Ljava/lang/Object;"
	}
}

func (w *MethodWriter) VisitIincInsn(varIndex, increment int) {
	w.bumpLocals(varIndex, 1)
	if varIndex <= 255 && increment >= -128 && increment <= 127 {
		w.code.PutByte(OpIinc).PutByte(varIndex).PutByte(increment)
	} else {
		w.code.PutByte(OpWide).PutByte(OpIinc).PutShort(varIndex).PutShort(increment)
	}
	if w.currentBlock != nil && w.currentBlock.frame != nil {
		w.currentBlock.frame.Execute(OpIinc, varIndex, "", "", "", w.currentOffset(), w.table)
	}
	w.endBlock(false)
}

func (w *MethodWriter) VisitTableSwitchInsn(min, max int, dflt *Label, labels ...*Label) {
	sourceOffset := w.currentOffset()
	w.code.PutByte(OpTableswitch)
	for (w.code.Len() % 4) != 0 {
		w.code.PutByte(0)
	}
	dflt.Put(w.code, sourceOffset, true)
	w.code.PutInt(int64(min))
	w.code.PutInt(int64(max))
	for _, l := range labels {
		l.Put(w.code, sourceOffset, true)
	}
	dflt.Canonical().MarkAsJumpTarget()
	for _, l := range labels {
		l.Canonical().MarkAsJumpTarget()
	}
	if w.currentBlock != nil {
		w.currentBlock.AddOutgoingEdge(dflt.Canonical(), EdgeJump)
		for _, l := range labels {
			w.currentBlock.AddOutgoingEdge(l.Canonical(), EdgeJump)
		}
		if w.currentBlock.frame != nil {
			w.currentBlock.frame.Execute(OpTableswitch, 0, "", "", "", sourceOffset, w.table)
		}
	}
	w.endBlock(true)
}

func (w *MethodWriter) VisitLookupSwitchInsn(dflt *Label, keys []int, labels []*Label) {
	sourceOffset := w.currentOffset()
	w.code.PutByte(OpLookupswitch)
	for (w.code.Len() % 4) != 0 {
		w.code.PutByte(0)
	}
	dflt.Put(w.code, sourceOffset, true)
	w.code.PutInt(int64(len(keys)))
	for i, k := range keys {
		w.code.PutInt(int64(k))
		labels[i].Put(w.code, sourceOffset, true)
	}
	dflt.Canonical().MarkAsJumpTarget()
	for _, l := range labels {
		l.Canonical().MarkAsJumpTarget()
	}
	if w.currentBlock != nil {
		w.currentBlock.AddOutgoingEdge(dflt.Canonical(), EdgeJump)
		for _, l := range labels {
			w.currentBlock.AddOutgoingEdge(l.Canonical(), EdgeJump)
		}
		if w.currentBlock.frame != nil {
			w.currentBlock.frame.Execute(OpLookupswitch, 0, "", "", "", sourceOffset, w.table)
		}
	}
	w.endBlock(true)
}

func (w *MethodWriter) VisitMultiANewArrayInsn(descriptor string, numDimensions int) {
	classSym, _ := w.table.AddClass(descriptor)
	offset := w.currentOffset()
	w.code.PutByte(OpMultianewarray).PutShort(classSym.Index).PutByte(numDimensions)
	if w.currentBlock != nil && w.currentBlock.frame != nil {
		w.currentBlock.frame.Execute(OpMultianewarray, numDimensions, "", "", descriptor, offset, w.table)
	}
	w.endBlock(false)
}

func (w *MethodWriter) VisitInsnAnnotation(typeRef int, typePath string, descriptor string, visible bool) AnnotationVisitor {
	return nil
}

func (w *MethodWriter) VisitTryCatchBlock(start, end, handler *Label, catchType string) {
	var catchIndex int
	if catchType != "" {
		sym, _ := w.table.AddClass(catchType)
		catchIndex = sym.Index
	}
	handler.Canonical().MarkAsJumpTarget()
	h := NewHandler(start, end, handler, catchIndex, catchType)
	if w.firstHandler == nil {
		w.firstHandler = h
		w.lastHandler = h
	} else {
		w.lastHandler.Next = h
		w.lastHandler = h
	}
	w.handlerCount++
}

func (w *MethodWriter) VisitTryCatchAnnotation(typeRef int, typePath string, descriptor string, visible bool) AnnotationVisitor {
	return nil
}

func (w *MethodWriter) VisitLocalVariable(name, descriptor, signature string, start, end *Label, index int) {
	w.localVars = append(w.localVars, localVariableEntry{name, descriptor, signature, start, end, index})
}

func (w *MethodWriter) VisitLocalVariableAnnotation(typeRef int, typePath string, start, end []*Label, index []int, descriptor string, visible bool) AnnotationVisitor {
	return nil
}

func (w *MethodWriter) VisitLineNumber(line int, start *Label) {
	w.lineNumbers = append(w.lineNumbers, lineNumberEntry{start.Offset(), line})
}

func (w *MethodWriter) VisitMaxs(maxStack, maxLocals int) {
	w.maxStackExplicit = maxStack
	w.maxLocalsExplicit = maxLocals
}

func (w *MethodWriter) VisitEnd() {}

// resolvedMaxStackAndLocals returns the method's final max_stack/max_locals
// per the writer's compute mode.
func (w *MethodWriter) resolvedMaxStackAndLocals() (int, int) {
	if w.compute == ComputeNothing {
		return w.maxStackExplicit, w.maxLocalsExplicit
	}
	maxLocals := w.maxLocalsSeen
	maxStack := computeMaxStack(w.firstLabel)
	return maxStack, maxLocals
}

// computeMaxStack performs the CFG data-flow walk described in spec.md
// §4.4's COMPUTE_MAXS algorithm: propagate each block's input stack depth
// to its successors (always 1, not a propagated delta, across an
// exception-handler edge) and track the peak absolute depth reached by any
// block.
func computeMaxStack(entry *Label) int {
	if entry == nil {
		return 0
	}
	type queued struct {
		block *Label
		input int
	}
	visited := map[*Label]int{}
	queue := []queued{{entry, 0}}
	maxDepth := 0
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		b := cur.block
		if prev, ok := visited[b]; ok && cur.input <= prev {
			continue
		}
		visited[b] = cur.input
		if depth := cur.input + b.outputStackMax; depth > maxDepth {
			maxDepth = depth
		}
		netOutput := cur.input + b.outputStackSize
		for e := b.outgoingEdges; e != nil; e = e.Next {
			succInput := netOutput
			if e.Info == EdgeException || e.Info >= 0 {
				succInput = 1
			}
			queue = append(queue, queued{e.Successor, succInput})
		}
	}
	return maxDepth
}

// linkExceptionEdges adds a synthetic EdgeException CFG edge from every
// basic block overlapping [start, end) to handler, for every registered
// Handler, so computeMaxStack accounts for the stack depth at which an
// exception handler may be entered (spec.md §4.4 "exception-handler
// successor special-casing"). Must run after all blocks have been created
// (VisitEnd), since VisitTryCatchBlock's labels are typically visited
// before their label arguments per the usual visitor call order.
func (w *MethodWriter) linkExceptionEdges() {
	for h := w.firstHandler; h != nil; h = h.Next {
		startOffset := h.StartLabel.Offset()
		endOffset := h.EndLabel.Offset()
		target := h.HandlerLabel.Canonical()
		info := EdgeException
		if w.compute == ComputeFrames {
			// Info holds one plus the caught type's type-table index (0 =
			// any, a finally block), per label.go's Edge.Info convention
			// under frame computation.
			if h.CatchTypeName == "" {
				info = 0
			} else {
				info = w.table.AddType(h.CatchTypeName).Index + 1
			}
		}
		for b := w.firstLabel; b != nil; b = b.nextBasicBlock {
			if b.Offset() >= startOffset && b.Offset() < endOffset {
				b.AddOutgoingEdge(target, info)
			}
		}
	}
}
