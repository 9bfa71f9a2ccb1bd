// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

// Label flag bits (spec.md §3 "Label").
const (
	labelFlagDebugOnly = 1 << iota
	labelFlagJumpTarget
	labelFlagResolved
	labelFlagReachable
	labelFlagSubroutineCaller
	labelFlagSubroutineStart
	labelFlagSubroutineEnd
	labelFlagDeadCode
)

// Forward-reference kinds: whether the eventual fixup is a 16-bit or
// 32-bit branch offset.
const (
	refShort = iota
	refWide
)

// forwardReference records one not-yet-resolvable jump: the bytecode
// offset of the instruction that emitted it, whether it reserved a short
// or wide operand, and where in the code buffer to patch once the target
// label resolves.
type forwardReference struct {
	sourceInstructionOffset int
	refType                 int
	fixupOffset             int
}

// Edge.Info sentinels for max-only stack computation (spec.md §3 "Edge").
// Under frame computation, non-negative Info values instead hold one plus
// the type-table index of the caught exception type (0 means "any", i.e. a
// finally block).
const (
	EdgeJump      = -1
	EdgeException = -2
)

// Edge is one outgoing control-flow edge from a basic block.
type Edge struct {
	Info      int
	Successor *Label
	Next      *Edge
}

// emptyList is the sentinel intrusive-worklist value distinguishing
// "label is the tail of some worklist" from "label is in no worklist at
// all" (nil). See spec.md §9 "Intrusive linked lists with sentinel".
var emptyList = &Label{}

// Label is an identity object naming a position in a method's bytecode. It
// carries both reader/writer-facing state (resolved offset, line numbers,
// forward references) and frame-engine state (the CFG fields and the
// block's owned Frame).
type Label struct {
	flags          uint16
	bytecodeOffset int

	lineNumbers []int

	forwardReferences []forwardReference

	// CFG fields.
	nextBasicBlock *Label
	outgoingEdges  *Edge

	// Intrusive worklist pointer. nil means "not in any worklist"; the
	// emptyList sentinel marks the tail of a worklist this label is in.
	nextListElement *Label

	// Frame-engine bookkeeping.
	frame           *Frame
	inputStackSize  int
	outputStackMax  int
	outputStackSize int
	subroutineID    int

	// canonical points to the first Label object visited at this
	// bytecode offset, if this Label is a later duplicate (spec.md §3
	// "Canonical-instance rule"). nil if this Label is itself canonical.
	canonical *Label
}

// NewLabel returns an unresolved Label with no recorded offset.
func NewLabel() *Label {
	return &Label{bytecodeOffset: -1}
}

// IsResolved reports whether Resolve has been called on this label (or its
// canonical instance).
func (l *Label) IsResolved() bool {
	return l.Canonical().flags&labelFlagResolved != 0
}

// Offset returns the resolved bytecode offset. Only valid when IsResolved.
func (l *Label) Offset() int {
	return l.Canonical().bytecodeOffset
}

// MarkAsJumpTarget records that some branch instruction targets this label.
func (l *Label) MarkAsJumpTarget() {
	l.flags |= labelFlagJumpTarget
}

// IsJumpTarget reports whether MarkAsJumpTarget has been called.
func (l *Label) IsJumpTarget() bool {
	return l.flags&labelFlagJumpTarget != 0
}

// MarkAsDebugOnly records that this label exists only to carry line-number
// or local-variable-table information and not a real jump target.
func (l *Label) MarkAsDebugOnly() {
	l.flags |= labelFlagDebugOnly
}

// MarkReachable records that the fixpoint in frame.go proved this block
// reachable from the method entry.
func (l *Label) MarkReachable() {
	l.flags |= labelFlagReachable
}

// IsReachable reports whether MarkReachable has been called.
func (l *Label) IsReachable() bool {
	return l.flags&labelFlagReachable != 0
}

// MarkDeadCode records that the frame engine rewrote this block's bytecode
// to nop...athrow padding because the fixpoint never reached it.
func (l *Label) MarkDeadCode() {
	l.flags |= labelFlagDeadCode
}

// IsDeadCode reports whether MarkDeadCode has been called.
func (l *Label) IsDeadCode() bool {
	return l.flags&labelFlagDeadCode != 0
}

// AddLineNumber records a source line number associated with this label's
// bytecode offset; a label may accumulate more than one if multiple
// visitLineNumber calls land on the same offset.
func (l *Label) AddLineNumber(line int) {
	l.lineNumbers = append(l.lineNumbers, line)
}

// LineNumbers returns every line number recorded against this label, in
// the order visited.
func (l *Label) LineNumbers() []int {
	return l.lineNumbers
}

// Canonical returns the canonical Label instance for this bytecode
// position: itself, unless it was registered as a duplicate of an
// earlier-visited Label at the same offset.
func (l *Label) Canonical() *Label {
	if l.canonical != nil {
		return l.canonical.Canonical()
	}
	return l
}

// RedirectTo marks l as a duplicate of canonical, so CFG and frame
// bookkeeping transparently operate on the canonical instance.
func (l *Label) RedirectTo(canonical *Label) {
	l.canonical = canonical
}

// addForwardReference records a not-yet-resolvable jump against this
// label; Resolve will patch it once the label's offset becomes known.
func (l *Label) addForwardReference(sourceInstructionOffset, refType, fixupOffset int) {
	self := l.Canonical()
	self.forwardReferences = append(self.forwardReferences, forwardReference{
		sourceInstructionOffset: sourceInstructionOffset,
		refType:                 refType,
		fixupOffset:             fixupOffset,
	})
}

// Put emits a reference to this label into code at the current write
// position: a resolved backward jump is written immediately as a relative
// offset, an unresolved forward jump gets a -1 sentinel and a recorded
// forward reference. wide selects a 4-byte operand (goto_w/jsr_w) over the
// default 2-byte one.
func (l *Label) Put(code *ByteVector, sourceInstructionOffset int, wide bool) {
	self := l.Canonical()
	if self.IsResolved() {
		delta := self.bytecodeOffset - sourceInstructionOffset
		if wide {
			code.PutInt(int64(delta))
		} else {
			code.PutShort(delta)
		}
		return
	}
	fixupOffset := code.Len()
	refType := refShort
	if wide {
		refType = refWide
		code.PutInt(-1)
	} else {
		code.PutShort(-1)
	}
	self.addForwardReference(sourceInstructionOffset, refType, fixupOffset)
}

// Resolve is called exactly once per label, when its bytecode offset
// becomes known. It patches every recorded forward reference; if a 16-bit
// fixup cannot hold the delta, it reports that the instruction at
// sourceInstructionOffset must be rewritten to its wide form (spec.md §4.3
// "Resolve"). The caller (MethodWriter) performs the actual opcode
// rewrite, since that requires rewriting bytes earlier in the buffer that
// Label itself does not own.
type UnresolvableShortJump struct {
	SourceInstructionOffset int
	FixupOffset             int
}

func (l *Label) Resolve(code *ByteVector, bytecodeOffset int) []UnresolvableShortJump {
	self := l.Canonical()
	self.flags |= labelFlagResolved
	self.bytecodeOffset = bytecodeOffset

	var overflowed []UnresolvableShortJump
	for _, ref := range self.forwardReferences {
		delta := bytecodeOffset - ref.sourceInstructionOffset
		switch ref.refType {
		case refWide:
			code.OverwriteInt(ref.fixupOffset, int32(delta))
		default:
			if delta < -32768 || delta > 32767 {
				overflowed = append(overflowed, UnresolvableShortJump{
					SourceInstructionOffset: ref.sourceInstructionOffset,
					FixupOffset:             ref.fixupOffset,
				})
				continue
			}
			code.OverwriteShort(ref.fixupOffset, delta)
		}
	}
	self.forwardReferences = nil
	return overflowed
}

// AddOutgoingEdge prepends a CFG edge from this block to successor.
func (l *Label) AddOutgoingEdge(successor *Label, info int) {
	self := l.Canonical()
	self.outgoingEdges = &Edge{Info: info, Successor: successor, Next: self.outgoingEdges}
}

// --- worklist helpers shared by the frame engine and subroutine marking ---

// pushIfAbsent appends l to the worklist (represented by its head pointer)
// if it is not already present, returning the (possibly unchanged) head.
func pushIfAbsent(head, l *Label) *Label {
	if l.nextListElement != nil {
		return head
	}
	if head == nil {
		l.nextListElement = emptyList
	} else {
		l.nextListElement = head
	}
	return l
}

// popWorklist removes and returns the worklist head, leaving its
// nextListElement nil as required between algorithm runs.
func popWorklist(head *Label) (label, newHead *Label) {
	label = head
	newHead = head.nextListElement
	if newHead == emptyList {
		newHead = nil
	}
	label.nextListElement = nil
	return label, newHead
}

// MarkSubroutine performs a worklist flood from l, tagging every block
// reachable purely through fallthrough/goto/branch edges (not through a
// nested jsr) with subroutineID, unless already tagged. This mirrors
// spec.md §4.3 "Subroutine marking": support exists only for COMPUTE_MAXS,
// never together with full frame computation.
func (l *Label) MarkSubroutine(subroutineID int) {
	l.flags |= labelFlagSubroutineStart
	worklist := pushIfAbsent(nil, l)
	for worklist != nil {
		var block *Label
		block, worklist = popWorklist(worklist)
		if block.subroutineID != 0 {
			continue
		}
		block.subroutineID = subroutineID
		if block.flags&labelFlagSubroutineEnd != 0 {
			continue
		}
		for edge := block.outgoingEdges; edge != nil; edge = edge.Next {
			if edge.Successor.subroutineID == 0 {
				worklist = pushIfAbsent(worklist, edge.Successor)
			}
		}
	}
}

// AddSubroutineRetSuccessors walks the subroutine body rooted at caller's
// jsr target and adds synthetic CFG edges from every block flagged
// labelFlagSubroutineEnd back to the instruction following caller's jsr
// (spec.md §4.3).
func (l *Label) AddSubroutineRetSuccessors(caller *Label, returnTarget *Label) {
	l.flags |= labelFlagSubroutineCaller
	worklist := pushIfAbsent(nil, l)
	for worklist != nil {
		var block *Label
		block, worklist = popWorklist(worklist)
		if block.flags&labelFlagSubroutineEnd != 0 {
			block.AddOutgoingEdge(returnTarget, EdgeJump)
			continue
		}
		for edge := block.outgoingEdges; edge != nil; edge = edge.Next {
			worklist = pushIfAbsent(worklist, edge.Successor)
		}
	}
}

// --- exception table ---

// Handler is one entry of a method's exception table (JVMS §4.7.3). The
// list supports range-splitting: frame.go's unreachable-block elision may
// fracture a single entry into two when it removes a block from the
// middle of a try range.
type Handler struct {
	StartLabel     *Label
	EndLabel       *Label
	HandlerLabel   *Label
	CatchTypeIndex int // 0 means catch-all (a finally block).
	CatchTypeName  string
	Next           *Handler
}

// NewHandler returns a Handler covering [startLabel, endLabel).
func NewHandler(startLabel, endLabel, handlerLabel *Label, catchTypeIndex int, catchTypeName string) *Handler {
	return &Handler{
		StartLabel:     startLabel,
		EndLabel:       endLabel,
		HandlerLabel:   handlerLabel,
		CatchTypeIndex: catchTypeIndex,
		CatchTypeName:  catchTypeName,
	}
}

// RemoveRange returns a new handler list with [start, end) excised from
// every entry's try range, splitting an entry into two when the removed
// range falls strictly inside it.
func RemoveRange(head *Handler, start, end *Label) *Handler {
	if head == nil {
		return nil
	}
	rest := RemoveRange(head.Next, start, end)

	if head.EndLabel.Offset() <= start.Offset() || head.StartLabel.Offset() >= end.Offset() {
		head.Next = rest
		return head
	}
	if end.Offset() < head.EndLabel.Offset() {
		tail := NewHandler(end, head.EndLabel, head.HandlerLabel, head.CatchTypeIndex, head.CatchTypeName)
		tail.Next = rest
		rest = tail
	}
	if head.StartLabel.Offset() < start.Offset() {
		result := NewHandler(head.StartLabel, start, head.HandlerLabel, head.CatchTypeIndex, head.CatchTypeName)
		result.Next = rest
		rest = result
	}
	return rest
}
