// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import "testing"

func TestLabelResolveAndOffset(t *testing.T) {
	l := NewLabel()
	if l.IsResolved() {
		t.Fatalf("new label reports resolved")
	}
	l.Resolve(NewByteVector(0), 42)
	if !l.IsResolved() {
		t.Fatalf("label not resolved after Resolve")
	}
	if got := l.Offset(); got != 42 {
		t.Errorf("Offset() = %d, want 42", got)
	}
}

func TestLabelJumpTargetAndDebugOnlyFlags(t *testing.T) {
	l := NewLabel()
	if l.IsJumpTarget() {
		t.Fatalf("new label reports as jump target")
	}
	l.MarkAsJumpTarget()
	if !l.IsJumpTarget() {
		t.Errorf("MarkAsJumpTarget did not set the flag")
	}

	l.MarkAsDebugOnly()
	if l.flags&labelFlagDebugOnly == 0 {
		t.Errorf("MarkAsDebugOnly did not set the flag")
	}
	l.MarkReachable()
	if !l.IsReachable() {
		t.Errorf("MarkReachable did not set the flag")
	}
}

func TestLabelLineNumbersAccumulate(t *testing.T) {
	l := NewLabel()
	l.AddLineNumber(10)
	l.AddLineNumber(11)
	got := l.LineNumbers()
	want := []int{10, 11}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("LineNumbers() = %v, want %v", got, want)
	}
}

func TestLabelCanonicalRedirect(t *testing.T) {
	a := NewLabel()
	b := NewLabel()
	b.RedirectTo(a)

	if b.Canonical() != a {
		t.Fatalf("Canonical() did not follow RedirectTo")
	}

	a.Resolve(NewByteVector(0), 7)
	if !b.IsResolved() {
		t.Errorf("duplicate label not resolved via canonical instance")
	}
	if got := b.Offset(); got != 7 {
		t.Errorf("Offset() via duplicate = %d, want 7", got)
	}
}

func TestLabelPutResolvedBackwardJump(t *testing.T) {
	code := NewByteVector(0)
	l := NewLabel()
	l.Resolve(code, 10)

	buf := NewByteVector(0)
	l.Put(buf, 20, false)

	if buf.Len() != 2 {
		t.Fatalf("Put(short) wrote %d bytes, want 2", buf.Len())
	}
	got := int16(buf.Bytes()[0])<<8 | int16(buf.Bytes()[1])
	if got != -10 {
		t.Errorf("backward jump delta = %d, want -10", got)
	}
}

func TestLabelPutForwardThenResolve(t *testing.T) {
	code := NewByteVector(0)
	l := NewLabel()

	l.Put(code, 0, false)
	if code.Len() != 2 {
		t.Fatalf("Put(forward, short) wrote %d bytes, want 2", code.Len())
	}

	overflowed := l.Resolve(code, 100)
	if len(overflowed) != 0 {
		t.Fatalf("unexpected overflow reported: %v", overflowed)
	}
	got := int16(code.Bytes()[0])<<8 | int16(code.Bytes()[1])
	if got != 100 {
		t.Errorf("patched forward delta = %d, want 100", got)
	}
}

func TestLabelResolveReportsShortJumpOverflow(t *testing.T) {
	code := NewByteVector(0)
	l := NewLabel()

	l.Put(code, 0, false)
	overflowed := l.Resolve(code, 100000)
	if len(overflowed) != 1 {
		t.Fatalf("Resolve() overflowed = %v, want exactly one entry", overflowed)
	}
	if overflowed[0].SourceInstructionOffset != 0 {
		t.Errorf("overflow SourceInstructionOffset = %d, want 0", overflowed[0].SourceInstructionOffset)
	}
}

func TestLabelPutWideForwardThenResolve(t *testing.T) {
	code := NewByteVector(0)
	l := NewLabel()

	l.Put(code, 5, true)
	if code.Len() != 4 {
		t.Fatalf("Put(forward, wide) wrote %d bytes, want 4", code.Len())
	}

	l.Resolve(code, 100005)
	b := code.Bytes()
	got := int32(b[0])<<24 | int32(b[1])<<16 | int32(b[2])<<8 | int32(b[3])
	if got != 100000 {
		t.Errorf("patched wide forward delta = %d, want 100000", got)
	}
}

func TestHandlerRemoveRangeSplitsEntry(t *testing.T) {
	start := NewLabel()
	mid1 := NewLabel()
	mid2 := NewLabel()
	end := NewLabel()
	handlerLabel := NewLabel()

	code := NewByteVector(0)
	start.Resolve(code, 0)
	mid1.Resolve(code, 10)
	mid2.Resolve(code, 20)
	end.Resolve(code, 30)
	handlerLabel.Resolve(code, 40)

	h := NewHandler(start, end, handlerLabel, 0, "")
	result := RemoveRange(h, mid1, mid2)

	count := 0
	for e := result; e != nil; e = e.Next {
		count++
	}
	if count != 2 {
		t.Fatalf("RemoveRange produced %d entries, want 2 (split around the excised range)", count)
	}
	if result.StartLabel.Offset() != 0 || result.EndLabel.Offset() != 10 {
		t.Errorf("first split entry = [%d, %d), want [0, 10)", result.StartLabel.Offset(), result.EndLabel.Offset())
	}
	if result.Next.StartLabel.Offset() != 20 || result.Next.EndLabel.Offset() != 30 {
		t.Errorf("second split entry = [%d, %d), want [20, 30)", result.Next.StartLabel.Offset(), result.Next.EndLabel.Offset())
	}
}

func TestHandlerRemoveRangeLeavesDisjointEntryUntouched(t *testing.T) {
	start := NewLabel()
	end := NewLabel()
	rangeStart := NewLabel()
	rangeEnd := NewLabel()
	handlerLabel := NewLabel()

	code := NewByteVector(0)
	start.Resolve(code, 50)
	end.Resolve(code, 60)
	rangeStart.Resolve(code, 0)
	rangeEnd.Resolve(code, 10)
	handlerLabel.Resolve(code, 70)

	h := NewHandler(start, end, handlerLabel, 0, "")
	result := RemoveRange(h, rangeStart, rangeEnd)

	if result == nil || result.Next != nil {
		t.Fatalf("expected exactly one untouched entry to survive")
	}
	if result.StartLabel.Offset() != 50 || result.EndLabel.Offset() != 60 {
		t.Errorf("untouched entry = [%d, %d), want [50, 60)", result.StartLabel.Offset(), result.EndLabel.Offset())
	}
}

func TestLabelMarkSubroutineFloodsReachableBlocks(t *testing.T) {
	a := NewLabel()
	b := NewLabel()
	c := NewLabel()
	a.AddOutgoingEdge(b, EdgeJump)
	b.AddOutgoingEdge(c, EdgeJump)

	a.MarkSubroutine(1)

	if a.subroutineID != 1 || b.subroutineID != 1 || c.subroutineID != 1 {
		t.Errorf("MarkSubroutine did not flood every reachable block: a=%d b=%d c=%d", a.subroutineID, b.subroutineID, c.subroutineID)
	}
}
