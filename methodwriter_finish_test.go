// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import "testing"

func TestNegatedConditionalOpcode(t *testing.T) {
	tests := []struct {
		opcode int
		want   int
	}{
		{OpIfeq, OpIfne},
		{OpIfne, OpIfeq},
		{OpIflt, OpIfge},
		{OpIfge, OpIflt},
		{OpIfgt, OpIfle},
		{OpIfle, OpIfgt},
		{OpIfIcmpeq, OpIfIcmpne},
		{OpIfIcmpne, OpIfIcmpeq},
		{OpIfIcmplt, OpIfIcmpge},
		{OpIfIcmpge, OpIfIcmplt},
		{OpIfIcmpgt, OpIfIcmple},
		{OpIfIcmple, OpIfIcmpgt},
		{OpIfAcmpeq, OpIfAcmpne},
		{OpIfAcmpne, OpIfAcmpeq},
		{OpIfnull, OpIfnonnull},
		{OpIfnonnull, OpIfnull},
	}
	for _, tt := range tests {
		got, ok := negatedConditionalOpcode(tt.opcode)
		if !ok {
			t.Errorf("negatedConditionalOpcode(%d): ok = false, want true", tt.opcode)
			continue
		}
		if got != tt.want {
			t.Errorf("negatedConditionalOpcode(%d) = %d, want %d", tt.opcode, got, tt.want)
		}
		// Negation is its own inverse.
		back, ok := negatedConditionalOpcode(got)
		if !ok || back != tt.opcode {
			t.Errorf("negatedConditionalOpcode(%d) = %d, want %d (involution)", got, back, tt.opcode)
		}
	}
}

func TestNegatedConditionalOpcodeRejectsNonBranches(t *testing.T) {
	for _, opcode := range []int{OpGoto, OpJsr, OpNop, OpAthrow, OpGotoW, OpJsrW} {
		if _, ok := negatedConditionalOpcode(opcode); ok {
			t.Errorf("negatedConditionalOpcode(%d): ok = true, want false", opcode)
		}
	}
}
