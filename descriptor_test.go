// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import (
	"reflect"
	"testing"
)

func TestArgumentTypesAndReturnOffset(t *testing.T) {
	tests := []struct {
		in       string
		wantArgs []string
	}{
		{"()V", nil},
		{"(I)V", []string{"I"}},
		{"(ILjava/lang/String;[D)Z", []string{"I", "Ljava/lang/String;", "[D"}},
		{"([[Ljava/lang/Object;)V", []string{"[[Ljava/lang/Object;"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			args, offset := ArgumentTypesAndReturnOffset(tt.in)
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("args = %v, want %v", args, tt.wantArgs)
			}
			if tt.in[offset-1] != ')' {
				t.Errorf("offset %d does not point past ')' in %q", offset, tt.in)
			}
		})
	}
}

func TestReturnDescriptor(t *testing.T) {
	if got := ReturnDescriptor("(I)Ljava/lang/String;"); got != "Ljava/lang/String;" {
		t.Errorf("ReturnDescriptor = %q", got)
	}
	if got := ReturnDescriptor("()V"); got != "V" {
		t.Errorf("ReturnDescriptor = %q", got)
	}
}

func TestSlotSize(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"I", 1}, {"J", 2}, {"D", 2}, {"Z", 1}, {"Ljava/lang/Object;", 1}, {"[J", 1},
	}
	for _, tt := range tests {
		if got := SlotSize(tt.in); got != tt.want {
			t.Errorf("SlotSize(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestArgumentsAndReturnSizes(t *testing.T) {
	argsSlots, returnSlots := ArgumentsAndReturnSizes("(IJLjava/lang/String;D)J")
	if argsSlots != 1+2+1+2 {
		t.Errorf("argsSlots = %d, want %d", argsSlots, 6)
	}
	if returnSlots != 2 {
		t.Errorf("returnSlots = %d, want 2", returnSlots)
	}

	_, returnSlots = ArgumentsAndReturnSizes("()V")
	if returnSlots != 0 {
		t.Errorf("returnSlots for void = %d, want 0", returnSlots)
	}
}

func TestDimensionsAndElementDescriptor(t *testing.T) {
	if got := Dimensions("[[[I"); got != 3 {
		t.Errorf("Dimensions = %d, want 3", got)
	}
	if got := Dimensions("I"); got != 0 {
		t.Errorf("Dimensions = %d, want 0", got)
	}
	if got := ElementDescriptor("[[I"); got != "I" {
		t.Errorf("ElementDescriptor = %q, want %q", got, "I")
	}
}

func TestIsPrimitive(t *testing.T) {
	for _, d := range []string{"Z", "B", "C", "S", "I", "F", "J", "D", "V"} {
		if !IsPrimitive(d) {
			t.Errorf("IsPrimitive(%q) = false, want true", d)
		}
	}
	for _, d := range []string{"Ljava/lang/Object;", "[I", ""} {
		if IsPrimitive(d) {
			t.Errorf("IsPrimitive(%q) = true, want false", d)
		}
	}
}

func TestObjectDescriptorRoundTrip(t *testing.T) {
	name := "java/lang/String"
	desc := ObjectDescriptorFromInternalName(name)
	if desc != "Ljava/lang/String;" {
		t.Fatalf("ObjectDescriptorFromInternalName = %q", desc)
	}
	if back := InternalNameFromObjectDescriptor(desc); back != name {
		t.Errorf("InternalNameFromObjectDescriptor = %q, want %q", back, name)
	}
}
