// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import "strings"

// Field descriptor base type codes (JVMS §4.3.2).
const (
	DescBoolean = 'Z'
	DescByte    = 'B'
	DescChar    = 'C'
	DescShort   = 'S'
	DescInt     = 'I'
	DescFloat   = 'F'
	DescLong    = 'J'
	DescDouble  = 'D'
	DescVoid    = 'V'
	DescObject  = 'L'
	DescArray   = '['
)

// ArgumentTypesAndReturnOffset parses a method descriptor "(args)return"
// into the individual argument descriptors and the byte offset at which the
// return type descriptor begins (i.e. the index just past the closing
// paren).
func ArgumentTypesAndReturnOffset(methodDescriptor string) (args []string, returnOffset int) {
	i := 1 // skip '('
	for methodDescriptor[i] != ')' {
		start := i
		for methodDescriptor[i] == '[' {
			i++
		}
		if methodDescriptor[i] == 'L' {
			for methodDescriptor[i] != ';' {
				i++
			}
		}
		i++
		args = append(args, methodDescriptor[start:i])
	}
	return args, i + 1
}

// ReturnDescriptor returns the descriptor substring for a method
// descriptor's return type.
func ReturnDescriptor(methodDescriptor string) string {
	_, offset := ArgumentTypesAndReturnOffset(methodDescriptor)
	return methodDescriptor[offset:]
}

// SlotSize returns the number of local-variable/operand-stack slots a field
// descriptor occupies: 2 for long/double, 1 for everything else.
func SlotSize(fieldDescriptor string) int {
	if len(fieldDescriptor) == 1 && (fieldDescriptor[0] == DescLong || fieldDescriptor[0] == DescDouble) {
		return 2
	}
	return 1
}

// ArgumentsAndReturnSizes computes, for a method descriptor, the slots its
// arguments take and the slots its return value takes, as two separate
// values: long/double count as 2, a void return as 0, and anything else as
// 1. Unlike ASM's Type.getArgumentsAndReturnSizes, the pair is not packed
// into one int.
func ArgumentsAndReturnSizes(methodDescriptor string) (argsSlots, returnSlots int) {
	args, returnOffset := ArgumentTypesAndReturnOffset(methodDescriptor)
	for _, a := range args {
		argsSlots += SlotSize(a)
	}
	ret := methodDescriptor[returnOffset:]
	if ret == "V" {
		returnSlots = 0
	} else {
		returnSlots = SlotSize(ret)
	}
	return argsSlots, returnSlots
}

// Dimensions returns the array-nesting depth of a field descriptor: 0 for
// a non-array type, N for N leading '[' characters.
func Dimensions(fieldDescriptor string) int {
	dims := 0
	for dims < len(fieldDescriptor) && fieldDescriptor[dims] == '[' {
		dims++
	}
	return dims
}

// ElementDescriptor strips the leading array dimensions from a field
// descriptor, returning the descriptor of a single element.
func ElementDescriptor(fieldDescriptor string) string {
	return fieldDescriptor[Dimensions(fieldDescriptor):]
}

// IsPrimitive reports whether a (non-array) field descriptor names a
// primitive type.
func IsPrimitive(fieldDescriptor string) bool {
	if len(fieldDescriptor) != 1 {
		return false
	}
	switch fieldDescriptor[0] {
	case DescBoolean, DescByte, DescChar, DescShort, DescInt, DescFloat, DescLong, DescDouble, DescVoid:
		return true
	default:
		return false
	}
}

// InternalNameFromObjectDescriptor extracts "java/lang/String" out of the
// descriptor form "Ljava/lang/String;". It is a no-op for descriptors that
// are not object types.
func InternalNameFromObjectDescriptor(descriptor string) string {
	if len(descriptor) >= 2 && descriptor[0] == DescObject && strings.HasSuffix(descriptor, ";") {
		return descriptor[1 : len(descriptor)-1]
	}
	return descriptor
}

// ObjectDescriptorFromInternalName wraps an internal class name as an
// object field descriptor: "java/lang/String" -> "Ljava/lang/String;".
func ObjectDescriptorFromInternalName(internalName string) string {
	return "L" + internalName + ";"
}
