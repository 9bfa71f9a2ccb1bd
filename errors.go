// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import "fmt"

// Sentinel and structured errors raised by the reader and writer. Each kind
// named in the class-file format's failure modes gets its own type so a
// caller can distinguish them with errors.As instead of string matching.

// ClassTooLargeError is returned when a class's constant pool would need
// more than 65535 entries to describe it.
type ClassTooLargeError struct {
	ClassName string
	Count     int
}

func (e *ClassTooLargeError) Error() string {
	return fmt.Sprintf("class %s has %d constant pool entries, the format allows at most 65535", e.ClassName, e.Count)
}

// MethodTooLargeError is returned when a method's Code attribute body would
// exceed 65535 bytes.
type MethodTooLargeError struct {
	ClassName  string
	MethodName string
	Descriptor string
	Size       int
}

func (e *MethodTooLargeError) Error() string {
	return fmt.Sprintf("method %s.%s%s has a %d byte code array, the format allows at most 65535",
		e.ClassName, e.MethodName, e.Descriptor, e.Size)
}

// StringTooLongError is returned when a string's modified-UTF-8 encoding
// would exceed 65535 bytes.
type StringTooLongError struct {
	Value string
}

func (e *StringTooLongError) Error() string {
	length := len(e.Value)
	if length > 64 {
		length = 64
	}
	return fmt.Sprintf("string %q... encodes to more than 65535 modified-UTF-8 bytes", e.Value[:length])
}

// UnsupportedError is returned when a visitor is asked to emit something
// that requires a newer API version than configured, or jsr/ret is used
// together with frame computation.
type UnsupportedError struct {
	Reason string
}

func (e *UnsupportedError) Error() string {
	return "unsupported: " + e.Reason
}

// MalformedInputError is returned by the reader when it encounters a pool
// entry with an unrecognized tag, a truncated attribute, or an inconsistent
// length.
type MalformedInputError struct {
	Reason string
	Offset int
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed class file at offset %d: %s", e.Offset, e.Reason)
}

// IllegalStateError is returned when visitor methods are invoked out of the
// order the production rules in the visitor contract allow.
type IllegalStateError struct {
	Reason string
}

func (e *IllegalStateError) Error() string {
	return "illegal state: " + e.Reason
}

// PoolIndexOverflowError is returned when an entry addition to the symbol
// table would push its index past 0xFFFF.
type PoolIndexOverflowError struct {
	ClassName string
}

func (e *PoolIndexOverflowError) Error() string {
	return fmt.Sprintf("class %s: constant pool index overflow", e.ClassName)
}
