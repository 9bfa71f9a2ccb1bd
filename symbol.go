// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

// Symbol is an immutable record describing one interned entity owned by a
// SymbolTable: a constant-pool entry, a bootstrap method, or a type-table
// entry. Two Symbols with equal (Tag, semantic key) never coexist in the
// same table; see SymbolTable's hash set for how that invariant is kept.
type Symbol struct {
	// Index is the constant-pool index for pool-resident tags, the
	// bootstrap-methods array index for TagBootstrapMethod, or the
	// type-table position for TagType/TagUninitializedType/TagMergedType.
	Index int

	Tag int

	Owner string
	Name  string
	Value string

	// Data is a 64-bit payload whose meaning depends on Tag: the raw bit
	// pattern for Integer/Float/Long/Double, the reference kind for a
	// method handle, the bootstrap method index for a Dynamic/
	// InvokeDynamic entry, the bytecode offset of the originating `new`
	// for an uninitialized type, or a packed (idx1<<32 | idx2) pair for a
	// merged type.
	Data int64

	// BootstrapMethodArguments holds the bootstrap arguments for a
	// TagBootstrapMethod symbol (each an index into the constant pool).
	BootstrapMethodArguments []int

	// info is a slot for per-tag derived state. No code in this package
	// sets or reads it; a merged type carries only its index pair in Data.
	info int

	// dynamicKey holds the full (name, descriptor, bootstrap, args) key for
	// a TagDynamic/TagInvokeDynamic symbol, since Owner/Name/Value/Data
	// alone cannot encode a variable-length argument list for equality
	// comparison in a constantHash lookup.
	dynamicKey string
}

// ReferenceKind returns the method-handle reference kind carried in Data
// for a TagMethodHandle symbol.
func (s *Symbol) ReferenceKind() int {
	return int(s.Data)
}

// IsFieldHandle reports whether a method handle symbol's reference kind
// targets a field (kinds 1-4) rather than a method (kinds 5-9).
func (s *Symbol) IsFieldHandle() bool {
	k := s.ReferenceKind()
	return k >= HGetField && k <= HPutStatic
}

// UninitializedOffset returns the bytecode offset of the `new` instruction
// that produced a TagUninitializedType symbol.
func (s *Symbol) UninitializedOffset() int {
	return int(s.Data)
}

// MergedTypeIndices unpacks the (idx1, idx2) pair stored by a TagMergedType
// symbol, in normalized (min, max) order.
func (s *Symbol) MergedTypeIndices() (idx1, idx2 int) {
	return int(s.Data >> 32), int(s.Data & 0xFFFFFFFF)
}

func packMergedTypeIndices(idx1, idx2 int) int64 {
	if idx1 > idx2 {
		idx1, idx2 = idx2, idx1
	}
	return int64(idx1)<<32 | int64(idx2)&0xFFFFFFFF
}

// Handle is an immutable, value-equal reference to a field or method via
// CONSTANT_MethodHandle_info (JVMS §4.4.8).
type Handle struct {
	Kind        int // 1..9, see H* constants.
	Owner       string
	Name        string
	Descriptor  string
	IsInterface bool
}

// Equal reports value equality, ignoring IsInterface per JVMS semantics
// (the handle's target is already disambiguated by owner/name/descriptor;
// IsInterface only selects which bytecode form a direct reference to the
// handle would use).
func (h Handle) Equal(o Handle) bool {
	return h.Kind == o.Kind && h.Owner == o.Owner && h.Name == o.Name && h.Descriptor == o.Descriptor
}

// ConstantDynamic is an immutable, value-equal description of a dynamically
// computed constant (JVMS §4.4.10): a name, descriptor, bootstrap method
// handle, and ordered bootstrap arguments (themselves constant-pool
// values, possibly further ConstantDynamic instances).
type ConstantDynamic struct {
	Name                     string
	Descriptor               string
	BootstrapMethod          Handle
	BootstrapMethodArguments []any
}

// Size returns the number of operand-stack/local slots this dynamic
// constant occupies when loaded: 2 for a J/D descriptor, 1 otherwise.
func (c ConstantDynamic) Size() int {
	return SlotSize(c.Descriptor)
}

// Equal reports component-wise, order-sensitive equality of two dynamic
// constants.
//
// NOTE (open question carried over from spec.md §9): the design this was
// distilled from computes ConstantDynamic's hash by right-rotating over
// the bootstrap-arguments slice's *identity* hash rather than hashing each
// element's value. That looks like a latent bug -- two value-equal
// ConstantDynamic instances built from distinct argument slices could hash
// differently, breaking the table's own dedup invariant -- but per spec.md
// it must be flagged for the reimplementer rather than "fixed" silently.
// This implementation hashes/compares arguments by value (see
// SymbolTable's dynamicConstantKey), which is what the deduplication
// invariant in spec.md §8 actually requires; a from-scratch port that
// instead mirrors the original's identity-hash behavior should do so
// deliberately, not by accident.
func (c ConstantDynamic) Equal(o ConstantDynamic) bool {
	if c.Name != o.Name || c.Descriptor != o.Descriptor || !c.BootstrapMethod.Equal(o.BootstrapMethod) {
		return false
	}
	if len(c.BootstrapMethodArguments) != len(o.BootstrapMethodArguments) {
		return false
	}
	for i, a := range c.BootstrapMethodArguments {
		if ca, ok := a.(ConstantDynamic); ok {
			cb, ok := o.BootstrapMethodArguments[i].(ConstantDynamic)
			if !ok || !ca.Equal(cb) {
				return false
			}
			continue
		}
		if a != o.BootstrapMethodArguments[i] {
			return false
		}
	}
	return true
}
