// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import (
	"fmt"
	"math"
)

// symbolEntry is one node in a hash-set bucket chain. Buckets are
// singly-linked lists; entries append at the tail of their bucket so that,
// combined with the insertion-order replay done by rehash, lookups within
// a bucket stay deterministic across growth (spec.md §4.2 "Hashing").
type symbolEntry struct {
	symbol *Symbol
	hash   uint32
	next   *symbolEntry
}

// symbolHashSet is the deduplicating index half of a SymbolTable. It never
// stores symbol bytes itself -- those live in the constant pool / bootstrap
// method / type table buffers -- it only remembers which (tag, key) hashes
// have already been interned and which Symbol owns them.
type symbolHashSet struct {
	buckets []*symbolEntry
	all     []*symbolEntry // full insertion history, used to rehash in order.
}

func newSymbolHashSet() *symbolHashSet {
	return &symbolHashSet{buckets: make([]*symbolEntry, 256)}
}

func (h *symbolHashSet) find(hash uint32, match func(*Symbol) bool) *Symbol {
	idx := hash % uint32(len(h.buckets))
	for e := h.buckets[idx]; e != nil; e = e.next {
		if e.hash == hash && match(e.symbol) {
			return e.symbol
		}
	}
	return nil
}

func (h *symbolHashSet) insert(hash uint32, sym *Symbol) {
	entry := &symbolEntry{symbol: sym, hash: hash}
	h.appendToBucket(entry)
	h.all = append(h.all, entry)
	if len(h.all) > len(h.buckets)*3/4 {
		h.rehash()
	}
}

func (h *symbolHashSet) appendToBucket(entry *symbolEntry) {
	idx := entry.hash % uint32(len(h.buckets))
	entry.next = nil
	if h.buckets[idx] == nil {
		h.buckets[idx] = entry
		return
	}
	cur := h.buckets[idx]
	for cur.next != nil {
		cur = cur.next
	}
	cur.next = entry
}

func (h *symbolHashSet) rehash() {
	newCapacity := len(h.buckets)*2 + 1
	h.buckets = make([]*symbolEntry, newCapacity)
	for _, entry := range h.all {
		h.appendToBucket(entry)
	}
}

// hash31 computes a deterministic, non-negative 31-bit hash over a
// sequence of hashable fields. It is not cryptographic; it exists only to
// bucket symbols for dedup lookups.
func hash31(seed int, fields ...any) uint32 {
	h := uint32(seed)
	for _, f := range fields {
		h = h*31 + hashOne(f)
	}
	return h & 0x7FFFFFFF
}

func hashOne(f any) uint32 {
	switch v := f.(type) {
	case string:
		var h uint32 = 2166136261
		for i := 0; i < len(v); i++ {
			h ^= uint32(v[i])
			h *= 16777619
		}
		return h
	case int:
		return uint32(v) ^ uint32(v>>16)
	case int32:
		return uint32(v)
	case uint32:
		return v
	case int64:
		return uint32(v) ^ uint32(v>>32)
	case bool:
		if v {
			return 1231
		}
		return 1237
	default:
		return uint32(fmt.Sprintf("%v", v)[0])
	}
}

// SymbolTable owns every interned entity referenced by a class being
// written: the constant pool, the bootstrap-methods table, and the
// auxiliary type table used by frame computation (spec.md §3 "Symbol
// table"). Entries are never removed once committed.
type SymbolTable struct {
	className string // used only to annotate overflow errors.

	constantPool      *ByteVector
	constantPoolCount  int // next free constant-pool index; 1-based, slot 0 unused.
	constantHash      *symbolHashSet

	bootstrapMethods       *ByteVector
	bootstrapMethodCount   int
	bootstrapMethodHash    *symbolHashSet

	typeTable     []*Symbol
	typeTableHash *symbolHashSet
}

// NewSymbolTable returns an empty table for a class named className.
func NewSymbolTable(className string) *SymbolTable {
	return &SymbolTable{
		className:         className,
		constantPool:      NewByteVector(1024),
		constantPoolCount:  1, // index 0 is reserved.
		constantHash:      newSymbolHashSet(),
		bootstrapMethods:  NewByteVector(64),
		bootstrapMethodHash: newSymbolHashSet(),
		typeTableHash:     newSymbolHashSet(),
	}
}

// ConstantPoolCount returns constant_pool_count as it will be written: one
// more than the number of slots actually used, per JVMS §4.1.
func (t *SymbolTable) ConstantPoolCount() int {
	return t.constantPoolCount
}

func (t *SymbolTable) nextIndex(width int) (int, error) {
	index := t.constantPoolCount
	if index+width-1 > 0xFFFF {
		return 0, &PoolIndexOverflowError{ClassName: t.className}
	}
	t.constantPoolCount += width
	return index, nil
}

// --- one-argument utf8-reference entries (class/string/method-type/module/package) ---

func (t *SymbolTable) addUTF8Ref(tag int, value string) (*Symbol, error) {
	hash := hash31(tag, value)
	if existing := t.constantHash.find(hash, func(s *Symbol) bool {
		return s.Tag == tag && s.Value == value
	}); existing != nil {
		return existing, nil
	}
	utf8, err := t.AddUTF8(value)
	if err != nil {
		return nil, err
	}
	index, err := t.nextIndex(1)
	if err != nil {
		return nil, err
	}
	sym := &Symbol{Index: index, Tag: tag, Value: value}
	t.constantPool.PutByte(tag).PutShort(utf8.Index)
	t.constantHash.insert(hash, sym)
	return sym, nil
}

// AddClass interns a CONSTANT_Class_info for internalName.
func (t *SymbolTable) AddClass(internalName string) (*Symbol, error) {
	return t.addUTF8Ref(TagClass, internalName)
}

// AddString interns a CONSTANT_String_info for value.
func (t *SymbolTable) AddString(value string) (*Symbol, error) {
	return t.addUTF8Ref(TagString, value)
}

// AddMethodType interns a CONSTANT_MethodType_info for descriptor.
func (t *SymbolTable) AddMethodType(descriptor string) (*Symbol, error) {
	return t.addUTF8Ref(TagMethodType, descriptor)
}

// AddModule interns a CONSTANT_Module_info for name.
func (t *SymbolTable) AddModule(name string) (*Symbol, error) {
	return t.addUTF8Ref(TagModule, name)
}

// AddPackage interns a CONSTANT_Package_info for name.
func (t *SymbolTable) AddPackage(name string) (*Symbol, error) {
	return t.addUTF8Ref(TagPackage, name)
}

// AddUTF8 interns a CONSTANT_Utf8_info for value.
func (t *SymbolTable) AddUTF8(value string) (*Symbol, error) {
	hash := hash31(TagUtf8, value)
	if existing := t.constantHash.find(hash, func(s *Symbol) bool {
		return s.Tag == TagUtf8 && s.Value == value
	}); existing != nil {
		return existing, nil
	}
	index, err := t.nextIndex(1)
	if err != nil {
		return nil, err
	}
	if _, err := t.constantPool.PutByte(TagUtf8).PutUTF8(value); err != nil {
		return nil, err
	}
	sym := &Symbol{Index: index, Tag: TagUtf8, Value: value}
	t.constantHash.insert(hash, sym)
	return sym, nil
}

// AddInteger interns a CONSTANT_Integer_info, keyed by the raw 32-bit
// pattern so that +0 and -0 (impossible for int, but symmetric with Float)
// and equal values dedup identically.
func (t *SymbolTable) AddInteger(value int32) (*Symbol, error) {
	bits := int64(uint32(value))
	hash := hash31(TagInteger, value)
	if existing := t.constantHash.find(hash, func(s *Symbol) bool {
		return s.Tag == TagInteger && s.Data == bits
	}); existing != nil {
		return existing, nil
	}
	index, err := t.nextIndex(1)
	if err != nil {
		return nil, err
	}
	t.constantPool.PutByte(TagInteger).PutInt(bits)
	sym := &Symbol{Index: index, Tag: TagInteger, Data: bits}
	t.constantHash.insert(hash, sym)
	return sym, nil
}

// AddFloat interns a CONSTANT_Float_info, keyed by math.Float32bits(value).
func (t *SymbolTable) AddFloat(value float32) (*Symbol, error) {
	bits := math.Float32bits(value)
	hash := hash31(TagFloat, bits)
	if existing := t.constantHash.find(hash, func(s *Symbol) bool {
		return s.Tag == TagFloat && s.Data == int64(bits)
	}); existing != nil {
		return existing, nil
	}
	index, err := t.nextIndex(1)
	if err != nil {
		return nil, err
	}
	t.constantPool.PutByte(TagFloat).PutInt(int64(bits))
	sym := &Symbol{Index: index, Tag: TagFloat, Data: int64(bits)}
	t.constantHash.insert(hash, sym)
	return sym, nil
}

// AddLong interns a CONSTANT_Long_info. Per JVMS §4.4.5, this reserves two
// consecutive constant-pool indices; the second is never used.
func (t *SymbolTable) AddLong(value int64) (*Symbol, error) {
	hash := hash31(TagLong, value)
	if existing := t.constantHash.find(hash, func(s *Symbol) bool {
		return s.Tag == TagLong && s.Data == value
	}); existing != nil {
		return existing, nil
	}
	index, err := t.nextIndex(2)
	if err != nil {
		return nil, err
	}
	t.constantPool.PutByte(TagLong).PutLong(value)
	sym := &Symbol{Index: index, Tag: TagLong, Data: value}
	t.constantHash.insert(hash, sym)
	return sym, nil
}

// AddDouble interns a CONSTANT_Double_info, also a two-slot reservation.
func (t *SymbolTable) AddDouble(value float64) (*Symbol, error) {
	bits := int64(math.Float64bits(value))
	hash := hash31(TagDouble, bits)
	if existing := t.constantHash.find(hash, func(s *Symbol) bool {
		return s.Tag == TagDouble && s.Data == bits
	}); existing != nil {
		return existing, nil
	}
	index, err := t.nextIndex(2)
	if err != nil {
		return nil, err
	}
	t.constantPool.PutByte(TagDouble).PutLong(bits)
	sym := &Symbol{Index: index, Tag: TagDouble, Data: bits}
	t.constantHash.insert(hash, sym)
	return sym, nil
}

// AddNameAndType interns a CONSTANT_NameAndType_info for (name, descriptor).
func (t *SymbolTable) AddNameAndType(name, descriptor string) (*Symbol, error) {
	hash := hash31(TagNameAndType, name, descriptor)
	if existing := t.constantHash.find(hash, func(s *Symbol) bool {
		return s.Tag == TagNameAndType && s.Name == name && s.Value == descriptor
	}); existing != nil {
		return existing, nil
	}
	nameSym, err := t.AddUTF8(name)
	if err != nil {
		return nil, err
	}
	descSym, err := t.AddUTF8(descriptor)
	if err != nil {
		return nil, err
	}
	index, err := t.nextIndex(1)
	if err != nil {
		return nil, err
	}
	t.constantPool.PutByte(TagNameAndType).PutShort(nameSym.Index).PutShort(descSym.Index)
	sym := &Symbol{Index: index, Tag: TagNameAndType, Name: name, Value: descriptor}
	t.constantHash.insert(hash, sym)
	return sym, nil
}

// addMemberRef is shared by AddFieldref/AddMethodref/AddInterfaceMethodref:
// the pool entry shape (tag, class_index, name_and_type_index) and hash key
// (tag, owner, name, descriptor) are identical across the three; only the
// tag differs. IsInterface selects fieldref vs a plain vs interface
// methodref but, per spec.md §4.2, is never part of the hash key because
// owner already disambiguates overload between an interface and a class.
func (t *SymbolTable) addMemberRef(tag int, owner, name, descriptor string) (*Symbol, error) {
	hash := hash31(tag, owner, name, descriptor)
	if existing := t.constantHash.find(hash, func(s *Symbol) bool {
		return s.Tag == tag && s.Owner == owner && s.Name == name && s.Value == descriptor
	}); existing != nil {
		return existing, nil
	}
	classSym, err := t.AddClass(owner)
	if err != nil {
		return nil, err
	}
	natSym, err := t.AddNameAndType(name, descriptor)
	if err != nil {
		return nil, err
	}
	index, err := t.nextIndex(1)
	if err != nil {
		return nil, err
	}
	t.constantPool.PutByte(tag).PutShort(classSym.Index).PutShort(natSym.Index)
	sym := &Symbol{Index: index, Tag: tag, Owner: owner, Name: name, Value: descriptor}
	t.constantHash.insert(hash, sym)
	return sym, nil
}

// AddFieldref interns a CONSTANT_Fieldref_info.
func (t *SymbolTable) AddFieldref(owner, name, descriptor string) (*Symbol, error) {
	return t.addMemberRef(TagFieldref, owner, name, descriptor)
}

// AddMethodref interns a CONSTANT_Methodref_info or
// CONSTANT_InterfaceMethodref_info, selected by isInterface.
func (t *SymbolTable) AddMethodref(owner, name, descriptor string, isInterface bool) (*Symbol, error) {
	tag := TagMethodref
	if isInterface {
		tag = TagInterfaceMethodref
	}
	return t.addMemberRef(tag, owner, name, descriptor)
}

// AddMethodHandle interns a CONSTANT_MethodHandle_info. For reference
// kinds 1-4 the target is added as a fieldref, for 5-9 as a methodref.
func (t *SymbolTable) AddMethodHandle(h Handle) (*Symbol, error) {
	hash := hash31(TagMethodHandle, h.Kind, h.Owner, h.Name, h.Descriptor)
	if existing := t.constantHash.find(hash, func(s *Symbol) bool {
		return s.Tag == TagMethodHandle && int(s.Data) == h.Kind && s.Owner == h.Owner && s.Name == h.Name && s.Value == h.Descriptor
	}); existing != nil {
		return existing, nil
	}
	var refSym *Symbol
	var err error
	if h.Kind >= HGetField && h.Kind <= HPutStatic {
		refSym, err = t.AddFieldref(h.Owner, h.Name, h.Descriptor)
	} else {
		refSym, err = t.AddMethodref(h.Owner, h.Name, h.Descriptor, h.IsInterface)
	}
	if err != nil {
		return nil, err
	}
	index, err := t.nextIndex(1)
	if err != nil {
		return nil, err
	}
	t.constantPool.PutByte(TagMethodHandle).PutByte(h.Kind).PutShort(refSym.Index)
	sym := &Symbol{Index: index, Tag: TagMethodHandle, Owner: h.Owner, Name: h.Name, Value: h.Descriptor, Data: int64(h.Kind)}
	t.constantHash.insert(hash, sym)
	return sym, nil
}

func dynamicConstantKey(tag int, name, descriptor string, bootstrap Handle, args []any) string {
	key := fmt.Sprintf("%d:%s:%s:%d:%s:%s:%s", tag, name, descriptor, bootstrap.Kind, bootstrap.Owner, bootstrap.Name, bootstrap.Descriptor)
	for _, a := range args {
		key += fmt.Sprintf(":%v", a)
	}
	return key
}

// addDynamic is shared by AddConstantDynamic/AddInvokeDynamic. It recurses
// into the bootstrap method first -- whose arguments may themselves be
// dynamic constants -- so the BootstrapMethods attribute buffer is never
// mutated mid-add (spec.md §4.2).
func (t *SymbolTable) addDynamic(tag int, name, descriptor string, bootstrap Handle, args []any) (*Symbol, error) {
	key := dynamicConstantKey(tag, name, descriptor, bootstrap, args)
	hash := hash31(tag, key)
	if existing := t.constantHash.find(hash, func(s *Symbol) bool {
		return s.Tag == tag && s.dynamicKey == key
	}); existing != nil {
		return existing, nil
	}
	bsmIndex, err := t.addBootstrapMethod(bootstrap, args)
	if err != nil {
		return nil, err
	}
	natSym, err := t.AddNameAndType(name, descriptor)
	if err != nil {
		return nil, err
	}
	index, err := t.nextIndex(1)
	if err != nil {
		return nil, err
	}
	t.constantPool.PutByte(tag).PutShort(bsmIndex).PutShort(natSym.Index)
	sym := &Symbol{Index: index, Tag: tag, Name: name, Value: descriptor, Data: int64(bsmIndex), dynamicKey: key}
	t.constantHash.insert(hash, sym)
	return sym, nil
}

// AddConstantDynamic interns a CONSTANT_Dynamic_info.
func (t *SymbolTable) AddConstantDynamic(c ConstantDynamic) (*Symbol, error) {
	return t.addDynamic(TagDynamic, c.Name, c.Descriptor, c.BootstrapMethod, c.BootstrapMethodArguments)
}

// AddInvokeDynamic interns a CONSTANT_InvokeDynamic_info.
func (t *SymbolTable) AddInvokeDynamic(name, descriptor string, bootstrap Handle, args []any) (*Symbol, error) {
	return t.addDynamic(TagInvokeDynamic, name, descriptor, bootstrap, args)
}

// addConstantArg interns one bootstrap argument (or dynamic-constant
// bootstrap argument) of arbitrary constant-pool-representable type and
// returns its constant-pool index.
func (t *SymbolTable) addConstantArg(arg any) (int, error) {
	switch v := arg.(type) {
	case int32:
		s, err := t.AddInteger(v)
		return index(s), err
	case int64:
		s, err := t.AddLong(v)
		return index(s), err
	case float32:
		s, err := t.AddFloat(v)
		return index(s), err
	case float64:
		s, err := t.AddDouble(v)
		return index(s), err
	case string:
		s, err := t.AddString(v)
		return index(s), err
	case Handle:
		s, err := t.AddMethodHandle(v)
		return index(s), err
	case ConstantDynamic:
		s, err := t.AddConstantDynamic(v)
		return index(s), err
	case classType:
		s, err := t.AddClass(v.internalName)
		return index(s), err
	default:
		return 0, &MalformedInputError{Reason: fmt.Sprintf("unsupported bootstrap argument type %T", arg)}
	}
}

// classType tags a bootstrap argument or constant-arg as a Class reference
// (needed because a bare string is ambiguous between CONSTANT_String and
// CONSTANT_Class in this API).
type classType struct{ internalName string }

// ClassConstant wraps an internal class name so it is added as a
// CONSTANT_Class_info rather than a CONSTANT_String_info when used as a
// bootstrap or annotation-default argument.
func ClassConstant(internalName string) any { return classType{internalName} }

func index(s *Symbol) int {
	if s == nil {
		return 0
	}
	return s.Index
}

// addBootstrapMethod serializes (method_handle_index, num_args,
// arg_indices[]) to the BootstrapMethods attribute buffer and deduplicates
// by byte-exact comparison against what has already been accumulated: the
// entry is appended speculatively, and on a duplicate match the trailer is
// truncated back to its length before the append (spec.md §4.2).
func (t *SymbolTable) addBootstrapMethod(h Handle, args []any) (int, error) {
	handleSym, err := t.AddMethodHandle(h)
	if err != nil {
		return 0, err
	}
	argIndices := make([]int, len(args))
	for i, a := range args {
		idx, err := t.addConstantArg(a)
		if err != nil {
			return 0, err
		}
		argIndices[i] = idx
	}

	priorLength := t.bootstrapMethods.Len()
	t.bootstrapMethods.PutShort(handleSym.Index).PutShort(len(argIndices))
	for _, idx := range argIndices {
		t.bootstrapMethods.PutShort(idx)
	}
	candidate := append([]byte(nil), t.bootstrapMethods.Bytes()[priorLength:]...)

	hash := hash31(TagBootstrapMethod, string(candidate))
	if existing := t.bootstrapMethodHash.find(hash, func(s *Symbol) bool {
		return bytesEqualAt(t.bootstrapMethods.Bytes(), s.Data, candidate)
	}); existing != nil {
		// Duplicate: drop the speculative append.
		t.bootstrapMethods.data = t.bootstrapMethods.data[:priorLength]
		return existing.Index, nil
	}

	sym := &Symbol{Tag: TagBootstrapMethod, Index: t.bootstrapMethodCount, Data: int64(priorLength)}
	t.bootstrapMethodCount++
	t.bootstrapMethodHash.insert(hash, sym)
	return sym.Index, nil
}

func bytesEqualAt(buf []byte, offset int64, candidate []byte) bool {
	off := int(offset)
	if off+len(candidate) > len(buf) {
		return false
	}
	for i, b := range candidate {
		if buf[off+i] != b {
			return false
		}
	}
	return true
}

// BootstrapMethodCount reports how many entries the BootstrapMethods
// attribute will carry.
func (t *SymbolTable) BootstrapMethodCount() int { return t.bootstrapMethodCount }

// --- type table ---

// AddType interns a normal type-table entry naming an internal class name,
// returning its type-table index (not a constant-pool index).
func (t *SymbolTable) AddType(internalName string) *Symbol {
	hash := hash31(TagType, internalName)
	if existing := t.typeTableHash.find(hash, func(s *Symbol) bool {
		return s.Tag == TagType && s.Value == internalName
	}); existing != nil {
		return existing
	}
	sym := &Symbol{Tag: TagType, Value: internalName, Index: len(t.typeTable)}
	t.typeTable = append(t.typeTable, sym)
	t.typeTableHash.insert(hash, sym)
	return sym
}

// AddUninitializedType interns a type-table entry for the not-yet-initialized
// result of a `new` instruction at the given bytecode offset.
func (t *SymbolTable) AddUninitializedType(internalName string, newOffset int) *Symbol {
	hash := hash31(TagUninitializedType, internalName, newOffset)
	if existing := t.typeTableHash.find(hash, func(s *Symbol) bool {
		return s.Tag == TagUninitializedType && s.Value == internalName && int(s.Data) == newOffset
	}); existing != nil {
		return existing
	}
	sym := &Symbol{Tag: TagUninitializedType, Value: internalName, Data: int64(newOffset), Index: len(t.typeTable)}
	t.typeTable = append(t.typeTable, sym)
	t.typeTableHash.insert(hash, sym)
	return sym
}

// AddMergedType interns the pairing of two normal-type indices as the
// input to a lazily-computed common-superclass merge (frame.go). The pair
// is normalized so (a,b) and (b,a) hash and compare equal.
func (t *SymbolTable) AddMergedType(idx1, idx2 int) *Symbol {
	if idx1 > idx2 {
		idx1, idx2 = idx2, idx1
	}
	hash := hash31(TagMergedType, idx1, idx2)
	if existing := t.typeTableHash.find(hash, func(s *Symbol) bool {
		if s.Tag != TagMergedType {
			return false
		}
		a, b := s.MergedTypeIndices()
		return a == idx1 && b == idx2
	}); existing != nil {
		return existing
	}
	sym := &Symbol{Tag: TagMergedType, Data: packMergedTypeIndices(idx1, idx2), Index: len(t.typeTable)}
	t.typeTable = append(t.typeTable, sym)
	t.typeTableHash.insert(hash, sym)
	return sym
}

// TypeTableEntry returns the type-table symbol at position index.
func (t *SymbolTable) TypeTableEntry(index int) *Symbol {
	return t.typeTable[index]
}

// WriteConstantPool appends constant_pool_count followed by the serialized
// pool body to out.
func (t *SymbolTable) WriteConstantPool(out *ByteVector) {
	out.PutShort(t.constantPoolCount)
	out.PutByteArray(t.constantPool.Bytes(), 0, t.constantPool.Len())
}

// HasBootstrapMethods reports whether a BootstrapMethods attribute needs
// to be emitted.
func (t *SymbolTable) HasBootstrapMethods() bool {
	return t.bootstrapMethodCount > 0
}

// WriteBootstrapMethodsAttribute appends the BootstrapMethods attribute
// body (entry count + entries) to out. The caller is responsible for the
// attribute_name_index/attribute_length header.
func (t *SymbolTable) WriteBootstrapMethodsAttribute(out *ByteVector) {
	out.PutShort(t.bootstrapMethodCount)
	out.PutByteArray(t.bootstrapMethods.Bytes(), 0, t.bootstrapMethods.Len())
}
