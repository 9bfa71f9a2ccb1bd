// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

// NewSymbolTableFromReader seeds a table by copying r's constant pool
// wholesale -- raw bytes plus a rebuilt constantHash entry per slot -- so
// every index r's class file already used is preserved exactly (spec.md
// §3/§4.6's "mostly-add" optimization). Compare the one-entry-at-a-time
// Add* path, which always appends: seeding never grows the pool, it only
// makes the existing entries dedup-lookupable for the Add* calls that
// follow.
func NewSymbolTableFromReader(r *Reader, className string) (*SymbolTable, error) {
	if err := r.locateBootstrapMethods(); err != nil {
		return nil, err
	}

	t := NewSymbolTable(className)
	poolLength := r.cpEndOffset - 10
	t.constantPool = NewByteVector(poolLength)
	t.constantPool.PutByteArray(r.bytes, 10, poolLength)
	t.constantPoolCount = len(r.cpTags)

	for i := 1; i < len(r.cpTags); i++ {
		tag := r.cpTags[i]
		if tag == 0 {
			continue // second slot of a Long/Double entry, unused.
		}
		sym, hash, err := r.decodeSeedSymbol(i, tag)
		if err != nil {
			return nil, err
		}
		t.constantHash.insert(hash, sym)
	}

	if r.bootstrapMethodsOffset != -1 {
		t.seedBootstrapMethods(r)
	}
	return t, nil
}

// decodeSeedSymbol rebuilds the Symbol and hash a fresh Add* call would
// have produced for the entry already sitting at pool index i, so a later
// Add* for the same value finds it instead of appending a duplicate.
func (r *Reader) decodeSeedSymbol(i int, tag byte) (*Symbol, uint32, error) {
	offset := r.cpInfoOffsets[i]
	switch int(tag) {
	case TagUtf8:
		v := r.utf8At(offset)
		return &Symbol{Index: i, Tag: TagUtf8, Value: v}, hash31(TagUtf8, v), nil
	case TagInteger:
		v := r.s4(offset)
		return &Symbol{Index: i, Tag: TagInteger, Data: int64(uint32(v))}, hash31(TagInteger, v), nil
	case TagFloat:
		bits := uint32(r.u4(offset))
		return &Symbol{Index: i, Tag: TagFloat, Data: int64(bits)}, hash31(TagFloat, bits), nil
	case TagLong:
		hi, lo := r.u4(offset), r.u4(offset+4)
		v := int64(hi<<32 | lo)
		return &Symbol{Index: i, Tag: TagLong, Data: v}, hash31(TagLong, v), nil
	case TagDouble:
		hi, lo := r.u4(offset), r.u4(offset+4)
		bits := hi<<32 | lo
		return &Symbol{Index: i, Tag: TagDouble, Data: bits}, hash31(TagDouble, bits), nil
	case TagClass:
		v := r.class(i)
		return &Symbol{Index: i, Tag: TagClass, Value: v}, hash31(TagClass, v), nil
	case TagString:
		v := r.utf8(r.u2(offset))
		return &Symbol{Index: i, Tag: TagString, Value: v}, hash31(TagString, v), nil
	case TagMethodType:
		v := r.utf8(r.u2(offset))
		return &Symbol{Index: i, Tag: TagMethodType, Value: v}, hash31(TagMethodType, v), nil
	case TagModule:
		v := r.moduleName(i)
		return &Symbol{Index: i, Tag: TagModule, Value: v}, hash31(TagModule, v), nil
	case TagPackage:
		v := r.packageName(i)
		return &Symbol{Index: i, Tag: TagPackage, Value: v}, hash31(TagPackage, v), nil
	case TagNameAndType:
		name, descriptor := r.nameAndType(i)
		return &Symbol{Index: i, Tag: TagNameAndType, Name: name, Value: descriptor},
			hash31(TagNameAndType, name, descriptor), nil
	case TagFieldref, TagMethodref, TagInterfaceMethodref:
		classIndex := r.u2(offset)
		natIndex := r.u2(offset + 2)
		owner := r.class(classIndex)
		name, descriptor := r.nameAndType(natIndex)
		refTag := int(tag)
		return &Symbol{Index: i, Tag: refTag, Owner: owner, Name: name, Value: descriptor},
			hash31(refTag, owner, name, descriptor), nil
	case TagMethodHandle:
		h := r.handle(i)
		sym := &Symbol{Index: i, Tag: TagMethodHandle, Owner: h.Owner, Name: h.Name, Value: h.Descriptor, Data: int64(h.Kind)}
		return sym, hash31(TagMethodHandle, h.Kind, h.Owner, h.Name, h.Descriptor), nil
	case TagDynamic, TagInvokeDynamic:
		bsmIndex := r.u2(offset)
		name, descriptor := r.nameAndType(r.u2(offset + 2))
		bootstrap, args := r.bootstrapMethod(bsmIndex)
		key := dynamicConstantKey(int(tag), name, descriptor, bootstrap, args)
		sym := &Symbol{Index: i, Tag: int(tag), Name: name, Value: descriptor, Data: int64(bsmIndex), dynamicKey: key}
		return sym, hash31(int(tag), key), nil
	default:
		return nil, 0, &MalformedInputError{Reason: "unrecognized constant pool tag", Offset: offset}
	}
}

// seedBootstrapMethods copies r's BootstrapMethods attribute body
// wholesale into t, preserving every bootstrap method's original index,
// and rebuilds bootstrapMethodHash from the same byte-exact comparison
// addBootstrapMethod itself uses so a later addBootstrapMethod call dedups
// against a seeded entry instead of appending a duplicate.
func (t *SymbolTable) seedBootstrapMethods(r *Reader) {
	base := r.bootstrapMethodsOffset
	count := r.u2(base)
	start := base + 2

	spans := make([]int, count)
	offset := start
	for i := 0; i < count; i++ {
		spans[i] = offset
		numArgs := r.u2(offset + 2)
		offset += 4 + 2*numArgs
	}
	length := offset - start
	t.bootstrapMethods = NewByteVector(length)
	t.bootstrapMethods.PutByteArray(r.bytes, start, length)
	t.bootstrapMethodCount = count

	for i, entryStart := range spans {
		entryEnd := offset
		if i+1 < len(spans) {
			entryEnd = spans[i+1]
		}
		candidate := r.bytes[entryStart:entryEnd]
		hash := hash31(TagBootstrapMethod, string(candidate))
		sym := &Symbol{Tag: TagBootstrapMethod, Index: i, Data: int64(entryStart - start)}
		t.bootstrapMethodHash.insert(hash, sym)
	}
}
