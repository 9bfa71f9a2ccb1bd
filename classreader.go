// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import (
	"encoding/binary"
	"math"
	"os"

	mmap "github.com/edsrzf/mmap-go"

	"github.com/go-classfile/classfile/internal/log"
)

// ReaderOptions configures a Reader the way pe.Options configures the
// teacher's File: a struct of optional knobs, documented defaults applied
// when a field is left zero.
type ReaderOptions struct {
	// Logger receives Debugf/Errorf calls made while reading. Defaults to a
	// stdout logger filtered at error level when nil.
	Logger log.Logger
}

// Reader parses a .class file's bytes and drives a ClassVisitor through
// Accept, the mirror image of ClassWriter. It indexes the constant pool up
// front (cpInfoOffsets) so later passes can resolve a pool index to its
// value without a linear scan, the way the teacher's File memory-maps a PE
// once and then slices into it by RVA.
type Reader struct {
	data   mmap.MMap
	bytes  []byte
	f      *os.File
	logger *log.Helper

	cpInfoOffsets []int // index i -> byte offset of pool entry i's info, 0 unused.
	cpTags        []byte

	bootstrapMethodsOffset int // byte offset of BootstrapMethods attribute's num_bootstrap_methods field, -1 if absent.
	cpEndOffset            int // byte offset immediately after the last constant pool entry.
}

// Open memory-maps the .class file at path for zero-copy reads, mirroring
// pe.New's use of mmap-go.
func Open(path string, opts ReaderOptions) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	r := newReader(data, opts)
	r.data = data
	r.f = f
	return r, nil
}

// NewBytes wraps an in-memory buffer, mirroring pe.NewBytes.
func NewBytes(data []byte, opts ReaderOptions) *Reader {
	return newReader(data, opts)
}

func newReader(data []byte, opts ReaderOptions) *Reader {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewFilter(log.NewStdLogger(os.Stdout), log.FilterLevel(log.LevelError))
	}
	return &Reader{bytes: data, logger: log.NewHelper(logger)}
}

// Close releases the memory-mapped file, if any.
func (r *Reader) Close() error {
	if r.data != nil {
		_ = r.data.Unmap()
	}
	if r.f != nil {
		return r.f.Close()
	}
	return nil
}

func (r *Reader) u1(offset int) int { return int(r.bytes[offset]) }
func (r *Reader) u2(offset int) int { return int(binary.BigEndian.Uint16(r.bytes[offset:])) }
func (r *Reader) u4(offset int) int64 {
	return int64(binary.BigEndian.Uint32(r.bytes[offset:]))
}
func (r *Reader) s1(offset int) int { return int(int8(r.bytes[offset])) }
func (r *Reader) s2(offset int) int { return int(int16(binary.BigEndian.Uint16(r.bytes[offset:]))) }
func (r *Reader) s4(offset int) int32 {
	return int32(binary.BigEndian.Uint32(r.bytes[offset:]))
}

// utf8At decodes a CONSTANT_Utf8_info entry whose "length" field starts at
// offset.
func (r *Reader) utf8At(offset int) string {
	length := r.u2(offset)
	return DecodeModifiedUTF8(r.bytes[offset+2 : offset+2+length])
}

func (r *Reader) utf8(index int) string {
	if index == 0 {
		return ""
	}
	return r.utf8At(r.cpInfoOffsets[index])
}

func (r *Reader) class(index int) string {
	if index == 0 {
		return ""
	}
	nameIndex := r.u2(r.cpInfoOffsets[index])
	return r.utf8(nameIndex)
}

func (r *Reader) nameAndType(index int) (name, descriptor string) {
	offset := r.cpInfoOffsets[index]
	return r.utf8(r.u2(offset)), r.utf8(r.u2(offset + 2))
}

// constant decodes the loadable constant at pool index for ldc/ldc_w/
// ldc2_w and for an invokedynamic's bootstrap argument list.
func (r *Reader) constant(index int) any {
	offset := r.cpInfoOffsets[index]
	switch r.cpTags[index] {
	case TagInteger:
		return r.s4(offset)
	case TagFloat:
		return math.Float32frombits(uint32(r.s4(offset)))
	case TagLong:
		hi := r.u4(offset)
		lo := r.u4(offset + 4)
		return int64(hi<<32 | lo)
	case TagDouble:
		hi := r.u4(offset)
		lo := r.u4(offset + 4)
		return math.Float64frombits(uint64(hi<<32 | lo))
	case TagString:
		return r.utf8(r.u2(offset))
	case TagClass:
		return classConstant{internalName: r.class(index)}
	case TagMethodType:
		return r.utf8(r.u2(offset))
	case TagMethodHandle:
		return r.handle(index)
	case TagDynamic:
		return r.constantDynamic(index)
	default:
		return nil
	}
}

func (r *Reader) handle(index int) Handle {
	offset := r.cpInfoOffsets[index]
	kind := r.u1(offset)
	refIndex := r.u2(offset + 1)
	refOffset := r.cpInfoOffsets[refIndex]
	owner := r.class(r.u2(refOffset))
	name, descriptor := r.nameAndType(r.u2(refOffset + 2))
	isInterface := r.cpTags[refIndex] == TagInterfaceMethodref
	return Handle{Kind: kind, Owner: owner, Name: name, Descriptor: descriptor, IsInterface: isInterface}
}

func (r *Reader) constantDynamic(index int) ConstantDynamic {
	offset := r.cpInfoOffsets[index]
	bsmIndex := r.u2(offset)
	name, descriptor := r.nameAndType(r.u2(offset + 2))
	bootstrap, args := r.bootstrapMethod(bsmIndex)
	return ConstantDynamic{Name: name, Descriptor: descriptor, BootstrapMethod: bootstrap, BootstrapMethodArguments: args}
}

// bootstrapMethodsOffset is populated by Accept once the BootstrapMethods
// attribute (if any) has been located; dynamic constants and invokedynamic
// instructions may be read before or after it is set depending on how a
// particular class file orders its attributes relative to the constant
// pool entries that reference them, but the attribute itself is only ever
// interpreted after this offset is known.
func (r *Reader) bootstrapMethod(bsmIndex int) (Handle, []any) {
	base := r.bootstrapMethodsOffset + 2 // past num_bootstrap_methods
	offset := base
	for i := 0; i < bsmIndex; i++ {
		numArgs := r.u2(offset + 2)
		offset += 4 + 2*numArgs
	}
	handleIndex := r.u2(offset)
	numArgs := r.u2(offset + 2)
	handle := r.handle(handleIndex)
	args := make([]any, numArgs)
	for i := 0; i < numArgs; i++ {
		args[i] = r.constant(r.u2(offset + 4 + 2*i))
	}
	return handle, args
}
