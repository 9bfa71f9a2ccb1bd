// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import (
	"os"

	"github.com/go-classfile/classfile/internal/log"
)

// WriterOptions configures a ClassWriter, mirroring the teacher's
// pe.Options: a struct of optional knobs threaded through the constructor,
// with documented defaults applied when a field is left zero.
type WriterOptions struct {
	// Logger receives Debugf/Errorf calls made while writing. Defaults to a
	// stdout logger filtered at error level when nil.
	Logger log.Logger
}

// ClassWriter implements ClassVisitor and assembles a complete class file
// (JVMS §4.1) in the mandated order: magic, minor/major version, constant
// pool, access flags, this_class, super_class, interfaces, fields, methods,
// attributes.
type ClassWriter struct {
	BaseClassVisitor

	table   *SymbolTable
	compute ComputeMode
	logger  *log.Helper

	// seeded is true when table was built by NewClassWriterFromReader,
	// telling VisitHeader to keep it (mostly-add, spec.md §3/§4.6)
	// instead of discarding it for a fresh empty one.
	seeded bool

	// verbatimMethods holds method_info byte ranges handed to
	// VisitMethodVerbatim, appended to the method table unmodified.
	verbatimMethods [][]byte

	version    int
	accessFlags int
	thisName   string
	thisIndex  int
	superIndex int
	interfaceIndices []int

	signatureIndex int

	sourceFile           string
	sourceDebugExtension string

	module     *moduleWriter
	nestHost   string
	nestMembers []string
	permittedSubclasses []string

	outerOwner, outerName, outerDescriptor string

	innerClasses []innerClassEntry

	visibleAnnotations   *annotationSetWriter
	invisibleAnnotations *annotationSetWriter
	rawAttributes        []Attribute

	recordComponents []*recordComponentWriter
	fields           []*fieldWriter
	methods          []*MethodWriter
}

type innerClassEntry struct {
	name, outerName, innerName string
	access                     int
}

// NewClassWriter returns a ClassWriter that computes max_stack/max_locals
// and StackMapTable frames (or not) according to compute.
func NewClassWriter(compute ComputeMode, opts WriterOptions) *ClassWriter {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewFilter(log.NewStdLogger(os.Stdout), log.FilterLevel(log.LevelError))
	}
	return &ClassWriter{
		table:   NewSymbolTable(""),
		compute: compute,
		logger:  log.NewHelper(logger),
	}
}

// NewClassWriterFromReader returns a ClassWriter whose constant pool is
// seeded wholesale from r (spec.md §3/§4.6 "mostly-add"): every index r's
// class file already used is preserved, so an Add* call for a name r's
// pool already carries dedups against the seeded entry instead of growing
// the pool, and a RawMethodInfo obtained from r can be spliced back in
// unchanged via VisitMethodVerbatim -- its constant-pool references still
// resolve to the same entries.
func NewClassWriterFromReader(r *Reader, compute ComputeMode, opts WriterOptions) (*ClassWriter, error) {
	w := NewClassWriter(compute, opts)
	table, err := NewSymbolTableFromReader(r, "")
	if err != nil {
		return nil, err
	}
	w.table = table
	w.seeded = true
	return w, nil
}

// VisitMethodVerbatim appends a method_info structure obtained from
// Reader.RawMethods unchanged, skipping VisitMethod entirely for it
// (spec.md §4.6 "mostly-add": a method the transformation does not touch
// is copied byte-for-byte rather than rebuilt). Only meaningful on a
// ClassWriter built with NewClassWriterFromReader, since raw's
// constant-pool references are only valid against that same pool.
func (w *ClassWriter) VisitMethodVerbatim(raw RawMethodInfo) {
	w.verbatimMethods = append(w.verbatimMethods, raw.Bytes)
}

func (w *ClassWriter) VisitHeader(version, access int, name, signature, superName string, interfaces []string) {
	w.version = version
	w.accessFlags = access
	w.thisName = name
	if !w.seeded {
		w.table = NewSymbolTable(name)
	} else {
		w.table.className = name
	}
	thisSym, _ := w.table.AddClass(name)
	w.thisIndex = thisSym.Index
	if superName != "" {
		superSym, _ := w.table.AddClass(superName)
		w.superIndex = superSym.Index
	}
	if signature != "" {
		sym, _ := w.table.AddUTF8(signature)
		w.signatureIndex = sym.Index
	}
	for _, i := range interfaces {
		sym, _ := w.table.AddClass(i)
		w.interfaceIndices = append(w.interfaceIndices, sym.Index)
	}
	w.logger.Debugf("writing class %s (super %s, %d interfaces)", name, superName, len(interfaces))
}

func (w *ClassWriter) VisitSource(source, debug string) {
	w.sourceFile = source
	w.sourceDebugExtension = debug
}

func (w *ClassWriter) VisitModule(name string, access int, version string) ModuleVisitor {
	w.module = newModuleWriter(w.table, name, access, version)
	return w.module
}

func (w *ClassWriter) VisitNestHost(nestHost string) { w.nestHost = nestHost }

func (w *ClassWriter) VisitOuterClass(owner, name, descriptor string) {
	w.outerOwner, w.outerName, w.outerDescriptor = owner, name, descriptor
}

func (w *ClassWriter) VisitAnnotation(descriptor string, visible bool) AnnotationVisitor {
	return w.annotationSet(visible).visitAnnotation(descriptor)
}

func (w *ClassWriter) annotationSet(visible bool) *annotationSetWriter {
	if visible {
		if w.visibleAnnotations == nil {
			w.visibleAnnotations = newAnnotationSetWriter(w.table)
		}
		return w.visibleAnnotations
	}
	if w.invisibleAnnotations == nil {
		w.invisibleAnnotations = newAnnotationSetWriter(w.table)
	}
	return w.invisibleAnnotations
}

func (w *ClassWriter) VisitAttribute(attr Attribute) {
	w.rawAttributes = append(w.rawAttributes, attr)
}

func (w *ClassWriter) VisitNestMember(nestMember string) {
	w.nestMembers = append(w.nestMembers, nestMember)
}

func (w *ClassWriter) VisitPermittedSubclass(permittedSubclass string) {
	w.permittedSubclasses = append(w.permittedSubclasses, permittedSubclass)
}

func (w *ClassWriter) VisitInnerClass(name, outerName, innerName string, access int) {
	w.innerClasses = append(w.innerClasses, innerClassEntry{name, outerName, innerName, access})
}

func (w *ClassWriter) VisitRecordComponent(name, descriptor, signature string) RecordComponentVisitor {
	rc := newRecordComponentWriter(w.table, name, descriptor, signature)
	w.recordComponents = append(w.recordComponents, rc)
	return rc
}

func (w *ClassWriter) VisitField(access int, name, descriptor, signature string, value any) FieldVisitor {
	f := newFieldWriter(w.table, access, name, descriptor, signature, value)
	w.fields = append(w.fields, f)
	return f
}

func (w *ClassWriter) VisitMethod(access int, name, descriptor, signature string, exceptions []string) MethodVisitor {
	mw, err := NewMethodWriter(w.table, w.compute, access, name, descriptor, signature, exceptions)
	if err != nil {
		w.logger.Errorf("new method writer for %s%s: %v", name, descriptor, err)
		return &BaseMethodVisitor{}
	}
	mw.classWriter = w
	w.methods = append(w.methods, mw)
	return mw
}

func (w *ClassWriter) VisitEnd() {}

// Bytes assembles the complete class file. Every constant-pool entry that
// any field/method/attribute body will reference must exist before the
// pool itself is serialized, so this builds every body into a scratch
// buffer first, only then checks the final pool size and emits the header,
// frozen pool, and bodies in JVMS order. Errors from a single oversized
// method or an over-full constant pool are reported at this single point,
// matching spec.md §5's "backpressure" model of accumulate-then-finalize.
func (w *ClassWriter) Bytes() ([]byte, error) {
	methodInfos := make([]*ByteVector, len(w.methods))
	for i, m := range w.methods {
		codeBody, err := m.buildCodeAttributeBody()
		if err != nil {
			return nil, err
		}
		if m.sawCode && len(codeBody) > 0xFFFF {
			return nil, &MethodTooLargeError{ClassName: w.thisName, MethodName: m.name, Descriptor: m.descriptor, Size: len(codeBody)}
		}
		info := NewByteVector(len(codeBody) + 32)
		if err := m.writeMethodInfoWithCode(info, codeBody); err != nil {
			return nil, err
		}
		methodInfos[i] = info
	}

	fieldInfos := make([]*ByteVector, len(w.fields))
	for i, f := range w.fields {
		info := NewByteVector(32)
		if err := f.writeFieldInfo(info); err != nil {
			return nil, err
		}
		fieldInfos[i] = info
	}

	classAttrs := NewByteVector(256)
	if err := w.writeClassAttributes(classAttrs); err != nil {
		return nil, err
	}

	if w.table.ConstantPoolCount() > 0xFFFF {
		return nil, &ClassTooLargeError{ClassName: w.thisName, Count: w.table.ConstantPoolCount()}
	}

	out := NewByteVector(4096)
	out.PutInt(0xCAFEBABE)
	out.PutShort(w.version >> 16)
	out.PutShort(w.version & 0xFFFF)

	w.table.WriteConstantPool(out)

	out.PutShort(w.accessFlags)
	out.PutShort(w.thisIndex)
	out.PutShort(w.superIndex)

	out.PutShort(len(w.interfaceIndices))
	for _, idx := range w.interfaceIndices {
		out.PutShort(idx)
	}

	out.PutShort(len(fieldInfos))
	for _, info := range fieldInfos {
		out.PutByteArray(info.Bytes(), 0, info.Len())
	}

	out.PutShort(len(methodInfos) + len(w.verbatimMethods))
	for _, info := range methodInfos {
		out.PutByteArray(info.Bytes(), 0, info.Len())
	}
	for _, raw := range w.verbatimMethods {
		out.PutByteArray(raw, 0, len(raw))
	}

	out.PutByteArray(classAttrs.Bytes(), 0, classAttrs.Len())

	return out.Bytes(), nil
}

func (w *ClassWriter) writeClassAttributes(out *ByteVector) error {
	type namedAttr struct {
		nameIndex int
		body      []byte
	}
	var attrs []namedAttr

	add := func(name string, body []byte) error {
		sym, err := w.table.AddUTF8(name)
		if err != nil {
			return err
		}
		attrs = append(attrs, namedAttr{sym.Index, body})
		return nil
	}

	if w.sourceFile != "" {
		sym, err := w.table.AddUTF8(w.sourceFile)
		if err != nil {
			return err
		}
		body := NewByteVector(2)
		body.PutShort(sym.Index)
		if err := add(AttrSourceFile, body.Bytes()); err != nil {
			return err
		}
	}
	if w.signatureIndex != 0 {
		body := NewByteVector(2)
		body.PutShort(w.signatureIndex)
		if err := add(AttrSignature, body.Bytes()); err != nil {
			return err
		}
	}
	if w.sourceDebugExtension != "" {
		encoded, err := EncodeModifiedUTF8(w.sourceDebugExtension)
		if err != nil {
			return err
		}
		if err := add(AttrSourceDebugExtension, encoded); err != nil {
			return err
		}
	}
	if w.module != nil {
		body, err := w.module.finish()
		if err != nil {
			return err
		}
		if err := add(AttrModule, body); err != nil {
			return err
		}
	}
	if w.nestHost != "" {
		sym, err := w.table.AddClass(w.nestHost)
		if err != nil {
			return err
		}
		body := NewByteVector(2)
		body.PutShort(sym.Index)
		if err := add(AttrNestHost, body.Bytes()); err != nil {
			return err
		}
	}
	if len(w.nestMembers) > 0 {
		body := NewByteVector(2 + 2*len(w.nestMembers))
		body.PutShort(len(w.nestMembers))
		for _, n := range w.nestMembers {
			sym, err := w.table.AddClass(n)
			if err != nil {
				return err
			}
			body.PutShort(sym.Index)
		}
		if err := add(AttrNestMembers, body.Bytes()); err != nil {
			return err
		}
	}
	if len(w.permittedSubclasses) > 0 {
		body := NewByteVector(2 + 2*len(w.permittedSubclasses))
		body.PutShort(len(w.permittedSubclasses))
		for _, n := range w.permittedSubclasses {
			sym, err := w.table.AddClass(n)
			if err != nil {
				return err
			}
			body.PutShort(sym.Index)
		}
		if err := add(AttrPermittedSubclasses, body.Bytes()); err != nil {
			return err
		}
	}
	if w.outerOwner != "" {
		ownerSym, err := w.table.AddClass(w.outerOwner)
		if err != nil {
			return err
		}
		body := NewByteVector(4)
		body.PutShort(ownerSym.Index)
		if w.outerName != "" {
			natSym, err := w.table.AddNameAndType(w.outerName, w.outerDescriptor)
			if err != nil {
				return err
			}
			body.PutShort(natSym.Index)
		} else {
			body.PutShort(0)
		}
		if err := add(AttrEnclosingMethod, body.Bytes()); err != nil {
			return err
		}
	}
	if len(w.innerClasses) > 0 {
		body := NewByteVector(2 + 8*len(w.innerClasses))
		body.PutShort(len(w.innerClasses))
		for _, ic := range w.innerClasses {
			nameSym, err := w.table.AddClass(ic.name)
			if err != nil {
				return err
			}
			body.PutShort(nameSym.Index)
			if ic.outerName != "" {
				outerSym, err := w.table.AddClass(ic.outerName)
				if err != nil {
					return err
				}
				body.PutShort(outerSym.Index)
			} else {
				body.PutShort(0)
			}
			if ic.innerName != "" {
				innerSym, err := w.table.AddUTF8(ic.innerName)
				if err != nil {
					return err
				}
				body.PutShort(innerSym.Index)
			} else {
				body.PutShort(0)
			}
			body.PutShort(ic.access)
		}
		if err := add(AttrInnerClasses, body.Bytes()); err != nil {
			return err
		}
	}
	if len(w.recordComponents) > 0 {
		body := NewByteVector(2)
		body.PutShort(len(w.recordComponents))
		for _, rc := range w.recordComponents {
			if err := rc.writeRecordComponentInfo(body); err != nil {
				return err
			}
		}
		if err := add(AttrRecord, body.Bytes()); err != nil {
			return err
		}
	}
	if w.visibleAnnotations != nil {
		if err := add(AttrRuntimeVisibleAnnotations, w.visibleAnnotations.finish()); err != nil {
			return err
		}
	}
	if w.invisibleAnnotations != nil {
		if err := add(AttrRuntimeInvisibleAnnotations, w.invisibleAnnotations.finish()); err != nil {
			return err
		}
	}
	if w.table.HasBootstrapMethods() {
		body := NewByteVector(64)
		w.table.WriteBootstrapMethodsAttribute(body)
		if err := add(AttrBootstrapMethods, body.Bytes()); err != nil {
			return err
		}
	}
	for _, a := range w.rawAttributes {
		if err := add(a.Name, a.Data); err != nil {
			return err
		}
	}

	out.PutShort(len(attrs))
	for _, a := range attrs {
		out.PutShort(a.nameIndex)
		out.PutInt(int64(len(a.body)))
		out.PutByteArray(a.body, 0, len(a.body))
	}
	return nil
}
