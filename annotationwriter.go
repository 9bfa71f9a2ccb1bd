// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

// annotationWriter implements AnnotationVisitor by serializing element-value
// pairs directly into a ByteVector per JVMS §4.7.16. numElementValuePairs
// tracks the count so far; its position (numElementValuePairsOffset) gets
// patched once VisitEnd is known to have been reached, since the visitor
// does not know the pair count up front.
type annotationWriter struct {
	table *SymbolTable
	named bool // whether this writer emits element_value_pairs (annotation) vs value[] (array)

	out                        *ByteVector
	numElementValuePairsOffset int
	numElementValuePairs       int

	parentNumAnnotations *int
}

func newAnnotationWriter(table *SymbolTable, named bool, out *ByteVector, numAnnotations *int) *annotationWriter {
	w := &annotationWriter{table: table, named: named, out: out, parentNumAnnotations: numAnnotations}
	if named {
		w.numElementValuePairsOffset = out.Len()
		out.PutShort(0)
	}
	return w
}

func (w *annotationWriter) putName(name string) {
	if w.named {
		sym, _ := w.table.AddUTF8(name)
		w.out.PutShort(sym.Index)
	}
}

func (w *annotationWriter) Visit(name string, value any) {
	w.numElementValuePairs++
	w.putName(name)
	switch v := value.(type) {
	case bool:
		tag := byte('Z')
		w.out.PutByte(int(tag))
		iv := 0
		if v {
			iv = 1
		}
		sym, _ := w.table.AddInteger(int32(iv))
		w.out.PutShort(sym.Index)
	case byte:
		w.writeConstInt('B', int32(v))
	case int8:
		w.writeConstInt('B', int32(v))
	case int16:
		w.writeConstInt('S', int32(v))
	case uint16:
		w.writeConstInt('C', int32(v))
	case int:
		w.writeConstInt('I', int32(v))
	case int32:
		w.writeConstInt('I', v)
	case int64:
		w.out.PutByte('J')
		sym, _ := w.table.AddLong(v)
		w.out.PutShort(sym.Index)
	case float32:
		w.out.PutByte('F')
		sym, _ := w.table.AddFloat(v)
		w.out.PutShort(sym.Index)
	case float64:
		w.out.PutByte('D')
		sym, _ := w.table.AddDouble(v)
		w.out.PutShort(sym.Index)
	case string:
		w.out.PutByte('s')
		sym, _ := w.table.AddUTF8(v)
		w.out.PutShort(sym.Index)
	case AnnotationClassValue:
		w.out.PutByte('c')
		sym, _ := w.table.AddUTF8(v.Descriptor)
		w.out.PutShort(sym.Index)
	default:
		w.out.PutByte('s')
		sym, _ := w.table.AddUTF8("")
		w.out.PutShort(sym.Index)
	}
}

func (w *annotationWriter) writeConstInt(tag byte, v int32) {
	w.out.PutByte(int(tag))
	sym, _ := w.table.AddInteger(v)
	w.out.PutShort(sym.Index)
}

// AnnotationClassValue wraps a Class-typed annotation element value (JVMS
// §4.7.16.1 tag 'c'), distinguishing it from a plain string constant.
type AnnotationClassValue struct{ Descriptor string }

func (w *annotationWriter) VisitEnum(name, descriptor, value string) {
	w.numElementValuePairs++
	w.putName(name)
	w.out.PutByte('e')
	descSym, _ := w.table.AddUTF8(descriptor)
	valSym, _ := w.table.AddUTF8(value)
	w.out.PutShort(descSym.Index)
	w.out.PutShort(valSym.Index)
}

func (w *annotationWriter) VisitAnnotation(name, descriptor string) AnnotationVisitor {
	w.numElementValuePairs++
	w.putName(name)
	w.out.PutByte('@')
	descSym, _ := w.table.AddUTF8(descriptor)
	w.out.PutShort(descSym.Index)
	return newAnnotationWriter(w.table, true, w.out, nil)
}

func (w *annotationWriter) VisitArray(name string) AnnotationVisitor {
	w.numElementValuePairs++
	w.putName(name)
	w.out.PutByte('[')
	child := newAnnotationWriter(w.table, false, w.out, nil)
	child.numElementValuePairsOffset = w.out.Len()
	w.out.PutShort(0)
	return child
}

func (w *annotationWriter) VisitEnd() {
	w.out.OverwriteShort(w.numElementValuePairsOffset, w.numElementValuePairs)
	if w.parentNumAnnotations != nil {
		*w.parentNumAnnotations++
	}
}

// annotationSetWriter accumulates the annotations for one
// RuntimeVisibleAnnotations/RuntimeInvisibleAnnotations (or the parameter-
// indexed variants) attribute.
type annotationSetWriter struct {
	table *SymbolTable
	out   *ByteVector
	count int
}

func newAnnotationSetWriter(table *SymbolTable) *annotationSetWriter {
	w := &annotationSetWriter{table: table, out: NewByteVector(64)}
	w.out.PutShort(0)
	return w
}

func (w *annotationSetWriter) visitAnnotation(descriptor string) AnnotationVisitor {
	descSym, _ := w.table.AddUTF8(descriptor)
	w.out.PutShort(descSym.Index)
	w.count++
	return newAnnotationWriter(w.table, true, w.out, nil)
}

func (w *annotationSetWriter) finish() []byte {
	w.out.OverwriteShort(0, w.count)
	return w.out.Bytes()
}
