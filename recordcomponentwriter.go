// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

// recordComponentWriter implements RecordComponentVisitor, assembling one
// record_component_info entry of the Record attribute (JVMS §4.7.30).
type recordComponentWriter struct {
	table *SymbolTable

	nameIndex       int
	descriptorIndex int
	signatureIndex  int

	visibleAnnotations   *annotationSetWriter
	invisibleAnnotations *annotationSetWriter
	rawAttributes        []Attribute
}

func newRecordComponentWriter(table *SymbolTable, name, descriptor, signature string) *recordComponentWriter {
	nameSym, _ := table.AddUTF8(name)
	descSym, _ := table.AddUTF8(descriptor)
	w := &recordComponentWriter{table: table, nameIndex: nameSym.Index, descriptorIndex: descSym.Index}
	if signature != "" {
		sigSym, _ := table.AddUTF8(signature)
		w.signatureIndex = sigSym.Index
	}
	return w
}

func (w *recordComponentWriter) VisitAnnotation(descriptor string, visible bool) AnnotationVisitor {
	if visible {
		if w.visibleAnnotations == nil {
			w.visibleAnnotations = newAnnotationSetWriter(w.table)
		}
		return w.visibleAnnotations.visitAnnotation(descriptor)
	}
	if w.invisibleAnnotations == nil {
		w.invisibleAnnotations = newAnnotationSetWriter(w.table)
	}
	return w.invisibleAnnotations.visitAnnotation(descriptor)
}

func (w *recordComponentWriter) VisitTypeAnnotation(typeRef int, typePath string, descriptor string, visible bool) AnnotationVisitor {
	return w.VisitAnnotation(descriptor, visible)
}

func (w *recordComponentWriter) VisitAttribute(attr Attribute) {
	w.rawAttributes = append(w.rawAttributes, attr)
}

func (w *recordComponentWriter) VisitEnd() {}

func (w *recordComponentWriter) writeRecordComponentInfo(out *ByteVector) error {
	out.PutShort(w.nameIndex)
	out.PutShort(w.descriptorIndex)

	var attrNameIndices []int
	var attrBodies [][]byte
	add := func(name string, body []byte) error {
		sym, err := w.table.AddUTF8(name)
		if err != nil {
			return err
		}
		attrNameIndices = append(attrNameIndices, sym.Index)
		attrBodies = append(attrBodies, body)
		return nil
	}

	if w.signatureIndex != 0 {
		body := NewByteVector(2)
		body.PutShort(w.signatureIndex)
		if err := add(AttrSignature, body.Bytes()); err != nil {
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
	for _, a := range w.rawAttributes {
		if err := add(a.Name, a.Data); err != nil {
			return err
		}
	}

	out.PutShort(len(attrBodies))
	for i, body := range attrBodies {
		out.PutShort(attrNameIndices[i])
		out.PutInt(int64(len(body)))
		out.PutByteArray(body, 0, len(body))
	}
	return nil
}
