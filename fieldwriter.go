// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

// fieldWriter implements FieldVisitor, assembling one field_info structure
// (JVMS §4.5).
type fieldWriter struct {
	table *SymbolTable

	accessFlags     int
	nameIndex       int
	descriptorIndex int
	signatureIndex  int
	constantValue   any

	visibleAnnotations   *annotationSetWriter
	invisibleAnnotations *annotationSetWriter
	rawAttributes        []Attribute
}

func newFieldWriter(table *SymbolTable, access int, name, descriptor, signature string, value any) *fieldWriter {
	nameSym, _ := table.AddUTF8(name)
	descSym, _ := table.AddUTF8(descriptor)
	w := &fieldWriter{
		table:           table,
		accessFlags:     access,
		nameIndex:       nameSym.Index,
		descriptorIndex: descSym.Index,
		constantValue:   value,
	}
	if signature != "" {
		sigSym, _ := table.AddUTF8(signature)
		w.signatureIndex = sigSym.Index
	}
	return w
}

func (w *fieldWriter) VisitAnnotation(descriptor string, visible bool) AnnotationVisitor {
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

func (w *fieldWriter) VisitTypeAnnotation(typeRef int, typePath string, descriptor string, visible bool) AnnotationVisitor {
	return w.VisitAnnotation(descriptor, visible)
}

func (w *fieldWriter) VisitAttribute(attr Attribute) {
	w.rawAttributes = append(w.rawAttributes, attr)
}

func (w *fieldWriter) VisitEnd() {}

// constantValueSymbol interns the field's ConstantValue attribute payload
// (JVMS §4.7.2), dispatching on the Go type of the value supplied to
// VisitField per the int/long/float/double/String mapping of field
// descriptor base types.
func (w *fieldWriter) constantValueSymbol() (*Symbol, error) {
	switch v := w.constantValue.(type) {
	case int:
		return w.table.AddInteger(int32(v))
	case int32:
		return w.table.AddInteger(v)
	case int64:
		return w.table.AddLong(v)
	case float32:
		return w.table.AddFloat(v)
	case float64:
		return w.table.AddDouble(v)
	case string:
		return w.table.AddString(v)
	case bool:
		iv := int32(0)
		if v {
			iv = 1
		}
		return w.table.AddInteger(iv)
	default:
		return nil, nil
	}
}

func (w *fieldWriter) writeFieldInfo(out *ByteVector) error {
	out.PutShort(w.accessFlags)
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

	if w.constantValue != nil {
		sym, err := w.constantValueSymbol()
		if err != nil {
			return err
		}
		if sym != nil {
			body := NewByteVector(2)
			body.PutShort(sym.Index)
			if err := add(AttrConstantValue, body.Bytes()); err != nil {
				return err
			}
		}
	}
	if w.signatureIndex != 0 {
		body := NewByteVector(2)
		body.PutShort(w.signatureIndex)
		if err := add(AttrSignature, body.Bytes()); err != nil {
			return err
		}
	}
	if w.accessFlags&AccSynthetic != 0 {
		if err := add(AttrSynthetic, nil); err != nil {
			return err
		}
	}
	if w.accessFlags&AccDeprecated != 0 {
		if err := add(AttrDeprecated, nil); err != nil {
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
