// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classtree

import (
	"testing"

	"github.com/go-classfile/classfile"
)

func TestClassNodeAcceptReplaysFieldsAndMethods(t *testing.T) {
	n := NewClassNode()
	n.VisitHeader(classfile.V17, classfile.AccPublic, "com/example/Foo", "", "java/lang/Object", nil)
	n.VisitSource("Foo.java", "")
	fv := n.VisitField(classfile.AccPrivate, "count", "I", "", nil)
	fv.VisitEnd()
	mv := n.VisitMethod(classfile.AccPublic, "<init>", "()V", "", nil)
	mv.VisitCode()
	mv.VisitVarInsn(classfile.OpAload, 0)
	mv.VisitMethodInsn(classfile.OpInvokespecial, "java/lang/Object", "<init>", "()V", false)
	mv.VisitInsn(classfile.OpReturn)
	mv.VisitMaxs(1, 1)
	mv.VisitEnd()
	n.VisitEnd()

	if len(n.Fields) != 1 || n.Fields[0].Name != "count" {
		t.Fatalf("fields = %+v", n.Fields)
	}
	if len(n.Methods) != 1 || len(n.Methods[0].Instructions) != 3 {
		t.Fatalf("methods = %+v", n.Methods)
	}

	var events []string
	rec := &recordingVisitor{events: &events}
	n.Accept(rec)

	want := []string{
		"header:com/example/Foo", "source:Foo.java",
		"field:count", "method:<init>",
	}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i, e := range want {
		if events[i] != e {
			t.Errorf("events[%d] = %q, want %q", i, events[i], e)
		}
	}
}

type recordingVisitor struct {
	classfile.BaseClassVisitor
	events *[]string
}

func (r *recordingVisitor) VisitHeader(version, access int, name, signature, superName string, interfaces []string) {
	*r.events = append(*r.events, "header:"+name)
}
func (r *recordingVisitor) VisitSource(source, debug string) {
	*r.events = append(*r.events, "source:"+source)
}
func (r *recordingVisitor) VisitField(access int, name, descriptor, signature string, value any) classfile.FieldVisitor {
	*r.events = append(*r.events, "field:"+name)
	return nil
}
func (r *recordingVisitor) VisitMethod(access int, name, descriptor, signature string, exceptions []string) classfile.MethodVisitor {
	*r.events = append(*r.events, "method:"+name)
	return nil
}
func (r *recordingVisitor) VisitEnd() {}
