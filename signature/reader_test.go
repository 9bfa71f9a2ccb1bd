// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package signature

import (
	"reflect"
	"testing"
)

// traceVisitor records the name of every Visit* event it receives, in
// order, so a test can assert on call sequence without a full tree model.
type traceVisitor struct {
	BaseSignatureVisitor
	events *[]string
}

func newTrace(events *[]string) *traceVisitor { return &traceVisitor{events: events} }

func (v *traceVisitor) VisitFormalTypeParameter(name string) {
	*v.events = append(*v.events, "formal:"+name)
}
func (v *traceVisitor) VisitClassBound() SignatureVisitor {
	*v.events = append(*v.events, "classBound")
	return newTrace(v.events)
}
func (v *traceVisitor) VisitSuperclass() SignatureVisitor {
	*v.events = append(*v.events, "superclass")
	return newTrace(v.events)
}
func (v *traceVisitor) VisitInterface() SignatureVisitor {
	*v.events = append(*v.events, "interface")
	return newTrace(v.events)
}
func (v *traceVisitor) VisitClassType(name string) {
	*v.events = append(*v.events, "classType:"+name)
}
func (v *traceVisitor) VisitTypeVariable(name string) {
	*v.events = append(*v.events, "typeVariable:"+name)
}
func (v *traceVisitor) VisitTypeArgumentWildcard(wildcard byte) SignatureVisitor {
	*v.events = append(*v.events, "typeArgument:"+string(wildcard))
	return newTrace(v.events)
}

func TestSignatureReaderAccept(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{
			"<T:Ljava/lang/Object;>Ljava/lang/Object;Ljava/lang/Comparable<TT;>;",
			[]string{
				"formal:T", "classBound", "classType:java/lang/Object",
				"superclass", "classType:java/lang/Object",
				"interface", "classType:java/lang/Comparable",
				"typeArgument:=", "typeVariable:T",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var events []string
			NewSignatureReader(tt.in).Accept(newTrace(&events))
			if !reflect.DeepEqual(events, tt.want) {
				t.Errorf("events = %v, want %v", events, tt.want)
			}
		})
	}
}

func TestSignatureReaderAcceptType(t *testing.T) {
	var events []string
	NewSignatureReader("Ljava/util/List<Ljava/lang/String;>;").AcceptType(newTrace(&events))
	want := []string{"classType:java/util/List", "typeArgument:=", "classType:java/lang/String"}
	if !reflect.DeepEqual(events, want) {
		t.Errorf("events = %v, want %v", events, want)
	}
}
