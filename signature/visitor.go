// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package signature parses the generics signature grammar JVMS §4.7.9.1
// defines for the Signature attribute, the way org.objectweb.asm.signature
// does for ASM. It is scoped to classes/methods/fields; recursive wildcard
// bounds deeper than one level are walked but not specially rendered by the
// Pretty helper.
package signature

// Wildcard markers for VisitTypeArgumentWildcard, matching the characters
// JVMS §4.7.9.1 uses in a TypeArgument's WildcardIndicator.
const (
	Extends  = '+'
	Super    = '-'
	Instanceof = '='
)

// SignatureVisitor receives events describing a parsed class, method, or
// field signature, mirroring ASM's org.objectweb.asm.signature.SignatureVisitor.
type SignatureVisitor interface {
	VisitFormalTypeParameter(name string)
	VisitClassBound() SignatureVisitor
	VisitInterfaceBound() SignatureVisitor
	VisitSuperclass() SignatureVisitor
	VisitInterface() SignatureVisitor
	VisitParameterType() SignatureVisitor
	VisitReturnType() SignatureVisitor
	VisitExceptionType() SignatureVisitor
	VisitBaseType(descriptor byte)
	VisitTypeVariable(name string)
	VisitArrayType() SignatureVisitor
	VisitClassType(name string)
	VisitInnerClassType(name string)
	VisitTypeArgument()
	VisitTypeArgumentWildcard(wildcard byte) SignatureVisitor
	VisitEnd()
}

// BaseSignatureVisitor is a SignatureVisitor whose methods all do nothing
// except, where one exists, return nil or itself so a partial override can
// still recurse. Embed it and override only the events of interest.
type BaseSignatureVisitor struct{}

func (BaseSignatureVisitor) VisitFormalTypeParameter(name string)             {}
func (v BaseSignatureVisitor) VisitClassBound() SignatureVisitor              { return v }
func (v BaseSignatureVisitor) VisitInterfaceBound() SignatureVisitor         { return v }
func (v BaseSignatureVisitor) VisitSuperclass() SignatureVisitor             { return v }
func (v BaseSignatureVisitor) VisitInterface() SignatureVisitor              { return v }
func (v BaseSignatureVisitor) VisitParameterType() SignatureVisitor          { return v }
func (v BaseSignatureVisitor) VisitReturnType() SignatureVisitor             { return v }
func (v BaseSignatureVisitor) VisitExceptionType() SignatureVisitor          { return v }
func (BaseSignatureVisitor) VisitBaseType(descriptor byte)                   {}
func (BaseSignatureVisitor) VisitTypeVariable(name string)                   {}
func (v BaseSignatureVisitor) VisitArrayType() SignatureVisitor              { return v }
func (BaseSignatureVisitor) VisitClassType(name string)                      {}
func (BaseSignatureVisitor) VisitInnerClassType(name string)                 {}
func (BaseSignatureVisitor) VisitTypeArgument()                              {}
func (v BaseSignatureVisitor) VisitTypeArgumentWildcard(wildcard byte) SignatureVisitor {
	return v
}
func (BaseSignatureVisitor) VisitEnd() {}
