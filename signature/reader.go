// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package signature

// SignatureReader parses one Signature attribute value (JVMS §4.7.9.1) and
// drives a SignatureVisitor through it.
type SignatureReader struct {
	signature string
}

func NewSignatureReader(signature string) *SignatureReader {
	return &SignatureReader{signature: signature}
}

// Accept parses a ClassSignature or MethodSignature and drives v. Which
// grammar applies is detected the way the grammar itself disambiguates it:
// a MethodSignature's parameter list starts with '(' right after any
// formal type parameters, a ClassSignature's superclass signature never
// does.
func (r *SignatureReader) Accept(v SignatureVisitor) {
	s := r.signature
	pos := parseFormals(s, 0, v)

	if pos < len(s) && s[pos] == '(' {
		pos++
		for pos < len(s) && s[pos] != ')' {
			pos = parseType(s, pos, v.VisitParameterType())
		}
		pos++ // ')'
		pos = parseType(s, pos, v.VisitReturnType())
		for pos < len(s) && s[pos] == '^' {
			pos++
			pos = parseType(s, pos, v.VisitExceptionType())
		}
		return
	}

	pos = parseType(s, pos, v.VisitSuperclass())
	for pos < len(s) {
		pos = parseType(s, pos, v.VisitInterface())
	}
}

// AcceptType parses a bare FieldTypeSignature: what a field, record
// component, or local variable's Signature attribute holds, never
// carrying formal type parameters of its own.
func (r *SignatureReader) AcceptType(v SignatureVisitor) {
	parseType(r.signature, 0, v)
}

func parseFormals(s string, pos int, v SignatureVisitor) int {
	if pos >= len(s) || s[pos] != '<' {
		return pos
	}
	pos++
	for pos < len(s) && s[pos] != '>' {
		end := pos
		for end < len(s) && s[end] != ':' {
			end++
		}
		v.VisitFormalTypeParameter(s[pos:end])
		pos = end + 1 // past the class bound's ':'
		if pos < len(s) && s[pos] != ':' && s[pos] != '>' {
			pos = parseType(s, pos, v.VisitClassBound())
		} else {
			v.VisitClassBound()
		}
		for pos < len(s) && s[pos] == ':' {
			pos++
			pos = parseType(s, pos, v.VisitInterfaceBound())
		}
	}
	return pos + 1 // past '>'
}

// parseType parses one JavaTypeSignature starting at pos and returns the
// offset just past it, driving v (which may be nil to skip silently, used
// when a caller's own Visit* returned nil because it didn't care).
func parseType(s string, pos int, v SignatureVisitor) int {
	if pos >= len(s) {
		return pos
	}
	switch s[pos] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 'V':
		if v != nil {
			v.VisitBaseType(s[pos])
		}
		return pos + 1
	case '[':
		var nested SignatureVisitor
		if v != nil {
			nested = v.VisitArrayType()
		}
		return parseType(s, pos+1, nested)
	case 'T':
		end := pos + 1
		for end < len(s) && s[end] != ';' {
			end++
		}
		if v != nil {
			v.VisitTypeVariable(s[pos+1 : end])
		}
		return end + 1
	case 'L':
		return parseClassType(s, pos, v)
	default:
		return pos + 1
	}
}

func parseClassType(s string, pos int, v SignatureVisitor) int {
	pos++ // past 'L'
	pos = parseSimpleClassType(s, pos, v, false)
	for pos < len(s) && s[pos] == '.' {
		pos++
		pos = parseSimpleClassType(s, pos, v, true)
	}
	if pos < len(s) && s[pos] == ';' {
		pos++
	}
	if v != nil {
		v.VisitEnd()
	}
	return pos
}

func parseSimpleClassType(s string, pos int, v SignatureVisitor, inner bool) int {
	start := pos
	for pos < len(s) && s[pos] != ';' && s[pos] != '<' && s[pos] != '.' {
		pos++
	}
	name := s[start:pos]
	if v != nil {
		if inner {
			v.VisitInnerClassType(name)
		} else {
			v.VisitClassType(name)
		}
	}
	if pos < len(s) && s[pos] == '<' {
		pos++
		for pos < len(s) && s[pos] != '>' {
			pos = parseTypeArgument(s, pos, v)
		}
		pos++ // past '>'
	}
	return pos
}

func parseTypeArgument(s string, pos int, v SignatureVisitor) int {
	switch s[pos] {
	case '*':
		if v != nil {
			v.VisitTypeArgument()
		}
		return pos + 1
	case '+', '-':
		var nested SignatureVisitor
		if v != nil {
			nested = v.VisitTypeArgumentWildcard(s[pos])
		}
		return parseType(s, pos+1, nested)
	default:
		var nested SignatureVisitor
		if v != nil {
			nested = v.VisitTypeArgumentWildcard(Instanceof)
		}
		return parseType(s, pos, nested)
	}
}
