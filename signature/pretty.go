// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package signature

import "strings"

var baseTypeNames = map[byte]string{
	'B': "byte", 'C': "char", 'D': "double", 'F': "float",
	'I': "int", 'J': "long", 'S': "short", 'Z': "boolean", 'V': "void",
}

// Pretty renders a class, method, or field Signature attribute value as a
// Java-source-like string, for the dumper's human-readable output. It is a
// best-effort rendering, not a validating parser: formal type parameters on
// a class/method signature are parsed (to stay positioned correctly) but
// not reflected in the output, since the dumper already prints access
// flags and type parameters add little it cares about.
func Pretty(sig string) string {
	if sig == "" {
		return ""
	}
	pos := skipFormals(sig, 0)

	if pos < len(sig) && sig[pos] == '(' {
		pos++
		var params []string
		for pos < len(sig) && sig[pos] != ')' {
			var t string
			t, pos = prettyType(sig, pos)
			params = append(params, t)
		}
		pos++ // ')'
		ret, _ := prettyType(sig, pos)
		return "(" + strings.Join(params, ", ") + ") " + ret
	}

	var parts []string
	for pos < len(sig) {
		var t string
		t, pos = prettyType(sig, pos)
		parts = append(parts, t)
	}
	return strings.Join(parts, " extends ")
}

func skipFormals(s string, pos int) int {
	if pos >= len(s) || s[pos] != '<' {
		return pos
	}
	depth := 0
	end := pos
	for ; end < len(s); end++ {
		switch s[end] {
		case '<':
			depth++
		case '>':
			depth--
			if depth == 0 {
				return end + 1
			}
		}
	}
	return end
}

func prettyType(s string, pos int) (string, int) {
	if pos >= len(s) {
		return "", pos
	}
	switch s[pos] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 'V':
		return baseTypeNames[s[pos]], pos + 1
	case '[':
		elem, next := prettyType(s, pos+1)
		return elem + "[]", next
	case 'T':
		end := pos + 1
		for end < len(s) && s[end] != ';' {
			end++
		}
		return s[pos+1 : end], end + 1
	case 'L':
		return prettyClassType(s, pos)
	default:
		return "", pos + 1
	}
}

func prettyClassType(s string, pos int) (string, int) {
	pos++ // 'L'
	var sb strings.Builder
	name, next := prettySimpleName(s, pos)
	sb.WriteString(strings.ReplaceAll(name, "/", "."))
	pos = next
	if pos < len(s) && s[pos] == '<' {
		var args string
		args, pos = prettyTypeArgs(s, pos)
		sb.WriteString(args)
	}
	for pos < len(s) && s[pos] == '.' {
		pos++
		var inner string
		inner, next = prettySimpleName(s, pos)
		sb.WriteString("." + inner)
		pos = next
		if pos < len(s) && s[pos] == '<' {
			var args string
			args, pos = prettyTypeArgs(s, pos)
			sb.WriteString(args)
		}
	}
	if pos < len(s) && s[pos] == ';' {
		pos++
	}
	return sb.String(), pos
}

func prettySimpleName(s string, pos int) (string, int) {
	start := pos
	for pos < len(s) && s[pos] != ';' && s[pos] != '<' && s[pos] != '.' {
		pos++
	}
	return s[start:pos], pos
}

func prettyTypeArgs(s string, pos int) (string, int) {
	pos++ // '<'
	var parts []string
	for pos < len(s) && s[pos] != '>' {
		var part string
		switch s[pos] {
		case '*':
			part = "?"
			pos++
		case '+':
			var t string
			t, pos = prettyType(s, pos+1)
			part = "? extends " + t
		case '-':
			var t string
			t, pos = prettyType(s, pos+1)
			part = "? super " + t
		default:
			part, pos = prettyType(s, pos)
		}
		parts = append(parts, part)
	}
	if pos < len(s) {
		pos++ // '>'
	}
	return "<" + strings.Join(parts, ", ") + ">", pos
}
