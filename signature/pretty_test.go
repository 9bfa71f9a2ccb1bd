// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package signature

import "testing"

func TestPretty(t *testing.T) {
	tests := []struct {
		in  string
		out string
	}{
		{"Ljava/lang/String;", "java.lang.String"},
		{"Ljava/util/List<Ljava/lang/String;>;", "java.util.List<java.lang.String>"},
		{"[I", "int[]"},
		{"TT;", "T"},
		{"(Ljava/lang/String;I)V", "(java.lang.String, int) void"},
		{"Ljava/util/Map<Ljava/lang/String;+Ljava/lang/Number;>;", "java.util.Map<java.lang.String, ? extends java.lang.Number>"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Pretty(tt.in); got != tt.out {
				t.Errorf("Pretty(%q) = %q, want %q", tt.in, got, tt.out)
			}
		})
	}
}
