// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import "testing"

func TestModuleWriterOrderedRequiresSortsSemverVersions(t *testing.T) {
	st := NewSymbolTable("module-info")
	w := newModuleWriter(st, "com.example.app", 0, "1.0")

	w.VisitRequire("java.base", AccMandated, "")
	w.VisitRequire("com.example.lib", 0, "2.0.0")
	w.VisitRequire("com.example.util", 0, "1.5.0")

	ordered := w.orderedRequires()
	if len(ordered) != 3 {
		t.Fatalf("orderedRequires() returned %d entries, want 3", len(ordered))
	}
	if ordered[0].module != "com.example.util" || ordered[1].module != "com.example.lib" {
		t.Errorf("semver-shaped requires not sorted ascending: got order %s, %s, %s",
			ordered[0].module, ordered[1].module, ordered[2].module)
	}
}

func TestModuleWriterOrderedRequiresFallsBackToLexicalOrder(t *testing.T) {
	st := NewSymbolTable("module-info")
	w := newModuleWriter(st, "com.example.app", 0, "")

	w.VisitRequire("zeta", 0, "not-a-semver")
	w.VisitRequire("alpha", 0, "also-not-semver")

	ordered := w.orderedRequires()
	if ordered[0].module != "alpha" || ordered[1].module != "zeta" {
		t.Errorf("non-semver requires not sorted lexically: got %s, %s", ordered[0].module, ordered[1].module)
	}
}

func TestModuleWriterFinishProducesWellFormedAttribute(t *testing.T) {
	st := NewSymbolTable("module-info")
	w := newModuleWriter(st, "com.example.app", 0, "1.0")
	w.VisitRequire("java.base", AccMandated, "")
	w.VisitExport("com/example/app/api", 0)
	w.VisitUse("com/example/app/spi/Service")
	w.VisitProvide("com/example/app/spi/Service", "com/example/app/impl/ServiceImpl")

	body, err := w.finish()
	if err != nil {
		t.Fatalf("finish(): %v", err)
	}
	if len(body) == 0 {
		t.Fatalf("finish() produced an empty attribute body")
	}

	// module_name_index, module_flags, module_version_index, requires_count(=1)
	if body[0] != 0 || body[6] != 0 || body[7] != 1 {
		t.Errorf("unexpected header/requires_count bytes: % x", body[:8])
	}
}
