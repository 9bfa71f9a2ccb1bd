// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

import (
	"sort"
	"strings"

	"golang.org/x/mod/semver"
)

// moduleWriter implements ModuleVisitor, assembling a Module attribute
// (JVMS §4.7.25) for a `module-info.class`.
type moduleWriter struct {
	table *SymbolTable

	nameIndex int
	access    int
	versionIndex int

	mainClass string
	packages  []string

	requires []moduleRequire
	exports  []moduleExportOrOpen
	opens    []moduleExportOrOpen
	uses     []string
	provides []moduleProvide
}

type moduleRequire struct {
	module  string
	access  int
	version string
}

type moduleExportOrOpen struct {
	packaze string
	access  int
	modules []string
}

type moduleProvide struct {
	service   string
	providers []string
}

func newModuleWriter(table *SymbolTable, name string, access int, version string) *moduleWriter {
	nameSym, _ := table.AddModule(name)
	w := &moduleWriter{table: table, nameIndex: nameSym.Index, access: access}
	if version != "" {
		verSym, _ := table.AddUTF8(version)
		w.versionIndex = verSym.Index
	}
	return w
}

func (w *moduleWriter) VisitMainClass(mainClass string) { w.mainClass = mainClass }

func (w *moduleWriter) VisitPackage(packaze string) { w.packages = append(w.packages, packaze) }

func (w *moduleWriter) VisitRequire(module string, access int, version string) {
	w.requires = append(w.requires, moduleRequire{module, access, version})
}

func (w *moduleWriter) VisitExport(packaze string, access int, modules ...string) {
	w.exports = append(w.exports, moduleExportOrOpen{packaze, access, modules})
}

func (w *moduleWriter) VisitOpen(packaze string, access int, modules ...string) {
	w.opens = append(w.opens, moduleExportOrOpen{packaze, access, modules})
}

func (w *moduleWriter) VisitUse(service string) { w.uses = append(w.uses, service) }

func (w *moduleWriter) VisitProvide(service string, providers ...string) {
	w.provides = append(w.provides, moduleProvide{service, providers})
}

func (w *moduleWriter) VisitEnd() {}

// orderedRequires sorts requires by version using golang.org/x/mod/semver
// for entries whose version string is itself semver-shaped (module
// versions in JVMS are arbitrary strings, so most are not). finish writes
// the Module attribute's requires entries in this order; the JVM does not
// care about requires order.
func (w *moduleWriter) orderedRequires() []moduleRequire {
	ordered := make([]moduleRequire, len(w.requires))
	copy(ordered, w.requires)
	sort.SliceStable(ordered, func(i, j int) bool {
		vi, vj := normalizeSemver(ordered[i].version), normalizeSemver(ordered[j].version)
		if vi != "" && vj != "" {
			if cmp := semver.Compare(vi, vj); cmp != 0 {
				return cmp < 0
			}
		}
		return ordered[i].module < ordered[j].module
	})
	return ordered
}

// normalizeSemver prefixes a bare "1.2.3"-shaped version with "v" so
// semver.IsValid accepts it, returning "" when the string isn't
// semver-shaped at all.
func normalizeSemver(v string) string {
	if v == "" {
		return ""
	}
	candidate := v
	if !strings.HasPrefix(candidate, "v") {
		candidate = "v" + candidate
	}
	if !semver.IsValid(candidate) {
		return ""
	}
	return candidate
}

func (w *moduleWriter) finish() ([]byte, error) {
	out := NewByteVector(128)
	out.PutShort(w.nameIndex)
	out.PutShort(w.access)
	out.PutShort(w.versionIndex)

	requires := w.orderedRequires()
	out.PutShort(len(requires))
	for _, r := range requires {
		sym, err := w.table.AddModule(r.module)
		if err != nil {
			return nil, err
		}
		out.PutShort(sym.Index)
		out.PutShort(r.access)
		if r.version != "" {
			verSym, err := w.table.AddUTF8(r.version)
			if err != nil {
				return nil, err
			}
			out.PutShort(verSym.Index)
		} else {
			out.PutShort(0)
		}
	}

	out.PutShort(len(w.exports))
	for _, e := range w.exports {
		if err := w.writeExportOrOpen(out, e); err != nil {
			return nil, err
		}
	}

	out.PutShort(len(w.opens))
	for _, o := range w.opens {
		if err := w.writeExportOrOpen(out, o); err != nil {
			return nil, err
		}
	}

	out.PutShort(len(w.uses))
	for _, u := range w.uses {
		sym, err := w.table.AddClass(u)
		if err != nil {
			return nil, err
		}
		out.PutShort(sym.Index)
	}

	out.PutShort(len(w.provides))
	for _, p := range w.provides {
		serviceSym, err := w.table.AddClass(p.service)
		if err != nil {
			return nil, err
		}
		out.PutShort(serviceSym.Index)
		out.PutShort(len(p.providers))
		for _, prov := range p.providers {
			provSym, err := w.table.AddClass(prov)
			if err != nil {
				return nil, err
			}
			out.PutShort(provSym.Index)
		}
	}

	return out.Bytes(), nil
}

func (w *moduleWriter) writeExportOrOpen(out *ByteVector, e moduleExportOrOpen) error {
	sym, err := w.table.AddPackage(e.packaze)
	if err != nil {
		return err
	}
	out.PutShort(sym.Index)
	out.PutShort(e.access)
	out.PutShort(len(e.modules))
	for _, m := range e.modules {
		modSym, err := w.table.AddModule(m)
		if err != nil {
			return err
		}
		out.PutShort(modSym.Index)
	}
	return nil
}
