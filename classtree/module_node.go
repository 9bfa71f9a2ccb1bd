// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classtree

import "github.com/go-classfile/classfile"

type ModuleRequireNode struct {
	Module  string
	Access  int
	Version string
}

type ModuleEdgeNode struct {
	Package string
	Access  int
	Modules []string
}

type ModuleProvideNode struct {
	Service   string
	Providers []string
}

// ModuleNode mirrors a Module attribute (JVMS §4.7.25).
type ModuleNode struct {
	Name      string
	Access    int
	Version   string
	MainClass string
	Packages  []string
	Requires  []ModuleRequireNode
	Exports   []ModuleEdgeNode
	Opens     []ModuleEdgeNode
	Uses      []string
	Provides  []ModuleProvideNode
}

func NewModuleNode(name string, access int, version string) *ModuleNode {
	return &ModuleNode{Name: name, Access: access, Version: version}
}

func (m *ModuleNode) VisitMainClass(mainClass string) { m.MainClass = mainClass }
func (m *ModuleNode) VisitPackage(packaze string)     { m.Packages = append(m.Packages, packaze) }

func (m *ModuleNode) VisitRequire(module string, access int, version string) {
	m.Requires = append(m.Requires, ModuleRequireNode{Module: module, Access: access, Version: version})
}

func (m *ModuleNode) VisitExport(packaze string, access int, modules ...string) {
	m.Exports = append(m.Exports, ModuleEdgeNode{Package: packaze, Access: access, Modules: modules})
}

func (m *ModuleNode) VisitOpen(packaze string, access int, modules ...string) {
	m.Opens = append(m.Opens, ModuleEdgeNode{Package: packaze, Access: access, Modules: modules})
}

func (m *ModuleNode) VisitUse(service string) { m.Uses = append(m.Uses, service) }

func (m *ModuleNode) VisitProvide(service string, providers ...string) {
	m.Provides = append(m.Provides, ModuleProvideNode{Service: service, Providers: providers})
}

func (m *ModuleNode) VisitEnd() {}

func (m *ModuleNode) Accept(cv classfile.ClassVisitor) {
	mv := cv.VisitModule(m.Name, m.Access, m.Version)
	if mv == nil {
		return
	}
	if m.MainClass != "" {
		mv.VisitMainClass(m.MainClass)
	}
	for _, p := range m.Packages {
		mv.VisitPackage(p)
	}
	for _, r := range m.Requires {
		mv.VisitRequire(r.Module, r.Access, r.Version)
	}
	for _, e := range m.Exports {
		mv.VisitExport(e.Package, e.Access, e.Modules...)
	}
	for _, o := range m.Opens {
		mv.VisitOpen(o.Package, o.Access, o.Modules...)
	}
	for _, u := range m.Uses {
		mv.VisitUse(u)
	}
	for _, pr := range m.Provides {
		mv.VisitProvide(pr.Service, pr.Providers...)
	}
	mv.VisitEnd()
}
