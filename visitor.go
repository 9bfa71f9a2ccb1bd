// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

// ClassVisitor receives events describing the content of a class, in the
// order mandated by JVMS §4.1: VisitHeader, then at most one VisitSource,
// at most one VisitModule, at most one VisitNestHost, any number of
// VisitOuterClass/VisitAnnotation/VisitAttribute calls, then any number of
// VisitInnerClass/VisitRecordComponent/VisitField/VisitMethod calls, and
// finally exactly one VisitEnd.
//
// A ClassVisitor that does not care about a family of events embeds
// BaseClassVisitor and only overrides the methods it needs.
type ClassVisitor interface {
	VisitHeader(version, access int, name, signature, superName string, interfaces []string)
	VisitSource(source, debug string)
	VisitModule(name string, access int, version string) ModuleVisitor
	VisitNestHost(nestHost string)
	VisitOuterClass(owner, name, descriptor string)
	VisitAnnotation(descriptor string, visible bool) AnnotationVisitor
	VisitTypeAnnotation(typeRef int, typePath string, descriptor string, visible bool) AnnotationVisitor
	VisitAttribute(attr Attribute)
	VisitNestMember(nestMember string)
	VisitPermittedSubclass(permittedSubclass string)
	VisitInnerClass(name, outerName, innerName string, access int)
	VisitRecordComponent(name, descriptor, signature string) RecordComponentVisitor
	VisitField(access int, name, descriptor, signature string, value any) FieldVisitor
	VisitMethod(access int, name, descriptor, signature string, exceptions []string) MethodVisitor
	VisitEnd()
}

// FieldVisitor receives events describing the annotations and attributes of
// a single field; VisitEnd is always called last.
type FieldVisitor interface {
	VisitAnnotation(descriptor string, visible bool) AnnotationVisitor
	VisitTypeAnnotation(typeRef int, typePath string, descriptor string, visible bool) AnnotationVisitor
	VisitAttribute(attr Attribute)
	VisitEnd()
}

// RecordComponentVisitor receives events describing one component of a
// record class's Record attribute (JVMS §4.7.30).
type RecordComponentVisitor interface {
	VisitAnnotation(descriptor string, visible bool) AnnotationVisitor
	VisitTypeAnnotation(typeRef int, typePath string, descriptor string, visible bool) AnnotationVisitor
	VisitAttribute(attr Attribute)
	VisitEnd()
}

// ModuleVisitor receives events describing a Module attribute (JVMS
// §4.7.25): VisitMainClass at most once, then any number of
// VisitPackage/VisitRequire/VisitExport/VisitOpen/VisitUse/
// VisitProvide calls, then VisitEnd.
type ModuleVisitor interface {
	VisitMainClass(mainClass string)
	VisitPackage(packaze string)
	VisitRequire(module string, access int, version string)
	VisitExport(packaze string, access int, modules ...string)
	VisitOpen(packaze string, access int, modules ...string)
	VisitUse(service string)
	VisitProvide(service string, providers ...string)
	VisitEnd()
}

// AnnotationVisitor receives events describing the element-value pairs of
// one annotation (JVMS §4.7.16). Array and nested-annotation values recurse
// through VisitArray/VisitAnnotation; VisitEnd always comes last.
type AnnotationVisitor interface {
	Visit(name string, value any)
	VisitEnum(name, descriptor, value string)
	VisitAnnotation(name, descriptor string) AnnotationVisitor
	VisitArray(name string) AnnotationVisitor
	VisitEnd()
}

// MethodVisitor receives events describing a method's modifiers, parameter
// annotations, default annotation value, and -- for a non-abstract, non-
// native method -- its Code attribute, in the call order JVMS §4.7.3 and
// §4.9 require: VisitParameter* / VisitAnnotationDefault / VisitAnnotation*
// / VisitAttribute* first, then VisitCode, then the instruction-visiting
// methods interleaved with VisitLabel/VisitFrame/VisitLineNumber in
// bytecode order, then VisitTryCatchBlock*/VisitLocalVariable* describing
// ranges already visited, then VisitMaxs, then VisitEnd.
type MethodVisitor interface {
	VisitParameter(name string, access int)
	VisitAnnotationDefault() AnnotationVisitor
	VisitAnnotation(descriptor string, visible bool) AnnotationVisitor
	VisitTypeAnnotation(typeRef int, typePath string, descriptor string, visible bool) AnnotationVisitor
	VisitAnnotableParameterCount(parameterCount int, visible bool)
	VisitParameterAnnotation(parameter int, descriptor string, visible bool) AnnotationVisitor
	VisitAttribute(attr Attribute)
	VisitCode()
	VisitFrame(frameType int, numLocal int, local []any, numStack int, stack []any)

	VisitInsn(opcode int)
	VisitIntInsn(opcode, operand int)
	VisitVarInsn(opcode, varIndex int)
	VisitTypeInsn(opcode int, typeName string)
	VisitFieldInsn(opcode int, owner, name, descriptor string)
	VisitMethodInsn(opcode int, owner, name, descriptor string, isInterface bool)
	VisitInvokeDynamicInsn(name, descriptor string, bootstrapMethod Handle, bootstrapArguments ...any)
	VisitJumpInsn(opcode int, label *Label)
	VisitLabel(label *Label)
	VisitLdcInsn(value any)
	VisitIincInsn(varIndex, increment int)
	VisitTableSwitchInsn(min, max int, dflt *Label, labels ...*Label)
	VisitLookupSwitchInsn(dflt *Label, keys []int, labels []*Label)
	VisitMultiANewArrayInsn(descriptor string, numDimensions int)
	VisitInsnAnnotation(typeRef int, typePath string, descriptor string, visible bool) AnnotationVisitor

	VisitTryCatchBlock(start, end, handler *Label, catchType string)
	VisitTryCatchAnnotation(typeRef int, typePath string, descriptor string, visible bool) AnnotationVisitor
	VisitLocalVariable(name, descriptor, signature string, start, end *Label, index int)
	VisitLocalVariableAnnotation(typeRef int, typePath string, start, end []*Label, index []int, descriptor string, visible bool) AnnotationVisitor
	VisitLineNumber(line int, start *Label)
	VisitMaxs(maxStack, maxLocals int)
	VisitEnd()
}

// Attribute is a raw, not-specially-understood class/field/method/Code
// attribute, preserved verbatim on a reader->writer round trip the way an
// unrecognized attribute type must be (JVMS §4.7.1: "A Java Virtual Machine
// implementation is required to silently ignore any or all unrecognized
// attributes").
type Attribute struct {
	Name string
	Data []byte
}

// --- no-op base implementations, embedded by visitors that only care
// about a subset of events (spec.md §6 "delegating visitor chains") ---

// BaseClassVisitor is a ClassVisitor that forwards every call to Delegate
// when set, and otherwise does nothing, returning nil where a method returns
// a visitor so a chain recurses no further.
type BaseClassVisitor struct{ Delegate ClassVisitor }

func (v *BaseClassVisitor) VisitHeader(version, access int, name, signature, superName string, interfaces []string) {
	if v.Delegate != nil {
		v.Delegate.VisitHeader(version, access, name, signature, superName, interfaces)
	}
}
func (v *BaseClassVisitor) VisitSource(source, debug string) {
	if v.Delegate != nil {
		v.Delegate.VisitSource(source, debug)
	}
}
func (v *BaseClassVisitor) VisitModule(name string, access int, version string) ModuleVisitor {
	if v.Delegate != nil {
		return v.Delegate.VisitModule(name, access, version)
	}
	return nil
}
func (v *BaseClassVisitor) VisitNestHost(nestHost string) {
	if v.Delegate != nil {
		v.Delegate.VisitNestHost(nestHost)
	}
}
func (v *BaseClassVisitor) VisitOuterClass(owner, name, descriptor string) {
	if v.Delegate != nil {
		v.Delegate.VisitOuterClass(owner, name, descriptor)
	}
}
func (v *BaseClassVisitor) VisitAnnotation(descriptor string, visible bool) AnnotationVisitor {
	if v.Delegate != nil {
		return v.Delegate.VisitAnnotation(descriptor, visible)
	}
	return nil
}
func (v *BaseClassVisitor) VisitTypeAnnotation(typeRef int, typePath string, descriptor string, visible bool) AnnotationVisitor {
	if v.Delegate != nil {
		return v.Delegate.VisitTypeAnnotation(typeRef, typePath, descriptor, visible)
	}
	return nil
}
func (v *BaseClassVisitor) VisitAttribute(attr Attribute) {
	if v.Delegate != nil {
		v.Delegate.VisitAttribute(attr)
	}
}
func (v *BaseClassVisitor) VisitNestMember(nestMember string) {
	if v.Delegate != nil {
		v.Delegate.VisitNestMember(nestMember)
	}
}
func (v *BaseClassVisitor) VisitPermittedSubclass(permittedSubclass string) {
	if v.Delegate != nil {
		v.Delegate.VisitPermittedSubclass(permittedSubclass)
	}
}
func (v *BaseClassVisitor) VisitInnerClass(name, outerName, innerName string, access int) {
	if v.Delegate != nil {
		v.Delegate.VisitInnerClass(name, outerName, innerName, access)
	}
}
func (v *BaseClassVisitor) VisitRecordComponent(name, descriptor, signature string) RecordComponentVisitor {
	if v.Delegate != nil {
		return v.Delegate.VisitRecordComponent(name, descriptor, signature)
	}
	return nil
}
func (v *BaseClassVisitor) VisitField(access int, name, descriptor, signature string, value any) FieldVisitor {
	if v.Delegate != nil {
		return v.Delegate.VisitField(access, name, descriptor, signature, value)
	}
	return nil
}
func (v *BaseClassVisitor) VisitMethod(access int, name, descriptor, signature string, exceptions []string) MethodVisitor {
	if v.Delegate != nil {
		return v.Delegate.VisitMethod(access, name, descriptor, signature, exceptions)
	}
	return nil
}
func (v *BaseClassVisitor) VisitEnd() {
	if v.Delegate != nil {
		v.Delegate.VisitEnd()
	}
}

// BaseMethodVisitor is a MethodVisitor that forwards every call to Delegate
// when set, and otherwise does nothing. Embedding it lets a method
// transformer override only the handful of instructions it cares about.
type BaseMethodVisitor struct{ Delegate MethodVisitor }

func (v *BaseMethodVisitor) VisitParameter(name string, access int) {
	if v.Delegate != nil {
		v.Delegate.VisitParameter(name, access)
	}
}
func (v *BaseMethodVisitor) VisitAnnotationDefault() AnnotationVisitor {
	if v.Delegate != nil {
		return v.Delegate.VisitAnnotationDefault()
	}
	return nil
}
func (v *BaseMethodVisitor) VisitAnnotation(descriptor string, visible bool) AnnotationVisitor {
	if v.Delegate != nil {
		return v.Delegate.VisitAnnotation(descriptor, visible)
	}
	return nil
}
func (v *BaseMethodVisitor) VisitTypeAnnotation(typeRef int, typePath string, descriptor string, visible bool) AnnotationVisitor {
	if v.Delegate != nil {
		return v.Delegate.VisitTypeAnnotation(typeRef, typePath, descriptor, visible)
	}
	return nil
}
func (v *BaseMethodVisitor) VisitAnnotableParameterCount(parameterCount int, visible bool) {
	if v.Delegate != nil {
		v.Delegate.VisitAnnotableParameterCount(parameterCount, visible)
	}
}
func (v *BaseMethodVisitor) VisitParameterAnnotation(parameter int, descriptor string, visible bool) AnnotationVisitor {
	if v.Delegate != nil {
		return v.Delegate.VisitParameterAnnotation(parameter, descriptor, visible)
	}
	return nil
}
func (v *BaseMethodVisitor) VisitAttribute(attr Attribute) {
	if v.Delegate != nil {
		v.Delegate.VisitAttribute(attr)
	}
}
func (v *BaseMethodVisitor) VisitCode() {
	if v.Delegate != nil {
		v.Delegate.VisitCode()
	}
}
func (v *BaseMethodVisitor) VisitFrame(frameType int, numLocal int, local []any, numStack int, stack []any) {
	if v.Delegate != nil {
		v.Delegate.VisitFrame(frameType, numLocal, local, numStack, stack)
	}
}
func (v *BaseMethodVisitor) VisitInsn(opcode int) {
	if v.Delegate != nil {
		v.Delegate.VisitInsn(opcode)
	}
}
func (v *BaseMethodVisitor) VisitIntInsn(opcode, operand int) {
	if v.Delegate != nil {
		v.Delegate.VisitIntInsn(opcode, operand)
	}
}
func (v *BaseMethodVisitor) VisitVarInsn(opcode, varIndex int) {
	if v.Delegate != nil {
		v.Delegate.VisitVarInsn(opcode, varIndex)
	}
}
func (v *BaseMethodVisitor) VisitTypeInsn(opcode int, typeName string) {
	if v.Delegate != nil {
		v.Delegate.VisitTypeInsn(opcode, typeName)
	}
}
func (v *BaseMethodVisitor) VisitFieldInsn(opcode int, owner, name, descriptor string) {
	if v.Delegate != nil {
		v.Delegate.VisitFieldInsn(opcode, owner, name, descriptor)
	}
}
func (v *BaseMethodVisitor) VisitMethodInsn(opcode int, owner, name, descriptor string, isInterface bool) {
	if v.Delegate != nil {
		v.Delegate.VisitMethodInsn(opcode, owner, name, descriptor, isInterface)
	}
}
func (v *BaseMethodVisitor) VisitInvokeDynamicInsn(name, descriptor string, bootstrapMethod Handle, bootstrapArguments ...any) {
	if v.Delegate != nil {
		v.Delegate.VisitInvokeDynamicInsn(name, descriptor, bootstrapMethod, bootstrapArguments...)
	}
}
func (v *BaseMethodVisitor) VisitJumpInsn(opcode int, label *Label) {
	if v.Delegate != nil {
		v.Delegate.VisitJumpInsn(opcode, label)
	}
}
func (v *BaseMethodVisitor) VisitLabel(label *Label) {
	if v.Delegate != nil {
		v.Delegate.VisitLabel(label)
	}
}
func (v *BaseMethodVisitor) VisitLdcInsn(value any) {
	if v.Delegate != nil {
		v.Delegate.VisitLdcInsn(value)
	}
}
func (v *BaseMethodVisitor) VisitIincInsn(varIndex, increment int) {
	if v.Delegate != nil {
		v.Delegate.VisitIincInsn(varIndex, increment)
	}
}
func (v *BaseMethodVisitor) VisitTableSwitchInsn(min, max int, dflt *Label, labels ...*Label) {
	if v.Delegate != nil {
		v.Delegate.VisitTableSwitchInsn(min, max, dflt, labels...)
	}
}
func (v *BaseMethodVisitor) VisitLookupSwitchInsn(dflt *Label, keys []int, labels []*Label) {
	if v.Delegate != nil {
		v.Delegate.VisitLookupSwitchInsn(dflt, keys, labels)
	}
}
func (v *BaseMethodVisitor) VisitMultiANewArrayInsn(descriptor string, numDimensions int) {
	if v.Delegate != nil {
		v.Delegate.VisitMultiANewArrayInsn(descriptor, numDimensions)
	}
}
func (v *BaseMethodVisitor) VisitInsnAnnotation(typeRef int, typePath string, descriptor string, visible bool) AnnotationVisitor {
	if v.Delegate != nil {
		return v.Delegate.VisitInsnAnnotation(typeRef, typePath, descriptor, visible)
	}
	return nil
}
func (v *BaseMethodVisitor) VisitTryCatchBlock(start, end, handler *Label, catchType string) {
	if v.Delegate != nil {
		v.Delegate.VisitTryCatchBlock(start, end, handler, catchType)
	}
}
func (v *BaseMethodVisitor) VisitTryCatchAnnotation(typeRef int, typePath string, descriptor string, visible bool) AnnotationVisitor {
	if v.Delegate != nil {
		return v.Delegate.VisitTryCatchAnnotation(typeRef, typePath, descriptor, visible)
	}
	return nil
}
func (v *BaseMethodVisitor) VisitLocalVariable(name, descriptor, signature string, start, end *Label, index int) {
	if v.Delegate != nil {
		v.Delegate.VisitLocalVariable(name, descriptor, signature, start, end, index)
	}
}
func (v *BaseMethodVisitor) VisitLocalVariableAnnotation(typeRef int, typePath string, start, end []*Label, index []int, descriptor string, visible bool) AnnotationVisitor {
	if v.Delegate != nil {
		return v.Delegate.VisitLocalVariableAnnotation(typeRef, typePath, start, end, index, descriptor, visible)
	}
	return nil
}
func (v *BaseMethodVisitor) VisitLineNumber(line int, start *Label) {
	if v.Delegate != nil {
		v.Delegate.VisitLineNumber(line, start)
	}
}
func (v *BaseMethodVisitor) VisitMaxs(maxStack, maxLocals int) {
	if v.Delegate != nil {
		v.Delegate.VisitMaxs(maxStack, maxLocals)
	}
}
func (v *BaseMethodVisitor) VisitEnd() {
	if v.Delegate != nil {
		v.Delegate.VisitEnd()
	}
}
