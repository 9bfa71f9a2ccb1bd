// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

// typeForDescriptor maps a field/array-element descriptor to the abstract
// type pushed onto the stack or stored in a local when an instruction
// operates on it (JVMS §2.11.1's "computational type" collapsing: boolean/
// byte/char/short all behave as int once loaded).
func typeForDescriptor(descriptor string, table *SymbolTable) AbstractType {
	dims := Dimensions(descriptor)
	elem := descriptor[dims:]
	if dims == 0 {
		switch elem {
		case "Z", "B", "C", "S", "I":
			return AInteger
		case "F":
			return AFloat
		case "J":
			return ALong
		case "D":
			return ADouble
		case "V":
			return ATop
		default:
			sym := table.AddType(InternalNameFromObjectDescriptor(elem))
			return ReferenceType(0, sym.Index)
		}
	}
	switch elem {
	case "Z", "B", "C", "S", "I":
		return ReferenceType(dims, objectPrimitiveArrayIndex(table, elem))
	case "F":
		return ReferenceType(dims, objectPrimitiveArrayIndex(table, elem))
	case "J":
		return ReferenceType(dims, objectPrimitiveArrayIndex(table, elem))
	case "D":
		return ReferenceType(dims, objectPrimitiveArrayIndex(table, elem))
	default:
		sym := table.AddType(InternalNameFromObjectDescriptor(elem))
		return ReferenceType(dims, sym.Index)
	}
}

// objectPrimitiveArrayIndex interns a synthetic type-table entry naming a
// primitive element type (e.g. "I"), so a reference to int[][] can be
// represented the same way as a reference to an object array: dimension
// plus a type-table index.
func objectPrimitiveArrayIndex(table *SymbolTable, elem string) int {
	return table.AddType(elem).Index
}

// isWideType reports whether t is a long or double, which occupy two slots.
func isWideType(t AbstractType) bool {
	return t == ALong || t == ADouble
}

// Bases for the xload_N/xstore_N opcode families (JVMS §6.5), each
// spanning 4 consecutive opcodes for local indices 0..3.
const (
	opLload0  = OpIload0 + 4
	opFload0  = opLload0 + 4
	opDload0  = opFload0 + 4
	opAload0  = opDload0 + 4
	opLstore0 = OpIstore0 + 4
	opFstore0 = opLstore0 + 4
	opDstore0 = opFstore0 + 4
	opAstore0 = opDstore0 + 4
)

// executeLoad0 handles the 20 opcodes iload_0..aload_3.
func (f *Frame) executeLoad0(opcode int) {
	switch {
	case opcode <= OpIload0+3:
		f.push(f.getLocal(opcode - OpIload0))
	case opcode <= opLload0+3:
		f.pushLong(f.getLocal(opcode - opLload0))
	case opcode <= opFload0+3:
		f.push(f.getLocal(opcode - opFload0))
	case opcode <= opDload0+3:
		f.pushLong(f.getLocal(opcode - opDload0))
	default:
		f.push(f.getLocal(opcode - opAload0))
	}
}

// executeStore0 handles the 20 opcodes istore_0..astore_3.
func (f *Frame) executeStore0(opcode int) {
	switch {
	case opcode <= OpIstore0+3:
		idx := opcode - OpIstore0
		f.invalidateNeighbor(idx)
		f.setLocal(idx, f.pop())
	case opcode <= opLstore0+3:
		idx := opcode - opLstore0
		f.invalidateNeighbor(idx)
		v := f.popLong()
		f.setLocal(idx, v)
		f.setLocal(idx+1, ATop)
	case opcode <= opFstore0+3:
		idx := opcode - opFstore0
		f.invalidateNeighbor(idx)
		f.setLocal(idx, f.pop())
	case opcode <= opDstore0+3:
		idx := opcode - opDstore0
		f.invalidateNeighbor(idx)
		v := f.popLong()
		f.setLocal(idx, v)
		f.setLocal(idx+1, ATop)
	default:
		idx := opcode - opAstore0
		f.invalidateNeighbor(idx)
		f.setLocal(idx, f.pop())
	}
}

// Execute updates this block's output locals/stack for one instruction.
// arg is the opcode's int operand where relevant (bipush/sipush value,
// iinc/iload/istore var index, multianewarray dimension count, and so on);
// owner/name/descriptor carry field/method/type operands; it mirrors
// spec.md §4.4 "Phase 1: per-instruction output-frame construction".
func (f *Frame) Execute(opcode, arg int, owner, name, descriptor string, instructionOffset int, table *SymbolTable) {
	if opcode >= OpIload0 && opcode <= opAload0+3 {
		f.executeLoad0(opcode)
		return
	}
	if opcode >= OpIstore0 && opcode <= opAstore0+3 {
		f.executeStore0(opcode)
		return
	}

	switch opcode {
	case OpNop:
	case OpAconstNull:
		f.push(ANull)
	case OpIconstM1, OpIconst0, OpIconst1, OpIconst2, OpIconst3, OpIconst4, OpIconst5, OpBipush, OpSipush:
		f.push(AInteger)
	case OpLconst0, OpLconst1:
		f.pushLong(ALong)
	case OpFconst0, OpFconst1, OpFconst2:
		f.push(AFloat)
	case OpDconst0, OpDconst1:
		f.pushLong(ADouble)
	case OpLdc, OpLdcW:
		f.executeLdc(descriptor, table)
	case OpLdc2W:
		f.pushLong(typeForDescriptor(descriptor, table))

	case OpIload, OpFload, OpAload:
		f.push(f.getLocal(arg))
	case OpLload, OpDload:
		f.pushLong(f.getLocal(arg))
	case OpIstore, OpFstore, OpAstore:
		f.invalidateNeighbor(arg)
		f.setLocal(arg, f.pop())
	case OpLstore, OpDstore:
		f.invalidateNeighbor(arg)
		v := f.popLong()
		f.setLocal(arg, v)
		f.setLocal(arg+1, ATop)

	case OpIaload:
		f.pop()
		f.pop()
		f.push(AInteger)
	case OpFaload:
		f.pop()
		f.pop()
		f.push(AFloat)
	case OpAaload:
		f.pop()
		arr := f.pop()
		f.push(arrayElementType(arr))
	case OpBaload, OpCaload, OpSaload:
		f.pop()
		f.pop()
		f.push(AInteger)
	case OpLaload:
		f.pop()
		f.pop()
		f.pushLong(ALong)
	case OpDaload:
		f.pop()
		f.pop()
		f.pushLong(ADouble)

	case OpIastore, OpFastore, OpAastore, OpBastore, OpCastore, OpSastore:
		f.pop()
		f.pop()
		f.pop()
	case OpLastore, OpDastore:
		f.popLong()
		f.pop()
		f.pop()

	case OpPop:
		f.pop()
	case OpPop2:
		f.pop()
		f.pop()
	case OpDup:
		t := f.pop()
		f.push(t)
		f.push(t)
	case OpDupX1:
		t1 := f.pop()
		t2 := f.pop()
		f.push(t1)
		f.push(t2)
		f.push(t1)
	case OpDupX2:
		t1 := f.pop()
		t2 := f.pop()
		t3 := f.pop()
		f.push(t1)
		f.push(t3)
		f.push(t2)
		f.push(t1)
	case OpDup2:
		t1 := f.pop()
		t2 := f.pop()
		f.push(t2)
		f.push(t1)
		f.push(t2)
		f.push(t1)
	case OpDup2X1:
		t1 := f.pop()
		t2 := f.pop()
		t3 := f.pop()
		f.push(t2)
		f.push(t1)
		f.push(t3)
		f.push(t2)
		f.push(t1)
	case OpDup2X2:
		t1 := f.pop()
		t2 := f.pop()
		t3 := f.pop()
		t4 := f.pop()
		f.push(t2)
		f.push(t1)
		f.push(t4)
		f.push(t3)
		f.push(t2)
		f.push(t1)
	case OpSwap:
		t1 := f.pop()
		t2 := f.pop()
		f.push(t1)
		f.push(t2)

	case OpIadd, OpIsub, OpImul, OpIdiv, OpIrem, OpIshl, OpIshr, OpIushr, OpIand, OpIor, OpIxor:
		f.pop()
		f.pop()
		f.push(AInteger)
	case OpFadd, OpFsub, OpFmul, OpFdiv, OpFrem:
		f.pop()
		f.pop()
		f.push(AFloat)
	case OpLadd, OpLsub, OpLmul, OpLdiv, OpLrem, OpLand, OpLor, OpLxor:
		f.popLong()
		f.popLong()
		f.pushLong(ALong)
	case OpLshl, OpLshr, OpLushr:
		f.pop()
		f.popLong()
		f.pushLong(ALong)
	case OpDadd, OpDsub, OpDmul, OpDdiv, OpDrem:
		f.popLong()
		f.popLong()
		f.pushLong(ADouble)
	case OpIneg, OpFneg:
	case OpLneg:
		v := f.popLong()
		f.pushLong(v)
	case OpDneg:
		v := f.popLong()
		f.pushLong(v)
	case OpIinc:

	case OpI2l:
		f.pop()
		f.pushLong(ALong)
	case OpI2f:
		f.pop()
		f.push(AFloat)
	case OpI2d:
		f.pop()
		f.pushLong(ADouble)
	case OpL2i:
		f.popLong()
		f.push(AInteger)
	case OpL2f:
		f.popLong()
		f.push(AFloat)
	case OpL2d:
		f.popLong()
		f.pushLong(ADouble)
	case OpF2i:
		f.pop()
		f.push(AInteger)
	case OpF2l:
		f.pop()
		f.pushLong(ALong)
	case OpF2d:
		f.pop()
		f.pushLong(ADouble)
	case OpD2i:
		f.popLong()
		f.push(AInteger)
	case OpD2l:
		f.popLong()
		f.pushLong(ALong)
	case OpD2f:
		f.popLong()
		f.push(AFloat)
	case OpI2b, OpI2c, OpI2s:
		f.pop()
		f.push(AInteger)

	case OpLcmp:
		f.popLong()
		f.popLong()
		f.push(AInteger)
	case OpFcmpl, OpFcmpg:
		f.pop()
		f.pop()
		f.push(AInteger)
	case OpDcmpl, OpDcmpg:
		f.popLong()
		f.popLong()
		f.push(AInteger)

	case OpIfeq, OpIfne, OpIflt, OpIfge, OpIfgt, OpIfle, OpIfnull, OpIfnonnull:
		f.pop()
	case OpIfIcmpeq, OpIfIcmpne, OpIfIcmplt, OpIfIcmpge, OpIfIcmpgt, OpIfIcmple,
		OpIfAcmpeq, OpIfAcmpne:
		f.pop()
		f.pop()
	case OpGoto, OpJsr, OpGotoW, OpJsrW:
	case OpRet:
	case OpTableswitch, OpLookupswitch:
		f.pop()
	case OpIreturn, OpFreturn, OpAreturn:
		f.pop()
	case OpLreturn, OpDreturn:
		f.popLong()
	case OpReturn:

	case OpGetstatic:
		f.push(typeForDescriptor(descriptor, table))
	case OpPutstatic:
		t := typeForDescriptor(descriptor, table)
		if isWideType(t) {
			f.popLong()
		} else {
			f.pop()
		}
	case OpGetfield:
		f.pop()
		f.push(typeForDescriptor(descriptor, table))
	case OpPutfield:
		t := typeForDescriptor(descriptor, table)
		if isWideType(t) {
			f.popLong()
		} else {
			f.pop()
		}
		f.pop()

	case OpInvokevirtual, OpInvokespecial, OpInvokeinterface:
		f.executeInvoke(opcode, owner, name, descriptor, table)
	case OpInvokestatic:
		f.executeInvokeStatic(descriptor, table)
	case OpInvokedynamic:
		f.executeInvokeDynamic(descriptor, table)

	case OpNew:
		sym := table.AddUninitializedType(owner, instructionOffset)
		f.push(UninitializedType(sym.Index))
	case OpNewarray:
		f.pop()
		f.push(newarrayType(arg, table))
	case OpAnewarray:
		f.pop()
		sym := table.AddType(owner)
		f.push(ReferenceType(1, sym.Index))
	case OpArraylength:
		f.pop()
		f.push(AInteger)
	case OpAthrow:
		f.pop()
	case OpCheckcast:
		f.pop()
		f.push(typeForDescriptor(ObjectDescriptorFromInternalName(owner), table))
	case OpInstanceof:
		f.pop()
		f.push(AInteger)
	case OpMonitorenter, OpMonitorexit:
		f.pop()
	case OpMultianewarray:
		for i := 0; i < arg; i++ {
			f.pop()
		}
		f.push(typeForDescriptor(descriptor, table))
	}
}

func (f *Frame) executeLdc(descriptor string, table *SymbolTable) {
	t := typeForDescriptor(descriptor, table)
	if isWideType(t) {
		f.pushLong(t)
	} else {
		f.push(t)
	}
}

func (f *Frame) executeInvoke(opcode int, owner, name, descriptor string, table *SymbolTable) {
	argTypes, returnOffset := ArgumentTypesAndReturnOffset(descriptor)
	for i := len(argTypes) - 1; i >= 0; i-- {
		if SlotSize(argTypes[i]) == 2 {
			f.popLong()
		} else {
			f.pop()
		}
	}
	receiver := f.pop()
	if opcode == OpInvokespecial && name == "<init>" {
		ownerSym := table.AddType(owner)
		f.initializeType(receiver, ReferenceType(0, ownerSym.Index))
	}
	ret := descriptor[returnOffset:]
	if ret == "V" {
		return
	}
	rt := typeForDescriptor(ret, table)
	if isWideType(rt) {
		f.pushLong(rt)
	} else {
		f.push(rt)
	}
}

func (f *Frame) executeInvokeStatic(descriptor string, table *SymbolTable) {
	argTypes, returnOffset := ArgumentTypesAndReturnOffset(descriptor)
	for i := len(argTypes) - 1; i >= 0; i-- {
		if SlotSize(argTypes[i]) == 2 {
			f.popLong()
		} else {
			f.pop()
		}
	}
	ret := descriptor[returnOffset:]
	if ret == "V" {
		return
	}
	rt := typeForDescriptor(ret, table)
	if isWideType(rt) {
		f.pushLong(rt)
	} else {
		f.push(rt)
	}
}

func (f *Frame) executeInvokeDynamic(descriptor string, table *SymbolTable) {
	f.executeInvokeStatic(descriptor, table)
}

func arrayElementType(arr AbstractType) AbstractType {
	if arr.Kind() != KindReference || arr.Dim() == 0 {
		return ATop
	}
	return arr.withDim(-1)
}

func newarrayType(code int, table *SymbolTable) AbstractType {
	switch code {
	case TBoolean:
		return ReferenceType(1, table.AddType("Z").Index)
	case TChar:
		return ReferenceType(1, table.AddType("C").Index)
	case TFloat:
		return ReferenceType(1, table.AddType("F").Index)
	case TDouble:
		return ReferenceType(1, table.AddType("D").Index)
	case TByte:
		return ReferenceType(1, table.AddType("B").Index)
	case TShort:
		return ReferenceType(1, table.AddType("S").Index)
	case TInt:
		return ReferenceType(1, table.AddType("I").Index)
	case TLong:
		return ReferenceType(1, table.AddType("J").Index)
	default:
		return ATop
	}
}
