// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package classfile

// Class, field and method access flags (JVMS §4.1, §4.5, §4.6).
const (
	AccPublic       = 0x0001
	AccPrivate      = 0x0002
	AccProtected    = 0x0004
	AccStatic       = 0x0008
	AccFinal        = 0x0010
	AccSuper        = 0x0020
	AccSynchronized = 0x0020
	AccOpen         = 0x0020
	AccTransitive   = 0x0020
	AccVolatile     = 0x0040
	AccBridge       = 0x0040
	AccStaticPhase  = 0x0040
	AccVarargs      = 0x0080
	AccTransient    = 0x0080
	AccNative       = 0x0100
	AccInterface    = 0x0200
	AccAbstract     = 0x0400
	AccStrict       = 0x0800
	AccSynthetic    = 0x1000
	AccAnnotation   = 0x2000
	AccEnum         = 0x4000
	AccMandated     = 0x8000
	AccModule       = 0x8000
	AccRecord       = 0x10000
	AccDeprecated   = 0x20000 // ASM-internal: materialized as the Deprecated attribute, not a real flag bit.
)

// Class file version numbers (major version, JVMS §4.1 Table 4.1-A).
const (
	V1_1 = 3<<16 | 45
	V1_2 = 0<<16 | 46
	V1_3 = 0<<16 | 47
	V1_4 = 0<<16 | 48
	V5   = 0<<16 | 49
	V6   = 0<<16 | 50
	V7   = 0<<16 | 51
	V8   = 0<<16 | 52
	V9   = 0<<16 | 53
	V10  = 0<<16 | 54
	V11  = 0<<16 | 55
	V17  = 0<<16 | 61
	V21  = 0<<16 | 65
)

// Constant pool tags (JVMS §4.4 Table 4.4-C), plus ASM-internal tags used
// only inside the in-memory symbol table (type table entries never appear
// in a serialized constant pool).
const (
	TagUtf8               = 1
	TagInteger             = 3
	TagFloat               = 4
	TagLong                = 5
	TagDouble              = 6
	TagClass               = 7
	TagString              = 8
	TagFieldref            = 9
	TagMethodref           = 10
	TagInterfaceMethodref  = 11
	TagNameAndType         = 12
	TagMethodHandle        = 15
	TagMethodType          = 16
	TagDynamic             = 17
	TagInvokeDynamic       = 18
	TagModule              = 19
	TagPackage             = 20

	// Internal-only tags, never written to the constant pool directly.
	TagBootstrapMethod = 64
	TagType            = 65
	TagUninitializedType = 66
	TagMergedType      = 67
)

// Reference kinds for CONSTANT_MethodHandle_info (JVMS §5.4.3.5 Table 5.4.3.5-A).
const (
	HGetField         = 1
	HGetStatic        = 2
	HPutField         = 3
	HPutStatic        = 4
	HInvokeVirtual    = 5
	HInvokeStatic     = 6
	HInvokeSpecial    = 7
	HNewInvokeSpecial = 8
	HInvokeInterface  = 9
)

// Stack map frame types (JVMS §4.7.4).
const (
	FrameNew    = -1 // ASM-internal: marks an expanded F_NEW frame before compression.
	FrameSame   = 0
	FrameSame1  = 64
	FrameReserved = 128
	FrameChop   = 248
	FrameSameFrameExtended = 251
	FrameAppend = 252
	FrameFull   = 255
)

// Verification type info tags (JVMS §4.7.4), also used as the KIND=constant
// VALUE field of an abstract type (see frame.go).
const (
	ItemTop               = 0
	ItemInteger           = 1
	ItemFloat             = 2
	ItemDouble            = 3
	ItemLong              = 4
	ItemNull              = 5
	ItemUninitializedThis = 6
	ItemObject            = 7
	ItemUninitialized     = 8
	// ASM-internal small-int item kinds, used only to tag array element
	// types (never themselves written to a frame).
	ItemBoolean = 9
	ItemByte    = 10
	ItemChar    = 11
	ItemShort   = 12
)

// Opcodes (JVMS §6.5), in numeric order.
const (
	OpNop             = 0
	OpAconstNull      = 1
	OpIconstM1        = 2
	OpIconst0         = 3
	OpIconst1         = 4
	OpIconst2         = 5
	OpIconst3         = 6
	OpIconst4         = 7
	OpIconst5         = 8
	OpLconst0         = 9
	OpLconst1         = 10
	OpFconst0         = 11
	OpFconst1         = 12
	OpFconst2         = 13
	OpDconst0         = 14
	OpDconst1         = 15
	OpBipush          = 16
	OpSipush          = 17
	OpLdc             = 18
	OpLdcW            = 19
	OpLdc2W           = 20
	OpIload           = 21
	OpLload           = 22
	OpFload           = 23
	OpDload           = 24
	OpAload           = 25
	OpIload0          = 26
	OpIaload          = 46
	OpLaload          = 47
	OpFaload          = 48
	OpDaload          = 49
	OpAaload          = 50
	OpBaload          = 51
	OpCaload          = 52
	OpSaload          = 53
	OpIstore          = 54
	OpLstore          = 55
	OpFstore          = 56
	OpDstore          = 57
	OpAstore          = 58
	OpIstore0         = 59
	OpIastore         = 79
	OpLastore         = 80
	OpFastore         = 81
	OpDastore         = 82
	OpAastore         = 83
	OpBastore         = 84
	OpCastore         = 85
	OpSastore         = 86
	OpPop             = 87
	OpPop2            = 88
	OpDup             = 89
	OpDupX1           = 90
	OpDupX2           = 91
	OpDup2            = 92
	OpDup2X1          = 93
	OpDup2X2          = 94
	OpSwap            = 95
	OpIadd            = 96
	OpLadd            = 97
	OpFadd            = 98
	OpDadd            = 99
	OpIsub            = 100
	OpLsub            = 101
	OpFsub            = 102
	OpDsub            = 103
	OpImul            = 104
	OpLmul            = 105
	OpFmul            = 106
	OpDmul            = 107
	OpIdiv            = 108
	OpLdiv            = 109
	OpFdiv            = 110
	OpDdiv            = 111
	OpIrem            = 112
	OpLrem            = 113
	OpFrem            = 114
	OpDrem            = 115
	OpIneg            = 116
	OpLneg            = 117
	OpFneg            = 118
	OpDneg            = 119
	OpIshl            = 120
	OpLshl            = 121
	OpIshr            = 122
	OpLshr            = 123
	OpIushr           = 124
	OpLushr           = 125
	OpIand            = 126
	OpLand            = 127
	OpIor             = 128
	OpLor             = 129
	OpIxor            = 130
	OpLxor            = 131
	OpIinc            = 132
	OpI2l             = 133
	OpI2f             = 134
	OpI2d             = 135
	OpL2i             = 136
	OpL2f             = 137
	OpL2d             = 138
	OpF2i             = 139
	OpF2l             = 140
	OpF2d             = 141
	OpD2i             = 142
	OpD2l             = 143
	OpD2f             = 144
	OpI2b             = 145
	OpI2c             = 146
	OpI2s             = 147
	OpLcmp            = 148
	OpFcmpl           = 149
	OpFcmpg           = 150
	OpDcmpl           = 151
	OpDcmpg           = 152
	OpIfeq            = 153
	OpIfne            = 154
	OpIflt            = 155
	OpIfge            = 156
	OpIfgt            = 157
	OpIfle            = 158
	OpIfIcmpeq        = 159
	OpIfIcmpne        = 160
	OpIfIcmplt        = 161
	OpIfIcmpge        = 162
	OpIfIcmpgt        = 163
	OpIfIcmple        = 164
	OpIfAcmpeq        = 165
	OpIfAcmpne        = 166
	OpGoto            = 167
	OpJsr             = 168
	OpRet             = 169
	OpTableswitch     = 170
	OpLookupswitch    = 171
	OpIreturn         = 172
	OpLreturn         = 173
	OpFreturn         = 174
	OpDreturn         = 175
	OpAreturn         = 176
	OpReturn          = 177
	OpGetstatic       = 178
	OpPutstatic       = 179
	OpGetfield        = 180
	OpPutfield        = 181
	OpInvokevirtual   = 182
	OpInvokespecial   = 183
	OpInvokestatic    = 184
	OpInvokeinterface = 185
	OpInvokedynamic   = 186
	OpNew             = 187
	OpNewarray        = 188
	OpAnewarray       = 189
	OpArraylength     = 190
	OpAthrow          = 191
	OpCheckcast       = 192
	OpInstanceof      = 193
	OpMonitorenter    = 194
	OpMonitorexit     = 195
	OpWide            = 196
	OpMultianewarray  = 197
	OpIfnull          = 198
	OpIfnonnull       = 199
	OpGotoW           = 200
	OpJsrW            = 201
)

// ASM-internal synthetic opcode numbers. They never appear in a finished
// class file. The writer does not emit them: rewriteOverflowingJumps turns an
// overflowing branch straight into its wide form (spec.md §4.3 "Resolve").
const (
	// AsmIfeqW .. AsmIfAcmpneW mirror IFEQ..IF_ACMPNE but are understood to
	// carry an unsigned 16-bit "GOTO_W-follows" offset rather than the real
	// signed branch offset, used transiently while a reverse-condition wide
	// rewrite is pending.
	AsmIfeqW  = 202
	AsmIfneW  = 203
	AsmIfltW  = 204
	AsmIfgeW  = 205
	AsmIfgtW  = 206
	AsmIfleW  = 207
	AsmIfIcmpeqW = 208
	AsmIfIcmpneW = 209
	AsmIfIcmpltW = 210
	AsmIfIcmpgeW = 211
	AsmIfIcmpgtW = 212
	AsmIfIcmpleW = 213
	AsmIfAcmpeqW = 214
	AsmIfAcmpneW = 215
	AsmJsrW      = 216
	AsmGotoW     = 217
	AsmIfnullW   = 218
	AsmIfnonnullW = 219
)

// NewArray type codes for the `newarray` instruction operand (JVMS §6.5.newarray).
const (
	TBoolean = 4
	TChar    = 5
	TFloat   = 6
	TDouble  = 7
	TByte    = 8
	TShort   = 9
	TInt     = 10
	TLong    = 11
)

// Attribute name strings (JVMS §4.7), used both by the reader to dispatch
// and by the writer to label what it emits.
const (
	AttrConstantValue                     = "ConstantValue"
	AttrCode                              = "Code"
	AttrStackMapTable                     = "StackMapTable"
	AttrExceptions                        = "Exceptions"
	AttrInnerClasses                      = "InnerClasses"
	AttrEnclosingMethod                   = "EnclosingMethod"
	AttrSynthetic                         = "Synthetic"
	AttrSignature                         = "Signature"
	AttrSourceFile                        = "SourceFile"
	AttrSourceDebugExtension              = "SourceDebugExtension"
	AttrLineNumberTable                   = "LineNumberTable"
	AttrLocalVariableTable                = "LocalVariableTable"
	AttrLocalVariableTypeTable            = "LocalVariableTypeTable"
	AttrDeprecated                        = "Deprecated"
	AttrRuntimeVisibleAnnotations         = "RuntimeVisibleAnnotations"
	AttrRuntimeInvisibleAnnotations       = "RuntimeInvisibleAnnotations"
	AttrRuntimeVisibleParameterAnnotations   = "RuntimeVisibleParameterAnnotations"
	AttrRuntimeInvisibleParameterAnnotations = "RuntimeInvisibleParameterAnnotations"
	AttrRuntimeVisibleTypeAnnotations     = "RuntimeVisibleTypeAnnotations"
	AttrRuntimeInvisibleTypeAnnotations   = "RuntimeInvisibleTypeAnnotations"
	AttrAnnotationDefault                 = "AnnotationDefault"
	AttrBootstrapMethods                  = "BootstrapMethods"
	AttrMethodParameters                  = "MethodParameters"
	AttrModule                            = "Module"
	AttrModulePackages                    = "ModulePackages"
	AttrModuleMainClass                   = "ModuleMainClass"
	AttrNestHost                          = "NestHost"
	AttrNestMembers                       = "NestMembers"
	AttrRecord                            = "Record"
	AttrPermittedSubclasses               = "PermittedSubclasses"
)
