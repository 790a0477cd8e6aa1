// Package bytecode implements the append-only instruction stream of
// spec.md §6: opcode numbering, the three integer encodings (varuint,
// fixuint-N, reference), the fixed prologue, and the persisted
// constants/bytecode file format.
//
// Grounded on the teacher's pkg/bytecode (an Opcode byte enum plus an
// Instruction/Bytecode pair and a small binary ".sg" container format);
// generalized here from the teacher's fixed-width, Smalltalk-send opcode
// set to the full stack-machine opcode table of spec.md §4.6, and from the
// teacher's one-instruction-per-Instruction-struct in-memory
// representation to the byte-stream-with-explicit-encodings the spec
// requires (spec.md §6.1 "a single append-only byte array").
package bytecode

// Op is an instruction opcode: a byte in [1, 255] (spec.md §6.2). 0 is
// reserved as "not an opcode" so a zeroed buffer is detectably invalid.
type Op byte

const (
	_ Op = iota

	OpShallowArgumentRef
	OpShallowArgumentRef0
	OpShallowArgumentRef1
	OpShallowArgumentRef2
	OpShallowArgumentRef3
	OpShallowArgumentSet
	OpDeepArgumentRef
	OpDeepArgumentSet

	OpGlobalSymRef
	OpCheckedGlobalSymRef
	OpGlobalFunctionRef
	OpGlobalSymDef
	OpGlobalSymSet

	OpComputedSymRef
	OpComputedSymSet
	OpComputedSymDefine

	OpConstantSymRef

	OpPredefined0
	OpPredefined1
	OpPredefined2
	OpPredefinedN

	OpShortGoto
	OpLongGoto
	OpShortJumpFalse
	OpLongJumpFalse
	OpShortJumpTrue
	OpLongJumpTrue

	OpPushValue
	OpPopValue
	OpPopReg1
	OpPopReg2
	OpPopFunction
	OpPopExpr

	OpPreserveState
	OpRestoreState
	OpRestoreAllState

	OpCreateClosure

	OpFunctionInvoke
	OpFunctionGoto
	OpReturn
	OpFinish
	OpAbort

	OpAllocateFrame
	OpAllocateDottedFrame
	OpPopFrame
	OpExtendFrame
	OpUnlinkFrame
	OpPackFrame
	OpPopConsFrame

	OpArity1P
	OpArity2P
	OpArity3P
	OpArity4P
	OpArityEqP
	OpArityGeP

	OpConstant0
	OpConstant1
	OpConstant2
	OpConstant3
	OpConstant4
	OpConstantN
	OpFixnum
	OpNegFixnum
	OpCharacter
	OpUnicode

	OpPrimCall0
	OpPrimCall1
	OpPrimCall2
	OpPrimCall1Head
	OpPrimCall1Tail
	OpPrimCall1Pairp
	OpPrimCall1Nullp
	OpPrimCall1Not
	OpPrimCall2Add
	OpPrimCall2Subtract
	OpPrimCall2Multiply
	OpPrimCall2Eq
	OpPrimCall2Lt
	OpPrimCall2Gt
	OpPrimCall2Cons

	OpExpander
	OpInfixOperator
	OpPostfixOperator

	OpPushDynamic
	OpPopDynamic
	OpDynamicSymRef

	OpPushEnviron
	OpPopEnviron
	OpEnvironSymRef

	OpPushTrap
	OpPopTrap
	OpRestoreTrap

	OpNonContErr

	opCount
)

var opNames = [opCount]string{
	OpShallowArgumentRef:   "SHALLOW-ARGUMENT-REF",
	OpShallowArgumentRef0:  "SHALLOW-ARGUMENT-REF0",
	OpShallowArgumentRef1:  "SHALLOW-ARGUMENT-REF1",
	OpShallowArgumentRef2:  "SHALLOW-ARGUMENT-REF2",
	OpShallowArgumentRef3:  "SHALLOW-ARGUMENT-REF3",
	OpShallowArgumentSet:   "SHALLOW-ARGUMENT-SET",
	OpDeepArgumentRef:      "DEEP-ARGUMENT-REF",
	OpDeepArgumentSet:      "DEEP-ARGUMENT-SET",
	OpGlobalSymRef:         "GLOBAL-SYM-REF",
	OpCheckedGlobalSymRef:  "CHECKED-GLOBAL-SYM-REF",
	OpGlobalFunctionRef:    "GLOBAL-FUNCTION-REF",
	OpGlobalSymDef:         "GLOBAL-SYM-DEF",
	OpGlobalSymSet:         "GLOBAL-SYM-SET",
	OpComputedSymRef:       "COMPUTED-SYM-REF",
	OpComputedSymSet:       "COMPUTED-SYM-SET",
	OpComputedSymDefine:    "COMPUTED-SYM-DEFINE",
	OpConstantSymRef:       "CONSTANT-SYM-REF",
	OpPredefined0:          "PREDEFINED0",
	OpPredefined1:          "PREDEFINED1",
	OpPredefined2:          "PREDEFINED2",
	OpPredefinedN:          "PREDEFINEDN",
	OpShortGoto:            "SHORT-GOTO",
	OpLongGoto:             "LONG-GOTO",
	OpShortJumpFalse:       "SHORT-JUMP-FALSE",
	OpLongJumpFalse:        "LONG-JUMP-FALSE",
	OpShortJumpTrue:        "SHORT-JUMP-TRUE",
	OpLongJumpTrue:         "LONG-JUMP-TRUE",
	OpPushValue:            "PUSH-VALUE",
	OpPopValue:             "POP-VALUE",
	OpPopReg1:              "POP-REG1",
	OpPopReg2:              "POP-REG2",
	OpPopFunction:          "POP-FUNCTION",
	OpPopExpr:              "POP-EXPR",
	OpPreserveState:        "PRESERVE-STATE",
	OpRestoreState:         "RESTORE-STATE",
	OpRestoreAllState:      "RESTORE-ALL-STATE",
	OpCreateClosure:        "CREATE-CLOSURE",
	OpFunctionInvoke:       "FUNCTION-INVOKE",
	OpFunctionGoto:         "FUNCTION-GOTO",
	OpReturn:               "RETURN",
	OpFinish:               "FINISH",
	OpAbort:                "ABORT",
	OpAllocateFrame:        "ALLOCATE-FRAME",
	OpAllocateDottedFrame:  "ALLOCATE-DOTTED-FRAME",
	OpPopFrame:             "POP-FRAME",
	OpExtendFrame:          "EXTEND-FRAME",
	OpUnlinkFrame:          "UNLINK-FRAME",
	OpPackFrame:            "PACK-FRAME",
	OpPopConsFrame:         "POP-CONS-FRAME",
	OpArity1P:              "ARITY1P",
	OpArity2P:              "ARITY2P",
	OpArity3P:              "ARITY3P",
	OpArity4P:              "ARITY4P",
	OpArityEqP:             "ARITYEQP",
	OpArityGeP:             "ARITYGEP",
	OpConstant0:            "CONSTANT0",
	OpConstant1:            "CONSTANT1",
	OpConstant2:            "CONSTANT2",
	OpConstant3:            "CONSTANT3",
	OpConstant4:            "CONSTANT4",
	OpConstantN:            "CONSTANTN",
	OpFixnum:               "FIXNUM",
	OpNegFixnum:            "NEG-FIXNUM",
	OpCharacter:            "CHARACTER",
	OpUnicode:              "UNICODE",
	OpPrimCall0:            "PRIMCALL0",
	OpPrimCall1:            "PRIMCALL1",
	OpPrimCall2:            "PRIMCALL2",
	OpPrimCall1Head:        "PRIMCALL1-HEAD",
	OpPrimCall1Tail:        "PRIMCALL1-TAIL",
	OpPrimCall1Pairp:       "PRIMCALL1-PAIRP",
	OpPrimCall1Nullp:       "PRIMCALL1-NULLP",
	OpPrimCall1Not:         "PRIMCALL1-NOT",
	OpPrimCall2Add:         "PRIMCALL2-ADD",
	OpPrimCall2Subtract:    "PRIMCALL2-SUBTRACT",
	OpPrimCall2Multiply:    "PRIMCALL2-MULTIPLY",
	OpPrimCall2Eq:          "PRIMCALL2-EQ",
	OpPrimCall2Lt:          "PRIMCALL2-LT",
	OpPrimCall2Gt:          "PRIMCALL2-GT",
	OpPrimCall2Cons:        "PRIMCALL2-CONS",
	OpExpander:             "EXPANDER",
	OpInfixOperator:        "INFIX-OPERATOR",
	OpPostfixOperator:      "POSTFIX-OPERATOR",
	OpPushDynamic:          "PUSH-DYNAMIC",
	OpPopDynamic:           "POP-DYNAMIC",
	OpDynamicSymRef:        "DYNAMIC-SYM-REF",
	OpPushEnviron:          "PUSH-ENVIRON",
	OpPopEnviron:           "POP-ENVIRON",
	OpEnvironSymRef:        "ENVIRON-SYM-REF",
	OpPushTrap:             "PUSH-TRAP",
	OpPopTrap:              "POP-TRAP",
	OpRestoreTrap:          "RESTORE-TRAP",
	OpNonContErr:           "NON-CONT-ERR",
}

func (o Op) String() string {
	if int(o) > 0 && int(o) < int(opCount) && opNames[o] != "" {
		return opNames[o]
	}
	return "UNKNOWN-OPCODE"
}

// Valid reports whether o is an assigned opcode (spec.md §6.2 "readers
// reject unknown opcodes with a fatal error").
func (o Op) Valid() bool {
	return int(o) > 0 && int(o) < int(opCount) && opNames[o] != ""
}
