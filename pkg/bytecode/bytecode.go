package bytecode

import "fmt"

// Bytecode is the single append-only byte array of spec.md §6.1: PCs are
// absolute offsets into Code. The compiler appends to it via the Emit*
// methods; the dispatch loop (pkg/vm) reads it back via the package-level
// Get* decoders.
type Bytecode struct {
	Code []byte

	// Prologue holds the fixed jump targets spec.md §6.3 requires
	// ("linked by known PCs"): FINISH_pc, NCE_pc, CHR_pc, IHR_pc, AR_pc.
	Prologue Prologue
}

// Prologue is the fixed byte region at the start of the code array
// (spec.md §6.3).
type Prologue struct {
	FinishPC int64
	NCEPC    int64
	CHRPC    int64
	IHRPC    int64
	ARPC     int64
}

// New returns an empty Bytecode with its prologue already written:
//   - FINISH_pc: a single FINISH instruction
//   - NCE_pc: NON-CONT-ERR then RETURN
//   - CHR_pc: RESTORE-TRAP; RESTORE-STATE; RETURN
//   - IHR_pc: RESTORE-ALL-STATE; RETURN
//   - AR_pc: the apply-return target, coinciding with CHR_pc's RETURN
//     (both are "run the pending RETURN against the current stack").
func New() *Bytecode {
	bc := &Bytecode{}

	bc.Prologue.FinishPC = bc.emitOp(OpFinish)

	bc.Prologue.NCEPC = bc.emitOp(OpNonContErr)
	bc.emitOp(OpReturn)

	bc.Prologue.CHRPC = bc.emitOp(OpRestoreTrap)
	bc.emitOp(OpRestoreState)
	bc.Prologue.ARPC = bc.emitOp(OpReturn)

	bc.Prologue.IHRPC = bc.emitOp(OpRestoreAllState)
	bc.emitOp(OpReturn)

	return bc
}

func (bc *Bytecode) emitOp(op Op) int64 {
	pc := int64(len(bc.Code))
	bc.Code = append(bc.Code, byte(op))
	return pc
}

// Emit appends op with no operands and returns its PC.
func (bc *Bytecode) Emit(op Op) int64 { return bc.emitOp(op) }

// EmitVaruint appends op followed by a varuint operand.
func (bc *Bytecode) EmitVaruint(op Op, n uint64) int64 {
	pc := bc.emitOp(op)
	bc.Code = PutVaruint(bc.Code, n)
	return pc
}

// EmitVaruint2 appends op followed by two varuint operands (e.g.
// DEEP-ARGUMENT-REF i j).
func (bc *Bytecode) EmitVaruint2(op Op, a, b uint64) int64 {
	pc := bc.emitOp(op)
	bc.Code = PutVaruint(bc.Code, a)
	bc.Code = PutVaruint(bc.Code, b)
	return pc
}

// EmitReference appends op followed by a 16-bit module-local reference.
func (bc *Bytecode) EmitReference(op Op, mci uint64) int64 {
	pc := bc.emitOp(op)
	bc.Code = PutReference(bc.Code, mci)
	return pc
}

// EmitReference2 appends op followed by two 16-bit references (e.g.
// GLOBAL-SYM-DEF mci mkci).
func (bc *Bytecode) EmitReference2(op Op, a, b uint64) int64 {
	pc := bc.emitOp(op)
	bc.Code = PutReference(bc.Code, a)
	bc.Code = PutReference(bc.Code, b)
	return pc
}

// EmitSigned appends op followed by a zigzag-encoded signed varuint
// (relative jump offsets).
func (bc *Bytecode) EmitSigned(op Op, n int64) int64 {
	pc := bc.emitOp(op)
	bc.Code = PutSignedVaruint(bc.Code, n)
	return pc
}

// EmitClosure appends CREATE-CLOSURE with its four fixuint-4 fields
// (offset, len, sigci, docci — spec.md §4.6 "CREATE-CLOSURE offset len
// sigci docci").
func (bc *Bytecode) EmitClosure(offset, length, sigci, docci int64) int64 {
	pc := bc.emitOp(OpCreateClosure)
	bc.Code = PutFixuint(bc.Code, 4, uint64(offset))
	bc.Code = PutFixuint(bc.Code, 4, uint64(length))
	bc.Code = PutFixuint(bc.Code, 4, uint64(sigci))
	bc.Code = PutFixuint(bc.Code, 4, uint64(docci))
	return pc
}

// Len returns the current length of the code array (the next PC Emit would
// return).
func (bc *Bytecode) Len() int64 { return int64(len(bc.Code)) }

// Disassemble renders the instruction stream as human-readable text, one
// instruction per line, for the `wisp disasm` command and for debugging
// (spec.md §9 "vm-dasm"). Unknown opcodes are reported inline rather than
// aborting, so a corrupt stream's damage stays localized to one line.
func Disassemble(bc *Bytecode) string {
	var out []byte
	pc := 0
	for pc < len(bc.Code) {
		start := pc
		op := Op(bc.Code[pc])
		pc++
		if !op.Valid() {
			out = append(out, []byte(fmt.Sprintf("%6d  <invalid opcode %d>\n", start, op))...)
			continue
		}
		operands, next, err := decodeOperands(op, bc.Code, pc)
		line := fmt.Sprintf("%6d  %-24s", start, op.String())
		if err != nil {
			line += fmt.Sprintf(" <decode error: %v>", err)
			pc = len(bc.Code)
		} else {
			for _, o := range operands {
				line += fmt.Sprintf(" %v", o)
			}
			pc = next
		}
		out = append(out, []byte(line+"\n")...)
	}
	return string(out)
}

// operandShape classifies how many operands of what encoding each opcode
// carries, so the disassembler (and, eventually, any bytecode verifier)
// can walk the stream without a case for every single opcode.
type operandShape int

const (
	shapeNone operandShape = iota
	shapeVaruint1
	shapeVaruint2
	shapeReference1
	shapeReference2
	shapeSigned
	shapeFixuint4x4
)

func shapeOf(op Op) operandShape {
	switch op {
	case OpShallowArgumentRef, OpShallowArgumentSet,
		OpPopExpr, OpPackFrame, OpPopConsFrame, OpPopFrame,
		OpArityEqP, OpArityGeP, OpFixnum, OpNegFixnum, OpCharacter, OpUnicode,
		OpConstantN, OpAllocateFrame, OpAllocateDottedFrame:
		return shapeVaruint1
	case OpDeepArgumentRef, OpDeepArgumentSet:
		return shapeVaruint2
	case OpGlobalSymRef, OpCheckedGlobalSymRef, OpGlobalFunctionRef, OpGlobalSymSet,
		OpComputedSymRef, OpComputedSymSet, OpComputedSymDefine, OpConstantSymRef,
		OpExpander, OpPushDynamic, OpPopDynamic, OpDynamicSymRef,
		OpPushEnviron, OpPopEnviron, OpEnvironSymRef, OpPushTrap,
		OpPrimCall0, OpPrimCall1, OpPrimCall2:
		return shapeReference1
	case OpGlobalSymDef, OpInfixOperator, OpPostfixOperator:
		return shapeReference2
	case OpShortGoto, OpLongGoto, OpShortJumpFalse, OpLongJumpFalse,
		OpShortJumpTrue, OpLongJumpTrue, OpAbort:
		return shapeSigned
	case OpCreateClosure:
		return shapeFixuint4x4
	default:
		return shapeNone
	}
}

func decodeOperands(op Op, code []byte, pos int) (operands []int64, next int, err error) {
	switch shapeOf(op) {
	case shapeNone:
		return nil, pos, nil
	case shapeVaruint1:
		n, p, err := GetVaruint(code, pos)
		return []int64{int64(n)}, p, err
	case shapeVaruint2:
		a, p, err := GetVaruint(code, pos)
		if err != nil {
			return nil, pos, err
		}
		b, p2, err := GetVaruint(code, p)
		return []int64{int64(a), int64(b)}, p2, err
	case shapeReference1:
		a, p, err := GetReference(code, pos)
		return []int64{int64(a)}, p, err
	case shapeReference2:
		a, p, err := GetReference(code, pos)
		if err != nil {
			return nil, pos, err
		}
		b, p2, err := GetReference(code, p)
		return []int64{int64(a), int64(b)}, p2, err
	case shapeSigned:
		n, p, err := GetSignedVaruint(code, pos)
		return []int64{n}, p, err
	case shapeFixuint4x4:
		vals := make([]int64, 4)
		p := pos
		for i := range vals {
			v, np, err := GetFixuint(code, p, 4)
			if err != nil {
				return nil, pos, err
			}
			vals[i] = int64(v)
			p = np
		}
		return vals, p, nil
	default:
		return nil, pos, fmt.Errorf("bytecode: unhandled operand shape for %s", op)
	}
}
