package bytecode

import "strings"

import "testing"

func TestNewInstallsPrologue(t *testing.T) {
	bc := New()
	if bc.Prologue.FinishPC != 0 {
		t.Errorf("FinishPC = %d, want 0", bc.Prologue.FinishPC)
	}
	if Op(bc.Code[bc.Prologue.FinishPC]) != OpFinish {
		t.Errorf("instruction at FinishPC is not FINISH")
	}
	if Op(bc.Code[bc.Prologue.NCEPC]) != OpNonContErr {
		t.Errorf("instruction at NCEPC is not NON-CONT-ERR")
	}
	if Op(bc.Code[bc.Prologue.CHRPC]) != OpRestoreTrap {
		t.Errorf("instruction at CHRPC is not RESTORE-TRAP")
	}
	if Op(bc.Code[bc.Prologue.IHRPC]) != OpRestoreAllState {
		t.Errorf("instruction at IHRPC is not RESTORE-ALL-STATE")
	}
}

func TestEmitAndDisassemble(t *testing.T) {
	bc := New()
	bc.EmitVaruint(OpFixnum, 42)
	bc.EmitReference(OpGlobalSymRef, 7)
	bc.EmitSigned(OpShortGoto, -3)
	bc.Emit(OpReturn)

	out := Disassemble(bc)
	if !strings.Contains(out, "FIXNUM") || !strings.Contains(out, "42") {
		t.Errorf("disassembly missing FIXNUM 42: %s", out)
	}
	if !strings.Contains(out, "GLOBAL-SYM-REF") || !strings.Contains(out, "7") {
		t.Errorf("disassembly missing GLOBAL-SYM-REF 7: %s", out)
	}
	if !strings.Contains(out, "SHORT-GOTO") || !strings.Contains(out, "-3") {
		t.Errorf("disassembly missing SHORT-GOTO -3: %s", out)
	}
}

func TestDisassembleReportsInvalidOpcode(t *testing.T) {
	bc := &Bytecode{Code: []byte{0}}
	out := Disassemble(bc)
	if !strings.Contains(out, "invalid opcode") {
		t.Errorf("disassembly of opcode 0 should report invalid: %s", out)
	}
}

func TestOpcodeStringUnknown(t *testing.T) {
	if Op(200).String() != "UNKNOWN-OPCODE" {
		t.Errorf("unassigned opcode should stringify to UNKNOWN-OPCODE")
	}
}

func TestEmitClosureFourFields(t *testing.T) {
	bc := New()
	bc.EmitClosure(10, 20, 3, 4)
	out := Disassemble(bc)
	if !strings.Contains(out, "CREATE-CLOSURE") {
		t.Errorf("disassembly missing CREATE-CLOSURE: %s", out)
	}
}
