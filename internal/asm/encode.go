package asm

import (
	"fmt"
	"strings"

	"github.com/helix9vm/helix9/internal/isa"
	"github.com/helix9vm/helix9/internal/obj"
)

// encode parses operandStr against op's operand shape and produces the encoded instruction word,
// plus an optional relocation (symbol name and kind) the caller should record against this word's
// address. sym is empty when the instruction needs no relocation.
func (a *Assembler) encode(op isa.Opcode, operandStr, section string, addr int64) (isa.Instruction, string, obj.RelocType, error) {
	ops, err := splitTopLevel(operandStr)
	if err != nil {
		return isa.Instruction{}, "", obj.ABS, err
	}

	switch {
	case op == isa.HLT || op == isa.NOP || op == isa.RET:
		return isa.Encode(op, isa.ModeReg, isa.R0, isa.R0, 0), "", obj.ABS, nil

	case op == isa.MSR:
		if err := arity(ops, 1); err != nil {
			return isa.Instruction{}, "", obj.ABS, err
		}

		mode, val, sym, err := a.resolveOp2(ops[0])

		return isa.Encode(op, mode, isa.R0, isa.R0, val), sym, obj.ABS, err

	case op == isa.MRS:
		if err := arity(ops, 1); err != nil {
			return isa.Instruction{}, "", obj.ABS, err
		}

		rd, err := a.parseReg(ops[0])

		return isa.Encode(op, isa.ModeReg, rd, isa.R0, 0), "", obj.ABS, err

	case isArithOrLogic(op):
		if err := arity(ops, 3); err != nil {
			return isa.Instruction{}, "", obj.ABS, err
		}

		rd, err1 := a.parseReg(ops[0])
		rs1, err2 := a.parseReg(ops[1])
		mode, val, sym, err3 := a.resolveOp2(ops[2])

		if err := firstErr(err1, err2, err3); err != nil {
			return isa.Instruction{}, "", obj.ABS, err
		}

		return isa.Encode(op, mode, rd, rs1, val), sym, obj.ABS, nil

	case op == isa.CMP:
		if err := arity(ops, 2); err != nil {
			return isa.Instruction{}, "", obj.ABS, err
		}

		rs1, err1 := a.parseReg(ops[0])
		mode, val, sym, err2 := a.resolveOp2(ops[1])

		if err := firstErr(err1, err2); err != nil {
			return isa.Instruction{}, "", obj.ABS, err
		}

		return isa.Encode(op, mode, isa.R0, rs1, val), sym, obj.ABS, nil

	case op == isa.POP || op == isa.VEC_POP:
		if err := arity(ops, 2); err != nil {
			return isa.Instruction{}, "", obj.ABS, err
		}

		rd, err1 := a.parseReg(ops[0])
		rs1, err2 := a.parseReg(ops[1])

		if err := firstErr(err1, err2); err != nil {
			return isa.Instruction{}, "", obj.ABS, err
		}

		return isa.Encode(op, isa.ModeReg, rd, rs1, 0), "", obj.ABS, nil

	case op == isa.MOV:
		if err := arity(ops, 2); err != nil {
			return isa.Instruction{}, "", obj.ABS, err
		}

		rd, err1 := a.parseReg(ops[0])
		rs1, err2 := a.parseReg(ops[1])

		if err := firstErr(err1, err2); err != nil {
			return isa.Instruction{}, "", obj.ABS, err
		}

		return isa.Encode(op, isa.ModeReg, rd, rs1, 0), "", obj.ABS, nil

	case op == isa.LDI:
		if err := arity(ops, 2); err != nil {
			return isa.Instruction{}, "", obj.ABS, err
		}

		rd, err1 := a.parseReg(ops[0])
		_, val, sym, err2 := a.resolveOp2(ops[1])

		if err := firstErr(err1, err2); err != nil {
			return isa.Instruction{}, "", obj.ABS, err
		}

		return isa.Encode(op, isa.ModeImm, rd, isa.R0, val), sym, obj.ABS, nil

	case op == isa.LDW || op == isa.STW:
		if err := arity(ops, 2); err != nil {
			return isa.Instruction{}, "", obj.ABS, err
		}

		rd, err1 := a.parseReg(ops[0])
		base, mode, val, sym, err2 := a.resolveMemOperand(ops[1])

		if err := firstErr(err1, err2); err != nil {
			return isa.Instruction{}, "", obj.ABS, err
		}

		return isa.Encode(op, mode, rd, base, val), sym, obj.ABS, nil

	case isBranch(op):
		if err := arity(ops, 1); err != nil {
			return isa.Instruction{}, "", obj.ABS, err
		}

		mode, rs1, imm, sym, err := a.resolveBranchTarget(ops[0], section, addr)
		if err != nil {
			return isa.Instruction{}, "", obj.ABS, err
		}

		return isa.Encode(op, mode, isa.R0, rs1, imm), sym, obj.PCR, nil

	case op == isa.VEC_CNS || op == isa.DEC_MASK || op == isa.SAT_MAC:
		if err := arity(ops, 3); err != nil {
			return isa.Instruction{}, "", obj.ABS, err
		}

		rd, err1 := a.parseReg(ops[0])
		rs1, err2 := a.parseReg(ops[1])
		op2, err3 := a.parseReg(ops[2])

		if err := firstErr(err1, err2, err3); err != nil {
			return isa.Instruction{}, "", obj.ABS, err
		}

		return isa.Encode(op, isa.ModeReg, rd, rs1, int64(op2)), "", obj.ABS, nil

	case op == isa.VLDR || op == isa.VSTR:
		if err := arity(ops, 2); err != nil {
			return isa.Instruction{}, "", obj.ABS, err
		}

		vd, err1 := a.parseReg(ops[0])
		base, _, _, sym, err2 := a.resolveMemOperand(ops[1])

		if err := firstErr(err1, err2); err != nil {
			return isa.Instruction{}, "", obj.ABS, err
		}

		return isa.Encode(op, isa.ModeReg, vd, isa.R0, int64(base)), sym, obj.ABS, nil

	case op == isa.VADD || op == isa.VDOT:
		if err := arity(ops, 3); err != nil {
			return isa.Instruction{}, "", obj.ABS, err
		}

		vd, err1 := a.parseReg(ops[0])
		vs1, err2 := a.parseReg(ops[1])
		mode, val, sym, err3 := a.resolveOp2(ops[2])

		if err := firstErr(err1, err2, err3); err != nil {
			return isa.Instruction{}, "", obj.ABS, err
		}

		return isa.Encode(op, mode, vd, vs1, val), sym, obj.ABS, nil

	case op == isa.VMMUL || op == isa.VMMSGN:
		if err := arity(ops, 3); err != nil {
			return isa.Instruction{}, "", obj.ABS, err
		}

		vd, err1 := a.parseReg(ops[0])
		vs, err2 := a.parseReg(ops[1])
		rbase, err3 := a.parseReg(ops[2])

		if err := firstErr(err1, err2, err3); err != nil {
			return isa.Instruction{}, "", obj.ABS, err
		}

		return isa.Encode(op, isa.ModeReg, vd, vs, int64(rbase)), "", obj.ABS, nil

	case op == isa.VSIGN:
		if err := arity(ops, 2); err != nil {
			return isa.Instruction{}, "", obj.ABS, err
		}

		vd, err1 := a.parseReg(ops[0])
		vs, err2 := a.parseReg(ops[1])

		if err := firstErr(err1, err2); err != nil {
			return isa.Instruction{}, "", obj.ABS, err
		}

		return isa.Encode(op, isa.ModeReg, vd, vs, 0), "", obj.ABS, nil

	case op == isa.VCLIP:
		if len(ops) != 2 && len(ops) != 3 {
			return isa.Instruction{}, "", obj.ABS, fmt.Errorf("%w: vclip takes 2 or 3 operands", ErrSyntax)
		}

		vd, err1 := a.parseReg(ops[0])
		vs, err2 := a.parseReg(ops[1])

		if err := firstErr(err1, err2); err != nil {
			return isa.Instruction{}, "", obj.ABS, err
		}

		if len(ops) == 2 {
			return isa.Encode(op, isa.ModeReg, vd, vs, 0), "", obj.ABS, nil
		}

		_, val, sym, err3 := a.resolveOp2(ops[2])
		if err3 != nil {
			return isa.Instruction{}, "", obj.ABS, err3
		}

		return isa.Encode(op, isa.ModeImm, vd, vs, val), sym, obj.ABS, nil

	case op == isa.VSTRI:
		if err := arity(ops, 1); err != nil {
			return isa.Instruction{}, "", obj.ABS, err
		}

		mode, val, sym, err := a.resolveOp2(ops[0])

		return isa.Encode(op, mode, isa.R0, isa.R0, val), sym, obj.ABS, err

	default:
		return isa.Instruction{}, "", obj.ABS, fmt.Errorf("%w: no encoding rule for %s", ErrSyntax, op)
	}
}

func arity(ops []string, n int) error {
	if len(ops) != n {
		return fmt.Errorf("%w: expected %d operand(s), got %d", ErrSyntax, n, len(ops))
	}

	return nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	return nil
}

func (a *Assembler) parseReg(tok string) (isa.GPR, error) {
	o, err := parseOperand(tok)
	if err != nil {
		return 0, err
	}

	if o.kind != opRegister {
		return 0, fmt.Errorf("%w: expected register, got %q", ErrSyntax, tok)
	}

	return o.reg, nil
}

// resolveOp2 resolves an arithmetic/logic/cognitive second operand: a register (mode reg), a
// literal (mode imm), or a symbol (mode imm, deferred to an ABS relocation).
func (a *Assembler) resolveOp2(tok string) (isa.Mode, int64, string, error) {
	o, err := parseOperand(tok)
	if err != nil {
		return 0, 0, "", err
	}

	switch o.kind {
	case opRegister:
		return isa.ModeReg, int64(o.reg), "", nil
	case opImmediate:
		if o.sym != "" {
			return isa.ModeImm, 0, o.sym, nil
		}

		return isa.ModeImm, o.imm, "", nil
	default:
		return 0, 0, "", fmt.Errorf("%w: expected register or immediate, got %q", ErrSyntax, tok)
	}
}

// resolveMemOperand resolves a `[base]` or `[base, disp]` operand for LDW/STW/VLDR/VSTR. A literal
// zero displacement emits ModeMemDirect; anything else (including an unresolved displacement
// symbol) emits ModeMemDisp.
func (a *Assembler) resolveMemOperand(tok string) (isa.GPR, isa.Mode, int64, string, error) {
	o, err := parseOperand(tok)
	if err != nil {
		return 0, 0, 0, "", err
	}

	if o.kind != opMemory {
		return 0, 0, 0, "", fmt.Errorf("%w: expected memory operand [reg, disp], got %q", ErrSyntax, tok)
	}

	if o.sym != "" {
		return o.base, isa.ModeMemDisp, 0, o.sym, nil
	}

	if o.disp == 0 {
		return o.base, isa.ModeMemDirect, 0, "", nil
	}

	return o.base, isa.ModeMemDisp, o.disp, "", nil
}

// resolveBranchTarget resolves a JMP/Bxx/CALL operand: a register (mode reg, register-indirect), a
// literal displacement (mode pcrelative), or a label. A label defined in the same section the
// branch lives in is resolved to its PC-relative offset immediately, since merging sections at
// link time shifts both addresses by the same base and leaves the relative distance unchanged; a
// label in another section (or not yet defined in this file) is left for the linker via a PCR
// relocation.
func (a *Assembler) resolveBranchTarget(tok, section string, addr int64) (isa.Mode, isa.GPR, int64, string, error) {
	o, err := parseOperand(tok)
	if err != nil {
		return 0, 0, 0, "", err
	}

	if o.kind == opRegister {
		return isa.ModeReg, o.reg, 0, "", nil
	}

	if o.sym == "" {
		return isa.ModePCRelative, isa.R0, o.imm, "", nil
	}

	if def, ok := a.symbols[o.sym]; ok && def.section == section {
		return isa.ModePCRelative, isa.R0, def.offset - (addr + 1), "", nil
	}

	return isa.ModePCRelative, isa.R0, 0, o.sym, nil
}

// splitTopLevel splits an operand list on runs of whitespace and/or commas, ignoring separators
// nested inside `[...]` memory operands. Whitespace and commas are interchangeable separators
// (spec.md's "whitespace, including commas, is insignificant"), so `add r1 r1 r2`, `add r1,r1,r2`
// and `add r1, r1 r2` all split the same way.
func splitTopLevel(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var out []string

	depth := 0
	start := -1

	flush := func(end int) {
		if start >= 0 {
			out = append(out, s[start:end])
			start = -1
		}
	}

	for i, r := range s {
		switch {
		case r == '[':
			depth++

			if start < 0 {
				start = i
			}
		case r == ']':
			depth--

			if depth < 0 {
				return nil, fmt.Errorf("%w: unbalanced ]", ErrSyntax)
			}
		case depth == 0 && (r == ',' || r == ' ' || r == '\t'):
			flush(i)
			continue
		default:
			if start < 0 {
				start = i
			}
		}
	}

	if depth != 0 {
		return nil, fmt.Errorf("%w: unbalanced [", ErrSyntax)
	}

	flush(len(s))

	return out, nil
}
