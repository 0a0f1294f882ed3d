package asm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/helix9vm/helix9/internal/isa"
)

// operandKind tags which syntactic shape an operand token parsed as.
type operandKind uint8

const (
	opRegister operandKind = iota
	opImmediate
	opMemory
)

// operand is a parsed, not-yet-encoded instruction operand.
type operand struct {
	kind operandKind

	reg  isa.GPR // opRegister, or the base register for opMemory
	imm  int64   // opImmediate, or the displacement for opMemory
	sym  string  // set if imm/disp is symbolic rather than a literal
	base isa.GPR // opMemory's base register
	disp int64   // opMemory's literal displacement
}

// parseOperand parses one comma/whitespace-separated operand token: a bare register, a decimal or
// 0x-hex (optionally signed) literal, a bare symbol, or a `[reg, disp]`/`[reg]` memory reference.
func parseOperand(tok string) (operand, error) {
	tok = strings.TrimSpace(tok)

	if tok == "" {
		return operand{}, fmt.Errorf("%w: empty operand", ErrSyntax)
	}

	if strings.HasPrefix(tok, "[") {
		return parseMemoryOperand(tok)
	}

	if r, ok := registerNames[strings.ToLower(tok)]; ok {
		return operand{kind: opRegister, reg: r}, nil
	}

	if n, err := parseNumber(tok); err == nil {
		return operand{kind: opImmediate, imm: n}, nil
	}

	// Anything else is taken as a symbol reference, resolved or relocated at a later pass.
	return operand{kind: opImmediate, sym: tok}, nil
}

func parseMemoryOperand(tok string) (operand, error) {
	inner := strings.TrimSuffix(strings.TrimPrefix(tok, "["), "]")

	// `[reg, disp]` and `[reg disp]` are the same operand: whitespace and commas are
	// interchangeable separators inside a memory operand, same as between operands.
	parts := strings.FieldsFunc(inner, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})

	if len(parts) == 0 {
		return operand{}, fmt.Errorf("%w: empty memory operand", ErrSyntax)
	}

	baseTok := parts[0]

	base, ok := registerNames[strings.ToLower(baseTok)]
	if !ok {
		return operand{}, fmt.Errorf("%w: memory operand base register: %q", ErrSyntax, baseTok)
	}

	mem := operand{kind: opMemory, base: base}

	if len(parts) >= 2 {
		dispTok := parts[1]

		if n, err := parseNumber(dispTok); err == nil {
			mem.disp = n
		} else {
			mem.sym = dispTok
		}
	}

	return mem, nil
}

func parseNumber(tok string) (int64, error) {
	neg := false

	if strings.HasPrefix(tok, "-") {
		neg = true
		tok = tok[1:]
	} else if strings.HasPrefix(tok, "+") {
		tok = tok[1:]
	}

	base := 10
	if strings.HasPrefix(strings.ToLower(tok), "0x") {
		base = 16
		tok = tok[2:]
	}

	n, err := strconv.ParseInt(tok, base, 64)
	if err != nil {
		return 0, err
	}

	if neg {
		n = -n
	}

	return n, nil
}
