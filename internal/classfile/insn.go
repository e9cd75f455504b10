package classfile

import "fmt"

// Instruction is one decoded instruction of the subset the assembler emits.
type Instruction struct {
	Offset int
	Op     byte
	Local  int    // aload*
	Index  uint16 // constant pool operand
}

// Instructions decodes bytecode produced by Code. Opcodes outside the
// assembler's subset are reported as errors.
func Instructions(code []byte) ([]Instruction, error) {
	var out []Instruction
	r := &reader{data: code}
	for r.off < len(code) && r.err == nil {
		in := Instruction{Offset: r.off, Op: r.u1()}
		switch op := in.Op; {
		case op >= OpAload0 && op <= OpAload0+3:
			in.Local = int(op - OpAload0)
			in.Op = OpAload
		case op == OpAload:
			in.Local = int(r.u1())
		case op == OpLdc:
			in.Index = uint16(r.u1())
		case op == OpLdcW, op == OpGetstatic, op == OpInvokevirtual, op == OpInvokespecial,
			op == OpInvokestatic, op == OpNew:
			in.Index = r.u2()
		case op == OpInvokeinterface, op == OpInvokedynamic:
			in.Index = r.u2()
			r.u2()
		case op == OpPop, op == OpDup, op == OpReturn, op == OpAreturn:
		default:
			return out, fmt.Errorf("unsupported opcode %#02x at offset %d", op, in.Offset)
		}
		out = append(out, in)
	}
	return out, r.err
}
