// cpu.go - Uxn opcode dispatch: 256-entry table, one closure per
// (base-opcode, mode-flags) pair, built once at init so the hot run loop
// never branches on the mode bits itself.

package uxn

// CPU is the Uxn evaluator: 64 KiB of RAM, a program counter, and the two
// 256-byte stacks, talking to the rest of Varvara exclusively through Dev.
type CPU struct {
	Ram [65536]byte
	WST Stack
	RST Stack
	Dev Device
}

// LoadROM copies up to 65536-0x0100 bytes of rom into RAM starting at
// 0x0100 (the fixed Uxn entry point) and returns whatever bytes didn't
// fit - the System device treats that remainder as expansion-bank seed
// data, one bank per 64 KiB chunk (§6).
func (c *CPU) LoadROM(rom []byte) (overflow []byte) {
	const base = 0x0100
	n := len(rom)
	room := len(c.Ram) - base
	if n <= room {
		copy(c.Ram[base:], rom)
		return nil
	}
	copy(c.Ram[base:], rom[:room])
	return rom[room:]
}

func (c *CPU) ramReadWord(addr uint16) uint16 {
	return uint16(c.Ram[addr])<<8 | uint16(c.Ram[addr+1])
}

func (c *CPU) ramWriteWord(addr uint16, v uint16) {
	c.Ram[addr] = byte(v >> 8)
	c.Ram[addr+1] = byte(v)
}

// Run executes starting at pc until an opcode requests a stop (BRK, or a
// DEO handler signalling shutdown), returning the PC at that point. There
// is no instruction budget: a vector that never reaches BRK blocks the
// caller forever, which is accepted behaviour (§5).
func (c *CPU) Run(pc uint16) uint16 {
	for {
		op := c.Ram[pc]
		pc++
		next, cont := dispatchTable[op](c, pc)
		if !cont {
			return next
		}
		pc = next
	}
}

// RunBounded is the fuzzing/testing variant of Run: it returns ok=false
// once maxOps instructions have executed without reaching a stop, rather
// than running forever (§5).
func (c *CPU) RunBounded(pc uint16, maxOps int) (result uint16, ok bool) {
	for i := 0; i < maxOps; i++ {
		op := c.Ram[pc]
		pc++
		next, cont := dispatchTable[op](c, pc)
		if !cont {
			return next, true
		}
		pc = next
	}
	return pc, false
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// jumpTarget applies JMP/JCN/JSR/JCI/JMI's addressing rule: short mode is
// an absolute replacement of pc, byte mode sign-extends the popped byte
// and adds it to pc (the address immediately after the operand was read).
func jumpTarget(pc uint16, operand uint16, short bool) uint16 {
	if short {
		return operand
	}
	return pc + uint16(int16(int8(byte(operand))))
}

// decodeMode splits an instruction byte into its 5-bit base opcode and
// the keep/return/short mode flags (§4.B).
func decodeMode(b byte) (base uint8, keep, ret, short bool) {
	return b & 0x1F, b&0x80 != 0, b&0x40 != 0, b&0x20 != 0
}

type opFunc func(c *CPU, pc uint16) (uint16, bool)

// dispatchTable holds one entry per possible instruction byte, built at
// package init. Base-opcode 0 is special-cased (BRK/JCI/JMI/JSI/LIT family,
// §4.B) since those ignore or repurpose the mode bits; every other entry
// is a closure over its own (base, keep, ret, short) tuple so executeOp
// never has to recompute them from the byte at dispatch time.
var dispatchTable [256]opFunc

func init() {
	for b := 0; b < 256; b++ {
		byteVal := byte(b)
		base, keep, ret, short := decodeMode(byteVal)
		if base == 0 {
			dispatchTable[b] = specialOp(byteVal)
			continue
		}
		dispatchTable[b] = func(c *CPU, pc uint16) (uint16, bool) {
			return executeOp(c, base, keep, ret, short, pc)
		}
	}
}

// specialOp returns the handler for one of the 8 byte values that share
// base-opcode 0: BRK, JCI, JMI, JSI, and the four LIT variants.
func specialOp(b byte) opFunc {
	switch b {
	case 0x00: // BRK
		return func(c *CPU, pc uint16) (uint16, bool) { return pc, false }
	case 0x20: // JCI
		return func(c *CPU, pc uint16) (uint16, bool) {
			cond := c.WST.PopByte()
			imm := c.ramReadWord(pc)
			pc += 2
			if cond != 0 {
				pc += imm
			}
			return pc, true
		}
	case 0x40: // JMI
		return func(c *CPU, pc uint16) (uint16, bool) {
			imm := c.ramReadWord(pc)
			pc += 2
			return pc + imm, true
		}
	case 0x60: // JSI
		return func(c *CPU, pc uint16) (uint16, bool) {
			imm := c.ramReadWord(pc)
			pc += 2
			c.RST.PushShort(pc)
			return pc + imm, true
		}
	default: // 0x80, 0xA0, 0xC0, 0xE0: LIT, LIT2, LITr, LIT2r
		short := b&0x20 != 0
		ret := b&0x40 != 0
		return func(c *CPU, pc uint16) (uint16, bool) {
			dst := &c.WST
			if ret {
				dst = &c.RST
			}
			if short {
				dst.PushShort(c.ramReadWord(pc))
				pc += 2
			} else {
				dst.PushByte(c.Ram[pc])
				pc++
			}
			return pc, true
		}
	}
}

// executeOp implements the 31 non-special base opcodes generically over
// their mode flags. Keep mode is realised by reading operands through a
// keepView instead of popping them for real, then issuing the same real
// pushes a non-keep execution would have produced (invariant 2, §8).
// Return mode swaps which stack is "working" for the duration of the call.
func executeOp(c *CPU, base uint8, keep, ret, short bool, pc uint16) (uint16, bool) {
	ws, rs := &c.WST, &c.RST
	if ret {
		ws, rs = rs, ws
	}

	var kv *keepView
	if keep {
		kv = ws.keep()
	}
	pop8 := func() byte {
		if keep {
			return kv.popByte()
		}
		return ws.PopByte()
	}
	pop16 := func() uint16 {
		if keep {
			return kv.popShort()
		}
		return ws.PopShort()
	}
	popv := func() uint16 {
		if short {
			return pop16()
		}
		return uint16(pop8())
	}
	push8 := ws.PushByte
	push16 := ws.PushShort
	pushv := func(v uint16) {
		if short {
			push16(v)
		} else {
			push8(byte(v))
		}
	}

	switch base {
	case 1: // INC
		pushv(popv() + 1)
	case 2: // POP
		popv()
	case 3: // NIP a b -- b
		b := popv()
		popv()
		pushv(b)
	case 4: // SWP a b -- b a
		b := popv()
		a := popv()
		pushv(b)
		pushv(a)
	case 5: // ROT a b c -- b c a
		cc := popv()
		b := popv()
		a := popv()
		pushv(b)
		pushv(cc)
		pushv(a)
	case 6: // DUP a -- a a
		a := popv()
		pushv(a)
		pushv(a)
	case 7: // OVR a b -- a b a
		b := popv()
		a := popv()
		pushv(a)
		pushv(b)
		pushv(a)
	case 8: // EQU
		b, a := popv(), popv()
		push8(boolByte(a == b))
	case 9: // NEQ
		b, a := popv(), popv()
		push8(boolByte(a != b))
	case 10: // GTH
		b, a := popv(), popv()
		push8(boolByte(a > b))
	case 11: // LTH
		b, a := popv(), popv()
		push8(boolByte(a < b))
	case 12: // JMP
		pc = jumpTarget(pc, popv(), short)
	case 13: // JCN
		target := popv()
		cond := pop8()
		if cond != 0 {
			pc = jumpTarget(pc, target, short)
		}
	case 14: // JSR
		target := popv()
		rs.PushShort(pc)
		pc = jumpTarget(pc, target, short)
	case 15: // STH
		v := popv()
		if short {
			rs.PushShort(v)
		} else {
			rs.PushByte(byte(v))
		}
	case 16: // LDZ
		addr := uint16(pop8())
		if short {
			push16(c.ramReadWord(addr))
		} else {
			push8(c.Ram[addr])
		}
	case 17: // STZ
		addr := uint16(pop8())
		v := popv()
		if short {
			c.ramWriteWord(addr, v)
		} else {
			c.Ram[addr] = byte(v)
		}
	case 18: // LDR
		off := pop8()
		addr := pc + uint16(int16(int8(off)))
		if short {
			push16(c.ramReadWord(addr))
		} else {
			push8(c.Ram[addr])
		}
	case 19: // STR
		off := pop8()
		v := popv()
		addr := pc + uint16(int16(int8(off)))
		if short {
			c.ramWriteWord(addr, v)
		} else {
			c.Ram[addr] = byte(v)
		}
	case 20: // LDA
		addr := pop16()
		if short {
			push16(c.ramReadWord(addr))
		} else {
			push8(c.Ram[addr])
		}
	case 21: // STA
		addr := pop16()
		v := popv()
		if short {
			c.ramWriteWord(addr, v)
		} else {
			c.Ram[addr] = byte(v)
		}
	case 22: // DEI
		target := pop8()
		if short {
			// Reserve both slots before either device call so a handler
			// that reads WST/RST ports mid-call sees the inflated index
			// (§4.B's DEI ordering contract, invariant 4).
			ws.Reserve(2)
			hi := c.Dev.DEI(c, target)
			ws.pokeFromTop(2, hi)
			lo := c.Dev.DEI(c, target+1)
			ws.pokeFromTop(1, lo)
		} else {
			push8(c.Dev.DEI(c, target))
		}
	case 23: // DEO
		target := pop8()
		if short {
			v := popv()
			c.Dev.SetPortByte(target, byte(v>>8))
			if !c.Dev.DEO(c, target) {
				return pc, false
			}
			c.Dev.SetPortByte(target+1, byte(v))
			if !c.Dev.DEO(c, target+1) {
				return pc, false
			}
		} else {
			v := popv()
			c.Dev.SetPortByte(target, byte(v))
			if !c.Dev.DEO(c, target) {
				return pc, false
			}
		}
	case 24: // ADD
		b, a := popv(), popv()
		pushv(a + b)
	case 25: // SUB
		b, a := popv(), popv()
		pushv(a - b)
	case 26: // MUL
		b, a := popv(), popv()
		pushv(a * b)
	case 27: // DIV
		b, a := popv(), popv()
		if b == 0 {
			pushv(0)
		} else {
			pushv(a / b)
		}
	case 28: // AND
		b, a := popv(), popv()
		pushv(a & b)
	case 29: // ORA
		b, a := popv(), popv()
		pushv(a | b)
	case 30: // EOR
		b, a := popv(), popv()
		pushv(a ^ b)
	case 31: // SFT
		shift := pop8()
		a := popv()
		right := uint(shift & 0x0F)
		left := uint(shift >> 4)
		pushv((a >> right) << left)
	}
	return pc, true
}
