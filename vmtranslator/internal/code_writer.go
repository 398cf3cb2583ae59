package internal

import (
	"fmt"
	"strconv"
)

// Memory layout of the hack vm:
// RAM[0] SP, RAM[1] LCL, RAM[2] ARG, RAM[3] THIS, RAM[4] THAT,
// RAM[5-12] temp segment, RAM[13-15] scratch registers used here,
// RAM[16-255] static variables, RAM[256-2047] stack.

var segmentBase = map[KeyWordTP]string{
	LocalKeyWordTP:    "LCL",
	ArgumentKeyWordTP: "ARG",
	ThisKeyWordTP:     "THIS",
	ThatKeyWordTP:     "THAT",
}

func (translator *VMTranslator) emit(lines ...string) {
	for _, line := range lines {
		translator.output.WriteString(line)
		translator.output.WriteByte('\n')
	}
}

// push pushes D onto the stack.
func (translator *VMTranslator) push() {
	translator.emit("@SP", "A=M", "M=D", "@SP", "M=M+1")
}

// pop moves the top of the stack into D.
func (translator *VMTranslator) pop() {
	translator.emit("@SP", "AM=M-1", "D=M")
}

func pointerSymbol(index int) string {
	if index == 0 {
		return "@THIS"
	}
	return "@THAT"
}

func (translator *VMTranslator) staticSymbol(index int) string {
	return fmt.Sprintf("@%s.%d", translator.fileName, index)
}

func (translator *VMTranslator) writePush(segment KeyWordTP, index int) {
	switch segment {
	case ConstantKeyWordTP:
		translator.emit("@"+strconv.Itoa(index), "D=A")
	case LocalKeyWordTP, ArgumentKeyWordTP, ThisKeyWordTP, ThatKeyWordTP:
		translator.emit("@"+segmentBase[segment], "D=M", "@"+strconv.Itoa(index), "A=D+A", "D=M")
	case PointerKeyWordTP:
		translator.emit(pointerSymbol(index), "D=M")
	case TempKeyWordTP:
		translator.emit(fmt.Sprintf("@R%d", 5+index), "D=M")
	case StaticKeyWordTP:
		translator.emit(translator.staticSymbol(index), "D=M")
	}
	translator.push()
}

func (translator *VMTranslator) writePop(segment KeyWordTP, index int) {
	switch segment {
	case LocalKeyWordTP, ArgumentKeyWordTP, ThisKeyWordTP, ThatKeyWordTP:
		// R13 = segment + index
		translator.emit("@"+segmentBase[segment], "D=M", "@"+strconv.Itoa(index), "D=D+A", "@R13", "M=D")
		translator.pop()
		translator.emit("@R13", "A=M", "M=D")
	case PointerKeyWordTP:
		translator.pop()
		translator.emit(pointerSymbol(index), "M=D")
	case TempKeyWordTP:
		translator.pop()
		translator.emit(fmt.Sprintf("@R%d", 5+index), "M=D")
	case StaticKeyWordTP:
		translator.pop()
		translator.emit(translator.staticSymbol(index), "M=D")
	}
}

func (translator *VMTranslator) writeArithmetic(opTP KeyWordTP) {
	switch opTP {
	case AddKeyWordTP:
		translator.binaryArithmetic("+")
	case SubKeyWordTP:
		translator.binaryArithmetic("-")
	case AndKeyWordTP:
		translator.binaryArithmetic("&")
	case OrKeyWordTP:
		translator.binaryArithmetic("|")
	case NegKeyWordTP:
		translator.unaryArithmetic("-")
	case NotKeyWordTP:
		translator.unaryArithmetic("!")
	case EqKeyWordTP:
		translator.comparison("JEQ")
	case GtKeyWordTP:
		translator.comparison("JGT")
	case LtKeyWordTP:
		translator.comparison("JLT")
	}
}

// binaryArithmetic pops y then x and pushes x op y.
func (translator *VMTranslator) binaryArithmetic(op string) {
	translator.pop()
	translator.emit("@R13", "M=D")
	translator.pop()
	translator.emit("@R13", "D=D"+op+"M")
	translator.push()
}

func (translator *VMTranslator) unaryArithmetic(op string) {
	translator.pop()
	translator.emit("D=" + op + "D")
	translator.push()
}

// comparison pushes -1 when x - y satisfies jump, 0 otherwise.
func (translator *VMTranslator) comparison(jump string) {
	id := translator.labelNameID
	translator.labelNameID++
	translator.pop()
	translator.emit("@R13", "M=D")
	translator.pop()
	translator.emit(
		"@R13",
		"D=D-M",
		fmt.Sprintf("@JMP_%d", id),
		"D;"+jump,
		"D=0",
		fmt.Sprintf("@JMP_END_%d", id),
		"0;JMP",
		fmt.Sprintf("(JMP_%d)", id),
		"D=-1",
		fmt.Sprintf("(JMP_END_%d)", id),
	)
	translator.push()
}

// Labels are scoped by the enclosing function: label L in Foo.bar becomes Foo.bar$L.
func (translator *VMTranslator) scopedLabel(label string) string {
	return translator.currentFunction + "$" + label
}

func (translator *VMTranslator) writeLabel(label string) {
	translator.emit("(" + translator.scopedLabel(label) + ")")
}

func (translator *VMTranslator) writeGoto(label string) {
	translator.emit("@"+translator.scopedLabel(label), "0;JMP")
}

// writeIf jumps when the popped value isn't 0.
func (translator *VMTranslator) writeIf(label string) {
	translator.pop()
	translator.emit("@"+translator.scopedLabel(label), "D;JNE")
}

func (translator *VMTranslator) writeFunction(funcName string, nLocals int) {
	translator.currentFunction, translator.funcCallID = funcName, 0
	translator.emit("(" + funcName + ")")
	for i := 0; i < nLocals; i++ {
		translator.emit("D=0")
		translator.push()
	}
}

// writeCall saves the caller frame and jumps to funcName:
// push return-address, LCL, ARG, THIS, THAT
// ARG = SP - nArgs - 5
// LCL = SP
// goto funcName
// (return-address)
func (translator *VMTranslator) writeCall(funcName string, nArgs int) {
	returnAddress := fmt.Sprintf("%s$ret.%d", translator.currentFunction, translator.funcCallID)
	translator.funcCallID++
	translator.emit("@"+returnAddress, "D=A")
	translator.push()
	for _, register := range []string{"@LCL", "@ARG", "@THIS", "@THAT"} {
		translator.emit(register, "D=M")
		translator.push()
	}
	translator.emit(
		"@SP",
		"D=M",
		"@"+strconv.Itoa(nArgs+5),
		"D=D-A",
		"@ARG",
		"M=D",
		"@SP",
		"D=M",
		"@LCL",
		"M=D",
		"@"+funcName,
		"0;JMP",
		"("+returnAddress+")",
	)
}

// writeReturn restores the caller frame. R13 walks the frame down from LCL, R14 keeps the
// original ARG and R15 the return value: when the callee has no arguments *ARG is the saved
// return address, so the value can only be stored after the address was read.
func (translator *VMTranslator) writeReturn() {
	translator.emit("@LCL", "D=M", "@R13", "M=D", "@ARG", "D=M", "@R14", "M=D")
	translator.pop()
	translator.emit("@R15", "M=D")
	// SP = ARG + 1
	translator.emit("@ARG", "D=M+1", "@SP", "M=D")
	for _, register := range []string{"@THAT", "@THIS", "@ARG", "@LCL"} {
		translator.emit("@R13", "AM=M-1", "D=M", register, "M=D")
	}
	// R13 = return address
	translator.emit("@R13", "AM=M-1", "D=M", "@R13", "M=D")
	// *original ARG = return value
	translator.emit("@R15", "D=M", "@R14", "A=M", "M=D")
	translator.emit("@R13", "A=M", "0;JMP")
}

// WriteInitializeCode writes the bootstrap code:
// SP = 256
// call Sys.init 0
// and a halting loop in case Sys.init returns.
func (translator *VMTranslator) WriteInitializeCode() {
	translator.currentFunction, translator.funcCallID = "bootstrap", 0
	translator.emit("// bootstrap", "@256", "D=A", "@SP", "M=D")
	translator.writeCall("Sys.init", 0)
	translator.emit("($InfiniteLoop)", "@$InfiniteLoop", "0;JMP")
}
