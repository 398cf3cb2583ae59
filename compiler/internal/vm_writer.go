package internal

import (
	"bufio"
	"fmt"
	"io"
)

type Segment int

const (
	ConstantSegment Segment = iota
	ArgumentSegment
	LocalSegment
	StaticSegment
	ThisSegment
	ThatSegment
	PointerSegment
	TempSegment
)

func (segment Segment) String() string {
	switch segment {
	case ConstantSegment:
		return "constant"
	case ArgumentSegment:
		return "argument"
	case LocalSegment:
		return "local"
	case StaticSegment:
		return "static"
	case ThisSegment:
		return "this"
	case ThatSegment:
		return "that"
	case PointerSegment:
		return "pointer"
	case TempSegment:
		return "temp"
	}
	return "unknown"
}

// Command is one of the arithmetic-logic vm commands.
type Command int

const (
	AddCommand Command = iota
	SubCommand
	NegCommand
	EqCommand
	GtCommand
	LtCommand
	AndCommand
	OrCommand
	NotCommand
)

func (command Command) String() string {
	switch command {
	case AddCommand:
		return "add"
	case SubCommand:
		return "sub"
	case NegCommand:
		return "neg"
	case EqCommand:
		return "eq"
	case GtCommand:
		return "gt"
	case LtCommand:
		return "lt"
	case AndCommand:
		return "and"
	case OrCommand:
		return "or"
	case NotCommand:
		return "not"
	}
	return "unknown"
}

// VMWriter writes vm commands, one per line. It does no validation; a write error is kept
// by the underlying bufio.Writer and reported by Flush.
type VMWriter struct {
	output *bufio.Writer
}

func NewVMWriter(w io.Writer) *VMWriter {
	return &VMWriter{output: bufio.NewWriter(w)}
}

func (writer *VMWriter) writeOutput(format string, args ...interface{}) {
	fmt.Fprintf(writer.output, format, args...)
	writer.output.WriteByte('\n')
}

func (writer *VMWriter) WritePush(segment Segment, index int) {
	writer.writeOutput("push %s %d", segment, index)
}

func (writer *VMWriter) WritePop(segment Segment, index int) {
	writer.writeOutput("pop %s %d", segment, index)
}

func (writer *VMWriter) WriteArithmetic(command Command) {
	writer.writeOutput("%s", command)
}

func (writer *VMWriter) WriteLabel(label string) {
	writer.writeOutput("label %s", label)
}

func (writer *VMWriter) WriteGoto(label string) {
	writer.writeOutput("goto %s", label)
}

func (writer *VMWriter) WriteIf(label string) {
	writer.writeOutput("if-goto %s", label)
}

func (writer *VMWriter) WriteFunction(name string, nLocals int) {
	writer.writeOutput("function %s %d", name, nLocals)
}

func (writer *VMWriter) WriteCall(name string, nArgs int) {
	writer.writeOutput("call %s %d", name, nArgs)
}

func (writer *VMWriter) WriteReturn() {
	writer.writeOutput("return")
}

// WriteString builds a String object holding str and leaves it on the stack.
func (writer *VMWriter) WriteString(str string) {
	runes := []rune(str)
	writer.WritePush(ConstantSegment, len(runes))
	writer.WriteCall("String.new", 1)
	for _, ch := range runes {
		writer.WritePush(ConstantSegment, int(ch))
		writer.WriteCall("String.appendChar", 2)
	}
}

func (writer *VMWriter) Flush() error {
	if err := writer.output.Flush(); err != nil {
		return fmt.Errorf("write vm code: %w", err)
	}
	return nil
}
