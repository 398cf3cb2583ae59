package internal

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/nandgame/hack/util"
)

// A simple two pass assembler which transforms hack assembly code into hack binary code, aka
// the instructions supported by the hack CPU.

// The most ambiguous instruction is the A instruction, it is declared as @something and has
// these types:
// * @10 (decimal value), put this value to the A register.
// * @label, put the instruction address of label to A register. A label can be used before
//   it's declared, so labels are resolved in the second pass.
// * @R0-@R15, SP, LCL, ARG, THIS, THAT, SCREEN, KBD are predefined symbols.
// * @variable, any other symbol gets the next free data memory address starting at 16.

var predefinedVariables = map[string]int{
	"SP":     0,
	"LCL":    1,
	"ARG":    2,
	"THIS":   3,
	"THAT":   4,
	"SCREEN": 16384,
	"KBD":    24576,
}

func init() {
	for i := 0; i < 16; i++ {
		predefinedVariables["R"+strconv.Itoa(i)] = i
	}
}

var cCommandCompMap = map[string]string{
	"0":   "0101010",
	"1":   "0111111",
	"-1":  "0111010",
	"D":   "0001100",
	"A":   "0110000",
	"!D":  "0001101",
	"!A":  "0110001",
	"-D":  "0001111",
	"-A":  "0110011",
	"D+1": "0011111",
	"A+1": "0110111",
	"D-1": "0001110",
	"A-1": "0110010",
	"D+A": "0000010",
	"A+D": "0000010",
	"D-A": "0010011",
	"A-D": "0000111",
	"D&A": "0000000",
	"A&D": "0000000",
	"D|A": "0010101",
	"A|D": "0010101",
	"M":   "1110000",
	"!M":  "1110001",
	"-M":  "1110011",
	"M+1": "1110111",
	"M-1": "1110010",
	"D+M": "1000010",
	"M+D": "1000010",
	"D-M": "1010011",
	"M-D": "1000111",
	"D&M": "1000000",
	"M&D": "1000000",
	"D|M": "1010101",
	"M|D": "1010101",
}

var cCommandDestMap = map[string]string{
	"M":   "001",
	"D":   "010",
	"MD":  "011",
	"DM":  "011",
	"A":   "100",
	"AM":  "101",
	"MA":  "101",
	"AD":  "110",
	"DA":  "110",
	"AMD": "111",
	"ADM": "111",
	"DAM": "111",
	"DMA": "111",
	"MAD": "111",
	"MDA": "111",
}

var cCommandJumpMap = map[string]string{
	"JGT": "001",
	"JEQ": "010",
	"JGE": "011",
	"JLT": "100",
	"JNE": "101",
	"JLE": "110",
	"JMP": "111",
}

const (
	maxAddress        = 32767
	firstVariableAddr = 16
)

type CommandType int

const (
	ACommandConstant CommandType = iota
	ACommandLabel
	ACommandVariable
	CCommand
)

func (tp CommandType) String() string {
	switch tp {
	case ACommandConstant:
		return "constant"
	case ACommandLabel:
		return "label"
	case ACommandVariable:
		return "variable"
	default:
		return "compute"
	}
}

type Command struct {
	Tp              CommandType
	Code            string
	Line            int
	OriginalContent string
	// symbol is the unresolved name of an @symbol command.
	symbol string
}

func (command Command) String() string {
	return fmt.Sprintf("%s  // line %d: %s (%s)", command.Code, command.Line, command.OriginalContent, command.Tp)
}

type Assembler struct {
	line             int
	labelLocationMap map[string]int
	variableMap      map[string]int
	nextVariableAddr int
	commands         []Command
}

func NewAssembler() *Assembler {
	return &Assembler{
		labelLocationMap: map[string]int{},
		variableMap:      map[string]int{},
		nextVariableAddr: firstVariableAddr,
	}
}

// Assemble assembles the file at input into output. Empty output means Foo.hack next to
// Foo.asm. A failed run leaves no output file behind.
func Assemble(input, output string) (commands []Command, saved string, err error) {
	if output == "" {
		output = strings.TrimSuffix(input, ".asm") + ".hack"
	}
	log.Printf("assembling %s -> %s", input, output)
	rd, err := os.Open(input)
	if err != nil {
		return nil, "", fmt.Errorf("open assembly file: %w", err)
	}
	defer rd.Close()
	asm := NewAssembler()
	if commands, err = asm.Parse(rd); err != nil {
		return nil, "", err
	}
	f, err := os.Create(output)
	if err != nil {
		return nil, "", fmt.Errorf("create output: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close output: %w", cerr)
		}
		if err != nil {
			os.Remove(output)
		}
	}()
	if err = asm.WriteMachineCode(f); err != nil {
		return nil, "", err
	}
	return commands, output, nil
}

// Parse parses the input source which is a sequence of assembler code, and transfers them
// into a sequence of binary code supported by the hack computer. The returned value is a
// command array where each element is a machine instruction.
func (asm *Assembler) Parse(rd io.Reader) ([]Command, error) {
	bfReader := bufio.NewReader(rd)
	for {
		line, err := bfReader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("read assembly: %w", err)
		}
		asm.line++
		// The last line may have no trailing newline.
		if trimmed, ok := asm.trimLine(line); ok {
			if terr := asm.transformLine(trimmed); terr != nil {
				return nil, terr
			}
		}
		if err == io.EOF {
			break
		}
	}
	asm.resolveSymbols()
	return asm.commands, nil
}

// resolveSymbols is the second pass. @symbol commands point to an address which isn't known
// before all label declarations are parsed: a symbol is a label if it's declared anywhere,
// otherwise a variable.
func (asm *Assembler) resolveSymbols() {
	for i := range asm.commands {
		command := &asm.commands[i]
		if command.symbol == "" {
			continue
		}
		if labelAddr, exist := asm.labelLocationMap[command.symbol]; exist {
			command.Tp = ACommandLabel
			command.Code = formatCode(labelAddr)
			continue
		}
		addr, exist := asm.variableMap[command.symbol]
		if !exist {
			addr = asm.nextVariableAddr
			asm.variableMap[command.symbol] = addr
			asm.nextVariableAddr++
		}
		command.Tp = ACommandVariable
		command.Code = formatCode(addr)
	}
}

// trimLine removes spaces and comments from line, then returns whether the line has other
// characters left.
func (asm *Assembler) trimLine(line []byte) ([]byte, bool) {
	if index := bytes.Index(line, []byte("//")); index != -1 {
		line = line[:index]
	}
	line = bytes.TrimSpace(line)
	return line, len(line) > 0
}

func (asm *Assembler) transformLine(line []byte) error {
	switch line[0] {
	case '@':
		return asm.transformACommand(line)
	case '(':
		return asm.transformLabelCommand(line)
	default:
		return asm.transformCCommand(line)
	}
}

var variableOrLabelFormat = regexp.MustCompile(`^[a-zA-Z_.$:][0-9a-zA-Z_.$:]*$`)

func (asm *Assembler) transformACommand(line []byte) error {
	originalContent := string(line)
	symbol := string(line[1:])
	if len(symbol) == 0 {
		return asm.makeSyntaxErr("missing value after @")
	}
	if util.IsNumber(symbol[0]) {
		return asm.transformADecimalCommand(line)
	}
	if addr, exist := predefinedVariables[symbol]; exist {
		asm.appendCommand(ACommandVariable, formatCode(addr), originalContent)
		return nil
	}
	if !variableOrLabelFormat.MatchString(symbol) {
		return asm.makeSyntaxErr(fmt.Sprintf("wrong variable or label format near %s", originalContent))
	}
	// A placeholder, resolved by resolveSymbols.
	asm.appendCommand(ACommandLabel, "", originalContent)
	asm.commands[len(asm.commands)-1].symbol = symbol
	return nil
}

func (asm *Assembler) transformADecimalCommand(line []byte) error {
	value, err := strconv.Atoi(string(line[1:]))
	if err != nil || value < 0 || value > maxAddress {
		return asm.makeSyntaxErr(fmt.Sprintf("wrong decimal value near %s, expect 0..%d", line, maxAddress))
	}
	asm.appendCommand(ACommandConstant, formatCode(value), string(line))
	return nil
}

// transformLabelCommand records the address of '(label)', which is the address of the next
// instruction. Labels don't take an instruction slot.
func (asm *Assembler) transformLabelCommand(line []byte) error {
	if line[len(line)-1] != ')' {
		return asm.makeSyntaxErr(fmt.Sprintf("wrong label format near %s", line))
	}
	label := string(line[1 : len(line)-1])
	if !variableOrLabelFormat.MatchString(label) {
		return asm.makeSyntaxErr(fmt.Sprintf("wrong label format near %s", line))
	}
	if _, exist := asm.labelLocationMap[label]; exist {
		return asm.makeSyntaxErr(fmt.Sprintf("found duplicate label %s", label))
	}
	asm.labelLocationMap[label] = len(asm.commands)
	return nil
}

// transformCCommand parses a C command: dest=comp;jump, where dest and jump are optional.
func (asm *Assembler) transformCCommand(line []byte) error {
	originalContent := string(line)
	destCodeStr, line, err := asm.parseCCommandDestCode(line)
	if err != nil {
		return err
	}
	jumpCodeStr, line, err := asm.parseCCommandJumpCode(line)
	if err != nil {
		return err
	}
	compCodeStr, err := asm.parseCCommandCompCode(line)
	if err != nil {
		return err
	}
	asm.appendCommand(CCommand, "111"+compCodeStr+destCodeStr+jumpCodeStr, originalContent)
	return nil
}

func (asm *Assembler) parseCCommandDestCode(line []byte) (string, []byte, error) {
	dest := bytes.IndexByte(line, '=')
	if dest == -1 {
		return "000", line, nil
	}
	destCodeStr, exist := cCommandDestMap[string(bytes.TrimSpace(line[:dest]))]
	if !exist {
		return "", nil, asm.makeSyntaxErr(fmt.Sprintf("wrong c command of dest code format near %s", line))
	}
	return destCodeStr, line[dest+1:], nil
}

func (asm *Assembler) parseCCommandJumpCode(line []byte) (string, []byte, error) {
	comp := bytes.IndexByte(line, ';')
	if comp == -1 {
		return "000", line, nil
	}
	jumpCodeStr, exist := cCommandJumpMap[string(bytes.TrimSpace(line[comp+1:]))]
	if !exist {
		return "", nil, asm.makeSyntaxErr(fmt.Sprintf("wrong c command of jump code format near %s", line))
	}
	return jumpCodeStr, line[:comp], nil
}

func (asm *Assembler) parseCCommandCompCode(line []byte) (string, error) {
	compCodeStr, exist := cCommandCompMap[string(bytes.TrimSpace(line))]
	if !exist {
		return "", asm.makeSyntaxErr(fmt.Sprintf("wrong c command of comp code format near %s", line))
	}
	return compCodeStr, nil
}

func (asm *Assembler) appendCommand(tp CommandType, code, originalContent string) {
	asm.commands = append(asm.commands, Command{
		Tp:              tp,
		Code:            code,
		Line:            asm.line,
		OriginalContent: originalContent,
	})
}

// formatCode transfers value to a 16 bit binary code.
func formatCode(value int) string {
	code := [16]byte{}
	for j := 15; j >= 0; j-- {
		code[j] = byte(value&1) + '0'
		value >>= 1
	}
	return string(code[:])
}

func (asm *Assembler) makeSyntaxErr(msg string) error {
	return fmt.Errorf("syntax err at line %d: %s", asm.line, msg)
}

// WriteMachineCode writes one binary instruction per line.
func (asm *Assembler) WriteMachineCode(w io.Writer) error {
	bf := bufio.NewWriter(w)
	for _, command := range asm.commands {
		bf.WriteString(command.Code)
		bf.WriteByte('\n')
	}
	if err := bf.Flush(); err != nil {
		return fmt.Errorf("write machine code: %w", err)
	}
	return nil
}
