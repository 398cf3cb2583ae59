package internal

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nandgame/hack/util"
)

// A simple vm translator to transform vm language to hack assembler code.

// There are four kinds of vm commands, they are:
// * Arithmetic commands: add, sub, neg, eq, gt, lt, and, or, not.
// * Memory access commands: push|pop segment index, where segment can be
//   argument, local, static, constant, this, that, pointer, temp.
// * Program flow commands: label name, goto name, if-goto name.
// * Function calling commands: function f nLocals, call f nArgs, return.
//
// Commands are one per line, keywords are case insensitive, `//` starts a comment.

type KeyWordTP int

const (
	PushKeyWordTP KeyWordTP = iota
	PopKeyWordTP
	ArgumentKeyWordTP
	LocalKeyWordTP
	StaticKeyWordTP
	ConstantKeyWordTP
	ThisKeyWordTP
	ThatKeyWordTP
	PointerKeyWordTP
	TempKeyWordTP
	AddKeyWordTP
	SubKeyWordTP
	NegKeyWordTP
	EqKeyWordTP
	GtKeyWordTP
	LtKeyWordTP
	AndKeyWordTP
	OrKeyWordTP
	NotKeyWordTP
	LabelKeyWordTP
	IfGotoKeyWordTP
	GotoKeyWordTP
	FunctionKeyWordTP
	CallKeyWordTP
	ReturnKeyWordTP
)

var keyWordsMap = map[string]KeyWordTP{
	"PUSH":     PushKeyWordTP,
	"POP":      PopKeyWordTP,
	"ARGUMENT": ArgumentKeyWordTP,
	"LOCAL":    LocalKeyWordTP,
	"STATIC":   StaticKeyWordTP,
	"CONSTANT": ConstantKeyWordTP,
	"THIS":     ThisKeyWordTP,
	"THAT":     ThatKeyWordTP,
	"POINTER":  PointerKeyWordTP,
	"TEMP":     TempKeyWordTP,
	"ADD":      AddKeyWordTP,
	"SUB":      SubKeyWordTP,
	"NEG":      NegKeyWordTP,
	"EQ":       EqKeyWordTP,
	"GT":       GtKeyWordTP,
	"LT":       LtKeyWordTP,
	"AND":      AndKeyWordTP,
	"OR":       OrKeyWordTP,
	"NOT":      NotKeyWordTP,
	"LABEL":    LabelKeyWordTP,
	"IF-GOTO":  IfGotoKeyWordTP,
	"GOTO":     GotoKeyWordTP,
	"FUNCTION": FunctionKeyWordTP,
	"CALL":     CallKeyWordTP,
	"RETURN":   ReturnKeyWordTP,
}

const (
	maxConstant = 32767
	tempSize    = 8
)

type Options struct {
	// Path is a .vm file or a directory of .vm files.
	Path string
	// Output is the .asm file. Empty means Foo.asm next to Foo.vm, or dir/dir.asm for a directory.
	Output string
	// WriteInit writes the bootstrap code: SP=256, call Sys.init 0.
	WriteInit bool
}

type VMTranslator struct {
	fileName        string
	lineCounter     int
	output          *bufio.Writer
	labelNameID     int
	funcCallID      int
	currentFunction string
}

func NewVMTranslator(w io.Writer) *VMTranslator {
	return &VMTranslator{output: bufio.NewWriter(w)}
}

// Translate translates every vm file named by opts.Path into one assembly file and returns
// its path. A failed translation leaves no output file behind.
func Translate(opts Options) (string, error) {
	files, err := collectVMFiles(opts.Path)
	if err != nil {
		return "", err
	}
	saved := opts.Output
	if saved == "" {
		saved = defaultOutputPath(opts.Path)
	}
	log.Printf("translating %s -> %s", opts.Path, saved)
	if err = translateTo(saved, files, opts.WriteInit); err != nil {
		return "", err
	}
	return saved, nil
}

func translateTo(saved string, files []string, writeInit bool) (err error) {
	f, err := os.Create(saved)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close output: %w", cerr)
		}
		if err != nil {
			os.Remove(saved)
		}
	}()
	translator := NewVMTranslator(f)
	if writeInit {
		translator.WriteInitializeCode()
	}
	for _, file := range files {
		if err = translator.TranslateFile(file); err != nil {
			return err
		}
	}
	return translator.Flush()
}

// IsProgramDir reports whether path is a directory, which translates as a whole program
// starting at Sys.init.
func IsProgramDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isVMFile(fileName string) bool {
	return filepath.Ext(fileName) == ".vm"
}

func collectVMFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("vmtranslator: %w", err)
	}
	if !info.IsDir() {
		if !isVMFile(path) {
			return nil, fmt.Errorf("vmtranslator: %s is not a .vm file", path)
		}
		return []string{path}, nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("vmtranslator: %w", err)
	}
	var files []string
	for _, entry := range entries {
		// Ignore sub path and not vm file.
		if entry.IsDir() || !isVMFile(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(path, entry.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("vmtranslator: no .vm file in %s", path)
	}
	return files, nil
}

func defaultOutputPath(path string) string {
	clean := filepath.Clean(path)
	if isVMFile(clean) {
		return strings.TrimSuffix(clean, ".vm") + ".asm"
	}
	abs, err := filepath.Abs(clean)
	if err != nil {
		abs = clean
	}
	return filepath.Join(clean, filepath.Base(abs)+".asm")
}

func (translator *VMTranslator) TranslateFile(path string) error {
	rd, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open vm file: %w", err)
	}
	defer rd.Close()
	base := filepath.Base(path)
	return translator.Parse(strings.TrimSuffix(base, filepath.Ext(base)), rd)
}

// Parse translates the vm commands of one file. fileName, without extension, names the
// file's static variables and scopes labels written outside any function.
func (translator *VMTranslator) Parse(fileName string, rd io.Reader) error {
	translator.fileName, translator.lineCounter = fileName, 0
	translator.currentFunction, translator.funcCallID = fileName, 0
	reader := bufio.NewReader(rd)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("read vm file: %w", err)
		}
		translator.lineCounter++
		if perr := translator.parseLine(line); perr != nil {
			return perr
		}
		if err == io.EOF {
			return nil
		}
	}
}

func (translator *VMTranslator) Flush() error {
	if err := translator.output.Flush(); err != nil {
		return fmt.Errorf("write assembly: %w", err)
	}
	return nil
}

// getNextToken returns the first blank separated token of line and the rest of the line.
func (translator *VMTranslator) getNextToken(line []byte) (string, []byte) {
	line = bytes.TrimSpace(line)
	for i := 0; i < len(line); i++ {
		if util.IsBlank(line[i]) {
			return string(line[:i]), line[i:]
		}
	}
	return string(line), nil
}

func (translator *VMTranslator) parseLine(line []byte) (err error) {
	if i := bytes.Index(line, []byte("//")); i >= 0 {
		line = line[:i]
	}
	line = bytes.TrimSpace(line)
	token, remain := translator.getNextToken(line)
	if len(token) == 0 {
		return nil
	}
	keyWordTP, exist := keyWordsMap[strings.ToUpper(token)]
	if !exist {
		return translator.makeError(token)
	}
	translator.emit("// " + string(line))
	switch keyWordTP {
	case PushKeyWordTP, PopKeyWordTP:
		remain, err = translator.parseMemoryAccess(keyWordTP, remain)
	case AddKeyWordTP, SubKeyWordTP, NegKeyWordTP, EqKeyWordTP, GtKeyWordTP, LtKeyWordTP,
		AndKeyWordTP, OrKeyWordTP, NotKeyWordTP:
		translator.writeArithmetic(keyWordTP)
	case LabelKeyWordTP, IfGotoKeyWordTP, GotoKeyWordTP:
		remain, err = translator.parseProgramFlow(keyWordTP, remain)
	case FunctionKeyWordTP, CallKeyWordTP:
		remain, err = translator.parseFunctionOrCall(keyWordTP, remain)
	case ReturnKeyWordTP:
		translator.writeReturn()
	default:
		err = translator.makeError(token)
	}
	if err != nil {
		return err
	}
	return translator.parseRemainContent(remain)
}

// push|pop segment index
func (translator *VMTranslator) parseMemoryAccess(opTP KeyWordTP, line []byte) ([]byte, error) {
	token, line := translator.getNextToken(line)
	segment, exist := keyWordsMap[strings.ToUpper(token)]
	if !exist || segment < ArgumentKeyWordTP || segment > TempKeyWordTP {
		return nil, translator.makeError(token)
	}
	if opTP == PopKeyWordTP && segment == ConstantKeyWordTP {
		return nil, translator.makeError("pop " + token)
	}
	index, line, err := translator.getIntegerValue(line)
	if err != nil {
		return nil, err
	}
	switch {
	case segment == ConstantKeyWordTP && index > maxConstant,
		segment == PointerKeyWordTP && index > 1,
		segment == TempKeyWordTP && index >= tempSize:
		return nil, translator.makeError(strconv.Itoa(index))
	}
	if opTP == PushKeyWordTP {
		translator.writePush(segment, index)
	} else {
		translator.writePop(segment, index)
	}
	return line, nil
}

// getIntegerValue reads a non negative decimal.
func (translator *VMTranslator) getIntegerValue(line []byte) (int, []byte, error) {
	token, line := translator.getNextToken(line)
	if len(token) == 0 {
		return -1, nil, translator.makeError("end of line")
	}
	for i := 0; i < len(token); i++ {
		if !util.IsNumber(token[i]) {
			return -1, nil, translator.makeError(token)
		}
	}
	ret, err := strconv.Atoi(token)
	if err != nil {
		return -1, nil, translator.makeError(token)
	}
	return ret, line, nil
}

// parseLabelName reads a symbol made of letters, digits, '_', '.', '$', ':', not starting
// with a digit.
func (translator *VMTranslator) parseLabelName(line []byte) ([]byte, string, error) {
	token, line := translator.getNextToken(line)
	if len(token) == 0 {
		return nil, "", translator.makeError("end of line")
	}
	if !util.IsSymbolStart(token[0]) {
		return nil, "", translator.makeError(token)
	}
	for i := 1; i < len(token); i++ {
		if !util.IsSymbolPart(token[i]) {
			return nil, "", translator.makeError(token)
		}
	}
	return line, token, nil
}

// label|goto|if-goto name
func (translator *VMTranslator) parseProgramFlow(opTP KeyWordTP, line []byte) ([]byte, error) {
	line, label, err := translator.parseLabelName(line)
	if err != nil {
		return nil, err
	}
	switch opTP {
	case LabelKeyWordTP:
		translator.writeLabel(label)
	case GotoKeyWordTP:
		translator.writeGoto(label)
	case IfGotoKeyWordTP:
		translator.writeIf(label)
	}
	return line, nil
}

// function f nLocals | call f nArgs
func (translator *VMTranslator) parseFunctionOrCall(opTP KeyWordTP, line []byte) ([]byte, error) {
	line, funcName, err := translator.parseLabelName(line)
	if err != nil {
		return nil, err
	}
	n, line, err := translator.getIntegerValue(line)
	if err != nil {
		return nil, err
	}
	if opTP == FunctionKeyWordTP {
		translator.writeFunction(funcName, n)
	} else {
		translator.writeCall(funcName, n)
	}
	return line, nil
}

func (translator *VMTranslator) parseRemainContent(line []byte) error {
	remain := bytes.TrimSpace(line)
	if len(remain) == 0 {
		return nil
	}
	return translator.makeError(string(remain))
}

func (translator *VMTranslator) makeError(near string) error {
	return fmt.Errorf("%s.vm:%d: syntax error near %q", translator.fileName, translator.lineCounter, near)
}
