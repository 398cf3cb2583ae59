package internal

import (
	"fmt"
	"strings"
)

// Parser is a single pass recursive descent compiler for one jack class. It pulls tokens
// from the tokenizer, fills the symbol table on every declaration and writes vm code for
// every executable construct as soon as it is recognized. There is no syntax tree.
type Parser struct {
	tokenizer    *Tokenizer
	writer       *VMWriter
	tracer       *XMLTracer
	symbolTable  *SymbolTable
	className    string
	funcName     string
	funcTP       KeyWord
	labelCounter int
	strict       bool
}

// NewParser returns a parser for one class. tracer may be nil. With strict set, declaring a
// name twice in the same scope is a resolution error instead of an overwrite.
func NewParser(tokenizer *Tokenizer, writer *VMWriter, tracer *XMLTracer, strict bool) *Parser {
	return &Parser{
		tokenizer:   tokenizer,
		writer:      writer,
		tracer:      tracer,
		symbolTable: NewSymbolTable(),
		strict:      strict,
	}
}

func (parser *Parser) current() *Token {
	return parser.tokenizer.Current()
}

// stepForward traces the current token and moves to the next one.
func (parser *Parser) stepForward() error {
	parser.tracer.token(parser.current())
	return parser.tokenizer.Advance()
}

func (parser *Parser) makeSyntaxError(expected string) error {
	token := parser.current()
	return makeError(SyntaxError, token.line, "expected %s, found %s", expected, token)
}

func (parser *Parser) expectKeyWord(kws ...KeyWord) (KeyWord, error) {
	token := parser.current()
	if !token.isKeyWord(kws...) {
		names := make([]string, 0, len(kws))
		for _, kw := range kws {
			names = append(names, "'"+kw.String()+"'")
		}
		return 0, parser.makeSyntaxError(strings.Join(names, " or "))
	}
	kw := token.keyWord
	return kw, parser.stepForward()
}

func (parser *Parser) expectSymbol(symbol byte) error {
	if !parser.current().isSymbol(string(symbol)) {
		return parser.makeSyntaxError(fmt.Sprintf("'%c'", symbol))
	}
	return parser.stepForward()
}

func (parser *Parser) expectIdentifier(what string) (string, error) {
	token := parser.current()
	if token.tp != IdentifierTP {
		return "", parser.makeSyntaxError(what)
	}
	name := token.content
	return name, parser.stepForward()
}

// expectType matches int, char, boolean or a class name, and void when allowVoid is set.
func (parser *Parser) expectType(allowVoid bool) (string, error) {
	token := parser.current()
	if token.isKeyWord(IntKW, CharKW, BooleanKW) || (allowVoid && token.isKeyWord(VoidKW)) {
		tp := token.content
		return tp, parser.stepForward()
	}
	if token.tp == IdentifierTP {
		return parser.expectIdentifier("type")
	}
	if allowVoid {
		return "", parser.makeSyntaxError("return type")
	}
	return "", parser.makeSyntaxError("type")
}

func (parser *Parser) defineVariable(name, tp string, kind Kind, line int) error {
	if parser.strict && parser.symbolTable.DeclaredInScope(name, kind) {
		return makeError(ResolutionError, line, "%s is already declared in this scope", name)
	}
	parser.symbolTable.Define(name, tp, kind)
	return nil
}

// parseVarNames parses `name (',' name)* ';'` and defines every name with tp and kind.
func (parser *Parser) parseVarNames(tp string, kind Kind) error {
	for {
		line := parser.current().line
		name, err := parser.expectIdentifier("variable name")
		if err != nil {
			return err
		}
		if err = parser.defineVariable(name, tp, kind, line); err != nil {
			return err
		}
		if !parser.current().isSymbol(",") {
			break
		}
		if err = parser.stepForward(); err != nil {
			return err
		}
	}
	return parser.expectSymbol(';')
}

func (parser *Parser) newLabelID() int {
	id := parser.labelCounter
	parser.labelCounter++
	return id
}

// ParseClass compiles a whole source file holding exactly one class.
// class Identifier {
//     classVarDec*
//     subroutineDec*
// }
func (parser *Parser) ParseClass() (err error) {
	if err = parser.tokenizer.Advance(); err != nil {
		return err
	}
	parser.tracer.open("class")
	if _, err = parser.expectKeyWord(ClassKW); err != nil {
		return
	}
	if parser.className, err = parser.expectIdentifier("class name"); err != nil {
		return
	}
	if err = parser.expectSymbol('{'); err != nil {
		return
	}
	for parser.current().isKeyWord(StaticKW, FieldKW) {
		if err = parser.parseClassVarDec(); err != nil {
			return
		}
	}
	for parser.current().isKeyWord(ConstructorKW, FunctionKW, MethodKW) {
		if err = parser.parseSubroutineDec(); err != nil {
			return
		}
	}
	if err = parser.expectSymbol('}'); err != nil {
		return
	}
	parser.tracer.close("class")
	if parser.tokenizer.HasMoreTokens() {
		return parser.makeSyntaxError("end of input after class " + parser.className)
	}
	return nil
}

// ClassName is the name of the compiled class, known once its declaration was parsed.
func (parser *Parser) ClassName() string {
	return parser.className
}

// (static | field) type varName (, varName)* ;
func (parser *Parser) parseClassVarDec() error {
	parser.tracer.open("classVarDec")
	kw, err := parser.expectKeyWord(StaticKW, FieldKW)
	if err != nil {
		return err
	}
	kind := StaticKind
	if kw == FieldKW {
		kind = FieldKind
	}
	tp, err := parser.expectType(false)
	if err != nil {
		return err
	}
	if err = parser.parseVarNames(tp, kind); err != nil {
		return err
	}
	parser.tracer.close("classVarDec")
	return nil
}

// (constructor | function | method) (void | type) subroutineName ( parameterList ) subroutineBody
func (parser *Parser) parseSubroutineDec() (err error) {
	parser.tracer.open("subroutineDec")
	if parser.funcTP, err = parser.expectKeyWord(ConstructorKW, FunctionKW, MethodKW); err != nil {
		return
	}
	if _, err = parser.expectType(true); err != nil {
		return
	}
	if parser.funcName, err = parser.expectIdentifier("subroutine name"); err != nil {
		return
	}
	parser.symbolTable.StartSubroutine()
	if parser.funcTP == MethodKW {
		// argument 0 is the receiver.
		parser.symbolTable.Define("this", parser.className, ArgKind)
	}
	if err = parser.expectSymbol('('); err != nil {
		return
	}
	if err = parser.parseParameterList(); err != nil {
		return
	}
	if err = parser.expectSymbol(')'); err != nil {
		return
	}
	if err = parser.parseSubroutineBody(); err != nil {
		return
	}
	parser.tracer.close("subroutineDec")
	return nil
}

// ((type varName) (, type varName)*)?
func (parser *Parser) parseParameterList() error {
	parser.tracer.open("parameterList")
	if parser.current().isSymbol(")") {
		parser.tracer.close("parameterList")
		return nil
	}
	for {
		tp, err := parser.expectType(false)
		if err != nil {
			return err
		}
		line := parser.current().line
		name, err := parser.expectIdentifier("parameter name")
		if err != nil {
			return err
		}
		if err = parser.defineVariable(name, tp, ArgKind, line); err != nil {
			return err
		}
		if !parser.current().isSymbol(",") {
			break
		}
		if err = parser.stepForward(); err != nil {
			return err
		}
	}
	parser.tracer.close("parameterList")
	return nil
}

// { varDec* statements }
func (parser *Parser) parseSubroutineBody() error {
	parser.tracer.open("subroutineBody")
	if err := parser.expectSymbol('{'); err != nil {
		return err
	}
	for parser.current().isKeyWord(VarKW) {
		if err := parser.parseVarDec(); err != nil {
			return err
		}
	}
	parser.writer.WriteFunction(parser.className+"."+parser.funcName, parser.symbolTable.VarCount(VarKind))
	switch parser.funcTP {
	case ConstructorKW:
		parser.writer.WritePush(ConstantSegment, parser.symbolTable.VarCount(FieldKind))
		parser.writer.WriteCall("Memory.alloc", 1)
		parser.writer.WritePop(PointerSegment, 0)
	case MethodKW:
		parser.writer.WritePush(ArgumentSegment, 0)
		parser.writer.WritePop(PointerSegment, 0)
	}
	endsWithReturn, err := parser.parseStatements()
	if err != nil {
		return err
	}
	if !endsWithReturn {
		parser.writer.WritePush(ConstantSegment, 0)
		parser.writer.WriteReturn()
	}
	if err = parser.expectSymbol('}'); err != nil {
		return err
	}
	parser.tracer.close("subroutineBody")
	return nil
}

// var type varName (, varName)* ;
func (parser *Parser) parseVarDec() error {
	parser.tracer.open("varDec")
	if _, err := parser.expectKeyWord(VarKW); err != nil {
		return err
	}
	tp, err := parser.expectType(false)
	if err != nil {
		return err
	}
	if err = parser.parseVarNames(tp, VarKind); err != nil {
		return err
	}
	parser.tracer.close("varDec")
	return nil
}

// parseStatements reports whether the last statement parsed was a return.
func (parser *Parser) parseStatements() (endsWithReturn bool, err error) {
	parser.tracer.open("statements")
	for {
		token := parser.current()
		if token.tp != KeyWordTP {
			break
		}
		kw := token.keyWord
		switch kw {
		case LetKW:
			err = parser.parseLetStatement()
		case IfKW:
			err = parser.parseIfStatement()
		case WhileKW:
			err = parser.parseWhileStatement()
		case DoKW:
			err = parser.parseDoStatement()
		case ReturnKW:
			err = parser.parseReturnStatement()
		default:
			parser.tracer.close("statements")
			return endsWithReturn, nil
		}
		if err != nil {
			return false, err
		}
		endsWithReturn = kw == ReturnKW
	}
	parser.tracer.close("statements")
	return endsWithReturn, nil
}

// let varName ([ expression ])? = expression ;
func (parser *Parser) parseLetStatement() error {
	parser.tracer.open("letStatement")
	if err := parser.stepForward(); err != nil {
		return err
	}
	line := parser.current().line
	name, err := parser.expectIdentifier("variable name")
	if err != nil {
		return err
	}
	desc, ok := parser.symbolTable.Lookup(name)
	if !ok {
		return makeError(ResolutionError, line, "undeclared variable %s", name)
	}
	isArray := parser.current().isSymbol("[")
	if isArray {
		// The target address goes on the stack before the value is computed, so that an
		// array access inside the value can not clobber pointer 1.
		parser.writer.WritePush(desc.Kind.Segment(), desc.Index)
		if err = parser.stepForward(); err != nil {
			return err
		}
		if err = parser.parseExpression(); err != nil {
			return err
		}
		if err = parser.expectSymbol(']'); err != nil {
			return err
		}
		parser.writer.WriteArithmetic(AddCommand)
	}
	if err = parser.expectSymbol('='); err != nil {
		return err
	}
	if err = parser.parseExpression(); err != nil {
		return err
	}
	if err = parser.expectSymbol(';'); err != nil {
		return err
	}
	if isArray {
		parser.writer.WritePop(TempSegment, 0)
		parser.writer.WritePop(PointerSegment, 1)
		parser.writer.WritePush(TempSegment, 0)
		parser.writer.WritePop(ThatSegment, 0)
	} else {
		parser.writer.WritePop(desc.Kind.Segment(), desc.Index)
	}
	parser.tracer.close("letStatement")
	return nil
}

// parseBlock parses { statements }.
func (parser *Parser) parseBlock() error {
	if err := parser.expectSymbol('{'); err != nil {
		return err
	}
	if _, err := parser.parseStatements(); err != nil {
		return err
	}
	return parser.expectSymbol('}')
}

// parseCondition parses ( expression ) and leaves the negated value on the stack.
func (parser *Parser) parseCondition() error {
	if err := parser.expectSymbol('('); err != nil {
		return err
	}
	if err := parser.parseExpression(); err != nil {
		return err
	}
	if err := parser.expectSymbol(')'); err != nil {
		return err
	}
	parser.writer.WriteArithmetic(NotCommand)
	return nil
}

// if ( expression ) { statements } (else { statements })?
func (parser *Parser) parseIfStatement() error {
	parser.tracer.open("ifStatement")
	id := parser.newLabelID()
	elseLabel, endLabel := fmt.Sprintf("IF_ELSE_%d", id), fmt.Sprintf("IF_END_%d", id)
	if err := parser.stepForward(); err != nil {
		return err
	}
	if err := parser.parseCondition(); err != nil {
		return err
	}
	parser.writer.WriteIf(elseLabel)
	if err := parser.parseBlock(); err != nil {
		return err
	}
	parser.writer.WriteGoto(endLabel)
	parser.writer.WriteLabel(elseLabel)
	if parser.current().isKeyWord(ElseKW) {
		if err := parser.stepForward(); err != nil {
			return err
		}
		if err := parser.parseBlock(); err != nil {
			return err
		}
	}
	parser.writer.WriteLabel(endLabel)
	parser.tracer.close("ifStatement")
	return nil
}

// while ( expression ) { statements }
func (parser *Parser) parseWhileStatement() error {
	parser.tracer.open("whileStatement")
	id := parser.newLabelID()
	continueLabel, endLabel := fmt.Sprintf("WHILE_CONTINUE_%d", id), fmt.Sprintf("WHILE_END_%d", id)
	if err := parser.stepForward(); err != nil {
		return err
	}
	parser.writer.WriteLabel(continueLabel)
	if err := parser.parseCondition(); err != nil {
		return err
	}
	parser.writer.WriteIf(endLabel)
	if err := parser.parseBlock(); err != nil {
		return err
	}
	parser.writer.WriteGoto(continueLabel)
	parser.writer.WriteLabel(endLabel)
	parser.tracer.close("whileStatement")
	return nil
}

// do subroutineCall ;
func (parser *Parser) parseDoStatement() error {
	parser.tracer.open("doStatement")
	if err := parser.stepForward(); err != nil {
		return err
	}
	name, err := parser.expectIdentifier("subroutine name")
	if err != nil {
		return err
	}
	if !parser.current().isSymbol(".(") {
		return parser.makeSyntaxError("'(' or '.'")
	}
	if err = parser.parseSubroutineCall(name); err != nil {
		return err
	}
	if err = parser.expectSymbol(';'); err != nil {
		return err
	}
	// Every call leaves a value, even a void one.
	parser.writer.WritePop(TempSegment, 0)
	parser.tracer.close("doStatement")
	return nil
}

// return expression? ;
func (parser *Parser) parseReturnStatement() error {
	parser.tracer.open("returnStatement")
	if err := parser.stepForward(); err != nil {
		return err
	}
	if parser.current().isSymbol(";") {
		parser.writer.WritePush(ConstantSegment, 0)
	} else if err := parser.parseExpression(); err != nil {
		return err
	}
	if err := parser.expectSymbol(';'); err != nil {
		return err
	}
	parser.writer.WriteReturn()
	parser.tracer.close("returnStatement")
	return nil
}
