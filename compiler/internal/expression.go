package internal

const binaryOps = "+-*/&|<>="

// expression: term (op term)*
// There is no precedence: every operator is applied as soon as its right term is compiled,
// so a - b - c is (a - b) - c and a + b * c is (a + b) * c.
func (parser *Parser) parseExpression() error {
	parser.tracer.open("expression")
	if err := parser.parseExpressionTerm(); err != nil {
		return err
	}
	for parser.current().isSymbol(binaryOps) {
		op := parser.current().symbol
		if err := parser.stepForward(); err != nil {
			return err
		}
		if err := parser.parseExpressionTerm(); err != nil {
			return err
		}
		parser.writeOp(op)
	}
	parser.tracer.close("expression")
	return nil
}

func (parser *Parser) writeOp(op byte) {
	switch op {
	case '+':
		parser.writer.WriteArithmetic(AddCommand)
	case '-':
		parser.writer.WriteArithmetic(SubCommand)
	case '*':
		parser.writer.WriteCall("Math.multiply", 2)
	case '/':
		parser.writer.WriteCall("Math.divide", 2)
	case '&':
		parser.writer.WriteArithmetic(AndCommand)
	case '|':
		parser.writer.WriteArithmetic(OrCommand)
	case '<':
		parser.writer.WriteArithmetic(LtCommand)
	case '>':
		parser.writer.WriteArithmetic(GtCommand)
	case '=':
		parser.writer.WriteArithmetic(EqCommand)
	}
}

// term: integerConstant | stringConstant | keywordConstant | varName | varName[expression] |
// subroutineCall | (expression) | unaryOp term
func (parser *Parser) parseExpressionTerm() error {
	parser.tracer.open("term")
	token := parser.current()
	var err error
	switch token.tp {
	case IntegerTP:
		parser.writer.WritePush(ConstantSegment, token.intVal)
		err = parser.stepForward()
	case StringTP:
		parser.writer.WriteString(token.content)
		err = parser.stepForward()
	case KeyWordTP:
		err = parser.parseKeyWordConstant()
	case IdentifierTP:
		err = parser.parseSubRoutineCallOrVarTerm()
	case SymbolTP:
		switch token.symbol {
		case '(':
			err = parser.parseSubExpressionTerm()
		case '-', '~':
			err = parser.parseUnaryTerm()
		default:
			err = parser.makeSyntaxError("term")
		}
	default:
		err = parser.makeSyntaxError("term")
	}
	if err != nil {
		return err
	}
	parser.tracer.close("term")
	return nil
}

// true is -1, all bits set. false and null are 0.
func (parser *Parser) parseKeyWordConstant() error {
	switch parser.current().keyWord {
	case TrueKW:
		parser.writer.WritePush(ConstantSegment, 1)
		parser.writer.WriteArithmetic(NegCommand)
	case FalseKW, NullKW:
		parser.writer.WritePush(ConstantSegment, 0)
	case ThisKW:
		parser.writer.WritePush(PointerSegment, 0)
	default:
		return parser.makeSyntaxError("term")
	}
	return parser.stepForward()
}

func (parser *Parser) parseSubExpressionTerm() error {
	if err := parser.stepForward(); err != nil {
		return err
	}
	if err := parser.parseExpression(); err != nil {
		return err
	}
	return parser.expectSymbol(')')
}

func (parser *Parser) parseUnaryTerm() error {
	op := parser.current().symbol
	if err := parser.stepForward(); err != nil {
		return err
	}
	if err := parser.parseExpressionTerm(); err != nil {
		return err
	}
	if op == '-' {
		parser.writer.WriteArithmetic(NegCommand)
	} else {
		parser.writer.WriteArithmetic(NotCommand)
	}
	return nil
}

// The token after the identifier decides: '[' is an array read, '(' or '.' a subroutine
// call, anything else a plain variable read.
func (parser *Parser) parseSubRoutineCallOrVarTerm() error {
	line := parser.current().line
	name := parser.current().content
	if err := parser.stepForward(); err != nil {
		return err
	}
	switch {
	case parser.current().isSymbol("["):
		return parser.parseArrayIndexTerm(name, line)
	case parser.current().isSymbol(".("):
		return parser.parseSubroutineCall(name)
	}
	return parser.pushVariable(name, line)
}

func (parser *Parser) pushVariable(name string, line int) error {
	desc, ok := parser.symbolTable.Lookup(name)
	if !ok {
		return makeError(ResolutionError, line, "undeclared variable %s", name)
	}
	parser.writer.WritePush(desc.Kind.Segment(), desc.Index)
	return nil
}

// name [ expression ]
func (parser *Parser) parseArrayIndexTerm(name string, line int) error {
	if err := parser.pushVariable(name, line); err != nil {
		return err
	}
	if err := parser.stepForward(); err != nil {
		return err
	}
	if err := parser.parseExpression(); err != nil {
		return err
	}
	if err := parser.expectSymbol(']'); err != nil {
		return err
	}
	parser.writer.WriteArithmetic(AddCommand)
	parser.writer.WritePop(PointerSegment, 1)
	parser.writer.WritePush(ThatSegment, 0)
	return nil
}

// parseSubroutineCall is entered with name already consumed and the current token being
// '(' or '.'.
// name ( expressionList )                    method of this class, receiver is this
// name . subroutineName ( expressionList )   method of variable name, or function or
//                                            constructor of class name
func (parser *Parser) parseSubroutineCall(name string) error {
	nArgs := 0
	var callee string
	if parser.current().isSymbol(".") {
		if err := parser.stepForward(); err != nil {
			return err
		}
		funcName, err := parser.expectIdentifier("subroutine name")
		if err != nil {
			return err
		}
		if desc, ok := parser.symbolTable.Lookup(name); ok {
			parser.writer.WritePush(desc.Kind.Segment(), desc.Index)
			nArgs = 1
			callee = desc.Type + "." + funcName
		} else {
			callee = name + "." + funcName
		}
	} else {
		parser.writer.WritePush(PointerSegment, 0)
		nArgs = 1
		callee = parser.className + "." + name
	}
	if err := parser.expectSymbol('('); err != nil {
		return err
	}
	n, err := parser.parseExpressionList()
	if err != nil {
		return err
	}
	if err = parser.expectSymbol(')'); err != nil {
		return err
	}
	parser.writer.WriteCall(callee, nArgs+n)
	return nil
}

// (expression (, expression)*)?
func (parser *Parser) parseExpressionList() (int, error) {
	parser.tracer.open("expressionList")
	n := 0
	if !parser.current().isSymbol(")") {
		for {
			if err := parser.parseExpression(); err != nil {
				return 0, err
			}
			n++
			if !parser.current().isSymbol(",") {
				break
			}
			if err := parser.stepForward(); err != nil {
				return 0, err
			}
		}
	}
	parser.tracer.close("expressionList")
	return n, nil
}
