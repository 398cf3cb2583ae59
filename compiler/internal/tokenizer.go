package internal

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/nandgame/hack/util"
)

// A streaming Tokenizer for jack.

// Jack language has those elements:
// * KeyWord: class, constructor, function, method, field, static, var, int, char, boolean, void, true.
// 			false, null, this, let, do, if, else, while, return.
// * Symbol: {, }, (, ), [, ], ., ,, ;, +, -, *, /, &, |, <, >, =, ~.
// * Constant: integer (0..32767), string ("xxx", no escapes)
// * Identifier: letters, digits, underscore, not starting with a digit.
// * Comment: /**/, //.
//
// Tokens are produced one at a time, the tokenizer only remembers the current one.

type TokenType int

const (
	KeyWordTP    TokenType = iota // class
	SymbolTP                      // {
	IntegerTP                     // 1010
	StringTP                      // "xxx"
	IdentifierTP                  // varA
	EOFTP                         // end of input
)

func (tp TokenType) String() string {
	switch tp {
	case KeyWordTP:
		return "keyword"
	case SymbolTP:
		return "symbol"
	case IntegerTP:
		return "integerConstant"
	case StringTP:
		return "stringConstant"
	case IdentifierTP:
		return "identifier"
	case EOFTP:
		return "EOF"
	}
	return "unknown"
}

type KeyWord int

const (
	ClassKW KeyWord = iota
	ConstructorKW
	FunctionKW
	MethodKW
	FieldKW
	StaticKW
	VarKW
	IntKW
	CharKW
	BooleanKW
	VoidKW
	TrueKW
	FalseKW
	NullKW
	ThisKW
	LetKW
	DoKW
	IfKW
	ElseKW
	WhileKW
	ReturnKW
)

// keyWordMap is the mapping from identifier text to the corresponding KeyWord.
var keyWordMap = map[string]KeyWord{
	"class":       ClassKW,
	"constructor": ConstructorKW,
	"function":    FunctionKW,
	"method":      MethodKW,
	"field":       FieldKW,
	"static":      StaticKW,
	"var":         VarKW,
	"int":         IntKW,
	"char":        CharKW,
	"boolean":     BooleanKW,
	"void":        VoidKW,
	"true":        TrueKW,
	"false":       FalseKW,
	"null":        NullKW,
	"this":        ThisKW,
	"let":         LetKW,
	"do":          DoKW,
	"if":          IfKW,
	"else":        ElseKW,
	"while":       WhileKW,
	"return":      ReturnKW,
}

func (kw KeyWord) String() string {
	for name, k := range keyWordMap {
		if k == kw {
			return name
		}
	}
	return "unknown"
}

const (
	symbolCharacters   = "{}()[].,;+-*/&|<>=~"
	maxIntegerConstant = 32767
	eofChar            = rune(-1)
)

func isSymbol(ch rune) bool {
	return ch < utf8.RuneSelf && ch >= 0 && strings.IndexByte(symbolCharacters, byte(ch)) >= 0
}

func isASCII(ch rune, class func(byte) bool) bool {
	return ch >= 0 && ch < utf8.RuneSelf && class(byte(ch))
}

type Token struct {
	tp      TokenType
	content string
	keyWord KeyWord
	symbol  byte
	intVal  int
	line    int
}

func (t *Token) Type() TokenType  { return t.tp }
func (t *Token) Content() string  { return t.content }
func (t *Token) KeyWord() KeyWord { return t.keyWord }
func (t *Token) Symbol() byte     { return t.symbol }
func (t *Token) IntVal() int      { return t.intVal }
func (t *Token) Line() int        { return t.line }

func (t *Token) isKeyWord(kws ...KeyWord) bool {
	if t.tp != KeyWordTP {
		return false
	}
	for _, kw := range kws {
		if t.keyWord == kw {
			return true
		}
	}
	return false
}

func (t *Token) isSymbol(symbols string) bool {
	return t.tp == SymbolTP && strings.IndexByte(symbols, t.symbol) >= 0
}

func (t *Token) String() string {
	if t.tp == EOFTP {
		return "end of input"
	}
	return fmt.Sprintf("%s '%s'", t.tp, t.content)
}

type Tokenizer struct {
	reader      *bufio.Reader
	currentLine int
	current     Token
}

func NewTokenizer(rd io.Reader) *Tokenizer {
	return &Tokenizer{reader: bufio.NewReader(rd), currentLine: 1}
}

// Current returns the most recently recognized token.
func (tokenizer *Tokenizer) Current() *Token {
	return &tokenizer.current
}

func (tokenizer *Tokenizer) HasMoreTokens() bool {
	return tokenizer.current.tp != EOFTP
}

// Advance consumes characters until one complete token is recognized or the input ends,
// in which case the current token becomes EOFTP.
func (tokenizer *Tokenizer) Advance() error {
	for {
		ch, err := tokenizer.nextChar()
		if err != nil {
			return err
		}
		line := tokenizer.currentLine
		switch {
		case ch == eofChar:
			tokenizer.current = Token{tp: EOFTP, line: line}
			return nil
		case isASCII(ch, util.IsBlank):
			continue
		case ch == '/':
			isComment, err := tokenizer.skipComment(line)
			if err != nil {
				return err
			}
			if isComment {
				continue
			}
			tokenizer.current = Token{tp: SymbolTP, content: "/", symbol: '/', line: line}
			return nil
		case isSymbol(ch):
			tokenizer.current = Token{tp: SymbolTP, content: string(ch), symbol: byte(ch), line: line}
			return nil
		case isASCII(ch, util.IsLetterOrUnderscore):
			return tokenizer.tokenKeyWordOrIdentifier(ch, line)
		case isASCII(ch, util.IsNumber):
			return tokenizer.tokenNumber(ch, line)
		case ch == '"':
			return tokenizer.tokenString(line)
		default:
			return makeError(LexicalError, line, "unexpected character %q", ch)
		}
	}
}

func (tokenizer *Tokenizer) nextChar() (rune, error) {
	ch, _, err := tokenizer.reader.ReadRune()
	if err == io.EOF {
		return eofChar, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read source: %w", err)
	}
	if ch == '\n' {
		tokenizer.currentLine++
	}
	return ch, nil
}

// unreadChar is the single character of pushback used to end identifiers and numbers.
func (tokenizer *Tokenizer) unreadChar(ch rune) {
	if ch == eofChar {
		return
	}
	_ = tokenizer.reader.UnreadRune()
	if ch == '\n' {
		tokenizer.currentLine--
	}
}

// skipComment is called right after a '/' was read. It returns false, with the next
// character pushed back, when the '/' is a divide symbol.
func (tokenizer *Tokenizer) skipComment(startLine int) (bool, error) {
	ch, err := tokenizer.nextChar()
	if err != nil {
		return false, err
	}
	switch ch {
	case '/':
		for ch != '\n' && ch != eofChar {
			if ch, err = tokenizer.nextChar(); err != nil {
				return false, err
			}
		}
		return true, nil
	case '*':
		prevStar := false
		for {
			if ch, err = tokenizer.nextChar(); err != nil {
				return false, err
			}
			if ch == eofChar {
				return false, makeError(LexicalError, startLine, "unterminated comment")
			}
			if prevStar && ch == '/' {
				return true, nil
			}
			prevStar = ch == '*'
		}
	default:
		tokenizer.unreadChar(ch)
		return false, nil
	}
}

func (tokenizer *Tokenizer) tokenKeyWordOrIdentifier(first rune, line int) error {
	var sb strings.Builder
	sb.WriteRune(first)
	for {
		ch, err := tokenizer.nextChar()
		if err != nil {
			return err
		}
		if !isASCII(ch, util.IsLetterOrUnderscoreOrNumber) {
			tokenizer.unreadChar(ch)
			break
		}
		sb.WriteRune(ch)
	}
	content := sb.String()
	if kw, ok := keyWordMap[content]; ok {
		tokenizer.current = Token{tp: KeyWordTP, content: content, keyWord: kw, line: line}
		return nil
	}
	tokenizer.current = Token{tp: IdentifierTP, content: content, line: line}
	return nil
}

func (tokenizer *Tokenizer) tokenNumber(first rune, line int) error {
	var sb strings.Builder
	sb.WriteRune(first)
	value := int(first - '0')
	for {
		ch, err := tokenizer.nextChar()
		if err != nil {
			return err
		}
		if !isASCII(ch, util.IsNumber) {
			tokenizer.unreadChar(ch)
			break
		}
		sb.WriteRune(ch)
		if value <= maxIntegerConstant {
			value = value*10 + int(ch-'0')
		}
	}
	if value > maxIntegerConstant {
		return makeError(LexicalError, line, "integer constant %s out of range 0..%d", sb.String(), maxIntegerConstant)
	}
	tokenizer.current = Token{tp: IntegerTP, content: sb.String(), intVal: value, line: line}
	return nil
}

// tokenString takes every character up to the next '"' verbatim.
func (tokenizer *Tokenizer) tokenString(line int) error {
	var sb strings.Builder
	for {
		ch, err := tokenizer.nextChar()
		if err != nil {
			return err
		}
		if ch == eofChar {
			return makeError(LexicalError, line, "unterminated string constant")
		}
		if ch == '"' {
			break
		}
		// Every character becomes a push constant.
		if ch > maxIntegerConstant {
			return makeError(LexicalError, tokenizer.currentLine, "character %q in string constant out of range 0..%d", ch, maxIntegerConstant)
		}
		sb.WriteRune(ch)
	}
	tokenizer.current = Token{tp: StringTP, content: sb.String(), line: line}
	return nil
}
