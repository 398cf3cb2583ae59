package internal

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compileSource(source string, strict bool) ([]string, error) {
	out := &bytes.Buffer{}
	_, err := CompileClass(strings.NewReader(source), out, nil, strict)
	if err != nil {
		return nil, err
	}
	return strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n"), nil
}

func mustCompile(t *testing.T, source string) []string {
	t.Helper()
	lines, err := compileSource(source, false)
	require.NoError(t, err, source)
	return lines
}

// inMain wraps body statements into Main.main with the given var declarations.
func inMain(vars, body string) string {
	return "class Main { function void main() { " + vars + " " + body + " return; } }"
}

func TestParser_EmptyMain(t *testing.T) {
	lines := mustCompile(t, "class Main { function void main() { return; } }")
	assert.Equal(t, []string{"function Main.main 0", "push constant 0", "return"}, lines)
}

func TestParser_Constructor(t *testing.T) {
	lines := mustCompile(t, `
class Point {
    field int x, y;
    constructor Point new(int ax, int ay) {
        let x = ax;
        let y = ay;
        return this;
    }
}`)
	assert.Equal(t, []string{
		"function Point.new 0",
		"push constant 2",
		"call Memory.alloc 1",
		"pop pointer 0",
		"push argument 0",
		"pop this 0",
		"push argument 1",
		"pop this 1",
		"push pointer 0",
		"return",
	}, lines)
}

func TestParser_Method(t *testing.T) {
	lines := mustCompile(t, `
class Square {
    field int size;
    static int count;
    method void grow(int by) {
        let size = size + by;
        let count = count + 1;
        do draw();
        return;
    }
}`)
	assert.Equal(t, []string{
		"function Square.grow 0",
		"push argument 0",
		"pop pointer 0",
		"push this 0",
		"push argument 1",
		"add",
		"pop this 0",
		"push static 0",
		"push constant 1",
		"add",
		"pop static 0",
		"push pointer 0",
		"call Square.draw 1",
		"pop temp 0",
		"push constant 0",
		"return",
	}, lines)
}

func TestParser_Expression(t *testing.T) {
	testData := []struct {
		Expr   string
		Expect []string
	}{
		{
			Expr:   "2 - 3 - 4",
			Expect: []string{"push constant 2", "push constant 3", "sub", "push constant 4", "sub"},
		},
		{
			Expr:   "2 - (3 - 4)",
			Expect: []string{"push constant 2", "push constant 3", "push constant 4", "sub", "sub"},
		},
		{
			Expr:   "1 + 2 * 3",
			Expect: []string{"push constant 1", "push constant 2", "add", "push constant 3", "call Math.multiply 2"},
		},
		{
			Expr:   "8 / 2 & 1 | 0",
			Expect: []string{"push constant 8", "push constant 2", "call Math.divide 2", "push constant 1", "and", "push constant 0", "or"},
		},
		{
			Expr:   "1 < 2 = (3 > 4)",
			Expect: []string{"push constant 1", "push constant 2", "lt", "push constant 3", "push constant 4", "gt", "eq"},
		},
		{
			Expr:   "-5 + ~0",
			Expect: []string{"push constant 5", "neg", "push constant 0", "not", "add"},
		},
		{
			Expr:   "true",
			Expect: []string{"push constant 1", "neg"},
		},
		{
			Expr:   "false",
			Expect: []string{"push constant 0"},
		},
		{
			Expr:   "null",
			Expect: []string{"push constant 0"},
		},
		{
			Expr:   `"ok"`,
			Expect: []string{"push constant 2", "call String.new 1", "push constant 111", "call String.appendChar 2", "push constant 107", "call String.appendChar 2"},
		},
		{
			Expr:   "Math.max(1, x)",
			Expect: []string{"push constant 1", "push local 0", "call Math.max 2"},
		},
		{
			Expr:   "x[1]",
			Expect: []string{"push local 0", "push constant 1", "add", "pop pointer 1", "push that 0"},
		},
	}
	for _, data := range testData {
		lines := mustCompile(t, "class Main { function int f() { var int x; return "+data.Expr+"; } }")
		expect := append([]string{"function Main.f 1"}, data.Expect...)
		expect = append(expect, "return")
		assert.Equal(t, expect, lines, data.Expr)
	}
}

func TestParser_MethodCallOnVariable(t *testing.T) {
	lines := mustCompile(t, inMain("var Foo obj;", "do obj.move(1, 2);"))
	assert.Equal(t, []string{
		"function Main.main 1",
		"push local 0",
		"push constant 1",
		"push constant 2",
		"call Foo.move 3",
		"pop temp 0",
		"push constant 0",
		"return",
	}, lines)
}

func TestParser_Calls(t *testing.T) {
	testData := []struct {
		Statement string
		Expect    []string
	}{
		{
			Statement: "do Output.printInt(3);",
			Expect:    []string{"push constant 3", "call Output.printInt 1", "pop temp 0"},
		},
		{
			Statement: "let p = Point.new(1, 2);",
			Expect:    []string{"push constant 1", "push constant 2", "call Point.new 2", "pop local 0"},
		},
		{
			Statement: "do p.dispose();",
			Expect:    []string{"push local 0", "call Point.dispose 1", "pop temp 0"},
		},
		{
			Statement: "do run();",
			Expect:    []string{"push pointer 0", "call Main.run 1", "pop temp 0"},
		},
		{
			Statement: "do Sys.wait(p.x() + 1);",
			Expect:    []string{"push local 0", "call Point.x 1", "push constant 1", "add", "call Sys.wait 1", "pop temp 0"},
		},
	}
	for _, data := range testData {
		lines := mustCompile(t, inMain("var Point p;", data.Statement))
		expect := append([]string{"function Main.main 1"}, data.Expect...)
		expect = append(expect, "push constant 0", "return")
		assert.Equal(t, expect, lines, data.Statement)
	}
}

func TestParser_IfAndWhile(t *testing.T) {
	lines := mustCompile(t, inMain("var int i;",
		"if (i) { let i = 1; } else { let i = 2; } while (i) { let i = 0; }"))
	assert.Equal(t, []string{
		"function Main.main 1",
		"push local 0",
		"not",
		"if-goto IF_ELSE_0",
		"push constant 1",
		"pop local 0",
		"goto IF_END_0",
		"label IF_ELSE_0",
		"push constant 2",
		"pop local 0",
		"label IF_END_0",
		"label WHILE_CONTINUE_1",
		"push local 0",
		"not",
		"if-goto WHILE_END_1",
		"push constant 0",
		"pop local 0",
		"goto WHILE_CONTINUE_1",
		"label WHILE_END_1",
		"push constant 0",
		"return",
	}, lines)
}

func TestParser_IfWithoutElse(t *testing.T) {
	lines := mustCompile(t, inMain("var int i;", "if (i) { let i = 1; }"))
	assert.Equal(t, []string{
		"function Main.main 1",
		"push local 0",
		"not",
		"if-goto IF_ELSE_0",
		"push constant 1",
		"pop local 0",
		"goto IF_END_0",
		"label IF_ELSE_0",
		"label IF_END_0",
		"push constant 0",
		"return",
	}, lines)
}

func TestParser_LabelsAreUnique(t *testing.T) {
	lines := mustCompile(t, `
class Main {
    function void a() {
        var int i;
        while (i) { if (i) { let i = 0; } else { while (i) { } } }
        return;
    }
    function void b() {
        var int j;
        if (j) { } else { if (j) { } }
        while (j) { }
        return;
    }
}`)
	seen := map[string]bool{}
	for _, line := range lines {
		if !strings.HasPrefix(line, "label ") {
			continue
		}
		assert.False(t, seen[line], "duplicate %s", line)
		seen[line] = true
	}
	assert.Len(t, seen, 12)
}

func TestParser_ArrayStore(t *testing.T) {
	lines := mustCompile(t, inMain("var Array a, b, c;", "let a[b[1]] = c[2];"))
	assert.Equal(t, []string{
		"function Main.main 3",
		// target address
		"push local 0",
		"push local 1",
		"push constant 1",
		"add",
		"pop pointer 1",
		"push that 0",
		"add",
		// value
		"push local 2",
		"push constant 2",
		"add",
		"pop pointer 1",
		"push that 0",
		// store
		"pop temp 0",
		"pop pointer 1",
		"push temp 0",
		"pop that 0",
		"push constant 0",
		"return",
	}, lines)
}

func TestParser_ReturnEverywhere(t *testing.T) {
	lines := mustCompile(t, `
class Main {
    function void a() { }
    function int b() { var int x; let x = 1; }
    function int c() { return 1; }
    method void d() { if (true) { return; } }
}`)
	var functions, returns int
	for i, line := range lines {
		if strings.HasPrefix(line, "function ") {
			functions++
			if i > 0 {
				assert.Equal(t, "return", lines[i-1], "code before %s", line)
			}
		}
		if line == "return" {
			returns++
		}
	}
	assert.Equal(t, 4, functions)
	assert.Equal(t, "return", lines[len(lines)-1])
	// d has the return inside the if plus the appended one.
	assert.Equal(t, 5, returns)
	assert.Equal(t, []string{"function Main.a 0", "push constant 0", "return"}, lines[:3])
}

func TestParser_LocalCountAndShadowing(t *testing.T) {
	lines := mustCompile(t, `
class Main {
    field int x;
    method int get(int x) {
        var int a, b;
        var boolean c;
        return x;
    }
}`)
	assert.Equal(t, []string{
		"function Main.get 3",
		"push argument 0",
		"pop pointer 0",
		"push argument 1",
		"return",
	}, lines)
}

func TestParser_Duplicates(t *testing.T) {
	source := `
class Main {
    field int x, x;
    method int get() { return x; }
}`
	lines := mustCompile(t, source)
	assert.Contains(t, lines, "push this 1")

	_, err := compileSource(source, true)
	var compileErr *CompileError
	require.True(t, errors.As(err, &compileErr))
	assert.Equal(t, ResolutionError, compileErr.Kind)
	assert.Equal(t, 3, compileErr.Line)
	assert.Contains(t, compileErr.Msg, "x")

	_, err = compileSource("class Main { function void f(int a) { var int a; return; } }", true)
	require.True(t, errors.As(err, &compileErr))
	assert.Equal(t, ResolutionError, compileErr.Kind)

	// The same name in class and subroutine scope is fine even when strict.
	_, err = compileSource("class Main { field int a; method void f(int a) { return; } }", true)
	assert.NoError(t, err)
}

func TestParser_Errors(t *testing.T) {
	testData := []struct {
		Content string
		Kind    ErrorKind
		Line    int
		Msg     string
	}{
		{Content: "class Main { function void f() {\n let x = 1; return; } }", Kind: ResolutionError, Line: 2, Msg: "undeclared variable x"},
		{Content: "class Main { function int f() {\n\n return y; } }", Kind: ResolutionError, Line: 3, Msg: "undeclared variable y"},
		{Content: "class Main { function int f() { return y[0]; } }", Kind: ResolutionError, Line: 1, Msg: "undeclared variable y"},
		{Content: "class Main { function int f() { return 1 } }", Kind: SyntaxError, Line: 1, Msg: "expected ';'"},
		{Content: "class Main { function void f() { return; } } class", Kind: SyntaxError, Line: 1, Msg: "end of input"},
		{Content: "class Main { function void f() {", Kind: SyntaxError, Line: 1, Msg: "found end of input"},
		{Content: "Main { }", Kind: SyntaxError, Line: 1, Msg: "expected 'class'"},
		{Content: "class Main { field void x; }", Kind: SyntaxError, Line: 1, Msg: "expected type"},
		{Content: "class Main { function void f() { do 1; } }", Kind: SyntaxError, Line: 1, Msg: "subroutine name"},
		{Content: "class Main { function void f() { do g; } }", Kind: SyntaxError, Line: 1, Msg: "'(' or '.'"},
		{Content: "class Main { function int f() { return 1 + ; } }", Kind: SyntaxError, Line: 1, Msg: "expected term"},
		{Content: "class Main { function void f() { let = 1; } }", Kind: SyntaxError, Line: 1, Msg: "variable name"},
		{Content: "class Main { function void f() { return $; } }", Kind: LexicalError, Line: 1, Msg: "unexpected character"},
		{Content: "class Main { function void f(int a,) { return; } }", Kind: SyntaxError, Line: 1, Msg: "expected type, found symbol ')'"},
		{Content: "class Main { function void f(, int a) { return; } }", Kind: SyntaxError, Line: 1, Msg: "expected type, found symbol ','"},
		{Content: "class Main { function void f(int a int b) { return; } }", Kind: SyntaxError, Line: 1, Msg: "expected ')'"},
		{Content: "class Main { function void f() { do Output.printInt(1,); return; } }", Kind: SyntaxError, Line: 1, Msg: "expected term, found symbol ')'"},
		{Content: "class Main { function void f() { do Output.printInt(,1); return; } }", Kind: SyntaxError, Line: 1, Msg: "expected term, found symbol ','"},
		{Content: "class Main { function void f() { do g(1 2); return; } }", Kind: SyntaxError, Line: 1, Msg: "expected ')'"},
		{Content: "class Main { function void f() {\n do Output.printString(\"가\"); return; } }", Kind: LexicalError, Line: 2, Msg: "out of range"},
	}
	for _, data := range testData {
		_, err := compileSource(data.Content, false)
		var compileErr *CompileError
		require.True(t, errors.As(err, &compileErr), data.Content)
		assert.Equal(t, data.Kind, compileErr.Kind, data.Content)
		assert.Equal(t, data.Line, compileErr.Line, data.Content)
		assert.Contains(t, compileErr.Msg, data.Msg, data.Content)
	}
}

func TestParser_XMLTrace(t *testing.T) {
	source := "class Main { function void main() { return; } }"
	vm, trace := &bytes.Buffer{}, &bytes.Buffer{}
	className, err := CompileClass(strings.NewReader(source), vm, trace, false)
	require.NoError(t, err)
	assert.Equal(t, "Main", className)
	assert.Equal(t, `<class>
  <keyword> class </keyword>
  <identifier> Main </identifier>
  <symbol> { </symbol>
  <subroutineDec>
    <keyword> function </keyword>
    <keyword> void </keyword>
    <identifier> main </identifier>
    <symbol> ( </symbol>
    <parameterList>
    </parameterList>
    <symbol> ) </symbol>
    <subroutineBody>
      <symbol> { </symbol>
      <statements>
        <returnStatement>
          <keyword> return </keyword>
          <symbol> ; </symbol>
        </returnStatement>
      </statements>
      <symbol> } </symbol>
    </subroutineBody>
  </subroutineDec>
  <symbol> } </symbol>
</class>
`, trace.String())
}

func TestParser_XMLTraceDoesNotChangeCode(t *testing.T) {
	source := inMain("var int i; var String s;", `let s = "a<b & c"; if (i < 2) { let i = i + 1; }`)
	withTrace, withoutTrace, trace := &bytes.Buffer{}, &bytes.Buffer{}, &bytes.Buffer{}
	_, err := CompileClass(strings.NewReader(source), withTrace, trace, false)
	require.NoError(t, err)
	_, err = CompileClass(strings.NewReader(source), withoutTrace, nil, false)
	require.NoError(t, err)
	assert.Equal(t, withoutTrace.String(), withTrace.String())
	assert.Contains(t, trace.String(), "<symbol> &lt; </symbol>")
	assert.Contains(t, trace.String(), "<stringConstant> a&lt;b &amp; c </stringConstant>")
	assert.Contains(t, trace.String(), "<integerConstant> 2 </integerConstant>")
	assert.Contains(t, trace.String(), "<ifStatement>")
	assert.Contains(t, trace.String(), "<varDec>")
}
