package internal

// Kind is the storage kind of a declared variable.
type Kind int

const (
	NoneKind Kind = iota // not a variable: a class or subroutine name
	StaticKind
	FieldKind
	ArgKind
	VarKind
)

func (kind Kind) String() string {
	switch kind {
	case StaticKind:
		return "static"
	case FieldKind:
		return "field"
	case ArgKind:
		return "argument"
	case VarKind:
		return "local"
	}
	return "none"
}

// Segment returns the vm segment a variable of this kind lives in.
func (kind Kind) Segment() Segment {
	switch kind {
	case StaticKind:
		return StaticSegment
	case FieldKind:
		return ThisSegment
	case ArgKind:
		return ArgumentSegment
	case VarKind:
		return LocalSegment
	}
	panic("symbol table: no segment for kind " + kind.String())
}

func (kind Kind) classScope() bool {
	return kind == StaticKind || kind == FieldKind
}

type SymbolDesc struct {
	Name  string
	Type  string
	Kind  Kind
	Index int
}

// SymbolTable has two scopes. Class scope holds static and field variables and lives for the
// whole class; subroutine scope holds arguments and locals and is restarted per subroutine.
type SymbolTable struct {
	classVariables map[string]*SymbolDesc
	funcVariables  map[string]*SymbolDesc
	indicators     map[Kind]int
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		classVariables: map[string]*SymbolDesc{},
		funcVariables:  map[string]*SymbolDesc{},
		indicators:     map[Kind]int{},
	}
}

// StartSubroutine clears the subroutine scope and resets the argument and local counters.
func (table *SymbolTable) StartSubroutine() {
	table.funcVariables = map[string]*SymbolDesc{}
	table.indicators[ArgKind] = 0
	table.indicators[VarKind] = 0
}

func (table *SymbolTable) scope(kind Kind) map[string]*SymbolDesc {
	if kind.classScope() {
		return table.classVariables
	}
	return table.funcVariables
}

// Define inserts name into the scope of kind and returns its index. A name already declared
// in the same scope is overwritten and takes the next index.
func (table *SymbolTable) Define(name, tp string, kind Kind) int {
	index := table.indicators[kind]
	table.indicators[kind]++
	table.scope(kind)[name] = &SymbolDesc{Name: name, Type: tp, Kind: kind, Index: index}
	return index
}

// DeclaredInScope reports whether name is already declared in the scope kind belongs to.
func (table *SymbolTable) DeclaredInScope(name string, kind Kind) bool {
	_, ok := table.scope(kind)[name]
	return ok
}

// Lookup checks subroutine scope first, then class scope. Not found means name is a class
// or subroutine name.
func (table *SymbolTable) Lookup(name string) (SymbolDesc, bool) {
	if desc, ok := table.funcVariables[name]; ok {
		return *desc, true
	}
	if desc, ok := table.classVariables[name]; ok {
		return *desc, true
	}
	return SymbolDesc{}, false
}

func (table *SymbolTable) KindOf(name string) Kind {
	desc, ok := table.Lookup(name)
	if !ok {
		return NoneKind
	}
	return desc.Kind
}

func (table *SymbolTable) TypeOf(name string) string {
	desc, _ := table.Lookup(name)
	return desc.Type
}

func (table *SymbolTable) IndexOf(name string) int {
	desc, ok := table.Lookup(name)
	if !ok {
		return -1
	}
	return desc.Index
}

// VarCount returns how many indexes of kind were handed out.
func (table *SymbolTable) VarCount(kind Kind) int {
	return table.indicators[kind]
}
