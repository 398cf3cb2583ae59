package internal

import (
	"strconv"
	"strings"
	"testing"
)

// hackMachine runs symbolic hack assembly, so translated vm code can be checked by its effect
// on memory instead of by its text.
type hackMachine struct {
	t       *testing.T
	program []instruction
	symbols map[string]int
	ram     [32768]int16
	a, d    int16
	pc      int
}

type instruction struct {
	isA   bool
	value int16
	dest  string
	comp  string
	jump  string
}

func newHackMachine(t *testing.T, asm string) *hackMachine {
	t.Helper()
	machine := &hackMachine{t: t, symbols: map[string]int{
		"SP": 0, "LCL": 1, "ARG": 2, "THIS": 3, "THAT": 4, "SCREEN": 16384, "KBD": 24576,
	}}
	for i := 0; i < 16; i++ {
		machine.symbols["R"+strconv.Itoa(i)] = i
	}
	var lines []string
	for _, line := range strings.Split(asm, "\n") {
		if i := strings.Index(line, "//"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "(") {
			machine.symbols[strings.Trim(line, "()")] = len(lines)
			continue
		}
		lines = append(lines, line)
	}
	nextVariable := 16
	for _, line := range lines {
		if strings.HasPrefix(line, "@") {
			name := line[1:]
			value, err := strconv.Atoi(name)
			if err != nil {
				address, ok := machine.symbols[name]
				if !ok {
					address = nextVariable
					machine.symbols[name] = address
					nextVariable++
				}
				value = address
			}
			machine.program = append(machine.program, instruction{isA: true, value: int16(value)})
			continue
		}
		inst := instruction{comp: line}
		if i := strings.Index(inst.comp, ";"); i >= 0 {
			inst.comp, inst.jump = inst.comp[:i], inst.comp[i+1:]
		}
		if i := strings.Index(inst.comp, "="); i >= 0 {
			inst.dest, inst.comp = inst.comp[:i], inst.comp[i+1:]
		}
		machine.program = append(machine.program, inst)
	}
	return machine
}

func (machine *hackMachine) compute(comp string) int16 {
	a, d, m := machine.a, machine.d, machine.ram[uint16(machine.a)%32768]
	switch comp {
	case "0":
		return 0
	case "1":
		return 1
	case "-1":
		return -1
	case "D":
		return d
	case "A":
		return a
	case "M":
		return m
	case "!D":
		return ^d
	case "!M":
		return ^m
	case "-D":
		return -d
	case "-M":
		return -m
	case "D+1":
		return d + 1
	case "M+1":
		return m + 1
	case "D-1":
		return d - 1
	case "M-1":
		return m - 1
	case "D+A":
		return d + a
	case "D+M":
		return d + m
	case "D-A":
		return d - a
	case "D-M":
		return d - m
	case "M-D":
		return m - d
	case "D&M":
		return d & m
	case "D|M":
		return d | m
	}
	machine.t.Fatalf("unsupported comp %q", comp)
	return 0
}

func jumps(jump string, value int16) bool {
	switch jump {
	case "JMP":
		return true
	case "JEQ":
		return value == 0
	case "JNE":
		return value != 0
	case "JGT":
		return value > 0
	case "JLT":
		return value < 0
	case "JGE":
		return value >= 0
	case "JLE":
		return value <= 0
	}
	return false
}

func (machine *hackMachine) run(maxSteps int) {
	for step := 0; step < maxSteps && machine.pc < len(machine.program); step++ {
		inst := machine.program[machine.pc]
		if inst.isA {
			machine.a = inst.value
			machine.pc++
			continue
		}
		value, address := machine.compute(inst.comp), machine.a
		if strings.Contains(inst.dest, "M") {
			machine.ram[uint16(address)%32768] = value
		}
		if strings.Contains(inst.dest, "A") {
			machine.a = value
		}
		if strings.Contains(inst.dest, "D") {
			machine.d = value
		}
		if jumps(inst.jump, value) {
			machine.pc = int(address)
		} else {
			machine.pc++
		}
	}
}

func (machine *hackMachine) variable(name string) int16 {
	address, ok := machine.symbols[name]
	if !ok {
		machine.t.Fatalf("no symbol %s", name)
	}
	return machine.ram[address]
}

// top returns the value on top of the stack.
func (machine *hackMachine) top() int16 {
	return machine.ram[machine.ram[0]-1]
}
