package types

import (
	"fmt"
)

// Op selects one of the twelve x86 port I/O operations: {in,out} x
// {byte,word,doubleword} x {scalar,string-repeated}.
type Op uint8

const (
	Inb Op = iota
	Inw
	Inl
	Insb
	Insw
	Insl
	Outb
	Outw
	Outl
	Outsb
	Outsw
	Outsl

	NumOps = 12
)

var opNames = [NumOps]string{
	"inb", "inw", "inl", "insb", "insw", "insl",
	"outb", "outw", "outl", "outsb", "outsw", "outsl",
}

func (op Op) String() string {
	if op < NumOps {
		return opNames[op]
	}
	return fmt.Sprintf("op(%d)", uint8(op))
}

// Width returns the transfer unit in bytes: 1, 2 or 4.
func (op Op) Width() int {
	switch op % 3 {
	case 0:
		return 1
	case 1:
		return 2
	default:
		return 4
	}
}

// IsOut reports whether the operation writes to the port.
func (op Op) IsOut() bool {
	return op >= Outb
}

// IsString reports whether the operation is the rep-prefixed string form.
func (op Op) IsString() bool {
	return (op >= Insb && op <= Insl) || op >= Outsb
}

// Operands is the fully-resolved operand set for one trial. Src and Dst
// back the string-form operations; their contents are fuzzed on purpose.
type Operands struct {
	Value uint64
	Aux   uint64
	Count uint64
	Port  uint64
	Src   []byte
	Dst   []byte
}

// Bus performs the hardware side of a trial. Implementations run with
// whatever privilege the process has; a returned error is fatal to the
// calling worker, and a hardware fault may kill the process outright.
type Bus interface {
	Exec(op Op, args Operands) error
}

// Trial is one logged fuzz iteration, with enough state to replay it.
type Trial struct {
	Time   int64
	Worker int
	State  uint64
	Op     Op
	Value  uint64
	Aux    uint64
	Count  uint64
	Port   uint64
	SrcSum uint32
	DstSum uint32
}

// String renders the comma-separated log record, without the newline.
func (t Trial) String() string {
	return fmt.Sprintf("%d,%d,%#x,%s,%#x,%#x,%#x,%#x,%#x,%#x",
		t.Time, t.Worker, t.State, t.Op, t.Value, t.Aux, t.Count, t.Port, t.SrcSum, t.DstSum)
}
