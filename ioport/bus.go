// Package ioport holds the execution primitives behind types.Bus: the
// privileged /dev/port bus plus inert buses for dry runs and tests.
package ioport

import (
	"sync"

	"github.com/smartio/iofuzzer/types"
)

// NopBus accepts every operation and touches nothing. Used for dry runs.
type NopBus struct{}

func (NopBus) Exec(types.Op, types.Operands) error { return nil }

// Record is one dispatched trial captured by a RecordBus.
type Record struct {
	Op   types.Op
	Args types.Operands
}

// RecordBus captures every dispatched operation with deep copies of the
// scratch buffers, which the engine otherwise reuses between trials.
type RecordBus struct {
	mtx     sync.Mutex
	records []Record
}

func (b *RecordBus) Exec(op types.Op, args types.Operands) error {
	args.Src = append([]byte(nil), args.Src...)
	args.Dst = append([]byte(nil), args.Dst...)
	b.mtx.Lock()
	b.records = append(b.records, Record{Op: op, Args: args})
	b.mtx.Unlock()
	return nil
}

// Records returns a snapshot of everything captured so far.
func (b *RecordBus) Records() []Record {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	return append([]Record(nil), b.records...)
}
