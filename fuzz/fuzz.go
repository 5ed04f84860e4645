package fuzz

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"github.com/coinexchain/randsrc"

	"github.com/smartio/iofuzzer"
	"github.com/smartio/iofuzzer/array"
	"github.com/smartio/iofuzzer/ioport"
)

// go test -c .
// RANDFILE=~/Downloads/randfile RANDCOUNT=100000 ./fuzz.test

type FuzzConfig struct {
	MaxElemSize   int // element sizes drawn in [1,MaxElemSize]
	MaxBatch      int // elements per append/prepend/insert
	MaxLength     int // force removals above this length
	CompareEveryN int // full content compare against the reference model
	ReplayEveryN  int // engine replay determinism check
	ResetEveryN   int // start over with a fresh array
}

var DefaultConfig = FuzzConfig{
	MaxElemSize:   16,
	MaxBatch:      8,
	MaxLength:     4096,
	CompareEveryN: 200,
	ReplayEveryN:  500,
	ResetEveryN:   10000,
}

func runTest(cfg FuzzConfig) {
	randFilename := os.Getenv("RANDFILE")
	if len(randFilename) == 0 {
		fmt.Printf("No RANDFILE specified. Exiting...")
		return
	}
	roundCount, err := strconv.Atoi(os.Getenv("RANDCOUNT"))
	if err != nil {
		panic(err)
	}

	rs := randsrc.NewRandSrcFromFileWithSeed(randFilename, []byte{0})
	ctx := NewContext(cfg, rs)
	for i := 0; i < roundCount; i++ {
		if i%10000 == 0 {
			fmt.Printf("Now %d of %d length %d\n", i, roundCount, len(ctx.ref))
		}
		ctx.step(i)
	}
	ctx.compare()
}

// Context drives random mutations against one Array while mirroring them
// in a plain reference model, and periodically replays the engine to
// check determinism.
type Context struct {
	cfg      FuzzConfig
	rs       randsrc.RandSrc
	arr      *array.Array
	ref      [][]byte
	elemSize int
}

func NewContext(cfg FuzzConfig, rs randsrc.RandSrc) *Context {
	ctx := &Context{cfg: cfg, rs: rs}
	ctx.reset()
	return ctx
}

func (ctx *Context) reset() {
	ctx.elemSize = int(ctx.rs.GetUint32())%ctx.cfg.MaxElemSize + 1
	arr, err := array.New(ctx.elemSize)
	if err != nil {
		panic(err)
	}
	ctx.arr = arr
	ctx.ref = ctx.ref[:0]
}

func (ctx *Context) randElems() ([]byte, int) {
	count := int(ctx.rs.GetUint32())%ctx.cfg.MaxBatch + 1
	return ctx.rs.GetBytes(count * ctx.elemSize), count
}

func (ctx *Context) step(round int) {
	if ctx.cfg.ResetEveryN != 0 && round%ctx.cfg.ResetEveryN == ctx.cfg.ResetEveryN-1 {
		ctx.reset()
		return
	}
	if ctx.cfg.ReplayEveryN != 0 && round%ctx.cfg.ReplayEveryN == ctx.cfg.ReplayEveryN-1 {
		ctx.checkReplay()
		return
	}
	length := len(ctx.ref)
	op := int(ctx.rs.GetUint32()) % 6
	if length >= ctx.cfg.MaxLength {
		op = 3 // force a ranged removal
	}
	switch op {
	case 0:
		data, count := ctx.randElems()
		if err := ctx.arr.Append(data, count); err != nil {
			panic(err)
		}
		for i := 0; i < count; i++ {
			ctx.ref = append(ctx.ref, data[i*ctx.elemSize:(i+1)*ctx.elemSize])
		}
	case 1:
		data, count := ctx.randElems()
		if err := ctx.arr.Prepend(data, count); err != nil {
			panic(err)
		}
		head := make([][]byte, 0, count)
		for i := 0; i < count; i++ {
			head = append(head, data[i*ctx.elemSize:(i+1)*ctx.elemSize])
		}
		ctx.ref = append(head, ctx.ref...)
	case 2:
		if length == 0 {
			return
		}
		index := int(ctx.rs.GetUint32()) % length
		data, count := ctx.randElems()
		if err := ctx.arr.Insert(index, data, count); err != nil {
			panic(err)
		}
		mid := make([][]byte, 0, count)
		for i := 0; i < count; i++ {
			mid = append(mid, data[i*ctx.elemSize:(i+1)*ctx.elemSize])
		}
		tail := append([][]byte{}, ctx.ref[index:]...)
		ctx.ref = append(append(ctx.ref[:index], mid...), tail...)
	case 3:
		if length == 0 {
			return
		}
		index := int(ctx.rs.GetUint32()) % length
		count := int(ctx.rs.GetUint32())%(length-index) + 1
		if err := ctx.arr.Remove(index, count); err != nil {
			panic(err)
		}
		ctx.ref = append(ctx.ref[:index], ctx.ref[index+count:]...)
	case 4:
		if length == 0 {
			return
		}
		index := int(ctx.rs.GetUint32()) % length
		if err := ctx.arr.RemoveFast(index); err != nil {
			panic(err)
		}
		ctx.ref[index] = ctx.ref[length-1]
		ctx.ref = ctx.ref[:length-1]
	case 5:
		// shrink only: growing re-exposes whatever bytes were there before
		if length == 0 {
			return
		}
		n := int(ctx.rs.GetUint32()) % (length + 1)
		if err := ctx.arr.SetLength(n); err != nil {
			panic(err)
		}
		ctx.ref = ctx.ref[:n]
	}
	if ctx.arr.Length() != len(ctx.ref) {
		panic(fmt.Sprintf("length mismatch: %d vs %d", ctx.arr.Length(), len(ctx.ref)))
	}
	if ctx.cfg.CompareEveryN != 0 && round%ctx.cfg.CompareEveryN == 0 {
		ctx.compare()
	}
}

func (ctx *Context) compare() {
	for i, want := range ctx.ref {
		got, err := ctx.arr.Get(i)
		if err != nil {
			panic(err)
		}
		if !bytes.Equal(got, want) {
			panic(fmt.Sprintf("content mismatch at %d: %x vs %x", i, got, want))
		}
	}
}

// checkReplay drives two fresh engines from the same imported state and
// panics unless they dispatch the identical operation with identical
// operands.
func (ctx *Context) checkReplay() {
	state := ctx.rs.GetBytes(iofuzzer.StateSize)
	recs := make([]ioport.Record, 0, 2)
	for i := 0; i < 2; i++ {
		bus := &ioport.RecordBus{}
		eng, err := iofuzzer.New(bus)
		if err != nil {
			panic(err)
		}
		if err := eng.IterateWithState(state); err != nil {
			panic(err)
		}
		recs = append(recs, bus.Records()[0])
	}
	a, b := recs[0], recs[1]
	if a.Op != b.Op || a.Args.Value != b.Args.Value || a.Args.Aux != b.Args.Aux ||
		a.Args.Count != b.Args.Count || a.Args.Port != b.Args.Port ||
		!bytes.Equal(a.Args.Src, b.Args.Src) || !bytes.Equal(a.Args.Dst, b.Args.Dst) {
		panic(fmt.Sprintf("replay diverged: %s vs %s", a.Op, b.Op))
	}
}
