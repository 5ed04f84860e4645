// Package iofuzzer repeatedly synthesizes pseudo-random x86 port I/O
// operations and drives them against live hardware through an injected
// bus. Each trial is logged with the generator state that produced it, so
// any trial can be replayed exactly. Running it against real ports risks
// data loss and crashes; that risk is the product.
package iofuzzer

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/smartio/iofuzzer/array"
	"github.com/smartio/iofuzzer/random"
	"github.com/smartio/iofuzzer/types"
)

const (
	// MaxPort is the top of the 16-bit I/O address space.
	MaxPort = 0xffff
	// ScratchSize is the size of each string-operation scratch buffer.
	ScratchSize = 256
	// StateSize is the size of the per-trial generator state snapshot.
	StateSize = 8

	maxStringCount = ScratchSize / 4
)

// Variates is the fully-resolved operand set for the next trial. Src and
// Dst are copies of the engine's scratch buffers.
type Variates struct {
	Op    types.Op
	Value uint64
	Aux   uint64
	Count uint64
	Port  uint64
	Src   []byte
	Dst   []byte
}

// IOFuzzer is the fuzz-iteration engine. After construction and after
// every mutator it holds a fully-resolved, ready-to-execute operation;
// Iterate dispatches it to the bus and rerolls the next one. The state
// snapshot always matches the generator state that produced the current
// variates.
type IOFuzzer struct {
	mtx   sync.Mutex
	ports *array.Array
	rnd   *random.Random
	bus   types.Bus
	state [StateSize]byte
	src   [ScratchSize]byte
	dst   [ScratchSize]byte
	v     Variates
}

// New creates an engine bound to bus, with a fresh zero-state generator,
// and randomizes the first trial.
func New(bus types.Bus) (*IOFuzzer, error) {
	if bus == nil {
		return nil, fmt.Errorf("nil bus")
	}
	f := &IOFuzzer{rnd: random.New(), bus: bus}
	f.randomize()
	return f, nil
}

// NewWithState creates an engine and seeds its generator from state.
func NewWithState(bus types.Bus, state []byte) (*IOFuzzer, error) {
	f, err := New(bus)
	if err != nil {
		return nil, err
	}
	if err := f.SetState(state); err != nil {
		return nil, err
	}
	return f, nil
}

// Ports returns the current allow-list, or nil when the engine samples
// the whole port space.
func (f *IOFuzzer) Ports() *array.Array {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return f.ports
}

// Random returns the engine's generator.
func (f *IOFuzzer) Random() *random.Random {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return f.rnd
}

// GetState copies the snapshot taken when the current variates were
// generated. dst must hold StateSize bytes.
func (f *IOFuzzer) GetState(dst []byte) error {
	if len(dst) < StateSize {
		return fmt.Errorf("need %d state bytes, got %d", StateSize, len(dst))
	}
	f.mtx.Lock()
	copy(dst, f.state[:])
	f.mtx.Unlock()
	return nil
}

// StateUint64 returns the snapshot as the little-endian integer the log
// format uses.
func (f *IOFuzzer) StateUint64() uint64 {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return binary.LittleEndian.Uint64(f.state[:])
}

// Variates returns a copy of the current operand set, scratch buffers
// included.
func (f *IOFuzzer) Variates() Variates {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	v := f.v
	v.Src = append([]byte(nil), f.src[:]...)
	v.Dst = append([]byte(nil), f.dst[:]...)
	return v
}

// SetVariates overrides the current operand set, copying any provided
// scratch contents into the engine's own buffers. Unlike the other
// setters it does not re-randomize: the caller is installing an exact
// operation, typically a hand-built edge case.
func (f *IOFuzzer) SetVariates(v Variates) error {
	if v.Op >= types.NumOps {
		return fmt.Errorf("operation %d out of range", v.Op)
	}
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.v.Op = v.Op
	f.v.Value = v.Value
	f.v.Aux = v.Aux
	f.v.Count = v.Count
	f.v.Port = v.Port
	copy(f.src[:], v.Src)
	copy(f.dst[:], v.Dst)
	return nil
}

// SetPorts replaces the allow-list (nil clears it), re-establishes the
// generator at the current snapshot and re-randomizes, so a port-list
// change never leaves a stale port selected.
func (f *IOFuzzer) SetPorts(ports *array.Array) error {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.ports = ports
	if err := f.rnd.SetState(f.state[:]); err != nil {
		return err
	}
	f.randomize()
	return nil
}

// SetRandom swaps in a different, possibly shared, generator and
// re-randomizes against it.
func (f *IOFuzzer) SetRandom(rnd *random.Random) error {
	if rnd == nil {
		return fmt.Errorf("nil random source")
	}
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.rnd = rnd
	f.randomize()
	return nil
}

// SetState imports generator state and re-randomizes, producing the
// deterministic variate set for that state.
func (f *IOFuzzer) SetState(state []byte) error {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return f.setState(state)
}

// Iterate performs one fuzz trial: dispatch the current operation to the
// bus, then reroll the variates for the next call. A bus error means the
// hardware access failed outright; callers treat it as fatal.
func (f *IOFuzzer) Iterate() error {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return f.iterate()
}

// IterateWithState imports state, re-randomizes and dispatches, exactly
// reproducing the trial that was logged with that state.
func (f *IOFuzzer) IterateWithState(state []byte) error {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if err := f.setState(state); err != nil {
		return err
	}
	return f.iterate()
}

func (f *IOFuzzer) setState(state []byte) error {
	if err := f.rnd.SetState(state); err != nil {
		return err
	}
	f.randomize()
	return nil
}

func (f *IOFuzzer) iterate() error {
	args := types.Operands{
		Value: f.v.Value,
		Aux:   f.v.Aux,
		Count: f.v.Count,
		Port:  f.v.Port,
		Src:   f.src[:],
		Dst:   f.dst[:],
	}
	if err := f.bus.Exec(f.v.Op, args); err != nil {
		return err
	}
	f.randomize()
	return nil
}

// mixedNumber draws with one of three strategies at equal probability:
// uniform, Fermat-biased or Mersenne-biased. Pure uniform sampling rarely
// hits the power-of-two boundary values that trigger overflow bugs.
func (f *IOFuzzer) mixedNumber() uint64 {
	switch f.rnd.Uint64Range(0, 2) {
	case 0:
		return f.rnd.Uint64()
	case 1:
		return f.rnd.FermatNumber()
	default:
		return f.rnd.MersenneNumber()
	}
}

// randomize snapshots the generator state and rerolls every variate.
// Caller holds the mutex.
func (f *IOFuzzer) randomize() {
	_ = f.rnd.GetState(f.state[:])
	f.v.Op = types.Op(f.rnd.Uint64Range(0, types.NumOps-1))
	f.v.Value = f.mixedNumber()
	f.v.Aux = f.mixedNumber()
	f.v.Count = f.rnd.Uint64Range(1, maxStringCount)
	if f.ports != nil && f.ports.Length() > 0 {
		i := f.rnd.Uint64Range(0, uint64(f.ports.Length()-1))
		port, err := f.ports.Uint64At(int(i))
		if err != nil {
			// the allow-list is shared read-only after construction
			panic(err)
		}
		f.v.Port = port
	} else {
		f.v.Port = f.rnd.Uint64Range(0, MaxPort)
	}
	_ = f.rnd.FillString(f.src[:])
	_ = f.rnd.FillString(f.dst[:])
}
