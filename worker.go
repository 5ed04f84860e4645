package iofuzzer

import (
	"bufio"
	"os"
	"sync"
	"time"

	"github.com/dterei/gotsc"
	"github.com/mmcloughlin/meow"

	"github.com/smartio/iofuzzer/types"
)

var tscOverhead = gotsc.TSCOverhead()

// Sink is the shared append target for trial records. The lock spans the
// whole {format, flush, force-persist} sequence so concurrent workers
// never interleave partial lines.
type Sink struct {
	mtx sync.Mutex
	w   *bufio.Writer
	f   *os.File
}

func NewSink(f *os.File) *Sink {
	return &Sink{w: bufio.NewWriter(f), f: f}
}

func (s *Sink) Write(t types.Trial) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if _, err := s.w.WriteString(t.String() + "\n"); err != nil {
		return err
	}
	if err := s.w.Flush(); err != nil {
		return err
	}
	s.f.Sync() // terminals have nothing to sync
	return nil
}

// TrialStore persists trials for later replay; *trialdb.DB implements it.
type TrialStore interface {
	Append(t types.Trial) (uint64, error)
}

// Worker runs one independent log-then-execute loop against a shared
// sink and, usually, a shared generator inside its engine.
type Worker struct {
	ID     int
	eng    *IOFuzzer
	sink   *Sink
	store  TrialStore
	trials uint64
	cycles uint64
}

func NewWorker(id int, eng *IOFuzzer, sink *Sink, store TrialStore) *Worker {
	return &Worker{ID: id, eng: eng, sink: sink, store: store}
}

// Snapshot builds the log record for the engine's current variates.
func (w *Worker) Snapshot() types.Trial {
	v := w.eng.Variates()
	return types.Trial{
		Time:   time.Now().Unix(),
		Worker: w.ID,
		State:  w.eng.StateUint64(),
		Op:     v.Op,
		Value:  v.Value,
		Aux:    v.Aux,
		Count:  v.Count,
		Port:   v.Port,
		SrcSum: Fingerprint(v.Src),
		DstSum: Fingerprint(v.Dst),
	}
}

// Step logs the current trial, persists it if a store is attached, then
// executes it. The bus call is timed in TSC cycles.
func (w *Worker) Step() error {
	t := w.Snapshot()
	debugTrial(t)
	if err := w.sink.Write(t); err != nil {
		return err
	}
	if w.store != nil {
		if _, err := w.store.Append(t); err != nil {
			return err
		}
	}
	start := gotsc.BenchStart()
	err := w.eng.Iterate()
	w.cycles += gotsc.BenchEnd() - start - tscOverhead
	w.trials++
	return err
}

// Run performs rounds trials, or loops forever when rounds is 0. The
// first error is returned as-is; a hardware fault never comes back at all.
func (w *Worker) Run(rounds int) error {
	for i := 0; rounds == 0 || i < rounds; i++ {
		if err := w.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Stats returns the trial count and accumulated bus cycles so far.
func (w *Worker) Stats() (trials, cycles uint64) {
	return w.trials, w.cycles
}

// Fingerprint is the replay-stable content digest logged for the scratch
// buffers in place of the raw pointers the original format carried.
func Fingerprint(buf []byte) uint32 {
	h := meow.New32(0)
	_, _ = h.Write(buf)
	return h.Sum32()
}
