// Command iofuzzer exercises the x86 I/O address space with randomized
// port operations. It can destroy data and hang machines; that is what it
// is for.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/smartio/iofuzzer"
	"github.com/smartio/iofuzzer/array"
	"github.com/smartio/iofuzzer/ioport"
	"github.com/smartio/iofuzzer/portlist"
	"github.com/smartio/iofuzzer/random"
	"github.com/smartio/iofuzzer/trialdb"
	"github.com/smartio/iofuzzer/types"
)

var (
	output     = flag.String("output", "", "append trial records to this file instead of stdout")
	ports      = flag.String("ports", "", "port allow-list, e.g. 80,443,8000-8002 (default: whole 16-bit space)")
	state      = flag.String("state", "", "seed state as a hex integer, e.g. 0x1234")
	replay     = flag.String("replay", "", "replay a single logged trial from this state and exit")
	numThreads = flag.Int("num-threads", 1, "number of worker threads")
	rounds     = flag.Int("rounds", 0, "trials per worker, 0 = run until killed")
	dbDir      = flag.String("db", "", "journal trials into a RocksDB under this directory")
	quiet      = flag.Bool("quiet", false, "skip the warning countdown")
	dry        = flag.Bool("dry", false, "dispatch to a no-op bus instead of /dev/port")
)

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func parseState(s string) ([]byte, error) {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, iofuzzer.StateSize)
	binary.LittleEndian.PutUint64(buf, v)
	return buf, nil
}

func openBus() types.Bus {
	if *dry {
		return ioport.NopBus{}
	}
	bus, err := ioport.OpenDevPort()
	if err != nil {
		fatal("%s (need CAP_SYS_RAWIO)", err)
	}
	return bus
}

func main() {
	flag.Parse()

	bus := openBus()

	var list *array.Array
	if *ports != "" {
		var err error
		list, err = portlist.Parse(*ports)
		if err != nil {
			fatal("bad -ports: %s", err)
		}
	}

	seed := make([]byte, iofuzzer.StateSize)
	if *state != "" {
		var err error
		seed, err = parseState(*state)
		if err != nil {
			fatal("bad -state: %s", err)
		}
	}

	if *replay != "" {
		replayOne(bus, list, *replay)
		return
	}

	if !*quiet {
		fmt.Fprintf(os.Stderr, "Warning: This program may cause data loss.\n")
		fmt.Fprintf(os.Stderr, "Press Ctrl+C to interrupt\n")
		for secs := 3; secs >= 0; secs-- {
			fmt.Fprintf(os.Stderr, "Starting in %d secs...\r", secs)
			time.Sleep(time.Second)
		}
		fmt.Fprintln(os.Stderr)
	}

	out := os.Stdout
	if *output != "" {
		f, err := os.OpenFile(*output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			fatal("open %s: %s", *output, err)
		}
		defer f.Close()
		out = f
	}
	sink := iofuzzer.NewSink(out)

	var store iofuzzer.TrialStore
	if *dbDir != "" {
		db, err := trialdb.Open("trials", *dbDir)
		if err != nil {
			fatal("open trial db: %s", err)
		}
		defer db.Close()
		store = db
	}

	// one shared entropy pool: workers never observe the same draw
	shared, err := random.NewWithState(seed)
	if err != nil {
		fatal("seed random: %s", err)
	}

	var wg sync.WaitGroup
	for id := 1; id < *numThreads; id++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runWorker(id, bus, list, shared, sink, store)
		}(id)
	}
	runWorker(0, bus, list, shared, sink, store)
	wg.Wait()
}

func runWorker(id int, bus types.Bus, list *array.Array, shared *random.Random, sink *iofuzzer.Sink, store iofuzzer.TrialStore) {
	eng, err := iofuzzer.New(bus)
	if err != nil {
		fatal("worker %d: %s", id, err)
	}
	if list != nil {
		if err := eng.SetPorts(list); err != nil {
			fatal("worker %d: %s", id, err)
		}
	}
	if err := eng.SetRandom(shared); err != nil {
		fatal("worker %d: %s", id, err)
	}
	w := iofuzzer.NewWorker(id, eng, sink, store)
	if err := w.Run(*rounds); err != nil {
		fatal("worker %d: %s", id, err)
	}
	trials, cycles := w.Stats()
	fmt.Fprintf(os.Stderr, "worker %d: %d trials, %d bus cycles\n", id, trials, cycles)
}

// replayOne re-drives one trial from an exported state and prints the
// record it produces, which must match the line originally logged.
func replayOne(bus types.Bus, list *array.Array, stateArg string) {
	seed, err := parseState(stateArg)
	if err != nil {
		fatal("bad -replay: %s", err)
	}
	eng, err := iofuzzer.New(bus)
	if err != nil {
		fatal("%s", err)
	}
	if list != nil {
		if err := eng.SetPorts(list); err != nil {
			fatal("%s", err)
		}
	}
	if err := eng.SetState(seed); err != nil {
		fatal("%s", err)
	}
	w := iofuzzer.NewWorker(0, eng, iofuzzer.NewSink(os.Stdout), nil)
	t := w.Snapshot()
	fmt.Println(t.String())
	if err := eng.IterateWithState(seed); err != nil {
		fatal("%s", err)
	}
}
