// Package trialdb journals fuzz trials in RocksDB so any logged trial can
// be looked up and replayed after the process (or the machine) dies.
// Records are keyed by an append sequence number, with a secondary index
// from generator-state snapshot to sequence number.
package trialdb

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/mmcloughlin/meow"
	"github.com/tecbot/gorocksdb"

	"github.com/smartio/iofuzzer/types"
)

const (
	byTrial = byte(0x01) // byTrial + seq(8,BE) -> record + meow32
	byState = byte(0x02) // byState + state(8,BE) -> seq(8,BE)

	recordSize = 65 // encoded trial (61) + checksum (4)
)

type DB struct {
	db     *gorocksdb.DB
	ro     *gorocksdb.ReadOptions
	wo     *gorocksdb.WriteOptions
	woSync *gorocksdb.WriteOptions

	mtx     sync.Mutex
	nextSeq uint64
}

// Open creates or reopens the journal under dir. Sequence numbering
// continues from where the previous run stopped.
func Open(name, dir string) (*DB, error) {
	bbto := gorocksdb.NewDefaultBlockBasedTableOptions()
	bbto.SetBlockCache(gorocksdb.NewLRUCache(16 * 1024 * 1024))
	bbto.SetFilterPolicy(gorocksdb.NewBloomFilter(10))

	opts := gorocksdb.NewDefaultOptions()
	opts.SetBlockBasedTableFactory(bbto)
	opts.SetCreateIfMissing(true)
	opts.SetCompression(gorocksdb.NoCompression)

	db, err := gorocksdb.OpenDb(opts, filepath.Join(dir, name+".db"))
	if err != nil {
		return nil, err
	}
	ro := gorocksdb.NewDefaultReadOptions()
	wo := gorocksdb.NewDefaultWriteOptions()
	woSync := gorocksdb.NewDefaultWriteOptions()
	woSync.SetSync(true)
	j := &DB{db: db, ro: ro, wo: wo, woSync: woSync}
	j.nextSeq = j.lastSeq() + 1
	return j, nil
}

// lastSeq scans backwards from the end of the trial keyspace for the
// highest stored sequence number; 0 means the journal is empty.
func (j *DB) lastSeq() uint64 {
	itr := j.db.NewIterator(j.ro)
	defer itr.Close()
	itr.Seek([]byte{byTrial + 1})
	if itr.Valid() {
		itr.Prev()
	} else {
		itr.SeekToLast()
	}
	if !itr.Valid() {
		return 0
	}
	key := moveSliceToBytes(itr.Key())
	if len(key) != 9 || key[0] != byTrial {
		return 0
	}
	return binary.BigEndian.Uint64(key[1:])
}

// Append stores the trial and its state index and returns the sequence
// number it was filed under.
func (j *DB) Append(t types.Trial) (uint64, error) {
	j.mtx.Lock()
	seq := j.nextSeq
	j.nextSeq++
	j.mtx.Unlock()

	if err := j.db.Put(j.wo, trialKey(seq), encodeTrial(t)); err != nil {
		return 0, err
	}
	var seqBuf [8]byte
	binary.BigEndian.PutUint64(seqBuf[:], seq)
	if err := j.db.Put(j.wo, stateKey(t.State), seqBuf[:]); err != nil {
		return 0, err
	}
	return seq, nil
}

// Get returns the trial filed under seq.
func (j *DB) Get(seq uint64) (types.Trial, bool, error) {
	res, err := j.db.Get(j.ro, trialKey(seq))
	if err != nil {
		return types.Trial{}, false, err
	}
	raw := moveSliceToBytes(res)
	if raw == nil {
		return types.Trial{}, false, nil
	}
	t, err := decodeTrial(raw)
	if err != nil {
		return types.Trial{}, false, err
	}
	return t, true, nil
}

// SeqByState returns the sequence number of the most recent trial whose
// snapshot equals state.
func (j *DB) SeqByState(state uint64) (uint64, bool, error) {
	res, err := j.db.Get(j.ro, stateKey(state))
	if err != nil {
		return 0, false, err
	}
	raw := moveSliceToBytes(res)
	if len(raw) != 8 {
		return 0, false, nil
	}
	return binary.BigEndian.Uint64(raw), true, nil
}

// Flush forces everything written so far onto disk.
func (j *DB) Flush() error {
	// an empty sync write acts as a barrier
	return j.db.Put(j.woSync, []byte{0}, []byte{0})
}

func (j *DB) Close() {
	j.ro.Destroy()
	j.wo.Destroy()
	j.woSync.Destroy()
	j.db.Close()
}

func trialKey(seq uint64) []byte {
	key := make([]byte, 9)
	key[0] = byTrial
	binary.BigEndian.PutUint64(key[1:], seq)
	return key
}

func stateKey(state uint64) []byte {
	key := make([]byte, 9)
	key[0] = byState
	binary.BigEndian.PutUint64(key[1:], state)
	return key
}

// encodeTrial lays the record out as fixed-width little-endian fields
// followed by a meow32 checksum of everything before it.
func encodeTrial(t types.Trial) []byte {
	buf := make([]byte, recordSize)
	binary.LittleEndian.PutUint64(buf[0:], uint64(t.Time))
	binary.LittleEndian.PutUint32(buf[8:], uint32(t.Worker))
	binary.LittleEndian.PutUint64(buf[12:], t.State)
	buf[20] = byte(t.Op)
	binary.LittleEndian.PutUint64(buf[21:], t.Value)
	binary.LittleEndian.PutUint64(buf[29:], t.Aux)
	binary.LittleEndian.PutUint64(buf[37:], t.Count)
	binary.LittleEndian.PutUint64(buf[45:], t.Port)
	binary.LittleEndian.PutUint32(buf[53:], t.SrcSum)
	binary.LittleEndian.PutUint32(buf[57:], t.DstSum)
	h := meow.New32(0)
	_, _ = h.Write(buf[:61])
	copy(buf[61:], h.Sum(nil))
	return buf
}

func decodeTrial(buf []byte) (types.Trial, error) {
	if len(buf) != recordSize {
		return types.Trial{}, fmt.Errorf("bad record size %d", len(buf))
	}
	h := meow.New32(0)
	_, _ = h.Write(buf[:61])
	if !bytes.Equal(buf[61:], h.Sum(nil)) {
		return types.Trial{}, fmt.Errorf("record checksum mismatch")
	}
	return types.Trial{
		Time:   int64(binary.LittleEndian.Uint64(buf[0:])),
		Worker: int(int32(binary.LittleEndian.Uint32(buf[8:]))),
		State:  binary.LittleEndian.Uint64(buf[12:]),
		Op:     types.Op(buf[20]),
		Value:  binary.LittleEndian.Uint64(buf[21:]),
		Aux:    binary.LittleEndian.Uint64(buf[29:]),
		Count:  binary.LittleEndian.Uint64(buf[37:]),
		Port:   binary.LittleEndian.Uint64(buf[45:]),
		SrcSum: binary.LittleEndian.Uint32(buf[53:]),
		DstSum: binary.LittleEndian.Uint32(buf[57:]),
	}, nil
}

func moveSliceToBytes(s *gorocksdb.Slice) []byte {
	defer s.Free()
	if !s.Exists() {
		return nil
	}
	v := make([]byte, len(s.Data()))
	copy(v, s.Data())
	return v
}
