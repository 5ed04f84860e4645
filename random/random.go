package random

import (
	"fmt"
	"math"
	"sync"

	sha256 "github.com/minio/sha256-simd"
)

const (
	// MaxStateSize bounds the exportable state blob.
	MaxStateSize = 256
	// MinStateSize is the live part of the state: three little-endian
	// 16-bit words forming the 48-bit generator value.
	MinStateSize = 6

	mulA   = 0x5DEECE66D
	addC   = 0xB
	mask48 = 1<<48 - 1
)

// charset feeding FillString: ASCII 0x20-0x7E with a doubled '%', plus a
// reachable NUL (the inclusive range draw can land on it). Kept as-is for
// bit-compatible sequences.
const charset = " !\"#$%%&'()*+,-./0123456789:;<=>?@ABCDEFGHIJKLMNOPQRSTUVWXYZ[\\]^_`abcdefghijklmnopqrstuvwxyz{|}~\x00"

// Random is a pseudo-random source stepping a 48-bit linear-congruential
// generator over an exportable state blob. Fresh generators start from
// all-zero state, so sequences are deterministic unless seeded. Every
// method serializes on the internal mutex; callers needing a multi-draw
// transaction must provide their own outer lock.
type Random struct {
	mtx   sync.Mutex
	state [MaxStateSize]byte
}

// New creates a generator with zeroed state.
func New() *Random {
	return &Random{}
}

// NewWithState creates a generator and imports the given state.
func NewWithState(state []byte) (*Random, error) {
	r := New()
	if err := r.SetState(state); err != nil {
		return nil, err
	}
	return r, nil
}

// NewFromSeed derives the generator state from arbitrary-length seed
// material by hashing it.
func NewFromSeed(seed []byte) *Random {
	sum := sha256.Sum256(seed)
	r := New()
	copy(r.state[:8], sum[:8])
	return r
}

// step advances the 48-bit value and returns it. Caller holds the mutex.
func (r *Random) step() uint64 {
	x := uint64(r.state[0]) | uint64(r.state[1])<<8 | uint64(r.state[2])<<16 |
		uint64(r.state[3])<<24 | uint64(r.state[4])<<32 | uint64(r.state[5])<<40
	x = (x*mulA + addC) & mask48
	r.state[0] = byte(x)
	r.state[1] = byte(x >> 8)
	r.state[2] = byte(x >> 16)
	r.state[3] = byte(x >> 24)
	r.state[4] = byte(x >> 32)
	r.state[5] = byte(x >> 40)
	return x
}

// Float64 returns the next uniform double in [0,1).
func (r *Random) Float64() float64 {
	r.mtx.Lock()
	x := r.step()
	r.mtx.Unlock()
	return float64(x) / (1 << 48)
}

// Float64Range returns the next uniform double in [begin,end]. The
// (end-begin+1) factor is inclusive-biased by construction; it is kept
// exactly so exported state round-trips to the same future sequence.
func (r *Random) Float64Range(begin, end float64) float64 {
	return r.Float64()*(end-begin+1) + begin
}

// Uint64 returns the next value of the 48-bit step, truncated to its high
// 32 bits and sign-extended. The sign extension mirrors the original
// long-to-unsigned cast and is preserved for replay compatibility.
func (r *Random) Uint64() uint64 {
	r.mtx.Lock()
	x := r.step()
	r.mtx.Unlock()
	return uint64(int64(int32(x >> 16)))
}

// Uint64Range returns the next uniform integer in [begin,end].
func (r *Random) Uint64Range(begin, end uint64) uint64 {
	return uint64(r.Float64()*float64(end-begin+1) + float64(begin))
}

// Bool returns the next uniform boolean.
func (r *Random) Bool() bool {
	return r.Uint64Range(0, 1) != 0
}

// FermatNumber returns 2^e+1 with e uniform in [1,31]. Powers of two plus
// one are classic integer-boundary values.
func (r *Random) FermatNumber() uint64 {
	return uint64(math.Pow(2, float64(r.Uint64Range(1, 31))) + 1)
}

// MersenneNumber returns 2^e-1 with e uniform in [1,32].
func (r *Random) MersenneNumber() uint64 {
	return uint64(math.Pow(2, float64(r.Uint64Range(1, 32))) - 1)
}

// FillString fills buf with random charset bytes and terminates it with a
// NUL at len(buf)-2, leaving the final byte untouched.
func (r *Random) FillString(buf []byte) error {
	if len(buf) < 2 {
		return fmt.Errorf("buffer too short: %d", len(buf))
	}
	for i := 0; i < len(buf)-2; i++ {
		n := r.Uint64Range(0, uint64(len(charset)-1))
		if n >= uint64(len(charset)) {
			n = uint64(len(charset) - 1)
		}
		buf[i] = charset[n]
	}
	buf[len(buf)-2] = 0
	return nil
}

// GetState copies the generator state into dst. The copy size is
// len(dst) clamped to [MinStateSize,MaxStateSize]; it is never partial.
func (r *Random) GetState(dst []byte) error {
	if dst == nil {
		return fmt.Errorf("nil state")
	}
	if len(dst) < MinStateSize {
		return fmt.Errorf("state shorter than %d bytes", MinStateSize)
	}
	n := len(dst)
	if n > MaxStateSize {
		n = MaxStateSize
	}
	r.mtx.Lock()
	copy(dst[:n], r.state[:n])
	r.mtx.Unlock()
	return nil
}

// SetState imports generator state from src, clamped the same way as
// GetState. Importing a state and drawing reproduces the exact sequence a
// generator reaching that state organically would produce.
func (r *Random) SetState(src []byte) error {
	if src == nil {
		return fmt.Errorf("nil state")
	}
	if len(src) < MinStateSize {
		return fmt.Errorf("state shorter than %d bytes", MinStateSize)
	}
	n := len(src)
	if n > MaxStateSize {
		n = MaxStateSize
	}
	r.mtx.Lock()
	copy(r.state[:n], src[:n])
	r.mtx.Unlock()
	return nil
}
