package random

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZeroStateDeterminism(t *testing.T) {
	// two independently constructed zero-state generators agree
	a, b := New(), New()
	assert.Equal(t, a.Uint64(), b.Uint64())
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Float64(), b.Float64())
	}
}

func TestFirstDraw(t *testing.T) {
	// from zero state the step lands on the additive constant; its high
	// 32 bits are still zero
	r := New()
	assert.Equal(t, uint64(0), r.Uint64())
	r2 := New()
	assert.Equal(t, float64(0xB)/(1<<48), r2.Float64())
}

func TestStateRoundTrip(t *testing.T) {
	r := New()
	in := make([]byte, 8)
	copy(in, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	assert.Nil(t, r.SetState(in))
	out := make([]byte, 8)
	assert.Nil(t, r.GetState(out))
	assert.Equal(t, in, out)
}

func TestImportedStateSequence(t *testing.T) {
	// drawing after an import reproduces the organic sequence
	a := New()
	for i := 0; i < 37; i++ {
		a.Uint64()
	}
	mid := make([]byte, 8)
	assert.Nil(t, a.GetState(mid))

	b, err := NewWithState(mid)
	assert.Nil(t, err)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Uint64(), b.Uint64())
	}
}

func TestStateErrors(t *testing.T) {
	r := New()
	assert.NotNil(t, r.SetState(nil))
	assert.NotNil(t, r.SetState(make([]byte, 3)))
	assert.NotNil(t, r.GetState(make([]byte, 5)))

	// oversized blobs are clamped, not rejected
	assert.Nil(t, r.SetState(make([]byte, MaxStateSize+100)))
}

func TestFloat64Range(t *testing.T) {
	r := NewFromSeed([]byte("range"))
	for i := 0; i < 1000; i++ {
		v := r.Float64()
		assert.True(t, v >= 0 && v < 1)
		// the documented-inclusive range really covers [a, b+1)
		w := r.Float64Range(5, 9)
		assert.True(t, w >= 5 && w < 10, "got %f", w)
	}
}

func TestUint64Range(t *testing.T) {
	r := NewFromSeed([]byte("range"))
	for i := 0; i < 1000; i++ {
		v := r.Uint64Range(10, 20)
		assert.True(t, v >= 10 && v <= 20, "got %d", v)
	}
}

func TestBiasedDraws(t *testing.T) {
	r := NewFromSeed([]byte("biased"))
	for i := 0; i < 1000; i++ {
		f := r.FermatNumber()
		assert.True(t, f >= 3 && f <= 1<<31+1, "fermat %d", f)
		assert.True(t, (f-1)&(f-2) == 0, "fermat %d not 2^e+1", f)

		m := r.MersenneNumber()
		assert.True(t, m >= 1 && m <= 1<<32-1, "mersenne %d", m)
		assert.True(t, m&(m+1) == 0, "mersenne %d not 2^e-1", m)
	}
}

func TestFillString(t *testing.T) {
	r := NewFromSeed([]byte("strings"))
	buf := make([]byte, 256)
	buf[255] = 0xAA
	assert.Nil(t, r.FillString(buf))
	assert.Equal(t, byte(0), buf[254])
	assert.Equal(t, byte(0xAA), buf[255]) // final byte untouched
	for i := 0; i < 254; i++ {
		assert.True(t, strings.IndexByte(charset, buf[i]) >= 0, "byte %#x at %d", buf[i], i)
	}

	assert.NotNil(t, r.FillString(make([]byte, 1)))
}

func TestSeedDerivation(t *testing.T) {
	a := NewFromSeed([]byte("same seed"))
	b := NewFromSeed([]byte("same seed"))
	c := NewFromSeed([]byte("other seed"))
	va, vb, vc := a.Uint64(), b.Uint64(), c.Uint64()
	assert.Equal(t, va, vb)
	assert.NotEqual(t, va, vc)
}
