package array

import (
	"encoding/binary"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func u32(v uint32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return buf[:]
}

func contentsU32(t *testing.T, a *Array) []uint32 {
	out := make([]uint32, a.Length())
	for i := range out {
		elem, err := a.Get(i)
		assert.Nil(t, err)
		out[i] = binary.LittleEndian.Uint32(elem)
	}
	return out
}

func TestAppendInsert(t *testing.T) {
	a, err := New(4)
	assert.Nil(t, err)
	for _, v := range []uint32{1, 2, 3} {
		assert.Nil(t, a.Append(u32(v), 1))
	}
	assert.Nil(t, a.Insert(1, u32(99), 1))
	assert.Equal(t, 4, a.Length())
	assert.Equal(t, []uint32{1, 99, 2, 3}, contentsU32(t, a))
}

func TestPrepend(t *testing.T) {
	a, _ := New(4)
	assert.Nil(t, a.Append(u32(2), 1))
	assert.Nil(t, a.Prepend(u32(1), 1))
	assert.Equal(t, []uint32{1, 2}, contentsU32(t, a))
}

func TestRemove(t *testing.T) {
	a, _ := New(4)
	for _, v := range []uint32{1, 2, 3, 4, 5} {
		assert.Nil(t, a.Append(u32(v), 1))
	}
	assert.Nil(t, a.Remove(1, 2)) // keeps order
	assert.Equal(t, []uint32{1, 4, 5}, contentsU32(t, a))

	assert.Nil(t, a.RemoveFast(0)) // swaps in the last element
	assert.Equal(t, []uint32{5, 4}, contentsU32(t, a))
}

func TestRemoveErrors(t *testing.T) {
	a, _ := New(4)
	assert.Nil(t, a.Append(u32(1), 1))
	assert.NotNil(t, a.Remove(1, 1))
	assert.NotNil(t, a.Remove(0, 2))
	assert.NotNil(t, a.RemoveFast(-1))
	assert.Equal(t, 1, a.Length())
}

func TestInvalidArgs(t *testing.T) {
	_, err := New(0)
	assert.NotNil(t, err)
	_, err = New(-4)
	assert.NotNil(t, err)

	a, _ := New(4)
	assert.NotNil(t, a.Append(nil, 1))
	assert.NotNil(t, a.Append(u32(1), 2)) // data shorter than count
	assert.NotNil(t, a.Insert(0, u32(1), 1))
	assert.NotNil(t, a.SetLength(-1))
	_, err = a.Get(0)
	assert.NotNil(t, err)
	assert.Equal(t, 0, a.Length())
}

func TestSetLength(t *testing.T) {
	a, err := NewWithLength(8, 100)
	assert.Nil(t, err)
	assert.Equal(t, 100, a.Length())
	capAt100 := a.Capacity()
	assert.True(t, capAt100 >= 100)

	// shrinking trims only the logical length
	assert.Nil(t, a.SetLength(3))
	assert.Equal(t, 3, a.Length())
	assert.Equal(t, capAt100, a.Capacity())
}

func TestGrowthPolicy(t *testing.T) {
	a, _ := New(2)
	assert.Equal(t, 16, a.Capacity())
	prev := a.Capacity()
	for _, n := range []int{1, 17, 50, 1000, 12345} {
		assert.Nil(t, a.SetLength(n))
		assert.True(t, a.Capacity() >= n)
		assert.True(t, a.Capacity() >= prev) // never shrinks implicitly
		prev = a.Capacity()
	}
}

func TestNetLength(t *testing.T) {
	a, _ := New(1)
	net := 0
	for i := 0; i < 200; i++ {
		assert.Nil(t, a.Append([]byte{byte(i)}, 1))
		net++
		if i%3 == 0 {
			assert.Nil(t, a.RemoveFast(0))
			net--
		}
	}
	assert.Equal(t, net, a.Length())
}

func TestSetGet(t *testing.T) {
	a, _ := NewWithLength(4, 2)
	assert.Nil(t, a.Set(1, u32(7)))
	elem, err := a.Get(1)
	assert.Nil(t, err)
	assert.Equal(t, uint32(7), binary.LittleEndian.Uint32(elem))
	assert.NotNil(t, a.Set(2, u32(7)))
}

func TestUint64Helpers(t *testing.T) {
	a, _ := New(8)
	assert.Nil(t, a.AppendUint64(0xdeadbeef))
	v, err := a.Uint64At(0)
	assert.Nil(t, err)
	assert.Equal(t, uint64(0xdeadbeef), v)

	b, _ := New(4)
	assert.NotNil(t, b.AppendUint64(1))
}

func TestConcurrentAppend(t *testing.T) {
	a, _ := New(4)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				if err := a.Append(u32(uint32(i)), 1); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 8*500, a.Length())
}
