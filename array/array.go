package array

import (
	"fmt"
	"sync"
)

// Array is a growable sequence of fixed-size elements. Every operation
// serializes on the array's own mutex, so one Array can be shared between
// workers. Backing storage only ever grows; shrinking just trims the
// logical length.
type Array struct {
	mtx          sync.Mutex
	data         []byte
	elemSize     int
	growthFactor float64
	length       int // elements
	size         int // capacity in bytes
}

const minLength = 16

// New creates an empty array of elemSize-byte elements.
func New(elemSize int) (*Array, error) {
	if elemSize <= 0 {
		return nil, fmt.Errorf("invalid element size %d", elemSize)
	}
	return &Array{
		data:         make([]byte, minLength*elemSize),
		elemSize:     elemSize,
		growthFactor: 2,
		size:         minLength * elemSize,
	}, nil
}

// NewWithLength creates an array pre-sized to length elements, all zero.
func NewWithLength(elemSize, length int) (*Array, error) {
	a, err := New(elemSize)
	if err != nil {
		return nil, err
	}
	if err := a.SetLength(length); err != nil {
		return nil, err
	}
	return a, nil
}

// ElementSize returns the fixed element size in bytes.
func (a *Array) ElementSize() int {
	return a.elemSize
}

// Capacity returns the number of elements the backing store can hold
// without reallocating.
func (a *Array) Capacity() int {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	return a.size / a.elemSize
}

// Length returns the current number of elements.
func (a *Array) Length() int {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	return a.length
}

// Append adds count elements taken from data to the end of the array.
func (a *Array) Append(data []byte, count int) error {
	if err := a.checkVals(data, count); err != nil {
		return err
	}
	a.mtx.Lock()
	defer a.mtx.Unlock()
	length := a.length
	a.setLength(length + count)
	copy(a.data[length*a.elemSize:], data[:count*a.elemSize])
	return nil
}

// Prepend adds count elements taken from data to the front of the array,
// shifting the existing elements up.
func (a *Array) Prepend(data []byte, count int) error {
	if err := a.checkVals(data, count); err != nil {
		return err
	}
	a.mtx.Lock()
	defer a.mtx.Unlock()
	length := a.length
	a.setLength(length + count)
	copy(a.data[count*a.elemSize:], a.data[:length*a.elemSize])
	copy(a.data, data[:count*a.elemSize])
	return nil
}

// Insert places count elements taken from data at index, shifting the
// elements at and after index up. The index must address an existing
// element.
func (a *Array) Insert(index int, data []byte, count int) error {
	if err := a.checkVals(data, count); err != nil {
		return err
	}
	a.mtx.Lock()
	defer a.mtx.Unlock()
	length := a.length
	if index < 0 || index >= length {
		return fmt.Errorf("index %d out of range [0,%d)", index, length)
	}
	a.setLength(length + count)
	es := a.elemSize
	copy(a.data[(index+count)*es:], a.data[index*es:length*es])
	copy(a.data[index*es:], data[:count*es])
	return nil
}

// Remove deletes count elements starting at index, preserving the order
// of the remaining elements.
func (a *Array) Remove(index, count int) error {
	if count <= 0 {
		return fmt.Errorf("invalid count %d", count)
	}
	a.mtx.Lock()
	defer a.mtx.Unlock()
	length := a.length
	if index < 0 || index >= length || index+count > length {
		return fmt.Errorf("range [%d,%d) out of range [0,%d)", index, index+count, length)
	}
	es := a.elemSize
	copy(a.data[index*es:], a.data[(index+count)*es:length*es])
	a.setLength(length - count)
	return nil
}

// RemoveFast deletes the element at index by swapping the last element
// into its slot. O(1), but reorders the array.
func (a *Array) RemoveFast(index int) error {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	length := a.length
	if index < 0 || index >= length {
		return fmt.Errorf("index %d out of range [0,%d)", index, length)
	}
	es := a.elemSize
	copy(a.data[index*es:(index+1)*es], a.data[(length-1)*es:length*es])
	a.setLength(length - 1)
	return nil
}

// SetLength resizes the array to exactly n elements. Growing reallocates
// as needed and zero-fills the new tail; shrinking only trims the logical
// length and never frees memory.
func (a *Array) SetLength(n int) error {
	if n < 0 {
		return fmt.Errorf("invalid length %d", n)
	}
	a.mtx.Lock()
	defer a.mtx.Unlock()
	a.setLength(n)
	return nil
}

// Get copies the element at index into a fresh slice.
func (a *Array) Get(index int) ([]byte, error) {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	if index < 0 || index >= a.length {
		return nil, fmt.Errorf("index %d out of range [0,%d)", index, a.length)
	}
	out := make([]byte, a.elemSize)
	copy(out, a.data[index*a.elemSize:])
	return out, nil
}

// Set overwrites the element at index with data.
func (a *Array) Set(index int, data []byte) error {
	if len(data) < a.elemSize {
		return fmt.Errorf("need %d bytes, got %d", a.elemSize, len(data))
	}
	a.mtx.Lock()
	defer a.mtx.Unlock()
	if index < 0 || index >= a.length {
		return fmt.Errorf("index %d out of range [0,%d)", index, a.length)
	}
	copy(a.data[index*a.elemSize:(index+1)*a.elemSize], data)
	return nil
}

func (a *Array) checkVals(data []byte, count int) error {
	if data == nil {
		return fmt.Errorf("nil data")
	}
	if count <= 0 || len(data) < count*a.elemSize {
		return fmt.Errorf("need %d bytes for %d elements, got %d", count*a.elemSize, count, len(data))
	}
	return nil
}

// setLength adjusts length, growing the backing store if the byte size
// exceeds the current capacity. Caller must hold the mutex.
func (a *Array) setLength(length int) {
	size := length * a.elemSize
	if size <= a.size {
		a.length = length
		return
	}
	a.grow(length)
}

// grow expands the capacity by repeatedly multiplying by
// growthFactor*attempt until it covers the requested length, then does a
// single reallocation. Overshoots for large jumps; converges in few steps.
func (a *Array) grow(length int) {
	size := length * a.elemSize
	n := a.size
	for m := 1; size > n; m++ {
		n = int(float64(n) * (a.growthFactor * float64(m)))
	}
	data := make([]byte, n)
	copy(data, a.data)
	a.data = data
	a.length = length
	a.size = n
}
