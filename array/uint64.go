package array

import (
	"encoding/binary"
	"fmt"
)

// Uint64 helpers for 8-byte-element arrays, the shape used by the port
// allow-list. Elements are stored little-endian.

func (a *Array) AppendUint64(v uint64) error {
	if a.elemSize != 8 {
		return fmt.Errorf("element size is %d, not 8", a.elemSize)
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return a.Append(buf[:], 1)
}

func (a *Array) Uint64At(index int) (uint64, error) {
	if a.elemSize != 8 {
		return 0, fmt.Errorf("element size is %d, not 8", a.elemSize)
	}
	elem, err := a.Get(index)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(elem), nil
}
