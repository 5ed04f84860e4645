//go:build linux
// +build linux

package ioport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkWraps(t *testing.T) {
	buf := make([]byte, 10)
	for i := range buf {
		buf[i] = byte(i)
	}
	// width 4 windows walk offsets 0,4,.. modulo 7
	assert.Equal(t, []byte{0, 1, 2, 3}, chunk(buf, 0, 4))
	assert.Equal(t, []byte{4, 5, 6, 7}, chunk(buf, 1, 4))
	assert.Equal(t, []byte{1, 2, 3, 4}, chunk(buf, 2, 4)) // 8 mod 7
	for i := 0; i < 100; i++ {
		assert.Equal(t, 4, len(chunk(buf, i, 4)))
	}
}

func TestOpenDevPortUnprivileged(t *testing.T) {
	bus, err := OpenDevPort()
	if err != nil {
		// expected without CAP_SYS_RAWIO
		return
	}
	bus.Close()
}
