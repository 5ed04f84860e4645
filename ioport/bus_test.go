package ioport

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/smartio/iofuzzer/types"
)

func TestNopBus(t *testing.T) {
	assert.Nil(t, NopBus{}.Exec(types.Outl, types.Operands{Port: 0x80}))
}

func TestRecordBusCopiesBuffers(t *testing.T) {
	bus := &RecordBus{}
	src := []byte("source")
	dst := []byte("destin")
	args := types.Operands{Value: 1, Port: 2, Src: src, Dst: dst}
	assert.Nil(t, bus.Exec(types.Outsb, args))

	// mutate the caller's buffers after the fact
	src[0] = 'X'
	dst[0] = 'Y'

	recs := bus.Records()
	assert.Equal(t, 1, len(recs))
	assert.Equal(t, types.Outsb, recs[0].Op)
	assert.Equal(t, []byte("source"), recs[0].Args.Src)
	assert.Equal(t, []byte("destin"), recs[0].Args.Dst)
}

func TestRecordBusSnapshot(t *testing.T) {
	bus := &RecordBus{}
	for i := 0; i < 3; i++ {
		assert.Nil(t, bus.Exec(types.Inb, types.Operands{Port: uint64(i)}))
	}
	recs := bus.Records()
	assert.Equal(t, 3, len(recs))
	assert.Nil(t, bus.Exec(types.Inb, types.Operands{}))
	assert.Equal(t, 3, len(recs)) // snapshot does not grow
}
