package portlist

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/smartio/iofuzzer/array"
)

func contents(t *testing.T, a *array.Array) []uint64 {
	out := make([]uint64, a.Length())
	for i := range out {
		v, err := a.Uint64At(i)
		assert.Nil(t, err)
		out[i] = v
	}
	return out
}

func TestParse(t *testing.T) {
	ports, err := Parse("80,443,8000-8002")
	assert.Nil(t, err)
	assert.Equal(t, []uint64{80, 443, 8000, 8001, 8002}, contents(t, ports))
}

func TestParseSingle(t *testing.T) {
	ports, err := Parse("0x3f8")
	assert.Nil(t, err)
	assert.Equal(t, []uint64{0x3f8}, contents(t, ports))
}

func TestParseHexRange(t *testing.T) {
	ports, err := Parse("0x10-0x12")
	assert.Nil(t, err)
	assert.Equal(t, []uint64{0x10, 0x11, 0x12}, contents(t, ports))
}

func TestParseClamp(t *testing.T) {
	ports, err := Parse("65534-70000")
	assert.Nil(t, err)
	assert.Equal(t, []uint64{65534, 65535}, contents(t, ports))

	ports, err = Parse("70000")
	assert.Nil(t, err)
	assert.Equal(t, []uint64{65535}, contents(t, ports))
}

func TestParseEmptyTokens(t *testing.T) {
	ports, err := Parse(" 80 , ,443,")
	assert.Nil(t, err)
	assert.Equal(t, []uint64{80, 443}, contents(t, ports))
}

func TestParseEmptyRange(t *testing.T) {
	// descending ranges expand to nothing
	ports, err := Parse("9-5")
	assert.Nil(t, err)
	assert.Equal(t, 0, ports.Length())
}

func TestParseMalformed(t *testing.T) {
	for _, s := range []string{"abc", "80-", "-80", "1,2,x"} {
		_, err := Parse(s)
		assert.NotNil(t, err, "input %q", s)
	}
}
