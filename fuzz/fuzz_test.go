package fuzz

import (
	"testing"
)

// go test -c .
// RANDFILE=~/Downloads/randfile RANDCOUNT=100000 ./fuzz.test

func Test1(t *testing.T) {
	runTest(DefaultConfig)
}
