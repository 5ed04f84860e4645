//go:build debug
// +build debug

package iofuzzer

import (
	"fmt"
	"os"

	"github.com/smartio/iofuzzer/types"
)

func debugTrial(t types.Trial) {
	fmt.Fprintf(os.Stderr, "trial %s\n", t)
}
