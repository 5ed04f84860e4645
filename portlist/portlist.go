// Package portlist expands port allow-list strings such as
// "80,443,8000-8002" into the enumerated array the randomizer samples.
package portlist

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/smartio/iofuzzer/array"
)

// MaxPort is the top of the 16-bit I/O address space.
const MaxPort = 0xffff

// Parse expands a comma-separated list of ports and begin-end ranges into
// an array of uint64 port numbers. Numbers follow strconv base-0 rules, so
// 0x prefixes work. Endpoints above MaxPort are clamped to it.
func Parse(s string) (*array.Array, error) {
	ports, err := array.New(8)
	if err != nil {
		return nil, err
	}
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		begin, end, err := parseRange(tok)
		if err != nil {
			return nil, err
		}
		for port := begin; port <= end; port++ {
			if err := ports.AppendUint64(port); err != nil {
				return nil, err
			}
		}
	}
	return ports, nil
}

func parseRange(tok string) (begin, end uint64, err error) {
	var bs, es string
	if i := strings.IndexByte(tok, '-'); i >= 0 {
		bs, es = tok[:i], tok[i+1:]
	} else {
		bs, es = tok, tok
	}
	begin, err = strconv.ParseUint(strings.TrimSpace(bs), 0, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad port %q: %s", tok, err)
	}
	end, err = strconv.ParseUint(strings.TrimSpace(es), 0, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad port %q: %s", tok, err)
	}
	if begin > MaxPort {
		begin = MaxPort
	}
	if end > MaxPort {
		end = MaxPort
	}
	return begin, end, nil
}
