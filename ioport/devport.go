//go:build linux
// +build linux

package ioport

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/smartio/iofuzzer/types"
)

// DevPortBus drives the x86 I/O address space through /dev/port, where a
// read or write of n bytes at offset p is an n-byte port access at p.
// Opening it needs CAP_SYS_RAWIO; a fault raised by the touched hardware
// can still take the whole process down, which is the point.
type DevPortBus struct {
	fd int
}

// OpenDevPort opens /dev/port for port I/O. Failure here is the
// privilege check: unprivileged processes stop before touching hardware.
func OpenDevPort() (*DevPortBus, error) {
	fd, err := unix.Open("/dev/port", unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open /dev/port: %s", err)
	}
	return &DevPortBus{fd: fd}, nil
}

func (b *DevPortBus) Exec(op types.Op, args types.Operands) error {
	w := op.Width()
	if !op.IsString() {
		return b.once(op, w, args)
	}
	// rep forms: the port stays fixed, the memory pointer walks the
	// scratch buffer (wrapping; its contents are fuzz data anyway)
	for i := uint64(0); i < args.Count; i++ {
		var buf []byte
		if op.IsOut() {
			buf = chunk(args.Src, int(i), w)
			if _, err := unix.Pwrite(b.fd, buf, int64(args.Port)); err != nil {
				return fmt.Errorf("%s port %#x: %s", op, args.Port, err)
			}
		} else {
			buf = chunk(args.Dst, int(i), w)
			if _, err := unix.Pread(b.fd, buf, int64(args.Port)); err != nil {
				return fmt.Errorf("%s port %#x: %s", op, args.Port, err)
			}
		}
	}
	return nil
}

func (b *DevPortBus) once(op types.Op, w int, args types.Operands) error {
	var buf [4]byte
	if op.IsOut() {
		v := args.Value
		for i := 0; i < w; i++ {
			buf[i] = byte(v >> (8 * i))
		}
		if _, err := unix.Pwrite(b.fd, buf[:w], int64(args.Port)); err != nil {
			return fmt.Errorf("%s port %#x: %s", op, args.Port, err)
		}
		return nil
	}
	if _, err := unix.Pread(b.fd, buf[:w], int64(args.Port)); err != nil {
		return fmt.Errorf("%s port %#x: %s", op, args.Port, err)
	}
	return nil
}

func (b *DevPortBus) Close() error {
	return unix.Close(b.fd)
}

// chunk returns the i-th w-byte window of buf, wrapping around its end.
func chunk(buf []byte, i, w int) []byte {
	off := (i * w) % (len(buf) - w + 1)
	return buf[off : off+w]
}
