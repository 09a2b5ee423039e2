package flash

import (
	"errors"
	"io"
)

// SectorSize is the erase unit of the emulated part (4 KiB).
const SectorSize = 4096

// Erased is the value every byte reads as after an erase.
const Erased = 0xFF

var (
	// ErrBitSet is returned when a program operation would change a bit
	// from 0 to 1 without an erase.
	ErrBitSet = errors.New("flash: program would set a cleared bit")

	// ErrOutOfRange is returned for accesses past the end of the sector.
	ErrOutOfRange = errors.New("flash: access out of range")
)

// Sector is a single erasable flash sector.
//
// Program has a precondition: every byte of p may only clear bits relative
// to the current content. Implementations must reject violations with
// ErrBitSet and leave the sector unchanged.
type Sector interface {
	io.ReaderAt
	Program(p []byte, off int64) error
	Erase() error
	Size() int64
}

// Medium is the byte-addressable view the settings store works against.
type Medium interface {
	io.ReaderAt
	Size() int64

	// Write stages p at off. It becomes durable on Commit and may cost an
	// erase cycle there.
	Write(off int64, p []byte) error

	// ClearBits programs p at off immediately. Same precondition as
	// Sector.Program; it never erases.
	ClearBits(off int64, p []byte) error

	Commit() error
	Erase() error
}

// checkProgram verifies that writing next over cur only clears bits.
func checkProgram(cur, next []byte) error {
	for i := range next {
		if next[i]&^cur[i] != 0 {
			return ErrBitSet
		}
	}
	return nil
}

func checkRange(off int64, n int, size int64) error {
	if off < 0 || off+int64(n) > size {
		return ErrOutOfRange
	}
	return nil
}
