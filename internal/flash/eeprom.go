package flash

import (
	"fmt"
	"io"
)

// EEPROM emulates byte-addressable storage on top of one Sector.
// It is not safe for concurrent use.
type EEPROM struct {
	sector Sector
	shadow []byte

	// staged range [lo, hi); lo == hi means nothing is staged
	lo, hi int64

	// Erases counts the erase cycles Commit and Erase have spent.
	Erases int
}

// NewEEPROM loads the sector content into a RAM shadow.
func NewEEPROM(sector Sector) (*EEPROM, error) {
	shadow := make([]byte, sector.Size())
	if _, err := sector.ReadAt(shadow, 0); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read sector: %w", err)
	}
	return &EEPROM{sector: sector, shadow: shadow}, nil
}

func (e *EEPROM) Size() int64 { return int64(len(e.shadow)) }

// ReadAt reads from the shadow, so staged writes are visible before Commit.
func (e *EEPROM) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= e.Size() {
		return 0, io.EOF
	}
	n := copy(p, e.shadow[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (e *EEPROM) Write(off int64, p []byte) error {
	if err := checkRange(off, len(p), e.Size()); err != nil {
		return err
	}
	copy(e.shadow[off:], p)

	end := off + int64(len(p))
	if e.lo == e.hi {
		e.lo, e.hi = off, end
		return nil
	}
	e.lo = min(e.lo, off)
	e.hi = max(e.hi, end)
	return nil
}

// Commit makes staged writes durable. Bytes that only clear bits are
// programmed in place; otherwise the sector is erased and the full shadow
// reprogrammed.
func (e *EEPROM) Commit() error {
	if e.lo == e.hi {
		return nil
	}

	cur := make([]byte, e.hi-e.lo)
	if _, err := e.sector.ReadAt(cur, e.lo); err != nil && err != io.EOF {
		return fmt.Errorf("failed to read sector: %w", err)
	}

	if checkProgram(cur, e.shadow[e.lo:e.hi]) == nil {
		if err := e.sector.Program(e.shadow[e.lo:e.hi], e.lo); err != nil {
			return fmt.Errorf("failed to program sector: %w", err)
		}
	} else {
		if err := e.sector.Erase(); err != nil {
			return fmt.Errorf("failed to erase sector: %w", err)
		}
		e.Erases++
		if err := e.sector.Program(e.shadow, 0); err != nil {
			return fmt.Errorf("failed to reprogram sector: %w", err)
		}
	}

	e.lo, e.hi = 0, 0
	return nil
}

func (e *EEPROM) ClearBits(off int64, p []byte) error {
	if err := checkRange(off, len(p), e.Size()); err != nil {
		return err
	}
	if err := e.sector.Program(p, off); err != nil {
		return err
	}
	copy(e.shadow[off:], p)
	return nil
}

// Erase erases the sector and drops anything staged.
func (e *EEPROM) Erase() error {
	if err := e.sector.Erase(); err != nil {
		return fmt.Errorf("failed to erase sector: %w", err)
	}
	e.Erases++
	fill(e.shadow)
	e.lo, e.hi = 0, 0
	return nil
}
