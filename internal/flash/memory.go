package flash

import "io"

// Memory is an in-memory Sector. It starts erased.
type Memory struct {
	data []byte

	// Erases and Programs count successful operations.
	Erases   int
	Programs int
}

// NewMemory returns an erased sector of size bytes.
func NewMemory(size int) *Memory {
	m := &Memory{data: make([]byte, size)}
	fill(m.data)
	return m
}

func (m *Memory) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *Memory) Program(p []byte, off int64) error {
	if err := checkRange(off, len(p), int64(len(m.data))); err != nil {
		return err
	}
	if err := checkProgram(m.data[off:off+int64(len(p))], p); err != nil {
		return err
	}
	copy(m.data[off:], p)
	m.Programs++
	return nil
}

func (m *Memory) Erase() error {
	fill(m.data)
	m.Erases++
	return nil
}

func (m *Memory) Size() int64 { return int64(len(m.data)) }

// Bytes exposes the raw content for inspection in tests.
func (m *Memory) Bytes() []byte { return m.data }

func fill(b []byte) {
	for i := range b {
		b[i] = Erased
	}
}
