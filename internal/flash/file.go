package flash

import (
	"bytes"
	"fmt"
	"os"
)

// File is a Sector persisted as an image file. The host daemon uses it in
// place of the on-chip flash.
type File struct {
	f    *os.File
	size int64
}

// OpenFile opens the image at path, creating an erased image of size bytes
// when it does not exist. An existing image must have exactly size bytes.
func OpenFile(path string, size int64) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open flash image: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to stat flash image: %w", err)
	}

	img := &File{f: f, size: size}
	switch info.Size() {
	case 0:
		if err := img.Erase(); err != nil {
			_ = f.Close()
			return nil, err
		}
	case size:
	default:
		_ = f.Close()
		return nil, fmt.Errorf("flash image %s has %d bytes, want %d", path, info.Size(), size)
	}

	return img, nil
}

func (s *File) ReadAt(p []byte, off int64) (int, error) {
	return s.f.ReadAt(p, off)
}

func (s *File) Program(p []byte, off int64) error {
	if err := checkRange(off, len(p), s.size); err != nil {
		return err
	}
	cur := make([]byte, len(p))
	if _, err := s.f.ReadAt(cur, off); err != nil {
		return fmt.Errorf("failed to read before program: %w", err)
	}
	if err := checkProgram(cur, p); err != nil {
		return err
	}
	if _, err := s.f.WriteAt(p, off); err != nil {
		return fmt.Errorf("failed to program flash image: %w", err)
	}
	return s.f.Sync()
}

func (s *File) Erase() error {
	if _, err := s.f.WriteAt(bytes.Repeat([]byte{Erased}, int(s.size)), 0); err != nil {
		return fmt.Errorf("failed to erase flash image: %w", err)
	}
	return s.f.Sync()
}

func (s *File) Size() int64 { return s.size }

// Close closes the image file.
func (s *File) Close() error { return s.f.Close() }
