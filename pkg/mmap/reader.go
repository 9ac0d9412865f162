// Package mmap reads input files through a read-only memory mapping, so the
// parsing engines consume the page cache directly instead of copying through
// a read buffer.
package mmap

import (
	"io"
	"os"
	"sync"

	"github.com/ajitpratap0/colbatch/pkg/errors"
)

// Reader is a memory-mapped file. It implements io.Reader with its own
// cursor, plus io.ReaderAt and io.Closer.
type Reader struct {
	file   *os.File
	data   []byte
	offset int64

	mu     sync.Mutex
	closed bool
}

// Open maps the whole file read-only. Empty files are not mapped and read as
// immediate EOF.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path) //nolint:gosec // G304: path comes from configuration
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open file").WithDetail("path", path)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to stat file").WithDetail("path", path)
	}

	r := &Reader{file: file}
	if stat.Size() == 0 {
		return r, nil
	}

	data, err := mmap(int(file.Fd()), int(stat.Size()))
	if err != nil {
		file.Close()
		if errors.IsType(err, errors.ErrorTypeCapability) {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to mmap file").WithDetail("path", path)
	}
	// advisory only
	_ = adviseSequential(data)

	r.data = data
	return r, nil
}

// Size returns the mapped length
func (r *Reader) Size() int64 {
	return int64(len(r.data))
}

// Bytes returns the mapped data. The slice is invalid after Close.
func (r *Reader) Bytes() []byte {
	return r.data
}

// Read copies from the current cursor
func (r *Reader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, os.ErrClosed
	}
	if r.offset >= int64(len(r.data)) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.offset:])
	r.offset += int64(n)
	return n, nil
}

// ReadAt copies from off without moving the cursor
func (r *Reader) ReadAt(p []byte, off int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, os.ErrClosed
	}
	if off < 0 {
		return 0, errors.Newf(errors.ErrorTypeValidation, "negative offset %d", off)
	}
	if off >= int64(len(r.data)) {
		return 0, io.EOF
	}
	n := copy(p, r.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Close unmaps the data and closes the file
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error
	if r.data != nil {
		if err := munmap(r.data); err != nil {
			errs = append(errs, err)
		}
		r.data = nil
	}
	if err := r.file.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to close mapped file")
	}
	return nil
}
