package emu

import (
	"io"
	"os"
)

// FileDescriptor represents a guest file descriptor.
type FileDescriptor struct {
	Path   string
	Reader io.Reader
	Writer io.Writer

	// HostFile is set for descriptors opened with openat.
	HostFile *os.File
}

// FDTable maps guest file descriptors onto host streams and files.
// Descriptors 0, 1 and 2 are bound to the emulator's standard streams.
type FDTable struct {
	fds    map[int32]*FileDescriptor
	nextFD int32
}

// NewFDTable creates a descriptor table with the standard streams bound.
// A nil stream leaves the descriptor open but inert: reads return EOF and
// writes are discarded.
func NewFDTable(stdin io.Reader, stdout, stderr io.Writer) *FDTable {
	t := &FDTable{
		fds:    make(map[int32]*FileDescriptor),
		nextFD: 3,
	}

	t.fds[0] = &FileDescriptor{Path: "stdin", Reader: stdin}
	t.fds[1] = &FileDescriptor{Path: "stdout", Writer: stdout}
	t.fds[2] = &FileDescriptor{Path: "stderr", Writer: stderr}

	return t
}

// Open opens a host file and returns a new guest descriptor.
func (t *FDTable) Open(path string, flags int, mode os.FileMode) (int32, error) {
	hostFile, err := os.OpenFile(path, flags, mode)
	if err != nil {
		return 0, err
	}

	fd := t.nextFD
	t.nextFD++

	t.fds[fd] = &FileDescriptor{
		Path:     path,
		Reader:   hostFile,
		Writer:   hostFile,
		HostFile: hostFile,
	}

	return fd, nil
}

// Close releases a descriptor. Standard streams are unbound, not closed.
func (t *FDTable) Close(fd int32) error {
	entry, exists := t.fds[fd]
	if !exists {
		return os.ErrInvalid
	}

	delete(t.fds, fd)

	if entry.HostFile != nil {
		return entry.HostFile.Close()
	}

	return nil
}

// Get returns the descriptor entry if it is open.
func (t *FDTable) Get(fd int32) (*FileDescriptor, bool) {
	entry, exists := t.fds[fd]
	return entry, exists
}

// IsOpen checks if a descriptor is open.
func (t *FDTable) IsOpen(fd int32) bool {
	_, exists := t.fds[fd]
	return exists
}

// Read reads from a descriptor. Descriptors without a reader report EOF.
func (t *FDTable) Read(fd int32, buf []byte) (int, error) {
	entry, exists := t.fds[fd]
	if !exists {
		return 0, os.ErrInvalid
	}

	if entry.Reader == nil {
		return 0, io.EOF
	}

	return entry.Reader.Read(buf)
}

// Write writes to a descriptor. Descriptors without a writer accept and
// discard the data.
func (t *FDTable) Write(fd int32, buf []byte) (int, error) {
	entry, exists := t.fds[fd]
	if !exists {
		return 0, os.ErrInvalid
	}

	if entry.Writer == nil {
		return len(buf), nil
	}

	return entry.Writer.Write(buf)
}

// Seek sets the file position of a host-file descriptor.
func (t *FDTable) Seek(fd int32, offset int64, whence int) (int64, error) {
	entry, exists := t.fds[fd]
	if !exists || entry.HostFile == nil {
		return 0, os.ErrInvalid
	}

	return entry.HostFile.Seek(offset, whence)
}

// CloseAll closes every host file still open.
func (t *FDTable) CloseAll() {
	for fd, entry := range t.fds {
		if entry.HostFile != nil {
			_ = entry.HostFile.Close()
			delete(t.fds, fd)
		}
	}
}
