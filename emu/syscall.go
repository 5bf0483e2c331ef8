package emu

import (
	"errors"
	"io"
	"os"

	"github.com/go-logr/logr"
)

// RISC-V Linux syscall numbers.
const (
	SyscallOpenat    uint32 = 56 // openat(dirfd, path, flags, mode)
	SyscallClose     uint32 = 57 // close(fd)
	SyscallLseek     uint32 = 62 // lseek(fd, offset, whence)
	SyscallRead      uint32 = 63 // read(fd, buf, count)
	SyscallWrite     uint32 = 64 // write(fd, buf, count)
	SyscallExit      uint32 = 93 // exit(status)
	SyscallExitGroup uint32 = 94 // exit_group(status)
)

// Linux error codes.
const (
	ENOENT = 2  // No such file or directory
	EIO    = 5  // I/O error
	EBADF  = 9  // Bad file descriptor
	EACCES = 13 // Permission denied
	EFAULT = 14 // Bad address
	EEXIST = 17 // File exists
	EINVAL = 22 // Invalid argument
	ENOSYS = 38 // Function not implemented
)

// AtFDCWD is the dirfd value meaning "relative to the working directory".
const AtFDCWD int32 = -100

// Linux open flags as seen by the guest.
const (
	oWronly = 0x1
	oRdwr   = 0x2
	oCreat  = 0x40
	oExcl   = 0x80
	oTrunc  = 0x200
	oAppend = 0x400
)

// maxPathLen bounds the guest path strings read by openat.
const maxPathLen = 4096

// SyscallResult represents the result of a syscall execution.
type SyscallResult struct {
	// Exited is true if the syscall caused program termination.
	Exited bool

	// ExitCode is the exit status if Exited is true.
	ExitCode int32
}

// SyscallHandler services environment calls raised by ecall.
type SyscallHandler interface {
	// Handle executes the syscall indicated by the register state.
	// RISC-V Linux convention:
	//   - Syscall number in a7 (x17)
	//   - Arguments in a0-a5 (x10-x15)
	//   - Return value in a0
	Handle(base *Base) SyscallResult
}

// DefaultSyscallHandler implements a small Linux-like syscall surface on
// top of an FDTable.
type DefaultSyscallHandler struct {
	fds *FDTable
	log logr.Logger
}

// NewDefaultSyscallHandler creates a default syscall handler.
func NewDefaultSyscallHandler(fds *FDTable, log logr.Logger) *DefaultSyscallHandler {
	return &DefaultSyscallHandler{
		fds: fds,
		log: log,
	}
}

// FDTable returns the descriptor table used by the handler.
func (h *DefaultSyscallHandler) FDTable() *FDTable {
	return h.fds
}

// Handle executes the syscall indicated by the register state.
func (h *DefaultSyscallHandler) Handle(base *Base) SyscallResult {
	num := uint32(base.Get(RegA7))

	switch num {
	case SyscallOpenat:
		return h.handleOpenat(base)
	case SyscallClose:
		return h.handleClose(base)
	case SyscallLseek:
		return h.handleLseek(base)
	case SyscallRead:
		return h.handleRead(base)
	case SyscallWrite:
		return h.handleWrite(base)
	case SyscallExit, SyscallExitGroup:
		return SyscallResult{Exited: true, ExitCode: base.Get(RegA0)}
	default:
		h.log.V(1).Info("unsupported syscall", "number", num)
		setError(base, ENOSYS)
		return SyscallResult{}
	}
}

func (h *DefaultSyscallHandler) handleOpenat(base *Base) SyscallResult {
	dirfd := base.Get(RegA0)
	pathPtr := uint32(base.Get(RegA1))
	flags := base.Get(RegA2)
	mode := uint32(base.Get(RegA3))

	if dirfd != AtFDCWD {
		setError(base, EBADF)
		return SyscallResult{}
	}

	path, ok := readCString(base.Bus(), pathPtr)
	if !ok {
		setError(base, EINVAL)
		return SyscallResult{}
	}

	fd, err := h.fds.Open(path, hostOpenFlags(flags), os.FileMode(mode&0o777))
	if err != nil {
		setError(base, errnoOf(err))
		return SyscallResult{}
	}

	base.Set(RegA0, fd)
	return SyscallResult{}
}

func (h *DefaultSyscallHandler) handleClose(base *Base) SyscallResult {
	if err := h.fds.Close(base.Get(RegA0)); err != nil {
		setError(base, EBADF)
		return SyscallResult{}
	}

	base.Set(RegA0, 0)
	return SyscallResult{}
}

func (h *DefaultSyscallHandler) handleLseek(base *Base) SyscallResult {
	fd := base.Get(RegA0)
	offset := int64(base.Get(RegA1))
	whence := int(base.Get(RegA2))

	if whence < io.SeekStart || whence > io.SeekEnd {
		setError(base, EINVAL)
		return SyscallResult{}
	}

	pos, err := h.fds.Seek(fd, offset, whence)
	if err != nil {
		setError(base, EBADF)
		return SyscallResult{}
	}

	base.Set(RegA0, int32(pos))
	return SyscallResult{}
}

func (h *DefaultSyscallHandler) handleRead(base *Base) SyscallResult {
	fd := base.Get(RegA0)
	bufPtr := uint32(base.Get(RegA1))
	count := uint32(base.Get(RegA2))

	if !h.fds.IsOpen(fd) {
		setError(base, EBADF)
		return SyscallResult{}
	}

	buf, ok := guestBuffer(base.Bus(), bufPtr, count)
	if !ok {
		setError(base, EFAULT)
		return SyscallResult{}
	}

	n, err := h.fds.Read(fd, buf)
	if err != nil && n == 0 {
		if errors.Is(err, io.EOF) {
			base.Set(RegA0, 0)
		} else {
			setError(base, EIO)
		}
		return SyscallResult{}
	}

	base.Bus().WriteBytes(bufPtr, buf[:n])

	base.Set(RegA0, int32(n))
	return SyscallResult{}
}

func (h *DefaultSyscallHandler) handleWrite(base *Base) SyscallResult {
	fd := base.Get(RegA0)
	bufPtr := uint32(base.Get(RegA1))
	count := uint32(base.Get(RegA2))

	if !h.fds.IsOpen(fd) {
		setError(base, EBADF)
		return SyscallResult{}
	}

	buf, ok := guestBuffer(base.Bus(), bufPtr, count)
	if !ok {
		setError(base, EFAULT)
		return SyscallResult{}
	}
	base.Bus().ReadBytes(bufPtr, buf)

	n, err := h.fds.Write(fd, buf)
	if err != nil {
		setError(base, EIO)
		return SyscallResult{}
	}

	base.Set(RegA0, int32(n))
	return SyscallResult{}
}

// guestBuffer allocates a host buffer for a guest range, clamped to the
// mapped part of memory. A non-empty range starting outside memory is a
// fault.
func guestBuffer(bus *Bus, addr, count uint32) ([]byte, bool) {
	n := bus.Span(addr, count)
	if n == 0 && count > 0 {
		return nil, false
	}
	return make([]byte, n), true
}

// setError sets a0 to -errno.
func setError(base *Base, errno int) {
	base.Set(RegA0, int32(-errno))
}

func readCString(bus *Bus, addr uint32) (string, bool) {
	buf := make([]byte, 0, 64)
	for i := uint32(0); i < maxPathLen; i++ {
		if !bus.Contains(addr+i, Byte) {
			return "", false
		}
		c := byte(bus.Load(addr+i, Byte))
		if c == 0 {
			return string(buf), true
		}
		buf = append(buf, c)
	}
	return "", false
}

func hostOpenFlags(flags int32) int {
	var host int
	switch {
	case flags&oRdwr != 0:
		host = os.O_RDWR
	case flags&oWronly != 0:
		host = os.O_WRONLY
	default:
		host = os.O_RDONLY
	}
	if flags&oCreat != 0 {
		host |= os.O_CREATE
	}
	if flags&oExcl != 0 {
		host |= os.O_EXCL
	}
	if flags&oTrunc != 0 {
		host |= os.O_TRUNC
	}
	if flags&oAppend != 0 {
		host |= os.O_APPEND
	}
	return host
}

func errnoOf(err error) int {
	switch {
	case errors.Is(err, os.ErrNotExist):
		return ENOENT
	case errors.Is(err, os.ErrPermission):
		return EACCES
	case errors.Is(err, os.ErrExist):
		return EEXIST
	default:
		return EIO
	}
}
