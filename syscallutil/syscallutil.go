// Package syscallutil implements the seven architecture-specific
// syscall trampolines of spec.md Section 4.4 "Calling" / Section 6.4:
// one per arity 0..6, each performing the raw OS syscall and
// returning (result i64, errno i32).
package syscallutil

import "golang.org/x/sys/unix"

// Invoke dispatches to the trampoline matching len(args) (0..6), as
// the "syscall" handler does after reading (params_count, syscall_num)
// off the operand stack (spec.md Section 4.4). More than six args
// returns (-1, EINVAL) without making a syscall.
func Invoke(num uintptr, args []uintptr) (result int64, errno int32) {
	switch len(args) {
	case 0:
		return Syscall0(num)
	case 1:
		return Syscall1(num, args[0])
	case 2:
		return Syscall2(num, args[0], args[1])
	case 3:
		return Syscall3(num, args[0], args[1], args[2])
	case 4:
		return Syscall4(num, args[0], args[1], args[2], args[3])
	case 5:
		return Syscall5(num, args[0], args[1], args[2], args[3], args[4])
	case 6:
		return Syscall6(num, args[0], args[1], args[2], args[3], args[4], args[5])
	default:
		return -1, int32(unix.EINVAL)
	}
}

func Syscall0(num uintptr) (int64, int32) {
	r1, _, errno := unix.Syscall(num, 0, 0, 0)
	return int64(r1), int32(errno)
}

func Syscall1(num, a1 uintptr) (int64, int32) {
	r1, _, errno := unix.Syscall(num, a1, 0, 0)
	return int64(r1), int32(errno)
}

func Syscall2(num, a1, a2 uintptr) (int64, int32) {
	r1, _, errno := unix.Syscall(num, a1, a2, 0)
	return int64(r1), int32(errno)
}

func Syscall3(num, a1, a2, a3 uintptr) (int64, int32) {
	r1, _, errno := unix.Syscall(num, a1, a2, a3)
	return int64(r1), int32(errno)
}

func Syscall4(num, a1, a2, a3, a4 uintptr) (int64, int32) {
	r1, _, errno := unix.Syscall6(num, a1, a2, a3, a4, 0, 0)
	return int64(r1), int32(errno)
}

func Syscall5(num, a1, a2, a3, a4, a5 uintptr) (int64, int32) {
	r1, _, errno := unix.Syscall6(num, a1, a2, a3, a4, a5, 0)
	return int64(r1), int32(errno)
}

func Syscall6(num, a1, a2, a3, a4, a5, a6 uintptr) (int64, int32) {
	r1, _, errno := unix.Syscall6(num, a1, a2, a3, a4, a5, a6)
	return int64(r1), int32(errno)
}
