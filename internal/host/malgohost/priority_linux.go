//go:build linux

package malgohost

import (
	"fmt"
	"syscall"
	"unsafe"
)

const schedFIFO = 1

type schedParam struct {
	priority int32
}

// AcquireRealTimePriority asks the kernel to schedule the calling OS thread
// SCHED_FIFO at the given priority, the Go-native replacement for the
// original's jack_acquire_real_time_scheduling (JACK requests this from the
// host; malgohost has no host to ask, so it asks the kernel directly).
// The caller must run this from the goroutine it wants elevated and should
// have locked it to its OS thread first (runtime.LockOSThread), since Go
// can otherwise migrate goroutines across threads.
func (b *Binding) AcquireRealTimePriority(priority int) error {
	param := schedParam{priority: int32(priority)}
	_, _, errno := syscall.Syscall(syscall.SYS_SCHED_SETSCHEDULER, 0, schedFIFO, uintptr(unsafe.Pointer(&param)))
	if errno != 0 {
		return fmt.Errorf("malgohost: sched_setscheduler: %w", errno)
	}
	return nil
}
