//go:build !linux

package malgohost

import "fmt"

// AcquireRealTimePriority always returns an error on non-Linux platforms:
// there is no portable SCHED_FIFO equivalent, so no priority change is made.
func (b *Binding) AcquireRealTimePriority(priority int) error {
	return fmt.Errorf("malgohost: real-time scheduling priority is not supported on this platform")
}
