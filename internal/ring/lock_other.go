//go:build !linux

package ring

// Lock is a no-op on platforms without an mlock syscall binding available
// here; the ring remains pageable.
func (b *Buffer) Lock() error {
	return nil
}

// Locked always reports false on this platform.
func (b *Buffer) Locked() bool {
	return false
}

// Unlock is a no-op on this platform.
func (b *Buffer) Unlock() {}
