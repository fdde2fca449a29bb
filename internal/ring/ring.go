// Package ring implements a lock-free single-producer/single-consumer byte
// ring buffer, the shared primitive used for every audio and MIDI stream
// crossing between the device transport thread and the host audio thread.
package ring

import "sync/atomic"

// Buffer is a fixed-capacity SPSC byte ring. Exactly one goroutine may call
// the producer methods (Write, FreeWriteBytes) and exactly one goroutine may
// call the consumer methods (Read, Peek, Advance, FreeReadBytes); that
// division is the caller's responsibility, not enforced here.
//
// w and r are cumulative byte counts, not buffer-relative offsets, so
// available-to-read is always w-r and available-to-write is always
// cap-(w-r), with no separate "full" flag and no wasted slot.
type Buffer struct {
	buf  []byte
	cap  int64
	w    atomic.Int64 // producer-owned
	r    atomic.Int64 // consumer-owned
	// locked reports whether Lock succeeded in pinning buf into RAM.
	locked bool
}

// New allocates a ring buffer of the given capacity in bytes.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		panic("ring: capacity must be positive")
	}
	return &Buffer{
		buf: make([]byte, capacity),
		cap: int64(capacity),
	}
}

// Cap returns the buffer's total capacity in bytes.
func (b *Buffer) Cap() int {
	return int(b.cap)
}

// FreeReadBytes returns the number of bytes currently available to read.
// Safe to call from the consumer only (a racy read from the producer side is
// harmless since it only ever under-reports availability).
func (b *Buffer) FreeReadBytes() int {
	w := b.w.Load()
	r := b.r.Load()
	return int(w - r)
}

// FreeWriteBytes returns the number of bytes currently free to write.
// Safe to call from the producer only.
func (b *Buffer) FreeWriteBytes() int {
	w := b.w.Load()
	r := b.r.Load()
	return int(b.cap - (w - r))
}

// Write copies src into the ring, advancing the write cursor. It writes at
// most FreeWriteBytes() bytes and returns the number actually written; a
// full ring silently rejects the excess rather than blocking.
func (b *Buffer) Write(src []byte) int {
	w := b.w.Load()
	r := b.r.Load()

	avail := b.cap - (w - r)
	n := int64(len(src))
	if n > avail {
		n = avail
	}
	if n == 0 {
		return 0
	}

	pos := w % b.cap
	first := n
	if rem := b.cap - pos; rem < first {
		first = rem
	}
	copy(b.buf[pos:pos+first], src[:first])
	if first < n {
		copy(b.buf[0:n-first], src[first:n])
	}

	b.w.Store(w + n)
	return int(n)
}

// Read copies up to n bytes into dst, advancing the read cursor. If dst is
// nil, the bytes are discarded without copying (equivalent to the original
// jclient_buffer_read's NULL-destination advance-only mode). Returns the
// number of bytes actually consumed, which may be less than n if the ring
// holds fewer readable bytes.
func (b *Buffer) Read(dst []byte, n int) int {
	got := b.peekOrDiscard(dst, n)
	b.Advance(got)
	return got
}

// Peek copies up to n bytes into dst without advancing the read cursor.
// Returns the number of bytes actually copied.
func (b *Buffer) Peek(dst []byte, n int) int {
	return b.peekOrDiscard(dst, n)
}

func (b *Buffer) peekOrDiscard(dst []byte, n int) int {
	w := b.w.Load()
	r := b.r.Load()

	avail := int(w - r)
	if n > avail {
		n = avail
	}
	if dst != nil && len(dst) < n {
		n = len(dst)
	}
	if n <= 0 {
		return 0
	}
	if dst == nil {
		return n
	}

	pos := r % b.cap
	first := int64(n)
	if rem := b.cap - pos; rem < first {
		first = rem
	}
	copy(dst[:first], b.buf[pos:pos+first])
	if first < int64(n) {
		copy(dst[first:n], b.buf[0:int64(n)-first])
	}
	return n
}

// Advance discards n bytes from the head of the ring without copying them,
// as if they had been Read. n is clamped to FreeReadBytes().
func (b *Buffer) Advance(n int) {
	if n <= 0 {
		return
	}
	w := b.w.Load()
	r := b.r.Load()
	avail := w - r
	if int64(n) > avail {
		n = int(avail)
	}
	b.r.Store(r + int64(n))
}

// Clear discards all readable bytes, resetting the ring to empty. Only
// safe to call when neither producer nor consumer is concurrently active
// (e.g. while the bridge is paused after a port disconnect to zero).
func (b *Buffer) Clear() {
	b.r.Store(b.w.Load())
}
