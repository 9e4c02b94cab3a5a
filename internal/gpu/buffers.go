//go:build !nogpu

package gpu

import (
	"container/list"
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/wgpu"
)

// Buffer cache errors.
var (
	// ErrMemoryBudgetExceeded is returned when an allocation cannot fit in
	// the budget even after evicting idle buffers.
	ErrMemoryBudgetExceeded = errors.New("rt/gpu: memory budget exceeded")

	// ErrBufferCacheClosed is returned when acquiring from a closed cache.
	ErrBufferCacheClosed = errors.New("rt/gpu: buffer cache closed")
)

// Default memory limits.
const (
	// DefaultMaxMemoryMB is the default device buffer budget (256 MB).
	DefaultMaxMemoryMB = 256

	// MinMemoryMB is the smallest accepted budget (16 MB).
	MinMemoryMB = 16
)

// deviceBuffer is the part of *wgpu.Buffer the cache relies on.
type deviceBuffer interface {
	Size() uint64
	Release()
}

// allocFunc creates a device buffer of exactly size bytes.
type allocFunc[B deviceBuffer] func(tag string, size uint64, usage wgpu.BufferUsage) (B, error)

// BufferStats describes the cache state.
type BufferStats struct {
	TotalBytes    uint64
	UsedBytes     uint64
	BufferCount   int
	Allocations   uint64
	Reuses        uint64
	EvictionCount uint64
}

// String returns a human-readable summary.
func (s BufferStats) String() string {
	return fmt.Sprintf("Buffers[%d, %d/%d KB, %d allocs, %d reuses, %d evictions]",
		s.BufferCount,
		s.UsedBytes/1024,
		s.TotalBytes/1024,
		s.Allocations,
		s.Reuses,
		s.EvictionCount)
}

type bufferEntry[B deviceBuffer] struct {
	tag      string
	buf      B
	size     uint64
	usage    wgpu.BufferUsage
	retained bool
	frame    uint64 // last frame the buffer was acquired in
	element  *list.Element
}

// BufferCache owns device buffers keyed by a tag such as "pixels".
//
// Acquire returns the tagged buffer when it is large enough and has the
// requested usage, and otherwise frees it and allocates a new one. When an
// allocation would exceed the budget or the device reports out of memory,
// idle buffers are evicted least recently used first and the allocation is
// retried once. Retained buffers and buffers acquired in the current frame
// are never evicted.
//
// BufferCache is safe for concurrent use.
type BufferCache[B deviceBuffer] struct {
	mu sync.Mutex

	alloc       allocFunc[B]
	budgetBytes uint64
	usedBytes   uint64

	entries map[string]*bufferEntry[B]
	lru     *list.List // front = most recently used

	frame       uint64
	allocations uint64
	reuses      uint64
	evictions   uint64

	closed bool
}

// BufferCacheConfig holds configuration for a BufferCache.
type BufferCacheConfig struct {
	// MaxMemoryMB is the budget in megabytes.
	// Values below MinMemoryMB select DefaultMaxMemoryMB.
	MaxMemoryMB int
}

// NewBufferCache returns an empty cache allocating through alloc.
func NewBufferCache[B deviceBuffer](alloc allocFunc[B], config BufferCacheConfig) *BufferCache[B] {
	maxMB := config.MaxMemoryMB
	if maxMB < MinMemoryMB {
		maxMB = DefaultMaxMemoryMB
	}

	//nolint:gosec // G115: maxMB is at least MinMemoryMB
	return &BufferCache[B]{
		alloc:       alloc,
		budgetBytes: uint64(maxMB) * 1024 * 1024,
		entries:     make(map[string]*bufferEntry[B]),
		lru:         list.New(),
	}
}

// BeginFrame starts a new frame. Buffers acquired before it become
// eligible for eviction unless retained.
func (c *BufferCache[B]) BeginFrame() {
	c.mu.Lock()
	c.frame++
	c.mu.Unlock()
}

// Acquire returns a buffer for tag holding at least minSize bytes.
func (c *BufferCache[B]) Acquire(tag string, minSize uint64, usage wgpu.BufferUsage) (B, error) {
	var zero B
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return zero, ErrBufferCacheClosed
	}

	size := alignSize(minSize)
	retained := false
	if e, ok := c.entries[tag]; ok {
		if e.size >= minSize && e.usage == usage {
			e.frame = c.frame
			c.lru.MoveToFront(e.element)
			c.reuses++
			return e.buf, nil
		}
		retained = e.retained
		c.free(e)
	}

	if c.usedBytes+size > c.budgetBytes {
		c.evictIdle(size)
		if c.usedBytes+size > c.budgetBytes {
			return zero, fmt.Errorf("%w: %s needs %d bytes, %d of %d in use",
				ErrMemoryBudgetExceeded, tag, size, c.usedBytes, c.budgetBytes)
		}
	}

	buf, err := c.alloc(tag, size, usage)
	if err != nil && errors.Is(err, wgpu.ErrOutOfMemory) {
		if c.evictIdle(c.budgetBytes) > 0 {
			slogger().Warn("rt/gpu: retrying allocation after eviction", "tag", tag, "size", size)
			buf, err = c.alloc(tag, size, usage)
		}
	}
	if err != nil {
		return zero, fmt.Errorf("allocate %s (%d bytes): %w", tag, size, err)
	}

	e := &bufferEntry[B]{tag: tag, buf: buf, size: size, usage: usage, retained: retained, frame: c.frame}
	e.element = c.lru.PushFront(e)
	c.entries[tag] = e
	c.usedBytes += size
	c.allocations++
	return buf, nil
}

// Lookup returns the tagged buffer without touching its usage state.
func (c *BufferCache[B]) Lookup(tag string) (B, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[tag]
	if !ok {
		var zero B
		return zero, false
	}
	return e.buf, true
}

// Retain marks the tagged buffer as never evictable, or clears the mark.
// The mark survives reallocation of the tag.
func (c *BufferCache[B]) Retain(tag string, retain bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[tag]; ok {
		e.retained = retain
	}
}

// Release frees the tagged buffer if present.
func (c *BufferCache[B]) Release(tag string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[tag]; ok {
		c.free(e)
	}
}

// ReleaseAll frees every buffer. The cache stays usable.
func (c *BufferCache[B]) ReleaseAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseAllLocked()
}

// Close frees every buffer and rejects further acquisitions.
func (c *BufferCache[B]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseAllLocked()
	c.closed = true
}

// Stats returns a snapshot of the cache counters.
func (c *BufferCache[B]) Stats() BufferStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return BufferStats{
		TotalBytes:    c.budgetBytes,
		UsedBytes:     c.usedBytes,
		BufferCount:   len(c.entries),
		Allocations:   c.allocations,
		Reuses:        c.reuses,
		EvictionCount: c.evictions,
	}
}

func (c *BufferCache[B]) releaseAllLocked() {
	for _, e := range c.entries {
		e.buf.Release()
	}
	c.entries = make(map[string]*bufferEntry[B])
	c.lru.Init()
	c.usedBytes = 0
}

func (c *BufferCache[B]) free(e *bufferEntry[B]) {
	e.buf.Release()
	c.lru.Remove(e.element)
	delete(c.entries, e.tag)
	c.usedBytes -= e.size
}

// evictIdle frees least recently used idle buffers until need bytes fit in
// the budget or nothing idle is left. It returns the number evicted.
func (c *BufferCache[B]) evictIdle(need uint64) int {
	evicted := 0
	for el := c.lru.Back(); el != nil; {
		if c.usedBytes+need <= c.budgetBytes && need < c.budgetBytes {
			break
		}
		prev := el.Prev()
		e := el.Value.(*bufferEntry[B]) //nolint:errcheck // list holds only entries
		if !e.retained && e.frame != c.frame {
			slogger().Debug("rt/gpu: evicting buffer", "tag", e.tag, "size", e.size)
			c.free(e)
			c.evictions++
			evicted++
		}
		el = prev
	}
	return evicted
}
