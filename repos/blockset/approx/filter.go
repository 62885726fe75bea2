package approx

import (
	"bytes"
	"sync"

	bitsbloom "github.com/bits-and-blooms/bloom/v3"
)

// filter wraps bits-and-blooms BloomFilter with a mutex for writes.
// Reads (MightContain) are safe concurrently; Add is serialized. Filters are
// built privately during a rebuild and then published read-only, so the lock
// is only contended during construction.
type filter struct {
	mu sync.Mutex
	bf *bitsbloom.BloomFilter
}

func (f *filter) Add(key string) {
	f.mu.Lock()
	f.bf.AddString(key)
	f.mu.Unlock()
}

func (f *filter) MightContain(key string) bool {
	return f.bf.TestString(key)
}

// Snapshot serializes the filter's bit array, width and hash count.
func (f *filter) Snapshot() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := f.bf.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (f *filter) ApproxCount() uint64 {
	return uint64(f.bf.ApproximatedSize())
}
