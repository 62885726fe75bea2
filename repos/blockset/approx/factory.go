package approx

import (
	"bytes"
	"fmt"

	bitsbloom "github.com/bits-and-blooms/bloom/v3"

	"github.com/kvasov/domshield/repos/blockset"
)

// factory implements blockset.ApproxFactory using internal sizing formulas.
type factory struct{}

// NewFactory returns an ApproxFactory that sizes filters from capacity and FP rate.
func NewFactory() blockset.ApproxFactory { return factory{} }

// New constructs a filter sized for the given dataset capacity and target
// false-positive rate.
func (factory) New(capacity uint64, fpRate float64) blockset.ApproxFilter {
	m, k := size(capacity, fpRate)
	return &filter{bf: bitsbloom.New(uint(m), uint(k))}
}

// Restore deserializes a filter snapshot produced by Snapshot.
func (factory) Restore(data []byte) (blockset.ApproxFilter, error) {
	bf := bitsbloom.New(1, 1)
	if _, err := bf.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("restore approx filter: %w", err)
	}
	return &filter{bf: bf}, nil
}
