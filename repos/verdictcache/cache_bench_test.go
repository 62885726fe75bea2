package verdictcache

import (
	"strconv"
	"testing"

	"github.com/kvasov/domshield/domain"
)

// Benchmark cache hit performance (Get on existing key).
func BenchmarkCache_Hit(b *testing.B) {
	c := New(1024)
	c.Put("example.com", domain.BlockedBy("com.example"))

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, ok := c.Get("example.com"); !ok {
			b.Fatal("unexpected miss")
		}
	}
}

// Benchmark cache miss performance (Get on absent key).
func BenchmarkCache_Miss(b *testing.B) {
	c := New(1024)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, ok := c.Get("absent.example"); ok {
			b.Fatal("unexpected hit")
		}
	}
}

// Benchmark sustained insertion churn past capacity, which exercises eviction
// and the periodic order-slice compaction.
func BenchmarkCache_InsertChurn(b *testing.B) {
	c := New(10_000)
	v := domain.Allowed(domain.ReasonApproxMiss)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Put("host"+strconv.Itoa(i)+".example", v)
	}
}

// Throughput for a mixed workload (~80% hits, ~20% misses).
func BenchmarkCache_MixedHitRatio(b *testing.B) {
	c := New(10_000)
	for i := 0; i < 8_000; i++ {
		k := "k" + strconv.Itoa(i) + ".example"
		c.Put(k, domain.BlockedBy("example.k"+strconv.Itoa(i)))
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if i%5 == 0 {
			_, _ = c.Get("m" + strconv.Itoa(i) + ".example")
		} else {
			_, _ = c.Get("k" + strconv.Itoa(i%8_000) + ".example")
		}
	}
}
