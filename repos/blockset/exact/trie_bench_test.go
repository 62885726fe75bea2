package exact

import (
	"fmt"
	"testing"
)

func benchTrie(n int) (*Trie, []string) {
	t := New()
	keys := make([]string, n)
	for i := 0; i < n; i++ {
		keys[i] = fmt.Sprintf("com.blocked%05d", i)
		t.Insert(keys[i])
	}
	return t, keys
}

// Benchmark a direct hit on a stored key.
func BenchmarkTrie_ExactHit(b *testing.B) {
	t, keys := benchTrie(100_000)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, ok := t.ContainsAnyPrefixOf(keys[i%len(keys)]); !ok {
			b.Fatal("expected hit")
		}
	}
}

// Benchmark a subdomain hit, where the walk passes a terminal at a label
// boundary before the query ends.
func BenchmarkTrie_SubdomainHit(b *testing.B) {
	t, keys := benchTrie(100_000)
	queries := make([]string, len(keys))
	for i, k := range keys {
		queries[i] = k + ".mail.deep"
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, ok := t.ContainsAnyPrefixOf(queries[i%len(queries)]); !ok {
			b.Fatal("expected hit")
		}
	}
}

// Benchmark a miss that diverges early in the walk.
func BenchmarkTrie_Miss(b *testing.B) {
	t, _ := benchTrie(100_000)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, ok := t.ContainsAnyPrefixOf("org.unlisted.host"); ok {
			b.Fatal("unexpected hit")
		}
	}
}
