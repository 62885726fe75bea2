package verdictcache

import (
	"fmt"
	"testing"

	"github.com/kvasov/domshield/domain"
)

func blocked() domain.Verdict { return domain.BlockedBy("com.evil") }
func allowed() domain.Verdict { return domain.Allowed(domain.ReasonExact) }

func TestPutGet(t *testing.T) {
	c := New(10)

	if _, ok := c.Get("a.com"); ok {
		t.Fatal("empty cache returned a hit")
	}
	c.Put("a.com", blocked())
	v, ok := c.Get("a.com")
	if !ok || !v.Blocked {
		t.Fatalf("Get = (%+v, %v); want blocked hit", v, ok)
	}

	hits, misses, _ := c.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("stats = (%d hits, %d misses); want (1, 1)", hits, misses)
	}
}

func TestEvictionIsInsertionOrder(t *testing.T) {
	c := New(3)
	c.Put("first.com", allowed())
	c.Put("second.com", allowed())
	c.Put("third.com", allowed())

	// touch the oldest entry; FIFO does not refresh it
	c.Get("first.com")

	c.Put("fourth.com", allowed())

	if _, ok := c.Get("first.com"); ok {
		t.Error("oldest-inserted entry should have been evicted despite recent access")
	}
	for _, k := range []string{"second.com", "third.com", "fourth.com"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("entry %q unexpectedly evicted", k)
		}
	}

	_, _, evictions := c.Stats()
	if evictions != 1 {
		t.Errorf("evictions = %d; want 1", evictions)
	}
}

func TestOverwriteKeepsSlot(t *testing.T) {
	c := New(2)
	c.Put("a.com", allowed())
	c.Put("b.com", allowed())
	c.Put("a.com", blocked()) // overwrite, keeps a.com as the oldest
	c.Put("c.com", allowed()) // evicts a.com

	if _, ok := c.Get("a.com"); ok {
		t.Error("overwritten entry should retain its original insertion slot")
	}
	if v, ok := c.Get("b.com"); !ok || v.Blocked {
		t.Error("b.com should survive unchanged")
	}
}

func TestPurge(t *testing.T) {
	c := New(5)
	for i := 0; i < 5; i++ {
		c.Put(fmt.Sprintf("h%d.com", i), allowed())
	}
	c.Purge()
	if c.Len() != 0 {
		t.Errorf("Len after purge = %d", c.Len())
	}
	// purged slots must not confuse later eviction accounting
	for i := 0; i < 6; i++ {
		c.Put(fmt.Sprintf("n%d.com", i), allowed())
	}
	if c.Len() != 5 {
		t.Errorf("Len = %d; want 5", c.Len())
	}
}

func TestChurnStaysBounded(t *testing.T) {
	c := New(100)
	for i := 0; i < 10000; i++ {
		c.Put(fmt.Sprintf("host%d.com", i), allowed())
	}
	if c.Len() != 100 {
		t.Errorf("Len = %d; want 100", c.Len())
	}
	// the newest 100 survive
	for i := 9900; i < 10000; i++ {
		if _, ok := c.Get(fmt.Sprintf("host%d.com", i)); !ok {
			t.Fatalf("recent entry host%d.com missing", i)
		}
	}
}

func TestDisabledCache(t *testing.T) {
	c := New(0)
	c.Put("a.com", blocked())
	if _, ok := c.Get("a.com"); ok {
		t.Error("disabled cache should always miss")
	}
	if c.Len() != 0 {
		t.Error("disabled cache should report zero length")
	}
}
