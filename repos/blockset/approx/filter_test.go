package approx

import (
	"fmt"
	"testing"
)

func TestNoFalseNegatives(t *testing.T) {
	f := factory{}.New(10000, 0.01)

	keys := make([]string, 0, 10000)
	for i := 0; i < 10000; i++ {
		keys = append(keys, fmt.Sprintf("com.domain%d", i))
	}
	for _, k := range keys {
		f.Add(k)
	}

	// every added key must still test positive, regardless of what else was
	// added around it
	for _, k := range keys {
		if !f.MightContain(k) {
			t.Fatalf("added key %q tested negative", k)
		}
	}
}

func TestFalsePositiveRateBounded(t *testing.T) {
	const (
		n      = 10000
		fpRate = 0.01
		probes = 10000
	)
	f := factory{}.New(n, fpRate)
	for i := 0; i < n; i++ {
		f.Add(fmt.Sprintf("com.added%d", i))
	}

	falsePositives := 0
	for i := 0; i < probes; i++ {
		if f.MightContain(fmt.Sprintf("org.absent%d", i)) {
			falsePositives++
		}
	}
	// allow 3x headroom over the target rate to keep the test stable
	if got := float64(falsePositives) / probes; got > 3*fpRate {
		t.Errorf("false positive rate %.4f exceeds bound %.4f", got, 3*fpRate)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	f := factory{}.New(1000, 0.01)
	for i := 0; i < 1000; i++ {
		f.Add(fmt.Sprintf("com.site%d", i))
	}

	data, err := f.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	g, err := factory{}.Restore(data)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	for i := 0; i < 1000; i++ {
		if !g.MightContain(fmt.Sprintf("com.site%d", i)) {
			t.Fatalf("restored filter lost key %d", i)
		}
	}
}

func TestRestoreGarbage(t *testing.T) {
	if _, err := (factory{}).Restore([]byte("not a filter")); err == nil {
		t.Error("expected error restoring garbage data")
	}
}
