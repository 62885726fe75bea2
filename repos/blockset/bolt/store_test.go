package bolt

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvasov/domshield/domain"
	"github.com/kvasov/domshield/repos/blockset"
)

func newTestStore(t *testing.T) blockset.Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutBatchAndCount(t *testing.T) {
	s := newTestStore(t)

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), n)

	require.NoError(t, s.PutBatch([]string{"com.evil", "org.phish", "com.bad"}))
	n, err = s.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)

	// duplicate keys overwrite, not duplicate
	require.NoError(t, s.PutBatch([]string{"com.evil"}))
	n, err = s.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)
}

func TestClear(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.PutBatch([]string{"com.evil", "org.phish"}))
	require.NoError(t, s.SetMeta(domain.ListMeta{EntryCount: 2, Version: 1, LastUpdateUnix: 100}))

	require.NoError(t, s.Clear())

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), n)

	// meta survives a domains clear
	m, err := s.Meta()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), m.Version)
}

func TestScanAll(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.PutBatch([]string{"com.b", "com.a", "org.c"}))

	var keys []string
	require.NoError(t, s.ScanAll(func(key string) bool {
		keys = append(keys, key)
		return true
	}))
	// bolt iterates in byte order
	assert.Equal(t, []string{"com.a", "com.b", "org.c"}, keys)

	// early stop
	keys = keys[:0]
	require.NoError(t, s.ScanAll(func(key string) bool {
		keys = append(keys, key)
		return false
	}))
	assert.Len(t, keys, 1)
}

func TestContainsAnyPrefix(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.PutBatch([]string{"com.evil"}))

	tests := []struct {
		query   string
		matched string
		ok      bool
	}{
		{"com.evil", "com.evil", true},
		{"com.evil.sub", "com.evil", true},
		{"com.evil.sub.deep", "com.evil", true},
		{"com.evilx", "", false},
		{"com", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		matched, ok, err := s.ContainsAnyPrefix(tt.query)
		require.NoError(t, err)
		assert.Equal(t, tt.ok, ok, "query %q", tt.query)
		assert.Equal(t, tt.matched, matched, "query %q", tt.query)
	}
}

func TestMetaRoundTrip(t *testing.T) {
	s := newTestStore(t)

	m, err := s.Meta()
	require.NoError(t, err)
	assert.True(t, m.IsZero())

	want := domain.ListMeta{EntryCount: 1234, LastUpdateUnix: 1700000000, Version: 7}
	require.NoError(t, s.SetMeta(want))

	m, err = s.Meta()
	require.NoError(t, err)
	assert.Equal(t, want, m)
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := newTestStore(t)

	tag, data, err := s.LoadSnapshot()
	require.NoError(t, err)
	assert.Nil(t, data)
	assert.Equal(t, domain.SnapshotTag{}, tag)

	wantTag := domain.SnapshotTag{Version: 3, EntryCount: 99}
	require.NoError(t, s.SaveSnapshot(wantTag, []byte{1, 2, 3, 4}))

	tag, data, err = s.LoadSnapshot()
	require.NoError(t, err)
	assert.Equal(t, wantTag, tag)
	assert.Equal(t, []byte{1, 2, 3, 4}, data)
}

func TestStatsRoundTrip(t *testing.T) {
	s := newTestStore(t)

	rec, err := s.LoadStats()
	require.NoError(t, err)
	assert.Equal(t, domain.StatsRecord{}, rec)

	want := domain.StatsRecord{TotalBlockedEver: 42, BlockedToday: 5, DayKey: "2026-08-30"}
	require.NoError(t, s.SaveStats(want))

	rec, err = s.LoadStats()
	require.NoError(t, err)
	assert.Equal(t, want, rec)
}

func TestWhitelistRoundTrip(t *testing.T) {
	s := newTestStore(t)

	wl, err := s.LoadWhitelist()
	require.NoError(t, err)
	assert.Empty(t, wl)

	require.NoError(t, s.SaveWhitelist([]string{"bank.com", "mail.com"}))
	wl, err = s.LoadWhitelist()
	require.NoError(t, err)
	assert.Equal(t, []string{"bank.com", "mail.com"}, wl)

	// nil persists as empty, not as a decode error later
	require.NoError(t, s.SaveWhitelist(nil))
	wl, err = s.LoadWhitelist()
	require.NoError(t, err)
	assert.Empty(t, wl)
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "persist.db")

	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.PutBatch([]string{"com.evil"}))
	require.NoError(t, s.SetMeta(domain.ListMeta{EntryCount: 1, Version: 1, LastUpdateUnix: 50}))
	require.NoError(t, s.Close())

	s, err = New(path)
	require.NoError(t, err)
	defer s.Close()

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
	m, err := s.Meta()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), m.Version)
}
