// Package bolt provides the durable PersistentStore backed by bbolt. It holds
// every blocked domain as a reversed-label key plus the dataset metadata, the
// approximate-filter snapshot, running stats and the user whitelist. The
// in-memory structures are always rebuilt from this store, never the reverse.
package bolt

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/kvasov/domshield/domain"
	"github.com/kvasov/domshield/repos/blockset"
)

var (
	bucketDomains   = []byte("domains")
	bucketMeta      = []byte("meta")
	bucketSnapshot  = []byte("snapshot")
	bucketStats     = []byte("stats")
	bucketWhitelist = []byte("whitelist")

	keyCount    = []byte("count")
	keyUpdated  = []byte("updated")
	keyVersion  = []byte("version")
	keyFilter   = []byte("filter")
	keyTagVer   = []byte("tag_version")
	keyTagCount = []byte("tag_count")
	keyRecord   = []byte("record")
	keyDomains  = []byte("domains")
)

// boltStore implements blockset.Store using bbolt.
type boltStore struct {
	db *bbolt.DB
}

// New opens (or creates) a Bolt database at path and ensures buckets exist.
func New(path string) (blockset.Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", domain.ErrStorage, path, err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketDomains, bucketMeta, bucketSnapshot, bucketStats, bucketWhitelist} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: init buckets: %v", domain.ErrStorage, err)
	}
	return &boltStore{db: db}, nil
}

func (s *boltStore) Close() error { return s.db.Close() }

// PutBatch writes a batch of reversed-label keys in a single transaction.
func (s *boltStore) PutBatch(keys []string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketDomains)
		for _, k := range keys {
			if err := b.Put([]byte(k), []byte{1}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: put batch of %d: %v", domain.ErrStorage, len(keys), err)
	}
	return nil
}

// Clear drops every stored domain key. Meta, snapshot, stats and whitelist
// are untouched.
func (s *boltStore) Clear() error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketDomains); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketDomains)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: clear domains: %v", domain.ErrStorage, err)
	}
	return nil
}

func (s *boltStore) Count() (uint64, error) {
	var n uint64
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = uint64(tx.Bucket(bucketDomains).Stats().KeyN)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: count: %v", domain.ErrStorage, err)
	}
	return n, nil
}

// ScanAll visits every stored key in byte order. If visit returns false,
// iteration stops.
func (s *boltStore) ScanAll(visit func(key string) bool) error {
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketDomains).Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if !visit(string(k)) {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: scan: %v", domain.ErrStorage, err)
	}
	return nil
}

// ContainsAnyPrefix checks each label-boundary prefix of the reversed query
// against the stored keys, shortest first. This is the slow fallback used
// when no in-memory exact index is installed.
func (s *boltStore) ContainsAnyPrefix(reversedQuery string) (string, bool, error) {
	var match string
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketDomains)
		probe := func(prefix string) bool {
			if b.Get([]byte(prefix)) != nil {
				match = prefix
				return false
			}
			return true
		}
		for i := 0; i < len(reversedQuery); i++ {
			if reversedQuery[i] == '.' {
				if !probe(reversedQuery[:i]) {
					return nil
				}
			}
		}
		if reversedQuery != "" {
			probe(reversedQuery)
		}
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("%w: prefix scan: %v", domain.ErrStorage, err)
	}
	return match, match != "", nil
}

func (s *boltStore) Meta() (domain.ListMeta, error) {
	var m domain.ListMeta
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		if v := b.Get(keyCount); len(v) == 8 {
			m.EntryCount = binary.BigEndian.Uint64(v)
		}
		if v := b.Get(keyUpdated); len(v) == 8 {
			m.LastUpdateUnix = int64(binary.BigEndian.Uint64(v))
		}
		if v := b.Get(keyVersion); len(v) == 8 {
			m.Version = binary.BigEndian.Uint64(v)
		}
		return nil
	})
	if err != nil {
		return domain.ListMeta{}, fmt.Errorf("%w: read meta: %v", domain.ErrStorage, err)
	}
	return m, nil
}

// SetMeta writes the meta record in one transaction, after the dataset it
// describes is fully committed.
func (s *boltStore) SetMeta(m domain.ListMeta) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		if err := b.Put(keyCount, be64(m.EntryCount)); err != nil {
			return err
		}
		if err := b.Put(keyUpdated, be64(uint64(m.LastUpdateUnix))); err != nil {
			return err
		}
		return b.Put(keyVersion, be64(m.Version))
	})
	if err != nil {
		return fmt.Errorf("%w: write meta: %v", domain.ErrStorage, err)
	}
	return nil
}

// SaveSnapshot persists the serialized approximate filter together with the
// tag identifying the dataset it was built from.
func (s *boltStore) SaveSnapshot(tag domain.SnapshotTag, data []byte) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSnapshot)
		if err := b.Put(keyFilter, data); err != nil {
			return err
		}
		if err := b.Put(keyTagVer, be64(tag.Version)); err != nil {
			return err
		}
		return b.Put(keyTagCount, be64(tag.EntryCount))
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSnapshot, err)
	}
	return nil
}

// LoadSnapshot returns the persisted filter snapshot and its tag. A zero tag
// and nil data mean no snapshot has been persisted.
func (s *boltStore) LoadSnapshot() (domain.SnapshotTag, []byte, error) {
	var (
		tag  domain.SnapshotTag
		data []byte
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSnapshot)
		if v := b.Get(keyFilter); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		if v := b.Get(keyTagVer); len(v) == 8 {
			tag.Version = binary.BigEndian.Uint64(v)
		}
		if v := b.Get(keyTagCount); len(v) == 8 {
			tag.EntryCount = binary.BigEndian.Uint64(v)
		}
		return nil
	})
	if err != nil {
		return domain.SnapshotTag{}, nil, fmt.Errorf("%w: %v", domain.ErrSnapshot, err)
	}
	return tag, data, nil
}

func (s *boltStore) LoadStats() (domain.StatsRecord, error) {
	var rec domain.StatsRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketStats).Get(keyRecord)
		if v == nil {
			return nil
		}
		return json.Unmarshal(v, &rec)
	})
	if err != nil {
		return domain.StatsRecord{}, fmt.Errorf("%w: read stats: %v", domain.ErrStorage, err)
	}
	return rec, nil
}

func (s *boltStore) SaveStats(rec domain.StatsRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: encode stats: %v", domain.ErrStorage, err)
	}
	if err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketStats).Put(keyRecord, data)
	}); err != nil {
		return fmt.Errorf("%w: write stats: %v", domain.ErrStorage, err)
	}
	return nil
}

// LoadWhitelist returns the user-added whitelist domains. Built-in entries
// are never stored here.
func (s *boltStore) LoadWhitelist() ([]string, error) {
	var out []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketWhitelist).Get(keyDomains)
		if v == nil {
			return nil
		}
		return json.Unmarshal(v, &out)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: read whitelist: %v", domain.ErrStorage, err)
	}
	return out, nil
}

func (s *boltStore) SaveWhitelist(domains []string) error {
	if domains == nil {
		domains = []string{}
	}
	data, err := json.Marshal(domains)
	if err != nil {
		return fmt.Errorf("%w: encode whitelist: %v", domain.ErrStorage, err)
	}
	if err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketWhitelist).Put(keyDomains, data)
	}); err != nil {
		return fmt.Errorf("%w: write whitelist: %v", domain.ErrStorage, err)
	}
	return nil
}

func be64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}
