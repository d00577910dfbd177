package zkrange

import (
	"encoding/binary"
	"encoding/hex"
	"sync"
	"time"

	"github.com/dchest/blake2b"
	"github.com/jonboulle/clockwork"
	cache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// RevealEntry is one stored raw value, addressable by the composite key
// (subject, timestamp, nonce) and readable until ExpiresAt.
type RevealEntry struct {
	SubjectID string
	Timestamp int64
	Nonce     string
	RawValue  decimal.Decimal
	ExpiresAt time.Time
}

// DisclosureStore keeps raw values for selective disclosure. Entries never
// expire inside the cache itself; expiry is judged against the injected
// clock, so TTL behavior is fully testable without sleeping.
type DisclosureStore struct {
	entries *cache.Cache
	clock   clockwork.Clock
	log     *logrus.Logger

	stopOnce sync.Once
	stop     chan struct{}
}

func NewDisclosureStore(clock clockwork.Clock, log *logrus.Logger) *DisclosureStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &DisclosureStore{
		entries: cache.New(cache.NoExpiration, 0),
		clock:   clock,
		log:     log,
		stop:    make(chan struct{}),
	}
}

// storeKey hashes the composite key into a fixed-width map key so subject
// ids with separator bytes cannot collide.
func storeKey(subjectID string, timestamp int64, nonce string) string {
	hash := blake2b.New256()
	hash.Write([]byte(STORE_KEY_DOMAIN_TAG))
	hash.Write([]byte(subjectID))
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(timestamp))
	hash.Write(ts[:])
	hash.Write([]byte(nonce))
	return hex.EncodeToString(hash.Sum(nil))
}

// Put stores a raw value under the composite key. The key must be unused:
// nonces are single-use, so a collision reports ErrDuplicateEntry even if
// the earlier entry has already passed its TTL.
func (s *DisclosureStore) Put(subjectID string, timestamp int64, nonce string, value decimal.Decimal, ttl time.Duration) error {
	entry := RevealEntry{
		SubjectID: subjectID,
		Timestamp: timestamp,
		Nonce:     nonce,
		RawValue:  value,
		ExpiresAt: s.clock.Now().Add(ttl),
	}
	if err := s.entries.Add(storeKey(subjectID, timestamp, nonce), entry, cache.NoExpiration); err != nil {
		return ErrDuplicateEntry
	}
	s.log.WithFields(logrus.Fields{
		"subject": subjectID,
		"ts":      timestamp,
		"ttl":     ttl.String(),
	}).Debug("disclosure entry stored")
	return nil
}

// Reveal returns the raw value for the composite key. A key whose TTL has
// elapsed reports ErrExpired once and is removed; afterwards the same key
// reports ErrNotFound, indistinguishable from a key that never existed.
func (s *DisclosureStore) Reveal(subjectID string, timestamp int64, nonce string) (decimal.Decimal, error) {
	key := storeKey(subjectID, timestamp, nonce)
	v, ok := s.entries.Get(key)
	if !ok {
		return decimal.Decimal{}, ErrNotFound
	}
	entry := v.(RevealEntry)
	if s.clock.Now().After(entry.ExpiresAt) {
		s.entries.Delete(key)
		return decimal.Decimal{}, ErrExpired
	}
	return entry.RawValue, nil
}

// Sweep removes every entry past its TTL and reports how many it dropped.
func (s *DisclosureStore) Sweep() int {
	now := s.clock.Now()
	dropped := 0
	for key, item := range s.entries.Items() {
		entry := item.Object.(RevealEntry)
		if now.After(entry.ExpiresAt) {
			s.entries.Delete(key)
			dropped++
		}
	}
	if dropped > 0 {
		s.log.WithField("dropped", dropped).Debug("disclosure sweep")
	}
	return dropped
}

// Len reports the number of entries, expired ones included until the next
// sweep or reveal touches them.
func (s *DisclosureStore) Len() int {
	return s.entries.ItemCount()
}

// Run sweeps on the given interval until Stop is called.
func (s *DisclosureStore) Run(interval time.Duration) {
	go func() {
		for {
			select {
			case <-s.clock.After(interval):
				s.Sweep()
			case <-s.stop:
				return
			}
		}
	}()
}

func (s *DisclosureStore) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}
