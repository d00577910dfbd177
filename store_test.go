package zkrange

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestStorePutReveal(t *testing.T) {
	assert := assert.New(t)

	clock := clockwork.NewFakeClock()
	store := NewDisclosureStore(clock, quietLogger())

	value := decimal.RequireFromString("25.5")
	err := store.Put("sensor-1", 1700000000, "aabbccdd", value, time.Hour)
	assert.Nil(err)

	got, err := store.Reveal("sensor-1", 1700000000, "aabbccdd")
	assert.Nil(err)
	assert.True(value.Equal(got))
	assert.Equal("25.5", got.String())
}

func TestStoreDuplicateEntry(t *testing.T) {
	assert := assert.New(t)

	clock := clockwork.NewFakeClock()
	store := NewDisclosureStore(clock, quietLogger())

	value := decimal.NewFromInt(7)
	assert.Nil(store.Put("sensor-1", 1, "n1", value, time.Hour))
	err := store.Put("sensor-1", 1, "n1", value, time.Hour)
	assert.ErrorIs(err, ErrDuplicateEntry)

	// any component of the composite key makes it a different entry
	assert.Nil(store.Put("sensor-1", 2, "n1", value, time.Hour))
	assert.Nil(store.Put("sensor-1", 1, "n2", value, time.Hour))
	assert.Nil(store.Put("sensor-2", 1, "n1", value, time.Hour))
}

func TestStoreNotFound(t *testing.T) {
	assert := assert.New(t)

	store := NewDisclosureStore(clockwork.NewFakeClock(), quietLogger())
	_, err := store.Reveal("sensor-1", 1, "missing")
	assert.ErrorIs(err, ErrNotFound)
}

func TestStoreExpiry(t *testing.T) {
	assert := assert.New(t)

	clock := clockwork.NewFakeClock()
	store := NewDisclosureStore(clock, quietLogger())

	value := decimal.NewFromInt(42)
	assert.Nil(store.Put("sensor-1", 1, "n1", value, time.Hour))

	// still readable just before the deadline
	clock.Advance(59 * time.Minute)
	_, err := store.Reveal("sensor-1", 1, "n1")
	assert.Nil(err)

	// expired reads report Expired once, then NotFound
	clock.Advance(2 * time.Minute)
	_, err = store.Reveal("sensor-1", 1, "n1")
	assert.ErrorIs(err, ErrExpired)
	_, err = store.Reveal("sensor-1", 1, "n1")
	assert.ErrorIs(err, ErrNotFound)
}

func TestStoreSweep(t *testing.T) {
	assert := assert.New(t)

	clock := clockwork.NewFakeClock()
	store := NewDisclosureStore(clock, quietLogger())

	value := decimal.NewFromInt(1)
	assert.Nil(store.Put("sensor-1", 1, "n1", value, time.Hour))
	assert.Nil(store.Put("sensor-1", 2, "n2", value, 3*time.Hour))
	assert.Equal(2, store.Len())

	assert.Equal(0, store.Sweep())

	clock.Advance(2 * time.Hour)
	assert.Equal(1, store.Sweep())
	assert.Equal(1, store.Len())

	_, err := store.Reveal("sensor-1", 1, "n1")
	assert.ErrorIs(err, ErrNotFound)
	_, err = store.Reveal("sensor-1", 2, "n2")
	assert.Nil(err)
}

func TestStoreConcurrentAccess(t *testing.T) {
	assert := assert.New(t)

	clock := clockwork.NewFakeClock()
	store := NewDisclosureStore(clock, quietLogger())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			nonce := string(rune('a' + i))
			value := decimal.NewFromInt(int64(i))
			if err := store.Put("sensor-1", int64(i), nonce, value, time.Hour); err != nil {
				t.Error(err)
				return
			}
			got, err := store.Reveal("sensor-1", int64(i), nonce)
			if err != nil {
				t.Error(err)
				return
			}
			if !got.Equal(value) {
				t.Errorf("reveal mismatch for %d", i)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(16, store.Len())
}

func TestStoreKeyDomainSeparation(t *testing.T) {
	assert := assert.New(t)

	// ambiguous concatenations must not collide
	assert.NotEqual(storeKey("ab", 1, "c"), storeKey("a", 1, "bc"))
	assert.NotEqual(storeKey("a", 1, "b"), storeKey("b", 1, "a"))
}
