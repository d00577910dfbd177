package zkrange

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Subjects = []SubjectRange{
		{ID: "sensor-1", RangeMin: "20", RangeMax: "30"},
		{ID: "sensor-2", RangeMin: "-10.5", RangeMax: "120"},
	}
	return cfg
}

func testOrchestrator(t *testing.T, clock clockwork.Clock) (*Orchestrator, *ProofContext, *DisclosureStore, *Config) {
	t.Helper()
	cfg := testConfig()
	ctx, err := NewProofContext(cfg.BitWidth, 1)
	if err != nil {
		t.Fatal(err)
	}
	store := NewDisclosureStore(clock, quietLogger())
	return NewOrchestrator(ctx, store, cfg, clock, quietLogger()), ctx, store, cfg
}

func TestOrchestratorProcess(t *testing.T) {
	assert := assert.New(t)

	clock := clockwork.NewFakeClock()
	orch, ctx, store, _ := testOrchestrator(t, clock)

	value := decimal.RequireFromString("25.5")
	disc, err := orch.Process("sensor-1", value, time.Hour)
	assert.Nil(err)
	assert.Equal("sensor-1", disc.SubjectID)
	assert.Equal(clock.Now().Unix(), disc.Timestamp)
	assert.Len(disc.Nonce, 32)
	assert.Len(disc.Commitment, 32)
	assert.Len(disc.Proof, 608)

	// proof channel: commitment proves the scaled value in the scaled range
	commitment, err := CommitmentFromBytes(disc.Commitment)
	assert.Nil(err)
	proof, err := RangeProofFromBytes(disc.Proof)
	assert.Nil(err)
	assert.True(ctx.Verify(commitment, proof, 20000, 30000))

	// disclosure channel: the raw value is stored under the composite key
	got, err := store.Reveal(disc.SubjectID, disc.Timestamp, disc.Nonce)
	assert.Nil(err)
	assert.True(value.Equal(got))
}

func TestOrchestratorUnknownSubject(t *testing.T) {
	assert := assert.New(t)

	orch, _, _, _ := testOrchestrator(t, clockwork.NewFakeClock())
	_, err := orch.Process("nope", decimal.NewFromInt(25), time.Hour)
	assert.ErrorIs(err, ErrOutOfRangeInput)
}

func TestOrchestratorOutOfRangeValue(t *testing.T) {
	assert := assert.New(t)

	orch, _, store, _ := testOrchestrator(t, clockwork.NewFakeClock())
	_, err := orch.Process("sensor-1", decimal.RequireFromString("31.2"), time.Hour)
	assert.ErrorIs(err, ErrOutOfRangeInput)

	// the failed operation must not leave a store entry behind
	assert.Equal(0, store.Len())
}

func TestOrchestratorFreshNonces(t *testing.T) {
	assert := assert.New(t)

	orch, _, _, _ := testOrchestrator(t, clockwork.NewFakeClock())
	value := decimal.RequireFromString("22")

	d1, err := orch.Process("sensor-1", value, time.Hour)
	assert.Nil(err)
	d2, err := orch.Process("sensor-1", value, time.Hour)
	assert.Nil(err)

	assert.NotEqual(d1.Nonce, d2.Nonce)
	// fresh blindings: identical values still commit differently
	assert.NotEqual(d1.Commitment, d2.Commitment)
}

func TestOrchestratorDefaultTTL(t *testing.T) {
	assert := assert.New(t)

	clock := clockwork.NewFakeClock()
	orch, _, store, cfg := testOrchestrator(t, clock)

	disc, err := orch.Process("sensor-1", decimal.RequireFromString("21"), 0)
	assert.Nil(err)

	clock.Advance(cfg.DefaultTTL.Duration + time.Minute)
	_, err = store.Reveal(disc.SubjectID, disc.Timestamp, disc.Nonce)
	assert.ErrorIs(err, ErrExpired)
}

func TestNewNonce(t *testing.T) {
	assert := assert.New(t)

	n1, err := NewNonce()
	assert.Nil(err)
	assert.Len(n1, 32)

	n2, err := NewNonce()
	assert.Nil(err)
	assert.NotEqual(n1, n2)
}
