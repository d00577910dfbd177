package zkrange

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranscriptDeterminism(t *testing.T) {
	assert := assert.New(t)

	t1 := InitialTranscript(BULLETPROOF_DOMAIN_TAG)
	RangeproofDomainSep(32, 1, t1)
	t2 := InitialTranscript(BULLETPROOF_DOMAIN_TAG)
	RangeproofDomainSep(32, 1, t2)

	c1 := ChallengeScalar("y", t1)
	c2 := ChallengeScalar("y", t2)
	assert.Equal(hex.EncodeToString(c1.Bytes()), hex.EncodeToString(c2.Bytes()))

	// further challenges from the same transcript stay in sync
	assert.Equal(
		hex.EncodeToString(ChallengeScalar("z", t1).Bytes()),
		hex.EncodeToString(ChallengeScalar("z", t2).Bytes()),
	)
}

func TestTranscriptDomainSeparation(t *testing.T) {
	assert := assert.New(t)

	t1 := InitialTranscript(BULLETPROOF_DOMAIN_TAG)
	RangeproofDomainSep(32, 1, t1)
	t2 := InitialTranscript(BULLETPROOF_DOMAIN_TAG)
	RangeproofDomainSep(64, 1, t2)

	c1 := ChallengeScalar("y", t1)
	c2 := ChallengeScalar("y", t2)
	assert.NotEqual(hex.EncodeToString(c1.Bytes()), hex.EncodeToString(c2.Bytes()))
}

func TestTranscriptAppendChangesChallenges(t *testing.T) {
	assert := assert.New(t)

	t1 := InitialTranscript(BULLETPROOF_DOMAIN_TAG)
	RangeproofDomainSep(32, 1, t1)
	t2 := InitialTranscript(BULLETPROOF_DOMAIN_TAG)
	RangeproofDomainSep(32, 1, t2)

	AppendScalar("t_x", uint64ToScalar(7), t2)

	c1 := ChallengeScalar("w", t1)
	c2 := ChallengeScalar("w", t2)
	assert.NotEqual(hex.EncodeToString(c1.Bytes()), hex.EncodeToString(c2.Bytes()))
}

func TestInnerproductDomainSep(t *testing.T) {
	assert := assert.New(t)

	t1 := InitialTranscript(BULLETPROOF_DOMAIN_TAG)
	InnerproductDomainSep(32, t1)
	t2 := InitialTranscript(BULLETPROOF_DOMAIN_TAG)
	InnerproductDomainSep(64, t2)

	c1 := ChallengeScalar("u", t1)
	c2 := ChallengeScalar("u", t2)
	assert.NotEqual(hex.EncodeToString(c1.Bytes()), hex.EncodeToString(c2.Bytes()))
}
