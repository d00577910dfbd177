package zkrange

import (
	"bytes"
	"testing"

	"github.com/bwesterb/go-ristretto"
	"github.com/stretchr/testify/assert"
)

func TestPedersenGens(t *testing.T) {
	assert := assert.New(t)

	pg := NewPedersenGens()
	assert.NotEqual(pg.B.Bytes(), pg.BBlinding.Bytes())

	// derivation is deterministic
	pg2 := NewPedersenGens()
	assert.Equal(pg.B.Bytes(), pg2.B.Bytes())
	assert.Equal(pg.BBlinding.Bytes(), pg2.BBlinding.Bytes())
}

func TestPedersenCommitHomomorphic(t *testing.T) {
	assert := assert.New(t)

	pg := NewPedersenGens()
	var r1, r2 ristretto.Scalar
	r1.Rand()
	r2.Rand()

	c1 := pg.Commit(uint64ToScalar(11), &r1)
	c2 := pg.Commit(uint64ToScalar(31), &r2)

	var rSum ristretto.Scalar
	rSum.Add(&r1, &r2)
	cSum := pg.Commit(uint64ToScalar(42), &rSum)

	var added ristretto.Point
	added.Add(c1, c2)
	assert.True(bytes.Equal(cSum.Bytes(), added.Bytes()))
}

func TestBulletproofGensGrowth(t *testing.T) {
	assert := assert.New(t)

	small := NewBulletproofGens(32, 2)
	grown := NewBulletproofGens(16, 2)
	grown.IncreaseCapacity(32)

	for j := 0; j < 2; j++ {
		assert.Len(grown.GVec[j], 32)
		assert.Len(grown.HVec[j], 32)
		for i := 0; i < 32; i++ {
			assert.Equal(small.GVec[j][i].Bytes(), grown.GVec[j][i].Bytes())
			assert.Equal(small.HVec[j][i].Bytes(), grown.HVec[j][i].Bytes())
		}
	}
}

func TestAggregatedGensIter(t *testing.T) {
	assert := assert.New(t)

	bg := NewBulletproofGens(8, 2)
	iter := bg.G(8, 2)
	for j := 0; j < 2; j++ {
		for i := 0; i < 8; i++ {
			p := iter.Next()
			assert.NotNil(p)
			assert.Equal(bg.GVec[j][i].Bytes(), p.Bytes())
		}
	}
	assert.Nil(iter.Next())
}

func TestNewProofContext(t *testing.T) {
	assert := assert.New(t)

	ctx, err := NewProofContext(32, 4)
	assert.Nil(err)
	assert.Equal(int64(32), ctx.N)
	assert.Equal(int64(4), ctx.M)

	_, err = NewProofContext(12, 1)
	assert.ErrorIs(err, ErrOutOfRangeInput)

	_, err = NewProofContext(32, 3)
	assert.ErrorIs(err, ErrOutOfRangeInput)

	_, err = NewProofContext(32, 0)
	assert.ErrorIs(err, ErrOutOfRangeInput)
}
