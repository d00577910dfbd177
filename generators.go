package zkrange

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	"github.com/bwesterb/go-ristretto"
	"golang.org/x/crypto/sha3"
)

// PedersenGens holds the two generators of the commitment scheme.
// B commits the value, BBlinding commits the blinding factor. BBlinding is
// derived from B by hashing to a point, so nobody knows the discrete log
// relation between them.
type PedersenGens struct {
	B         *ristretto.Point
	BBlinding *ristretto.Point
}

func NewPedersenGens() *PedersenGens {
	var base ristretto.Point
	base.SetBase()

	return &PedersenGens{
		B:         &base,
		BBlinding: hashToPoint(&base),
	}
}

// Commit returns value*B + blinding*BBlinding.
func (pg *PedersenGens) Commit(value, blinding *ristretto.Scalar) *ristretto.Point {
	return multiscalarMul(
		[]*ristretto.Scalar{value, blinding},
		[]*ristretto.Point{pg.B, pg.BBlinding},
	)
}

// BulletproofGens holds the per-party generator vectors G and H, grown
// lazily up to GensCapacity generators for each of PartyCapacity parties.
// The vectors are deterministic: both sides derive identical generators
// from SHAKE256 chains seeded by the party index.
type BulletproofGens struct {
	GensCapacity  int64
	PartyCapacity int64
	GVec          [][]*ristretto.Point
	HVec          [][]*ristretto.Point
}

func NewBulletproofGens(gensCapacity, partyCapacity int64) *BulletproofGens {
	b := &BulletproofGens{
		GensCapacity:  0,
		PartyCapacity: partyCapacity,
		GVec:          make([][]*ristretto.Point, partyCapacity),
		HVec:          make([][]*ristretto.Point, partyCapacity),
	}
	b.IncreaseCapacity(gensCapacity)
	return b
}

func (b *BulletproofGens) IncreaseCapacity(capacity int64) {
	if b.GensCapacity >= capacity {
		return
	}
	for i := int64(0); i < b.PartyCapacity; i++ {
		var idx [4]byte
		binary.LittleEndian.PutUint32(idx[:], uint32(i))

		label := append([]byte("G"), idx[:]...)
		chainG := newGeneratorsChain(label)
		chainG.fastForward(b.GensCapacity)
		b.GVec[i] = append(b.GVec[i], chainG.take(capacity-b.GensCapacity)...)

		label[0] = 'H'
		chainH := newGeneratorsChain(label)
		chainH.fastForward(b.GensCapacity)
		b.HVec[i] = append(b.HVec[i], chainH.take(capacity-b.GensCapacity)...)
	}
	b.GensCapacity = capacity
}

func (b *BulletproofGens) G(n, m int64) *aggregatedGensIter {
	return &aggregatedGensIter{n: n, m: m, array: b.GVec}
}

func (b *BulletproofGens) H(n, m int64) *aggregatedGensIter {
	return &aggregatedGensIter{n: n, m: m, array: b.HVec}
}

func (b *BulletproofGens) Share(j int) *bulletproofGensShare {
	return &bulletproofGensShare{gens: b, share: j}
}

// aggregatedGensIter interleaves the per-party vectors into the flat
// n*m ordering the aggregated protocol uses.
type aggregatedGensIter struct {
	array    [][]*ristretto.Point
	n, m     int64
	partyIdx int64
	genIdx   int64
}

func (a *aggregatedGensIter) Next() *ristretto.Point {
	if a.genIdx >= a.n {
		a.genIdx = 0
		a.partyIdx++
	}
	if a.partyIdx >= a.m {
		return nil
	}
	cur := a.genIdx
	a.genIdx++
	return a.array[a.partyIdx][cur]
}

type bulletproofGensShare struct {
	gens  *BulletproofGens
	share int
}

func (g *bulletproofGensShare) G(n int64) []*ristretto.Point {
	return g.gens.GVec[g.share][:n]
}

func (g *bulletproofGensShare) H(n int64) []*ristretto.Point {
	return g.gens.HVec[g.share][:n]
}

type generatorsChain struct {
	sha3.ShakeHash
}

func newGeneratorsChain(label []byte) *generatorsChain {
	h := sha3.NewShake256()
	h.Write([]byte("GeneratorsChain"))
	h.Write(label)
	return &generatorsChain{h}
}

func (c *generatorsChain) fastForward(n int64) {
	var data [64]byte
	for i := int64(0); i < n; i++ {
		c.Read(data[:])
	}
}

func (c *generatorsChain) take(n int64) []*ristretto.Point {
	points := make([]*ristretto.Point, n)
	for i := range points {
		var data [64]byte
		c.Read(data[:])
		points[i] = pointFromUniformBytes(data[:])
	}
	return points
}

// ProofContext fixes the proof parameters once and carries the generator
// sets shared by every prover and verifier operation. Generator derivation
// is deterministic, so two contexts with equal parameters are
// interchangeable across processes.
type ProofContext struct {
	N      int64 // bit width of the proven range
	M      int64 // max number of aggregated values
	PCGens *PedersenGens
	BPGens *BulletproofGens
}

func NewProofContext(bitWidth, maxParties int64) (*ProofContext, error) {
	switch bitWidth {
	case 8, 16, 32, 64:
	default:
		return nil, fmt.Errorf("%w: unsupported bit width %d", ErrOutOfRangeInput, bitWidth)
	}
	if maxParties < 1 || bits.OnesCount64(uint64(maxParties)) != 1 {
		return nil, fmt.Errorf("%w: party capacity %d is not a power of two", ErrOutOfRangeInput, maxParties)
	}

	return &ProofContext{
		N:      bitWidth,
		M:      maxParties,
		PCGens: NewPedersenGens(),
		BPGens: NewBulletproofGens(bitWidth, maxParties),
	}, nil
}
