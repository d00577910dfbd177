package zkrange

import (
	"fmt"
	"math/bits"

	"github.com/bwesterb/go-ristretto"
)

// party carries the secret state of one value through the three commit
// phases. Only the value blinding comes from the caller; every protocol
// blinding is drawn fresh from the system RNG.
type party struct {
	j         int
	value     uint64
	vBlinding *ristretto.Scalar

	aBlinding *ristretto.Scalar
	sBlinding *ristretto.Scalar
	sL, sR    []*ristretto.Scalar

	offsetZZ   *ristretto.Scalar
	lPoly      *vecPoly1
	rPoly      *vecPoly1
	tPoly      *poly2
	t1Blinding *ristretto.Scalar
	t2Blinding *ristretto.Scalar
}

// proofShare is one party's contribution to the assembled proof.
type proofShare struct {
	tx         *ristretto.Scalar
	txBlinding *ristretto.Scalar
	eBlinding  *ristretto.Scalar
	lVec       []*ristretto.Scalar
	rVec       []*ristretto.Scalar
}

// Prove commits to value and produces a proof that it lies in
// [rangeMin, rangeMax]. The proof actually covers the shifted value
// value-rangeMin in [0, 2^N); the verifier applies the same shift, so the
// commitment opens to the shifted value.
func (c *ProofContext) Prove(value, rangeMin, rangeMax int64) (*ristretto.Point, *RangeProof, error) {
	shifted, err := c.normalizeValues([]int64{value}, rangeMin, rangeMax)
	if err != nil {
		return nil, nil, err
	}

	var blinding ristretto.Scalar
	blinding.Rand()
	proof, commitments, err := c.proveWithBlindings(shifted, []*ristretto.Scalar{&blinding}, rangeMin, rangeMax)
	if err != nil {
		return nil, nil, err
	}
	return commitments[0], proof, nil
}

// ProveMultiple aggregates several values into a single proof. The value
// list is padded to the next power of two by repeating the last value, and
// a commitment is returned for every padded slot.
func (c *ProofContext) ProveMultiple(values []int64, rangeMin, rangeMax int64) ([]*ristretto.Point, *RangeProof, error) {
	if len(values) == 0 {
		return nil, nil, fmt.Errorf("%w: no values to prove", ErrOutOfRangeInput)
	}

	shifted, err := c.normalizeValues(values, rangeMin, rangeMax)
	if err != nil {
		return nil, nil, err
	}
	shifted = resizeUint64ToPow2(shifted)

	blindings := make([]*ristretto.Scalar, len(shifted))
	for i := range blindings {
		var b ristretto.Scalar
		blindings[i] = b.Rand()
	}

	proof, commitments, err := c.proveWithBlindings(shifted, blindings, rangeMin, rangeMax)
	if err != nil {
		return nil, nil, err
	}
	return commitments, proof, nil
}

// normalizeValues checks the prove preconditions and shifts every value
// into the non-negative domain [0, 2^N).
func (c *ProofContext) normalizeValues(values []int64, rangeMin, rangeMax int64) ([]uint64, error) {
	if rangeMin > rangeMax {
		return nil, fmt.Errorf("%w: range [%d, %d] is empty", ErrOutOfRangeInput, rangeMin, rangeMax)
	}
	width := uint64(rangeMax) - uint64(rangeMin)
	if c.N < 64 && width >= uint64(1)<<uint(c.N) {
		return nil, fmt.Errorf("%w: range [%d, %d] exceeds %d bits", ErrOutOfRangeInput, rangeMin, rangeMax, c.N)
	}

	out := make([]uint64, len(values))
	for i, v := range values {
		if v < rangeMin || v > rangeMax {
			return nil, fmt.Errorf("%w: value outside [%d, %d]", ErrOutOfRangeInput, rangeMin, rangeMax)
		}
		out[i] = uint64(v) - uint64(rangeMin)
	}
	return out, nil
}

// proveWithBlindings runs the full protocol with caller-supplied value
// blindings. Production paths always pass fresh random blindings; fixed
// blindings exist only so tests can pin commitments.
func (c *ProofContext) proveWithBlindings(values []uint64, blindings []*ristretto.Scalar, rangeMin, rangeMax int64) (*RangeProof, []*ristretto.Point, error) {
	if len(values) != len(blindings) {
		return nil, nil, fmt.Errorf("%w: %d values, %d blindings", ErrOutOfRangeInput, len(values), len(blindings))
	}
	m := int64(len(values))
	if m < 1 || m > c.M || bits.OnesCount64(uint64(m)) != 1 {
		return nil, nil, fmt.Errorf("%w: aggregation size %d (capacity %d)", ErrOutOfRangeInput, m, c.M)
	}
	for _, v := range values {
		if c.N < 64 && v >= uint64(1)<<uint(c.N) {
			return nil, nil, fmt.Errorf("%w: value exceeds %d bits", ErrOutOfRangeInput, c.N)
		}
	}
	n := c.N

	transcript := InitialTranscript(BULLETPROOF_DOMAIN_TAG)
	RangeproofDomainSep(n, m, transcript)
	// bind the claimed bounds so a proof cannot be replayed against a
	// different range of the same width
	appendInt64("range_min", uint64(rangeMin), transcript)
	appendInt64("range_max", uint64(rangeMax), transcript)

	parties := make([]*party, m)
	commitments := make([]*ristretto.Point, m)
	var A, S ristretto.Point
	A.SetZero()
	S.SetZero()
	for j := range parties {
		p := &party{j: j, value: values[j], vBlinding: blindings[j]}
		V, Aj, Sj := c.bitCommit(p)
		parties[j] = p
		commitments[j] = V
		AppendPoint("V", V, transcript)
		A.Add(&A, Aj)
		S.Add(&S, Sj)
	}
	AppendPoint("A", &A, transcript)
	AppendPoint("S", &S, transcript)

	y := ChallengeScalar("y", transcript)
	z := ChallengeScalar("z", transcript)

	var T1, T2 ristretto.Point
	T1.SetZero()
	T2.SetZero()
	for _, p := range parties {
		T1j, T2j := c.applyBitChallenge(p, y, z)
		T1.Add(&T1, T1j)
		T2.Add(&T2, T2j)
	}
	AppendPoint("T_1", &T1, transcript)
	AppendPoint("T_2", &T2, transcript)

	x := ChallengeScalar("x", transcript)

	var tx, txBlinding, eBlinding ristretto.Scalar
	tx.SetZero()
	txBlinding.SetZero()
	eBlinding.SetZero()
	var lVec, rVec []*ristretto.Scalar
	for _, p := range parties {
		share := applyPolyChallenge(p, x)
		tx.Add(&tx, share.tx)
		txBlinding.Add(&txBlinding, share.txBlinding)
		eBlinding.Add(&eBlinding, share.eBlinding)
		lVec = append(lVec, share.lVec...)
		rVec = append(rVec, share.rVec...)
	}

	AppendScalar("t_x", &tx, transcript)
	AppendScalar("t_x_blinding", &txBlinding, transcript)
	AppendScalar("e_blinding", &eBlinding, transcript)

	w := ChallengeScalar("w", transcript)
	var Q ristretto.Point
	Q.ScalarMult(c.PCGens.B, w)

	nm := n * m
	gFactors := make([]*ristretto.Scalar, nm)
	hFactors := make([]*ristretto.Scalar, nm)
	var inverseY ristretto.Scalar
	inverseY.Inverse(y)
	expYInv := newScalarExp(&inverseY)
	for i := int64(0); i < nm; i++ {
		var one ristretto.Scalar
		gFactors[i] = one.SetOne()
		hFactors[i] = expYInv.Next()
	}

	G := c.BPGens.G(n, m)
	H := c.BPGens.H(n, m)
	gVec := make([]*ristretto.Point, nm)
	hVec := make([]*ristretto.Point, nm)
	for i := int64(0); i < nm; i++ {
		var g, h ristretto.Point
		g.SetZero()
		h.SetZero()
		gVec[i] = g.Add(&g, G.Next())
		hVec[i] = h.Add(&h, H.Next())
	}

	ipp := createInnerProductProof(transcript, &Q, gFactors, hFactors, gVec, hVec, lVec, rVec)

	return &RangeProof{
		A:    &A,
		S:    &S,
		T1:   &T1,
		T2:   &T2,
		THat: &tx,
		TauX: &txBlinding,
		Mu:   &eBlinding,
		IPP:  ipp,
	}, commitments, nil
}

// bitCommit produces the value commitment V and the bit commitments A_j,
// S_j for one party.
func (c *ProofContext) bitCommit(p *party) (V, A, S *ristretto.Point) {
	V = c.PCGens.Commit(uint64ToScalar(p.value), p.vBlinding)

	var aBlinding ristretto.Scalar
	aBlinding.Rand()
	var Aj ristretto.Point
	Aj.ScalarMult(c.PCGens.BBlinding, &aBlinding)

	// Bit i contributes a_L[i]*G[i] + a_R[i]*H[i], which collapses to
	// G[i] when the bit is set and -H[i] when it is clear.
	share := c.BPGens.Share(p.j)
	Gs := share.G(c.N)
	Hs := share.H(c.N)
	for i := range Gs {
		var point ristretto.Point
		point.Neg(Hs[i])
		if (p.value>>uint(i))&1 == 1 {
			point = *Gs[i]
		}
		Aj.Add(&Aj, &point)
	}

	var sBlinding ristretto.Scalar
	sBlinding.Rand()
	sL := make([]*ristretto.Scalar, c.N)
	sR := make([]*ristretto.Scalar, c.N)
	for i := range sL {
		var s1, s2 ristretto.Scalar
		sL[i] = s1.Rand()
		sR[i] = s2.Rand()
	}

	// S = s_blinding*B_blinding + <s_L, G> + <s_R, H>
	scalars := append([]*ristretto.Scalar{&sBlinding}, sL...)
	scalars = append(scalars, sR...)
	points := append([]*ristretto.Point{c.PCGens.BBlinding}, Gs...)
	points = append(points, Hs...)
	Sj := multiscalarMul(scalars, points)

	p.aBlinding = &aBlinding
	p.sBlinding = &sBlinding
	p.sL = sL
	p.sR = sR
	return V, &Aj, Sj
}

// applyBitChallenge builds the l(x), r(x) vector polynomials from the
// challenges y, z and commits to the coefficients of t(x) = <l(x), r(x)>.
func (c *ProofContext) applyBitChallenge(p *party, y, z *ristretto.Scalar) (T1, T2 *ristretto.Point) {
	offsetY := scalarExpVartime(y, uint64(int64(p.j)*c.N))
	offsetZ := scalarExpVartime(z, uint64(p.j))

	var offsetZZ ristretto.Scalar
	offsetZZ.Mul(z, z)
	offsetZZ.Mul(&offsetZZ, offsetZ)

	lPoly := zeroVecPoly1(c.N)
	rPoly := zeroVecPoly1(c.N)

	expY := offsetY
	var exp2 ristretto.Scalar
	exp2.SetOne()
	for i := int64(0); i < c.N; i++ {
		aL := uint64ToScalar((p.value >> uint(i)) & 1)
		var one, aR ristretto.Scalar
		one.SetOne()
		aR.Sub(aL, &one)

		lPoly.As[i].Sub(aL, z)
		lPoly.Bs[i] = p.sL[i]

		var tmp1, tmp2 ristretto.Scalar
		tmp1.Add(&aR, z)
		tmp1.Mul(expY, &tmp1)
		tmp2.Mul(&offsetZZ, &exp2)
		rPoly.As[i].Add(&tmp1, &tmp2)
		rPoly.Bs[i].Mul(expY, p.sR[i])

		expY.Mul(expY, y)
		exp2.Add(&exp2, &exp2)
	}

	tPoly := lPoly.InnerProduct(rPoly)

	var t1Blinding, t2Blinding ristretto.Scalar
	t1Blinding.Rand()
	t2Blinding.Rand()

	p.offsetZZ = &offsetZZ
	p.lPoly = lPoly
	p.rPoly = rPoly
	p.tPoly = tPoly
	p.t1Blinding = &t1Blinding
	p.t2Blinding = &t2Blinding

	return c.PCGens.Commit(tPoly.B, &t1Blinding), c.PCGens.Commit(tPoly.C, &t2Blinding)
}

// applyPolyChallenge evaluates the committed polynomials at x and opens
// the party's share of the blinding sums.
func applyPolyChallenge(p *party, x *ristretto.Scalar) *proofShare {
	var a ristretto.Scalar
	a.Mul(p.offsetZZ, p.vBlinding)
	tBlindingPoly := poly2{
		A: &a,
		B: p.t1Blinding,
		C: p.t2Blinding,
	}

	var eBlinding ristretto.Scalar
	eBlinding.Mul(p.sBlinding, x)
	eBlinding.Add(p.aBlinding, &eBlinding)

	return &proofShare{
		tx:         p.tPoly.Eval(x),
		txBlinding: tBlindingPoly.Eval(x),
		eBlinding:  &eBlinding,
		lVec:       p.lPoly.Eval(x),
		rVec:       p.rPoly.Eval(x),
	}
}
