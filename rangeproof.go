package zkrange

import (
	"bytes"
	"fmt"
	"math/bits"

	"github.com/bwesterb/go-ristretto"
)

const (
	pointLen  = 32
	scalarLen = 32
)

// RangeProof proves that every committed value lies in [0, 2^N) without
// revealing any of them. THat, TauX and Mu are the prover's responses t(x),
// tau_x and mu; the inner-product argument compresses the l(x), r(x)
// vectors down to two scalars.
type RangeProof struct {
	A, S   *ristretto.Point
	T1, T2 *ristretto.Point
	THat   *ristretto.Scalar
	TauX   *ristretto.Scalar
	Mu     *ristretto.Scalar
	IPP    *InnerProductProof
}

// Verify checks a single-value proof against its commitment. A false
// return means the proof does not hold for this commitment and range; it
// carries no further information and is never accompanied by logging.
func (c *ProofContext) Verify(commitment *ristretto.Point, proof *RangeProof, rangeMin, rangeMax int64) bool {
	return c.VerifyMultiple([]*ristretto.Point{commitment}, proof, rangeMin, rangeMax)
}

// VerifyMultiple checks an aggregated proof against its commitments. All
// challenges are recomputed from a fresh transcript; nothing the prover
// claims about challenge values is ever trusted. Both the polynomial
// identity and the inner-product argument are evaluated unconditionally
// before the verdict, so a reject does not reveal which check failed.
func (c *ProofContext) VerifyMultiple(commitments []*ristretto.Point, proof *RangeProof, rangeMin, rangeMax int64) bool {
	if proof == nil || proof.IPP == nil ||
		proof.A == nil || proof.S == nil || proof.T1 == nil || proof.T2 == nil ||
		proof.THat == nil || proof.TauX == nil || proof.Mu == nil {
		return false
	}
	m := int64(len(commitments))
	if m < 1 || m > c.M || bits.OnesCount64(uint64(m)) != 1 {
		return false
	}
	for _, V := range commitments {
		if V == nil {
			return false
		}
	}
	if rangeMin > rangeMax {
		return false
	}
	width := uint64(rangeMax) - uint64(rangeMin)
	if c.N < 64 && width >= uint64(1)<<uint(c.N) {
		return false
	}
	n := c.N
	nm := n * m

	transcript := InitialTranscript(BULLETPROOF_DOMAIN_TAG)
	RangeproofDomainSep(n, m, transcript)
	appendInt64("range_min", uint64(rangeMin), transcript)
	appendInt64("range_max", uint64(rangeMax), transcript)

	for _, V := range commitments {
		AppendPoint("V", V, transcript)
	}
	AppendPoint("A", proof.A, transcript)
	AppendPoint("S", proof.S, transcript)

	y := ChallengeScalar("y", transcript)
	z := ChallengeScalar("z", transcript)

	AppendPoint("T_1", proof.T1, transcript)
	AppendPoint("T_2", proof.T2, transcript)

	x := ChallengeScalar("x", transcript)

	AppendScalar("t_x", proof.THat, transcript)
	AppendScalar("t_x_blinding", proof.TauX, transcript)
	AppendScalar("e_blinding", proof.Mu, transcript)

	w := ChallengeScalar("w", transcript)

	// Check 1: t(x)*B + tau_x*B_blinding ==
	//   delta(y,z)*B + sum_j z^(2+j)*V_j + x*T_1 + x^2*T_2
	lhs := c.PCGens.Commit(proof.THat, proof.TauX)

	var zz, xx ristretto.Scalar
	zz.Mul(z, z)
	xx.Mul(x, x)

	rhsScalars := make([]*ristretto.Scalar, 0, 3+m)
	rhsPoints := make([]*ristretto.Point, 0, 3+m)
	rhsScalars = append(rhsScalars, deltaYZ(y, z, n, m))
	rhsPoints = append(rhsPoints, c.PCGens.B)
	var zj ristretto.Scalar
	zj.Add(&zj, &zz)
	for _, V := range commitments {
		var coeff ristretto.Scalar
		coeff.Add(&coeff, &zj)
		rhsScalars = append(rhsScalars, &coeff)
		rhsPoints = append(rhsPoints, V)
		zj.Mul(&zj, z)
	}
	rhsScalars = append(rhsScalars, x, &xx)
	rhsPoints = append(rhsPoints, proof.T1, proof.T2)
	rhs := vartimeMultiscalarMul(rhsScalars, rhsPoints)

	polyOK := bytes.Equal(lhs.Bytes(), rhs.Bytes())

	// Check 2: rebuild the inner-product commitment
	//   P = A + x*S - mu*B_blinding + sum_i (-z)*G_i
	//     + sum_i (z*y^i + z^(2+j)*2^k)*H'_i + t(x)*Q
	// over the factored generators H'_i = y^(-i)*H_i, then replay the
	// argument's folding rounds against it.
	var Q ristretto.Point
	Q.ScalarMult(c.PCGens.B, w)

	var yInv ristretto.Scalar
	yInv.Inverse(y)
	expYInv := newScalarExp(&yInv)

	G := c.BPGens.G(n, m)
	H := c.BPGens.H(n, m)
	gVec := make([]*ristretto.Point, nm)
	hPrime := make([]*ristretto.Point, nm)
	for i := int64(0); i < nm; i++ {
		gVec[i] = G.Next()
		var h ristretto.Point
		h.ScalarMult(H.Next(), expYInv.Next())
		hPrime[i] = &h
	}

	var negZ, negMu ristretto.Scalar
	negZ.Sub(&negZ, z)
	negMu.Sub(&negMu, proof.Mu)

	pScalars := make([]*ristretto.Scalar, 0, 4+2*nm)
	pPoints := make([]*ristretto.Point, 0, 4+2*nm)

	var one ristretto.Scalar
	one.SetOne()
	pScalars = append(pScalars, &one, x, &negMu, proof.THat)
	pPoints = append(pPoints, proof.A, proof.S, c.PCGens.BBlinding, &Q)

	for i := int64(0); i < nm; i++ {
		pScalars = append(pScalars, &negZ)
		pPoints = append(pPoints, gVec[i])
	}

	expY := newScalarExp(y)
	var exp2, zjj ristretto.Scalar
	zjj.Add(&zjj, &zz)
	for i := int64(0); i < nm; i++ {
		if i%n == 0 {
			exp2.SetOne()
			if i > 0 {
				zjj.Mul(&zjj, z)
			}
		}
		var coeff ristretto.Scalar
		coeff.Mul(z, expY.Next())
		var tmp ristretto.Scalar
		tmp.Mul(&zjj, &exp2)
		coeff.Add(&coeff, &tmp)
		pScalars = append(pScalars, &coeff)
		pPoints = append(pPoints, hPrime[i])
		exp2.Add(&exp2, &exp2)
	}

	P := vartimeMultiscalarMul(pScalars, pPoints)

	ippOK := proof.IPP.verify(transcript, &Q, P, gVec, hPrime)

	return polyOK && ippOK
}

// deltaYZ computes delta(y,z) =
//   (z - z^2) * <1, y^(n*m)> - sum_j z^(3+j) * <1, 2^n>.
func deltaYZ(y, z *ristretto.Scalar, n, m int64) *ristretto.Scalar {
	var sumY ristretto.Scalar
	sumY.SetZero()
	expY := newScalarExp(y)
	for i := int64(0); i < n*m; i++ {
		sumY.Add(&sumY, expY.Next())
	}

	var maxVal uint64
	if n == 64 {
		maxVal = ^uint64(0)
	} else {
		maxVal = (uint64(1) << uint(n)) - 1
	}
	sum2 := uint64ToScalar(maxVal)

	var zz, zDiff, out ristretto.Scalar
	zz.Mul(z, z)
	zDiff.Sub(z, &zz)
	out.Mul(&zDiff, &sumY)

	var zj ristretto.Scalar
	zj.Mul(&zz, z)
	for j := int64(0); j < m; j++ {
		var tmp ristretto.Scalar
		tmp.Mul(&zj, sum2)
		out.Sub(&out, &tmp)
		zj.Mul(&zj, z)
	}
	return &out
}

// Bytes serializes the proof: the four commitment points, the three
// response scalars, the L/R points of every folding round, then the two
// terminal scalars. Points use the canonical 32-byte encoding; scalars go
// out as 32-byte big-endian.
func (p *RangeProof) Bytes() []byte {
	buf := make([]byte, 0, (9+2*len(p.IPP.LVec))*pointLen)
	buf = append(buf, p.A.Bytes()...)
	buf = append(buf, p.S.Bytes()...)
	buf = append(buf, p.T1.Bytes()...)
	buf = append(buf, p.T2.Bytes()...)
	buf = append(buf, scalarToBE(p.TauX)...)
	buf = append(buf, scalarToBE(p.Mu)...)
	buf = append(buf, scalarToBE(p.THat)...)
	for i := range p.IPP.LVec {
		buf = append(buf, p.IPP.LVec[i].Bytes()...)
		buf = append(buf, p.IPP.RVec[i].Bytes()...)
	}
	buf = append(buf, scalarToBE(p.IPP.A)...)
	buf = append(buf, scalarToBE(p.IPP.B)...)
	return buf
}

// RangeProofFromBytes parses a serialized proof. Any structural problem,
// wrong length or an invalid point encoding, reports ErrMalformedEncoding;
// a proof that parses can still fail verification.
func RangeProofFromBytes(buf []byte) (*RangeProof, error) {
	const fixed = 9 * pointLen
	if len(buf) < fixed || (len(buf)-fixed)%(2*pointLen) != 0 {
		return nil, fmt.Errorf("%w: proof is %d bytes", ErrMalformedEncoding, len(buf))
	}
	rounds := (len(buf) - fixed) / (2 * pointLen)

	next := func(n int) []byte {
		out := buf[:n]
		buf = buf[n:]
		return out
	}

	var err error
	p := &RangeProof{IPP: &InnerProductProof{}}
	if p.A, err = parsePoint(next(pointLen)); err != nil {
		return nil, err
	}
	if p.S, err = parsePoint(next(pointLen)); err != nil {
		return nil, err
	}
	if p.T1, err = parsePoint(next(pointLen)); err != nil {
		return nil, err
	}
	if p.T2, err = parsePoint(next(pointLen)); err != nil {
		return nil, err
	}
	if p.TauX, err = scalarFromBE(next(scalarLen)); err != nil {
		return nil, err
	}
	if p.Mu, err = scalarFromBE(next(scalarLen)); err != nil {
		return nil, err
	}
	if p.THat, err = scalarFromBE(next(scalarLen)); err != nil {
		return nil, err
	}
	for i := 0; i < rounds; i++ {
		L, err := parsePoint(next(pointLen))
		if err != nil {
			return nil, err
		}
		R, err := parsePoint(next(pointLen))
		if err != nil {
			return nil, err
		}
		p.IPP.LVec = append(p.IPP.LVec, L)
		p.IPP.RVec = append(p.IPP.RVec, R)
	}
	if p.IPP.A, err = scalarFromBE(next(scalarLen)); err != nil {
		return nil, err
	}
	if p.IPP.B, err = scalarFromBE(next(scalarLen)); err != nil {
		return nil, err
	}
	return p, nil
}

// CommitmentFromBytes parses a 32-byte commitment point.
func CommitmentFromBytes(buf []byte) (*ristretto.Point, error) {
	return parsePoint(buf)
}
