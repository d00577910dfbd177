package zkrange

import (
	"bytes"
	"fmt"
	"math/bits"

	"github.com/bwesterb/go-ristretto"
	"github.com/gtank/merlin"
)

// InnerProductProof argues knowledge of vectors a, b with <a,b> = c against
// the commitment P = <a,G> + <b,H> + c*Q, in log2(n) halving rounds.
type InnerProductProof struct {
	LVec []*ristretto.Point
	RVec []*ristretto.Point
	A, B *ristretto.Scalar
}

// createInnerProductProof consumes its gVec/hVec/aVec/bVec arguments; the
// caller passes clones. The first round folds gFactors/hFactors into the
// generators so the multiplications G_i' = f_i*G_i never happen explicitly.
func createInnerProductProof(transcript *merlin.Transcript, Q *ristretto.Point, gFactors, hFactors []*ristretto.Scalar, gVec, hVec []*ristretto.Point, aVec, bVec []*ristretto.Scalar) *InnerProductProof {
	n := len(gVec)

	if len(hVec) != n || len(aVec) != n || len(bVec) != n ||
		len(gFactors) != n || len(hFactors) != n {
		panic(fmt.Sprintf("createInnerProductProof vector lengths %d, %d, %d, %d, %d, %d",
			len(gVec), len(hVec), len(aVec), len(bVec), len(gFactors), len(hFactors)))
	}
	if bits.OnesCount32(uint32(n)) != 1 {
		panic(fmt.Sprintf("createInnerProductProof n %d is not a power of two", n))
	}

	G := gVec
	H := hVec
	a := aVec
	b := bVec

	InnerproductDomainSep(uint64(n), transcript)

	var LVec, RVec []*ristretto.Point

	if n != 1 {
		n = n / 2
		aL, aR := a[:n], a[n:]
		bL, bR := b[:n], b[n:]
		gL, gR := G[:n], G[n:]
		hL, hR := H[:n], H[n:]

		cL := innerProduct(aL, bR)
		cR := innerProduct(aR, bL)

		chainAL := make([]*ristretto.Scalar, n)
		for i := range aL {
			var r ristretto.Scalar
			chainAL[i] = r.Mul(aL[i], gFactors[n+i])
		}
		for i := range bR {
			var r ristretto.Scalar
			chainAL = append(chainAL, r.Mul(bR[i], hFactors[i]))
		}
		chainAL = append(chainAL, cL)

		chainGR := make([]*ristretto.Point, 0, 2*n+1)
		chainGR = append(chainGR, gR...)
		chainGR = append(chainGR, hL...)
		chainGR = append(chainGR, Q)
		L := vartimeMultiscalarMul(chainAL, chainGR)

		chainAR := make([]*ristretto.Scalar, n)
		for i := range aR {
			var r ristretto.Scalar
			chainAR[i] = r.Mul(aR[i], gFactors[i])
		}
		for i := range bL {
			var r ristretto.Scalar
			chainAR = append(chainAR, r.Mul(bL[i], hFactors[n+i]))
		}
		chainAR = append(chainAR, cR)

		chainGL := make([]*ristretto.Point, 0, 2*n+1)
		chainGL = append(chainGL, gL...)
		chainGL = append(chainGL, hR...)
		chainGL = append(chainGL, Q)
		R := vartimeMultiscalarMul(chainAR, chainGL)

		LVec = append(LVec, L)
		RVec = append(RVec, R)

		AppendPoint("L", L, transcript)
		AppendPoint("R", R, transcript)

		u := ChallengeScalar("u", transcript)
		var uInv ristretto.Scalar
		uInv.Inverse(u)

		for i := 0; i < n; i++ {
			var r1, r2 ristretto.Scalar
			aL[i].Add(r1.Mul(aL[i], u), r2.Mul(&uInv, aR[i]))
			var r3, r4 ristretto.Scalar
			bL[i].Add(r3.Mul(bL[i], &uInv), r4.Mul(u, bR[i]))
			var r5, r6 ristretto.Scalar
			r5.Mul(&uInv, gFactors[i])
			r6.Mul(u, gFactors[n+i])
			gL[i] = vartimeMultiscalarMul([]*ristretto.Scalar{&r5, &r6}, []*ristretto.Point{gL[i], gR[i]})
			var r7, r8 ristretto.Scalar
			r7.Mul(u, hFactors[i])
			r8.Mul(&uInv, hFactors[n+i])
			hL[i] = vartimeMultiscalarMul([]*ristretto.Scalar{&r7, &r8}, []*ristretto.Point{hL[i], hR[i]})
		}

		a = aL
		b = bL
		G = gL
		H = hL
	}

	for n != 1 {
		n = n / 2

		aL, aR := a[:n], a[n:]
		bL, bR := b[:n], b[n:]
		gL, gR := G[:n], G[n:]
		hL, hR := H[:n], H[n:]

		cL := innerProduct(aL, bR)
		cR := innerProduct(aR, bL)

		chainAL := make([]*ristretto.Scalar, 0, 2*n+1)
		chainAL = append(chainAL, aL...)
		chainAL = append(chainAL, bR...)
		chainAL = append(chainAL, cL)
		chainGR := make([]*ristretto.Point, 0, 2*n+1)
		chainGR = append(chainGR, gR...)
		chainGR = append(chainGR, hL...)
		chainGR = append(chainGR, Q)
		L := vartimeMultiscalarMul(chainAL, chainGR)

		chainAR := make([]*ristretto.Scalar, 0, 2*n+1)
		chainAR = append(chainAR, aR...)
		chainAR = append(chainAR, bL...)
		chainAR = append(chainAR, cR)
		chainGL := make([]*ristretto.Point, 0, 2*n+1)
		chainGL = append(chainGL, gL...)
		chainGL = append(chainGL, hR...)
		chainGL = append(chainGL, Q)
		R := vartimeMultiscalarMul(chainAR, chainGL)

		LVec = append(LVec, L)
		RVec = append(RVec, R)
		AppendPoint("L", L, transcript)
		AppendPoint("R", R, transcript)

		u := ChallengeScalar("u", transcript)
		var uInv ristretto.Scalar
		uInv.Inverse(u)

		for i := 0; i < n; i++ {
			var r1, r2 ristretto.Scalar
			aL[i].Add(r1.Mul(aL[i], u), r2.Mul(&uInv, aR[i]))
			var r3, r4 ristretto.Scalar
			bL[i].Add(r3.Mul(bL[i], &uInv), r4.Mul(u, bR[i]))
			gL[i] = vartimeMultiscalarMul([]*ristretto.Scalar{&uInv, u}, []*ristretto.Point{gL[i], gR[i]})
			hL[i] = vartimeMultiscalarMul([]*ristretto.Scalar{u, &uInv}, []*ristretto.Point{hL[i], hR[i]})
		}

		a = aL
		b = bL
		G = gL
		H = hL
	}

	return &InnerProductProof{
		LVec: LVec,
		RVec: RVec,
		A:    a[0],
		B:    b[0],
	}
}

// verify replays the halving rounds against the claimed commitment P.
// hVec must already carry the verifier's h-side factors; the transcript
// must be positioned exactly where the prover's was before the argument.
// gVec and hVec are read, never written.
func (p *InnerProductProof) verify(transcript *merlin.Transcript, Q, P *ristretto.Point, gVec, hVec []*ristretto.Point) bool {
	n := len(gVec)
	if n == 0 || len(hVec) != n || bits.OnesCount32(uint32(n)) != 1 {
		return false
	}
	if p.A == nil || p.B == nil {
		return false
	}
	if len(p.LVec) != len(p.RVec) || len(p.LVec) != bits.TrailingZeros32(uint32(n)) {
		return false
	}

	InnerproductDomainSep(uint64(n), transcript)

	var acc ristretto.Point
	acc.SetZero()
	acc.Add(&acc, P)

	G := gVec
	H := hVec
	for r := range p.LVec {
		L, R := p.LVec[r], p.RVec[r]
		if L == nil || R == nil {
			return false
		}
		AppendPoint("L", L, transcript)
		AppendPoint("R", R, transcript)

		u := ChallengeScalar("u", transcript)
		var uInv ristretto.Scalar
		uInv.Inverse(u)
		var uSq, uInvSq ristretto.Scalar
		uSq.Mul(u, u)
		uInvSq.Mul(&uInv, &uInv)

		lr := vartimeMultiscalarMul([]*ristretto.Scalar{&uSq, &uInvSq}, []*ristretto.Point{L, R})
		acc.Add(&acc, lr)

		n = n / 2
		gL, gR := G[:n], G[n:]
		hL, hR := H[:n], H[n:]
		gNext := make([]*ristretto.Point, n)
		hNext := make([]*ristretto.Point, n)
		for i := 0; i < n; i++ {
			gNext[i] = vartimeMultiscalarMul([]*ristretto.Scalar{&uInv, u}, []*ristretto.Point{gL[i], gR[i]})
			hNext[i] = vartimeMultiscalarMul([]*ristretto.Scalar{u, &uInv}, []*ristretto.Point{hL[i], hR[i]})
		}
		G = gNext
		H = hNext
	}

	var ab ristretto.Scalar
	ab.Mul(p.A, p.B)
	expected := vartimeMultiscalarMul(
		[]*ristretto.Scalar{p.A, p.B, &ab},
		[]*ristretto.Point{G[0], H[0], Q},
	)

	return bytes.Equal(acc.Bytes(), expected.Bytes())
}
