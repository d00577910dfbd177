package zkrange

import (
	"encoding/binary"
	"fmt"

	"github.com/bwesterb/go-ristretto"
	"github.com/dchest/blake2b"
)

// scalarExp iterates the powers 1, x, x^2, ... of a scalar.
type scalarExp struct {
	x    *ristretto.Scalar
	next *ristretto.Scalar
}

func newScalarExp(x *ristretto.Scalar) *scalarExp {
	var one ristretto.Scalar
	return &scalarExp{x: x, next: one.SetOne()}
}

func (s *scalarExp) Next() *ristretto.Scalar {
	var cur ristretto.Scalar
	cur.Add(&cur, s.next)
	s.next.Mul(s.next, s.x)
	return &cur
}

func scalarExpVartime(x *ristretto.Scalar, n uint64) *ristretto.Scalar {
	var result, aux ristretto.Scalar
	result.SetOne()
	aux.Add(&aux, x)

	for n > 0 {
		if n&1 == 1 {
			result.Mul(&result, &aux)
		}
		n >>= 1
		aux.Mul(&aux, &aux)
	}
	return &result
}

// vecPoly1 is a vector of degree-1 polynomials, stored as the coefficient
// vectors As + Bs*x.
type vecPoly1 struct {
	As []*ristretto.Scalar
	Bs []*ristretto.Scalar
}

func zeroVecPoly1(n int64) *vecPoly1 {
	vec := &vecPoly1{
		As: make([]*ristretto.Scalar, n),
		Bs: make([]*ristretto.Scalar, n),
	}
	for i := int64(0); i < n; i++ {
		var a, b ristretto.Scalar
		vec.As[i] = a.SetOne()
		vec.Bs[i] = b.SetOne()
	}
	return vec
}

// InnerProduct uses Karatsuba's trick to get the middle coefficient from
// three inner products instead of four.
func (v *vecPoly1) InnerProduct(rhs *vecPoly1) *poly2 {
	t0 := innerProduct(v.As, rhs.As)
	t2 := innerProduct(v.Bs, rhs.Bs)

	l0PlusL1 := addVec(v.As, v.Bs)
	r0PlusR1 := addVec(rhs.As, rhs.Bs)

	var t1 ristretto.Scalar
	t1.Sub(innerProduct(l0PlusL1, r0PlusR1), t0)
	t1.Sub(&t1, t2)

	return &poly2{A: t0, B: &t1, C: t2}
}

func (v *vecPoly1) Eval(x *ristretto.Scalar) []*ristretto.Scalar {
	out := make([]*ristretto.Scalar, len(v.As))
	for i := range v.As {
		var r ristretto.Scalar
		r.Mul(v.Bs[i], x)
		out[i] = r.Add(v.As[i], &r)
	}
	return out
}

// poly2 is the degree-2 polynomial A + B*x + C*x^2.
type poly2 struct {
	A *ristretto.Scalar
	B *ristretto.Scalar
	C *ristretto.Scalar
}

func (p *poly2) Eval(x *ristretto.Scalar) *ristretto.Scalar {
	var r ristretto.Scalar
	r.Mul(x, p.C)
	r.Add(p.B, &r)
	r.Mul(x, &r)
	return r.Add(p.A, &r)
}

func innerProduct(a, b []*ristretto.Scalar) *ristretto.Scalar {
	if len(a) != len(b) {
		panic(fmt.Sprintf("innerProduct length mismatch %d, %d", len(a), len(b)))
	}

	var sum ristretto.Scalar
	sum.SetZero()
	for i := range a {
		var r ristretto.Scalar
		sum.Add(&sum, r.Mul(a[i], b[i]))
	}
	return &sum
}

func addVec(a, b []*ristretto.Scalar) []*ristretto.Scalar {
	if len(a) != len(b) {
		panic(fmt.Sprintf("addVec length mismatch %d, %d", len(a), len(b)))
	}

	out := make([]*ristretto.Scalar, len(a))
	for i := range a {
		var r ristretto.Scalar
		out[i] = r.Add(a[i], b[i])
	}
	return out
}

func multiscalarMul(scalars []*ristretto.Scalar, points []*ristretto.Point) *ristretto.Point {
	var p ristretto.Point
	p.SetZero()
	for i := range scalars {
		var t ristretto.Point
		t.ScalarMult(points[i], scalars[i])
		p.Add(&p, &t)
	}
	return &p
}

func vartimeMultiscalarMul(scalars []*ristretto.Scalar, points []*ristretto.Point) *ristretto.Point {
	var p ristretto.Point
	p.SetZero()
	for i := range scalars {
		var t ristretto.Point
		t.ScalarMult(points[i], scalars[i])
		p.Add(&p, &t)
	}
	return &p
}

func uint64ToScalar(i uint64) *ristretto.Scalar {
	var buf [32]byte
	binary.LittleEndian.PutUint64(buf[:], i)
	var s ristretto.Scalar
	return s.SetBytes(&buf)
}

func fromBytesModOrderWide(data []byte) *ristretto.Scalar {
	var wide [64]byte
	copy(wide[:], data)
	var s ristretto.Scalar
	return s.SetReduced(&wide)
}

// hashToPoint maps a point to another point whose discrete log relation to
// the input is unknown: blake2b under a domain tag, then two elligator
// maps over the halves of the digest.
func hashToPoint(public *ristretto.Point) *ristretto.Point {
	hash := blake2b.New512()
	hash.Write([]byte(HASH_TO_POINT_DOMAIN_TAG))
	hash.Write(public.Bytes())
	var key [64]byte
	copy(key[:], hash.Sum(nil))

	return pointFromUniformBytes(key[:])
}

func pointFromUniformBytes(key []byte) *ristretto.Point {
	var r1Bytes, r2Bytes [32]byte
	copy(r1Bytes[:], key[:32])
	copy(r2Bytes[:], key[32:])
	var r, r1, r2 ristretto.Point
	return r.Add(r1.SetElligator(&r1Bytes), r2.SetElligator(&r2Bytes))
}

func resizeUint64ToPow2(vec []uint64) []uint64 {
	l := nextPowerOfTwo(len(vec))
	for i := len(vec); i < l; i++ {
		vec = append(vec, vec[i-1])
	}
	return vec
}

func nextPowerOfTwo(v int) int {
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v++
	return v
}

// scalarToBE converts the canonical little-endian scalar encoding into the
// fixed-width big-endian wire form.
func scalarToBE(s *ristretto.Scalar) []byte {
	le := s.Bytes()
	be := make([]byte, scalarLen)
	for i := range le {
		be[scalarLen-1-i] = le[i]
	}
	return be
}

// scalarFromBE parses a 32-byte big-endian scalar, reducing mod the group
// order so downstream arithmetic always sees a canonical scalar.
func scalarFromBE(buf []byte) (*ristretto.Scalar, error) {
	if len(buf) != scalarLen {
		return nil, fmt.Errorf("%w: scalar is %d bytes, want %d", ErrMalformedEncoding, len(buf), scalarLen)
	}
	var wide [64]byte
	for i := 0; i < scalarLen; i++ {
		wide[i] = buf[scalarLen-1-i]
	}
	var s ristretto.Scalar
	return s.SetReduced(&wide), nil
}

func parsePoint(buf []byte) (*ristretto.Point, error) {
	if len(buf) != pointLen {
		return nil, fmt.Errorf("%w: point is %d bytes, want %d", ErrMalformedEncoding, len(buf), pointLen)
	}
	var raw [32]byte
	copy(raw[:], buf)
	var p ristretto.Point
	if !p.SetBytes(&raw) {
		return nil, fmt.Errorf("%w: invalid point encoding", ErrMalformedEncoding)
	}
	return &p, nil
}
