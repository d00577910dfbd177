package zkrange

import (
	"encoding/binary"

	"github.com/bwesterb/go-ristretto"
	"github.com/gtank/merlin"
)

const (
	BULLETPROOF_DOMAIN_TAG   = "zkrange rangeproof"
	HASH_TO_POINT_DOMAIN_TAG = "zkrange hash_to_point"
	STORE_KEY_DOMAIN_TAG     = "zkrange disclosure key"
)

// InitialTranscript starts a fresh transcript under the given domain tag.
// Prover and verifier must build byte-identical transcripts or every
// challenge diverges.
func InitialTranscript(label string) *merlin.Transcript {
	return merlin.NewTranscript(label)
}

func RangeproofDomainSep(n, m int64, t *merlin.Transcript) *merlin.Transcript {
	appendBytes([]byte("dom-sep"), []byte("rangeproof v1"), t)
	appendInt64("n", uint64(n), t)
	appendInt64("m", uint64(m), t)
	return t
}

func InnerproductDomainSep(n uint64, t *merlin.Transcript) {
	appendBytes([]byte("dom-sep"), []byte("ipp v1"), t)

	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, n)
	appendBytes([]byte("n"), buf, t)
}

func appendInt64(label string, i uint64, t *merlin.Transcript) {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, i)
	appendBytes([]byte(label), buf, t)
}

func appendBytes(field, data []byte, t *merlin.Transcript) {
	t.AppendMessage(field, data)
}

// AppendScalar appends the canonical little-endian scalar encoding. The
// big-endian form is a wire-format concern only and never enters the
// transcript.
func AppendScalar(label string, s *ristretto.Scalar, t *merlin.Transcript) {
	appendBytes([]byte(label), s.Bytes(), t)
}

func AppendPoint(label string, p *ristretto.Point, t *merlin.Transcript) {
	appendBytes([]byte(label), p.Bytes(), t)
}

// ChallengeScalar squeezes 64 bytes and reduces them mod the group order,
// so challenge scalars are uniformly distributed.
func ChallengeScalar(label string, t *merlin.Transcript) *ristretto.Scalar {
	data := t.ExtractBytes([]byte(label), 64)
	var wide [64]byte
	copy(wide[:], data)

	var s ristretto.Scalar
	return s.SetReduced(&wide)
}
