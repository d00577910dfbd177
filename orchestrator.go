package zkrange

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Disclosure is the public half of one dual-channel operation: the
// commitment and proof to hand to verifiers, plus the composite key under
// which authorized parties can reveal the raw value. It never contains the
// value or the blinding.
type Disclosure struct {
	SubjectID  string
	Timestamp  int64
	Nonce      string
	Commitment []byte
	Proof      []byte
}

// Orchestrator couples the two channels: each Process call produces one
// proof and one store entry under a single fresh nonce.
type Orchestrator struct {
	ctx   *ProofContext
	store *DisclosureStore
	cfg   *Config
	clock clockwork.Clock
	log   *logrus.Logger
}

func NewOrchestrator(ctx *ProofContext, store *DisclosureStore, cfg *Config, clock clockwork.Clock, log *logrus.Logger) *Orchestrator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Orchestrator{ctx: ctx, store: store, cfg: cfg, clock: clock, log: log}
}

// Process proves that value lies in the subject's configured range and
// stores the raw value for later selective disclosure. The proof is built
// first; if the store write then fails, the proof is discarded and the
// failure surfaces as a PartialDisclosureError, leaving neither half
// behind. A ttl of zero takes the configured default.
func (o *Orchestrator) Process(subjectID string, value decimal.Decimal, ttl time.Duration) (*Disclosure, error) {
	sub, ok := o.cfg.Subject(subjectID)
	if !ok {
		return nil, fmt.Errorf("%w: unknown subject %q", ErrOutOfRangeInput, subjectID)
	}
	min, max, err := sub.Bounds()
	if err != nil {
		return nil, err
	}
	if ttl == 0 {
		ttl = o.cfg.DefaultTTL.Duration
	}

	opID := uuid.NewString()
	timestamp := o.clock.Now().Unix()
	nonce, err := NewNonce()
	if err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}

	scaled := scaleToInt(value, o.cfg.Scale)
	commitment, proof, err := o.ctx.Prove(scaled, scaleToInt(min, o.cfg.Scale), scaleToInt(max, o.cfg.Scale))
	if err != nil {
		return nil, err
	}

	if err := o.store.Put(subjectID, timestamp, nonce, value, ttl); err != nil {
		return nil, &PartialDisclosureError{Side: "store", Err: err}
	}

	o.log.WithFields(logrus.Fields{
		"op":      opID,
		"subject": subjectID,
		"ts":      timestamp,
	}).Info("disclosure processed")

	return &Disclosure{
		SubjectID:  subjectID,
		Timestamp:  timestamp,
		Nonce:      nonce,
		Commitment: commitment.Bytes(),
		Proof:      proof.Bytes(),
	}, nil
}

// NewNonce draws a fresh 128-bit nonce and encodes it as 32 hex chars.
func NewNonce() (string, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf[:]), nil
}
