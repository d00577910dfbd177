package zkrange

import (
	"encoding/hex"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// VerifyRequest is the wire form of a verification: everything the
// verifier needs arrives hex-encoded, and the range bounds travel as
// decimal strings in the raw value domain.
type VerifyRequest struct {
	SubjectID  string `json:"subject_id"`
	Timestamp  int64  `json:"ts"`
	Nonce      string `json:"nonce"`
	Commitment string `json:"commitment"`
	Proof      string `json:"proof"`
	RangeMin   string `json:"range_min"`
	RangeMax   string `json:"range_max"`
}

type VerifyResponse struct {
	Verified bool `json:"verified"`
}

// VerificationService is the proof-channel boundary. It owns no secrets:
// it parses, recomputes every challenge itself, and answers with a bare
// verdict. Rejections are not logged and carry no reason.
type VerificationService struct {
	ctx *ProofContext
	cfg *Config
}

func NewVerificationService(ctx *ProofContext, cfg *Config) *VerificationService {
	return &VerificationService{ctx: ctx, cfg: cfg}
}

// Verify decodes the request and runs both verification checks. Decode
// problems surface as ErrMalformedEncoding; a well-formed proof that does
// not hold yields Verified false with a nil error.
func (s *VerificationService) Verify(req *VerifyRequest) (*VerifyResponse, error) {
	commitmentRaw, err := hex.DecodeString(req.Commitment)
	if err != nil {
		return nil, fmt.Errorf("%w: commitment hex: %v", ErrMalformedEncoding, err)
	}
	commitment, err := CommitmentFromBytes(commitmentRaw)
	if err != nil {
		return nil, err
	}

	proofRaw, err := hex.DecodeString(req.Proof)
	if err != nil {
		return nil, fmt.Errorf("%w: proof hex: %v", ErrMalformedEncoding, err)
	}
	proof, err := RangeProofFromBytes(proofRaw)
	if err != nil {
		return nil, err
	}

	min, err := decimal.NewFromString(req.RangeMin)
	if err != nil {
		return nil, fmt.Errorf("%w: range_min: %v", ErrMalformedEncoding, err)
	}
	max, err := decimal.NewFromString(req.RangeMax)
	if err != nil {
		return nil, fmt.Errorf("%w: range_max: %v", ErrMalformedEncoding, err)
	}

	verified := s.ctx.Verify(commitment, proof, scaleToInt(min, s.cfg.Scale), scaleToInt(max, s.cfg.Scale))
	return &VerifyResponse{Verified: verified}, nil
}

// HandleJSON is the byte-level entry point for the proof channel.
func (s *VerificationService) HandleJSON(payload []byte) ([]byte, error) {
	var req VerifyRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEncoding, err)
	}
	resp, err := s.Verify(&req)
	if err != nil {
		return nil, err
	}
	return json.Marshal(resp)
}

// RevealRequest addresses one stored raw value by its composite key.
type RevealRequest struct {
	SubjectID string `json:"subject_id"`
	Timestamp int64  `json:"ts"`
	Nonce     string `json:"nonce"`
}

type RevealResponse struct {
	Success  bool   `json:"success"`
	RawValue string `json:"raw_value,omitempty"`
	Error    string `json:"error,omitempty"`
}

// RevealService is the disclosure-channel boundary for authorized readers.
type RevealService struct {
	store *DisclosureStore
}

func NewRevealService(store *DisclosureStore) *RevealService {
	return &RevealService{store: store}
}

func (s *RevealService) Reveal(req *RevealRequest) *RevealResponse {
	value, err := s.store.Reveal(req.SubjectID, req.Timestamp, req.Nonce)
	switch {
	case errors.Is(err, ErrExpired):
		return &RevealResponse{Error: "expired"}
	case errors.Is(err, ErrNotFound):
		return &RevealResponse{Error: "not_found"}
	case err != nil:
		return &RevealResponse{Error: "internal"}
	}
	return &RevealResponse{Success: true, RawValue: value.String()}
}

// HandleJSON is the byte-level entry point for the disclosure channel.
func (s *RevealService) HandleJSON(payload []byte) ([]byte, error) {
	var req RevealRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEncoding, err)
	}
	return json.Marshal(s.Reveal(&req))
}
