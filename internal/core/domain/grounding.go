package domain

// Claim is a statement produced by the LLM. EvidenceIDs must reference
// evidence that was handed to the LLM for the same request.
type Claim struct {
	Text        string   `json:"text"`
	EvidenceIDs []string `json:"evidence_ids"`
	Confidence  float64  `json:"confidence"`
}

// GroundingMode selects how the validator reacts to a failing claim.
type GroundingMode string

// Available grounding modes.
const (
	// GroundingStrict aborts validation on the first failing claim.
	GroundingStrict GroundingMode = "strict"

	// GroundingSoft drops failing claims and keeps the rest.
	GroundingSoft GroundingMode = "soft"
)

// IsValid returns true if the mode is recognised.
func (m GroundingMode) IsValid() bool {
	return m == GroundingStrict || m == GroundingSoft
}

// String returns the string representation.
func (m GroundingMode) String() string {
	return string(m)
}

// GroundingFailure names the rule a claim failed.
type GroundingFailure string

// Grounding rules, in evaluation order.
const (
	FailureEmptyEvidenceIDs  GroundingFailure = "empty_evidence_ids"
	FailureInvalidEvidenceID GroundingFailure = "invalid_evidence_id"
	FailureLowOverlap        GroundingFailure = "low_overlap"
	FailureLowConfidence     GroundingFailure = "low_confidence"
)

// DroppedClaim records a claim rejected by the validator and why.
type DroppedClaim struct {
	Claim  Claim            `json:"claim"`
	Reason GroundingFailure `json:"reason"`
}

// GroundingThresholds are the minimums a claim must reach.
type GroundingThresholds struct {
	MinOverlap         float64
	MinClaimConfidence float64
}

// GroundingResult is the outcome of validating a draft.
// RefusalReason is set if and only if OK is false.
type GroundingResult struct {
	OK              bool
	ValidatedClaims []Claim
	DroppedClaims   []DroppedClaim
	RefusalReason   RefusalReason
}
