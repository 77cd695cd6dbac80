package domain

// RefusalReason is the machine-readable reason an answer was refused.
type RefusalReason string

// Refusal reasons. Grounding failures reuse the GroundingFailure values.
const (
	RefusalNoEvidence             RefusalReason = "no_evidence"
	RefusalLowRetrievalConfidence RefusalReason = "LOW_RETRIEVAL_CONFIDENCE"
	RefusalEvidenceError          RefusalReason = "evidence_error"
	RefusalLLMParseError          RefusalReason = "llm_parse_error"
	RefusalNoValidatedClaims      RefusalReason = "no_validated_claims"
	RefusalEmptyEvidenceIDs       RefusalReason = RefusalReason(FailureEmptyEvidenceIDs)
	RefusalInvalidEvidenceID      RefusalReason = RefusalReason(FailureInvalidEvidenceID)
	RefusalLowOverlap             RefusalReason = RefusalReason(FailureLowOverlap)
	RefusalLowConfidence          RefusalReason = RefusalReason(FailureLowConfidence)
)

// String returns the string representation.
func (r RefusalReason) String() string {
	return string(r)
}

// Citation points an evidence id at its source.
type Citation struct {
	URL       string `json:"url"`
	SectionID string `json:"section_id"`
	QuoteSpan string `json:"quote_span"`
}

// AnswerDebug exposes the retrieval confidence gate.
type AnswerDebug struct {
	Threshold float64  `json:"threshold"`
	TopScore  *float64 `json:"top_score"`
}

// AnswerResponse is the frozen response shape of the answer operation.
// Refused is true if and only if RefusalReason is non-nil.
type AnswerResponse struct {
	Answer        string              `json:"answer"`
	Claims        []Claim             `json:"claims"`
	Citations     map[string]Citation `json:"citations"`
	Debug         *AnswerDebug        `json:"debug"`
	Refused       bool                `json:"refused"`
	RefusalReason *RefusalReason      `json:"refusal_reason"`
}

// Refusal builds a refused response. It never carries claims or citations.
func Refusal(reason RefusalReason, debug *AnswerDebug) AnswerResponse {
	r := reason
	return AnswerResponse{
		Answer:        "",
		Claims:        []Claim{},
		Citations:     map[string]Citation{},
		Debug:         debug,
		Refused:       true,
		RefusalReason: &r,
	}
}

// AnswerState is a step of the answer pipeline.
type AnswerState string

// Answer pipeline states.
const (
	StateStart         AnswerState = "START"
	StateRetrieve      AnswerState = "RETRIEVE"
	StateBuildEvidence AnswerState = "BUILD_EVIDENCE"
	StateGenerate      AnswerState = "GENERATE"
	StateParse         AnswerState = "PARSE"
	StateValidate      AnswerState = "VALIDATE"
	StateDone          AnswerState = "DONE"
)
