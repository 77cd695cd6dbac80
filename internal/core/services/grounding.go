package services

import (
	"strings"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"

	"github.com/custodia-labs/veritas/internal/core/domain"
)

// GroundingValidator checks LLM claims against the evidence handed to the LLM.
type GroundingValidator struct {
	mode       domain.GroundingMode
	thresholds domain.GroundingThresholds
	fuzzy      bool
}

// NewGroundingValidator creates a validator. An unrecognised mode is
// treated as strict.
func NewGroundingValidator(
	mode domain.GroundingMode, thresholds domain.GroundingThresholds, fuzzy bool,
) *GroundingValidator {
	if !mode.IsValid() {
		mode = domain.GroundingStrict
	}
	return &GroundingValidator{mode: mode, thresholds: thresholds, fuzzy: fuzzy}
}

// Mode returns the validator's grounding mode.
func (v *GroundingValidator) Mode() domain.GroundingMode {
	return v.mode
}

// Validate applies, per claim and in order, the empty_evidence_ids,
// invalid_evidence_id, low_overlap and low_confidence rules.
//
// In strict mode the first failing claim aborts validation: the result is
// not OK, carries no validated claims and names the failed rule. In soft
// mode failing claims are dropped and the result is OK as long as at least
// one claim survives.
func (v *GroundingValidator) Validate(
	claims []domain.Claim, evidence map[string]domain.EvidenceRef,
) domain.GroundingResult {
	validated := []domain.Claim{}
	dropped := []domain.DroppedClaim{}

	for _, claim := range claims {
		reason, ok := v.check(claim, evidence)
		if ok {
			validated = append(validated, claim)
			continue
		}
		dropped = append(dropped, domain.DroppedClaim{Claim: claim, Reason: reason})
		if v.mode == domain.GroundingStrict {
			return domain.GroundingResult{
				OK:              false,
				ValidatedClaims: []domain.Claim{},
				DroppedClaims:   dropped,
				RefusalReason:   domain.RefusalReason(reason),
			}
		}
	}

	if len(validated) == 0 && v.mode == domain.GroundingSoft {
		return domain.GroundingResult{
			OK:              false,
			ValidatedClaims: validated,
			DroppedClaims:   dropped,
			RefusalReason:   domain.RefusalNoValidatedClaims,
		}
	}
	return domain.GroundingResult{OK: true, ValidatedClaims: validated, DroppedClaims: dropped}
}

func (v *GroundingValidator) check(
	claim domain.Claim, evidence map[string]domain.EvidenceRef,
) (domain.GroundingFailure, bool) {
	if len(claim.EvidenceIDs) == 0 {
		return domain.FailureEmptyEvidenceIDs, false
	}

	quotes := make([]string, 0, len(claim.EvidenceIDs))
	for _, id := range claim.EvidenceIDs {
		ref, ok := evidence[id]
		if !ok {
			return domain.FailureInvalidEvidenceID, false
		}
		quotes = append(quotes, ref.QuoteSpan)
	}

	if v.overlap(claim.Text, strings.Join(quotes, " ")) < v.thresholds.MinOverlap {
		return domain.FailureLowOverlap, false
	}
	if claim.Confidence < v.thresholds.MinClaimConfidence {
		return domain.FailureLowConfidence, false
	}
	return "", true
}

func (v *GroundingValidator) overlap(claim, evidence string) float64 {
	j := JaccardOverlap(claim, evidence)
	if !v.fuzzy {
		return j
	}
	return max(j, FuzzyRatio(claim, evidence))
}

func wordTokens(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, t := range nonWord.Split(strings.ToLower(s), -1) {
		if t != "" {
			out[t] = struct{}{}
		}
	}
	return out
}

// JaccardOverlap is |A∩B| / |A∪B| over the lowercase word tokens of a and b.
// Two empty token sets overlap fully; one empty set does not overlap at all.
func JaccardOverlap(a, b string) float64 {
	ta, tb := wordTokens(a), wordTokens(b)
	if len(ta) == 0 && len(tb) == 0 {
		return 1
	}
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	inter := 0
	for t := range ta {
		if _, ok := tb[t]; ok {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	return float64(inter) / float64(union)
}

// FuzzyRatio is the normalized Indel similarity of a and b in [0, 1]:
// 2*LCS / (len(a)+len(b)) measured in runes. Two empty strings score 1.
func FuzzyRatio(a, b string) float64 {
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 {
		return 1
	}
	return 2 * float64(edlib.LCS(a, b)) / float64(total)
}
