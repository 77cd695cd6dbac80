package driven

import "time"

// Metrics records answer pipeline outcomes.
type Metrics interface {
	// ObserveRetrieval records one retrieval and its candidate count.
	ObserveRetrieval(duration time.Duration, candidates int)

	// ObserveAnswer records one answer. outcome is "answered" or the refusal reason.
	ObserveAnswer(outcome string, duration time.Duration)

	// ObserveCache records a cache lookup: "hit", "miss" or "error".
	ObserveCache(result string)

	// ObserveDroppedClaims counts claims removed by the grounding validator.
	ObserveDroppedClaims(n int)
}
