package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefusal(t *testing.T) {
	top := 0.2
	resp := Refusal(RefusalLowRetrievalConfidence, &AnswerDebug{Threshold: 0.35, TopScore: &top})

	assert.True(t, resp.Refused)
	require.NotNil(t, resp.RefusalReason)
	assert.Equal(t, RefusalLowRetrievalConfidence, *resp.RefusalReason)
	assert.Empty(t, resp.Answer)
	assert.NotNil(t, resp.Claims)
	assert.Empty(t, resp.Claims)
	assert.NotNil(t, resp.Citations)
	assert.Empty(t, resp.Citations)
}

func TestRefusal_JSONShape(t *testing.T) {
	data, err := json.Marshal(Refusal(RefusalNoEvidence, &AnswerDebug{Threshold: 0.35}))
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"answer": "",
		"claims": [],
		"citations": {},
		"debug": {"threshold": 0.35, "top_score": null},
		"refused": true,
		"refusal_reason": "no_evidence"
	}`, string(data))
}

func TestRefusalReasons_ReuseGroundingFailures(t *testing.T) {
	assert.Equal(t, string(FailureLowOverlap), RefusalLowOverlap.String())
	assert.Equal(t, string(FailureInvalidEvidenceID), RefusalInvalidEvidenceID.String())
}

func TestCacheEntry_Expired(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	past := now.Add(-time.Second)
	future := now.Add(time.Minute)

	assert.False(t, CacheEntry{}.Expired(now))
	assert.True(t, CacheEntry{ExpiresAt: &past}.Expired(now))
	assert.False(t, CacheEntry{ExpiresAt: &now}.Expired(now))
	assert.False(t, CacheEntry{ExpiresAt: &future}.Expired(now))
}

func TestEvidence_Ref(t *testing.T) {
	ev := Evidence{ID: "e1", TenantID: "acme", SectionID: "s1", URL: "https://example.com", QuoteSpan: "quote"}
	assert.Equal(t, EvidenceRef{TenantID: "acme", URL: "https://example.com", SectionID: "s1", QuoteSpan: "quote"}, ev.Ref())
}

func TestSectionDraft_Positional(t *testing.T) {
	assert.True(t, SectionDraft{ChunkIndex: 0}.Positional())
	assert.False(t, SectionDraft{ChunkIndex: -1}.Positional())
}
