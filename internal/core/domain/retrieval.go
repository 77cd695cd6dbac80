package domain

// IndexHit is one row returned by a tenant-filtered index query.
// Score is a distance for vector hits (lower is closer) and a rank for
// lexical hits (higher is more relevant).
type IndexHit struct {
	SectionID   string
	VersionHash string
	URL         string
	Text        string
	PageType    PageType
	Score       float64
}

// RetrievalCandidate is a ranked section produced for a single request.
type RetrievalCandidate struct {
	SectionID     string   `json:"section_id"`
	MergedScore   float64  `json:"merged_score"`
	VectorScore   float64  `json:"vector_score"`
	LexicalScore  float64  `json:"bm25_score"`
	RerankScore   float64  `json:"rerank_score"`
	RerankReasons []string `json:"rerank_reasons"`
	URL           string   `json:"url"`
	VersionHash   string   `json:"version_hash"`
	Snippet       string   `json:"snippet"`

	// Text and PageType feed the reranker and are not serialised.
	Text     string   `json:"-"`
	PageType PageType `json:"-"`
}

// ChannelDebug describes one retrieval channel. An empty channel reports
// zero min/max and an empty TopScores slice.
type ChannelDebug struct {
	RequestedK int       `json:"requested_k"`
	ReturnedK  int       `json:"returned_k"`
	Min        float64   `json:"min"`
	Max        float64   `json:"max"`
	TopScores  []float64 `json:"top_scores"`
}

// MergeDebug describes the merge and dedup step.
type MergeDebug struct {
	Weights      map[string]float64 `json:"weights"`
	DedupedCount int                `json:"deduped_count"`
	FinalK       int                `json:"final_k"`
}

// RetrieveDebug is always present in a RetrieveResponse.
type RetrieveDebug struct {
	TenantID string       `json:"tenant_id"`
	Vector   ChannelDebug `json:"vector"`
	BM25     ChannelDebug `json:"bm25"`
	Merge    MergeDebug   `json:"merge"`
}

// RetrieveResponse is the frozen response shape of the retrieve operation.
type RetrieveResponse struct {
	Candidates []RetrievalCandidate `json:"candidates"`
	Debug      RetrieveDebug        `json:"debug"`
}

// DefaultRetrieveK is used when a retrieve request leaves k unset.
const DefaultRetrieveK = 20
