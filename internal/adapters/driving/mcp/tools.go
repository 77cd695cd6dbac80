package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/veritas/internal/core/domain"
)

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query string `json:"query" jsonschema:"the question or keywords to look up"`
	K     int    `json:"k,omitempty" jsonschema:"maximum number of candidates to return (default 20)"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Candidates []CandidateOutput `json:"candidates"`
	Count      int               `json:"count"`
}

// CandidateOutput is one retrieved section.
type CandidateOutput struct {
	SectionID   string  `json:"section_id"`
	URL         string  `json:"url"`
	MergedScore float64 `json:"merged_score"`
	RerankScore float64 `json:"rerank_score"`
	Snippet     string  `json:"snippet"`
}

// AnswerInput is the input schema for the answer tool.
type AnswerInput struct {
	Query string `json:"query" jsonschema:"the question to answer from indexed content"`
}

// IndexPageInput is the input schema for the index_page tool.
type IndexPageInput struct {
	URL   string `json:"url" jsonschema:"canonical URL of the page"`
	Title string `json:"title,omitempty" jsonschema:"page title"`
	HTML  string `json:"html,omitempty" jsonschema:"raw HTML; preferred when available"`
	Text  string `json:"text,omitempty" jsonschema:"plain text used when no HTML is given"`
}

// IndexPageOutput is the output schema for the index_page tool.
type IndexPageOutput struct {
	URL           string `json:"url"`
	Sections      int    `json:"sections"`
	ACVersionHash string `json:"ac_version_hash"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Find the indexed sections most relevant to a query",
	}, s.handleRetrieve)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "answer",
		Description: "Answer a question using only indexed content, with citations, or refuse",
	}, s.handleAnswer)

	if s.ports.Indexing != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "index_page",
			Description: "Add or replace a page in the corpus",
		}, s.handleIndexPage)
	}
}

func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	k := input.K
	if k <= 0 {
		k = domain.DefaultRetrieveK
	}

	resp, err := s.ports.Retrieval.Retrieve(ctx, s.tenant, input.Query, k)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	output := RetrieveOutput{
		Candidates: make([]CandidateOutput, len(resp.Candidates)),
		Count:      len(resp.Candidates),
	}
	for i, c := range resp.Candidates {
		output.Candidates[i] = CandidateOutput{
			SectionID:   c.SectionID,
			URL:         c.URL,
			MergedScore: c.MergedScore,
			RerankScore: c.RerankScore,
			Snippet:     c.Snippet,
		}
	}
	return nil, output, nil
}

func (s *Server) handleAnswer(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AnswerInput,
) (*mcp.CallToolResult, domain.AnswerResponse, error) {
	resp, err := s.ports.Answer.Answer(ctx, s.tenant, input.Query)
	if err != nil {
		return nil, domain.AnswerResponse{}, err
	}
	return nil, resp, nil
}

func (s *Server) handleIndexPage(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IndexPageInput,
) (*mcp.CallToolResult, IndexPageOutput, error) {
	if input.URL == "" {
		return nil, IndexPageOutput{}, fmt.Errorf("%w: url is required", domain.ErrInvalidInput)
	}

	res, err := s.ports.Indexing.IndexPage(ctx, s.tenant, domain.Page{
		URL:   input.URL,
		Title: input.Title,
		HTML:  input.HTML,
		Text:  input.Text,
	})
	if err != nil {
		return nil, IndexPageOutput{}, err
	}
	return nil, IndexPageOutput{URL: res.URL, Sections: res.Sections, ACVersionHash: res.ACVersionHash}, nil
}
