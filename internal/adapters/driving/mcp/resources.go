package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const uriScheme = "veritas://"

// policyVersioner is implemented by answer services that version their
// grounding policy.
type policyVersioner interface {
	PolicyVersion() string
}

// TenantInfo is the body of the veritas://tenant resource.
type TenantInfo struct {
	TenantID      string   `json:"tenant_id"`
	ServerVersion string   `json:"server_version"`
	PolicyVersion string   `json:"policy_version,omitempty"`
	Tools         []string `json:"tools"`
}

func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "tenant",
		Name:        "tenant",
		Description: "The tenant this server answers for and its policy version",
		MIMEType:    "application/json",
	}, s.handleTenantResource)
}

func (s *Server) tenantInfo() TenantInfo {
	info := TenantInfo{
		TenantID:      s.tenant.String(),
		ServerVersion: Version,
		Tools:         []string{"retrieve", "answer"},
	}
	if pv, ok := s.ports.Answer.(policyVersioner); ok {
		info.PolicyVersion = pv.PolicyVersion()
	}
	if s.ports.Indexing != nil {
		info.Tools = append(info.Tools, "index_page")
	}
	return info
}

func (s *Server) handleTenantResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	data, err := json.Marshal(s.tenantInfo())
	if err != nil {
		return nil, fmt.Errorf("encoding tenant info: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
