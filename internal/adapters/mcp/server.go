package mcpadapter

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/avasilkov/knowledge-retrieval/internal/core/domain"
	"github.com/avasilkov/knowledge-retrieval/internal/core/ports"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	SearchSpaceID int64   `json:"search_space_id" jsonschema:"the search space to query"`
	Query         string  `json:"query" jsonschema:"the search query"`
	TopK          int     `json:"top_k,omitempty" jsonschema:"maximum number of results to return (default 10)"`
	Mode          string  `json:"mode,omitempty" jsonschema:"retrieval mode: hierarchical (default) or flat"`
	DocumentIDs   []int64 `json:"document_ids,omitempty" jsonschema:"restrict the search to these document ids"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results        []SearchResultOutput `json:"results"`
	Count          int                  `json:"count"`
	Degraded       bool                 `json:"degraded"`
	DegradedReason string               `json:"degraded_reason,omitempty"`
}

type SearchResultOutput struct {
	ChunkID    int64   `json:"chunk_id"`
	DocumentID int64   `json:"document_id"`
	Rank       int     `json:"rank"`
	Score      float64 `json:"score"`
	Title      string  `json:"title"`
	Connector  string  `json:"connector_type"`
	URL        string  `json:"url,omitempty"`
	Excerpt    string  `json:"excerpt"`
}

// Server exposes retrieval as an MCP tool over stdio.
type Server struct {
	server    *mcp.Server
	searchSvc ports.SearchService
}

func NewServer(searchSvc ports.SearchService, version string) *Server {
	impl := &mcp.Implementation{
		Name:    "knowledge-retrieval",
		Version: version,
	}

	s := &Server{
		server:    mcp.NewServer(impl, nil),
		searchSvc: searchSvc,
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_knowledge",
		Description: "Search indexed documents in a search space. Combines full-text and semantic retrieval and returns ranked passages with source provenance.",
	}, s.handleSearch)

	return s
}

// Run blocks serving the stdio transport until the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	topK := input.TopK
	if topK <= 0 {
		topK = 10
	}

	resp, err := s.searchSvc.Search(ctx, domain.QueryRequest{
		SearchSpaceID:  input.SearchSpaceID,
		Query:          input.Query,
		Mode:           domain.SearchMode(input.Mode),
		TopK:           topK,
		DocumentFilter: input.DocumentIDs,
	})
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results:        make([]SearchResultOutput, len(resp.Results)),
		Count:          len(resp.Results),
		Degraded:       resp.Degraded,
		DegradedReason: resp.DegradedReason,
	}
	for i, result := range resp.Results {
		output.Results[i] = SearchResultOutput{
			ChunkID:    result.ID,
			DocumentID: result.DocumentID,
			Rank:       result.Rank,
			Score:      result.Score,
			Title:      result.Title,
			Connector:  string(result.Connector),
			URL:        result.URL,
			Excerpt:    result.Excerpt,
		}
	}

	return nil, output, nil
}
