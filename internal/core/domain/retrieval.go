package domain

import (
	"fmt"
	"strings"
)

// Scope carries the mandatory tenant predicate. Every index query takes a
// Scope value; there is no way to build one without a search space id.
type Scope struct {
	SearchSpaceID int64
}

func NewScope(searchSpaceID int64) (Scope, error) {
	if searchSpaceID <= 0 {
		return Scope{}, WrapError(ErrInvalidInput, "scope", fmt.Errorf("search_space_id must be positive, got %d", searchSpaceID))
	}
	return Scope{SearchSpaceID: searchSpaceID}, nil
}

type SearchMode string

const (
	// ModeHierarchical narrows to the top documents first, then ranks chunks
	// within them.
	ModeHierarchical SearchMode = "hierarchical"
	// ModeFlat ranks chunks across the whole scope without the document tier.
	ModeFlat SearchMode = "flat"
)

// QueryRequest is one retrieval invocation. It is constructed per call and
// never persisted.
type QueryRequest struct {
	SearchSpaceID  int64           `json:"search_space_id"`
	Query          string          `json:"query"`
	Mode           SearchMode      `json:"mode"`
	TopK           int             `json:"top_k"`
	Rerank         *bool           `json:"rerank,omitempty"`
	DocumentFilter []int64         `json:"document_filter,omitempty"`
	Connectors     []ConnectorType `json:"connector_types,omitempty"`
	// LexicalOnly is the explicit degraded fallback: skip embedding and
	// vector search entirely. Without it an embedding failure is fatal.
	LexicalOnly bool `json:"lexical_only,omitempty"`
}

func (r QueryRequest) Validate() error {
	if r.SearchSpaceID <= 0 {
		return WrapError(ErrInvalidInput, "search request", fmt.Errorf("search_space_id must be positive"))
	}
	if strings.TrimSpace(r.Query) == "" {
		return WrapError(ErrInvalidInput, "search request", fmt.Errorf("query must not be empty"))
	}
	if r.TopK <= 0 {
		return WrapError(ErrInvalidInput, "search request", fmt.Errorf("top_k must be positive, got %d", r.TopK))
	}
	switch r.Mode {
	case ModeHierarchical, ModeFlat, "":
	default:
		return WrapError(ErrInvalidInput, "search request", fmt.Errorf("unknown mode %q", r.Mode))
	}
	for _, c := range r.Connectors {
		if !c.Valid() {
			return WrapError(ErrInvalidInput, "search request", fmt.Errorf("unknown connector type %q", c))
		}
	}
	return nil
}

// EffectiveMode resolves the default mode.
func (r QueryRequest) EffectiveMode() SearchMode {
	if r.Mode == "" {
		return ModeHierarchical
	}
	return r.Mode
}

// IndexFilter holds the optional narrowing predicates an index query applies
// in addition to the scope. The document allowlist is pushed down into the
// index query itself, never applied by post-filtering, so that fused rank
// positions are computed over the already-narrowed candidate set.
type IndexFilter struct {
	DocumentIDs []int64
	Connectors  []ConnectorType
}

// DocumentHit is one document-tier result from a single index.
type DocumentHit struct {
	DocumentID int64
	Title      string
	Connector  ConnectorType
	URL        string
	Score      float64
}

// ChunkHit is one chunk-tier result from a single index, carrying the parent
// document's provenance so the caller can render citations.
type ChunkHit struct {
	ChunkID    int64
	DocumentID int64
	Ordinal    int
	Content    string
	Title      string
	Connector  ConnectorType
	URL        string
	Score      float64
}

// RankedResult is one scored passage returned to the caller. Scores are
// comparable within a single result set only.
type RankedResult struct {
	ID         int64         `json:"id"`
	Score      float64       `json:"score"`
	Rank       int           `json:"rank"`
	DocumentID int64         `json:"document_id"`
	Connector  ConnectorType `json:"connector_type"`
	Title      string        `json:"title"`
	URL        string        `json:"url,omitempty"`
	Excerpt    string        `json:"excerpt"`
}

type SearchResponse struct {
	Results        []RankedResult `json:"results"`
	Degraded       bool           `json:"degraded"`
	DegradedReason string         `json:"degraded_reason,omitempty"`
}
