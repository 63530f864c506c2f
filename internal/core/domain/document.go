package domain

import "time"

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

// ConnectorType identifies the kind of source a document was ingested from.
type ConnectorType string

const (
	ConnectorFile   ConnectorType = "file"
	ConnectorWeb    ConnectorType = "web"
	ConnectorWiki   ConnectorType = "wiki"
	ConnectorChat   ConnectorType = "chat"
	ConnectorTicket ConnectorType = "ticket"
)

func (c ConnectorType) Valid() bool {
	switch c {
	case ConnectorFile, ConnectorWeb, ConnectorWiki, ConnectorChat, ConnectorTicket:
		return true
	default:
		return false
	}
}

// SearchSpace is the tenant isolation boundary. Every document, chunk and
// query belongs to exactly one search space.
type SearchSpace struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	OwnerUserID int64     `json:"owner_user_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type Document struct {
	ID            int64          `json:"id"`
	SearchSpaceID int64          `json:"search_space_id"`
	OwnerUserID   int64          `json:"owner_user_id"`
	Connector     ConnectorType  `json:"connector_type"`
	Title         string         `json:"title"`
	URL           string         `json:"url,omitempty"`
	MimeType      string         `json:"mime_type"`
	StoragePath   string         `json:"storage_path"`
	Content       string         `json:"-"`
	Status        DocumentStatus `json:"status"`
	Error         string         `json:"error,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Chunk is a contiguous passage of a document sized to the embedding model's
// input limit. Ordinals are dense and start at zero.
type Chunk struct {
	ID         int64  `json:"id"`
	DocumentID int64  `json:"document_id"`
	Ordinal    int    `json:"ordinal"`
	Content    string `json:"content"`
}
