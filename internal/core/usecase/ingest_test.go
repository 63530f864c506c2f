package usecase

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/avasilkov/knowledge-retrieval/internal/core/domain"
	"github.com/avasilkov/knowledge-retrieval/internal/core/ports"
)

type fakeDocumentRepo struct {
	created    *domain.Document
	statuses   []domain.DocumentStatus
	errMessage string
	doc        *domain.Document
	saved      bool

	createErr error
	getErr    error
}

func (f *fakeDocumentRepo) Create(_ context.Context, doc *domain.Document) error {
	if f.createErr != nil {
		return f.createErr
	}
	doc.ID = 42
	f.created = doc
	return nil
}

func (f *fakeDocumentRepo) GetByID(context.Context, int64) (*domain.Document, error) {
	return f.doc, f.getErr
}

func (f *fakeDocumentRepo) UpdateStatus(_ context.Context, _ int64, status domain.DocumentStatus, errMessage string) error {
	f.statuses = append(f.statuses, status)
	if errMessage != "" {
		f.errMessage = errMessage
	}
	return nil
}

func (f *fakeDocumentRepo) SaveProcessed(context.Context, int64, string, []float32) error {
	f.saved = true
	return nil
}

type fakeStorage struct {
	keys []string
}

func (f *fakeStorage) Save(_ context.Context, key string, _ io.Reader) error {
	f.keys = append(f.keys, key)
	return nil
}

func (f *fakeStorage) Open(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

type fakeQueue struct {
	published []int64
}

func (f *fakeQueue) PublishDocumentIngested(_ context.Context, documentID int64) error {
	f.published = append(f.published, documentID)
	return nil
}

func (f *fakeQueue) SubscribeDocumentIngested(context.Context, func(context.Context, int64) error) error {
	return nil
}

func TestUploadStoresAndEnqueues(t *testing.T) {
	repo := &fakeDocumentRepo{}
	storage := &fakeStorage{}
	queue := &fakeQueue{}
	uc := NewIngestDocumentUseCase(repo, storage, queue)

	doc, err := uc.Upload(context.Background(), ports.UploadRequest{
		SearchSpaceID: 3,
		Connector:     domain.ConnectorFile,
		Filename:      "refund policy.txt",
		MimeType:      "text/plain",
	}, strings.NewReader("refunds take 5 days"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if doc.ID != 42 {
		t.Fatalf("expected repository-assigned id, got %d", doc.ID)
	}
	if doc.Status != domain.StatusUploaded {
		t.Fatalf("expected status uploaded, got %s", doc.Status)
	}
	if doc.Title != "refund policy.txt" {
		t.Fatalf("expected filename fallback title, got %q", doc.Title)
	}
	if len(storage.keys) != 1 || !strings.HasSuffix(storage.keys[0], "_refund_policy.txt") {
		t.Fatalf("unexpected storage key: %v", storage.keys)
	}
	if len(queue.published) != 1 || queue.published[0] != 42 {
		t.Fatalf("expected ingestion event for doc 42, got %v", queue.published)
	}
}

func TestUploadValidatesRequest(t *testing.T) {
	uc := NewIngestDocumentUseCase(&fakeDocumentRepo{}, &fakeStorage{}, &fakeQueue{})

	_, err := uc.Upload(context.Background(), ports.UploadRequest{
		Connector: domain.ConnectorFile,
		Filename:  "a.txt",
	}, strings.NewReader("x"))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing search space, got %v", err)
	}

	_, err = uc.Upload(context.Background(), ports.UploadRequest{
		SearchSpaceID: 1,
		Connector:     "carrier-pigeon",
		Filename:      "a.txt",
	}, strings.NewReader("x"))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown connector, got %v", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"refund policy.txt", "refund_policy.txt"},
		{"../../etc/passwd", "passwd"},
		{"отчёт.pdf", "_____.pdf"},
	}
	for _, tc := range cases {
		if got := sanitizeFilename(tc.in); got != tc.want {
			t.Fatalf("sanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
