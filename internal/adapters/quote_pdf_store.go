package adapters

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"scada_quote_backend/internal/adapters/storage"
	quotesvc "scada_quote_backend/internal/quotes/service"
)

const (
	quotePDFFolder      = "quotes"
	quotePDFContentType = "application/pdf"
)

// QuotePDFStore keeps rendered quote PDFs in one bucket.
// It implements quotes/service.PDFStore.
type QuotePDFStore struct {
	store  storage.ObjectStore
	bucket string
}

// NewQuotePDFStore creates a store writing to bucket.
func NewQuotePDFStore(store storage.ObjectStore, bucket string) *QuotePDFStore {
	return &QuotePDFStore{store: store, bucket: bucket}
}

// PutQuotePDF uploads a rendered PDF and returns its file key.
func (s *QuotePDFStore) PutQuotePDF(ctx context.Context, quoteNumber string, data []byte) (string, error) {
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		return "", fmt.Errorf("refusing to store quote %s: not a PDF document", quoteNumber)
	}

	folder := quotePDFFolder
	if parts := strings.Split(quoteNumber, "-"); len(parts) == 3 {
		folder = quotePDFFolder + "/" + parts[1]
	}
	return s.store.UploadFile(ctx, s.bucket, folder, quoteNumber+".pdf", quotePDFContentType, bytes.NewReader(data), int64(len(data)))
}

// GetQuotePDF opens a stored PDF. The caller closes the reader.
func (s *QuotePDFStore) GetQuotePDF(ctx context.Context, fileKey string) (io.ReadCloser, error) {
	return s.store.DownloadFile(ctx, s.bucket, fileKey)
}

var _ quotesvc.PDFStore = (*QuotePDFStore)(nil)
