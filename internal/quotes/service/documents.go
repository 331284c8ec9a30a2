package service

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"scada_quote_backend/internal/events"
	"scada_quote_backend/platform/apperr"

	"github.com/google/uuid"
)

const (
	msgPDFUnavailable     = "PDF rendering is not configured"
	msgStorageUnavailable = "PDF storage is not configured"
)

// PDFFile is a quote PDF ready to be streamed to a client.
type PDFFile struct {
	FileName string
	Size     int64
	Reader   io.ReadCloser
}

// PDFFileName is the download name of a quote PDF.
func PDFFileName(quoteNumber string) string {
	return fmt.Sprintf("Cotizacion-%s.pdf", quoteNumber)
}

// RenderPDF renders the current state of a quote. Nothing is stored.
func (s *Service) RenderPDF(ctx context.Context, id uuid.UUID) ([]byte, string, error) {
	if s.renderer == nil {
		return nil, "", apperr.Unavailable(msgPDFUnavailable)
	}
	quote, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	data, err := s.renderer.RenderQuotePDF(ctx, *quote)
	if err != nil {
		return nil, "", fmt.Errorf("render quote pdf: %w", err)
	}
	return data, quote.QuoteNumber, nil
}

// OpenPDF returns the stored PDF of a quote, or renders one on the fly when
// none is stored or storage is not configured.
func (s *Service) OpenPDF(ctx context.Context, id uuid.UUID) (*PDFFile, error) {
	quote, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.store != nil && quote.PDFFileKey != nil && *quote.PDFFileKey != "" {
		reader, err := s.store.GetQuotePDF(ctx, *quote.PDFFileKey)
		if err == nil {
			return &PDFFile{FileName: PDFFileName(quote.QuoteNumber), Size: -1, Reader: reader}, nil
		}
		s.log.WithContext(ctx).Warn("stored quote pdf unreadable, rendering", "quoteNumber", quote.QuoteNumber, "error", err)
	}

	data, quoteNumber, err := s.RenderPDF(ctx, id)
	if err != nil {
		return nil, err
	}
	return &PDFFile{
		FileName: PDFFileName(quoteNumber),
		Size:     int64(len(data)),
		Reader:   io.NopCloser(bytes.NewReader(data)),
	}, nil
}

// ExportPDF renders a quote, stores the document and records its key.
func (s *Service) ExportPDF(ctx context.Context, id uuid.UUID) (string, error) {
	if s.store == nil {
		return "", apperr.Unavailable(msgStorageUnavailable)
	}

	data, quoteNumber, err := s.RenderPDF(ctx, id)
	if err != nil {
		return "", err
	}

	fileKey, err := s.store.PutQuotePDF(ctx, quoteNumber, data)
	if err != nil {
		return "", fmt.Errorf("store quote pdf: %w", err)
	}
	if err := s.repo.SetPDFFileKey(ctx, id, fileKey); err != nil {
		return "", err
	}

	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.QuoteExported{
			BaseEvent: events.NewBaseEvent(),
			QuoteID:   id,
			FileKey:   fileKey,
		})
	}
	s.log.WithContext(ctx).Info("quote pdf exported", "quoteNumber", quoteNumber, "fileKey", fileKey)
	return fileKey, nil
}

// RequestExport queues a PDF export, or runs it inline when no job queue is
// configured.
func (s *Service) RequestExport(ctx context.Context, actor Actor, id uuid.UUID) (bool, string, error) {
	if !actor.canWrite() {
		return false, "", apperr.Forbidden(msgWriteForbidden)
	}
	if s.store == nil {
		return false, "", apperr.Unavailable(msgStorageUnavailable)
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return false, "", err
	}

	if s.enqueuer != nil {
		if err := s.enqueuer.EnqueueQuotePDFExport(ctx, id); err != nil {
			return false, "", fmt.Errorf("enqueue quote pdf export: %w", err)
		}
		return true, "", nil
	}

	fileKey, err := s.ExportPDF(ctx, id)
	if err != nil {
		return false, "", err
	}
	return false, fileKey, nil
}
