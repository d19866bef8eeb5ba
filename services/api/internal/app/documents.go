package app

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/mayank-dotcom/career-bot/internal/util"
	"github.com/mayank-dotcom/career-bot/pkg/domain"
	"github.com/mayank-dotcom/career-bot/pkg/pdftext"
	"github.com/mayank-dotcom/career-bot/pkg/storage"
)

const pdfContentType = "application/pdf"

// ParseDocumentInput is one uploaded file. UserID is set only for
// authenticated uploads, which are also stored.
type ParseDocumentInput struct {
	FileName    string
	ContentType string
	Data        []byte
	UserID      string
}

type ParseDocumentResult struct {
	Text       string                `json:"text"`
	FileName   string                `json:"fileName"`
	UploadDate string                `json:"uploadDate"`
	DocumentID string                `json:"documentId"`
	Sections   domain.ResumeSections `json:"sections"`
}

// ParseDocument extracts the text layer of a PDF résumé and splits it into sections.
func (a *App) ParseDocument(ctx context.Context, in ParseDocumentInput) (ParseDocumentResult, error) {
	logger := util.LoggerFromContext(ctx)
	if len(in.Data) == 0 {
		return ParseDocumentResult{}, ErrNoFile
	}
	if !isPDFContentType(in.ContentType) {
		return ParseDocumentResult{}, ErrNotPDF
	}
	fileName := filepath.Base(strings.TrimSpace(in.FileName))
	if fileName == "." || fileName == string(filepath.Separator) {
		fileName = "document.pdf"
	}

	text, err := a.extractor.Extract(ctx, in.Data)
	if err != nil {
		logger.Warn("pdf extraction failed", "file", fileName, "size", len(in.Data), "err", err)
		return ParseDocumentResult{}, wrap(ErrParseFailed, err)
	}
	now := a.timestamp()
	doc := domain.Document{
		ID:         a.newID(),
		UserID:     strings.TrimSpace(in.UserID),
		FileName:   fileName,
		Text:       text,
		Sections:   pdftext.ExtractResumeSections(text),
		SizeBytes:  int64(len(in.Data)),
		UploadDate: now,
	}
	if doc.UserID != "" {
		a.storeDocument(ctx, &doc, in.Data)
	}
	return ParseDocumentResult{
		Text:       doc.Text,
		FileName:   doc.FileName,
		UploadDate: now.Format(time.RFC3339Nano),
		DocumentID: doc.ID,
		Sections:   doc.Sections,
	}, nil
}

// storeDocument archives the raw PDF and records the parse. Failures are
// logged; the caller still gets the extracted text.
func (a *App) storeDocument(ctx context.Context, doc *domain.Document, data []byte) {
	logger := util.LoggerFromContext(ctx)
	if a.objects != nil {
		key := storage.ResumeKey(doc.UserID, doc.ID)
		if err := a.objects.Put(ctx, key, bytes.NewReader(data), int64(len(data)), pdfContentType); err != nil {
			logger.Warn("resume archive failed", "document_id", doc.ID, "key", key, "err", err)
		} else {
			doc.StorageKey = key
		}
	}
	if err := a.store.SaveDocument(*doc); err != nil {
		logger.Error("save document failed", "document_id", doc.ID, "user_id", doc.UserID, "err", fmt.Errorf("save document: %w", err))
		if doc.StorageKey != "" {
			if err := a.objects.Delete(ctx, doc.StorageKey); err != nil {
				logger.Warn("resume archive cleanup failed", "key", doc.StorageKey, "err", err)
			}
		}
	}
}

func isPDFContentType(value string) bool {
	mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(value))
	if err != nil {
		return false
	}
	return strings.EqualFold(mediaType, pdfContentType)
}
