// Package pdftext extracts plain text from PDF documents.
package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

var ErrNotPDF = errors.New("not a pdf document")

const defaultTimeout = 30 * time.Second

// Extractor turns PDF bytes into text. It prefers the poppler pdftotext tool
// when installed and falls back to the pure Go reader.
type Extractor struct {
	pdftotext string
	timeout   time.Duration
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithPdftotext overrides the pdftotext binary; empty disables it.
func WithPdftotext(path string) Option {
	return func(e *Extractor) { e.pdftotext = strings.TrimSpace(path) }
}

// WithTimeout bounds a single pdftotext run.
func WithTimeout(d time.Duration) Option {
	return func(e *Extractor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// NewExtractor looks up pdftotext on PATH unless overridden.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{timeout: defaultTimeout}
	if path, err := exec.LookPath("pdftotext"); err == nil {
		e.pdftotext = path
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Extract returns the document text. A readable PDF without a text layer
// yields an empty string and no error.
func (e *Extractor) Extract(ctx context.Context, data []byte) (string, error) {
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte("%PDF-")) {
		return "", ErrNotPDF
	}
	if e.pdftotext != "" {
		text, err := e.extractWithPdftotext(ctx, data)
		if err == nil && text != "" {
			return text, nil
		}
	}
	return extractWithGoLib(data)
}

func (e *Extractor) extractWithPdftotext(ctx context.Context, data []byte) (string, error) {
	tmp, err := os.CreateTemp("", "careerbot-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp pdf: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp pdf: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp pdf: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	output, err := exec.CommandContext(ctx, e.pdftotext, "-layout", "-enc", "UTF-8", tmp.Name(), "-").Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext failed: %w", err)
	}
	return NormalizeText(string(output)), nil
}

// extractWithGoLib reads page by page, skipping pages that fail to decode.
// The library panics on some malformed inputs, so panics become errors.
func extractWithGoLib(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if content = NormalizeText(content); content != "" {
			pages = append(pages, content)
		}
	}
	return strings.Join(pages, "\n\n"), nil
}

// NormalizeText strips NULs and invalid UTF-8, collapses runs of spaces
// inside each line and drops repeated blank lines. Line breaks are kept.
func NormalizeText(text string) string {
	text = strings.ReplaceAll(text, "\x00", " ")
	text = strings.ToValidUTF8(text, "")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\f", "\n")

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
