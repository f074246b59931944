// Package pdfextract scrapes advisory pre-fill fields out of invoice PDFs
// using ledongthuc/pdf. Extraction is best-effort: a PDF the library cannot
// read yields an error, a PDF without recognizable fields yields an empty
// prefill, and neither outcome blocks request creation.
package pdfextract

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	pdf "github.com/ledongthuc/pdf"

	portssvc "github.com/opexhq/expense_approval_app/internal/core/ports/services"
	"github.com/opexhq/expense_approval_app/internal/dto"
)

// Extractor implements the FieldExtractor port.
type Extractor struct{}

// NewExtractor creates a PDF field extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Ensure Extractor implements the FieldExtractor port
var _ portssvc.FieldExtractor = (*Extractor)(nil)

var (
	referencePattern = regexp.MustCompile(`(?i)(?:invoice|facture|reference|ref)[\s.:n°#]*([A-Z0-9][A-Z0-9/_-]{2,})`)
	namePattern      = regexp.MustCompile(`(?i)(?:name|nom)[\s.:]*([\p{L}-]{2,})`)
	surnamePattern   = regexp.MustCompile(`(?i)(?:surname|first name|prenom|prénom)[\s.:]*([\p{L}-]{2,})`)
)

func (e *Extractor) Extract(ctx context.Context, path string) (*dto.InvoicePrefill, error) {
	text, err := extractText(path)
	if err != nil {
		return nil, err
	}

	prefill := &dto.InvoicePrefill{}
	if m := referencePattern.FindStringSubmatch(text); m != nil {
		prefill.Reference = m[1]
	}
	if m := namePattern.FindStringSubmatch(text); m != nil {
		prefill.Name = m[1]
	}
	if m := surnamePattern.FindStringSubmatch(text); m != nil {
		prefill.Surname = m[1]
	}
	return prefill, nil
}

// extractText reads a PDF file and returns its plain text page by page.
func extractText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat pdf: %w", err)
	}
	doc, err := pdf.NewReader(f, info.Size())
	if err != nil {
		return "", fmt.Errorf("new pdf reader: %w", err)
	}

	var builder strings.Builder
	total := doc.NumPage()
	for page := 1; page <= total; page++ {
		p := doc.Page(page)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", page, err)
		}
		builder.WriteString(content)
		builder.WriteString("\n")
	}
	return builder.String(), nil
}
