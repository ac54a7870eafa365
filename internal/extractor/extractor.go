package extractor

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"

	"github.com/dshills/pdfindex/pkg/types"
)

// Page is the plain text of one PDF page
type Page struct {
	Number int // 1-based
	Text   string
}

// Document is the extracted text of one PDF, page by page
type Document struct {
	Path  string
	Pages []Page
}

// Text joins all pages into one string, separated by blank lines
func (d *Document) Text() string {
	parts := make([]string, 0, len(d.Pages))
	for _, p := range d.Pages {
		parts = append(parts, p.Text)
	}
	return strings.Join(parts, "\n\n")
}

// Empty reports whether no page produced any non-whitespace text
func (d *Document) Empty() bool {
	for _, p := range d.Pages {
		if strings.TrimSpace(p.Text) != "" {
			return false
		}
	}
	return true
}

// Extractor turns a PDF file into text
type Extractor interface {
	// Extract reads the PDF at path. Failures wrap types.ErrExtraction.
	Extract(ctx context.Context, path string) (*Document, error)
}

// PDFExtractor extracts text with the langchaingo PDF loader
type PDFExtractor struct {
	password string
}

// Option configures a PDFExtractor
type Option func(*PDFExtractor)

// WithPassword sets the password used to open encrypted PDFs
func WithPassword(password string) Option {
	return func(e *PDFExtractor) {
		e.password = password
	}
}

// New creates a new PDFExtractor instance
func New(opts ...Option) *PDFExtractor {
	e := &PDFExtractor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract loads every page of the PDF at path
func (e *PDFExtractor) Extract(ctx context.Context, path string) (doc *Document, err error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", types.ErrExtraction, path, err)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %v", types.ErrExtraction, path, err)
	}

	// The underlying PDF reader panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("%w: %s: corrupt PDF: %v", types.ErrExtraction, path, r)
		}
	}()

	var loaderOpts []documentloaders.PDFOptions
	if e.password != "" {
		loaderOpts = append(loaderOpts, documentloaders.WithPassword(e.password))
	}
	loader := documentloaders.NewPDF(file, info.Size(), loaderOpts...)

	docs, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrExtraction, path, err)
	}

	doc = &Document{
		Path:  path,
		Pages: pagesFromDocuments(docs),
	}
	if doc.Empty() {
		return nil, fmt.Errorf("%w: %s: no extractable text", types.ErrExtraction, path)
	}

	return doc, nil
}

// pagesFromDocuments maps loader output (one document per page) to pages
func pagesFromDocuments(docs []schema.Document) []Page {
	pages := make([]Page, 0, len(docs))
	for i, d := range docs {
		number := i + 1
		if n, ok := d.Metadata["page"].(int); ok && n > 0 {
			number = n
		}
		pages = append(pages, Page{Number: number, Text: d.PageContent})
	}
	return pages
}
