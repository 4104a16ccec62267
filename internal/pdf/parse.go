// Package pdf extracts plain text and structural hints from source documents.
package pdf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Errors returned by Parse, wrapped in a *ParseError.
var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrNoText            = errors.New("no extractable text")
)

// Format identifies the kind of source document.
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
)

// Document holds the text extracted from a source file.
type Document struct {
	Path   string
	Format Format
	Text   string
	Pages  int    // Number of pages for PDFs, 1 otherwise
	DOI    string // First DOI found in the leading pages, if any
}

// ParseError reports a failure to extract text from a file.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// doiSearchPages is the number of leading pages scanned for a DOI.
const doiSearchPages = 3

// FormatForPath returns the document format implied by a file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return FormatPDF, nil
	case ".txt", ".text":
		return FormatText, nil
	case ".md", ".markdown":
		return FormatMarkdown, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

// Parse extracts plain text from the file at path.
// Fails if the file is unreadable, of an unsupported type, or yields no text.
func Parse(path string) (*Document, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	doc := &Document{Path: path, Format: format, Pages: 1}
	switch format {
	case FormatPDF:
		text, pages, err := extractPDF(path)
		if err != nil {
			return nil, &ParseError{Path: path, Err: err}
		}
		doc.Text = text
		doc.Pages = pages
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &ParseError{Path: path, Err: err}
		}
		doc.Text = string(data)
	}

	if strings.TrimSpace(doc.Text) == "" {
		return nil, &ParseError{Path: path, Err: ErrNoText}
	}

	doc.DOI = findDOI(leadingText(doc.Text, format))
	return doc, nil
}

// extractPDF extracts the text of every page with a content stream.
// Pages that fail to decode are skipped rather than failing the document.
func extractPDF(path string) (string, int, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	var builder strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		builder.WriteString(text)
		builder.WriteString("\f")
	}

	return builder.String(), r.NumPage(), nil
}

// leadingText returns the portion of text in which a DOI is searched.
// For PDFs this is the first few pages (split on form feeds).
func leadingText(text string, format Format) string {
	if format != FormatPDF {
		if len(text) > 8000 {
			return text[:8000]
		}
		return text
	}
	pages := strings.SplitN(text, "\f", doiSearchPages+1)
	if len(pages) > doiSearchPages {
		pages = pages[:doiSearchPages]
	}
	return strings.Join(pages, "\n")
}
