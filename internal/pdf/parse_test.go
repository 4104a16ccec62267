package pdf

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestParse_TextFormats(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name   string
		file   string
		format Format
	}{
		{"plain text", "paper.txt", FormatText},
		{"markdown", "paper.md", FormatMarkdown},
		{"uppercase extension", "PAPER.TXT", FormatText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.file, "Attention Is All You Need\n\ndoi: 10.48550/arXiv.1706.03762.\n")
			doc, err := Parse(path)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if doc.Format != tt.format {
				t.Errorf("Format = %s, want %s", doc.Format, tt.format)
			}
			if doc.Pages != 1 {
				t.Errorf("Pages = %d, want 1", doc.Pages)
			}
			if doc.DOI != "10.48550/arXiv.1706.03762" {
				t.Errorf("DOI = %q, want %q", doc.DOI, "10.48550/arXiv.1706.03762")
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"unsupported extension", writeFile(t, dir, "paper.docx", "content"), ErrUnsupportedFormat},
		{"whitespace only", writeFile(t, dir, "blank.txt", "  \n\t\n"), ErrNoText},
		{"missing file", filepath.Join(dir, "missing.txt"), os.ErrNotExist},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.path)
			if err == nil {
				t.Fatal("expected error")
			}
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("error should be *ParseError, got %T", err)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParse_InvalidPDF(t *testing.T) {
	path := writeFile(t, t.TempDir(), "broken.pdf", "this is not a pdf")
	_, err := Parse(path)
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if parseErr.Path != path {
		t.Errorf("Path = %q, want %q", parseErr.Path, path)
	}
}

func TestLeadingText(t *testing.T) {
	text := "page1\fpage2\fpage3\fpage4 10.1234/late"
	got := leadingText(text, FormatPDF)
	if got != "page1\npage2\npage3" {
		t.Errorf("leadingText() = %q", got)
	}
	if findDOI(got) != "" {
		t.Error("DOI beyond the leading pages should not be found")
	}
}
