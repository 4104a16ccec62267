package chunk

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		c := New()
		if c.Size() != DefaultSize {
			t.Errorf("Size() = %d, want %d", c.Size(), DefaultSize)
		}
		if c.Overlap() != DefaultOverlap {
			t.Errorf("Overlap() = %d, want %d", c.Overlap(), DefaultOverlap)
		}
	})

	t.Run("custom values", func(t *testing.T) {
		c := New(WithSize(400), WithOverlap(50))
		if c.Size() != 400 || c.Overlap() != 50 {
			t.Errorf("got size %d overlap %d, want 400 and 50", c.Size(), c.Overlap())
		}
	})

	t.Run("overlap too large is reduced", func(t *testing.T) {
		c := New(WithSize(100), WithOverlap(80))
		if c.Overlap() >= c.Size()/2 {
			t.Errorf("overlap %d should be below half of size %d", c.Overlap(), c.Size())
		}
	})

	t.Run("invalid values ignored", func(t *testing.T) {
		c := New(WithSize(10), WithOverlap(-1))
		if c.Size() != DefaultSize || c.Overlap() != DefaultOverlap {
			t.Errorf("expected defaults, got size %d overlap %d", c.Size(), c.Overlap())
		}
	})
}

func TestValidateWindow(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{"defaults", DefaultSize, DefaultOverlap, false},
		{"no overlap", MinSize, 0, false},
		{"just under half", 1000, 499, false},
		{"half of size", 1000, 500, true},
		{"overlap above half", 1000, 600, true},
		{"negative overlap", 1000, -1, true},
		{"size below minimum", 40, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWindow(tt.size, tt.overlap)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateWindow(%d, %d) error = %v, wantErr %v", tt.size, tt.overlap, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			c := New(WithSize(tt.size), WithOverlap(tt.overlap))
			if c.Size() != tt.size || c.Overlap() != tt.overlap {
				t.Errorf("New() = size %d overlap %d, want %d and %d", c.Size(), c.Overlap(), tt.size, tt.overlap)
			}
		})
	}
}

func sampleText(words int) string {
	vocab := []string{"attention", "transformer", "encoder", "decoder", "layer", "softmax", "query", "key", "value"}
	parts := make([]string, words)
	for i := range parts {
		parts[i] = vocab[i%len(vocab)]
	}
	return strings.Join(parts, " ")
}

func TestSplit_Empty(t *testing.T) {
	if chunks := New().Split("p1", "  \n "); len(chunks) != 0 {
		t.Errorf("expected no chunks, got %d", len(chunks))
	}
}

func TestSplit_ShortText(t *testing.T) {
	chunks := New().Split("p1", "  a short paper body  ")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != "a short paper body" || chunks[0].PaperID != "p1" || chunks[0].Seq != 0 {
		t.Errorf("unexpected chunk: %+v", chunks[0])
	}
}

func TestSplit_BoundsAndOverlap(t *testing.T) {
	c := New(WithSize(200), WithOverlap(50))
	text := sampleText(400)
	chunks := c.Split("p1", text)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for i, ch := range chunks {
		if ch.Seq != i {
			t.Errorf("chunk %d has Seq %d", i, ch.Seq)
		}
		if len(ch.Text) > c.Size() {
			t.Errorf("chunk %d length %d exceeds size %d", i, len(ch.Text), c.Size())
		}
		if i == 0 {
			continue
		}
		first := strings.Fields(ch.Text)[0]
		if !strings.Contains(chunks[i-1].Text, first) {
			t.Errorf("chunk %d does not overlap its predecessor (first word %q)", i, first)
		}
	}

	// Every word survives chunking
	joined := ""
	for _, ch := range chunks {
		joined += " " + ch.Text
	}
	if !strings.HasSuffix(strings.TrimSpace(joined), strings.Fields(text)[len(strings.Fields(text))-1]) {
		t.Error("last word of text missing from chunks")
	}
}

func TestSplit_NoOverlap(t *testing.T) {
	c := New(WithSize(100), WithOverlap(0))
	text := sampleText(100)
	chunks := c.Split("p1", text)

	total := 0
	for _, ch := range chunks {
		total += len(strings.Fields(ch.Text))
	}
	if total != 100 {
		t.Errorf("without overlap chunks should hold each word once: got %d words, want 100", total)
	}
}

func TestSplit_UTF8Boundaries(t *testing.T) {
	c := New(WithSize(60), WithOverlap(10))
	text := strings.Repeat("注意力机制是变换器的核心", 20)
	for i, ch := range c.Split("p1", text) {
		if !utf8.ValidString(ch.Text) {
			t.Errorf("chunk %d is not valid UTF-8", i)
		}
		if !strings.Contains(text, ch.Text) {
			t.Errorf("chunk %d is not a substring of the text", i)
		}
	}
}

func TestSplit_SectionHints(t *testing.T) {
	text := "Attention Is All You Need\n\nAbstract\n" + sampleText(30) +
		"\n\n1 Introduction\n" + sampleText(60) +
		"\n\n## Model Architecture\n" + sampleText(60)

	chunks := New(WithSize(150), WithOverlap(20)).Split("p1", text)
	seen := map[string]bool{}
	for _, ch := range chunks {
		seen[ch.Section] = true
	}
	for _, want := range []string{"Abstract", "Introduction", "Model Architecture"} {
		if !seen[want] {
			t.Errorf("section %q not assigned to any chunk (seen %v)", want, seen)
		}
	}
}
