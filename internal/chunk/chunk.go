// Package chunk splits paper text into overlapping retrieval windows.
package chunk

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/scholarkb/scholarkb/internal/paper"
)

const (
	// DefaultSize is the default maximum number of bytes per chunk.
	DefaultSize = 1000

	// DefaultOverlap is the default number of bytes shared by consecutive chunks.
	DefaultOverlap = 200

	// MinSize is the smallest window accepted from configuration.
	MinSize = 50
)

// sectionPattern matches common section headings, optionally numbered ("3.1 Method")
// or written as Markdown headings.
var sectionPattern = regexp.MustCompile(`(?im)^[ \t]*(?:#{1,6}[ \t]+(.+?)|(?:\d+(?:\.\d+)*\.?[ \t]+)?(abstract|introduction|related work|background|preliminaries|methods?|methodology|approach|model|experiments?|evaluation|results|discussion|conclusions?|limitations|references|acknowledge?ments))[ \t]*$`)

// Chunker splits text into windows of at most size bytes, each sharing up to
// overlap bytes with its predecessor. Window boundaries prefer whitespace.
type Chunker struct {
	size    int
	overlap int
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithSize sets the maximum chunk size in bytes.
func WithSize(size int) Option {
	return func(c *Chunker) {
		if size >= MinSize {
			c.size = size
		}
	}
}

// WithOverlap sets the overlap between consecutive chunks in bytes.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// ValidateWindow checks that size and overlap are used as given by New.
// Overlap must stay below half the size so every window advances.
func ValidateWindow(size, overlap int) error {
	if size < MinSize {
		return fmt.Errorf("chunk size %d is below the minimum of %d", size, MinSize)
	}
	if overlap < 0 {
		return fmt.Errorf("chunk overlap %d must not be negative", overlap)
	}
	if overlap >= size/2 {
		return fmt.Errorf("chunk overlap %d must be less than half the size %d", overlap, size)
	}
	return nil
}

// New creates a chunker with the given options. Values rejected by
// ValidateWindow fall back to safe ones.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		size:    DefaultSize,
		overlap: DefaultOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}

	// Overlap must stay below the shortest window so every step makes progress
	if c.overlap >= c.size/2 {
		c.overlap = c.size / 4
	}
	return c
}

// Size returns the maximum chunk size in bytes.
func (c *Chunker) Size() int {
	return c.size
}

// Overlap returns the configured overlap in bytes.
func (c *Chunker) Overlap() int {
	return c.overlap
}

// heading is a detected section heading and its byte offset in the text.
type heading struct {
	offset int
	name   string
}

// Split divides text into chunks owned by paperID. Empty text yields no chunks.
func (c *Chunker) Split(paperID, text string) []paper.Chunk {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	headings := findHeadings(text)
	chunks := make([]paper.Chunk, 0, len(text)/(c.size-c.overlap)+1)

	start := 0
	for start < len(text) {
		end := c.windowEnd(text, start)

		if body := strings.TrimSpace(text[start:end]); body != "" {
			chunks = append(chunks, paper.Chunk{
				PaperID: paperID,
				Seq:     len(chunks),
				Text:    body,
				Section: sectionFor(headings, start, end),
			})
		}

		if end >= len(text) {
			break
		}
		start = c.nextStart(text, start, end)
	}

	return chunks
}

// windowEnd returns the end of the window beginning at start, backing off to
// the last whitespace in the second half of the window when possible.
func (c *Chunker) windowEnd(text string, start int) int {
	end := start + c.size
	if end >= len(text) {
		return len(text)
	}
	end = runeFloor(text, end)

	floor := start + c.size/2
	for i := end; i > floor; i-- {
		if isSpaceAt(text, i) {
			return i
		}
	}
	return end
}

// nextStart returns the start of the window that follows [start, end),
// stepping back by the overlap and then forward to the next word boundary.
func (c *Chunker) nextStart(text string, start, end int) int {
	next := runeFloor(text, end-c.overlap)
	if next <= start {
		return end
	}

	// Align to a word start so the overlap doesn't begin mid-word
	for i := next; i < end; i++ {
		if i > 0 && isSpaceAt(text, i-1) && !isSpaceAt(text, i) {
			return i
		}
	}
	return next
}

// findHeadings locates section headings in text.
func findHeadings(text string) []heading {
	var out []heading
	for _, m := range sectionPattern.FindAllStringSubmatchIndex(text, -1) {
		var name string
		switch {
		case m[2] >= 0:
			name = text[m[2]:m[3]]
		case m[4] >= 0:
			name = text[m[4]:m[5]]
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		out = append(out, heading{offset: m[0], name: titleCase(name)})
	}
	return out
}

// sectionFor returns the heading governing the window [start, end): the last
// heading at or before start, or else the first heading inside the window.
func sectionFor(headings []heading, start, end int) string {
	section := ""
	for _, h := range headings {
		if h.offset <= start {
			section = h.name
			continue
		}
		if section == "" && h.offset < end {
			return h.name
		}
		break
	}
	return section
}

// titleCase upper-cases the first letter of an all-lowercase or all-uppercase heading.
func titleCase(s string) string {
	if s != strings.ToLower(s) && s != strings.ToUpper(s) {
		return s
	}
	lower := strings.ToLower(s)
	r, size := utf8.DecodeRuneInString(lower)
	return string(unicode.ToUpper(r)) + lower[size:]
}

func isSpaceAt(text string, i int) bool {
	if i < 0 || i >= len(text) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return unicode.IsSpace(r)
}

// runeFloor moves i back to the nearest UTF-8 rune boundary.
func runeFloor(text string, i int) int {
	if i >= len(text) {
		return len(text)
	}
	if i < 0 {
		return 0
	}
	for i > 0 && !utf8.RuneStart(text[i]) {
		i--
	}
	return i
}
