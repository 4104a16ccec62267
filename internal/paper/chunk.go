package paper

// Chunk is a bounded, overlapping segment of a paper's text used as the unit of retrieval.
type Chunk struct {
	PaperID   string    `json:"paper_id"`
	Seq       int       `json:"seq"`               // Position within the paper, starting at 0
	Text      string    `json:"text"`
	Section   string    `json:"section,omitempty"` // Nearest preceding section heading, if detected
	Embedding []float32 `json:"-"`
}
