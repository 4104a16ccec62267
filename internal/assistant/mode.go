package assistant

import (
	"fmt"
	"strings"
)

// Mode selects a retrieval and prompting strategy.
type Mode string

const (
	ModeAsk         Mode = "ask"
	ModeSummarize   Mode = "summarize"
	ModeCompare     Mode = "compare"
	ModeRelatedWork Mode = "related-work"
	ModeBrainstorm  Mode = "brainstorm"
)

// Modes lists every mode in presentation order.
var Modes = []Mode{ModeAsk, ModeSummarize, ModeCompare, ModeRelatedWork, ModeBrainstorm}

// Retrieval sizes per mode.
const (
	AskK                  = 4
	SummarizeMaxChunks    = 8
	CompareKPerTopic      = 4
	RelatedWorkK          = 6
	RelatedWorkCandidates = 18
	BrainstormK           = 4
)

// ParseMode converts a mode tag to a Mode.
func ParseMode(s string) (Mode, error) {
	tag := strings.ToLower(strings.TrimSpace(s))
	for _, m := range Modes {
		if string(m) == tag {
			return m, nil
		}
	}
	switch tag {
	case "summarize_paper", "summary":
		return ModeSummarize, nil
	case "related_work", "generate_related_work":
		return ModeRelatedWork, nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// Query is a request to the assistant.
type Query struct {
	Mode  Mode
	Input string

	// Title names the paper to summarize. Input is used when empty.
	Title string
}
