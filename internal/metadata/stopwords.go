package metadata

// stopwords are frequent English words never inferred as keywords.
var stopwords = map[string]bool{
	"about": true, "above": true, "after": true, "again": true, "against": true,
	"also": true, "among": true, "been": true, "before": true, "being": true,
	"below": true, "between": true, "both": true, "cannot": true, "could": true,
	"does": true, "doing": true, "down": true, "during": true, "each": true,
	"either": true, "even": true, "every": true, "first": true, "from": true,
	"further": true, "have": true, "having": true, "here": true, "however": true,
	"into": true, "itself": true, "just": true, "like": true, "many": true,
	"more": true, "most": true, "much": true, "must": true, "only": true,
	"other": true, "others": true, "over": true, "same": true, "second": true,
	"should": true, "show": true, "shown": true, "shows": true, "since": true,
	"some": true, "such": true, "than": true, "that": true, "their": true,
	"them": true, "then": true, "there": true, "these": true, "they": true,
	"this": true, "those": true, "through": true, "thus": true, "under": true,
	"until": true, "upon": true, "used": true, "uses": true, "using": true,
	"very": true, "were": true, "what": true, "when": true, "where": true,
	"which": true, "while": true, "will": true, "with": true, "within": true,
	"without": true, "would": true, "your": true, "paper": true, "results": true,
	"table": true, "figure": true, "section": true, "work": true, "based": true,
	"abstract": true, "introduction": true, "conclusion": true, "references": true,
	"well": true, "because": true, "whether": true,
	"given": true, "several": true, "number": true, "able": true,
}
