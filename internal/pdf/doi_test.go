package pdf

import "testing"

func TestFindDOI(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"simple", "See https://doi.org/10.1038/nature14539 for details", "10.1038/nature14539"},
		{"trailing punctuation", "(doi:10.1145/3292500.3330701).", "10.1145/3292500.3330701"},
		{"none", "no identifiers here", ""},
		{"too short registrant", "10.12/abc", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := findDOI(tt.text); got != tt.want {
				t.Errorf("findDOI() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsHeaderLine(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"Journal of Machine Learning Research 15 (2014)", true},
		{"Copyright 2017 by the authors", true},
		{"arXiv:1706.03762v5 [cs.CL] 6 Dec 2017", true},
		{"Proceedings of the 31st Conference on Neural Information Processing Systems", true},
		{"Attention Is All You Need", false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			if got := IsHeaderLine(tt.line); got != tt.want {
				t.Errorf("IsHeaderLine(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}
